// Package diff renders a character-level comparison of two texts, marking
// inserted, deleted and replaced ranges.
package diff

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
)

// Style is the pair of delimiters wrapped around inserted and deleted runs.
type Style struct {
	InsertStart string
	InsertEnd   string
	DeleteStart string
	DeleteEnd   string
}

const (
	ansiGreen = "\x1b[38;5;16;48;5;2m"
	ansiRed   = "\x1b[38;5;16;48;5;1m"
	ansiReset = "\x1b[0m"
)

// ANSI highlights inserts with a green background and deletes with a red one.
var ANSI = Style{
	InsertStart: ansiGreen,
	InsertEnd:   ansiReset,
	DeleteStart: ansiRed,
	DeleteEnd:   ansiReset,
}

// Plain marks runs with {+inserted+} and [-deleted-] for terminals without colour.
var Plain = Style{
	InsertStart: "{+",
	InsertEnd:   "+}",
	DeleteStart: "[-",
	DeleteEnd:   "-]",
}

// Strings renders b against a. Equal runs are copied as they are, inserts
// show b's text, deletes show a's text, and a replace shows the inserted
// text before the deleted text.
func Strings(a, b string, style Style) string {
	as, bs := splitRunes(a), splitRunes(b)

	var out strings.Builder
	matcher := difflib.NewMatcher(as, bs)
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'e':
			writeRun(&out, as[op.I1:op.I2])
		case 'i':
			out.WriteString(style.InsertStart)
			writeRun(&out, bs[op.J1:op.J2])
			out.WriteString(style.InsertEnd)
		case 'd':
			out.WriteString(style.DeleteStart)
			writeRun(&out, as[op.I1:op.I2])
			out.WriteString(style.DeleteEnd)
		case 'r':
			out.WriteString(style.InsertStart)
			writeRun(&out, bs[op.J1:op.J2])
			out.WriteString(style.InsertEnd)
			out.WriteString(style.DeleteStart)
			writeRun(&out, as[op.I1:op.I2])
			out.WriteString(style.DeleteEnd)
		}
	}
	return out.String()
}

// Bytes renders actual against expected. Valid UTF-8 input is compared as
// text; otherwise both sides are compared in their Go-quoted form so that
// invalid bytes show up as escapes instead of replacement characters.
func Bytes(expected, actual []byte, style Style) string {
	a, b := Represent(expected, actual)
	return Strings(a, b, style)
}

// Represent returns the text forms Bytes compares.
func Represent(expected, actual []byte) (string, string) {
	if utf8.Valid(expected) && utf8.Valid(actual) {
		return string(expected), string(actual)
	}
	return strconv.Quote(string(expected)), strconv.Quote(string(actual))
}

func splitRunes(s string) []string {
	out := make([]string, 0, utf8.RuneCountInString(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func writeRun(out *strings.Builder, run []string) {
	for _, s := range run {
		out.WriteString(s)
	}
}
