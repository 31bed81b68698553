// Package golden compares server responses against stored golden files and
// applies the create/recreate policies.
package golden

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"rpcgolden/internal/diff"
)

var (
	// ErrMismatch is returned when a golden file exists and differs from the response.
	ErrMismatch = errors.New("response does not match golden file")
	// ErrMissing is returned when no golden file exists and no policy may create it.
	ErrMissing = errors.New("golden file not found")
)

// Outcome describes how a successful check ended.
type Outcome string

const (
	OutcomePassed    Outcome = "PASSED"
	OutcomeCreated   Outcome = "CREATED"
	OutcomeRecreated Outcome = "RECREATED"
)

// Policy holds the golden write switches.
type Policy struct {
	// CreateMissing writes the response when no golden file exists.
	CreateMissing bool
	// RecreateBroken overwrites a golden file that differs from the response.
	// It also implies CreateMissing.
	RecreateBroken bool
}

// MismatchError carries the rendered diff of a failed comparison.
type MismatchError struct {
	Path string
	Diff string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, ErrMismatch)
}

func (e *MismatchError) Unwrap() error {
	return ErrMismatch
}

// Result is the outcome of a successful check. Diff is set when a broken
// golden file was recreated.
type Result struct {
	Outcome Outcome
	Diff    string
}

// Checker applies a Policy to golden files.
type Checker struct {
	Policy Policy
	Style  diff.Style
}

// NewChecker creates a Checker rendering diffs with ANSI colours, or with
// plain markers when noColor is set.
func NewChecker(policy Policy, noColor bool) Checker {
	style := diff.ANSI
	if noColor {
		style = diff.Plain
	}
	return Checker{Policy: policy, Style: style}
}

// Check compares actual with the golden file at path.
//
//   - golden exists and matches: OutcomePassed
//   - golden differs, RecreateBroken: file overwritten, OutcomeRecreated
//   - golden differs otherwise: *MismatchError, file untouched
//   - golden absent, CreateMissing or RecreateBroken: file written, OutcomeCreated
//   - golden absent otherwise: ErrMissing, nothing written
func (c Checker) Check(path string, actual []byte) (Result, error) {
	expected, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if !c.Policy.CreateMissing && !c.Policy.RecreateBroken {
			return Result{}, fmt.Errorf("%s: %w", path, ErrMissing)
		}
		if err := write(path, actual); err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeCreated}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to read golden file %s: %w", path, err)
	}

	if bytes.Equal(expected, actual) {
		return Result{Outcome: OutcomePassed}, nil
	}

	rendered := diff.Bytes(expected, actual, c.Style)
	if !c.Policy.RecreateBroken {
		return Result{}, &MismatchError{Path: path, Diff: rendered}
	}
	if err := write(path, actual); err != nil {
		return Result{}, err
	}
	return Result{Outcome: OutcomeRecreated, Diff: rendered}, nil
}

// write replaces the golden file through a temp file in the same directory,
// so an interrupted run never leaves a truncated golden behind.
func write(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write golden file %s: %w", path, err)
	}
	tmpPath := tmp.Name()

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmpPath, 0644)
	}
	if err == nil {
		err = os.Rename(tmpPath, path)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write golden file %s: %w", path, err)
	}
	return nil
}
