package reporting

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Define colors
var (
	Success = lipgloss.AdaptiveColor{Light: "#05A167", Dark: "#05D176"}
	Error   = lipgloss.AdaptiveColor{Light: "#E06A56", Dark: "#F97171"}
	Warning = lipgloss.AdaptiveColor{Light: "#E0A956", Dark: "#F9C171"}
	Info    = lipgloss.AdaptiveColor{Light: "#5A9FE0", Dark: "#71B7F9"}
	Subtle  = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
)

// styles groups the text styles used by the console reporter.
type styles struct {
	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
	info    lipgloss.Style
	subtle  lipgloss.Style
	title   lipgloss.Style
}

// newStyles creates styles bound to out. The renderer drops colours when out
// is not a terminal; noColor drops them unconditionally.
func newStyles(out io.Writer, noColor bool) styles {
	r := lipgloss.NewRenderer(out)
	if noColor {
		plain := r.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain}
	}
	return styles{
		success: r.NewStyle().Foreground(Success),
		failure: r.NewStyle().Foreground(Error),
		warning: r.NewStyle().Foreground(Warning),
		info:    r.NewStyle().Foreground(Info),
		subtle:  r.NewStyle().Foreground(Subtle),
		title:   r.NewStyle().Bold(true),
	}
}
