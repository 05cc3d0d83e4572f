// Package report renders per-file outcomes and the run summary for the
// terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"swiftstrip/internal/rewrite"
)

var (
	processedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")) // Lime Green
	unchangedStyle = lipgloss.NewStyle().Faint(true)
	missingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107")) // Yellow
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")) // Red
)

// Printer writes outcome lines to Out. The zero value is unusable; set Out.
type Printer struct {
	Out    io.Writer
	Quiet  bool // drop unchanged lines
	Color  bool
	DryRun bool
}

// Result prints the line for one file.
func (p *Printer) Result(r rewrite.Result) {
	switch r.Outcome {
	case rewrite.Processed:
		verb := "processed"
		if p.DryRun {
			verb = "would process"
		}
		p.line(processedStyle, "✓", verb+": "+r.Path)
	case rewrite.Unchanged:
		if p.Quiet {
			return
		}
		p.line(unchangedStyle, "·", "no changes: "+r.Path)
	case rewrite.Missing:
		p.line(missingStyle, "!", "file not found: "+r.Path)
	case rewrite.Failed:
		p.line(failedStyle, "✗", fmt.Sprintf("error processing %s: %v", r.Path, r.Err))
	}
}

// Found prints the scan-mode header.
func (p *Printer) Found(n int) {
	if p.Quiet {
		return
	}
	fmt.Fprintf(p.Out, "Found %d candidate files\n", n)
}

func (p *Printer) line(style lipgloss.Style, glyph, msg string) {
	text := glyph + " " + msg
	if p.Color {
		text = style.Render(text)
	}
	fmt.Fprintln(p.Out, text)
}

// Summary tallies a full run.
type Summary struct {
	Processed int
	Unchanged int
	Missing   int
	Failed    int
}

// Tally folds per-file results into a Summary.
func Tally(results []rewrite.Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Outcome {
		case rewrite.Processed:
			s.Processed++
		case rewrite.Unchanged:
			s.Unchanged++
		case rewrite.Missing:
			s.Missing++
		case rewrite.Failed:
			s.Failed++
		}
	}
	return s
}

// Summary prints the closing line for a run.
func (p *Printer) Summary(s Summary) {
	verb := "Processed"
	if p.DryRun {
		verb = "Would process"
	}
	line := fmt.Sprintf("%s %d files", verb, s.Processed)
	var extra []string
	if s.Unchanged > 0 {
		extra = append(extra, fmt.Sprintf("%d unchanged", s.Unchanged))
	}
	if s.Missing > 0 {
		extra = append(extra, fmt.Sprintf("%d missing", s.Missing))
	}
	if s.Failed > 0 {
		extra = append(extra, fmt.Sprintf("%d failed", s.Failed))
	}
	if len(extra) > 0 {
		line += " (" + strings.Join(extra, ", ") + ")"
	}
	fmt.Fprintln(p.Out, line)
}
