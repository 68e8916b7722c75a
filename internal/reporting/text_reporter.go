// internal/reporting/text_reporter.go
package reporting

import (
	"fmt"
	"io"

	"github.com/crispud/semgrep/api/schemas"
)

// TextReporter renders findings for humans: one block per file, one line
// per match, and a trailing summary.
type TextReporter struct {
	writer io.WriteCloser
	total  int
}

// NewTextReporter creates the default human-readable reporter.
func NewTextReporter(writer io.WriteCloser) *TextReporter {
	return &TextReporter{writer: writer}
}

// Write renders the envelope's findings. Findings arrive sorted by path
// and line from the engine, so grouping by path is a single pass.
func (r *TextReporter) Write(result *schemas.ResultEnvelope) error {
	lastPath := ""
	for _, f := range result.Findings {
		if f.Path != lastPath {
			if lastPath != "" {
				fmt.Fprintln(r.writer)
			}
			fmt.Fprintf(r.writer, "%s\n", f.Path)
			lastPath = f.Path
		}
		fmt.Fprintf(r.writer, "  %d:%d  %-8s %s\n      %s\n", f.Line, f.Column, f.Severity, f.RuleID, f.Message)
	}
	r.total += len(result.Findings)
	return nil
}

// Close prints the summary line and closes the writer.
func (r *TextReporter) Close() error {
	var err error
	if r.total == 0 {
		_, err = fmt.Fprintln(r.writer, "No findings.")
	} else {
		_, err = fmt.Fprintf(r.writer, "\nFound %d finding(s).\n", r.total)
	}
	closeErr := r.writer.Close()
	if err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}
