// -- internal/reporting/reporter.go --
package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/crispud/semgrep/api/schemas"
)

// Reporter defines the interface for writing scan results to an output.
type Reporter interface {
	// Write processes a single result envelope.
	Write(result *schemas.ResultEnvelope) error
	// Close finalizes the report and closes any underlying resources.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for the given format, writing to outputPath or
// stdout when the path is empty. toolVersion ends up in formats that
// identify the producing tool.
func New(format, outputPath, toolVersion string) (Reporter, error) {
	var writer io.WriteCloser
	isStdout := outputPath == "" || outputPath == "-"

	if isStdout {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	r, err := NewForWriter(format, writer, toolVersion)
	if err != nil && !isStdout {
		writer.Close()
	}
	return r, err
}

// NewForWriter builds a reporter over an existing writer. The reporter
// takes ownership of the writer and closes it in Close.
func NewForWriter(format string, writer io.WriteCloser, toolVersion string) (Reporter, error) {
	switch format {
	case "text":
		return NewTextReporter(writer), nil
	case "json":
		return NewJSONReporter(writer), nil
	case "sarif":
		return NewSARIFReporter(writer, toolVersion), nil
	case "junit-xml":
		return NewJUnitReporter(writer), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
