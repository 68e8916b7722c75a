// internal/reporting/json_reporter.go
package reporting

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/crispud/semgrep/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONReporter writes the result envelope as a single indented JSON
// document, the format machine consumers and the CI uploader share.
type JSONReporter struct {
	writer   io.WriteCloser
	envelope *schemas.ResultEnvelope
}

// NewJSONReporter creates a reporter that emits the raw envelope as JSON.
func NewJSONReporter(writer io.WriteCloser) *JSONReporter {
	return &JSONReporter{writer: writer}
}

// Write stores the envelope; the document is emitted on Close so repeated
// Write calls replace rather than concatenate invalid JSON.
func (r *JSONReporter) Write(result *schemas.ResultEnvelope) error {
	r.envelope = result
	return nil
}

// Close emits the buffered envelope and closes the writer.
func (r *JSONReporter) Close() error {
	if r.envelope == nil {
		r.envelope = &schemas.ResultEnvelope{Findings: []schemas.Finding{}}
	}
	if r.envelope.Findings == nil {
		r.envelope.Findings = []schemas.Finding{}
	}

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	encodeErr := encoder.Encode(r.envelope)
	closeErr := r.writer.Close()

	if encodeErr != nil {
		return fmt.Errorf("failed to encode JSON output: %w", encodeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}
