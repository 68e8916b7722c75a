// internal/reporting/sarif_reporter.go
package reporting

import (
	stdjson "encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/crispud/semgrep/api/schemas"
	"github.com/crispud/semgrep/internal/reporting/sarif"
)

// Constants for tool identification in the SARIF report.
const (
	toolName     = "semgrep"
	toolInfoURI  = "https://github.com/crispud/semgrep"
	sarifVersion = "2.1.0"
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
)

// SARIFReporter implements the Reporter interface for the SARIF 2.1.0
// format. It buffers results and writes the full log on Close. It is
// thread safe.
type SARIFReporter struct {
	writer io.WriteCloser

	mu    sync.Mutex
	log   *sarif.Log
	rules map[string]struct{}
}

// NewSARIFReporter creates a reporter that writes SARIF output. The tool
// version is injected rather than read from a global.
func NewSARIFReporter(writer io.WriteCloser, toolVersion string) *SARIFReporter {
	log := &sarif.Log{
		Version: sarifVersion,
		Schema:  sarifSchema,
		Runs: []*sarif.Run{
			{
				Tool: &sarif.Tool{
					Driver: &sarif.ToolComponent{
						Name:           toolName,
						Version:        pString(toolVersion),
						InformationURI: pString(toolInfoURI),
						Rules:          []*sarif.ReportingDescriptor{},
					},
				},
				Results: []*sarif.Result{},
			},
		},
	}
	return &SARIFReporter{
		writer: writer,
		log:    log,
		rules:  make(map[string]struct{}),
	}
}

// Write converts the envelope's findings into SARIF results, registering
// each distinct rule id once in the driver's rule table.
func (r *SARIFReporter) Write(result *schemas.ResultEnvelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	for _, finding := range result.Findings {
		r.ensureRule(finding)
		run.Results = append(run.Results, &sarif.Result{
			RuleID:  finding.RuleID,
			Message: &sarif.Message{Text: pString(finding.Message)},
			Level:   severityToLevel(finding.Severity),
			Locations: []*sarif.Location{
				{
					PhysicalLocation: &sarif.PhysicalLocation{
						ArtifactLocation: &sarif.ArtifactLocation{URI: pString(finding.Path)},
						Region: &sarif.Region{
							StartLine:   finding.Line,
							StartColumn: finding.Column,
						},
					},
				},
			},
		})
	}
	return nil
}

// Close finalizes the SARIF log and writes it to the output writer.
func (r *SARIFReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	encoder := stdjson.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")

	encodeErr := encoder.Encode(r.log)
	// Always attempt to close the writer, regardless of encoding success.
	closeErr := r.writer.Close()

	if encodeErr != nil {
		return fmt.Errorf("failed to encode SARIF output: %w", encodeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}

// ensureRule registers a rule descriptor the first time its id is seen.
// Must be called while holding the mutex.
func (r *SARIFReporter) ensureRule(finding schemas.Finding) {
	if _, seen := r.rules[finding.RuleID]; seen {
		return
	}
	r.rules[finding.RuleID] = struct{}{}

	driver := r.log.Runs[0].Tool.Driver
	driver.Rules = append(driver.Rules, &sarif.ReportingDescriptor{
		ID:               finding.RuleID,
		Name:             pString(finding.RuleID),
		ShortDescription: &sarif.MultiformatMessageString{Text: pString(finding.Message)},
		Properties: &sarif.PropertyBag{
			"tags": []string{"security", "semgrep"},
		},
	})
}

// severityToLevel converts a rule severity to the SARIF standard levels.
func severityToLevel(severity schemas.Severity) sarif.Level {
	switch severity {
	case schemas.SeverityError:
		return sarif.LevelError
	case schemas.SeverityWarning:
		return sarif.LevelWarning
	default:
		return sarif.LevelNote
	}
}

// pString returns a pointer to the given string value. Helper for
// optional SARIF fields.
func pString(s string) *string {
	return &s
}
