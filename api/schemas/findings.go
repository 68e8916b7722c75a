package schemas

import "time"

// -- Finding Schemas --

// Severity represents how serious a rule match is. The values are uppercase
// to match the severity field of rule files.
type Severity string

// Constants defining the standard severity levels for findings.
const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// Rank orders severities for threshold filtering; higher is more severe.
// Unknown severities rank below INFO so they are never dropped by accident
// when filtering at the INFO level.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// Finding is a single rule match inside a scanned file. Positions are
// 1-based, the way editors and CI annotations expect them.
type Finding struct {
	RuleID   string   `json:"check_id"`
	Path     string   `json:"path"`
	Line     int      `json:"line"`
	Column   int      `json:"col"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// ResultEnvelope is the complete output of one scan invocation. Reporters
// consume it as-is; the CI uploader wraps it with repository metadata.
type ResultEnvelope struct {
	ScanID    string    `json:"scan_id"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Findings  []Finding `json:"results"`
}

// BlockingCount returns how many findings meet or exceed the given
// severity threshold.
func (e *ResultEnvelope) BlockingCount(threshold Severity) int {
	n := 0
	for _, f := range e.Findings {
		if f.Severity.Rank() >= threshold.Rank() {
			n++
		}
	}
	return n
}
