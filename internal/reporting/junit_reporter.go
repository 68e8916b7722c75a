// internal/reporting/junit_reporter.go
package reporting

import (
	"fmt"
	"io"
	"strconv"

	"github.com/beevik/etree"

	"github.com/crispud/semgrep/api/schemas"
)

// JUnitReporter renders findings as a JUnit XML report so CI systems that
// only understand test results can annotate scan failures. Each finding
// becomes a failed test case named after its rule.
type JUnitReporter struct {
	writer   io.WriteCloser
	findings []schemas.Finding
}

// NewJUnitReporter creates a reporter emitting JUnit-style XML.
func NewJUnitReporter(writer io.WriteCloser) *JUnitReporter {
	return &JUnitReporter{writer: writer}
}

// Write buffers the envelope's findings for the final document.
func (r *JUnitReporter) Write(result *schemas.ResultEnvelope) error {
	r.findings = append(r.findings, result.Findings...)
	return nil
}

// Close builds the XML document and writes it out.
func (r *JUnitReporter) Close() error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	suites := doc.CreateElement("testsuites")
	suite := suites.CreateElement("testsuite")
	suite.CreateAttr("name", "semgrep")
	suite.CreateAttr("tests", strconv.Itoa(len(r.findings)))
	suite.CreateAttr("failures", strconv.Itoa(len(r.findings)))

	for _, f := range r.findings {
		tc := suite.CreateElement("testcase")
		tc.CreateAttr("name", f.RuleID)
		tc.CreateAttr("classname", f.Path)
		tc.CreateAttr("file", f.Path)
		tc.CreateAttr("line", strconv.Itoa(f.Line))

		failure := tc.CreateElement("failure")
		failure.CreateAttr("type", string(f.Severity))
		failure.CreateAttr("message", f.Message)
		failure.SetText(fmt.Sprintf("%s:%d:%d %s", f.Path, f.Line, f.Column, f.Message))
	}

	doc.Indent(2)
	_, writeErr := doc.WriteTo(r.writer)
	closeErr := r.writer.Close()

	if writeErr != nil {
		return fmt.Errorf("failed to write JUnit output: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}
