// -- cmd/scan.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/crispud/semgrep/api/schemas"
	"github.com/crispud/semgrep/internal/config"
	"github.com/crispud/semgrep/internal/dispatch"
	"github.com/crispud/semgrep/internal/engine"
	"github.com/crispud/semgrep/internal/observability"
	"github.com/crispud/semgrep/internal/reporting"
)

// scanOptions is the flag surface of the scan subcommand after merging
// configuration defaults with what the user passed.
type scanOptions struct {
	rulesPath string
	output    string
	format    string
	jobs      int
	exclude   []string
	severity  string
	timeout   time.Duration
}

// newScanFlagSet declares the scan flags on a fresh FlagSet named after
// the rewritten argv[0], seeding defaults from the resolved config.
func newScanFlagSet(name string, cfg *config.Config, stderr io.Writer) (*pflag.FlagSet, *scanOptions) {
	opts := &scanOptions{}
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.rulesPath, "config", "f", "", "YAML rule file (built-in rules when unset)")
	fs.StringVarP(&opts.output, "output", "o", "", "Output file path; stdout when unset")
	fs.StringVar(&opts.format, "format", "text", "Output format: text, json, sarif, junit-xml")
	fs.IntVarP(&opts.jobs, "jobs", "j", cfg.Scan.Jobs, "Number of concurrent matching workers (0 = all CPUs)")
	fs.StringSliceVar(&opts.exclude, "exclude", cfg.Scan.Exclude, "Glob patterns to skip")
	fs.StringVar(&opts.severity, "severity", string(schemas.SeverityInfo), "Minimum severity that counts as blocking: INFO, WARNING, ERROR")
	fs.DurationVar(&opts.timeout, "timeout", cfg.Scan.Timeout, "Abort the scan after this duration")
	return fs, opts
}

// scanHandler binds the scan subcommand: parse flags from the rewritten
// vector, run the engine over the targets, and report.
func scanHandler(ctx context.Context, setup *Setup, stdout, stderr io.Writer) dispatch.Handler {
	return func(argv []string) dispatch.ExitCode {
		fs, opts := newScanFlagSet(argv[0], setup.Config, stderr)
		if err := fs.Parse(argv[1:]); err != nil {
			if errors.Is(err, pflag.ErrHelp) {
				return dispatch.ExitOK
			}
			return dispatch.ExitFailure
		}
		targets := fs.Args()
		if len(targets) == 0 {
			targets = []string{"."}
		}

		envelope, code := runScan(ctx, setup, opts, targets, stderr)
		if envelope == nil {
			return code
		}
		if err := report(envelope, opts, stdout); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", argv[0], err)
			return dispatch.ExitFailure
		}
		return code
	}
}

// runScan executes the engine and classifies the outcome. It is shared
// with ci, which reports and uploads differently but scans identically.
func runScan(ctx context.Context, setup *Setup, opts *scanOptions, targets []string, stderr io.Writer) (*schemas.ResultEnvelope, dispatch.ExitCode) {
	logger := observability.GetLogger().Named("scan")

	rules, err := engine.LoadRules(opts.rulesPath)
	if err != nil {
		fmt.Fprintf(stderr, "semgrep: %v\n", err)
		return nil, dispatch.ExitFailure
	}

	eng, err := engine.New(engine.Config{
		Jobs:           opts.jobs,
		Exclude:        opts.exclude,
		MaxTargetBytes: setup.Config.Scan.MaxTargetBytes,
	}, rules, logger)
	if err != nil {
		fmt.Fprintf(stderr, "semgrep: %v\n", err)
		return nil, dispatch.ExitFailure
	}

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	scanID := uuid.New().String()
	logger.Info("Starting scan",
		zap.String("scanID", scanID),
		zap.Strings("targets", targets),
		zap.Int("rules", len(rules)),
	)

	findings, err := eng.Run(ctx, targets)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(stderr, "semgrep: scan aborted")
		} else {
			fmt.Fprintf(stderr, "semgrep: scan failed: %v\n", err)
		}
		return nil, dispatch.ExitFailure
	}

	envelope := &schemas.ResultEnvelope{
		ScanID:    scanID,
		Version:   Version,
		Timestamp: time.Now().UTC(),
		Findings:  findings,
	}
	if envelope.BlockingCount(schemas.Severity(opts.severity)) > 0 {
		return envelope, dispatch.ExitFindings
	}
	return envelope, dispatch.ExitOK
}

// report renders the envelope in the requested format.
func report(envelope *schemas.ResultEnvelope, opts *scanOptions, stdout io.Writer) error {
	var (
		reporter reporting.Reporter
		err      error
	)
	if opts.output == "" {
		reporter, err = reporting.NewForWriter(opts.format, nopCloser{stdout}, Version)
	} else {
		reporter, err = reporting.New(opts.format, opts.output, Version)
	}
	if err != nil {
		return err
	}
	if err := reporter.Write(envelope); err != nil {
		reporter.Close()
		return err
	}
	return reporter.Close()
}

// nopCloser adapts the dispatcher's stdout writer to the reporter
// factory, which owns and closes its writers.
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
