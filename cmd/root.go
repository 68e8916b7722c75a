// -- cmd/root.go --
package cmd

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/crispud/semgrep/internal/config"
	"github.com/crispud/semgrep/internal/dispatch"
	"github.com/crispud/semgrep/internal/observability"
)

// Setup carries the process-wide collaborators resolved by main before
// dispatch: configuration, persisted user settings, and the telemetry
// recorder. Handlers receive it instead of reading ambient global state.
type Setup struct {
	Config   *config.Config
	Settings *config.Settings
	Metrics  *observability.Recorder
}

// Execute routes argv to a subcommand handler and returns its exit code.
// argv is the full process argument vector, argv[0] included.
func Execute(ctx context.Context, argv []string, setup *Setup) dispatch.ExitCode {
	return NewDispatcher(ctx, setup, os.Stdout, os.Stderr).Dispatch(argv)
}

// NewDispatcher builds the subcommand table. The table is the single
// source of truth: membership checks, routing, and the help listing all
// derive from it. scan is the default subcommand, so an unrecognized
// first token is handed to it as a scan target.
func NewDispatcher(ctx context.Context, setup *Setup, stdout, stderr io.Writer) *dispatch.Dispatcher {
	bind := func(name string, h dispatch.Handler) dispatch.Handler {
		return instrument(name, setup.Metrics, h)
	}
	return dispatch.New("scan", stdout,
		dispatch.Subcommand{
			Name:    "ci",
			Summary: "The recommended way to run semgrep in CI",
			Run:     bind("ci", ciHandler(ctx, setup, stdout, stderr)),
		},
		dispatch.Subcommand{
			Name:    "login",
			Summary: "Obtain and save credentials for semgrep.dev",
			Run:     bind("login", loginHandler(setup, stdout, stderr)),
		},
		dispatch.Subcommand{
			Name:    "logout",
			Summary: "Remove locally stored credentials for semgrep.dev",
			Run:     bind("logout", logoutHandler(setup, stdout, stderr)),
		},
		dispatch.Subcommand{
			Name:    "lsp",
			Summary: "[EXPERIMENTAL] Start the language server",
			Run:     bind("lsp", dispatch.NotImplemented(stderr)),
		},
		dispatch.Subcommand{
			Name:    "publish",
			Summary: "Upload rules to the registry",
			Run:     bind("publish", dispatch.NotImplemented(stderr)),
		},
		dispatch.Subcommand{
			Name:    "scan",
			Summary: "Run rules against local source code (default)",
			Run:     bind("scan", scanHandler(ctx, setup, stdout, stderr)),
		},
		dispatch.Subcommand{
			Name:    "shouldafound",
			Summary: "Report a false negative",
			Run:     bind("shouldafound", dispatch.NotImplemented(stderr)),
		},
	)
}

// instrument wraps a handler so each invocation lands in the telemetry
// recorder with its duration and exit code.
func instrument(name string, rec *observability.Recorder, h dispatch.Handler) dispatch.Handler {
	return func(argv []string) dispatch.ExitCode {
		start := time.Now()
		code := h(argv)
		rec.Record(observability.Event{
			Subcommand: name,
			DurationMs: time.Since(start).Milliseconds(),
			ExitCode:   int(code),
		})
		return code
	}
}
