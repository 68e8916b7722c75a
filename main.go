// ./main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/crispud/semgrep/cmd"
	"github.com/crispud/semgrep/internal/config"
	"github.com/crispud/semgrep/internal/gitops"
	"github.com/crispud/semgrep/internal/observability"
)

func main() {
	os.Exit(run())
}

// run performs the process-wide setup the dispatcher deliberately stays
// out of (configuration, logging, git safe-directory, telemetry), then
// hands the raw argument vector to the dispatcher and returns its exit
// code.
func run() int {
	cfg, err := config.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, "semgrep:", err)
		return 2
	}

	observability.InitializeLogger(cfg.Logger)
	defer observability.Sync()
	logger := observability.GetLogger()

	settings, err := config.LoadSettings()
	if err != nil {
		// Settings are a convenience cache; a broken file should not block
		// scanning. Telemetry is disabled below when there is no user id.
		logger.Warn("Could not load user settings", zap.Error(err))
		settings = &config.Settings{}
	}

	if wd, err := os.Getwd(); err == nil {
		if err := gitops.EnsureSafeDirectory(wd); err != nil {
			logger.Debug("Could not update git safe.directory", zap.Error(err))
		}
	}

	metricsCfg := cfg.Metrics
	if os.Getenv("SEMGREP_SEND_METRICS") == "off" || settings.AnonymousUserID == "" {
		metricsCfg.Enabled = false
	}
	recorder := observability.NewRecorder(metricsCfg, settings.AnonymousUserID, cmd.Version, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := cmd.Execute(ctx, os.Args, &cmd.Setup{
		Config:   cfg,
		Settings: settings,
		Metrics:  recorder,
	})

	flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	recorder.Flush(flushCtx)

	return int(code)
}
