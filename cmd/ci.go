// -- cmd/ci.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/crispud/semgrep/internal/appclient"
	"github.com/crispud/semgrep/internal/auth"
	"github.com/crispud/semgrep/internal/dispatch"
	"github.com/crispud/semgrep/internal/gitops"
	"github.com/crispud/semgrep/internal/observability"
)

// ciHandler binds the ci subcommand: scan the enclosing repository and
// upload the results to the app under the repo's identity. ci requires an
// access token; everything else about the scan matches the scan
// subcommand.
func ciHandler(ctx context.Context, setup *Setup, stdout, stderr io.Writer) dispatch.Handler {
	return func(argv []string) dispatch.ExitCode {
		fs, opts := newScanFlagSet(argv[0], setup.Config, stderr)
		dryRun := fs.Bool("dry-run", false, "Scan and report, but do not upload results")
		if err := fs.Parse(argv[1:]); err != nil {
			if errors.Is(err, pflag.ErrHelp) {
				return dispatch.ExitOK
			}
			return dispatch.ExitFailure
		}

		token := setup.Settings.APIToken
		if token == "" {
			token = os.Getenv(auth.TokenEnvVar)
		}
		if token == "" && !*dryRun {
			fmt.Fprintf(stderr, "%s: no access token; run `semgrep login` or set %s\n", argv[0], auth.TokenEnvVar)
			return dispatch.ExitFailure
		}

		wd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", argv[0], err)
			return dispatch.ExitFailure
		}
		meta, err := gitops.Describe(wd)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", argv[0], err)
			return dispatch.ExitFailure
		}

		logger := observability.GetLogger().Named("ci")
		logger.Info("Scanning repository",
			zap.String("root", meta.Root),
			zap.String("branch", meta.Branch),
			zap.String("commit", meta.Commit),
		)

		envelope, code := runScan(ctx, setup, opts, []string{meta.Root}, stderr)
		if envelope == nil {
			return code
		}
		if err := report(envelope, opts, stdout); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", argv[0], err)
			return dispatch.ExitFailure
		}

		if *dryRun {
			fmt.Fprintln(stdout, "Dry run: skipping upload.")
			return code
		}

		client := appclient.New(setup.Config.App.URL, token, logger)
		upload := &appclient.CIUpload{
			Repository: meta.Remote,
			Branch:     meta.Branch,
			Commit:     meta.Commit,
			Results:    envelope,
		}
		if err := client.UploadFindings(ctx, upload); err != nil {
			fmt.Fprintf(stderr, "%s: upload failed: %v\n", argv[0], err)
			return dispatch.ExitFailure
		}
		fmt.Fprintf(stdout, "Uploaded %d finding(s) for %s@%s.\n", len(envelope.Findings), meta.Branch, meta.Commit[:min(len(meta.Commit), 8)])
		return code
	}
}
