// -- cmd/login.go --
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/crispud/semgrep/internal/auth"
	"github.com/crispud/semgrep/internal/dispatch"
)

// loginHandler binds the login subcommand: save an app access token in
// the user settings file.
func loginHandler(setup *Setup, stdout, stderr io.Writer) dispatch.Handler {
	return func(argv []string) dispatch.ExitCode {
		fs := pflag.NewFlagSet(argv[0], pflag.ContinueOnError)
		fs.SetOutput(stderr)
		token := fs.String("token", "", "Access token to save (defaults to $"+auth.TokenEnvVar+")")
		if err := fs.Parse(argv[1:]); err != nil {
			if errors.Is(err, pflag.ErrHelp) {
				return dispatch.ExitOK
			}
			return dispatch.ExitFailure
		}

		t := *token
		if t == "" {
			t = os.Getenv(auth.TokenEnvVar)
		}

		deployment, err := auth.Login(setup.Settings, t)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", argv[0], err)
			return dispatch.ExitFailure
		}
		if deployment != "" {
			fmt.Fprintf(stdout, "Saved access token for deployment %q in %s.\n", deployment, setup.Settings.Path())
		} else {
			fmt.Fprintf(stdout, "Saved access token in %s.\n", setup.Settings.Path())
		}
		return dispatch.ExitOK
	}
}

// logoutHandler binds the logout subcommand: forget the saved token.
func logoutHandler(setup *Setup, stdout, stderr io.Writer) dispatch.Handler {
	return func(argv []string) dispatch.ExitCode {
		fs := pflag.NewFlagSet(argv[0], pflag.ContinueOnError)
		fs.SetOutput(stderr)
		if err := fs.Parse(argv[1:]); err != nil {
			if errors.Is(err, pflag.ErrHelp) {
				return dispatch.ExitOK
			}
			return dispatch.ExitFailure
		}

		if err := auth.Logout(setup.Settings); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", argv[0], err)
			return dispatch.ExitFailure
		}
		fmt.Fprintln(stdout, "Logged out.")
		return dispatch.ExitOK
	}
}
