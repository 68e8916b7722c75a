// -- internal/dispatch/dispatch_test.go --
package dispatch

import (
	"bytes"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler captures the rewritten argv it was invoked with and
// returns a fixed exit code.
func recordingHandler(got *[][]string, code ExitCode) Handler {
	return func(argv []string) ExitCode {
		*got = append(*got, append([]string(nil), argv...))
		return code
	}
}

func newTestDispatcher(got *[][]string, stdout io.Writer, stderr io.Writer) *Dispatcher {
	return New("scan", stdout,
		Subcommand{Name: "ci", Summary: "Run in CI", Run: recordingHandler(got, ExitOK)},
		Subcommand{Name: "login", Summary: "Log in", Run: recordingHandler(got, ExitOK)},
		Subcommand{Name: "lsp", Summary: "Language server", Run: NotImplemented(stderr)},
		Subcommand{Name: "scan", Summary: "Scan code", Run: recordingHandler(got, ExitOK)},
	)
}

func TestDispatch_KnownSubcommandRewritesVector(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want []string
	}{
		{"subcommand with args", []string{"semgrep", "ci", "a", "b"}, []string{"semgrep-ci", "a", "b"}},
		{"subcommand alone", []string{"semgrep", "login"}, []string{"semgrep-login"}},
		{"default keeps unknown token", []string{"semgrep", "src/", "-v"}, []string{"semgrep-scan", "src/", "-v"}},
		{"bare invocation", []string{"semgrep"}, []string{"semgrep-scan"}},
		{"flag-looking token falls through", []string{"semgrep", "--json"}, []string{"semgrep-scan", "--json"}},
		{"help after subcommand is not intercepted", []string{"semgrep", "ci", "--help"}, []string{"semgrep-ci", "--help"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got [][]string
			d := newTestDispatcher(&got, io.Discard, io.Discard)

			code := d.Dispatch(tt.argv)

			require.Equal(t, ExitOK, code)
			require.Len(t, got, 1)
			if diff := cmp.Diff(tt.want, got[0]); diff != "" {
				t.Errorf("rewritten argv mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDispatch_BareHelpFlag(t *testing.T) {
	for _, flag := range []string{"-h", "--help"} {
		t.Run(flag, func(t *testing.T) {
			var got [][]string
			var stdout bytes.Buffer
			d := newTestDispatcher(&got, &stdout, io.Discard)

			code := d.Dispatch([]string{"semgrep", flag})

			assert.Equal(t, ExitOK, code)
			assert.Empty(t, got, "no handler should run on the bare help path")
			assert.Contains(t, stdout.String(), "Usage: semgrep")
			for _, name := range d.Names() {
				assert.Contains(t, stdout.String(), name)
			}
		})
	}
}

func TestDispatch_HelpFlagWithExtraArgsIsNotHelp(t *testing.T) {
	// `semgrep -h extra` does not match the exact two-element help form, so
	// "-h" is absorbed by the default subcommand.
	var got [][]string
	var stdout bytes.Buffer
	d := newTestDispatcher(&got, &stdout, io.Discard)

	code := d.Dispatch([]string{"semgrep", "-h", "extra"})

	assert.Equal(t, ExitOK, code)
	assert.Empty(t, stdout.String())
	require.Len(t, got, 1)
	assert.Equal(t, []string{"semgrep-scan", "-h", "extra"}, got[0])
}

func TestDispatch_StubReturnsNotImplemented(t *testing.T) {
	var got [][]string
	var stderr bytes.Buffer
	d := newTestDispatcher(&got, io.Discard, &stderr)

	code := d.Dispatch([]string{"semgrep", "lsp"})

	assert.Equal(t, ExitNotImplemented, code)
	assert.NotEqual(t, ExitOK, code)
	assert.Contains(t, stderr.String(), "semgrep-lsp is not implemented yet")
}

func TestDispatch_Deterministic(t *testing.T) {
	argv := []string{"semgrep", "weird-token", "--flag", "x"}
	var first, second [][]string

	newTestDispatcher(&first, io.Discard, io.Discard).Dispatch(argv)
	newTestDispatcher(&second, io.Discard, io.Discard).Dispatch(argv)

	require.Len(t, first, 1)
	assert.Equal(t, first, second)
}

func TestDispatch_RoundTripSubProgramIdentity(t *testing.T) {
	// The synthetic argv[0] is always "<prog>-<name>" no matter how many
	// arguments follow.
	var got [][]string
	d := newTestDispatcher(&got, io.Discard, io.Discard)
	for _, name := range d.Names() {
		for _, extra := range [][]string{nil, {"a"}, {"a", "b", "c"}} {
			got = got[:0]
			d.Dispatch(append([]string{"prog", name}, extra...))
			require.Len(t, got, 1)
			assert.Equal(t, "prog-"+name, got[0][0])
		}
	}
}

func TestRewrite_DoesNotAliasInput(t *testing.T) {
	args := []string{"a", "b"}
	argv := Rewrite("semgrep", "scan", args)
	argv[1] = "mutated"
	assert.Equal(t, []string{"a", "b"}, args)
}

func TestNew_PanicsWhenDefaultUnbound(t *testing.T) {
	assert.Panics(t, func() {
		New("scan", io.Discard,
			Subcommand{Name: "ci", Summary: "x", Run: func([]string) ExitCode { return ExitOK }},
		)
	})
}

func TestNew_PanicsOnDuplicateName(t *testing.T) {
	h := func([]string) ExitCode { return ExitOK }
	assert.Panics(t, func() {
		New("scan", io.Discard,
			Subcommand{Name: "scan", Summary: "x", Run: h},
			Subcommand{Name: "scan", Summary: "y", Run: h},
		)
	})
}

func TestNew_PanicsOnNilHandler(t *testing.T) {
	assert.Panics(t, func() {
		New("scan", io.Discard, Subcommand{Name: "scan", Summary: "x"})
	})
}

func TestDispatch_PanicsOnEmptyVector(t *testing.T) {
	var got [][]string
	d := newTestDispatcher(&got, io.Discard, io.Discard)
	assert.Panics(t, func() { d.Dispatch(nil) })
}

func TestExitCodes_AreDistinct(t *testing.T) {
	codes := map[ExitCode]string{
		ExitOK:             "ok",
		ExitFindings:       "findings",
		ExitFailure:        "failure",
		ExitNotImplemented: "not implemented",
	}
	assert.Len(t, codes, 4)
}
