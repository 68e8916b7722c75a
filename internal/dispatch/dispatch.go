// -- internal/dispatch/dispatch.go --
package dispatch

import (
	"fmt"
	"io"
	"strings"
)

// ExitCode is the process exit status a subcommand handler produces.
// Outcomes are enumerated rather than propagated as errors so that callers
// can switch exhaustively on the result of a dispatch.
type ExitCode int

const (
	// ExitOK is returned for the help path and by handlers that succeed.
	ExitOK ExitCode = 0
	// ExitFindings is the scan outcome when blocking findings were reported.
	ExitFindings ExitCode = 1
	// ExitFailure is the generic failure status. An uncaught panic also
	// terminates the process with status 2, so internal faults and ordinary
	// handler failures share this value.
	ExitFailure ExitCode = 2
	// ExitNotImplemented marks a stubbed subcommand. It is kept distinct
	// from ExitFailure so a test suite can tell "stubbed" from "crashed".
	ExitNotImplemented ExitCode = 3
)

// Handler runs a subcommand. argv[0] is the synthetic sub-program name
// (e.g. "semgrep-scan"); the remaining elements are the subcommand's own
// arguments.
type Handler func(argv []string) ExitCode

// Subcommand binds a name to its one-line summary and its handler. The
// summary is what the top-level help prints next to the name.
type Subcommand struct {
	Name    string
	Summary string
	Run     Handler
}

// Dispatcher routes a raw argument vector to one of a fixed set of
// subcommands, rewriting the vector for the chosen handler. Membership
// checks, routing, and the help listing are all derived from the same
// table, so the name set and the handler set cannot drift apart.
//
// A Dispatcher is built once at process start and is read-only afterwards.
type Dispatcher struct {
	defaultName string
	order       []string
	table       map[string]Subcommand
	stdout      io.Writer
}

// New builds a Dispatcher from the given subcommands. defaultName is the
// subcommand assumed when no recognized name is present in the arguments;
// it must be one of subs. Table construction errors are programming
// mistakes, so New panics on them.
func New(defaultName string, stdout io.Writer, subs ...Subcommand) *Dispatcher {
	d := &Dispatcher{
		defaultName: defaultName,
		table:       make(map[string]Subcommand, len(subs)),
		stdout:      stdout,
	}
	for _, sub := range subs {
		if sub.Run == nil {
			panic(fmt.Sprintf("dispatch: subcommand %q has no handler", sub.Name))
		}
		if _, dup := d.table[sub.Name]; dup {
			panic(fmt.Sprintf("dispatch: duplicate subcommand %q", sub.Name))
		}
		d.table[sub.Name] = sub
		d.order = append(d.order, sub.Name)
	}
	if _, ok := d.table[defaultName]; !ok {
		panic(fmt.Sprintf("dispatch: default subcommand %q is not in the table", defaultName))
	}
	return d
}

// Names returns the known subcommand names in registration order.
func (d *Dispatcher) Names() []string {
	return append([]string(nil), d.order...)
}

// Known reports whether name is a member of the subcommand table.
func (d *Dispatcher) Known(name string) bool {
	_, ok := d.table[name]
	return ok
}

// Dispatch classifies argv, rewrites it for the selected subcommand, and
// invokes the bound handler. argv must be non-empty; argv[0] is the
// program invocation name.
//
// Malformed user input never fails here: an unrecognized first token is
// absorbed as the first argument to the default subcommand.
func (d *Dispatcher) Dispatch(argv []string) ExitCode {
	if len(argv) == 0 {
		panic("dispatch: empty argument vector")
	}
	// Only the bare `prog -h` / `prog --help` form is handled here. A help
	// flag following a subcommand belongs to that subcommand's parser.
	if len(argv) == 2 && (argv[1] == "-h" || argv[1] == "--help") {
		fmt.Fprint(d.stdout, d.Help(argv[0]))
		return ExitOK
	}

	name, subArgs := d.classify(argv[1:])
	sub, ok := d.table[name]
	if !ok {
		// Unreachable: classify only selects table members or the default,
		// and New guarantees the default is bound. A miss here means the
		// dispatcher's own invariants are broken, not that input was bad.
		panic(fmt.Sprintf("dispatch: no handler bound for subcommand %q", name))
	}
	return sub.Run(Rewrite(argv[0], name, subArgs))
}

// classify selects the subcommand name and its argument list from
// everything after the program name.
func (d *Dispatcher) classify(rest []string) (string, []string) {
	if len(rest) == 0 {
		return d.defaultName, nil
	}
	if d.Known(rest[0]) {
		return rest[0], rest[1:]
	}
	// The first token is not a subcommand; keep all of rest unchanged so
	// the default subcommand sees it as its own first argument.
	return d.defaultName, rest
}

// Rewrite builds the argument vector handed to a subcommand handler:
// element 0 becomes the synthetic sub-program identity "<prog>-<name>",
// followed by the subcommand's arguments. The input slices are not
// modified.
func Rewrite(prog, name string, args []string) []string {
	argv := make([]string, 0, len(args)+1)
	argv = append(argv, prog+"-"+name)
	return append(argv, args...)
}

// Help renders the top-level help text: usage, a getting-started hint, and
// one line per known subcommand, in registration order.
func (d *Dispatcher) Help(prog string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage: %s [OPTIONS] COMMAND [ARGS]...\n\n", prog)
	fmt.Fprintf(&b, "To get started quickly, run `%s scan` in the root of your project.\n\n", prog)
	fmt.Fprintf(&b, "Run `%s COMMAND --help` for more information on a subcommand.\n\n", prog)
	fmt.Fprintf(&b, "If no subcommand is passed, the `%s` subcommand runs by default.\n\n", d.defaultName)
	b.WriteString("Commands:\n")
	for _, name := range d.order {
		fmt.Fprintf(&b, "  %-14s%s\n", name, d.table[name].Summary)
	}
	return b.String()
}

// NotImplemented returns a placeholder handler that reports the subcommand
// as unavailable on stderr and returns ExitNotImplemented.
func NotImplemented(stderr io.Writer) Handler {
	return func(argv []string) ExitCode {
		fmt.Fprintf(stderr, "%s is not implemented yet\n", argv[0])
		return ExitNotImplemented
	}
}
