// Package cli implements the infra command line entry point: flag
// parsing, file execution, the REPL, and diagnostic rendering.
package cli

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/infra-lang/infra/internal/backend"
	"github.com/infra-lang/infra/internal/diagnostics"
	"github.com/infra-lang/infra/internal/evaluator"
	"github.com/infra-lang/infra/internal/modules"
)

// Version is stamped at build time:
// -ldflags "-X github.com/infra-lang/infra/pkg/cli.Version=v1.2.3"
var Version = "dev"

type options struct {
	useVM       bool
	strictTypes bool
	noTypecheck bool
	disasm      bool
	repl        bool
	version     bool
}

// Entry runs the CLI and returns the process exit code.
func Entry(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("infra", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.BoolVar(&opts.useVM, "vm", false, "execute with the bytecode VM instead of the tree walker")
	fs.BoolVar(&opts.strictTypes, "strict-types", false, "treat type annotation mismatches as errors")
	fs.BoolVar(&opts.noTypecheck, "no-typecheck", false, "skip the advisory type checker")
	fs.BoolVar(&opts.disasm, "disasm", false, "print compiled bytecode before running (implies --vm)")
	fs.BoolVar(&opts.repl, "repl", false, "start an interactive session")
	fs.BoolVar(&opts.version, "version", false, "print the version and exit")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: infra [OPTIONS] <file%s>\n\nOptions:\n", ".infra")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	switch {
	case opts.version:
		fmt.Fprintf(stdout, "infra %s\n", Version)
		return 0
	case opts.repl:
		return runREPL(&opts, stdin, stdout, stderr)
	case fs.NArg() != 1:
		fs.Usage()
		return 2
	default:
		return runFile(fs.Arg(0), &opts, stdout, stderr)
	}
}

func runFile(path string, opts *options, stdout, stderr io.Writer) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "infra: %s\n", err)
		return 1
	}

	runOpts := &backend.Options{
		UseVM:       opts.useVM || opts.disasm,
		StrictTypes: opts.strictTypes,
		NoTypecheck: opts.noTypecheck,
		FilePath:    path,
		Out:         stdout,
		Loader:      modules.NewLoader(filepath.Dir(path)),
	}
	if opts.disasm {
		runOpts.Disasm = stdout
	}

	_, diags := backend.RunSource(string(source), runOpts)
	printDiagnostics(stderr, diags)
	if diagnostics.HasErrors(diags) {
		return 1
	}
	return 0
}

// runREPL reads statements line by line against persistent state. Both
// engines keep their state across inputs so switching --vm changes the
// machinery, not the session model.
func runREPL(opts *options, stdin io.Reader, stdout, stderr io.Writer) int {
	engine := "tree-walk"
	if opts.useVM {
		engine = "vm"
	}
	fmt.Fprintf(stdout, "infra %s (%s backend, exit with ctrl-d)\n", Version, engine)

	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}

	runOpts := &backend.Options{
		UseVM:       opts.useVM,
		StrictTypes: opts.strictTypes,
		NoTypecheck: opts.noTypecheck,
		Out:         stdout,
		Loader:      modules.NewLoader(dir),
		Sched:       evaluator.NewScheduler(),
		Env:         evaluator.NewEnvironment(),
		Globals:     make(map[string]evaluator.Object),
	}

	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(stdout)
			return 0
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" {
			return 0
		}

		result, diags := backend.RunSource(line, runOpts)
		printDiagnostics(stderr, diags)
		if diagnostics.HasErrors(diags) {
			continue
		}
		if result != nil && result != evaluator.NULL {
			fmt.Fprintln(stdout, result.Inspect())
		}
	}
}

// printDiagnostics renders each diagnostic as file:line:column with its
// stage code, colored when the destination is a terminal.
func printDiagnostics(w io.Writer, diags []*diagnostics.Error) {
	colored := false
	if f, ok := w.(*os.File); ok {
		colored = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	for _, d := range diags {
		fmt.Fprintln(w, formatDiagnostic(d, colored))
	}
}

const (
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiReset  = "\x1b[0m"
)

func formatDiagnostic(d *diagnostics.Error, colored bool) string {
	label := "error"
	color := ansiRed
	if d.Severity == diagnostics.SeverityWarning {
		label = "warning"
		color = ansiYellow
	}
	if colored {
		label = color + label + ansiReset
	}
	pos := d.File
	if pos == "" {
		pos = "<source>"
	}
	if d.Line > 0 {
		pos = fmt.Sprintf("%s:%d:%d", pos, d.Line, d.Column)
	}
	return fmt.Sprintf("%s: %s[%s]: %s", pos, label, d.Code, d.Message)
}
