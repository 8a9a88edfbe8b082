// Package backend drives source through the front-end pipeline and one
// of the two execution engines. The tree walker is the reference
// semantics; the VM must be observably identical, so everything either
// engine needs (output writer, scheduler, module loader, persistent
// state) arrives through Options.
package backend

import (
	"io"

	"github.com/infra-lang/infra/internal/ast"
	"github.com/infra-lang/infra/internal/diagnostics"
	"github.com/infra-lang/infra/internal/evaluator"
	"github.com/infra-lang/infra/internal/lexer"
	"github.com/infra-lang/infra/internal/parser"
	"github.com/infra-lang/infra/internal/pipeline"
	"github.com/infra-lang/infra/internal/typechecker"
	"github.com/infra-lang/infra/internal/vm"
)

// Options configures one run. Env and Globals are caller-owned so a
// REPL can carry state across runs; nil means fresh state.
type Options struct {
	UseVM       bool
	StrictTypes bool
	NoTypecheck bool

	FilePath string
	Out      io.Writer
	Loader   evaluator.ModuleLoader
	Sched    *evaluator.Scheduler

	// Disasm receives the bytecode listing before VM execution.
	Disasm io.Writer

	Env     *evaluator.Environment      // tree-walk state
	Globals map[string]evaluator.Object // VM state
}

func (opts *Options) withDefaults() *Options {
	c := *opts
	if c.Out == nil {
		c.Out = io.Discard
	}
	if c.Sched == nil {
		c.Sched = evaluator.NewScheduler()
	}
	return &c
}

// Backend executes a parsed program. Failures come back as diagnostics
// so compile-stage and runtime errors reach the caller the same way.
type Backend interface {
	Name() string
	Execute(program *ast.Program, opts *Options) (evaluator.Object, []*diagnostics.Error)
}

// RunSource lexes, parses, optionally type-checks, and executes via the
// selected engine. Warnings ride along in the returned diagnostics even
// when the run succeeds.
func RunSource(source string, opts *Options) (evaluator.Object, []*diagnostics.Error) {
	opts = opts.withDefaults()

	ctx := &pipeline.PipelineContext{Source: source, FilePath: opts.FilePath}
	procs := []pipeline.Processor{&lexer.LexerProcessor{}, &parser.ParserProcessor{}}
	if !opts.NoTypecheck {
		procs = append(procs, &typechecker.TypeCheckProcessor{Strict: opts.StrictTypes})
	}
	ctx = pipeline.New(procs...).Run(ctx)
	if diagnostics.HasErrors(ctx.Errors) {
		return nil, ctx.Errors
	}
	program, ok := ctx.AstRoot.(*ast.Program)
	if !ok {
		return nil, ctx.Errors
	}

	var engine Backend = TreeWalkBackend{}
	if opts.UseVM {
		engine = VMBackend{}
	}
	result, runErrs := engine.Execute(program, opts)
	return result, append(ctx.Errors, runErrs...)
}

// TreeWalkBackend evaluates the AST directly.
type TreeWalkBackend struct{}

func (TreeWalkBackend) Name() string { return "tree-walk" }

func (TreeWalkBackend) Execute(program *ast.Program, opts *Options) (evaluator.Object, []*diagnostics.Error) {
	e := evaluator.New(opts.Out, opts.Sched)
	e.Loader = opts.Loader

	env := opts.Env
	if env == nil {
		env = evaluator.NewEnvironment()
	}

	result := e.Eval(program, env)
	if err, ok := result.(*evaluator.Error); ok {
		return nil, []*diagnostics.Error{runtimeDiagnostic(err, opts.FilePath)}
	}
	// Tasks scheduled but never awaited still run before the program
	// finishes.
	opts.Sched.Drain()
	return result, nil
}

// VMBackend compiles to bytecode and runs the stack machine.
type VMBackend struct{}

func (VMBackend) Name() string { return "vm" }

func (VMBackend) Execute(program *ast.Program, opts *Options) (evaluator.Object, []*diagnostics.Error) {
	fn, errs := vm.Compile(program)
	if len(errs) > 0 {
		for _, e := range errs {
			if e.File == "" {
				e.File = opts.FilePath
			}
		}
		return nil, errs
	}

	if opts.Disasm != nil {
		_, _ = io.WriteString(opts.Disasm, vm.Disassemble(fn.Chunk, "script"))
	}

	machine := vm.New(opts.Globals, opts.Sched, opts.Out, opts.Loader)
	result, err := machine.Run(fn)
	if err != nil {
		return nil, []*diagnostics.Error{runtimeDiagnostic(err, opts.FilePath)}
	}
	opts.Sched.Drain()
	return result, nil
}

func runtimeDiagnostic(err *evaluator.Error, file string) *diagnostics.Error {
	d := diagnostics.NewErrorAt(diagnostics.ErrR001, err.Line, err.Column, "%s", err.Message)
	d.File = file
	return d
}
