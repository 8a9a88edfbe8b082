// Package modules resolves import names to loaded modules. Built-in
// stdlib modules resolve first; everything else is a source file looked
// up relative to the importing file, evaluated once, and cached.
package modules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/infra-lang/infra/internal/ast"
	"github.com/infra-lang/infra/internal/config"
	"github.com/infra-lang/infra/internal/diagnostics"
	"github.com/infra-lang/infra/internal/evaluator"
	"github.com/infra-lang/infra/internal/lexer"
	"github.com/infra-lang/infra/internal/parser"
	"github.com/infra-lang/infra/internal/pipeline"
	"github.com/infra-lang/infra/internal/token"
)

// Loader loads modules for one run. Module bodies always execute on the
// tree walker, whichever backend imported them; the resulting export
// values are plain objects either backend can use.
type Loader struct {
	// dir is the directory imports resolve against; nested loads swap
	// it to the imported file's directory for the duration.
	dir   string
	cache map[string]*evaluator.Module

	// loading is the in-progress import chain, for cycle reporting.
	loading []string
}

// NewLoader resolves file imports relative to dir.
func NewLoader(dir string) *Loader {
	return &Loader{
		dir:   dir,
		cache: make(map[string]*evaluator.Module),
	}
}

func (l *Loader) Load(name string, ctx evaluator.CallContext) (*evaluator.Module, *evaluator.Error) {
	if module, ok := evaluator.BuiltinModule(name); ok {
		return module, nil
	}
	return l.loadFile(name, ctx)
}

func (l *Loader) loadFile(name string, ctx evaluator.CallContext) (*evaluator.Module, *evaluator.Error) {
	relative := name
	if !strings.HasSuffix(relative, config.SourceExtension) {
		relative += config.SourceExtension
	}
	path := filepath.Join(l.dir, relative)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	if module, ok := l.cache[path]; ok {
		return module, nil
	}
	for _, inProgress := range l.loading {
		if inProgress == path {
			return nil, &evaluator.Error{Message: fmt.Sprintf("Import cycle detected: %s", l.cycleChain(path, name))}
		}
	}

	source, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, &evaluator.Error{Message: fmt.Sprintf("Module '%s' not found", name)}
	}

	program, parseErr := parseModule(string(source), path)
	if parseErr != nil {
		return nil, parseErr
	}

	l.loading = append(l.loading, path)
	savedDir := l.dir
	l.dir = filepath.Dir(path)

	e := evaluator.New(ctx.Output(), ctx.Scheduler())
	e.Loader = l
	e.Exports = evaluator.NewRecord()
	result := e.Eval(program, evaluator.NewEnvironment())

	l.dir = savedDir
	l.loading = l.loading[:len(l.loading)-1]

	if err, ok := result.(*evaluator.Error); ok {
		return nil, &evaluator.Error{Message: fmt.Sprintf("Error in module '%s': %s", name, err.Message)}
	}

	module := &evaluator.Module{Name: name, Exports: e.Exports}
	l.cache[path] = module
	return module, nil
}

// cycleChain renders the import chain from the first occurrence of path
// back around to the module that closed the loop.
func (l *Loader) cycleChain(path, name string) string {
	start := 0
	for i, p := range l.loading {
		if p == path {
			start = i
			break
		}
	}
	parts := make([]string, 0, len(l.loading)-start+1)
	for _, p := range l.loading[start:] {
		parts = append(parts, moduleName(p))
	}
	parts = append(parts, name)
	return strings.Join(parts, " -> ")
}

func moduleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, config.SourceExtension)
}

func parseModule(source, path string) (*ast.Program, *evaluator.Error) {
	ctx := &pipeline.PipelineContext{Source: source, FilePath: path}
	tokens := lexer.New(source).Tokenize()
	p := parser.New(token.NewStream(tokens), ctx)
	program := p.ParseProgram()
	if diagnostics.HasErrors(ctx.Errors) {
		first := ctx.Errors[0]
		return nil, &evaluator.Error{Message: fmt.Sprintf("Cannot parse module '%s': %s",
			moduleName(path), first.Message)}
	}
	return program, nil
}
