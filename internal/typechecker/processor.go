package typechecker

import (
	"github.com/infra-lang/infra/internal/ast"
	"github.com/infra-lang/infra/internal/pipeline"
)

// TypeCheckProcessor runs the advisory checker as a pipeline stage.
// Strict promotes findings to hard errors, which stops the pipeline.
type TypeCheckProcessor struct {
	Strict bool
}

func (tp *TypeCheckProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	program, ok := ctx.AstRoot.(*ast.Program)
	if !ok {
		return ctx
	}
	findings := New(tp.Strict).Check(program)
	for _, f := range findings {
		f.File = ctx.FilePath
	}
	ctx.Errors = append(ctx.Errors, findings...)
	return ctx
}
