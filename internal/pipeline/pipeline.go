package pipeline

import (
	"github.com/infra-lang/infra/internal/ast"
	"github.com/infra-lang/infra/internal/diagnostics"
	"github.com/infra-lang/infra/internal/token"
)

// PipelineContext is the shared state threaded through the front-end
// stages. Each processor reads what earlier stages produced and appends
// its diagnostics to Errors.
type PipelineContext struct {
	Source      string
	FilePath    string
	TokenStream *token.Stream
	AstRoot     ast.Node
	Errors      []*diagnostics.Error
}

type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the stages in order, stopping after the first stage that
// produced a hard error. Warnings do not stop the pipeline.
func (p *Pipeline) Run(ctx *PipelineContext) *PipelineContext {
	for _, proc := range p.processors {
		ctx = proc.Process(ctx)
		if diagnostics.HasErrors(ctx.Errors) {
			break
		}
	}
	return ctx
}
