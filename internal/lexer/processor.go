package lexer

import (
	"github.com/infra-lang/infra/internal/diagnostics"
	"github.com/infra-lang/infra/internal/pipeline"
	"github.com/infra-lang/infra/internal/token"
)

type LexerProcessor struct{}

func (lp *LexerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	tokens := New(ctx.Source).Tokenize()

	for _, tok := range tokens {
		if tok.Type == token.ILLEGAL {
			msg, _ := tok.Literal.(string)
			if msg == "" {
				msg = "illegal token"
			}
			err := diagnostics.NewError(diagnostics.ErrL001, tok, "%s", msg)
			err.File = ctx.FilePath
			ctx.Errors = append(ctx.Errors, err)
		}
	}

	ctx.TokenStream = token.NewStream(tokens)
	return ctx
}
