package token

// Stream is a cursor over a fully lexed token slice. The parser consumes
// it token by token and peeks ahead for layout decisions.
type Stream struct {
	tokens []Token
	pos    int
}

func NewStream(tokens []Token) *Stream {
	return &Stream{tokens: tokens}
}

// Next returns the next token and advances. Past the end it keeps
// returning the final EOF token.
func (s *Stream) Next() Token {
	if s.pos >= len(s.tokens) {
		if len(s.tokens) == 0 {
			return Token{Type: EOF}
		}
		return s.tokens[len(s.tokens)-1]
	}
	tok := s.tokens[s.pos]
	s.pos++
	return tok
}

// Peek returns up to n upcoming tokens without advancing.
func (s *Stream) Peek(n int) []Token {
	end := s.pos + n
	if end > len(s.tokens) {
		end = len(s.tokens)
	}
	return s.tokens[s.pos:end]
}

func (s *Stream) Len() int {
	return len(s.tokens)
}
