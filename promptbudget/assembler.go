// Package promptbudget fits extracted document text into a prompt template
// without exceeding a token budget.
//
// The template's own tokens are reserved first. Whatever remains is the
// room available for context; oversized context is shortened from the end
// in fixed-size character chunks until the assembled prompt fits.
package promptbudget

import (
	"fmt"
	"unicode/utf8"
)

// DefaultChunkSize is the number of characters removed per shrink step.
const DefaultChunkSize = 1000

// Tokenizer counts the tokens a model would see for text. Implementations
// must be deterministic and free of side effects.
type Tokenizer interface {
	Count(text string) int
}

// TokenizerFunc adapts a plain function to Tokenizer.
type TokenizerFunc func(text string) int

func (f TokenizerFunc) Count(text string) int { return f(text) }

// Result describes one assembly.
type Result struct {
	// Prompt is the template with the (possibly shortened) context inserted.
	Prompt string

	// Context is the context that was actually inserted.
	Context string

	Budget          int
	OverheadTokens  int
	AvailableTokens int

	// OriginalTokens and FinalTokens count the context before and after
	// shrinking. PromptTokens counts the assembled prompt.
	OriginalTokens int
	FinalTokens    int
	PromptTokens   int

	Truncated     bool
	OriginalChars int
	DroppedChars  int

	// Steps is the number of chunks removed.
	Steps int
}

// KeptRatio is the fraction of context characters that survived, 1 when
// nothing was dropped.
func (r *Result) KeptRatio() float64 {
	if r.OriginalChars == 0 {
		return 1
	}
	return float64(r.OriginalChars-r.DroppedChars) / float64(r.OriginalChars)
}

// Assembler holds one deployment's template, budget and tokenizer. It is
// immutable after construction and safe for concurrent use as long as the
// tokenizer is.
type Assembler struct {
	template  *Template
	tokenizer Tokenizer
	budget    int
	chunkSize int
	overhead  int
}

// NewAssembler counts the template overhead once and rejects budgets the
// template alone would exhaust. A chunkSize of zero or less selects
// DefaultChunkSize.
func NewAssembler(tmpl *Template, budget, chunkSize int, tok Tokenizer) (*Assembler, error) {
	if tmpl == nil {
		return nil, &ConfigurationError{Reason: "prompt template is missing"}
	}
	if tok == nil {
		return nil, &ConfigurationError{Reason: "tokenizer is missing"}
	}
	if budget <= 0 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("token budget must be positive, got %d", budget)}
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	overhead := tok.Count(tmpl.Skeleton())
	if overhead >= budget {
		return nil, &ConfigurationError{
			Reason:   "prompt template leaves no room for context",
			Overhead: overhead,
			Budget:   budget,
		}
	}

	return &Assembler{
		template:  tmpl,
		tokenizer: tok,
		budget:    budget,
		chunkSize: chunkSize,
		overhead:  overhead,
	}, nil
}

// Assemble is the one-shot form of NewAssembler followed by Assemble.
func Assemble(tmpl *Template, context string, budget int, tok Tokenizer) (*Result, error) {
	a, err := NewAssembler(tmpl, budget, DefaultChunkSize, tok)
	if err != nil {
		return nil, err
	}
	return a.Assemble(context), nil
}

func (a *Assembler) Budget() int         { return a.budget }
func (a *Assembler) ChunkSize() int      { return a.chunkSize }
func (a *Assembler) OverheadTokens() int { return a.overhead }
func (a *Assembler) Available() int      { return a.budget - a.overhead }
func (a *Assembler) Template() *Template { return a.template }

// Assemble inserts as much of context as fits.
//
// The context is counted once up front and once after every removed chunk,
// so a context of n characters is counted at most ceil(n/chunk)+1 times.
// Once the context fits, the assembled prompt is counted as well; tokens
// are not strictly additive across the placeholder boundary, and a prompt
// that still overshoots keeps shrinking in the same loop.
func (a *Assembler) Assemble(context string) *Result {
	available := a.budget - a.overhead
	res := &Result{
		Budget:          a.budget,
		OverheadTokens:  a.overhead,
		AvailableTokens: available,
		OriginalChars:   utf8.RuneCountInString(context),
	}

	cur := context
	tokens := a.tokenizer.Count(cur)
	res.OriginalTokens = tokens

	for {
		if tokens <= available {
			prompt := a.template.Fill(cur)
			promptTokens := a.tokenizer.Count(prompt)
			if promptTokens <= a.budget || cur == "" {
				res.Prompt = prompt
				res.PromptTokens = promptTokens
				break
			}
		}
		if cur == "" {
			// Only a tokenizer that charges for the empty string gets here.
			// The skeleton alone is known to be below the budget.
			res.Prompt = a.template.Fill("")
			res.PromptTokens = a.overhead
			break
		}
		cur = dropSuffix(cur, a.chunkSize)
		res.Steps++
		tokens = a.tokenizer.Count(cur)
	}

	res.Context = cur
	res.FinalTokens = tokens
	res.DroppedChars = res.OriginalChars - utf8.RuneCountInString(cur)
	res.Truncated = res.DroppedChars > 0
	return res
}

// dropSuffix removes the last n characters of s without splitting a
// multi-byte sequence.
func dropSuffix(s string, n int) string {
	end := len(s)
	for i := 0; i < n && end > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(s[:end])
		end -= size
	}
	return s[:end]
}
