package promptbudget

import (
	"errors"
	"math"
	"strings"
	"testing"
	"unicode/utf8"
)

const (
	testPrefix = "<<PROMPT HEAD>>\n"
	testSuffix = "\n<<PROMPT TAIL>>"
)

// scriptedTokenizer charges a fixed overhead for the template skeleton and
// num/den tokens per context character, rounded up. extra is added to
// assembled prompts with a non-empty context to simulate boundary merges.
type scriptedTokenizer struct {
	overhead int
	num, den int
	extra    int

	calls []string
}

func (s *scriptedTokenizer) Count(text string) int {
	s.calls = append(s.calls, text)
	if strings.HasPrefix(text, testPrefix) && strings.HasSuffix(text, testSuffix) &&
		len(text) >= len(testPrefix)+len(testSuffix) {
		middle := text[len(testPrefix) : len(text)-len(testSuffix)]
		n := s.overhead + s.contextTokens(middle)
		if middle != "" {
			n += s.extra
		}
		return n
	}
	return s.contextTokens(text)
}

func (s *scriptedTokenizer) contextTokens(text string) int {
	den := s.den
	if den == 0 {
		den = 1
	}
	return (utf8.RuneCountInString(text)*s.num + den - 1) / den
}

// contextCalls returns the counted texts that were not template or prompt.
func (s *scriptedTokenizer) contextCalls() []string {
	var out []string
	for _, c := range s.calls {
		if !strings.HasPrefix(c, testPrefix) {
			out = append(out, c)
		}
	}
	return out
}

func testTemplate(t *testing.T) *Template {
	t.Helper()
	tmpl, err := ParseTemplate(testPrefix+DefaultPlaceholder+testSuffix, "")
	if err != nil {
		t.Fatalf("ParseTemplate() error = %v", err)
	}
	return tmpl
}

func TestAssemble_ScenarioShrinksOversizedContext(t *testing.T) {
	// 3500 characters map to 900 tokens, overhead 500, budget 1000.
	tok := &scriptedTokenizer{overhead: 500, num: 900, den: 3500}
	a, err := NewAssembler(testTemplate(t), 1000, 1000, tok)
	if err != nil {
		t.Fatalf("NewAssembler() error = %v", err)
	}

	ctx := strings.Repeat("x", 3500)
	res := a.Assemble(ctx)

	if res.AvailableTokens != 500 {
		t.Errorf("AvailableTokens = %d, want 500", res.AvailableTokens)
	}
	if res.OriginalTokens != 900 {
		t.Errorf("OriginalTokens = %d, want 900", res.OriginalTokens)
	}
	if !res.Truncated {
		t.Error("Truncated = false, want true")
	}
	if got := utf8.RuneCountInString(res.Context); got > 2500 {
		t.Errorf("final context has %d characters, want <= 2500", got)
	}
	if res.FinalTokens > 500 {
		t.Errorf("FinalTokens = %d, want <= 500", res.FinalTokens)
	}
	if res.PromptTokens > 1000 {
		t.Errorf("PromptTokens = %d, want <= 1000", res.PromptTokens)
	}
	if res.DroppedChars != 3500-utf8.RuneCountInString(res.Context) {
		t.Errorf("DroppedChars = %d, inconsistent with final context", res.DroppedChars)
	}
	// 3500 -> 2500 (643 tokens) -> 1500 (386 tokens)
	if res.Steps != 2 {
		t.Errorf("Steps = %d, want 2", res.Steps)
	}

	prev := math.MaxInt
	for _, c := range tok.contextCalls() {
		n := tok.contextTokens(c)
		if n > prev {
			t.Errorf("token count increased between steps: %d -> %d", prev, n)
		}
		prev = n
	}
}

func TestAssemble_EmptyContext(t *testing.T) {
	for _, budget := range []int{11, 100, 100000} {
		tok := &scriptedTokenizer{overhead: 10, num: 1}
		a, err := NewAssembler(testTemplate(t), budget, 0, tok)
		if err != nil {
			t.Fatalf("NewAssembler(budget=%d) error = %v", budget, err)
		}
		res := a.Assemble("")
		if res.Context != "" || res.Truncated || res.DroppedChars != 0 || res.Steps != 0 {
			t.Errorf("budget=%d: got %+v, want untouched empty context", budget, res)
		}
		if res.Prompt != testPrefix+testSuffix {
			t.Errorf("budget=%d: Prompt = %q", budget, res.Prompt)
		}
	}
}

func TestAssemble_TemplateExceedsBudget(t *testing.T) {
	tok := &scriptedTokenizer{overhead: 150, num: 1}

	res, err := Assemble(testTemplate(t), "some context that must never be counted", 100, tok)
	if err == nil {
		t.Fatalf("Assemble() = %+v, want configuration error", res)
	}
	if !IsConfigurationError(err) {
		t.Errorf("error %v is not a configuration error", err)
	}
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("errors.As(*ConfigurationError) failed for %T", err)
	}
	if cfgErr.Overhead != 150 || cfgErr.Budget != 100 {
		t.Errorf("Overhead/Budget = %d/%d, want 150/100", cfgErr.Overhead, cfgErr.Budget)
	}
	if calls := tok.contextCalls(); len(calls) != 0 {
		t.Errorf("context was counted %d times, want 0", len(calls))
	}
}

func TestAssemble_OverheadEqualToBudgetIsFatal(t *testing.T) {
	tok := &scriptedTokenizer{overhead: 100, num: 1}
	if _, err := NewAssembler(testTemplate(t), 100, 0, tok); !IsConfigurationError(err) {
		t.Errorf("NewAssembler() error = %v, want configuration error", err)
	}
}

func TestAssemble_FittingContextUnchanged(t *testing.T) {
	contexts := []string{
		"a",
		strings.Repeat("Bruttoinlandsprodukt ", 20),
		strings.Repeat("ü", 400),
		"contains {{context}} literally",
	}
	for _, ctx := range contexts {
		tok := &scriptedTokenizer{overhead: 100, num: 1}
		a, err := NewAssembler(testTemplate(t), 600, 50, tok)
		if err != nil {
			t.Fatalf("NewAssembler() error = %v", err)
		}
		res := a.Assemble(ctx)
		if res.Context != ctx {
			t.Errorf("context changed: got %d chars, want %d", len(res.Context), len(ctx))
		}
		if res.Truncated || res.DroppedChars != 0 || res.Steps != 0 {
			t.Errorf("unexpected truncation report %+v", res)
		}
		if res.OriginalTokens != res.FinalTokens {
			t.Errorf("OriginalTokens = %d, FinalTokens = %d", res.OriginalTokens, res.FinalTokens)
		}
		if res.KeptRatio() != 1 {
			t.Errorf("KeptRatio() = %v, want 1", res.KeptRatio())
		}
	}
}

func TestAssemble_MonotoneShrinkAndTermination(t *testing.T) {
	tests := []struct {
		name      string
		length    int
		chunk     int
		num, den  int
		budget    int
		overhead  int
		wantEmpty bool
	}{
		{name: "one chunk", length: 1200, chunk: 1000, num: 1, budget: 700, overhead: 100},
		{name: "many small chunks", length: 5000, chunk: 7, num: 1, den: 2, budget: 300, overhead: 20},
		{name: "chunk larger than context", length: 800, chunk: 2000, num: 1, budget: 200, overhead: 10, wantEmpty: true},
		{name: "never fits until empty", length: 3001, chunk: 1000, num: 100, budget: 50, overhead: 5, wantEmpty: true},
		{name: "uneven tail", length: 2999, chunk: 1000, num: 1, budget: 1500, overhead: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := &scriptedTokenizer{overhead: tt.overhead, num: tt.num, den: tt.den}
			a, err := NewAssembler(testTemplate(t), tt.budget, tt.chunk, tok)
			if err != nil {
				t.Fatalf("NewAssembler() error = %v", err)
			}
			ctx := strings.Repeat("z", tt.length)
			res := a.Assemble(ctx)

			if res.FinalTokens > a.Available() {
				t.Errorf("FinalTokens = %d, available %d", res.FinalTokens, a.Available())
			}
			if res.PromptTokens > tt.budget {
				t.Errorf("PromptTokens = %d, budget %d", res.PromptTokens, tt.budget)
			}
			if len(res.Context) > len(ctx) {
				t.Errorf("context grew from %d to %d", len(ctx), len(res.Context))
			}
			if tt.wantEmpty && res.Context != "" {
				t.Errorf("Context = %d chars, want empty", len(res.Context))
			}

			bound := (tt.length+tt.chunk-1)/tt.chunk + 1
			if n := len(tok.contextCalls()); n > bound {
				t.Errorf("context counted %d times, bound is %d", n, bound)
			}

			prevLen := math.MaxInt
			for _, c := range tok.contextCalls() {
				if len(c) > prevLen {
					t.Errorf("context length increased between steps: %d -> %d", prevLen, len(c))
				}
				prevLen = len(c)
			}
		})
	}
}

func TestAssemble_NonAdditivePromptStillFits(t *testing.T) {
	// 4900 characters count as 490 tokens on their own but push the
	// assembled prompt 40 tokens over the budget.
	tok := &scriptedTokenizer{overhead: 500, num: 1, den: 10, extra: 50}
	a, err := NewAssembler(testTemplate(t), 1000, 1000, tok)
	if err != nil {
		t.Fatalf("NewAssembler() error = %v", err)
	}

	res := a.Assemble(strings.Repeat("y", 4900))

	if res.PromptTokens > 1000 {
		t.Errorf("PromptTokens = %d, want <= 1000", res.PromptTokens)
	}
	if res.Steps != 1 || !res.Truncated {
		t.Errorf("Steps = %d, Truncated = %v, want one step of truncation", res.Steps, res.Truncated)
	}
	if utf8.RuneCountInString(res.Context) != 3900 {
		t.Errorf("context length = %d, want 3900", utf8.RuneCountInString(res.Context))
	}
}

func TestAssemble_MultiByteContextStaysValid(t *testing.T) {
	tok := &scriptedTokenizer{overhead: 10, num: 1}
	a, err := NewAssembler(testTemplate(t), 1510, 1000, tok)
	if err != nil {
		t.Fatalf("NewAssembler() error = %v", err)
	}

	ctx := strings.Repeat("Öl€", 1000) // 3000 characters, 6000 bytes
	res := a.Assemble(ctx)

	if !utf8.ValidString(res.Context) || !utf8.ValidString(res.Prompt) {
		t.Fatal("truncation split a multi-byte character")
	}
	if got := utf8.RuneCountInString(res.Context); got != 1000 {
		t.Errorf("context length = %d characters, want 1000", got)
	}
	if res.DroppedChars != 2000 {
		t.Errorf("DroppedChars = %d, want 2000", res.DroppedChars)
	}
	if r := res.KeptRatio(); math.Abs(r-1.0/3.0) > 1e-9 {
		t.Errorf("KeptRatio() = %v, want 1/3", r)
	}
}

func TestAssemble_PlaceholderReplacedOnce(t *testing.T) {
	tmpl := MustParseTemplate("Kontext:\n{{context}}\nEnde {{ context }}", "")
	tok := TokenizerFunc(func(s string) int { return len(s) })

	ctx := "Dokument erwähnt {{context}} wörtlich"
	res, err := Assemble(tmpl, ctx, 10000, tok)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	want := "Kontext:\n" + ctx + "\nEnde {{ context }}"
	if res.Prompt != want {
		t.Errorf("Prompt = %q, want %q", res.Prompt, want)
	}
	if n := strings.Count(res.Prompt, DefaultPlaceholder); n != 1 {
		t.Errorf("placeholder occurs %d times in prompt, want 1 (from the context)", n)
	}
}

func TestNewAssembler_InvalidArguments(t *testing.T) {
	tok := TokenizerFunc(func(s string) int { return len(s) })
	tmpl := MustParseTemplate("{{context}}", "")

	tests := []struct {
		name   string
		tmpl   *Template
		budget int
		tok    Tokenizer
	}{
		{"nil template", nil, 10, tok},
		{"nil tokenizer", tmpl, 10, nil},
		{"zero budget", tmpl, 0, tok},
		{"negative budget", tmpl, -5, tok},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAssembler(tt.tmpl, tt.budget, 0, tt.tok)
			if !IsConfigurationError(err) {
				t.Errorf("error = %v, want configuration error", err)
			}
		})
	}
}

func TestNewAssembler_DefaultChunkSize(t *testing.T) {
	a, err := NewAssembler(MustParseTemplate("{{context}}", ""), 10, -1, TokenizerFunc(func(string) int { return 0 }))
	if err != nil {
		t.Fatalf("NewAssembler() error = %v", err)
	}
	if a.ChunkSize() != DefaultChunkSize {
		t.Errorf("ChunkSize() = %d, want %d", a.ChunkSize(), DefaultChunkSize)
	}
}
