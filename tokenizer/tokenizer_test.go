package tokenizer

import (
	"errors"
	"strings"
	"testing"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

func stubLookups(t *testing.T, forModel func(string) (*tiktoken.Tiktoken, error), byName func(string) (*tiktoken.Tiktoken, error)) {
	t.Helper()
	prevModel, prevName := encodingForModel, getEncoding
	encodingForModel, getEncoding = forModel, byName
	t.Cleanup(func() {
		encodingForModel, getEncoding = prevModel, prevName
	})
}

func TestEstimatingCounter_Count(t *testing.T) {
	tests := []struct {
		name string
		per  float64
		text string
		want int
	}{
		{"empty", 3, "", 0},
		{"exact multiple", 3, "abcdef", 2},
		{"rounds up", 3, "abcdefg", 3},
		{"counts characters not bytes", 2, "äöüß", 2},
		{"non-positive ratio uses default", 0, "abcdef", 2},
		{"english ratio", 4, strings.Repeat("a", 4000), 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &EstimatingCounter{CharsPerToken: tt.per}
			if got := c.Count(tt.text); got != tt.want {
				t.Errorf("Count(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestEstimatingCounter_Monotone(t *testing.T) {
	c := NewEstimatingCounter()
	text := strings.Repeat("Zinsstrukturkurve ", 200)
	prev := c.Count(text)
	for len(text) > 0 {
		text = text[:len(text)-1]
		n := c.Count(text)
		if n > prev {
			t.Fatalf("count increased from %d to %d when shortening", prev, n)
		}
		prev = n
	}
}

func TestNew_FallsBackWhenEncodingUnavailable(t *testing.T) {
	loadErr := errors.New("download blocked")
	stubLookups(t,
		func(string) (*tiktoken.Tiktoken, error) { return nil, loadErr },
		func(string) (*tiktoken.Tiktoken, error) { return nil, loadErr },
	)

	sel := New("gpt-4", "")
	if !sel.Fallback {
		t.Fatal("Fallback = false, want true")
	}
	if !errors.Is(sel.Err, loadErr) {
		t.Errorf("Err = %v, want wrapped %v", sel.Err, loadErr)
	}
	if _, ok := sel.Counter.(*EstimatingCounter); !ok {
		t.Errorf("Counter = %T, want *EstimatingCounter", sel.Counter)
	}
	if !strings.HasPrefix(sel.Name, "estimate:") {
		t.Errorf("Name = %q", sel.Name)
	}
}

func TestNew_EncodingOverrideSkipsModelLookup(t *testing.T) {
	var requested string
	stubLookups(t,
		func(string) (*tiktoken.Tiktoken, error) {
			t.Error("model lookup used despite encoding override")
			return nil, errors.New("unexpected")
		},
		func(name string) (*tiktoken.Tiktoken, error) {
			requested = name
			return nil, errors.New("offline")
		},
	)

	sel := New("gpt-4", " o200k_base ")
	if requested != "o200k_base" {
		t.Errorf("requested encoding = %q, want o200k_base", requested)
	}
	if !sel.Fallback {
		t.Error("Fallback = false, want true")
	}
}

func TestNewTiktokenCounterForModel_UnknownModelUsesDefault(t *testing.T) {
	var requested string
	stubLookups(t,
		func(string) (*tiktoken.Tiktoken, error) { return nil, errors.New("no encoding for model") },
		func(name string) (*tiktoken.Tiktoken, error) {
			requested = name
			return nil, errors.New("offline")
		},
	)

	if _, err := NewTiktokenCounterForModel("my-local-model"); err == nil {
		t.Fatal("expected error from stubbed lookup")
	}
	if requested != DefaultEncoding {
		t.Errorf("requested encoding = %q, want %q", requested, DefaultEncoding)
	}
}

func TestTiktokenCounter_Count(t *testing.T) {
	if testing.Short() {
		t.Skip("needs BPE tables")
	}
	c, err := NewTiktokenCounter(DefaultEncoding)
	if err != nil {
		t.Skipf("BPE tables unavailable: %v", err)
	}
	if got := c.Count(""); got != 0 {
		t.Errorf("Count(\"\") = %d, want 0", got)
	}
	short := c.Count("Inflation")
	long := c.Count("Inflation und Geldpolitik der EZB in der Eurozone")
	if short <= 0 || long <= short {
		t.Errorf("Count() short=%d long=%d, want 0 < short < long", short, long)
	}
}
