// Package tokenizer provides token counters for prompt budgeting.
//
// TiktokenCounter uses the BPE tables of the target model. When those cannot
// be loaded (the tables are fetched on first use and cached under
// TIKTOKEN_CACHE_DIR), EstimatingCounter offers a conservative character
// based estimate so the service keeps working offline.
package tokenizer

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is used for models tiktoken does not know.
const DefaultEncoding = "cl100k_base"

// DefaultCharsPerToken over-counts English and roughly matches German prose.
const DefaultCharsPerToken = 3.0

// Counter counts tokens. It matches promptbudget.Tokenizer.
type Counter interface {
	Count(text string) int
}

// Lookups are package variables so tests can run without the BPE download.
var (
	encodingForModel = tiktoken.EncodingForModel
	getEncoding      = tiktoken.GetEncoding
)

// TiktokenCounter counts tokens with a tiktoken encoding.
type TiktokenCounter struct {
	enc  *tiktoken.Tiktoken
	name string
}

// NewTiktokenCounter loads the named encoding, e.g. "cl100k_base".
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	enc, err := getEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %q: %w", encoding, err)
	}
	return &TiktokenCounter{enc: enc, name: encoding}, nil
}

// NewTiktokenCounterForModel picks the encoding tiktoken associates with
// model and falls back to DefaultEncoding for unknown model names.
func NewTiktokenCounterForModel(model string) (*TiktokenCounter, error) {
	enc, err := encodingForModel(model)
	if err == nil {
		return &TiktokenCounter{enc: enc, name: "model:" + model}, nil
	}
	return NewTiktokenCounter(DefaultEncoding)
}

// Count returns the number of BPE tokens in text.
func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Name identifies the encoding for logs.
func (c *TiktokenCounter) Name() string { return c.name }

// EstimatingCounter approximates tokens as characters divided by
// CharsPerToken, rounded up.
type EstimatingCounter struct {
	CharsPerToken float64
}

// NewEstimatingCounter returns a counter with DefaultCharsPerToken.
func NewEstimatingCounter() *EstimatingCounter {
	return &EstimatingCounter{CharsPerToken: DefaultCharsPerToken}
}

func (c *EstimatingCounter) Count(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	per := c.CharsPerToken
	if per <= 0 {
		per = DefaultCharsPerToken
	}
	return int(math.Ceil(float64(n) / per))
}

func (c *EstimatingCounter) Name() string {
	return fmt.Sprintf("estimate:%.1f", c.CharsPerToken)
}

// Selection reports which counter New picked and why.
type Selection struct {
	Counter  Counter
	Name     string
	Fallback bool

	// Err is the tiktoken error that caused a fallback.
	Err error
}

// New returns a tiktoken counter for model, or for encoding when set. If
// the encoding cannot be loaded the estimating counter is returned with
// Fallback set; the caller decides whether to log or fail.
func New(model, encoding string) Selection {
	var (
		tc  *TiktokenCounter
		err error
	)
	if strings.TrimSpace(encoding) != "" {
		tc, err = NewTiktokenCounter(strings.TrimSpace(encoding))
	} else {
		tc, err = NewTiktokenCounterForModel(model)
	}
	if err == nil {
		return Selection{Counter: tc, Name: tc.Name()}
	}

	est := NewEstimatingCounter()
	return Selection{Counter: est, Name: est.Name(), Fallback: true, Err: err}
}
