// Package metrics keeps in-memory statistics about forecast generations.
package metrics

import (
	"time"

	"outlook_backend/db"
)

// Sample is one finished generation, successful or not.
type Sample struct {
	RequestID string        `json:"request_id"`
	Model     string        `json:"model"`
	Outcome   string        `json:"outcome"`
	CreatedAt time.Time     `json:"created_at"`
	Duration  time.Duration `json:"duration"`

	// Files is the number of uploaded files.
	Files            int  `json:"files"`
	PromptTokens     int  `json:"prompt_tokens"`
	CompletionTokens int  `json:"completion_tokens"`
	Truncated        bool `json:"truncated"`
}

// Succeeded reports whether the generation produced a forecast.
func (s Sample) Succeeded() bool { return s.Outcome == OutcomeSuccess }

// OutcomeSuccess marks a sample for a successful generation. Failed
// samples carry the pipeline's error kind instead.
const OutcomeSuccess = "success"

// outcomeUnknown is used for failures recorded without an error kind.
const outcomeUnknown = "unknown"

// SampleFromRecord converts a history record.
func SampleFromRecord(rec db.GenerationRecord) Sample {
	outcome := OutcomeSuccess
	if rec.Status != db.StatusSuccess {
		outcome = rec.ErrorKind
		if outcome == "" {
			outcome = outcomeUnknown
		}
	}
	return Sample{
		RequestID:        rec.RequestID,
		Model:            rec.Model,
		Outcome:          outcome,
		CreatedAt:        rec.CreatedAt,
		Duration:         time.Duration(rec.DurationMS) * time.Millisecond,
		Files:            len(rec.FileNames),
		PromptTokens:     rec.PromptTokens,
		CompletionTokens: rec.CompletionTokens,
		Truncated:        rec.Truncated,
	}
}

// Summary aggregates all samples since startup.
type Summary struct {
	Total     int64 `json:"total"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	// Truncated counts successful generations whose context was cut.
	Truncated int64 `json:"truncated"`

	// SuccessRate is a percentage (0-100).
	SuccessRate     float64       `json:"success_rate"`
	AvgDuration     time.Duration `json:"avg_duration"`
	AvgPromptTokens int           `json:"avg_prompt_tokens"`

	ByOutcome map[string]*OutcomeStats `json:"by_outcome"`

	LastGeneration time.Time     `json:"last_generation,omitempty"`
	Uptime         time.Duration `json:"uptime"`
}

// OutcomeStats holds per-outcome counts.
type OutcomeStats struct {
	Count       int64         `json:"count"`
	AvgDuration time.Duration `json:"avg_duration"`
}
