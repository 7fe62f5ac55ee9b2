package llm

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrNoChoices is wrapped when the API answers without any choice.
	ErrNoChoices = errors.New("no response choices returned")

	// ErrEmptyCompletion is wrapped when the first choice has no text.
	ErrEmptyCompletion = errors.New("completion is empty")
)

// CompletionFailure is returned for every failed completion call. There is
// no partial output.
type CompletionFailure struct {
	Model      string
	Elapsed    time.Duration
	Timeout    bool
	StatusCode int
	Err        error
}

func (f *CompletionFailure) Error() string {
	return fmt.Sprintf("completion failed for %s: %v", f.describe(), f.Err)
}

func (f *CompletionFailure) Unwrap() error { return f.Err }

// UserMessage is a short German explanation for the web page.
func (f *CompletionFailure) UserMessage() string {
	switch {
	case f.Timeout:
		return "Das Sprachmodell hat nicht rechtzeitig geantwortet. Bitte später erneut versuchen."
	case f.StatusCode == http.StatusUnauthorized || f.StatusCode == http.StatusForbidden:
		return "Der API-Schlüssel wurde abgelehnt. Bitte die Konfiguration prüfen."
	case f.StatusCode == http.StatusTooManyRequests:
		return "Das Anfragelimit des Sprachmodells ist erreicht. Bitte später erneut versuchen."
	case f.StatusCode >= 500:
		return "Der Dienst des Sprachmodells ist derzeit nicht erreichbar."
	case errors.Is(f.Err, ErrNoChoices), errors.Is(f.Err, ErrEmptyCompletion):
		return "Das Sprachmodell hat keine Antwort geliefert."
	default:
		return "Die Prognose konnte nicht erstellt werden."
	}
}

// IsCompletionFailure reports whether err is or wraps a *CompletionFailure.
func IsCompletionFailure(err error) bool {
	var f *CompletionFailure
	return errors.As(err, &f)
}

// describe renders the model and cause, e.g. "gpt-4 (status 429)".
func (f *CompletionFailure) describe() string {
	switch {
	case f.Timeout:
		return fmt.Sprintf("%s (timeout after %s)", f.Model, f.Elapsed.Round(time.Second))
	case f.StatusCode != 0:
		return fmt.Sprintf("%s (status %d)", f.Model, f.StatusCode)
	default:
		return f.Model
	}
}
