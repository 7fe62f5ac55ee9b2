package pipeline

import (
	"context"
	"errors"
	"fmt"

	"outlook_backend/llm"
	"outlook_backend/promptbudget"
)

// Stage names one step of a generation.
type Stage string

const (
	StageExtract  Stage = "extract"
	StageAssemble Stage = "assemble"
	StageComplete Stage = "complete"
	StageExport   Stage = "export"
	StageDone     Stage = "done"
)

// Error kinds stored in the history and used by the web page.
const (
	KindConfiguration = "configuration"
	KindCompletion    = "completion"
	KindExport        = "export"
	KindExtraction    = "extraction"
	KindCancelled     = "cancelled"
)

// StageError is the only error Generate returns. Nothing is produced
// after a failed stage.
type StageError struct {
	Stage Stage
	Err   error

	// aborted is set when the request context had ended by the time the
	// stage failed.
	aborted bool
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Kind classifies the failure for display and history.
func (e *StageError) Kind() string {
	switch {
	case e.aborted, errors.Is(e.Err, context.Canceled):
		return KindCancelled
	case errors.Is(e.Err, context.DeadlineExceeded) && !llm.IsCompletionFailure(e.Err):
		// A completion timeout without an ended request is the model's.
		return KindCancelled
	case promptbudget.IsConfigurationError(e.Err):
		return KindConfiguration
	case llm.IsCompletionFailure(e.Err):
		return KindCompletion
	case e.Stage == StageExport:
		return KindExport
	case e.Stage == StageComplete:
		return KindCompletion
	default:
		return KindExtraction
	}
}

// UserMessage is a short German explanation for the web page.
func (e *StageError) UserMessage() string {
	var failure *llm.CompletionFailure
	switch e.Kind() {
	case KindCancelled:
		if errors.Is(e.Err, context.DeadlineExceeded) {
			return "Die Anfrage hat zu lange gedauert und wurde abgebrochen."
		}
		return "Die Anfrage wurde abgebrochen."
	case KindConfiguration:
		return "Konfigurationsfehler: Der Prompt passt nicht in das Tokenbudget. Bitte die Einstellungen prüfen."
	case KindCompletion:
		if errors.As(e.Err, &failure) {
			return failure.UserMessage()
		}
		return "Die Prognose konnte nicht erstellt werden."
	case KindExport:
		return "Das Word-Dokument konnte nicht erstellt werden."
	default:
		return "Die hochgeladenen Dokumente konnten nicht gelesen werden."
	}
}

// AsStageError returns the *StageError inside err, if any.
func AsStageError(err error) (*StageError, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
