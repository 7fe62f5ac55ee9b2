// Package pipeline runs one forecast generation: extract the uploaded
// documents, fit them into the prompt budget, call the model and export
// the answer as a Word document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"outlook_backend/db"
	"outlook_backend/export"
	"outlook_backend/extract"
	"outlook_backend/llm"
	"outlook_backend/logging"
	"outlook_backend/promptbudget"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Progress messages shown while a generation runs.
var progressMessages = map[Stage]string{
	StageExtract:  "Lese Dokumente...",
	StageAssemble: "Passe den Kontext an das Tokenbudget an...",
	StageComplete: "Generiere volkswirtschaftliche Prognose...",
	StageExport:   "Erstelle Word-Dokument...",
	StageDone:     "Fertig!",
}

// ProgressMessage returns the German status line for stage.
func ProgressMessage(stage Stage) string {
	return progressMessages[stage]
}

// BatchExtractor is implemented by *extract.Registry.
type BatchExtractor interface {
	ExtractAll(ctx context.Context, files []extract.File) (*extract.Batch, error)
}

// Recorder is implemented by *db.Recorder.
type Recorder interface {
	Record(rec db.GenerationRecord) bool
}

// ProgressFunc is called when a stage starts.
type ProgressFunc func(stage Stage, message string)

// Config holds the per-deployment generation settings.
type Config struct {
	Title           string
	Model           string
	Temperature     float32
	MaxOutputTokens int
}

// Input is one generation request.
type Input struct {
	Files    []extract.File
	Progress ProgressFunc
}

// StageTiming is how long one stage took.
type StageTiming struct {
	Stage    Stage
	Duration time.Duration
}

// Output is everything a successful generation produced.
type Output struct {
	RequestID   string
	Text        string
	Documents   []extract.Document
	Warnings    []*extract.Warning
	Assembly    *promptbudget.Result
	Completion  *llm.Response
	DOCX        []byte
	FileName    string
	GeneratedAt time.Time
	Timings     []StageTiming
}

// Duration is the sum of all stage timings.
func (o *Output) Duration() time.Duration {
	var d time.Duration
	for _, t := range o.Timings {
		d += t.Duration
	}
	return d
}

// Generator composes the pipeline stages. It is safe for concurrent use.
type Generator struct {
	cfg       Config
	extractor BatchExtractor
	assembler *promptbudget.Assembler
	completer llm.Completer
	recorders []Recorder
	logger    *logging.Logger
	now       func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithRecorder hands a record of every generation to r. It may be given
// more than once; recorders are called in order.
func WithRecorder(r Recorder) Option {
	return func(g *Generator) {
		if r != nil {
			g.recorders = append(g.recorders, r)
		}
	}
}

// WithClock replaces time.Now for document timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator wires the stages. The assembler carries the deployment's
// fixed token budget; requests cannot change it.
func NewGenerator(cfg Config, ex BatchExtractor, a *promptbudget.Assembler, c llm.Completer, logger *logging.Logger, opts ...Option) (*Generator, error) {
	switch {
	case ex == nil:
		return nil, errors.New("pipeline: extractor is required")
	case a == nil:
		return nil, errors.New("pipeline: assembler is required")
	case c == nil:
		return nil, errors.New("pipeline: completer is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	g := &Generator{
		cfg:       cfg,
		extractor: ex,
		assembler: a,
		completer: c,
		logger:    logger.Named("pipeline"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Budget returns the configured prompt token budget.
func (g *Generator) Budget() int { return g.assembler.Budget() }

// Generate runs all stages in order. On failure the returned error is a
// *StageError and no partial output is returned.
func (g *Generator) Generate(ctx context.Context, in Input) (*Output, error) {
	out := &Output{RequestID: uuid.NewString()}
	log := g.logger.With(zap.String("request_id", out.RequestID))
	names := fileNames(in.Files)
	log.Info("Generation started", zap.Strings("files", names), zap.String("model", g.cfg.Model))

	rec := db.GenerationRecord{
		RequestID: out.RequestID,
		Model:     g.cfg.Model,
		FileNames: names,
	}
	fail := func(stage Stage, err error) (*Output, error) {
		se := &StageError{Stage: stage, Err: err, aborted: ctx.Err() != nil}
		log.Error("Generation failed",
			zap.String("stage", string(stage)),
			zap.String("kind", se.Kind()),
			zap.Error(err))
		rec.Status = db.StatusFailed
		rec.ErrorKind = se.Kind()
		rec.ErrorMessage = err.Error()
		rec.DurationMS = out.Duration().Milliseconds()
		g.record(rec)
		return nil, se
	}
	run := func(stage Stage, fn func() error) error {
		if in.Progress != nil {
			in.Progress(stage, ProgressMessage(stage))
		}
		start := time.Now()
		err := fn()
		out.Timings = append(out.Timings, StageTiming{Stage: stage, Duration: time.Since(start)})
		return err
	}

	// Extract
	var batch *extract.Batch
	if err := run(StageExtract, func() (err error) {
		batch, err = g.extractor.ExtractAll(ctx, in.Files)
		return err
	}); err != nil {
		return fail(StageExtract, err)
	}
	out.Documents = batch.Documents
	out.Warnings = batch.Warnings
	rec.WarningCount = len(batch.Warnings)
	for _, w := range batch.Warnings {
		log.Warn("Extraction warning", zap.String("file", w.File), zap.String("reason", w.Reason), zap.Error(w.Err))
	}

	// Assemble
	run(StageAssemble, func() error {
		out.Assembly = g.assembler.Assemble(batch.Context)
		return nil
	})
	asm := out.Assembly
	rec.Budget = asm.Budget
	rec.OverheadTokens = asm.OverheadTokens
	rec.OriginalTokens = asm.OriginalTokens
	rec.FinalTokens = asm.FinalTokens
	rec.PromptTokens = asm.PromptTokens
	rec.Truncated = asm.Truncated
	rec.DroppedChars = asm.DroppedChars
	if asm.Truncated {
		log.Warn("Context truncated to fit the prompt budget",
			zap.Int("budget", asm.Budget),
			zap.Int("original_tokens", asm.OriginalTokens),
			zap.Int("final_tokens", asm.FinalTokens),
			zap.Int("dropped_chars", asm.DroppedChars),
			zap.Int("steps", asm.Steps))
	}

	// Complete
	if err := run(StageComplete, func() (err error) {
		out.Completion, err = g.completer.Complete(ctx, llm.Request{
			Prompt:          asm.Prompt,
			Model:           g.cfg.Model,
			Temperature:     g.cfg.Temperature,
			MaxOutputTokens: g.cfg.MaxOutputTokens,
		})
		return err
	}); err != nil {
		return fail(StageComplete, err)
	}
	out.Text = out.Completion.Text
	rec.CompletionTokens = out.Completion.CompletionTokens

	// Export
	out.GeneratedAt = g.now()
	if err := run(StageExport, func() (err error) {
		out.DOCX, err = export.Render(export.Document{
			Title:       g.cfg.Title,
			Body:        out.Text,
			Notes:       g.notes(out),
			Author:      "Prognose-Generator",
			GeneratedAt: out.GeneratedAt,
		})
		return err
	}); err != nil {
		return fail(StageExport, err)
	}
	out.FileName = export.FileName(g.cfg.Title, out.GeneratedAt)

	if in.Progress != nil {
		in.Progress(StageDone, ProgressMessage(StageDone))
	}
	rec.Status = db.StatusSuccess
	rec.DurationMS = out.Duration().Milliseconds()
	g.record(rec)

	log.Info("Generation finished",
		zap.Int("prompt_tokens", asm.PromptTokens),
		zap.Int("completion_tokens", out.Completion.CompletionTokens),
		zap.Bool("truncated", asm.Truncated),
		zap.Duration("duration", out.Duration()))
	return out, nil
}

// notes lists the sources and, when the context was cut, how much of it
// reached the model.
func (g *Generator) notes(out *Output) []string {
	var notes []string
	if len(out.Documents) > 0 {
		names := make([]string, len(out.Documents))
		for i, d := range out.Documents {
			names[i] = d.Name
		}
		notes = append(notes, "Quellen: "+strings.Join(names, ", "))
	}
	if a := out.Assembly; a != nil && a.Truncated {
		notes = append(notes, fmt.Sprintf(
			"Hinweis: Der Kontext wurde auf %d von %d Zeichen gekürzt, um das Tokenbudget von %d einzuhalten.",
			a.OriginalChars-a.DroppedChars, a.OriginalChars, a.Budget))
	}
	notes = append(notes, "Modell: "+g.cfg.Model)
	return notes
}

func (g *Generator) record(rec db.GenerationRecord) {
	if len(g.recorders) == 0 {
		return
	}
	rec.CreatedAt = g.now()
	for _, r := range g.recorders {
		r.Record(rec)
	}
}

func fileNames(files []extract.File) []string {
	if len(files) == 0 {
		return nil
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return names
}
