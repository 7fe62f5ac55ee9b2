package validation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"outlook_backend/core"
	"outlook_backend/promptbudget"
	"outlook_backend/tokenizer"

	"github.com/fatih/color"
)

// ValidationStep represents a single validation step with its status.
type ValidationStep struct {
	Name    string
	Status  StepStatus
	Message string
	Error   error
	Latency time.Duration
}

// StepStatus represents the status of a validation step.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepPassed
	StepFailed
	StepWarning
	StepSkipped
)

// String returns the string representation of a step status.
func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepRunning:
		return "running"
	case StepPassed:
		return "passed"
	case StepFailed:
		return "failed"
	case StepWarning:
		return "warning"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// SuiteResult represents the complete result of validation suite execution.
// On success it also carries what the checks built, so startup does not
// repeat the work.
type SuiteResult struct {
	Steps       []ValidationStep
	TotalSteps  int
	PassedSteps int
	FailedSteps int
	Warnings    int
	Duration    time.Duration
	Success     bool

	Config         *core.Config
	Template       *promptbudget.Template
	Tokenizer      tokenizer.Selection
	OverheadTokens int
}

// CounterFactory picks the token counter for a model.
type CounterFactory func(model, encoding string) tokenizer.Selection

// ValidationSuite runs the startup checks with colored progress output.
type ValidationSuite struct {
	output       io.Writer
	envPath      string
	loadConfig   func() (*core.Config, error)
	counters     CounterFactory
	connectivity *ConnectivityChecker
	checkAPI     bool
	showProgress bool
	failFast     bool
}

// NewValidationSuite creates a new ValidationSuite with default settings.
func NewValidationSuite() *ValidationSuite {
	return &ValidationSuite{
		output:       os.Stdout,
		envPath:      ".env",
		loadConfig:   core.LoadConfig,
		counters:     tokenizer.New,
		connectivity: NewConnectivityChecker(),
		showProgress: true,
	}
}

// WithOutput sets the output writer for progress messages.
func (s *ValidationSuite) WithOutput(w io.Writer) *ValidationSuite {
	s.output = w
	return s
}

// WithEnvPath sets a custom path for the .env file.
func (s *ValidationSuite) WithEnvPath(path string) *ValidationSuite {
	s.envPath = path
	return s
}

// WithConfigLoader replaces core.LoadConfig.
func (s *ValidationSuite) WithConfigLoader(load func() (*core.Config, error)) *ValidationSuite {
	s.loadConfig = load
	return s
}

// WithCounterFactory replaces tokenizer.New.
func (s *ValidationSuite) WithCounterFactory(f CounterFactory) *ValidationSuite {
	s.counters = f
	return s
}

// WithAPICheck enables the network probe of the completion endpoint.
func (s *ValidationSuite) WithAPICheck(enabled bool) *ValidationSuite {
	s.checkAPI = enabled
	return s
}

// WithTimeout sets the timeout for network operations.
func (s *ValidationSuite) WithTimeout(timeout time.Duration) *ValidationSuite {
	s.connectivity.WithTimeout(timeout)
	return s
}

// WithShowProgress enables or disables progress output.
func (s *ValidationSuite) WithShowProgress(show bool) *ValidationSuite {
	s.showProgress = show
	return s
}

// WithFailFast stops validation on first failure if enabled.
func (s *ValidationSuite) WithFailFast(failFast bool) *ValidationSuite {
	s.failFast = failFast
	return s
}

// Validate runs all checks in order. Steps that depend on a failed step
// are reported as skipped.
func (s *ValidationSuite) Validate(ctx context.Context) SuiteResult {
	startTime := time.Now()
	var res SuiteResult
	steps := make([]ValidationStep, 0, 6)

	if s.showProgress {
		s.printHeader("Prognose-Generator Configuration Validation")
	}

	// Step 1: .env is optional; variables may come from the environment.
	steps = append(steps, s.runStep("Environment File", func() (StepStatus, string, error) {
		if err := CheckFileExists(s.envPath); err != nil {
			return StepWarning, "not found, using process environment", nil
		}
		return StepPassed, s.envPath, nil
	}))

	// Step 2: configuration
	step := s.runStep("Configuration", func() (StepStatus, string, error) {
		cfg, err := s.loadConfig()
		if err != nil {
			return StepFailed, "invalid", err
		}
		res.Config = cfg
		return StepPassed, fmt.Sprintf("model %s, budget %d tokens", cfg.Model, cfg.PromptMaxTokens), nil
	})
	steps = append(steps, step)
	if step.Status == StepFailed {
		for _, name := range []string{"Prompt Template", "Token Budget", "History Database", "API Connectivity"} {
			steps = append(steps, s.skipStep(name, "Skipped due to configuration errors"))
		}
		return s.finish(res, steps, startTime)
	}
	cfg := res.Config

	// Step 3: template placeholder
	step = s.runStep("Prompt Template", func() (StepStatus, string, error) {
		tmpl, err := promptbudget.ParseTemplate(cfg.PromptTemplate, core.ContextPlaceholder)
		if err != nil {
			return StepFailed, "invalid", core.ErrPromptTemplate(err.Error())
		}
		res.Template = tmpl
		return StepPassed, fmt.Sprintf("%d characters", len([]rune(tmpl.Raw()))), nil
	})
	steps = append(steps, step)
	if s.failFast && step.Status == StepFailed {
		return s.finish(res, steps, startTime)
	}

	// Step 4: the template alone must leave room for context
	if res.Template != nil {
		step = s.runStep("Token Budget", func() (StepStatus, string, error) {
			sel := s.counters(cfg.Model, cfg.TokenizerEncoding)
			res.Tokenizer = sel
			a, err := promptbudget.NewAssembler(res.Template, cfg.PromptMaxTokens, cfg.PromptChunkChars, sel.Counter)
			if err != nil {
				var ce *promptbudget.ConfigurationError
				if errors.As(err, &ce) && ce.Overhead > 0 {
					return StepFailed, "template exceeds budget", core.ErrTemplateOverflow(ce.Overhead, ce.Budget)
				}
				return StepFailed, "invalid", err
			}
			res.OverheadTokens = a.OverheadTokens()
			msg := fmt.Sprintf("overhead %d of %d tokens (%s)", a.OverheadTokens(), a.Budget(), sel.Name)
			if sel.Fallback {
				return StepWarning, msg + ", tokenizer unavailable, counts are estimated", nil
			}
			return StepPassed, msg, nil
		})
	} else {
		step = s.skipStep("Token Budget", "Skipped due to template errors")
	}
	steps = append(steps, step)
	if s.failFast && step.Status == StepFailed {
		return s.finish(res, steps, startTime)
	}

	// Step 5: history database location
	if cfg.HistoryEnabled() {
		step = s.runStep("History Database", func() (StepStatus, string, error) {
			if err := CheckWritableDir(cfg.DatabasePath); err != nil {
				return StepFailed, "not writable", core.ErrDatabasePath(cfg.DatabasePath, err)
			}
			var diskErr *DiskSpaceError
			if err := CheckDiskSpace(cfg.DatabasePath, MinHistoryFreeBytes); errors.As(err, &diskErr) {
				return StepWarning, diskErr.Error(), nil
			}
			return StepPassed, cfg.DatabasePath, nil
		})
	} else {
		step = s.skipStep("History Database", "disabled")
	}
	steps = append(steps, step)
	if s.failFast && step.Status == StepFailed {
		return s.finish(res, steps, startTime)
	}

	// Step 6: optional network probe
	if s.checkAPI {
		steps = append(steps, s.runStep("API Connectivity", func() (StepStatus, string, error) {
			r := s.connectivity.CheckAPI(ctx, cfg)
			msg := r.Message
			if r.Latency > 0 {
				msg = fmt.Sprintf("%s (latency: %v)", msg, r.Latency.Round(time.Millisecond))
			}
			if r.Error != nil {
				return StepFailed, msg, r.Error
			}
			return StepPassed, msg, nil
		}))
	} else {
		steps = append(steps, s.skipStep("API Connectivity", "not requested"))
	}

	return s.finish(res, steps, startTime)
}

// runStep executes a validation step with timing and progress output.
func (s *ValidationSuite) runStep(name string, fn func() (StepStatus, string, error)) ValidationStep {
	if s.showProgress {
		s.printStepStart(name)
	}

	startTime := time.Now()
	status, message, err := fn()
	step := ValidationStep{
		Name:    name,
		Status:  status,
		Message: message,
		Error:   err,
		Latency: time.Since(startTime),
	}

	if s.showProgress {
		s.printStep(step)
	}
	return step
}

func (s *ValidationSuite) skipStep(name, reason string) ValidationStep {
	step := ValidationStep{Name: name, Status: StepSkipped, Message: reason}
	if s.showProgress {
		s.printStep(step)
	}
	return step
}

func (s *ValidationSuite) finish(res SuiteResult, steps []ValidationStep, startTime time.Time) SuiteResult {
	res.Steps = steps
	res.TotalSteps = len(steps)
	res.Duration = time.Since(startTime)
	res.Success = true

	for _, step := range steps {
		switch step.Status {
		case StepPassed:
			res.PassedSteps++
		case StepFailed:
			res.FailedSteps++
			res.Success = false
		case StepWarning:
			res.Warnings++
		}
	}

	if s.showProgress {
		s.printSummary(res)
	}
	return res
}

// printHeader prints a validation header.
func (s *ValidationSuite) printHeader(title string) {
	fmt.Fprintln(s.output)
	color.New(color.FgCyan, color.Bold).Fprintf(s.output, "━━━ %s ━━━\n", title)
	fmt.Fprintln(s.output)
}

// printStepStart prints the step name before execution (for real-time feedback).
func (s *ValidationSuite) printStepStart(name string) {
	fmt.Fprintf(s.output, "  ◌ %s...", name)
}

// printStep prints a completed validation step with status indicator.
func (s *ValidationSuite) printStep(step ValidationStep) {
	var icon string
	var clr *color.Color

	switch step.Status {
	case StepPassed:
		icon, clr = "✓", color.New(color.FgGreen)
	case StepFailed:
		icon, clr = "✗", color.New(color.FgRed)
	case StepWarning:
		icon, clr = "!", color.New(color.FgYellow)
	case StepSkipped:
		icon, clr = "○", color.New(color.FgHiBlack)
	default:
		icon, clr = "?", color.New(color.FgWhite)
	}

	// Clear the "running" line and print result
	fmt.Fprintf(s.output, "\r")
	clr.Fprintf(s.output, "  %s %s", icon, step.Name)
	if step.Message != "" {
		color.New(color.FgHiBlack).Fprintf(s.output, " - %s", step.Message)
	}
	fmt.Fprintln(s.output)

	if step.Status == StepFailed && step.Error != nil {
		color.New(color.FgRed).Fprintf(s.output, "    └─ %s\n", step.Error.Error())
	}
}

// printSummary prints the validation summary.
func (s *ValidationSuite) printSummary(result SuiteResult) {
	fmt.Fprintln(s.output)

	if result.Success {
		successColor := color.New(color.FgGreen, color.Bold)
		successColor.Fprintf(s.output, "━━━ Validation Passed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d/%d checks passed, %d warnings, %v)",
			result.PassedSteps, result.TotalSteps, result.Warnings, result.Duration.Round(time.Millisecond))
		successColor.Fprintln(s.output, " ━━━")
	} else {
		failColor := color.New(color.FgRed, color.Bold)
		failColor.Fprintf(s.output, "━━━ Validation Failed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d passed, %d failed)",
			result.PassedSteps, result.FailedSteps)
		failColor.Fprintln(s.output, " ━━━")
	}

	fmt.Fprintln(s.output)
}

// GetErrors returns all errors from failed steps.
func (r SuiteResult) GetErrors() []error {
	errs := make([]error, 0)
	for _, step := range r.Steps {
		if step.Error != nil {
			errs = append(errs, step.Error)
		}
	}
	return errs
}

// GetFirstError returns the first error from failed steps, or nil if all passed.
func (r SuiteResult) GetFirstError() error {
	for _, step := range r.Steps {
		if step.Error != nil {
			return step.Error
		}
	}
	return nil
}

// Summary returns a human-readable summary string.
func (r SuiteResult) Summary() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Validation %s: ", map[bool]string{true: "Passed", false: "Failed"}[r.Success]))
	sb.WriteString(fmt.Sprintf("%d/%d checks passed", r.PassedSteps, r.TotalSteps))
	if r.FailedSteps > 0 {
		sb.WriteString(fmt.Sprintf(", %d failed", r.FailedSteps))
	}
	if r.Warnings > 0 {
		sb.WriteString(fmt.Sprintf(", %d warnings", r.Warnings))
	}
	sb.WriteString(fmt.Sprintf(" (took %v)", r.Duration.Round(time.Millisecond)))
	return sb.String()
}
