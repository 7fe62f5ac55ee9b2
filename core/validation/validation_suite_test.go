package validation

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"outlook_backend/core"
	"outlook_backend/tokenizer"
)

func estimating(model, encoding string) tokenizer.Selection {
	c := tokenizer.NewEstimatingCounter()
	return tokenizer.Selection{Counter: c, Name: c.Name()}
}

func testConfig(t *testing.T) *core.Config {
	t.Helper()
	return &core.Config{
		OpenAIAPIKey:     "sk-test",
		Model:            "gpt-4",
		PromptTemplate:   core.DefaultPromptTemplate,
		PromptMaxTokens:  6000,
		PromptChunkChars: 1000,
		DatabasePath:     filepath.Join(t.TempDir(), "data", "outlook.db"),
	}
}

func newTestSuite(t *testing.T, cfg *core.Config, out *bytes.Buffer) *ValidationSuite {
	t.Helper()
	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("OPENAI_API_KEY=sk-test\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return NewValidationSuite().
		WithOutput(out).
		WithEnvPath(envPath).
		WithCounterFactory(estimating).
		WithConfigLoader(func() (*core.Config, error) { return cfg, nil })
}

func stepByName(t *testing.T, r SuiteResult, name string) ValidationStep {
	t.Helper()
	for _, s := range r.Steps {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("step %q not found", name)
	return ValidationStep{}
}

func TestValidate_AllPass(t *testing.T) {
	var out bytes.Buffer
	cfg := testConfig(t)
	res := newTestSuite(t, cfg, &out).Validate(context.Background())

	if !res.Success {
		t.Fatalf("Validate() failed: %s\n%s", res.Summary(), out.String())
	}
	if res.Config != cfg || res.Template == nil {
		t.Error("result does not carry config and template")
	}
	if res.OverheadTokens <= 0 || res.OverheadTokens >= cfg.PromptMaxTokens {
		t.Errorf("OverheadTokens = %d", res.OverheadTokens)
	}
	if s := stepByName(t, res, "API Connectivity"); s.Status != StepSkipped {
		t.Errorf("API Connectivity status = %v, want skipped", s.Status)
	}
	if _, err := os.Stat(filepath.Dir(cfg.DatabasePath)); err != nil {
		t.Errorf("database directory not created: %v", err)
	}
	if !strings.Contains(out.String(), "Validation Passed") {
		t.Errorf("output missing summary:\n%s", out.String())
	}
}

func TestValidate_ConfigFailureSkipsRest(t *testing.T) {
	var out bytes.Buffer
	suite := newTestSuite(t, nil, &out).WithConfigLoader(func() (*core.Config, error) {
		return nil, core.ErrMissingConfig("OPENAI_API_KEY")
	})

	res := suite.Validate(context.Background())
	if res.Success {
		t.Fatal("Validate() succeeded without configuration")
	}
	if got := core.GetErrorCode(res.GetFirstError()); got != core.ErrCodeMissingConfig {
		t.Errorf("first error code = %q", got)
	}
	for _, name := range []string{"Prompt Template", "Token Budget", "History Database", "API Connectivity"} {
		if s := stepByName(t, res, name); s.Status != StepSkipped {
			t.Errorf("%s status = %v, want skipped", name, s.Status)
		}
	}
}

func TestValidate_TemplateExceedsBudget(t *testing.T) {
	var out bytes.Buffer
	cfg := testConfig(t)
	cfg.PromptMaxTokens = 10

	res := newTestSuite(t, cfg, &out).Validate(context.Background())
	step := stepByName(t, res, "Token Budget")
	if step.Status != StepFailed {
		t.Fatalf("Token Budget status = %v", step.Status)
	}
	if got := core.GetErrorCode(step.Error); got != core.ErrCodeTemplateOverflow {
		t.Errorf("error code = %q, want %q", got, core.ErrCodeTemplateOverflow)
	}
}

func TestValidate_BadTemplate(t *testing.T) {
	var out bytes.Buffer
	cfg := testConfig(t)
	cfg.PromptTemplate = "kein Platzhalter"

	res := newTestSuite(t, cfg, &out).Validate(context.Background())
	if s := stepByName(t, res, "Prompt Template"); core.GetErrorCode(s.Error) != core.ErrCodePromptTemplate {
		t.Errorf("Prompt Template error = %v", s.Error)
	}
	if s := stepByName(t, res, "Token Budget"); s.Status != StepSkipped {
		t.Errorf("Token Budget status = %v, want skipped", s.Status)
	}
}

func TestValidate_TokenizerFallbackWarns(t *testing.T) {
	var out bytes.Buffer
	suite := newTestSuite(t, testConfig(t), &out).WithCounterFactory(func(model, encoding string) tokenizer.Selection {
		sel := estimating(model, encoding)
		sel.Fallback = true
		sel.Err = errors.New("bpe download failed")
		return sel
	})

	res := suite.Validate(context.Background())
	if !res.Success || res.Warnings == 0 {
		t.Fatalf("Success = %v, Warnings = %d", res.Success, res.Warnings)
	}
	if !res.Tokenizer.Fallback {
		t.Error("Tokenizer selection not carried in result")
	}
}

func TestValidate_HistoryDisabled(t *testing.T) {
	var out bytes.Buffer
	cfg := testConfig(t)
	cfg.DatabasePath = ""

	res := newTestSuite(t, cfg, &out).Validate(context.Background())
	if s := stepByName(t, res, "History Database"); s.Status != StepSkipped {
		t.Errorf("History Database status = %v", s.Status)
	}
}

func TestValidate_APICheck(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantPass bool
		wantCode string
	}{
		{"reachable", http.StatusOK, true, ""},
		{"key rejected", http.StatusUnauthorized, false, core.ErrCodeAPIAuthFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/models" || r.Header.Get("Authorization") != "Bearer sk-test" {
					t.Errorf("unexpected request %s %s", r.URL.Path, r.Header.Get("Authorization"))
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			var out bytes.Buffer
			cfg := testConfig(t)
			cfg.OpenAIBaseURL = srv.URL + "/v1"

			res := newTestSuite(t, cfg, &out).WithAPICheck(true).WithTimeout(2 * time.Second).Validate(context.Background())
			step := stepByName(t, res, "API Connectivity")
			if (step.Status == StepPassed) != tt.wantPass {
				t.Errorf("status = %v, wantPass %v", step.Status, tt.wantPass)
			}
			if got := core.GetErrorCode(step.Error); got != tt.wantCode {
				t.Errorf("error code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestSuiteResult_Summary(t *testing.T) {
	r := SuiteResult{TotalSteps: 3, PassedSteps: 1, FailedSteps: 1, Warnings: 1}
	got := r.Summary()
	for _, want := range []string{"Validation Failed", "1/3 checks passed", "1 failed", "1 warnings"} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary() = %q, missing %q", got, want)
		}
	}
}
