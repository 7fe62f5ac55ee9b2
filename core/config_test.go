package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configKeys = []string{
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL", "OPENAI_TEMPERATURE", "OPENAI_MAX_TOKENS",
	"AI_TIMEOUT", "PROMPT_FILE", "PROMPT_MAX_TOKENS", "PROMPT_CHUNK_CHARS", "TOKENIZER_ENCODING",
	"MAX_FILE_SIZE", "MAX_UPLOAD_FILES", "HOST", "PORT", "WEBUI_PWD", "DOWNLOAD_TTL",
	"RATE_LIMIT_PER_MINUTE", "DATABASE_PATH", "HISTORY_RETENTION_DAYS", "LOG_FILE",
	"ALLOW_SELF_SIGNED_CERTS",
}

// clearConfigEnv unsets every key LoadConfig reads; t.Setenv restores the
// previous values when the test ends.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Model != "gpt-4" || cfg.Temperature != 0.7 || cfg.MaxOutputTokens != 1800 {
		t.Errorf("model settings = %s/%v/%d", cfg.Model, cfg.Temperature, cfg.MaxOutputTokens)
	}
	if cfg.PromptMaxTokens != 6000 || cfg.PromptChunkChars != 1000 {
		t.Errorf("budget = %d, chunk = %d", cfg.PromptMaxTokens, cfg.PromptChunkChars)
	}
	if cfg.AITimeout != 120*time.Second || cfg.DownloadTTL != time.Hour {
		t.Errorf("timeouts = %v, %v", cfg.AITimeout, cfg.DownloadTTL)
	}
	if cfg.MaxFileSize != 25*BytesPerMB || cfg.MaxUploadFiles != 10 {
		t.Errorf("upload limits = %d, %d", cfg.MaxFileSize, cfg.MaxUploadFiles)
	}
	if cfg.Port != 8501 || cfg.Addr() != ":8501" {
		t.Errorf("Port = %d, Addr() = %q", cfg.Port, cfg.Addr())
	}
	if cfg.DatabasePath != DefaultDatabasePath || !cfg.HistoryEnabled() {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.AuthEnabled() {
		t.Error("AuthEnabled() = true without WEBUI_PWD")
	}
	if cfg.PromptTemplate != DefaultPromptTemplate || cfg.Title != DefaultTitle {
		t.Error("built-in prompt not used")
	}
	if cfg.RateLimitPerMinute != 6 || cfg.LogFile != "app.log" {
		t.Errorf("RateLimitPerMinute = %d, LogFile = %q", cfg.RateLimitPerMinute, cfg.LogFile)
	}
}

func TestLoadConfig_MissingAPIKey(t *testing.T) {
	clearConfigEnv(t)

	_, err := LoadConfig()
	if GetErrorCode(err) != ErrCodeMissingConfig {
		t.Fatalf("LoadConfig() error = %v, want %s", err, ErrCodeMissingConfig)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:8080/v1/")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("PROMPT_MAX_TOKENS", "2000")
	t.Setenv("MAX_FILE_SIZE", "5MB")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9000")
	t.Setenv("WEBUI_PWD", "secret")
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("ALLOW_SELF_SIGNED_CERTS", "yes")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.OpenAIBaseURL != "http://localhost:8080/v1" {
		t.Errorf("OpenAIBaseURL = %q", cfg.OpenAIBaseURL)
	}
	if cfg.Model != "gpt-4o" || cfg.PromptMaxTokens != 2000 || cfg.MaxFileSize != 5*BytesPerMB {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Addr() != "127.0.0.1:9000" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
	if cfg.HistoryEnabled() {
		t.Error("empty DATABASE_PATH should disable history")
	}
	if !cfg.AuthEnabled() || !cfg.AllowSelfSignedCerts {
		t.Error("auth and self-signed flags not applied")
	}
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		wantCode string
	}{
		{"unparseable int", "PROMPT_MAX_TOKENS", "lots", ErrCodeInvalidValue},
		{"zero budget", "PROMPT_MAX_TOKENS", "0", ErrCodeInvalidValue},
		{"negative chunk", "PROMPT_CHUNK_CHARS", "-5", ErrCodeInvalidValue},
		{"temperature out of range", "OPENAI_TEMPERATURE", "3.5", ErrCodeInvalidValue},
		{"bad bool", "ALLOW_SELF_SIGNED_CERTS", "maybe", ErrCodeInvalidValue},
		{"bad size", "MAX_FILE_SIZE", "huge", ErrCodeInvalidValue},
		{"port out of range", "PORT", "70000", ErrCodeInvalidValue},
		{"base url without scheme", "OPENAI_BASE_URL", "localhost:8080", ErrCodeInvalidURL},
		{"missing prompt file", "PROMPT_FILE", "/nonexistent/prompt.yaml", ErrCodePromptProfile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv("OPENAI_API_KEY", "sk-test")
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig()
			if got := GetErrorCode(err); got != tt.wantCode {
				t.Errorf("LoadConfig() error = %v (code %q), want code %q", err, got, tt.wantCode)
			}
		})
	}
}

func TestLoadConfig_PromptFile(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "prompt.yaml")
	profile := "title: Zinsausblick\nmodel: gpt-4o-mini\nbudget: 3000\ntemplate: |\n  Kurzer Ausblick.\n  {{context}}\n"
	if err := os.WriteFile(path, []byte(profile), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PROMPT_FILE", path)
	t.Setenv("OPENAI_MODEL", "gpt-4")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Title != "Zinsausblick" || cfg.PromptMaxTokens != 3000 {
		t.Errorf("profile not applied: title=%q budget=%d", cfg.Title, cfg.PromptMaxTokens)
	}
	if cfg.PromptTemplate != "Kurzer Ausblick.\n{{context}}" {
		t.Errorf("PromptTemplate = %q", cfg.PromptTemplate)
	}
	if cfg.Model != "gpt-4" {
		t.Errorf("Model = %q, environment should win over the profile", cfg.Model)
	}
}

func TestGetHTTPClient(t *testing.T) {
	client := GetHTTPClient(&Config{}, 5*time.Second)
	if client.Timeout != 5*time.Second || client.Transport != nil {
		t.Errorf("default client = %+v", client)
	}

	insecure := GetHTTPClient(&Config{AllowSelfSignedCerts: true}, time.Second)
	if insecure.Transport == nil {
		t.Fatal("expected custom transport for self-signed certs")
	}
}
