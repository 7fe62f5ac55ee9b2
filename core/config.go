package core

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultDatabasePath is used when DATABASE_PATH is unset. Setting it to an
// empty value disables the generation history.
const DefaultDatabasePath = "./data/outlook.db"

// Config holds all configuration values
type Config struct {
	// OpenAI
	OpenAIAPIKey    string
	OpenAIBaseURL   string // Empty means the public OpenAI endpoint
	Model           string
	Temperature     float32
	MaxOutputTokens int
	AITimeout       time.Duration

	// Prompt
	PromptFile        string // Optional YAML profile
	Title             string
	Description       string
	PromptTemplate    string
	PromptMaxTokens   int    // Token budget for the assembled prompt
	PromptChunkChars  int    // Characters removed per shrink step
	TokenizerEncoding string // Overrides the encoding derived from Model

	// Uploads
	MaxFileSize    int64
	MaxUploadFiles int

	// Web UI
	Host               string
	Port               int
	WebUIPassword      string
	DownloadTTL        time.Duration
	RateLimitPerMinute int // 0 disables the limit

	// History
	DatabasePath     string        // Empty disables history
	HistoryRetention time.Duration // 0 keeps records forever

	LogFile              string
	AllowSelfSignedCerts bool
}

// LoadConfig reads the environment, and the prompt profile when PROMPT_FILE
// is set. Every problem found is reported as a *ConfigError.
func LoadConfig() (*Config, error) {
	var missingVars []string
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		missingVars = append(missingVars, "OPENAI_API_KEY")
	}
	if len(missingVars) > 0 {
		return nil, ErrMissingConfig(missingVars...)
	}

	profile := DefaultPromptProfile()
	promptFile := GetEnvOrDefault("PROMPT_FILE", "")
	if promptFile != "" {
		p, err := LoadPromptProfile(promptFile)
		if err != nil {
			return nil, err
		}
		profile = p
	}

	var env EnvReader
	cfg := &Config{
		OpenAIAPIKey:    apiKey,
		OpenAIBaseURL:   strings.TrimRight(GetEnvOrDefault("OPENAI_BASE_URL", ""), "/"),
		Model:           GetEnvOrDefault("OPENAI_MODEL", profile.Model),
		Temperature:     float32(env.Float("OPENAI_TEMPERATURE", *profile.Temperature)),
		MaxOutputTokens: env.Int("OPENAI_MAX_TOKENS", profile.MaxOutputTokens),
		AITimeout:       env.Seconds("AI_TIMEOUT", 120),

		PromptFile:        promptFile,
		Title:             profile.Title,
		Description:       profile.Description,
		PromptTemplate:    profile.Template,
		PromptMaxTokens:   env.Int("PROMPT_MAX_TOKENS", profile.Budget),
		PromptChunkChars:  env.Int("PROMPT_CHUNK_CHARS", profile.ChunkChars),
		TokenizerEncoding: GetEnvOrDefault("TOKENIZER_ENCODING", ""),

		MaxFileSize:    env.Bytes("MAX_FILE_SIZE", 25*BytesPerMB),
		MaxUploadFiles: env.Int("MAX_UPLOAD_FILES", 10),

		Host:               GetEnvOrDefault("HOST", ""),
		Port:               env.Int("PORT", 8501),
		WebUIPassword:      os.Getenv("WEBUI_PWD"),
		DownloadTTL:        env.Seconds("DOWNLOAD_TTL", 3600),
		RateLimitPerMinute: env.Int("RATE_LIMIT_PER_MINUTE", 6),

		DatabasePath:     databasePath(),
		HistoryRetention: time.Duration(env.Int("HISTORY_RETENTION_DAYS", 90)) * 24 * time.Hour,

		LogFile:              GetEnvOrDefault("LOG_FILE", "app.log"),
		AllowSelfSignedCerts: env.Bool("ALLOW_SELF_SIGNED_CERTS", false),
	}
	if err := env.Err(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and formats that the environment parser cannot.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(c.PromptMaxTokens > 0, "PROMPT_MAX_TOKENS must be positive, got %d", c.PromptMaxTokens)
	check(c.PromptChunkChars > 0, "PROMPT_CHUNK_CHARS must be positive, got %d", c.PromptChunkChars)
	check(c.MaxOutputTokens > 0, "OPENAI_MAX_TOKENS must be positive, got %d", c.MaxOutputTokens)
	check(c.Temperature >= 0 && c.Temperature <= 2, "OPENAI_TEMPERATURE must be between 0 and 2, got %g", c.Temperature)
	check(c.AITimeout > 0, "AI_TIMEOUT must be positive")
	check(c.MaxFileSize > 0, "MAX_FILE_SIZE must be positive")
	check(c.MaxUploadFiles > 0, "MAX_UPLOAD_FILES must be positive, got %d", c.MaxUploadFiles)
	check(c.Port > 0 && c.Port < 65536, "PORT must be between 1 and 65535, got %d", c.Port)
	check(c.DownloadTTL > 0, "DOWNLOAD_TTL must be positive")
	check(c.RateLimitPerMinute >= 0, "RATE_LIMIT_PER_MINUTE must not be negative")
	check(c.HistoryRetention >= 0, "HISTORY_RETENTION_DAYS must not be negative")
	if len(problems) > 0 {
		return ErrInvalidValue(strings.Join(problems, "; "))
	}

	if c.OpenAIBaseURL != "" {
		if err := ValidateBaseURL(c.OpenAIBaseURL); err != nil {
			return ErrInvalidURL("OPENAI_BASE_URL", c.OpenAIBaseURL, err.Error())
		}
	}
	return nil
}

// ValidateBaseURL accepts absolute http(s) URLs with a host.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

// Addr returns the listen address for the web UI.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// HistoryEnabled reports whether generations are recorded.
func (c *Config) HistoryEnabled() bool {
	return c.DatabasePath != ""
}

// AuthEnabled reports whether the web UI asks for a password.
func (c *Config) AuthEnabled() bool {
	return c.WebUIPassword != ""
}

// GetHTTPClient returns an HTTP client configured with TLS settings
func GetHTTPClient(cfg *Config, timeout time.Duration) *http.Client {
	client := &http.Client{
		Timeout: timeout,
	}

	if cfg.AllowSelfSignedCerts {
		client.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return client
}

func databasePath() string {
	value, ok := os.LookupEnv("DATABASE_PATH")
	if !ok {
		return DefaultDatabasePath
	}
	return strings.TrimSpace(value)
}
