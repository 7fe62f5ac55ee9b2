package core

import (
	"errors"
	"fmt"
)

// ConfigError represents a configuration-related error with actionable instructions.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeEnvFileMissing   = "ENV_FILE_MISSING"
	ErrCodeMissingConfig    = "MISSING_CONFIG"
	ErrCodeInvalidValue     = "INVALID_VALUE"
	ErrCodeInvalidURL       = "INVALID_URL"
	ErrCodePromptProfile    = "PROMPT_PROFILE"
	ErrCodePromptTemplate   = "PROMPT_TEMPLATE"
	ErrCodeTemplateOverflow = "TEMPLATE_EXCEEDS_BUDGET"
	ErrCodeDatabasePath     = "DATABASE_PATH"
	ErrCodeAPIUnreachable   = "API_UNREACHABLE"
	ErrCodeAPIAuthFailed    = "API_AUTH_FAILED"
)

// ErrEnvFileMissing returns an error for a missing .env file.
func ErrEnvFileMissing(path string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeEnvFileMissing,
		Message: fmt.Sprintf("Configuration file not found: %s", path),
		Action:  "Copy .env.example to .env and set OPENAI_API_KEY",
	}
}

// ErrMissingConfig returns an error naming every missing required variable.
func ErrMissingConfig(varNames ...string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("missing required environment variables: %v", varNames),
		Action:  "See .env.example for configuration template",
	}
}

// ErrInvalidValue returns an error for environment values that could not be parsed.
func ErrInvalidValue(details string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf("Invalid configuration values: %s", details),
		Action:  "Fix the listed variables in your .env file",
	}
}

// ErrInvalidURL returns an error for a malformed endpoint URL.
func ErrInvalidURL(varName, url, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidURL,
		Message: fmt.Sprintf("Invalid %s '%s': %s", varName, url, reason),
		Action:  fmt.Sprintf("Set %s to a valid URL (e.g., https://api.openai.com/v1) or leave it empty", varName),
	}
}

// ErrPromptProfile returns an error for an unreadable or malformed prompt file.
func ErrPromptProfile(path string, err error) *ConfigError {
	return &ConfigError{
		Code:    ErrCodePromptProfile,
		Message: fmt.Sprintf("Cannot load prompt profile %s: %v", path, err),
		Action:  "Check PROMPT_FILE or unset it to use the built-in prompt",
	}
}

// ErrPromptTemplate returns an error for a template without exactly one placeholder.
func ErrPromptTemplate(reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodePromptTemplate,
		Message: fmt.Sprintf("Invalid prompt template: %s", reason),
		Action:  "The template must contain the {{context}} placeholder exactly once",
	}
}

// ErrTemplateOverflow returns an error when the template alone does not fit the budget.
func ErrTemplateOverflow(overhead, budget int) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeTemplateOverflow,
		Message: fmt.Sprintf("Prompt template needs %d tokens but the budget is %d", overhead, budget),
		Action:  "Raise PROMPT_MAX_TOKENS or shorten the prompt template",
	}
}

// ErrDatabasePath returns an error when the history database location is unusable.
func ErrDatabasePath(path string, err error) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeDatabasePath,
		Message: fmt.Sprintf("Cannot use database path %s: %v", path, err),
		Action:  "Set DATABASE_PATH to a writable location, or to an empty value to disable history",
	}
}

// ErrAPIUnreachable returns an error when the completion endpoint cannot be reached.
func ErrAPIUnreachable(url, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeAPIUnreachable,
		Message: fmt.Sprintf("Cannot connect to %s: %s", url, reason),
		Action:  "Check OPENAI_BASE_URL and your network. For self-signed certificates, set ALLOW_SELF_SIGNED_CERTS=true",
	}
}

// ErrAPIAuthFailed returns an error when the endpoint rejects the API key.
func ErrAPIAuthFailed(url string, status int) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeAPIAuthFailed,
		Message: fmt.Sprintf("%s rejected the API key (status %d)", url, status),
		Action:  "Verify OPENAI_API_KEY is correct and has not expired",
	}
}

// IsConfigError checks if an error is a ConfigError and returns it if so
func IsConfigError(err error) (*ConfigError, bool) {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error if it's a ConfigError
func GetErrorCode(err error) string {
	if configErr, ok := IsConfigError(err); ok {
		return configErr.Code
	}
	return ""
}
