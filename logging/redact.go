package logging

import (
	"regexp"
	"strings"
)

// RedactedPlaceholder replaces any value that looks like a credential.
const RedactedPlaceholder = "[REDACTED]"

var sensitivePatterns = []*regexp.Regexp{
	// OpenAI keys, legacy and project scoped
	regexp.MustCompile(`(?i)sk-[a-zA-Z0-9_-]{20,}`),
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`),
	regexp.MustCompile(`(?i)basic\s+[a-zA-Z0-9+/=]{8,}`),
	regexp.MustCompile(`(?i)password\s*[:=]\s*[^\s,;]{4,}`),
	regexp.MustCompile(`(?i)secret\s*[:=]\s*[^\s,;]{8,}`),
	regexp.MustCompile(`(?i)api_?key\s*[:=]\s*[^\s,;]{8,}`),
}

// Field names are matched by suffix so that "prompt_tokens" and friends
// stay readable while "openai_api_key" does not.
var sensitiveFieldSuffixes = []string{
	"API_KEY",
	"APIKEY",
	"PASSWORD",
	"PWD",
	"SECRET",
	"AUTHORIZATION",
	"ACCESS_TOKEN",
	"AUTH_TOKEN",
}

// RedactSensitiveData replaces credential-looking substrings in value.
func RedactSensitiveData(value string) string {
	if value == "" {
		return value
	}
	for _, p := range sensitivePatterns {
		value = p.ReplaceAllString(value, RedactedPlaceholder)
	}
	return value
}

// IsSensitiveField reports whether a field or env var name holds a secret.
func IsSensitiveField(name string) bool {
	upper := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	for _, suffix := range sensitiveFieldSuffixes {
		if strings.HasSuffix(upper, suffix) {
			return true
		}
	}
	return false
}

// ContainsSensitiveData reports whether RedactSensitiveData would change value.
func ContainsSensitiveData(value string) bool {
	for _, p := range sensitivePatterns {
		if p.MatchString(value) {
			return true
		}
	}
	return false
}
