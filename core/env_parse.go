package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnvOrDefault returns the trimmed value of an environment variable or
// defaultValue when it is unset or blank.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// EnvReader reads typed values from the environment and remembers every
// value that was set but could not be parsed. A malformed value never
// silently turns into a default: callers check Err once after reading.
type EnvReader struct {
	invalid []string
}

// Int parses key as an integer.
func (r *EnvReader) Int(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		r.fail(key, value)
		return defaultValue
	}
	return n
}

// Float parses key as a float64.
func (r *EnvReader) Float(key string, defaultValue float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.fail(key, value)
		return defaultValue
	}
	return f
}

// Bool accepts true/1/yes/on and false/0/no/off, case-insensitive.
func (r *EnvReader) Bool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		r.fail(key, value)
		return defaultValue
	}
}

// Seconds parses key as a whole number of seconds.
func (r *EnvReader) Seconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(r.Int(key, defaultSeconds)) * time.Second
}

// Bytes parses key as a byte size ("26214400", "25MB", "512 KB").
func (r *EnvReader) Bytes(key string, defaultValue int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	n, err := ParseByteSize(value)
	if err != nil {
		r.fail(key, value)
		return defaultValue
	}
	return n
}

// Err reports every malformed variable seen so far.
func (r *EnvReader) Err() error {
	if len(r.invalid) == 0 {
		return nil
	}
	return ErrInvalidValue(strings.Join(r.invalid, ", "))
}

func (r *EnvReader) fail(key, value string) {
	r.invalid = append(r.invalid, fmt.Sprintf("%s=%q", key, value))
}
