package promptbudget

import (
	"errors"
	"fmt"
)

// ErrConfiguration is matched by every *ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("prompt configuration error")

// ConfigurationError reports a deployment mistake: a malformed template, a
// non-positive budget, or a template whose own tokens already use up the
// budget. It is raised before any context is counted.
type ConfigurationError struct {
	Reason string

	// Overhead and Budget are set when the template does not fit.
	Overhead int
	Budget   int
}

func (e *ConfigurationError) Error() string {
	if e.Budget > 0 || e.Overhead > 0 {
		return fmt.Sprintf("%s: template needs %d tokens, budget is %d", e.Reason, e.Overhead, e.Budget)
	}
	return e.Reason
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
