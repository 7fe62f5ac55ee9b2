package validation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"outlook_backend/core"
)

// DefaultAPIBaseURL is used when OPENAI_BASE_URL is empty.
const DefaultAPIBaseURL = "https://api.openai.com/v1"

// ConnectivityResult represents the result of a connectivity check.
type ConnectivityResult struct {
	Reachable  bool
	StatusCode int
	Message    string
	Latency    time.Duration
	Error      error
}

// ConnectivityChecker probes the completion endpoint by listing models,
// which needs a valid key but costs no tokens.
type ConnectivityChecker struct {
	timeout time.Duration
}

// NewConnectivityChecker creates a checker with a 10 second timeout.
func NewConnectivityChecker() *ConnectivityChecker {
	return &ConnectivityChecker{timeout: 10 * time.Second}
}

// WithTimeout sets the timeout for connectivity checks.
func (c *ConnectivityChecker) WithTimeout(timeout time.Duration) *ConnectivityChecker {
	c.timeout = timeout
	return c
}

// CheckAPI sends GET {base}/models with the configured key.
func (c *ConnectivityChecker) CheckAPI(ctx context.Context, cfg *core.Config) ConnectivityResult {
	base := cfg.OpenAIBaseURL
	if base == "" {
		base = DefaultAPIBaseURL
	}
	url := base + "/models"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ConnectivityResult{Message: "Failed to create request", Error: core.ErrAPIUnreachable(base, err.Error())}
	}
	req.Header.Set("Authorization", "Bearer "+cfg.OpenAIAPIKey)

	start := time.Now()
	resp, err := core.GetHTTPClient(cfg, c.timeout).Do(req)
	latency := time.Since(start)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ConnectivityResult{
				Message: "Connection timed out",
				Latency: latency,
				Error:   core.ErrAPIUnreachable(base, fmt.Sprintf("connection timed out after %v", c.timeout)),
			}
		}
		return ConnectivityResult{Message: "Connection failed", Latency: latency, Error: core.ErrAPIUnreachable(base, err.Error())}
	}
	defer resp.Body.Close()

	result := ConnectivityResult{
		Reachable:  true,
		StatusCode: resp.StatusCode,
		Latency:    latency,
		Message:    fmt.Sprintf("API reachable (status: %d)", resp.StatusCode),
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		result.Message = "API key rejected"
		result.Error = core.ErrAPIAuthFailed(base, resp.StatusCode)
	}
	return result
}
