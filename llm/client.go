// Package llm sends assembled prompts to an OpenAI compatible chat
// completion endpoint.
package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultTimeout bounds a single completion call.
const DefaultTimeout = 120 * time.Second

// Request is one completion call.
type Request struct {
	Prompt          string
	Model           string
	Temperature     float32
	MaxOutputTokens int
}

// Response is the generated text plus the usage reported by the API.
type Response struct {
	Text             string
	Model            string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

// Completer produces a completion for a prompt. Implementations make a
// single attempt; retries are the caller's decision.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Config configures Client.
type Config struct {
	APIKey string

	// BaseURL overrides the OpenAI endpoint, e.g. for a proxy or Azure
	// compatible gateway. Empty keeps the default.
	BaseURL string

	// HTTPClient carries TLS settings. Its timeout is not relied upon;
	// Timeout below is applied per call through the context.
	HTTPClient *http.Client

	Timeout time.Duration
}

// Client implements Completer with go-openai.
type Client struct {
	api     *openai.Client
	timeout time.Duration
}

// NewClient builds a Client. The API key is required.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("llm: API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		api:     openai.NewClientWithConfig(clientConfig),
		timeout: timeout,
	}, nil
}

// Complete sends the prompt as a single user message. Any error, including
// a timeout or an empty answer, is returned as *CompletionFailure.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
		Temperature: req.Temperature,
	}
	if req.MaxOutputTokens > 0 {
		chatReq.MaxTokens = req.MaxOutputTokens
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, newFailure(req.Model, time.Since(start), err)
	}
	if len(resp.Choices) == 0 {
		return nil, newFailure(req.Model, time.Since(start), ErrNoChoices)
	}

	choice := resp.Choices[0]
	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return nil, newFailure(req.Model, time.Since(start), ErrEmptyCompletion)
	}

	model := resp.Model
	if model == "" {
		model = req.Model
	}
	return &Response{
		Text:             text,
		Model:            model,
		FinishReason:     string(choice.FinishReason),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// CompleteText is a convenience for callers that only need the text.
func CompleteText(ctx context.Context, c Completer, req Request) (string, error) {
	resp, err := c.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Ensure Client satisfies Completer.
var _ Completer = (*Client)(nil)

func newFailure(model string, elapsed time.Duration, err error) *CompletionFailure {
	f := &CompletionFailure{Model: model, Elapsed: elapsed, Err: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		f.Timeout = true
	case errors.As(err, &apiErr):
		f.StatusCode = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		f.StatusCode = reqErr.HTTPStatusCode
	}
	return f
}
