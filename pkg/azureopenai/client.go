// Package azureopenai provides a chat-completions client for Azure OpenAI
// deployments, used as a completion backend for case extraction. The client
// never retries on its own; failures are classified onto the shared retry
// taxonomy so the extraction gateway decides what happens next. Azure sends
// an integer-seconds Retry-After header on 429, which is carried through as
// the wait hint.
package azureopenai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/meridian-legal/casebook-cli/internal/resilience"
)

const (
	defaultAPIVersion = "2024-02-01"
	defaultMaxTokens  = 4096
)

// Client performs chat completions against an Azure OpenAI deployment.
type Client interface {
	ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error)
	Complete(ctx context.Context, prompt string) (string, error)
}

// ChatCompletionRequest is the request body for the chat completions call.
// The deployment in the URL selects the model, so the body carries none.
type ChatCompletionRequest struct {
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

// Message represents a single message in the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse is the response body from the chat completions call.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice is a single completion choice.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Option configures the client.
type Option func(*httpClient)

// WithAPIVersion overrides the default api-version query parameter.
func WithAPIVersion(version string) Option {
	return func(c *httpClient) {
		c.apiVersion = version
	}
}

// WithMaxTokens overrides the default completion token limit.
func WithMaxTokens(n int) Option {
	return func(c *httpClient) {
		c.maxTokens = n
	}
}

// WithTemperature sets the sampling temperature for Complete calls.
func WithTemperature(t float64) Option {
	return func(c *httpClient) {
		c.temperature = &t
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	endpoint    string
	apiKey      string
	deployment  string
	apiVersion  string
	maxTokens   int
	temperature *float64
	http        *http.Client
}

// NewClient creates an Azure OpenAI client for a single deployment.
// The endpoint is the resource URL, e.g. https://myresource.openai.azure.com.
func NewClient(endpoint, apiKey, deployment string, opts ...Option) Client {
	c := &httpClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		deployment: deployment,
		apiVersion: defaultAPIVersion,
		maxTokens:  defaultMaxTokens,
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "azureopenai: marshal request")
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s", c.endpoint, c.deployment, c.apiVersion)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "azureopenai: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "azureopenai: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "azureopenai: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp, respBody)
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "azureopenai: unmarshal response")
	}

	return &result, nil
}

// Complete sends the prompt as a single user message using the configured
// token limit and temperature, and returns the first choice's text.
func (c *httpClient) Complete(ctx context.Context, prompt string) (string, error) {
	maxTokens := c.maxTokens
	resp, err := c.ChatCompletion(ctx, ChatCompletionRequest{
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("azureopenai: response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyStatus maps a non-200 response onto the retry taxonomy. 429 becomes
// a rate-limit error carrying the Retry-After hint; retryable server statuses
// become transient errors; everything else is permanent.
func classifyStatus(resp *http.Response, body []byte) error {
	base := eris.Errorf("azureopenai: unexpected status %d: %s", resp.StatusCode, string(body))
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return resilience.NewRateLimitError(base, retryAfterHint(resp))
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return resilience.NewTransientError(base, resp.StatusCode)
	default:
		return base
	}
}

// retryAfterHint parses the integer-seconds Retry-After header. Zero means
// no usable hint.
func retryAfterHint(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
