// Package anthropic wraps the official SDK as a completion backend for
// case extraction. The SDK's internal retries are disabled so the
// extraction gateway owns retry policy and sees every rate-limit signal.
package anthropic

import (
	"context"
	"errors"
	"net/http"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/meridian-legal/casebook-cli/internal/resilience"
)

const (
	defaultModel     = "claude-sonnet-4-5-20250929"
	defaultMaxTokens = 4096

	// Anthropic returns 529 when the API itself is overloaded.
	statusOverloaded = 529
)

// Client defines the Anthropic operations the extraction pipeline uses.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
	Complete(ctx context.Context, prompt string) (string, error)
}

// MessageRequest is our own request type for CreateMessage.
type MessageRequest struct {
	Model       string
	MaxTokens   int64
	System      string
	Messages    []Message
	Temperature *float64
}

// Message represents a single conversational message.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// MessageResponse is our own response type from CreateMessage.
type MessageResponse struct {
	ID           string
	Model        string
	Content      []ContentBlock
	StopReason   string
	StopSequence string
	Usage        TokenUsage
}

// ContentBlock represents a block of content in a response.
type ContentBlock struct {
	Type string
	Text string
}

// Text concatenates the text blocks of the response.
func (r *MessageResponse) Text() string {
	var out string
	for _, b := range r.Content {
		if b.Type == "text" {
			out += b.Text
		}
	}
	return out
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

// Option configures the client.
type Option func(*sdkClient)

// WithModel overrides the default model used by Complete.
func WithModel(model string) Option {
	return func(c *sdkClient) {
		c.model = model
	}
}

// WithMaxTokens overrides the default max tokens used by Complete.
func WithMaxTokens(n int64) Option {
	return func(c *sdkClient) {
		c.maxTokens = n
	}
}

// WithTemperature sets the sampling temperature used by Complete.
func WithTemperature(t float64) Option {
	return func(c *sdkClient) {
		c.temperature = &t
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(c *sdkClient) {
		c.reqOpts = append(c.reqOpts, option.WithBaseURL(url))
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *sdkClient) {
		c.reqOpts = append(c.reqOpts, option.WithHTTPClient(hc))
	}
}

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client      sdk.Client
	model       string
	maxTokens   int64
	temperature *float64
	reqOpts     []option.RequestOption
}

// NewClient creates a new Anthropic client backed by the SDK.
func NewClient(apiKey string, opts ...Option) Client {
	c := &sdkClient{
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
		reqOpts: []option.RequestOption{
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(0),
		},
	}
	for _, o := range opts {
		o(c)
	}
	c.client = sdk.NewClient(c.reqOpts...)
	return c
}

func (c *sdkClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  toSDKMessages(req.Messages),
	}

	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(classify(err), "anthropic: create message")
	}

	return fromSDKMessage(msg), nil
}

// Complete sends the prompt as a single user message using the
// configured model and returns the response text.
func (c *sdkClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.CreateMessage(ctx, MessageRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// classify maps SDK failures onto the retry taxonomy. 429 and 529 are
// rate-limit signals (the SDK does not surface a usable wait hint);
// 5xx and timeouts are transient.
func classify(err error) error {
	var apierr *sdk.Error
	if !errors.As(err, &apierr) {
		return err
	}
	switch {
	case apierr.StatusCode == http.StatusTooManyRequests,
		apierr.StatusCode == statusOverloaded:
		return resilience.NewRateLimitError(err, 0)
	case resilience.IsTransientHTTPStatus(apierr.StatusCode):
		return resilience.NewTransientError(err, apierr.StatusCode)
	default:
		return err
	}
}

// --- SDK type conversion helpers ---

func toSDKMessages(msgs []Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, len(msgs))
	for i, m := range msgs {
		block := sdk.NewTextBlock(m.Content)
		switch m.Role {
		case "assistant":
			out[i] = sdk.NewAssistantMessage(block)
		default:
			out[i] = sdk.NewUserMessage(block)
		}
	}
	return out
}

func fromSDKMessage(msg *sdk.Message) *MessageResponse {
	blocks := make([]ContentBlock, 0, len(msg.Content))
	for _, b := range msg.Content {
		blocks = append(blocks, ContentBlock{
			Type: b.Type,
			Text: b.Text,
		})
	}

	return &MessageResponse{
		ID:           msg.ID,
		Model:        string(msg.Model),
		Content:      blocks,
		StopReason:   string(msg.StopReason),
		StopSequence: msg.StopSequence,
		Usage: TokenUsage{
			InputTokens:              msg.Usage.InputTokens,
			OutputTokens:             msg.Usage.OutputTokens,
			CacheCreationInputTokens: msg.Usage.CacheCreationInputTokens,
			CacheReadInputTokens:     msg.Usage.CacheReadInputTokens,
		},
	}
}
