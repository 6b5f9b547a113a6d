package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-legal/casebook-cli/internal/resilience"
)

// newTestClient creates a client pointing at a local test server.
func newTestClient(baseURL string, opts ...Option) Client {
	return NewClient("test-key", append([]Option{WithBaseURL(baseURL)}, opts...)...)
}

func messageJSON(text string) map[string]any {
	return map[string]any{
		"id":   "msg_test_001",
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
		"model":       "claude-sonnet-4-5-20250929",
		"stop_reason": "end_turn",
		"usage": map[string]any{
			"input_tokens":                10,
			"output_tokens":               5,
			"cache_creation_input_tokens": 0,
			"cache_read_input_tokens":     0,
		},
	}
}

func errorJSON(errType, message string) map[string]any {
	return map[string]any{
		"type": "error",
		"error": map[string]any{
			"type":    errType,
			"message": message,
		},
	}
}

func TestSDKClient_CreateMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(messageJSON("Hello from test")) //nolint:errcheck
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	resp, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 1024,
		Messages:  []Message{{Role: "user", Content: "Hello"}},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "msg_test_001", resp.ID)
	assert.Equal(t, "claude-sonnet-4-5-20250929", resp.Model)
	assert.Equal(t, "end_turn", resp.StopReason)
	require.Len(t, resp.Content, 1)
	assert.Equal(t, "Hello from test", resp.Content[0].Text)
	assert.Equal(t, int64(10), resp.Usage.InputTokens)
	assert.Equal(t, int64(5), resp.Usage.OutputTokens)
}

func TestSDKClient_CreateMessage_WithSystemAndTemp(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "Extract the cases")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(messageJSON("Acknowledged")) //nolint:errcheck
	}))
	defer ts.Close()

	temp := 0.5
	client := newTestClient(ts.URL)
	resp, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:       "claude-sonnet-4-5-20250929",
		MaxTokens:   128,
		System:      "Extract the cases from the page.",
		Messages:    []Message{{Role: "user", Content: "Ack"}},
		Temperature: &temp,
	})
	require.NoError(t, err)
	assert.Equal(t, "Acknowledged", resp.Text())
}

func TestSDKClient_Complete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-haiku-4-5-20251001", body["model"])
		assert.Equal(t, float64(512), body["max_tokens"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(messageJSON(`[{"case_name": "Smith v. Jones"}]`)) //nolint:errcheck
	}))
	defer ts.Close()

	client := newTestClient(ts.URL, WithModel("claude-haiku-4-5-20251001"), WithMaxTokens(512))

	out, err := client.Complete(context.Background(), "PAGE 4\nSmith v. Jones\n")
	require.NoError(t, err)
	assert.Equal(t, `[{"case_name": "Smith v. Jones"}]`, out)
}

func TestSDKClient_Complete_RateLimited(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(errorJSON("rate_limit_error", "Rate limit exceeded")) //nolint:errcheck
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	_, err := client.Complete(context.Background(), "prompt")
	require.Error(t, err)

	_, ok := resilience.AsRateLimit(err)
	assert.True(t, ok)
}

func TestSDKClient_Complete_Overloaded(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusOverloaded)
		json.NewEncoder(w).Encode(errorJSON("overloaded_error", "Overloaded")) //nolint:errcheck
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	_, err := client.Complete(context.Background(), "prompt")
	require.Error(t, err)

	_, ok := resilience.AsRateLimit(err)
	assert.True(t, ok)
}

func TestSDKClient_Complete_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(errorJSON("api_error", "Internal server error")) //nolint:errcheck
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	_, err := client.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestSDKClient_Complete_BadRequest(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(errorJSON("invalid_request_error", "max_tokens required")) //nolint:errcheck
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	_, err := client.Complete(context.Background(), "prompt")
	require.Error(t, err)

	_, rateLimited := resilience.AsRateLimit(err)
	assert.False(t, rateLimited)
	assert.False(t, resilience.IsTransient(err))
}

func TestSDKClient_CreateMessage_Error(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(errorJSON("api_error", "Internal server error")) //nolint:errcheck
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	_, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 1024,
		Messages:  []Message{{Role: "user", Content: "Hello"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: create message")
}
