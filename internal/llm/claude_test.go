// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// Override backoff to avoid real sleeps in retry tests.
	claudeBackoffBase = time.Millisecond
	os.Exit(m.Run())
}

// withClaudeServer points the client at a test server for one test.
func withClaudeServer(t *testing.T, handler http.HandlerFunc) *ClaudeClient {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	orig := claudeAPIURL
	claudeAPIURL = ts.URL
	t.Cleanup(func() { claudeAPIURL = orig })

	return &ClaudeClient{APIKey: "test-key", Model: "test-model", MaxRetries: 2}
}

func claudeTextResponse(text string) string {
	return `{"content": [{"type": "text", "text": ` + jsonString(text) + `}]}`
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestClaudeComplete(t *testing.T) {
	var gotReq claudeRequest
	client := withClaudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(claudeTextResponse("Problem: X\nRationale: Y")))
	})

	text, err := client.Complete(context.Background(), "identify a problem", Options{Temperature: 0.7, MaxTokens: 1000})
	require.NoError(t, err)
	assert.Equal(t, "Problem: X\nRationale: Y", text)

	assert.Equal(t, "test-model", gotReq.Model)
	assert.Equal(t, 1000, gotReq.MaxTokens)
	assert.InDelta(t, 0.7, gotReq.Temperature, 1e-6)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Equal(t, "identify a problem", gotReq.Messages[0].Content)
}

func TestClaudeCompleteConcatenatesTextBlocks(t *testing.T) {
	client := withClaudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content": [
			{"type": "text", "text": "part one "},
			{"type": "thinking", "text": "ignored"},
			{"type": "text", "text": "part two"}
		]}`))
	})

	text, err := client.Complete(context.Background(), "p", Options{})
	require.NoError(t, err)
	assert.Equal(t, "part one part two", text)
}

func TestClaudeCompleteRetriesRateLimit(t *testing.T) {
	calls := 0
	client := withClaudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(claudeTextResponse("ok")))
	})

	text, err := client.Complete(context.Background(), "p", Options{})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 3, calls)
}

func TestClaudeCompleteRetriesServerError(t *testing.T) {
	calls := 0
	client := withClaudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(claudeTextResponse("ok")))
	})

	_, err := client.Complete(context.Background(), "p", Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestClaudeCompleteExhaustsRetries(t *testing.T) {
	calls := 0
	client := withClaudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Complete(context.Background(), "p", Options{})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, 3, calls) // initial attempt plus MaxRetries
}

func TestClaudeCompleteFatalNotRetried(t *testing.T) {
	calls := 0
	client := withClaudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "invalid api key"}}`))
	})

	_, err := client.Complete(context.Background(), "p", Options{})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Contains(t, err.Error(), "invalid api key")
	assert.Equal(t, 1, calls)
}

func TestClaudeCompleteEmptyContentIsFatal(t *testing.T) {
	client := withClaudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content": []}`))
	})

	_, err := client.Complete(context.Background(), "p", Options{})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestClaudeCompleteDefaultsMaxTokens(t *testing.T) {
	var gotReq claudeRequest
	client := withClaudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(claudeTextResponse("ok")))
	})

	_, err := client.Complete(context.Background(), "p", Options{})
	require.NoError(t, err)
	assert.Equal(t, 4096, gotReq.MaxTokens)
}

func TestClaudeCompleteCancelledContext(t *testing.T) {
	client := withClaudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, "p", Options{})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

// --- error taxonomy ---

func TestErrorClassification(t *testing.T) {
	base := errors.New("boom")

	assert.True(t, IsTransient(&TransientError{Err: base}))
	assert.False(t, IsFatal(&TransientError{Err: base}))
	assert.True(t, IsFatal(&FatalError{Err: base}))
	assert.False(t, IsTransient(&FatalError{Err: base}))
	assert.False(t, IsTransient(base))
	assert.False(t, IsFatal(base))

	assert.ErrorIs(t, &TransientError{Err: base}, base)
	assert.ErrorIs(t, &FatalError{Err: base}, base)
}

func TestClassifyOpenAIError(t *testing.T) {
	rateLimited := &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}
	assert.True(t, IsTransient(classifyOpenAIError(rateLimited)))

	serverErr := &openai.APIError{HTTPStatusCode: http.StatusBadGateway}
	assert.True(t, IsTransient(classifyOpenAIError(serverErr)))

	authErr := &openai.APIError{HTTPStatusCode: http.StatusUnauthorized}
	assert.True(t, IsFatal(classifyOpenAIError(authErr)))

	netErr := errors.New("connection reset")
	assert.True(t, IsTransient(classifyOpenAIError(netErr)))
}
