// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// claudeAPIURL is the Claude Messages API endpoint. Package-level var
// for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// claudeBackoffBase controls the base duration for exponential backoff
// on transient failures. Tests override this to avoid real sleeps.
var claudeBackoffBase = time.Second

// ClaudeClient calls the Claude Messages API.
type ClaudeClient struct {
	APIKey     string
	Model      string
	MaxRetries int
	HTTPClient *http.Client
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float32         `json:"temperature,omitempty"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Complete sends the prompt as a single user message and returns the
// concatenated text blocks of the response. Rate limiting and server
// errors are retried with exponential backoff up to MaxRetries; other
// API errors are fatal.
func (c *ClaudeClient) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * claudeBackoffBase
			select {
			case <-ctx.Done():
				return "", &TransientError{Err: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		text, err := c.completeOnce(ctx, prompt, opts)
		if err == nil {
			return text, nil
		}
		if !IsTransient(err) {
			return "", err
		}
		lastErr = err
	}
	return "", &TransientError{Err: fmt.Errorf("after %d retries: %w", maxRetries, lastErr)}
}

func (c *ClaudeClient) completeOnce(ctx context.Context, prompt string, opts Options) (string, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	reqBody := claudeRequest{
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: opts.Temperature,
		Messages: []claudeMessage{
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", &FatalError{Err: fmt.Errorf("marshaling request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", &FatalError{Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", &TransientError{Err: fmt.Errorf("calling Claude API: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		apiErr := fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", &TransientError{Err: apiErr}
		}
		return "", &FatalError{Err: apiErr}
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", &TransientError{Err: fmt.Errorf("decoding Claude response: %w", err)}
	}

	var b bytes.Buffer
	for _, block := range cResp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", &FatalError{Err: fmt.Errorf("no text content in Claude API response")}
	}
	return b.String(), nil
}
