// Package llm asks an OpenAI-compatible chat model for trading decisions
// and turns its reply into typed actions.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/levtrader/internal/logger"
)

const (
	DefaultBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	DefaultModel   = "qwen3-max"
)

// retryBase is the first backoff step when the server gives no Retry-After.
var retryBase = 800 * time.Millisecond

const retryCap = 8 * time.Second

// ErrEmptyChoices is returned when a 2xx reply carries no message.
var ErrEmptyChoices = errors.New("llm: empty choices")

// StatusError is a non-2xx reply from the chat endpoint.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm: status=%d: %s", e.Code, e.Message)
}

func (e *StatusError) retryable() bool {
	switch e.Code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Client calls /chat/completions.
type Client struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	// MaxRetries bounds retries on 429 and 5xx. Zero means 2.
	MaxRetries int
	HTTPClient *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *Client) endpoint() string {
	url := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if url == "" {
		url = DefaultBaseURL
	}
	url = strings.TrimSuffix(url, "/chat/completions")
	return url + "/chat/completions"
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// Complete sends one system and one user message and returns the reply
// text. 429 and 5xx replies are retried, honouring Retry-After.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}
	model := c.Model
	if model == "" {
		model = DefaultModel
	}

	msgs := make([]chatMessage, 0, 2)
	if system != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: user})
	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("llm: encode request: %w", err)
	}

	url := c.endpoint()
	httpc := c.httpClient()
	logger.Debugf("[llm] POST %s model=%s auth=%s bytes=%d", url, model, maskKey(c.APIKey), len(body))

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		out, wait, err := c.do(ctx, httpc, url, body)
		if err == nil {
			return out, nil
		}
		lastErr = err

		var se *StatusError
		if !errors.As(err, &se) || !se.retryable() || attempt == maxRetries {
			break
		}
		if wait <= 0 {
			wait = retryBase << attempt
			if wait > retryCap {
				wait = retryCap
			}
		}
		logger.Warnf("[llm] %v, retrying in %s", err, wait)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	return "", lastErr
}

func (c *Client) do(ctx context.Context, httpc *http.Client, url string, body []byte) (string, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := httpc.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("llm: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 2 {
		var r chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
			return "", 0, fmt.Errorf("llm: decode response: %w", err)
		}
		if len(r.Choices) == 0 {
			return "", 0, ErrEmptyChoices
		}
		return strings.TrimSpace(r.Choices[0].Message.Content), 0, nil
	}

	var eresp errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&eresp)
	msg := strings.TrimSpace(eresp.Error.Message)
	if msg == "" {
		msg = resp.Status
	}

	var wait time.Duration
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, perr := strconv.Atoi(ra); perr == nil && secs > 0 {
			wait = time.Duration(secs) * time.Second
		}
	}
	return "", wait, &StatusError{Code: resp.StatusCode, Message: msg}
}

// maskKey keeps the last four characters.
func maskKey(key string) string {
	if key == "" {
		return "none"
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
