// Package telegram contains a minimal Bot API client covering the calls the
// prediction service needs: sending and editing channel messages, webhook
// registration, and an identity check. Rate-limit responses are surfaced as
// a typed error so the delivery queue can back off for the advertised
// interval.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

// RateLimitedError is returned when the API answers with error_code 429.
// RetryAfter carries the advertised minimum wait before the next attempt.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("telegram: rate limited, retry after %s", e.RetryAfter)
}

// APIError is a non-rate-limit failure reported by the Bot API.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// Client talks to the Telegram Bot API for a single bot token.
type Client struct {
	Token      string
	BaseURL    string // override for tests or self-hosted Bot API servers
	HTTPClient *http.Client
}

// New returns a client for the given bot token.
func New(token string) *Client {
	return &Client{Token: token}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (c *Client) endpoint(method string) string {
	base := c.BaseURL
	if base == "" {
		base = defaultAPIBase
	}
	return strings.TrimRight(base, "/") + "/bot" + c.Token + "/" + method
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// call POSTs payload to the named Bot API method and unmarshals the result.
func (c *Client) call(ctx context.Context, method string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http().Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	var ar apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if !ar.OK {
		if ar.ErrorCode == http.StatusTooManyRequests {
			retry := time.Second
			if ar.Parameters != nil && ar.Parameters.RetryAfter > 0 {
				retry = time.Duration(ar.Parameters.RetryAfter) * time.Second
			}
			return &RateLimitedError{RetryAfter: retry}
		}
		return &APIError{Method: method, Code: ar.ErrorCode, Description: ar.Description}
	}
	if result != nil {
		if err := json.Unmarshal(ar.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

// SendMessage posts text to a chat and returns the new message id.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (int64, error) {
	payload := map[string]any{"chat_id": chatID, "text": text}
	var res struct {
		MessageID int64 `json:"message_id"`
	}
	if err := c.call(ctx, "sendMessage", payload, &res); err != nil {
		return 0, err
	}
	return res.MessageID, nil
}

// EditMessageText replaces the text of a previously sent message.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	payload := map[string]any{"chat_id": chatID, "message_id": messageID, "text": text}
	return c.call(ctx, "editMessageText", payload, nil)
}

// SetWebhook registers url as the update callback, limited to the message
// update types the engine consumes.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	payload := map[string]any{
		"url":             url,
		"allowed_updates": []string{"message", "edited_message", "channel_post", "edited_channel_post"},
	}
	return c.call(ctx, "setWebhook", payload, nil)
}

// GetMe returns the bot's username; used as a startup credential check.
func (c *Client) GetMe(ctx context.Context) (string, error) {
	var res struct {
		Username string `json:"username"`
	}
	if err := c.call(ctx, "getMe", map[string]any{}, &res); err != nil {
		return "", err
	}
	return res.Username, nil
}
