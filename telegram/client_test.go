package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/appolinair2355/Apdepo/testutil"
)

func newTestClient(m *testutil.MockBotServer) *Client {
	c := New("12345:testtoken")
	c.BaseURL = m.URL
	return c
}

func TestSendMessage(t *testing.T) {
	m := testutil.NewMockBotServer(t)
	m.RespondOK("sendMessage", map[string]any{"message_id": 42})
	c := newTestClient(m)

	id, err := c.SendMessage(context.Background(), -100, "🔵745 🔵3K: statut :⏳")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if id != 42 {
		t.Errorf("message id = %d, want 42", id)
	}
}

func TestSendMessageRateLimited(t *testing.T) {
	m := testutil.NewMockBotServer(t)
	m.RespondRateLimited("sendMessage", 5)
	c := newTestClient(m)

	_, err := c.SendMessage(context.Background(), -100, "x")
	var rl *RateLimitedError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
	if rl.RetryAfter != 5*time.Second {
		t.Errorf("retry after = %v, want 5s", rl.RetryAfter)
	}
}

func TestSendMessageAPIError(t *testing.T) {
	m := testutil.NewMockBotServer(t)
	m.RespondError("sendMessage", 400, "Bad Request: chat not found")
	c := newTestClient(m)

	_, err := c.SendMessage(context.Background(), -100, "x")
	var ae *APIError
	if !errors.As(err, &ae) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if ae.Code != 400 {
		t.Errorf("code = %d, want 400", ae.Code)
	}
}

func TestEditMessageTextPayload(t *testing.T) {
	m := testutil.NewMockBotServer(t)
	var got map[string]any
	m.Handlers["editMessageText"] = func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": true})
	}
	c := newTestClient(m)

	if err := c.EditMessageText(context.Background(), -100, 42, "🔵745 🔵3K: statut :✅0️⃣"); err != nil {
		t.Fatalf("EditMessageText: %v", err)
	}
	if got["message_id"] != float64(42) || got["chat_id"] != float64(-100) {
		t.Errorf("payload = %v", got)
	}
	if got["text"] != "🔵745 🔵3K: statut :✅0️⃣" {
		t.Errorf("text = %v", got["text"])
	}
}

func TestSetWebhookAllowedUpdates(t *testing.T) {
	m := testutil.NewMockBotServer(t)
	var got map[string]any
	m.Handlers["setWebhook"] = func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": true})
	}
	c := newTestClient(m)

	if err := c.SetWebhook(context.Background(), "https://example.com/webhook"); err != nil {
		t.Fatalf("SetWebhook: %v", err)
	}
	allowed, _ := got["allowed_updates"].([]any)
	if len(allowed) != 4 {
		t.Errorf("allowed_updates = %v, want 4 entries", got["allowed_updates"])
	}
}

func TestGetMe(t *testing.T) {
	m := testutil.NewMockBotServer(t)
	m.RespondOK("getMe", map[string]any{"id": 1, "username": "apdepo_bot"})
	c := newTestClient(m)

	username, err := c.GetMe(context.Background())
	if err != nil {
		t.Fatalf("GetMe: %v", err)
	}
	if username != "apdepo_bot" {
		t.Errorf("username = %q", username)
	}
}

func TestUpdatePayloadPrecedence(t *testing.T) {
	edited := &IncomingMessage{MessageID: 2, Text: "edited"}
	plain := &IncomingMessage{MessageID: 1, Text: "plain"}

	u := &Update{ChannelPost: plain, EditedChannelPost: edited}
	msg, isEdit := u.Payload()
	if msg != edited || !isEdit {
		t.Errorf("Payload() = (%v, %v), want edited channel post", msg, isEdit)
	}

	u = &Update{Message: plain}
	msg, isEdit = u.Payload()
	if msg != plain || isEdit {
		t.Errorf("Payload() = (%v, %v), want plain message", msg, isEdit)
	}

	u = &Update{}
	if msg, _ := u.Payload(); msg != nil {
		t.Errorf("empty update should carry no payload, got %v", msg)
	}
}

func TestBodyFallsBackToCaption(t *testing.T) {
	m := &IncomingMessage{Caption: "#N7 (♠️♥️♦️)"}
	if m.Body() != "#N7 (♠️♥️♦️)" {
		t.Errorf("Body() = %q", m.Body())
	}
}
