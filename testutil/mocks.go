package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// MockBotServer creates a test server that mocks Telegram Bot API responses.
// Handlers are keyed by API method name (the path segment after /bot<token>/).
type MockBotServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc

	mu    sync.Mutex
	calls []string
}

// NewMockBotServer creates a new mock Bot API server.
func NewMockBotServer(t *testing.T) *MockBotServer {
	t.Helper()
	m := &MockBotServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		method := parts[len(parts)-1]
		m.mu.Lock()
		m.calls = append(m.calls, method)
		m.mu.Unlock()
		if handler, ok := m.Handlers[method]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// Calls returns the API methods invoked so far, in order.
func (m *MockBotServer) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// RespondOK registers a handler answering the method with {"ok":true,"result":result}.
func (m *MockBotServer) RespondOK(method string, result any) {
	m.Handlers[method] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
	}
}

// RespondRateLimited registers a handler answering the method with a 429-style
// Bot API error carrying retry_after seconds.
func (m *MockBotServer) RespondRateLimited(method string, retryAfter int) {
	m.Handlers[method] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  429,
			"description": "Too Many Requests: retry later",
			"parameters":  map[string]int{"retry_after": retryAfter},
		})
	}
}

// RespondError registers a handler answering the method with a Bot API error.
func (m *MockBotServer) RespondError(method string, code int, description string) {
	m.Handlers[method] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  code,
			"description": description,
		})
	}
}
