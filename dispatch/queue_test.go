package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/appolinair2355/Apdepo/predictor"
	"github.com/appolinair2355/Apdepo/telegram"
)

// scriptedClient returns queued responses per method and records every call.
type scriptedClient struct {
	mu        sync.Mutex
	calls     []string
	sendErrs  []error // consumed first; nil means success
	editErrs  []error
	nextMsgID int64
}

func (c *scriptedClient) SendMessage(_ context.Context, chatID int64, text string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, fmt.Sprintf("send:%d:%s", chatID, text))
	if len(c.sendErrs) > 0 {
		err := c.sendErrs[0]
		c.sendErrs = c.sendErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	c.nextMsgID++
	return c.nextMsgID, nil
}

func (c *scriptedClient) EditMessageText(_ context.Context, chatID, messageID int64, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, fmt.Sprintf("edit:%d:%d:%s", chatID, messageID, text))
	if len(c.editErrs) > 0 {
		err := c.editErrs[0]
		c.editErrs = c.editErrs[1:]
		return err
	}
	return nil
}

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *scriptedClient) callList() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startQueue(t *testing.T, client Sender, store *predictor.Store) *Queue {
	t.Helper()
	q := New(client, store, -100, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go q.Run(ctx)
	return q
}

func TestSendAssignsMessageID(t *testing.T) {
	store := predictor.NewStore()
	store.Create(745, 744, "♠️♥️♦️")
	client := &scriptedClient{}
	q := startQueue(t, client, store)

	q.EnqueueSend(745, "🔵745 🔵3K: statut :⏳")
	waitFor(t, func() bool {
		p, _ := store.Get(745)
		return p.MessageID != 0
	})
	if client.callCount() != 1 {
		t.Errorf("calls = %v, want exactly one send", client.callList())
	}
}

func TestRateLimitedSendRetriesWithoutDuplicates(t *testing.T) {
	store := predictor.NewStore()
	store.Create(745, 744, "♠️♥️♦️")
	client := &scriptedClient{sendErrs: []error{
		&telegram.RateLimitedError{RetryAfter: 20 * time.Millisecond},
		&telegram.RateLimitedError{RetryAfter: 20 * time.Millisecond},
		nil,
	}}
	q := startQueue(t, client, store)

	start := time.Now()
	q.EnqueueSend(745, "🔵745 🔵3K: statut :⏳")
	waitFor(t, func() bool {
		p, _ := store.Get(745)
		return p.MessageID != 0
	})

	// Two backoffs of at least the advertised interval each.
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("elapsed = %v, want >= 40ms of backoff", elapsed)
	}
	// Three attempts, one delivered message.
	if got := client.callCount(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
	p, _ := store.Get(745)
	if p.MessageID != 1 {
		t.Errorf("message id = %d, want 1 (single delivered message)", p.MessageID)
	}
}

func TestTerminalSendFailureAbandonsJob(t *testing.T) {
	store := predictor.NewStore()
	store.Create(745, 744, "♠️♥️♦️")
	store.Create(746, 745, "♠️♥️♣️")
	client := &scriptedClient{sendErrs: []error{errors.New("chat not found"), nil}}
	q := startQueue(t, client, store)

	q.EnqueueSend(745, "a")
	q.EnqueueSend(746, "b")
	waitFor(t, func() bool {
		p, _ := store.Get(746)
		return p.MessageID != 0
	})

	// The failed job is not retried; the next one proceeds.
	if got := client.callCount(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
	if p, _ := store.Get(745); p.MessageID != 0 {
		t.Errorf("failed send must not assign a message id, got %d", p.MessageID)
	}
}

func TestEditWithoutHandleSkipped(t *testing.T) {
	store := predictor.NewStore()
	store.Create(745, 744, "♠️♥️♦️")
	client := &scriptedClient{}
	q := startQueue(t, client, store)

	q.EnqueueEdit(745, "🔵745 🔵3K: statut :⭕⭕")
	q.EnqueueSend(745, "probe") // marker to observe the edit was consumed
	waitFor(t, func() bool { return client.callCount() >= 1 })

	calls := client.callList()
	for _, c := range calls {
		if c[:4] == "edit" {
			t.Errorf("edit without a delivered message must be skipped, calls = %v", calls)
		}
	}
}

func TestSendThenEditStaysOrdered(t *testing.T) {
	store := predictor.NewStore()
	store.Create(745, 744, "♠️♥️♦️")
	client := &scriptedClient{}
	q := startQueue(t, client, store)

	q.EnqueueSend(745, "🔵745 🔵3K: statut :⏳")
	q.EnqueueEdit(745, "🔵745 🔵3K: statut :✅0️⃣")
	waitFor(t, func() bool { return client.callCount() == 2 })

	calls := client.callList()
	if calls[0] != "send:-100:🔵745 🔵3K: statut :⏳" {
		t.Errorf("first call = %q", calls[0])
	}
	// The edit addresses the message id assigned by the preceding send.
	if calls[1] != "edit:-100:1:🔵745 🔵3K: statut :✅0️⃣" {
		t.Errorf("second call = %q", calls[1])
	}
}

func TestRateLimitedEditRetries(t *testing.T) {
	store := predictor.NewStore()
	store.Create(745, 744, "♠️♥️♦️")
	store.SetMessageID(745, 9)
	client := &scriptedClient{editErrs: []error{
		&telegram.RateLimitedError{}, // no advertised interval: default backoff
		nil,
	}}
	q := startQueue(t, client, store)

	q.EnqueueEdit(745, "🔵745 🔵3K: statut :✅2️⃣")
	waitFor(t, func() bool { return client.callCount() == 2 })

	calls := client.callList()
	if calls[0] != calls[1] {
		t.Errorf("retry must repeat the same edit, calls = %v", calls)
	}
}

func TestDepth(t *testing.T) {
	store := predictor.NewStore()
	client := &scriptedClient{}
	q := New(client, store, -100, time.Millisecond)
	if q.Depth() != 0 {
		t.Errorf("empty queue depth = %d", q.Depth())
	}
	q.EnqueueSend(1, "a")
	q.EnqueueEdit(1, "b")
	if q.Depth() != 2 {
		t.Errorf("depth = %d, want 2", q.Depth())
	}
}
