// Package dispatch delivers prediction creates and edits to the messaging
// API. A single consumer drains a FIFO queue so edits for one prediction can
// never overtake the send that precedes them, and rate-limit backoff never
// blocks message ingestion.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/appolinair2355/Apdepo/predictor"
	"github.com/appolinair2355/Apdepo/telegram"
	"github.com/appolinair2355/Apdepo/telemetry"
)

// Sender is the external messaging client the queue drives.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) (int64, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string) error
}

// JobKind distinguishes first sends from later edits of the same prediction.
type JobKind int

const (
	JobSend JobKind = iota
	JobEdit
)

func (k JobKind) String() string {
	if k == JobSend {
		return "send"
	}
	return "edit"
}

// Job is one ordered delivery operation referencing a prediction by target
// index. Text is rendered at enqueue time so the display stays consistent
// with the status transition that produced the job.
type Job struct {
	Kind        JobKind
	TargetIndex int
	Text        string
}

// Queue serializes outgoing sends and edits for one channel. Enqueue never
// blocks and never drops: the backlog is unbounded because losing an edit
// would leave a terminal prediction displayed as pending forever.
type Queue struct {
	client Sender
	store  *predictor.Store
	chatID int64

	mu   sync.Mutex
	jobs []Job
	wake chan struct{}

	defaultBackoff time.Duration
	log            *slog.Logger
}

// New returns a queue delivering to chatID through client, resolving message
// handles against store.
func New(client Sender, store *predictor.Store, chatID int64, defaultBackoff time.Duration) *Queue {
	if defaultBackoff <= 0 {
		defaultBackoff = time.Second
	}
	return &Queue{
		client:         client,
		store:          store,
		chatID:         chatID,
		wake:           make(chan struct{}, 1),
		defaultBackoff: defaultBackoff,
		log:            slog.Default().With(slog.String("component", "dispatch")),
	}
}

// EnqueueSend queues the initial publication of a prediction.
func (q *Queue) EnqueueSend(target int, text string) {
	q.push(Job{Kind: JobSend, TargetIndex: target, Text: text})
}

// EnqueueEdit queues a status edit for an already published prediction.
func (q *Queue) EnqueueEdit(target int, text string) {
	q.push(Job{Kind: JobEdit, TargetIndex: target, Text: text})
}

func (q *Queue) push(j Job) {
	q.mu.Lock()
	q.jobs = append(q.jobs, j)
	depth := len(q.jobs)
	q.mu.Unlock()
	telemetry.SetQueueDepth(depth)
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) pop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return Job{}, false
	}
	j := q.jobs[0]
	q.jobs = q.jobs[1:]
	telemetry.SetQueueDepth(len(q.jobs))
	return j, true
}

// Depth returns the number of undelivered jobs.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Run drains the queue until ctx is cancelled. It is the only goroutine that
// blocks: a rate-limited job is retried in place after the advertised wait,
// preserving order for every later job.
func (q *Queue) Run(ctx context.Context) {
	q.log.Info("delivery queue starting", slog.Duration("default_backoff", q.defaultBackoff))
	for {
		job, ok := q.pop()
		if !ok {
			select {
			case <-ctx.Done():
				q.log.Info("delivery queue stopped")
				return
			case <-q.wake:
				continue
			}
		}
		if !q.deliver(ctx, job) {
			return
		}
	}
}

// deliver runs one job to completion: success, terminal failure, or context
// cancellation (returns false). Rate limiting retries indefinitely.
func (q *Queue) deliver(ctx context.Context, job Job) bool {
	start := time.Now()
	defer func() { telemetry.ObserveDeliveryDuration(time.Since(start)) }()
	for {
		err := q.attempt(ctx, job)
		if err == nil {
			return true
		}
		var rl *telegram.RateLimitedError
		if !errors.As(err, &rl) {
			// Terminal for this job. The prediction stays in its store state;
			// a send that never succeeded leaves later edits skipped.
			q.log.Error("delivery failed",
				slog.String("kind", job.Kind.String()),
				slog.Int("target", job.TargetIndex),
				slog.Any("err", err))
			if job.Kind == JobSend {
				telemetry.IncSendsFailed()
			} else {
				telemetry.IncEditsFailed()
			}
			return true
		}
		wait := rl.RetryAfter
		if wait <= 0 {
			wait = q.defaultBackoff
		}
		telemetry.IncRateLimitHits()
		q.log.Warn("rate limited, backing off",
			slog.String("kind", job.Kind.String()),
			slog.Int("target", job.TargetIndex),
			slog.Duration("retry_after", wait))
		if !sleepCtx(ctx, wait) {
			return false
		}
		telemetry.IncDeliveryRetries()
	}
}

func (q *Queue) attempt(ctx context.Context, job Job) error {
	switch job.Kind {
	case JobSend:
		id, err := q.client.SendMessage(ctx, q.chatID, job.Text)
		if err != nil {
			return err
		}
		q.store.SetMessageID(job.TargetIndex, id)
		telemetry.IncSendsSucceeded()
		q.log.Info("prediction sent", slog.Int("target", job.TargetIndex), slog.Int64("message_id", id))
		return nil
	default:
		p, ok := q.store.Get(job.TargetIndex)
		if !ok || p.MessageID == 0 {
			// The initial send never succeeded; this prediction stays
			// invisible to readers. Documented limitation, not an error.
			telemetry.IncEditsSkipped()
			q.log.Warn("edit skipped, no delivered message", slog.Int("target", job.TargetIndex))
			return nil
		}
		if err := q.client.EditMessageText(ctx, q.chatID, p.MessageID, job.Text); err != nil {
			return err
		}
		telemetry.IncEditsSucceeded()
		q.log.Info("prediction updated", slog.Int("target", job.TargetIndex), slog.Int64("message_id", p.MessageID))
		return nil
	}
}

// sleepCtx waits for d or until ctx is done; reports whether the full wait
// elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
