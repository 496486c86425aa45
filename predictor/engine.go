package predictor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/appolinair2355/Apdepo/telemetry"
)

// confirmationWindow is the inclusive offset range within which a qualifying
// message resolves a prediction as confirmed. Beyond it the prediction is
// stale and marked expired. Fixed domain constant.
const confirmationWindow = 3

// Enqueuer accepts delivery jobs for the queue. Jobs for the same prediction
// must be delivered in the order they are enqueued.
type Enqueuer interface {
	EnqueueSend(target int, text string)
	EnqueueEdit(target int, text string)
}

// AuditSink receives terminal predictions for out-of-band recording. The
// engine never reads the sink back; it is write-behind and best effort.
type AuditSink interface {
	RecordTerminal(ctx context.Context, p Prediction)
}

// Message is one source-channel event as delivered by the webhook transport.
type Message struct {
	GameIndex int
	Text      string
	Edited    bool
}

// Engine runs the prediction lifecycle over a single channel's message
// stream: it generates a prediction for the next game when a message shows a
// triple-suit group, and reconciles open predictions against every incoming
// message. All processing for a channel is serialized; only the delivery
// queue ever blocks.
type Engine struct {
	mu    sync.Mutex
	store *Store
	queue Enqueuer
	audit AuditSink

	lastEvent time.Time
	log       *slog.Logger
}

// NewEngine wires the store and delivery queue into an engine.
func NewEngine(store *Store, queue Enqueuer) *Engine {
	return &Engine{
		store: store,
		queue: queue,
		log:   slog.Default().With(slog.String("component", "predictor")),
	}
}

// WithAudit attaches an optional terminal-prediction sink.
func (e *Engine) WithAudit(a AuditSink) *Engine {
	e.audit = a
	return e
}

// Process handles one message event: verification of open predictions first,
// then generation for the next game. Redelivery of the same event is safe;
// duplicate targets are suppressed by the store and terminal predictions
// never transition again.
func (e *Engine) Process(ctx context.Context, msg Message) {
	ctx, span := telemetry.StartSpan(ctx, "predictor", "engine.process")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastEvent = time.Now().UTC()

	e.verify(ctx, msg)
	e.generate(ctx, msg)
}

// verify evaluates every open prediction with targetIndex <= msg.GameIndex
// independently against this message. A qualifying message confirms at
// offsets 0..3; past the window the prediction expires even when the message
// does not qualify. Messages before a prediction's target are ignored for it.
func (e *Engine) verify(ctx context.Context, msg Message) {
	_, qualifies := DetectTriple(msg.Text)
	for _, p := range e.store.Pending() {
		if p.TargetIndex > msg.GameIndex {
			continue
		}
		offset := msg.GameIndex - p.TargetIndex
		switch {
		case qualifies && offset <= confirmationWindow:
			if res, ok := e.store.Resolve(p.TargetIndex, StatusConfirmed, offset); ok {
				e.log.Info("prediction confirmed",
					slog.Int("target", p.TargetIndex),
					slog.Int("offset", offset),
					slog.Int("game", msg.GameIndex))
				telemetry.IncPredictionsConfirmed(offset)
				e.queue.EnqueueEdit(res.TargetIndex, res.DisplayText())
				e.recordTerminal(ctx, res)
			}
		case offset > confirmationWindow:
			if res, ok := e.store.Resolve(p.TargetIndex, StatusExpired, 0); ok {
				e.log.Info("prediction expired",
					slog.Int("target", p.TargetIndex),
					slog.Int("game", msg.GameIndex))
				telemetry.IncPredictionsExpired()
				e.queue.EnqueueEdit(res.TargetIndex, res.DisplayText())
				e.recordTerminal(ctx, res)
			}
		}
	}
}

// generate creates a pending prediction for the next game when the message
// shows a triple-suit group. Messages still carrying in-progress markers are
// skipped; the channel edits them again and the webhook redelivers the final
// form.
func (e *Engine) generate(_ context.Context, msg Message) {
	if HasPendingIndicators(msg.Text) && !HasCompletionIndicators(msg.Text) {
		e.log.Debug("skipping in-progress message", slog.Int("game", msg.GameIndex))
		return
	}
	combination, ok := DetectTriple(msg.Text)
	if !ok {
		return
	}
	target := msg.GameIndex + 1
	p, created := e.store.Create(target, msg.GameIndex, combination)
	if !created {
		// Duplicate webhook delivery or a second trigger for the same target.
		e.log.Debug("prediction already exists", slog.Int("target", target))
		return
	}
	e.log.Info("prediction created",
		slog.Int("target", target),
		slog.Int("from", msg.GameIndex),
		slog.String("combination", combination))
	telemetry.IncPredictionsCreated()
	telemetry.SetPendingPredictions(e.pendingCount())
	e.queue.EnqueueSend(target, p.DisplayText())
}

func (e *Engine) recordTerminal(ctx context.Context, p Prediction) {
	telemetry.SetPendingPredictions(e.pendingCount())
	if e.audit != nil {
		e.audit.RecordTerminal(ctx, p)
	}
}

func (e *Engine) pendingCount() int {
	pending, _, _ := e.store.Counts()
	return pending
}

// Healthy reports whether the engine can process events. Processing is
// synchronous and in-memory, so the engine is healthy as long as it exists;
// the transport's liveness probe calls this.
func (e *Engine) Healthy() bool { return e.store != nil && e.queue != nil }

// LastEventAt returns the time of the most recently processed event.
func (e *Engine) LastEventAt() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastEvent
}

// Counts returns per-state prediction counts for the status endpoint.
func (e *Engine) Counts() (pending, confirmed, expired int) { return e.store.Counts() }
