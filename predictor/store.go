package predictor

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Status is the lifecycle state of a prediction. Transitions are monotonic:
// Pending may move to Confirmed or Expired exactly once, never back.
type Status int

const (
	StatusPending Status = iota
	StatusConfirmed
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool { return s == StatusConfirmed || s == StatusExpired }

// confirmGlyphs maps a confirmation offset (games between target and the
// confirming message) to its display glyph. These glyphs are the wire
// contract with the channel's readers and must stay stable across edits.
var confirmGlyphs = [4]string{"✅0️⃣", "✅1️⃣", "✅2️⃣", "✅3️⃣"}

const (
	pendingGlyph = "⏳"
	expiredGlyph = "⭕⭕"
)

// Prediction claims that the game at TargetIndex will show a qualifying
// triple-suit pattern. At most one prediction ever exists per target index.
type Prediction struct {
	TargetIndex      int
	CreatedFromIndex int
	Combination      string // display-only 3-suit string from the trigger
	Status           Status
	Offset           int   // confirmation offset; meaningful when confirmed
	MessageID        int64 // Telegram message id; 0 until first successful send
	CreatedAt        time.Time
	ResolvedAt       time.Time
}

// StatusGlyph returns the trailing status glyph for the display line.
func (p Prediction) StatusGlyph() string {
	switch p.Status {
	case StatusConfirmed:
		if p.Offset >= 0 && p.Offset < len(confirmGlyphs) {
			return confirmGlyphs[p.Offset]
		}
		return confirmGlyphs[len(confirmGlyphs)-1]
	case StatusExpired:
		return expiredGlyph
	default:
		return pendingGlyph
	}
}

// DisplayText renders the full prediction line published to the channel.
func (p Prediction) DisplayText() string {
	return fmt.Sprintf("🔵%d 🔵3K: statut :%s", p.TargetIndex, p.StatusGlyph())
}

// Store is the in-memory prediction registry keyed by target game index.
// All access is serialized by an internal mutex: the generator's idempotency
// check and the verification transitions both read-then-write the same keyed
// entry and must observe each other atomically. State is process-lifetime
// only; durability is an explicit non-goal of the store itself.
type Store struct {
	mu    sync.Mutex
	preds map[int]*Prediction
}

// NewStore returns an empty prediction store.
func NewStore() *Store {
	return &Store{preds: make(map[int]*Prediction)}
}

// Create inserts a new pending prediction for target unless one already
// exists (open or terminal). Returns the stored prediction and whether the
// insert happened; a duplicate target is a silent no-op.
func (s *Store) Create(target, from int, combination string) (Prediction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.preds[target]; ok {
		return Prediction{}, false
	}
	p := &Prediction{
		TargetIndex:      target,
		CreatedFromIndex: from,
		Combination:      combination,
		Status:           StatusPending,
		CreatedAt:        time.Now().UTC(),
	}
	s.preds[target] = p
	return *p, true
}

// Get returns a copy of the prediction for target, if any.
func (s *Store) Get(target int) (Prediction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.preds[target]
	if !ok {
		return Prediction{}, false
	}
	return *p, true
}

// Pending returns copies of all open predictions, ordered by target index.
func (s *Store) Pending() []Prediction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Prediction
	for _, p := range s.preds {
		if p.Status == StatusPending {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetIndex < out[j].TargetIndex })
	return out
}

// Resolve moves a pending prediction to the given terminal status. It is a
// no-op when the prediction is missing or already terminal, preserving the
// monotonic transition invariant.
func (s *Store) Resolve(target int, status Status, offset int) (Prediction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.preds[target]
	if !ok || p.Status != StatusPending || !status.Terminal() {
		return Prediction{}, false
	}
	p.Status = status
	p.Offset = offset
	p.ResolvedAt = time.Now().UTC()
	return *p, true
}

// SetMessageID records the delivered Telegram message id so later edits can
// address the same message. Only the first assignment sticks.
func (s *Store) SetMessageID(target int, id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.preds[target]
	if !ok || p.MessageID != 0 {
		return false
	}
	p.MessageID = id
	return true
}

// Counts returns the number of predictions per lifecycle state.
func (s *Store) Counts() (pending, confirmed, expired int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.preds {
		switch p.Status {
		case StatusConfirmed:
			confirmed++
		case StatusExpired:
			expired++
		default:
			pending++
		}
	}
	return
}
