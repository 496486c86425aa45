package predictor

import "testing"

func TestStoreCreateIdempotent(t *testing.T) {
	s := NewStore()
	p, created := s.Create(745, 744, "♠️♥️♦️")
	if !created {
		t.Fatal("first create should succeed")
	}
	if p.Status != StatusPending {
		t.Errorf("status = %v, want pending", p.Status)
	}
	if _, created := s.Create(745, 744, "♠️♥️♦️"); created {
		t.Error("duplicate target must be suppressed")
	}
	if pending, _, _ := s.Counts(); pending != 1 {
		t.Errorf("pending = %d, want 1", pending)
	}
}

func TestStoreCreateRejectsTerminalTarget(t *testing.T) {
	s := NewStore()
	s.Create(10, 9, "♠️♥️♦️")
	if _, ok := s.Resolve(10, StatusExpired, 0); !ok {
		t.Fatal("resolve failed")
	}
	// A terminal record still claims the target index.
	if _, created := s.Create(10, 9, "♠️♥️♦️"); created {
		t.Error("target with terminal record must not be recreated")
	}
}

func TestStoreResolveMonotonic(t *testing.T) {
	s := NewStore()
	s.Create(100, 99, "♥️♦️♣️")

	p, ok := s.Resolve(100, StatusConfirmed, 2)
	if !ok {
		t.Fatal("first resolve should succeed")
	}
	if p.Status != StatusConfirmed || p.Offset != 2 {
		t.Errorf("resolved to (%v, %d), want (confirmed, 2)", p.Status, p.Offset)
	}
	if p.ResolvedAt.IsZero() {
		t.Error("resolved_at not set")
	}

	// No sequence of further events changes a terminal prediction.
	if _, ok := s.Resolve(100, StatusExpired, 0); ok {
		t.Error("terminal prediction must not transition again")
	}
	got, _ := s.Get(100)
	if got.Status != StatusConfirmed || got.Offset != 2 {
		t.Errorf("terminal state changed to (%v, %d)", got.Status, got.Offset)
	}
}

func TestStoreResolveRejectsPending(t *testing.T) {
	s := NewStore()
	s.Create(7, 6, "♠️♥️♦️")
	if _, ok := s.Resolve(7, StatusPending, 0); ok {
		t.Error("resolve to a non-terminal status must be rejected")
	}
}

func TestStoreSetMessageIDOnce(t *testing.T) {
	s := NewStore()
	s.Create(50, 49, "♠️♥️♣️")
	if !s.SetMessageID(50, 111) {
		t.Fatal("first assignment should succeed")
	}
	if s.SetMessageID(50, 222) {
		t.Error("second assignment must be rejected")
	}
	p, _ := s.Get(50)
	if p.MessageID != 111 {
		t.Errorf("message id = %d, want 111", p.MessageID)
	}
	if s.SetMessageID(999, 1) {
		t.Error("assignment to unknown target must be rejected")
	}
}

func TestStorePendingSorted(t *testing.T) {
	s := NewStore()
	s.Create(30, 29, "♠️♥️♦️")
	s.Create(10, 9, "♠️♥️♦️")
	s.Create(20, 19, "♠️♥️♦️")
	s.Resolve(20, StatusConfirmed, 0)

	pending := s.Pending()
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	if pending[0].TargetIndex != 10 || pending[1].TargetIndex != 30 {
		t.Errorf("pending order = [%d %d], want [10 30]", pending[0].TargetIndex, pending[1].TargetIndex)
	}
}

func TestDisplayText(t *testing.T) {
	cases := []struct {
		name string
		p    Prediction
		want string
	}{
		{"pending", Prediction{TargetIndex: 745, Status: StatusPending}, "🔵745 🔵3K: statut :⏳"},
		{"confirmed offset 0", Prediction{TargetIndex: 745, Status: StatusConfirmed, Offset: 0}, "🔵745 🔵3K: statut :✅0️⃣"},
		{"confirmed offset 1", Prediction{TargetIndex: 745, Status: StatusConfirmed, Offset: 1}, "🔵745 🔵3K: statut :✅1️⃣"},
		{"confirmed offset 2", Prediction{TargetIndex: 745, Status: StatusConfirmed, Offset: 2}, "🔵745 🔵3K: statut :✅2️⃣"},
		{"confirmed offset 3", Prediction{TargetIndex: 745, Status: StatusConfirmed, Offset: 3}, "🔵745 🔵3K: statut :✅3️⃣"},
		{"expired", Prediction{TargetIndex: 745, Status: StatusExpired}, "🔵745 🔵3K: statut :⭕⭕"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.p.DisplayText(); got != tc.want {
				t.Errorf("DisplayText() = %q, want %q", got, tc.want)
			}
		})
	}
}
