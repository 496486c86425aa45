package predictor

import "testing"

func TestDetectTriple(t *testing.T) {
	cases := []struct {
		name string
		text string
		want bool
	}{
		{"three distinct suits", "#N744 ✅ (♠️♥️♦️)", true},
		{"three distinct with repeats", "(♠️♠️♥️♦️♦️)", true},
		{"heart variant normalized", "(♠️❤️♦️)", true},
		{"three distinct among card values", "(10♠️ K♥️ 2♦️)", true},
		{"two distinct", "(♠️♥️)", false},
		{"two distinct with repeats", "(♠️♠️♥️♥️♥️)", false},
		{"four distinct", "(♠️♥️♦️♣️)", false},
		{"no suits", "(abc)", false},
		{"invalid symbols only", "(⭐🍀✨)", false},
		{"two valid one invalid", "(♠️♣️🍀)", false},
		{"no parentheses", "♠️♥️♦️", false},
		{"empty group", "()", false},
		{"qualifying second group", "(♠️♥️) puis (♥️♦️♣️)", true},
		{"heart both encodings same suit", "(♥️❤️♦️)", false},
		{"empty text", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, got := DetectTriple(tc.text)
			if got != tc.want {
				t.Errorf("DetectTriple(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestDetectTripleCombination(t *testing.T) {
	combo, ok := DetectTriple("#N12 (♣️♥️♠️)")
	if !ok {
		t.Fatal("expected a triple")
	}
	// Canonical alphabet order, independent of the order in the group.
	if combo != "♠️♥️♣️" {
		t.Errorf("combination = %q, want %q", combo, "♠️♥️♣️")
	}
}

func TestExtractGroups(t *testing.T) {
	groups := ExtractGroups("x (♠️♥️) y (K♦️ Q♦️ J♣️) z")
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if got := len(groups[0].Suits); got != 2 {
		t.Errorf("first group suits = %d, want 2", got)
	}
	if got := len(groups[1].Suits); got != 2 {
		t.Errorf("second group suits = %d, want 2", got)
	}
	if groups[0].IsTriple() || groups[1].IsTriple() {
		t.Error("no group should qualify as a triple")
	}
}

func TestExtractGroupsUnclosedParenthesis(t *testing.T) {
	if groups := ExtractGroups("(♠️♥️♦️"); len(groups) != 0 {
		t.Errorf("unclosed group should not be extracted, got %d groups", len(groups))
	}
}

func TestGameNumber(t *testing.T) {
	cases := []struct {
		text string
		want int
		ok   bool
	}{
		{"#n744 résultat", 744, true},
		{"#N744 résultat", 744, true},
		{"jeu #N1 (♠️♥️♦️)", 1, true},
		{"pas de numéro", 0, false},
		{"#x99", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := GameNumber(tc.text)
		if got != tc.want || ok != tc.ok {
			t.Errorf("GameNumber(%q) = (%d, %v), want (%d, %v)", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}

func TestEditIndicators(t *testing.T) {
	if !HasPendingIndicators("#N5 ⏰ en cours") {
		t.Error("expected pending indicator to be detected")
	}
	if HasPendingIndicators("#N5 terminé") {
		t.Error("unexpected pending indicator")
	}
	if !HasCompletionIndicators("#N5 ✅ (♠️♥️♦️)") {
		t.Error("expected completion indicator to be detected")
	}
	if !HasCompletionIndicators("#N5 🔰 (♠️♥️♦️)") {
		t.Error("expected 🔰 to count as completion")
	}
	if HasCompletionIndicators("#N5 ⏳") {
		t.Error("unexpected completion indicator")
	}
}
