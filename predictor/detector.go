// Package predictor implements the card prediction engine: suit pattern
// detection, the in-memory prediction store, and the generation/verification
// lifecycle that turns source-channel games into forward predictions.
package predictor

import (
	"regexp"
	"strings"
)

// suitAlphabet is the fixed set of suit symbols the detector recognizes,
// in canonical display order.
var suitAlphabet = []string{"♠️", "♥️", "♦️", "♣️"}

// heartVariant is the alternate encoding of the red heart seen in source
// messages; it is normalized to ♥️ before matching.
const heartVariant = "❤️"

// gameNumberPattern matches the game index marker, e.g. "#n744" or "#N744".
var gameNumberPattern = regexp.MustCompile(`#[nN](\d+)`)

// pendingIndicators mark a source message as still in progress: the channel
// will edit it again before the result is final.
var pendingIndicators = []string{"⏰", "▶", "🕐", "➡️"}

// completionIndicators mark a source message as finalized.
var completionIndicators = []string{"✅", "🔰"}

// SuitGroup is the detection result for one parenthesized span of a message.
type SuitGroup struct {
	Raw   string   // original span content, parentheses excluded
	Suits []string // distinct suits found, in canonical order
}

// IsTriple reports whether the group holds exactly 3 distinct suits.
func (g SuitGroup) IsTriple() bool { return len(g.Suits) == 3 }

// Combination returns the canonical display form of the group's suits.
func (g SuitGroup) Combination() string { return strings.Join(g.Suits, "") }

// ExtractGroups scans text for parenthesized spans and returns the distinct
// suit symbols found in each. Non-suit characters inside a group are ignored;
// only the four alphabet suits count toward qualification. Pure function,
// linear in the text length.
func ExtractGroups(text string) []SuitGroup {
	var groups []SuitGroup
	for i := 0; i < len(text); {
		open := strings.IndexByte(text[i:], '(')
		if open < 0 {
			break
		}
		open += i
		rel := strings.IndexByte(text[open+1:], ')')
		if rel < 0 {
			break
		}
		end := open + 1 + rel
		raw := text[open+1 : end]
		inner := strings.ReplaceAll(raw, heartVariant, "♥️")
		var suits []string
		for _, s := range suitAlphabet {
			if strings.Contains(inner, s) {
				suits = append(suits, s)
			}
		}
		groups = append(groups, SuitGroup{Raw: raw, Suits: suits})
		i = end + 1
	}
	return groups
}

// DetectTriple reports whether any parenthesized group in text qualifies as a
// triple (exactly 3 distinct suits) and returns the first qualifying
// combination. The combination is display-only; it does not affect resolution.
func DetectTriple(text string) (string, bool) {
	for _, g := range ExtractGroups(text) {
		if g.IsTriple() {
			return g.Combination(), true
		}
	}
	return "", false
}

// GameNumber extracts the game index from a source message like "#N744 …".
func GameNumber(text string) (int, bool) {
	m := gameNumberPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n := 0
	for _, c := range m[1] {
		n = n*10 + int(c-'0')
	}
	return n, true
}

// HasPendingIndicators reports whether the message carries in-progress
// markers, meaning the channel will edit it again.
func HasPendingIndicators(text string) bool {
	return containsAny(text, pendingIndicators)
}

// HasCompletionIndicators reports whether the message carries finalization
// markers.
func HasCompletionIndicators(text string) bool {
	return containsAny(text, completionIndicators)
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
