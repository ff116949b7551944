package agent

import (
	"strings"
	"unicode"

	"synapse/internal/events"
	"synapse/internal/tools"
)

// Kinds the classifier can emit, in matching priority order. Safety outranks
// everything; traffic is also the fallback for plain trip requests with an
// origin and destination.
var kindKeywords = []struct {
	kind     string
	keywords []string
}{
	{"safety", []string{"unsafe", "harass", "emergency", "sos", "threat", "attacked", "crash"}},
	{"damage_dispute", []string{"spill", "spilled", "damaged", "broken seal", "leaking", "leaked", "crushed", "tampered", "dispute", "who's at fault", "refund for damage"}},
	{"merchant_capacity", []string{"restaurant", "kitchen", "prep time", "preparing", "backlog", "overloaded", "long wait at the merchant", "food not ready"}},
	{"recipient_unavailable", []string{"not home", "unavailable", "unreachable", "no answer", "doesn't answer", "not answering", "refuses delivery", "wrong timing", "recipient"}},
	{"payment_issue", []string{"payment", "declined", "card failed", "re-auth", "transaction pending"}},
	{"address_issue", []string{"wrong address", "missing address", "pin mismatch", "can't find the address", "navigation"}},
	{"weather", []string{"rain", "thunderstorm", "flood", "flooded", "snow", "heatwave", "cyclone"}},
	{"traffic", []string{"traffic", "jam", "congestion", "accident", "road closed", "closure", "gridlock", "stuck on", "reroute", "highway"}},
}

var severeMarkers = []string{"urgent", "emergency", "crash", "flood", "flight", "severe", "blocked completely", "stuck for"}
var mildMarkers = []string{"slight", "minor", "small delay", "a bit"}

// Classify categorizes a scenario deterministically from keyword evidence.
// A scenario that reads as a plain trip request falls back to traffic; text
// with no usable words at all is unknown.
func Classify(scenario string) events.Classification {
	text := strings.ToLower(scenario)

	if !hasLetters(text) {
		return events.Classification{Kind: "unknown", Severity: "med", Uncertainty: 0.9}
	}

	bestKind := ""
	bestScore := 0
	for _, entry := range kindKeywords {
		score := 0
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				score++
			}
		}
		if score > bestScore {
			bestKind, bestScore = entry.kind, score
		}
	}

	if bestKind == "" {
		// A normal trip request with a recognizable route is a traffic run.
		if o, d := tools.ExtractRoute(scenario); o != "" || d != "" {
			bestKind, bestScore = "traffic", 1
		} else {
			return events.Classification{Kind: "other", Severity: "med", Uncertainty: 0.6}
		}
	}

	severity := "med"
	for _, m := range severeMarkers {
		if strings.Contains(text, m) {
			severity = "high"
			break
		}
	}
	if severity == "med" {
		for _, m := range mildMarkers {
			if strings.Contains(text, m) {
				severity = "low"
				break
			}
		}
	}

	uncertainty := 0.35
	if bestScore >= 2 {
		uncertainty = 0.2
	}
	return events.Classification{Kind: bestKind, Severity: severity, Uncertainty: uncertainty}
}

func hasLetters(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
