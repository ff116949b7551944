package trace

import (
	"sync"
	"time"

	"synapse/internal/events"
)

// RecordedEvent is one log entry: the decoded event annotated with its
// receipt timestamp.
type RecordedEvent struct {
	events.Event
	ReceivedAt time.Time
}

// RecordedStep pairs a step payload with the receipt time of its event.
type RecordedStep struct {
	events.Step
	ReceivedAt time.Time
}

// Log is the append-only event log for one agent session. Entries are never
// mutated in place; every read is a projection recomputed from the ordered
// log, so a consumer can reconstruct its view deterministically by replay.
//
// All methods are safe for concurrent use; writers are serialized so the
// total order over applied events is preserved.
type Log struct {
	mu      sync.RWMutex
	entries []RecordedEvent

	// clearedBefore marks the log length at the last ClearClarify call.
	// Clarify events at earlier positions are considered answered.
	clearedBefore int

	now func() time.Time
}

// NewLog creates an empty event log.
func NewLog() *Log {
	return &Log{now: time.Now}
}

// Apply appends one decoded event to the log. Malformed payloads are stored
// as-is; projections read them defensively.
func (l *Log) Apply(evt events.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, RecordedEvent{Event: evt, ReceivedAt: l.now()})
}

// Reset discards all entries. Each run starts from an empty log.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.clearedBefore = 0
}

// Len reports the number of applied events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Events returns a copy of the full ordered log.
func (l *Log) Events() []RecordedEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]RecordedEvent, len(l.entries))
	copy(out, l.entries)
	return out
}

// SessionID returns the first session identifier seen across session and
// clarify events. Once set it never changes for the log's lifetime; later
// events carrying a different id are ignored.
func (l *Log) SessionID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, entry := range l.entries {
		switch entry.Type {
		case events.TypeSession, events.TypeClarify:
			if id := entry.SessionID(); id != "" {
				return id
			}
		}
	}
	return ""
}

// Steps returns all step payloads in arrival order. Ties on step index keep
// arrival order, so an amended step renders after its original.
func (l *Log) Steps() []RecordedStep {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var steps []RecordedStep
	for _, entry := range l.entries {
		if step, ok := entry.Step(); ok {
			steps = append(steps, RecordedStep{Step: step, ReceivedAt: entry.ReceivedAt})
		}
	}
	return steps
}

// LatestClassification returns the most recent classification payload,
// last-write-wins.
func (l *Log) LatestClassification() (events.Classification, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		if cls, ok := l.entries[i].Classification(); ok {
			return cls, true
		}
	}
	return events.Classification{}, false
}

// LatestSummary returns the most recent summary payload.
func (l *Log) LatestSummary() (events.Summary, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		if summary, ok := l.entries[i].Summary(); ok {
			return summary, true
		}
	}
	return events.Summary{}, false
}

// PendingClarify returns the most recent unanswered clarify payload. Arrival
// of unrelated events does not clear it; the question stays visible until
// ClearClarify is called after the resume request has been dispatched.
func (l *Log) PendingClarify() (events.Clarify, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.entries) - 1; i >= l.clearedBefore; i-- {
		if clarify, ok := l.entries[i].Clarify(); ok {
			return clarify, true
		}
	}
	return events.Clarify{}, false
}

// ClearClarify marks every clarify event seen so far as answered.
func (l *Log) ClearClarify() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clearedBefore = len(l.entries)
}

// LatestMap scans steps backward from beforeOrAt (inclusive, indexed into
// Steps()) and returns the first embedded map payload. Later map-less steps
// keep showing the last known visualization instead of clearing it.
func (l *Log) LatestMap(beforeOrAt int) (events.MapPayload, bool) {
	steps := l.Steps()
	if len(steps) == 0 {
		return events.MapPayload{}, false
	}
	if beforeOrAt >= len(steps) {
		beforeOrAt = len(steps) - 1
	}
	for i := beforeOrAt; i >= 0; i-- {
		if payload, ok := events.ExtractMap(steps[i].Observation); ok {
			return payload, true
		}
	}
	return events.MapPayload{}, false
}

// LatestError returns the message of the most recent error event.
func (l *Log) LatestError() (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].Type == events.TypeError {
			return l.entries[i].ErrorMessage(), true
		}
	}
	return "", false
}
