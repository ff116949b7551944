package events

import "encoding/json"

// Type discriminates the variants of the agent event stream.
type Type string

const (
	TypeSession        Type = "session"
	TypeClassification Type = "classification"
	TypeStep           Type = "step"
	TypeClarify        Type = "clarify"
	TypeSummary        Type = "summary"
	TypeDone           Type = "done"
	TypeError          Type = "error"
)

// Event is one decoded line from the agent stream. Data holds the raw variant
// payload; typed accessors extract the known shapes defensively so one
// malformed event can never corrupt a trace. Events with an unrecognized Type
// are kept as-is rather than dropped, so newer server event types degrade
// gracefully.
type Event struct {
	Type Type
	// At is the server-side timestamp string, when present.
	At string
	// Kind echoes the scenario classification on per-step events.
	Kind string
	Data map[string]any
}

// Classification is the agent's categorization of a scenario.
type Classification struct {
	Kind        string
	Severity    string
	Uncertainty float64
}

// Step records one action the agent took: the tool invoked, its inputs, and
// the observed result.
type Step struct {
	Index        int
	Intent       string
	Reason       string
	Tool         string
	Params       map[string]any
	Observation  map[string]any
	Assertion    string
	Passed       bool
	FinishReason string
	FinalMessage string
}

// Clarify is a server-initiated pause requesting human input. Expected is a
// type tag: "boolean", "image[]", "string", or free text; Options lists the
// allowed literal answers when the question is enumerated.
type Clarify struct {
	SessionID  string
	QuestionID string
	Question   string
	Expected   string
	Options    []string
}

// Summary is the terminal outcome description for a session.
type Summary struct {
	Outcome string
	Message string
	Metrics map[string]any
}

// MarshalJSON writes the wire form consumed by DecodeLine.
func (e Event) MarshalJSON() ([]byte, error) {
	type wire struct {
		Type Type           `json:"type"`
		At   string         `json:"at,omitempty"`
		Kind string         `json:"kind,omitempty"`
		Data map[string]any `json:"data,omitempty"`
	}
	return json.Marshal(wire{Type: e.Type, At: e.At, Kind: e.Kind, Data: e.Data})
}

// SessionID extracts the session identifier carried by session and clarify
// events. Returns "" when the event carries none.
func (e Event) SessionID() string {
	return stringField(e.Data, "session_id")
}

// Classification extracts the classification payload. ok is false when the
// event is not a classification event.
func (e Event) Classification() (Classification, bool) {
	if e.Type != TypeClassification {
		return Classification{}, false
	}
	return Classification{
		Kind:        stringField(e.Data, "kind"),
		Severity:    stringField(e.Data, "severity"),
		Uncertainty: floatField(e.Data, "uncertainty"),
	}, true
}

// Step extracts the step payload. ok is false for non-step events.
func (e Event) Step() (Step, bool) {
	if e.Type != TypeStep {
		return Step{}, false
	}
	return Step{
		Index:        intField(e.Data, "index"),
		Intent:       stringField(e.Data, "intent"),
		Reason:       stringField(e.Data, "reason"),
		Tool:         stringField(e.Data, "tool"),
		Params:       mapField(e.Data, "params"),
		Observation:  mapField(e.Data, "observation"),
		Assertion:    stringField(e.Data, "assertion"),
		Passed:       boolField(e.Data, "passed"),
		FinishReason: stringField(e.Data, "finish_reason"),
		FinalMessage: stringField(e.Data, "final_message"),
	}, true
}

// Clarify extracts the clarify payload. ok is false for non-clarify events.
func (e Event) Clarify() (Clarify, bool) {
	if e.Type != TypeClarify {
		return Clarify{}, false
	}
	return Clarify{
		SessionID:  stringField(e.Data, "session_id"),
		QuestionID: stringField(e.Data, "question_id"),
		Question:   stringField(e.Data, "question"),
		Expected:   stringField(e.Data, "expected"),
		Options:    stringSliceField(e.Data, "options"),
	}, true
}

// Summary extracts the summary payload. ok is false for non-summary events.
func (e Event) Summary() (Summary, bool) {
	if e.Type != TypeSummary {
		return Summary{}, false
	}
	msg := stringField(e.Data, "message")
	if msg == "" {
		msg = stringField(e.Data, "summary")
	}
	return Summary{
		Outcome: stringField(e.Data, "outcome"),
		Message: msg,
		Metrics: mapField(e.Data, "metrics"),
	}, true
}

// ErrorMessage extracts a human-readable message from an error event.
func (e Event) ErrorMessage() string {
	if e.Type != TypeError {
		return ""
	}
	if msg := stringField(e.Data, "message"); msg != "" {
		return msg
	}
	return stringField(e.Data, "error")
}

// Defensive field accessors. Missing or mistyped fields read as zero values.

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func boolField(m map[string]any, key string) bool {
	if m == nil {
		return false
	}
	b, _ := m[key].(bool)
	return b
}

func intField(m map[string]any, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func floatField(m map[string]any, key string) float64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func mapField(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	sub, _ := m[key].(map[string]any)
	return sub
}

// mapSliceField reads a list of objects, accepting both the decoded wire
// form ([]any of maps) and the in-process []map[string]any form.
func mapSliceField(m map[string]any, key string) []map[string]any {
	if m == nil {
		return nil
	}
	if typed, ok := m[key].([]map[string]any); ok {
		return typed
	}
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if sub, ok := item.(map[string]any); ok {
			out = append(out, sub)
		}
	}
	return out
}

func stringSliceField(m map[string]any, key string) []string {
	if m == nil {
		return nil
	}
	if typed, ok := m[key].([]string); ok {
		return typed
	}
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
