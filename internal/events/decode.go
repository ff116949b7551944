package events

import (
	"encoding/json"
	"strings"
)

// EndMarker is the literal line that terminates an agent stream. It is
// compared before any JSON parsing is attempted.
const EndMarker = "[DONE]"

// DecodeLine parses one raw line from the agent stream.
//
// done is true for the terminal end marker. ok is false when the line should
// be silently dropped: blank lines, keep-alive pings, and malformed JSON are
// all treated identically because the transport is allowed to emit heartbeat
// lines that are not JSON. Decode problems never surface as errors.
//
// A parsed object without a recognized type is returned with its raw type
// string preserved so future server-side event types are not lost.
func DecodeLine(line string) (evt Event, ok bool, done bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Event{}, false, false
	}
	if line == EndMarker {
		return Event{}, false, true
	}

	var raw struct {
		Type string         `json:"type"`
		At   string         `json:"at"`
		Kind string         `json:"kind"`
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Event{}, false, false
	}
	if raw.Type == "" {
		return Event{}, false, false
	}
	if Type(raw.Type) == TypeDone {
		// Some historical server variants emit a JSON done event instead of
		// the bare marker.
		return Event{}, false, true
	}

	return Event{
		Type: Type(raw.Type),
		At:   raw.At,
		Kind: raw.Kind,
		Data: raw.Data,
	}, true, false
}
