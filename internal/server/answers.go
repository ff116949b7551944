package server

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// parseAnswer converts a raw clarify answer into the shape the playbooks
// expect for the question's answer type. List answers arrive as JSON text
// from the client; sloppy JSON (single quotes, trailing commas) is repaired
// before giving up.
func parseAnswer(raw string, expected string) any {
	switch expected {
	case "image[]", "string[]":
		var list []any
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			return list
		}
		if fixed, err := jsonrepair.JSONRepair(raw); err == nil {
			if err := json.Unmarshal([]byte(fixed), &list); err == nil {
				return list
			}
		}
		if strings.TrimSpace(raw) == "" {
			return []any{}
		}
		return []any{raw}
	case "boolean":
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "1", "true", "yes", "y":
			return true
		}
		return false
	}
	return raw
}

// normalizeAnswerValue flattens answer shapes produced by UI widgets:
// {label,value} objects, numeric option indexes, and empty sentinels.
func normalizeAnswerValue(val any) any {
	if m, ok := val.(map[string]any); ok {
		for _, key := range []string{"value", "label", "name"} {
			if s, ok := m[key].(string); ok && s != "" {
				val = s
				break
			}
		}
		if _, still := val.(map[string]any); still {
			val = ""
		}
	}

	switch n := val.(type) {
	case float64:
		val = strconv.Itoa(int(n))
	case int:
		val = strconv.Itoa(n)
	}

	if s, ok := val.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "", "null", "none":
			return nil
		}
	}
	return val
}
