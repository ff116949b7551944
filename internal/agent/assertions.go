package agent

import (
	"fmt"
	"strconv"
	"strings"
)

// CheckAssertion reports whether a tool observation satisfies the step's
// declared predicate. An empty predicate passes unless the observation
// carries an error or trace key. Unknown predicates pass; the playbooks only
// use the predicates named below, and a typo should not fail a demo run.
func CheckAssertion(assertion string, obs map[string]any) bool {
	if strings.TrimSpace(assertion) == "" {
		if obs != nil {
			if _, ok := obs["error"]; ok {
				return false
			}
			if _, ok := obs["trace"]; ok {
				return false
			}
		}
		return true
	}

	a := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(assertion)), " ", "")

	switch {
	case strings.Contains(a, "response!=none"):
		return len(obs) > 0

	case strings.Contains(a, "len(routes)>=1"), strings.Contains(a, "routes>=1"):
		routes, ok := obs["routes"].([]any)
		if !ok {
			if typed, isTyped := obs["routes"].([]map[string]any); isTyped {
				return len(typed) >= 1
			}
			return false
		}
		return len(routes) >= 1

	case strings.Contains(a, "customerack==true"):
		return truthy(obs["customerAck"])

	case strings.Contains(a, "delivered==true"):
		return truthy(obs["delivered"]) || truthy(obs["driverDelivered"]) || truthy(obs["passengerDelivered"])

	case strings.Contains(a, "approved==true"):
		return truthy(obs["approved"])

	case strings.Contains(a, "improvementmin>0"):
		v, ok := asFloat(obs["improvementMin"])
		return ok && v > 0

	case strings.Contains(a, "improvementmin>=0"):
		_, ok := asFloat(obs["improvementMin"])
		return ok

	case strings.Contains(a, "etadeltamin<=0"):
		v, ok := asFloat(obs["etaDeltaMin"])
		return ok && v <= 0

	case strings.Contains(a, "candidates>0"), strings.Contains(a, "count>0"):
		v := obs["count"]
		if v == nil {
			v = obs["candidates"]
		}
		if list, ok := v.([]any); ok {
			return len(list) > 0
		}
		f, ok := asFloat(v)
		return ok && f > 0

	case strings.Contains(a, "delaymin>=0"):
		v, ok := asFloat(obs["delayMin"])
		return ok && v >= 0

	case strings.Contains(a, "hazard==false"):
		return !truthy(obs["hazard"])

	case strings.Contains(a, "found==true"):
		return truthy(obs["found"])

	case strings.Contains(a, "photos>0"):
		v, ok := asFloat(obs["photos"])
		return ok && v > 0

	case strings.Contains(a, "flow==started"):
		return obs["flow"] == "started"

	case strings.Contains(a, "refunded==true"):
		return truthy(obs["refunded"])

	case strings.Contains(a, "cleared==true"):
		return truthy(obs["cleared"])

	case strings.Contains(a, "feedbacklogged==true"):
		return truthy(obs["feedbackLogged"])

	case strings.Contains(a, "suggested==true"):
		return truthy(obs["suggested"])

	case strings.Contains(a, "status!=none"):
		return obs["status"] != nil

	case strings.Contains(a, "merchants>0"):
		return listLen(obs["merchants"]) > 0

	case strings.Contains(a, "lockers>0"):
		return listLen(obs["lockers"]) > 0

	case strings.Contains(a, "messagesent!=none"):
		return obs["messageSent"] != nil
	}

	if key, ok := strings.CutPrefix(a, "has."); ok {
		_, present := obs[key]
		return present
	}

	// Generic k==v comparison, only when no other operator appears.
	if strings.Contains(a, "==") &&
		!strings.ContainsAny(a, "<>") && !strings.Contains(a, "!=") {
		k, val, _ := strings.Cut(a, "==")
		ov := obs[k]
		switch val {
		case "true", "false":
			return truthy(ov) == (val == "true")
		}
		if want, err := strconv.ParseFloat(val, 64); err == nil {
			if got, ok := asFloat(ov); ok {
				return got == want
			}
		}
		return strings.EqualFold(strings.TrimSpace(fmt.Sprint(ov)), val)
	}

	return true
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "y", "ok":
			return true
		}
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}

func listLen(v any) int {
	switch t := v.(type) {
	case []any:
		return len(t)
	case []map[string]any:
		return len(t)
	case []string:
		return len(t)
	}
	return 0
}
