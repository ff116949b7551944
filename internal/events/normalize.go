package events

// Historical server variants emitted the same logical value under several
// field names. Each list below is probed in priority order; the canonical
// name comes first. This is the only place legacy aliases are known.

var (
	etaAliases = []string{
		"etaMin", "eta_minutes", "eta", "duration_traffic_min", "durationMin", "duration_min",
	}
	delayAliases = []string{
		"delayMin", "delay_minutes", "delay_min", "delay",
	}
	improvementAliases = []string{
		"improvementMin", "improvement_minutes", "improvement_min", "improvement",
	}
	distanceAliases = []string{
		"distance_km", "distanceKm", "distance",
	}
)

// ETAMinutes extracts the estimated travel time in minutes from an
// observation, probing legacy aliases. ok is false when no alias is present.
func ETAMinutes(observation map[string]any) (float64, bool) {
	return probeNumber(observation, etaAliases)
}

// DelayMinutes extracts the measured traffic delay in minutes.
func DelayMinutes(observation map[string]any) (float64, bool) {
	return probeNumber(observation, delayAliases)
}

// ImprovementMinutes extracts the reroute improvement in minutes.
func ImprovementMinutes(observation map[string]any) (float64, bool) {
	return probeNumber(observation, improvementAliases)
}

// DistanceKM extracts the route distance in kilometres.
func DistanceKM(observation map[string]any) (float64, bool) {
	return probeNumber(observation, distanceAliases)
}

func probeNumber(m map[string]any, aliases []string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	for _, key := range aliases {
		switch v := m[key].(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		}
	}
	return 0, false
}
