package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestETAMinutesAliasPriority(t *testing.T) {
	// Canonical name wins over legacy aliases.
	obs := map[string]any{"etaMin": 12.0, "eta_minutes": 99.0}
	v, ok := ETAMinutes(obs)
	require.True(t, ok)
	require.Equal(t, 12.0, v)

	obs = map[string]any{"eta_minutes": 8}
	v, ok = ETAMinutes(obs)
	require.True(t, ok)
	require.Equal(t, 8.0, v)

	obs = map[string]any{"duration_traffic_min": 33.0}
	v, ok = ETAMinutes(obs)
	require.True(t, ok)
	require.Equal(t, 33.0, v)
}

func TestDelayAndImprovement(t *testing.T) {
	v, ok := DelayMinutes(map[string]any{"delayMin": 5.0})
	require.True(t, ok)
	require.Equal(t, 5.0, v)

	v, ok = ImprovementMinutes(map[string]any{"improvementMin": 0})
	require.True(t, ok)
	require.Equal(t, 0.0, v)

	_, ok = DelayMinutes(map[string]any{"delayMin": "five"})
	require.False(t, ok)

	_, ok = ImprovementMinutes(nil)
	require.False(t, ok)
}

func TestExtractMapDirections(t *testing.T) {
	obs := map[string]any{
		"status": "ok",
		"map": map[string]any{
			"kind":     "directions",
			"polyline": "abc~xyz",
			"embedUrl": "https://maps.example/embed",
			"bounds":   map[string]any{"north": 13.2, "south": 12.8, "east": 80.3, "west": 79.9},
			"routes": []any{
				map[string]any{"summary": "DEFAULT_ROUTE", "durationMin": 42.0, "distance_km": 18.5, "polyline": "p1"},
				map[string]any{"summary": "ALTERNATE", "durationMin": 31.0, "polyline": "p2"},
			},
		},
	}

	payload, ok := ExtractMap(obs)
	require.True(t, ok)
	require.Equal(t, MapDirections, payload.Kind)
	require.Equal(t, "abc~xyz", payload.Polyline)
	require.Len(t, payload.Routes, 2)
	require.Equal(t, 42.0, payload.Routes[0].DurationMin)
	require.Equal(t, 18.5, payload.Routes[0].DistanceKM)
	require.NotNil(t, payload.Bounds)
	require.Equal(t, 13.2, payload.Bounds.North)
}

func TestExtractMapMarkers(t *testing.T) {
	obs := map[string]any{
		"map": map[string]any{
			"kind": "markers",
			"markers": []any{
				map[string]any{"id": "lk1", "name": "Locker A", "lat": 13.01, "lon": 80.22},
			},
		},
	}

	payload, ok := ExtractMap(obs)
	require.True(t, ok)
	require.Equal(t, MapMarkers, payload.Kind)
	require.Len(t, payload.Markers, 1)
	require.Equal(t, "Locker A", payload.Markers[0].Name)
}

func TestExtractMapAbsent(t *testing.T) {
	_, ok := ExtractMap(map[string]any{"status": "ok"})
	require.False(t, ok)

	_, ok = ExtractMap(map[string]any{"map": map[string]any{"routes": []any{}}})
	require.False(t, ok, "map block without kind is not a payload")

	_, ok = ExtractMap(nil)
	require.False(t, ok)
}
