package tools

import (
	"context"
	"fmt"

	"synapse/internal/geo"
)

type checkWeather struct{}

func (t *checkWeather) Definition() Definition {
	return Definition{
		Name:   "check_weather",
		Desc:   "Current weather conditions at a coordinate.",
		Schema: map[string]string{"lat": "float", "lon": "float"},
	}
}

func (t *checkWeather) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	lat, ok1 := paramFloat(params, "lat")
	lon, ok2 := paramFloat(params, "lon")
	if !ok1 || !ok2 {
		return map[string]any{"status": "error", "error": "invalid_coordinates"}, nil
	}

	seed := seedFor(fmt.Sprintf("%.3f", lat), fmt.Sprintf("%.3f", lon))
	conditions := []string{"clear", "cloudy", "light rain", "thunderstorm", "haze"}
	condition := conditions[seed%uint64(len(conditions))]
	precip := float64(seed % 12)
	if condition == "clear" || condition == "cloudy" {
		precip = 0
	}

	return map[string]any{
		"status":          "ok",
		"condition":       condition,
		"tempC":           24 + float64(seed%10),
		"windKmh":         5 + float64(seed%25),
		"precipitationMm": precip,
		"hazard":          condition == "thunderstorm",
	}, nil
}

type geocodePlace struct{}

func (t *geocodePlace) Definition() Definition {
	return Definition{
		Name:   "geocode_place",
		Desc:   "Geocode a place or address.",
		Schema: map[string]string{"query": "str"},
	}
}

func (t *geocodePlace) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	query := paramString(params, "query")
	pt, ok := geo.Geocode(query)
	if !ok {
		return map[string]any{"status": "error", "error": "not_found", "query": query}, nil
	}
	return map[string]any{
		"status": "ok",
		"query":  query,
		"lat":    pt.Lat,
		"lon":    pt.Lon,
	}, nil
}

type checkFlightStatus struct{}

func (t *checkFlightStatus) Definition() Definition {
	return Definition{
		Name:   "check_flight_status",
		Desc:   "Flight status for airport-bound passengers.",
		Schema: map[string]string{"flight_no": "str"},
	}
}

func (t *checkFlightStatus) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	flight := paramString(params, "flight_no")
	if flight == "" {
		return map[string]any{"status": "error", "error": "missing_flight_no"}, nil
	}

	seed := seedFor(flight)
	if seed%3 == 0 {
		return map[string]any{
			"flight":   flight,
			"status":   "DELAYED",
			"delayMin": float64(20 + seed%40),
		}, nil
	}
	return map[string]any{
		"flight":   flight,
		"status":   "ON_TIME",
		"delayMin": float64(0),
	}, nil
}
