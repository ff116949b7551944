package tools

import (
	"context"

	"synapse/internal/geo"
)

var categoryTypes = map[string][]string{
	"restaurant": {"restaurant"},
	"locker":     {"post_office", "convenience_store"},
	"mall":       {"shopping_mall"},
	"grocery":    {"supermarket", "grocery_store", "convenience_store"},
}

var categoryKeywords = map[string]string{
	"restaurant": "restaurant",
	"locker":     "parcel locker OR package pickup OR smart locker",
	"mall":       "shopping mall",
	"grocery":    "grocery OR supermarket",
}

func searchCenter(params map[string]any) (geo.LatLng, bool) {
	if name := paramString(params, "place_name"); name != "" {
		if pt, ok := geo.Geocode(name); ok {
			return pt, true
		}
	}
	if text := paramString(params, "scenario_text"); text != "" {
		if _, dest := ExtractRoute(text); dest != "" {
			if pt, ok := geo.Geocode(dest); ok {
				return pt, true
			}
		}
	}
	lat, ok1 := paramFloat(params, "lat")
	lon, ok2 := paramFloat(params, "lon")
	if ok1 && ok2 {
		return geo.LatLng{Lat: lat, Lon: lon}, true
	}
	return geo.LatLng{}, false
}

func radiusOf(params map[string]any, fallback float64) float64 {
	if r, ok := paramFloat(params, "radius_m"); ok && r > 0 {
		return r
	}
	return fallback
}

type placesSearchNearby struct{}

func (t *placesSearchNearby) Definition() Definition {
	return Definition{
		Name: "places_search_nearby",
		Desc: "Nearby places around a center, category aware.",
		Schema: map[string]string{
			"lat": "float?", "lon": "float?", "radius_m": "int?",
			"keyword": "str?", "place_name": "str?", "scenario_text": "str?", "category": "str?",
		},
	}
}

func (t *placesSearchNearby) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	center, ok := searchCenter(params)
	if !ok {
		return map[string]any{"error": "invalid_center"}, nil
	}

	category := paramString(params, "category")
	types := categoryTypes[category]
	keyword := paramString(params, "keyword")
	if keyword == "" {
		keyword = categoryKeywords[category]
	}

	found := geo.Nearby(center, radiusOf(params, 2000), types, 5)
	out := make([]map[string]any, 0, len(found))
	markers := make([]map[string]any, 0, len(found))
	points := []geo.LatLng{center}
	for _, p := range found {
		out = append(out, map[string]any{
			"id":              p.ID,
			"name":            p.Name,
			"address":         p.Address,
			"rating":          p.Rating,
			"userRatingCount": p.RatingCount,
			"openNow":         p.OpenNow,
		})
		markers = append(markers, markerPayload(p))
		points = append(points, p.Location)
	}
	bounds, _ := geo.BoundsOf(points)

	return map[string]any{
		"count":             len(out),
		"places":            out,
		"center":            map[string]any{"lat": center.Lat, "lon": center.Lon},
		"resolved_category": category,
		"used_keyword":      keyword,
		"map": map[string]any{
			"kind":    "markers",
			"markers": markers,
			"bounds":  boundsPayload(bounds),
		},
	}, nil
}

type findNearbyLocker struct{}

func (t *findNearbyLocker) Definition() Definition {
	return Definition{
		Name:   "find_nearby_locker",
		Desc:   "Find nearby parcel lockers around a place.",
		Schema: map[string]string{"place_name": "str", "radius_m": "int?"},
	}
}

func (t *findNearbyLocker) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	placeName := paramString(params, "place_name")
	if placeName == "" {
		return map[string]any{"status": "error", "error": "missing_place_name", "lockers": []any{}}, nil
	}
	center, ok := geo.Geocode(placeName)
	if !ok {
		return map[string]any{"status": "error", "error": "geocode_failed", "lockers": []any{}}, nil
	}

	radius := radiusOf(params, 1500)
	found := geo.Nearby(center, radius, categoryTypes["locker"], 5)
	lockers := make([]map[string]any, 0, len(found))
	markers := make([]map[string]any, 0, len(found))
	points := []geo.LatLng{center}
	for _, p := range found {
		lockers = append(lockers, map[string]any{
			"id":                 p.ID,
			"name":               p.Name,
			"address":            p.Address,
			"rating":             p.Rating,
			"user_ratings_total": p.RatingCount,
			"open_now":           p.OpenNow,
			"lat":                p.Location.Lat,
			"lon":                p.Location.Lon,
		})
		markers = append(markers, markerPayload(p))
		points = append(points, p.Location)
	}
	bounds, _ := geo.BoundsOf(points)

	return map[string]any{
		"status":        "ok",
		"count":         len(lockers),
		"lockers":       lockers,
		"center":        map[string]any{"lat": center.Lat, "lon": center.Lon},
		"query_place":   placeName,
		"used_radius_m": radius,
		"map": map[string]any{
			"kind":    "markers",
			"markers": markers,
			"bounds":  boundsPayload(bounds),
		},
	}, nil
}

type getNearbyMerchants struct{}

func (t *getNearbyMerchants) Definition() Definition {
	return Definition{
		Name:   "get_nearby_merchants",
		Desc:   "Nearby alternate restaurants around coordinates.",
		Schema: map[string]string{"lat": "float", "lon": "float", "radius_m": "int"},
	}
}

func (t *getNearbyMerchants) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	lat, ok1 := paramFloat(params, "lat")
	lon, ok2 := paramFloat(params, "lon")
	if !ok1 || !ok2 {
		return map[string]any{"error": "invalid_center", "merchants": []any{}}, nil
	}
	center := geo.LatLng{Lat: lat, Lon: lon}

	found := geo.Nearby(center, radiusOf(params, 2000), categoryTypes["restaurant"], 5)
	merchants := make([]map[string]any, 0, len(found))
	markers := make([]map[string]any, 0, len(found))
	points := []geo.LatLng{center}
	for _, p := range found {
		merchants = append(merchants, map[string]any{
			"id":          p.ID,
			"name":        p.Name,
			"address":     p.Address,
			"rating":      p.Rating,
			"prepTimeMin": p.PrepTimeMin,
			"etaMin":      geo.EstimateTripMinutes(center, p.Location, geo.BaselineSpeedKMPH),
			"openNow":     p.OpenNow,
		})
		markers = append(markers, markerPayload(p))
		points = append(points, p.Location)
	}
	bounds, _ := geo.BoundsOf(points)

	return map[string]any{
		"count":     len(merchants),
		"merchants": merchants,
		"center":    map[string]any{"lat": lat, "lon": lon},
		"map": map[string]any{
			"kind":    "markers",
			"markers": markers,
			"bounds":  boundsPayload(bounds),
		},
	}, nil
}

type markAsPlaced struct{}

func (t *markAsPlaced) Definition() Definition {
	return Definition{
		Name:   "mark_as_placed",
		Desc:   "Mark an order as placed in a locker.",
		Schema: map[string]string{"locker_id": "str", "order_id": "str"},
	}
}

func (t *markAsPlaced) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	return map[string]any{
		"status":    "ok",
		"order_id":  paramString(params, "order_id"),
		"locker_id": paramString(params, "locker_id"),
	}, nil
}

func markerPayload(p geo.Place) map[string]any {
	return map[string]any{
		"id":   p.ID,
		"name": p.Name,
		"lat":  p.Location.Lat,
		"lon":  p.Location.Lon,
	}
}
