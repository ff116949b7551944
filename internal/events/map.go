package events

// MapKind identifies the visualization a map payload requests.
type MapKind string

const (
	MapDirections    MapKind = "directions"
	MapMarkers       MapKind = "markers"
	MapCompareRoutes MapKind = "compare_routes"
)

// Bounds is a lat/lon bounding box for fitting the viewport.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Route is one drawable route with its encoded polyline.
type Route struct {
	Summary     string  `json:"summary,omitempty"`
	DurationMin float64 `json:"durationMin,omitempty"`
	TrafficMin  float64 `json:"trafficMin,omitempty"`
	DistanceKM  float64 `json:"distance_km,omitempty"`
	Polyline    string  `json:"polyline,omitempty"`
}

// Marker is one labelled point of interest.
type Marker struct {
	ID   string  `json:"id,omitempty"`
	Name string  `json:"name,omitempty"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// MapPayload is the visualization block a map-producing step embeds in its
// observation. The renderer is an external collaborator; this module only
// extracts and forwards the payload.
type MapPayload struct {
	Kind      MapKind  `json:"kind"`
	Routes    []Route  `json:"routes,omitempty"`
	Markers   []Marker `json:"markers,omitempty"`
	Baseline  *Route   `json:"baseline,omitempty"`
	Candidate *Route   `json:"candidate,omitempty"`
	Bounds    *Bounds  `json:"bounds,omitempty"`
	Polyline  string   `json:"polyline,omitempty"`
	EmbedURL  string   `json:"embedUrl,omitempty"`
}

// ExtractMap pulls a map payload out of a step observation. ok is false when
// the observation has no map block or the block has no recognizable kind.
func ExtractMap(observation map[string]any) (MapPayload, bool) {
	block := mapField(observation, "map")
	if block == nil {
		return MapPayload{}, false
	}
	kind := MapKind(stringField(block, "kind"))
	if kind == "" {
		return MapPayload{}, false
	}

	payload := MapPayload{
		Kind:     kind,
		Polyline: stringField(block, "polyline"),
		EmbedURL: stringField(block, "embedUrl"),
		Bounds:   extractBounds(mapField(block, "bounds")),
	}

	for _, m := range mapSliceField(block, "routes") {
		payload.Routes = append(payload.Routes, extractRoute(m))
	}
	for _, m := range mapSliceField(block, "markers") {
		payload.Markers = append(payload.Markers, Marker{
			ID:   stringField(m, "id"),
			Name: stringField(m, "name"),
			Lat:  floatField(m, "lat"),
			Lon:  floatField(m, "lon"),
		})
	}
	if m := mapField(block, "baseline"); m != nil {
		r := extractRoute(m)
		payload.Baseline = &r
	}
	if m := mapField(block, "candidate"); m != nil {
		r := extractRoute(m)
		payload.Candidate = &r
	}

	return payload, true
}

func extractRoute(m map[string]any) Route {
	route := Route{
		Summary:  stringField(m, "summary"),
		Polyline: stringField(m, "polyline"),
	}
	if v, ok := ETAMinutes(m); ok {
		route.DurationMin = v
	}
	if v, ok := probeNumber(m, []string{"trafficMin", "traffic_min"}); ok {
		route.TrafficMin = v
	}
	if v, ok := DistanceKM(m); ok {
		route.DistanceKM = v
	}
	return route
}

func extractBounds(m map[string]any) *Bounds {
	if m == nil {
		return nil
	}
	return &Bounds{
		North: floatField(m, "north"),
		South: floatField(m, "south"),
		East:  floatField(m, "east"),
		West:  floatField(m, "west"),
	}
}
