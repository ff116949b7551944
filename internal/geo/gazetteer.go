package geo

import (
	"sort"
	"strings"
)

// Place is one entry in the built-in gazetteer backing the simulated maps
// and places lookups.
type Place struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Location    LatLng   `json:"location"`
	Rating      float64  `json:"rating"`
	RatingCount int      `json:"userRatingCount"`
	Types       []string `json:"types"`
	OpenNow     bool     `json:"openNow"`
	PrepTimeMin int      `json:"prepTimeMin,omitempty"`
}

// The demo operates on a fixed Chennai dataset so every scenario resolves
// deterministically without external map services.
var places = []Place{
	{ID: "pl-srmist", Name: "SRMIST Chennai", Address: "Kattankulathur, Chennai", Location: LatLng{12.8230, 80.0444}, Rating: 4.5, RatingCount: 8200, Types: []string{"university", "point_of_interest"}, OpenNow: true},
	{ID: "pl-maa", Name: "Chennai International Airport", Address: "GST Road, Meenambakkam", Location: LatLng{12.9941, 80.1709}, Rating: 4.3, RatingCount: 91000, Types: []string{"airport", "point_of_interest"}, OpenNow: true},
	{ID: "pl-tnagar", Name: "T Nagar", Address: "Theagaraya Nagar, Chennai", Location: LatLng{13.0418, 80.2341}, Rating: 4.2, RatingCount: 15000, Types: []string{"neighborhood", "point_of_interest"}, OpenNow: true},
	{ID: "pl-marina", Name: "Marina Beach", Address: "Kamarajar Salai, Chennai", Location: LatLng{13.0500, 80.2824}, Rating: 4.4, RatingCount: 120000, Types: []string{"tourist_attraction", "point_of_interest"}, OpenNow: true},
	{ID: "pl-velachery", Name: "Phoenix Marketcity Velachery", Address: "Velachery Main Road, Chennai", Location: LatLng{12.9910, 80.2167}, Rating: 4.5, RatingCount: 98000, Types: []string{"shopping_mall", "point_of_interest"}, OpenNow: true},
	{ID: "pl-guindy", Name: "Guindy", Address: "Guindy, Chennai", Location: LatLng{13.0067, 80.2206}, Rating: 4.1, RatingCount: 4200, Types: []string{"neighborhood", "point_of_interest"}, OpenNow: true},
	{ID: "pl-tambaram", Name: "Tambaram", Address: "Tambaram, Chennai", Location: LatLng{12.9249, 80.1000}, Rating: 4.0, RatingCount: 3900, Types: []string{"neighborhood", "point_of_interest"}, OpenNow: true},

	{ID: "lk-popstation-guindy", Name: "PopStation Parcel Locker Guindy", Address: "Anna Industrial Estate, Guindy", Location: LatLng{13.0102, 80.2135}, Rating: 4.6, RatingCount: 310, Types: []string{"post_office", "point_of_interest"}, OpenNow: true},
	{ID: "lk-indiapost-velachery", Name: "India Post Velachery", Address: "100 Feet Road, Velachery", Location: LatLng{12.9790, 80.2200}, Rating: 4.1, RatingCount: 540, Types: []string{"post_office"}, OpenNow: true},
	{ID: "lk-smartbox-tnagar", Name: "SmartBox Locker T Nagar", Address: "Usman Road, T Nagar", Location: LatLng{13.0399, 80.2337}, Rating: 4.4, RatingCount: 120, Types: []string{"convenience_store", "point_of_interest"}, OpenNow: true},
	{ID: "lk-247-tambaram", Name: "24Seven Pickup Point Tambaram", Address: "GST Road, Tambaram", Location: LatLng{12.9226, 80.1124}, Rating: 3.9, RatingCount: 88, Types: []string{"convenience_store"}, OpenNow: false},

	{ID: "mr-saravana", Name: "Saravana Bhavan Velachery", Address: "Velachery Bypass Road", Location: LatLng{12.9860, 80.2190}, Rating: 4.3, RatingCount: 21000, Types: []string{"restaurant"}, OpenNow: true, PrepTimeMin: 15},
	{ID: "mr-a2b", Name: "Adyar Ananda Bhavan Guindy", Address: "Mount Road, Guindy", Location: LatLng{13.0040, 80.2180}, Rating: 4.2, RatingCount: 18000, Types: []string{"restaurant"}, OpenNow: true, PrepTimeMin: 12},
	{ID: "mr-dindigul", Name: "Dindigul Thalappakatti Velachery", Address: "Taramani Link Road", Location: LatLng{12.9935, 80.2225}, Rating: 4.1, RatingCount: 9400, Types: []string{"restaurant"}, OpenNow: true, PrepTimeMin: 18},
	{ID: "mr-junior", Name: "Junior Kuppanna T Nagar", Address: "North Usman Road", Location: LatLng{13.0445, 80.2330}, Rating: 4.0, RatingCount: 7600, Types: []string{"restaurant"}, OpenNow: true, PrepTimeMin: 20},
	{ID: "mr-wangs", Name: "Wangs Kitchen Guindy", Address: "Velachery Road, Guindy", Location: LatLng{13.0015, 80.2198}, Rating: 3.9, RatingCount: 5200, Types: []string{"restaurant"}, OpenNow: false, PrepTimeMin: 10},
}

// Geocode resolves a place name to a coordinate with case-insensitive
// substring matching in both directions. ok is false for unknown names; the
// demo dataset only covers the Chennai metro.
func Geocode(name string) (LatLng, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return LatLng{}, false
	}
	for _, p := range places {
		candidate := strings.ToLower(p.Name)
		if strings.Contains(candidate, name) || strings.Contains(name, candidate) {
			return p.Location, true
		}
	}
	return LatLng{}, false
}

// LookupPlace resolves a place name to its full gazetteer entry.
func LookupPlace(name string) (Place, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Place{}, false
	}
	for _, p := range places {
		candidate := strings.ToLower(p.Name)
		if strings.Contains(candidate, name) || strings.Contains(name, candidate) {
			return p, true
		}
	}
	return Place{}, false
}

// Nearby returns up to limit places within radiusM meters of center whose
// types intersect wantTypes (any type matches when wantTypes is empty),
// ordered best-rated first.
func Nearby(center LatLng, radiusM float64, wantTypes []string, limit int) []Place {
	var out []Place
	for _, p := range places {
		if HaversineKM(center, p.Location)*1000 > radiusM {
			continue
		}
		if len(wantTypes) > 0 && !typesIntersect(p.Types, wantTypes) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].RatingCount > out[j].RatingCount
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func typesIntersect(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
