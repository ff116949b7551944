package geo

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// BaselineSpeedKMPH is the assumed average courier speed used for naive trip
// estimates when no routing data is available.
const BaselineSpeedKMPH = 22.0

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Bounds is a rectangular viewport around a set of points.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

const earthRadiusKM = 6371.0

// HaversineKM returns the great-circle distance between two points in
// kilometers.
func HaversineKM(a, b LatLng) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(h))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// EstimateTripMinutes is a naive ETA between two points at the given average
// speed. Speeds at or below zero fall back to the baseline speed.
func EstimateTripMinutes(a, b LatLng, speedKMPH float64) float64 {
	if speedKMPH <= 0 {
		speedKMPH = BaselineSpeedKMPH
	}
	return math.Round(HaversineKM(a, b)/speedKMPH*60*10) / 10
}

// BoundsOf computes the bounding box of the given points. ok is false for an
// empty slice.
func BoundsOf(points []LatLng) (Bounds, bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	b := Bounds{
		North: points[0].Lat, South: points[0].Lat,
		East: points[0].Lon, West: points[0].Lon,
	}
	for _, p := range points[1:] {
		b.North = math.Max(b.North, p.Lat)
		b.South = math.Min(b.South, p.Lat)
		b.East = math.Max(b.East, p.Lon)
		b.West = math.Min(b.West, p.Lon)
	}
	return b, true
}

// EncodePolyline encodes points with the Google polyline algorithm at 1e5
// precision.
func EncodePolyline(points []LatLng) string {
	var sb strings.Builder
	var prevLat, prevLon int64
	for _, p := range points {
		lat := int64(math.Round(p.Lat * 1e5))
		lon := int64(math.Round(p.Lon * 1e5))
		encodeSigned(&sb, lat-prevLat)
		encodeSigned(&sb, lon-prevLon)
		prevLat, prevLon = lat, lon
	}
	return sb.String()
}

func encodeSigned(sb *strings.Builder, v int64) {
	u := v << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		sb.WriteByte(byte(0x20|(u&0x1f)) + 63)
		u >>= 5
	}
	sb.WriteByte(byte(u) + 63)
}

var coordPairRe = regexp.MustCompile(`^\s*[-+]?\d+(?:\.\d+)?\s*,\s*[-+]?\d+(?:\.\d+)?\s*$`)

// OnlyPlaceName returns the trimmed input when it reads as a human place
// name, and "" when it is empty or a bare coordinate pair.
func OnlyPlaceName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || coordPairRe.MatchString(s) {
		return ""
	}
	return s
}

// ParseLatLng parses a "lat,lon" string.
func ParseLatLng(s string) (LatLng, bool) {
	if !coordPairRe.MatchString(s) {
		return LatLng{}, false
	}
	parts := strings.SplitN(s, ",", 2)
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return LatLng{}, false
	}
	return LatLng{Lat: lat, Lon: lon}, true
}
