package geo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHaversineKM(t *testing.T) {
	srmist := LatLng{12.8230, 80.0444}
	airport := LatLng{12.9941, 80.1709}

	d := HaversineKM(srmist, airport)
	require.InDelta(t, 23.3, d, 1.5)
	require.Zero(t, HaversineKM(srmist, srmist))
}

func TestEstimateTripMinutes(t *testing.T) {
	a := LatLng{13.0, 80.2}
	b := LatLng{13.05, 80.25}

	m := EstimateTripMinutes(a, b, BaselineSpeedKMPH)
	require.Greater(t, m, 0.0)
	// Zero speed falls back to the baseline instead of dividing by zero.
	require.Equal(t, m, EstimateTripMinutes(a, b, 0))
}

func TestBoundsOf(t *testing.T) {
	_, ok := BoundsOf(nil)
	require.False(t, ok)

	b, ok := BoundsOf([]LatLng{{13.0, 80.2}, {12.9, 80.3}})
	require.True(t, ok)
	require.Equal(t, 13.0, b.North)
	require.Equal(t, 12.9, b.South)
	require.Equal(t, 80.3, b.East)
	require.Equal(t, 80.2, b.West)
}

func TestEncodePolyline(t *testing.T) {
	// Reference vector from the polyline algorithm documentation.
	got := EncodePolyline([]LatLng{
		{38.5, -120.2},
		{40.7, -120.95},
		{43.252, -126.453},
	})
	require.Equal(t, "_p~iF~ps|U_ulLnnqC_mqNvxq`@", got)
}

func TestOnlyPlaceName(t *testing.T) {
	require.Equal(t, "SRMIST Chennai", OnlyPlaceName("  SRMIST Chennai "))
	require.Empty(t, OnlyPlaceName("12.82,80.04"))
	require.Empty(t, OnlyPlaceName("  "))
}

func TestParseLatLng(t *testing.T) {
	pt, ok := ParseLatLng("12.82, 80.04")
	require.True(t, ok)
	require.Equal(t, LatLng{12.82, 80.04}, pt)

	_, ok = ParseLatLng("SRMIST Chennai")
	require.False(t, ok)
}

func TestGeocode(t *testing.T) {
	pt, ok := Geocode("srmist")
	require.True(t, ok)
	require.InDelta(t, 12.8230, pt.Lat, 0.001)

	_, ok = Geocode("Atlantis")
	require.False(t, ok)
}

func TestNearby(t *testing.T) {
	guindy, ok := Geocode("Guindy")
	require.True(t, ok)

	lockers := Nearby(guindy, 3000, []string{"post_office", "convenience_store"}, 5)
	require.NotEmpty(t, lockers)
	for i := 1; i < len(lockers); i++ {
		require.GreaterOrEqual(t, lockers[i-1].Rating, lockers[i].Rating)
	}

	none := Nearby(LatLng{0, 0}, 1000, nil, 5)
	require.Empty(t, none)
}
