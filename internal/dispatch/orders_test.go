package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"synapse/internal/geo"
)

func TestAssignQuickOrderPicksClosest(t *testing.T) {
	book := NewBook()
	guindy := geo.LatLng{Lat: 13.0067, Lon: 80.2206}

	a, ok := book.AssignQuickOrder("driver-1", guindy, 6, 25)
	require.True(t, ok)
	require.Equal(t, "ord-102", a.Order.ID)
	require.Equal(t, "assigned", a.Order.Status)
	require.Equal(t, "driver-1", a.Order.AssignedTo)
	require.LessOrEqual(t, a.TotalMinutes, 25.0)
	require.Contains(t, a.Describe(), "ord-102")
}

func TestAssignQuickOrderDoesNotReassign(t *testing.T) {
	book := NewBook()
	guindy := geo.LatLng{Lat: 13.0067, Lon: 80.2206}

	first, ok := book.AssignQuickOrder("driver-1", guindy, 6, 25)
	require.True(t, ok)

	second, ok := book.AssignQuickOrder("driver-2", guindy, 6, 25)
	if ok {
		require.NotEqual(t, first.Order.ID, second.Order.ID)
	}
}

func TestAssignQuickOrderNoCandidates(t *testing.T) {
	book := NewBook()

	_, ok := book.AssignQuickOrder("driver-1", geo.LatLng{Lat: 0, Lon: 0}, 6, 25)
	require.False(t, ok)
	require.Equal(t, 3, book.Pending())
}
