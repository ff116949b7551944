package dispatch

import (
	"fmt"
	"math"
	"sync"

	"synapse/internal/geo"
)

// Stop is a pickup or dropoff point of an order.
type Stop struct {
	Address  string     `json:"address"`
	Location geo.LatLng `json:"location"`
}

// Order is one delivery job in the book.
type Order struct {
	ID         string `json:"id"`
	Pickup     Stop   `json:"pickup"`
	Dropoff    Stop   `json:"dropoff"`
	Status     string `json:"status"`
	AssignedTo string `json:"assignedTo,omitempty"`
}

// Assignment is the result of matching a driver to a quick order.
type Assignment struct {
	Order          Order   `json:"order"`
	DistToPickupKM float64 `json:"distToPickupKm"`
	JobMinutes     float64 `json:"jobMinutes"`
	TotalMinutes   float64 `json:"totalMinutes"`
}

// Book is an in-memory order book seeded with demo orders. Assigning an
// order marks it so repeated reroutes never hand out the same job twice.
type Book struct {
	mu     sync.Mutex
	orders []Order
}

// NewBook creates a book with the demo orders around the Chennai dataset.
func NewBook() *Book {
	return &Book{orders: []Order{
		{ID: "ord-101", Status: "pending",
			Pickup:  Stop{Address: "Saravana Bhavan Velachery", Location: geo.LatLng{Lat: 12.9860, Lon: 80.2190}},
			Dropoff: Stop{Address: "Phoenix Marketcity Velachery", Location: geo.LatLng{Lat: 12.9910, Lon: 80.2167}}},
		{ID: "ord-102", Status: "pending",
			Pickup:  Stop{Address: "Adyar Ananda Bhavan Guindy", Location: geo.LatLng{Lat: 13.0040, Lon: 80.2180}},
			Dropoff: Stop{Address: "Guindy", Location: geo.LatLng{Lat: 13.0067, Lon: 80.2206}}},
		{ID: "ord-103", Status: "pending",
			Pickup:  Stop{Address: "Junior Kuppanna T Nagar", Location: geo.LatLng{Lat: 13.0445, Lon: 80.2330}},
			Dropoff: Stop{Address: "Marina Beach", Location: geo.LatLng{Lat: 13.0500, Lon: 80.2824}}},
		{ID: "ord-104", Status: "delivered",
			Pickup:  Stop{Address: "Tambaram", Location: geo.LatLng{Lat: 12.9249, Lon: 80.1000}},
			Dropoff: Stop{Address: "SRMIST Chennai", Location: geo.LatLng{Lat: 12.8230, Lon: 80.0444}}},
	}}
}

// AssignQuickOrder picks the pending order with the shortest total time for
// a driver at the given position: pickup within radiusKM and pickup plus
// delivery inside maxTotalMinutes. ok is false when no order qualifies.
func (b *Book) AssignQuickOrder(driverID string, at geo.LatLng, radiusKM, maxTotalMinutes float64) (Assignment, bool) {
	if radiusKM <= 0 {
		radiusKM = 6.0
	}
	if maxTotalMinutes <= 0 {
		maxTotalMinutes = 25.0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	best := Assignment{TotalMinutes: math.Inf(1)}
	bestIdx := -1
	for i, order := range b.orders {
		if order.Status != "pending" {
			continue
		}
		distToPickup := geo.HaversineKM(at, order.Pickup.Location)
		if distToPickup > radiusKM {
			continue
		}
		jobMinutes := geo.EstimateTripMinutes(order.Pickup.Location, order.Dropoff.Location, geo.BaselineSpeedKMPH)
		total := math.Round((jobMinutes+distToPickup/geo.BaselineSpeedKMPH*60)*10) / 10
		if total > maxTotalMinutes {
			continue
		}
		if total < best.TotalMinutes {
			best = Assignment{
				Order:          order,
				DistToPickupKM: math.Round(distToPickup*100) / 100,
				JobMinutes:     jobMinutes,
				TotalMinutes:   total,
			}
			bestIdx = i
		}
	}

	if bestIdx < 0 {
		return Assignment{}, false
	}
	b.orders[bestIdx].Status = "assigned"
	b.orders[bestIdx].AssignedTo = driverID
	best.Order = b.orders[bestIdx]
	return best, true
}

// Describe renders a driver-facing one-liner for an assignment.
func (a Assignment) Describe() string {
	return fmt.Sprintf("Pickup %s at %s, drop at %s (~%.0f min)",
		a.Order.ID, a.Order.Pickup.Address, a.Order.Dropoff.Address, a.TotalMinutes)
}

// Pending reports how many orders are still unassigned.
func (b *Book) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, o := range b.orders {
		if o.Status == "pending" {
			n++
		}
	}
	return n
}
