package tools

import (
	"context"
	"errors"

	"synapse/internal/dispatch"
	"synapse/internal/geo"
)

var errNoOrderBook = errors.New("order book not configured")

type assignShortNearbyOrder struct {
	orders *dispatch.Book
}

func (t *assignShortNearbyOrder) Definition() Definition {
	return Definition{
		Name: "assign_short_nearby_order",
		Desc: "Assign a quick nearby order to an idle driver.",
		Schema: map[string]string{
			"driver_id": "str", "driver_lat": "float", "driver_lon": "float",
			"radius_km": "float?", "max_total_minutes": "float?",
		},
	}
}

func (t *assignShortNearbyOrder) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	if t.orders == nil {
		return nil, errNoOrderBook
	}
	driverID := paramString(params, "driver_id")
	lat, ok1 := paramFloat(params, "driver_lat")
	lon, ok2 := paramFloat(params, "driver_lon")
	if !ok1 || !ok2 {
		return map[string]any{"assigned": false, "reason": "missing_driver_location"}, nil
	}
	radius, _ := paramFloat(params, "radius_km")
	maxTotal, _ := paramFloat(params, "max_total_minutes")

	a, ok := t.orders.AssignQuickOrder(driverID, geo.LatLng{Lat: lat, Lon: lon}, radius, maxTotal)
	if !ok {
		return map[string]any{"assigned": false, "reason": "no_quick_orders_found"}, nil
	}
	return map[string]any{
		"assigned":       true,
		"driver_id":      driverID,
		"order":          a.Order,
		"distToPickupKm": a.DistToPickupKM,
		"jobMinutes":     a.JobMinutes,
		"totalMinutes":   a.TotalMinutes,
	}, nil
}

type rerouteDriver struct {
	orders *dispatch.Book
}

func (t *rerouteDriver) Definition() Definition {
	return Definition{
		Name:   "reroute_driver",
		Desc:   "Reroute an idle driver onto a quick nearby order.",
		Schema: map[string]string{"driver_id": "str", "driver_lat": "float", "driver_lon": "float"},
	}
}

func (t *rerouteDriver) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	if t.orders == nil {
		return nil, errNoOrderBook
	}
	driverID := paramString(params, "driver_id")
	lat, ok1 := paramFloat(params, "driver_lat")
	lon, ok2 := paramFloat(params, "driver_lon")
	if !ok1 || !ok2 {
		return map[string]any{"driver_id": driverID, "rerouted": false, "reason": "missing_driver_location"}, nil
	}

	a, ok := t.orders.AssignQuickOrder(driverID, geo.LatLng{Lat: lat, Lon: lon}, 0, 0)
	if !ok {
		return map[string]any{"driver_id": driverID, "rerouted": false, "reason": "no_quick_orders_found"}, nil
	}
	return map[string]any{
		"driver_id":  driverID,
		"rerouted":   true,
		"newTask":    a.Describe(),
		"assignment": a,
	}, nil
}

type getMerchantStatus struct{}

func (t *getMerchantStatus) Definition() Definition {
	return Definition{
		Name:   "get_merchant_status",
		Desc:   "Merchant backlog and prep time.",
		Schema: map[string]string{"merchant_id": "str"},
	}
}

func (t *getMerchantStatus) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	merchantID := paramString(params, "merchant_id")
	seed := seedFor(merchantID)
	return map[string]any{
		"merchant_id":   merchantID,
		"prepTimeMin":   float64(30 + seed%20),
		"backlogOrders": float64(6 + seed%10),
		"response":      true,
	}, nil
}
