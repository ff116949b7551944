package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"synapse/internal/dispatch"
	"synapse/internal/evidence"
	"synapse/internal/notify"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	repo, err := evidence.NewRepo(t.TempDir())
	require.NoError(t, err)
	return NewRegistry(Deps{
		Notifier: notify.NewDryRun(),
		Evidence: repo,
		Orders:   dispatch.NewBook(),
	})
}

func run(t *testing.T, r *Registry, name string, params map[string]any) map[string]any {
	t.Helper()
	tool, err := r.Get(name)
	require.NoError(t, err)
	obs, err := tool.Execute(context.Background(), params)
	require.NoError(t, err)
	return obs
}

func TestRegistryCatalog(t *testing.T) {
	r := testRegistry(t)

	defs := r.List()
	require.GreaterOrEqual(t, len(defs), 20)
	for i := 1; i < len(defs); i++ {
		require.Less(t, defs[i-1].Name, defs[i].Name)
	}

	_, err := r.Get("no_such_tool")
	require.Error(t, err)

	err = r.Register(&noop{})
	require.Error(t, err)
}

func TestCheckTrafficObservation(t *testing.T) {
	r := testRegistry(t)

	obs := run(t, r, "check_traffic", map[string]any{
		"origin_any": "SRMIST Chennai",
		"dest_any":   "Chennai International Airport",
	})
	require.Equal(t, "ok", obs["status"])
	require.GreaterOrEqual(t, obs["delayMin"].(float64), 0.0)
	require.Greater(t, obs["duration_traffic_min"].(float64), obs["duration_min"].(float64))

	m := obs["map"].(map[string]any)
	require.Equal(t, "directions", m["kind"])
	require.NotEmpty(t, m["polyline"])

	// Same pair yields the same simulated congestion.
	again := run(t, r, "check_traffic", map[string]any{
		"origin_any": "SRMIST Chennai",
		"dest_any":   "Chennai International Airport",
	})
	require.Equal(t, obs["duration_traffic_min"], again["duration_traffic_min"])
}

func TestCheckTrafficExtractsRouteFromScenario(t *testing.T) {
	r := testRegistry(t)

	obs := run(t, r, "check_traffic", map[string]any{
		"scenario_text": "Passenger going from SRMIST Chennai to Chennai International Airport, heavy jam on GST road",
	})
	require.Equal(t, "ok", obs["status"])
	require.Equal(t, "SRMIST Chennai", obs["origin_place"])
	require.Equal(t, "Chennai International Airport", obs["dest_place"])
}

func TestCheckTrafficMissingPlaces(t *testing.T) {
	r := testRegistry(t)

	obs := run(t, r, "check_traffic", map[string]any{"scenario_text": "something is wrong"})
	require.Equal(t, "error", obs["status"])
	require.Equal(t, "missing_place_names", obs["error"])
}

func TestAlternativeRouteImprovement(t *testing.T) {
	r := testRegistry(t)

	obs := run(t, r, "calculate_alternative_route", map[string]any{
		"origin_any": "T Nagar",
		"dest_any":   "Marina Beach",
	})
	require.Equal(t, "ok", obs["status"])
	require.GreaterOrEqual(t, obs["improvementMin"].(float64), 0.0)

	m := obs["map"].(map[string]any)
	routes := m["routes"].([]map[string]any)
	require.GreaterOrEqual(t, len(routes), 2)
	require.Equal(t, "DEFAULT_ROUTE", routes[0]["summary"])
}

func TestFindNearbyLocker(t *testing.T) {
	r := testRegistry(t)

	obs := run(t, r, "find_nearby_locker", map[string]any{
		"place_name": "Guindy",
		"radius_m":   float64(3000),
	})
	require.Equal(t, "ok", obs["status"])
	lockers := obs["lockers"].([]map[string]any)
	require.NotEmpty(t, lockers)
	require.Equal(t, len(lockers), obs["count"])

	m := obs["map"].(map[string]any)
	require.Equal(t, "markers", m["kind"])

	missing := run(t, r, "find_nearby_locker", map[string]any{"place_name": "Atlantis"})
	require.Equal(t, "error", missing["status"])
}

func TestGetNearbyMerchants(t *testing.T) {
	r := testRegistry(t)

	obs := run(t, r, "get_nearby_merchants", map[string]any{
		"lat": 12.9910, "lon": 80.2167, "radius_m": float64(3000),
	})
	merchants := obs["merchants"].([]map[string]any)
	require.NotEmpty(t, merchants)
	for _, m := range merchants {
		require.NotEmpty(t, m["name"])
		require.Greater(t, m["etaMin"].(float64), 0.0)
	}
}

func TestMediationFlow(t *testing.T) {
	repo, err := evidence.NewRepo(t.TempDir())
	require.NoError(t, err)
	r := NewRegistry(Deps{Notifier: notify.NewDryRun(), Evidence: repo, Orders: dispatch.NewBook()})

	obs := run(t, r, "initiate_mediation_flow", map[string]any{"order_id": "ord-9"})
	require.Equal(t, "started", obs["flow"])

	// No photos yet: analysis refuses to conclude.
	obs = run(t, r, "analyze_evidence", map[string]any{"order_id": "ord-9"})
	require.Equal(t, "NO_EVIDENCE", obs["status"])
	require.Equal(t, false, obs["refund_reasonable"])

	saved := repo.SaveImages("ord-9", []string{"data:image/png;base64,cG5n"})
	require.Len(t, saved, 1)

	obs = run(t, r, "collect_evidence", map[string]any{"order_id": "ord-9", "notes": "spilled on arrival"})
	require.Equal(t, float64(1), obs["photos"])
	require.Equal(t, true, obs["questionnaireCompleted"])

	obs = run(t, r, "analyze_evidence", map[string]any{"order_id": "ord-9"})
	require.Equal(t, "OK", obs["status"])
	require.Equal(t, true, obs["refund_reasonable"])
	require.Equal(t, "merchant", obs["fault"])

	obs = run(t, r, "issue_instant_refund", map[string]any{"order_id": "ord-9"})
	require.Equal(t, true, obs["refunded"])

	obs = run(t, r, "exonerate_driver", map[string]any{"driver_id": "drv-1"})
	require.Equal(t, true, obs["cleared"])
}

func TestRerouteDriver(t *testing.T) {
	r := testRegistry(t)

	obs := run(t, r, "reroute_driver", map[string]any{
		"driver_id":  "drv-1",
		"driver_lat": 13.0067,
		"driver_lon": 80.2206,
	})
	require.Equal(t, true, obs["rerouted"])
	require.NotEmpty(t, obs["newTask"])

	far := run(t, r, "reroute_driver", map[string]any{
		"driver_id":  "drv-2",
		"driver_lat": 0.0,
		"driver_lon": 0.0,
	})
	require.Equal(t, false, far["rerouted"])
}

func TestNotifyTools(t *testing.T) {
	r := testRegistry(t)

	obs := run(t, r, "notify_customer", map[string]any{
		"fcm_token": "tok-1", "message": "on the way", "voucher": true,
	})
	require.Equal(t, true, obs["delivered"])

	obs = run(t, r, "notify_passenger_and_driver", map[string]any{
		"driver_token": "tok-d", "passenger_token": "tok-p", "message": "new route",
	})
	require.Equal(t, true, obs["driverDelivered"])
	require.Equal(t, true, obs["passengerDelivered"])
}

func TestCheckFlightStatusDeterministic(t *testing.T) {
	r := testRegistry(t)

	first := run(t, r, "check_flight_status", map[string]any{"flight_no": "6E102"})
	second := run(t, r, "check_flight_status", map[string]any{"flight_no": "6E102"})
	require.Equal(t, first, second)
	require.Contains(t, []any{"DELAYED", "ON_TIME"}, first["status"])
}

func TestExtractRoute(t *testing.T) {
	o, d := ExtractRoute("origin=SRMIST Chennai, dest=Chennai International Airport")
	require.Equal(t, "SRMIST Chennai", o)
	require.Equal(t, "Chennai International Airport", d)

	o, d = ExtractRoute("Traffic jam from T Nagar to Marina Beach this evening.")
	require.Equal(t, "T Nagar", o)
	require.Equal(t, "Marina Beach", d)

	o, d = ExtractRoute("Recipient not home near Guindy")
	require.Empty(t, o)
	require.Equal(t, "Guindy", d)

	o, d = ExtractRoute("no places here")
	require.Empty(t, o)
	require.Empty(t, d)
}

func TestExtractFlight(t *testing.T) {
	require.Equal(t, "6E102", ExtractFlight("passenger on flight 6e102 to Delhi"))
	require.Empty(t, ExtractFlight("no flight mentioned"))
}
