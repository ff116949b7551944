package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"synapse/internal/dispatch"
	"synapse/internal/events"
	"synapse/internal/evidence"
	"synapse/internal/geo"
	"synapse/internal/notify"
	"synapse/internal/session"
	"synapse/internal/tools"
)

func testAgent(t *testing.T) (*Agent, *session.Store) {
	t.Helper()
	repo, err := evidence.NewRepo(t.TempDir())
	require.NoError(t, err)

	registry := tools.NewRegistry(tools.Deps{
		Notifier:              notify.NewDryRun(),
		Evidence:              repo,
		Orders:                dispatch.NewBook(),
		DefaultCustomerToken:  "tok-customer",
		DefaultDriverToken:    "tok-driver",
		DefaultPassengerToken: "tok-passenger",
	})

	sessions := session.NewStore(16)
	policy := &Policy{Evidence: repo}
	agent := New(registry, sessions, policy, WithRunConfig(RunConfig{
		MaxSteps:    7,
		MaxDuration: 30 * time.Second,
		StreamDelay: 0,
	}))
	return agent, sessions
}

func collect(t *testing.T, ch <-chan events.Event) []events.Event {
	t.Helper()
	var trace []events.Event
	for evt := range ch {
		trace = append(trace, evt)
	}
	require.NotEmpty(t, trace)
	return trace
}

func eventTypes(trace []events.Event) []events.Type {
	out := make([]events.Type, len(trace))
	for i, evt := range trace {
		out[i] = evt.Type
	}
	return out
}

func TestTrafficRunResolves(t *testing.T) {
	agent, sessions := testAgent(t)
	h := &session.Hints{
		OriginPlace: "SRMIST Chennai",
		DestPlace:   "Chennai International Airport",
	}

	trace := agent.ResolveSync(context.Background(),
		"Heavy traffic on the way from SRMIST to the airport.", h)

	require.Equal(t, []events.Type{
		events.TypeSession,
		events.TypeClassification,
		events.TypeStep, events.TypeStep, events.TypeStep, events.TypeStep,
		events.TypeSummary,
	}, eventTypes(trace))

	cls, ok := trace[1].Classification()
	require.True(t, ok)
	require.Equal(t, "traffic", cls.Kind)

	first, ok := trace[2].Step()
	require.True(t, ok)
	require.Equal(t, "check_traffic", first.Tool)
	require.True(t, first.Passed)
	require.GreaterOrEqual(t, first.Observation["delayMin"], 0.0)

	summary, ok := trace[len(trace)-1].Summary()
	require.True(t, ok)
	require.Equal(t, "resolved", summary.Outcome)
	require.Equal(t, 4, summary.Metrics["steps"])

	// The session is cleaned up after a completed run.
	require.Equal(t, 0, sessions.Len())
}

func TestRunSuspendsOnClarifyAndResumes(t *testing.T) {
	agent, sessions := testAgent(t)
	scenario := "The restaurant kitchen is overloaded, prep time is 40 minutes."
	h := &session.Hints{
		Origin: &geo.LatLng{Lat: 13.0067, Lon: 80.2206},
	}

	trace := collect(t, agent.ResolveStream(context.Background(), scenario, h, RunOptions{}))

	last := trace[len(trace)-1]
	require.Equal(t, events.TypeClarify, last.Type)
	clarify, ok := last.Clarify()
	require.True(t, ok)
	require.Equal(t, "alt_choice", clarify.QuestionID)
	require.NotEmpty(t, clarify.SessionID)
	require.Contains(t, clarify.Options, "NO • Continue with this restaurant")

	saved, ok := sessions.Load(clarify.SessionID)
	require.True(t, ok)
	require.Equal(t, "merchant_capacity", saved.Kind)
	require.Equal(t, 4, saved.StepsDone)
	require.NotEmpty(t, saved.Hints.Merchants)

	// Answer and resume under the same session.
	saved.Hints.SetAnswer("alt_choice", saved.Hints.Merchants[0].Name)
	resumed := collect(t, agent.ResolveStream(context.Background(), saved.Scenario, saved.Hints, RunOptions{
		SessionID:   saved.ID,
		StartAtStep: saved.StepsDone,
		Resume:      true,
	}))

	summary, ok := resumed[len(resumed)-1].Summary()
	require.True(t, ok)
	require.Equal(t, "resolved", summary.Outcome)
	require.Equal(t, 0, sessions.Len())
}

func TestTrafficRunFoldsRouteTextAnswer(t *testing.T) {
	agent, _ := testAgent(t)
	h := &session.Hints{}
	h.SetAnswer("route_text", "origin=SRMIST Chennai, dest=Chennai International Airport")

	trace := collect(t, agent.ResolveStream(context.Background(),
		"Huge traffic jam on the highway.", h, RunOptions{StartAtStep: 1}))

	require.Equal(t, "SRMIST Chennai", h.OriginPlace)
	require.Equal(t, "Chennai International Airport", h.DestPlace)
	require.NotNil(t, h.Origin)

	first, ok := trace[2].Step()
	require.True(t, ok)
	require.Equal(t, "calculate_alternative_route", first.Tool)
}

func TestRecipientRunWalksGates(t *testing.T) {
	agent, sessions := testAgent(t)
	scenario := "Recipient is not home, driver waiting at the door in T Nagar."
	h := &session.Hints{DestPlace: "T Nagar"}

	trace := collect(t, agent.ResolveStream(context.Background(), scenario, h, RunOptions{}))
	clarify, ok := trace[len(trace)-1].Clarify()
	require.True(t, ok)
	require.Equal(t, "safe_drop_ok", clarify.QuestionID)

	saved, ok := sessions.Load(clarify.SessionID)
	require.True(t, ok)
	saved.Hints.SetAnswer("safe_drop_ok", "no")

	trace = collect(t, agent.ResolveStream(context.Background(), saved.Scenario, saved.Hints, RunOptions{
		SessionID: saved.ID, StartAtStep: saved.StepsDone, Resume: true,
	}))
	clarify, ok = trace[len(trace)-1].Clarify()
	require.True(t, ok)
	require.Equal(t, "locker_ok", clarify.QuestionID)

	saved, ok = sessions.Load(clarify.SessionID)
	require.True(t, ok)
	saved.Hints.SetAnswer("locker_ok", "yes")

	trace = collect(t, agent.ResolveStream(context.Background(), saved.Scenario, saved.Hints, RunOptions{
		SessionID: saved.ID, StartAtStep: saved.StepsDone, Resume: true,
	}))
	clarify, ok = trace[len(trace)-1].Clarify()
	require.True(t, ok)
	require.Equal(t, "chosen_locker_id", clarify.QuestionID)
	require.NotEmpty(t, clarify.Options)

	saved, ok = sessions.Load(clarify.SessionID)
	require.True(t, ok)
	saved.Hints.SetAnswer("chosen_locker_id", clarify.Options[0])

	trace = collect(t, agent.ResolveStream(context.Background(), saved.Scenario, saved.Hints, RunOptions{
		SessionID: saved.ID, StartAtStep: saved.StepsDone, Resume: true,
	}))
	summary, ok := trace[len(trace)-1].Summary()
	require.True(t, ok)
	require.Equal(t, "resolved", summary.Outcome)
	require.Contains(t, summary.Message, "Locker selected")
}

func TestUnknownScenarioIsClassifiedOnly(t *testing.T) {
	agent, _ := testAgent(t)

	trace := agent.ResolveSync(context.Background(), "hello there, just chatting", nil)
	require.Len(t, trace, 3)
	summary, ok := trace[2].Summary()
	require.True(t, ok)
	require.Equal(t, "classified_only", summary.Outcome)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	agent, _ := testAgent(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := agent.ResolveStream(ctx, "Heavy traffic jam.", nil, RunOptions{})
	var got []events.Event
	for evt := range ch {
		got = append(got, evt)
	}
	// Cancelled before any pacing delay: at most the buffered early events.
	require.LessOrEqual(t, len(got), 3)
	for _, evt := range got {
		require.NotEqual(t, events.TypeSummary, evt.Type)
	}
}
