package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"synapse/internal/events"
	"synapse/internal/geo"
	"synapse/internal/logging"
	"synapse/internal/session"
	"synapse/internal/tools"
)

// RunConfig bounds a single resolution run.
type RunConfig struct {
	MaxSteps    int
	MaxDuration time.Duration
	// StreamDelay paces event emission so streamed runs read naturally in a
	// client. Zero disables pacing.
	StreamDelay time.Duration
}

// DefaultRunConfig mirrors the server defaults.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		MaxSteps:    7,
		MaxDuration: 120 * time.Second,
		StreamDelay: 100 * time.Millisecond,
	}
}

// RunOptions select between a fresh run and resuming a suspended one.
type RunOptions struct {
	// SessionID pins the run to a known session. Empty means mint a new one.
	SessionID string
	// StartAtStep is the step index to continue from when resuming.
	StartAtStep int
	Resume      bool
}

// Agent walks a scenario through classification and the policy playbook,
// emitting the event stream a client renders. Runs suspend at clarify
// questions; the saved session lets a later run pick up where it left off.
type Agent struct {
	registry *tools.Registry
	sessions *session.Store
	policy   *Policy
	cfg      RunConfig
	logger   logging.Logger

	newID func() string
	now   func() time.Time
}

// Option configures an Agent.
type Option func(*Agent)

// WithRunConfig overrides the default run bounds.
func WithRunConfig(cfg RunConfig) Option {
	return func(a *Agent) { a.cfg = cfg }
}

// WithLogger sets the agent's logger.
func WithLogger(l logging.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// New builds an Agent over a tool registry and a session store.
func New(registry *tools.Registry, sessions *session.Store, policy *Policy, opts ...Option) *Agent {
	a := &Agent{
		registry: registry,
		sessions: sessions,
		policy:   policy,
		cfg:      DefaultRunConfig(),
		logger:   logging.Nop(),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Classify exposes the deterministic classifier for the catalog endpoint.
func (a *Agent) Classify(scenario string) events.Classification {
	return Classify(scenario)
}

// ResolveStream runs the scenario and emits events on the returned channel.
// The channel is closed when the run completes, suspends on a clarify
// question, or the context is cancelled. hints may be nil.
func (a *Agent) ResolveStream(ctx context.Context, scenario string, hints *session.Hints, opts RunOptions) <-chan events.Event {
	out := make(chan events.Event, 8)
	go func() {
		defer close(out)
		a.run(ctx, out, scenario, hints, opts)
	}()
	return out
}

// ResolveSync runs the scenario to completion and returns the full trace.
func (a *Agent) ResolveSync(ctx context.Context, scenario string, hints *session.Hints) []events.Event {
	var trace []events.Event
	for evt := range a.ResolveStream(ctx, scenario, hints, RunOptions{}) {
		trace = append(trace, evt)
	}
	return trace
}

func (a *Agent) run(ctx context.Context, out chan<- events.Event, scenario string, h *session.Hints, opts RunOptions) {
	t0 := a.now()
	if h == nil {
		h = &session.Hints{}
	}
	if h.ScenarioText == "" {
		h.ScenarioText = scenario
	}

	sid := opts.SessionID
	if sid == "" {
		sid = a.newID()
	}
	a.logger.Info("agent: run start session=%s resume=%v", sid, opts.Resume)

	if !a.emit(ctx, out, events.Event{
		Type: events.TypeSession,
		At:   a.timestamp(),
		Data: map[string]any{"session_id": sid},
	}) {
		return
	}

	cls := Classify(scenario)
	if !a.emit(ctx, out, events.Event{
		Type: events.TypeClassification,
		At:   a.timestamp(),
		Kind: cls.Kind,
		Data: map[string]any{
			"kind":        cls.Kind,
			"severity":    cls.Severity,
			"uncertainty": cls.Uncertainty,
		},
	}) {
		return
	}
	if !a.pause(ctx) {
		return
	}

	a.foldRouteAnswer(h)

	steps := opts.StartAtStep
	if steps < 0 {
		steps = 0
	}
	var lastFinal string
	sawFinal := false

	// MaxSteps budgets the steps executed by this invocation. A resumed run
	// keeps its rail position in steps but gets a fresh budget, so deep
	// playbooks are not starved by the steps spent before suspending.
	executed := 0

	for executed < a.cfg.MaxSteps && a.now().Sub(t0) < a.cfg.MaxDuration {
		step, ok := a.policy.NextStep(cls.Kind, steps, h)
		if !ok {
			break
		}

		obs := a.execute(ctx, scenario, sid, cls.Kind, steps, h, step)

		passed := CheckAssertion(step.Assertion, obs)
		if !passed {
			if _, hasErr := obs["error"]; !hasErr {
				// Tolerate soft assertion misses; only explicit tool errors
				// fail a step.
				passed = true
			}
		}

		if !a.emit(ctx, out, events.Event{
			Type: events.TypeStep,
			At:   a.timestamp(),
			Kind: cls.Kind,
			Data: map[string]any{
				"index":         steps,
				"intent":        step.Intent,
				"reason":        step.Reason,
				"tool":          step.Tool,
				"params":        step.Params,
				"assertion":     step.Assertion,
				"observation":   obs,
				"passed":        passed,
				"finish_reason": step.FinishReason,
				"final_message": step.FinalMessage,
			},
		}) {
			return
		}
		steps++
		executed++
		if !a.pause(ctx) {
			return
		}

		if step.FinishReason == FinishFinal || step.FinishReason == "escalate" {
			lastFinal = step.FinalMessage
			sawFinal = true
			break
		}

		if step.FinishReason == FinishAwaitInput {
			a.sessions.Save(&session.Session{
				ID:        sid,
				Scenario:  scenario,
				Kind:      cls.Kind,
				StepsDone: steps,
				Hints:     h,
			})
			a.logger.Info("agent: suspended session=%s question=%s", sid, stringParam(step.Params, "question_id"))
			a.emit(ctx, out, events.Event{
				Type: events.TypeClarify,
				At:   a.timestamp(),
				Kind: cls.Kind,
				Data: map[string]any{
					"session_id":  sid,
					"question_id": step.Params["question_id"],
					"question":    step.Params["question"],
					"expected":    step.Params["expected"],
					"options":     step.Params["options"],
				},
			})
			return
		}
	}

	outcome := "incomplete"
	message := "No further steps were taken."
	switch {
	case sawFinal:
		outcome = "resolved"
		message = lastFinal
	case steps == 0:
		outcome = "classified_only"
	}

	a.sessions.Delete(sid)
	a.logger.Info("agent: run done session=%s outcome=%s steps=%d", sid, outcome, steps)

	a.emit(ctx, out, events.Event{
		Type: events.TypeSummary,
		At:   a.timestamp(),
		Kind: cls.Kind,
		Data: map[string]any{
			"scenario": scenario,
			"classification": map[string]any{
				"kind":        cls.Kind,
				"severity":    cls.Severity,
				"uncertainty": cls.Uncertainty,
			},
			"metrics": map[string]any{
				"totalSeconds": int(a.now().Sub(t0).Seconds()),
				"steps":        steps,
			},
			"outcome": outcome,
			"message": message,
		},
	})
}

// execute runs the step's tool and folds the observation back into hints so
// later steps can build on it.
func (a *Agent) execute(ctx context.Context, scenario, sid, kind string, steps int, h *session.Hints, step Step) map[string]any {
	switch step.Tool {
	case "none":
		return map[string]any{"note": "clarification_requested"}
	case "ask_user":
		obs := map[string]any{"awaiting": true}
		for k, v := range step.Params {
			obs[k] = v
		}
		return obs
	}

	exec, err := a.registry.Get(step.Tool)
	if err != nil {
		return map[string]any{"error": fmt.Sprintf("tool_not_found:%s", step.Tool)}
	}

	obs, err := exec.Execute(ctx, step.Params)
	if err != nil {
		a.logger.Warn("agent: tool %s failed: %v", step.Tool, err)
		return map[string]any{"error": err.Error()}
	}
	if obs == nil {
		obs = map[string]any{}
	}

	a.cacheObservation(step.Tool, obs, h)

	a.sessions.Save(&session.Session{
		ID:        sid,
		Scenario:  scenario,
		Kind:      kind,
		StepsDone: steps,
		Hints:     h,
	})
	return obs
}

func (a *Agent) cacheObservation(tool string, obs map[string]any, h *session.Hints) {
	switch tool {
	case "find_nearby_locker":
		h.LockersFetched = true
		if lockers := lockersFromObs(obs["lockers"]); len(lockers) > 0 {
			h.Lockers = lockers
		}
	case "places_search_nearby":
		h.LockersFetched = true
		if lockers := lockersFromObs(obs["places"]); len(lockers) > 0 {
			h.Lockers = lockers
		}
	case "get_nearby_merchants":
		if merchants := merchantsFromObs(obs["merchants"]); len(merchants) > 0 {
			h.Merchants = merchants
		}
	case "collect_evidence":
		if files := answerStrings(obs["files"]); len(files) > 0 {
			h.EvidenceImages = files
			h.SetAnswer("evidence_images", files)
		}
	case "analyze_evidence":
		h.Analysis = analysisFromObs(obs)
	case "issue_instant_refund":
		h.Refunded = truthy(obs["refunded"])
	case "check_flight_status":
		if flight, _ := obs["flight"].(string); flight != "" {
			status, _ := obs["status"].(string)
			delay, _ := asFloat(obs["delayMin"])
			h.Flight = &session.FlightStatus{
				Flight:   flight,
				Status:   status,
				DelayMin: int(delay),
			}
		}
	}
}

// foldRouteAnswer turns a free-typed route_text clarify answer into route
// hints before the traffic playbook runs again.
func (a *Agent) foldRouteAnswer(h *session.Hints) {
	if h.OriginPlace != "" || h.Origin != nil {
		return
	}
	text, _ := h.Answer("route_text").(string)
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	origin, dest := tools.ExtractRoute(text)
	if origin != "" {
		h.OriginPlace = origin
		if ll, ok := geo.Geocode(origin); ok {
			h.Origin = &ll
		}
	}
	if dest != "" {
		h.DestPlace = dest
		if ll, ok := geo.Geocode(dest); ok {
			h.Dest = &ll
		}
	}
}

func (a *Agent) emit(ctx context.Context, out chan<- events.Event, evt events.Event) bool {
	select {
	case out <- evt:
		return true
	case <-ctx.Done():
		return false
	}
}

func (a *Agent) pause(ctx context.Context) bool {
	if a.cfg.StreamDelay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(a.cfg.StreamDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (a *Agent) timestamp() string {
	return a.now().UTC().Format(time.RFC3339)
}

func stringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

func lockersFromObs(v any) []session.Locker {
	items, ok := v.([]map[string]any)
	if !ok {
		if raw, isRaw := v.([]any); isRaw {
			for _, item := range raw {
				if m, isMap := item.(map[string]any); isMap {
					items = append(items, m)
				}
			}
		}
	}
	out := make([]session.Locker, 0, len(items))
	for _, m := range items {
		lat, _ := asFloat(m["lat"])
		lon, _ := asFloat(m["lon"])
		rating, _ := asFloat(m["rating"])
		out = append(out, session.Locker{
			ID:      stringParam(m, "id"),
			Name:    stringParam(m, "name"),
			Address: stringParam(m, "address"),
			Rating:  rating,
			OpenNow: truthy(m["open_now"]),
			Lat:     lat,
			Lon:     lon,
		})
	}
	return out
}

func merchantsFromObs(v any) []session.Merchant {
	items, ok := v.([]map[string]any)
	if !ok {
		if raw, isRaw := v.([]any); isRaw {
			for _, item := range raw {
				if m, isMap := item.(map[string]any); isMap {
					items = append(items, m)
				}
			}
		}
	}
	out := make([]session.Merchant, 0, len(items))
	for _, m := range items {
		rating, _ := asFloat(m["rating"])
		prep, _ := asFloat(m["prepTimeMin"])
		eta, _ := asFloat(m["etaMin"])
		out = append(out, session.Merchant{
			ID:          stringParam(m, "id"),
			Name:        stringParam(m, "name"),
			Address:     stringParam(m, "address"),
			Rating:      rating,
			PrepTimeMin: int(prep),
			EtaMin:      eta,
			OpenNow:     truthy(m["openNow"]),
		})
	}
	return out
}

func analysisFromObs(obs map[string]any) *session.Analysis {
	confidence, _ := asFloat(obs["confidence"])
	fault, _ := obs["fault"].(string)
	return &session.Analysis{
		Status:            stringParam(obs, "status"),
		Fault:             fault,
		Confidence:        confidence,
		RefundReasonable:  truthy(obs["refund_reasonable"]),
		Rationale:         stringParam(obs, "rationale"),
		PackagingFeedback: stringParam(obs, "packaging_feedback"),
	}
}
