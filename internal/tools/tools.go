package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"synapse/internal/dispatch"
	"synapse/internal/evidence"
	"synapse/internal/notify"
)

// Definition describes a tool for the catalog endpoint.
type Definition struct {
	Name   string            `json:"name"`
	Desc   string            `json:"desc"`
	Schema map[string]string `json:"schema"`
}

// Executor is one callable tool. Execute returns the observation payload
// that gets streamed inside the step event; a returned error is folded into
// an error observation by the caller.
type Executor interface {
	Definition() Definition
	Execute(ctx context.Context, params map[string]any) (map[string]any, error)
}

// Deps are the shared services the built-in tools operate on.
type Deps struct {
	Notifier notify.Sender
	Evidence *evidence.Repo
	Orders   *dispatch.Book

	DefaultCustomerToken  string
	DefaultDriverToken    string
	DefaultPassengerToken string
}

// Registry holds the tool set by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Executor
}

// NewRegistry creates a registry with every built-in tool registered.
func NewRegistry(deps Deps) *Registry {
	r := &Registry{tools: make(map[string]Executor)}
	r.registerBuiltins(deps)
	return r
}

// Register adds a tool; registering a duplicate name is an error.
func (r *Registry) Register(tool Executor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Definition().Name
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool already exists: %s", name)
	}
	r.tools[name] = tool
	return nil
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return tool, nil
}

// List returns all tool definitions sorted by name.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, tool.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

func (r *Registry) registerBuiltins(deps Deps) {
	customer := notifyCustomer{sender: deps.Notifier, defaultToken: deps.DefaultCustomerToken}
	both := notifyPassengerAndDriver{sender: deps.Notifier, defaultDriver: deps.DefaultDriverToken, defaultPassenger: deps.DefaultPassengerToken}
	resolution := notifyResolution{sender: deps.Notifier}

	builtins := []Executor{
		&checkTraffic{},
		&alternativeRoute{},
		&placesSearchNearby{},
		&findNearbyLocker{},
		&getNearbyMerchants{},
		&markAsPlaced{},
		&checkWeather{},
		&geocodePlace{},
		&checkFlightStatus{},
		&initiateMediation{evidence: deps.Evidence},
		&collectEvidence{evidence: deps.Evidence},
		&analyzeEvidence{evidence: deps.Evidence},
		&issueInstantRefund{},
		&exonerateDriver{},
		&merchantFeedback{},
		&contactRecipient{},
		&suggestSafeDrop{},
		&assignShortNearbyOrder{orders: deps.Orders},
		&rerouteDriver{orders: deps.Orders},
		&getMerchantStatus{},
		&customer,
		&both,
		&resolution,
		&noop{},
		&askUser{},
	}
	for _, tool := range builtins {
		r.tools[tool.Definition().Name] = tool
	}
}

// Loosely typed parameter accessors. Tool parameters arrive as decoded JSON,
// so numbers may be float64 and missing keys are common.

func paramString(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	s, _ := params[key].(string)
	return s
}

func paramFloat(params map[string]any, key string) (float64, bool) {
	if params == nil {
		return 0, false
	}
	switch v := params[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func paramBool(params map[string]any, key string) bool {
	if params == nil {
		return false
	}
	b, _ := params[key].(bool)
	return b
}

func paramStrings(params map[string]any, key string) []string {
	if params == nil {
		return nil
	}
	switch v := params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
