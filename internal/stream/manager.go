package stream

import (
	"context"
	"errors"
	"strings"
	"sync"

	"synapse/internal/events"
	"synapse/internal/logging"
	"synapse/internal/trace"
)

// Status is the lifecycle state surfaced to the UI layer.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusStreaming Status = "streaming"
	StatusAwaiting  Status = "awaiting"
	StatusDone      Status = "done"
	StatusError     Status = "error"
)

// Rejections for Start. Both leave the manager untouched.
var (
	ErrEmptyScenario    = errors.New("scenario description is empty")
	ErrAlreadyStreaming = errors.New("a stream is already open")
)

// Manager owns the subscription to the agent stream for one client. It
// guarantees at most one open subscription at a time: start and resume close
// any existing subscription before opening the next one, so events from two
// streams can never interleave into the same log.
//
// Lines are fed through the event decoder into the trace log strictly in
// arrival order. On a clarify event the manager closes its local
// subscription and enters StatusAwaiting; the server keeps the suspended
// session until Resume reopens it. Transport failures surface as
// StatusError with the error text preserved verbatim; there is no automatic
// retry.
type Manager struct {
	mu          sync.Mutex
	transport   Transport
	log         *trace.Log
	logger      logging.Logger
	tokens      DeviceTokens
	tokenSource TokenSource
	onUpdate    func()

	status Status
	errMsg string
	sub    Subscription
	gen    int
}

// Option configures a Manager.
type Option func(*Manager)

// WithTokens sets the device tokens attached to run and resume requests.
func WithTokens(tokens DeviceTokens) Option {
	return func(m *Manager) { m.tokens = tokens }
}

// WithTokenSource sets the push-token source used to fill the customer token
// and to refresh it when the server reports it invalidated.
func WithTokenSource(source TokenSource) Option {
	return func(m *Manager) { m.tokenSource = source }
}

// WithLogger overrides the component logger.
func WithLogger(logger logging.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithOnUpdate registers a hook invoked after every state change, for UIs
// that re-render on updates. The hook runs outside the manager's lock.
func WithOnUpdate(fn func()) Option {
	return func(m *Manager) { m.onUpdate = fn }
}

// NewManager creates an idle manager over the given transport.
func NewManager(transport Transport, opts ...Option) *Manager {
	m := &Manager{
		transport: transport,
		log:       trace.NewLog(),
		logger:    logging.NewComponentLogger("StreamManager"),
		status:    StatusIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Log exposes the trace log backing this manager's projections.
func (m *Manager) Log() *trace.Log {
	return m.log
}

// Status returns the current lifecycle state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// ErrorMessage returns the human-readable error when in StatusError.
func (m *Manager) ErrorMessage() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errMsg
}

// Start opens a fresh run for the scenario. It rejects an empty scenario and
// rejects starting while a stream is open; both rejections leave the log and
// any active subscription untouched. A successful start discards all state
// from previous runs, so every run begins from an empty log.
func (m *Manager) Start(ctx context.Context, scenario string) error {
	scenario = strings.TrimSpace(scenario)

	m.mu.Lock()
	if scenario == "" {
		m.mu.Unlock()
		return ErrEmptyScenario
	}
	if m.status == StatusStreaming {
		m.mu.Unlock()
		return ErrAlreadyStreaming
	}

	m.closeSubLocked()
	m.log.Reset()
	m.errMsg = ""

	sub, err := m.transport.OpenRun(ctx, RunRequest{
		Scenario: scenario,
		Tokens:   m.requestTokens(),
	})
	if err != nil {
		m.status = StatusError
		m.errMsg = err.Error()
		m.mu.Unlock()
		m.notify()
		return err
	}

	m.adoptSubLocked(sub)
	m.mu.Unlock()
	m.notify()
	return nil
}

// Resume answers the pending clarify question and reopens the suspended
// session. The pending question is cleared and the old subscription closed
// before the new one delivers its first event, so a stale clarify prompt can
// never outlive the resume. With no session id known the call fails with
// MissingSessionError and performs no transport action; a known session with
// no open question fails with ErrNoPendingClarify.
func (m *Manager) Resume(ctx context.Context, answer Answer) error {
	m.mu.Lock()

	sessionID := m.log.SessionID()
	if sessionID == "" {
		m.mu.Unlock()
		return &MissingSessionError{}
	}

	pending, ok := m.log.PendingClarify()
	if !ok {
		m.mu.Unlock()
		return ErrNoPendingClarify
	}

	encoded, err := EncodeAnswer(pending.Expected, answer)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	m.closeSubLocked()
	m.log.ClearClarify()
	m.errMsg = ""

	sub, err := m.transport.OpenResume(ctx, ResumeRequest{
		SessionID:  sessionID,
		QuestionID: pending.QuestionID,
		Expected:   pending.Expected,
		Answer:     encoded,
		Tokens:     m.requestTokens(),
	})
	if err != nil {
		m.status = StatusError
		m.errMsg = err.Error()
		m.mu.Unlock()
		m.notify()
		return err
	}

	m.adoptSubLocked(sub)
	m.mu.Unlock()
	m.notify()
	return nil
}

// Stop closes the active subscription and transitions to StatusDone.
// Stopping an already-stopped manager is a no-op.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.closeSubLocked()
	changed := false
	if m.status == StatusStreaming || m.status == StatusAwaiting {
		m.status = StatusDone
		changed = true
	}
	m.mu.Unlock()
	if changed {
		m.notify()
	}
}

// adoptSubLocked installs a new subscription and starts its consumer.
func (m *Manager) adoptSubLocked(sub Subscription) {
	m.gen++
	m.sub = sub
	m.status = StatusStreaming
	go m.consume(sub, m.gen)
}

func (m *Manager) closeSubLocked() {
	if m.sub != nil {
		m.sub.Close()
		m.sub = nil
	}
}

func (m *Manager) consume(sub Subscription, gen int) {
	for line := range sub.Lines() {
		m.handleLine(gen, line)
	}
	m.finish(gen, sub.Err())
}

func (m *Manager) handleLine(gen int, line string) {
	m.mu.Lock()

	// Lines from a superseded subscription, or arriving after the stream
	// settled, must not mutate the log.
	if gen != m.gen || m.status != StatusStreaming {
		m.mu.Unlock()
		return
	}

	evt, ok, done := events.DecodeLine(line)
	if done {
		m.status = StatusDone
		m.closeSubLocked()
		m.mu.Unlock()
		m.notify()
		return
	}
	if !ok {
		m.mu.Unlock()
		return
	}

	m.log.Apply(evt)

	refreshToken := false
	switch evt.Type {
	case events.TypeClarify:
		// The server holds the suspended session; we hold no connection
		// while awaiting input.
		m.status = StatusAwaiting
		m.closeSubLocked()
	case events.TypeStep:
		if step, ok := evt.Step(); ok && observationReportsUnregistered(step.Observation) {
			refreshToken = true
		}
	}

	m.mu.Unlock()

	if refreshToken && m.tokenSource != nil {
		// Invalidated push token: refresh out of band. The event stream
		// itself is not interrupted.
		go func() {
			if _, err := m.tokenSource.Refresh(); err != nil {
				m.logger.Warn("push token refresh failed: %v", err)
			}
		}()
	}
	m.notify()
}

func (m *Manager) finish(gen int, err error) {
	m.mu.Lock()
	if gen != m.gen || m.status != StatusStreaming {
		m.mu.Unlock()
		return
	}
	if err != nil {
		m.status = StatusError
		m.errMsg = err.Error()
	} else {
		// Stream ended without an end marker; treat the run as complete.
		m.status = StatusDone
	}
	m.closeSubLocked()
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) requestTokens() DeviceTokens {
	tokens := m.tokens
	if tokens.Customer == "" && m.tokenSource != nil {
		tokens.Customer = m.tokenSource.Token()
	}
	return tokens
}

func (m *Manager) notify() {
	if m.onUpdate != nil {
		m.onUpdate()
	}
}

// observationReportsUnregistered recognizes the push-service error code for
// an invalidated device token inside a step observation.
func observationReportsUnregistered(observation map[string]any) bool {
	if observation == nil {
		return false
	}
	for _, key := range []string{"error", "errorCode", "error_code"} {
		if s, ok := observation[key].(string); ok && strings.Contains(s, "UNREGISTERED") {
			return true
		}
	}
	if nested, ok := observation["notify"].(map[string]any); ok {
		return observationReportsUnregistered(nested)
	}
	return false
}
