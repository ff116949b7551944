package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"synapse/internal/agent"
	"synapse/internal/config"
	"synapse/internal/dispatch"
	"synapse/internal/events"
	"synapse/internal/evidence"
	"synapse/internal/notify"
	"synapse/internal/session"
	"synapse/internal/tools"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		Host:                  "127.0.0.1",
		Port:                  0,
		MaxSteps:              7,
		MaxDuration:           30 * time.Second,
		CORSOrigins:           []string{"*"},
		DefaultCustomerToken:  "tok-customer",
		DefaultDriverToken:    "tok-driver",
		DefaultPassengerToken: "tok-passenger",
		PushDryRun:            true,
		SessionCapacity:       16,
	}

	repo, err := evidence.NewRepo(t.TempDir())
	require.NoError(t, err)

	registry := tools.NewRegistry(tools.Deps{
		Notifier:              notify.NewDryRun(),
		Evidence:              repo,
		Orders:                dispatch.NewBook(),
		DefaultCustomerToken:  cfg.DefaultCustomerToken,
		DefaultDriverToken:    cfg.DefaultDriverToken,
		DefaultPassengerToken: cfg.DefaultPassengerToken,
	})
	sessions := session.NewStore(cfg.SessionCapacity)
	runner := agent.New(registry, sessions, &agent.Policy{Evidence: repo},
		agent.WithRunConfig(agent.RunConfig{
			MaxSteps:    cfg.MaxSteps,
			MaxDuration: cfg.MaxDuration,
			StreamDelay: 0,
		}))

	return New(cfg, Deps{
		Agent:    runner,
		Registry: registry,
		Sessions: sessions,
		Evidence: repo,
		Notifier: notify.NewDryRun(),
	})
}

// sseEvents parses an SSE response body into decoded events, asserting the
// stream is terminated by the end marker.
func sseEvents(t *testing.T, body string) []events.Event {
	t.Helper()
	var out []events.Event
	sawDone := false
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		evt, ok, done := events.DecodeLine(payload)
		if done {
			sawDone = true
			break
		}
		if ok {
			out = append(out, evt)
		}
	}
	require.True(t, sawDone, "stream missing end marker")
	return out
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, true, body["ok"])
	require.Equal(t, true, body["pushDryRun"])
}

func TestToolsEndpoint(t *testing.T) {
	srv := testServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tools", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Tools []struct {
			Name string `json:"name"`
			Desc string `json:"desc"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.GreaterOrEqual(t, len(body.Tools), 20)
	names := make([]string, 0, len(body.Tools))
	for _, tool := range body.Tools {
		names = append(names, tool.Name)
	}
	require.Contains(t, names, "check_traffic")
	require.Contains(t, names, "find_nearby_locker")
}

func TestAgentRunStreamsTrafficScenario(t *testing.T) {
	srv := testServer(t)

	q := url.Values{}
	q.Set("scenario", "Heavy traffic from SRMIST Chennai to Chennai International Airport.")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/agent/run?"+q.Encode(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	require.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))

	trace := sseEvents(t, rec.Body.String())
	require.GreaterOrEqual(t, len(trace), 4)
	require.Equal(t, events.TypeSession, trace[0].Type)
	require.Equal(t, events.TypeClassification, trace[1].Type)
	require.Equal(t, events.TypeSummary, trace[len(trace)-1].Type)

	summary, ok := trace[len(trace)-1].Summary()
	require.True(t, ok)
	require.Equal(t, "resolved", summary.Outcome)
}

func TestAgentRunRequiresScenario(t *testing.T) {
	srv := testServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/agent/run", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAgentRunRejectsUnknownSession(t *testing.T) {
	srv := testServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/agent/run?session_id=nope", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClarifyContinueRoundTrip(t *testing.T) {
	srv := testServer(t)

	// Start a run that suspends on the safe-drop question.
	q := url.Values{}
	q.Set("scenario", "Recipient is not home, driver waiting at the door in T Nagar.")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/agent/run?"+q.Encode(), nil))

	trace := sseEvents(t, rec.Body.String())
	clarify, ok := trace[len(trace)-1].Clarify()
	require.True(t, ok)
	require.Equal(t, "safe_drop_ok", clarify.QuestionID)
	require.NotEmpty(t, clarify.SessionID)

	// Answer yes over GET; the resumed stream finishes with a safe drop.
	q = url.Values{}
	q.Set("session_id", clarify.SessionID)
	q.Set("question_id", clarify.QuestionID)
	q.Set("expected", "boolean")
	q.Set("answer", "yes")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/agent/clarify/continue?"+q.Encode(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resumed := sseEvents(t, rec.Body.String())
	summary, ok := resumed[len(resumed)-1].Summary()
	require.True(t, ok)
	require.Equal(t, "resolved", summary.Outcome)
	require.Contains(t, summary.Message, "Safe-drop approved")
}

func TestClarifyContinueUnknownSession(t *testing.T) {
	srv := testServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/agent/clarify/continue?session_id=gone&question_id=q1&answer=yes", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResolveSyncReturnsTrace(t *testing.T) {
	srv := testServer(t)

	body, _ := json.Marshal(map[string]any{
		"scenario": "Heavy traffic from SRMIST Chennai to Chennai International Airport.",
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/agent/resolve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Trace []map[string]any `json:"trace"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.GreaterOrEqual(t, len(resp.Trace), 4)
	require.Equal(t, "session", resp.Trace[0]["type"])
	require.Equal(t, "summary", resp.Trace[len(resp.Trace)-1]["type"])
}

func TestEvidenceUploadAttachesToSession(t *testing.T) {
	srv := testServer(t)

	// Suspend a damage dispute on the photo request.
	q := url.Values{}
	q.Set("scenario", "The package arrived spilled with a broken seal, customer disputes the order.")
	q.Set("order_id", "ord-55")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/agent/run?"+q.Encode(), nil))

	trace := sseEvents(t, rec.Body.String())
	clarify, ok := trace[len(trace)-1].Clarify()
	require.True(t, ok)
	require.Equal(t, "evidence_images", clarify.QuestionID)

	// Upload two photos against that session.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("order_id", "ord-55"))
	require.NoError(t, mw.WriteField("session_id", clarify.SessionID))
	require.NoError(t, mw.WriteField("question_id", clarify.QuestionID))
	for _, name := range []string{"seal.jpg", "bag.jpg"} {
		part, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("jpeg-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/evidence/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		OK    bool     `json:"ok"`
		Files []string `json:"files"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.OK)
	require.Len(t, resp.Files, 2)

	// Resuming with the recorded answer completes the mediation flow.
	q = url.Values{}
	q.Set("session_id", clarify.SessionID)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/agent/run?"+q.Encode(), nil))

	resumed := sseEvents(t, rec.Body.String())
	summary, ok := resumed[len(resumed)-1].Summary()
	require.True(t, ok)
	require.Equal(t, "resolved", summary.Outcome)
	require.Contains(t, summary.Message, "Resolution communicated")
}

func TestNotifySend(t *testing.T) {
	srv := testServer(t)

	body, _ := json.Marshal(map[string]any{"token": "device-1", "title": "Test", "body": "hello"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/notify/send", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var res notify.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.True(t, res.Delivered)
	require.True(t, res.DryRun)
}

func TestNotifySendRequiresToken(t *testing.T) {
	srv := testServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/notify/send", strings.NewReader(`{"title":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t)

	// Drive one run so counters move.
	q := url.Values{}
	q.Set("scenario", "Heavy traffic from SRMIST Chennai to Chennai International Airport.")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/agent/run?"+q.Encode(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "synapse_agent_runs_started_total")
	require.Contains(t, rec.Body.String(), "synapse_agent_events_emitted_total")
}
