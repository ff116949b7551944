package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func collectLines(t *testing.T, sub Subscription) []string {
	t.Helper()
	var out []string
	deadline := time.After(5 * time.Second)
	for {
		select {
		case line, ok := <-sub.Lines():
			if !ok {
				return out
			}
			out = append(out, line)
		case <-deadline:
			t.Fatalf("stream never closed; got %d lines so far", len(out))
		}
	}
}

func TestSSEClientStripsFraming(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/agent/run", r.URL.Path)
		require.Equal(t, "late delivery", r.URL.Query().Get("scenario"))
		require.Equal(t, "tok-customer", r.URL.Query().Get("customer_token"))
		require.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(": heartbeat\n\n"))
		_, _ = w.Write([]byte("data: {\"type\":\"session\",\"data\":{\"session_id\":\"s-1\"}}\n\n"))
		_, _ = w.Write([]byte("event: ignored\n"))
		_, _ = w.Write([]byte("data:{\"type\":\"summary\",\"data\":{\"outcome\":\"resolved\"}}\n\n"))
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer server.Close()

	client := NewSSEClient(server.URL, nil)
	sub, err := client.OpenRun(context.Background(), RunRequest{
		Scenario: "late delivery",
		Tokens:   DeviceTokens{Customer: "tok-customer"},
	})
	require.NoError(t, err)
	defer sub.Close()

	lines := collectLines(t, sub)
	require.Equal(t, []string{
		`{"type":"session","data":{"session_id":"s-1"}}`,
		`{"type":"summary","data":{"outcome":"resolved"}}`,
		"[DONE]",
	}, lines)
	require.NoError(t, sub.Err())
}

func TestSSEClientResumeQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/agent/clarify/continue", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "s-9", q.Get("session_id"))
		require.Equal(t, "q-2", q.Get("question_id"))
		require.Equal(t, "boolean", q.Get("expected"))
		require.Equal(t, "yes", q.Get("answer"))

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer server.Close()

	client := NewSSEClient(server.URL, nil)
	sub, err := client.OpenResume(context.Background(), ResumeRequest{
		SessionID:  "s-9",
		QuestionID: "q-2",
		Expected:   "boolean",
		Answer:     "yes",
	})
	require.NoError(t, err)
	defer sub.Close()

	require.Equal(t, []string{"[DONE]"}, collectLines(t, sub))
}

func TestSSEClientNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"missing scenario"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewSSEClient(server.URL, nil)
	_, err := client.OpenRun(context.Background(), RunRequest{Scenario: ""})
	require.Error(t, err)
	require.Contains(t, err.Error(), "400")
	require.Contains(t, err.Error(), "missing scenario")
}

func TestSSEClientCloseStopsDelivery(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"type\":\"session\",\"data\":{\"session_id\":\"s-1\"}}\n\n"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewSSEClient(server.URL, nil)
	sub, err := client.OpenRun(context.Background(), RunRequest{Scenario: "hold open"})
	require.NoError(t, err)

	select {
	case line := <-sub.Lines():
		require.Contains(t, line, "session")
	case <-time.After(5 * time.Second):
		t.Fatal("first line never arrived")
	}

	sub.Close()
	sub.Close()

	select {
	case _, ok := <-sub.Lines():
		require.False(t, ok, "channel should close after teardown")
	case <-time.After(5 * time.Second):
		t.Fatal("lines channel never closed after Close")
	}
	// Our own teardown is not a transport failure.
	require.NoError(t, sub.Err())
}

func TestEncodeAnswer(t *testing.T) {
	cases := []struct {
		name     string
		expected string
		answer   Answer
		want     string
		wantErr  bool
	}{
		{name: "boolean yes", expected: "boolean", answer: Yes(), want: "yes"},
		{name: "boolean no", expected: "boolean", answer: No(), want: "no"},
		{name: "boolean from text", expected: "boolean", answer: Text("TRUE"), want: "yes"},
		{name: "boolean garbage", expected: "boolean", answer: Text("maybe"), wantErr: true},
		{name: "images", expected: "image[]", answer: Evidence([]string{"up-1", "up-2"}), want: `["up-1","up-2"]`},
		{name: "images empty", expected: "image[]", answer: Evidence(nil), wantErr: true},
		{name: "free text trimmed", expected: "string", answer: Text("  door code 4711  "), want: "door code 4711"},
		{name: "enumerated option", expected: "option", answer: Text("redeliver"), want: "redeliver"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EncodeAnswer(tc.expected, tc.answer)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}
