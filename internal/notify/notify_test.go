package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type staticTokens string

func (s staticTokens) AccessToken(context.Context) (string, error) {
	return string(s), nil
}

func TestDryRunAlwaysDelivers(t *testing.T) {
	res := NewDryRun().Send(context.Background(), "any-token", "Order Update", "hello", nil)
	require.True(t, res.Delivered)
	require.True(t, res.DryRun)
}

func TestFCMSenderRejectsPlaceholderTokens(t *testing.T) {
	s := NewFCMSender("demo", staticTokens("at"), "http://127.0.0.1:1")
	for _, token := range []string{"", "  ", "token", "CUSTOMER_TOKEN", "str"} {
		res := s.Send(context.Background(), token, "t", "b", nil)
		require.False(t, res.Delivered)
		require.Equal(t, "missing_or_placeholder_device_token", res.Reason)
	}
}

func TestFCMSenderDelivers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/projects/demo/messages:send", r.URL.Path)
		require.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"name":"projects/demo/messages/m-1"}`))
	}))
	defer server.Close()

	s := NewFCMSender("demo", staticTokens("at"), server.URL)
	res := s.Send(context.Background(), "real-device-token-123", "Route Update", "faster route found", map[string]string{"voucher": "false"})
	require.True(t, res.Delivered)
	require.Empty(t, res.ErrorCode)
}

func TestFCMSenderReportsUnregistered(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"status":"NOT_FOUND","details":[{"errorCode":"UNREGISTERED"}]}}`))
	}))
	defer server.Close()

	s := NewFCMSender("demo", staticTokens("at"), server.URL)
	res := s.Send(context.Background(), "stale-device-token-456", "Route Update", "body", nil)
	require.False(t, res.Delivered)
	require.Equal(t, ErrorCodeUnregistered, res.ErrorCode)
}

func TestFCMSenderMarksServerErrorsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"status":"UNAVAILABLE"}}`))
	}))
	defer server.Close()

	s := NewFCMSender("demo", staticTokens("at"), server.URL)
	res := s.Send(context.Background(), "real-device-token-123", "Route Update", "body", nil)
	require.False(t, res.Delivered)
	require.True(t, res.Retryable)

	// A stale token is a permanent failure, never retried.
	server2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"status":"NOT_FOUND","details":[{"errorCode":"UNREGISTERED"}]}}`))
	}))
	defer server2.Close()

	s2 := NewFCMSender("demo", staticTokens("at"), server2.URL)
	res2 := s2.Send(context.Background(), "stale-device-token-456", "Route Update", "body", nil)
	require.False(t, res2.Retryable)
}
