package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"synapse/internal/logging"
)

// ErrorCodeUnregistered is the push-service error for a device token that is
// no longer valid. Clients seeing it in an observation should mint a fresh
// token.
const ErrorCodeUnregistered = "UNREGISTERED"

// Result describes one delivery attempt. The field names mirror the wire
// observations the agent emits, so a Result can be embedded directly into a
// step observation.
type Result struct {
	Delivered bool   `json:"delivered"`
	DryRun    bool   `json:"dryRun,omitempty"`
	Reason    string `json:"reason,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
	Error     string `json:"error,omitempty"`
	// Retryable marks transient failures: network errors, throttling, and
	// server-side 5xx. Token problems like UNREGISTERED are permanent.
	Retryable bool `json:"retryable,omitempty"`
}

// Sender delivers push notifications to device tokens.
type Sender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) Result
}

// AccessTokenProvider supplies short-lived bearer tokens for the push API.
type AccessTokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// StaticToken is an AccessTokenProvider for a fixed, pre-issued token.
type StaticToken string

func (t StaticToken) AccessToken(context.Context) (string, error) {
	if t == "" {
		return "", errors.New("notify: empty access token")
	}
	return string(t), nil
}

// Placeholder tokens show up when a demo UI submits the literal parameter
// name instead of a real device token.
func isPlaceholderToken(token string) bool {
	t := strings.ToLower(strings.TrimSpace(token))
	switch t {
	case "", "token", "customer_token", "driver_token", "passenger_token", "str":
		return true
	}
	return false
}

// DryRun is a Sender that reports success without touching the network, so
// notification flows stay testable without push credentials.
type DryRun struct {
	logger logging.Logger
}

// NewDryRun creates a dry-run sender.
func NewDryRun() *DryRun {
	return &DryRun{logger: logging.NewComponentLogger("Notify")}
}

func (d *DryRun) Send(_ context.Context, token, title, _ string, _ map[string]string) Result {
	d.logger.Info("dry run: simulating delivery of %q to %s", title, maskToken(token))
	return Result{Delivered: true, DryRun: true}
}

// FCMSender delivers WebPush notifications through the FCM v1 HTTP API.
type FCMSender struct {
	projectID string
	endpoint  string
	client    *http.Client
	tokens    AccessTokenProvider
	logger    logging.Logger
}

// NewFCMSender creates a sender for the given project. endpoint overrides
// the API host for tests; empty means production.
func NewFCMSender(projectID string, tokens AccessTokenProvider, endpoint string) *FCMSender {
	if endpoint == "" {
		endpoint = "https://fcm.googleapis.com"
	}
	return &FCMSender{
		projectID: projectID,
		endpoint:  strings.TrimRight(endpoint, "/"),
		client:    &http.Client{Timeout: 10 * time.Second},
		tokens:    tokens,
		logger:    logging.NewComponentLogger("Notify"),
	}
}

func (s *FCMSender) Send(ctx context.Context, token, title, body string, data map[string]string) Result {
	if isPlaceholderToken(token) {
		return Result{Delivered: false, Reason: "missing_or_placeholder_device_token"}
	}

	access, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return Result{Delivered: false, Error: fmt.Sprintf("access token: %v", err)}
	}

	msg := map[string]any{
		"message": map[string]any{
			"token": token,
			"webpush": map[string]any{
				"headers": map[string]string{"Urgency": "high"},
				"notification": map[string]any{
					"title":              title,
					"body":               body,
					"requireInteraction": true,
				},
				"data": data,
			},
		},
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return Result{Delivered: false, Error: err.Error()}
	}

	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", s.endpoint, s.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Result{Delivered: false, Error: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+access)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Result{Delivered: false, Error: err.Error(), Retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode == http.StatusOK {
		s.logger.Info("delivered %q to %s", title, maskToken(token))
		return Result{Delivered: true}
	}

	result := Result{
		Delivered: false,
		Error:     strings.TrimSpace(string(raw)),
		ErrorCode: extractErrorCode(raw),
		Retryable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
	}
	s.logger.Warn("delivery to %s failed: %d %s", maskToken(token), resp.StatusCode, result.ErrorCode)
	return result
}

// extractErrorCode pulls the FCM error status out of an error response, e.g.
// UNREGISTERED for a stale device token.
func extractErrorCode(raw []byte) string {
	var body struct {
		Error struct {
			Status  string `json:"status"`
			Details []struct {
				ErrorCode string `json:"errorCode"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	for _, d := range body.Error.Details {
		if d.ErrorCode != "" {
			return d.ErrorCode
		}
	}
	return body.Error.Status
}

func maskToken(token string) string {
	token = strings.TrimSpace(token)
	if len(token) <= 8 {
		return "…"
	}
	return token[:4] + "…" + token[len(token)-4:]
}
