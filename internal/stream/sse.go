package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"synapse/internal/logging"
)

const (
	sseScannerInitialBuffer = 64 * 1024
	sseScannerMaxBuffer     = 512 * 1024
)

// SSEClient is the HTTP transport for the agent stream endpoints. Each open
// call issues a GET whose response body is a text/event-stream; payload
// lines are delivered with the "data:" framing stripped, and comment lines
// (server heartbeats) are dropped before they reach the consumer.
type SSEClient struct {
	baseURL string
	client  *http.Client
	logger  logging.Logger
}

// NewSSEClient creates a transport against the given base URL, e.g.
// "http://localhost:5000".
func NewSSEClient(baseURL string, client *http.Client) *SSEClient {
	if client == nil {
		// SSE responses stay open indefinitely, so the client must not
		// carry an overall request timeout.
		client = &http.Client{}
	}
	return &SSEClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logging.NewComponentLogger("SSEClient"),
	}
}

// OpenRun subscribes to a fresh agent run.
func (c *SSEClient) OpenRun(ctx context.Context, req RunRequest) (Subscription, error) {
	query := url.Values{}
	query.Set("scenario", req.Scenario)
	if req.Origin != "" {
		query.Set("origin", req.Origin)
	}
	if req.Dest != "" {
		query.Set("dest", req.Dest)
	}
	addTokens(query, req.Tokens)
	return c.open(ctx, "/api/agent/run", query)
}

// OpenResume reopens a suspended session with an encoded answer.
func (c *SSEClient) OpenResume(ctx context.Context, req ResumeRequest) (Subscription, error) {
	query := url.Values{}
	query.Set("session_id", req.SessionID)
	query.Set("question_id", req.QuestionID)
	if req.Expected != "" {
		query.Set("expected", req.Expected)
	}
	query.Set("answer", req.Answer)
	addTokens(query, req.Tokens)
	return c.open(ctx, "/api/agent/clarify/continue", query)
}

func addTokens(query url.Values, tokens DeviceTokens) {
	if tokens.Customer != "" {
		query.Set("customer_token", tokens.Customer)
	}
	if tokens.Driver != "" {
		query.Set("driver_token", tokens.Driver)
	}
	if tokens.Passenger != "" {
		query.Set("passenger_token", tokens.Passenger)
	}
}

func (c *SSEClient) open(ctx context.Context, path string, query url.Values) (Subscription, error) {
	endpoint := c.baseURL + path + "?" + query.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("open stream: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	sub := &sseSubscription{
		body:  resp.Body,
		lines: make(chan string, 64),
	}
	go sub.read(c.logger)
	return sub, nil
}

type sseSubscription struct {
	body      io.ReadCloser
	lines     chan string
	closeOnce sync.Once
	closed    atomic.Bool

	mu  sync.Mutex
	err error
}

func (s *sseSubscription) Lines() <-chan string {
	return s.lines
}

func (s *sseSubscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close tears down the stream. Closing an already-closed subscription is a
// no-op; the read loop exits when the body close interrupts its scan.
func (s *sseSubscription) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		_ = s.body.Close()
	})
}

func (s *sseSubscription) read(logger logging.Logger) {
	defer close(s.lines)

	scanner := bufio.NewScanner(s.body)
	scanner.Buffer(make([]byte, 0, sseScannerInitialBuffer), sseScannerMaxBuffer)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		s.lines <- payload
	}

	if err := scanner.Err(); err != nil && !s.closed.Load() {
		// A read error after our own Close is teardown, not a transport
		// failure; only genuine failures are recorded.
		logger.Debug("stream read error: %v", err)
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
	}
	s.Close()
}
