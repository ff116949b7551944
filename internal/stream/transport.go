package stream

import "context"

// DeviceTokens carries the push-notification tokens attached to every run
// and resume request. Empty fields are omitted from the request.
type DeviceTokens struct {
	Customer  string
	Driver    string
	Passenger string
}

// TokenSource supplies the current device token for the local client, and
// can mint a fresh one after the server reports the old token invalidated.
type TokenSource interface {
	Token() string
	Refresh() (string, error)
}

// RunRequest opens a fresh agent run for a scenario.
type RunRequest struct {
	Scenario string
	Origin   string
	Dest     string
	Tokens   DeviceTokens
}

// ResumeRequest reopens a suspended session with the answer to its pending
// clarify question. Answer is the encoded wire form produced by
// EncodeAnswer.
type ResumeRequest struct {
	SessionID  string
	QuestionID string
	Expected   string
	Answer     string
	Tokens     DeviceTokens
}

// Subscription is one open event stream. Lines yields logical payload lines
// (SSE framing already stripped); the channel closes when the stream ends.
// Err reports the transport failure, if any, once Lines has closed. Close
// tears the stream down and is safe to call any number of times, including
// after the transport already closed.
type Subscription interface {
	Lines() <-chan string
	Err() error
	Close()
}

// Transport opens subscriptions against the agent backend. Implementations
// must not interpret payload lines; decoding belongs to the consumer.
type Transport interface {
	OpenRun(ctx context.Context, req RunRequest) (Subscription, error)
	OpenResume(ctx context.Context, req ResumeRequest) (Subscription, error)
}
