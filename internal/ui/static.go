package ui

import (
	"context"
	"errors"

	"synapse/internal/stream"
	"synapse/internal/trace"
)

// staticController serves a pre-recorded trace. Replay of a saved trace has
// no live stream behind it, so Resume is rejected and the status is fixed.
type staticController struct {
	log *trace.Log
}

// NewStaticController wraps an already-populated log for offline replay.
func NewStaticController(log *trace.Log) Controller {
	return &staticController{log: log}
}

func (s *staticController) Log() *trace.Log      { return s.log }
func (s *staticController) ErrorMessage() string { return "" }
func (s *staticController) Stop()                {}

func (s *staticController) Status() stream.Status {
	if _, ok := s.log.LatestError(); ok {
		return stream.StatusError
	}
	return stream.StatusDone
}

func (s *staticController) Resume(context.Context, stream.Answer) error {
	return errors.New("recorded trace cannot be resumed")
}
