package stream

import "errors"

// MissingSessionError reports a resume attempt before any session id was
// established. No transport action is taken when it is returned.
type MissingSessionError struct{}

func (*MissingSessionError) Error() string {
	return "no session id known for this run; cannot resume"
}

// ErrNoEvidence reports an image[] answer submitted without uploaded file
// references.
var ErrNoEvidence = errors.New("image answer requires uploaded file references")

// ErrNoPendingClarify reports a resume attempt when no clarify question is
// pending.
var ErrNoPendingClarify = errors.New("no pending clarify question")
