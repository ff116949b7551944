package trace

import "time"

// ReplayInterval is the cadence at which manual replay advances one step.
const ReplayInterval = 900 * time.Millisecond

// Playback is a presentation-level cursor over a log's step list. In
// follow-live mode the cursor tracks the newest step as it arrives; in
// manual replay a timer advances it one step per ReplayInterval until it
// reaches the tail. The controller holds no step data itself; callers pass
// the current step count on every read.
type Playback struct {
	follow bool
	cursor int
}

// NewPlayback creates a cursor in follow-live mode.
func NewPlayback() *Playback {
	return &Playback{follow: true}
}

// FollowLive reports whether the cursor tracks the live tail.
func (p *Playback) FollowLive() bool {
	return p.follow
}

// SetFollowLive toggles follow-live mode. Re-enabling it snaps the cursor to
// the current tail immediately.
func (p *Playback) SetFollowLive(follow bool, stepCount int) {
	p.follow = follow
	if follow {
		p.cursor = tailIndex(stepCount)
	}
}

// StartReplay leaves follow-live mode and rewinds the cursor to the first
// step. Replay only diverges from the live tail once follow-live is off.
func (p *Playback) StartReplay() {
	p.follow = false
	p.cursor = 0
}

// Tick advances the cursor by one step during manual replay. It reports
// whether the cursor moved; once the tail is reached the replay stops.
func (p *Playback) Tick(stepCount int) bool {
	if p.follow {
		return false
	}
	if p.cursor >= tailIndex(stepCount) {
		return false
	}
	p.cursor++
	return true
}

// Seek positions the cursor explicitly, clamped to the valid range, and
// leaves follow-live mode.
func (p *Playback) Seek(index, stepCount int) {
	p.follow = false
	if index < 0 {
		index = 0
	}
	if tail := tailIndex(stepCount); index > tail {
		index = tail
	}
	p.cursor = index
}

// ActiveIndex returns the cursor position for the given step count. In
// follow-live mode this is always the tail; -1 when there are no steps.
func (p *Playback) ActiveIndex(stepCount int) int {
	if stepCount == 0 {
		return -1
	}
	if p.follow {
		return tailIndex(stepCount)
	}
	if p.cursor > tailIndex(stepCount) {
		return tailIndex(stepCount)
	}
	return p.cursor
}

func tailIndex(stepCount int) int {
	if stepCount <= 0 {
		return 0
	}
	return stepCount - 1
}
