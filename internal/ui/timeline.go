package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"synapse/internal/events"
	"synapse/internal/stream"
	"synapse/internal/trace"
)

// Controller is the slice of the stream manager the timeline drives.
// *stream.Manager satisfies it.
type Controller interface {
	Log() *trace.Log
	Status() stream.Status
	ErrorMessage() string
	Resume(ctx context.Context, answer stream.Answer) error
	Stop()
}

// RefreshMsg tells the timeline to re-read the trace log. The runner sends
// it from the manager's update hook.
type RefreshMsg struct{}

type tickMsg time.Time

// Timeline is the interactive trace view: a step list that follows the live
// stream, supports seeking through history, replaying from the start, and
// answering clarify questions in place.
type Timeline struct {
	ctrl     Controller
	playback *trace.Playback

	spin  spinner.Model
	input textinput.Model

	// answering is set while a clarify question is on screen.
	answering bool
	clarify   events.Clarify
	answerErr string

	width  int
	height int
	done   bool
}

// NewTimeline builds the timeline over a stream controller.
func NewTimeline(ctrl Controller) *Timeline {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	ti := textinput.New()
	ti.Placeholder = "type your answer"
	ti.CharLimit = 400

	return &Timeline{
		ctrl:     ctrl,
		playback: trace.NewPlayback(),
		spin:     sp,
		input:    ti,
	}
}

func (t *Timeline) Init() tea.Cmd {
	return tea.Batch(t.spin.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(trace.ReplayInterval, func(at time.Time) tea.Msg {
		return tickMsg(at)
	})
}

func (t *Timeline) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		t.width, t.height = msg.Width, msg.Height
		return t, nil

	case RefreshMsg:
		t.syncClarify()
		return t, nil

	case tickMsg:
		t.playback.Tick(t.stepCount())
		if t.done {
			return t, nil
		}
		return t, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		t.spin, cmd = t.spin.Update(msg)
		return t, cmd

	case tea.KeyMsg:
		return t.handleKey(msg)
	}
	return t, nil
}

func (t *Timeline) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if t.answering && t.clarify.Expected != "boolean" && len(t.clarify.Options) == 0 {
		// Free-text answer mode owns most keys.
		switch msg.Type {
		case tea.KeyEnter:
			t.submitAnswer(t.freeTextAnswer(t.input.Value()))
			return t, nil
		case tea.KeyEsc:
			t.answering = false
			return t, nil
		case tea.KeyCtrlC:
			return t.quit()
		}
		var cmd tea.Cmd
		t.input, cmd = t.input.Update(msg)
		return t, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return t.quit()
	case " ":
		t.playback.SetFollowLive(!t.playback.FollowLive(), t.stepCount())
	case "left", "h":
		t.playback.Seek(t.playback.ActiveIndex(t.stepCount())-1, t.stepCount())
	case "right", "l":
		t.playback.Seek(t.playback.ActiveIndex(t.stepCount())+1, t.stepCount())
	case "g":
		t.playback.Seek(0, t.stepCount())
	case "G":
		t.playback.SetFollowLive(true, t.stepCount())
	case "r":
		// The standing tick loop from Init advances the replay.
		t.playback.StartReplay()
	case "y":
		if t.answering && t.clarify.Expected == "boolean" {
			t.submitAnswer(stream.Yes())
		}
	case "n":
		if t.answering && t.clarify.Expected == "boolean" {
			t.submitAnswer(stream.No())
		}
	default:
		if t.answering && len(t.clarify.Options) > 0 {
			if idx := optionIndex(msg.String()); idx >= 0 && idx < len(t.clarify.Options) {
				t.submitAnswer(stream.Text(t.clarify.Options[idx]))
			}
		}
	}
	return t, nil
}

func (t *Timeline) quit() (tea.Model, tea.Cmd) {
	t.done = true
	t.ctrl.Stop()
	return t, tea.Quit
}

// syncClarify mirrors the pending clarify question into the answering state
// and finishes the program when the stream reaches a terminal status.
func (t *Timeline) syncClarify() {
	switch t.ctrl.Status() {
	case stream.StatusAwaiting:
		if clarify, ok := t.ctrl.Log().PendingClarify(); ok {
			if !t.answering {
				t.answering = true
				t.clarify = clarify
				t.answerErr = ""
				t.input.SetValue("")
				t.input.Focus()
			}
			return
		}
	case stream.StatusDone, stream.StatusError:
		t.answering = false
	}
}

// freeTextAnswer turns typed input into the answer shape the question
// expects. Evidence questions take comma-separated file refs.
func (t *Timeline) freeTextAnswer(value string) stream.Answer {
	if t.clarify.Expected != "image[]" {
		return stream.Text(value)
	}
	var refs []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			refs = append(refs, part)
		}
	}
	return stream.Evidence(refs)
}

func (t *Timeline) submitAnswer(answer stream.Answer) {
	if err := t.ctrl.Resume(context.Background(), answer); err != nil {
		t.answerErr = err.Error()
		return
	}
	t.answering = false
	t.answerErr = ""
	t.playback.SetFollowLive(true, t.stepCount())
}

func (t *Timeline) stepCount() int {
	return len(t.ctrl.Log().Steps())
}

func optionIndex(key string) int {
	if len(key) != 1 || key < "1" || key > "9" {
		return -1
	}
	return int(key[0] - '1')
}

// Done reports whether the user quit the timeline.
func (t *Timeline) Done() bool {
	return t.done
}

var _ tea.Model = (*Timeline)(nil)

func truncate(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max-3]) + "..."
}
