package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"synapse/internal/events"
	"synapse/internal/trace"
	"synapse/internal/ui"
)

func newReplayCmd() *cobra.Command {
	var (
		tui   bool
		delay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "replay <trace-file>",
		Short: "Replay a recorded event trace",
		Long: "Replay a trace captured from the event stream, one JSON event per\n" +
			"line. Raw SSE captures work too; \"data:\" prefixes and the end\n" +
			"marker are handled.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := loadTrace(args[0])
			if err != nil {
				return err
			}
			if log.Len() == 0 {
				return fmt.Errorf("%s contains no decodable events", args[0])
			}
			if tui {
				return replayTUI(cmd, log)
			}
			return replayFlat(cmd, log, delay)
		},
	}

	cmd.Flags().BoolVar(&tui, "tui", false, "replay in the interactive timeline")
	cmd.Flags().DurationVar(&delay, "delay", 150*time.Millisecond, "pause between replayed events")
	return cmd
}

// loadTrace reads one event per line into a fresh log.
func loadTrace(path string) (*trace.Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	log := trace.NewLog()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		evt, ok, done := events.DecodeLine(line)
		if done {
			break
		}
		if ok {
			log.Apply(evt)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return log, nil
}

func replayFlat(cmd *cobra.Command, log *trace.Log, delay time.Duration) error {
	out := cmd.OutOrStdout()
	for i, entry := range log.Events() {
		if i > 0 && delay > 0 {
			select {
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			case <-time.After(delay):
			}
		}
		renderEvent(out, entry.Event)
	}
	return nil
}

func replayTUI(cmd *cobra.Command, log *trace.Log) error {
	timeline := ui.NewTimeline(ui.NewStaticController(log))
	program := tea.NewProgram(timeline, tea.WithContext(cmd.Context()))
	_, err := program.Run()
	if err == tea.ErrProgramKilled {
		return nil
	}
	return err
}
