package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"synapse/internal/stream"
	"synapse/internal/ui"
)

// runScenarioTUI streams the scenario into the interactive timeline. Clarify
// questions are answered inside the timeline itself.
func runScenarioTUI(ctx context.Context, scenario string, tokens stream.DeviceTokens) error {
	var program *tea.Program

	mgr := stream.NewManager(stream.NewSSEClient(serverURL, nil),
		stream.WithTokens(tokens),
		stream.WithOnUpdate(func() {
			if program != nil {
				program.Send(ui.RefreshMsg{})
			}
		}),
	)

	timeline := ui.NewTimeline(mgr)
	program = tea.NewProgram(timeline, tea.WithContext(ctx))

	if err := mgr.Start(ctx, scenario); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}
	defer mgr.Stop()

	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	}
	if mgr.Status() == stream.StatusError {
		return errors.New(mgr.ErrorMessage())
	}
	return nil
}
