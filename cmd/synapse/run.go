package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"synapse/internal/events"
	"synapse/internal/logging"
	"synapse/internal/stream"
	"synapse/internal/trace"
)

func newRunCmd() *cobra.Command {
	var (
		presetName     string
		presetFile     string
		origin         string
		dest           string
		customerToken  string
		driverToken    string
		passengerToken string
		tui            bool
	)

	cmd := &cobra.Command{
		Use:   "run [scenario text]",
		Short: "Stream a scenario through the agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario := strings.TrimSpace(strings.Join(args, " "))

			if presetName != "" {
				preset, err := loadPreset(presetFile, presetName)
				if err != nil {
					return err
				}
				scenario = preset.Scenario
				if origin == "" {
					origin = preset.Origin
				}
				if dest == "" {
					dest = preset.Dest
				}
			}
			if scenario == "" {
				return errors.New("provide a scenario (or --preset)")
			}
			if origin != "" && dest != "" {
				scenario += fmt.Sprintf("\n\n(Hint: origin=%s, dest=%s)", origin, dest)
			}

			tokens := stream.DeviceTokens{
				Customer:  customerToken,
				Driver:    driverToken,
				Passenger: passengerToken,
			}
			if tui {
				return runScenarioTUI(cmd.Context(), scenario, tokens)
			}
			return runScenario(cmd.Context(), cmd, scenario, tokens)
		},
	}

	cmd.Flags().StringVar(&presetName, "preset", "", "run a named scenario preset")
	cmd.Flags().StringVar(&presetFile, "presets-file", "", "YAML file with scenario presets")
	cmd.Flags().StringVar(&origin, "origin", "", "trip origin (place name or lat,lon)")
	cmd.Flags().StringVar(&dest, "dest", "", "trip destination (place name or lat,lon)")
	cmd.Flags().StringVar(&customerToken, "customer-token", "", "customer push token")
	cmd.Flags().StringVar(&driverToken, "driver-token", "", "driver push token")
	cmd.Flags().StringVar(&passengerToken, "passenger-token", "", "passenger push token")
	cmd.Flags().BoolVar(&tui, "tui", false, "render the trace in the interactive timeline")
	return cmd
}

func runScenario(ctx context.Context, cmd *cobra.Command, scenario string, tokens stream.DeviceTokens) error {
	out := cmd.OutOrStdout()

	updates := make(chan struct{}, 1)
	mgr := stream.NewManager(stream.NewSSEClient(serverURL, nil),
		stream.WithTokens(tokens),
		stream.WithLogger(logging.NewComponentLogger("CLI")),
		stream.WithOnUpdate(func() {
			select {
			case updates <- struct{}{}:
			default:
			}
		}))

	if err := mgr.Start(ctx, scenario); err != nil {
		return err
	}

	rendered := 0
	for {
		select {
		case <-ctx.Done():
			mgr.Stop()
			return ctx.Err()
		case <-updates:
		}

		rendered = renderNewEvents(out, mgr.Log(), rendered)

		switch mgr.Status() {
		case stream.StatusDone:
			return nil
		case stream.StatusError:
			return errors.New(mgr.ErrorMessage())
		case stream.StatusAwaiting:
			clarify, ok := mgr.Log().PendingClarify()
			if !ok {
				continue
			}
			answer, err := promptAnswer(clarify)
			if err != nil {
				mgr.Stop()
				return err
			}
			if err := mgr.Resume(ctx, answer); err != nil {
				return err
			}
		}
	}
}

// renderNewEvents prints every event past the already-rendered prefix and
// returns the new prefix length.
func renderNewEvents(out io.Writer, log *trace.Log, rendered int) int {
	recorded := log.Events()
	for _, rec := range recorded[rendered:] {
		renderEvent(out, rec.Event)
	}
	return len(recorded)
}

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	toolColor    = color.New(color.FgYellow)
	passColor    = color.New(color.FgGreen)
	failColor    = color.New(color.FgRed)
	subtleColor  = color.New(color.FgHiBlack)
	summaryColor = color.New(color.FgGreen, color.Bold)
)

func renderEvent(out io.Writer, evt events.Event) {
	switch evt.Type {
	case events.TypeSession:
		subtleColor.Fprintf(out, "session %s\n", evt.SessionID())
	case events.TypeClassification:
		if cls, ok := evt.Classification(); ok {
			headerColor.Fprintf(out, "classified: %s", cls.Kind)
			subtleColor.Fprintf(out, " (severity %s, uncertainty %.2f)\n", cls.Severity, cls.Uncertainty)
		}
	case events.TypeStep:
		if step, ok := evt.Step(); ok {
			mark := passColor.Sprint("ok")
			if !step.Passed {
				mark = failColor.Sprint("FAIL")
			}
			fmt.Fprintf(out, "  [%d] %s ", step.Index, mark)
			toolColor.Fprintf(out, "%-32s", step.Tool)
			fmt.Fprintf(out, " %s\n", step.Intent)
			for _, detail := range stepDetails(step) {
				subtleColor.Fprintf(out, "        %s\n", detail)
			}
		}
	case events.TypeClarify:
		if clarify, ok := evt.Clarify(); ok {
			headerColor.Fprintf(out, "? %s\n", clarify.Question)
		}
	case events.TypeSummary:
		if summary, ok := evt.Summary(); ok {
			summaryColor.Fprintf(out, "%s: %s\n", summary.Outcome, summary.Message)
		}
	case events.TypeError:
		failColor.Fprintf(out, "error: %s\n", evt.ErrorMessage())
	}
}

// stepDetails picks the observation numbers worth a line of their own.
func stepDetails(step events.Step) []string {
	var details []string
	if delay, ok := events.DelayMinutes(step.Observation); ok {
		details = append(details, fmt.Sprintf("delay %.0f min", delay))
	}
	if gain, ok := events.ImprovementMinutes(step.Observation); ok {
		details = append(details, fmt.Sprintf("saves %.0f min", gain))
	}
	if eta, ok := events.ETAMinutes(step.Observation); ok {
		details = append(details, fmt.Sprintf("eta %.0f min", eta))
	}
	if mp, ok := events.ExtractMap(step.Observation); ok {
		switch {
		case mp.Candidate != nil && mp.Baseline != nil:
			details = append(details, fmt.Sprintf("routes: %.0f min now vs %.0f min via %s",
				mp.Baseline.TrafficMin, mp.Candidate.DurationMin, mp.Candidate.Summary))
		case len(mp.Markers) > 0:
			details = append(details, fmt.Sprintf("%d places on map", len(mp.Markers)))
		}
	}
	return details
}

// promptAnswer collects the user's answer to a clarify question in the shape
// its answer type expects.
func promptAnswer(clarify events.Clarify) (stream.Answer, error) {
	switch {
	case clarify.Expected == "boolean":
		prompt := promptui.Select{
			Label: clarify.Question,
			Items: []string{"yes", "no"},
		}
		_, choice, err := prompt.Run()
		if err != nil {
			return stream.Answer{}, err
		}
		if choice == "yes" {
			return stream.Yes(), nil
		}
		return stream.No(), nil

	case len(clarify.Options) > 0:
		prompt := promptui.Select{
			Label: clarify.Question,
			Items: clarify.Options,
		}
		_, choice, err := prompt.Run()
		if err != nil {
			return stream.Answer{}, err
		}
		return stream.Text(choice), nil

	case clarify.Expected == "image[]":
		prompt := promptui.Prompt{
			Label: clarify.Question + " (comma-separated file references)",
		}
		raw, err := prompt.Run()
		if err != nil {
			return stream.Answer{}, err
		}
		var refs []string
		for _, ref := range strings.Split(raw, ",") {
			if ref = strings.TrimSpace(ref); ref != "" {
				refs = append(refs, ref)
			}
		}
		return stream.Evidence(refs), nil

	default:
		prompt := promptui.Prompt{Label: clarify.Question}
		raw, err := prompt.Run()
		if err != nil {
			return stream.Answer{}, err
		}
		return stream.Text(raw), nil
	}
}
