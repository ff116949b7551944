package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	noColor   bool
)

func main() {
	root := &cobra.Command{
		Use:   "synapse",
		Short: "Synapse incident agent client",
		Long: "Client for the Synapse delivery-incident agent: stream scenarios,\n" +
			"answer clarify questions, replay saved traces, and inspect the\n" +
			"tool catalog.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	root.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:5000", "agent server base URL")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	root.AddCommand(newRunCmd())
	root.AddCommand(newReplayCmd())
	root.AddCommand(newToolsCmd())
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
