package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools the agent can call",
		RunE: func(cmd *cobra.Command, _ []string) error {
			color.NoColor = color.NoColor || noColor

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, serverURL+"/api/tools", nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				return fmt.Errorf("server returned %s: %s", resp.Status, body)
			}

			var payload struct {
				Tools []struct {
					Name   string            `json:"name"`
					Desc   string            `json:"desc"`
					Schema map[string]string `json:"schema"`
				} `json:"tools"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return err
			}

			sort.Slice(payload.Tools, func(i, j int) bool {
				return payload.Tools[i].Name < payload.Tools[j].Name
			})

			out := cmd.OutOrStdout()
			for _, tool := range payload.Tools {
				toolColor.Fprintf(out, "%-34s", tool.Name)
				fmt.Fprintf(out, " %s\n", tool.Desc)
			}
			fmt.Fprintf(out, "\n%d tools\n", len(payload.Tools))
			return nil
		},
	}
}
