package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"synapse/internal/agent"
	"synapse/internal/config"
	"synapse/internal/dispatch"
	"synapse/internal/evidence"
	"synapse/internal/logging"
	"synapse/internal/notify"
	"synapse/internal/server"
	"synapse/internal/session"
	"synapse/internal/tools"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the agent server in-process",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			repo, err := evidence.NewRepo(cfg.EvidenceDir)
			if err != nil {
				return fmt.Errorf("evidence store: %w", err)
			}

			sender := notify.Sender(notify.NewDryRun())
			if !cfg.PushDryRun && cfg.PushProjectID != "" && cfg.PushAccessToken != "" {
				sender = notify.NewFCMSender(cfg.PushProjectID, notify.StaticToken(cfg.PushAccessToken), "")
			}

			registry := tools.NewRegistry(tools.Deps{
				Notifier:              sender,
				Evidence:              repo,
				Orders:                dispatch.NewBook(),
				DefaultCustomerToken:  cfg.DefaultCustomerToken,
				DefaultDriverToken:    cfg.DefaultDriverToken,
				DefaultPassengerToken: cfg.DefaultPassengerToken,
			})
			sessions := session.NewStore(cfg.SessionCapacity)
			runner := agent.New(registry, sessions, &agent.Policy{Evidence: repo},
				agent.WithLogger(logging.NewComponentLogger("Agent")),
				agent.WithRunConfig(agent.RunConfig{
					MaxSteps:    cfg.MaxSteps,
					MaxDuration: cfg.MaxDuration,
					StreamDelay: cfg.StreamDelay,
				}))

			srv := server.New(cfg, server.Deps{
				Agent:    runner,
				Registry: registry,
				Sessions: sessions,
				Evidence: repo,
				Notifier: sender,
				Logger:   logging.NewComponentLogger("HTTP"),
			})

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			fmt.Fprintf(cmd.OutOrStdout(), "serving on %s\n", cfg.Addr())
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	return cmd
}
