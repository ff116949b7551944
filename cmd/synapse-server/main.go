package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

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

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "synapse-server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	logger := logging.NewComponentLogger("Main")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.Info("starting on %s (push dry run: %v, max steps: %d)",
		cfg.Addr(), cfg.PushDryRun, cfg.MaxSteps)

	repo, err := evidence.NewRepo(cfg.EvidenceDir)
	if err != nil {
		return fmt.Errorf("evidence store: %w", err)
	}

	sender := buildSender(cfg, logger)

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

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return srv.Run(ctx)
	})

	if err := group.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

func buildSender(cfg *config.Config, logger logging.Logger) notify.Sender {
	if cfg.PushDryRun {
		return notify.NewDryRun()
	}
	if cfg.PushProjectID == "" || cfg.PushAccessToken == "" {
		logger.Warn("push credentials missing, falling back to dry run")
		return notify.NewDryRun()
	}
	return notify.NewFCMSender(cfg.PushProjectID, notify.StaticToken(cfg.PushAccessToken), "")
}
