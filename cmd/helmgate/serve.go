// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/helmgate-dev/helmgate/internal/catalog"
	"github.com/helmgate-dev/helmgate/internal/config"
	"github.com/helmgate-dev/helmgate/internal/executor"
	"github.com/helmgate-dev/helmgate/internal/feedback"
	"github.com/helmgate-dev/helmgate/internal/routing"
	"github.com/helmgate-dev/helmgate/internal/secrets"
	"github.com/helmgate-dev/helmgate/internal/server"
	"github.com/helmgate-dev/helmgate/internal/statestore"
	"github.com/helmgate-dev/helmgate/internal/transport"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the helmgate gateway",
		Long:  "Load configuration, wire the routing engine, and serve the gateway API until interrupted.",
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Server.Listen = listen
	}

	// Keyring references in provider api_key fields resolve here, once,
	// before anything touches the network.
	if err := secrets.ResolveProviderKeys(cfg.Providers, secrets.NewKeyringStore()); err != nil {
		return fmt.Errorf("resolving provider secrets: %w", err)
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("loading model catalog: %w", err)
	}
	logger.Info("catalog loaded", "path", cfg.Catalog.Path, "models", len(cat.IDs()))

	kv, err := statestore.New(cfg.StateStore)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			logger.Warn("closing state store", "error", err)
		}
	}()

	registry, err := transport.NewRegistry(cfg.Providers)
	if err != nil {
		return fmt.Errorf("building transport registry: %w", err)
	}

	cooldown := routing.NewCooldown(kv, cfg.Cooldown, logger)
	recorder := feedback.NewRecorder(kv, cfg.Feedback, logger)
	decider := routing.NewDecider(cat, routing.NewStateReader(kv, logger), cooldown,
		routing.DeciderConfig{
			DefaultStrategy:    cfg.Routing.DefaultStrategy,
			HealthCheckEnabled: cfg.Routing.HealthCheckEnabled,
		}, logger)
	exec := executor.New(registry, cooldown, recorder, logger)

	srv, err := server.New(server.Config{ListenAddr: cfg.Server.Listen}, server.Services{
		Decider:  decider,
		Executor: exec,
		Cooldown: cooldown,
	}, logger)
	if err != nil {
		return fmt.Errorf("building server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("helmgate starting",
		"listen", cfg.Server.Listen,
		"backend", cfg.StateStore.Backend,
		"strategy", cfg.Routing.DefaultStrategy,
		"providers", len(cfg.Providers))

	return srv.Start(ctx)
}
