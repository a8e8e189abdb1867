// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/plotweave/plotweave/internal/config"
	"github.com/plotweave/plotweave/internal/logger"
	"github.com/plotweave/plotweave/internal/rules"
	"github.com/plotweave/plotweave/internal/server"
	"github.com/plotweave/plotweave/internal/validate"
	"github.com/plotweave/plotweave/internal/version"
)

func main() {
	cfg, err := config.NewConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.CloseGlobal()

	mainLog := logger.GetLogger("main")
	mainLog.Info().Msg("Starting plotweave API server")

	validateOpts := validate.Options{MinDescriptionLen: cfg.Engine.MinDescriptionLen}
	store := version.NewStore(validateOpts)
	engine := rules.NewEngine(rules.DefaultRegistry(), rules.Options{
		ScopeExpansionLimit: cfg.Engine.ScopeExpansionLimit,
	})
	validator := validate.New(validateOpts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := server.New(&cfg.Server, store, engine, validator)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- srv.Run(ctx)
	}()

	// Wait for signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		mainLog.Info().Msgf("Received signal %v, shutting down...", sig)
	case err := <-serverErrChan:
		if err != nil {
			mainLog.Error().Err(err).Msg("Server error")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLog.Error().Err(err).Msg("Error shutting down server")
	}

	mainLog.Info().Msg("API server shut down")
}
