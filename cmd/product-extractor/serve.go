package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/maltedev/product-extractor/internal/api"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the extraction HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	log := a.logger

	if a.refresher != nil {
		if err := a.refresher.Start(ctx); err != nil {
			return err
		}
		defer a.refresher.Stop()
	}

	var backlog api.BacklogReporter
	if a.relay != nil {
		backlog = a.relay
		go func() {
			if err := a.relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("relay stopped with error", "error", err)
			}
		}()
	}

	handlers := api.NewHandlers(a.service, a.policy, backlog, log)
	router := api.NewRouter(handlers, api.RouterOptions{
		Gatherer: a.registry,
		Metrics:  a.metrics,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", a.cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("server stopped")
	return nil
}
