package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecmatch/internal/domain"
	chiTransport "github.com/kailas-cloud/vecmatch/internal/transport/chi"
	healthuc "github.com/kailas-cloud/vecmatch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/vecmatch/internal/usecase/search"
)

func runServe(cmd *cobra.Command, flags rootFlags) error {
	a, ctx, err := bootstrap(cmd.Context(), flags, "serve")
	if err != nil {
		return err
	}
	defer a.close()

	store, err := a.loadCorpus(ctx)
	if err != nil {
		return err
	}
	if store.Len() == 0 {
		a.logger.Warn("Corpus is empty; search requests will be rejected until restart")
	}

	searchSvc := searchuc.New(store, a.embedder, a.resolver(),
		a.cfg.Pipeline.SearchThreshold, a.cfg.Pipeline.TopK, a.logger)

	// Pass nil interface (not typed nil pointer!) if the cache is not configured.
	var cachePinger healthuc.Pinger
	if a.cache != nil {
		cachePinger = a.cache
	}
	healthSvc := healthuc.New(a.store, cachePinger, newEmbeddingHealthChecker(a.base), a.logger)

	server := chiTransport.NewServer(searchSvc, healthSvc, store, a.logger)

	addr := fmt.Sprintf(":%d", a.cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(a.cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", addr), zap.Bool("auth", len(a.cfg.Auth.APIKeys) > 0))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			a.logger.Error("HTTP server error", zap.Error(err))
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Error during shutdown", zap.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}

	a.logger.Info("Server stopped gracefully")
	return nil
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
