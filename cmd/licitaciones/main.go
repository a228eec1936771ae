// Package main запускает HTTP-сервер сервиса управления тендерами.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kaiken/licitaciones/internal/cache"
	"github.com/kaiken/licitaciones/internal/config"
	"github.com/kaiken/licitaciones/internal/handler"
	"github.com/kaiken/licitaciones/internal/repository"
	"github.com/kaiken/licitaciones/internal/service"
	"github.com/kaiken/licitaciones/internal/tracing"
)

const serviceName = "licitaciones"

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}
	logger = logger.With(zap.String("env", cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, logger, cfg.OTLPEndpoint, serviceName, cfg.Environment)
	if err != nil {
		sugar.Fatalw("tracing initialization error", "error", err.Error())
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			sugar.Warnw("tracing shutdown error", "error", err.Error())
		}
	}()

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	var readCache cache.Cache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			sugar.Fatalw("redis initialization error", "error", err.Error())
		}
		defer rc.Close()
		readCache = rc
		sugar.Infow("using redis read cache", "ttl", cfg.CacheTTL)
	} else {
		readCache = cache.NewMemory()
		sugar.Infow("using in-memory read cache", "ttl", cfg.CacheTTL)
	}

	svc := service.NewService(repo, readCache, cfg.CacheTTL, logger)
	defer svc.Close()

	h, err := handler.NewHandler(svc, logger)
	if err != nil {
		sugar.Fatalw("handler initialization error", "error", err.Error())
	}

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting licitaciones server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
