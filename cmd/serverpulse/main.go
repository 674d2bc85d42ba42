package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"serverpulse/internal/ai"
	"serverpulse/internal/analytics"
	"serverpulse/internal/bot"
	"serverpulse/internal/cache"
	"serverpulse/internal/config"
	"serverpulse/internal/store"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	eventStore, err := store.New(ctx, cfg.MongoURI)
	if err != nil {
		cancel()
		logger.Fatal("mongodb init failed", zap.Error(err))
	}
	if err := eventStore.EnsureIndexes(ctx); err != nil {
		cancel()
		logger.Fatal("index creation failed", zap.Error(err))
	}

	cacheLayer, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		cancel()
		logger.Fatal("redis init failed", zap.Error(err))
	}
	cancel()

	engine := analytics.New(eventStore, cacheLayer, eventStore, cfg.Cache, logger)
	registry := ai.NewRegistry()
	reports := ai.NewGenerator(eventStore, eventStore, registry, logger)

	botSvc, err := bot.New(cfg, logger, eventStore, cacheLayer, engine, reports)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}

	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started")

	var server *http.Server
	if cfg.Health.Enabled {
		server = &http.Server{Addr: cfg.Health.Addr}
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		go func() {
			logger.Info("health endpoint enabled", zap.String("addr", cfg.Health.Addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if server != nil {
		_ = server.Shutdown(shutdownCtx)
	}
	botSvc.Close(shutdownCtx)
	_ = cacheLayer.Close()
	_ = eventStore.Close(shutdownCtx)
}
