package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/approvalflow-prototype/internal/api/handler"
	"github.com/xela07ax/approvalflow-prototype/internal/api/server"
	"github.com/xela07ax/approvalflow-prototype/internal/api/service"
	"github.com/xela07ax/approvalflow-prototype/internal/finalize"
	"github.com/xela07ax/approvalflow-prototype/internal/infra"
	"github.com/xela07ax/approvalflow-prototype/internal/queue"
	"github.com/xela07ax/approvalflow-prototype/internal/repository/postgres"
	"github.com/xela07ax/approvalflow-prototype/internal/signals"
	"go.uber.org/zap"
)

func main() {
	// 1. Инициализация ресурсов
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	repo, err := postgres.NewTaskRepo(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to init postgres", zap.Error(err))
	}
	if err := repo.Ping(ctx); err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}
	cancel()
	defer repo.Close()

	// 2. Инициализация слоев (Dependency Injection)
	stream := queue.NewRedisStream(rdb, cfg.Queue, logger)
	signaler := signals.NewRedisSignaler(rdb, logger)

	requestService := service.NewRequestService(repo, stream, logger)
	finalizer := finalize.NewFinalizer(repo, signaler, logger)

	requestHandler := handler.NewRequestHandler(requestService)
	decisionHandler := handler.NewDecisionHandler(finalizer)

	apiServer := server.NewAPIServer(cfg, logger, requestHandler, decisionHandler)

	// 3. Запуск сервера
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      apiServer,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("approval API started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 4. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("approval API stopping...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server shutdown failed", zap.Error(err))
	}
	logger.Info("approval API exited properly")
}
