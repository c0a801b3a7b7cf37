package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/approvalflow-prototype/internal/consumer"
	"github.com/xela07ax/approvalflow-prototype/internal/infra"
	"github.com/xela07ax/approvalflow-prototype/internal/notify"
	"github.com/xela07ax/approvalflow-prototype/internal/queue"
	"github.com/xela07ax/approvalflow-prototype/internal/repository/postgres"
	"github.com/xela07ax/approvalflow-prototype/internal/signals"
	"go.uber.org/zap"
)

func main() {
	// 1. Инфраструктура и ресурсы
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

	// Контекст для управления жизненным циклом фоновых горутин
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := postgres.NewTaskRepo(appCtx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to init postgres", zap.Error(err))
	}
	defer repo.Close()

	// Проверяем соединение с таймаутом
	pingCtx, pingCancel := context.WithTimeout(appCtx, 5*time.Second)
	if err := repo.Ping(pingCtx); err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}
	pingCancel()

	// 2. Очередь callback-ов (consumer group + защита транспорта)
	stream := queue.NewRedisStream(rdb, cfg.Queue, logger)
	if err := stream.Init(appCtx); err != nil {
		logger.Fatal("failed to init callback stream", zap.Error(err))
	}
	safeQueue := queue.NewResilient(stream)

	// 3. Метрики
	reg := prometheus.NewRegistry()
	metrics := consumer.NewMetrics(reg)

	// Экспортируем метрики для Prometheus
	go func() {
		http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		log.Fatal(http.ListenAndServe(":9090", nil))
	}()

	// 4. Сборка ядра потребителя
	dispatcher := notify.NewDispatcher(notify.NewLogSender(logger), cfg.Notify.SendRate, logger)
	dispatcher.Start()

	signaler := signals.NewRedisSignaler(rdb, logger)
	store := consumer.NewRetryingStore(repo)
	correlator := consumer.NewCorrelator(store, dispatcher, signaler, metrics, cfg.Notify.BaseURL, logger)
	poller := consumer.NewPoller(safeQueue, correlator, cfg.Queue, metrics, logger)

	go poller.Run(appCtx)
	logger.Info("callback consumer started",
		zap.String("stream", cfg.Queue.Stream),
		zap.String("group", cfg.Queue.Group))

	// 5. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-stop // Ждем сигнал
	logger.Info("callback consumer stopping...")

	// Останавливаем опрос; недообработанные сообщения безопасно переиграет очередь
	cancel()
	// Дожимаем буфер уведомлений до конца
	dispatcher.Stop()
	logger.Info("callback consumer exited properly")
}
