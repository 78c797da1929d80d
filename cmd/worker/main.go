package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/tempizhere/shortlink/internal/config"
	"github.com/tempizhere/shortlink/internal/gate"
	"github.com/tempizhere/shortlink/internal/log"
	"github.com/tempizhere/shortlink/internal/queue"
	"github.com/tempizhere/shortlink/internal/store"
	"github.com/tempizhere/shortlink/internal/worker"
	"go.uber.org/zap"
)

func main() {
	// Создаём логгер
	logger := log.NewLogger()
	defer func() {
		_ = logger.Sync()
	}()

	// Получаем конфигурацию
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// Подключаемся к хранилищу
	st, err := store.New(cfg.RedisAddr, logger)
	if err != nil {
		logger.Fatal("failed to connect to store", zap.Error(err))
	}
	defer func() {
		_ = st.Close()
	}()

	// Останавливаемся по сигналу завершения; неподтверждённые записи
	// останутся ожидающими и будут доставлены после перезапуска
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	existenceGate := gate.NewGate(st, logger)
	qrProcessor := worker.NewQRProcessor(st, existenceGate, cfg.MediaPath, logger)
	analyticsProcessor := worker.NewAnalyticsProcessor(st, st, st, st, cfg.TSRetention, logger)

	consumers := []*queue.Consumer{
		queue.NewConsumer(st, cfg.QRStream, cfg.QRGroup, cfg.ConsumerName, qrProcessor.Process, logger),
		queue.NewConsumer(st, cfg.AnalyticsStream, cfg.AnalyticsGroup, cfg.ConsumerName, analyticsProcessor.Process, logger),
	}

	var wg sync.WaitGroup
	for _, consumer := range consumers {
		wg.Add(1)
		go func(c *queue.Consumer) {
			defer wg.Done()
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("consumer loop stopped", zap.Error(err))
			}
		}(consumer)
	}

	// Служебный HTTP-эндпоинт для проверки состояния worker-процесса
	router := chi.NewRouter()
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"message": "Worker is running and listening!"}); err != nil {
			http.Error(w, "Failed to write response", http.StatusInternalServerError)
		}
	})
	server := &http.Server{Addr: cfg.RunAddr, Handler: router}
	go func() {
		logger.Info("starting worker health endpoint", zap.String("address", cfg.RunAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health endpoint failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down worker")
	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("failed to stop health endpoint", zap.Error(err))
	}
	wg.Wait()
}
