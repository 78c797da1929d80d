package main

import (
	"net/http"

	"github.com/tempizhere/shortlink/internal/app"
	"github.com/tempizhere/shortlink/internal/config"
	"github.com/tempizhere/shortlink/internal/gate"
	"github.com/tempizhere/shortlink/internal/log"
	"github.com/tempizhere/shortlink/internal/queue"
	"github.com/tempizhere/shortlink/internal/ratelimit"
	"github.com/tempizhere/shortlink/internal/service"
	"github.com/tempizhere/shortlink/internal/stats"
	"github.com/tempizhere/shortlink/internal/store"
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

	// Подключаемся к хранилищу; единственный клиент передаётся
	// во все компоненты через конструкторы
	st, err := store.New(cfg.RedisAddr, logger)
	if err != nil {
		logger.Fatal("failed to connect to store", zap.Error(err))
	}
	defer func() {
		_ = st.Close()
	}()

	existenceGate := gate.NewGate(st, logger)
	dispatcher := queue.NewDispatcher(st, logger)
	svc := service.NewService(st, dispatcher, existenceGate, cfg.QRStream, cfg.AnalyticsStream, cfg.BaseURL, logger)
	limiter := ratelimit.NewLimiter(st, cfg.RateLimit, cfg.RateWindow, logger)
	assembler := stats.NewAssembler(st, st, st, st, st, cfg.BaseURL, cfg.CacheTTL, logger)

	application := app.NewApp(svc, assembler, st, logger)
	router := application.Router(cfg.MediaPath, limiter)

	logger.Info("starting server", zap.String("address", cfg.RunAddr))
	if err := http.ListenAndServe(cfg.RunAddr, router); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
