// Package ratelimit реализует ограничитель частоты запросов с фиксированным окном
package ratelimit

import (
	"context"
	"time"

	"github.com/tempizhere/shortlink/internal/store"
	"go.uber.org/zap"
)

// Limiter ограничивает число запросов на идентичность вызывающего
// в пределах фиксированного окна времени
type Limiter struct {
	counters store.Strings
	limit    int64
	window   time.Duration
	logger   *zap.Logger
}

// NewLimiter создаёт новый экземпляр Limiter
func NewLimiter(counters store.Strings, limit int64, window time.Duration, logger *zap.Logger) *Limiter {
	return &Limiter{
		counters: counters,
		limit:    limit,
		window:   window,
		logger:   logger,
	}
}

// Blocked возвращает true, если вызывающий превысил лимит в текущем окне.
// При недоступности хранилища ограничитель пропускает запрос, чтобы его
// отказ не останавливал трафик.
//
// Инкремент и установка TTL — два отдельных запроса: сбой между ними
// оставляет счётчик без срока жизни. Известный дефект исходной схемы,
// устраняется атомарным INCR с условным TTL на стороне хранилища.
func (l *Limiter) Blocked(ctx context.Context, key string) bool {
	counterKey := store.RateKey(key)
	count, err := l.counters.Incr(ctx, counterKey)
	if err != nil {
		l.logger.Warn("rate limiter store failure, allowing request", zap.String("key", key), zap.Error(err))
		return false
	}
	if count == 1 {
		if err := l.counters.Expire(ctx, counterKey, l.window); err != nil {
			l.logger.Warn("failed to set rate limit window", zap.String("key", key), zap.Error(err))
		}
	}
	if count > l.limit {
		l.logger.Warn("rate limit exceeded",
			zap.String("key", key),
			zap.Int64("count", count),
			zap.Int64("limit", l.limit),
		)
		return true
	}
	return false
}
