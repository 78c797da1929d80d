package worker

import (
	"context"
	"time"

	"github.com/tempizhere/shortlink/internal/models"
	"github.com/tempizhere/shortlink/internal/store"
	"go.uber.org/zap"
)

// AnalyticsProcessor превращает события переходов в запрашиваемую
// статистику: счётчик кликов, таблицу лидеров, временной ряд и оценку
// уникальных посетителей.
//
// Обработка не идемпотентна: повторная доставка записи после сбоя между
// обработкой и подтверждением учитывает клик дважды. Принятое следствие
// доставки минимум один раз для неидемпотентной агрегации.
type AnalyticsProcessor struct {
	hashes    store.Hashes
	sets      store.SortedSets
	visitors  store.HyperLogLog
	series    store.TimeSeries
	retention time.Duration
	logger    *zap.Logger
}

// NewAnalyticsProcessor создаёт новый экземпляр AnalyticsProcessor
func NewAnalyticsProcessor(hashes store.Hashes, sets store.SortedSets, visitors store.HyperLogLog, series store.TimeSeries, retention time.Duration, logger *zap.Logger) *AnalyticsProcessor {
	return &AnalyticsProcessor{
		hashes:    hashes,
		sets:      sets,
		visitors:  visitors,
		series:    series,
		retention: retention,
		logger:    logger,
	}
}

// Process обрабатывает одно событие перехода по ссылке
func (p *AnalyticsProcessor) Process(ctx context.Context, entryID string, payload map[string]string) error {
	job, err := models.AnalyticsJobFromFields(payload)
	if err != nil {
		p.logger.Error("malformed analytics job", zap.String("entry_id", entryID), zap.Error(err))
		return err
	}

	if _, err := p.hashes.HIncrBy(ctx, store.DataKey(job.ShortID), store.FieldTotalClicks, 1); err != nil {
		p.logger.Error("failed to increment click counter", zap.String("short_id", job.ShortID), zap.Error(err))
		return err
	}

	if _, err := p.sets.ZIncrBy(ctx, store.LeaderboardKey, 1, job.ShortID); err != nil {
		p.logger.Error("failed to update leaderboard", zap.String("short_id", job.ShortID), zap.Error(err))
		return err
	}

	if err := p.series.TSAdd(ctx, store.ClicksTSKey(job.ShortID), 1, p.retention); err != nil {
		p.logger.Error("failed to append click time series", zap.String("short_id", job.ShortID), zap.Error(err))
		return err
	}

	if job.IP != "" {
		if err := p.visitors.PFAdd(ctx, store.VisitorsKey(job.ShortID), job.IP); err != nil {
			p.logger.Error("failed to record unique visitor", zap.String("short_id", job.ShortID), zap.Error(err))
			return err
		}
	}

	p.logger.Info("click tracked",
		zap.String("entry_id", entryID),
		zap.String("short_id", job.ShortID),
	)
	return nil
}
