// Package stats собирает статистику ссылок из первичных данных хранилища
// с кешированием по схеме cache-aside
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/tempizhere/shortlink/internal/models"
	"github.com/tempizhere/shortlink/internal/store"
	"go.uber.org/zap"
)

// ErrNotFound возвращается, когда ссылка не существует
var ErrNotFound = errors.New("link stats not found")

// Assembler собирает агрегат статистики ссылки из отображения id -> URL,
// хеша производных данных и оценщика уникальных посетителей. Кеш
// ограничивает устаревание видимых значений своим TTL и никогда не
// является единственной копией данных.
type Assembler struct {
	strings  store.Strings
	hashes   store.Hashes
	visitors store.HyperLogLog
	sets     store.SortedSets
	series   store.TimeSeries
	baseURL  string
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewAssembler создаёт новый экземпляр Assembler
func NewAssembler(strings store.Strings, hashes store.Hashes, visitors store.HyperLogLog, sets store.SortedSets, series store.TimeSeries, baseURL string, cacheTTL time.Duration, logger *zap.Logger) *Assembler {
	return &Assembler{
		strings:  strings,
		hashes:   hashes,
		visitors: visitors,
		sets:     sets,
		series:   series,
		baseURL:  baseURL,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// LinkStats возвращает агрегат статистики ссылки. Сначала проверяется кеш;
// при промахе агрегат собирается из первичных данных и записывается в кеш
// с коротким TTL. Несуществующая ссылка в кеш не попадает.
func (a *Assembler) LinkStats(ctx context.Context, id string) (models.LinkStats, error) {
	cacheKey := store.StatsCacheKey(id)
	if raw, err := a.strings.Get(ctx, cacheKey); err == nil {
		var cached models.LinkStats
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return cached, nil
		}
		a.logger.Warn("dropping unreadable cache entry", zap.String("key", cacheKey))
	}

	longURL, err := a.strings.Get(ctx, store.LinkKey(id))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.logger.Error("failed to read link", zap.String("short_id", id), zap.Error(err))
		}
		return models.LinkStats{}, ErrNotFound
	}

	fields, err := a.hashes.HGetAll(ctx, store.DataKey(id))
	if err != nil {
		a.logger.Warn("failed to read link data hash", zap.String("short_id", id), zap.Error(err))
		fields = map[string]string{}
	}

	uniqueClicks, err := a.visitors.PFCount(ctx, store.VisitorsKey(id))
	if err != nil {
		a.logger.Warn("failed to count unique visitors", zap.String("short_id", id), zap.Error(err))
		uniqueClicks = 0
	}

	result := models.LinkStats{
		ShortLink:    a.baseURL + "/" + id,
		LongURL:      longURL,
		UniqueClicks: uniqueClicks,
	}
	if path, ok := fields[store.FieldQRCodePath]; ok {
		result.QRCodeURL = a.baseURL + path
	}

	if raw, err := json.Marshal(result); err == nil {
		if err := a.strings.Set(ctx, cacheKey, string(raw), a.cacheTTL); err != nil {
			a.logger.Warn("failed to populate stats cache", zap.String("short_id", id), zap.Error(err))
		}
	}
	return result, nil
}

// Leaderboard возвращает верхние позиции глобальной таблицы лидеров
// по убыванию числа кликов
func (a *Assembler) Leaderboard(ctx context.Context, limit int64) ([]models.LeaderboardEntry, error) {
	members, err := a.sets.ZRevRangeWithScores(ctx, store.LeaderboardKey, 0, limit-1)
	if err != nil {
		a.logger.Error("failed to read leaderboard", zap.Error(err))
		return []models.LeaderboardEntry{}, nil
	}
	entries := make([]models.LeaderboardEntry, 0, len(members))
	for _, m := range members {
		entries = append(entries, models.LeaderboardEntry{
			ShortID:  m.Member,
			Clicks:   int64(m.Score),
			StatsURL: a.baseURL + "/api/links/" + m.Member + "/stats",
		})
	}
	return entries, nil
}

// ClickHistory возвращает точки временного ряда кликов ссылки
// от начала ряда до текущего момента
func (a *Assembler) ClickHistory(ctx context.Context, id string) ([]models.ClickHistoryItem, error) {
	points, err := a.series.TSRange(ctx, store.ClicksTSKey(id), 0, time.Now().UnixMilli())
	if err != nil {
		a.logger.Error("failed to read click history", zap.String("short_id", id), zap.Error(err))
		return []models.ClickHistoryItem{}, nil
	}
	history := make([]models.ClickHistoryItem, 0, len(points))
	for _, p := range points {
		history = append(history, models.ClickHistoryItem{
			Timestamp: p.Timestamp,
			Count:     int64(p.Value),
		})
	}
	return history, nil
}
