// Package gate реализует вероятностную проверку существования идентификаторов
package gate

import (
	"context"

	"github.com/tempizhere/shortlink/internal/store"
	"go.uber.org/zap"
)

// Gate отсекает заведомо несуществующие идентификаторы до обращения
// к основному хранилищу. Ответ false окончателен, true означает
// «нужна настоящая проверка».
type Gate struct {
	bloom  store.Bloom
	logger *zap.Logger
}

// NewGate создаёт новый экземпляр Gate
func NewGate(bloom store.Bloom, logger *zap.Logger) *Gate {
	return &Gate{
		bloom:  bloom,
		logger: logger,
	}
}

// MightExist сообщает, мог ли идентификатор быть когда-либо выдан.
// При недоступности фильтра отвечает true: отказ фильтра деградирует
// до настоящей проверки, а не до ложного отказа.
//
// Фильтр пополняется обработчиком QR-заданий, а не при выдаче
// идентификатора, поэтому свежесозданный идентификатор может короткое
// время считаться отсутствующим. Вызывающие обязаны переживать это окно.
func (g *Gate) MightExist(ctx context.Context, id string) bool {
	exists, err := g.bloom.BFExists(ctx, store.BloomKey, id)
	if err != nil {
		g.logger.Warn("existence filter unavailable, assuming id might exist", zap.String("short_id", id), zap.Error(err))
		return true
	}
	return exists
}

// Add добавляет идентификатор в фильтр
func (g *Gate) Add(ctx context.Context, id string) error {
	return g.bloom.BFAdd(ctx, store.BloomKey, id)
}
