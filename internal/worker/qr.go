// Package worker содержит обработчики фоновых заданий: генерацию QR-кодов
// и учёт статистики переходов
package worker

import (
	"context"
	"path/filepath"

	"github.com/skip2/go-qrcode"
	"github.com/tempizhere/shortlink/internal/gate"
	"github.com/tempizhere/shortlink/internal/models"
	"github.com/tempizhere/shortlink/internal/store"
	"go.uber.org/zap"
)

// qrImageSize — размер стороны генерируемого изображения в пикселях
const qrImageSize = 256

// QRProcessor генерирует QR-код для ссылки, сохраняет его на диск,
// записывает публичный путь в хеш ссылки и пополняет фильтр существования.
// Повторная обработка того же идентификатора безопасна: файл и поле хеша
// перезаписываются теми же значениями.
type QRProcessor struct {
	hashes    store.Hashes
	gate      *gate.Gate
	mediaPath string
	logger    *zap.Logger
}

// NewQRProcessor создаёт новый экземпляр QRProcessor
func NewQRProcessor(hashes store.Hashes, g *gate.Gate, mediaPath string, logger *zap.Logger) *QRProcessor {
	return &QRProcessor{
		hashes:    hashes,
		gate:      g,
		mediaPath: mediaPath,
		logger:    logger,
	}
}

// Process обрабатывает одно задание на генерацию QR-кода
func (p *QRProcessor) Process(ctx context.Context, entryID string, payload map[string]string) error {
	job, err := models.QRJobFromFields(payload)
	if err != nil {
		p.logger.Error("malformed QR job", zap.String("entry_id", entryID), zap.Error(err))
		return err
	}

	filename := job.ShortID + ".png"
	savePath := filepath.Join(p.mediaPath, filename)
	if err := qrcode.WriteFile(job.LongURL, qrcode.Medium, qrImageSize, savePath); err != nil {
		p.logger.Error("failed to render QR code", zap.String("short_id", job.ShortID), zap.Error(err))
		return err
	}

	webPath := "/media/" + filename
	if err := p.hashes.HSet(ctx, store.DataKey(job.ShortID), store.FieldQRCodePath, webPath); err != nil {
		p.logger.Error("failed to record QR code path", zap.String("short_id", job.ShortID), zap.Error(err))
		return err
	}

	if err := p.gate.Add(ctx, job.ShortID); err != nil {
		p.logger.Error("failed to add id to existence filter", zap.String("short_id", job.ShortID), zap.Error(err))
		return err
	}

	p.logger.Info("QR code generated",
		zap.String("entry_id", entryID),
		zap.String("short_id", job.ShortID),
		zap.String("path", webPath),
	)
	return nil
}
