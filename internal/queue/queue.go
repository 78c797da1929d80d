// Package queue реализует протокол доставки заданий поверх потоков хранилища:
// публикацию в упорядоченный журнал и надёжный цикл потребления
// с группами потребителей и доставкой минимум один раз.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/tempizhere/shortlink/internal/store"
	"go.uber.org/zap"
)

// ProcessFunc обрабатывает одну запись потока. Ненулевая ошибка оставляет
// запись неподтверждённой, и она будет доставлена повторно.
type ProcessFunc func(ctx context.Context, entryID string, payload map[string]string) error

// Dispatcher публикует задания в именованные потоки
type Dispatcher struct {
	streams store.Streams
	logger  *zap.Logger
}

// NewDispatcher создаёт новый экземпляр Dispatcher
func NewDispatcher(streams store.Streams, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		streams: streams,
		logger:  logger,
	}
}

// Publish добавляет задание в конец потока и возвращает присвоенный
// идентификатор записи. Порядок внутри потока равен порядку добавления;
// между разными потоками порядок не гарантируется.
func (d *Dispatcher) Publish(ctx context.Context, stream string, payload map[string]string) (string, error) {
	id, err := d.streams.Add(ctx, stream, payload)
	if err != nil {
		d.logger.Error("failed to publish job", zap.String("stream", stream), zap.Error(err))
		return "", err
	}
	d.logger.Debug("job published", zap.String("stream", stream), zap.String("entry_id", id))
	return id, nil
}

// Consumer читает записи одного потока от имени группы потребителей
// и передаёт их обработчику. Запись подтверждается только после успешной
// обработки; сбой или перезапуск процесса приводит к повторной доставке.
type Consumer struct {
	streams  store.Streams
	stream   string
	group    string
	consumer string
	process  ProcessFunc
	logger   *zap.Logger

	// пауза после ошибки чтения, чтобы не крутить цикл вхолостую
	retryDelay time.Duration
}

// NewConsumer создаёт новый экземпляр Consumer
func NewConsumer(streams store.Streams, stream, group, consumer string, process ProcessFunc, logger *zap.Logger) *Consumer {
	return &Consumer{
		streams:    streams,
		stream:     stream,
		group:      group,
		consumer:   consumer,
		process:    process,
		logger:     logger,
		retryDelay: time.Second,
	}
}

// Run запускает цикл потребления и работает до отмены контекста.
// Неподтверждённые записи остаются в списке ожидающих группы и будут
// доставлены повторно после перезапуска.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.streams.EnsureGroup(ctx, c.stream, c.group); err != nil {
		c.logger.Error("failed to ensure consumer group",
			zap.String("stream", c.stream),
			zap.String("group", c.group),
			zap.Error(err),
		)
		return err
	}
	c.logger.Info("listening on stream",
		zap.String("stream", c.stream),
		zap.String("group", c.group),
		zap.String("consumer", c.consumer),
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, err := c.streams.ReadGroup(ctx, c.stream, c.group, c.consumer)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !errors.Is(err, store.ErrNotFound) {
				c.logger.Error("failed to read from stream", zap.String("stream", c.stream), zap.Error(err))
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
			continue
		}

		if err := c.process(ctx, entry.ID, entry.Values); err != nil {
			// Без подтверждения запись останется ожидающей и будет
			// доставлена снова. Потолка повторов и отдельной очереди
			// для неисправимых заданий нет.
			c.logger.Error("job processing failed, entry left pending",
				zap.String("stream", c.stream),
				zap.String("entry_id", entry.ID),
				zap.Error(err),
			)
			continue
		}

		if err := c.streams.Ack(ctx, c.stream, c.group, entry.ID); err != nil {
			c.logger.Error("failed to acknowledge entry",
				zap.String("stream", c.stream),
				zap.String("entry_id", entry.ID),
				zap.Error(err),
			)
		}
	}
}
