// Package service реализует реестр коротких ссылок
package service

import (
	"context"
	"crypto/rand"
	"errors"

	"github.com/tempizhere/shortlink/internal/gate"
	"github.com/tempizhere/shortlink/internal/models"
	"github.com/tempizhere/shortlink/internal/queue"
	"github.com/tempizhere/shortlink/internal/store"
	"go.uber.org/zap"
)

var (
	// ErrEmptyURL возвращается при попытке сократить пустой URL
	ErrEmptyURL = errors.New("empty URL")
	// ErrNotFound возвращается, когда короткая ссылка не существует
	ErrNotFound = errors.New("short link not found")
)

const (
	idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	idLength   = 6
)

// Service реализует выдачу идентификаторов, хранение отображения
// id -> URL и постановку заданий на фоновую обработку
type Service struct {
	links           store.Strings
	dispatcher      *queue.Dispatcher
	gate            *gate.Gate
	qrStream        string
	analyticsStream string
	baseURL         string
	logger          *zap.Logger
}

// NewService создаёт новый экземпляр Service
func NewService(links store.Strings, dispatcher *queue.Dispatcher, g *gate.Gate, qrStream, analyticsStream, baseURL string, logger *zap.Logger) *Service {
	return &Service{
		links:           links,
		dispatcher:      dispatcher,
		gate:            g,
		qrStream:        qrStream,
		analyticsStream: analyticsStream,
		baseURL:         baseURL,
		logger:          logger,
	}
}

// GenerateShortID генерирует короткий случайный алфавитно-цифровой идентификатор
func GenerateShortID() (string, error) {
	buf := make([]byte, idLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(buf), nil
}

// Create выдаёт новый идентификатор, сохраняет отображение на оригинальный
// URL и ставит задание на генерацию QR-кода.
//
// Сохранение и постановка задания — два отдельных запроса к хранилищу:
// сбой между ними оставляет ссылку без QR-кода, но перенаправление
// при этом работает.
func (s *Service) Create(ctx context.Context, longURL string) (models.ShortLink, error) {
	if longURL == "" {
		return models.ShortLink{}, ErrEmptyURL
	}
	id, err := GenerateShortID()
	if err != nil {
		return models.ShortLink{}, err
	}
	if err := s.links.Set(ctx, store.LinkKey(id), longURL, 0); err != nil {
		s.logger.Error("failed to persist short link", zap.String("short_id", id), zap.Error(err))
		return models.ShortLink{}, err
	}
	job := models.QRJob{ShortID: id, LongURL: longURL}
	if _, err := s.dispatcher.Publish(ctx, s.qrStream, job.Fields()); err != nil {
		return models.ShortLink{}, err
	}
	s.logger.Info("short link created", zap.String("short_id", id))
	return models.ShortLink{ShortID: id, LongURL: longURL}, nil
}

// Resolve возвращает оригинальный URL по идентификатору.
// Вероятностный фильтр отсекает никогда не выдававшиеся идентификаторы
// до обращения к хранилищу.
func (s *Service) Resolve(ctx context.Context, id string) (string, error) {
	if !s.gate.MightExist(ctx, id) {
		return "", ErrNotFound
	}
	longURL, err := s.links.Get(ctx, store.LinkKey(id))
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		s.logger.Error("failed to resolve short link", zap.String("short_id", id), zap.Error(err))
		return "", ErrNotFound
	}
	return longURL, nil
}

// TrackClick ставит задание на учёт перехода по ссылке.
// Сам учёт выполняется потребителем потока вне пути запроса.
func (s *Service) TrackClick(ctx context.Context, id, ip string) {
	job := models.AnalyticsJob{ShortID: id, IP: ip}
	if _, err := s.dispatcher.Publish(ctx, s.analyticsStream, job.Fields()); err != nil {
		s.logger.Error("failed to enqueue click event", zap.String("short_id", id), zap.Error(err))
	}
}

// ShortURL собирает абсолютный короткий URL для идентификатора
func (s *Service) ShortURL(id string) string {
	return s.baseURL + "/" + id
}
