// Package store содержит типизированный фасад над примитивами Redis.
// Каждая возможность хранилища (строки, хеши, сортированные множества,
// потоки, фильтр Блума, HyperLogLog, временные ряды) описана узким
// интерфейсом, чтобы компоненты зависели только от нужных им операций.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound возвращается, когда запрошенный ключ отсутствует в хранилище
var ErrNotFound = errors.New("key not found")

// StoreError оборачивает ошибку хранилища с указанием операции
type StoreError struct {
	Op  string
	Err error
}

// Error возвращает текстовое описание ошибки
func (e *StoreError) Error() string {
	return "store: " + e.Op + ": " + e.Err.Error()
}

// Unwrap возвращает исходную ошибку хранилища
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Entry представляет одну запись потока
type Entry struct {
	ID     string
	Values map[string]string
}

// ScoredMember представляет элемент сортированного множества с его счётом
type ScoredMember struct {
	Member string
	Score  float64
}

// Point представляет одну точку временного ряда
type Point struct {
	Timestamp int64
	Value     float64
}

// Strings определяет операции над строковыми ключами и счётчиками
type Strings interface {
	// Get возвращает значение ключа или ErrNotFound
	Get(ctx context.Context, key string) (string, error)
	// Set сохраняет значение ключа; при ttl > 0 ключ истекает по TTL
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Incr атомарно увеличивает счётчик и возвращает новое значение
	Incr(ctx context.Context, key string) (int64, error)
	// Expire устанавливает время жизни ключа
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Hashes определяет операции над хеш-таблицами
type Hashes interface {
	// HGetAll возвращает все поля хеша; отсутствующий хеш — пустая карта
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// HSet устанавливает поле хеша
	HSet(ctx context.Context, key, field, value string) error
	// HIncrBy атомарно увеличивает числовое поле хеша
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
}

// SortedSets определяет операции над сортированными множествами
type SortedSets interface {
	// ZIncrBy увеличивает счёт элемента и возвращает новый счёт
	ZIncrBy(ctx context.Context, key string, delta float64, member string) (float64, error)
	// ZRevRangeWithScores возвращает элементы по убыванию счёта
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ScoredMember, error)
}

// Streams определяет операции над потоками с группами потребителей
type Streams interface {
	// Add добавляет запись в конец потока и возвращает её идентификатор
	Add(ctx context.Context, stream string, values map[string]string) (string, error)
	// EnsureGroup идемпотентно создаёт группу потребителей с позиции
	// «только новые записи»; уже существующая группа — не ошибка
	EnsureGroup(ctx context.Context, stream, group string) error
	// ReadGroup блокирующе читает одну невыданную запись для потребителя
	ReadGroup(ctx context.Context, stream, group, consumer string) (Entry, error)
	// Ack подтверждает обработку записи, убирая её из списка ожидающих
	Ack(ctx context.Context, stream, group, id string) error
}

// Bloom определяет операции над фильтром Блума
type Bloom interface {
	// BFAdd добавляет элемент в фильтр
	BFAdd(ctx context.Context, key, item string) error
	// BFExists проверяет возможное наличие элемента в фильтре
	BFExists(ctx context.Context, key, item string) (bool, error)
}

// HyperLogLog определяет операции над оценщиком количества уникальных элементов
type HyperLogLog interface {
	// PFAdd добавляет элементы в оценщик
	PFAdd(ctx context.Context, key string, items ...string) error
	// PFCount возвращает оценку числа уникальных элементов
	PFCount(ctx context.Context, key string) (int64, error)
}

// TimeSeries определяет операции над временными рядами
type TimeSeries interface {
	// TSAdd добавляет точку с текущей меткой времени и горизонтом хранения
	TSAdd(ctx context.Context, key string, value float64, retention time.Duration) error
	// TSRange возвращает точки ряда в диапазоне меток времени (в мс)
	TSRange(ctx context.Context, key string, from, to int64) ([]Point, error)
}
