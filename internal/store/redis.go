package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store реализует все интерфейсы возможностей поверх клиента Redis.
// Каждый метод — один атомарный запрос к хранилищу.
type Store struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// New создаёт подключение к Redis и проверяет его доступность.
// Недоступность хранилища при старте — фатальная ошибка компонента.
func New(addr string, logger *zap.Logger) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, &StoreError{Op: "ping", Err: err}
	}
	logger.Info("connected to store", zap.String("addr", addr))
	return &Store{rdb: rdb, logger: logger}, nil
}

// Ping проверяет соединение с хранилищем
func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return &StoreError{Op: "ping", Err: err}
	}
	return nil
}

// Close закрывает соединение с хранилищем
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Get возвращает значение строкового ключа
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", &StoreError{Op: "get", Err: err}
	}
	return val, nil
}

// Set сохраняет значение строкового ключа
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return &StoreError{Op: "set", Err: err}
	}
	return nil
}

// Incr атомарно увеличивает счётчик
func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	val, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, &StoreError{Op: "incr", Err: err}
	}
	return val, nil
}

// Expire устанавливает время жизни ключа
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.rdb.Expire(ctx, key, ttl).Err(); err != nil {
		return &StoreError{Op: "expire", Err: err}
	}
	return nil
}

// HGetAll возвращает все поля хеша
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, &StoreError{Op: "hgetall", Err: err}
	}
	return fields, nil
}

// HSet устанавливает поле хеша
func (s *Store) HSet(ctx context.Context, key, field, value string) error {
	if err := s.rdb.HSet(ctx, key, field, value).Err(); err != nil {
		return &StoreError{Op: "hset", Err: err}
	}
	return nil
}

// HIncrBy атомарно увеличивает числовое поле хеша
func (s *Store) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	val, err := s.rdb.HIncrBy(ctx, key, field, delta).Result()
	if err != nil {
		return 0, &StoreError{Op: "hincrby", Err: err}
	}
	return val, nil
}

// ZIncrBy увеличивает счёт элемента сортированного множества
func (s *Store) ZIncrBy(ctx context.Context, key string, delta float64, member string) (float64, error) {
	score, err := s.rdb.ZIncrBy(ctx, key, delta, member).Result()
	if err != nil {
		return 0, &StoreError{Op: "zincrby", Err: err}
	}
	return score, nil
}

// ZRevRangeWithScores возвращает элементы множества по убыванию счёта
func (s *Store) ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ScoredMember, error) {
	items, err := s.rdb.ZRevRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		return nil, &StoreError{Op: "zrevrange", Err: err}
	}
	members := make([]ScoredMember, 0, len(items))
	for _, item := range items {
		member, ok := item.Member.(string)
		if !ok {
			continue
		}
		members = append(members, ScoredMember{Member: member, Score: item.Score})
	}
	return members, nil
}

// Add добавляет запись в конец потока
func (s *Store) Add(ctx context.Context, stream string, values map[string]string) (string, error) {
	id, err := s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()
	if err != nil {
		return "", &StoreError{Op: "xadd", Err: err}
	}
	return id, nil
}

// EnsureGroup идемпотентно создаёт группу потребителей потока.
// Группа создаётся с позиции "$" — только новые записи.
func (s *Store) EnsureGroup(ctx context.Context, stream, group string) error {
	err := s.rdb.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil
		}
		return &StoreError{Op: "xgroup create", Err: err}
	}
	return nil
}

// ReadGroup блокирующе читает одну невыданную запись потока для потребителя
func (s *Store) ReadGroup(ctx context.Context, stream, group, consumer string) (Entry, error) {
	res, err := s.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    1,
		Block:    0,
	}).Result()
	if err != nil {
		return Entry{}, &StoreError{Op: "xreadgroup", Err: err}
	}
	if len(res) == 0 || len(res[0].Messages) == 0 {
		return Entry{}, ErrNotFound
	}
	msg := res[0].Messages[0]
	values := make(map[string]string, len(msg.Values))
	for field, value := range msg.Values {
		if str, ok := value.(string); ok {
			values[field] = str
		}
	}
	return Entry{ID: msg.ID, Values: values}, nil
}

// Ack подтверждает обработку записи потока
func (s *Store) Ack(ctx context.Context, stream, group, id string) error {
	if err := s.rdb.XAck(ctx, stream, group, id).Err(); err != nil {
		return &StoreError{Op: "xack", Err: err}
	}
	return nil
}

// BFAdd добавляет элемент в фильтр Блума
func (s *Store) BFAdd(ctx context.Context, key, item string) error {
	if err := s.rdb.BFAdd(ctx, key, item).Err(); err != nil {
		return &StoreError{Op: "bf.add", Err: err}
	}
	return nil
}

// BFExists проверяет возможное наличие элемента в фильтре Блума
func (s *Store) BFExists(ctx context.Context, key, item string) (bool, error) {
	exists, err := s.rdb.BFExists(ctx, key, item).Result()
	if err != nil {
		return false, &StoreError{Op: "bf.exists", Err: err}
	}
	return exists, nil
}

// PFAdd добавляет элементы в HyperLogLog
func (s *Store) PFAdd(ctx context.Context, key string, items ...string) error {
	args := make([]interface{}, len(items))
	for i, item := range items {
		args[i] = item
	}
	if err := s.rdb.PFAdd(ctx, key, args...).Err(); err != nil {
		return &StoreError{Op: "pfadd", Err: err}
	}
	return nil
}

// PFCount возвращает оценку числа уникальных элементов
func (s *Store) PFCount(ctx context.Context, key string) (int64, error) {
	count, err := s.rdb.PFCount(ctx, key).Result()
	if err != nil {
		return 0, &StoreError{Op: "pfcount", Err: err}
	}
	return count, nil
}

// TSAdd добавляет точку временного ряда с текущей меткой времени сервера
func (s *Store) TSAdd(ctx context.Context, key string, value float64, retention time.Duration) error {
	err := s.rdb.TSAddWithArgs(ctx, key, "*", value, &redis.TSOptions{
		Retention: int(retention.Milliseconds()),
	}).Err()
	if err != nil {
		return &StoreError{Op: "ts.add", Err: err}
	}
	return nil
}

// TSRange возвращает точки временного ряда в диапазоне меток времени
func (s *Store) TSRange(ctx context.Context, key string, from, to int64) ([]Point, error) {
	items, err := s.rdb.TSRange(ctx, key, int(from), int(to)).Result()
	if err != nil {
		return nil, &StoreError{Op: "ts.range", Err: err}
	}
	points := make([]Point, 0, len(items))
	for _, item := range items {
		points = append(points, Point{Timestamp: item.Timestamp, Value: item.Value})
	}
	return points, nil
}
