package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempizhere/shortlink/internal/gate"
	"github.com/tempizhere/shortlink/internal/models"
	"github.com/tempizhere/shortlink/internal/queue"
	"github.com/tempizhere/shortlink/internal/ratelimit"
	"github.com/tempizhere/shortlink/internal/service"
	"github.com/tempizhere/shortlink/internal/stats"
	"github.com/tempizhere/shortlink/internal/store"
	"go.uber.org/zap"
)

// fakeStore реализует все возможности хранилища в памяти
type fakeStore struct {
	mu        sync.Mutex
	values    map[string]string
	counts    map[string]int64
	hashes    map[string]map[string]string
	scores    map[string]float64
	bloom     map[string]struct{}
	visitors  map[string]map[string]struct{}
	points    map[string][]store.Point
	published map[string][]map[string]string
	nextID    int
	pingErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		values:    make(map[string]string),
		counts:    make(map[string]int64),
		hashes:    make(map[string]map[string]string),
		scores:    make(map[string]float64),
		bloom:     make(map[string]struct{}),
		visitors:  make(map[string]map[string]struct{}),
		points:    make(map[string][]store.Point),
		published: make(map[string][]map[string]string),
	}
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeStore) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return value, nil
}

func (f *fakeStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

func (f *fakeStore) Incr(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeStore) Expire(ctx context.Context, key string, ttl time.Duration) error { return nil }

func (f *fakeStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make(map[string]string)
	for field, value := range f.hashes[key] {
		result[field] = value
	}
	return result, nil
}

func (f *fakeStore) HSet(ctx context.Context, key, field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hashes[key] == nil {
		f.hashes[key] = make(map[string]string)
	}
	f.hashes[key][field] = value
	return nil
}

func (f *fakeStore) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeStore) ZIncrBy(ctx context.Context, key string, delta float64, member string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores[member] += delta
	return f.scores[member], nil
}

func (f *fakeStore) ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]store.ScoredMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	members := make([]store.ScoredMember, 0, len(f.scores))
	for member, score := range f.scores {
		members = append(members, store.ScoredMember{Member: member, Score: score})
	}
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			if members[j].Score > members[i].Score {
				members[i], members[j] = members[j], members[i]
			}
		}
	}
	if stop >= int64(len(members)) || stop < 0 {
		stop = int64(len(members)) - 1
	}
	if start > stop {
		return []store.ScoredMember{}, nil
	}
	return members[start : stop+1], nil
}

func (f *fakeStore) Add(ctx context.Context, stream string, values map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.published[stream] = append(f.published[stream], values)
	return fmt.Sprintf("%d-0", f.nextID), nil
}

func (f *fakeStore) EnsureGroup(ctx context.Context, stream, group string) error { return nil }

func (f *fakeStore) ReadGroup(ctx context.Context, stream, group, consumer string) (store.Entry, error) {
	return store.Entry{}, store.ErrNotFound
}

func (f *fakeStore) Ack(ctx context.Context, stream, group, id string) error { return nil }

func (f *fakeStore) BFAdd(ctx context.Context, key, item string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bloom[item] = struct{}{}
	return nil
}

func (f *fakeStore) BFExists(ctx context.Context, key, item string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.bloom[item]
	return ok, nil
}

func (f *fakeStore) PFAdd(ctx context.Context, key string, items ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.visitors[key] == nil {
		f.visitors[key] = make(map[string]struct{})
	}
	for _, item := range items {
		f.visitors[key][item] = struct{}{}
	}
	return nil
}

func (f *fakeStore) PFCount(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.visitors[key])), nil
}

func (f *fakeStore) TSAdd(ctx context.Context, key string, value float64, retention time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points[key] = append(f.points[key], store.Point{Timestamp: time.Now().UnixMilli(), Value: value})
	return nil
}

func (f *fakeStore) TSRange(ctx context.Context, key string, from, to int64) ([]store.Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.points[key], nil
}

func (f *fakeStore) publishedTo(stream string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published[stream])
}

func (f *fakeStore) value(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[key]
}

const testBaseURL = "http://localhost:8080"

func newTestServer(t *testing.T, st *fakeStore, rateLimit int64) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()
	g := gate.NewGate(st, logger)
	dispatcher := queue.NewDispatcher(st, logger)
	svc := service.NewService(st, dispatcher, g, "qr_code_jobs", "analytics_jobs", testBaseURL, logger)
	limiter := ratelimit.NewLimiter(st, rateLimit, 60*time.Second, logger)
	assembler := stats.NewAssembler(st, st, st, st, st, testBaseURL, 30*time.Second, logger)
	application := NewApp(svc, assembler, st, logger)

	server := httptest.NewServer(application.Router(t.TempDir(), limiter))
	t.Cleanup(server.Close)
	return server
}

func createLink(t *testing.T, server *httptest.Server, longURL string) models.CreateResponse {
	t.Helper()
	body, err := json.Marshal(models.CreateRequest{LongURL: longURL})
	require.NoError(t, err)
	resp, err := http.Post(server.URL+"/api/links", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.CreateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	return created
}

func shortIDFromLink(shortLink string) string {
	return shortLink[strings.LastIndex(shortLink, "/")+1:]
}

func TestHandleCreateLink(t *testing.T) {
	st := newFakeStore()
	server := newTestServer(t, st, 100)

	// Тест 1: создание возвращает короткую ссылку
	created := createLink(t, server, "https://example.com")
	assert.True(t, strings.HasPrefix(created.ShortLink, testBaseURL+"/"))
	assert.Equal(t, "https://example.com", created.LongURL)

	// Тест 2: отображение сохранено и QR-задание поставлено
	id := shortIDFromLink(created.ShortLink)
	assert.Equal(t, "https://example.com", st.value("link:"+id))
	assert.Equal(t, 1, st.publishedTo("qr_code_jobs"))

	// Тест 3: некорректный URL отклоняется
	resp, err := http.Post(server.URL+"/api/links", "application/json", strings.NewReader(`{"long_url":"not-a-url"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Тест 4: неверный Content-Type отклоняется
	resp, err = http.Post(server.URL+"/api/links", "text/plain", strings.NewReader("https://example.com"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleRedirect(t *testing.T) {
	st := newFakeStore()
	server := newTestServer(t, st, 100)

	created := createLink(t, server, "https://example.com")
	id := shortIDFromLink(created.ShortLink)

	// Моделируем обработку QR-задания: фильтр существования пополнен
	require.NoError(t, st.BFAdd(context.Background(), "bf:short_links", id))

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	// Тест 1: перенаправление на оригинальный URL
	resp, err := client.Get(server.URL + "/" + id)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "https://example.com", resp.Header.Get("Location"))

	// Тест 2: событие аналитики поставлено вне пути запроса
	assert.Eventually(t, func() bool {
		return st.publishedTo("analytics_jobs") == 1
	}, 2*time.Second, 10*time.Millisecond, "analytics job should be enqueued")

	// Тест 3: неизвестный идентификатор — 404
	resp, err = client.Get(server.URL + "/nope99")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleStats(t *testing.T) {
	st := newFakeStore()
	server := newTestServer(t, st, 100)
	ctx := context.Background()

	created := createLink(t, server, "https://example.com")
	id := shortIDFromLink(created.ShortLink)

	// Моделируем работу обработчиков заданий
	require.NoError(t, st.HSet(ctx, "data:"+id, "qr_code_path", "/media/"+id+".png"))
	require.NoError(t, st.PFAdd(ctx, "uv:"+id, "192.0.2.1", "192.0.2.2"))

	// Тест 1: агрегат собран полностью
	resp, err := http.Get(server.URL + "/api/links/" + id + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var linkStats models.LinkStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&linkStats))
	assert.Equal(t, created.ShortLink, linkStats.ShortLink)
	assert.Equal(t, "https://example.com", linkStats.LongURL)
	assert.Equal(t, testBaseURL+"/media/"+id+".png", linkStats.QRCodeURL)
	assert.Equal(t, int64(2), linkStats.UniqueClicks)

	// Тест 2: неизвестный идентификатор — 404
	resp, err = http.Get(server.URL + "/api/links/nope99/stats")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleLeaderboard(t *testing.T) {
	st := newFakeStore()
	server := newTestServer(t, st, 100)
	ctx := context.Background()

	_, err := st.ZIncrBy(ctx, "leaderboard:top_links", 3, "aaa111")
	require.NoError(t, err)
	_, err = st.ZIncrBy(ctx, "leaderboard:top_links", 5, "bbb222")
	require.NoError(t, err)
	_, err = st.ZIncrBy(ctx, "leaderboard:top_links", 1, "ccc333")
	require.NoError(t, err)

	// Тест 1: верхние позиции по убыванию кликов
	resp, err := http.Get(server.URL + "/api/leaderboard?limit=2")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entries []models.LeaderboardEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "bbb222", entries[0].ShortID)
	assert.Equal(t, int64(5), entries[0].Clicks)
	assert.Equal(t, "aaa111", entries[1].ShortID)

	// Тест 2: некорректный limit отклоняется
	resp, err = http.Get(server.URL + "/api/leaderboard?limit=zero")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleClickHistory(t *testing.T) {
	st := newFakeStore()
	server := newTestServer(t, st, 100)
	ctx := context.Background()

	require.NoError(t, st.TSAdd(ctx, "ts:clicks:abc123", 1, 0))
	require.NoError(t, st.TSAdd(ctx, "ts:clicks:abc123", 1, 0))

	resp, err := http.Get(server.URL + "/api/links/abc123/history")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var history []models.ClickHistoryItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	assert.Len(t, history, 2)
}

func TestRateLimit(t *testing.T) {
	st := newFakeStore()
	server := newTestServer(t, st, 5)

	// Первые пять запросов создания проходят, шестой блокируется
	for i := 0; i < 5; i++ {
		createLink(t, server, fmt.Sprintf("https://example.com/%d", i))
	}

	body, err := json.Marshal(models.CreateRequest{LongURL: "https://example.com/6"})
	require.NoError(t, err)
	resp, err := http.Post(server.URL+"/api/links", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestHandlePing(t *testing.T) {
	st := newFakeStore()
	server := newTestServer(t, st, 100)

	// Тест 1: хранилище доступно
	resp, err := http.Get(server.URL + "/ping")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Тест 2: хранилище недоступно
	st.pingErr = &store.StoreError{Op: "ping", Err: errors.New("connection refused")}
	resp, err = http.Get(server.URL + "/ping")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
