// Package app содержит HTTP-хендлеры сервиса коротких ссылок
package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tempizhere/shortlink/internal/middleware"
	"github.com/tempizhere/shortlink/internal/models"
	"github.com/tempizhere/shortlink/internal/service"
	"github.com/tempizhere/shortlink/internal/stats"
	"go.uber.org/zap"
)

// trackTimeout ограничивает постановку аналитического задания,
// запущенную вне жизненного цикла запроса
const trackTimeout = 5 * time.Second

// Pinger проверяет доступность хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// App содержит хендлеры и зависимости
type App struct {
	svc    *service.Service
	stats  *stats.Assembler
	store  Pinger
	logger *zap.Logger
}

// NewApp создаёт новое приложение
func NewApp(svc *service.Service, assembler *stats.Assembler, store Pinger, logger *zap.Logger) *App {
	return &App{
		svc:    svc,
		stats:  assembler,
		store:  store,
		logger: logger,
	}
}

// HandleCreateLink обрабатывает POST-запросы на "/api/links"
func (a *App) HandleCreateLink(w http.ResponseWriter, r *http.Request) {
	if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		http.Error(w, "Content-Type must be application/json", http.StatusBadRequest)
		return
	}
	var reqBody models.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if !isValidURL(reqBody.LongURL) {
		http.Error(w, "Invalid URL", http.StatusBadRequest)
		return
	}

	link, err := a.svc.Create(r.Context(), reqBody.LongURL)
	if err != nil {
		if errors.Is(err, service.ErrEmptyURL) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to create short link", http.StatusInternalServerError)
		return
	}

	respBody := models.CreateResponse{
		ShortLink: a.svc.ShortURL(link.ShortID),
		LongURL:   link.LongURL,
	}
	writeJSON(w, http.StatusCreated, respBody)
}

// HandleRedirect обрабатывает GET-запросы на "/{id}"
func (a *App) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing link ID", http.StatusBadRequest)
		return
	}
	longURL, err := a.svc.Resolve(r.Context(), id)
	if err != nil {
		http.Error(w, "Short link not found", http.StatusNotFound)
		return
	}

	// Учёт клика не задерживает перенаправление: хендлер лишь ставит
	// задание, обработка идёт в worker-процессе
	clientIP := middleware.ClientIP(r)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), trackTimeout)
		defer cancel()
		a.svc.TrackClick(ctx, id, clientIP)
	}()

	w.Header().Set("Location", longURL)
	w.WriteHeader(http.StatusTemporaryRedirect)
}

// HandleStats обрабатывает GET-запросы на "/api/links/{id}/stats"
func (a *App) HandleStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing link ID", http.StatusBadRequest)
		return
	}
	linkStats, err := a.stats.LinkStats(r.Context(), id)
	if err != nil {
		http.Error(w, "Link stats not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, linkStats)
}

// HandleLeaderboard обрабатывает GET-запросы на "/api/leaderboard"
func (a *App) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := int64(10)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	entries, err := a.stats.Leaderboard(r.Context(), limit)
	if err != nil {
		http.Error(w, "Failed to read leaderboard", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleClickHistory обрабатывает GET-запросы на "/api/links/{id}/history"
func (a *App) HandleClickHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing link ID", http.StatusBadRequest)
		return
	}
	history, err := a.stats.ClickHistory(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to read click history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// HandlePing обрабатывает GET-запросы на "/ping"
func (a *App) HandlePing(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Ping(r.Context()); err != nil {
		a.logger.Error("store ping failed", zap.Error(err))
		http.Error(w, "Store unavailable", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// writeJSON сериализует ответ в JSON и пишет его с указанным статусом
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, "Failed to write response", http.StatusInternalServerError)
	}
}

// isValidURL проверяет, что строка — абсолютный http(s) URL
func isValidURL(raw string) bool {
	parsed, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
