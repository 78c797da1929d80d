package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tempizhere/shortlink/internal/middleware"
	"github.com/tempizhere/shortlink/internal/ratelimit"
)

// Router создаёт маршрутизатор приложения с подключёнными middleware
func (a *App) Router(mediaPath string, limiter *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.LoggingMiddleware(a.logger))
	r.Use(middleware.GzipMiddleware)

	r.With(middleware.RateLimitMiddleware(limiter)).Post("/api/links", a.HandleCreateLink)
	r.Get("/api/links/{id}/stats", a.HandleStats)
	r.Get("/api/links/{id}/history", a.HandleClickHistory)
	r.Get("/api/leaderboard", a.HandleLeaderboard)
	r.Get("/ping", a.HandlePing)

	// Сгенерированные QR-коды отдаются как статические файлы
	fileServer := http.StripPrefix("/media/", http.FileServer(http.Dir(mediaPath)))
	r.Get("/media/*", func(w http.ResponseWriter, r *http.Request) {
		fileServer.ServeHTTP(w, r)
	})

	r.Get("/{id}", a.HandleRedirect)

	return r
}
