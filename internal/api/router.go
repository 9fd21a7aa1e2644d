package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// requestIDHeader carries the id assigned to each request.
const requestIDHeader = "X-Request-Id"

// NewRouter mounts every route on a chi router.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", h.Root)
	r.Get(WebSocketPath, h.WebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/ai/status", h.AIStatus)
		r.Post("/sync", h.Sync)

		r.Get("/lists", h.Lists)
		r.Post("/lists", h.CreateList)
		r.Delete("/lists/{id}", h.DeleteList)
		r.Get("/common-members", h.CommonMembers)

		r.Post("/analyze", h.Analyze)
		r.Post("/suggest-name", h.SuggestName)
		r.Post("/insights", h.Insights)

		r.Get("/logs", h.Logs)
		r.Delete("/logs", h.ClearLogs)
		r.Get("/connections", h.Connections)
	})
	return r
}

// requestLogger tags each request with an id and logs it once it completes.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("http request",
					zap.String("request_id", id),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("remote", r.RemoteAddr),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
