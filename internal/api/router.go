package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func NewRouter(h *Handler, log *zap.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(recoverMiddleware(log))
	r.Use(requestLogMiddleware(log))

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/sessions", h.CreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/pending", h.ListPendingSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/join", h.JoinSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/moves", h.SubmitMove).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/board", h.GetBoard).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", h.TerminateSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/ws", h.Watch).Methods(http.MethodGet)
	api.HandleFunc("/players/{id}/games", h.PlayerGames).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func requestLogMiddleware(log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Websocket upgrades take over the connection; wrapping the
			// ResponseWriter would hide http.Hijacker from the upgrader.
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("elapsed", time.Since(start)),
			)
		})
	}
}

func recoverMiddleware(log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("handler panic",
						zap.String("path", r.URL.Path),
						zap.Any("panic", rec),
					)
					w.WriteHeader(http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
