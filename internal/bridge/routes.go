package bridge

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/muurk/devmon/internal/logging"
	"github.com/muurk/devmon/internal/version"
)

// routes builds the chi router for the bridge
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         int((10 * time.Minute).Seconds()),
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Method("GET", "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
			respondJSON(w, http.StatusOK, version.Get())
		})
		r.Get("/devices", s.handleListDevices)
		r.Delete("/devices", s.handleClearDevices)

		if s.config.DiscoverRateLimit > 0 {
			r.With(httprate.LimitByIP(s.config.DiscoverRateLimit, time.Minute)).
				Post("/discover", s.handleDiscover)
		} else {
			r.Post("/discover", s.handleDiscover)
		}
	})

	r.Get("/ws", s.handleWebSocket)

	return r
}

func (s *Server) allowedOrigins() []string {
	if len(s.config.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.config.AllowedOrigins
}

// originAllowed applies the CORS origin list to websocket upgrades
func (s *Server) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	allowed := s.allowedOrigins()
	return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.backend.Devices())
}

func (s *Server) handleDiscover(w http.ResponseWriter, _ *http.Request) {
	if err := s.backend.Discover(); err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (s *Server) handleClearDevices(w http.ResponseWriter, _ *http.Request) {
	s.backend.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// requestLogger logs every request with its final status code
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, ww.Status())
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Warn("Failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	respondJSON(w, status, map[string]any{"error": err.Error()})
}
