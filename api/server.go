// Package api serves stored snapshots, trends, health scores and campaign
// reports as read-only JSON.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"suggestguard/models"
	"suggestguard/storage"
	"suggestguard/utils"
)

// CampaignReporter builds campaign reports.
type CampaignReporter interface {
	Report(ctx context.Context, id string) (*models.CampaignReport, error)
}

// Server is the HTTP report server.
type Server struct {
	server *http.Server
}

// NewServer wires the routes on addr.
func NewServer(addr string, store storage.Store, campaigns CampaignReporter, logger *utils.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:         addr,
			Handler:      NewRouter(store, campaigns, logger),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// NewRouter builds the chi router.
func NewRouter(store storage.Store, campaigns CampaignReporter, logger *utils.Logger) *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))

	h := &handler{store: store, campaigns: campaigns, logger: logger}

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Route("/v1", func(r chi.Router) {
			r.Route("/brands", func(r chi.Router) {
				r.Get("/", h.listBrands)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.getBrand)
					r.Get("/snapshots", h.listSnapshots)
					r.Get("/snapshots/latest", h.latestSnapshot)
					r.Get("/trends", h.trends)
					r.Get("/suggestions/history", h.suggestionHistory)
					r.Get("/health", h.health)
					r.Get("/campaigns", h.listCampaigns)
				})
			})
			r.Get("/snapshots/{id}", h.getSnapshot)
			r.Get("/campaigns/{id}/report", h.campaignReport)
		})
	})

	return router
}

// requestLogger logs one line per request through the application logger.
func requestLogger(logger *utils.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("[api] %s %s -> %d (%v)", r.Method, r.URL.Path, ww.Status(), time.Since(start))
		})
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
