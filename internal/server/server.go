// Package server is the local dashboard: a JSON API over the analysis
// pipeline plus a Leaflet map page for browsing results.
package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/medcoast/ges-cli/internal/engine"
	"github.com/medcoast/ges-cli/internal/export"
	"github.com/medcoast/ges-cli/internal/ges"
	"github.com/medcoast/ges-cli/internal/history"
	"github.com/medcoast/ges-cli/internal/region"
)

//go:embed templates/index.html
var templateFS embed.FS

// Server serves the dashboard and holds the latest run. Runs are
// synchronous and last-run-wins: a new run replaces the session state
// when it completes.
type Server struct {
	eng      engine.Engine
	resolver *region.Resolver
	pipeline *ges.Pipeline
	exporter *export.Exporter
	store    *history.Store

	index *template.Template

	mu     sync.Mutex
	last   *RunResult
	counts ges.Classification
}

// New creates a dashboard server. store may be nil to disable history
// recording.
func New(eng engine.Engine, resolver *region.Resolver, pipeline *ges.Pipeline, exporter *export.Exporter, store *history.Store) (*Server, error) {
	index, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, eris.Wrap(err, "server: parse index template")
	}
	return &Server{
		eng:      eng,
		resolver: resolver,
		pipeline: pipeline,
		exporter: exporter,
		store:    store,
		index:    index,
	}, nil
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Post("/api/run", s.handleRun)
	r.Get("/api/result", s.handleResult)
	r.Get("/api/chart.png", s.handleChart)
	r.Get("/api/boundary.geojson", s.handleBoundary)
	r.Get("/api/countries", s.handleCountries)
	r.Get("/downloads/{name}", s.handleDownload)

	return r
}

// Start runs the server until ctx is canceled.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		zap.L().Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
