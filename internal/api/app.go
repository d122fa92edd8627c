package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"funnelab/app"
	"funnelab/internal"
	"funnelab/ports"
)

// App is the event collector HTTP application: it accepts analytics
// events, validates them at the boundary, and appends them to the
// warehouse. It also exposes the current experiment analyses read-only.
type App struct {
	router   *chi.Mux
	store    ports.EventStore
	analyzer *app.AnalyzerService
	logger   *internal.Logger

	maxBatchSize int
	now          func() time.Time
}

// Config holds collector application settings
type Config struct {
	MaxBatchSize int
}

// NewApp creates a new collector application
func NewApp(cfg Config, store ports.EventStore, analyzer *app.AnalyzerService, logger *internal.Logger) *App {
	a := &App{
		router:       chi.NewRouter(),
		store:        store,
		analyzer:     analyzer,
		logger:       logger.Named("collector"),
		maxBatchSize: cfg.MaxBatchSize,
		now:          time.Now,
	}

	a.setupMiddleware()
	a.setupRoutes()
	return a
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes wires the collector endpoints
func (a *App) setupRoutes() {
	a.router.Get("/health", a.handleHealth)
	a.router.Post("/ingest", a.handleIngest)
	a.router.Post("/ingest/single", a.handleIngestSingle)
	a.router.Get("/experiments", a.handleExperiments)
}

// Router exposes the underlying handler for serving and for tests.
func (a *App) Router() http.Handler {
	return a.router
}

// ListenAndServe starts the collector on the given port.
func (a *App) ListenAndServe(port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.logger.Info("collector listening on :%s", port)
	return srv.ListenAndServe()
}
