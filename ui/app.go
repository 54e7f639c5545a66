// Package ui exposes the pooling service over HTTP as a small JSON API.
package ui

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mipool/app"
)

// App represents the HTTP API application
type App struct {
	router  *chi.Mux
	service *app.PoolingService
	config  Config
}

// Config holds HTTP application configuration
type Config struct {
	Port string
}

// NewApp creates a new API application
func NewApp(config Config, service *app.PoolingService) *App {
	a := &App{
		router:  chi.NewRouter(),
		service: service,
		config:  config,
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

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/health", a.handleHealth)

	// API endpoints
	a.router.Post("/api/pool", a.handlePool)
	a.router.Get("/api/runs", a.handleListRuns)
	a.router.Get("/api/runs/{id}", a.handleGetRun)
}

// Router exposes the configured router, mainly for tests
func (a *App) Router() http.Handler {
	return a.router
}

// Start starts the HTTP server
func (a *App) Start() error {
	addr := ":" + a.config.Port
	log.Printf("Starting pooling API server on %s", addr)
	return http.ListenAndServe(addr, a.router)
}
