package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"docchat-ai/internal/handlers"
	"docchat-ai/internal/rag"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Engine rag.Engine
	Store  handlers.CollectionChecker
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(CORS)
	r.Use(RequestLogger)

	askHandler := handlers.NewAskHandler(deps.Engine)
	healthHandler := handlers.NewHealthHandler(deps.Store)

	r.Method(http.MethodPost, "/ask", askHandler)
	r.Method(http.MethodGet, "/health", healthHandler)

	return r
}
