package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"textbook-chatbot/internal/chatbot"
	"textbook-chatbot/internal/handlers"
	"textbook-chatbot/internal/ratelimit"
	"textbook-chatbot/internal/storage"
	"textbook-chatbot/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Engine        *chatbot.Engine
	Conversations storage.ConversationStore
	Sessions      storage.SessionStore
	Limiter       *ratelimit.SessionLimiter
	VectorStore   vectorstore.VectorStore
	DB            *sql.DB
	Collection    string
	CorpusPath    string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)
	r.Use(SessionMiddleware(deps.Sessions))

	askHandler := handlers.NewAskHandler(deps.Engine)
	feedbackHandler := handlers.NewFeedbackHandler(deps.Conversations)
	statsHandler := handlers.NewStatsHandler(deps.Conversations)
	healthHandler := handlers.NewHealthHandler(deps.VectorStore, deps.DB, deps.Collection)
	citationHandler := handlers.NewCitationHandler(deps.CorpusPath)

	r.Route("/api", func(r chi.Router) {
		// Only questions consume the quota; feedback and reads are free.
		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(deps.Limiter))
			r.Method(http.MethodPost, "/ask", askHandler)
		})
		r.Method(http.MethodPost, "/feedback", feedbackHandler)
		r.Method(http.MethodGet, "/stats", statsHandler)
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Method(http.MethodGet, "/citation", citationHandler)
	})

	return r
}
