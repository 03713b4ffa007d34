/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. CORS:          Cross-origin requests for frontends
  3. RequestLogger: Structured request logging (httplog, ECS schema)
  4. CleanPath:     Normalises double slashes
  5. Recoverer:     Panic recovery (500 instead of crash)
  6. Heartbeat:     GET /health for load balancers

ROUTE GROUPS:
  Public:    POST /api/companies, POST /api/users, POST /api/users/login
  Protected: everything else under /api. When no JWT secret is configured
             the group has no auth middleware and all routes are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go:     Token issue and verification
  - cmd/server/main.go: Server startup
*/
package api

import (
	"io"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

// NewLogger returns a JSON slog logger whose keys follow the ECS schema,
// matching the request logs written by httplog.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(false)
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	}))
}

// RouterOptions carries the HTTP-level settings from config.
type RouterOptions struct {
	Logger         *slog.Logger
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Link"},
		MaxAge:         300,
	}))
	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))
	r.Use(middleware.CleanPath)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))

	r.Route("/api", func(r chi.Router) {
		// Public
		r.Post("/companies", h.CreateCompany)
		r.Post("/users", h.CreateUser)
		r.Post("/users/login", h.Login)

		r.Group(func(r chi.Router) {
			if h.Auth != nil {
				for _, mw := range h.Auth.Middlewares() {
					r.Use(mw)
				}
			}

			r.Route("/absences", func(r chi.Router) {
				r.Post("/", h.BookAbsence)
				r.Get("/", h.FindAbsences)
				r.Delete("/", h.DeleteAbsences)
			})

			r.Get("/companies", h.ListCompanies)
			r.Get("/companies/{name}", h.GetCompany)
			r.Delete("/companies/{name}", h.DeleteCompany)

			r.Get("/users", h.ListUsers)
			r.Get("/users/{company}/{username}", h.GetUser)
			r.Delete("/users/{company}/{username}", h.DeleteUser)
		})
	})

	return r
}
