package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/shelf-api/internal/api/handlers"
	"github.com/isdelr/shelf-api/internal/auth"
	"github.com/isdelr/shelf-api/internal/database"
	"github.com/isdelr/shelf-api/internal/services"
	"github.com/isdelr/shelf-api/internal/websocket"
	"github.com/rs/zerolog/log"
)

// Deps are the collaborators the router hands to its handlers.
type Deps struct {
	Store          database.Store
	Hub            *websocket.Hub
	Tokens         auth.TokenVerifier
	UserService    services.UserServiceProvider
	BookService    services.BookServiceProvider
	EventService   services.EventServiceProvider
	AllowedOrigins []string
}

// NewRouter creates and configures a new Chi router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(d.UserService)
	bookHandler := handlers.NewBookHandler(d.BookService)
	eventHandler := handlers.NewEventHandler(d.EventService)
	healthHandler := handlers.NewHealthHandler(d.Store)
	wsHandler := handlers.NewWebSocketHandler(d.Hub, originChecker(d.AllowedOrigins))

	requireAuth := auth.Middleware(d.Tokens)

	r.Get("/health", healthHandler.Get)
	r.Get("/events", eventHandler.GetRecent)
	r.Get("/ws/books", wsHandler.ServeBooks)

	r.Route("/user", func(r chi.Router) {
		r.Post("/", handlers.Handle(userHandler.Signup))
		r.Get("/get/{id}", handlers.Handle(userHandler.Get))
		r.Get("/{authInfo}", handlers.Handle(userHandler.GetByEmail))
		r.With(requireAuth).Patch("/{id}", handlers.Handle(userHandler.Update))
	})

	r.Route("/books", func(r chi.Router) {
		r.Get("/", handlers.Handle(bookHandler.GetAll))
		r.Get("/{id}", handlers.Handle(bookHandler.Get))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", handlers.Handle(bookHandler.Create))
			r.Patch("/{id}", handlers.Handle(bookHandler.Update))
			r.Delete("/{id}", handlers.Handle(bookHandler.Delete))
		})
	})

	// Alias of the book listing until categories exist as data.
	r.Get("/categories", handlers.Handle(bookHandler.Categories))

	return r
}

// requestLogger writes one access log line per request through zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("took", time.Since(start)).
				Str("remote", r.RemoteAddr).
				Msg("HTTP request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// originChecker mirrors the CORS allow-list for websocket upgrades.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return nil
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
