package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/messagely-be/internal/api/handlers"
	"github.com/isdelr/messagely-be/internal/auth"
	"github.com/isdelr/messagely-be/internal/services"
	"github.com/isdelr/messagely-be/internal/websocket"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// Deps bundles what the router needs to build its handlers.
type Deps struct {
	Hub            *websocket.Hub
	Tokens         auth.TokenVerifier
	Auth           services.AuthServiceProvider
	Users          services.UserServiceProvider
	Messages       services.MessageServiceProvider
	Events         services.EventServiceProvider
	Stats          handlers.StatsSampler
	AllowedOrigins []string
}

// NewRouter creates and configures a new Chi router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request")
	}))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Resolve identity on every request; absence is fine, invalid tokens are not.
	r.Use(auth.Identify(d.Tokens))

	authHandler := handlers.NewAuthHandler(d.Auth)
	userHandler := handlers.NewUserHandler(d.Users, d.Messages, d.Events)
	messageHandler := handlers.NewMessageHandler(d.Messages)
	wsHandler := handlers.NewWebSocketHandler(d.Hub, d.AllowedOrigins)
	healthHandler := handlers.NewHealthHandler(d.Stats)

	requireAuth := auth.RequireAuthenticated(d.Users)

	r.Get("/healthz", healthHandler.Health)

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/register", authHandler.Register)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/ws", wsHandler.Serve)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.GetAll)
				r.Route("/{username}", func(r chi.Router) {
					r.Use(auth.RequireSelf("username"))
					r.Get("/", userHandler.Get)
					r.Get("/to", userHandler.MessagesTo)
					r.Get("/from", userHandler.MessagesFrom)
					r.Get("/events", userHandler.Events)
				})
			})

			r.Route("/messages", func(r chi.Router) {
				r.Post("/", messageHandler.Send)
				r.Post("/send", messageHandler.Send)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", messageHandler.Get)
					r.Post("/read", messageHandler.MarkRead)
				})
			})
		})
	})

	return r
}
