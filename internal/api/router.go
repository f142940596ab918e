package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hugh/toga/internal/api/handlers"
	"github.com/hugh/toga/internal/api/middleware"
	"github.com/hugh/toga/internal/auth"
	"github.com/hugh/toga/internal/payments"
	"github.com/hugh/toga/internal/storage"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB              *gorm.DB
	Redis           *redis.Client
	Logger          *slog.Logger
	JWTService      *auth.JWTService
	AuthService     *auth.Service
	PaymentProvider payments.Provider
	PublishableKey  string
	Uploader        storage.Uploader
	AllowedOrigins  []string // CORS allowed origins
	RateLimitReqs   int      // Rate limit requests per window
	RateLimitSecs   int      // Rate limit window in seconds
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		// Default to localhost for development - configure in production
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.Logger)
	userHandler := handlers.NewUserHandler(cfg.DB)
	itemHandler := handlers.NewItemHandler(cfg.DB)
	transactionHandler := handlers.NewTransactionHandler(cfg.DB)
	messageHandler := handlers.NewMessageHandler(cfg.DB, cfg.Redis)
	bookmarkHandler := handlers.NewBookmarkHandler(cfg.DB)
	eventHandler := handlers.NewEventHandler(cfg.DB)
	organizationHandler := handlers.NewOrganizationHandler(cfg.DB)
	paymentHandler := handlers.NewPaymentHandler(cfg.DB, cfg.PaymentProvider, cfg.PublishableKey, cfg.Logger)
	uploadHandler := handlers.NewUploadHandler(cfg.Uploader, cfg.Logger)

	// Liveness endpoints (no auth required)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("toga api"))
	})
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/health", healthHandler.Health)

	r.Route("/api", func(r chi.Router) {
		// Public auth endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Webhook authenticates by provider signature, not bearer token
		r.Post("/payments/webhook", paymentHandler.Webhook)

		// Browsing is public; bookmark state joins in when a valid token
		// is presented
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWTService))
			r.Get("/items", itemHandler.List)
			r.Get("/items/{id}", itemHandler.Get)
		})

		r.Get("/events", eventHandler.List)
		r.Get("/events/{id}", eventHandler.Get)
		r.Get("/events/{id}/listings", eventHandler.Listings)
		r.Get("/organizations", organizationHandler.List)
		r.Get("/organizations/{id}/members", organizationHandler.Members)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService))

			r.Route("/users", func(r chi.Router) {
				r.Get("/profile", userHandler.GetProfile)
				r.Put("/profile", userHandler.UpdateProfile)
			})

			// Items, events, and organizations register method-by-method;
			// their GETs already live on the public tree and a Route()
			// mount would collide with them.
			r.Post("/items", itemHandler.Create)
			r.Put("/items/{id}", itemHandler.Update)
			r.Delete("/items/{id}", itemHandler.Delete)

			r.Route("/transactions", func(r chi.Router) {
				r.Post("/", transactionHandler.Create)
				r.Get("/my-transactions", transactionHandler.ListMine)
				r.Put("/{id}/status", transactionHandler.UpdateStatus)
			})

			r.Route("/messages", func(r chi.Router) {
				r.Post("/", messageHandler.Send)
				r.Get("/conversations", messageHandler.Conversations)
				r.Get("/unread/count", messageHandler.UnreadCount)
				r.Put("/{id}/read", messageHandler.MarkRead)
				r.Get("/{userId}", messageHandler.Thread)
			})

			r.Route("/bookmarks", func(r chi.Router) {
				r.Get("/", bookmarkHandler.List)
				r.Post("/", bookmarkHandler.Add)
				// Body-addressed aliases kept for clients that cannot
				// issue DELETE with a path parameter.
				r.Post("/add", bookmarkHandler.Add)
				r.Post("/remove", bookmarkHandler.RemoveBody)
				r.Delete("/{itemId}", bookmarkHandler.Remove)
			})

			r.Post("/events", eventHandler.Create)
			r.Put("/events/{id}", eventHandler.Update)
			r.Delete("/events/{id}", eventHandler.Delete)
			r.Post("/events/{id}/listings", eventHandler.AttachListing)
			r.Delete("/events/{id}/listings/{itemId}", eventHandler.DetachListing)

			r.Post("/organizations", organizationHandler.Create)
			r.Post("/organizations/{id}/join", organizationHandler.Join)
			r.Post("/organizations/{id}/leave", organizationHandler.Leave)

			r.Post("/payments/create-payment-intent", paymentHandler.CreateIntent)
			r.Post("/uploads/presign", uploadHandler.Presign)
		})
	})

	return &Router{r}
}
