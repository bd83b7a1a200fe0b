package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/scoutlink/backend/internal/auth"
	"github.com/scoutlink/backend/internal/middleware"
)

// Router holds all handlers and creates the chi router
type Router struct {
	healthHandler       *HealthHandler
	contactHandler      *ContactHandler
	conversationHandler *ConversationHandler
	notificationHandler *NotificationHandler
	profileHandler      *ProfileHandler
	jwtManager          *auth.JWTManager
	allowedOrigins      []string
	logger              *zap.Logger
}

// NewRouter creates a new router
func NewRouter(
	healthHandler *HealthHandler,
	contactHandler *ContactHandler,
	conversationHandler *ConversationHandler,
	notificationHandler *NotificationHandler,
	profileHandler *ProfileHandler,
	jwtManager *auth.JWTManager,
	allowedOrigins []string,
	logger *zap.Logger,
) *Router {
	return &Router{
		healthHandler:       healthHandler,
		contactHandler:      contactHandler,
		conversationHandler: conversationHandler,
		notificationHandler: notificationHandler,
		profileHandler:      profileHandler,
		jwtManager:          jwtManager,
		allowedOrigins:      allowedOrigins,
		logger:              logger,
	}
}

// Setup configures and returns the chi router
func (rt *Router) Setup() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RecoveryMiddleware(rt.logger))
	r.Use(middleware.LoggingMiddleware(rt.logger))
	r.Use(middleware.CORSMiddleware(rt.allowedOrigins))
	r.Use(chimiddleware.Compress(5))

	// Health endpoints (no auth required)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", rt.healthHandler.Health)
		r.Get("/ready", rt.healthHandler.Ready)
		r.Get("/live", rt.healthHandler.Live)
	})

	// API v1, all authenticated
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(rt.jwtManager))

			r.Get("/ws", rt.conversationHandler.HandleWebSocket)

			r.Get("/contacts", rt.contactHandler.ListContacts)

			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", rt.conversationHandler.ListConversations)
				r.Post("/", rt.conversationHandler.EnsureConversation)
				r.Post("/{conversationId}/open", rt.conversationHandler.OpenConversation)
				r.Get("/{conversationId}/messages", rt.conversationHandler.GetMessages)
				r.Post("/{conversationId}/messages", rt.conversationHandler.SendMessage)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", rt.notificationHandler.GetFeed)
				r.Get("/stats", rt.notificationHandler.GetStats)
				r.Post("/read-all", rt.notificationHandler.MarkAllRead)
				r.Post("/{notificationId}/read", rt.notificationHandler.MarkRead)
				r.Post("/device-tokens", rt.notificationHandler.RegisterDeviceToken)
			})

			r.Route("/profile", func(r chi.Router) {
				r.Post("/avatar", rt.profileHandler.UploadAvatar)
				r.Delete("/avatar", rt.profileHandler.DeleteAvatar)
			})
		})
	})

	return r
}
