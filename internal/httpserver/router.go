package httpserver

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"chatcore/internal/config"
	"chatcore/internal/fanout"
	"chatcore/internal/security"
	"chatcore/internal/service"
	"chatcore/internal/storage"
	"chatcore/internal/store/sqlite"
	"chatcore/internal/ws"
)

// NewRouter constructs the main HTTP router and wires routes, services, and middleware.
func NewRouter(cfg *config.Config, db *sql.DB, registry *fanout.Registry, queue fanout.Queue, tokenSvc *security.TokenService) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Repositories and collaborator adapters
	convRepo := sqlite.NewConversationRepo(db)
	partRepo := sqlite.NewParticipantRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)
	reactRepo := sqlite.NewReactionRepo(db)
	readRepo := sqlite.NewReadRepo(db)
	profileRepo := sqlite.NewProfileRepo(db)
	connRepo := sqlite.NewConnectionRepo(db)
	objStorage := storage.NewLocal(cfg.UploadDir, "/api/uploads")

	// Services
	convSvc := service.NewConversationService(convRepo, partRepo, msgRepo, connRepo, profileRepo)
	msgSvc := service.NewMessageService(partRepo, msgRepo, reactRepo, readRepo, profileRepo, objStorage, queue)
	reactSvc := service.NewReactionService(partRepo, msgRepo, reactRepo, readRepo, queue)

	// Simple health endpoints
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "chatcore API",
			"version": "1.0.0",
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokenSvc, profileRepo))

			r.Route("/conversations", func(r chi.Router) {
				r.Post("/", handleCreateConversation(convSvc))
				r.Get("/", handleListConversations(convSvc))
				r.Get("/{conversationID}", handleGetConversation(convSvc))
				r.Post("/{conversationID}/archive", handleArchiveConversation(convSvc))
				r.Post("/{conversationID}/mute", handleMuteConversation(convSvc))
				r.Delete("/{conversationID}", handleLeaveConversation(convSvc))
				r.Post("/{conversationID}/read", handleMarkAllRead(reactSvc))
				r.Get("/{conversationID}/messages", handleListMessages(msgSvc))
				r.Post("/{conversationID}/messages", handleSendMessage(msgSvc))
				r.Post("/{conversationID}/messages/file", handleSendFileMessage(msgSvc))
			})

			r.Route("/messages", func(r chi.Router) {
				r.Put("/{messageID}", handleEditMessage(msgSvc))
				r.Delete("/{messageID}", handleDeleteMessage(msgSvc))
				r.Post("/{messageID}/reactions", handleAddReaction(reactSvc))
				r.Delete("/{messageID}/reactions/{reaction}", handleRemoveReaction(reactSvc))
				r.Post("/{messageID}/read", handleMarkMessageRead(reactSvc))
			})

			// Uploads (read-only attachment serving)
			r.Mount("/uploads", UploadRoutes(cfg))
		})
	})

	// WebSocket endpoint
	r.Get("/ws", ws.MakeHandler(registry, tokenSvc, partRepo, cfg.CORSOrigins))

	return r
}
