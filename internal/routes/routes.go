package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lexvia/ConsultAppBack/internal/config"
	"github.com/lexvia/ConsultAppBack/internal/handlers"
	"github.com/lexvia/ConsultAppBack/internal/middleware"
	"github.com/lexvia/ConsultAppBack/internal/realtime"
	"github.com/lexvia/ConsultAppBack/internal/repository"
	"github.com/lexvia/ConsultAppBack/internal/services"
	"github.com/redis/go-redis/v9"
)

// RegisterRoutes wires repositories, services and handlers onto the app and
// returns the reconciliation service so the caller can schedule it.
func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) (*services.ReconcileService, error) {
	userRepo := repository.NewUserRepository(db)
	lawyerRepo := repository.NewLawyerProfileRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	consultationRepo := repository.NewConsultationRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	appointmentService := services.NewAppointmentService(db, appointmentRepo, lawyerRepo, cfg.MeetBaseURL)
	consultationService := services.NewConsultationService(consultationRepo, appointmentRepo, lawyerRepo, appointmentService, cfg.MeetBaseURL)
	chatService := services.NewChatService(db, conversationRepo, messageRepo, userRepo)
	reconcileService := services.NewReconcileService(consultationRepo, appointmentRepo)

	var presence realtime.PresenceRegistry
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		presence = realtime.NewRedisPresence(redis.NewClient(opts))
	} else {
		presence = realtime.NewMemoryPresence()
	}

	hub := realtime.NewHub(presence)
	go hub.Run()

	appointmentHandler := handlers.NewAppointmentHandler(appointmentService)
	consultationHandler := handlers.NewConsultationHandler(consultationService)
	conversationHandler := handlers.NewConversationHandler(chatService)
	messageHandler := handlers.NewMessageHandler(chatService)
	realtimeHandler := handlers.NewRealtimeHandler(hub, chatService, cfg.JWTSecret)

	api := app.Group("/api")
	v1 := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	appointments := v1.Group("/appointments")
	appointments.Post("", appointmentHandler.Create)
	appointments.Get("/my-appointments", appointmentHandler.FindMine)
	appointments.Get("/:id", appointmentHandler.GetByID)
	appointments.Patch("/:id/status", appointmentHandler.UpdateStatus)
	appointments.Delete("/:id/cancel", appointmentHandler.Cancel)

	consultations := v1.Group("/consultations")
	consultations.Post("", consultationHandler.Create)
	consultations.Get("", consultationHandler.FindMine)
	consultations.Get("/:id", consultationHandler.GetByID)
	consultations.Post("/:id/start", consultationHandler.Start)
	consultations.Post("/:id/end", consultationHandler.End)
	consultations.Patch("/:id", consultationHandler.UpdateNotes)

	conversations := v1.Group("/conversations")
	conversations.Post("", conversationHandler.Open)
	conversations.Get("", conversationHandler.List)
	conversations.Get("/:id", conversationHandler.GetByID)
	conversations.Patch("/:id/mark-as-read", conversationHandler.MarkRead)
	conversations.Get("/:id/messages", conversationHandler.ListMessages)

	messages := v1.Group("/messages")
	messages.Post("", messageHandler.Send)
	messages.Get("", messageHandler.List)
	messages.Patch("/:id/mark-as-read", messageHandler.MarkRead)
	messages.Delete("/:id", messageHandler.Delete)

	api.Use("/v1/ws", realtimeHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(realtimeHandler.HandleWebSocket))

	return reconcileService, nil
}
