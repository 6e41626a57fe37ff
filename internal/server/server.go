package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"anoa.com/mentorconnect/internal/config"
	"anoa.com/mentorconnect/internal/middleware"
	"anoa.com/mentorconnect/internal/realtime"
	"anoa.com/mentorconnect/pkg/database"
	"anoa.com/mentorconnect/pkg/logger"
	"anoa.com/mentorconnect/pkg/ratelimiter"

	connHttp "anoa.com/mentorconnect/internal/modules/connection/delivery/http"
	connRepo "anoa.com/mentorconnect/internal/modules/connection/repository"
	connService "anoa.com/mentorconnect/internal/modules/connection/service"

	notiHttp "anoa.com/mentorconnect/internal/modules/notification/delivery/http"
	notifRepo "anoa.com/mentorconnect/internal/modules/notification/repository"
	notifService "anoa.com/mentorconnect/internal/modules/notification/service"

	projectHttp "anoa.com/mentorconnect/internal/modules/project/delivery/http"
	projectRepo "anoa.com/mentorconnect/internal/modules/project/repository"
	projectService "anoa.com/mentorconnect/internal/modules/project/service"

	liveHttp "anoa.com/mentorconnect/internal/modules/subscription/delivery/http"
	subscription "anoa.com/mentorconnect/internal/modules/subscription/service"

	userRepo "anoa.com/mentorconnect/internal/modules/user/repository"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Server struct {
	engine        *gin.Engine
	db            *gorm.DB
	redisClient   *redis.Client
	hub           *subscription.Hub
	notifications notifService.NotificationService
	log           *zap.Logger
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, log *zap.Logger) *Server {
	log = logger.OrNop(log)
	tx := database.NewTransactor(db)
	publisher := realtime.NewPublisher(redisClient, log)
	limiter := ratelimiter.New(redisClient)

	userRepo := userRepo.NewUserRepository(db)
	connectionRepo := connRepo.NewConnectionRepository(db)
	projectRepo := projectRepo.NewProjectRepository(db)

	// Notification Module
	notificationRepository := notifRepo.NewNotificationRepository(db, cfg.Notifications.OrderedQueryTimeout)
	notificationSvc := notifService.NewNotificationService(
		notificationRepository,
		connectionRepo,
		userRepo,
		projectRepo,
		publisher,
		tx,
		log,
		notifService.Options{Retention: notifService.Retention{
			ReadTTL: cfg.Notifications.Retention.ReadTTL,
			MaxAge:  cfg.Notifications.Retention.MaxAge,
		}},
	)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc)

	// Connection Module
	connectionSvc := connService.NewConnectionService(
		connectionRepo,
		userRepo,
		notificationSvc,
		publisher,
		tx,
		limiter,
		log,
		connService.Options{SendCooldown: cfg.Connections.SendCooldown},
	)
	connectionHandler := connHttp.NewConnectionHandler(connectionSvc)

	projectSvc := projectService.NewProjectService(projectRepo, notificationSvc, tx, log)
	projectHandler := projectHttp.NewProjectHandler(projectSvc)

	// Live views
	origins := allowedOrigins(cfg.App.AllowedOrigins)
	hub := subscription.NewHub(
		connectionSvc,
		notificationSvc,
		realtime.NewSubscriber(redisClient, log),
		log,
		subscription.HubOptions{Window: cfg.Notifications.Window},
	)
	liveHandler := liveHttp.NewLiveHandler(hub, origins, log)

	router := gin.New()

	setupCORS(router, origins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	if cfg.Telemetry.Enabled {
		router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}

	s := &Server{
		engine:        router,
		db:            db,
		redisClient:   redisClient,
		hub:           hub,
		notifications: notificationSvc,
		log:           log,
	}

	router.GET("/healthz", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.NewAuthMiddleware(userRepo, cfg.Auth.JWTSecret)

	api := router.Group("/api")
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		// Connection routes
		protected.POST("/connections", connectionHandler.SendRequest)
		protected.GET("/connections/status/:user_id", connectionHandler.GetConnectionStatus)
		protected.GET("/connections/incoming", connectionHandler.ListIncoming)
		protected.GET("/connections/outgoing", connectionHandler.ListOutgoing)
		protected.GET("/connections/accepted", connectionHandler.ListConnections)
		protected.GET("/connections/button-text", connectionHandler.GetButtonText)
		protected.POST("/connections/:id/accept", connectionHandler.AcceptRequest)
		protected.POST("/connections/:id/reject", connectionHandler.RejectRequest)
		protected.DELETE("/connections/:id", connectionHandler.CancelRequest)

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.DELETE("/notifications/:id", notificationHandler.DeleteNotification)
		protected.POST("/notifications/:id/accept", notificationHandler.AcceptConnectionRequest)
		protected.POST("/notifications/:id/decline", notificationHandler.DeclineConnectionRequest)

		// Project routes
		protected.POST("/projects/:project_id/join", projectHandler.Join)
		protected.GET("/projects/:project_id/members", projectHandler.ListMembers)

		// Live views
		live := protected.Group("/live")
		live.Use(authMiddleware.RequireUser())
		{
			live.GET("", liveHandler.GetSnapshot)
			live.GET("/ws", liveHandler.Stream)
		}
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Notifications exposes the notification service to background jobs.
func (s *Server) Notifications() notifService.NotificationService {
	return s.notifications
}

// Shutdown closes every live session.
func (s *Server) Shutdown() {
	s.hub.Shutdown()
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{"database": "ok"}
	code := http.StatusOK

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		s.log.Warn("health check: database unreachable", zap.Error(err))
		status["database"] = "unavailable"
		code = http.StatusServiceUnavailable
	}

	switch {
	case s.redisClient == nil:
		status["redis"] = "disabled"
	case s.redisClient.Ping(ctx).Err() != nil:
		status["redis"] = "unavailable"
		code = http.StatusServiceUnavailable
	default:
		status["redis"] = "ok"
	}

	c.JSON(code, status)
}

func allowedOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return origins
}

func setupCORS(router *gin.Engine, origins []string) {
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
