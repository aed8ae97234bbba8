package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/uni-portal-api/api/swagger"
	"github.com/noah-isme/uni-portal-api/internal/handler"
	"github.com/noah-isme/uni-portal-api/internal/middleware"
	"github.com/noah-isme/uni-portal-api/internal/models"
	"github.com/noah-isme/uni-portal-api/internal/repository"
	"github.com/noah-isme/uni-portal-api/internal/service"
	"github.com/noah-isme/uni-portal-api/pkg/cache"
	"github.com/noah-isme/uni-portal-api/pkg/config"
	"github.com/noah-isme/uni-portal-api/pkg/database"
	"github.com/noah-isme/uni-portal-api/pkg/logger"
	"github.com/noah-isme/uni-portal-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/uni-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/uni-portal-api/pkg/middleware/requestid"
)

// @title University Portal API
// @version 1.0.0
// @description Request lifecycle and routing backend for the academic portal
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, routing cache disabled", "error", err)
		redisClient = nil
	}

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	userRepo := repository.NewUserRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	responseRepo := repository.NewResponseRepository(db)
	routingRepo := repository.NewRoutingRuleRepository(db)
	deadlineRepo := repository.NewDeadlineConfigRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	validate := validator.New()

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	mail := mailer.New(cfg.Mail, logr)
	emailQueue := service.NewEmailQueue(mail, cfg.Notifications.WorkerConcurrency, cfg.Notifications.WorkerRetries, logr)
	emailQueue.Start(context.Background())
	defer emailQueue.Stop()

	metricsService := service.NewMetricsService()
	routingService := service.NewRoutingService(routingRepo, cacheRepo, cfg.Routing.CacheTTL, metricsService, logr)
	deadlineService := service.NewDeadlineService(deadlineRepo)
	resolverService := service.NewResolverService(routingService, userRepo, enrollmentRepo)
	notificationService := service.NewNotificationService(notificationRepo, emailQueue, cfg.Notifications.EmailEnabled, metricsService, logr)
	requestService := service.NewRequestService(requestRepo, responseRepo, resolverService, notificationService, deadlineService, metricsService, logr)

	authHandler := handler.NewAuthHandler(authService)
	requestHandler := handler.NewRequestHandler(requestService)
	routingHandler := handler.NewRoutingHandler(routingService, deadlineService)
	notificationHandler := handler.NewNotificationHandler(notificationService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.POST("/auth/login", authHandler.Login)
	r.GET("/auth/me", middleware.JWT(authService), authHandler.Me)

	authed := r.Group("/", middleware.JWT(authService))
	{
		authed.POST("/submit_request/create", middleware.RequireRoles(models.RoleStudent), requestHandler.Create)
		authed.GET("/request/:id", requestHandler.Get)
		authed.PUT("/Requests/EditRequest/:id", requestHandler.Edit)
		authed.DELETE("/Requests/:id", requestHandler.Delete)
		authed.PUT("/request/:id/transfer", middleware.RequireRoles(models.RoleSecretary, models.RoleProfessor, models.RoleAdmin), requestHandler.Transfer)
		authed.POST("/submit_response", middleware.RequireRoles(models.RoleProfessor, models.RoleSecretary, models.RoleAdmin), requestHandler.Respond)
		authed.POST("/update_status", middleware.RequireRoles(models.RoleProfessor, models.RoleSecretary, models.RoleAdmin), requestHandler.UpdateStatus)

		authed.GET("/requests/:user", middleware.RBAC("SELF", "ADMIN", "SECRETARY"), requestHandler.ListForStudent)
		authed.GET("/requests/professor/:email", middleware.RBAC("SELF", "ADMIN"), requestHandler.ListForProfessor)
		authed.GET("/requests/secretary/queue", middleware.RequireRoles(models.RoleSecretary, models.RoleAdmin), requestHandler.TransferQueue)

		authed.GET("/notifications/:user", middleware.RBAC("SELF", "ADMIN"), notificationHandler.List)
		authed.PUT("/notifications/:user/read", notificationHandler.MarkRead)
		authed.PUT("/notifications/read-all", notificationHandler.MarkAllRead)
	}

	api := r.Group("/api", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin))
	{
		api.GET("/request_routing_rules", routingHandler.ListRules)
		api.GET("/request_routing_rules/:type", routingHandler.GetRule)
		api.PUT("/request_routing_rules/:type", routingHandler.UpdateRule)

		api.GET("/deadline_configs", routingHandler.ListDeadlines)
		api.POST("/deadline_configs", routingHandler.UpsertDeadline)
		api.DELETE("/deadline_configs/:type", routingHandler.DeactivateDeadline)

		api.GET("/requests/export", requestHandler.Export)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
