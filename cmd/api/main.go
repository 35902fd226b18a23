package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "hrportal/api/swagger" // swagger docs
	"hrportal/internal/auth"
	"hrportal/internal/config"
	"hrportal/internal/database"
	"hrportal/internal/handler"
	"hrportal/internal/mailer"
	"hrportal/internal/middleware"
	"hrportal/internal/repository"
	"hrportal/internal/service"
	"hrportal/internal/storage"
	"hrportal/internal/websocket"
	"hrportal/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           HR Portal API
// @version         1.0
// @description     Employee onboarding and visa document review.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLog, err := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLog.Sync() }()

	if err := run(cfg, zapLog); err != nil {
		zapLog.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, zapLog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.Database, zapLog)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	zapLog.Info("Connected to PostgreSQL successfully")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(zapLog)
	go wsHub.Run()
	defer wsHub.Close()

	fileStorage, err := storage.NewS3Storage(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("object storage setup failed: %w", err)
	}

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	onboardingRepo := repository.NewOnboardingRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	emailJobRepo := repository.NewEmailJobRepository(db)
	statisticsRepo := repository.NewStatisticsRepository(db)

	emailQueue := mailer.NewQueue(emailJobRepo, cfg.Email.MaxAttempts)
	emailWorker := mailer.NewWorker(emailJobRepo, mailer.NewSender(cfg.Email, zapLog), cfg.Email, zapLog)
	if err := emailWorker.Start(ctx); err != nil {
		return err
	}
	defer emailWorker.Stop()

	tokens := auth.NewTokens(cfg.JWTSecret(), cfg.Auth.AccessTokenTTL)
	authMiddleware := middleware.NewAuth(tokens, cfg.Auth.RefreshTokenTTL, cfg.Auth.SecureCookies)

	notificationService := service.NewNotificationService(notificationRepo, wsHub)
	userService := service.NewUserService(userRepo, auditRepo, tokens, cfg.Auth.RefreshTokenTTL, zapLog)
	documentService := service.NewDocumentService(txManager, documentRepo, userRepo, auditRepo, notificationService, emailQueue, fileStorage, zapLog)
	onboardingService := service.NewOnboardingService(txManager, onboardingRepo, userRepo, auditRepo, notificationService, emailQueue, zapLog)
	auditService := service.NewAuditService(auditRepo)
	statisticsService := service.NewStatisticsService(statisticsRepo)

	if cfg.Auth.BootstrapHREmail != "" {
		if err := userService.EnsureHR(ctx, cfg.Auth.BootstrapHREmail, cfg.Auth.BootstrapHRPassword); err != nil {
			return fmt.Errorf("bootstrap HR account: %w", err)
		}
	}

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService, authMiddleware)
	documentHandler := handler.NewDocumentHandler(documentService, authMiddleware)
	onboardingHandler := handler.NewOnboardingHandler(onboardingService, authMiddleware)
	notificationHandler := handler.NewNotificationHandler(notificationService, authMiddleware)
	auditHandler := handler.NewAuditHandler(auditService, authMiddleware)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService, authMiddleware)

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(middleware.RequestLogger(zapLog), gin.Recovery())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DEGRADED"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", websocket.ServeWs(wsHub, tokens))

	// API Routing
	userHandler.RegisterRoutes(router.Group(""))
	documentHandler.RegisterRoutes(router.Group(""))
	onboardingHandler.RegisterRoutes(router.Group(""))
	notificationHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))
	statisticsHandler.RegisterRoutes(router.Group(""))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		zapLog.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	zapLog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
