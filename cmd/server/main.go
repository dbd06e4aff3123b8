package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/servicedesk/repair-crm/internal/config"
	"github.com/servicedesk/repair-crm/internal/database"
	"github.com/servicedesk/repair-crm/internal/handlers"
	"github.com/servicedesk/repair-crm/internal/middleware"
	"github.com/servicedesk/repair-crm/internal/services"
	"github.com/servicedesk/repair-crm/pkg/jwt"
	"github.com/servicedesk/repair-crm/pkg/notify"
	"github.com/servicedesk/repair-crm/pkg/validator"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting repair CRM backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB.DB, logger); err != nil {
			logger.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Repositories
	userRepository := database.NewUserRepository(db)
	assignmentRepository := database.NewWorkAssignmentRepository(db)
	checkinRepository := database.NewWorkCheckinRepository(db)

	// Services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	mobileValidator := validator.NewMobileValidator(cfg.Notification.DefaultCountryCode)

	gateway := newNotificationGateway(cfg.Notification, logger)
	logger.WithField("channel", gateway.Name()).Info("Notification gateway initialized")

	userService := services.NewUserService(userRepository, jwtService, mobileValidator, cfg.Security.BcryptCost, logger)
	notificationService := services.NewNotificationService(gateway, mobileValidator, cfg.Notification.SendTimeout, logger)
	assignmentService := services.NewWorkAssignmentService(
		assignmentRepository,
		userService,
		notificationService,
		services.AssignmentOptions{
			StrictTransitions: cfg.Assignment.StrictTransitions,
			NotifyOnCreate:    cfg.Assignment.NotifyOnCreate,
			NotifyOnStatus:    cfg.Assignment.NotifyOnStatus,
		},
		logger,
	)
	checkinService := services.NewWorkCheckinService(checkinRepository, assignmentRepository, userService, logger)

	cronService := services.NewCronService(gateway, cfg.Notification.HealthCheckSchedule, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	logger.Info("Services initialized")

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	if cfg.Security.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger))
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: !allowsAnyOrigin(cfg.CORS.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", handlers.NewHealthHandler(db, cronService, version, logger).Check)

	handlers.RegisterRoutes(router, handlers.Set{
		Auth:        handlers.NewAuthHandler(userService, logger),
		Users:       handlers.NewUserHandler(userService, logger),
		Assignments: handlers.NewWorkAssignmentHandler(assignmentService, checkinService, logger),
		Checkins:    handlers.NewWorkCheckinHandler(checkinService, logger),
	}, middleware.AuthMiddleware(jwtService, userService, logger))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Stopping cron service...")
	cronService.Stop()

	logger.Info("Waiting for pending notifications...")
	notificationService.Wait()

	logger.Info("Server exited successfully")
}

// newNotificationGateway selects the delivery channel for assignment events
func newNotificationGateway(cfg config.NotificationConfig, logger *logrus.Logger) notify.Gateway {
	switch cfg.Channel {
	case "whatsapp":
		return notify.NewWhatsAppGateway(notify.WhatsAppConfig{
			APIURL:        cfg.WhatsAppAPIURL,
			PhoneNumberID: cfg.WhatsAppPhoneNumberID,
			Token:         cfg.WhatsAppToken,
			Timeout:       cfg.SendTimeout,
		})
	case "sms":
		return notify.NewSMSURLGateway(notify.SMSURLConfig{
			APIURL:  cfg.SMSAPIURL,
			APIKey:  cfg.SMSAPIKey,
			Mask:    cfg.SMSMask,
			Timeout: cfg.SendTimeout,
		})
	default:
		logger.Info("Notifications are logged only (no messages will be sent)")
		return notify.NewLogGateway(logger)
	}
}

// healthCheckHandler reports database and notification channel health. An
// unhealthy channel degrades the service but does not fail the probe.
func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
