package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/TijaraHub/tijara_api/internal/cache"
	"github.com/TijaraHub/tijara_api/internal/config"
	"github.com/TijaraHub/tijara_api/internal/database"
	"github.com/TijaraHub/tijara_api/internal/handler"
	"github.com/TijaraHub/tijara_api/internal/middleware"
	"github.com/TijaraHub/tijara_api/internal/repository"
	"github.com/TijaraHub/tijara_api/internal/service"
	"github.com/TijaraHub/tijara_api/internal/worker"
	"github.com/TijaraHub/tijara_api/pkg/tap"
)

// main is the application entrypoint for the Tijara supplier platform API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfgStore := config.NewStore(cfg)

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting tijara api")

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := runMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	// 3c. Initialize unread count cache
	unreadCache := cache.NewUnreadCache(redisClient)

	// 4. Initialize Tap gateway client
	tapClient := tap.NewClient(tap.Config{
		BaseURL:   cfg.Tap.BaseURL,
		SecretKey: cfg.Tap.SecretKey,
	})

	// 5. Initialize repositories
	supplierRepo := repository.NewSupplierRepository(db)
	inquiryRepo := repository.NewInquiryRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	planRepo := repository.NewPlanRepository(db)
	trxRepo := repository.NewTransactionRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	adminRepo := repository.NewAdminUserRepository(db)

	// 6. Initialize services
	authSvc := service.NewAuthService(supplierRepo)
	adminAuthSvc := service.NewAdminAuthService(adminRepo)
	supplierSvc := service.NewSupplierService(supplierRepo)
	inboxSvc := service.NewInboxService(inquiryRepo, messageRepo, ratingRepo, supplierRepo, unreadCache)
	subSvc := service.NewSubscriptionService(planRepo, trxRepo, subRepo, supplierRepo, tapClient, cfg.Tap)

	// 7. Initialize handlers
	handlers := &Handlers{
		Health:            handler.NewHealthHandler(db, redisClient),
		Inbox:             handler.NewInboxHandler(inboxSvc),
		Supplier:          handler.NewSupplierHandler(supplierSvc),
		Subscription:      handler.NewSubscriptionHandler(subSvc, cfg.Frontend.PaymentResultURL),
		Webhook:           handler.NewWebhookHandler(subSvc, cfg.Tap.WebhookSecret),
		AdminAuth:         handler.NewAdminAuthHandler(adminAuthSvc),
		AdminSubscription: handler.NewAdminSubscriptionHandler(subSvc, cfgStore),
	}

	// 8. Initialize middleware
	authMw := middleware.NewAuthMiddleware(authSvc)
	jwtMw := middleware.NewJWTMiddleware()
	planLimitMw := middleware.NewPlanLimitMiddleware(cfgStore, inquiryRepo)

	// 9. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, authMw, jwtMw, planLimitMw)

	// 10. Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 11. Start workers
	go worker.NewExpiryWorker(subSvc, cfg.Worker.ExpiryInterval).Start(ctx)
	go worker.NewReconcileWorker(
		subSvc,
		cfg.Worker.ReconcileInterval,
		cfg.Worker.ReconcileAfter,
		cfg.Worker.ReconcileBatchSize,
	).Start(ctx)

	// 12. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 13. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 14. Cancel context to stop workers
	cancel()

	// 15. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health            *handler.HealthHandler
	Inbox             *handler.InboxHandler
	Supplier          *handler.SupplierHandler
	Subscription      *handler.SubscriptionHandler
	Webhook           *handler.WebhookHandler
	AdminAuth         *handler.AdminAuthHandler
	AdminSubscription *handler.AdminSubscriptionHandler
}

// setupRoutes registers all routes.
func setupRoutes(
	router *gin.Engine,
	handlers *Handlers,
	authMiddleware *middleware.AuthMiddleware,
	jwtMiddleware *middleware.JWTMiddleware,
	planLimitMiddleware *middleware.PlanLimitMiddleware,
) {
	// Gateway webhook endpoint
	router.POST("/webhook/tap", handlers.Webhook.HandleTapWebhook)

	router.GET("/v1/health", handlers.Health.GetHealth)

	// Payment redirect callback (browser-facing, unauthenticated)
	router.GET("/v1/subscription/success", handlers.Subscription.SuccessCallback)

	// Inbox routes (protected with supplier API key)
	inbox := router.Group("/v1/inbox")
	inbox.Use(authMiddleware.Handle())
	{
		inbox.GET("", handlers.Inbox.ListInbox)
		inbox.GET("/thread/:id", handlers.Inbox.InquiryThread)
		inbox.POST("/mark-read", handlers.Inbox.MarkRead)
		inbox.POST("/reply", handlers.Inbox.Reply)
		inbox.GET("/unread-count", handlers.Inbox.UnreadCount)
	}

	// Outbound communication (plan-limited for inquiries)
	router.POST("/v1/inquiries", authMiddleware.Handle(), planLimitMiddleware.Handle(), handlers.Inbox.SendInquiry)
	router.POST("/v1/messages", authMiddleware.Handle(), handlers.Inbox.SendMessage)
	router.POST("/v1/ratings", authMiddleware.Handle(), handlers.Inbox.SubmitRating)

	// Subscription routes (protected with supplier API key)
	subscription := router.Group("/v1/subscription")
	subscription.Use(authMiddleware.Handle())
	{
		subscription.GET("/plans", handlers.Subscription.ListPlans)
		subscription.POST("/payment", handlers.Subscription.CreatePayment)
		subscription.GET("/current", handlers.Subscription.CurrentSubscription)
		subscription.GET("/history", handlers.Subscription.SubscriptionHistory)
		subscription.GET("/payments", handlers.Subscription.PaymentHistory)
		subscription.GET("/status/:transactionId", handlers.Subscription.PaymentStatus)
	}

	// Supplier profile routes (protected with supplier API key)
	supplier := router.Group("/v1/supplier")
	supplier.Use(authMiddleware.Handle())
	{
		supplier.GET("/profile", handlers.Supplier.GetProfile)
		supplier.PUT("/profile", handlers.Supplier.UpdateProfile)
	}

	// Admin routes
	admin := router.Group("/v1/admin")
	admin.POST("/auth/login", handlers.AdminAuth.Login)
	admin.Use(jwtMiddleware.Handle())
	{
		// Supplier management
		admin.POST("/suppliers", handlers.Supplier.Register)
		admin.GET("/suppliers", handlers.Supplier.ListSuppliers)
		admin.PATCH("/suppliers/:id/status", handlers.Supplier.SetStatus)

		// Plan management
		admin.POST("/plans", handlers.AdminSubscription.CreatePlan)
		admin.PUT("/plans/:id", handlers.AdminSubscription.UpdatePlan)

		// Subscription management
		admin.GET("/subscriptions", handlers.AdminSubscription.ListSubscriptions)
		admin.POST("/subscriptions/:id/cancel", handlers.AdminSubscription.CancelSubscription)

		// Runtime settings
		admin.POST("/settings/reload", handlers.AdminSubscription.ReloadSettings)
	}
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
