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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/engracedsmile/travel-backend/internal/config"
	"github.com/engracedsmile/travel-backend/internal/database"
	"github.com/engracedsmile/travel-backend/internal/handlers"
	"github.com/engracedsmile/travel-backend/internal/middleware"
	"github.com/engracedsmile/travel-backend/internal/services"
	"github.com/engracedsmile/travel-backend/pkg/jwt"
	"github.com/engracedsmile/travel-backend/pkg/mailer"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Engraced Smile Travel Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Optional Redis cache for webhook dedup
	var cache *redis.Client
	if cfg.Redis.Addr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := cache.Ping(ctx).Err(); err != nil {
			logger.Warnf("Redis unavailable, webhook dedup fast path disabled: %v", err)
			cache = nil
		} else {
			logger.Info("Redis connection established")
		}
		cancel()
	}

	// Initialize repositories
	tripRepo := database.NewTripRepository(db)
	seatRepo := database.NewSeatRepository(db)
	bookingRepo := database.NewBookingRepository(db)
	paymentRepo := database.NewPaymentRepository(db)
	promotionRepo := database.NewPromotionRepository(db)
	notificationRepo := database.NewNotificationRepository(db)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	mailClient := mailer.NewClient(mailer.Config{
		APIURL:      cfg.Mail.APIURL,
		APIKey:      cfg.Mail.APIKey,
		FromAddress: cfg.Mail.FromAddress,
	})

	var notifier services.Notifier
	if mailClient.IsConfigured() {
		notifier = services.NewEmailNotifier(notificationRepo, mailClient, logger)
		logger.Info("Email notifications enabled")
	} else {
		notifier = services.NewNoopNotifier()
		logger.Info("Mail gateway not configured, notifications disabled")
	}

	promotionService := services.NewPromotionService(promotionRepo, logger)
	paystackService := services.NewPaystackService(&cfg.Payment, logger)
	bookingService := services.NewBookingService(
		bookingRepo, seatRepo, tripRepo, promotionRepo, paymentRepo,
		promotionService, notifier, logger,
	)
	paymentService := services.NewPaymentService(
		paymentRepo, bookingRepo, paystackService, notifier, cache, logger,
	)

	if !paystackService.IsConfigured() {
		logger.Warn("Paystack secret key not set, gateway calls will fail")
	}

	// Initialize handlers
	tripHandler := handlers.NewTripHandler(tripRepo, seatRepo, logger)
	bookingHandler := handlers.NewBookingHandler(bookingService, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentService, logger)
	promotionHandler := handlers.NewPromotionHandler(promotionService, logger)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo, logger)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	auth := middleware.AuthMiddleware(jwtService, logger)
	adminOnly := middleware.RequireRole("admin")

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Trip routes
		trips := v1.Group("/trips")
		{
			trips.GET("", tripHandler.ListTrips)
			trips.GET("/:id", tripHandler.GetTrip)
			trips.GET("/:id/seats", tripHandler.GetTripSeats)

			tripsAdmin := trips.Group("")
			tripsAdmin.Use(auth, adminOnly)
			{
				tripsAdmin.POST("", tripHandler.CreateTrip)
				tripsAdmin.PATCH("/:id/status", tripHandler.UpdateTripStatus)
				tripsAdmin.GET("/:id/bookings", bookingHandler.ListTripBookings)
			}
		}

		// Booking routes. Creation and lookup stay public for guest checkout;
		// the booking number acts as the claim token.
		bookings := v1.Group("/bookings")
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.GET("/:id", bookingHandler.GetBooking)
			bookings.GET("/number/:number", bookingHandler.GetBookingByNumber)
			bookings.POST("/:id/cancel", bookingHandler.CancelBooking)

			bookings.GET("/my", auth, bookingHandler.GetMyBookings)

			bookingsAdmin := bookings.Group("")
			bookingsAdmin.Use(auth, adminOnly)
			{
				bookingsAdmin.GET("", bookingHandler.ListBookings)
				bookingsAdmin.GET("/stats", bookingHandler.GetBookingStats)
				bookingsAdmin.PATCH("/:id/status", bookingHandler.UpdateBookingStatus)
				bookingsAdmin.DELETE("/:id", bookingHandler.DeleteBooking)
			}
		}

		// Payment routes
		payments := v1.Group("/payments")
		{
			payments.POST("/initialize", paymentHandler.InitializePayment)
			payments.GET("/verify/:reference", paymentHandler.VerifyPayment)
			payments.POST("/webhook", paymentHandler.HandleWebhook)

			paymentsAdmin := payments.Group("")
			paymentsAdmin.Use(auth, adminOnly)
			{
				paymentsAdmin.POST("/record", paymentHandler.RecordPayment)
				paymentsAdmin.GET("/stats", paymentHandler.GetStats)
			}
		}

		// Notification routes
		notifications := v1.Group("/notifications")
		notifications.Use(auth)
		{
			notifications.GET("", notificationHandler.ListMyNotifications)
			notifications.PATCH("/:id/read", notificationHandler.MarkNotificationRead)
		}

		// Promotion routes
		promotions := v1.Group("/promotions")
		{
			promotions.POST("/validate", promotionHandler.ValidatePromotion)

			promotionsAdmin := promotions.Group("")
			promotionsAdmin.Use(auth, adminOnly)
			{
				promotionsAdmin.POST("", promotionHandler.CreatePromotion)
				promotionsAdmin.GET("", promotionHandler.ListPromotions)
				promotionsAdmin.PATCH("/:id/active", promotionHandler.SetPromotionActive)
				promotionsAdmin.DELETE("/:id", promotionHandler.DeletePromotion)
			}
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
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

	if cache != nil {
		if err := cache.Close(); err != nil {
			logger.Errorf("Failed to close Redis client: %v", err)
		}
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
		} else {
			status := c.Writer.Status()
			if status >= 500 {
				entry.Error("Request completed with server error")
			} else if status >= 400 {
				entry.Warn("Request completed with client error")
			} else {
				entry.Info("Request completed successfully")
			}
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
