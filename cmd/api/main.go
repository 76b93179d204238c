package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"swapdeck/internal/aggregator"
	"swapdeck/internal/auth"
	"swapdeck/internal/config"
	"swapdeck/internal/metrics"
	"swapdeck/internal/models"
	"swapdeck/internal/order"
	"swapdeck/internal/portfolio"
	"swapdeck/internal/scheduler"
	"swapdeck/internal/security"
	"swapdeck/internal/strategy"
	"swapdeck/internal/swap"
	"swapdeck/internal/user"
	"swapdeck/internal/ws"
)

const defaultChainID = 1

func main() {
	cfg := config.Load()

	// Initialize logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	// Database connection
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Strategy{},
		&models.CrossChainOrder{},
		&models.LimitOrder{},
		&models.SecuritySettings{},
		&models.AuditLog{},
		&models.Token{},
	); err != nil {
		logrus.WithError(err).Fatal("Failed to run database migrations")
	}

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Warn("Failed to connect to Redis, price snapshots disabled")
		rdb = nil
	}

	// Upstream aggregator and hub
	agg := aggregator.NewClient(cfg.AggregatorBaseURL, cfg.AggregatorAPIKey)
	cache := aggregator.NewPriceCache(rdb)

	hub := ws.NewHub(agg, cache, scheduler.RealClock{}, defaultChainID, cfg.StaleAfter)
	wsServer := ws.NewServer(hub)

	pollCtx, stopPolling := context.WithCancel(ctx)
	poller := ws.NewPoller(hub, scheduler.RealClock{}, ws.PollerConfig{
		PriceInterval:     cfg.PricePollInterval,
		GasInterval:       cfg.GasPollInterval,
		HeartbeatInterval: cfg.HeartbeatInterval,
	})
	poller.RunAsync(pollCtx)

	// Sessions and middleware
	sessions := auth.NewSessionStore()

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(auth.SecurityHeaders())
	router.Use(auth.CORS())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
			"service":   "swapdeck-api",
		})
	})

	router.GET("/metrics", metrics.Handler())
	wsServer.RegisterRoutes(router)

	// API v1 routes
	v1 := router.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(auth.RequireAuth(sessions))
	{
		// User module initialization
		userRepo := user.NewRepository(db)
		userService := user.NewService(userRepo, sessions)
		userHandler := user.NewHandler(userService)
		userHandler.RegisterRoutes(v1, protected)

		// Swap module initialization
		swapService := swap.NewService(agg)
		swapHandler := swap.NewHandler(swapService)
		swapHandler.RegisterRoutes(v1)

		// Portfolio module initialization
		portfolioService := portfolio.NewService(agg, hub)
		portfolioHandler := portfolio.NewHandler(portfolioService)
		portfolioHandler.RegisterRoutes(v1)

		// Order module initialization
		orderRepo := order.NewRepository(db)
		orderService := order.NewService(orderRepo, hub)
		orderHandler := order.NewHandler(orderService)
		orderHandler.RegisterRoutes(protected)

		// Strategy module initialization
		strategyRepo := strategy.NewRepository(db)
		strategyService := strategy.NewService(strategyRepo, hub)
		strategyHandler := strategy.NewHandler(strategyService)
		strategyHandler.RegisterRoutes(protected)

		// Security module initialization
		securityRepo := security.NewRepository(db)
		securityService := security.NewService(securityRepo, logrus.StandardLogger())
		securityHandler := security.NewHandler(securityService)
		securityHandler.RegisterRoutes(protected)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithField("port", cfg.Port).Info("Starting swapdeck API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	stopPolling()
	wsServer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Fatal("Server forced to shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	if rdb != nil {
		rdb.Close()
	}

	logrus.Info("Server exited")
}
