package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/luxurytech30-cpu/meiza-font/clients"
	"github.com/luxurytech30-cpu/meiza-font/config"
	"github.com/luxurytech30-cpu/meiza-font/controllers"
	"github.com/luxurytech30-cpu/meiza-font/database"
	apperrors "github.com/luxurytech30-cpu/meiza-font/errors"
	"github.com/luxurytech30-cpu/meiza-font/events"
	"github.com/luxurytech30-cpu/meiza-font/identity"
	"github.com/luxurytech30-cpu/meiza-font/logger"
	"github.com/luxurytech30-cpu/meiza-font/middleware"
	awspkg "github.com/luxurytech30-cpu/meiza-font/pkg/aws"
	"github.com/luxurytech30-cpu/meiza-font/routes"
	"github.com/luxurytech30-cpu/meiza-font/services"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	log := logger.Initialize(cfg.Env, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ledger controllers.OrderLedger
	registryCfg := services.RegistryConfig{
		TTL:           cfg.SessionTTL,
		ShippingPrice: cfg.ShippingPrice,
		Logger:        log,
	}

	// Cart snapshots (optional)
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		repo := database.NewSnapshotRepository(redisClient, cfg.CartSnapshotTTL)
		registryCfg.Cache = repo
		ledger = repo
		log.Info("Cart snapshots enabled", zap.Duration("ttl", cfg.CartSnapshotTTL))
	}

	// ── CloudWatch Metrics + SNS + Secrets Manager ──
	var metricsClient *awspkg.MetricsClient
	jwtSecret := cfg.JWTSecret
	if cfg.CloudWatchEnabled || cfg.OrderEventsTopicARN != "" || cfg.JWTSecretName != "" {
		awsCfg, err := awspkg.LoadAWSConfig(ctx)
		if err != nil {
			log.Warn("AWS config init failed", zap.Error(err))
		} else {
			if jwtSecret == "" && cfg.JWTSecretName != "" {
				v, err := awspkg.NewSecretsClient(awsCfg).GetSecret(ctx, cfg.JWTSecretName)
				if err != nil {
					log.Fatal("Failed to load JWT secret", zap.String("name", cfg.JWTSecretName), zap.Error(err))
				}
				jwtSecret = v
				log.Info("JWT secret loaded from Secrets Manager")
			}
			if cfg.CloudWatchEnabled {
				metricsClient = awspkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, true)
				registryCfg.Metrics = metricsClient
				log.Info("CloudWatch Metrics enabled", zap.String("namespace", cfg.CloudWatchNamespace))
			}
			if cfg.OrderEventsTopicARN != "" {
				registryCfg.Events = events.NewOrderEvents(awspkg.NewSNSClient(awsCfg), cfg.OrderEventsTopicARN, log)
				log.Info("Order events enabled", zap.String("topic", cfg.OrderEventsTopicARN))
			}
		}
	}

	sessions := services.NewSessionRegistry(registryCfg)
	go sessions.Run(ctx)

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	store := clients.NewStoreClient(cfg.StoreAPIURL, httpClient, identity.Static{})
	gateway := func(id identity.Provider) controllers.StoreGateway {
		return store.WithIdentity(id)
	}
	controller := controllers.NewStorefrontController(gateway, sessions, cfg.ShippingPrice)
	if ledger != nil {
		controller.WithOrderLedger(ledger, cfg.IdempotencyTTL)
	}

	limiter := middleware.NewPerMinuteLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Cleanup()
			}
		}
	}()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestID())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.MetricsMiddleware(metricsClient, "storefront-bff"))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderGuestID, controllers.HeaderIdempotencyKey, "Accept-Language"},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderGuestID, "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(apperrors.ErrorMiddleware())

	routes.RegisterRoutes(r, controller, jwtSecret, limiter)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info("Storefront BFF listening", zap.String("port", cfg.Port), zap.String("store_api", cfg.StoreAPIURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Shutdown error", zap.Error(err))
	}
}
