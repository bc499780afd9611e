package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	orderapp "github.com/valveaudio/backend/internal/application/order"
	paymentapp "github.com/valveaudio/backend/internal/application/payment"
	"github.com/valveaudio/backend/internal/infrastructure/auth"
	"github.com/valveaudio/backend/internal/infrastructure/cache"
	"github.com/valveaudio/backend/internal/infrastructure/config"
	"github.com/valveaudio/backend/internal/infrastructure/logger"
	"github.com/valveaudio/backend/internal/infrastructure/notify"
	"github.com/valveaudio/backend/internal/infrastructure/payment"
	"github.com/valveaudio/backend/internal/infrastructure/persistence"
	"github.com/valveaudio/backend/internal/infrastructure/scheduler"
	"github.com/valveaudio/backend/internal/infrastructure/storage"
	"github.com/valveaudio/backend/internal/interfaces/http/handler"
	"github.com/valveaudio/backend/internal/interfaces/http/middleware"
	"github.com/valveaudio/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port))

	// Database
	db, err := persistence.NewDatabaseWithZap(&cfg.Database, log, cfg.Log.Level)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	orderRepo := persistence.NewGormOrderRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	proofRepo := persistence.NewGormTransferProofRepository(db.DB)
	transactionRepo := persistence.NewGormPaymentTransactionRepository(db.DB)

	// Redis-backed state, or the in-process fallbacks when Redis is off
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
	}

	var tokenStore auth.TrackingTokenStore
	var trackLimiter middleware.Limiter
	if redisClient != nil {
		tokenStore = auth.NewRedisTrackingTokenStore(redisClient, cfg.Tracking.TokenTTL)
		trackLimiter = middleware.NewRedisLimiter(redisClient, "ratelimit:track",
			cfg.HTTP.TrackRateLimitRequests, cfg.HTTP.TrackRateLimitWindow)
	} else {
		tokenStore = auth.NewInMemoryTrackingTokenStore(cfg.Tracking.TokenTTL)
		trackLimiter = middleware.NewInMemoryLimiter(
			cfg.HTTP.TrackRateLimitRequests, cfg.HTTP.TrackRateLimitWindow)
	}
	defer tokenStore.Close()

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer idempotencyStore.Close()

	// Object storage for transfer proof images
	objectStorage, err := storage.NewS3ObjectStorage(&cfg.Storage,
		storage.WithLogger(log),
		storage.WithPresignExpiration(cfg.Storage.PresignExpiry))
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	// Outbound mail; an empty SMTP host silently drops sends
	var mailer orderapp.Mailer
	if cfg.SMTP.Host != "" {
		smtpMailer, err := notify.NewSMTPMailer(cfg.SMTP, log)
		if err != nil {
			log.Fatal("Failed to initialize mailer", zap.Error(err))
		}
		mailer = smtpMailer
	} else {
		log.Warn("SMTP host not configured, outbound mail disabled")
		mailer = notify.NewNoopMailer()
	}

	// Payment gateway
	gateway, err := payment.NewStripeGateway(&payment.StripeConfig{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		IsTestMode:    cfg.App.Env != "production",
		Currency:      "vnd",
		SuccessURL:    cfg.App.BaseURL + cfg.Stripe.SuccessPath,
		CancelURL:     cfg.App.BaseURL + cfg.Stripe.CancelPath,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize payment gateway", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT)

	// Application services
	trackingService := orderapp.NewTrackingService(orderRepo, tokenStore, log)
	lifecycleService := orderapp.NewLifecycleService(orderRepo, productRepo, tokenStore, mailer, log)
	checkoutService := orderapp.NewCheckoutService(orderRepo, productRepo, gateway, tokenStore, mailer, cfg.Deposit, log)
	expiryService := orderapp.NewExpiryService(orderRepo, productRepo, mailer, log)
	proofService := orderapp.NewProofService(orderRepo, proofRepo, objectStorage, tokenStore, mailer, log)
	refundService := orderapp.NewRefundService(orderRepo, gateway, log)
	webhookService := paymentapp.NewWebhookService(paymentapp.WebhookServiceConfig{
		Gateway:      gateway,
		Orders:       orderRepo,
		Transactions: transactionRepo,
		Idempotency:  idempotencyStore,
		Logger:       log,
	})

	// In-process sweep scheduler; zero interval leaves expiry to the
	// external cron endpoint
	var sweepScheduler *scheduler.DepositSweepScheduler
	if cfg.Deposit.SweepInterval > 0 {
		sweepScheduler = scheduler.NewDepositSweepScheduler(scheduler.DepositSweepSchedulerConfig{
			Interval: cfg.Deposit.SweepInterval,
		}, expiryService, log)
		if err := sweepScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start deposit sweep scheduler", zap.Error(err))
		}
	}

	// HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxy configuration", zap.Error(err))
	}
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.CORS(cfg.HTTP),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	sessionAuth := middleware.Auth(jwtService)

	r := router.NewRouter(engine)
	r.RegisterRoot(handler.NewHealthHandler(db, cfg.App.Name, cfg.App.Env))
	r.RegisterRoot(handler.NewStripeWebhookHandler(webhookService))
	r.Register(handler.NewCheckoutHandler(checkoutService))
	r.Register(handler.NewTrackingHandler(trackingService, lifecycleService,
		middleware.RateLimit(trackLimiter), sessionAuth))
	r.Register(handler.NewProofHandler(proofService))
	r.Register(handler.NewAuthHandler(jwtService, cfg.Admin))
	r.Register(handler.NewAdminOrderHandler(lifecycleService, refundService, proofService,
		sessionAuth, middleware.RequireAdmin()))
	r.Register(handler.NewCronHandler(expiryService, middleware.CronAuth(cfg.Cron.Secret)))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	log.Info("Server listening", zap.String("addr", srv.Addr))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sweepScheduler != nil {
		if err := sweepScheduler.Stop(shutdownCtx); err != nil {
			log.Warn("Sweep scheduler did not stop cleanly", zap.Error(err))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shut down", zap.Error(err))
	}

	log.Info("Server stopped")
}
