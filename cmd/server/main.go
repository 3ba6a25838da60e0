package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"pay-watch.backend/internal/config"
	"pay-watch.backend/internal/infrastructure/jobs"
	"pay-watch.backend/internal/infrastructure/repositories"
	"pay-watch.backend/internal/infrastructure/verification"
	"pay-watch.backend/internal/interfaces/http/handlers"
	"pay-watch.backend/internal/interfaces/http/middleware"
	"pay-watch.backend/internal/usecases"
	"pay-watch.backend/pkg/jwt"
	"pay-watch.backend/pkg/logger"
	"pay-watch.backend/pkg/redis"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	}
	runServer = func(r *gin.Engine, port string) error { return r.Run(":" + port) }
	getStdDB  = func(db *gorm.DB) (*sql.DB, error) { return db.DB() }
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	// Load .env file
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := loadCfg()

	// Initialize Logger
	initLog(cfg.Server.Env)
	logger.Info(context.Background(), "Logger initialized", zap.String("env", cfg.Server.Env))

	// Initialize Redis
	if err := initRedis(cfg.Redis.URL, cfg.Redis.Password); err != nil {
		logger.Error(context.Background(), "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	logger.Info(context.Background(), "Redis initialized")

	// Set Gin mode
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database using GORM
	dsn := cfg.Database.URL()
	db, err := openDB(dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := getStdDB(db)
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		log.Printf("⚠️ Database not available: %v (endpoints will return errors)", err)
	} else {
		log.Println("✅ Connected to PostgreSQL via GORM")
	}

	if len(cfg.Security.APIKeyHashes) == 0 {
		log.Println("⚠️ No API key hashes configured (API_KEY_HASHES); merchant endpoints will reject all callers")
	}

	// JWT service authenticating the verification oracle's webhook calls
	jwtService := jwt.NewJWTService(cfg.Webhook.JWTSecret, cfg.Webhook.TokenExpiry)

	// Initialize repositories
	paymentRequestRepo := repositories.NewPaymentRequestRepository(db)
	transactionRepo := repositories.NewTransactionRepository(db)
	uow := repositories.NewUnitOfWork(db)

	requestCache := redis.NewCache("payment_request:", cfg.Redis.RequestCacheTTL)

	// Verifier factory: one oracle client per chain
	verifiers := verification.NewFactory(verification.FactoryConfig{
		Mode:       cfg.Verifier.Mode,
		VerifyURL:  cfg.Verifier.URL,
		RPCURLs:    cfg.Verifier.RPCURLs,
		Currencies: cfg.Verifier.NativeCurrencies,
		Timeout:    cfg.Monitor.VerifyTimeout,
	})

	// Initialize usecases
	lifecycle := usecases.NewRequestLifecycleUsecase(paymentRequestRepo, requestCache)
	ledger := usecases.NewTransactionLedgerUsecase(transactionRepo, uow)

	monitor := jobs.NewPaymentMonitor(lifecycle, ledger, verifiers, jobs.MonitorConfig{
		PollInterval:      cfg.Monitor.PollInterval,
		VerifyTimeout:     cfg.Monitor.VerifyTimeout,
		ErrorLogThreshold: cfg.Monitor.ErrorLogThreshold,
	})
	lifecycle.AttachScheduler(monitor)

	webhookUsecase := usecases.NewWebhookUsecase(lifecycle, ledger, monitor)

	// Initialize handlers
	paymentRequestHandler := handlers.NewPaymentRequestHandler(lifecycle)
	transactionHandler := handlers.NewTransactionHandler(ledger)
	webhookHandler := handlers.NewWebhookHandler(webhookUsecase)

	// Start background jobs
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Re-arm monitoring for requests that were pending when the process
	// last stopped; overdue ones are expired in place.
	if pending, err := lifecycle.ListPendingRequests(ctx); err != nil {
		logger.Warn(ctx, "could not list pending requests for restore", zap.Error(err))
	} else {
		monitor.RestoreActive(ctx, pending)
	}

	sweep := jobs.NewExpirySweepJob(paymentRequestRepo, cfg.Monitor.SweepInterval)
	go sweep.Start(ctx)

	// Initialize router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	applyCORSMiddleware(r)
	registerHealthRoute(r)
	registerMetricsRoute(r)
	registerAPIV1Routes(r, routeDeps{
		paymentRequestHandler: paymentRequestHandler,
		transactionHandler:    transactionHandler,
		webhookHandler:        webhookHandler,
		apiKeyAuth:            middleware.APIKeyAuthMiddleware(cfg.Security.APIKeyHashes),
		serviceTokenAuth:      middleware.ServiceTokenMiddleware(jwtService),
	})

	// Print all registered routes for debugging
	log.Println("📋 Registered Routes:")
	for _, route := range r.Routes() {
		log.Printf("   %s %s", route.Method, route.Path)
	}

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("🛑 Shutting down server...")
		sweep.Stop()
		monitor.StopAll()
		cancel()
	}()

	// Start server
	log.Printf("🚀 Pay-Watch Backend starting on port %s", cfg.Server.Port)
	log.Printf("📚 API: http://localhost:%s/api/v1", cfg.Server.Port)
	log.Printf("❤️ Health: http://localhost:%s/health", cfg.Server.Port)

	if err := runServer(r, cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
