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

	"antevus.backend/internal/config"
	"antevus.backend/internal/infrastructure/jobs"
	"antevus.backend/internal/infrastructure/repositories"
	"antevus.backend/internal/interfaces/http/handlers"
	"antevus.backend/internal/interfaces/http/middleware"
	"antevus.backend/internal/security/csrf"
	"antevus.backend/internal/security/vault"
	"antevus.backend/internal/usecases"
	"antevus.backend/pkg/audit"
	"antevus.backend/pkg/jwt"
	"antevus.backend/pkg/logger"
	"antevus.backend/pkg/redis"
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
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env)
	logger.Info(context.Background(), "Logger initialized", zap.String("env", cfg.Server.Env))

	if err := initRedis(cfg.Redis.URL, cfg.Redis.Password); err != nil {
		// Rate limiting fails open without Redis; everything else still works.
		logger.Warn(context.Background(), "Redis unavailable, per-key rate limits disabled", zap.Error(err))
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg.Database.URL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := getStdDB(db)
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		logger.Warn(context.Background(), "Database not available, endpoints will return errors", zap.Error(err))
	}

	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.Issuer,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)

	auditSink := audit.ZapSink{}

	apiKeyRepo := repositories.NewApiKeyRepository(db)
	apiKeyUsecase := usecases.NewApiKeyUsecase(apiKeyRepo, auditSink, cfg.Security.KeyEnvTag)

	csrfManager := csrf.NewManager(cfg.Security.CSRFTokenTTL, auditSink)
	sessionVault := vault.New(cfg.Security.SessionMaxThreads, cfg.Security.SessionExpiration, auditSink)
	rateLimiter := redis.NewRateLimiter(cfg.Security.RateLimitWindow)

	apiKeyHandler := handlers.NewApiKeyHandler(apiKeyUsecase)
	csrfHandler := handlers.NewCSRFHandler(csrfManager, cfg.Security.CSRFTokenTTL)
	sessionHandler := handlers.NewSessionHandler(sessionVault)

	dualAuthMiddleware := middleware.DualAuthMiddleware(jwtService, apiKeyUsecase, rateLimiter)
	csrfMiddleware := middleware.CSRFMiddleware(csrfManager)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	keyExpiryJob := jobs.NewApiKeyExpiryJob(apiKeyUsecase, cfg.Security.KeySweepInterval)
	go keyExpiryJob.Start(ctx)

	sessionExpiryJob := jobs.NewSessionExpiryJob(sessionVault, cfg.Security.SessionSweepInterval)
	go sessionExpiryJob.Start(ctx)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	applyCORSMiddleware(r)
	registerHealthRoute(r)
	registerMetricsRoute(r)
	registerAPIV1Routes(r, routeDeps{
		apiKeyHandler:      apiKeyHandler,
		csrfHandler:        csrfHandler,
		sessionHandler:     sessionHandler,
		dualAuthMiddleware: dualAuthMiddleware,
		csrfMiddleware:     csrfMiddleware,
	})

	// On shutdown the vault is wiped before the process exits; session
	// payloads never outlive the server.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info(context.Background(), "Shutting down server")
		keyExpiryJob.Stop()
		sessionExpiryJob.Stop()
		cleared := sessionVault.ClearAll(context.Background())
		logger.Info(context.Background(), "Session vault cleared", zap.Int("sessions", cleared))
		cancel()
	}()

	logger.Info(context.Background(), "Server starting", zap.String("port", cfg.Server.Port))

	if err := runServer(r, cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
