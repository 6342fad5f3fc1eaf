package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"antevus.backend/internal/config"
	"antevus.backend/internal/domain/entities"
	"antevus.backend/internal/infrastructure/repositories"
	"antevus.backend/internal/usecases"
	"antevus.backend/pkg/audit"
)

var openAPIKeyDB = func(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}), &gorm.Config{PrepareStmt: false})
}

var openAPIKeySQLDB = func(db *gorm.DB) (io.Closer, error) {
	return db.DB()
}

type apiKeyIssuer interface {
	CreateApiKey(ctx context.Context, userID uuid.UUID, input *entities.CreateApiKeyInput) (*entities.CreateApiKeyResponse, error)
}

type apiKeyAdminDeps struct {
	loadEnv func() error
	loadCfg func() *config.Config
	prepare func(cfg *config.Config) (apiKeyIssuer, io.Closer, error)
	now     func() time.Time
	out     io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func defaultAPIKeyAdminDeps() apiKeyAdminDeps {
	return apiKeyAdminDeps{
		loadEnv: func() error { return godotenv.Load() },
		loadCfg: config.Load,
		prepare: func(cfg *config.Config) (apiKeyIssuer, io.Closer, error) {
			db, err := openAPIKeyDB(cfg.Database.URL())
			if err != nil {
				return nil, nil, fmt.Errorf("failed to connect db: %w", err)
			}

			sqlDB, err := openAPIKeySQLDB(db)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to init sql db: %w", err)
			}

			apiKeyRepo := repositories.NewApiKeyRepository(db)
			return usecases.NewApiKeyUsecase(apiKeyRepo, audit.ZapSink{}, cfg.Security.KeyEnvTag), sqlDB, nil
		},
		now: time.Now,
		out: os.Stdout,
	}
}

func parseUserID(userID string) (uuid.UUID, error) {
	if userID == "" {
		return uuid.Nil, fmt.Errorf("--user-id is required")
	}
	return uuid.Parse(userID)
}

func resolveKeyName(input string, now time.Time) string {
	if input != "" {
		return input
	}
	return fmt.Sprintf("admin-issued-%s", now.Format("20060102-150405"))
}

func runAPIKeyAdmin(args []string, deps apiKeyAdminDeps) error {
	if deps.loadEnv == nil {
		deps.loadEnv = func() error { return godotenv.Load() }
	}
	if deps.loadCfg == nil {
		deps.loadCfg = config.Load
	}
	if deps.now == nil {
		deps.now = time.Now
	}
	if deps.prepare == nil {
		def := defaultAPIKeyAdminDeps()
		deps.prepare = def.prepare
	}
	if deps.out == nil {
		deps.out = os.Stdout
	}

	fs := flag.NewFlagSet("apikey-admin", flag.ContinueOnError)
	userIDFlag := fs.String("user-id", "", "target user UUID (required)")
	nameFlag := fs.String("name", "", "api key display name (optional)")
	expiresFlag := fs.String("expires-in", "30d", "expiry policy: never, 7d, 30d, 90d, 1y")
	if err := fs.Parse(args); err != nil {
		return err
	}

	userID, err := parseUserID(*userIDFlag)
	if err != nil {
		return err
	}

	if err := deps.loadEnv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := deps.loadCfg()
	issuer, closer, err := deps.prepare(cfg)
	if err != nil {
		return err
	}
	if closer == nil {
		closer = nopCloser{}
	}
	defer closer.Close()

	resp, err := issuer.CreateApiKey(context.Background(), userID, &entities.CreateApiKeyInput{
		Name:        resolveKeyName(*nameFlag, deps.now()),
		Permissions: []string{"*"},
		ExpiresIn:   *expiresFlag,
	})
	if err != nil {
		return fmt.Errorf("failed creating api key: %w", err)
	}

	// The plaintext key prints once and is never recoverable afterwards.
	_, _ = fmt.Fprintln(deps.out, "Created API key")
	_, _ = fmt.Fprintf(deps.out, "user_id=%s\n", userID.String())
	_, _ = fmt.Fprintf(deps.out, "api_key_id=%s\n", resp.ID.String())
	_, _ = fmt.Fprintf(deps.out, "name=%s\n", resp.Name)
	_, _ = fmt.Fprintf(deps.out, "key_prefix=%s\n", resp.KeyPrefix)
	if resp.ExpiresAt != nil {
		_, _ = fmt.Fprintf(deps.out, "expires_at=%s\n", resp.ExpiresAt.Format(time.RFC3339))
	}
	_, _ = fmt.Fprintf(deps.out, "API_KEY=%s\n", resp.ApiKey)
	return nil
}

func main() {
	if err := runAPIKeyAdmin(os.Args[1:], defaultAPIKeyAdminDeps()); err != nil {
		log.Fatal(err)
	}
}
