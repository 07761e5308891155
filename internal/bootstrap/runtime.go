// Package bootstrap connects the runtime dependencies shared by the server and the CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"projectboard/internal/cache"
	"projectboard/internal/config"
	"projectboard/internal/database"
	"projectboard/internal/middleware"
	"projectboard/internal/models"
	"projectboard/internal/observability"
	"projectboard/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options select the startup steps beyond connecting.
type Options struct {
	// ApplySchema brings the schema up to date on connect.
	ApplySchema bool
	// SeedLabels installs the built-in label catalogue.
	SeedLabels bool
}

// Runtime is the connected database and the optional Redis client.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// Start configures logging for cfg, opens the database and Redis, creates the
// development root admin when enabled and seeds labels when asked. Runtime.Redis
// is nil when Redis is unreachable.
func Start(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	middleware.Logger = middleware.NewLogger(cfg.Env, os.Stdout)
	observability.SetLogger(middleware.Logger)
	observability.EnableWriteAudit(cfg.RepoLogging)

	db, err := database.Open(ctx, cfg, database.OpenOptions{ApplySchema: opts.ApplySchema})
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	rt := &Runtime{DB: db, Redis: cache.InitRedis(cfg.RedisURL)}

	// Without ApplySchema the tables may not exist yet (migration commands).
	if opts.ApplySchema {
		if err := EnsureDevRootAdmin(cfg, db); err != nil {
			return nil, fmt.Errorf("development root admin: %w", err)
		}
	}
	if opts.SeedLabels {
		if _, err := seed.Labels(db); err != nil {
			return nil, fmt.Errorf("built-in labels: %w", err)
		}
	}
	return rt, nil
}

// EnsureDevRootAdmin creates or promotes the development root account when
// DEV_BOOTSTRAP_ROOT is enabled. It never runs outside development.
func EnsureDevRootAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	name := strings.TrimSpace(cfg.DevRootName)
	if name == "" {
		name = "Board Admin"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "admin@projectboard.local"
	}
	if cfg.DevRootPassword == "" {
		return errors.New("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.DevRootPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.Where("email = ?", email).First(&root).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				Name:     name,
				Email:    email,
				Password: string(hashed),
				IsAdmin:  true,
			}
			return tx.Create(&root).Error
		case findErr != nil:
			return findErr
		}
		return tx.Model(&models.User{}).Where("id = ?", root.ID).
			Updates(map[string]any{"is_admin": true, "password": string(hashed)}).Error
	})
	if err != nil {
		return err
	}

	middleware.Logger.Info("development root admin ensured", slog.String("email", email))
	return nil
}
