package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"projectboard/internal/config"
	"projectboard/internal/middleware"

	"gorm.io/gorm"
)

// SchemaMode selects how the board schema is kept up to date.
type SchemaMode string

const (
	SchemaModeHybrid SchemaMode = "hybrid"
	SchemaModeSQL    SchemaMode = "sql"
	SchemaModeAuto   SchemaMode = "auto"
)

// SchemaPlan is what ApplySchema will do for a given configuration.
type SchemaPlan struct {
	Mode   SchemaMode
	Env    string
	Driver string
	SQL    bool
	Auto   bool
}

// SchemaReport is the plan plus the migration ledger, for boardctl migrate status.
type SchemaReport struct {
	Plan    SchemaPlan
	Applied []SchemaVersion
	Pending []Migration
}

func protectedEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

// PlanSchema resolves DB_SCHEMA_MODE against the driver and environment. The SQL
// migrations target postgres; sqlite databases are always built by AutoMigrate and
// never allowed in protected environments.
func PlanSchema(cfg *config.Config) (SchemaPlan, error) {
	plan := SchemaPlan{Mode: SchemaMode(strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))), Env: cfg.Env, Driver: cfg.DBDriver}
	if plan.Mode == "" {
		plan.Mode = SchemaModeHybrid
	}
	guarded := protectedEnv(cfg.Env)

	if cfg.DBDriver == "sqlite" {
		if guarded {
			return plan, fmt.Errorf("sqlite boards are not allowed in %q", cfg.Env)
		}
		plan.Auto = true
		return plan, nil
	}

	switch plan.Mode {
	case SchemaModeSQL:
		plan.SQL = true
	case SchemaModeAuto:
		if guarded {
			return plan, fmt.Errorf("DB_SCHEMA_MODE=auto is not allowed in %q", cfg.Env)
		}
		plan.Auto = true
	case SchemaModeHybrid:
		plan.SQL, plan.Auto = true, !guarded
	default:
		return plan, fmt.Errorf("unknown DB_SCHEMA_MODE %q", plan.Mode)
	}
	return plan, nil
}

// AutoMigrate syncs every board table from the models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema runs the SQL migrations and then AutoMigrate, as the plan allows.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return err
	}
	if plan.SQL {
		migrator, err := NewMigrator(db)
		if err != nil {
			return err
		}
		if _, err := migrator.Up(ctx); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
	}
	if plan.Auto {
		middleware.Logger.Info("Syncing board tables from models",
			slog.String("mode", string(plan.Mode)),
			slog.String("driver", plan.Driver))
		if err := AutoMigrate(db); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return nil
}

// InspectSchema reports the plan and, when SQL migrations are in play, the ledger.
func InspectSchema(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaReport, error) {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return nil, err
	}
	report := &SchemaReport{Plan: plan}
	if !plan.SQL {
		return report, nil
	}

	migrator, err := NewMigrator(db)
	if err != nil {
		return nil, err
	}
	if report.Applied, err = migrator.store.Applied(ctx); err != nil {
		return nil, err
	}
	if report.Pending, err = migrator.Pending(ctx); err != nil {
		return nil, err
	}
	return report, nil
}
