package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"projectboard/internal/middleware"

	"gorm.io/gorm"
)

// ErrChecksumMismatch is returned when an applied migration's file was edited afterwards.
var ErrChecksumMismatch = errors.New("applied migration was modified")

// SchemaVersion is one row of the applied-migrations ledger.
type SchemaVersion struct {
	Version   int    `gorm:"primaryKey;autoIncrement:false"`
	Name      string `gorm:"size:255;not null"`
	Checksum  string `gorm:"size:64"`
	AppliedAt time.Time
}

func (SchemaVersion) TableName() string { return "schema_versions" }

// VersionStore persists the ledger. Record and Forget run the migration SQL and the
// ledger write in one transaction.
type VersionStore interface {
	Applied(ctx context.Context) ([]SchemaVersion, error)
	Record(ctx context.Context, m Migration) error
	Forget(ctx context.Context, m Migration) error
}

type gormVersionStore struct {
	db *gorm.DB
}

// NewVersionStore returns the gorm-backed ledger.
func NewVersionStore(db *gorm.DB) VersionStore {
	return &gormVersionStore{db: db}
}

func (s *gormVersionStore) Applied(ctx context.Context) ([]SchemaVersion, error) {
	if !s.db.Migrator().HasTable(&SchemaVersion{}) {
		return nil, nil
	}
	var rows []SchemaVersion
	if err := s.db.WithContext(ctx).Order("version").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read schema_versions: %w", err)
	}
	return rows, nil
}

func (s *gormVersionStore) Record(ctx context.Context, m Migration) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.Up).Error; err != nil {
			return fmt.Errorf("apply %s: %w", m.ID(), err)
		}
		row := SchemaVersion{Version: m.Version, Name: m.Name, Checksum: m.Checksum(), AppliedAt: time.Now().UTC()}
		return tx.Create(&row).Error
	})
}

func (s *gormVersionStore) Forget(ctx context.Context, m Migration) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.Down).Error; err != nil {
			return fmt.Errorf("revert %s: %w", m.ID(), err)
		}
		return tx.Delete(&SchemaVersion{}, "version = ?", m.Version).Error
	})
}

// Migrator applies the embedded migrations against one database.
type Migrator struct {
	db    *gorm.DB
	store VersionStore
	all   []Migration
}

// NewMigrator loads the embedded migrations.
func NewMigrator(db *gorm.DB) (*Migrator, error) {
	all, err := Migrations()
	if err != nil {
		return nil, err
	}
	return &Migrator{db: db, store: NewVersionStore(db), all: all}, nil
}

// Pending returns migrations not yet in the ledger, after checking the ledger
// against the embedded files.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := m.store.Applied(ctx)
	if err != nil {
		return nil, err
	}
	if err := reconcile(applied, m.all); err != nil {
		return nil, err
	}
	done := make(map[int]bool, len(applied))
	for _, row := range applied {
		done[row.Version] = true
	}
	var pending []Migration
	for _, mig := range m.all {
		if !done[mig.Version] {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

// Up applies every pending migration in order and returns the ones it ran.
func (m *Migrator) Up(ctx context.Context) ([]Migration, error) {
	if err := m.db.WithContext(ctx).AutoMigrate(&SchemaVersion{}); err != nil {
		return nil, fmt.Errorf("prepare schema_versions: %w", err)
	}
	pending, err := m.Pending(ctx)
	if err != nil {
		return nil, err
	}
	for i, mig := range pending {
		start := time.Now()
		if err := m.store.Record(ctx, mig); err != nil {
			return pending[:i], err
		}
		middleware.Logger.Info("Board schema migrated",
			slog.String("migration", mig.ID()),
			slog.Duration("took", time.Since(start)))
	}
	return pending, nil
}

// Down reverts one applied migration.
func (m *Migrator) Down(ctx context.Context, version int) error {
	i := slices.IndexFunc(m.all, func(mig Migration) bool { return mig.Version == version })
	if i < 0 {
		return fmt.Errorf("no migration with version %d", version)
	}
	applied, err := m.store.Applied(ctx)
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(applied, func(row SchemaVersion) bool { return row.Version == version }) {
		return fmt.Errorf("migration %s is not applied", m.all[i].ID())
	}
	if err := m.store.Forget(ctx, m.all[i]); err != nil {
		return err
	}
	middleware.Logger.Info("Board schema reverted", slog.String("migration", m.all[i].ID()))
	return nil
}

// reconcile rejects ledgers holding versions this build does not know or whose
// recorded checksum no longer matches the file.
func reconcile(applied []SchemaVersion, known []Migration) error {
	byVersion := make(map[int]Migration, len(known))
	for _, mig := range known {
		byVersion[mig.Version] = mig
	}
	var unknown []string
	for _, row := range applied {
		mig, ok := byVersion[row.Version]
		if !ok {
			unknown = append(unknown, fmt.Sprintf("%06d", row.Version))
			continue
		}
		if row.Checksum != "" && row.Checksum != mig.Checksum() {
			return fmt.Errorf("%w: %s", ErrChecksumMismatch, mig.ID())
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("schema_versions lists migrations missing from this build: %s (see boardctl migrate status)",
			strings.Join(unknown, ", "))
	}
	return nil
}
