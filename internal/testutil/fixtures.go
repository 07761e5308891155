// Package testutil provides shared test databases and fixtures for backend tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"projectboard/internal/database"
	"projectboard/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Uint64

// NewTestDB opens a private in-memory sqlite database with the full schema.
// The pool is pinned to one connection so every query sees the same database.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// NewTestRedis starts a miniredis server and returns it with a connected client.
func NewTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func must(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
}

// CreateUser inserts a user with a unique email.
func CreateUser(t testing.TB, db *gorm.DB, name string, opts ...func(*models.User)) *models.User {
	t.Helper()

	u := &models.User{
		Name:  name,
		Email: fmt.Sprintf("%s.%d@example.test", name, seq.Add(1)),
	}
	for _, opt := range opts {
		opt(u)
	}
	must(t, db.Create(u).Error)
	return u
}

// AsAdmin marks a fixture user as a platform admin.
func AsAdmin(u *models.User) { u.IsAdmin = true }

// CreateBoard inserts a board and, when member is non-nil, a membership row with role.
func CreateBoard(t testing.TB, db *gorm.DB, name string, member *models.User, role models.BoardRole) *models.Board {
	t.Helper()

	b := &models.Board{Name: name}
	must(t, db.Create(b).Error)
	if member != nil {
		must(t, db.Create(&models.BoardMember{BoardID: b.ID, UserID: member.ID, Role: role}).Error)
	}
	return b
}

// AddMember attaches user to board with role.
func AddMember(t testing.TB, db *gorm.DB, board *models.Board, user *models.User, role models.BoardRole) {
	t.Helper()
	must(t, db.Create(&models.BoardMember{BoardID: board.ID, UserID: user.ID, Role: role}).Error)
}

// CreateColumn inserts a column at order.
func CreateColumn(t testing.TB, db *gorm.DB, board *models.Board, name string, order int) *models.Column {
	t.Helper()

	c := &models.Column{BoardID: board.ID, Name: name, Slug: fmt.Sprintf("col-%d", seq.Add(1)), Order: order}
	must(t, db.Create(c).Error)
	return c
}

// CreateCard inserts a card at order in column.
func CreateCard(t testing.TB, db *gorm.DB, column *models.Column, title string, order int, opts ...func(*models.Card)) *models.Card {
	t.Helper()

	c := &models.Card{ColumnID: column.ID, Title: title, Order: order}
	for _, opt := range opts {
		opt(c)
	}
	must(t, db.Create(c).Error)
	return c
}

// WithEstimate sets estimated and actual hours and costs on a fixture card.
func WithEstimate(hours, cost float64) func(*models.Card) {
	return func(c *models.Card) {
		c.EstimatedHours = &hours
		c.EstimatedCost = &cost
		c.ActualHours = &hours
		c.ActualCost = &cost
	}
}

// CreateLabel inserts a label.
func CreateLabel(t testing.TB, db *gorm.DB, name, color string) *models.Label {
	t.Helper()

	l := &models.Label{Name: name}
	if color != "" {
		l.Color = &color
	}
	must(t, db.Create(l).Error)
	return l
}
