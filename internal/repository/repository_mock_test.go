package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"projectboard/internal/access"
	"projectboard/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestUserRepository_FindByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name         string
		userID       uint
		mockBehavior func()
		wantName     string
		wantCode     string
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "name", "email"}).AddRow(1, "ada", "ada@example.test")
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(1, 1).
					WillReturnRows(rows)
			},
			wantName: "ada",
		},
		{
			name:   "Not Found",
			userID: 99,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1`)).
					WithArgs(99, 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
			wantCode: models.CodeNotFound,
		},
		{
			name:   "Database Error",
			userID: 2,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1`)).
					WithArgs(2, 1).
					WillReturnError(errors.New("connection timeout"))
			},
			wantCode: models.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.FindByID(ctx, tt.userID)

			if tt.wantCode != "" {
				assert.True(t, models.HasCode(err, tt.wantCode), "got %v", err)
				assert.Nil(t, user)
			} else if assert.NoError(t, err) {
				assert.Equal(t, tt.wantName, user.Name)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTokenRepository_FindByHash_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTokenRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "user_api_tokens" WHERE token_hash = $1`)).
		WithArgs("abc", 1).
		WillReturnError(gorm.ErrRecordNotFound)

	token, err := repo.FindByHash(context.Background(), "abc")
	assert.Nil(t, token)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepository_TouchLastUsed(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTokenRepository(db)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "user_api_tokens" SET "last_used_at"=$1 WHERE id = $2`)).
		WithArgs(at, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.TouchLastUsed(context.Background(), 7, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepository_Create_UniqueViolation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewMemberRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "board_members"`)).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.BoardMember{BoardID: 1, UserID: 2, Role: models.BoardRoleMember})
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeConflict))
	assert.Contains(t, err.Error(), "already a member")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchRepository_CardsQueryShape(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSearchRepository(db)

	mock.ExpectQuery(`SELECT cards\.id, cards\.title, .* FROM cards JOIN board_columns ON board_columns\.id = cards\.board_column_id JOIN boards ON boards\.id = board_columns\.board_id WHERE cards\.deleted_at IS NULL AND board_columns\.deleted_at IS NULL AND board_columns\.board_id IN \(\$1,\$2\) AND \(LOWER\(cards\.title\) LIKE \$3 OR LOWER\(cards\.description\) LIKE \$4 OR EXISTS \( ?SELECT 1 FROM card_labels .*\)\) ORDER BY cards\.updated_at DESC, cards\.id DESC LIMIT 50`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "column_id", "board_id", "board_name"}).
			AddRow(3, "Fix login", 10, 1, "Platform"))

	hits, err := repo.Cards(context.Background(), SearchFilter{
		Query: "Login",
		Scope: access.Scope{BoardIDs: []uint{1, 2}},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Fix login", hits[0].Title)
	assert.Equal(t, "Platform", hits[0].BoardName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchRepository_EmptyScopeSkipsQuery(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSearchRepository(db)

	hits, err := repo.Comments(context.Background(), SearchFilter{Query: "x"})
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: card_appearances.board_column_id")))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}
