//go:build integration

package server

import (
	"fmt"
	"net/http"
	"testing"

	"projectboard/internal/config"
	"projectboard/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// newIntegrationEnv runs against the database and Redis named by config.yml and the environment.
func newIntegrationEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	cfg.APIEnabled = true

	srv, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(srv.importer.Wait)
	return &testEnv{srv: srv, app: srv.NewApp(), db: srv.db}
}

func TestBoardFlowIntegration(t *testing.T) {
	env := newIntegrationEnv(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("TestPass123!@#"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		Name:     "flow " + uuid.NewString()[:8],
		Email:    fmt.Sprintf("flow_%s@example.com", uuid.NewString()[:10]),
		Password: string(hash),
		IsAdmin:  true,
	}
	require.NoError(t, env.db.Create(user).Error)

	var login struct {
		Token string `json:"token"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/auth/login", "",
		map[string]any{"email": user.Email, "password": "TestPass123!@#"}, &login))

	var board models.Board
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/boards", login.Token,
		map[string]any{"name": "Integration"}, &board))
	t.Cleanup(func() {
		env.do(t, http.MethodDelete, fmt.Sprintf("/api/boards/%d", board.ID), login.Token, nil, nil)
	})

	var todo, done models.Column
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, fmt.Sprintf("/api/boards/%d/columns", board.ID), login.Token,
		map[string]any{"name": "Todo"}, &todo))
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, fmt.Sprintf("/api/boards/%d/columns", board.ID), login.Token,
		map[string]any{"name": "Done"}, &done))
	assert.Greater(t, done.Order, todo.Order)

	var card models.Card
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, fmt.Sprintf("/api/columns/%d/cards", todo.ID), login.Token,
		map[string]any{"title": "Ship"}, &card))

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, fmt.Sprintf("/api/cards/%d/move", card.ID), login.Token,
		map[string]any{"board_column_id": done.ID, "order_column": 0}, nil))

	var activities []models.Activity
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, fmt.Sprintf("/api/cards/%d/activities", card.ID), login.Token, nil, &activities))
	require.NotEmpty(t, activities)
	assert.Equal(t, models.ActivityMoved, activities[0].Type)
}
