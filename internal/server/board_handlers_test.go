package server

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"projectboard/internal/models"
	"projectboard/internal/service"
	"projectboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestCreateBoard_CreatorBecomesAdmin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "dana")
	token := sessionFor(t, user)

	var board models.Board
	status := env.do(t, http.MethodPost, "/api/boards", token, map[string]any{"name": "  Roadmap  "}, &board)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Roadmap", board.Name)

	var view service.BoardView
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, fmt.Sprintf("/api/boards/%d", board.ID), token, nil, &view))
	assert.Equal(t, models.BoardRoleAdmin, view.UserRole)
	require.Len(t, view.Members, 1)
	assert.Equal(t, user.ID, view.Members[0].UserID)
}

func TestCreateBoard_Validation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token := sessionFor(t, testutil.CreateUser(t, env.db, "erin"))

	var body models.ErrorResponse
	status := env.do(t, http.MethodPost, "/api/boards", token, map[string]any{"name": ""}, &body)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, models.CodeValidation, body.Code)

	status = env.do(t, http.MethodPost, "/api/boards", token,
		map[string]any{"name": "Owned", "boardable_type": "spaceship", "boardable_id": 1}, &body)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestCreateBoard_WithUserOwner(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "finn")
	token := sessionFor(t, user)

	var board models.Board
	status := env.do(t, http.MethodPost, "/api/boards", token,
		map[string]any{"name": "Personal", "boardable_type": "user", "boardable_id": fmt.Sprint(user.ID)}, &board)
	require.Equal(t, http.StatusCreated, status)
	require.NotNil(t, board.BoardableID)
	assert.Equal(t, user.ID, *board.BoardableID)

	var index service.BoardIndex
	path := fmt.Sprintf("/api/boards?boardable_type=user&boardable_id=%d", user.ID)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, path, token, nil, &index))
	require.Len(t, index.Boards, 1)
	assert.Equal(t, board.ID, index.Boards[0].ID)
}

func TestGetBoard_AccessControl(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "gail")
	stranger := testutil.CreateUser(t, env.db, "hank")
	admin := testutil.CreateUser(t, env.db, "root", testutil.AsAdmin)
	board := testutil.CreateBoard(t, env.db, "Private", owner, models.BoardRoleAdmin)
	path := fmt.Sprintf("/api/boards/%d", board.ID)

	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, path, sessionFor(t, stranger), nil, nil))
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/boards/9999", sessionFor(t, owner), nil, nil))

	var view service.BoardView
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, path, sessionFor(t, admin), nil, &view))
	assert.Equal(t, models.BoardRoleAdmin, view.UserRole)
}

func TestGetBoard_TotalsCountHomeCardsOnce(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "iris")
	board := testutil.CreateBoard(t, env.db, "Sums", user, models.BoardRoleAdmin)
	todo := testutil.CreateColumn(t, env.db, board, "Todo", 0)
	done := testutil.CreateColumn(t, env.db, board, "Done", 1)
	card := testutil.CreateCard(t, env.db, todo, "Build", 0, testutil.WithEstimate(3, 30))
	testutil.CreateCard(t, env.db, todo, "Ship", 1, testutil.WithEstimate(2, 20))
	token := sessionFor(t, user)

	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost,
		fmt.Sprintf("/api/cards/%d/mirror", card.ID), token, map[string]any{"column_id": done.ID}, nil))

	var view service.BoardView
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, fmt.Sprintf("/api/boards/%d", board.ID), token, nil, &view))
	assert.InDelta(t, 5.0, view.Totals.EstimatedHours, 0.001)
	assert.InDelta(t, 50.0, view.Totals.EstimatedCost, 0.001)
	require.Len(t, view.Columns, 2)
	require.Len(t, view.Columns[1].Cards, 1)
	assert.True(t, view.Columns[1].Cards[0].IsMirror)
}

func TestUpdateBoard_RequiresAdmin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "jack")
	viewer := testutil.CreateUser(t, env.db, "kate")
	board := testutil.CreateBoard(t, env.db, "Team", owner, models.BoardRoleAdmin)
	testutil.AddMember(t, env.db, board, viewer, models.BoardRoleViewer)
	path := fmt.Sprintf("/api/boards/%d", board.ID)

	var body models.ErrorResponse
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPut, path, sessionFor(t, viewer), map[string]any{"name": "Mine"}, &body))
	assert.Equal(t, models.CodeForbidden, body.Code)

	var updated models.Board
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, path, sessionFor(t, owner), map[string]any{"name": "Ours"}, &updated))
	assert.Equal(t, "Ours", updated.Name)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, path, sessionFor(t, owner), nil, nil))
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, path, sessionFor(t, owner), nil, nil))
}

func TestBoardMembers(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "liam")
	other := testutil.CreateUser(t, env.db, "mona")
	board := testutil.CreateBoard(t, env.db, "Crew", owner, models.BoardRoleAdmin)
	token := sessionFor(t, owner)
	base := fmt.Sprintf("/api/boards/%d/members", board.ID)

	assert.Equal(t, http.StatusUnprocessableEntity, env.do(t, http.MethodPost, base, token, map[string]any{"role": "member"}, nil))
	assert.Equal(t, http.StatusUnprocessableEntity, env.do(t, http.MethodPost, base, token,
		map[string]any{"user_id": other.ID, "role": "owner"}, nil))

	var member models.BoardMember
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, base, token, map[string]any{"user_id": other.ID}, &member))
	assert.Equal(t, models.BoardRoleMember, member.Role)

	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPost, base, token,
		map[string]any{"user_id": other.ID, "role": "viewer"}, nil))

	memberPath := fmt.Sprintf("%s/%d", base, other.ID)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, memberPath, token, map[string]any{"role": "admin"}, nil))

	var list struct {
		Members []service.MemberView `json:"members"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, base, token, nil, &list))
	require.Len(t, list.Members, 2)
	roles := map[uint]models.BoardRole{}
	for _, m := range list.Members {
		roles[m.UserID] = m.Role
	}
	assert.Equal(t, models.BoardRoleAdmin, roles[other.ID])

	require.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, memberPath, token, nil, nil))
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, fmt.Sprintf("/api/boards/%d", board.ID), sessionFor(t, other), nil, nil))
}

func TestArchivedItems(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "nina")
	board := testutil.CreateBoard(t, env.db, "Old", user, models.BoardRoleAdmin)
	column := testutil.CreateColumn(t, env.db, board, "Todo", 0)
	card := testutil.CreateCard(t, env.db, column, "Stale", 0)
	token := sessionFor(t, user)

	require.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, fmt.Sprintf("/api/cards/%d", card.ID), token, nil, nil))

	var archived service.ArchivedItems
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, fmt.Sprintf("/api/boards/%d/archived", board.ID), token, nil, &archived))
	require.Len(t, archived.Cards, 1)
	assert.Equal(t, card.ID, archived.Cards[0].ID)
}

func TestExportBoardTemplate(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "otto")
	board := testutil.CreateBoard(t, env.db, "Sprint", user, models.BoardRoleAdmin)
	column := testutil.CreateColumn(t, env.db, board, "Backlog", 0)
	testutil.CreateCard(t, env.db, column, "Spec it", 0)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/boards/%d/template", board.ID), nil)
	req.Header.Set("Authorization", "Bearer "+sessionFor(t, user))
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "yaml")
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var tpl service.BoardTemplate
	require.NoError(t, yaml.Unmarshal(raw, &tpl))
	require.Len(t, tpl.Columns, 1)
	assert.Equal(t, "Backlog", tpl.Columns[0].Name)
	require.Len(t, tpl.Columns[0].Cards, 1)
	assert.Equal(t, "Spec it", tpl.Columns[0].Cards[0].Title)
}
