package server

import (
	"net/http"
	"strconv"
	"testing"

	"projectboard/internal/models"
	"projectboard/internal/service"
	"projectboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers_SearchAndList(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	me := testutil.CreateUser(t, env.db, "ada")
	testutil.CreateUser(t, env.db, "adrian")
	zed := testutil.CreateUser(t, env.db, "zed")
	token := sessionFor(t, me)

	var found []models.User
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/users/search?q=AD", token, nil, &found))
	assert.Len(t, found, 2)

	var none []models.User
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/users/search?q=", token, nil, &none))
	assert.Empty(t, none)

	var page []models.User
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/users?limit=2", token, nil, &page))
	assert.Len(t, page, 2)

	var one models.User
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/users/"+strconv.FormatUint(uint64(zed.ID), 10), token, nil, &one))
	assert.Equal(t, zed.Email, one.Email)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/users/99999", token, nil, nil))
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/users/zero", token, nil, nil))
}

func TestGlobalSearch(t *testing.T) {
	t.Parallel()
	cb := newCardBoard(t)
	testutil.CreateCard(t, cb.env.db, cb.todo, "Invoice export", 0)

	stranger := testutil.CreateUser(t, cb.env.db, "stranger")
	hidden := testutil.CreateBoard(t, cb.env.db, "Private", stranger, models.BoardRoleAdmin)
	testutil.CreateCard(t, cb.env.db, testutil.CreateColumn(t, cb.env.db, hidden, "Col", 0), "Invoice secrets", 0)

	var out struct {
		Results []service.SearchResult `json:"results"`
	}
	require.Equal(t, http.StatusOK, cb.env.do(t, http.MethodGet, "/api/search?q=invoice", cb.token, nil, &out))
	require.Len(t, out.Results, 1)
	assert.Equal(t, "card", out.Results[0].Type)
	assert.Equal(t, "Invoice export", out.Results[0].Title)
	assert.Equal(t, cb.board.ID, out.Results[0].BoardID)

	out.Results = nil
	require.Equal(t, http.StatusOK, cb.env.do(t, http.MethodGet, "/api/search?q=i", cb.token, nil, &out))
	assert.Empty(t, out.Results)
}
