package server

import (
	"fmt"
	"net/http"
	"testing"

	"projectboard/internal/models"
	"projectboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabels_MemberManagesCatalogue(t *testing.T) {
	t.Parallel()
	cb := newCardBoard(t)
	member := testutil.CreateUser(t, cb.env.db, "mo")
	testutil.AddMember(t, cb.env.db, cb.board, member, models.BoardRoleMember)
	token := sessionFor(t, member)

	var label models.Label
	require.Equal(t, http.StatusCreated, cb.env.do(t, http.MethodPost, "/api/labels", token,
		map[string]any{"name": "Bug", "color": "#ff0000"}, &label))
	assert.Equal(t, "Bug", label.Name)

	assert.Equal(t, http.StatusUnprocessableEntity, cb.env.do(t, http.MethodPost, "/api/labels", token,
		map[string]any{"name": "Bad", "color": "red"}, nil))

	var updated models.Label
	require.Equal(t, http.StatusOK, cb.env.do(t, http.MethodPut, fmt.Sprintf("/api/labels/%d", label.ID), token,
		map[string]any{"name": "Defect"}, &updated))
	assert.Equal(t, "Defect", updated.Name)
	assert.Nil(t, updated.Color)

	var labels []models.Label
	require.Equal(t, http.StatusOK, cb.env.do(t, http.MethodGet, "/api/labels", token, nil, &labels))
	require.Len(t, labels, 1)

	assert.Equal(t, http.StatusNoContent, cb.env.do(t, http.MethodDelete, fmt.Sprintf("/api/labels/%d", label.ID), token, nil, nil))
}

func TestLabels_RequireMembership(t *testing.T) {
	t.Parallel()
	cb := newCardBoard(t)
	loner := testutil.CreateUser(t, cb.env.db, "lone")
	viewer := testutil.CreateUser(t, cb.env.db, "vera")
	testutil.AddMember(t, cb.env.db, cb.board, viewer, models.BoardRoleViewer)

	assert.Equal(t, http.StatusForbidden, cb.env.do(t, http.MethodPost, "/api/labels", sessionFor(t, loner),
		map[string]any{"name": "Mine"}, nil))
	assert.Equal(t, http.StatusForbidden, cb.env.do(t, http.MethodPost, "/api/labels", sessionFor(t, viewer),
		map[string]any{"name": "Mine"}, nil))
}
