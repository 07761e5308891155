package service

import (
	"bytes"
	"strings"
	"testing"

	"projectboard/internal/models"
	"projectboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sprintTemplate = `
name: Sprint
background_color: "#0079bf"
columns:
  - name: To do
    cards:
      - title: Plan the sprint
        estimated_hours: 2
      - title: Groom backlog
  - name: Done
`

func TestParseTemplate(t *testing.T) {
	t.Parallel()

	tpl, err := ParseTemplate(strings.NewReader(sprintTemplate))
	require.NoError(t, err)
	assert.Equal(t, "Sprint", tpl.Name)
	require.Len(t, tpl.Columns, 2)
	require.Len(t, tpl.Columns[0].Cards, 2)
	require.NotNil(t, tpl.Columns[0].Cards[0].EstimatedHours)

	cases := map[string]string{
		"empty":          "",
		"unknown key":    "name: x\ncolour: red\ncolumns: [{name: a}]\n",
		"missing name":   "columns: [{name: a}]\n",
		"no columns":     "name: x\n",
		"malformed yaml": "name: [",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseTemplate(strings.NewReader(raw))
			requireCode(t, err, models.CodeValidation)
		})
	}
}

func TestBoardService_TemplateRoundTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	user := testutil.CreateUser(t, f.db, "ada")
	boards := NewBoardService(f.core, NewBoardAggregator(f.core), nil)

	tpl, err := ParseTemplate(strings.NewReader(sprintTemplate))
	require.NoError(t, err)
	board, err := boards.ApplyTemplate(f.ctx, user, tpl, "Sprint 42", nil)
	require.NoError(t, err)
	assert.Equal(t, "Sprint 42", board.Name)

	view, err := boards.Get(f.ctx, user, board.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BoardRoleAdmin, view.UserRole)
	require.Len(t, view.Columns, 2)
	require.Len(t, view.Columns[0].Cards, 2)
	assert.Equal(t, "Plan the sprint", view.Columns[0].Cards[0].Title)
	assert.InDelta(t, 2.0, view.Totals.EstimatedHours, 0.001)

	out, err := boards.ExportTemplate(f.ctx, user, board.ID)
	require.NoError(t, err)
	again, err := ParseTemplate(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "Sprint 42", again.Name)
	require.Len(t, again.Columns, 2)
	assert.Len(t, again.Columns[0].Cards, 2)
	assert.Empty(t, again.Columns[1].Cards)
}
