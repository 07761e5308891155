package service

import (
	"testing"

	"projectboard/internal/models"
	"projectboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkService_UpdateReportsPerItem(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	user := testutil.CreateUser(t, f.db, "ada")
	board := testutil.CreateBoard(t, f.db, "Ops", user, models.BoardRoleMember)
	foreign := testutil.CreateBoard(t, f.db, "Foreign", user, models.BoardRoleMember)
	todo := testutil.CreateColumn(t, f.db, board, "Todo", 0)
	done := testutil.CreateColumn(t, f.db, board, "Done", 1)
	away := testutil.CreateColumn(t, f.db, foreign, "Away", 0)
	c1 := testutil.CreateCard(t, f.db, todo, "One", 0)
	c2 := testutil.CreateCard(t, f.db, todo, "Two", 1)
	c3 := testutil.CreateCard(t, f.db, todo, "Three", 2)
	label := testutil.CreateLabel(t, f.db, "Hot", "")
	_, err := f.core.Engine.AddMirror(f.ctx, f.core.Store, c3, done, nil)
	require.NoError(t, err)

	res, err := NewBulkService(f.core, 0).Update(f.ctx, user, board.ID, []BulkUpdateItem{
		{ID: c1.ID, UpdateCardInput: UpdateCardInput{Title: Some("One!")}, Labels: []uint{label.ID}},
		{ID: c2.ID, UpdateCardInput: UpdateCardInput{Title: Some("Ignored")}, ColumnID: &away.ID},
		{ID: c3.ID, ColumnID: &done.ID},
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "2 cards updated, 1 failed", res.Message)
	require.Len(t, res.Results, 2)
	assert.Equal(t, c1.ID, res.Results[0].ID)
	assert.Equal(t, "One!", res.Results[0].Card.Title)
	assert.Len(t, res.Results[0].Card.Labels, 1)
	assert.Equal(t, done.ID, res.Results[1].Card.ColumnID)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, BulkItemError{ID: c2.ID, Error: MsgColumnNotOnBoard}, res.Errors[0])

	untouched, err := f.core.Store.Cards.GetByID(f.ctx, c2.ID)
	require.NoError(t, err)
	assert.Equal(t, "Two", untouched.Title)
	assert.Len(t, f.activities(t, c3.ID, models.ActivityMoved), 1)
	assert.Len(t, f.activities(t, c3.ID, models.ActivityMirrorRemoved), 1)
}

func TestBulkService_UpdateForeignCard(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	user := testutil.CreateUser(t, f.db, "ada")
	board := testutil.CreateBoard(t, f.db, "Ops", user, models.BoardRoleMember)
	foreign := testutil.CreateBoard(t, f.db, "Foreign", user, models.BoardRoleMember)
	testutil.CreateColumn(t, f.db, board, "Todo", 0)
	away := testutil.CreateColumn(t, f.db, foreign, "Away", 0)
	stranger := testutil.CreateCard(t, f.db, away, "Stranger", 0)

	res, err := NewBulkService(f.core, 0).Update(f.ctx, user, board.ID, []BulkUpdateItem{
		{ID: stranger.ID, UpdateCardInput: UpdateCardInput{Title: Some("x")}},
		{ID: 424242},
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, MsgCardNotOnBoard, res.Errors[0].Error)
	assert.Equal(t, MsgCardNotOnBoard, res.Errors[1].Error)
}

func TestBulkService_UpdateLimit(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	user := testutil.CreateUser(t, f.db, "ada")
	board := testutil.CreateBoard(t, f.db, "Ops", user, models.BoardRoleMember)

	items := make([]BulkUpdateItem, 3)
	_, err := NewBulkService(f.core, 2).Update(f.ctx, user, board.ID, items)
	requireCode(t, err, models.CodeValidation)

	_, err = NewBulkService(f.core, 2).Update(f.ctx, user, board.ID, nil)
	requireCode(t, err, models.CodeValidation)
}

func TestBulkService_CreateIsAllOrNothing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	user := testutil.CreateUser(t, f.db, "ada")
	board := testutil.CreateBoard(t, f.db, "Ops", user, models.BoardRoleMember)
	foreign := testutil.CreateBoard(t, f.db, "Foreign", user, models.BoardRoleMember)
	todo := testutil.CreateColumn(t, f.db, board, "Todo", 0)
	away := testutil.CreateColumn(t, f.db, foreign, "Away", 0)
	svc := NewBulkService(f.core, 0)

	_, err := svc.Create(f.ctx, user, board.ID, []BulkCardInput{
		{ColumnID: todo.ID, Title: "Fine"},
		{ColumnID: away.ID, Title: "Elsewhere"},
	})
	requireCode(t, err, models.CodeValidation)
	cards, err := f.core.Store.Cards.ListByColumns(f.ctx, []uint{todo.ID})
	require.NoError(t, err)
	assert.Empty(t, cards)

	res, err := svc.Create(f.ctx, user, board.ID, []BulkCardInput{
		{ColumnID: todo.ID, Title: "A"},
		{ColumnID: todo.ID, Title: "B"},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "2 cards created", res.Message)
	require.Len(t, res.Cards, 2)
	assert.Equal(t, 0, res.Cards[0].Order)
	assert.Equal(t, 1, res.Cards[1].Order)
}
