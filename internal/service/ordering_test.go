package service

import (
	"testing"

	"projectboard/internal/models"
	"projectboard/internal/repository"
	"projectboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderingEngine_NextOrders(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	board := testutil.CreateBoard(t, f.db, "Ops", nil, "")
	engine := f.core.Engine
	store := f.core.Store

	pos, err := engine.NextColumnOrder(f.ctx, store, board.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, pos)

	col := testutil.CreateColumn(t, f.db, board, "Todo", 4)
	pos, err = engine.NextColumnOrder(f.ctx, store, board.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, pos)

	pos, err = engine.NextCardOrder(f.ctx, store, col.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, pos)

	testutil.CreateCard(t, f.db, col, "A", 7)
	pos, err = engine.NextCardOrder(f.ctx, store, col.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, pos)
}

func TestOrderingEngine_NextMirrorOrderSpansMergedColumn(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	board := testutil.CreateBoard(t, f.db, "Ops", nil, "")
	home := testutil.CreateColumn(t, f.db, board, "Home", 0)
	target := testutil.CreateColumn(t, f.db, board, "Target", 1)
	engine := f.core.Engine
	store := f.core.Store

	pos, err := engine.NextMirrorOrder(f.ctx, store, target.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, pos, "empty column")

	first := testutil.CreateCard(t, f.db, home, "First", 0)
	_, err = engine.AddMirror(f.ctx, store, first, target, nil)
	require.NoError(t, err)
	pos, err = engine.NextMirrorOrder(f.ctx, store, target.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, pos, "mirrors only")

	testutil.CreateCard(t, f.db, target, "Resident", 6)
	second := testutil.CreateCard(t, f.db, home, "Second", 1)
	mirror, err := engine.AddMirror(f.ctx, store, second, target, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, mirror.Order, "home cards count toward the tail")

	testutil.CreateCard(t, f.db, target, "Early", 2)
	pos, err = engine.NextMirrorOrder(f.ctx, store, target.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, pos, "the mirror is now the tail")
}

func TestOrderingEngine_MirrorConflicts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	board := testutil.CreateBoard(t, f.db, "Ops", nil, "")
	home := testutil.CreateColumn(t, f.db, board, "Home", 0)
	other := testutil.CreateColumn(t, f.db, board, "Other", 1)
	card := testutil.CreateCard(t, f.db, home, "Card", 0)
	testutil.CreateCard(t, f.db, other, "Resident", 3)

	err := f.core.Store.WithTx(f.ctx, func(tx *repository.Store) error {
		appearance, err := f.core.Engine.AddMirror(f.ctx, tx, card, other, nil)
		require.NoError(t, err)
		assert.Equal(t, 4, appearance.Order, "mirror appends after the merged column")

		_, err = f.core.Engine.AddMirror(f.ctx, tx, card, other, nil)
		requireCode(t, err, models.CodeConflict)
		assert.Contains(t, err.Error(), MsgAlreadyMirrored)

		_, err = f.core.Engine.AddMirror(f.ctx, tx, card, home, nil)
		requireCode(t, err, models.CodeConflict)
		assert.Contains(t, err.Error(), MsgMirrorHome)
		return nil
	})
	require.NoError(t, err)
}

func TestOrderingEngine_RemoveMirrorIsIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	board := testutil.CreateBoard(t, f.db, "Ops", nil, "")
	home := testutil.CreateColumn(t, f.db, board, "Home", 0)
	other := testutil.CreateColumn(t, f.db, board, "Other", 1)
	card := testutil.CreateCard(t, f.db, home, "Card", 0)

	_, err := f.core.Engine.AddMirror(f.ctx, f.core.Store, card, other, nil)
	require.NoError(t, err)

	removed, err := f.core.Engine.RemoveMirror(f.ctx, f.core.Store, card.ID, other.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = f.core.Engine.RemoveMirror(f.ctx, f.core.Store, card.ID, other.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestOrderingEngine_MoveTiesOrderedByID(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	board := testutil.CreateBoard(t, f.db, "Ops", nil, "")
	col := testutil.CreateColumn(t, f.db, board, "Todo", 0)
	a := testutil.CreateCard(t, f.db, col, "A", 1)
	b := testutil.CreateCard(t, f.db, col, "B", 2)

	one := 1
	res, err := f.core.Engine.Move(f.ctx, f.core.Store, b, col, &one)
	require.NoError(t, err)
	assert.Equal(t, MoveResult{}, res)

	views, err := f.core.Engine.ColumnCards(f.ctx, f.core.Store, []uint{col.ID})
	require.NoError(t, err)
	require.Len(t, views[col.ID], 2)
	assert.Equal(t, a.ID, views[col.ID][0].ID)
	assert.Equal(t, b.ID, views[col.ID][1].ID)
	assert.Equal(t, 1, views[col.ID][1].Order)
}

func TestOrderingEngine_MoveIntoMirrorColumnDropsMirror(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	board := testutil.CreateBoard(t, f.db, "Ops", nil, "")
	home := testutil.CreateColumn(t, f.db, board, "Home", 0)
	other := testutil.CreateColumn(t, f.db, board, "Other", 1)
	card := testutil.CreateCard(t, f.db, home, "Card", 0)

	_, err := f.core.Engine.AddMirror(f.ctx, f.core.Store, card, other, nil)
	require.NoError(t, err)

	res, err := f.core.Engine.Move(f.ctx, f.core.Store, card, other, nil)
	require.NoError(t, err)
	assert.True(t, res.ColumnChanged)
	assert.True(t, res.MirrorDropped)

	views, err := f.core.Engine.ColumnCards(f.ctx, f.core.Store, []uint{home.ID, other.ID})
	require.NoError(t, err)
	assert.Empty(t, views[home.ID])
	require.Len(t, views[other.ID], 1)
	assert.False(t, views[other.ID][0].IsMirror)
}

func TestOrderingEngine_ColumnCardsMergesMirrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	origin := testutil.CreateBoard(t, f.db, "Origin", nil, "")
	target := testutil.CreateBoard(t, f.db, "Target", nil, "")
	home := testutil.CreateColumn(t, f.db, origin, "Backlog", 0)
	col := testutil.CreateColumn(t, f.db, target, "Doing", 0)
	mirrored := testutil.CreateCard(t, f.db, home, "Shared", 0)
	resident := testutil.CreateCard(t, f.db, col, "Local", 0)

	_, err := f.core.Engine.AddMirror(f.ctx, f.core.Store, mirrored, col, nil)
	require.NoError(t, err)

	views, err := f.core.Engine.ColumnCards(f.ctx, f.core.Store, []uint{col.ID})
	require.NoError(t, err)
	cards := views[col.ID]
	require.Len(t, cards, 2)
	assert.Equal(t, resident.ID, cards[0].ID)
	assert.False(t, cards[0].IsMirror)
	assert.Equal(t, mirrored.ID, cards[1].ID)
	assert.True(t, cards[1].IsMirror)
	assert.Equal(t, "Origin", cards[1].OriginBoardName)
	assert.Equal(t, "Backlog", cards[1].OriginColumnName)
}

func TestBoardAggregator_TotalsIgnoreMirrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	owner := testutil.CreateUser(t, f.db, "owner")
	root := testutil.CreateUser(t, f.db, "root", testutil.AsAdmin)
	board := testutil.CreateBoard(t, f.db, "Ops", owner, models.BoardRoleMember)
	todo := testutil.CreateColumn(t, f.db, board, "Todo", 0)
	done := testutil.CreateColumn(t, f.db, board, "Done", 1)
	card := testutil.CreateCard(t, f.db, todo, "Estimate", 0, testutil.WithEstimate(3, 100))
	testutil.CreateCard(t, f.db, done, "Other", 0, testutil.WithEstimate(2, 50))

	_, err := f.core.Engine.AddMirror(f.ctx, f.core.Store, card, done, nil)
	require.NoError(t, err)

	view, err := NewBoardAggregator(f.core).FormatBoard(f.ctx, board, owner)
	require.NoError(t, err)
	assert.Equal(t, models.BoardRoleMember, view.UserRole)
	assert.InDelta(t, 5.0, view.Totals.EstimatedHours, 0.001)
	assert.InDelta(t, 150.0, view.Totals.EstimatedCost, 0.001)
	require.Len(t, view.Columns, 2)
	assert.Len(t, view.Columns[1].Cards, 2)
	assert.InDelta(t, 2.0, view.Columns[1].Totals.EstimatedHours, 0.001)

	require.Len(t, view.Members, 2)
	assert.Equal(t, owner.ID, view.Members[0].UserID)
	assert.False(t, view.Members[0].IsGlobalAdmin)
	assert.Equal(t, root.ID, view.Members[1].UserID)
	assert.True(t, view.Members[1].IsGlobalAdmin)
	assert.Equal(t, models.BoardRoleAdmin, view.Members[1].Role)
}
