package repository

import (
	"context"
	"errors"
	"testing"

	"projectboard/internal/access"
	"projectboard/internal/models"
	"projectboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WithTxRollsBack(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx *Store) error {
		require.NoError(t, tx.Boards.Create(ctx, &models.Board{Name: "Doomed"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	boards, err := store.Boards.List(ctx, BoardFilter{Scope: access.Scope{All: true}})
	require.NoError(t, err)
	assert.Empty(t, boards)
}

func TestBoardRepository_ListScopeAndOwner(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	a := testutil.CreateBoard(t, db, "Alpha", nil, "")
	b := testutil.CreateBoard(t, db, "Beta", nil, "")
	owned := &models.Board{Name: "Owned"}
	owned.SetOwner(&models.OwnerRef{Type: "project", ID: 9})
	require.NoError(t, store.Boards.Create(ctx, owned))

	none, err := store.Boards.List(ctx, BoardFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)

	some, err := store.Boards.List(ctx, BoardFilter{Scope: access.Scope{BoardIDs: []uint{a.ID}}})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "Alpha", some[0].Name)

	byOwner, err := store.Boards.List(ctx, BoardFilter{
		Scope: access.Scope{All: true},
		Owner: &models.OwnerRef{Type: "project", ID: 9},
	})
	require.NoError(t, err)
	require.Len(t, byOwner, 1)
	assert.Equal(t, owned.ID, byOwner[0].ID)

	byName, err := store.Boards.List(ctx, BoardFilter{Scope: access.Scope{All: true}, Name: "bet"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, b.ID, byName[0].ID)
}

func TestBoardRepository_DeleteCascades(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	user := testutil.CreateUser(t, db, "owner")
	board := testutil.CreateBoard(t, db, "Gone", user, models.BoardRoleAdmin)
	other := testutil.CreateBoard(t, db, "Stays", user, models.BoardRoleAdmin)
	col := testutil.CreateColumn(t, db, board, "Todo", 0)
	otherCol := testutil.CreateColumn(t, db, other, "Doing", 0)
	card := testutil.CreateCard(t, db, col, "Task", 0)
	kept := testutil.CreateCard(t, db, otherCol, "Kept", 0)
	label := testutil.CreateLabel(t, db, "bug", "#ff0000")

	require.NoError(t, store.Cards.AddLabel(ctx, card.ID, label.ID))
	require.NoError(t, store.Appearances.Create(ctx, &models.Appearance{ColumnID: otherCol.ID, CardID: card.ID}))
	require.NoError(t, store.Appearances.Create(ctx, &models.Appearance{ColumnID: col.ID, CardID: kept.ID}))
	require.NoError(t, store.Comments.Create(ctx, &models.Comment{
		CommentableType: models.CommentableCard, CommentableID: card.ID, Content: "hi", UserID: user.ID,
	}))
	require.NoError(t, store.Activities.Create(ctx, &models.Activity{CardID: card.ID, Type: models.ActivityCreated, Text: "created this card"}))

	require.NoError(t, store.Boards.Delete(ctx, board.ID))

	var count int64
	db.Unscoped().Model(&models.Card{}).Where("id = ?", card.ID).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.Appearance{}).Count(&count)
	assert.Zero(t, count, "mirrors into and out of the board are removed")
	db.Table("card_labels").Count(&count)
	assert.Zero(t, count)
	db.Model(&models.Comment{}).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.Activity{}).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.BoardMember{}).Where("board_id = ?", board.ID).Count(&count)
	assert.Zero(t, count)

	_, err := store.Cards.GetByID(ctx, kept.ID)
	assert.NoError(t, err)
	_, err = store.Labels.GetByID(ctx, label.ID)
	assert.NoError(t, err, "labels are global")

	err = store.Boards.Delete(ctx, board.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestColumnRepository_ArchiveRestorePurge(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	board := testutil.CreateBoard(t, db, "B", nil, "")
	col := testutil.CreateColumn(t, db, board, "Todo", 3)
	testutil.CreateColumn(t, db, board, "Done", 7)
	card := testutil.CreateCard(t, db, col, "Task", 0)

	max, ok, err := store.Columns.MaxOrder(ctx, board.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, max)

	require.NoError(t, store.Columns.Archive(ctx, col.ID))
	_, err = store.Columns.GetByID(ctx, col.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	archived, err := store.Columns.ListArchivedByBoard(ctx, board.ID)
	require.NoError(t, err)
	require.Len(t, archived, 1)

	require.NoError(t, store.Columns.Restore(ctx, col.ID))
	restored, err := store.Columns.GetByID(ctx, col.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LifecycleActive, restored.Lifecycle())

	require.NoError(t, store.Columns.Purge(ctx, col.ID))
	_, err = store.Cards.GetWithArchived(ctx, card.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestCardRepository_OrderingAndArchive(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	board := testutil.CreateBoard(t, db, "B", nil, "")
	col := testutil.CreateColumn(t, db, board, "Todo", 0)
	empty := testutil.CreateColumn(t, db, board, "Empty", 1)
	a := testutil.CreateCard(t, db, col, "A", 1)
	b := testutil.CreateCard(t, db, col, "B", 1)

	_, ok, err := store.Cards.MaxOrder(ctx, empty.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	cards, err := store.Cards.ListByColumns(ctx, []uint{col.ID})
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, a.ID, cards[0].ID, "ties are broken by id")
	assert.Equal(t, b.ID, cards[1].ID)

	require.NoError(t, store.Cards.Archive(ctx, a.ID))
	cards, err = store.Cards.ListByColumns(ctx, []uint{col.ID})
	require.NoError(t, err)
	assert.Len(t, cards, 1)

	archived, err := store.Cards.ListArchivedByBoard(ctx, board.ID)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, a.ID, archived[0].ID)

	boardID, err := store.Cards.BoardIDOf(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, board.ID, boardID)

	require.NoError(t, store.Cards.Restore(ctx, a.ID))
	_, err = store.Cards.GetByID(ctx, a.ID)
	assert.NoError(t, err)
}

func TestAppearanceRepository_UniqueAndDelete(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	board := testutil.CreateBoard(t, db, "B", nil, "")
	home := testutil.CreateColumn(t, db, board, "Home", 0)
	target := testutil.CreateColumn(t, db, board, "Target", 1)
	card := testutil.CreateCard(t, db, home, "Mirrored", 0)

	require.NoError(t, store.Appearances.Create(ctx, &models.Appearance{ColumnID: target.ID, CardID: card.ID, Order: 4}))
	err := store.Appearances.Create(ctx, &models.Appearance{ColumnID: target.ID, CardID: card.ID})
	assert.True(t, models.HasCode(err, models.CodeConflict))

	max, ok, err := store.Appearances.MaxOrder(ctx, target.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, max)

	listed, err := store.Appearances.ListByColumns(ctx, []uint{target.ID})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].Card)
	require.NotNil(t, listed[0].Card.Column)
	assert.Equal(t, "Home", listed[0].Card.Column.Name)

	removed, err := store.Appearances.Delete(ctx, target.ID, card.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = store.Appearances.Delete(ctx, target.ID, card.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestLabelRepository_FindAndDelete(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	board := testutil.CreateBoard(t, db, "B", nil, "")
	col := testutil.CreateColumn(t, db, board, "Todo", 0)
	card := testutil.CreateCard(t, db, col, "Task", 0)
	red := testutil.CreateLabel(t, db, "Bug", "#ff0000")
	plain := testutil.CreateLabel(t, db, "Bug", "")
	require.NoError(t, store.Cards.AddLabel(ctx, card.ID, red.ID))

	color := "#ff0000"
	found, err := store.Labels.FindByNameColor(ctx, "Bug", &color)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, red.ID, found.ID)

	found, err = store.Labels.FindByNameColor(ctx, "Bug", nil)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, plain.ID, found.ID)

	found, err = store.Labels.FindByNameColor(ctx, "Feature", nil)
	require.NoError(t, err)
	assert.Nil(t, found)

	require.NoError(t, store.Labels.Delete(ctx, red.ID))
	ids, err := store.Cards.LabelIDs(ctx, card.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestCommentRepository_DeleteCascadesReplies(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	user := testutil.CreateUser(t, db, "writer")
	board := testutil.CreateBoard(t, db, "B", nil, "")
	col := testutil.CreateColumn(t, db, board, "Todo", 0)
	card := testutil.CreateCard(t, db, col, "Task", 0)

	root := &models.Comment{CommentableType: models.CommentableCard, CommentableID: card.ID, Content: "root", UserID: user.ID}
	require.NoError(t, store.Comments.Create(ctx, root))
	reply := &models.Comment{CommentableType: models.CommentableCard, CommentableID: card.ID, Content: "reply", UserID: user.ID, ParentID: &root.ID}
	require.NoError(t, store.Comments.Create(ctx, reply))
	require.NoError(t, store.Comments.AddReaction(ctx, &models.CommentReaction{CommentID: reply.ID, UserID: user.ID, Emoji: "👍"}))

	listed, err := store.Comments.ListByCard(ctx, card.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Len(t, listed[0].Replies, 1)
	assert.Len(t, listed[0].Replies[0].Reactions, 1)

	require.NoError(t, store.Comments.Delete(ctx, root.ID))
	var count int64
	db.Model(&models.Comment{}).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.CommentReaction{}).Count(&count)
	assert.Zero(t, count)
}

func TestTokenRepository_DeleteIsOwnerScoped(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner")
	other := testutil.CreateUser(t, db, "other")
	token := &models.APIToken{UserID: owner.ID, Name: "ci", TokenHash: "h1", Abilities: models.StringList{"*"}}
	require.NoError(t, store.Tokens.Create(ctx, token))

	err := store.Tokens.Delete(ctx, other.ID, token.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	found, err := store.Tokens.FindByHash(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, found.User)
	assert.Equal(t, owner.ID, found.User.ID)
	assert.Equal(t, models.StringList{"*"}, found.Abilities)

	require.NoError(t, store.Tokens.Delete(ctx, owner.ID, token.ID))
	_, err = store.Tokens.FindByHash(ctx, "h1")
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestSearchRepository_SQLite(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	user := testutil.CreateUser(t, db, "searcher")
	visible := testutil.CreateBoard(t, db, "Visible", user, models.BoardRoleViewer)
	hidden := testutil.CreateBoard(t, db, "Hidden", nil, "")
	vc := testutil.CreateColumn(t, db, visible, "Todo", 0)
	hc := testutil.CreateColumn(t, db, hidden, "Todo", 0)

	byTitle := testutil.CreateCard(t, db, vc, "Deploy pipeline", 0)
	byLabel := testutil.CreateCard(t, db, vc, "Unrelated", 1)
	testutil.CreateCard(t, db, hc, "Deploy secret", 0)
	archived := testutil.CreateCard(t, db, vc, "Deploy old", 2)
	require.NoError(t, store.Cards.Archive(ctx, archived.ID))

	label := testutil.CreateLabel(t, db, "deployment", "")
	require.NoError(t, store.Cards.AddLabel(ctx, byLabel.ID, label.ID))

	require.NoError(t, store.Comments.Create(ctx, &models.Comment{
		CommentableType: models.CommentableCard, CommentableID: byTitle.ID, Content: "DEPLOY on friday", UserID: user.ID,
	}))
	checklist := &models.Checklist{CardID: byTitle.ID, Name: "Release"}
	require.NoError(t, store.Checklists.Create(ctx, checklist))
	require.NoError(t, store.Checklists.CreateItem(ctx, &models.ChecklistItem{ChecklistID: checklist.ID, Content: "deploy to staging"}))

	scope := access.Scope{BoardIDs: []uint{visible.ID}}
	cards, err := store.Search.Cards(ctx, SearchFilter{Query: "deploy", Scope: scope})
	require.NoError(t, err)
	ids := []uint{}
	for _, c := range cards {
		ids = append(ids, c.ID)
		assert.Equal(t, "Visible", c.BoardName)
	}
	assert.ElementsMatch(t, []uint{byTitle.ID, byLabel.ID}, ids)

	comments, err := store.Search.Comments(ctx, SearchFilter{Query: "deploy", Scope: scope})
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, byTitle.ID, comments[0].CardID)

	items, err := store.Search.ChecklistItems(ctx, SearchFilter{Query: "staging", Scope: access.Scope{All: true}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Release", items[0].ChecklistName)

	onHidden := hidden.ID
	cards, err = store.Search.Cards(ctx, SearchFilter{Query: "deploy", Scope: access.Scope{All: true}, BoardID: &onHidden})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Deploy secret", cards[0].Title)
}
