package service

import (
	"testing"

	"projectboard/internal/featureflags"
	"projectboard/internal/models"
	"projectboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchService_RespectsScope(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	user := testutil.CreateUser(t, f.db, "ada")
	mine := testutil.CreateBoard(t, f.db, "Mine", user, models.BoardRoleViewer)
	theirs := testutil.CreateBoard(t, f.db, "Theirs", nil, "")
	mineCol := testutil.CreateColumn(t, f.db, mine, "Todo", 0)
	theirCol := testutil.CreateColumn(t, f.db, theirs, "Todo", 0)
	card := testutil.CreateCard(t, f.db, mineCol, "Invoice customers", 0)
	testutil.CreateCard(t, f.db, theirCol, "Invoice vendors", 0)
	require.NoError(t, f.db.Create(&models.Comment{
		CommentableType: models.CommentableCard,
		CommentableID:   card.ID,
		Content:         "invoice template attached",
		UserID:          user.ID,
	}).Error)
	svc := NewSearchService(f.core)

	res, err := svc.Cards(f.ctx, user, "invoice", nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, card.ID, res.Cards[0].ID)
	assert.Equal(t, "Mine", res.Cards[0].BoardName)

	_, err = svc.Cards(f.ctx, user, "invoice", &theirs.ID)
	requireCode(t, err, models.CodeForbidden)

	global, err := svc.Global(f.ctx, user, "invoice")
	require.NoError(t, err)
	require.Len(t, global, 2)
	assert.Equal(t, "card", global[0].Type)
	assert.Equal(t, "comment", global[1].Type)
	assert.Equal(t, "Comment on: Invoice customers", global[1].Title)
	assert.Equal(t, "Mine", global[1].BoardName)

	short, err := svc.Global(f.ctx, user, "i")
	require.NoError(t, err)
	assert.Empty(t, short)
}

func TestSearchService_GlobalFlag(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.core.Flags = featureflags.NewManager(string(featureflags.GlobalSearch) + "=off")
	user := testutil.CreateUser(t, f.db, "ada")

	_, err := NewSearchService(f.core).Global(f.ctx, user, "anything")
	requireCode(t, err, models.CodeForbidden)
}

func TestTruncatePreview(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "short", truncatePreview("  short "))
	long := ""
	for range 70 {
		long += "ü"
	}
	got := truncatePreview(long)
	assert.Equal(t, 63, len([]rune(got)))
}
