package seed

import (
	"testing"
	"time"

	"projectboard/internal/models"
	"projectboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabels_Idempotent(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)

	first, err := Labels(db)
	require.NoError(t, err)
	second, err := Labels(db)
	require.NoError(t, err)

	require.Len(t, second, len(BuiltInLabels))
	assert.Equal(t, first[0].ID, second[0].ID)

	var count int64
	require.NoError(t, db.Model(&models.Label{}).Count(&count).Error)
	assert.Equal(t, int64(len(BuiltInLabels)), count)
}

func TestSeed_BuildsDenseBoards(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)

	res, err := Seed(db, Options{NumUsers: 3, NumBoards: 2, CardsPerColumn: 3, SkipBcrypt: true, RandomSeed: 42})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Users)
	assert.Equal(t, 2, res.Boards)
	assert.Equal(t, 2*len(DefaultColumns), res.Columns)

	var columns []models.Column
	require.NoError(t, db.Order("board_id, order_column").Find(&columns).Error)
	require.Len(t, columns, res.Columns)
	for _, col := range columns {
		var orders []int
		require.NoError(t, db.Model(&models.Card{}).Where("board_column_id = ?", col.ID).
			Order("order_column").Pluck("order_column", &orders).Error)
		assert.Equal(t, []int{0, 1, 2}, orders, "column %s", col.Name)
	}

	var members int64
	require.NoError(t, db.Model(&models.BoardMember{}).Count(&members).Error)
	assert.Equal(t, int64(6), members)

	var created int64
	require.NoError(t, db.Model(&models.Activity{}).Where("type = ?", models.ActivityCreated).Count(&created).Error)
	assert.Equal(t, int64(res.Cards), created)
}

func TestSeed_CleanReplacesData(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)

	_, err := Seed(db, Options{NumUsers: 2, NumBoards: 1, CardsPerColumn: 1, SkipBcrypt: true})
	require.NoError(t, err)
	_, err = Seed(db, Options{NumUsers: 2, NumBoards: 1, CardsPerColumn: 1, SkipBcrypt: true, ShouldClean: true})
	require.NoError(t, err)

	var boards int64
	require.NoError(t, db.Model(&models.Board{}).Count(&boards).Error)
	assert.Equal(t, int64(1), boards)
}

func TestFactory_DryRunAssignsSyntheticIDs(t *testing.T) {
	t.Parallel()
	f := NewFactory(nil, Options{DryRun: true, SkipBcrypt: true, MaxDays: 10})

	user, err := f.CreateUser()
	require.NoError(t, err)
	board, err := f.CreateBoard(user)
	require.NoError(t, err)
	column, err := f.CreateColumn(board, "In Progress", 0)
	require.NoError(t, err)
	card, err := f.CreateCard(column, user, 0)
	require.NoError(t, err)

	assert.NotZero(t, user.ID)
	assert.Greater(t, card.ID, column.ID)
	assert.Equal(t, "in-progress", column.Slug)
	assert.True(t, card.CreatedAt.After(time.Now().AddDate(0, 0, -11)))
	assert.LessOrEqual(t, len(card.Title), models.MaxCardTitleLength)
}
