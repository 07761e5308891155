package service

import (
	"testing"

	"projectboard/internal/featureflags"
	"projectboard/internal/models"
	"projectboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelService_Permissions(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	member := testutil.CreateUser(t, f.db, "member")
	viewer := testutil.CreateUser(t, f.db, "viewer")
	root := testutil.CreateUser(t, f.db, "root", testutil.AsAdmin)
	readOnly := models.BoardRoleViewer
	overridden := testutil.CreateUser(t, f.db, "overridden", func(u *models.User) { u.BoardRoleOverride = &readOnly })
	board := testutil.CreateBoard(t, f.db, "Ops", member, models.BoardRoleMember)
	testutil.AddMember(t, f.db, board, viewer, models.BoardRoleViewer)
	f.core.Flags = featureflags.NewManager(string(featureflags.LabelCache) + "=off")
	svc := NewLabelService(f.core)

	color := "#00ff00"
	label, err := svc.Create(f.ctx, member, LabelInput{Name: " Green ", Color: &color})
	require.NoError(t, err)
	assert.Equal(t, "Green", label.Name)

	_, err = svc.Create(f.ctx, viewer, LabelInput{Name: "Nope"})
	requireCode(t, err, models.CodeForbidden)
	_, err = svc.Create(f.ctx, overridden, LabelInput{Name: "Nope"})
	requireCode(t, err, models.CodeForbidden)

	bad := "green"
	_, err = svc.Create(f.ctx, root, LabelInput{Name: "Bad", Color: &bad})
	requireCode(t, err, models.CodeValidation)

	updated, err := svc.Update(f.ctx, root, label.ID, LabelInput{Name: "Lime"})
	require.NoError(t, err)
	assert.Nil(t, updated.Color)

	labels, err := svc.List(f.ctx)
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, "Lime", labels[0].Name)

	require.NoError(t, svc.Delete(f.ctx, member, label.ID))
	labels, err = svc.List(f.ctx)
	require.NoError(t, err)
	assert.NotNil(t, labels)
	assert.Empty(t, labels)
}
