package bootstrap

import (
	"context"
	"testing"

	"projectboard/internal/config"
	"projectboard/internal/models"
	"projectboard/internal/observability"
	"projectboard/internal/seed"
	"projectboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func devConfig() *config.Config {
	return &config.Config{
		Env:              "development",
		DevBootstrapRoot: true,
		DevRootEmail:     "Root@Example.test",
		DevRootPassword:  "changeme",
	}
}

func TestEnsureDevRootAdmin_CreatesThenPromotes(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	cfg := devConfig()

	require.NoError(t, EnsureDevRootAdmin(cfg, db))

	var root models.User
	require.NoError(t, db.Where("email = ?", "root@example.test").First(&root).Error)
	assert.True(t, root.IsAdmin)
	assert.Equal(t, "Board Admin", root.Name)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(root.Password), []byte("changeme")))

	require.NoError(t, db.Model(&root).Update("is_admin", false).Error)
	require.NoError(t, EnsureDevRootAdmin(cfg, db))
	require.NoError(t, db.First(&root, root.ID).Error)
	assert.True(t, root.IsAdmin)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestEnsureDevRootAdmin_Guards(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)

	prod := devConfig()
	prod.Env = "production"
	require.NoError(t, EnsureDevRootAdmin(prod, db))

	off := devConfig()
	off.DevBootstrapRoot = false
	require.NoError(t, EnsureDevRootAdmin(off, db))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)

	noPassword := devConfig()
	noPassword.DevRootPassword = ""
	assert.Error(t, EnsureDevRootAdmin(noPassword, db))
}

// Start swaps package-level loggers, so it does not run in parallel.
func TestStart_SQLiteWithoutRedis(t *testing.T) {
	cfg := &config.Config{
		Env:          "test",
		DBDriver:     "sqlite",
		DBSQLitePath: "file:bootstrap_start?mode=memory&cache=shared",
		RedisURL:     "127.0.0.1:1",
		RepoLogging:  true,
	}
	rt, err := Start(context.Background(), cfg, Options{ApplySchema: true, SeedLabels: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		observability.EnableWriteAudit(false)
		if sqlDB, err := rt.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	assert.Nil(t, rt.Redis)
	var labels int64
	require.NoError(t, rt.DB.Model(&models.Label{}).Count(&labels).Error)
	assert.Equal(t, int64(len(seed.BuiltInLabels)), labels)
}
