package tenants

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/coursehub-backend/internal/settlement"
	"github.com/angelmondragon/coursehub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/coursehub-backend/pkg/errors"
)

func setupTenantsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	ddl := `
CREATE TABLE IF NOT EXISTS tenants (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  active BOOLEAN NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(ddl).Error)
	return conn
}

func TestListActiveOrdersByID(t *testing.T) {
	conn := setupTenantsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Tenant{ID: "tenant-c", Name: "Cooking", Slug: "cooking", Active: true}))
	require.NoError(t, repo.Create(ctx, &models.Tenant{ID: "tenant-a", Name: "Algebra", Slug: "algebra", Active: true}))
	require.NoError(t, repo.Create(ctx, &models.Tenant{ID: "tenant-b", Name: "Biology", Slug: "biology", Active: true}))
	require.NoError(t, repo.SetActive(ctx, "tenant-b", false))

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []settlement.Tenant{
		{ID: "tenant-a", Name: "Algebra"},
		{ID: "tenant-c", Name: "Cooking"},
	}, active)
}

func TestListActiveEmpty(t *testing.T) {
	active, err := NewRepository(setupTenantsTestDB(t)).ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestFindByIDAndMissingTenant(t *testing.T) {
	conn := setupTenantsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.Tenant{ID: "tenant-a", Name: "Algebra", Slug: "algebra", Active: true}))

	found, err := repo.FindByID(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, "algebra", found.Slug)

	_, err = repo.FindByID(ctx, "nobody")
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	err = repo.SetActive(ctx, "nobody", true)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	err = repo.Create(ctx, &models.Tenant{Name: "no id"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestCreateDuplicateTenantIsTyped(t *testing.T) {
	conn := setupTenantsTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.Tenant{ID: "tenant-a", Name: "Algebra", Slug: "algebra", Active: true}))

	err := repo.Create(ctx, &models.Tenant{ID: "tenant-a", Name: "Algebra again", Slug: "algebra-2", Active: true})
	require.Error(t, err)
	assert.NotNil(t, pkgerrors.As(err))
	assert.Contains(t, pkgerrors.As(err).Message(), "tenant-a")
}
