package credentials

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rangolink/merchant-bridge/pkg/db/models"
	pkgerrors "github.com/rangolink/merchant-bridge/pkg/errors"
)

func setupCredentialsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE companies (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  registration_number TEXT,
  tenant_id TEXT NOT NULL UNIQUE,
  client_id TEXT NOT NULL,
  client_secret TEXT NOT NULL,
  access_token TEXT,
  token_expires_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedCompany(t *testing.T, db *gorm.DB, tenantID string) *models.Company {
	t.Helper()
	company := &models.Company{
		ID:           uuid.New(),
		Name:         "Test Diner",
		TenantID:     tenantID,
		ClientID:     "cid",
		ClientSecret: "secret",
	}
	require.NoError(t, db.Create(company).Error)
	return company
}

func TestFindByTenantID(t *testing.T) {
	db := setupCredentialsTestDB(t)
	repo := NewRepository(db)
	seeded := seedCompany(t, db, "tenant-1")

	found, err := repo.FindByTenantID(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)
	assert.Nil(t, found.AccessToken)
	assert.Nil(t, found.TokenExpiresAt)
}

func TestFindByTenantIDUnknownIsNotFound(t *testing.T) {
	db := setupCredentialsTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByTenantID(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateTokenWritesPairTogether(t *testing.T) {
	db := setupCredentialsTestDB(t)
	repo := NewRepository(db)
	seeded := seedCompany(t, db, "tenant-1")

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateToken(context.Background(), seeded.ID, "tok-new", expiry))

	found, err := repo.FindByTenantID(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.NotNil(t, found.AccessToken)
	require.NotNil(t, found.TokenExpiresAt)
	assert.Equal(t, "tok-new", *found.AccessToken)
	assert.Equal(t, expiry, found.TokenExpiresAt.UTC().Truncate(time.Second))
	// client credentials stay untouched
	assert.Equal(t, "cid", found.ClientID)
	assert.Equal(t, "secret", found.ClientSecret)
}

func TestListOrdersByTenantID(t *testing.T) {
	db := setupCredentialsTestDB(t)
	repo := NewRepository(db)
	seedCompany(t, db, "tenant-b")
	seedCompany(t, db, "tenant-a")

	companies, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, companies, 2)
	assert.Equal(t, "tenant-a", companies[0].TenantID)
	assert.Equal(t, "tenant-b", companies[1].TenantID)
}
