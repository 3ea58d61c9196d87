package seed

import (
	"context"
	"testing"

	scheduledomain "github.com/boxlane/boxlane/internal/schedule/domain"
	"github.com/boxlane/boxlane/internal/schedule/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&scheduledomain.Location{}))
	return conn
}

func TestEnsureReferenceLocations_Idempotent(t *testing.T) {
	conn := openTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	repo := repository.Provide()

	require.NoError(t, EnsureReferenceLocations(conn, node, repo))

	var count int64
	require.NoError(t, conn.Raw(`SELECT COUNT(1) FROM locations`).Scan(&count).Error)
	assert.Greater(t, count, int64(0))

	require.NoError(t, EnsureReferenceLocations(conn, node, repo))

	var recount int64
	require.NoError(t, conn.Raw(`SELECT COUNT(1) FROM locations`).Scan(&recount).Error)
	assert.Equal(t, count, recount)

	location, err := repo.FindLocationByUNLocode(context.Background(), conn, "cnsha")
	require.NoError(t, err)
	require.NotNil(t, location)
	assert.Equal(t, "Shanghai", location.Name)
	assert.Equal(t, "CN", location.CountryCode)
}

func TestEnsureReferenceLocations_KeepsExistingRows(t *testing.T) {
	conn := openTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	repo := repository.Provide()

	existing := scheduledomain.Location{
		ID:          node.Generate(),
		UNLocode:    "CNSHA",
		Name:        "Shanghai (manual)",
		CountryCode: "CN",
	}
	require.NoError(t, conn.Create(&existing).Error)

	require.NoError(t, EnsureReferenceLocations(conn, node, repo))

	location, err := repo.FindLocationByUNLocode(context.Background(), conn, "CNSHA")
	require.NoError(t, err)
	require.NotNil(t, location)
	assert.Equal(t, existing.ID, location.ID)
	assert.Equal(t, "Shanghai (manual)", location.Name)
}
