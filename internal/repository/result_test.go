package repository

import (
	"os"
	"testing"
	"time"

	"github.com/kvanc/server/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupTestDB connects to the database named by KVANC_TEST_DATABASE_URL, skipping otherwise.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("KVANC_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("KVANC_TEST_DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrator().DropTable(&model.ResultRecord{}))

	return db
}

func TestResult_Create(t *testing.T) {
	db := setupTestDB(t)
	repos := NewRepositories(db)
	require.NotNil(t, repos.Result())

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		_, err := repos.Result().Create(model.ResultRecord{
			Question:   "Do you like Go?",
			Yes:        i,
			ComputedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	var stored []model.ResultRecord
	require.NoError(t, db.Order("computed_at DESC").Find(&stored).Error)
	require.Len(t, stored, 3)
	assert.Equal(t, 2, stored[0].Yes)
	assert.NotZero(t, stored[0].ID)
}

func TestNewRepositories_WithoutDatabase(t *testing.T) {
	repos := NewRepositories(nil)

	assert.Nil(t, repos.Result())
	assert.NotNil(t, repos.Admission())
	assert.NotNil(t, repos.Vote())
}
