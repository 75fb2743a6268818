package database_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/foodgram/backend/config"
	"github.com/foodgram/backend/internal/database"
	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/testhelpers"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm translated", fmt.Errorf("create: %w", gorm.ErrDuplicatedKey), true},
		{"postgres unique", &pq.Error{Code: "23505"}, true},
		{"postgres fk", &pq.Error{Code: "23503"}, false},
		{"sqlite", errors.New("UNIQUE constraint failed: favorites.user_id, favorites.recipe_id"), true},
		{"other", gorm.ErrRecordNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, database.IsUniqueViolation(tt.err))
		})
	}
}

func TestOpen_Sqlite(t *testing.T) {
	logger := zaptest.NewLogger(t)
	db, err := database.Open(config.DB{
		Driver:             "sqlite",
		Path:               filepath.Join(t.TempDir(), "foodgram.db"),
		MaxIdleConnections: 1,
		MaxOpenConnections: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	require.NoError(t, database.RunMigrations(db, testhelpers.MigrationsDir, logger))
	require.NoError(t, database.HealthCheck(context.Background(), db))

	for _, table := range []string{"users", "follows", "tags", "ingredients", "recipes", "recipe_tags", "recipe_ingredients", "favorites", "shopping_cart_items", "revoked_tokens"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := database.Open(config.DB{Driver: "mysql"}, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestSchema_Constraints(t *testing.T) {
	db := testhelpers.SetupSqliteDB(t)
	author := testhelpers.CreateUser(t, db, "author")
	reader := testhelpers.CreateUser(t, db, "reader")
	tag := testhelpers.CreateTag(t, db, "Lunch", "lunch")
	rice := testhelpers.CreateIngredient(t, db, "rice", "g")

	recipe := testhelpers.CreateRecipe(t, db, author, testhelpers.RecipeFixture{
		Name:        "Risotto",
		Tags:        []*models.Tag{tag},
		Ingredients: map[*models.Ingredient]int{rice: 200},
	})
	testhelpers.AddFavorite(t, db, reader, recipe)
	testhelpers.Follow(t, db, reader, author)

	err := db.Omit("User", "Recipe").Create(&models.Favorite{UserID: reader.ID, RecipeID: recipe.ID}).Error
	assert.True(t, database.IsUniqueViolation(err))

	err = db.Omit("User", "Author").Create(&models.Follow{UserID: reader.ID, AuthorID: reader.ID}).Error
	assert.Error(t, err, "self follow must violate the check constraint")

	err = db.Delete(&models.Ingredient{}, rice.ID).Error
	assert.Error(t, err, "ingredients in use cannot be deleted")

	require.NoError(t, db.Delete(&models.User{}, author.ID).Error)

	var recipes, favorites, follows int64
	require.NoError(t, db.Model(&models.Recipe{}).Count(&recipes).Error)
	require.NoError(t, db.Model(&models.Favorite{}).Count(&favorites).Error)
	require.NoError(t, db.Model(&models.Follow{}).Count(&follows).Error)
	assert.Zero(t, recipes)
	assert.Zero(t, favorites)
	assert.Zero(t, follows)
}

func TestRunMigrations_Postgres(t *testing.T) {
	db := testhelpers.SetupPostgresDB(t)

	var applied int64
	require.NoError(t, db.Table("migrations").Where("name = ?", "0001_indexes.sql").Count(&applied).Error)
	assert.Equal(t, int64(1), applied)

	require.NoError(t, database.RunMigrations(db, testhelpers.MigrationsDir, zaptest.NewLogger(t)))
	require.NoError(t, db.Table("migrations").Count(&applied).Error)
	assert.Equal(t, int64(1), applied)

	user := testhelpers.CreateUser(t, db, "dup")
	err := db.Create(&models.User{Username: user.Username, Email: "other@example.com", PasswordHash: "x"}).Error
	assert.True(t, database.IsUniqueViolation(err))
}
