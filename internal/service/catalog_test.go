package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/foodgram/backend/internal/service"
	"github.com/foodgram/backend/internal/testhelpers"
	"github.com/foodgram/backend/internal/types"
)

func names(items []types.IngredientResponse) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Name
	}
	return out
}

func TestListIngredients_PrefixIsCaseSensitiveAndEscaped(t *testing.T) {
	db := testhelpers.SetupSqliteDB(t)
	catalog := service.NewCatalogService(db, zaptest.NewLogger(t))
	for _, name := range []string{"sugar", "Sugar syrup", "salt", "50% cream", "500g flour", "s_pice"} {
		testhelpers.CreateIngredient(t, db, name, "g")
	}
	ctx := context.Background()

	got, err := catalog.ListIngredients(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"s_pice", "salt", "sugar"}, names(got))

	got, err = catalog.ListIngredients(ctx, "Su")
	require.NoError(t, err)
	assert.Equal(t, []string{"Sugar syrup"}, names(got))

	got, err = catalog.ListIngredients(ctx, "50%")
	require.NoError(t, err)
	assert.Equal(t, []string{"50% cream"}, names(got))

	got, err = catalog.ListIngredients(ctx, "s_")
	require.NoError(t, err)
	assert.Equal(t, []string{"s_pice"}, names(got))

	got, err = catalog.ListIngredients(ctx, "")
	require.NoError(t, err)
	assert.Len(t, got, 6)
}

func TestCatalog_GetMissing(t *testing.T) {
	db := testhelpers.SetupSqliteDB(t)
	catalog := service.NewCatalogService(db, zaptest.NewLogger(t))

	_, err := catalog.GetTag(context.Background(), 1)
	assert.ErrorIs(t, err, service.ErrNotFound)
	_, err = catalog.GetIngredient(context.Background(), 1)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestLoadIngredients_SkipsExisting(t *testing.T) {
	db := testhelpers.SetupSqliteDB(t)
	catalog := service.NewCatalogService(db, zaptest.NewLogger(t))
	testhelpers.CreateIngredient(t, db, "salt", "g")
	items := []types.IngredientResponse{
		{Name: "salt", MeasurementUnit: "g"},
		{Name: "salt", MeasurementUnit: "pinch"},
		{Name: " pepper ", MeasurementUnit: "g"},
		{Name: "", MeasurementUnit: "g"},
	}

	inserted, err := catalog.LoadIngredients(context.Background(), items)

	require.NoError(t, err)
	assert.EqualValues(t, 2, inserted)
	all, err := catalog.ListIngredients(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"pepper", "salt", "salt"}, names(all))

	inserted, err = catalog.LoadIngredients(context.Background(), items)
	require.NoError(t, err)
	assert.Zero(t, inserted)
}

func TestLoadTags(t *testing.T) {
	db := testhelpers.SetupSqliteDB(t)
	catalog := service.NewCatalogService(db, zaptest.NewLogger(t))

	inserted, err := catalog.LoadTags(context.Background(), []types.TagResponse{
		{Name: "Breakfast", Color: "#E26C2D", Slug: "breakfast"},
		{Name: "Lunch", Color: "#49B64E", Slug: "lunch"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, inserted)

	tags, err := catalog.ListTags(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "breakfast", tags[0].Slug)

	_, err = catalog.LoadTags(context.Background(), []types.TagResponse{{Name: "Bad", Color: "red", Slug: "bad"}})
	assert.ErrorIs(t, err, service.ErrValidation)

	// Only the slug is unique; a repeated name with a new slug is a new tag.
	inserted, err = catalog.LoadTags(context.Background(), []types.TagResponse{
		{Name: "Breakfast", Color: "#000000", Slug: "breakfast-2"},
		{Name: "Lunch", Color: "#49B64E", Slug: "lunch"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, inserted)
}
