package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/database"
	"github.com/foodgram/backend/internal/service"
	"github.com/foodgram/backend/internal/types"
)

type LoadIngredientsCmd struct {
	ConfigFile string `help:"Path to config file" short:"c"`
	File       string `default:"data/ingredients.json" help:"JSON array of {name, measurement_unit}"`
}

func (l *LoadIngredientsCmd) Run(ctx *Context) error {
	logger := developmentLogger(ctx.Debug)
	defer logger.Sync() //nolint:errcheck // we don't care about logger sync errors

	_, db, err := setup(l.ConfigFile, logger)
	if err != nil {
		return err
	}
	defer database.Close(db)

	inserted, err := LoadIngredients(context.Background(), db, l.File, logger)
	if err != nil {
		return err
	}
	logger.Info("Loaded ingredients", zap.String("file", l.File), zap.Int64("inserted", inserted))
	return nil
}

type LoadTagsCmd struct {
	ConfigFile string `help:"Path to config file" short:"c"`
	File       string `default:"data/tags.json" help:"JSON array of {name, color, slug}"`
}

func (l *LoadTagsCmd) Run(ctx *Context) error {
	logger := developmentLogger(ctx.Debug)
	defer logger.Sync() //nolint:errcheck // we don't care about logger sync errors

	_, db, err := setup(l.ConfigFile, logger)
	if err != nil {
		return err
	}
	defer database.Close(db)

	inserted, err := LoadTags(context.Background(), db, l.File, logger)
	if err != nil {
		return err
	}
	logger.Info("Loaded tags", zap.String("file", l.File), zap.Int64("inserted", inserted))
	return nil
}

// LoadIngredients inserts the ingredients listed in path, skipping ones that exist.
func LoadIngredients(ctx context.Context, db *gorm.DB, path string, logger *zap.Logger) (int64, error) {
	var items []types.IngredientResponse
	if err := readJSON(path, &items); err != nil {
		return 0, err
	}
	return service.NewCatalogService(db, logger).LoadIngredients(ctx, items)
}

// LoadTags inserts the tags listed in path, skipping ones that exist.
func LoadTags(ctx context.Context, db *gorm.DB, path string, logger *zap.Logger) (int64, error) {
	var items []types.TagResponse
	if err := readJSON(path, &items); err != nil {
		return 0, err
	}
	return service.NewCatalogService(db, logger).LoadTags(ctx, items)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
