package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/types"
)

const ingredientBatchSize = 500

var validate = validator.New()

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// CatalogService serves the read-only tag and ingredient catalogs.
type CatalogService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewCatalogService(db *gorm.DB, logger *zap.Logger) *CatalogService {
	return &CatalogService{db: db, logger: logger}
}

func (s *CatalogService) ListTags(ctx context.Context) ([]types.TagResponse, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("id").Find(&tags).Error; err != nil {
		return nil, err
	}

	out := make([]types.TagResponse, len(tags))
	for i := range tags {
		out[i] = tagResponse(&tags[i])
	}
	return out, nil
}

func (s *CatalogService) GetTag(ctx context.Context, id uint) (*types.TagResponse, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		return nil, translate(err, "tag")
	}
	resp := tagResponse(&tag)
	return &resp, nil
}

// ListIngredients returns ingredients whose name starts with prefix
// (case-sensitive), ordered by name.
func (s *CatalogService) ListIngredients(ctx context.Context, prefix string) ([]types.IngredientResponse, error) {
	q := s.db.WithContext(ctx).Model(&models.Ingredient{})
	if prefix != "" {
		// LIKE can use the pattern index; substr keeps the match
		// case-sensitive on sqlite, where LIKE ignores ASCII case.
		q = q.Where(`name LIKE ? ESCAPE '\'`, likeEscaper.Replace(prefix)+"%").
			Where("substr(name, 1, ?) = ?", utf8.RuneCountInString(prefix), prefix)
	}

	var ingredients []models.Ingredient
	if err := q.Order("name").Order("id").Find(&ingredients).Error; err != nil {
		return nil, err
	}

	out := make([]types.IngredientResponse, len(ingredients))
	for i := range ingredients {
		out[i] = ingredientResponse(&ingredients[i])
	}
	return out, nil
}

func (s *CatalogService) GetIngredient(ctx context.Context, id uint) (*types.IngredientResponse, error) {
	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		return nil, translate(err, "ingredient")
	}
	resp := ingredientResponse(&ingredient)
	return &resp, nil
}

// LoadIngredients inserts ingredients, skipping ones already present, and
// reports how many rows were added.
func (s *CatalogService) LoadIngredients(ctx context.Context, items []types.IngredientResponse) (int64, error) {
	rows := make([]models.Ingredient, 0, len(items))
	for _, item := range items {
		name := strings.TrimSpace(item.Name)
		unit := strings.TrimSpace(item.MeasurementUnit)
		if name == "" || unit == "" {
			continue
		}
		rows = append(rows, models.Ingredient{Name: name, MeasurementUnit: unit})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&rows, ingredientBatchSize)
	if res.Error != nil {
		return 0, res.Error
	}

	s.logger.Info("Loaded ingredients", zap.Int("read", len(items)), zap.Int64("inserted", res.RowsAffected))
	return res.RowsAffected, nil
}

// LoadTags inserts tags, skipping ones whose slug or name already exists.
func (s *CatalogService) LoadTags(ctx context.Context, items []types.TagResponse) (int64, error) {
	rows := make([]models.Tag, 0, len(items))
	v := &ValidationError{}
	for _, item := range items {
		if item.Name == "" || item.Slug == "" {
			v.Add("tags", "name and slug are required")
			continue
		}
		if validate.Var(item.Color, "required,hexcolor") != nil {
			v.Add("tags", "color must be a hex code like #E26C2D")
			continue
		}
		rows = append(rows, models.Tag{Name: item.Name, Color: item.Color, Slug: item.Slug})
	}
	if err := v.Err(); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	return res.RowsAffected, res.Error
}
