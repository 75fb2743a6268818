package service

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/types"
)

const maxRecipeNameLength = 200

// RecipeService handles recipe operations
type RecipeService struct {
	db      *gorm.DB
	images  ImageStore
	present presenter
	logger  *zap.Logger
}

// NewRecipeService creates a new RecipeService instance
func NewRecipeService(db *gorm.DB, images ImageStore, logger *zap.Logger) *RecipeService {
	return &RecipeService{
		db:      db,
		images:  images,
		present: presenter{db: db, images: images},
		logger:  logger,
	}
}

// filtered builds a fresh query for the filter; it returns nil when the
// filter cannot match anything.
func (s *RecipeService) filtered(ctx context.Context, actor Actor, filter types.RecipeFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Recipe{})

	if filter.Author != nil {
		q = q.Where("recipes.author_id = ?", *filter.Author)
	}
	if len(filter.Tags) > 0 {
		q = q.Where(`EXISTS (SELECT 1 FROM recipe_tags rt JOIN tags t ON t.id = rt.tag_id
			WHERE rt.recipe_id = recipes.id AND t.slug IN ?)`, filter.Tags)
	}
	if filter.IsFavorited || filter.IsInShoppingCart {
		if !actor.Authenticated() {
			return nil
		}
	}
	if filter.IsFavorited {
		q = q.Where("EXISTS (SELECT 1 FROM favorites f WHERE f.recipe_id = recipes.id AND f.user_id = ?)", actor.UserID)
	}
	if filter.IsInShoppingCart {
		q = q.Where("EXISTS (SELECT 1 FROM shopping_cart_items sc WHERE sc.recipe_id = recipes.id AND sc.user_id = ?)", actor.UserID)
	}
	return q
}

func withDetails(q *gorm.DB) *gorm.DB {
	return q.Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.id") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_ingredients.id") }).
		Preload("Ingredients.Ingredient")
}

// List returns one page of recipes, newest first.
func (s *RecipeService) List(ctx context.Context, actor Actor, filter types.RecipeFilter, page types.PageRequest) (*types.Page[types.RecipeResponse], error) {
	result := &types.Page[types.RecipeResponse]{Items: []types.RecipeResponse{}}

	q := s.filtered(ctx, actor, filter)
	if q == nil {
		return result, nil
	}
	if err := q.Count(&result.Count).Error; err != nil {
		return nil, err
	}

	var recipes []models.Recipe
	err := withDetails(s.filtered(ctx, actor, filter)).
		Order("recipes.pub_date DESC").Order("recipes.id DESC").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&recipes).Error
	if err != nil {
		return nil, err
	}

	items, err := s.present.recipes(ctx, actor, recipes)
	if err != nil {
		return nil, err
	}
	result.Items = items
	return result, nil
}

func (s *RecipeService) load(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := withDetails(s.db.WithContext(ctx)).First(&recipe, id).Error; err != nil {
		return nil, translate(err, "recipe")
	}
	return &recipe, nil
}

func (s *RecipeService) Get(ctx context.Context, actor Actor, id uint) (*types.RecipeResponse, error) {
	recipe, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := s.present.recipes(ctx, actor, []models.Recipe{*recipe})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// validate checks the request against the catalogs and decodes the image
// when present. The image is required unless requireImage is false.
func (s *RecipeService) validate(ctx context.Context, req types.RecipeRequest, requireImage bool) (*DecodedImage, error) {
	db := s.db.WithContext(ctx)
	v := &ValidationError{}

	if req.Name == "" {
		v.Add("name", "this field is required")
	} else if utf8.RuneCountInString(req.Name) > maxRecipeNameLength {
		v.Add("name", fmt.Sprintf("ensure this field has no more than %d characters", maxRecipeNameLength))
	}
	if req.Text == "" {
		v.Add("text", "this field is required")
	}
	if req.CookingTime < 1 {
		v.Add("cooking_time", "cooking time must be at least 1 minute")
	}

	if len(req.Tags) == 0 {
		v.Add("tags", "at least one tag is required")
	} else {
		unique := make(map[uint]struct{}, len(req.Tags))
		for _, id := range req.Tags {
			if _, dup := unique[id]; dup {
				v.Add("tags", fmt.Sprintf("tag %d is repeated", id))
			}
			unique[id] = struct{}{}
		}
		var found int64
		if err := db.Model(&models.Tag{}).Where("id IN ?", keys(unique)).Count(&found).Error; err != nil {
			return nil, err
		}
		if int(found) != len(unique) {
			v.Add("tags", "one or more tags do not exist")
		}
	}

	if len(req.Ingredients) == 0 {
		v.Add("ingredients", "at least one ingredient is required")
	} else {
		unique := make(map[uint]struct{}, len(req.Ingredients))
		for _, item := range req.Ingredients {
			if _, dup := unique[item.ID]; dup {
				v.Add("ingredients", fmt.Sprintf("ingredient %d is repeated", item.ID))
			}
			unique[item.ID] = struct{}{}
			if item.Amount < 1 {
				v.Add("ingredients", fmt.Sprintf("amount of ingredient %d must be at least 1", item.ID))
			}
		}
		var found int64
		if err := db.Model(&models.Ingredient{}).Where("id IN ?", keys(unique)).Count(&found).Error; err != nil {
			return nil, err
		}
		if int(found) != len(unique) {
			v.Add("ingredients", "one or more ingredients do not exist")
		}
	}

	var img *DecodedImage
	switch {
	case req.Image != nil:
		decoded, err := DecodeImage(*req.Image)
		if err != nil {
			v.Add("image", err.Error())
		}
		img = decoded
	case requireImage:
		v.Add("image", "this field is required")
	}

	if err := v.Err(); err != nil {
		return nil, err
	}
	return img, nil
}

func keys(set map[uint]struct{}) []uint {
	out := make([]uint, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

// writeRelations inserts the tag links and ingredient rows of a recipe.
func writeRelations(tx *gorm.DB, recipeID uint, req types.RecipeRequest) error {
	links := make([]map[string]interface{}, len(req.Tags))
	for i, tagID := range req.Tags {
		links[i] = map[string]interface{}{"recipe_id": recipeID, "tag_id": tagID}
	}
	if err := tx.Table("recipe_tags").Create(links).Error; err != nil {
		return err
	}

	rows := make([]models.RecipeIngredient, len(req.Ingredients))
	for i, item := range req.Ingredients {
		rows[i] = models.RecipeIngredient{RecipeID: recipeID, IngredientID: item.ID, Amount: item.Amount}
	}
	return tx.Omit("Ingredient").Create(&rows).Error
}

// Create stores a recipe with its tags and ingredients in one transaction.
func (s *RecipeService) Create(ctx context.Context, actor Actor, req types.RecipeRequest) (*types.RecipeResponse, error) {
	if err := requireAuth(actor); err != nil {
		return nil, err
	}

	img, err := s.validate(ctx, req, true)
	if err != nil {
		return nil, err
	}

	key, err := s.images.Save(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	recipe := models.Recipe{
		Name:        req.Name,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		Image:       key,
		AuthorID:    actor.UserID,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author", "Tags", "Ingredients").Create(&recipe).Error; err != nil {
			return err
		}
		return writeRelations(tx, recipe.ID, req)
	})
	if err != nil {
		s.discardImage(ctx, key)
		return nil, err
	}

	s.logger.Info("Created recipe", zap.Uint("recipe_id", recipe.ID), zap.Uint("author_id", actor.UserID))
	return s.Get(ctx, actor, recipe.ID)
}

// Update replaces the recipe fields and its full tag and ingredient sets.
func (s *RecipeService) Update(ctx context.Context, actor Actor, id uint, req types.RecipeRequest) (*types.RecipeResponse, error) {
	if err := requireAuth(actor); err != nil {
		return nil, err
	}

	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		return nil, translate(err, "recipe")
	}
	if !actor.CanModify(recipe.AuthorID) {
		return nil, ErrForbidden
	}

	img, err := s.validate(ctx, req, false)
	if err != nil {
		return nil, err
	}

	oldKey := recipe.Image
	newKey := oldKey
	if img != nil {
		if newKey, err = s.images.Save(ctx, img); err != nil {
			return nil, fmt.Errorf("failed to store image: %w", err)
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&recipe).Select("name", "text", "cooking_time", "image").Updates(models.Recipe{
			Name:        req.Name,
			Text:        req.Text,
			CookingTime: req.CookingTime,
			Image:       newKey,
		}).Error
		if err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM recipe_tags WHERE recipe_id = ?", recipe.ID).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		return writeRelations(tx, recipe.ID, req)
	})
	if err != nil {
		if newKey != oldKey {
			s.discardImage(ctx, newKey)
		}
		return nil, err
	}
	if newKey != oldKey {
		s.discardImage(ctx, oldKey)
	}

	s.logger.Info("Updated recipe", zap.Uint("recipe_id", recipe.ID), zap.Uint("actor_id", actor.UserID))
	return s.Get(ctx, actor, recipe.ID)
}

// Delete removes the recipe and every row that references it.
func (s *RecipeService) Delete(ctx context.Context, actor Actor, id uint) error {
	if err := requireAuth(actor); err != nil {
		return err
	}

	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		return translate(err, "recipe")
	}
	if !actor.CanModify(recipe.AuthorID) {
		return ErrForbidden
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, dependent := range []interface{}{&models.Favorite{}, &models.ShoppingCartItem{}, &models.RecipeIngredient{}} {
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(dependent).Error; err != nil {
				return err
			}
		}
		if err := tx.Exec("DELETE FROM recipe_tags WHERE recipe_id = ?", recipe.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&recipe).Error
	})
	if err != nil {
		return err
	}

	s.discardImage(ctx, recipe.Image)
	s.logger.Info("Deleted recipe", zap.Uint("recipe_id", recipe.ID), zap.Uint("actor_id", actor.UserID))
	return nil
}

func (s *RecipeService) discardImage(ctx context.Context, key string) {
	if err := s.images.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to delete image", zap.String("key", key), zap.Error(err))
	}
}
