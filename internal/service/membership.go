package service

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/database"
	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/types"
)

// Member is a (user, recipe) flag row such as a favorite or a cart item.
type Member[T any] interface {
	*T
	Bind(userID, recipeID uint)
}

// MembershipService toggles a user's flag on a recipe. The unique
// (user, recipe) index on the backing table settles concurrent adds.
type MembershipService[T any, PT Member[T]] struct {
	db      *gorm.DB
	present presenter
	label   string
	logger  *zap.Logger
}

func NewMembershipService[T any, PT Member[T]](db *gorm.DB, images ImageStore, label string, logger *zap.Logger) *MembershipService[T, PT] {
	return &MembershipService[T, PT]{
		db:      db,
		present: presenter{db: db, images: images},
		label:   label,
		logger:  logger,
	}
}

func NewFavoriteService(db *gorm.DB, images ImageStore, logger *zap.Logger) *MembershipService[models.Favorite, *models.Favorite] {
	return NewMembershipService[models.Favorite](db, images, "favorites", logger)
}

func NewShoppingCartService(db *gorm.DB, images ImageStore, logger *zap.Logger) *MembershipService[models.ShoppingCartItem, *models.ShoppingCartItem] {
	return NewMembershipService[models.ShoppingCartItem](db, images, "shopping cart", logger)
}

func (s *MembershipService[T, PT]) row(userID, recipeID uint) PT {
	row := PT(new(T))
	row.Bind(userID, recipeID)
	return row
}

// Add flags the recipe and returns its short form.
func (s *MembershipService[T, PT]) Add(ctx context.Context, actor Actor, recipeID uint) (*types.RecipeShort, error) {
	if err := requireAuth(actor); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	var count int64
	err := db.Model(PT(new(T))).
		Where("user_id = ? AND recipe_id = ?", actor.UserID, recipeID).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, conflict("recipe is already in " + s.label)
	}

	var recipe models.Recipe
	if err := db.First(&recipe, recipeID).Error; err != nil {
		return nil, translate(err, "recipe")
	}

	if err := db.Omit("User", "Recipe").Create(s.row(actor.UserID, recipeID)).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, conflict("recipe is already in " + s.label)
		}
		return nil, err
	}

	s.logger.Debug("Added recipe", zap.String("list", s.label),
		zap.Uint("user_id", actor.UserID), zap.Uint("recipe_id", recipeID))

	short := s.present.recipeShort(&recipe)
	return &short, nil
}

// Remove clears the flag; a missing row is NotFound.
func (s *MembershipService[T, PT]) Remove(ctx context.Context, actor Actor, recipeID uint) error {
	if err := requireAuth(actor); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", actor.UserID, recipeID).
		Delete(PT(new(T)))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return kindError{kind: ErrNotFound, msg: "recipe is not in " + s.label}
	}
	return nil
}
