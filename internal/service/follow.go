package service

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/database"
	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/types"
)

type FollowService struct {
	db      *gorm.DB
	present presenter
	logger  *zap.Logger
}

func NewFollowService(db *gorm.DB, images ImageStore, logger *zap.Logger) *FollowService {
	return &FollowService{db: db, present: presenter{db: db, images: images}, logger: logger}
}

// Subscribe makes the actor follow authorID and returns the author with a
// preview of at most recipesLimit recipes.
func (s *FollowService) Subscribe(ctx context.Context, actor Actor, authorID uint, recipesLimit int) (*types.SubscriptionResponse, error) {
	if err := requireAuth(actor); err != nil {
		return nil, err
	}
	if actor.UserID == authorID {
		return nil, invalid("errors", "you cannot subscribe to yourself")
	}
	db := s.db.WithContext(ctx)

	var author models.User
	if err := db.First(&author, authorID).Error; err != nil {
		return nil, translate(err, "user")
	}

	var count int64
	err := db.Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", actor.UserID, authorID).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, conflict("you are already subscribed to this user")
	}

	follow := models.Follow{UserID: actor.UserID, AuthorID: authorID}
	if err := db.Omit("User", "Author").Create(&follow).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, conflict("you are already subscribed to this user")
		}
		return nil, err
	}

	s.logger.Info("Subscribed", zap.Uint("user_id", actor.UserID), zap.Uint("author_id", authorID))
	return s.subscription(ctx, &author, true, recipesLimit)
}

func (s *FollowService) Unsubscribe(ctx context.Context, actor Actor, authorID uint) error {
	if err := requireAuth(actor); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", actor.UserID, authorID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return kindError{kind: ErrNotFound, msg: "you are not subscribed to this user"}
	}
	return nil
}

// Subscriptions pages through the authors the actor follows, by username.
func (s *FollowService) Subscriptions(ctx context.Context, actor Actor, page types.PageRequest, recipesLimit int) (*types.Page[types.SubscriptionResponse], error) {
	if err := requireAuth(actor); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	followed := func() *gorm.DB {
		return db.Model(&models.User{}).
			Joins("JOIN follows ON follows.author_id = users.id").
			Where("follows.user_id = ?", actor.UserID)
	}

	result := &types.Page[types.SubscriptionResponse]{Items: []types.SubscriptionResponse{}}
	if err := followed().Count(&result.Count).Error; err != nil {
		return nil, err
	}

	var authors []models.User
	err := followed().Order("users.username").Order("users.id").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&authors).Error
	if err != nil {
		return nil, err
	}

	for i := range authors {
		sub, err := s.subscription(ctx, &authors[i], true, recipesLimit)
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, *sub)
	}
	return result, nil
}

func (s *FollowService) subscription(ctx context.Context, author *models.User, subscribed bool, recipesLimit int) (*types.SubscriptionResponse, error) {
	db := s.db.WithContext(ctx)
	resp := &types.SubscriptionResponse{
		UserResponse: s.present.user(author, subscribed),
		Recipes:      []types.RecipeShort{},
	}

	if err := db.Model(&models.Recipe{}).Where("author_id = ?", author.ID).Count(&resp.RecipesCount).Error; err != nil {
		return nil, err
	}
	if recipesLimit <= 0 || resp.RecipesCount == 0 {
		return resp, nil
	}

	var recipes []models.Recipe
	err := db.Where("author_id = ?", author.ID).
		Order("pub_date DESC").Order("id DESC").
		Limit(recipesLimit).
		Find(&recipes).Error
	if err != nil {
		return nil, err
	}
	for i := range recipes {
		resp.Recipes = append(resp.Recipes, s.present.recipeShort(&recipes[i]))
	}
	return resp, nil
}
