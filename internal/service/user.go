package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/types"
)

type UserService struct {
	db      *gorm.DB
	present presenter
}

func NewUserService(db *gorm.DB, images ImageStore) *UserService {
	return &UserService{db: db, present: presenter{db: db, images: images}}
}

func (s *UserService) List(ctx context.Context, actor Actor, page types.PageRequest) (*types.Page[types.UserResponse], error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return nil, err
	}

	var users []models.User
	if err := db.Order("id").Offset(page.Offset()).Limit(page.Limit).Find(&users).Error; err != nil {
		return nil, err
	}

	items, err := s.present.users(ctx, actor, users)
	if err != nil {
		return nil, err
	}
	return &types.Page[types.UserResponse]{Count: count, Items: items}, nil
}

func (s *UserService) Get(ctx context.Context, actor Actor, id uint) (*types.UserResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err, "user")
	}

	items, err := s.present.users(ctx, actor, []models.User{user})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// Me is the authenticated actor's own profile.
func (s *UserService) Me(ctx context.Context, actor Actor) (*types.UserResponse, error) {
	if err := requireAuth(actor); err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, actor.UserID)
}
