package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/types"
)

// presenter turns models into API payloads, resolving per-actor flags in
// batches so that a page costs a fixed number of queries.
type presenter struct {
	db     *gorm.DB
	images ImageStore
}

func (p presenter) user(u *models.User, subscribed bool) types.UserResponse {
	return types.UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
}

func (p presenter) recipeShort(r *models.Recipe) types.RecipeShort {
	return types.RecipeShort{
		ID:          r.ID,
		Name:        r.Name,
		Image:       p.images.URL(r.Image),
		CookingTime: r.CookingTime,
	}
}

// subscribedTo returns the subset of authorIDs the actor follows.
func (p presenter) subscribedTo(ctx context.Context, actor Actor, authorIDs []uint) (map[uint]bool, error) {
	set := make(map[uint]bool)
	if !actor.Authenticated() || len(authorIDs) == 0 {
		return set, nil
	}

	var found []uint
	err := p.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND author_id IN ?", actor.UserID, authorIDs).
		Pluck("author_id", &found).Error
	for _, id := range found {
		set[id] = true
	}
	return set, err
}

// flagged returns the subset of recipeIDs the actor has a row for in table.
func (p presenter) flagged(ctx context.Context, actor Actor, table interface{}, recipeIDs []uint) (map[uint]bool, error) {
	set := make(map[uint]bool)
	if !actor.Authenticated() || len(recipeIDs) == 0 {
		return set, nil
	}

	var found []uint
	err := p.db.WithContext(ctx).Model(table).
		Where("user_id = ? AND recipe_id IN ?", actor.UserID, recipeIDs).
		Pluck("recipe_id", &found).Error
	for _, id := range found {
		set[id] = true
	}
	return set, err
}

func (p presenter) users(ctx context.Context, actor Actor, users []models.User) ([]types.UserResponse, error) {
	ids := make([]uint, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	subscribed, err := p.subscribedTo(ctx, actor, ids)
	if err != nil {
		return nil, err
	}

	out := make([]types.UserResponse, len(users))
	for i := range users {
		out[i] = p.user(&users[i], subscribed[users[i].ID])
	}
	return out, nil
}

// recipes expects Author, Tags and Ingredients.Ingredient to be preloaded.
func (p presenter) recipes(ctx context.Context, actor Actor, recipes []models.Recipe) ([]types.RecipeResponse, error) {
	recipeIDs := make([]uint, len(recipes))
	authorIDs := make([]uint, len(recipes))
	for i := range recipes {
		recipeIDs[i] = recipes[i].ID
		authorIDs[i] = recipes[i].AuthorID
	}

	favorited, err := p.flagged(ctx, actor, &models.Favorite{}, recipeIDs)
	if err != nil {
		return nil, err
	}
	inCart, err := p.flagged(ctx, actor, &models.ShoppingCartItem{}, recipeIDs)
	if err != nil {
		return nil, err
	}
	subscribed, err := p.subscribedTo(ctx, actor, authorIDs)
	if err != nil {
		return nil, err
	}

	out := make([]types.RecipeResponse, len(recipes))
	for i := range recipes {
		r := &recipes[i]

		tags := make([]types.TagResponse, len(r.Tags))
		for j, t := range r.Tags {
			tags[j] = tagResponse(&t)
		}

		ingredients := make([]types.RecipeIngredientResponse, len(r.Ingredients))
		for j, ri := range r.Ingredients {
			ingredients[j] = types.RecipeIngredientResponse{
				ID:              ri.IngredientID,
				Name:            ri.Ingredient.Name,
				MeasurementUnit: ri.Ingredient.MeasurementUnit,
				Amount:          ri.Amount,
			}
		}

		out[i] = types.RecipeResponse{
			ID:               r.ID,
			Tags:             tags,
			Author:           p.user(&r.Author, subscribed[r.AuthorID]),
			Ingredients:      ingredients,
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: inCart[r.ID],
			Name:             r.Name,
			Image:            p.images.URL(r.Image),
			Text:             r.Text,
			CookingTime:      r.CookingTime,
		}
	}
	return out, nil
}

func tagResponse(t *models.Tag) types.TagResponse {
	return types.TagResponse{ID: t.ID, Name: t.Name, Color: t.Color, Slug: t.Slug}
}

func ingredientResponse(i *models.Ingredient) types.IngredientResponse {
	return types.IngredientResponse{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}
