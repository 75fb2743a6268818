package service

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/types"
)

// ShoppingListService sums ingredient amounts over the recipes in a user's cart.
type ShoppingListService struct {
	db *gorm.DB
}

func NewShoppingListService(db *gorm.DB) *ShoppingListService {
	return &ShoppingListService{db: db}
}

// Lines returns one line per ingredient, ordered by name then unit. An
// empty cart gives an empty list.
func (s *ShoppingListService) Lines(ctx context.Context, actor Actor) ([]types.ShoppingListLine, error) {
	if err := requireAuth(actor); err != nil {
		return nil, err
	}

	lines := []types.ShoppingListLine{}
	err := s.db.WithContext(ctx).
		Table("recipe_ingredients AS ri").
		Select("i.name AS name, i.measurement_unit AS measurement_unit, SUM(ri.amount) AS amount").
		Joins("JOIN recipes AS r ON r.id = ri.recipe_id").
		Joins("JOIN shopping_cart_items AS sc ON sc.recipe_id = r.id").
		Joins("JOIN ingredients AS i ON i.id = ri.ingredient_id").
		Where("sc.user_id = ?", actor.UserID).
		Group("i.id, i.name, i.measurement_unit").
		Order("i.name, i.measurement_unit").
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// RenderText formats lines as "name: total unit", one per line.
func RenderText(lines []types.ShoppingListLine) string {
	var b strings.Builder
	for _, line := range lines {
		fmt.Fprintf(&b, "%s: %d %s\n", line.Name, line.Amount, line.MeasurementUnit)
	}
	return b.String()
}
