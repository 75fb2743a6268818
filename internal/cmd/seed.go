package cmd

import (
	"context"
	"errors"
	"fmt"

	"go.openly.dev/pointy"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/database"
	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/service"
	"github.com/foodgram/backend/internal/types"
)

// demoImage is a 1x1 PNG used for every seeded recipe.
const demoImage = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// DemoPassword is the password of every seeded account.
const DemoPassword = "demopassword123"

var demoUsers = []types.RegisterRequest{
	{Email: "john.doe@example.com", Username: "johndoe", FirstName: "John", LastName: "Doe"},
	{Email: "jane.smith@example.com", Username: "janesmith", FirstName: "Jane", LastName: "Smith"},
	{Email: "sam.cook@example.com", Username: "samcook", FirstName: "Sam", LastName: "Cook"},
}

type SeedDemoCmd struct {
	ConfigFile string `help:"Path to config file" short:"c"`
	Recipes    int    `default:"3" help:"Recipes to create per demo user"`
}

func (s *SeedDemoCmd) Run(ctx *Context) error {
	logger := developmentLogger(ctx.Debug)
	defer logger.Sync() //nolint:errcheck // we don't care about logger sync errors

	conf, db, err := setup(s.ConfigFile, logger)
	if err != nil {
		return err
	}
	defer database.Close(db)

	images, err := imageStore(context.Background(), conf.Storage, logger)
	if err != nil {
		return err
	}

	auth := service.NewAuthService(db, conf.Auth.SecretKey, conf.Auth.TokenTTL, service.NewDBRevoker(db), logger)
	return SeedDemo(context.Background(), db, auth, service.NewRecipeService(db, images, logger), s.Recipes, logger)
}

// SeedDemo creates the demo accounts that do not exist yet and gives each new
// account perRecipe recipes built from the loaded tags and ingredients.
func SeedDemo(ctx context.Context, db *gorm.DB, auth *service.AuthService, recipes *service.RecipeService, perUser int, logger *zap.Logger) error {
	var tags []models.Tag
	if err := db.WithContext(ctx).Order("id").Limit(2).Find(&tags).Error; err != nil {
		return err
	}
	var ingredients []models.Ingredient
	if err := db.WithContext(ctx).Order("id").Limit(3).Find(&ingredients).Error; err != nil {
		return err
	}
	if perUser > 0 && (len(tags) == 0 || len(ingredients) == 0) {
		return errors.New("load tags and ingredients before seeding recipes")
	}

	for _, req := range demoUsers {
		req.Password = DemoPassword
		user, err := auth.Register(ctx, req)
		if errors.Is(err, service.ErrValidation) {
			logger.Info("Skipping existing demo user", zap.String("username", req.Username))
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", req.Username, err)
		}

		actor := service.Actor{UserID: user.ID}
		for i := 1; i <= perUser; i++ {
			recipe := types.RecipeRequest{
				Name:        fmt.Sprintf("%s's dish #%d", user.FirstName, i),
				Text:        "Combine everything and cook until done.",
				CookingTime: 10 * i,
				Image:       pointy.String(demoImage),
			}
			for _, tag := range tags {
				recipe.Tags = append(recipe.Tags, tag.ID)
			}
			for j, ingredient := range ingredients {
				recipe.Ingredients = append(recipe.Ingredients, types.IngredientAmount{ID: ingredient.ID, Amount: (j + 1) * i})
			}
			if _, err := recipes.Create(ctx, actor, recipe); err != nil {
				return fmt.Errorf("failed to create recipe for %s: %w", req.Username, err)
			}
		}
		logger.Info("Seeded demo user", zap.String("username", user.Username), zap.Int("recipes", perUser))
	}
	return nil
}
