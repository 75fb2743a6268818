package testhelpers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/service"
)

// TestPassword is the password of every fixture user.
const TestPassword = "password123"

// TestImage is a 1x1 PNG as a data URI.
const TestImage = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	return createUser(t, db, username, models.RoleUser)
}

func CreateAdmin(t *testing.T, db *gorm.DB, username string) *models.User {
	return createUser(t, db, username, models.RoleAdmin)
}

func createUser(t *testing.T, db *gorm.DB, username, role string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		FirstName:    "Test",
		LastName:     username,
		PasswordHash: string(hash),
		Role:         role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func CreateTag(t *testing.T, db *gorm.DB, name, slug string) *models.Tag {
	t.Helper()

	tag := &models.Tag{Name: name, Color: "#E26C2D", Slug: slug}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

func CreateIngredient(t *testing.T, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()

	ingredient := &models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, db.Create(ingredient).Error)
	return ingredient
}

// RecipeFixture describes a recipe written straight to the store.
type RecipeFixture struct {
	Name        string
	PubDate     time.Time
	Tags        []*models.Tag
	Ingredients map[*models.Ingredient]int
}

func CreateRecipe(t *testing.T, db *gorm.DB, author *models.User, f RecipeFixture) *models.Recipe {
	t.Helper()

	if f.Name == "" {
		f.Name = "Recipe"
	}
	recipe := &models.Recipe{
		Name:        f.Name,
		Text:        "Mix and cook.",
		CookingTime: 10,
		Image:       "recipes/fixture.png",
		PubDate:     f.PubDate,
		AuthorID:    author.ID,
	}
	require.NoError(t, db.Omit("Author", "Tags", "Ingredients").Create(recipe).Error)

	for _, tag := range f.Tags {
		require.NoError(t, db.Exec("INSERT INTO recipe_tags (recipe_id, tag_id) VALUES (?, ?)", recipe.ID, tag.ID).Error)
	}
	for ingredient, amount := range f.Ingredients {
		row := &models.RecipeIngredient{RecipeID: recipe.ID, IngredientID: ingredient.ID, Amount: amount}
		require.NoError(t, db.Omit("Ingredient").Create(row).Error)
	}
	return recipe
}

func AddFavorite(t *testing.T, db *gorm.DB, user *models.User, recipe *models.Recipe) {
	t.Helper()
	require.NoError(t, db.Omit("User", "Recipe").Create(&models.Favorite{UserID: user.ID, RecipeID: recipe.ID}).Error)
}

func AddToCart(t *testing.T, db *gorm.DB, user *models.User, recipe *models.Recipe) {
	t.Helper()
	require.NoError(t, db.Omit("User", "Recipe").Create(&models.ShoppingCartItem{UserID: user.ID, RecipeID: recipe.ID}).Error)
}

func Follow(t *testing.T, db *gorm.DB, user, author *models.User) {
	t.Helper()
	require.NoError(t, db.Omit("User", "Author").Create(&models.Follow{UserID: user.ID, AuthorID: author.ID}).Error)
}

func ActorFor(user *models.User) service.Actor {
	return service.Actor{UserID: user.ID, IsAdmin: user.IsAdmin()}
}

// MockAuthenticator is a mock implementation of the middleware Authenticator.
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, token string) (service.Actor, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(service.Actor), args.Error(1)
}

// MemoryImageStore keeps images in a map.
type MemoryImageStore struct {
	Objects map[string][]byte
	seq     int
}

func NewMemoryImageStore() *MemoryImageStore {
	return &MemoryImageStore{Objects: make(map[string][]byte)}
}

func (s *MemoryImageStore) Save(_ context.Context, img *service.DecodedImage) (string, error) {
	s.seq++
	key := fmt.Sprintf("recipes/%d%s", s.seq, img.Extension)
	s.Objects[key] = img.Data
	return key, nil
}

func (s *MemoryImageStore) Delete(_ context.Context, key string) error {
	delete(s.Objects, key)
	return nil
}

func (s *MemoryImageStore) URL(key string) string {
	return "http://media.test/" + key
}
