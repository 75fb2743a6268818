package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/foodgram/backend/config"
	"github.com/foodgram/backend/internal/api"
	"github.com/foodgram/backend/internal/middleware"
	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/testhelpers"
	"github.com/foodgram/backend/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type APISuite struct {
	suite.Suite
	db     *gorm.DB
	images *testhelpers.MemoryImageStore
	router http.Handler

	author *models.User
	reader *models.User
	tag    *models.Tag
	eggs   *models.Ingredient
	milk   *models.Ingredient
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func testConfig() *config.Config {
	return &config.Config{
		Server:     config.Server{BaseURL: "http://foodgram.test", AllowedOrigins: []string{"*"}},
		Auth:       config.Auth{SecretKey: "test-secret", TokenTTL: time.Hour},
		Pagination: config.Pagination{DefaultLimit: 6, MaxLimit: 100},
		Recipes:    config.Recipes{DefaultRecipesLimit: 6, MaxRecipesLimit: 100},
	}
}

func (suite *APISuite) SetupTest() {
	t := suite.T()
	suite.db = testhelpers.SetupSqliteDB(t)
	suite.images = testhelpers.NewMemoryImageStore()
	suite.router = middleware.StripTrailingSlash(api.NewRouter(testConfig(), api.Deps{
		DB:     suite.db,
		Images: suite.images,
		Logger: zaptest.NewLogger(t),
	}))

	suite.author = testhelpers.CreateUser(t, suite.db, "author")
	suite.reader = testhelpers.CreateUser(t, suite.db, "reader")
	suite.tag = testhelpers.CreateTag(t, suite.db, "Breakfast", "breakfast")
	suite.eggs = testhelpers.CreateIngredient(t, suite.db, "eggs", "pcs")
	suite.milk = testhelpers.CreateIngredient(t, suite.db, "milk", "ml")
}

func (suite *APISuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *APISuite) decode(w *httptest.ResponseRecorder, v any) {
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (suite *APISuite) login(user *models.User) string {
	w := suite.do(http.MethodPost, "/api/auth/token/login", "", types.LoginRequest{
		Email:    user.Email,
		Password: testhelpers.TestPassword,
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp types.TokenResponse
	suite.decode(w, &resp)
	return resp.AuthToken
}

func (suite *APISuite) recipeBody(name string) map[string]any {
	return map[string]any{
		"name":         name,
		"text":         "Whisk and fry.",
		"cooking_time": 5,
		"image":        testhelpers.TestImage,
		"tags":         []uint{suite.tag.ID},
		"ingredients": []map[string]any{
			{"id": suite.eggs.ID, "amount": 2},
			{"id": suite.milk.ID, "amount": 100},
		},
	}
}

func (suite *APISuite) TestRegistrationAndSession() {
	w := suite.do(http.MethodPost, "/api/users/", "", map[string]string{
		"email":      "new@example.com",
		"username":   "newbie",
		"first_name": "New",
		"last_name":  "Bie",
		"password":   "longenough",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var created types.CreatedUserResponse
	suite.decode(w, &created)
	suite.Equal("newbie", created.Username)
	suite.NotContains(w.Body.String(), "password")

	w = suite.do(http.MethodPost, "/api/users", "", map[string]string{"email": "bad"})
	suite.Equal(http.StatusBadRequest, w.Code)
	var verr middleware.ErrorResponse
	suite.decode(w, &verr)
	suite.Contains(verr.Fields, "username")
	suite.Contains(verr.Fields, "email")

	w = suite.do(http.MethodPost, "/api/auth/token/login", "", map[string]string{"email": "new@example.com", "password": "longenough"})
	suite.Require().Equal(http.StatusOK, w.Code)
	var token types.TokenResponse
	suite.decode(w, &token)

	w = suite.do(http.MethodGet, "/api/users/me", token.AuthToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var me types.UserResponse
	suite.decode(w, &me)
	suite.Equal(created.ID, me.ID)

	w = suite.do(http.MethodPost, "/api/users/set_password", token.AuthToken, map[string]string{
		"current_password": "wrong-password",
		"new_password":     "evenlonger",
	})
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodPost, "/api/users/set_password", token.AuthToken, map[string]string{
		"current_password": "longenough",
		"new_password":     "evenlonger",
	})
	suite.Equal(http.StatusNoContent, w.Code)

	w = suite.do(http.MethodPost, "/api/auth/token/logout", token.AuthToken, nil)
	suite.Equal(http.StatusNoContent, w.Code)
	w = suite.do(http.MethodGet, "/api/users/me", token.AuthToken, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)

	w = suite.do(http.MethodPost, "/api/auth/token/login", "", map[string]string{"email": "new@example.com", "password": "longenough"})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *APISuite) TestAuthRequired() {
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/users/me"},
		{http.MethodPost, "/api/recipes"},
		{http.MethodGet, "/api/recipes/download_shopping_cart"},
		{http.MethodGet, "/api/users/subscriptions"},
		{http.MethodPost, "/api/recipes/1/favorite"},
		{http.MethodPost, "/api/users/1/subscribe"},
		{http.MethodPost, "/api/auth/token/logout"},
	} {
		w := suite.do(tc.method, tc.path, "", nil)
		suite.Equal(http.StatusUnauthorized, w.Code, tc.path)
	}

	w := suite.do(http.MethodGet, "/api/recipes", "not-a-token", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *APISuite) TestRecipeLifecycle() {
	token := suite.login(suite.author)

	w := suite.do(http.MethodPost, "/api/recipes/", token, suite.recipeBody("Omelette"))
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var recipe types.RecipeResponse
	suite.decode(w, &recipe)
	suite.Equal("Omelette", recipe.Name)
	suite.Equal(suite.author.ID, recipe.Author.ID)
	suite.Len(recipe.Ingredients, 2)
	suite.Contains(recipe.Image, "http://media.test/recipes/")

	path := fmt.Sprintf("/api/recipes/%d", recipe.ID)

	readerToken := suite.login(suite.reader)
	body := suite.recipeBody("Hijacked")
	delete(body, "image")
	w = suite.do(http.MethodPatch, path, readerToken, body)
	suite.Equal(http.StatusForbidden, w.Code)

	body["name"] = "Fluffy omelette"
	w = suite.do(http.MethodPatch, path, token, body)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &recipe)
	suite.Equal("Fluffy omelette", recipe.Name)

	w = suite.do(http.MethodGet, path, "", nil)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.do(http.MethodDelete, path, readerToken, nil)
	suite.Equal(http.StatusForbidden, w.Code)
	w = suite.do(http.MethodDelete, path, token, nil)
	suite.Equal(http.StatusNoContent, w.Code)
	w = suite.do(http.MethodGet, path, "", nil)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Empty(suite.images.Objects)
}

func (suite *APISuite) TestRecipeValidation() {
	token := suite.login(suite.author)
	body := suite.recipeBody("")
	body["cooking_time"] = 0
	body["tags"] = []uint{}

	w := suite.do(http.MethodPost, "/api/recipes", token, body)
	suite.Require().Equal(http.StatusBadRequest, w.Code)
	var resp middleware.ErrorResponse
	suite.decode(w, &resp)
	suite.Contains(resp.Fields, "name")
	suite.Contains(resp.Fields, "cooking_time")
	suite.Contains(resp.Fields, "tags")

	w = suite.do(http.MethodPost, "/api/recipes", token, "not an object")
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodGet, "/api/recipes/abc", "", nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *APISuite) TestRecipeListPagination() {
	t := suite.T()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 8; i++ {
		testhelpers.CreateRecipe(t, suite.db, suite.author, testhelpers.RecipeFixture{
			Name:    fmt.Sprintf("Recipe %d", i),
			PubDate: base.Add(time.Duration(i) * time.Minute),
			Tags:    []*models.Tag{suite.tag},
		})
	}

	w := suite.do(http.MethodGet, "/api/recipes?limit=3", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var page types.PaginatedResponse[types.RecipeResponse]
	suite.decode(w, &page)
	suite.Equal(int64(8), page.Count)
	suite.Require().Len(page.Results, 3)
	suite.Equal("Recipe 7", page.Results[0].Name)
	suite.Require().NotNil(page.Next)
	suite.Equal("http://foodgram.test/api/recipes?limit=3&page=2", *page.Next)
	suite.Nil(page.Previous)

	w = suite.do(http.MethodGet, "/api/recipes?limit=3&page=3", "", nil)
	suite.decode(w, &page)
	suite.Len(page.Results, 2)
	suite.Nil(page.Next)
	suite.Require().NotNil(page.Previous)
	suite.Equal("http://foodgram.test/api/recipes?limit=3&page=2", *page.Previous)

	w = suite.do(http.MethodGet, "/api/recipes?limit=3&page=2", "", nil)
	suite.decode(w, &page)
	suite.Require().NotNil(page.Previous)
	suite.Equal("http://foodgram.test/api/recipes?limit=3", *page.Previous)

	w = suite.do(http.MethodGet, "/api/recipes?page=zero", "", nil)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodGet, "/api/recipes?page=9223372036854775807&limit=100", "", nil)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Contains(w.Body.String(), "page is out of range")

	w = suite.do(http.MethodGet, fmt.Sprintf("/api/recipes?author=%d&tags=breakfast&tags=dinner", suite.reader.ID), "", nil)
	suite.decode(w, &page)
	suite.Equal(int64(0), page.Count)
}

func (suite *APISuite) TestFavoritesAndCart() {
	t := suite.T()
	recipe := testhelpers.CreateRecipe(t, suite.db, suite.author, testhelpers.RecipeFixture{
		Name:        "Pancakes",
		Tags:        []*models.Tag{suite.tag},
		Ingredients: map[*models.Ingredient]int{suite.eggs: 2, suite.milk: 300},
	})
	other := testhelpers.CreateRecipe(t, suite.db, suite.author, testhelpers.RecipeFixture{
		Name:        "Custard",
		Tags:        []*models.Tag{suite.tag},
		Ingredients: map[*models.Ingredient]int{suite.milk: 200},
	})
	token := suite.login(suite.reader)

	for _, list := range []string{"favorite", "shopping_cart"} {
		path := fmt.Sprintf("/api/recipes/%d/%s", recipe.ID, list)
		w := suite.do(http.MethodPost, path, token, nil)
		suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
		var short types.RecipeShort
		suite.decode(w, &short)
		suite.Equal(recipe.ID, short.ID)

		w = suite.do(http.MethodPost, path, token, nil)
		suite.Equal(http.StatusBadRequest, w.Code, list)
	}
	w := suite.do(http.MethodPost, fmt.Sprintf("/api/recipes/%d/shopping_cart", other.ID), token, nil)
	suite.Require().Equal(http.StatusCreated, w.Code)

	w = suite.do(http.MethodGet, "/api/recipes?is_favorited=1", token, nil)
	var page types.PaginatedResponse[types.RecipeResponse]
	suite.decode(w, &page)
	suite.Require().Len(page.Results, 1)
	suite.True(page.Results[0].IsFavorited)
	suite.True(page.Results[0].IsInShoppingCart)

	w = suite.do(http.MethodGet, "/api/recipes?is_favorited=1", "", nil)
	suite.decode(w, &page)
	suite.Equal(int64(0), page.Count)

	w = suite.do(http.MethodGet, "/api/recipes/download_shopping_cart", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(`attachment; filename="shopping_list.txt"`, w.Header().Get("Content-Disposition"))
	suite.Equal("eggs: 2 pcs\nmilk: 500 ml\n", w.Body.String())

	w = suite.do(http.MethodGet, "/api/recipes/download_shopping_cart?format=json", token, nil)
	var lines []types.ShoppingListLine
	suite.decode(w, &lines)
	suite.Len(lines, 2)

	path := fmt.Sprintf("/api/recipes/%d/favorite", recipe.ID)
	suite.Equal(http.StatusNoContent, suite.do(http.MethodDelete, path, token, nil).Code)
	suite.Equal(http.StatusNotFound, suite.do(http.MethodDelete, path, token, nil).Code)
	suite.Equal(http.StatusNotFound, suite.do(http.MethodPost, "/api/recipes/9999/favorite", token, nil).Code)
}

func (suite *APISuite) TestSubscriptions() {
	t := suite.T()
	for i := 0; i < 3; i++ {
		testhelpers.CreateRecipe(t, suite.db, suite.author, testhelpers.RecipeFixture{
			Name: fmt.Sprintf("Dish %d", i),
			Tags: []*models.Tag{suite.tag},
		})
	}
	token := suite.login(suite.reader)
	path := fmt.Sprintf("/api/users/%d/subscribe", suite.author.ID)

	w := suite.do(http.MethodPost, path+"?recipes_limit=2", token, nil)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var sub types.SubscriptionResponse
	suite.decode(w, &sub)
	suite.True(sub.IsSubscribed)
	suite.Equal(int64(3), sub.RecipesCount)
	suite.Len(sub.Recipes, 2)

	suite.Equal(http.StatusBadRequest, suite.do(http.MethodPost, path, token, nil).Code)
	suite.Equal(http.StatusBadRequest, suite.do(http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe", suite.reader.ID), token, nil).Code)
	suite.Equal(http.StatusBadRequest, suite.do(http.MethodGet, "/api/users/subscriptions?recipes_limit=-1", token, nil).Code)

	w = suite.do(http.MethodGet, "/api/users/subscriptions?recipes_limit=1", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var page types.PaginatedResponse[types.SubscriptionResponse]
	suite.decode(w, &page)
	suite.Require().Len(page.Results, 1)
	suite.Len(page.Results[0].Recipes, 1)

	w = suite.do(http.MethodGet, fmt.Sprintf("/api/users/%d", suite.author.ID), token, nil)
	var user types.UserResponse
	suite.decode(w, &user)
	suite.True(user.IsSubscribed)

	w = suite.do(http.MethodGet, fmt.Sprintf("/api/users/%d", suite.author.ID), "", nil)
	suite.decode(w, &user)
	suite.False(user.IsSubscribed)

	suite.Equal(http.StatusNoContent, suite.do(http.MethodDelete, path, token, nil).Code)
	suite.Equal(http.StatusNotFound, suite.do(http.MethodDelete, path, token, nil).Code)
}

func (suite *APISuite) TestUsersList() {
	w := suite.do(http.MethodGet, "/api/users?limit=1", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var page types.PaginatedResponse[types.UserResponse]
	suite.decode(w, &page)
	suite.Equal(int64(2), page.Count)
	suite.Len(page.Results, 1)
	suite.NotNil(page.Next)

	suite.Equal(http.StatusNotFound, suite.do(http.MethodGet, "/api/users/9999", "", nil).Code)
}

func (suite *APISuite) TestCatalog() {
	testhelpers.CreateIngredient(suite.T(), suite.db, "Eggplant", "g")

	w := suite.do(http.MethodGet, "/api/tags/", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var tags []types.TagResponse
	suite.decode(w, &tags)
	suite.Len(tags, 1)

	w = suite.do(http.MethodGet, fmt.Sprintf("/api/tags/%d", suite.tag.ID), "", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal(http.StatusNotFound, suite.do(http.MethodGet, "/api/tags/9999", "", nil).Code)

	w = suite.do(http.MethodGet, "/api/ingredients?name=egg", "", nil)
	var ingredients []types.IngredientResponse
	suite.decode(w, &ingredients)
	suite.Require().Len(ingredients, 1)
	suite.Equal("eggs", ingredients[0].Name)

	w = suite.do(http.MethodGet, fmt.Sprintf("/api/ingredients/%d", suite.milk.ID), "", nil)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *APISuite) TestHealthAndMetrics() {
	w := suite.do(http.MethodGet, "/health", "", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{"status":"healthy"}`, w.Body.String())

	suite.do(http.MethodGet, "/api/tags", "", nil)
	w = suite.do(http.MethodGet, "/metrics", "", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "foodgram_http_requests_total")
}
