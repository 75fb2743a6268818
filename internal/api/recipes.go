package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/foodgram/backend/internal/middleware"
	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/service"
	"github.com/foodgram/backend/internal/types"
)

const shoppingListFile = "shopping_list.txt"

type RecipeHandler struct {
	recipes      *service.RecipeService
	favorites    *service.MembershipService[models.Favorite, *models.Favorite]
	cart         *service.MembershipService[models.ShoppingCartItem, *models.ShoppingCartItem]
	shoppingList *service.ShoppingListService
	pages        pager
	createLimit  gin.HandlerFunc
}

func NewRecipeHandler(
	recipes *service.RecipeService,
	favorites *service.MembershipService[models.Favorite, *models.Favorite],
	cart *service.MembershipService[models.ShoppingCartItem, *models.ShoppingCartItem],
	shoppingList *service.ShoppingListService,
	pages pager,
) *RecipeHandler {
	return &RecipeHandler{
		recipes:      recipes,
		favorites:    favorites,
		cart:         cart,
		shoppingList: shoppingList,
		pages:        pages,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	create := []gin.HandlerFunc{middleware.RequireAuth()}
	if h.createLimit != nil {
		create = append(create, h.createLimit)
	}

	recipes := router.Group("/recipes")
	{
		recipes.GET("", h.List)
		recipes.POST("", append(create, h.Create)...)
		recipes.GET("/download_shopping_cart", middleware.RequireAuth(), h.DownloadShoppingCart)
		recipes.GET("/:id", h.Get)
		recipes.PATCH("/:id", middleware.RequireAuth(), h.Update)
		recipes.DELETE("/:id", middleware.RequireAuth(), h.Delete)
		recipes.POST("/:id/favorite", middleware.RequireAuth(), h.addTo(h.favorites))
		recipes.DELETE("/:id/favorite", middleware.RequireAuth(), h.removeFrom(h.favorites))
		recipes.POST("/:id/shopping_cart", middleware.RequireAuth(), h.addTo(h.cart))
		recipes.DELETE("/:id/shopping_cart", middleware.RequireAuth(), h.removeFrom(h.cart))
	}
}

func (h *RecipeHandler) List(c *gin.Context) {
	req, err := h.pages.request(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	filter, err := recipeFilter(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	page, err := h.recipes.List(c.Request.Context(), middleware.ActorFrom(c), filter, req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, paginate(h.pages, c, req, page))
}

func (h *RecipeHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	recipe, err := h.recipes.Get(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) Create(c *gin.Context) {
	var req types.RecipeRequest
	if !bindJSON(c, &req) {
		return
	}

	recipe, err := h.recipes.Create(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

func (h *RecipeHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req types.RecipeRequest
	if !bindJSON(c, &req) {
		return
	}

	recipe, err := h.recipes.Update(c.Request.Context(), middleware.ActorFrom(c), id, req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.recipes.Delete(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		_ = c.Error(err)
		return
	}
	noContent(c)
}

// membership is the part of MembershipService the toggle handlers use.
type membership interface {
	Add(ctx context.Context, actor service.Actor, recipeID uint) (*types.RecipeShort, error)
	Remove(ctx context.Context, actor service.Actor, recipeID uint) error
}

func (h *RecipeHandler) addTo(list membership) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		recipe, err := list.Add(c.Request.Context(), middleware.ActorFrom(c), id)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, recipe)
	}
}

func (h *RecipeHandler) removeFrom(list membership) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		if err := list.Remove(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
			_ = c.Error(err)
			return
		}
		noContent(c)
	}
}

// DownloadShoppingCart returns the aggregated list as a text attachment, or
// as JSON with ?format=json.
func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	lines, err := h.shoppingList.Lines(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, lines)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+shoppingListFile+`"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(service.RenderText(lines)))
}
