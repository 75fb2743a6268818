package api

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.openly.dev/pointy"

	"github.com/foodgram/backend/config"
	"github.com/foodgram/backend/internal/service"
	"github.com/foodgram/backend/internal/types"
)

// maxOffset bounds (page-1)*limit so the offset stays representable by every driver.
const maxOffset = math.MaxInt32

// pager reads page/limit/recipes_limit parameters and builds DRF style
// paginated bodies with absolute next/previous links.
type pager struct {
	baseURL string
	pages   config.Pagination
	recipes config.Recipes
}

func newPager(baseURL string, pages config.Pagination, recipes config.Recipes) pager {
	return pager{baseURL: strings.TrimRight(baseURL, "/"), pages: pages, recipes: recipes}
}

func (p pager) request(c *gin.Context) (types.PageRequest, error) {
	req := types.PageRequest{Page: 1, Limit: p.pages.DefaultLimit}
	v := &service.ValidationError{}

	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			v.Add("page", "must be a positive integer")
		}
		req.Page = n
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			v.Add("limit", "must be a positive integer")
		}
		req.Limit = min(n, p.pages.MaxLimit)
	}
	if req.Page > 1 && req.Limit > 0 && req.Page-1 > maxOffset/req.Limit {
		v.Add("page", "page is out of range")
	}
	return req, v.Err()
}

// recipesLimit caps the recipe preview embedded in subscription payloads.
func (p pager) recipesLimit(c *gin.Context) (int, error) {
	raw := c.Query("recipes_limit")
	if raw == "" {
		return p.recipes.DefaultRecipesLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		v := &service.ValidationError{}
		v.Add("recipes_limit", "must be a non-negative integer")
		return 0, v.Err()
	}
	return min(n, p.recipes.MaxRecipesLimit), nil
}

func paginate[T any](p pager, c *gin.Context, req types.PageRequest, page *types.Page[T]) types.PaginatedResponse[T] {
	resp := types.PaginatedResponse[T]{Count: page.Count, Results: page.Items}
	if int64(req.Offset()+len(page.Items)) < page.Count {
		resp.Next = pointy.String(p.link(c, req.Page+1))
	}
	if req.Page > 1 {
		resp.Previous = pointy.String(p.link(c, req.Page-1))
	}
	return resp
}

func (p pager) link(c *gin.Context, page int) string {
	query := c.Request.URL.Query()
	if page <= 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(page))
	}

	base := p.baseURL
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + c.Request.Host
	}

	u := url.URL{Path: c.Request.URL.Path, RawQuery: query.Encode()}
	return base + u.String()
}

// pathID parses a positive numeric path parameter; anything else is a 404.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		_ = c.Error(service.ErrNotFound)
		return 0, false
	}
	return uint(id), true
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return false
	}
	return true
}

func truthy(raw string) bool {
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func recipeFilter(c *gin.Context) (types.RecipeFilter, error) {
	filter := types.RecipeFilter{
		IsFavorited:      truthy(c.Query("is_favorited")),
		IsInShoppingCart: truthy(c.Query("is_in_shopping_cart")),
	}
	if raw := c.Query("author"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			v := &service.ValidationError{}
			v.Add("author", "must be a user id")
			return filter, v.Err()
		}
		filter.Author = pointy.Uint(uint(id))
	}
	for _, raw := range c.QueryArray("tags") {
		for _, slug := range strings.Split(raw, ",") {
			if slug = strings.TrimSpace(slug); slug != "" {
				filter.Tags = append(filter.Tags, slug)
			}
		}
	}
	return filter, nil
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
