package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/foodgram/backend/internal/middleware"
	"github.com/foodgram/backend/internal/service"
	"github.com/foodgram/backend/internal/types"
)

type UserHandler struct {
	auth    *service.AuthService
	users   *service.UserService
	follows *service.FollowService
	pages   pager
}

func NewUserHandler(auth *service.AuthService, users *service.UserService, follows *service.FollowService, pages pager) *UserHandler {
	return &UserHandler{auth: auth, users: users, follows: follows, pages: pages}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.GET("", h.List)
		users.POST("", h.Register)
		users.GET("/me", middleware.RequireAuth(), h.Me)
		users.POST("/set_password", middleware.RequireAuth(), h.SetPassword)
		users.GET("/subscriptions", middleware.RequireAuth(), h.Subscriptions)
		users.GET("/:id", h.Get)
		users.POST("/:id/subscribe", middleware.RequireAuth(), h.Subscribe)
		users.DELETE("/:id/subscribe", middleware.RequireAuth(), h.Unsubscribe)
	}
}

func (h *UserHandler) List(c *gin.Context) {
	req, err := h.pages.request(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	page, err := h.users.List(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, paginate(h.pages, c, req, page))
}

func (h *UserHandler) Register(c *gin.Context) {
	var req types.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, types.CreatedUserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	user, err := h.users.Get(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.users.Me(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	var req types.SetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.auth.SetPassword(c.Request.Context(), middleware.ActorFrom(c), req); err != nil {
		_ = c.Error(err)
		return
	}
	noContent(c)
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	req, err := h.pages.request(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	limit, err := h.pages.recipesLimit(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	page, err := h.follows.Subscriptions(c.Request.Context(), middleware.ActorFrom(c), req, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, paginate(h.pages, c, req, page))
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit, err := h.pages.recipesLimit(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	sub, err := h.follows.Subscribe(c.Request.Context(), middleware.ActorFrom(c), id, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.follows.Unsubscribe(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		_ = c.Error(err)
		return
	}
	noContent(c)
}
