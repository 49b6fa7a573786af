package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"microblog_backend/internal/middleware"
	"microblog_backend/internal/services"
	"microblog_backend/internal/services/dto"
	"microblog_backend/pkg/apperrors"
)

type UserHandler struct {
	*BaseHandler
	userService  services.UserService
	authService  services.AuthService
	tokenService services.TokenService
}

func NewUserHandler(base *BaseHandler, userService services.UserService, authService services.AuthService, tokenService services.TokenService) *UserHandler {
	return &UserHandler{
		BaseHandler:  base,
		userService:  userService,
		authService:  authService,
		tokenService: tokenService,
	}
}

func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup) {
	// Registration is the one open endpoint: a new user has no credentials.
	rg.POST("/users", h.CreateUser)

	users := rg.Group("/users")
	users.Use(middleware.TokenAuthMiddleware(h.tokenService, h.userService))
	{
		users.GET("", h.ListUsers)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id", h.UpdateUser)
		users.GET("/:id/followers", h.GetFollowers)
		users.GET("/:id/followed", h.GetFollowed)
		users.POST("/:id/follow", h.FollowUser)
		users.DELETE("/:id/follow", h.UnfollowUser)
	}
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req dto.RegisterRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	db := h.GetDB(c)
	user, err := h.authService.Register(db, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	resp, err := h.userService.Get(db, user.ID, true)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("/api/users/%d", user.ID))
	c.JSON(http.StatusCreated, resp)
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	page, perPage := h.ParsePagination(c)

	collection, err := h.userService.List(h.GetDB(c), page, perPage)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, collection)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}
	current, ok := h.RequireCurrentUser(c)
	if !ok {
		return
	}

	resp, err := h.userService.Get(h.GetDB(c), id, current.ID == id)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}
	current, ok := h.RequireCurrentUser(c)
	if !ok {
		return
	}

	// Users may only modify themselves.
	if current.ID != id {
		apperrors.HandleError(c, apperrors.NewForbiddenError("you can only modify your own account"))
		return
	}

	var req dto.UpdateUserRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	resp, err := h.userService.Update(h.GetDB(c), current, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) GetFollowers(c *gin.Context) {
	id, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}
	page, perPage := h.ParsePagination(c)

	collection, err := h.userService.Followers(h.GetDB(c), id, page, perPage)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, collection)
}

func (h *UserHandler) GetFollowed(c *gin.Context) {
	id, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}
	page, perPage := h.ParsePagination(c)

	collection, err := h.userService.Followed(h.GetDB(c), id, page, perPage)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, collection)
}

func (h *UserHandler) FollowUser(c *gin.Context) {
	id, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}
	current, ok := h.RequireCurrentUser(c)
	if !ok {
		return
	}

	if err := h.userService.Follow(h.GetDB(c), current, id); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *UserHandler) UnfollowUser(c *gin.Context) {
	id, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}
	current, ok := h.RequireCurrentUser(c)
	if !ok {
		return
	}

	if err := h.userService.Unfollow(h.GetDB(c), current, id); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
