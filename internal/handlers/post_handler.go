package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"microblog_backend/internal/middleware"
	"microblog_backend/internal/services"
	"microblog_backend/internal/services/dto"
	"microblog_backend/pkg/apperrors"
)

type PostHandler struct {
	*BaseHandler
	postService  services.PostService
	tokenService services.TokenService
	userService  services.UserService
}

func NewPostHandler(base *BaseHandler, postService services.PostService, tokenService services.TokenService, userService services.UserService) *PostHandler {
	return &PostHandler{
		BaseHandler:  base,
		postService:  postService,
		tokenService: tokenService,
		userService:  userService,
	}
}

func (h *PostHandler) RegisterRoutes(rg *gin.RouterGroup) {
	authed := middleware.TokenAuthMiddleware(h.tokenService, h.userService)

	posts := rg.Group("/posts")
	posts.Use(authed)
	{
		posts.POST("", h.CreatePost)
		posts.GET("", h.ExplorePosts)
		posts.GET("/:id", h.GetPost)
		posts.DELETE("/:id", h.DeletePost)
	}

	rg.GET("/timeline", authed, h.Timeline)
	rg.GET("/search", authed, h.SearchPosts)
}

func (h *PostHandler) CreatePost(c *gin.Context) {
	user, ok := h.RequireCurrentUser(c)
	if !ok {
		return
	}

	var req dto.CreatePostRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	resp, err := h.postService.Create(c.Request.Context(), h.GetDB(c), user, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.Header("Location", resp.Links.Self)
	c.JSON(http.StatusCreated, resp)
}

func (h *PostHandler) GetPost(c *gin.Context) {
	id, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}

	resp, err := h.postService.Get(h.GetDB(c), id)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *PostHandler) DeletePost(c *gin.Context) {
	id, ok := h.ParseParamID(c, "id")
	if !ok {
		return
	}
	user, ok := h.RequireCurrentUser(c)
	if !ok {
		return
	}

	if err := h.postService.Delete(c.Request.Context(), h.GetDB(c), user, id); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *PostHandler) ExplorePosts(c *gin.Context) {
	page, perPage := h.ParsePagination(c)

	collection, err := h.postService.Explore(h.GetDB(c), page, perPage)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, collection)
}

func (h *PostHandler) Timeline(c *gin.Context) {
	user, ok := h.RequireCurrentUser(c)
	if !ok {
		return
	}
	page, perPage := h.ParsePagination(c)

	collection, err := h.postService.Timeline(h.GetDB(c), user.ID, page, perPage)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, collection)
}

func (h *PostHandler) SearchPosts(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		apperrors.HandleError(c, apperrors.NewBadRequestError("missing required query parameter: q"))
		return
	}
	page, perPage := h.ParsePagination(c)

	collection, err := h.postService.Search(c.Request.Context(), h.GetDB(c), query, page, perPage)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, collection)
}
