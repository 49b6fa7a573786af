package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"microblog_backend/internal/logger"
	"microblog_backend/internal/middleware"
	"microblog_backend/internal/models"
	"microblog_backend/internal/validator"
	"microblog_backend/pkg/apperrors"
)

const maxPerPage = 100

// BaseHandler carries the helpers every handler embeds.
type BaseHandler struct {
	validator      *validator.Validator
	defaultPerPage int
}

func NewBaseHandler(v *validator.Validator, defaultPerPage int) *BaseHandler {
	return &BaseHandler{
		validator:      v,
		defaultPerPage: defaultPerPage,
	}
}

// GetDB extracts the request-scoped *gorm.DB (pool or transaction).
func (h *BaseHandler) GetDB(c *gin.Context) *gorm.DB {
	return middleware.RequestDB(c)
}

// BindAndValidateJSON binds the JSON body into obj and validates it.
// Writes the error response and returns false on failure.
func (h *BaseHandler) BindAndValidateJSON(c *gin.Context, obj interface{}) bool {
	ctx := c.Request.Context()

	if err := c.ShouldBindJSON(obj); err != nil {
		logger.CtxWarn(ctx, "failed to bind JSON body", "error", err.Error(), "path", c.Request.URL.Path)
		apperrors.HandleError(c, apperrors.NewBadRequestError("invalid request body"))
		return false
	}

	if err := h.validator.Validate(obj); err != nil {
		if vErr, ok := err.(*validator.ValidationError); ok {
			logger.CtxWarn(ctx, "validation failed", "errors", vErr.Errors, "path", c.Request.URL.Path)
			apperrors.HandleError(c, apperrors.ValidationError(vErr.Error()))
		} else {
			logger.CtxWithError(ctx, "internal validator error", err, "path", c.Request.URL.Path)
			apperrors.HandleError(c, apperrors.InternalError(err))
		}
		return false
	}
	return true
}

// HandleServiceError maps a service error onto the response.
func (h *BaseHandler) HandleServiceError(c *gin.Context, err error) {
	ctx := c.Request.Context()

	if appErr, ok := apperrors.AsAppError(err); ok {
		if appErr.HTTPCode >= 500 {
			logger.CtxWithError(ctx, "internal server error", err, "path", c.Request.URL.Path)
		} else {
			logger.CtxWarn(ctx, "service error", "error", appErr.Message, "path", c.Request.URL.Path)
		}
		apperrors.HandleError(c, appErr)
		return
	}

	logger.CtxWithError(ctx, "internal server error", err, "path", c.Request.URL.Path)
	apperrors.HandleError(c, apperrors.InternalError(err))
}

// RequireCurrentUser fetches the authenticated user or writes a 401.
func (h *BaseHandler) RequireCurrentUser(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("user not authenticated"))
		return nil, false
	}
	return user, true
}

// ParsePagination reads page and per_page query parameters, clamping
// per_page to the API maximum.
func (h *BaseHandler) ParsePagination(c *gin.Context) (page, perPage int) {
	page = parseQueryInt(c, "page", 1)
	if page <= 0 {
		page = 1
	}

	perPage = parseQueryInt(c, "per_page", h.defaultPerPage)
	if perPage <= 0 {
		perPage = h.defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

// ParseParamID parses a numeric path parameter.
func (h *BaseHandler) ParseParamID(c *gin.Context, key string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(key), 10, 64)
	if err != nil || value == 0 {
		apperrors.HandleError(c, apperrors.NewBadRequestError("invalid path parameter: "+key))
		return 0, false
	}
	return uint(value), true
}

func parseQueryInt(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.Query(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
