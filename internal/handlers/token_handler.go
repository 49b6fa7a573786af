package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"microblog_backend/internal/middleware"
	"microblog_backend/internal/services"
	"microblog_backend/internal/services/dto"
)

type TokenHandler struct {
	*BaseHandler
	tokenService services.TokenService
	authService  services.AuthService
	userService  services.UserService
}

func NewTokenHandler(base *BaseHandler, tokenService services.TokenService, authService services.AuthService, userService services.UserService) *TokenHandler {
	return &TokenHandler{
		BaseHandler:  base,
		tokenService: tokenService,
		authService:  authService,
		userService:  userService,
	}
}

// RegisterRoutes wires the token lifecycle endpoints. Issuance is the
// only endpoint accepting Basic auth; revocation requires the token.
func (h *TokenHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/tokens", middleware.BasicAuthMiddleware(h.authService), h.IssueToken)
	rg.DELETE("/tokens", middleware.TokenAuthMiddleware(h.tokenService, h.userService), h.RevokeToken)
}

func (h *TokenHandler) IssueToken(c *gin.Context) {
	user, ok := h.RequireCurrentUser(c)
	if !ok {
		return
	}

	token, err := h.tokenService.IssueOrReuse(h.GetDB(c), user)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TokenResponse{Token: token})
}

func (h *TokenHandler) RevokeToken(c *gin.Context) {
	user, ok := h.RequireCurrentUser(c)
	if !ok {
		return
	}

	if err := h.tokenService.Revoke(h.GetDB(c), user); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
