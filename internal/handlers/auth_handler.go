package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"microblog_backend/internal/middleware"
	"microblog_backend/internal/services"
	"microblog_backend/internal/services/dto"
)

type AuthHandler struct {
	*BaseHandler
	authService  services.AuthService
	tokenService services.TokenService
	userService  services.UserService
}

func NewAuthHandler(base *BaseHandler, authService services.AuthService, tokenService services.TokenService, userService services.UserService) *AuthHandler {
	return &AuthHandler{
		BaseHandler:  base,
		authService:  authService,
		tokenService: tokenService,
		userService:  userService,
	}
}

// RegisterRoutes wires the credential endpoints. Login and the reset
// pair are rate limited per client IP to slow down guessing.
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	limited := middleware.RateLimitMiddleware(rate.Limit(1), 5)

	auth := rg.Group("/auth")
	{
		auth.POST("/login", limited, h.Login)
		auth.POST("/logout", middleware.TokenAuthMiddleware(h.tokenService, h.userService), h.Logout)
		auth.POST("/reset-password-request", limited, h.RequestPasswordReset)
		auth.POST("/reset-password", limited, h.ResetPassword)
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	db := h.GetDB(c)
	user, err := h.authService.Authenticate(db, req.Username, req.Password)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	token, err := h.tokenService.IssueOrReuse(db, user)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TokenResponse{Token: token})
}

func (h *AuthHandler) Logout(c *gin.Context) {
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

func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req dto.PasswordResetRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	h.authService.RequestPasswordReset(h.GetDB(c), req.Email)

	// Always the same answer, whether or not the address is registered.
	c.JSON(http.StatusOK, gin.H{
		"message": "check your email for the instructions to reset your password",
	})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.PasswordResetConfirm
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	if err := h.authService.ResetPassword(h.GetDB(c), req.Token, req.Password); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "your password has been reset"})
}
