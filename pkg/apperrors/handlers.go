package apperrors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the JSON error envelope: {"error": "Bad Request",
// "message": "please use a different username"}.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HandleError writes err to the response. Non-AppError values are treated
// as internal errors and their details are not exposed to the client.
func HandleError(c *gin.Context, err error) {
	appErr, ok := AsAppError(err)
	if !ok {
		appErr = InternalError(err)
	}

	message := appErr.Message
	if appErr.HTTPCode >= http.StatusInternalServerError {
		message = ""
	}

	c.AbortWithStatusJSON(appErr.HTTPCode, ErrorResponse{
		Error:   http.StatusText(appErr.HTTPCode),
		Message: message,
	})
}

// AsAppError attempts to interpret err as an *AppError.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
