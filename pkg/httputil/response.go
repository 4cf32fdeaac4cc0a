package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/orms-api/pkg/errors"
)

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// Status resolves the HTTP status and client message for err. Only
// AppErrors expose their message; anything else is an internal error.
func Status(err error) (int, string) {
	if appErr, ok := errors.As(err); ok {
		if appErr.Code == errors.ErrInternal {
			return http.StatusInternalServerError, appErr.Message
		}
		return appErr.StatusCode(), appErr.Message
	}
	return http.StatusInternalServerError, "internal server error"
}

// RespondWithError writes err as {"error": message}.
func RespondWithError(c *gin.Context, err error) {
	status, message := Status(err)
	c.JSON(status, ErrorBody{Error: message})
}

// AbortWithError writes {"error": message} and stops the handler chain.
func AbortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: message})
}
