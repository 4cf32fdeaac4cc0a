// Package handler holds the helpers shared by the HTTP handlers in its
// subpackages.
package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/orms-api/internal/middleware"
	"github.com/jwalitptl/orms-api/internal/model"
	apperrors "github.com/jwalitptl/orms-api/pkg/errors"
	"github.com/jwalitptl/orms-api/pkg/validator"
)

// BindJSON decodes the body into req. On failure it records a bad request
// error describing the first invalid field and returns false.
func BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		msg := validator.Describe(err)
		if errors.Is(err, io.EOF) {
			msg = "Request body is required"
		}
		c.Error(apperrors.NewBadRequest(msg, err))
		return false
	}
	return true
}

// BindQuery decodes query parameters into req.
func BindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.Error(apperrors.NewBadRequest(validator.Describe(err), err))
		return false
	}
	return true
}

// Auth returns the caller set by the auth middleware, or records an
// unauthorized error.
func Auth(c *gin.Context) (model.AuthContext, bool) {
	auth, ok := middleware.GetAuth(c)
	if !ok {
		c.Error(apperrors.Unauthorized("Authentication token is missing", nil))
	}
	return auth, ok
}

// List returns items, or an empty slice so the body is [] rather than null.
func List[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
