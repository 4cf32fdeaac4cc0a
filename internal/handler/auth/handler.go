package auth

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/orms-api/internal/handler"
	"github.com/jwalitptl/orms-api/internal/middleware"
	"github.com/jwalitptl/orms-api/internal/model"
	authsvc "github.com/jwalitptl/orms-api/internal/service/auth"
	"github.com/jwalitptl/orms-api/pkg/httputil"
)

type Service interface {
	Login(ctx context.Context, username, password string) (*authsvc.LoginResult, error)
	Verify(token string) (*model.AuthContext, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.GET("/verify", h.Verify)
	}
}

type loginUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type loginResponse struct {
	Token string    `json:"token"`
	User  loginUser `json:"user"`
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	username := req.Email
	if username == "" {
		username = req.Username
	}

	result, err := h.service.Login(c.Request.Context(), username, req.Password)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Token: result.Token,
		User: loginUser{
			ID:    strconv.FormatInt(result.User.ID, 10),
			Email: result.User.Username,
			Name:  result.User.Username,
			Role:  result.User.Role,
		},
	})
}

type verifyUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type verifyResponse struct {
	Valid bool        `json:"valid"`
	User  *verifyUser `json:"user,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Verify reports whether the bearer token is still valid. Failures answer
// with {valid: false} rather than the plain error body.
func (h *Handler) Verify(c *gin.Context) {
	token, msg, ok := middleware.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		c.JSON(http.StatusUnauthorized, verifyResponse{Error: msg})
		return
	}

	auth, err := h.service.Verify(token)
	if err != nil {
		_, msg := httputil.Status(err)
		c.JSON(http.StatusUnauthorized, verifyResponse{Error: msg})
		return
	}

	c.JSON(http.StatusOK, verifyResponse{
		Valid: true,
		User: &verifyUser{
			ID:       strconv.FormatInt(auth.UserID, 10),
			Username: auth.Username,
			Role:     auth.Role,
		},
	})
}
