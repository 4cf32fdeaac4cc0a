package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/orms-api/internal/model"
	"github.com/jwalitptl/orms-api/internal/repository"
	"github.com/jwalitptl/orms-api/pkg/auth"
	apperrors "github.com/jwalitptl/orms-api/pkg/errors"
	"github.com/jwalitptl/orms-api/pkg/security"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgAccountDisabled    = "Account is disabled"
	msgInvalidToken       = "Invalid or expired token"
)

// LoginResult is an issued token and the user it was issued to.
type LoginResult struct {
	Token string
	User  model.User
}

type Service struct {
	users  repository.UserRepository
	jwtSvc auth.JWTService
	hasher security.PasswordHasher
	now    func() time.Time
}

func NewService(users repository.UserRepository, jwtSvc auth.JWTService, hasher security.PasswordHasher) *Service {
	return &Service{
		users:  users,
		jwtSvc: jwtSvc,
		hasher: hasher,
		now:    time.Now,
	}
}

// Login checks the credentials and issues an access token. Accounts still on
// a legacy digest are moved to bcrypt on their first successful login.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperrors.NewBadRequest("Email and password are required", nil)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized(msgInvalidCredentials, err)
		}
		return nil, apperrors.NewInternal(err)
	}

	if !user.IsActive {
		return nil, apperrors.Unauthorized(msgAccountDisabled, nil)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		log.Warn().Str("username", username).Msg("failed login attempt")
		return nil, apperrors.Unauthorized(msgInvalidCredentials, err)
	}

	if security.IsLegacy(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		return nil, apperrors.NewInternal(err)
	}

	token, err := s.jwtSvc.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}

	log.Info().Int64("user_id", user.ID).Str("role", user.Role).Msg("user logged in")
	return &LoginResult{Token: token, User: *user}, nil
}

func (s *Service) upgradeHash(ctx context.Context, user *model.User, password string) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", user.ID).Msg("legacy password hash kept")
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to upgrade password hash")
		return
	}
	user.PasswordHash = hash
}

// Verify validates a token and returns the caller it identifies.
func (s *Service) Verify(token string) (*model.AuthContext, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized(msgInvalidToken, err)
	}
	return &model.AuthContext{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}
