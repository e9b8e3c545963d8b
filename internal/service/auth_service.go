package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/repository"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

// AuthService coordinates login and password flows.
type AuthService struct {
	store      repository.Store
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(store repository.Store, tokens *auth.TokenManager, bcryptCost int, logger *zap.Logger) *AuthService {
	return &AuthService{store: store, tokenMgr: tokens, bcryptCost: bcryptCost, logger: nopLogger(logger)}
}

// LoginInput carries credentials.
type LoginInput struct {
	Username string `validate:"required,notblank"`
	Password string `validate:"required"`
}

// LoginResult is an issued access token.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// ChangePasswordInput replaces the caller's password.
type ChangePasswordInput struct {
	CurrentPassword string `validate:"required"`
	NewPassword     string `validate:"required,min=8,max=72"`
}

// Login authenticates a user and issues a token. Unknown users, inactive
// users and wrong passwords yield the same error.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	username := normalizeUsername(input.Username)

	user, err := s.store.Repositories().Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if !user.Active {
		s.logger.Info("login rejected for inactive user", zap.String("user_id", user.ID))
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(user.PasswordHash, input.Password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("user logged in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return &LoginResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// ChangePassword verifies the current password before storing the new one.
func (s *AuthService) ChangePassword(ctx context.Context, actor domain.Actor, input ChangePasswordInput) error {
	if err := validateInput(input); err != nil {
		return err
	}
	return s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		user, err := repos.Users.GetByID(ctx, actor.ID)
		if err != nil {
			return mapRepoError(err, "user", map[string]any{"user_id": actor.ID})
		}
		if err := auth.ComparePassword(user.PasswordHash, input.CurrentPassword); err != nil {
			return apperrors.NewUnauthorized("current password is incorrect")
		}
		hash, err := auth.HashPassword(input.NewPassword, s.bcryptCost)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		user.PasswordHash = hash
		return apperrors.MapError(repos.Users.Update(ctx, user))
	})
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
