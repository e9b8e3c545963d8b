package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/repository"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

// UserService manages staff accounts.
type UserService struct {
	store      repository.Store
	bcryptCost int
	logger     *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(store repository.Store, bcryptCost int, logger *zap.Logger) *UserService {
	return &UserService{store: store, bcryptCost: bcryptCost, logger: nopLogger(logger)}
}

// CreateUserInput registers a staff account.
type CreateUserInput struct {
	Username string      `validate:"required,notblank,min=3,max=50,username"`
	FullName string      `validate:"required,notblank,max=200"`
	Password string      `validate:"required,min=8,max=72"`
	Role     domain.Role `validate:"required,oneof=Teknisi Admin SysAdmin"`
}

// UpdateUserInput changes mutable account fields. Nil fields are untouched.
type UpdateUserInput struct {
	FullName *string      `validate:"omitempty,notblank,max=200"`
	Role     *domain.Role `validate:"omitempty,oneof=Teknisi Admin SysAdmin"`
	Active   *bool
	Password *string `validate:"omitempty,min=8,max=72"`
}

// UserListFilter narrows user listings.
type UserListFilter struct {
	Role       domain.Role
	Active     *bool
	SearchTerm string
}

// Create registers a new account. Only a SysAdmin may create another SysAdmin.
func (s *UserService) Create(ctx context.Context, input CreateUserInput, actor domain.Actor) (*domain.User, error) {
	input.Username = normalizeUsername(input.Username)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if err := checkRoleGrant(actor, input.Role); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Username:     input.Username,
		FullName:     strings.TrimSpace(input.FullName),
		PasswordHash: hash,
		Role:         input.Role,
		Active:       true,
	}
	if err := s.store.Repositories().Users.Create(ctx, user); err != nil {
		return nil, mapRepoError(err, "user", map[string]any{"username": user.Username})
	}
	s.logger.Info("user created",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("created_by", actor.ID))
	return user, nil
}

// Update edits an account. Admins cannot touch SysAdmin accounts and nobody
// may deactivate themselves.
func (s *UserService) Update(ctx context.Context, userID string, input UpdateUserInput, actor domain.Actor) (*domain.User, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var user *domain.User
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		user, err = repos.Users.GetByID(ctx, userID)
		if err != nil {
			return mapRepoError(err, "user", map[string]any{"user_id": userID})
		}
		if user.Role == domain.RoleSysAdmin && actor.Role != domain.RoleSysAdmin {
			return apperrors.NewForbidden("only a SysAdmin may modify a SysAdmin account")
		}
		if input.FullName != nil {
			user.FullName = strings.TrimSpace(*input.FullName)
		}
		if input.Role != nil && *input.Role != user.Role {
			if err := checkRoleGrant(actor, *input.Role); err != nil {
				return err
			}
			user.Role = *input.Role
		}
		if input.Active != nil {
			if !*input.Active && user.ID == actor.ID {
				return apperrors.NewInvalidState("users cannot deactivate themselves", map[string]any{"user_id": user.ID})
			}
			user.Active = *input.Active
		}
		if input.Password != nil {
			hash, err := auth.HashPassword(*input.Password, s.bcryptCost)
			if err != nil {
				return apperrors.NewInternalError(err)
			}
			user.PasswordHash = hash
		}
		return apperrors.MapError(repos.Users.Update(ctx, user))
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user updated", zap.String("user_id", user.ID), zap.String("updated_by", actor.ID))
	return user, nil
}

// Get fetches one account.
func (s *UserService) Get(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.Repositories().Users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err, "user", map[string]any{"user_id": userID})
	}
	return user, nil
}

// List returns a page of accounts.
func (s *UserService) List(ctx context.Context, filter UserListFilter, pagination Pagination) (PageResult[domain.User], error) {
	page := pagination.page()
	users, total, err := s.store.Repositories().Users.List(ctx, repository.UserFilter{
		Role:       filter.Role,
		Active:     filter.Active,
		SearchTerm: filter.SearchTerm,
		Page:       page,
	})
	if err != nil {
		return PageResult[domain.User]{}, apperrors.MapError(err)
	}
	return newPageResult(users, total, page), nil
}

// EnsureAdmin creates the bootstrap SysAdmin when the username is free.
// It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, username, fullName, password string) (bool, error) {
	username = normalizeUsername(username)
	if password == "" {
		return false, apperrors.NewValidationError("validation failed", map[string]any{"password": "required"})
	}
	if _, err := s.store.Repositories().Users.GetByUsername(ctx, username); err == nil {
		return false, nil
	}
	_, err := s.Create(ctx, CreateUserInput{
		Username: username,
		FullName: fullName,
		Password: password,
		Role:     domain.RoleSysAdmin,
	}, domain.Actor{Role: domain.RoleSysAdmin})
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func checkRoleGrant(actor domain.Actor, role domain.Role) error {
	switch actor.Role {
	case domain.RoleSysAdmin:
		return nil
	case domain.RoleAdmin:
		if role == domain.RoleSysAdmin {
			return apperrors.NewForbidden("only a SysAdmin may grant the SysAdmin role")
		}
		return nil
	default:
		return apperrors.NewForbidden("insufficient role")
	}
}
