package service

import (
	"testing"

	"github.com/spec-kit/repair-service/internal/domain"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

func TestLoginAndChangePassword(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.svc.Auth.Login(env.ctx, LoginInput{Username: " Tech1 ", Password: "password123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := env.svc.Tokens.ParseToken(result.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != env.tech.ID || claims.Role != domain.RoleTechnician {
		t.Fatalf("unexpected claims %+v", claims)
	}

	_, err = env.svc.Auth.Login(env.ctx, LoginInput{Username: "tech1", Password: "nope"})
	expectCode(t, err, apperrors.CodeUnauthorized)
	_, err = env.svc.Auth.Login(env.ctx, LoginInput{Username: "ghost", Password: "password123"})
	expectCode(t, err, apperrors.CodeUnauthorized)

	err = env.svc.Auth.ChangePassword(env.ctx, env.techActor(), ChangePasswordInput{CurrentPassword: "wrong", NewPassword: "newpassword1"})
	expectCode(t, err, apperrors.CodeUnauthorized)
	if err := env.svc.Auth.ChangePassword(env.ctx, env.techActor(), ChangePasswordInput{CurrentPassword: "password123", NewPassword: "newpassword1"}); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := env.svc.Auth.Login(env.ctx, LoginInput{Username: "tech1", Password: "newpassword1"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestInactiveUserCannotLogin(t *testing.T) {
	env := newTestEnv(t)
	inactive := false
	if _, err := env.svc.Users.Update(env.ctx, env.tech.ID, UpdateUserInput{Active: &inactive}, env.admin); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err := env.svc.Auth.Login(env.ctx, LoginInput{Username: "tech1", Password: "password123"})
	expectCode(t, err, apperrors.CodeUnauthorized)
}

func TestRoleGrantRules(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Users.Create(env.ctx, CreateUserInput{
		Username: "boss", FullName: "Boss", Password: "password123", Role: domain.RoleSysAdmin,
	}, env.admin)
	expectCode(t, err, apperrors.CodeForbidden)

	created, err := env.svc.Users.Create(env.ctx, CreateUserInput{
		Username: "Rina.K", FullName: "Rina", Password: "password123", Role: domain.RoleTechnician,
	}, env.admin)
	if err != nil {
		t.Fatalf("admin creates technician: %v", err)
	}
	if created.Username != "rina.k" || !created.Active {
		t.Fatalf("unexpected user %+v", created)
	}

	_, err = env.svc.Users.Create(env.ctx, CreateUserInput{
		Username: "rina.k", FullName: "Dup", Password: "password123", Role: domain.RoleTechnician,
	}, env.admin)
	expectCode(t, err, apperrors.CodeConflict)

	_, err = env.svc.Users.Create(env.ctx, CreateUserInput{
		Username: "bad name", FullName: "x", Password: "password123", Role: domain.RoleTechnician,
	}, env.admin)
	expectCode(t, err, apperrors.CodeValidation)

	promote := domain.RoleSysAdmin
	_, err = env.svc.Users.Update(env.ctx, created.ID, UpdateUserInput{Role: &promote}, env.admin)
	expectCode(t, err, apperrors.CodeForbidden)
	promoted, err := env.svc.Users.Update(env.ctx, created.ID, UpdateUserInput{Role: &promote}, env.sysadmin)
	if err != nil || promoted.Role != domain.RoleSysAdmin {
		t.Fatalf("sysadmin promotion failed: %v", err)
	}

	name := "Renamed"
	_, err = env.svc.Users.Update(env.ctx, created.ID, UpdateUserInput{FullName: &name}, env.admin)
	expectCode(t, err, apperrors.CodeForbidden)

	inactive := false
	_, err = env.svc.Users.Update(env.ctx, env.admin.ID, UpdateUserInput{Active: &inactive}, env.admin)
	expectCode(t, err, apperrors.CodeInvalidState)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	created, err := env.svc.Users.EnsureAdmin(env.ctx, "Owner", "Shop Owner", "password123")
	if err != nil || !created {
		t.Fatalf("expected admin created, got %v %v", created, err)
	}
	created, err = env.svc.Users.EnsureAdmin(env.ctx, "owner", "Shop Owner", "password123")
	if err != nil || created {
		t.Fatalf("expected no-op, got %v %v", created, err)
	}
	admins, _ := env.svc.Users.List(env.ctx, UserListFilter{Role: domain.RoleSysAdmin}, Pagination{})
	if admins.Total != 2 {
		t.Fatalf("expected two sysadmins, got %d", admins.Total)
	}
}
