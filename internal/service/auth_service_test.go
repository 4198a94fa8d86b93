package service

import (
	"context"
	"errors"
	"testing"

	"github.com/hubflow-next/internal/config"
	"github.com/hubflow-next/internal/constants"
	"github.com/hubflow-next/internal/models"
	"github.com/hubflow-next/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

func TestIssueAndParseToken(t *testing.T) {
	svc := NewAuthService(config.JWTConfig{SecretKey: "test-secret", ExpireHours: 1, Issuer: "hubflow"}, nil)
	token, _, err := svc.IssueToken(Actor{ID: 42, Role: constants.RoleHubManager, Username: "kochi-mgr"}, 0)
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}
	claims, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	actor := claims.Actor()
	if actor.ID != 42 || !actor.IsHubManager() || actor.Username != "kochi-mgr" || actor.IsSuper {
		t.Fatalf("unexpected actor: %+v", actor)
	}

	other := NewAuthService(config.JWTConfig{SecretKey: "other-secret"}, nil)
	if _, err := other.ParseToken(token); err == nil {
		t.Fatalf("token signed with another secret must be rejected")
	}
	if _, _, err := svc.IssueToken(Actor{ID: 1, Role: "seller"}, 0); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unsupported role rejection, got %v", err)
	}
}

func TestAuthServiceLogin(t *testing.T) {
	db := openServiceTestDB(t, "auth_service_test")
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret!"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	admin := &models.Admin{Username: "root", PasswordHash: string(hash), IsSuper: true}
	if err := db.Create(admin).Error; err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	svc := NewAuthService(config.JWTConfig{SecretKey: "test-secret"}, repository.NewAdminRepository(db))

	if _, _, _, err := svc.Login(context.Background(), "root", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, _, _, err := svc.Login(context.Background(), "nobody", "s3cret!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown user, got %v", err)
	}
	logged, token, _, err := svc.Login(context.Background(), " root ", "s3cret!")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if logged.ID != admin.ID {
		t.Fatalf("unexpected admin returned: %+v", logged)
	}
	claims, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor := claims.Actor(); !actor.IsAdmin() || !actor.IsSuper || actor.ID != admin.ID {
		t.Fatalf("unexpected admin actor: %+v", actor)
	}
	valid, err := svc.VerifyAdminToken(context.Background(), claims)
	if err != nil || !valid {
		t.Fatalf("admin token must verify, valid=%v err=%v", valid, err)
	}
	if err := db.Model(admin).Update("token_version", 3).Error; err != nil {
		t.Fatalf("bump token version failed: %v", err)
	}
	if valid, _ := svc.VerifyAdminToken(context.Background(), claims); valid {
		t.Fatalf("revoked token must not verify")
	}
}
