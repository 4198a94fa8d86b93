package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/hubflow-next/internal/cache"
	"github.com/hubflow-next/internal/config"
	"github.com/hubflow-next/internal/constants"
	"github.com/hubflow-next/internal/logger"
	"github.com/hubflow-next/internal/models"
	"github.com/hubflow-next/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 令牌签发与校验
type AuthService struct {
	cfg       config.JWTConfig
	adminRepo repository.AdminRepository
}

// NewAuthService 创建认证服务实例
func NewAuthService(cfg config.JWTConfig, adminRepo repository.AdminRepository) *AuthService {
	return &AuthService{
		cfg:       cfg,
		adminRepo: adminRepo,
	}
}

// TokenClaims 身份令牌声明，sub 为主体 ID
type TokenClaims struct {
	Role         string `json:"role"`
	Username     string `json:"username,omitempty"`
	IsSuper      bool   `json:"is_super,omitempty"`
	TokenVersion uint64 `json:"token_version,omitempty"`
	jwt.RegisteredClaims
}

// SubjectID 解析 sub 中的主体 ID
func (c *TokenClaims) SubjectID() uint {
	if c == nil {
		return 0
	}
	id, err := strconv.ParseUint(strings.TrimSpace(c.Subject), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

// Actor 转换为操作主体
func (c *TokenClaims) Actor() Actor {
	actor := NewActor(c.SubjectID(), c.Role)
	actor.Username = c.Username
	actor.IsSuper = c.IsSuper && actor.Role == constants.RoleAdmin
	return actor
}

// HashPassword 使用 bcrypt 加密密码
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// IssueToken 为主体签发令牌
func (s *AuthService) IssueToken(actor Actor, tokenVersion uint64) (string, time.Time, error) {
	if actor.ID == 0 || !ValidRole(actor.Role) {
		return "", time.Time{}, ErrUnauthenticated
	}
	hours := s.cfg.ExpireHours
	if hours <= 0 {
		hours = 24
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(hours) * time.Hour)
	claims := TokenClaims{
		Role:         actor.Role,
		Username:     actor.Username,
		IsSuper:      actor.IsSuper,
		TokenVersion: tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(actor.ID), 10),
			Issuer:    s.cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken 解析并校验令牌
func (s *AuthService) ParseToken(tokenString string) (*TokenClaims, error) {
	if strings.TrimSpace(s.cfg.SecretKey) == "" {
		return nil, errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &TokenClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.SubjectID() == 0 || !ValidRole(claims.Role) {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}

// VerifyAdminToken 管理员令牌需与当前 token 版本一致
func (s *AuthService) VerifyAdminToken(ctx context.Context, claims *TokenClaims) (bool, error) {
	adminID := claims.SubjectID()
	state, err := cache.LoadAdminAuthState(ctx, adminID)
	if err != nil {
		logger.Debugw("admin_auth_state_cache_read_failed", "admin_id", adminID, "error", err)
	}
	if state == nil {
		admin, err := s.adminRepo.GetByID(adminID)
		if err != nil {
			return false, err
		}
		if admin == nil {
			return false, nil
		}
		state = cache.NewAdminAuthState(admin)
		if err := cache.StoreAdminAuthState(ctx, state); err != nil {
			logger.Debugw("admin_auth_state_cache_failed", "admin_id", admin.ID, "error", err)
		}
	}
	claims.IsSuper = state.IsSuper
	return state.Accepts(claims.TokenVersion, issuedAtUnix(claims.IssuedAt)), nil
}

// Login 本地管理员登录
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.Admin, string, time.Time, error) {
	admin, err := s.adminRepo.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if admin == nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	actor := Actor{ID: admin.ID, Role: constants.RoleAdmin, Username: admin.Username, IsSuper: admin.IsSuper}
	token, expiresAt, err := s.IssueToken(actor, admin.TokenVersion)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	if err := cache.StoreAdminAuthState(ctx, cache.NewAdminAuthState(admin)); err != nil {
		logger.Debugw("admin_auth_state_cache_failed", "admin_id", admin.ID, "error", err)
	}
	return admin, token, expiresAt, nil
}

func issuedAtUnix(issuedAt *jwt.NumericDate) int64 {
	if issuedAt == nil {
		return 0
	}
	return issuedAt.Time.Unix()
}
