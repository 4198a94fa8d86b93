package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hubflow-next/internal/models"
)

const authStateCacheTTL = 10 * time.Minute

// AdminAuthState 审批人令牌校验快照，InvalidBefore 为 Unix 秒，0 表示未设置
type AdminAuthState struct {
	AdminID       uint   `json:"admin_id"`
	TokenVersion  uint64 `json:"token_version"`
	InvalidBefore int64  `json:"invalid_before"`
	IsSuper       bool   `json:"is_super"`
}

// NewAdminAuthState 由管理员记录生成快照
func NewAdminAuthState(admin *models.Admin) *AdminAuthState {
	if admin == nil {
		return nil
	}
	state := &AdminAuthState{
		AdminID:      admin.ID,
		TokenVersion: admin.TokenVersion,
		IsSuper:      admin.IsSuper,
	}
	if admin.TokenInvalidBefore != nil {
		state.InvalidBefore = admin.TokenInvalidBefore.Unix()
	}
	return state
}

// Accepts 令牌版本一致且签发时间不早于失效点
func (s *AdminAuthState) Accepts(tokenVersion uint64, issuedAtUnix int64) bool {
	if s == nil || s.TokenVersion != tokenVersion {
		return false
	}
	if s.InvalidBefore <= 0 {
		return true
	}
	return issuedAtUnix > 0 && issuedAtUnix >= s.InvalidBefore
}

func adminAuthStateKey(adminID uint) string {
	return fmt.Sprintf("auth:admin:%d", adminID)
}

// LoadAdminAuthState 读取快照，未命中返回 nil
func LoadAdminAuthState(ctx context.Context, adminID uint) (*AdminAuthState, error) {
	if adminID == 0 {
		return nil, nil
	}
	var state AdminAuthState
	hit, err := GetJSON(ctx, adminAuthStateKey(adminID), &state)
	if err != nil || !hit {
		return nil, err
	}
	return &state, nil
}

// StoreAdminAuthState 写入快照
func StoreAdminAuthState(ctx context.Context, state *AdminAuthState) error {
	if state == nil || state.AdminID == 0 {
		return nil
	}
	return SetJSON(ctx, adminAuthStateKey(state.AdminID), state, authStateCacheTTL)
}
