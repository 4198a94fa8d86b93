package service

import (
	"strings"

	"github.com/hubflow-next/internal/constants"
)

// Actor 发起操作的已认证主体（由身份服务签发的令牌解析而来）
type Actor struct {
	ID       uint
	Role     string
	Username string
	IsSuper  bool
}

// NewActor 构造主体，角色统一小写
func NewActor(id uint, role string) Actor {
	return Actor{ID: id, Role: strings.ToLower(strings.TrimSpace(role))}
}

// IsAdmin 是否具备管理员能力
func (a Actor) IsAdmin() bool {
	return a.ID != 0 && a.Role == constants.RoleAdmin
}

// IsHubManager 是否枢纽负责人
func (a Actor) IsHubManager() bool {
	return a.ID != 0 && a.Role == constants.RoleHubManager
}

// IsBuyer 是否买家
func (a Actor) IsBuyer() bool {
	return a.ID != 0 && a.Role == constants.RoleBuyer
}

// IsDeliveryAgent 是否配送员
func (a Actor) IsDeliveryAgent() bool {
	return a.ID != 0 && a.Role == constants.RoleDeliveryAgent
}

// RecipientClass 主体对应的通知接收方类别
func (a Actor) RecipientClass() string {
	switch a.Role {
	case constants.RoleAdmin:
		return constants.RecipientAdmin
	case constants.RoleHubManager:
		return constants.RecipientHubManager
	case constants.RoleBuyer:
		return constants.RecipientBuyer
	case constants.RoleDeliveryAgent:
		return constants.RecipientDeliveryAgent
	}
	return ""
}

// ValidRole 判断角色是否受支持
func ValidRole(role string) bool {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case constants.RoleAdmin, constants.RoleBuyer, constants.RoleHubManager, constants.RoleDeliveryAgent:
		return true
	}
	return false
}
