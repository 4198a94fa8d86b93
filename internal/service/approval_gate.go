package service

import (
	"context"

	"github.com/hubflow-next/internal/logger"
	"github.com/hubflow-next/internal/models"
)

// 审批拒绝原因
const (
	ApprovalReasonAdminOnly       = "admin_only"
	ApprovalReasonAlreadyApproved = "already_approved"
	ApprovalReasonNotAtSellerHub  = "not_at_seller_hub"
	ApprovalReasonPermission      = "permission_denied"
	ApprovalReasonOrderMissing    = "order_missing"
)

// 审批权限资源（与路由一致，供 RBAC 策略使用）
const (
	ApprovalPermissionObject = "/orders/:id/approve-hub-delivery"
	ApprovalPermissionAction = "POST"
)

// ApprovalDecision 审批判定结果
type ApprovalDecision struct {
	Allowed bool
	Reason  string
	Err     error
}

func allowApproval() ApprovalDecision {
	return ApprovalDecision{Allowed: true}
}

func denyApproval(reason string, err error) ApprovalDecision {
	return ApprovalDecision{Reason: reason, Err: err}
}

// ApprovalGate 放行审批策略，可替换
type ApprovalGate interface {
	CanApprove(ctx context.Context, order *models.Order, actor Actor) ApprovalDecision
}

// AdminRoleApprovalPolicy 默认策略：管理员可放行已到卖家枢纽且未审批的订单
type AdminRoleApprovalPolicy struct{}

// CanApprove 判定是否允许放行
func (AdminRoleApprovalPolicy) CanApprove(_ context.Context, order *models.Order, actor Actor) ApprovalDecision {
	if !actor.IsAdmin() {
		return denyApproval(ApprovalReasonAdminOnly, ErrAdminOnly)
	}
	if order == nil {
		return denyApproval(ApprovalReasonOrderMissing, ErrOrderNotFound)
	}
	if order.ApprovedByAdmin {
		return denyApproval(ApprovalReasonAlreadyApproved, ErrAlreadyApproved)
	}
	if order.CurrentLocation != models.LocationAtSellerHub {
		return denyApproval(ApprovalReasonNotAtSellerHub, ErrOrderNotAtSellerHub)
	}
	return allowApproval()
}

// PermissionChecker 管理员权限校验（casbin）
type PermissionChecker interface {
	EnforceAdmin(adminID uint, object, action string) (bool, error)
}

// CasbinApprovalPolicy 在默认策略基础上要求非超级管理员具备审批权限
type CasbinApprovalPolicy struct {
	base    ApprovalGate
	checker PermissionChecker
}

// NewCasbinApprovalPolicy 创建 RBAC 审批策略
func NewCasbinApprovalPolicy(base ApprovalGate, checker PermissionChecker) *CasbinApprovalPolicy {
	if base == nil {
		base = AdminRoleApprovalPolicy{}
	}
	return &CasbinApprovalPolicy{base: base, checker: checker}
}

// CanApprove 判定是否允许放行
func (p *CasbinApprovalPolicy) CanApprove(ctx context.Context, order *models.Order, actor Actor) ApprovalDecision {
	decision := p.base.CanApprove(ctx, order, actor)
	if !decision.Allowed || actor.IsSuper || p.checker == nil {
		return decision
	}
	allowed, err := p.checker.EnforceAdmin(actor.ID, ApprovalPermissionObject, ApprovalPermissionAction)
	if err != nil {
		logger.Warnw("approval_permission_check_failed", "admin_id", actor.ID, "error", err)
		return denyApproval(ApprovalReasonPermission, ErrAdminOnly)
	}
	if !allowed {
		return denyApproval(ApprovalReasonPermission, ErrAdminOnly)
	}
	return decision
}
