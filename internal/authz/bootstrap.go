package authz

import "fmt"

// 预置角色
const (
	RoleReadonlyAuditor  = "readonly_auditor"
	RoleHubOperations    = "hub_operations"
	RoleDispatchApprover = "dispatch_approver"
)

// approvalObject 放行审批资源，与 service.ApprovalPermissionObject 保持一致
const approvalObject = "/orders/:id/approve-hub-delivery"

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: RoleReadonlyAuditor,
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
		},
		{
			Role: RoleDispatchApprover,
			Policies: []Policy{
				{Object: approvalObject, Action: "POST"},
			},
		},
		{
			Role:     RoleHubOperations,
			Inherits: []string{RoleReadonlyAuditor, RoleDispatchApprover},
			Policies: []Policy{
				{Object: "/admin/hubs", Action: "*"},
				{Object: "/admin/hubs/:id", Action: "*"},
				{Object: "/admin/hubs/:id/status", Action: "PATCH"},
				{Object: "/admin/hubs/:id/assign-manager", Action: "PATCH"},
			},
		},
	}
}

// BootstrapBuiltinRoles 写入预置角色、继承关系与策略，已存在的条目跳过
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range BuiltinRoleSeeds() {
		role, _, err := s.ensureRole(seed.Role)
		if err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			parentRole, _, err := s.ensureRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role %s -> %s failed: %w", role, parentRole, err)
			}
		}
		for _, policy := range seed.Policies {
			if err := s.GrantRolePolicy(role, policy.Object, policy.Action); err != nil {
				return fmt.Errorf("add builtin policy for %s failed: %w", role, err)
			}
		}
	}
	return nil
}
