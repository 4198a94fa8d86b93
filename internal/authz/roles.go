package authz

import (
	"fmt"
	"sort"
	"strings"
)

const (
	apiV1Prefix     = "/api/v1"
	adminSubjectFmt = "admin:%d"
	rolePrefix      = "role:"
	// roleAnchor 角色以 g(role, anchor) 登记，使无策略的角色也可被列出
	roleAnchor = "role:__anchor__"
)

func isListedRole(name string) bool {
	return strings.HasPrefix(name, rolePrefix) && name != roleAnchor
}

func (s *Service) roleExists(role string) (bool, error) {
	return s.enforcer.HasNamedGroupingPolicy("g", role, roleAnchor)
}

// ensureRole 登记角色，返回规范化名称与是否新增
func (s *Service) ensureRole(role string) (string, bool, error) {
	normalized, err := NormalizeRole(role)
	if err != nil {
		return "", false, err
	}
	added, err := s.enforcer.AddNamedGroupingPolicy("g", normalized, roleAnchor)
	if err != nil {
		return "", false, fmt.Errorf("register role %s failed: %w", normalized, err)
	}
	return normalized, added, nil
}

// ListRoles 列出全部已登记角色
func (s *Service) ListRoles() ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredNamedGroupingPolicy("g", 1, roleAnchor)
	if err != nil {
		return nil, fmt.Errorf("list roles failed: %w", err)
	}
	roles := make([]string, 0, len(rules))
	for _, rule := range rules {
		if len(rule) > 0 && isListedRole(rule[0]) {
			roles = append(roles, rule[0])
		}
	}
	sort.Strings(roles)
	return roles, nil
}

// GrantRolePolicy 为角色授予资源动作，角色不存在时自动登记
func (s *Service) GrantRolePolicy(role, object, action string) error {
	if err := s.ready(); err != nil {
		return err
	}
	act := NormalizeAction(action)
	if act == "" {
		return fmt.Errorf("action is required")
	}
	normalized, _, err := s.ensureRole(role)
	if err != nil {
		return err
	}
	if _, err := s.enforcer.AddPolicy(normalized, NormalizeObject(object), act); err != nil {
		return fmt.Errorf("grant policy failed: %w", err)
	}
	return nil
}

// SetAdminRoles 将管理员角色覆盖为 roles，只接受已登记的角色
func (s *Service) SetAdminRoles(adminID uint, roles []string) error {
	if adminID == 0 {
		return fmt.Errorf("admin id is required")
	}
	if err := s.ready(); err != nil {
		return err
	}
	want := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		normalized, err := NormalizeRole(role)
		if err != nil {
			return err
		}
		exists, err := s.roleExists(normalized)
		if err != nil {
			return fmt.Errorf("check role failed: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrUnknownRole, normalized)
		}
		want[normalized] = struct{}{}
	}

	subject := SubjectForAdmin(adminID)
	current, err := s.GetAdminRoles(adminID)
	if err != nil {
		return err
	}
	for _, role := range current {
		if _, keep := want[role]; keep {
			delete(want, role)
			continue
		}
		if _, err := s.enforcer.RemoveNamedGroupingPolicy("g", subject, role); err != nil {
			return fmt.Errorf("revoke admin role %s failed: %w", role, err)
		}
	}
	for role := range want {
		if _, err := s.enforcer.AddNamedGroupingPolicy("g", subject, role); err != nil {
			return fmt.Errorf("assign admin role %s failed: %w", role, err)
		}
	}
	return nil
}

// GetAdminRoles 管理员直接持有的角色
func (s *Service) GetAdminRoles(adminID uint) ([]string, error) {
	if adminID == 0 {
		return nil, fmt.Errorf("admin id is required")
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	roles, err := s.enforcer.GetRolesForUser(SubjectForAdmin(adminID))
	if err != nil {
		return nil, fmt.Errorf("get admin roles failed: %w", err)
	}
	filtered := make([]string, 0, len(roles))
	for _, role := range roles {
		if isListedRole(role) {
			filtered = append(filtered, role)
		}
	}
	sort.Strings(filtered)
	return filtered, nil
}

// SubjectForAdmin 管理员主体标识
func SubjectForAdmin(adminID uint) string {
	return fmt.Sprintf(adminSubjectFmt, adminID)
}

// NormalizeRole 补齐 role: 前缀，空格替换为下划线
func NormalizeRole(role string) (string, error) {
	name := strings.ReplaceAll(strings.TrimSpace(role), " ", "_")
	name = strings.TrimPrefix(name, rolePrefix)
	if name == "" {
		return "", ErrInvalidRole
	}
	normalized := rolePrefix + name
	if normalized == roleAnchor {
		return "", ErrInvalidRole
	}
	return normalized, nil
}

// NormalizeObject 去掉 /api/v1 前缀，使策略与路由模板对齐
func NormalizeObject(object string) string {
	normalized := strings.TrimSpace(object)
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	switch {
	case normalized == apiV1Prefix:
		return "/"
	case strings.HasPrefix(normalized, apiV1Prefix+"/"):
		return strings.TrimPrefix(normalized, apiV1Prefix)
	default:
		return normalized
	}
}

// NormalizeAction 动作统一为大写
func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}
