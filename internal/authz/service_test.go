package authz

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	return svc
}

func TestEnforceAdminWithRolePolicy(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("district_ops", "/admin/hubs/:id", "GET"); err != nil {
		t.Fatalf("grant role policy failed: %v", err)
	}
	if err := svc.SetAdminRoles(1, []string{"district_ops"}); err != nil {
		t.Fatalf("set admin roles failed: %v", err)
	}

	allow, err := svc.EnforceAdmin(1, "/api/v1/admin/hubs/42", "get")
	if err != nil {
		t.Fatalf("enforce allow failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected allow=true")
	}

	allow, err = svc.EnforceAdmin(1, "/api/v1/admin/hubs/42", "PUT")
	if err != nil {
		t.Fatalf("enforce deny failed: %v", err)
	}
	if allow {
		t.Fatalf("expected allow=false")
	}

	allow, err = svc.EnforceAdmin(0, "/api/v1/admin/hubs/42", "GET")
	if err != nil || allow {
		t.Fatalf("zero admin id should be denied, allow=%v err=%v", allow, err)
	}
}

func TestSetAdminRolesOverride(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("auditor", "/admin/hubs", "GET"); err != nil {
		t.Fatalf("grant auditor policy failed: %v", err)
	}
	if err := svc.GrantRolePolicy("approver", "/orders/:id/approve-hub-delivery", "POST"); err != nil {
		t.Fatalf("grant approver policy failed: %v", err)
	}

	if err := svc.SetAdminRoles(2, []string{"auditor"}); err != nil {
		t.Fatalf("set first role failed: %v", err)
	}
	roles, err := svc.GetAdminRoles(2)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:auditor" {
		t.Fatalf("roles want [role:auditor], got=%v", roles)
	}

	if err := svc.SetAdminRoles(2, []string{"approver"}); err != nil {
		t.Fatalf("set second role failed: %v", err)
	}
	roles, err = svc.GetAdminRoles(2)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:approver" {
		t.Fatalf("roles want [role:approver], got=%v", roles)
	}

	allow, err := svc.EnforceAdmin(2, "/admin/hubs", "GET")
	if err != nil {
		t.Fatalf("enforce old role failed: %v", err)
	}
	if allow {
		t.Fatalf("expected old role permission removed")
	}

	allow, err = svc.EnforceAdmin(2, "/api/v1/orders/17/approve-hub-delivery", "POST")
	if err != nil {
		t.Fatalf("enforce new role failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected new role permission granted")
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/admin/hubs/:id", want: "/admin/hubs/:id"},
		{in: "/admin/hubs/:id", want: "/admin/hubs/:id"},
		{in: "admin/hubs", want: "/admin/hubs"},
		{in: "/api/v1", want: "/"},
		{in: "", want: "/"},
	}
	for _, item := range cases {
		got := NormalizeObject(item.in)
		if got != item.want {
			t.Fatalf("normalize object failed, in=%q want=%q got=%q", item.in, item.want, got)
		}
	}
}

func TestBootstrapBuiltinRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	// 重复执行应保持幂等
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("second bootstrap failed: %v", err)
	}

	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	wantRoles := map[string]bool{
		"role:readonly_auditor":  true,
		"role:hub_operations":    true,
		"role:dispatch_approver": true,
	}
	for _, role := range roles {
		delete(wantRoles, role)
	}
	if len(wantRoles) != 0 {
		t.Fatalf("builtin roles missing: %v", wantRoles)
	}

	if err := svc.SetAdminRoles(3, []string{RoleReadonlyAuditor}); err != nil {
		t.Fatalf("set auditor role failed: %v", err)
	}
	cases := []struct {
		object string
		action string
		want   bool
	}{
		{object: "/admin/hubs", action: "GET", want: true},
		{object: "/admin/hubs", action: "POST", want: false},
		{object: "/orders/9/approve-hub-delivery", action: "POST", want: false},
	}
	for _, tc := range cases {
		allow, err := svc.EnforceAdmin(3, tc.object, tc.action)
		if err != nil {
			t.Fatalf("enforce %s %s failed: %v", tc.action, tc.object, err)
		}
		if allow != tc.want {
			t.Fatalf("auditor %s %s want %v got %v", tc.action, tc.object, tc.want, allow)
		}
	}

	if err := svc.SetAdminRoles(4, []string{RoleHubOperations}); err != nil {
		t.Fatalf("set operations role failed: %v", err)
	}
	for _, tc := range []struct {
		object string
		action string
	}{
		{object: "/admin/hubs/5", action: "PUT"},
		{object: "/admin/hubs/5/assign-manager", action: "PATCH"},
		{object: "/admin/hubs", action: "GET"},
		{object: "/orders/9/approve-hub-delivery", action: "POST"},
	} {
		allow, err := svc.EnforceAdmin(4, tc.object, tc.action)
		if err != nil {
			t.Fatalf("enforce %s %s failed: %v", tc.action, tc.object, err)
		}
		if !allow {
			t.Fatalf("hub operations should be allowed %s %s", tc.action, tc.object)
		}
	}
}

func TestSetAdminRolesRejectsUnknownRole(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	if err := svc.SetAdminRoles(5, []string{RoleDispatchApprover}); err != nil {
		t.Fatalf("set approver role failed: %v", err)
	}
	err := svc.SetAdminRoles(5, []string{RoleDispatchApprover, "warehouse_root"})
	if !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected unknown role error, got %v", err)
	}
	roles, err := svc.GetAdminRoles(5)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:"+RoleDispatchApprover {
		t.Fatalf("rejected update must leave roles untouched, got %v", roles)
	}

	if err := svc.SetAdminRoles(5, []string{"__anchor__"}); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected reserved role rejection, got %v", err)
	}
	if err := svc.SetAdminRoles(5, nil); err != nil {
		t.Fatalf("clear roles failed: %v", err)
	}
	if roles, _ := svc.GetAdminRoles(5); len(roles) != 0 {
		t.Fatalf("expected no roles after clear, got %v", roles)
	}
}
