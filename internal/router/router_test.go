package router

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hubflow-next/internal/config"
	"github.com/hubflow-next/internal/constants"
	"github.com/hubflow-next/internal/models"
	"github.com/hubflow-next/internal/provider"
	"github.com/hubflow-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type routerTestEnv struct {
	container *provider.Container
	engine    *gin.Engine
	admin     *models.Admin
}

func setupRouterTest(t *testing.T) *routerTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:router_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	models.DB = db
	if err := models.AutoMigrate(); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	admin := &models.Admin{Username: "approver", PasswordHash: "hash", IsSuper: true}
	if err := db.Create(admin).Error; err != nil {
		t.Fatalf("create admin failed: %v", err)
	}

	cfg := &config.Config{
		Server:  config.ServerConfig{Mode: "debug"},
		JWT:     config.JWTConfig{SecretKey: "router-test-secret", ExpireHours: 1, Issuer: "hubflow-test"},
		OTP:     config.OTPConfig{HashCost: bcrypt.MinCost},
		Hub:     config.HubConfig{Routing: config.HubRoutingConfig{Fallback: constants.HubRoutingFallbackNone}},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	c := provider.NewContainer(cfg)
	t.Cleanup(c.Close)

	return &routerTestEnv{
		container: c,
		engine:    SetupRouter(cfg, c),
		admin:     admin,
	}
}

func (env *routerTestEnv) token(t *testing.T, actor service.Actor) string {
	t.Helper()
	var version uint64
	if actor.IsAdmin() {
		version = env.admin.TokenVersion
	}
	token, _, err := env.container.AuthService.IssueToken(actor, version)
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}
	return token
}

func (env *routerTestEnv) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	return w
}

// orderAtSellerHub 准备一笔已到达卖家枢纽的订单
func (env *routerTestEnv) orderAtSellerHub(t *testing.T, adminActor service.Actor) *models.Order {
	t.Helper()
	c := env.container
	seller, err := c.HubService.Create(service.HubInput{Code: "EKM-S", Name: "Ernakulam Seller Hub", District: "Ernakulam", Role: constants.HubRoleSeller})
	if err != nil {
		t.Fatalf("create seller hub failed: %v", err)
	}
	if _, err := c.HubService.Create(service.HubInput{Code: "EKM-C", Name: "Ernakulam Customer Hub", District: "Ernakulam", Role: constants.HubRoleCustomer}); err != nil {
		t.Fatalf("create customer hub failed: %v", err)
	}
	price, err := models.NewMoneyFromString("120.00")
	if err != nil {
		t.Fatalf("parse money failed: %v", err)
	}
	ctx := context.Background()
	order, err := c.OrderLocationService.CreateOrder(ctx, service.CreateOrderInput{
		BuyerID:          55,
		BuyerName:        "Anjali",
		BuyerEmail:       "anjali@example.com",
		ShippingStreet:   "Marine Drive",
		ShippingCity:     "Kochi",
		ShippingDistrict: "Ernakulam",
		ShippingState:    "Kerala",
		ShippingPincode:  "682031",
		Items: []service.CreateOrderItemInput{
			{ProductID: 4, SellerID: 9, Title: "Coir mat", UnitPrice: price, Quantity: 1},
		},
	}, adminActor)
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := c.OrderLocationService.ArriveAtSellerHub(ctx, order.ID, seller.ID, adminActor); err != nil {
		t.Fatalf("arrive seller hub failed: %v", err)
	}
	return order
}

func TestApproveHubDeliveryStatusCodes(t *testing.T) {
	env := setupRouterTest(t)
	adminActor := service.NewActor(env.admin.ID, constants.RoleAdmin)
	order := env.orderAtSellerHub(t, adminActor)
	approvePath := fmt.Sprintf("/api/v1/orders/%d/approve-hub-delivery", order.ID)

	if w := env.do(http.MethodPost, approvePath, "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	buyerToken := env.token(t, service.NewActor(55, constants.RoleBuyer))
	if w := env.do(http.MethodPost, approvePath, buyerToken, ""); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for buyer, got %d body=%s", w.Code, w.Body.String())
	}

	adminToken := env.token(t, adminActor)
	if w := env.do(http.MethodPost, "/api/v1/orders/999999/approve-hub-delivery", adminToken, ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing order, got %d", w.Code)
	}

	w := env.do(http.MethodPost, approvePath, adminToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on approval, got %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"approved_by_admin":true`) {
		t.Fatalf("approval not reflected in body: %s", w.Body.String())
	}

	if w := env.do(http.MethodPost, approvePath, adminToken, ""); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second approval, got %d", w.Code)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	env := setupRouterTest(t)
	managerToken := env.token(t, service.NewActor(31, constants.RoleHubManager))
	if w := env.do(http.MethodGet, "/api/v1/admin/hubs", managerToken, ""); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for hub manager, got %d", w.Code)
	}

	adminToken := env.token(t, service.NewActor(env.admin.ID, constants.RoleAdmin))
	body := `{"code":"KNR","name":"Kannur Hub","district":"Kannur","role":"both"}`
	if w := env.do(http.MethodPost, "/api/v1/admin/hubs", adminToken, body); w.Code != http.StatusOK {
		t.Fatalf("expected hub create ok, got %d body=%s", w.Code, w.Body.String())
	}
	if w := env.do(http.MethodPost, "/api/v1/admin/hubs", adminToken, body); w.Code != http.StatusConflict {
		t.Fatalf("expected duplicate code conflict, got %d", w.Code)
	}

	w := env.do(http.MethodGet, "/api/v1/hubs/districts", managerToken, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Kannur") {
		t.Fatalf("expected district list with Kannur, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	env := setupRouterTest(t)
	if w := env.do(http.MethodGet, "/health", "", ""); w.Code != http.StatusOK {
		t.Fatalf("expected health ok, got %d", w.Code)
	}
	w := env.do(http.MethodGet, "/metrics", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Fatalf("expected prometheus exposition, got %d", w.Code)
	}
}

func TestBuildAdminPermissionCatalog(t *testing.T) {
	env := setupRouterTest(t)
	items := buildAdminPermissionCatalog(env.engine)
	found := map[string]string{}
	for _, item := range items {
		found[item.Permission] = item.Module
	}
	if module, ok := found["POST:/orders/:id/approve-hub-delivery"]; !ok || module != "orders" {
		t.Fatalf("approve permission missing from catalog: %+v", items)
	}
	if module, ok := found["PATCH:/admin/hubs/:id/status"]; !ok || module != "hubs" {
		t.Fatalf("hub status permission missing from catalog: %+v", items)
	}
	if _, ok := found["GET:/hubs"]; ok {
		t.Fatalf("non-admin route leaked into catalog")
	}
}

func TestDeleteNotificationRouteScopedToRecipient(t *testing.T) {
	env := setupRouterTest(t)
	agent := service.NewActor(310, constants.RoleDeliveryAgent)
	notification, err := env.container.NotificationService.Notify(context.Background(), service.NotifyInput{
		RecipientClass: constants.RecipientDeliveryAgent,
		RecipientID:    agent.ID,
		Type:           constants.NotificationTypeDeliveryAgentAssigned,
		Title:          "New delivery",
		Message:        "collect",
	})
	if err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	path := fmt.Sprintf("/api/v1/notifications/%d", notification.ID)

	otherToken := env.token(t, service.NewActor(311, constants.RoleDeliveryAgent))
	if w := env.do(http.MethodDelete, path, otherToken, ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another recipient, got %d body=%s", w.Code, w.Body.String())
	}
	agentToken := env.token(t, agent)
	if w := env.do(http.MethodDelete, path, agentToken, ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner, got %d body=%s", w.Code, w.Body.String())
	}
	if w := env.do(http.MethodDelete, path, agentToken, ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}
