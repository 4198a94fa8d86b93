package router

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/hubflow-next/internal/authz"
	"github.com/hubflow-next/internal/cache"
	"github.com/hubflow-next/internal/config"
	adminhandlers "github.com/hubflow-next/internal/http/handlers/admin"
	hubhandlers "github.com/hubflow-next/internal/http/handlers/hub"
	"github.com/hubflow-next/internal/http/response"
	"github.com/hubflow-next/internal/logger"
	"github.com/hubflow-next/internal/models"
	"github.com/hubflow-next/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const approveRoutePath = "/api/v1/orders/:id/approve-hub-delivery"

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（履约 / 后台）
	hubHandler := hubhandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisClient := cache.Client()
	adminLoginRule := RateLimitRule{
		Prefix:        cache.BuildKey("rate:admin_login"),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		MessageKey:    "error.login_too_many",
	}
	otpRule := RateLimitRule{
		Prefix:        cache.BuildKey("rate:otp"),
		WindowSeconds: cfg.Security.OTPRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.OTPRateLimit.MaxAttempts,
		MessageKey:    "error.otp_too_many",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/health", healthHandler)
	if cfg.Metrics.Enabled {
		metricsPath := strings.TrimSpace(cfg.Metrics.Path)
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		r.GET(metricsPath, gin.WrapH(promhttp.Handler()))
	}

	jwtAuth := JWTAuthMiddleware(c.AuthService)

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 登录接口（无需鉴权）
		apiV1.POST("/auth/admin/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIPAndJSONField("username")), adminHandler.AdminLogin)

		// 履约接口（管理员 / 枢纽负责人 / 买家 / 配送员）
		authed := apiV1.Group("")
		authed.Use(jwtAuth)
		{
			authed.POST("/orders", hubHandler.CreateOrder)
			authed.GET("/orders/hub-orders/pending", hubHandler.ListPendingHubOrders)
			authed.GET("/orders/my-deliveries", hubHandler.ListMyDeliveries)
			authed.GET("/orders/approved-hub-orders", hubHandler.ListApprovedHubOrders)
			authed.GET("/orders/:id", hubHandler.GetOrder)
			authed.GET("/orders/:id/tracking", hubHandler.GetTracking)
			authed.POST("/orders/:id/arrive-seller-hub", hubHandler.ArriveSellerHub)
			authed.POST("/orders/:id/approve-hub-delivery", hubHandler.ApproveHubDelivery)
			authed.POST("/orders/:id/arrive-customer-hub", hubHandler.ArriveCustomerHub)
			authed.POST("/orders/:id/handoff-otp", hubHandler.ReissueHandoffOtp)
			authed.PATCH("/orders/:id/delivery-preference", hubHandler.SetDeliveryPreference)
			authed.PATCH("/orders/:id/delivery-agent", hubHandler.AssignDeliveryAgent)
			authed.PATCH("/orders/:id/delivered", RateLimitMiddleware(redisClient, otpRule, KeyByPathParamAndIP("id")), hubHandler.MarkDelivered)
			authed.POST("/orders/:id/cancel", hubHandler.CancelOrder)

			authed.GET("/hubs", hubHandler.ListHubs)
			authed.GET("/hubs/districts", hubHandler.ListDistricts)
			authed.GET("/hubs/district/:district", hubHandler.ListHubsByDistrict)
			authed.GET("/hubs/:id/ready-for-pickup", hubHandler.ListReadyForPickup)
			authed.GET("/hub-stats/hubs-with-stats", hubHandler.HubsWithStats)

			authed.GET("/notifications", hubHandler.ListNotifications)
			authed.GET("/notifications/unread-count", hubHandler.UnreadNotificationCount)
			authed.PATCH("/notifications/mark-all-read", hubHandler.MarkAllNotificationsRead)
			authed.PATCH("/notifications/:id/read", hubHandler.MarkNotificationRead)
			authed.DELETE("/notifications/:id", hubHandler.DeleteNotification)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		admin.Use(jwtAuth, AdminOnlyMiddleware(), AdminRBACMiddleware(c.AuthzService))
		{
			// 枢纽注册表
			admin.GET("/hubs", adminHandler.AdminListHubs)
			admin.POST("/hubs", adminHandler.CreateHub)
			admin.GET("/hubs/:id", adminHandler.AdminGetHub)
			admin.PUT("/hubs/:id", adminHandler.UpdateHub)
			admin.PATCH("/hubs/:id/status", adminHandler.SetHubStatus)
			admin.PATCH("/hubs/:id/assign-manager", adminHandler.AssignHubManager)

			// 权限管理
			admin.GET("/authz/me", adminHandler.GetAuthzMe)
			admin.GET("/authz/roles", adminHandler.ListAuthzRoles)
			admin.PUT("/authz/admins/:id/roles", adminHandler.SetAdminRoles)
			admin.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
				response.Success(ctx, buildAdminPermissionCatalog(r))
			})
		}
	}

	return r
}

const healthPingTimeout = 2 * time.Second

func healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()
	if err := models.PingDB(ctx); err != nil {
		logger.Warnw("health_db_ping_failed", "error", err)
		response.Error(c, response.CodeInternal, "database unavailable")
		return
	}
	response.Success(c, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

// buildAdminPermissionCatalog 列出可授予角色的资源：后台路由与放行审批
func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") && item.Path != approveRoutePath {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     derivePermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func derivePermissionModule(object string) string {
	segments := strings.Split(strings.TrimPrefix(strings.TrimSpace(object), "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "system"
	}
	if segments[0] == "admin" && len(segments) > 1 {
		return segments[1]
	}
	return segments[0]
}
