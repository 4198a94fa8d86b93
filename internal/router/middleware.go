package router

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hubflow-next/internal/authz"
	"github.com/hubflow-next/internal/config"
	"github.com/hubflow-next/internal/constants"
	handlershared "github.com/hubflow-next/internal/http/handlers/shared"
	"github.com/hubflow-next/internal/http/response"
	"github.com/hubflow-next/internal/i18n"
	"github.com/hubflow-next/internal/logger"
	"github.com/hubflow-next/internal/metrics"
	"github.com/hubflow-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
	bearerPrefix    = "Bearer "
)

var (
	defaultCORSMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	defaultCORSHeaders = []string{"Content-Type", "Authorization", "Accept-Language", "X-Request-ID", "X-Requested-With"}
)

// corsPolicy 启动时解析一次的跨域配置
type corsPolicy struct {
	wildcard    bool
	origins     map[string]struct{}
	credentials bool
	methods     string
	headers     string
	maxAge      string
}

func newCORSPolicy(cfg config.CORSConfig) corsPolicy {
	p := corsPolicy{
		origins:     make(map[string]struct{}, len(cfg.AllowedOrigins)),
		credentials: cfg.AllowCredentials,
		methods:     strings.Join(orDefault(cfg.AllowedMethods, defaultCORSMethods), ", "),
		headers:     strings.Join(orDefault(cfg.AllowedHeaders, defaultCORSHeaders), ", "),
	}
	if len(cfg.AllowedOrigins) == 0 {
		p.wildcard = true
	}
	for _, origin := range cfg.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			p.wildcard = true
			continue
		}
		p.origins[strings.ToLower(origin)] = struct{}{}
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return p
}

// allowOrigin 返回应写入 Access-Control-Allow-Origin 的值，空串表示不放行
func (p corsPolicy) allowOrigin(origin string) string {
	if p.wildcard {
		// 携带凭证时浏览器不接受 *
		if p.credentials && origin != "" {
			return origin
		}
		return "*"
	}
	if _, ok := p.origins[strings.ToLower(origin)]; ok && origin != "" {
		return origin
	}
	return ""
}

func orDefault(values, fallback []string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}

// CORSMiddleware 跨域中间件，预检请求直接返回 204
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	policy := newCORSPolicy(cfg)
	return func(c *gin.Context) {
		h := c.Writer.Header()
		if allowed := policy.allowOrigin(c.GetHeader("Origin")); allowed != "" {
			h.Set("Access-Control-Allow-Origin", allowed)
			if allowed != "*" {
				h.Add("Vary", "Origin")
			}
		}
		if policy.credentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		h.Set("Access-Control-Allow-Methods", policy.methods)
		h.Set("Access-Control-Allow-Headers", policy.headers)
		if policy.maxAge != "" {
			h.Set("Access-Control-Max-Age", policy.maxAge)
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestIDMiddleware 透传或生成请求 ID
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// LoggerMiddleware 访问日志与请求耗时指标
func LoggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.L()
	}
	sugar := log.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())

		fields := []interface{}{
			"request_id", requestIDFrom(c),
			"method", c.Request.Method,
			"route", route,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", elapsed.Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if actorID := c.GetUint(handlershared.ContextKeyActorID); actorID != 0 {
			fields = append(fields, "actor_id", actorID, "actor_role", c.GetString(handlershared.ContextKeyActorRole))
		}
		switch {
		case len(c.Errors) > 0:
			sugar.Errorw("http_request", append(fields, "errors", c.Errors.String())...)
		case status >= http.StatusInternalServerError:
			sugar.Warnw("http_request", fields...)
		default:
			sugar.Infow("http_request", fields...)
		}
	}
}

// bearerToken 解析 Authorization 头；返回的 key 为失败时的消息键
func bearerToken(c *gin.Context) (string, string) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", "error.auth_header_missing"
	}
	token, ok := strings.CutPrefix(header, bearerPrefix)
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return "", "error.auth_header_invalid"
	}
	return token, ""
}

// JWTAuthMiddleware 解析身份令牌；管理员令牌还需通过版本与失效时间校验
func JWTAuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authService == nil {
			abortWith(c, response.CodeUnauthorized, "error.token_invalid")
			return
		}
		token, failKey := bearerToken(c)
		if failKey != "" {
			abortWith(c, response.CodeUnauthorized, failKey)
			return
		}
		claims, err := authService.ParseToken(token)
		if err != nil {
			abortWith(c, response.CodeUnauthorized, "error.token_invalid")
			return
		}
		if claims.Role == constants.RoleAdmin {
			valid, err := authService.VerifyAdminToken(c.Request.Context(), claims)
			if err != nil {
				logger.Errorw("admin_token_verify_failed", "admin_id", claims.SubjectID(), "error", err)
				abortWith(c, response.CodeUnauthorized, "error.token_invalid")
				return
			}
			if !valid {
				abortWith(c, response.CodeUnauthorized, "error.token_revoked")
				return
			}
		}
		handlershared.SetActor(c, claims.Actor())
		c.Next()
	}
}

// AdminOnlyMiddleware 后台路由仅允许管理员主体
func AdminOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(handlershared.ContextKeyActorRole) != constants.RoleAdmin {
			abortWith(c, response.CodeForbidden, "error.admin_only")
			return
		}
		c.Next()
	}
}

// AdminRBACMiddleware 非超级管理员按路由模板执行 casbin 校验
func AdminRBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authzService == nil {
			logger.Errorw("admin_rbac_service_unavailable")
			abortWith(c, response.CodeUnauthorized, "error.unauthorized")
			return
		}
		if c.GetBool(handlershared.ContextKeyAdminIsSuper) {
			c.Next()
			return
		}
		adminID := c.GetUint(handlershared.ContextKeyAdminID)
		if adminID == 0 {
			abortWith(c, response.CodeUnauthorized, "error.unauthorized")
			return
		}

		resource := strings.TrimSpace(c.FullPath())
		if resource == "" {
			resource = c.Request.URL.Path
		}
		log := logger.SW("admin_id", adminID, "method", c.Request.Method, "resource", authz.NormalizeObject(resource))
		allowed, err := authzService.EnforceAdmin(adminID, resource, c.Request.Method)
		if err != nil {
			log.Errorw("admin_rbac_enforce_failed", "error", err)
			abortWith(c, response.CodeUnauthorized, "error.unauthorized")
			return
		}
		if !allowed {
			log.Warnw("admin_rbac_permission_denied")
			abortWith(c, response.CodeForbidden, "error.forbidden")
			return
		}
		c.Next()
	}
}

func abortWith(c *gin.Context, code int, key string) {
	response.Error(c, code, i18n.T(i18n.ResolveLocale(c), key))
	c.Abort()
}
