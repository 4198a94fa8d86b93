package shared

import (
	"github.com/hubflow-next/internal/http/response"
	"github.com/hubflow-next/internal/service"

	"github.com/gin-gonic/gin"
)

// 鉴权中间件写入的上下文键
const (
	ContextKeyActorID      = "actor_id"
	ContextKeyActorRole    = "actor_role"
	ContextKeyUsername     = "username"
	ContextKeyAdminID      = "admin_id"
	ContextKeyAdminIsSuper = "admin_is_super"
)

// SetActor 将已认证主体写入上下文
func SetActor(c *gin.Context, actor service.Actor) {
	c.Set(ContextKeyActorID, actor.ID)
	c.Set(ContextKeyActorRole, actor.Role)
	c.Set(ContextKeyUsername, actor.Username)
	if actor.IsAdmin() {
		c.Set(ContextKeyAdminID, actor.ID)
		c.Set(ContextKeyAdminIsSuper, actor.IsSuper)
	}
}

// GetContextUintWithKeys 从上下文读取 uint 值并统一处理错误响应。
func GetContextUintWithKeys(c *gin.Context, key, invalidKey, typeInvalidKey string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			RespondError(c, response.CodeBadRequest, invalidKey, nil)
			return 0, false
		}
		return uint(v), true
	case float64:
		if v < 0 {
			RespondError(c, response.CodeBadRequest, invalidKey, nil)
			return 0, false
		}
		return uint(v), true
	default:
		RespondError(c, response.CodeInternal, typeInvalidKey, nil)
		return 0, false
	}
}

// CurrentActor 读取当前主体，缺失时返回 401
func CurrentActor(c *gin.Context) (service.Actor, bool) {
	id, ok := GetContextUintWithKeys(c, ContextKeyActorID, "error.unauthorized", "error.unauthorized")
	if !ok {
		return service.Actor{}, false
	}
	actor := service.NewActor(id, c.GetString(ContextKeyActorRole))
	actor.Username = c.GetString(ContextKeyUsername)
	actor.IsSuper = c.GetBool(ContextKeyAdminIsSuper)
	if actor.RecipientClass() == "" {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return service.Actor{}, false
	}
	return actor, true
}
