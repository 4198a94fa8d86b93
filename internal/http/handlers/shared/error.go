package shared

import (
	"github.com/hubflow-next/internal/http/response"
	"github.com/hubflow-next/internal/i18n"
	"github.com/hubflow-next/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 携带 request_id 与调用方身份的日志实例
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	kv := make([]interface{}, 0, 6)
	if id := c.GetString("request_id"); id != "" {
		kv = append(kv, "request_id", id)
	}
	if actorID := c.GetUint(ContextKeyActorID); actorID != 0 {
		kv = append(kv, "actor_id", actorID, "actor_role", c.GetString(ContextKeyActorRole))
	}
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

// RespondError 按请求语言返回错误消息；服务端错误附带原始错误写日志
func RespondError(c *gin.Context, code int, key string, err error) {
	msg := i18n.T(i18n.ResolveLocale(c), key)
	if err != nil {
		log := RequestLog(c)
		fields := []interface{}{"code", code, "key", key, "path", c.FullPath(), "error", err}
		if code >= response.CodeInternal {
			log.Errorw("handler_error", fields...)
		} else {
			log.Warnw("handler_error", fields...)
		}
	}
	response.Error(c, code, msg)
}
