package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/hubflow-next/internal/http/response"
	"github.com/hubflow-next/internal/i18n"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

var errRateLimitReply = errors.New("unexpected rate limit reply")

// RateLimitKeyFunc 从请求中提取限流维度
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	MessageKey    string
}

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

func (r RateLimitRule) key(raw string) string {
	if r.Prefix == "" {
		return raw
	}
	return r.Prefix + ":" + raw
}

func (r RateLimitRule) messageKey() string {
	if key := strings.TrimSpace(r.MessageKey); key != "" {
		return key
	}
	return "error.rate_limited"
}

// retryAfter 剩余 TTL 不可用时退回整个窗口
func (r RateLimitRule) retryAfter(ttl int64) int {
	if ttl >= 1 {
		return int(ttl)
	}
	if r.WindowSeconds >= 1 {
		return r.WindowSeconds
	}
	return 1
}

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("TTL", KEYS[1])}
`)

// hitWindow 计数加一并返回当前窗口内的次数与剩余秒数
func hitWindow(ctx context.Context, client *redis.Client, key string, window int) (int64, int64, error) {
	reply, err := rateLimitScript.Run(ctx, client, []string{key}, window).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(reply) < 2 {
		return 0, 0, errRateLimitReply
	}
	return reply[0], reply[1], nil
}

// RateLimitMiddleware 基于 Redis 的固定窗口限流；未配置 Redis 时放行
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || !rule.enabled() {
			c.Next()
			return
		}

		raw := ""
		if keyFunc != nil {
			raw = strings.TrimSpace(keyFunc(c))
		}
		if raw == "" {
			raw = c.ClientIP()
		}

		count, ttl, err := hitWindow(c.Request.Context(), client, rule.key(raw), rule.WindowSeconds)
		if err != nil {
			response.Error(c, response.CodeInternal, i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable"))
			c.Abort()
			return
		}
		if count > int64(rule.MaxRequests) {
			wait := rule.retryAfter(ttl)
			c.Header("Retry-After", strconv.Itoa(wait))
			response.Error(c, response.CodeTooManyRequests, i18n.Sprintf(i18n.ResolveLocale(c), rule.messageKey(), wait))
			c.Abort()
			return
		}
		c.Next()
	}
}

// KeyByPathParamAndIP 路径参数 + IP，例如同一订单的 OTP 尝试
func KeyByPathParamAndIP(param string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		return joinKey(strings.TrimSpace(c.Param(param)), c.ClientIP())
	}
}

// KeyByIPAndJSONField 请求体字段 + IP，例如登录用户名
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		return joinKey(strings.ToLower(peekJSONField(c, field)), c.ClientIP())
	}
}

func joinKey(value, ip string) string {
	if value == "" {
		return ip
	}
	return value + "|" + ip
}

// peekJSONField 读取请求体中的字符串字段，并把请求体还原给后续处理器
func peekJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(body) == 0 {
		return ""
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	var text string
	if err := json.Unmarshal(payload[field], &text); err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
