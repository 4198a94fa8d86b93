package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hubflow-next/internal/config"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "hf"
	defaultRedisHost = "127.0.0.1"
	defaultRedisPort = 6379
	pingTimeout      = 3 * time.Second
)

// store 进程内唯一的 Redis 句柄；client 为空时所有操作降级为空操作
var store = struct {
	client *redis.Client
	prefix string
}{prefix: defaultKeyPrefix}

// InitRedis 建立连接并探活；探活失败时关闭连接并返回错误，缓存保持禁用
func InitRedis(cfg *config.RedisConfig) error {
	if cfg == nil || !cfg.Enabled {
		Use(nil, "")
		return nil
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = defaultRedisHost
	}
	port := cfg.Port
	if port <= 0 {
		port = defaultRedisPort
	}
	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		Use(nil, "")
		return err
	}
	Use(client, cfg.Prefix)
	return nil
}

// Use 注入客户端，测试与启动共用
func Use(client *redis.Client, prefix string) {
	store.client = client
	if p := strings.TrimSpace(prefix); p != "" {
		store.prefix = p
	}
}

// Enabled 缓存是否可用
func Enabled() bool {
	return store.client != nil
}

// Client 限流等需要原始客户端的场景；未启用时为 nil
func Client() *redis.Client {
	return store.client
}

// Close 关闭连接并禁用缓存
func Close() error {
	if store.client == nil {
		return nil
	}
	err := store.client.Close()
	store.client = nil
	return err
}

// BuildKey 拼接带前缀的键
func BuildKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return store.prefix
	}
	return store.prefix + ":" + key
}

// GetJSON 读取 JSON 值；未命中返回 false
func GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if store.client == nil {
		return false, nil
	}
	raw, err := store.client.Get(ctx, BuildKey(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, json.Unmarshal(raw, dest)
}

// SetJSON 写入 JSON 值
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if store.client == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return store.client.Set(ctx, BuildKey(key), payload, ttl).Err()
}

// SetNX 抢占式写入；缓存未启用时视为抢占成功
func SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if store.client == nil {
		return true, nil
	}
	return store.client.SetNX(ctx, BuildKey(key), value, ttl).Result()
}

// Del 删除若干键
func Del(ctx context.Context, keys ...string) error {
	if store.client == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = BuildKey(key)
	}
	return store.client.Del(ctx, full...).Err()
}
