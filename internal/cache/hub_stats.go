package cache

import (
	"context"
	"time"
)

const (
	hubStatsKey = "hub:stats:v1"
	hubStatsTTL = 15 * time.Second
)

// GetHubStats 读取枢纽统计快照
func GetHubStats(ctx context.Context, dest interface{}) (bool, error) {
	return GetJSON(ctx, hubStatsKey, dest)
}

// SetHubStats 写入枢纽统计快照（短 TTL，计数以数据库为准）
func SetHubStats(ctx context.Context, value interface{}) error {
	return SetJSON(ctx, hubStatsKey, value, hubStatsTTL)
}

// InvalidateHubStats 位置变化后清除统计快照
func InvalidateHubStats(ctx context.Context) error {
	return Del(ctx, hubStatsKey)
}
