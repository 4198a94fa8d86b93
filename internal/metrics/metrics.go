package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LocationTransitionsTotal 成功的位置迁移次数
	LocationTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubflow_location_transitions_total",
		Help: "Total number of committed order location transitions.",
	},
		[]string{"from", "to"},
	)

	// TransitionRejectedTotal 被拒绝的迁移次数
	TransitionRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubflow_transition_rejected_total",
		Help: "Total number of rejected order location transitions by operation and reason.",
	},
		[]string{"operation", "reason"},
	)

	// NotificationsCreatedTotal 写入的通知数
	NotificationsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubflow_notifications_created_total",
		Help: "Total number of notifications persisted by type.",
	},
		[]string{"type"},
	)

	// NotificationFailuresTotal 通知写入失败次数
	NotificationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubflow_notification_failures_total",
		Help: "Total number of notification writes that failed after a committed transition.",
	},
		[]string{"type"},
	)

	// OtpVerificationsTotal 交接码校验结果
	OtpVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubflow_otp_verifications_total",
		Help: "Total number of hand-off code verifications by result.",
	},
		[]string{"result"},
	)

	// LocationEventsPublishedTotal 发布到 Kafka 的位置事件
	LocationEventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubflow_location_events_published_total",
		Help: "Total number of order location events published by result.",
	},
		[]string{"result"},
	)

	// HubCapacityDrift 枢纽计数与实际在库订单的偏差
	HubCapacityDrift = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hubflow_hub_capacity_drift",
		Help: "Difference between hub current_orders counter and derived order count.",
	},
		[]string{"hub_code"},
	)

	// ScheduledJobRunsTotal 定时任务执行次数
	ScheduledJobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubflow_scheduled_job_runs_total",
		Help: "Total number of scheduled job runs by job and result.",
	},
		[]string{"job", "result"},
	)

	// HTTPRequestDuration 按路由模板统计的请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hubflow_http_request_duration_seconds",
		Help:    "HTTP request latency by method, route template and status.",
		Buckets: prometheus.DefBuckets,
	},
		[]string{"method", "route", "status"},
	)
)

// 结果标签
const (
	ResultOK       = "ok"
	ResultFailed   = "failed"
	ResultMismatch = "mismatch"
	ResultExpired  = "expired"
	ResultLocked   = "locked"
)
