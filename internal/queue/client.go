package queue

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hubflow-next/internal/config"
	"github.com/hubflow-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	defaultRedisHost   = "127.0.0.1"
	defaultRedisPort   = 6379
	defaultConcurrency = 10
)

// taskPolicy 每类任务的投递参数
type taskPolicy struct {
	queue    string
	maxRetry int
	timeout  time.Duration
}

// 通知补偿走关键队列；位置事件只用于下游同步，放低优先级
var taskPolicies = map[string]taskPolicy{
	TaskNotificationDeliver: {queue: constants.QueueCritical, maxRetry: 8, timeout: 30 * time.Second},
	TaskNotificationEmail:   {queue: constants.QueueDefault, maxRetry: 3, timeout: time.Minute},
	TaskOrderLocationEvent:  {queue: constants.QueueLow, maxRetry: 10, timeout: 30 * time.Second},
}

func (p taskPolicy) options() []asynq.Option {
	return []asynq.Option{asynq.Queue(p.queue), asynq.MaxRetry(p.maxRetry), asynq.Timeout(p.timeout)}
}

// Client asynq 客户端；未启用时投递为空操作
type Client struct {
	client *asynq.Client
}

// NewClient 队列未启用时返回空操作客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{}, nil
	}
	return &Client{client: asynq.NewClient(buildRedisOpt(cfg))}, nil
}

// Enabled 是否真正投递
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Close 释放连接
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// EnqueueNotificationDeliver 通知写库失败后的补偿投递
func (c *Client) EnqueueNotificationDeliver(payload NotificationDeliverPayload) error {
	task, err := NewNotificationDeliverTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task)
}

// EnqueueNotificationEmail 买家通知的邮件副本
func (c *Client) EnqueueNotificationEmail(payload NotificationEmailPayload) error {
	task, err := NewNotificationEmailTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task)
}

// EnqueueOrderLocationEvent 位置变更事件；事件 ID 作为任务 ID，重复投递视为成功
func (c *Client) EnqueueOrderLocationEvent(payload OrderLocationEventPayload) error {
	task, err := NewOrderLocationEventTask(payload)
	if err != nil {
		return err
	}
	var extra []asynq.Option
	if payload.EventID != "" {
		extra = append(extra, asynq.TaskID(payload.EventID))
	}
	return c.enqueue(task, extra...)
}

func (c *Client) enqueue(task *asynq.Task, extra ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	opts := append(taskPolicies[task.Type()].options(), extra...)
	_, err := c.client.Enqueue(task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

// BuildServerConfig worker 端的连接与队列权重
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	serverCfg := asynq.Config{
		Concurrency: defaultConcurrency,
		Queues: map[string]int{
			constants.QueueCritical: 6,
			constants.QueueDefault:  3,
			constants.QueueLow:      1,
		},
	}
	if cfg != nil && cfg.Concurrency > 0 {
		serverCfg.Concurrency = cfg.Concurrency
	}
	if cfg != nil && len(cfg.Queues) > 0 {
		serverCfg.Queues = cfg.Queues
	}
	return buildRedisOpt(cfg), serverCfg
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	if cfg == nil {
		return asynq.RedisClientOpt{Addr: net.JoinHostPort(defaultRedisHost, strconv.Itoa(defaultRedisPort))}
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = defaultRedisHost
	}
	port := cfg.Port
	if port <= 0 {
		port = defaultRedisPort
	}
	return asynq.RedisClientOpt{
		Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}
