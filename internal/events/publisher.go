package events

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/hubflow-next/internal/config"
	"github.com/hubflow-next/internal/logger"
	"github.com/hubflow-next/internal/queue"

	"github.com/segmentio/kafka-go"
)

// Publisher 订单位置事件发布接口
type Publisher interface {
	PublishLocationEvent(ctx context.Context, event queue.OrderLocationEventPayload) error
	Close() error
}

// messageWriter kafka.Writer 的最小子集
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher 基于 kafka-go 的发布实现，按订单 ID 分区保证单订单有序
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
}

// NewPublisher 根据配置创建发布器，未启用时返回空实现
func NewPublisher(cfg config.EventsConfig) Publisher {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, broker := range cfg.Brokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	if !cfg.Enabled || len(brokers) == 0 || strings.TrimSpace(cfg.Topic) == "" {
		return NoopPublisher{}
	}
	timeout := time.Duration(cfg.WriteTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        strings.TrimSpace(cfg.Topic),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: timeout,
	}
	logger.Infow("location_event_publisher_ready", "brokers", brokers, "topic", writer.Topic)
	return newKafkaPublisher(writer, timeout)
}

func newKafkaPublisher(writer messageWriter, timeout time.Duration) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, timeout: timeout}
}

// PublishLocationEvent 发布单条位置事件
func (p *KafkaPublisher) PublishLocationEvent(ctx context.Context, event queue.OrderLocationEventPayload) error {
	if p == nil || p.writer == nil {
		return errors.New("kafka publisher not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.OrderID), 10)),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID)},
			{Key: "event_type", Value: []byte("order_location_changed")},
		},
	})
}

// Close 关闭底层 writer
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// NoopPublisher 未配置 Kafka 时使用，仅记录日志
type NoopPublisher struct{}

// PublishLocationEvent 丢弃事件
func (NoopPublisher) PublishLocationEvent(_ context.Context, event queue.OrderLocationEventPayload) error {
	logger.Debugw("location_event_dropped", "event_id", event.EventID, "order_id", event.OrderID, "to", event.To)
	return nil
}

// Close 无操作
func (NoopPublisher) Close() error {
	return nil
}
