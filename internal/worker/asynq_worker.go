package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hubflow-next/internal/events"
	"github.com/hubflow-next/internal/logger"
	"github.com/hubflow-next/internal/metrics"
	"github.com/hubflow-next/internal/provider"
	"github.com/hubflow-next/internal/queue"
	"github.com/hubflow-next/internal/service"

	"github.com/hibiken/asynq"
)

// notificationHandler 通知补偿与邮件投递
type notificationHandler interface {
	Redeliver(ctx context.Context, payload queue.NotificationDeliverPayload) error
	SendNotificationEmail(ctx context.Context, notificationID uint) error
}

// Consumer 异步任务消费者
type Consumer struct {
	notifications notificationHandler
	publisher     events.Publisher
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	consumer := &Consumer{publisher: events.NoopPublisher{}}
	if c == nil {
		return consumer
	}
	if c.NotificationService != nil {
		consumer.notifications = c.NotificationService
	}
	if c.EventPublisher != nil {
		consumer.publisher = c.EventPublisher
	}
	return consumer
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskNotificationDeliver, c.handleNotificationDeliver)
	mux.HandleFunc(queue.TaskNotificationEmail, c.handleNotificationEmail)
	mux.HandleFunc(queue.TaskOrderLocationEvent, c.handleOrderLocationEvent)
}

func (c *Consumer) handleNotificationDeliver(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_notification_deliver_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.NotificationDeliverPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_notification_deliver_unmarshal_failed", "error", err)
		return errors.Join(err, asynq.SkipRetry)
	}
	if c.notifications == nil {
		logger.Warnw("worker_notification_deliver_skip_service_nil", "type", payload.Type)
		return nil
	}
	err := c.notifications.Redeliver(ctx, payload)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrRecipientInvalid), errors.Is(err, service.ErrNotificationTypeInvalid):
		logger.Warnw("worker_notification_deliver_skip_invalid_payload",
			"type", payload.Type,
			"recipient_class", payload.RecipientClass,
			"recipient_id", payload.RecipientID,
			"error", err,
		)
		return nil
	default:
		metrics.NotificationFailuresTotal.WithLabelValues(payload.Type).Inc()
		logger.Warnw("worker_notification_deliver_failed", "type", payload.Type, "order_id", payload.OrderID, "error", err)
		return err
	}
}

func (c *Consumer) handleNotificationEmail(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_notification_email_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.NotificationEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_notification_email_unmarshal_failed", "error", err)
		return errors.Join(err, asynq.SkipRetry)
	}
	if payload.NotificationID == 0 {
		logger.Debugw("worker_notification_email_skip_invalid_payload", "notification_id", payload.NotificationID)
		return nil
	}
	if c.notifications == nil {
		logger.Warnw("worker_notification_email_skip_service_nil", "notification_id", payload.NotificationID)
		return nil
	}
	err := c.notifications.SendNotificationEmail(ctx, payload.NotificationID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrNotificationNotFound):
		logger.Debugw("worker_notification_email_skip_not_found", "notification_id", payload.NotificationID)
		return nil
	case errors.Is(err, service.ErrInvalidEmail):
		logger.Warnw("worker_notification_email_skip_invalid_receiver", "notification_id", payload.NotificationID)
		return nil
	default:
		logger.Warnw("worker_notification_email_send_failed", "notification_id", payload.NotificationID, "error", err)
		return err
	}
}

func (c *Consumer) handleOrderLocationEvent(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_location_event_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderLocationEventPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_location_event_unmarshal_failed", "error", err)
		return errors.Join(err, asynq.SkipRetry)
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_location_event_skip_invalid_payload", "event_id", payload.EventID)
		return nil
	}
	if err := c.publisher.PublishLocationEvent(ctx, payload); err != nil {
		metrics.LocationEventsPublishedTotal.WithLabelValues(metrics.ResultFailed).Inc()
		logger.Warnw("worker_order_location_event_publish_failed",
			"order_id", payload.OrderID,
			"event_id", payload.EventID,
			"to", payload.To,
			"error", err,
		)
		return err
	}
	metrics.LocationEventsPublishedTotal.WithLabelValues(metrics.ResultOK).Inc()
	return nil
}
