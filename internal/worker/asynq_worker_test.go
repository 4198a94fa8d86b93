package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hubflow-next/internal/config"
	"github.com/hubflow-next/internal/constants"
	"github.com/hubflow-next/internal/queue"
	"github.com/hubflow-next/internal/service"

	"github.com/hibiken/asynq"
)

type stubNotifications struct {
	delivered   []queue.NotificationDeliverPayload
	emailed     []uint
	redeliverFn func(queue.NotificationDeliverPayload) error
	emailErr    error
}

func (s *stubNotifications) Redeliver(_ context.Context, payload queue.NotificationDeliverPayload) error {
	s.delivered = append(s.delivered, payload)
	if s.redeliverFn != nil {
		return s.redeliverFn(payload)
	}
	return nil
}

func (s *stubNotifications) SendNotificationEmail(_ context.Context, notificationID uint) error {
	s.emailed = append(s.emailed, notificationID)
	return s.emailErr
}

type stubPublisher struct {
	events []queue.OrderLocationEventPayload
	err    error
}

func (p *stubPublisher) PublishLocationEvent(_ context.Context, event queue.OrderLocationEventPayload) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *stubPublisher) Close() error {
	return nil
}

func mustTask(t *testing.T, taskType string, payload interface{}) *asynq.Task {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	return asynq.NewTask(taskType, body)
}

func TestHandleNotificationDeliver(t *testing.T) {
	notifications := &stubNotifications{}
	consumer := &Consumer{notifications: notifications, publisher: &stubPublisher{}}
	payload := queue.NotificationDeliverPayload{
		RecipientClass: constants.RecipientBuyer,
		RecipientID:    55,
		Type:           constants.NotificationTypeArrivedCustomerHub,
		Title:          "Ready for pickup",
		OrderID:        9,
	}
	if err := consumer.handleNotificationDeliver(context.Background(), mustTask(t, queue.TaskNotificationDeliver, payload)); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	if len(notifications.delivered) != 1 || notifications.delivered[0].RecipientID != 55 {
		t.Fatalf("unexpected deliveries: %+v", notifications.delivered)
	}

	notifications.redeliverFn = func(queue.NotificationDeliverPayload) error {
		return service.ErrRecipientInvalid
	}
	if err := consumer.handleNotificationDeliver(context.Background(), mustTask(t, queue.TaskNotificationDeliver, payload)); err != nil {
		t.Fatalf("invalid recipient must not be retried, got %v", err)
	}

	storeErr := errors.New("db down")
	notifications.redeliverFn = func(queue.NotificationDeliverPayload) error { return storeErr }
	if err := consumer.handleNotificationDeliver(context.Background(), mustTask(t, queue.TaskNotificationDeliver, payload)); !errors.Is(err, storeErr) {
		t.Fatalf("store failure must be retried, got %v", err)
	}
}

func TestHandleNotificationDeliverRejectsMalformedPayload(t *testing.T) {
	consumer := &Consumer{notifications: &stubNotifications{}, publisher: &stubPublisher{}}
	task := asynq.NewTask(queue.TaskNotificationDeliver, []byte("{broken"))
	err := consumer.handleNotificationDeliver(context.Background(), task)
	if err == nil || !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("malformed payload must skip retry, got %v", err)
	}
}

func TestHandleNotificationEmail(t *testing.T) {
	notifications := &stubNotifications{}
	consumer := &Consumer{notifications: notifications, publisher: &stubPublisher{}}

	if err := consumer.handleNotificationEmail(context.Background(), mustTask(t, queue.TaskNotificationEmail, queue.NotificationEmailPayload{})); err != nil {
		t.Fatalf("zero id must be skipped, got %v", err)
	}
	if len(notifications.emailed) != 0 {
		t.Fatalf("zero id must not reach the service")
	}

	notifications.emailErr = service.ErrNotificationNotFound
	if err := consumer.handleNotificationEmail(context.Background(), mustTask(t, queue.TaskNotificationEmail, queue.NotificationEmailPayload{NotificationID: 3})); err != nil {
		t.Fatalf("missing notification must not be retried, got %v", err)
	}

	smtpErr := errors.New("smtp timeout")
	notifications.emailErr = smtpErr
	if err := consumer.handleNotificationEmail(context.Background(), mustTask(t, queue.TaskNotificationEmail, queue.NotificationEmailPayload{NotificationID: 4})); !errors.Is(err, smtpErr) {
		t.Fatalf("smtp failure must be retried, got %v", err)
	}
	if len(notifications.emailed) != 2 {
		t.Fatalf("expected two email attempts, got %v", notifications.emailed)
	}
}

func TestHandleOrderLocationEvent(t *testing.T) {
	publisher := &stubPublisher{}
	consumer := &Consumer{publisher: publisher}
	event := queue.OrderLocationEventPayload{
		EventID:    "evt-1",
		OrderID:    12,
		From:       constants.OrderLocationAtSellerHub,
		To:         constants.OrderLocationInTransit,
		OccurredAt: time.Now().UTC(),
	}
	if err := consumer.handleOrderLocationEvent(context.Background(), mustTask(t, queue.TaskOrderLocationEvent, event)); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if len(publisher.events) != 1 || publisher.events[0].EventID != "evt-1" {
		t.Fatalf("unexpected published events: %+v", publisher.events)
	}

	publisher.err = errors.New("broker unavailable")
	if err := consumer.handleOrderLocationEvent(context.Background(), mustTask(t, queue.TaskOrderLocationEvent, event)); err == nil {
		t.Fatalf("broker failure must be retried")
	}
}

func TestNewServiceRequiresQueueOrScheduler(t *testing.T) {
	if _, err := NewService(&config.QueueConfig{Enabled: false}, NewConsumer(nil), nil); err == nil {
		t.Fatalf("expected error when queue and scheduler are disabled")
	}
	svc, err := NewService(&config.QueueConfig{Enabled: false}, NewConsumer(nil), &Scheduler{})
	if err != nil {
		t.Fatalf("scheduler-only worker must be allowed: %v", err)
	}
	if svc.server != nil {
		t.Fatalf("queue server must not be built when queue is disabled")
	}
}
