package queue

import (
	"encoding/json"
	"testing"

	"github.com/hubflow-next/internal/config"
	"github.com/hubflow-next/internal/constants"
)

func TestDisabledClientSkipsEnqueue(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new disabled client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("client should be disabled")
	}
	if err := client.EnqueueNotificationDeliver(NotificationDeliverPayload{RecipientClass: constants.RecipientBuyer, RecipientID: 1}); err != nil {
		t.Fatalf("disabled enqueue returned error: %v", err)
	}
	if err := client.EnqueueOrderLocationEvent(OrderLocationEventPayload{EventID: "evt-1"}); err != nil {
		t.Fatalf("disabled enqueue returned error: %v", err)
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{Host: " redis ", Port: 6380, DB: 2})
	if opt.Addr != "redis:6380" || opt.DB != 2 {
		t.Fatalf("unexpected redis opt: %+v", opt)
	}
	if cfg.Concurrency != 10 {
		t.Fatalf("unexpected concurrency: %d", cfg.Concurrency)
	}
	if cfg.Queues[constants.QueueCritical] <= cfg.Queues[constants.QueueLow] {
		t.Fatalf("critical queue should outweigh low queue: %v", cfg.Queues)
	}
}

func TestNewOrderLocationEventTaskPayload(t *testing.T) {
	task, err := NewOrderLocationEventTask(OrderLocationEventPayload{
		EventID: "evt-1",
		OrderID: 9,
		From:    constants.OrderLocationAtSellerHub,
		To:      constants.OrderLocationInTransit,
	})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if task.Type() != TaskOrderLocationEvent {
		t.Fatalf("unexpected task type: %s", task.Type())
	}
	var decoded OrderLocationEventPayload
	if err := json.Unmarshal(task.Payload(), &decoded); err != nil {
		t.Fatalf("decode payload failed: %v", err)
	}
	if decoded.OrderID != 9 || decoded.To != constants.OrderLocationInTransit {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
}

func TestTaskPoliciesCoverEveryTaskType(t *testing.T) {
	for _, taskType := range []string{TaskNotificationDeliver, TaskNotificationEmail, TaskOrderLocationEvent} {
		policy, ok := taskPolicies[taskType]
		if !ok {
			t.Fatalf("missing policy for %s", taskType)
		}
		if policy.queue == "" || policy.maxRetry <= 0 || policy.timeout <= 0 {
			t.Fatalf("incomplete policy for %s: %+v", taskType, policy)
		}
	}
	if taskPolicies[TaskNotificationDeliver].queue != constants.QueueCritical {
		t.Fatalf("notification compensation must use the critical queue")
	}
}
