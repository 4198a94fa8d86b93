package queue

import (
	"encoding/json"
	"time"

	"github.com/hubflow-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskNotificationDeliver 通知补偿写入任务
	TaskNotificationDeliver = constants.TaskNotificationDeliver
	// TaskNotificationEmail 买家通知邮件任务
	TaskNotificationEmail = constants.TaskNotificationEmail
	// TaskOrderLocationEvent 订单位置事件发布任务
	TaskOrderLocationEvent = constants.TaskOrderLocationEvent
)

// NotificationDeliverPayload 通知补偿任务载荷
type NotificationDeliverPayload struct {
	RecipientClass string                 `json:"recipient_class"`
	RecipientID    uint                   `json:"recipient_id"`
	Type           string                 `json:"type"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	OrderID        uint                   `json:"order_id,omitempty"`
	OrderNo        string                 `json:"order_no,omitempty"`
	ActionRequired bool                   `json:"action_required,omitempty"`
	ActionType     string                 `json:"action_type,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// NotificationEmailPayload 通知邮件任务载荷
type NotificationEmailPayload struct {
	NotificationID uint `json:"notification_id"`
}

// OrderLocationEventPayload 订单位置变更事件
type OrderLocationEventPayload struct {
	EventID       string    `json:"event_id"`
	OrderID       uint      `json:"order_id"`
	OrderNo       string    `json:"order_no"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	SellerHubID   uint      `json:"seller_hub_id,omitempty"`
	CustomerHubID uint      `json:"customer_hub_id,omitempty"`
	ActorID       uint      `json:"actor_id,omitempty"`
	ActorRole     string    `json:"actor_role,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewNotificationDeliverTask 创建通知补偿任务
func NewNotificationDeliverTask(payload NotificationDeliverPayload) (*asynq.Task, error) {
	return newJSONTask(TaskNotificationDeliver, payload)
}

// NewNotificationEmailTask 创建通知邮件任务
func NewNotificationEmailTask(payload NotificationEmailPayload) (*asynq.Task, error) {
	return newJSONTask(TaskNotificationEmail, payload)
}

// NewOrderLocationEventTask 创建位置事件任务
func NewOrderLocationEventTask(payload OrderLocationEventPayload) (*asynq.Task, error) {
	return newJSONTask(TaskOrderLocationEvent, payload)
}

func newJSONTask(taskType string, payload interface{}) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body), nil
}
