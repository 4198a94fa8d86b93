package service

import (
	"context"
	"errors"
	"testing"

	"github.com/hubflow-next/internal/constants"
	"github.com/hubflow-next/internal/queue"
)

type recordingEmailSender struct {
	sent []string
	err  error
}

func (r *recordingEmailSender) SendNotificationEmail(toEmail, subject, body string) error {
	r.sent = append(r.sent, toEmail+"|"+subject)
	return r.err
}

func TestNotifyValidatesRecipientAndType(t *testing.T) {
	env := setupHubFlowTest(t, hubFlowTestOptions{})
	ctx := context.Background()

	if _, err := env.notifications.Notify(ctx, NotifyInput{RecipientClass: "seller", RecipientID: 1, Type: constants.NotificationTypeOrderApproved}); !errors.Is(err, ErrRecipientInvalid) {
		t.Fatalf("expected invalid recipient class, got %v", err)
	}
	if _, err := env.notifications.Notify(ctx, NotifyInput{RecipientClass: constants.RecipientBuyer, Type: constants.NotificationTypeOrderApproved}); !errors.Is(err, ErrRecipientInvalid) {
		t.Fatalf("expected invalid recipient id, got %v", err)
	}
	if _, err := env.notifications.Notify(ctx, NotifyInput{RecipientClass: constants.RecipientBuyer, RecipientID: 3, Type: "order_paid"}); !errors.Is(err, ErrNotificationTypeInvalid) {
		t.Fatalf("expected invalid type, got %v", err)
	}
	notification, err := env.notifications.Notify(ctx, NotifyInput{
		RecipientClass: constants.RecipientHubManager,
		RecipientID:    3,
		Type:           constants.NotificationTypeDispatchedCustomerHub,
		Title:          "Incoming order",
		Message:        "Order HF00000009 is on its way.",
		OrderID:        9,
		OrderNo:        "HF00000009",
		Metadata:       map[string]interface{}{"customer_hub_id": 4},
	})
	if err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if notification.ID == 0 || notification.Read || notification.OrderID == nil || *notification.OrderID != 9 {
		t.Fatalf("unexpected notification: %+v", notification)
	}
}

func TestMarkReadIsIdempotentAndScoped(t *testing.T) {
	env := setupHubFlowTest(t, hubFlowTestOptions{})
	ctx := context.Background()
	buyer := NewActor(8, constants.RoleBuyer)
	other := NewActor(9, constants.RoleBuyer)
	notification, err := env.notifications.Notify(ctx, NotifyInput{
		RecipientClass: constants.RecipientBuyer,
		RecipientID:    buyer.ID,
		Type:           constants.NotificationTypeOrderApproved,
		Title:          "Order dispatched",
		Message:        "On its way",
	})
	if err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	if _, err := env.notifications.MarkRead(notification.ID, other); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("expected not found for other buyer, got %v", err)
	}
	if _, err := env.notifications.MarkRead(notification.ID, NewActor(buyer.ID, constants.RoleHubManager)); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("expected not found for other recipient class, got %v", err)
	}
	for i := 0; i < 2; i++ {
		read, err := env.notifications.MarkRead(notification.ID, buyer)
		if err != nil {
			t.Fatalf("mark read #%d failed: %v", i+1, err)
		}
		if !read.Read || read.ReadAt == nil {
			t.Fatalf("notification not marked read: %+v", read)
		}
	}
	if _, err := env.notifications.MarkRead(424242, buyer); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	unread, err := env.notifications.UnreadCount(buyer)
	if err != nil || unread != 0 {
		t.Fatalf("unexpected unread count %d err=%v", unread, err)
	}
}

func TestMarkAllReadAndUnreadCount(t *testing.T) {
	env := setupHubFlowTest(t, hubFlowTestOptions{})
	ctx := context.Background()
	manager := NewActor(5, constants.RoleHubManager)
	for i := 0; i < 3; i++ {
		if _, err := env.notifications.Notify(ctx, NotifyInput{
			RecipientClass: constants.RecipientHubManager,
			RecipientID:    manager.ID,
			Type:           constants.NotificationTypeArrivedSellerHub,
			Title:          "Order received",
			Message:        "checked in",
		}); err != nil {
			t.Fatalf("notify failed: %v", err)
		}
	}
	if count, err := env.notifications.UnreadCount(manager); err != nil || count != 3 {
		t.Fatalf("expected 3 unread, got %d err=%v", count, err)
	}
	updated, err := env.notifications.MarkAllRead(manager)
	if err != nil || updated != 3 {
		t.Fatalf("expected 3 updated, got %d err=%v", updated, err)
	}
	items, total, err := env.notifications.ListFor(manager, true, 1, 20)
	if err != nil || total != 0 || len(items) != 0 {
		t.Fatalf("expected no unread items, got total=%d err=%v", total, err)
	}
	if _, err := env.notifications.UnreadCount(Actor{}); !errors.Is(err, ErrRecipientInvalid) {
		t.Fatalf("expected invalid recipient, got %v", err)
	}
}

func TestNotifyAdminsFanOut(t *testing.T) {
	env := setupHubFlowTest(t, hubFlowTestOptions{})
	first := env.createAdmin(t, "ops-a")
	second := env.createAdmin(t, "ops-b")
	created, err := env.notifications.NotifyAdmins(context.Background(), NotifyInput{
		Type:           constants.NotificationTypeAdminApprovalRequired,
		Title:          "Approval required",
		Message:        "waiting",
		ActionRequired: true,
		ActionType:     constants.NotificationActionApproveDelivery,
	})
	if err != nil {
		t.Fatalf("notify admins failed: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(created))
	}
	for _, admin := range []uint{first.ID, second.ID} {
		count, err := env.notifications.UnreadCount(NewActor(admin, constants.RoleAdmin))
		if err != nil || count != 1 {
			t.Fatalf("admin %d unread=%d err=%v", admin, count, err)
		}
	}
}

func TestBuyerNotificationEnqueuesEmailAndSends(t *testing.T) {
	tasks := &recordingTasks{enabled: true}
	env := setupHubFlowTest(t, hubFlowTestOptions{tasks: tasks})
	ctx := context.Background()
	admin := NewActor(1, constants.RoleAdmin)
	order := env.createOrder(t, admin, 33, "Ernakulam")
	sender := &recordingEmailSender{}
	env.notifications.emailSender = sender

	notification, err := env.notifications.Notify(ctx, NotifyInput{
		RecipientClass: constants.RecipientBuyer,
		RecipientID:    33,
		Type:           constants.NotificationTypeOrderCancelled,
		Title:          "Order cancelled",
		Message:        "cancelled",
		OrderID:        order.ID,
		OrderNo:        order.OrderNo,
	})
	if err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if len(tasks.emails) != 1 || tasks.emails[0].NotificationID != notification.ID {
		t.Fatalf("expected email task, got %+v", tasks.emails)
	}
	if err := env.notifications.SendNotificationEmail(ctx, notification.ID); err != nil {
		t.Fatalf("send email failed: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "buyer33@example.com|Order cancelled" {
		t.Fatalf("unexpected email: %+v", sender.sent)
	}

	sender.err = ErrEmailServiceDisabled
	if err := env.notifications.SendNotificationEmail(ctx, notification.ID); err != nil {
		t.Fatalf("disabled email must be skipped, got %v", err)
	}
}

func TestRedeliverWritesNotification(t *testing.T) {
	env := setupHubFlowTest(t, hubFlowTestOptions{})
	payload := queue.NotificationDeliverPayload{
		RecipientClass: constants.RecipientBuyer,
		RecipientID:    44,
		Type:           constants.NotificationTypeOrderDelivered,
		Title:          "Order delivered",
		Message:        "picked up",
		OrderID:        7,
	}
	if err := env.notifications.Redeliver(context.Background(), payload); err != nil {
		t.Fatalf("redeliver failed: %v", err)
	}
	count, err := env.notifications.UnreadCount(NewActor(44, constants.RoleBuyer))
	if err != nil || count != 1 {
		t.Fatalf("expected 1 notification, got %d err=%v", count, err)
	}
	payload.Type = "unknown"
	if err := env.notifications.Redeliver(context.Background(), payload); !errors.Is(err, ErrNotificationTypeInvalid) {
		t.Fatalf("expected invalid type, got %v", err)
	}
}

func TestRedeliverAdminFanOutWritesEveryAdmin(t *testing.T) {
	env := setupHubFlowTest(t, hubFlowTestOptions{})
	first := env.createAdmin(t, "ops-c")
	second := env.createAdmin(t, "ops-d")
	payload := queue.NotificationDeliverPayload{
		RecipientClass: constants.RecipientAdmin,
		Type:           constants.NotificationTypeAdminApprovalRequired,
		Title:          "Approval required",
		Message:        "waiting",
		OrderID:        12,
		ActionRequired: true,
		ActionType:     constants.NotificationActionApproveDelivery,
	}
	if !IsAdminFanOut(payload.RecipientClass, payload.RecipientID) {
		t.Fatalf("admin payload without recipient should fan out")
	}
	if err := env.notifications.Redeliver(context.Background(), payload); err != nil {
		t.Fatalf("redeliver fan-out failed: %v", err)
	}
	for _, admin := range []uint{first.ID, second.ID} {
		count, err := env.notifications.UnreadCount(NewActor(admin, constants.RoleAdmin))
		if err != nil || count != 1 {
			t.Fatalf("admin %d unread=%d err=%v", admin, count, err)
		}
	}
}

func TestDeleteNotificationScopedToRecipient(t *testing.T) {
	env := setupHubFlowTest(t, hubFlowTestOptions{})
	ctx := context.Background()
	agent := NewActor(21, constants.RoleDeliveryAgent)
	notification, err := env.notifications.Notify(ctx, NotifyInput{
		RecipientClass: constants.RecipientDeliveryAgent,
		RecipientID:    agent.ID,
		Type:           constants.NotificationTypeDeliveryAgentAssigned,
		Title:          "New delivery",
		Message:        "collect",
	})
	if err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if err := env.notifications.Delete(notification.ID, NewActor(21, constants.RoleBuyer)); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("same id with another class must not delete, got %v", err)
	}
	if err := env.notifications.Delete(notification.ID, NewActor(22, constants.RoleDeliveryAgent)); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("other agent must not delete, got %v", err)
	}
	if err := env.notifications.Delete(notification.ID, agent); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if err := env.notifications.Delete(notification.ID, agent); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("second delete should report not found, got %v", err)
	}
	if count, err := env.notifications.UnreadCount(agent); err != nil || count != 0 {
		t.Fatalf("deleted notification still counted: %d err=%v", count, err)
	}
}
