package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hubflow-next/internal/cache"
	"github.com/hubflow-next/internal/constants"
	"github.com/hubflow-next/internal/logger"
	"github.com/hubflow-next/internal/metrics"
	"github.com/hubflow-next/internal/models"
	"github.com/hubflow-next/internal/queue"
	"github.com/hubflow-next/internal/repository"
)

const notificationRedeliverDedupeTTL = 10 * time.Minute

// NotifyInput 通知写入参数
type NotifyInput struct {
	RecipientClass string
	RecipientID    uint
	Type           string
	Title          string
	Message        string
	OrderID        uint
	OrderNo        string
	ActionRequired bool
	ActionType     string
	Metadata       map[string]interface{}
}

// NotificationEmailSender 通知邮件发送能力
type NotificationEmailSender interface {
	SendNotificationEmail(toEmail, subject, body string) error
}

// NotificationService 站内通知服务（纯写入，不涉及状态机）
type NotificationService struct {
	notificationRepo repository.NotificationRepository
	adminRepo        repository.AdminRepository
	orderRepo        repository.OrderRepository
	queueClient      TaskEnqueuer
	emailSender      NotificationEmailSender
}

// NewNotificationService 创建通知服务
func NewNotificationService(
	notificationRepo repository.NotificationRepository,
	adminRepo repository.AdminRepository,
	orderRepo repository.OrderRepository,
	queueClient TaskEnqueuer,
	emailSender NotificationEmailSender,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		adminRepo:        adminRepo,
		orderRepo:        orderRepo,
		queueClient:      queueClient,
		emailSender:      emailSender,
	}
}

// Notify 写入一条通知
func (s *NotificationService) Notify(ctx context.Context, input NotifyInput) (*models.Notification, error) {
	notification, err := s.buildNotification(input)
	if err != nil {
		return nil, err
	}
	if err := s.notificationRepo.Create(notification); err != nil {
		return nil, err
	}
	metrics.NotificationsCreatedTotal.WithLabelValues(notification.Type).Inc()
	if notification.RecipientClass == constants.RecipientBuyer {
		s.enqueueEmail(notification)
	}
	return notification, nil
}

// AdminFanOutError 管理员扇出中部分接收方写入失败
type AdminFanOutError struct {
	Failed []uint
	Err    error
}

func (e *AdminFanOutError) Error() string {
	return fmt.Sprintf("notify %d admin(s) failed: %v", len(e.Failed), e.Err)
}

func (e *AdminFanOutError) Unwrap() error {
	return e.Err
}

// NotifyAdmins 向全部管理员扇出通知，单个失败不影响其他；
// 部分失败时返回 *AdminFanOutError，列出失败的管理员
func (s *NotificationService) NotifyAdmins(ctx context.Context, input NotifyInput) ([]models.Notification, error) {
	adminIDs, err := s.adminRepo.ListIDs()
	if err != nil {
		return nil, err
	}
	created := make([]models.Notification, 0, len(adminIDs))
	var fanOutErr *AdminFanOutError
	for _, adminID := range adminIDs {
		item := input
		item.RecipientClass = constants.RecipientAdmin
		item.RecipientID = adminID
		notification, err := s.Notify(ctx, item)
		if err != nil {
			logger.Warnw("notification_admin_fanout_failed", "admin_id", adminID, "type", input.Type, "error", err)
			if fanOutErr == nil {
				fanOutErr = &AdminFanOutError{Err: err}
			}
			fanOutErr.Failed = append(fanOutErr.Failed, adminID)
			continue
		}
		created = append(created, *notification)
	}
	if fanOutErr != nil {
		return created, fanOutErr
	}
	return created, nil
}

// ListFor 接收方通知列表，最新在前
func (s *NotificationService) ListFor(recipient Actor, unreadOnly bool, page, pageSize int) ([]models.Notification, int64, error) {
	class := recipient.RecipientClass()
	if class == "" || recipient.ID == 0 {
		return nil, 0, ErrRecipientInvalid
	}
	return s.notificationRepo.List(repository.NotificationListFilter{
		Page:           page,
		PageSize:       pageSize,
		RecipientClass: class,
		RecipientID:    recipient.ID,
		UnreadOnly:     unreadOnly,
	})
}

// MarkRead 标记已读，重复调用保持已读
func (s *NotificationService) MarkRead(notificationID uint, recipient Actor) (*models.Notification, error) {
	class := recipient.RecipientClass()
	if class == "" || recipient.ID == 0 {
		return nil, ErrRecipientInvalid
	}
	if _, err := s.notificationRepo.MarkRead(notificationID, class, recipient.ID, time.Now()); err != nil {
		return nil, err
	}
	notification, err := s.notificationRepo.GetByID(notificationID)
	if err != nil {
		return nil, err
	}
	if notification == nil || notification.RecipientClass != class || notification.RecipientID != recipient.ID {
		return nil, ErrNotificationNotFound
	}
	return notification, nil
}

// MarkAllRead 全部标记已读
func (s *NotificationService) MarkAllRead(recipient Actor) (int64, error) {
	class := recipient.RecipientClass()
	if class == "" || recipient.ID == 0 {
		return 0, ErrRecipientInvalid
	}
	return s.notificationRepo.MarkAllRead(class, recipient.ID, time.Now())
}

// UnreadCount 未读数量
func (s *NotificationService) UnreadCount(recipient Actor) (int64, error) {
	class := recipient.RecipientClass()
	if class == "" || recipient.ID == 0 {
		return 0, ErrRecipientInvalid
	}
	return s.notificationRepo.CountUnread(class, recipient.ID)
}

// Delete 删除本人的通知，非本人的按不存在处理
func (s *NotificationService) Delete(notificationID uint, recipient Actor) error {
	class := recipient.RecipientClass()
	if class == "" || recipient.ID == 0 {
		return ErrRecipientInvalid
	}
	rows, err := s.notificationRepo.Delete(notificationID, class, recipient.ID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// Redeliver 队列补偿写入，同一载荷在去重窗口内只写一次；
// 接收方为 admin 且 ID 为 0 时重新扇出给全部管理员
func (s *NotificationService) Redeliver(ctx context.Context, payload queue.NotificationDeliverPayload) error {
	dedupeKey := buildNotificationDedupeKey(payload)
	acquired, err := cache.SetNX(ctx, dedupeKey, "1", notificationRedeliverDedupeTTL)
	if err != nil {
		logger.Warnw("notification_redeliver_dedupe_failed", "type", payload.Type, "error", err)
	} else if !acquired {
		return nil
	}
	input := notifyInputFromPayload(payload)
	if IsAdminFanOut(payload.RecipientClass, payload.RecipientID) {
		err = s.redeliverAdminFanOut(ctx, input)
	} else {
		_, err = s.Notify(ctx, input)
	}
	if err != nil {
		if delErr := cache.Del(ctx, dedupeKey); delErr != nil {
			logger.Warnw("notification_redeliver_dedupe_release_failed", "type", payload.Type, "error", delErr)
		}
		return err
	}
	return nil
}

// redeliverAdminFanOut 已写入的管理员不重复写；失败的管理员拆成单条补偿任务
func (s *NotificationService) redeliverAdminFanOut(ctx context.Context, input NotifyInput) error {
	_, err := s.NotifyAdmins(ctx, input)
	var fanOutErr *AdminFanOutError
	if !errors.As(err, &fanOutErr) {
		return err
	}
	if s.queueClient == nil || !s.queueClient.Enabled() {
		return err
	}
	for _, adminID := range fanOutErr.Failed {
		item := input
		item.RecipientClass = constants.RecipientAdmin
		item.RecipientID = adminID
		if enqueueErr := s.queueClient.EnqueueNotificationDeliver(NotifyInputToPayload(item)); enqueueErr != nil {
			return enqueueErr
		}
	}
	return nil
}

// IsAdminFanOut 补偿载荷是否代表全体管理员
func IsAdminFanOut(recipientClass string, recipientID uint) bool {
	return recipientID == 0 && strings.EqualFold(strings.TrimSpace(recipientClass), constants.RecipientAdmin)
}

// NotifyInputToPayload 通知参数转补偿任务载荷
func NotifyInputToPayload(input NotifyInput) queue.NotificationDeliverPayload {
	return queue.NotificationDeliverPayload{
		RecipientClass: input.RecipientClass,
		RecipientID:    input.RecipientID,
		Type:           input.Type,
		Title:          input.Title,
		Message:        input.Message,
		OrderID:        input.OrderID,
		OrderNo:        input.OrderNo,
		ActionRequired: input.ActionRequired,
		ActionType:     input.ActionType,
		Metadata:       input.Metadata,
	}
}

func notifyInputFromPayload(payload queue.NotificationDeliverPayload) NotifyInput {
	return NotifyInput{
		RecipientClass: payload.RecipientClass,
		RecipientID:    payload.RecipientID,
		Type:           payload.Type,
		Title:          payload.Title,
		Message:        payload.Message,
		OrderID:        payload.OrderID,
		OrderNo:        payload.OrderNo,
		ActionRequired: payload.ActionRequired,
		ActionType:     payload.ActionType,
		Metadata:       payload.Metadata,
	}
}

// SendNotificationEmail 发送买家通知邮件
func (s *NotificationService) SendNotificationEmail(ctx context.Context, notificationID uint) error {
	if s.emailSender == nil {
		return nil
	}
	notification, err := s.notificationRepo.GetByID(notificationID)
	if err != nil {
		return err
	}
	if notification == nil {
		return ErrNotificationNotFound
	}
	if notification.RecipientClass != constants.RecipientBuyer || notification.OrderID == nil {
		return nil
	}
	order, err := s.orderRepo.GetByID(*notification.OrderID)
	if err != nil {
		return err
	}
	if order == nil || strings.TrimSpace(order.BuyerEmail) == "" || order.BuyerID != notification.RecipientID {
		return nil
	}
	err = s.emailSender.SendNotificationEmail(order.BuyerEmail, notification.Title, notification.Message)
	if errors.Is(err, ErrEmailServiceDisabled) {
		logger.Debugw("notification_email_skipped", "notification_id", notification.ID)
		return nil
	}
	return err
}

func (s *NotificationService) buildNotification(input NotifyInput) (*models.Notification, error) {
	class := strings.ToLower(strings.TrimSpace(input.RecipientClass))
	switch class {
	case constants.RecipientAdmin, constants.RecipientHubManager, constants.RecipientBuyer, constants.RecipientDeliveryAgent:
	default:
		return nil, ErrRecipientInvalid
	}
	if input.RecipientID == 0 {
		return nil, ErrRecipientInvalid
	}
	notificationType := strings.TrimSpace(input.Type)
	if !isNotificationTypeSupported(notificationType) {
		return nil, ErrNotificationTypeInvalid
	}
	notification := &models.Notification{
		RecipientClass: class,
		RecipientID:    input.RecipientID,
		Type:           notificationType,
		Title:          strings.TrimSpace(input.Title),
		Message:        strings.TrimSpace(input.Message),
		OrderNo:        strings.TrimSpace(input.OrderNo),
		ActionRequired: input.ActionRequired,
		ActionType:     strings.TrimSpace(input.ActionType),
	}
	if input.OrderID != 0 {
		orderID := input.OrderID
		notification.OrderID = &orderID
	}
	if len(input.Metadata) > 0 {
		notification.Metadata = models.JSON(input.Metadata)
	}
	return notification, nil
}

func (s *NotificationService) enqueueEmail(notification *models.Notification) {
	if s.queueClient == nil || !s.queueClient.Enabled() || notification.OrderID == nil {
		return
	}
	if err := s.queueClient.EnqueueNotificationEmail(queue.NotificationEmailPayload{NotificationID: notification.ID}); err != nil {
		logger.Warnw("notification_email_enqueue_failed", "notification_id", notification.ID, "error", err)
	}
}

func isNotificationTypeSupported(notificationType string) bool {
	switch notificationType {
	case constants.NotificationTypeAdminApprovalRequired,
		constants.NotificationTypeArrivedSellerHub,
		constants.NotificationTypeOrderApproved,
		constants.NotificationTypeDispatchedCustomerHub,
		constants.NotificationTypeArrivedCustomerHub,
		constants.NotificationTypePickupOtpReissued,
		constants.NotificationTypeOrderDelivered,
		constants.NotificationTypeOrderCancelled,
		constants.NotificationTypeDoorstepRequested,
		constants.NotificationTypeDeliveryAgentAssigned,
		constants.NotificationTypeDeliveryOtpReissued:
		return true
	}
	return false
}

func buildNotificationDedupeKey(payload queue.NotificationDeliverPayload) string {
	signature := strings.Builder{}
	signature.WriteString(payload.RecipientClass)
	signature.WriteString("|")
	signature.WriteString(fmt.Sprintf("%d", payload.RecipientID))
	signature.WriteString("|")
	signature.WriteString(payload.Type)
	signature.WriteString("|")
	signature.WriteString(fmt.Sprintf("%d", payload.OrderID))
	signature.WriteString("|")
	signature.WriteString(payload.Message)
	hash := sha1.Sum([]byte(signature.String()))
	return "notification:redeliver:" + hex.EncodeToString(hash[:])
}
