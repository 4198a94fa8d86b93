package repository

import (
	"strings"
	"time"

	"github.com/hubflow-next/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository 通知数据访问接口
type NotificationRepository interface {
	Create(notification *models.Notification) error
	GetByID(id uint) (*models.Notification, error)
	List(filter NotificationListFilter) ([]models.Notification, int64, error)
	MarkRead(id uint, recipientClass string, recipientID uint, readAt time.Time) (int64, error)
	MarkAllRead(recipientClass string, recipientID uint, readAt time.Time) (int64, error)
	CountUnread(recipientClass string, recipientID uint) (int64, error)
	Delete(id uint, recipientClass string, recipientID uint) (int64, error)
	WithTx(tx *gorm.DB) *GormNotificationRepository
}

// GormNotificationRepository GORM 实现
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知仓库
func NewNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// WithTx 绑定事务
func (r *GormNotificationRepository) WithTx(tx *gorm.DB) *GormNotificationRepository {
	if tx == nil {
		return r
	}
	return &GormNotificationRepository{db: tx}
}

// Create 创建通知
func (r *GormNotificationRepository) Create(notification *models.Notification) error {
	return r.db.Create(notification).Error
}

// GetByID 根据 ID 获取通知
func (r *GormNotificationRepository) GetByID(id uint) (*models.Notification, error) {
	if id == 0 {
		return nil, nil
	}
	return firstOrNil[models.Notification](r.db, id)
}

// List 按接收方分页查询，最新的在前
func (r *GormNotificationRepository) List(filter NotificationListFilter) ([]models.Notification, int64, error) {
	query := r.db.Model(&models.Notification{}).
		Where("recipient_class = ? AND recipient_id = ?", filter.RecipientClass, filter.RecipientID)
	if filter.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if notificationType := strings.TrimSpace(filter.Type); notificationType != "" {
		query = query.Where("type = ?", notificationType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	notifications := make([]models.Notification, 0)
	query = applyPagination(query.Order("created_at DESC, id DESC"), filter.Page, filter.PageSize)
	if err := query.Find(&notifications).Error; err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

// MarkRead 标记单条已读（仅限本人），返回影响行数
func (r *GormNotificationRepository) MarkRead(id uint, recipientClass string, recipientID uint, readAt time.Time) (int64, error) {
	result := r.db.Model(&models.Notification{}).
		Where("id = ? AND recipient_class = ? AND recipient_id = ? AND is_read = ?", id, recipientClass, recipientID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": readAt})
	return result.RowsAffected, result.Error
}

// MarkAllRead 标记全部已读，返回影响行数
func (r *GormNotificationRepository) MarkAllRead(recipientClass string, recipientID uint, readAt time.Time) (int64, error) {
	result := r.db.Model(&models.Notification{}).
		Where("recipient_class = ? AND recipient_id = ? AND is_read = ?", recipientClass, recipientID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": readAt})
	return result.RowsAffected, result.Error
}

// CountUnread 未读数量
func (r *GormNotificationRepository) CountUnread(recipientClass string, recipientID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("recipient_class = ? AND recipient_id = ? AND is_read = ?", recipientClass, recipientID, false).
		Count(&count).Error
	return count, err
}

// Delete 删除本人的一条通知，返回影响行数
func (r *GormNotificationRepository) Delete(id uint, recipientClass string, recipientID uint) (int64, error) {
	result := r.db.Where("id = ? AND recipient_class = ? AND recipient_id = ?", id, recipientClass, recipientID).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
