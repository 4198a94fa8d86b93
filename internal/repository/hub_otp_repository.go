package repository

import (
	"time"

	"github.com/hubflow-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HubOtpRepository 交接码数据访问接口
type HubOtpRepository interface {
	Create(otp *models.HubOtp) error
	GetByID(id uint) (*models.HubOtp, error)
	GetActive(orderID uint, purpose string) (*models.HubOtp, error)
	GetLatest(orderID uint, purpose string) (*models.HubOtp, error)
	InvalidateActive(orderID uint, purpose string, at time.Time) (int64, error)
	Invalidate(id uint, at time.Time) error
	MarkConsumed(id uint, at time.Time) (bool, error)
	IncrementAttempt(id uint) error
	PurgeBefore(before time.Time) (int64, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormHubOtpRepository
}

// GormHubOtpRepository GORM 实现
type GormHubOtpRepository struct {
	db *gorm.DB
}

// NewHubOtpRepository 创建交接码仓库
func NewHubOtpRepository(db *gorm.DB) *GormHubOtpRepository {
	return &GormHubOtpRepository{db: db}
}

// WithTx 绑定事务
func (r *GormHubOtpRepository) WithTx(tx *gorm.DB) *GormHubOtpRepository {
	if tx == nil {
		return r
	}
	return &GormHubOtpRepository{db: tx}
}

// Transaction 执行事务
func (r *GormHubOtpRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 根据 ID 获取交接码记录
func (r *GormHubOtpRepository) GetByID(id uint) (*models.HubOtp, error) {
	return firstOrNil[models.HubOtp](r.db, id)
}

// Create 创建交接码记录
func (r *GormHubOtpRepository) Create(otp *models.HubOtp) error {
	return r.db.Create(otp).Error
}

// GetActive 获取订单当前有效的交接码（加锁）
func (r *GormHubOtpRepository) GetActive(orderID uint, purpose string) (*models.HubOtp, error) {
	query := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ? AND purpose = ? AND consumed_at IS NULL AND invalidated_at IS NULL", orderID, purpose).
		Order("issued_at DESC, id DESC")
	return firstOrNil[models.HubOtp](query)
}

// GetLatest 最近签发的一条交接码，不论状态
func (r *GormHubOtpRepository) GetLatest(orderID uint, purpose string) (*models.HubOtp, error) {
	query := r.db.Where("order_id = ? AND purpose = ?", orderID, purpose).
		Order("issued_at DESC, id DESC")
	return firstOrNil[models.HubOtp](query)
}

// InvalidateActive 作废订单全部有效交接码
func (r *GormHubOtpRepository) InvalidateActive(orderID uint, purpose string, at time.Time) (int64, error) {
	result := r.db.Model(&models.HubOtp{}).
		Where("order_id = ? AND purpose = ? AND consumed_at IS NULL AND invalidated_at IS NULL", orderID, purpose).
		Update("invalidated_at", at)
	return result.RowsAffected, result.Error
}

// Invalidate 作废单条交接码
func (r *GormHubOtpRepository) Invalidate(id uint, at time.Time) error {
	return r.db.Model(&models.HubOtp{}).
		Where("id = ? AND invalidated_at IS NULL", id).
		Update("invalidated_at", at).Error
}

// MarkConsumed 核销交接码，已核销或已作废时返回 false
func (r *GormHubOtpRepository) MarkConsumed(id uint, at time.Time) (bool, error) {
	result := r.db.Model(&models.HubOtp{}).
		Where("id = ? AND consumed_at IS NULL AND invalidated_at IS NULL", id).
		Update("consumed_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// IncrementAttempt 增加失败次数
func (r *GormHubOtpRepository) IncrementAttempt(id uint) error {
	return r.db.Model(&models.HubOtp{}).
		Where("id = ?", id).
		UpdateColumn("attempt_count", gorm.Expr("attempt_count + 1")).Error
}

// PurgeBefore 清理早于指定时间过期或已失效的记录
func (r *GormHubOtpRepository) PurgeBefore(before time.Time) (int64, error) {
	result := r.db.
		Where("expires_at < ? OR consumed_at < ? OR invalidated_at < ?", before, before, before).
		Delete(&models.HubOtp{})
	return result.RowsAffected, result.Error
}
