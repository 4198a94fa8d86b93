package models

import "time"

// HubOtp 枢纽交接码记录（只保存哈希）
type HubOtp struct {
	ID            uint       `gorm:"primarykey" json:"id"`                                                                // 主键
	OrderID       uint       `gorm:"not null;index:idx_hub_otp_order_purpose,priority:1" json:"order_id"`                 // 订单ID
	Purpose       string     `gorm:"type:varchar(20);not null;index:idx_hub_otp_order_purpose,priority:2" json:"purpose"` // 用途
	CodeHash      string     `gorm:"type:varchar(100);not null" json:"-"`                                                 // 验证码哈希
	ExpiresAt     time.Time  `gorm:"index" json:"expires_at"`                                                             // 过期时间
	ConsumedAt    *time.Time `gorm:"index" json:"consumed_at,omitempty"`                                                  // 核销时间
	InvalidatedAt *time.Time `gorm:"index" json:"invalidated_at,omitempty"`                                               // 作废时间
	AttemptCount  int        `gorm:"not null;default:0" json:"attempt_count"`                                             // 失败尝试次数
	IssuedAt      time.Time  `gorm:"index" json:"issued_at"`                                                              // 签发时间
}

// TableName 指定表名
func (HubOtp) TableName() string {
	return "hub_otps"
}

// IsActive 未核销且未作废
func (o *HubOtp) IsActive() bool {
	return o != nil && o.ConsumedAt == nil && o.InvalidatedAt == nil
}
