package models

import "time"

// Notification 站内通知表，创建后仅已读标记可变，接收方可删除
type Notification struct {
	ID             uint       `gorm:"primarykey" json:"id"`                                                                         // 主键
	RecipientClass string     `gorm:"type:varchar(20);not null;index:idx_notification_recipient,priority:1" json:"recipient_class"` // 接收方类别
	RecipientID    uint       `gorm:"not null;index:idx_notification_recipient,priority:2" json:"recipient_id"`                     // 接收方ID
	Type           string     `gorm:"type:varchar(60);not null;index" json:"type"`                                                  // 通知类型
	Title          string     `gorm:"type:varchar(255);not null" json:"title"`                                                      // 标题
	Message        string     `gorm:"type:text;not null" json:"message"`                                                            // 内容
	OrderID        *uint      `gorm:"index" json:"order_id,omitempty"`                                                              // 关联订单ID
	OrderNo        string     `gorm:"type:varchar(32)" json:"order_no,omitempty"`                                                   // 关联订单号
	Read           bool       `gorm:"column:is_read;not null;default:false;index" json:"read"`                                      // 是否已读
	ReadAt         *time.Time `json:"read_at,omitempty"`                                                                            // 已读时间
	ActionRequired bool       `gorm:"not null;default:false" json:"action_required"`                                                // 是否需要处理
	ActionType     string     `gorm:"type:varchar(40)" json:"action_type,omitempty"`                                                // 动作类型
	Metadata       JSON       `gorm:"type:json" json:"metadata,omitempty"`                                                          // 附加数据
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`                                                                      // 创建时间
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notifications"
}
