package models

import (
	"time"

	"gorm.io/gorm"
)

// Admin 管理员：审批放行的操作人，也是审批提醒的扇出对象
type Admin struct {
	ID                 uint           `gorm:"primarykey" json:"id"`
	Username           string         `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash       string         `gorm:"not null" json:"-"`
	TokenVersion       uint64         `gorm:"not null;default:0" json:"-"` // 递增后旧 Token 全部失效
	TokenInvalidBefore *time.Time     `gorm:"index" json:"-"`
	IsSuper            bool           `gorm:"not null;default:false;index" json:"is_super"` // 跳过审批策略校验
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"` // 软删除后不再接收审批提醒
}

// TableName 指定表名
func (Admin) TableName() string {
	return "admins"
}
