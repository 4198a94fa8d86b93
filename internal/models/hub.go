package models

import (
	"strings"
	"time"

	"github.com/hubflow-next/internal/constants"

	"gorm.io/gorm"
)

// Hub 物流枢纽表
type Hub struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                         // 主键
	Code               string         `gorm:"type:varchar(32);uniqueIndex;not null" json:"code"`            // 枢纽编码
	Name               string         `gorm:"type:varchar(120);not null" json:"name"`                       // 枢纽名称
	District           string         `gorm:"type:varchar(120);not null;index" json:"district"`             // 所在地区
	Role               string         `gorm:"type:varchar(20);not null;default:both" json:"role"`           // 角色 seller/customer/both
	Address            string         `gorm:"type:varchar(255)" json:"address,omitempty"`                   // 地址
	Pincode            string         `gorm:"type:varchar(20)" json:"pincode,omitempty"`                    // 邮编
	ContactPhone       string         `gorm:"type:varchar(32)" json:"contact_phone,omitempty"`              // 联系电话
	ContactEmail       string         `gorm:"type:varchar(255)" json:"contact_email,omitempty"`             // 联系邮箱
	ManagerID          *uint          `gorm:"index" json:"manager_id,omitempty"`                            // 枢纽负责人ID
	ManagerName        string         `gorm:"type:varchar(120)" json:"manager_name,omitempty"`              // 负责人姓名
	MaxOrders          int            `gorm:"not null;default:500" json:"max_orders"`                       // 最大容量
	CurrentOrders      int            `gorm:"not null;default:0" json:"current_orders"`                     // 当前在库订单数
	Status             string         `gorm:"type:varchar(20);not null;default:active;index" json:"status"` // 状态
	TotalOrdersHandled int64          `gorm:"not null;default:0" json:"total_orders_handled"`               // 累计处理订单数
	TotalDelivered     int64          `gorm:"not null;default:0" json:"total_delivered"`                    // 累计签收订单数
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                                      // 创建时间
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`                                      // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                               // 软删除时间
}

// TableName 指定表名
func (Hub) TableName() string {
	return "hubs"
}

// IsActive 是否处于营业状态
func (h *Hub) IsActive() bool {
	return h != nil && h.Status == constants.HubStatusActive
}

// ServesSeller 是否可作为卖家枢纽
func (h *Hub) ServesSeller() bool {
	return h != nil && (h.Role == constants.HubRoleSeller || h.Role == constants.HubRoleBoth)
}

// ServesCustomer 是否可作为客户枢纽
func (h *Hub) ServesCustomer() bool {
	return h != nil && (h.Role == constants.HubRoleCustomer || h.Role == constants.HubRoleBoth)
}

// IsAvailable 营业且未满载
func (h *Hub) IsAvailable() bool {
	return h.IsActive() && h.CurrentOrders < h.MaxOrders
}

// CapacityPercentage 容量占用百分比
func (h *Hub) CapacityPercentage() float64 {
	if h == nil || h.MaxOrders <= 0 {
		return 0
	}
	return float64(h.CurrentOrders) * 100 / float64(h.MaxOrders)
}

// NormalizeDistrict 地区比较使用的规范形式
func NormalizeDistrict(district string) string {
	return strings.ToLower(strings.TrimSpace(district))
}
