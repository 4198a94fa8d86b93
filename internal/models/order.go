package models

import (
	"time"
)

// Order 订单表（由结算服务移交，仅承载履约所需快照）
type Order struct {
	ID               uint      `gorm:"primarykey" json:"id"`                                      // 主键
	OrderNo          string    `gorm:"type:varchar(32);uniqueIndex" json:"order_no"`              // 订单编号
	BuyerID          uint      `gorm:"index;not null" json:"buyer_id"`                            // 买家ID
	BuyerName        string    `gorm:"type:varchar(120);not null" json:"buyer_name"`              // 买家姓名快照
	BuyerPhone       string    `gorm:"type:varchar(32)" json:"buyer_phone"`                       // 买家电话快照
	BuyerEmail       string    `gorm:"type:varchar(255)" json:"buyer_email,omitempty"`            // 买家邮箱快照
	ShippingStreet   string    `gorm:"type:varchar(255)" json:"shipping_street"`                  // 收货街道
	ShippingCity     string    `gorm:"type:varchar(120)" json:"shipping_city"`                    // 收货城市
	ShippingDistrict string    `gorm:"type:varchar(120);index;not null" json:"shipping_district"` // 收货地区（用于客户枢纽路由）
	ShippingState    string    `gorm:"type:varchar(120)" json:"shipping_state"`                   // 收货省/州
	ShippingPincode  string    `gorm:"type:varchar(20)" json:"shipping_pincode"`                  // 邮编
	PaymentStatus    string    `gorm:"type:varchar(20);not null;index" json:"payment_status"`     // 支付状态（独立轴）
	PaymentMethod    string    `gorm:"type:varchar(32)" json:"payment_method,omitempty"`          // 支付方式
	Currency         string    `gorm:"type:varchar(8);not null" json:"currency"`                  // 币种
	TotalAmount      Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"` // 订单金额
	Remark           string    `gorm:"type:varchar(500)" json:"remark,omitempty"`                 // 备注
	CreatedAt        time.Time `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt        time.Time `gorm:"index" json:"updated_at"`                                   // 更新时间

	HubTrackingRecord `gorm:"embedded" json:"hub_tracking"` // 枢纽跟踪

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
