package models

import (
	"fmt"
	"time"

	"github.com/hubflow-next/internal/constants"
)

// HubTrackingRecord 订单的枢纽跟踪信息（内嵌在订单表中）
type HubTrackingRecord struct {
	CurrentLocation      OrderLocation `gorm:"type:varchar(40);not null;default:awaiting_seller_hub;index" json:"current_location"` // 当前位置
	SellerHubID          *uint         `gorm:"index" json:"seller_hub_id,omitempty"`                                                // 卖家枢纽ID
	SellerHubName        string        `gorm:"type:varchar(120)" json:"seller_hub_name,omitempty"`                                  // 卖家枢纽名称快照
	CustomerHubID        *uint         `gorm:"index" json:"customer_hub_id,omitempty"`                                              // 客户枢纽ID
	CustomerHubName      string        `gorm:"type:varchar(120)" json:"customer_hub_name,omitempty"`                                // 客户枢纽名称快照
	ApprovedByAdmin      bool          `gorm:"not null;default:false;index" json:"approved_by_admin"`                               // 是否已审批放行
	ApprovedAt           *time.Time    `json:"approved_at,omitempty"`                                                               // 审批时间
	ApprovedBy           *uint         `json:"approved_by,omitempty"`                                                               // 审批管理员ID
	ArrivedAtSellerHub   *time.Time    `gorm:"index" json:"arrived_at_seller_hub,omitempty"`                                        // 到达卖家枢纽时间
	DispatchedAt         *time.Time    `json:"dispatched_at,omitempty"`                                                             // 发往客户枢纽时间
	ArrivedAtCustomerHub *time.Time    `json:"arrived_at_customer_hub,omitempty"`                                                   // 到达客户枢纽时间
	DeliveredAt          *time.Time    `gorm:"index" json:"delivered_at,omitempty"`                                                 // 签收时间
	CancelledAt          *time.Time    `json:"cancelled_at,omitempty"`                                                              // 取消时间
	CancelReason         string        `gorm:"type:varchar(255)" json:"cancel_reason,omitempty"`                                    // 取消原因
	DeliveryPreference   string        `gorm:"type:varchar(20);not null;default:self_pickup" json:"delivery_preference"`            // 交付方式
	DeliveryAgentID      *uint         `gorm:"index" json:"delivery_agent_id,omitempty"`                                            // 上门配送员ID
	AgentAssignedAt      *time.Time    `json:"agent_assigned_at,omitempty"`                                                         // 指派配送员时间
	OtpPurpose           string        `gorm:"type:varchar(20)" json:"otp_purpose,omitempty"`                                       // 当前有效交接码用途
	OtpExpiresAt         *time.Time    `json:"otp_expires_at,omitempty"`                                                            // 当前交接码过期时间
}

// CheckInvariant 审批标记必须与位置保持一致
func (r HubTrackingRecord) CheckInvariant() error {
	if err := r.CurrentLocation.Validate(); err != nil {
		return err
	}
	if r.ApprovedByAdmin != r.CurrentLocation.IsApprovedStage() {
		return fmt.Errorf("%w: location=%s approved=%t", ErrTrackingInvariant, r.CurrentLocation, r.ApprovedByAdmin)
	}
	if r.ApprovedByAdmin && r.ApprovedAt == nil {
		return fmt.Errorf("%w: approved without approved_at", ErrTrackingInvariant)
	}
	if r.DeliveryAgentID != nil && !r.IsDoorstep() {
		return fmt.Errorf("%w: delivery agent on %s order", ErrTrackingInvariant, r.DeliveryPreference)
	}
	return nil
}

// IsDoorstep 是否由配送员上门交付
func (r HubTrackingRecord) IsDoorstep() bool {
	return r.DeliveryPreference == constants.DeliveryPreferenceDoorstep
}

// HubTrackingColumns 跟踪字段列名，与 HubTrackingRecord 对应
const (
	ColCurrentLocation      = "current_location"
	ColSellerHubID          = "seller_hub_id"
	ColSellerHubName        = "seller_hub_name"
	ColCustomerHubID        = "customer_hub_id"
	ColCustomerHubName      = "customer_hub_name"
	ColApprovedByAdmin      = "approved_by_admin"
	ColApprovedAt           = "approved_at"
	ColApprovedBy           = "approved_by"
	ColArrivedAtSellerHub   = "arrived_at_seller_hub"
	ColDispatchedAt         = "dispatched_at"
	ColArrivedAtCustomerHub = "arrived_at_customer_hub"
	ColDeliveredAt          = "delivered_at"
	ColCancelledAt          = "cancelled_at"
	ColCancelReason         = "cancel_reason"
	ColDeliveryPreference   = "delivery_preference"
	ColDeliveryAgentID      = "delivery_agent_id"
	ColAgentAssignedAt      = "agent_assigned_at"
	ColOtpPurpose           = "otp_purpose"
	ColOtpExpiresAt         = "otp_expires_at"
)
