package constants

// 订单位置常量（枢纽履约状态机）
const (
	OrderLocationAwaitingSellerHub = "awaiting_seller_hub"
	OrderLocationAtSellerHub       = "at_seller_hub"
	OrderLocationInTransit         = "in_transit_to_customer_hub"
	OrderLocationAtCustomerHub     = "at_customer_hub"
	OrderLocationDelivered         = "delivered"
	OrderLocationCancelled         = "cancelled"
)

// 支付状态常量（独立于位置轴，流水线不修改）
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
	PaymentStatusCOD      = "cod"
)

// 枢纽角色常量
const (
	HubRoleSeller   = "seller"
	HubRoleCustomer = "customer"
	HubRoleBoth     = "both"
)

// 枢纽状态常量
const (
	HubStatusActive      = "active"
	HubStatusInactive    = "inactive"
	HubStatusMaintenance = "maintenance"
)

// 默认枢纽容量
const DefaultHubMaxOrders = 500

// 主体角色常量
const (
	RoleAdmin         = "admin"
	RoleBuyer         = "buyer"
	RoleHubManager    = "hub_manager"
	RoleDeliveryAgent = "delivery_agent"
)

// 通知接收方类别
const (
	RecipientAdmin         = "admin"
	RecipientHubManager    = "hub_manager"
	RecipientBuyer         = "buyer"
	RecipientDeliveryAgent = "delivery_agent"
)

// 通知类型常量
const (
	NotificationTypeAdminApprovalRequired = "admin_approval_required"
	NotificationTypeArrivedSellerHub      = "order_arrived_seller_hub"
	NotificationTypeOrderApproved         = "order_approved"
	NotificationTypeDispatchedCustomerHub = "order_dispatched_to_customer_hub"
	NotificationTypeArrivedCustomerHub    = "order_arrived_customer_hub"
	NotificationTypePickupOtpReissued     = "pickup_otp_reissued"
	NotificationTypeOrderDelivered        = "order_delivered"
	NotificationTypeOrderCancelled        = "order_cancelled"
	NotificationTypeDoorstepRequested     = "doorstep_delivery_requested"
	NotificationTypeDeliveryAgentAssigned = "delivery_agent_assigned"
	NotificationTypeDeliveryOtpReissued   = "delivery_otp_reissued"
)

// 通知动作类型
const (
	NotificationActionApproveDelivery = "approve_delivery"
	NotificationActionReceiveOrder    = "receive_order"
	NotificationActionPickupOrder     = "pickup_order"
	NotificationActionAssignAgent     = "assign_delivery_agent"
	NotificationActionDeliverOrder    = "deliver_order"
	NotificationActionReceiveDelivery = "receive_delivery"
)

// 客户枢纽交付方式：到店自提或配送员上门
const (
	DeliveryPreferenceSelfPickup = "self_pickup"
	DeliveryPreferenceDoorstep   = "doorstep"
)

// 交接码用途
const (
	OtpPurposePickup   = "pickup"
	OtpPurposeDelivery = "delivery"
)

// 客户枢纽兜底策略
const (
	HubRoutingFallbackDefaultHub  = "default_hub"
	HubRoutingFallbackLeastLoaded = "least_loaded"
	HubRoutingFallbackNone        = "none"
)

// 审批策略
const (
	ApprovalPolicyRole = "role"
	ApprovalPolicyRBAC = "rbac"
)

// 订单号前缀
const OrderNoPrefix = "HF"

// 队列名称
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// 异步任务类型
const (
	TaskNotificationDeliver = "notification:deliver"
	TaskNotificationEmail   = "notification:email"
	TaskOrderLocationEvent  = "order:location_event"
)
