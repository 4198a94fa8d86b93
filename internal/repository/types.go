package repository

// HubListFilter 查询枢纽列表的过滤条件
type HubListFilter struct {
	Page       int
	PageSize   int
	District   string
	Role       string
	Status     string
	Search     string
	OnlyActive bool
}

// HubOrderListFilter 查询枢纽订单列表的过滤条件
type HubOrderListFilter struct {
	Page            int
	PageSize        int
	SellerHubID     uint
	CustomerHubID   uint
	DeliveryAgentID uint
	District        string
	BuyerID         uint
}

// NotificationListFilter 查询通知列表的过滤条件
type NotificationListFilter struct {
	Page           int
	PageSize       int
	RecipientClass string
	RecipientID    uint
	UnreadOnly     bool
	Type           string
}
