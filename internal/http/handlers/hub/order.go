package hub

import (
	"strings"

	"github.com/hubflow-next/internal/http/response"
	"github.com/hubflow-next/internal/models"
	"github.com/hubflow-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateOrderItemRequest 订单项请求
type CreateOrderItemRequest struct {
	ProductID uint         `json:"product_id"`
	SellerID  uint         `json:"seller_id"`
	Title     string       `json:"title" binding:"required"`
	UnitPrice models.Money `json:"unit_price"`
	Quantity  int          `json:"quantity" binding:"required"`
}

// CreateOrderRequest 订单移交请求（由结算服务调用）
type CreateOrderRequest struct {
	BuyerID          uint                     `json:"buyer_id" binding:"required"`
	BuyerName        string                   `json:"buyer_name" binding:"required"`
	BuyerPhone       string                   `json:"buyer_phone"`
	BuyerEmail       string                   `json:"buyer_email"`
	ShippingStreet   string                   `json:"shipping_street"`
	ShippingCity     string                   `json:"shipping_city"`
	ShippingDistrict string                   `json:"shipping_district" binding:"required"`
	ShippingState    string                   `json:"shipping_state"`
	ShippingPincode  string                   `json:"shipping_pincode"`
	PaymentStatus    string                   `json:"payment_status"`
	PaymentMethod    string                   `json:"payment_method"`
	Currency         string                   `json:"currency"`
	Remark           string                   `json:"remark"`
	Items            []CreateOrderItemRequest `json:"items" binding:"required"`
}

func (r CreateOrderRequest) toInput() service.CreateOrderInput {
	items := make([]service.CreateOrderItemInput, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, service.CreateOrderItemInput{
			ProductID: item.ProductID,
			SellerID:  item.SellerID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	return service.CreateOrderInput{
		BuyerID:          r.BuyerID,
		BuyerName:        r.BuyerName,
		BuyerPhone:       r.BuyerPhone,
		BuyerEmail:       r.BuyerEmail,
		ShippingStreet:   r.ShippingStreet,
		ShippingCity:     r.ShippingCity,
		ShippingDistrict: r.ShippingDistrict,
		ShippingState:    r.ShippingState,
		ShippingPincode:  r.ShippingPincode,
		PaymentStatus:    r.PaymentStatus,
		PaymentMethod:    r.PaymentMethod,
		Currency:         r.Currency,
		Remark:           r.Remark,
		Items:            items,
	}
}

// ArriveSellerHubRequest 到达卖家枢纽请求
type ArriveSellerHubRequest struct {
	HubID uint `json:"hub_id" binding:"required"`
}

// MarkDeliveredRequest 交付请求
type MarkDeliveredRequest struct {
	OTP string `json:"otp" binding:"required"`
}

// DeliveryPreferenceRequest 交付方式请求
type DeliveryPreferenceRequest struct {
	Preference string `json:"preference" binding:"required"`
}

// AssignAgentRequest 指派配送员请求
type AssignAgentRequest struct {
	AgentID uint `json:"agent_id" binding:"required"`
}

// CancelOrderRequest 取消请求
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// CreateOrder 接收结算服务移交的订单
func (h *Handler) CreateOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	order, err := h.OrderLocationService.CreateOrder(c.Request.Context(), req.toInput(), actor)
	if err != nil {
		respondHubFlowError(c, err, "error.order_create_failed")
		return
	}
	response.Success(c, order)
}

// GetOrder 订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	order, err := h.OrderLocationService.GetOrder(c.Request.Context(), orderID, actor)
	if err != nil {
		respondHubFlowError(c, err, "error.order_fetch_failed")
		return
	}
	response.Success(c, order)
}

// GetTracking 订单跟踪时间线
func (h *Handler) GetTracking(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	tracking, err := h.OrderLocationService.GetTracking(c.Request.Context(), orderID, actor)
	if err != nil {
		respondHubFlowError(c, err, "error.order_fetch_failed")
		return
	}
	response.Success(c, tracking)
}

// ArriveSellerHub 登记订单到达卖家枢纽
func (h *Handler) ArriveSellerHub(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	var req ArriveSellerHubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.hub_id_invalid", nil)
		return
	}
	order, err := h.OrderLocationService.ArriveAtSellerHub(c.Request.Context(), orderID, req.HubID, actor)
	if err != nil {
		respondHubFlowError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, order)
}

// ApproveHubDelivery 管理员审批放行
func (h *Handler) ApproveHubDelivery(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	order, err := h.OrderLocationService.ApproveForDispatch(c.Request.Context(), orderID, actor)
	if err != nil {
		respondHubFlowError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, order)
}

// ArriveCustomerHub 登记订单到达客户枢纽并签发取件码
func (h *Handler) ArriveCustomerHub(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	order, err := h.OrderLocationService.ArriveAtCustomerHub(c.Request.Context(), orderID, actor)
	if err != nil {
		respondHubFlowError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, order)
}

// ReissueHandoffOtp 按交付方式重新签发取件码或配送码
func (h *Handler) ReissueHandoffOtp(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	order, err := h.OrderLocationService.ReissueHandoffOtp(c.Request.Context(), orderID, actor)
	if err != nil {
		respondHubFlowError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, order)
}

// SetDeliveryPreference 选择到店自提或上门交付
func (h *Handler) SetDeliveryPreference(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	var req DeliveryPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.delivery_preference_invalid", nil)
		return
	}
	order, err := h.OrderLocationService.SetDeliveryPreference(c.Request.Context(), orderID, req.Preference, actor)
	if err != nil {
		respondHubFlowError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, order)
}

// AssignDeliveryAgent 指派配送员
func (h *Handler) AssignDeliveryAgent(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	var req AssignAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.delivery_agent_invalid", nil)
		return
	}
	order, err := h.OrderLocationService.AssignDeliveryAgent(c.Request.Context(), orderID, req.AgentID, actor)
	if err != nil {
		respondHubFlowError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, order)
}

// MarkDelivered 校验交接码并完成交付
func (h *Handler) MarkDelivered(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	var req MarkDeliveredRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.OTP) == "" {
		respondError(c, response.CodeBadRequest, "error.otp_invalid", nil)
		return
	}
	order, err := h.OrderLocationService.MarkDelivered(c.Request.Context(), orderID, strings.TrimSpace(req.OTP), actor)
	if err != nil {
		respondHubFlowError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, order)
}

// CancelOrder 取消订单（仅发出前）
func (h *Handler) CancelOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	var req CancelOrderRequest
	// 请求体可省略
	_ = c.ShouldBindJSON(&req)
	order, err := h.OrderLocationService.Cancel(c.Request.Context(), orderID, actor, strings.TrimSpace(req.Reason))
	if err != nil {
		respondHubFlowError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, order)
}
