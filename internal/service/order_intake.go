package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/hubflow-next/internal/constants"
	"github.com/hubflow-next/internal/logger"
	"github.com/hubflow-next/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultOrderCurrency = "INR"

// CreateOrderItemInput 订单项快照
type CreateOrderItemInput struct {
	ProductID uint
	SellerID  uint
	Title     string
	UnitPrice models.Money
	Quantity  int
}

// CreateOrderInput 结算服务移交的订单快照
type CreateOrderInput struct {
	BuyerID          uint
	BuyerName        string
	BuyerPhone       string
	BuyerEmail       string
	ShippingStreet   string
	ShippingCity     string
	ShippingDistrict string
	ShippingState    string
	ShippingPincode  string
	PaymentStatus    string
	PaymentMethod    string
	Currency         string
	Remark           string
	Items            []CreateOrderItemInput
}

// TrackingEvent 跟踪时间线节点
type TrackingEvent struct {
	Location string    `json:"location"`
	At       time.Time `json:"at"`
}

// OrderTracking 订单跟踪视图
type OrderTracking struct {
	OrderID            uint            `json:"order_id"`
	OrderNo            string          `json:"order_no"`
	CurrentLocation    string          `json:"current_location"`
	ApprovedByAdmin    bool            `json:"approved_by_admin"`
	PaymentStatus      string          `json:"payment_status"`
	SellerHub          *HubSummary     `json:"seller_hub,omitempty"`
	CustomerHub        *HubSummary     `json:"customer_hub,omitempty"`
	DeliveryPreference string          `json:"delivery_preference"`
	DeliveryAgentID    *uint           `json:"delivery_agent_id,omitempty"`
	OtpPurpose         string          `json:"otp_purpose,omitempty"`
	OtpExpiresAt       *time.Time      `json:"otp_expires_at,omitempty"`
	CancelReason       string          `json:"cancel_reason,omitempty"`
	Timeline           []TrackingEvent `json:"timeline"`
}

// CreateOrder 登记一笔待进入卖家枢纽的订单
func (s *OrderLocationService) CreateOrder(ctx context.Context, input CreateOrderInput, actor Actor) (*models.Order, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	order, items, err := buildOrderFromInput(input)
	if err != nil {
		return nil, err
	}
	err = s.orderRepo.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		if err := orderRepo.Create(order, items); err != nil {
			return err
		}
		order.OrderNo = fmt.Sprintf("%s%08d", constants.OrderNoPrefix, order.ID)
		return orderRepo.AssignOrderNo(order.ID, order.OrderNo)
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("order_intake_created",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"buyer_id", order.BuyerID,
		"district", order.ShippingDistrict,
		"items", len(items),
	)
	return order, nil
}

// GetOrder 获取订单详情（按主体可见范围）
func (s *OrderLocationService) GetOrder(ctx context.Context, orderID uint, actor Actor) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || !s.canView(order, actor) {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetTracking 订单跟踪视图
func (s *OrderLocationService) GetTracking(ctx context.Context, orderID uint, actor Actor) (*OrderTracking, error) {
	order, err := s.GetOrder(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}
	tracking := &OrderTracking{
		OrderID:            order.ID,
		OrderNo:            order.OrderNo,
		CurrentLocation:    order.CurrentLocation.String(),
		ApprovedByAdmin:    order.ApprovedByAdmin,
		PaymentStatus:      order.PaymentStatus,
		DeliveryPreference: order.DeliveryPreference,
		DeliveryAgentID:    order.DeliveryAgentID,
		OtpPurpose:         order.OtpPurpose,
		OtpExpiresAt:       order.OtpExpiresAt,
		CancelReason:       order.CancelReason,
		Timeline:           buildTrackingTimeline(order),
	}
	if order.SellerHubID != nil {
		hub, err := s.hubRepo.GetByID(*order.SellerHubID)
		if err != nil {
			return nil, err
		}
		tracking.SellerHub = toHubSummary(hub)
	}
	if order.CustomerHubID != nil {
		hub, err := s.hubRepo.GetByID(*order.CustomerHubID)
		if err != nil {
			return nil, err
		}
		tracking.CustomerHub = toHubSummary(hub)
	}
	return tracking, nil
}

func (s *OrderLocationService) canView(order *models.Order, actor Actor) bool {
	switch {
	case actor.IsAdmin():
		return true
	case actor.IsBuyer():
		return order.BuyerID == actor.ID
	case actor.IsDeliveryAgent():
		return isAssignedAgent(order, actor)
	case actor.IsHubManager():
		for _, hubID := range []*uint{order.SellerHubID, order.CustomerHubID} {
			if hubID == nil {
				continue
			}
			hub, err := s.hubRepo.GetByID(*hubID)
			if err != nil {
				logger.Warnw("order_view_hub_lookup_failed", "order_id", order.ID, "hub_id", *hubID, "error", err)
				continue
			}
			if IsManagedBy(hub, actor) {
				return true
			}
		}
	}
	return false
}

func isAssignedAgent(order *models.Order, actor Actor) bool {
	return actor.IsDeliveryAgent() && order.DeliveryAgentID != nil && *order.DeliveryAgentID == actor.ID
}

func buildTrackingTimeline(order *models.Order) []TrackingEvent {
	timeline := []TrackingEvent{{Location: models.LocationAwaitingSellerHub.String(), At: order.CreatedAt}}
	steps := []struct {
		location models.OrderLocation
		at       *time.Time
	}{
		{models.LocationAtSellerHub, order.ArrivedAtSellerHub},
		{models.LocationInTransit, order.DispatchedAt},
		{models.LocationAtCustomerHub, order.ArrivedAtCustomerHub},
		{models.LocationDelivered, order.DeliveredAt},
		{models.LocationCancelled, order.CancelledAt},
	}
	for _, step := range steps {
		if step.at != nil {
			timeline = append(timeline, TrackingEvent{Location: step.location.String(), At: *step.at})
		}
	}
	return timeline
}

func buildOrderFromInput(input CreateOrderInput) (*models.Order, []models.OrderItem, error) {
	buyerName := strings.TrimSpace(input.BuyerName)
	district := strings.TrimSpace(input.ShippingDistrict)
	if input.BuyerID == 0 || buyerName == "" {
		return nil, nil, fmt.Errorf("%w: buyer required", ErrOrderInvalid)
	}
	if district == "" {
		return nil, nil, fmt.Errorf("%w: shipping district required", ErrOrderInvalid)
	}
	email := strings.TrimSpace(input.BuyerEmail)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, nil, fmt.Errorf("%w: buyer email invalid", ErrOrderInvalid)
		}
	}
	if len(input.Items) == 0 {
		return nil, nil, fmt.Errorf("%w: items required", ErrOrderInvalid)
	}
	paymentStatus := strings.ToLower(strings.TrimSpace(input.PaymentStatus))
	switch paymentStatus {
	case "":
		paymentStatus = constants.PaymentStatusPending
	case constants.PaymentStatusPending, constants.PaymentStatusPaid, constants.PaymentStatusRefunded, constants.PaymentStatusCOD:
	default:
		return nil, nil, fmt.Errorf("%w: payment status %q", ErrOrderInvalid, paymentStatus)
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = defaultOrderCurrency
	}

	items := make([]models.OrderItem, 0, len(input.Items))
	total := models.Money{}
	for _, item := range input.Items {
		title := strings.TrimSpace(item.Title)
		if item.ProductID == 0 || title == "" || item.Quantity <= 0 || item.UnitPrice.IsNegative() {
			return nil, nil, fmt.Errorf("%w: item invalid", ErrOrderInvalid)
		}
		lineTotal := item.UnitPrice.MulInt(item.Quantity)
		total = total.Add(lineTotal)
		items = append(items, models.OrderItem{
			ProductID:  item.ProductID,
			SellerID:   item.SellerID,
			Title:      title,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
			TotalPrice: lineTotal,
		})
	}

	order := &models.Order{
		OrderNo:          "tmp-" + uuid.NewString()[:24],
		BuyerID:          input.BuyerID,
		BuyerName:        buyerName,
		BuyerPhone:       strings.TrimSpace(input.BuyerPhone),
		BuyerEmail:       email,
		ShippingStreet:   strings.TrimSpace(input.ShippingStreet),
		ShippingCity:     strings.TrimSpace(input.ShippingCity),
		ShippingDistrict: district,
		ShippingState:    strings.TrimSpace(input.ShippingState),
		ShippingPincode:  strings.TrimSpace(input.ShippingPincode),
		PaymentStatus:    paymentStatus,
		PaymentMethod:    strings.TrimSpace(input.PaymentMethod),
		Currency:         currency,
		TotalAmount:      total,
		Remark:           strings.TrimSpace(input.Remark),
		HubTrackingRecord: models.HubTrackingRecord{
			CurrentLocation:    models.LocationAwaitingSellerHub,
			DeliveryPreference: constants.DeliveryPreferenceSelfPickup,
		},
	}
	return order, items, nil
}
