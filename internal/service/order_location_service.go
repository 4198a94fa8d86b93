package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hubflow-next/internal/cache"
	"github.com/hubflow-next/internal/constants"
	"github.com/hubflow-next/internal/events"
	"github.com/hubflow-next/internal/logger"
	"github.com/hubflow-next/internal/metrics"
	"github.com/hubflow-next/internal/models"
	"github.com/hubflow-next/internal/queue"
	"github.com/hubflow-next/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 迁移操作名（用于指标与日志）
const (
	opArriveSellerHub   = "arrive_seller_hub"
	opApprove           = "approve_for_dispatch"
	opArriveCustomerHub = "arrive_customer_hub"
	opMarkDelivered     = "mark_delivered"
	opCancel            = "cancel"
	opReissueOtp        = "reissue_handoff_otp"
	opSetPreference     = "set_delivery_preference"
	opAssignAgent       = "assign_delivery_agent"
)

// NotificationDispatcher 迁移提交后的通知写入能力
type NotificationDispatcher interface {
	Notify(ctx context.Context, input NotifyInput) (*models.Notification, error)
	NotifyAdmins(ctx context.Context, input NotifyInput) ([]models.Notification, error)
}

// TaskEnqueuer 异步任务投递能力
type TaskEnqueuer interface {
	Enabled() bool
	EnqueueNotificationDeliver(payload queue.NotificationDeliverPayload) error
	EnqueueNotificationEmail(payload queue.NotificationEmailPayload) error
	EnqueueOrderLocationEvent(payload queue.OrderLocationEventPayload) error
}

// OrderLocationService 订单枢纽履约状态机
type OrderLocationService struct {
	orderRepo  repository.OrderRepository
	hubRepo    repository.HubRepository
	otp        *OtpService
	gate       ApprovalGate
	resolver   *CustomerHubResolver
	dispatcher NotificationDispatcher
	tasks      TaskEnqueuer
	publisher  events.Publisher
}

// NewOrderLocationService 创建状态机服务
func NewOrderLocationService(
	orderRepo repository.OrderRepository,
	hubRepo repository.HubRepository,
	otp *OtpService,
	gate ApprovalGate,
	resolver *CustomerHubResolver,
	dispatcher NotificationDispatcher,
	tasks TaskEnqueuer,
	publisher events.Publisher,
) *OrderLocationService {
	if gate == nil {
		gate = AdminRoleApprovalPolicy{}
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &OrderLocationService{
		orderRepo:  orderRepo,
		hubRepo:    hubRepo,
		otp:        otp,
		gate:       gate,
		resolver:   resolver,
		dispatcher: dispatcher,
		tasks:      tasks,
		publisher:  publisher,
	}
}

// locationNotice 提交后待写入的通知
type locationNotice struct {
	admins bool
	input  NotifyInput
}

// transitionPlan 一次迁移的期望状态与写入内容
type transitionPlan struct {
	from           models.OrderLocation
	to             models.OrderLocation
	expectApproved bool
	at             time.Time
	updates        map[string]interface{}
	notices        []locationNotice
}

func newTransitionPlan(order *models.Order, to models.OrderLocation, at time.Time) *transitionPlan {
	return &transitionPlan{
		from:           order.CurrentLocation,
		to:             to,
		expectApproved: order.ApprovedByAdmin,
		at:             at,
		updates: map[string]interface{}{
			models.ColCurrentLocation: to,
		},
	}
}

func (p *transitionPlan) notify(input NotifyInput) {
	p.notices = append(p.notices, locationNotice{input: input})
}

func (p *transitionPlan) notifyAdmins(input NotifyInput) {
	p.notices = append(p.notices, locationNotice{admins: true, input: input})
}

type transitionBuilder func(tx *gorm.DB, order *models.Order) (*transitionPlan, error)

// ArriveAtSellerHub 登记订单到达卖家枢纽
func (s *OrderLocationService) ArriveAtSellerHub(ctx context.Context, orderID, hubID uint, actor Actor) (*models.Order, error) {
	if !actor.IsAdmin() && !actor.IsHubManager() {
		return nil, s.reject(opArriveSellerHub, ErrForbidden)
	}
	return s.runTransition(ctx, opArriveSellerHub, orderID, actor, func(tx *gorm.DB, order *models.Order) (*transitionPlan, error) {
		if order.CurrentLocation != models.LocationAwaitingSellerHub {
			return nil, ErrInvalidTransition
		}
		hubRepo := s.hubRepo.WithTx(tx)
		hub, err := hubRepo.GetByIDForUpdate(hubID)
		if err != nil {
			return nil, err
		}
		if hub == nil {
			return nil, ErrHubNotFound
		}
		if actor.IsHubManager() && !IsManagedBy(hub, actor) {
			return nil, ErrForbidden
		}
		if !hub.IsActive() {
			return nil, ErrHubInactive
		}
		if !hub.ServesSeller() {
			return nil, ErrHubRoleMismatch
		}
		if !hub.IsAvailable() {
			logger.Warnw("seller_hub_over_capacity", "hub_id", hub.ID, "order_id", order.ID,
				"current_orders", hub.CurrentOrders, "max_orders", hub.MaxOrders)
		}
		if _, err := hubRepo.AdjustCurrentOrders(hub.ID, 1); err != nil {
			return nil, err
		}

		plan := newTransitionPlan(order, models.LocationAtSellerHub, time.Now())
		plan.updates[models.ColSellerHubID] = hub.ID
		plan.updates[models.ColSellerHubName] = hub.Name
		plan.updates[models.ColArrivedAtSellerHub] = plan.at
		plan.notifyAdmins(NotifyInput{
			Type:           constants.NotificationTypeAdminApprovalRequired,
			Title:          "Approval required",
			Message:        fmt.Sprintf("Order %s arrived at %s and is waiting for dispatch approval.", order.OrderNo, hub.Name),
			OrderID:        order.ID,
			OrderNo:        order.OrderNo,
			ActionRequired: true,
			ActionType:     constants.NotificationActionApproveDelivery,
			Metadata:       map[string]interface{}{"seller_hub_id": hub.ID, "seller_hub_name": hub.Name},
		})
		if hub.ManagerID != nil {
			plan.notify(NotifyInput{
				RecipientClass: constants.RecipientHubManager,
				RecipientID:    *hub.ManagerID,
				Type:           constants.NotificationTypeArrivedSellerHub,
				Title:          "Order received at hub",
				Message:        fmt.Sprintf("Order %s has been checked in at %s.", order.OrderNo, hub.Name),
				OrderID:        order.ID,
				OrderNo:        order.OrderNo,
			})
		}
		return plan, nil
	})
}

// ApproveForDispatch 管理员审批放行并发往客户枢纽
func (s *OrderLocationService) ApproveForDispatch(ctx context.Context, orderID uint, actor Actor) (*models.Order, error) {
	if preflight := s.gate.CanApprove(ctx, nil, actor); !preflight.Allowed && errors.Is(preflight.Err, ErrAdminOnly) {
		return nil, s.reject(opApprove, preflight.Err)
	}
	return s.runTransition(ctx, opApprove, orderID, actor, func(tx *gorm.DB, order *models.Order) (*transitionPlan, error) {
		decision := s.gate.CanApprove(ctx, order, actor)
		if !decision.Allowed {
			if decision.Err != nil {
				return nil, decision.Err
			}
			return nil, ErrAdminOnly
		}
		hubRepo := s.hubRepo.WithTx(tx)
		customerHub, err := s.resolver.Resolve(hubRepo, order.ShippingDistrict)
		if err != nil {
			return nil, err
		}
		if order.SellerHubID != nil {
			ok, err := hubRepo.AdjustCurrentOrders(*order.SellerHubID, -1)
			if err != nil {
				return nil, err
			}
			if !ok {
				logger.Warnw("hub_counter_underflow", "hub_id", *order.SellerHubID, "order_id", order.ID, "operation", opApprove)
			}
		}

		plan := newTransitionPlan(order, models.LocationInTransit, time.Now())
		plan.updates[models.ColApprovedByAdmin] = true
		plan.updates[models.ColApprovedAt] = plan.at
		plan.updates[models.ColApprovedBy] = actor.ID
		plan.updates[models.ColDispatchedAt] = plan.at
		plan.updates[models.ColCustomerHubID] = customerHub.ID
		plan.updates[models.ColCustomerHubName] = customerHub.Name
		if customerHub.ManagerID != nil {
			plan.notify(NotifyInput{
				RecipientClass: constants.RecipientHubManager,
				RecipientID:    *customerHub.ManagerID,
				Type:           constants.NotificationTypeDispatchedCustomerHub,
				Title:          "Incoming order",
				Message:        fmt.Sprintf("Order %s from %s is on its way to %s.", order.OrderNo, order.SellerHubName, customerHub.Name),
				OrderID:        order.ID,
				OrderNo:        order.OrderNo,
				ActionRequired: true,
				ActionType:     constants.NotificationActionReceiveOrder,
				Metadata:       map[string]interface{}{"customer_hub_id": customerHub.ID},
			})
		} else {
			logger.Infow("customer_hub_without_manager", "hub_id", customerHub.ID, "order_id", order.ID)
		}
		plan.notify(NotifyInput{
			RecipientClass: constants.RecipientBuyer,
			RecipientID:    order.BuyerID,
			Type:           constants.NotificationTypeOrderApproved,
			Title:          "Order dispatched",
			Message:        fmt.Sprintf("Your order %s has been approved and is heading to %s.", order.OrderNo, customerHub.Name),
			OrderID:        order.ID,
			OrderNo:        order.OrderNo,
		})
		return plan, nil
	})
}

// ArriveAtCustomerHub 登记订单到达客户枢纽并签发自提码
func (s *OrderLocationService) ArriveAtCustomerHub(ctx context.Context, orderID uint, actor Actor) (*models.Order, error) {
	if !actor.IsAdmin() && !actor.IsHubManager() {
		return nil, s.reject(opArriveCustomerHub, ErrForbidden)
	}
	return s.runTransition(ctx, opArriveCustomerHub, orderID, actor, func(tx *gorm.DB, order *models.Order) (*transitionPlan, error) {
		if order.CurrentLocation != models.LocationInTransit {
			return nil, ErrInvalidTransition
		}
		hub, err := s.customerHubOf(tx, order, actor)
		if err != nil {
			return nil, err
		}
		if _, err := s.hubRepo.WithTx(tx).AdjustCurrentOrders(hub.ID, 1); err != nil {
			return nil, err
		}
		plan := newTransitionPlan(order, models.LocationAtCustomerHub, time.Now())
		code, expiresAt, err := s.otp.IssueTx(tx, order.ID, constants.OtpPurposePickup, plan.at)
		if err != nil {
			return nil, err
		}
		plan.updates[models.ColArrivedAtCustomerHub] = plan.at
		plan.updates[models.ColOtpPurpose] = constants.OtpPurposePickup
		plan.updates[models.ColOtpExpiresAt] = expiresAt
		plan.notify(pickupNotice(order, hub, constants.NotificationTypeArrivedCustomerHub, code, expiresAt))
		return plan, nil
	})
}

// MarkDelivered 校验交接码后完成交付：自提核对取件码，上门核对配送码
func (s *OrderLocationService) MarkDelivered(ctx context.Context, orderID uint, code string, actor Actor) (*models.Order, error) {
	if !actor.IsAdmin() && !actor.IsHubManager() && !actor.IsDeliveryAgent() {
		return nil, s.reject(opMarkDelivered, ErrForbidden)
	}
	now := time.Now()
	var verify OtpVerifyResult
	order, err := s.runTransition(ctx, opMarkDelivered, orderID, actor, func(tx *gorm.DB, order *models.Order) (*transitionPlan, error) {
		if order.CurrentLocation != models.LocationAtCustomerHub {
			return nil, ErrInvalidTransition
		}
		if actor.IsDeliveryAgent() && !isAssignedAgent(order, actor) {
			return nil, ErrForbidden
		}
		purpose, err := handoffPurpose(order)
		if err != nil {
			return nil, err
		}
		hub, err := s.customerHubOf(tx, order, actor)
		if err != nil {
			return nil, err
		}
		if !s.otp.Allow(order.ID, purpose) {
			return nil, ErrOtpTooManyAttempts
		}
		verify, err = s.otp.VerifyTx(tx, order.ID, purpose, code, now)
		if err != nil {
			return nil, err
		}
		hubRepo := s.hubRepo.WithTx(tx)
		ok, err := hubRepo.AdjustCurrentOrders(hub.ID, -1)
		if err != nil {
			return nil, err
		}
		if !ok {
			logger.Warnw("hub_counter_underflow", "hub_id", hub.ID, "order_id", order.ID, "operation", opMarkDelivered)
		}
		if err := hubRepo.IncrementDelivered(hub.ID); err != nil {
			return nil, err
		}

		plan := newTransitionPlan(order, models.LocationDelivered, now)
		plan.updates[models.ColDeliveredAt] = now
		plan.updates[models.ColOtpPurpose] = ""
		plan.updates[models.ColOtpExpiresAt] = nil
		message := fmt.Sprintf("Your order %s was picked up at %s.", order.OrderNo, hub.Name)
		if purpose == constants.OtpPurposeDelivery {
			message = fmt.Sprintf("Your order %s was delivered to your address.", order.OrderNo)
		}
		plan.notify(NotifyInput{
			RecipientClass: constants.RecipientBuyer,
			RecipientID:    order.BuyerID,
			Type:           constants.NotificationTypeOrderDelivered,
			Title:          "Order delivered",
			Message:        message,
			OrderID:        order.ID,
			OrderNo:        order.OrderNo,
			Metadata:       map[string]interface{}{"handoff": purpose},
		})
		return plan, nil
	})
	if err != nil && IsOtpFailure(err) {
		if recordErr := s.otp.RecordFailure(verify.OtpID, now); recordErr != nil {
			logger.Warnw("hub_otp_record_failure_failed", "order_id", orderID, "error", recordErr)
		}
		if lockedErr := s.otp.lockedAfterFailure(verify.OtpID); lockedErr != nil {
			return nil, lockedErr
		}
	}
	return order, err
}

// SetDeliveryPreference 客户枢纽阶段选择自提或上门；切换时作废另一种交接码
func (s *OrderLocationService) SetDeliveryPreference(ctx context.Context, orderID uint, preference string, actor Actor) (*models.Order, error) {
	if !actor.IsAdmin() && !actor.IsHubManager() && !actor.IsBuyer() {
		return nil, s.reject(opSetPreference, ErrForbidden)
	}
	preference = strings.ToLower(strings.TrimSpace(preference))
	if preference != constants.DeliveryPreferenceSelfPickup && preference != constants.DeliveryPreferenceDoorstep {
		return nil, s.reject(opSetPreference, ErrDeliveryPreferenceInvalid)
	}
	return s.runTransition(ctx, opSetPreference, orderID, actor, func(tx *gorm.DB, order *models.Order) (*transitionPlan, error) {
		if actor.IsBuyer() && order.BuyerID != actor.ID {
			return nil, ErrOrderNotFound
		}
		if order.CurrentLocation != models.LocationAtCustomerHub || order.DeliveryPreference == preference {
			return nil, ErrInvalidTransition
		}
		hub, err := s.customerHubOf(tx, order, actor)
		if err != nil {
			return nil, err
		}
		plan := newTransitionPlan(order, models.LocationAtCustomerHub, time.Now())
		plan.updates[models.ColDeliveryPreference] = preference
		plan.updates[models.ColDeliveryAgentID] = nil
		plan.updates[models.ColAgentAssignedAt] = nil

		if preference == constants.DeliveryPreferenceDoorstep {
			if err := s.otp.InvalidateTx(tx, order.ID, constants.OtpPurposePickup, plan.at); err != nil {
				return nil, err
			}
			plan.updates[models.ColOtpPurpose] = ""
			plan.updates[models.ColOtpExpiresAt] = nil
			if hub.ManagerID != nil {
				plan.notify(NotifyInput{
					RecipientClass: constants.RecipientHubManager,
					RecipientID:    *hub.ManagerID,
					Type:           constants.NotificationTypeDoorstepRequested,
					Title:          "Doorstep delivery requested",
					Message:        fmt.Sprintf("Order %s at %s needs a delivery agent.", order.OrderNo, hub.Name),
					OrderID:        order.ID,
					OrderNo:        order.OrderNo,
					ActionRequired: true,
					ActionType:     constants.NotificationActionAssignAgent,
					Metadata:       map[string]interface{}{"customer_hub_id": hub.ID},
				})
			} else {
				logger.Infow("doorstep_request_without_manager", "hub_id", hub.ID, "order_id", order.ID)
			}
			return plan, nil
		}

		if err := s.otp.InvalidateTx(tx, order.ID, constants.OtpPurposeDelivery, plan.at); err != nil {
			return nil, err
		}
		code, expiresAt, err := s.otp.IssueTx(tx, order.ID, constants.OtpPurposePickup, plan.at)
		if err != nil {
			return nil, err
		}
		plan.updates[models.ColOtpPurpose] = constants.OtpPurposePickup
		plan.updates[models.ColOtpExpiresAt] = expiresAt
		plan.notify(pickupNotice(order, hub, constants.NotificationTypePickupOtpReissued, code, expiresAt))
		return plan, nil
	})
}

// AssignDeliveryAgent 为上门订单指派配送员，并向买家签发配送码
func (s *OrderLocationService) AssignDeliveryAgent(ctx context.Context, orderID, agentID uint, actor Actor) (*models.Order, error) {
	if !actor.IsAdmin() && !actor.IsHubManager() {
		return nil, s.reject(opAssignAgent, ErrForbidden)
	}
	if agentID == 0 {
		return nil, s.reject(opAssignAgent, ErrDeliveryAgentInvalid)
	}
	return s.runTransition(ctx, opAssignAgent, orderID, actor, func(tx *gorm.DB, order *models.Order) (*transitionPlan, error) {
		if order.CurrentLocation != models.LocationAtCustomerHub {
			return nil, ErrInvalidTransition
		}
		if !order.IsDoorstep() {
			return nil, ErrDeliveryPreferenceMismatch
		}
		if order.DeliveryAgentID != nil && *order.DeliveryAgentID == agentID {
			return nil, ErrInvalidTransition
		}
		hub, err := s.customerHubOf(tx, order, actor)
		if err != nil {
			return nil, err
		}
		plan := newTransitionPlan(order, models.LocationAtCustomerHub, time.Now())
		code, expiresAt, err := s.otp.IssueTx(tx, order.ID, constants.OtpPurposeDelivery, plan.at)
		if err != nil {
			return nil, err
		}
		plan.updates[models.ColDeliveryAgentID] = agentID
		plan.updates[models.ColAgentAssignedAt] = plan.at
		plan.updates[models.ColOtpPurpose] = constants.OtpPurposeDelivery
		plan.updates[models.ColOtpExpiresAt] = expiresAt
		plan.notify(doorstepNotice(order, agentID, constants.NotificationTypeDeliveryAgentAssigned, code, expiresAt))
		plan.notify(NotifyInput{
			RecipientClass: constants.RecipientDeliveryAgent,
			RecipientID:    agentID,
			Type:           constants.NotificationTypeDeliveryAgentAssigned,
			Title:          "New delivery",
			Message: fmt.Sprintf("Collect order %s at %s and deliver to %s, %s.",
				order.OrderNo, hub.Name, order.ShippingStreet, order.ShippingCity),
			OrderID:        order.ID,
			OrderNo:        order.OrderNo,
			ActionRequired: true,
			ActionType:     constants.NotificationActionDeliverOrder,
			Metadata: map[string]interface{}{
				"customer_hub_id": hub.ID,
				"buyer_phone":     order.BuyerPhone,
				"pincode":         order.ShippingPincode,
			},
		})
		return plan, nil
	})
}

// Cancel 管理员在放行前取消订单
func (s *OrderLocationService) Cancel(ctx context.Context, orderID uint, actor Actor, reason string) (*models.Order, error) {
	if !actor.IsAdmin() {
		return nil, s.reject(opCancel, ErrAdminOnly)
	}
	reason = strings.TrimSpace(reason)
	if len(reason) > 255 {
		reason = reason[:255]
	}
	return s.runTransition(ctx, opCancel, orderID, actor, func(tx *gorm.DB, order *models.Order) (*transitionPlan, error) {
		if !order.CurrentLocation.CanTransitionTo(models.LocationCancelled) {
			return nil, ErrOrderCancelNotAllowed
		}
		if order.CurrentLocation == models.LocationAtSellerHub && order.SellerHubID != nil {
			ok, err := s.hubRepo.WithTx(tx).AdjustCurrentOrders(*order.SellerHubID, -1)
			if err != nil {
				return nil, err
			}
			if !ok {
				logger.Warnw("hub_counter_underflow", "hub_id", *order.SellerHubID, "order_id", order.ID, "operation", opCancel)
			}
		}
		plan := newTransitionPlan(order, models.LocationCancelled, time.Now())
		plan.updates[models.ColCancelledAt] = plan.at
		plan.updates[models.ColCancelReason] = reason
		message := fmt.Sprintf("Your order %s has been cancelled.", order.OrderNo)
		if reason != "" {
			message = fmt.Sprintf("Your order %s has been cancelled: %s", order.OrderNo, reason)
		}
		plan.notify(NotifyInput{
			RecipientClass: constants.RecipientBuyer,
			RecipientID:    order.BuyerID,
			Type:           constants.NotificationTypeOrderCancelled,
			Title:          "Order cancelled",
			Message:        message,
			OrderID:        order.ID,
			OrderNo:        order.OrderNo,
		})
		return plan, nil
	})
}

// ReissueHandoffOtp 按当前交付方式作废旧码并重新签发
func (s *OrderLocationService) ReissueHandoffOtp(ctx context.Context, orderID uint, actor Actor) (*models.Order, error) {
	if !actor.IsAdmin() && !actor.IsHubManager() && !actor.IsBuyer() {
		return nil, s.reject(opReissueOtp, ErrForbidden)
	}
	return s.runTransition(ctx, opReissueOtp, orderID, actor, func(tx *gorm.DB, order *models.Order) (*transitionPlan, error) {
		if actor.IsBuyer() && order.BuyerID != actor.ID {
			return nil, ErrOrderNotFound
		}
		if order.CurrentLocation != models.LocationAtCustomerHub {
			return nil, ErrInvalidTransition
		}
		purpose, err := handoffPurpose(order)
		if err != nil {
			return nil, err
		}
		hub, err := s.customerHubOf(tx, order, actor)
		if err != nil {
			return nil, err
		}
		plan := newTransitionPlan(order, models.LocationAtCustomerHub, time.Now())
		code, expiresAt, err := s.otp.IssueTx(tx, order.ID, purpose, plan.at)
		if err != nil {
			return nil, err
		}
		plan.updates[models.ColOtpPurpose] = purpose
		plan.updates[models.ColOtpExpiresAt] = expiresAt
		if purpose == constants.OtpPurposeDelivery {
			plan.notify(doorstepNotice(order, derefUint(order.DeliveryAgentID), constants.NotificationTypeDeliveryOtpReissued, code, expiresAt))
		} else {
			plan.notify(pickupNotice(order, hub, constants.NotificationTypePickupOtpReissued, code, expiresAt))
		}
		return plan, nil
	})
}

// handoffPurpose 当前交付方式对应的交接码用途；上门订单未指派配送员时无码可用
func handoffPurpose(order *models.Order) (string, error) {
	if !order.IsDoorstep() {
		return constants.OtpPurposePickup, nil
	}
	if order.DeliveryAgentID == nil {
		return "", ErrDeliveryAgentNotAssigned
	}
	return constants.OtpPurposeDelivery, nil
}

// customerHubOf 加载订单的客户枢纽，枢纽负责人只能操作自己负责的枢纽
func (s *OrderLocationService) customerHubOf(tx *gorm.DB, order *models.Order, actor Actor) (*models.Hub, error) {
	if order.CustomerHubID == nil {
		return nil, ErrTrackingInconsistent
	}
	hub, err := s.hubRepo.WithTx(tx).GetByID(*order.CustomerHubID)
	if err != nil {
		return nil, err
	}
	if hub == nil {
		return nil, ErrHubNotFound
	}
	if actor.IsHubManager() && !IsManagedBy(hub, actor) {
		return nil, ErrForbidden
	}
	return hub, nil
}

// runTransition 单事务执行一次迁移：加锁读取、校验、比较并写入、复核不变量
func (s *OrderLocationService) runTransition(ctx context.Context, op string, orderID uint, actor Actor, build transitionBuilder) (*models.Order, error) {
	var plan *transitionPlan
	var updated *models.Order
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		plan, err = build(tx, order)
		if err != nil {
			return err
		}
		applied, err := orderRepo.CompareAndSetTracking(order.ID, plan.from, plan.expectApproved, plan.updates)
		if err != nil {
			return err
		}
		if !applied {
			current, err := orderRepo.GetByID(order.ID)
			if err != nil {
				return err
			}
			if op == opApprove && current != nil && current.ApprovedByAdmin {
				return ErrAlreadyApproved
			}
			return ErrInvalidTransition
		}
		updated, err = orderRepo.GetByID(order.ID)
		if err != nil {
			return err
		}
		if updated == nil {
			return ErrOrderNotFound
		}
		if err := updated.CheckInvariant(); err != nil {
			return fmt.Errorf("%w: %v", ErrTrackingInconsistent, err)
		}
		return nil
	})
	if err != nil {
		return nil, s.reject(op, err)
	}
	s.afterCommit(ctx, op, updated, plan, actor)
	return updated, nil
}

func (s *OrderLocationService) reject(op string, err error) error {
	metrics.TransitionRejectedTotal.WithLabelValues(op, transitionRejectReason(err)).Inc()
	return err
}

// afterCommit 提交后的副作用，失败只记录不回滚
func (s *OrderLocationService) afterCommit(ctx context.Context, op string, order *models.Order, plan *transitionPlan, actor Actor) {
	if plan.from != plan.to {
		metrics.LocationTransitionsTotal.WithLabelValues(plan.from.String(), plan.to.String()).Inc()
		logger.Infow("order_location_changed",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"from", plan.from,
			"to", plan.to,
			"actor_id", actor.ID,
			"actor_role", actor.Role,
		)
		s.publishEvent(ctx, order, plan, actor)
	}
	if err := cache.InvalidateHubStats(ctx); err != nil {
		logger.Warnw("hub_stats_invalidate_failed", "order_id", order.ID, "error", err)
	}
	s.deliverNotices(ctx, op, order, plan.notices)
}

func (s *OrderLocationService) publishEvent(ctx context.Context, order *models.Order, plan *transitionPlan, actor Actor) {
	event := queue.OrderLocationEventPayload{
		EventID:       uuid.NewString(),
		OrderID:       order.ID,
		OrderNo:       order.OrderNo,
		From:          plan.from.String(),
		To:            plan.to.String(),
		SellerHubID:   derefUint(order.SellerHubID),
		CustomerHubID: derefUint(order.CustomerHubID),
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		OccurredAt:    plan.at,
	}
	if s.tasks != nil && s.tasks.Enabled() {
		err := s.tasks.EnqueueOrderLocationEvent(event)
		if err == nil {
			return
		}
		logger.Warnw("order_location_event_enqueue_failed", "order_id", order.ID, "event_id", event.EventID, "error", err)
	}
	if err := s.publisher.PublishLocationEvent(ctx, event); err != nil {
		metrics.LocationEventsPublishedTotal.WithLabelValues(metrics.ResultFailed).Inc()
		logger.Warnw("order_location_event_publish_failed", "order_id", order.ID, "event_id", event.EventID, "error", err)
		return
	}
	metrics.LocationEventsPublishedTotal.WithLabelValues(metrics.ResultOK).Inc()
}

func (s *OrderLocationService) deliverNotices(ctx context.Context, op string, order *models.Order, notices []locationNotice) {
	if s.dispatcher == nil {
		return
	}
	for _, notice := range notices {
		if notice.admins {
			if _, err := s.dispatcher.NotifyAdmins(ctx, notice.input); err != nil {
				metrics.NotificationFailuresTotal.WithLabelValues(notice.input.Type).Inc()
				logger.Errorw("order_location_notify_failed", "order_id", order.ID, "operation", op,
					"recipient_class", constants.RecipientAdmin, "type", notice.input.Type, "error", err)
				s.enqueueAdminRetry(notice.input, err)
			}
			continue
		}
		if _, err := s.dispatcher.Notify(ctx, notice.input); err != nil {
			metrics.NotificationFailuresTotal.WithLabelValues(notice.input.Type).Inc()
			logger.Errorw("order_location_notify_failed", "order_id", order.ID, "operation", op,
				"recipient_class", notice.input.RecipientClass, "recipient_id", notice.input.RecipientID,
				"type", notice.input.Type, "error", err)
			s.enqueueNoticeRetry(notice.input)
		}
	}
}

// enqueueAdminRetry 部分失败按管理员逐条补偿；管理员列表都取不到时整体重新扇出
func (s *OrderLocationService) enqueueAdminRetry(input NotifyInput, err error) {
	input.RecipientClass = constants.RecipientAdmin
	var fanOutErr *AdminFanOutError
	if !errors.As(err, &fanOutErr) || len(fanOutErr.Failed) == 0 {
		input.RecipientID = 0
		s.enqueueNoticeRetry(input)
		return
	}
	for _, adminID := range fanOutErr.Failed {
		item := input
		item.RecipientID = adminID
		s.enqueueNoticeRetry(item)
	}
}

func (s *OrderLocationService) enqueueNoticeRetry(input NotifyInput) {
	if s.tasks == nil || !s.tasks.Enabled() {
		logger.Warnw("notification_retry_unavailable", "type", input.Type, "order_id", input.OrderID)
		return
	}
	if err := s.tasks.EnqueueNotificationDeliver(NotifyInputToPayload(input)); err != nil {
		logger.Errorw("notification_retry_enqueue_failed", "type", input.Type, "order_id", input.OrderID, "error", err)
	}
}

func pickupNotice(order *models.Order, hub *models.Hub, notificationType, code string, expiresAt time.Time) NotifyInput {
	return NotifyInput{
		RecipientClass: constants.RecipientBuyer,
		RecipientID:    order.BuyerID,
		Type:           notificationType,
		Title:          "Ready for pickup",
		Message: fmt.Sprintf("Your order %s is ready at %s. Pickup code: %s (valid until %s).",
			order.OrderNo, hub.Name, code, expiresAt.Format(time.RFC3339)),
		OrderID:        order.ID,
		OrderNo:        order.OrderNo,
		ActionRequired: true,
		ActionType:     constants.NotificationActionPickupOrder,
		Metadata: map[string]interface{}{
			"customer_hub_id": hub.ID,
			"otp":             code,
			"otp_expires_at":  expiresAt.Format(time.RFC3339),
		},
	}
}

func transitionRejectReason(err error) string {
	switch {
	case errors.Is(err, ErrDeliveryAgentNotAssigned):
		return "agent_not_assigned"
	case errors.Is(err, ErrDeliveryPreferenceMismatch):
		return "preference_mismatch"
	case errors.Is(err, ErrDeliveryPreferenceInvalid), errors.Is(err, ErrDeliveryAgentInvalid):
		return "invalid_input"
	case errors.Is(err, ErrAlreadyApproved):
		return "already_approved"
	case errors.Is(err, ErrOrderNotAtSellerHub):
		return "not_at_seller_hub"
	case errors.Is(err, ErrOrderCancelNotAllowed):
		return "cancel_not_allowed"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrAdminOnly):
		return "admin_only"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrOtpExpired):
		return "otp_expired"
	case errors.Is(err, ErrOtpMismatch):
		return "otp_mismatch"
	case errors.Is(err, ErrOtpTooManyAttempts):
		return "otp_throttled"
	case errors.Is(err, ErrCustomerHubUnavailable):
		return "no_customer_hub"
	case errors.Is(err, ErrHubInactive), errors.Is(err, ErrHubRoleMismatch):
		return "hub_unusable"
	case errors.Is(err, ErrTrackingInconsistent):
		return "inconsistent"
	}
	return "error"
}

func derefUint(v *uint) uint {
	if v == nil {
		return 0
	}
	return *v
}

func doorstepNotice(order *models.Order, agentID uint, notificationType, code string, expiresAt time.Time) NotifyInput {
	return NotifyInput{
		RecipientClass: constants.RecipientBuyer,
		RecipientID:    order.BuyerID,
		Type:           notificationType,
		Title:          "Out for delivery",
		Message: fmt.Sprintf("A delivery agent is bringing order %s to you. Share code %s on arrival (valid until %s).",
			order.OrderNo, code, expiresAt.Format(time.RFC3339)),
		OrderID:        order.ID,
		OrderNo:        order.OrderNo,
		ActionRequired: true,
		ActionType:     constants.NotificationActionReceiveDelivery,
		Metadata: map[string]interface{}{
			"delivery_agent_id": agentID,
			"otp":               code,
			"otp_expires_at":    expiresAt.Format(time.RFC3339),
		},
	}
}
