package service

import (
	"errors"
	"fmt"
)

// 状态机错误
var (
	ErrInvalidTransition          = errors.New("invalid order location transition")
	ErrAlreadyApproved            = fmt.Errorf("%w: order already approved", ErrInvalidTransition)
	ErrOrderNotAtSellerHub        = fmt.Errorf("%w: order is not at seller hub", ErrInvalidTransition)
	ErrOrderCancelNotAllowed      = fmt.Errorf("%w: order can no longer be cancelled", ErrInvalidTransition)
	ErrDeliveryPreferenceMismatch = fmt.Errorf("%w: delivery preference does not allow this operation", ErrInvalidTransition)
	ErrDeliveryAgentNotAssigned   = fmt.Errorf("%w: no delivery agent assigned", ErrInvalidTransition)
	ErrTrackingInconsistent       = errors.New("hub tracking record inconsistent")
)

// 权限错误
var (
	ErrAdminOnly          = errors.New("admin capability required")
	ErrForbidden          = errors.New("actor not permitted for this order")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
)

// 交接码错误
var (
	ErrOtpMismatch         = errors.New("otp mismatch")
	ErrOtpExpired          = errors.New("otp expired")
	ErrOtpAttemptsExceeded = fmt.Errorf("%w: too many failed attempts", ErrOtpExpired)
	ErrOtpTooManyAttempts  = errors.New("otp verification throttled")
	ErrOtpInvalid          = errors.New("otp format invalid")
)

// 资源不存在
var (
	ErrNotFound             = errors.New("not found")
	ErrOrderNotFound        = fmt.Errorf("order %w", ErrNotFound)
	ErrHubNotFound          = fmt.Errorf("hub %w", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)
)

// 枢纽与路由错误
var (
	ErrHubInactive            = errors.New("hub is not active")
	ErrHubRoleMismatch        = errors.New("hub role does not allow this operation")
	ErrHubInvalid             = errors.New("hub payload invalid")
	ErrHubCodeExists          = errors.New("hub code already exists")
	ErrCustomerHubUnavailable = errors.New("no customer hub available for district")
)

// 通知与订单校验错误
var (
	ErrRecipientInvalid          = errors.New("notification recipient invalid")
	ErrNotificationTypeInvalid   = errors.New("notification type invalid")
	ErrOrderInvalid              = errors.New("order payload invalid")
	ErrDeliveryPreferenceInvalid = errors.New("delivery preference invalid")
	ErrDeliveryAgentInvalid      = errors.New("delivery agent invalid")
)

// 邮件错误
var (
	ErrEmailServiceDisabled      = errors.New("email service disabled")
	ErrEmailServiceNotConfigured = errors.New("email service not configured")
	ErrInvalidEmail              = errors.New("invalid email address")
	ErrEmailRecipientRejected    = errors.New("email recipient rejected")
)
