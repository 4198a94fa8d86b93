package shared

import (
	"errors"

	"github.com/hubflow-next/internal/http/response"
	"github.com/hubflow-next/internal/service"

	"github.com/gin-gonic/gin"
)

// MappedError 定义业务错误到接口错误响应的映射关系。
type MappedError struct {
	Target error
	Code   int
	Key    string
}

// RespondWithMappedError 按规则顺序匹配错误，未命中时使用兜底码并记录原始错误
func RespondWithMappedError(c *gin.Context, err error, rules []MappedError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Key, nil)
			return
		}
	}
	RespondError(c, fallbackCode, fallbackKey, err)
}

// 具体错误需排在其包装的通用错误之前
var authErrorRules = []MappedError{
	{Target: service.ErrInvalidCredentials, Code: response.CodeUnauthorized, Key: "error.login_invalid"},
	{Target: service.ErrUnauthenticated, Code: response.CodeUnauthorized, Key: "error.unauthorized"},
	{Target: service.ErrAdminOnly, Code: response.CodeForbidden, Key: "error.admin_only"},
	{Target: service.ErrForbidden, Code: response.CodeForbidden, Key: "error.forbidden"},
}

var notFoundErrorRules = []MappedError{
	{Target: service.ErrOrderNotFound, Code: response.CodeNotFound, Key: "error.order_not_found"},
	{Target: service.ErrHubNotFound, Code: response.CodeNotFound, Key: "error.hub_not_found"},
	{Target: service.ErrNotificationNotFound, Code: response.CodeNotFound, Key: "error.notification_not_found"},
}

var transitionErrorRules = []MappedError{
	{Target: service.ErrAlreadyApproved, Code: response.CodeConflict, Key: "error.already_approved"},
	{Target: service.ErrOrderNotAtSellerHub, Code: response.CodeConflict, Key: "error.order_not_at_seller_hub"},
	{Target: service.ErrOrderCancelNotAllowed, Code: response.CodeConflict, Key: "error.order_cancel_not_allowed"},
	{Target: service.ErrDeliveryPreferenceMismatch, Code: response.CodeConflict, Key: "error.delivery_preference_mismatch"},
	{Target: service.ErrDeliveryAgentNotAssigned, Code: response.CodeConflict, Key: "error.delivery_agent_not_assigned"},
	{Target: service.ErrInvalidTransition, Code: response.CodeConflict, Key: "error.invalid_transition"},
	{Target: service.ErrHubInactive, Code: response.CodeConflict, Key: "error.hub_inactive"},
	{Target: service.ErrHubRoleMismatch, Code: response.CodeConflict, Key: "error.hub_role_mismatch"},
	{Target: service.ErrCustomerHubUnavailable, Code: response.CodeConflict, Key: "error.customer_hub_unavailable"},
}

var otpErrorRules = []MappedError{
	{Target: service.ErrOtpTooManyAttempts, Code: response.CodeTooManyRequests, Key: "error.otp_throttled"},
	{Target: service.ErrOtpAttemptsExceeded, Code: response.CodeUnprocessableEntity, Key: "error.otp_attempts_exceeded"},
	{Target: service.ErrOtpExpired, Code: response.CodeUnprocessableEntity, Key: "error.otp_expired"},
	{Target: service.ErrOtpMismatch, Code: response.CodeUnprocessableEntity, Key: "error.otp_mismatch"},
	{Target: service.ErrOtpInvalid, Code: response.CodeBadRequest, Key: "error.otp_invalid"},
}

var validationErrorRules = []MappedError{
	{Target: service.ErrHubCodeExists, Code: response.CodeConflict, Key: "error.hub_code_exists"},
	{Target: service.ErrHubInvalid, Code: response.CodeBadRequest, Key: "error.hub_invalid"},
	{Target: service.ErrOrderInvalid, Code: response.CodeBadRequest, Key: "error.order_invalid"},
	{Target: service.ErrDeliveryPreferenceInvalid, Code: response.CodeBadRequest, Key: "error.delivery_preference_invalid"},
	{Target: service.ErrDeliveryAgentInvalid, Code: response.CodeBadRequest, Key: "error.delivery_agent_invalid"},
	{Target: service.ErrInvalidEmail, Code: response.CodeBadRequest, Key: "error.email_invalid"},
	{Target: service.ErrRecipientInvalid, Code: response.CodeBadRequest, Key: "error.bad_request"},
	{Target: service.ErrNotificationTypeInvalid, Code: response.CodeBadRequest, Key: "error.bad_request"},
}

// HubFlowErrorRules 枢纽履约相关接口共用的错误映射表
var HubFlowErrorRules = concatMappedErrors(authErrorRules, notFoundErrorRules, otpErrorRules, transitionErrorRules, validationErrorRules)

func concatMappedErrors(groups ...[]MappedError) []MappedError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]MappedError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

// RespondHubFlowError 使用共用映射表返回错误
func RespondHubFlowError(c *gin.Context, err error, fallbackKey string) {
	RespondWithMappedError(c, err, HubFlowErrorRules, response.CodeInternal, fallbackKey)
}
