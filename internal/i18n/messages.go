package i18n

var catalogs = map[string]map[string]string{
	LocaleZH: zhCNMessages,
	LocaleEN: enUSMessages,
}

var zhCNMessages = map[string]string{
	"error.bad_request":                  "请求参数错误",
	"error.internal":                     "服务器内部错误",
	"error.unauthorized":                 "未授权",
	"error.forbidden":                    "无权限执行该操作",
	"error.jwt_secret_missing":           "服务端未配置 JWT 密钥",
	"error.auth_header_missing":          "缺少 Authorization 请求头",
	"error.auth_header_invalid":          "Authorization 格式错误",
	"error.token_invalid":                "令牌无效或已过期",
	"error.token_revoked":                "令牌已失效，请重新登录",
	"error.rate_limit_unavailable":       "限流服务暂不可用",
	"error.rate_limited":                 "请求过于频繁，请 %d 秒后再试",
	"error.login_too_many":               "登录尝试过多，请 %d 秒后再试",
	"error.otp_too_many":                 "交接码尝试过多，请 %d 秒后再试",
	"error.login_invalid":                "用户名或密码错误",
	"error.login_failed":                 "登录失败",
	"error.admin_only":                   "仅管理员可执行该操作",
	"error.order_id_invalid":             "订单 ID 无效",
	"error.hub_id_invalid":               "枢纽 ID 无效",
	"error.notification_id_invalid":      "通知 ID 无效",
	"error.admin_id_invalid":             "管理员 ID 无效",
	"error.admin_not_found":              "管理员不存在",
	"error.role_invalid":                 "角色不存在或无效",
	"error.order_not_found":              "订单不存在",
	"error.hub_not_found":                "枢纽不存在",
	"error.notification_not_found":       "通知不存在",
	"error.invalid_transition":           "订单当前位置不允许该操作",
	"error.already_approved":             "订单已审批放行",
	"error.order_not_at_seller_hub":      "订单尚未到达卖家枢纽",
	"error.order_cancel_not_allowed":     "订单已发出，无法取消",
	"error.delivery_preference_invalid":  "交付方式无效，仅支持自提或上门",
	"error.delivery_preference_mismatch": "订单交付方式不支持该操作",
	"error.delivery_agent_invalid":       "配送员 ID 无效",
	"error.delivery_agent_not_assigned":  "上门订单尚未指派配送员",
	"error.tracking_inconsistent":        "订单跟踪记录不一致",
	"error.otp_invalid":                  "交接码格式错误",
	"error.otp_mismatch":                 "交接码不正确",
	"error.otp_expired":                  "交接码已过期，请重新获取",
	"error.otp_attempts_exceeded":        "交接码错误次数过多，请重新获取",
	"error.otp_throttled":                "交接码校验过于频繁，请稍后再试",
	"error.hub_inactive":                 "枢纽未启用",
	"error.hub_role_mismatch":            "枢纽类型不支持该操作",
	"error.hub_invalid":                  "枢纽信息不完整或格式错误",
	"error.hub_code_exists":              "枢纽编码已存在",
	"error.customer_hub_unavailable":     "该地区暂无可用的客户枢纽",
	"error.order_invalid":                "订单信息不完整或格式错误",
	"error.email_invalid":                "邮箱格式错误",
	"error.order_fetch_failed":           "获取订单失败",
	"error.order_create_failed":          "创建订单失败",
	"error.order_update_failed":          "更新订单失败",
	"error.hub_fetch_failed":             "获取枢纽失败",
	"error.hub_save_failed":              "保存枢纽失败",
	"error.stats_fetch_failed":           "获取枢纽统计失败",
	"error.notification_fetch_failed":    "获取通知失败",
	"error.notification_update_failed":   "更新通知失败",
	"success.logout":                     "已退出登录",
}

var enUSMessages = map[string]string{
	"error.bad_request":                  "Invalid request parameters",
	"error.internal":                     "Internal server error",
	"error.unauthorized":                 "Unauthorized",
	"error.forbidden":                    "You are not allowed to perform this action",
	"error.jwt_secret_missing":           "JWT secret is not configured",
	"error.auth_header_missing":          "Missing Authorization header",
	"error.auth_header_invalid":          "Malformed Authorization header",
	"error.token_invalid":                "Token is invalid or expired",
	"error.token_revoked":                "Token has been revoked, please sign in again",
	"error.rate_limit_unavailable":       "Rate limiter is unavailable",
	"error.rate_limited":                 "Too many requests, retry in %d seconds",
	"error.login_too_many":               "Too many login attempts, retry in %d seconds",
	"error.otp_too_many":                 "Too many handoff code attempts, retry in %d seconds",
	"error.login_invalid":                "Invalid username or password",
	"error.login_failed":                 "Login failed",
	"error.admin_only":                   "Only administrators can perform this action",
	"error.order_id_invalid":             "Invalid order id",
	"error.hub_id_invalid":               "Invalid hub id",
	"error.notification_id_invalid":      "Invalid notification id",
	"error.admin_id_invalid":             "Invalid admin id",
	"error.admin_not_found":              "Admin not found",
	"error.role_invalid":                 "Role does not exist or is invalid",
	"error.order_not_found":              "Order not found",
	"error.hub_not_found":                "Hub not found",
	"error.notification_not_found":       "Notification not found",
	"error.invalid_transition":           "The order's current location does not allow this action",
	"error.already_approved":             "Order has already been approved",
	"error.order_not_at_seller_hub":      "Order has not arrived at the seller hub",
	"error.order_cancel_not_allowed":     "Order has been dispatched and can no longer be cancelled",
	"error.delivery_preference_invalid":  "Delivery preference must be self_pickup or doorstep",
	"error.delivery_preference_mismatch": "The order's delivery preference does not allow this operation",
	"error.delivery_agent_invalid":       "Invalid delivery agent id",
	"error.delivery_agent_not_assigned":  "No delivery agent has been assigned to this doorstep order",
	"error.tracking_inconsistent":        "Order tracking record is inconsistent",
	"error.otp_invalid":                  "Handoff code format is invalid",
	"error.otp_mismatch":                 "Handoff code is incorrect",
	"error.otp_expired":                  "Handoff code has expired, request a new one",
	"error.otp_attempts_exceeded":        "Too many wrong handoff codes, request a new one",
	"error.otp_throttled":                "Handoff code checks are too frequent, try again later",
	"error.hub_inactive":                 "Hub is not active",
	"error.hub_role_mismatch":            "Hub type does not support this action",
	"error.hub_invalid":                  "Hub details are incomplete or malformed",
	"error.hub_code_exists":              "Hub code already exists",
	"error.customer_hub_unavailable":     "No customer hub is available for this district",
	"error.order_invalid":                "Order details are incomplete or malformed",
	"error.email_invalid":                "Invalid email address",
	"error.order_fetch_failed":           "Failed to load order",
	"error.order_create_failed":          "Failed to create order",
	"error.order_update_failed":          "Failed to update order",
	"error.hub_fetch_failed":             "Failed to load hubs",
	"error.hub_save_failed":              "Failed to save hub",
	"error.stats_fetch_failed":           "Failed to load hub statistics",
	"error.notification_fetch_failed":    "Failed to load notifications",
	"error.notification_update_failed":   "Failed to update notification",
	"success.logout":                     "Signed out",
}
