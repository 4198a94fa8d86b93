package hub

import (
	handlershared "github.com/hubflow-next/internal/http/handlers/shared"
	"github.com/hubflow-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ListNotifications 当前主体的通知列表，?unread=1 仅返回未读
func (h *Handler) ListNotifications(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	unreadOnly := c.Query("unread") == "1" || c.Query("unread") == "true"
	items, total, err := h.NotificationService.ListFor(actor, unreadOnly, page, pageSize)
	if err != nil {
		respondHubFlowError(c, err, "error.notification_fetch_failed")
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// UnreadNotificationCount 未读数量
func (h *Handler) UnreadNotificationCount(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	count, err := h.NotificationService.UnreadCount(actor)
	if err != nil {
		respondHubFlowError(c, err, "error.notification_fetch_failed")
		return
	}
	response.Success(c, gin.H{"unread_count": count})
}

// MarkNotificationRead 标记单条已读
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseUintParam(c, "id", "error.notification_id_invalid")
	if !ok {
		return
	}
	notification, err := h.NotificationService.MarkRead(id, actor)
	if err != nil {
		respondHubFlowError(c, err, "error.notification_update_failed")
		return
	}
	response.Success(c, notification)
}

// MarkAllNotificationsRead 全部标记已读
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	updated, err := h.NotificationService.MarkAllRead(actor)
	if err != nil {
		respondHubFlowError(c, err, "error.notification_update_failed")
		return
	}
	response.Success(c, gin.H{"updated": updated})
}

// DeleteNotification 删除本人的一条通知
func (h *Handler) DeleteNotification(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseUintParam(c, "id", "error.notification_id_invalid")
	if !ok {
		return
	}
	if err := h.NotificationService.Delete(id, actor); err != nil {
		respondHubFlowError(c, err, "error.notification_update_failed")
		return
	}
	response.Success(c, gin.H{"deleted": id})
}
