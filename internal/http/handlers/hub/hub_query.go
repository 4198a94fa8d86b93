package hub

import (
	"strconv"
	"strings"

	handlershared "github.com/hubflow-next/internal/http/handlers/shared"
	"github.com/hubflow-next/internal/http/response"
	"github.com/hubflow-next/internal/models"
	"github.com/hubflow-next/internal/repository"
	"github.com/hubflow-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ListHubs 枢纽列表（仅启用中的枢纽）
func (h *Handler) ListHubs(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	hubs, total, err := h.HubService.List(repository.HubListFilter{
		Page:       page,
		PageSize:   pageSize,
		District:   strings.TrimSpace(c.Query("district")),
		Role:       strings.TrimSpace(c.Query("role")),
		Search:     strings.TrimSpace(c.Query("search")),
		OnlyActive: true,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.hub_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, hubs, handlershared.BuildPagination(page, pageSize, total))
}

// ListDistricts 已覆盖的地区列表
func (h *Handler) ListDistricts(c *gin.Context) {
	districts, err := h.HubService.ListDistricts()
	if err != nil {
		respondError(c, response.CodeInternal, "error.hub_fetch_failed", err)
		return
	}
	response.Success(c, districts)
}

// ListHubsByDistrict 指定地区的枢纽
func (h *Handler) ListHubsByDistrict(c *gin.Context) {
	district := strings.TrimSpace(c.Param("district"))
	if district == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	hubs, err := h.HubService.ListByDistrict(district)
	if err != nil {
		respondError(c, response.CodeInternal, "error.hub_fetch_failed", err)
		return
	}
	response.Success(c, hubs)
}

// ListReadyForPickup 客户枢纽待取件订单
func (h *Handler) ListReadyForPickup(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	hubID, ok := handlershared.ParseUintParam(c, "id", "error.hub_id_invalid")
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	orders, total, err := h.HubOrderQueryService.ListReadyForPickup(hubID, actor, page, pageSize)
	if err != nil {
		respondHubFlowError(c, err, "error.order_fetch_failed")
		return
	}
	response.SuccessWithPage(c, orders, handlershared.BuildPagination(page, pageSize, total))
}

// ListMyDeliveries 配送员名下的上门订单
func (h *Handler) ListMyDeliveries(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	orders, total, err := h.HubOrderQueryService.ListAssignedDeliveries(actor, page, pageSize)
	if err != nil {
		respondHubFlowError(c, err, "error.order_fetch_failed")
		return
	}
	response.SuccessWithPage(c, orders, handlershared.BuildPagination(page, pageSize, total))
}

// ListPendingHubOrders 待审批放行的订单（最早到达优先）
func (h *Handler) ListPendingHubOrders(c *gin.Context) {
	h.listAdminHubOrders(c, h.HubOrderQueryService.ListPendingApproval)
}

// ListApprovedHubOrders 已放行未交付的订单
func (h *Handler) ListApprovedHubOrders(c *gin.Context) {
	h.listAdminHubOrders(c, h.HubOrderQueryService.ListApprovedUndelivered)
}

func (h *Handler) listAdminHubOrders(c *gin.Context, list func(repository.HubOrderListFilter) ([]models.Order, int64, error)) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if !actor.IsAdmin() {
		respondHubFlowError(c, service.ErrAdminOnly, "error.forbidden")
		return
	}
	filter, ok := parseHubOrderFilter(c)
	if !ok {
		return
	}
	orders, total, err := list(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, orders, handlershared.BuildPagination(filter.Page, filter.PageSize, total))
}

// HubsWithStats 按地区聚合的枢纽统计
func (h *Handler) HubsWithStats(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if !actor.IsAdmin() {
		respondHubFlowError(c, service.ErrAdminOnly, "error.forbidden")
		return
	}
	stats, err := h.HubOrderQueryService.HubsWithStats(c.Request.Context())
	if err != nil {
		respondError(c, response.CodeInternal, "error.stats_fetch_failed", err)
		return
	}
	response.Success(c, stats)
}

func parseHubOrderFilter(c *gin.Context) (repository.HubOrderListFilter, bool) {
	page, pageSize := handlershared.ParsePagination(c)
	filter := repository.HubOrderListFilter{
		Page:     page,
		PageSize: pageSize,
		District: strings.TrimSpace(c.Query("district")),
	}
	for key, target := range map[string]*uint{
		"seller_hub_id":   &filter.SellerHubID,
		"customer_hub_id": &filter.CustomerHubID,
	} {
		raw := strings.TrimSpace(c.Query(key))
		if raw == "" {
			continue
		}
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.hub_id_invalid", nil)
			return filter, false
		}
		*target = uint(parsed)
	}
	return filter, true
}
