package admin

import (
	"strings"

	handlershared "github.com/hubflow-next/internal/http/handlers/shared"
	"github.com/hubflow-next/internal/http/response"
	"github.com/hubflow-next/internal/repository"
	"github.com/hubflow-next/internal/service"

	"github.com/gin-gonic/gin"
)

// HubRequest 创建/更新枢纽请求
type HubRequest struct {
	Code         string `json:"code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	District     string `json:"district" binding:"required"`
	Role         string `json:"role"`
	Address      string `json:"address"`
	Pincode      string `json:"pincode"`
	ContactPhone string `json:"contact_phone"`
	ContactEmail string `json:"contact_email"`
	MaxOrders    int    `json:"max_orders"`
}

func (r HubRequest) toInput() service.HubInput {
	return service.HubInput{
		Code:         r.Code,
		Name:         r.Name,
		District:     r.District,
		Role:         r.Role,
		Address:      r.Address,
		Pincode:      r.Pincode,
		ContactPhone: r.ContactPhone,
		ContactEmail: r.ContactEmail,
		MaxOrders:    r.MaxOrders,
	}
}

// HubStatusRequest 修改枢纽状态请求
type HubStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AssignManagerRequest 指派负责人请求，manager_id 为空表示解除
type AssignManagerRequest struct {
	ManagerID   *uint  `json:"manager_id"`
	ManagerName string `json:"manager_name"`
}

// AdminListHubs 枢纽列表（含停用与维护中）
func (h *Handler) AdminListHubs(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	hubs, total, err := h.HubService.List(repository.HubListFilter{
		Page:     page,
		PageSize: pageSize,
		District: strings.TrimSpace(c.Query("district")),
		Role:     strings.TrimSpace(c.Query("role")),
		Status:   strings.TrimSpace(c.Query("status")),
		Search:   strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.hub_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, hubs, handlershared.BuildPagination(page, pageSize, total))
}

// AdminGetHub 枢纽详情
func (h *Handler) AdminGetHub(c *gin.Context) {
	id, ok := parseHubID(c)
	if !ok {
		return
	}
	hub, err := h.HubService.GetByID(id)
	if err != nil {
		respondHubFlowError(c, err, "error.hub_fetch_failed")
		return
	}
	response.Success(c, hub)
}

// CreateHub 新建枢纽
func (h *Handler) CreateHub(c *gin.Context) {
	var req HubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.hub_invalid", nil)
		return
	}
	hub, err := h.HubService.Create(req.toInput())
	if err != nil {
		respondHubFlowError(c, err, "error.hub_save_failed")
		return
	}
	response.Success(c, hub)
}

// UpdateHub 更新枢纽资料（计数器不受影响）
func (h *Handler) UpdateHub(c *gin.Context) {
	id, ok := parseHubID(c)
	if !ok {
		return
	}
	var req HubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.hub_invalid", nil)
		return
	}
	hub, err := h.HubService.Update(id, req.toInput())
	if err != nil {
		respondHubFlowError(c, err, "error.hub_save_failed")
		return
	}
	response.Success(c, hub)
}

// SetHubStatus 启用/停用/维护
func (h *Handler) SetHubStatus(c *gin.Context) {
	id, ok := parseHubID(c)
	if !ok {
		return
	}
	var req HubStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.hub_invalid", nil)
		return
	}
	hub, err := h.HubService.SetStatus(id, req.Status)
	if err != nil {
		respondHubFlowError(c, err, "error.hub_save_failed")
		return
	}
	response.Success(c, hub)
}

// AssignHubManager 指派枢纽负责人
func (h *Handler) AssignHubManager(c *gin.Context) {
	id, ok := parseHubID(c)
	if !ok {
		return
	}
	var req AssignManagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	hub, err := h.HubService.AssignManager(id, req.ManagerID, strings.TrimSpace(req.ManagerName))
	if err != nil {
		respondHubFlowError(c, err, "error.hub_save_failed")
		return
	}
	response.Success(c, hub)
}
