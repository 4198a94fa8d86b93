package admin

import (
	"errors"

	"github.com/hubflow-next/internal/authz"
	handlershared "github.com/hubflow-next/internal/http/handlers/shared"
	"github.com/hubflow-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// SetAdminRolesRequest 设置管理员角色请求
type SetAdminRolesRequest struct {
	Roles []string `json:"roles"`
}

// GetAuthzMe 当前管理员的角色信息
func (h *Handler) GetAuthzMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, gin.H{
		"admin_id": adminID,
		"is_super": c.GetBool(handlershared.ContextKeyAdminIsSuper),
		"roles":    roles,
	})
}

// ListAuthzRoles 角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, roles)
}

// SetAdminRoles 覆盖设置管理员角色
func (h *Handler) SetAdminRoles(c *gin.Context) {
	targetID, ok := parseAdminID(c)
	if !ok {
		return
	}
	var req SetAdminRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	admin, err := h.AdminRepo.GetByID(targetID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	if admin == nil {
		respondError(c, response.CodeNotFound, "error.admin_not_found", nil)
		return
	}
	if err := h.AuthzService.SetAdminRoles(targetID, req.Roles); err != nil {
		if errors.Is(err, authz.ErrUnknownRole) || errors.Is(err, authz.ErrInvalidRole) {
			respondError(c, response.CodeBadRequest, "error.role_invalid", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	roles, err := h.AuthzService.GetAdminRoles(targetID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, gin.H{"admin_id": targetID, "roles": roles})
}
