package hub

import (
	"github.com/hubflow-next/internal/provider"
	"github.com/hubflow-next/internal/service"
)

// Handler 履约接口，主体权限在 service 层判定
type Handler struct {
	HubService           *service.HubService
	OrderLocationService *service.OrderLocationService
	HubOrderQueryService *service.HubOrderQueryService
	NotificationService  *service.NotificationService
}

// New 从容器取出履约依赖
func New(c *provider.Container) *Handler {
	return &Handler{
		HubService:           c.HubService,
		OrderLocationService: c.OrderLocationService,
		HubOrderQueryService: c.HubOrderQueryService,
		NotificationService:  c.NotificationService,
	}
}
