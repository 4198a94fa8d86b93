package admin

import (
	"github.com/hubflow-next/internal/authz"
	"github.com/hubflow-next/internal/provider"
	"github.com/hubflow-next/internal/repository"
	"github.com/hubflow-next/internal/service"
)

// Handler 管理端接口：登录、枢纽注册表与角色授权
type Handler struct {
	AdminRepo    repository.AdminRepository
	AuthService  *service.AuthService
	AuthzService *authz.Service
	HubService   *service.HubService
}

// New 从容器取出管理端依赖
func New(c *provider.Container) *Handler {
	return &Handler{
		AdminRepo:    c.AdminRepo,
		AuthService:  c.AuthService,
		AuthzService: c.AuthzService,
		HubService:   c.HubService,
	}
}
