package provider

import (
	"github.com/hubflow-next/internal/authz"
	"github.com/hubflow-next/internal/cache"
	"github.com/hubflow-next/internal/config"
	"github.com/hubflow-next/internal/constants"
	"github.com/hubflow-next/internal/events"
	"github.com/hubflow-next/internal/logger"
	"github.com/hubflow-next/internal/models"
	"github.com/hubflow-next/internal/queue"
	"github.com/hubflow-next/internal/repository"
	"github.com/hubflow-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config         *config.Config
	QueueClient    *queue.Client
	EventPublisher events.Publisher

	// Repositories
	AdminRepo        repository.AdminRepository
	HubRepo          repository.HubRepository
	OrderRepo        repository.OrderRepository
	NotificationRepo repository.NotificationRepository
	HubOtpRepo       repository.HubOtpRepository

	// Services
	AuthzService         *authz.Service
	AuthService          *service.AuthService
	EmailService         *service.EmailService
	HubService           *service.HubService
	OtpService           *service.OtpService
	NotificationService  *service.NotificationService
	OrderLocationService *service.OrderLocationService
	HubOrderQueryService *service.HubOrderQueryService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端，未启用时为空操作客户端
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient, _ = queue.NewClient(nil)
	}

	c := &Container{
		Config:         cfg,
		QueueClient:    queueClient,
		EventPublisher: events.NewPublisher(cfg.Events),
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

// Close 释放容器持有的外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			logger.Warnw("provider_close_event_publisher_failed", "error", err)
		}
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.HubRepo = repository.NewHubRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.NotificationRepo = repository.NewNotificationRepository(db)
	c.HubOtpRepo = repository.NewHubOtpRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.AuthService = service.NewAuthService(c.Config.JWT, c.AdminRepo)
	c.HubService = service.NewHubService(c.HubRepo, c.Config.Hub.DefaultMaxOrders)
	c.OtpService = service.NewOtpService(c.HubOtpRepo, c.Config.OTP)
	c.NotificationService = service.NewNotificationService(c.NotificationRepo, c.AdminRepo, c.OrderRepo, c.QueueClient, c.EmailService)
	c.HubOrderQueryService = service.NewHubOrderQueryService(c.OrderRepo, c.HubRepo)
	c.OrderLocationService = service.NewOrderLocationService(
		c.OrderRepo,
		c.HubRepo,
		c.OtpService,
		c.buildApprovalGate(),
		service.NewCustomerHubResolver(c.Config.Hub.Routing),
		c.NotificationService,
		c.QueueClient,
		c.EventPublisher,
	)
}

// buildApprovalGate 按配置选择审批策略
func (c *Container) buildApprovalGate() service.ApprovalGate {
	base := service.AdminRoleApprovalPolicy{}
	if c.Config.Approval.Policy == constants.ApprovalPolicyRBAC {
		logger.Infow("provider_approval_policy_selected", "policy", constants.ApprovalPolicyRBAC)
		return service.NewCasbinApprovalPolicy(base, c.AuthzService)
	}
	return base
}
