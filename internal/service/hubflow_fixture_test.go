package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hubflow-next/internal/config"
	"github.com/hubflow-next/internal/constants"
	"github.com/hubflow-next/internal/models"
	"github.com/hubflow-next/internal/queue"
	"github.com/hubflow-next/internal/repository"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type hubFlowTestEnv struct {
	db            *gorm.DB
	orderRepo     *repository.GormOrderRepository
	hubRepo       *repository.GormHubRepository
	otpRepo       *repository.GormHubOtpRepository
	notifications *NotificationService
	otp           *OtpService
	hubs          *HubService
	query         *HubOrderQueryService
	tasks         *recordingTasks
	flow          *OrderLocationService
}

type hubFlowTestOptions struct {
	otp        config.OTPConfig
	routing    config.HubRoutingConfig
	dispatcher NotificationDispatcher
	tasks      *recordingTasks
}

func openServiceTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.Admin{},
		&models.Hub{},
		&models.Order{},
		&models.OrderItem{},
		&models.Notification{},
		&models.HubOtp{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	return db
}

func setupHubFlowTest(t *testing.T, opts hubFlowTestOptions) *hubFlowTestEnv {
	t.Helper()
	db := openServiceTestDB(t, "hubflow_service_test")
	if opts.otp.HashCost == 0 {
		opts.otp.HashCost = bcrypt.MinCost
	}
	if opts.routing.Fallback == "" {
		opts.routing.Fallback = constants.HubRoutingFallbackNone
	}
	if opts.tasks == nil {
		opts.tasks = &recordingTasks{}
	}

	env := &hubFlowTestEnv{
		db:        db,
		orderRepo: repository.NewOrderRepository(db),
		hubRepo:   repository.NewHubRepository(db),
		otpRepo:   repository.NewHubOtpRepository(db),
		tasks:     opts.tasks,
	}
	adminRepo := repository.NewAdminRepository(db)
	env.notifications = NewNotificationService(repository.NewNotificationRepository(db), adminRepo, env.orderRepo, env.tasks, nil)
	env.otp = NewOtpService(env.otpRepo, opts.otp)
	env.hubs = NewHubService(env.hubRepo, 0)
	env.query = NewHubOrderQueryService(env.orderRepo, env.hubRepo)
	dispatcher := opts.dispatcher
	if dispatcher == nil {
		dispatcher = env.notifications
	}
	env.flow = NewOrderLocationService(
		env.orderRepo,
		env.hubRepo,
		env.otp,
		AdminRoleApprovalPolicy{},
		NewCustomerHubResolver(opts.routing),
		dispatcher,
		env.tasks,
		nil,
	)
	return env
}

func (env *hubFlowTestEnv) createAdmin(t *testing.T, username string) *models.Admin {
	t.Helper()
	admin := &models.Admin{Username: username, PasswordHash: "hash"}
	if err := env.db.Create(admin).Error; err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	return admin
}

func (env *hubFlowTestEnv) createHub(t *testing.T, code, district, role string, managerID uint) *models.Hub {
	t.Helper()
	hub, err := env.hubs.Create(HubInput{Code: code, Name: code + " Hub", District: district, Role: role})
	if err != nil {
		t.Fatalf("create hub %s failed: %v", code, err)
	}
	if managerID != 0 {
		hub, err = env.hubs.AssignManager(hub.ID, &managerID, fmt.Sprintf("manager-%d", managerID))
		if err != nil {
			t.Fatalf("assign manager failed: %v", err)
		}
	}
	return hub
}

func (env *hubFlowTestEnv) createOrder(t *testing.T, admin Actor, buyerID uint, district string) *models.Order {
	t.Helper()
	price, err := models.NewMoneyFromString("249.50")
	if err != nil {
		t.Fatalf("parse money failed: %v", err)
	}
	order, err := env.flow.CreateOrder(context.Background(), CreateOrderInput{
		BuyerID:          buyerID,
		BuyerName:        fmt.Sprintf("Buyer %d", buyerID),
		BuyerEmail:       fmt.Sprintf("buyer%d@example.com", buyerID),
		ShippingStreet:   "MG Road",
		ShippingCity:     "Kochi",
		ShippingDistrict: district,
		ShippingState:    "Kerala",
		ShippingPincode:  "682016",
		Items: []CreateOrderItemInput{
			{ProductID: 11, SellerID: 3, Title: "Banana chips", UnitPrice: price, Quantity: 2},
		},
	}, admin)
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func (env *hubFlowTestEnv) reloadOrder(t *testing.T, id uint) *models.Order {
	t.Helper()
	order, err := env.orderRepo.GetByID(id)
	if err != nil || order == nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if err := order.CheckInvariant(); err != nil {
		t.Fatalf("tracking invariant broken: %v", err)
	}
	return order
}

func (env *hubFlowTestEnv) reloadHub(t *testing.T, id uint) *models.Hub {
	t.Helper()
	hub, err := env.hubRepo.GetByID(id)
	if err != nil || hub == nil {
		t.Fatalf("reload hub failed: %v", err)
	}
	return hub
}

func (env *hubFlowTestEnv) latestBuyerOtp(t *testing.T, buyerID uint) string {
	t.Helper()
	return env.latestBuyerCode(t, buyerID, constants.NotificationActionPickupOrder)
}

func (env *hubFlowTestEnv) latestDoorstepOtp(t *testing.T, buyerID uint) string {
	t.Helper()
	return env.latestBuyerCode(t, buyerID, constants.NotificationActionReceiveDelivery)
}

func (env *hubFlowTestEnv) latestBuyerCode(t *testing.T, buyerID uint, actionType string) string {
	t.Helper()
	var notification models.Notification
	err := env.db.Where("recipient_class = ? AND recipient_id = ? AND action_type = ?",
		constants.RecipientBuyer, buyerID, actionType).
		Order("id DESC").First(&notification).Error
	if err != nil {
		t.Fatalf("load %s notification failed: %v", actionType, err)
	}
	code, _ := notification.Metadata["otp"].(string)
	if code == "" {
		t.Fatalf("%s notification carries no otp: %+v", actionType, notification.Metadata)
	}
	return code
}

// recordingTasks 记录投递的任务
type recordingTasks struct {
	mu       sync.Mutex
	enabled  bool
	delivers []queue.NotificationDeliverPayload
	emails   []queue.NotificationEmailPayload
	events   []queue.OrderLocationEventPayload
}

func (r *recordingTasks) Enabled() bool {
	return r.enabled
}

func (r *recordingTasks) EnqueueNotificationDeliver(payload queue.NotificationDeliverPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivers = append(r.delivers, payload)
	return nil
}

func (r *recordingTasks) EnqueueNotificationEmail(payload queue.NotificationEmailPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emails = append(r.emails, payload)
	return nil
}

func (r *recordingTasks) EnqueueOrderLocationEvent(payload queue.OrderLocationEventPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, payload)
	return nil
}

// failingDispatcher 模拟通知写入失败
type failingDispatcher struct{}

func (failingDispatcher) Notify(context.Context, NotifyInput) (*models.Notification, error) {
	return nil, errors.New("notification store unavailable")
}

func (failingDispatcher) NotifyAdmins(context.Context, NotifyInput) ([]models.Notification, error) {
	return nil, errors.New("notification store unavailable")
}

// partialAdminDispatcher 管理员扇出部分失败，其余通知正常
type partialAdminDispatcher struct {
	failed []uint
}

func (partialAdminDispatcher) Notify(_ context.Context, input NotifyInput) (*models.Notification, error) {
	return &models.Notification{RecipientClass: input.RecipientClass, RecipientID: input.RecipientID, Type: input.Type}, nil
}

func (d partialAdminDispatcher) NotifyAdmins(context.Context, NotifyInput) ([]models.Notification, error) {
	return nil, &AdminFanOutError{Failed: d.failed, Err: errors.New("admin inbox write failed")}
}

func wrongCode(code string) string {
	if code == "000000" {
		return "999999"
	}
	return "000000"
}
