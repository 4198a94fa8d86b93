package main

import (
	"errors"
	"fmt"

	"github.com/hubflow-next/internal/config"
	"github.com/hubflow-next/internal/constants"
	"github.com/hubflow-next/internal/logger"
	"github.com/hubflow-next/internal/models"
	"github.com/hubflow-next/internal/repository"
	"github.com/hubflow-next/internal/service"

	"github.com/joho/godotenv"
)

// districtHub 区域枢纽种子数据
type districtHub struct {
	Code     string
	District string
	City     string
	Pincode  string
}

// 喀拉拉邦 14 个区，每区一个中心枢纽（同时承担卖家与客户角色）
var keralaDistrictHubs = []districtHub{
	{Code: "HUB-TVM-001", District: "Thiruvananthapuram", City: "Thiruvananthapuram", Pincode: "695001"},
	{Code: "HUB-KLM-001", District: "Kollam", City: "Kollam", Pincode: "691001"},
	{Code: "HUB-PTA-001", District: "Pathanamthitta", City: "Pathanamthitta", Pincode: "689645"},
	{Code: "HUB-ALP-001", District: "Alappuzha", City: "Alappuzha", Pincode: "688001"},
	{Code: "HUB-KTM-001", District: "Kottayam", City: "Kottayam", Pincode: "686001"},
	{Code: "HUB-IDK-001", District: "Idukki", City: "Painavu", Pincode: "685603"},
	{Code: "HUB-ERN-001", District: "Ernakulam", City: "Kochi", Pincode: "682001"},
	{Code: "HUB-TSR-001", District: "Thrissur", City: "Thrissur", Pincode: "680001"},
	{Code: "HUB-PKD-001", District: "Palakkad", City: "Palakkad", Pincode: "678001"},
	{Code: "HUB-MPM-001", District: "Malappuram", City: "Malappuram", Pincode: "676505"},
	{Code: "HUB-KZK-001", District: "Kozhikode", City: "Kozhikode", Pincode: "673001"},
	{Code: "HUB-WYD-001", District: "Wayanad", City: "Kalpetta", Pincode: "673121"},
	{Code: "HUB-KNR-001", District: "Kannur", City: "Kannur", Pincode: "670001"},
	{Code: "HUB-KSD-001", District: "Kasaragod", City: "Kasaragod", Pincode: "671121"},
}

const (
	demoManagerIDBase = 1000
	demoBuyerID       = 5001
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()
	stdLog := logger.StdLogger()

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.InitDefaultAdmin(cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword); err != nil {
		stdLog.Fatalf("Failed to create default admin: %v", err)
	}

	hubService := service.NewHubService(repository.NewHubRepository(models.DB), cfg.Hub.DefaultMaxOrders)

	// 区域中心枢纽
	var ernakulam *models.Hub
	for i, item := range keralaDistrictHubs {
		hub := seedHub(stdLog, hubService, service.HubInput{
			Code:         item.Code,
			Name:         item.District + " Central Hub",
			District:     item.District,
			Role:         constants.HubRoleBoth,
			Address:      item.City + ", Kerala",
			Pincode:      item.Pincode,
			ContactEmail: fmt.Sprintf("%s.hub@hubflow.local", item.Code),
		})
		if hub == nil {
			continue
		}
		managerID := uint(demoManagerIDBase + i + 1)
		if hub.ManagerID == nil {
			assigned, err := hubService.AssignManager(hub.ID, &managerID, item.District+" Hub Manager")
			if err != nil {
				stdLog.Printf("assign manager for %s failed: %v", item.Code, err)
			} else {
				hub = assigned
			}
		}
		if item.District == "Ernakulam" {
			ernakulam = hub
		}
	}

	// 科钦卖家 / 客户枢纽对，用于演示跨枢纽流转
	seedHub(stdLog, hubService, service.HubInput{Code: "HUB-KOCHI-S", Name: "Kochi Seller Hub", District: "Ernakulam", Role: constants.HubRoleSeller, Address: "Kakkanad, Kochi", Pincode: "682030"})
	seedHub(stdLog, hubService, service.HubInput{Code: "HUB-KOCHI-C", Name: "Kochi Customer Hub", District: "Ernakulam", Role: constants.HubRoleCustomer, Address: "Edappally, Kochi", Pincode: "682024"})

	printDemoTokens(stdLog, cfg, ernakulam)
	fmt.Println("Seed data created successfully!")
}

type fatalLogger interface {
	Printf(format string, v ...interface{})
	Fatalf(format string, v ...interface{})
}

func seedHub(log fatalLogger, hubService *service.HubService, input service.HubInput) *models.Hub {
	hub, err := hubService.Create(input)
	if errors.Is(err, service.ErrHubCodeExists) {
		existing, _, listErr := hubService.List(repository.HubListFilter{Page: 1, PageSize: 1, Search: input.Code})
		if listErr != nil || len(existing) == 0 {
			log.Printf("hub %s exists but could not be loaded: %v", input.Code, listErr)
			return nil
		}
		return &existing[0]
	}
	if err != nil {
		log.Fatalf("Failed to create hub %s: %v", input.Code, err)
	}
	return hub
}

func printDemoTokens(log fatalLogger, cfg *config.Config, ernakulam *models.Hub) {
	adminRepo := repository.NewAdminRepository(models.DB)
	authService := service.NewAuthService(cfg.JWT, adminRepo)

	admin, err := adminRepo.GetByUsername(cfg.Bootstrap.AdminUsername)
	if err == nil && admin != nil {
		if token, _, err := authService.IssueToken(service.NewActor(admin.ID, constants.RoleAdmin), admin.TokenVersion); err == nil {
			fmt.Printf("admin token (%s):\n%s\n\n", admin.Username, token)
		}
	}
	if ernakulam != nil && ernakulam.ManagerID != nil {
		if token, _, err := authService.IssueToken(service.NewActor(*ernakulam.ManagerID, constants.RoleHubManager), 0); err == nil {
			fmt.Printf("hub manager token (%s):\n%s\n\n", ernakulam.Code, token)
		}
	}
	token, _, err := authService.IssueToken(service.NewActor(demoBuyerID, constants.RoleBuyer), 0)
	if err != nil {
		log.Printf("issue buyer token failed: %v", err)
		return
	}
	fmt.Printf("buyer token (id=%d):\n%s\n", demoBuyerID, token)
}
