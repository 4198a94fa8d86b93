package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hubflow-next/internal/constants"
	"github.com/hubflow-next/internal/models"
	"github.com/hubflow-next/internal/repository"
)

var hubCodePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_-]{1,31}$`)

// HubService 枢纽注册表
type HubService struct {
	hubRepo          repository.HubRepository
	defaultMaxOrders int
}

// NewHubService 创建枢纽服务
func NewHubService(hubRepo repository.HubRepository, defaultMaxOrders int) *HubService {
	if defaultMaxOrders <= 0 {
		defaultMaxOrders = constants.DefaultHubMaxOrders
	}
	return &HubService{hubRepo: hubRepo, defaultMaxOrders: defaultMaxOrders}
}

// HubInput 创建/更新枢纽参数
type HubInput struct {
	Code         string
	Name         string
	District     string
	Role         string
	Address      string
	Pincode      string
	ContactPhone string
	ContactEmail string
	MaxOrders    int
}

// HubSummary 对外展示的枢纽摘要
type HubSummary struct {
	ID       uint   `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	District string `json:"district"`
}

func toHubSummary(hub *models.Hub) *HubSummary {
	if hub == nil {
		return nil
	}
	return &HubSummary{ID: hub.ID, Code: hub.Code, Name: hub.Name, District: hub.District}
}

func (s *HubService) normalizeInput(input HubInput) (HubInput, error) {
	input.Code = strings.ToUpper(strings.TrimSpace(input.Code))
	input.Name = strings.TrimSpace(input.Name)
	input.District = strings.TrimSpace(input.District)
	input.Role = strings.ToLower(strings.TrimSpace(input.Role))
	if input.Role == "" {
		input.Role = constants.HubRoleBoth
	}
	if !hubCodePattern.MatchString(input.Code) || input.Name == "" || input.District == "" {
		return input, ErrHubInvalid
	}
	switch input.Role {
	case constants.HubRoleSeller, constants.HubRoleCustomer, constants.HubRoleBoth:
	default:
		return input, fmt.Errorf("%w: role %q", ErrHubInvalid, input.Role)
	}
	if input.MaxOrders == 0 {
		input.MaxOrders = s.defaultMaxOrders
	}
	if input.MaxOrders < 0 {
		return input, fmt.Errorf("%w: max_orders must be positive", ErrHubInvalid)
	}
	return input, nil
}

// Create 创建枢纽
func (s *HubService) Create(input HubInput) (*models.Hub, error) {
	normalized, err := s.normalizeInput(input)
	if err != nil {
		return nil, err
	}
	existing, err := s.hubRepo.GetByCode(normalized.Code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrHubCodeExists
	}
	hub := &models.Hub{
		Code:         normalized.Code,
		Name:         normalized.Name,
		District:     normalized.District,
		Role:         normalized.Role,
		Address:      strings.TrimSpace(normalized.Address),
		Pincode:      strings.TrimSpace(normalized.Pincode),
		ContactPhone: strings.TrimSpace(normalized.ContactPhone),
		ContactEmail: strings.TrimSpace(normalized.ContactEmail),
		MaxOrders:    normalized.MaxOrders,
		Status:       constants.HubStatusActive,
	}
	if err := s.hubRepo.Create(hub); err != nil {
		return nil, err
	}
	return hub, nil
}

// Update 更新枢纽基础信息，计数器不可通过此接口修改
func (s *HubService) Update(id uint, input HubInput) (*models.Hub, error) {
	hub, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	normalized, err := s.normalizeInput(input)
	if err != nil {
		return nil, err
	}
	if normalized.Code != hub.Code {
		other, err := s.hubRepo.GetByCode(normalized.Code)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != hub.ID {
			return nil, ErrHubCodeExists
		}
	}
	hub.Code = normalized.Code
	hub.Name = normalized.Name
	hub.District = normalized.District
	hub.Role = normalized.Role
	hub.Address = strings.TrimSpace(normalized.Address)
	hub.Pincode = strings.TrimSpace(normalized.Pincode)
	hub.ContactPhone = strings.TrimSpace(normalized.ContactPhone)
	hub.ContactEmail = strings.TrimSpace(normalized.ContactEmail)
	hub.MaxOrders = normalized.MaxOrders
	if err := s.hubRepo.Update(hub); err != nil {
		return nil, err
	}
	return hub, nil
}

// SetStatus 切换营业状态
func (s *HubService) SetStatus(id uint, status string) (*models.Hub, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case constants.HubStatusActive, constants.HubStatusInactive, constants.HubStatusMaintenance:
	default:
		return nil, fmt.Errorf("%w: status %q", ErrHubInvalid, status)
	}
	hub, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.hubRepo.UpdateStatus(hub.ID, status); err != nil {
		return nil, err
	}
	hub.Status = status
	return hub, nil
}

// AssignManager 指派或解除负责人
func (s *HubService) AssignManager(id uint, managerID *uint, managerName string) (*models.Hub, error) {
	hub, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if managerID != nil && *managerID == 0 {
		managerID = nil
	}
	if managerID == nil {
		managerName = ""
	}
	if err := s.hubRepo.AssignManager(hub.ID, managerID, managerName); err != nil {
		return nil, err
	}
	hub.ManagerID = managerID
	hub.ManagerName = strings.TrimSpace(managerName)
	return hub, nil
}

// GetByID 获取枢纽
func (s *HubService) GetByID(id uint) (*models.Hub, error) {
	hub, err := s.hubRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if hub == nil {
		return nil, ErrHubNotFound
	}
	return hub, nil
}

// List 枢纽列表
func (s *HubService) List(filter repository.HubListFilter) ([]models.Hub, int64, error) {
	return s.hubRepo.List(filter)
}

// ListByDistrict 指定地区的营业枢纽
func (s *HubService) ListByDistrict(district string) ([]models.Hub, error) {
	if models.NormalizeDistrict(district) == "" {
		return nil, fmt.Errorf("%w: district required", ErrHubInvalid)
	}
	hubs, _, err := s.hubRepo.List(repository.HubListFilter{District: district, OnlyActive: true})
	return hubs, err
}

// ListDistricts 有营业枢纽的地区
func (s *HubService) ListDistricts() ([]string, error) {
	return s.hubRepo.ListDistricts()
}

// IsManagedBy 判断主体是否为该枢纽负责人
func IsManagedBy(hub *models.Hub, actor Actor) bool {
	return hub != nil && hub.ManagerID != nil && *hub.ManagerID == actor.ID
}
