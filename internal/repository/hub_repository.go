package repository

import (
	"strings"

	"github.com/hubflow-next/internal/constants"
	"github.com/hubflow-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HubRepository 枢纽数据访问接口
type HubRepository interface {
	Create(hub *models.Hub) error
	Update(hub *models.Hub) error
	GetByID(id uint) (*models.Hub, error)
	GetByIDForUpdate(id uint) (*models.Hub, error)
	GetByCode(code string) (*models.Hub, error)
	List(filter HubListFilter) ([]models.Hub, int64, error)
	ListActive() ([]models.Hub, error)
	ListDistricts() ([]string, error)
	ListCustomerCandidates(district string) ([]models.Hub, error)
	UpdateStatus(id uint, status string) error
	AssignManager(id uint, managerID *uint, managerName string) error
	AdjustCurrentOrders(id uint, delta int) (bool, error)
	IncrementDelivered(id uint) error
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormHubRepository
}

// GormHubRepository GORM 实现
type GormHubRepository struct {
	db *gorm.DB
}

// NewHubRepository 创建枢纽仓库
func NewHubRepository(db *gorm.DB) *GormHubRepository {
	return &GormHubRepository{db: db}
}

// WithTx 绑定事务
func (r *GormHubRepository) WithTx(tx *gorm.DB) *GormHubRepository {
	if tx == nil {
		return r
	}
	return &GormHubRepository{db: tx}
}

// Transaction 执行事务
func (r *GormHubRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建枢纽
func (r *GormHubRepository) Create(hub *models.Hub) error {
	return r.db.Create(hub).Error
}

// Update 更新枢纽基础信息（不写计数器）
func (r *GormHubRepository) Update(hub *models.Hub) error {
	return r.db.Model(hub).
		Select("code", "name", "district", "role", "address", "pincode", "contact_phone", "contact_email", "max_orders").
		Updates(hub).Error
}

// GetByID 根据 ID 获取枢纽
func (r *GormHubRepository) GetByID(id uint) (*models.Hub, error) {
	if id == 0 {
		return nil, nil
	}
	return firstOrNil[models.Hub](r.db, id)
}

// GetByIDForUpdate 加锁获取枢纽
func (r *GormHubRepository) GetByIDForUpdate(id uint) (*models.Hub, error) {
	if id == 0 {
		return nil, nil
	}
	return firstOrNil[models.Hub](r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

// GetByCode 根据编码获取枢纽
func (r *GormHubRepository) GetByCode(code string) (*models.Hub, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	return firstOrNil[models.Hub](r.db.Where("code = ?", code))
}

// List 枢纽列表
func (r *GormHubRepository) List(filter HubListFilter) ([]models.Hub, int64, error) {
	query := r.db.Model(&models.Hub{})
	if district := models.NormalizeDistrict(filter.District); district != "" {
		query = query.Where(normalizedDistrictExpr+" = ?", district)
	}
	if role := strings.TrimSpace(filter.Role); role != "" {
		query = query.Where("role = ?", role)
	}
	if filter.OnlyActive {
		query = query.Where("status = ?", constants.HubStatusActive)
	} else if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if cond, args := buildLikeCondition(r.db, filter.Search, "name", "code", "district"); cond != "" {
		query = query.Where(cond, args...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	hubs := make([]models.Hub, 0)
	query = applyPagination(query.Order("district ASC, id ASC"), filter.Page, filter.PageSize)
	if err := query.Find(&hubs).Error; err != nil {
		return nil, 0, err
	}
	return hubs, total, nil
}

// ListActive 全部营业中的枢纽
func (r *GormHubRepository) ListActive() ([]models.Hub, error) {
	hubs := make([]models.Hub, 0)
	if err := r.db.Where("status = ?", constants.HubStatusActive).
		Order("district ASC, id ASC").
		Find(&hubs).Error; err != nil {
		return nil, err
	}
	return hubs, nil
}

// ListDistricts 去重后的地区列表
func (r *GormHubRepository) ListDistricts() ([]string, error) {
	districts := make([]string, 0)
	if err := r.db.Model(&models.Hub{}).
		Where("status = ?", constants.HubStatusActive).
		Distinct("district").
		Order("district ASC").
		Pluck("district", &districts).Error; err != nil {
		return nil, err
	}
	return districts, nil
}

// ListCustomerCandidates 可作为客户枢纽的营业枢纽，按空余容量优先、负载升序、ID 升序排列。
// district 为空时返回全部地区的候选。
func (r *GormHubRepository) ListCustomerCandidates(district string) ([]models.Hub, error) {
	query := r.db.Where("status = ? AND role IN ?", constants.HubStatusActive,
		[]string{constants.HubRoleCustomer, constants.HubRoleBoth})
	if normalized := models.NormalizeDistrict(district); normalized != "" {
		query = query.Where(normalizedDistrictExpr+" = ?", normalized)
	}
	hubs := make([]models.Hub, 0)
	if err := query.
		Order("CASE WHEN current_orders < max_orders THEN 0 ELSE 1 END ASC").
		Order("current_orders ASC").
		Order("id ASC").
		Find(&hubs).Error; err != nil {
		return nil, err
	}
	return hubs, nil
}

// UpdateStatus 更新枢纽状态
func (r *GormHubRepository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&models.Hub{}).Where("id = ?", id).Update("status", status).Error
}

// AssignManager 指派负责人，managerID 为空表示解除
func (r *GormHubRepository) AssignManager(id uint, managerID *uint, managerName string) error {
	return r.db.Model(&models.Hub{}).Where("id = ?", id).Updates(map[string]interface{}{
		"manager_id":   managerID,
		"manager_name": strings.TrimSpace(managerName),
	}).Error
}

// AdjustCurrentOrders 调整在库订单计数，减少时不会低于 0；返回是否生效
func (r *GormHubRepository) AdjustCurrentOrders(id uint, delta int) (bool, error) {
	if id == 0 || delta == 0 {
		return false, nil
	}
	query := r.db.Model(&models.Hub{}).Where("id = ?", id)
	updates := map[string]interface{}{
		"current_orders": gorm.Expr("current_orders + ?", delta),
	}
	if delta > 0 {
		updates["total_orders_handled"] = gorm.Expr("total_orders_handled + ?", delta)
	} else {
		query = query.Where("current_orders >= ?", -delta)
	}
	result := query.UpdateColumns(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// IncrementDelivered 累加签收数
func (r *GormHubRepository) IncrementDelivered(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Hub{}).Where("id = ?", id).
		UpdateColumn("total_delivered", gorm.Expr("total_delivered + 1")).Error
}
