package repository

import (
	"fmt"
	"strings"

	"github.com/hubflow-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HubOrderCount 按枢纽分组的订单计数
type HubOrderCount struct {
	HubID uint
	Total int64
}

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order, items []models.OrderItem) error
	AssignOrderNo(id uint, orderNo string) error
	GetByID(id uint) (*models.Order, error)
	GetByIDForUpdate(id uint) (*models.Order, error)
	GetByOrderNo(orderNo string) (*models.Order, error)
	CompareAndSetTracking(id uint, expectLocation models.OrderLocation, expectApproved bool, updates map[string]interface{}) (bool, error)
	ListPendingApproval(filter HubOrderListFilter) ([]models.Order, int64, error)
	ListApprovedUndelivered(filter HubOrderListFilter) ([]models.Order, int64, error)
	ListAtCustomerHub(filter HubOrderListFilter) ([]models.Order, int64, error)
	CountGroupedByHub(hubColumn string, locations ...models.OrderLocation) (map[uint]int64, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Transaction 执行事务
func (r *GormOrderRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建订单与订单项
func (r *GormOrderRepository) Create(order *models.Order, items []models.OrderItem) error {
	if err := r.db.Omit("Items").Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	order.Items = items
	return nil
}

// AssignOrderNo 回写订单编号
func (r *GormOrderRepository) AssignOrderNo(id uint, orderNo string) error {
	return r.db.Model(&models.Order{}).Where("id = ?", id).UpdateColumn("order_no", orderNo).Error
}

// GetByID 根据 ID 获取订单
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	return firstOrNil[models.Order](r.db.Preload("Items"), id)
}

// GetByIDForUpdate 加锁获取订单（sqlite 下锁子句被忽略）
func (r *GormOrderRepository) GetByIDForUpdate(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	return firstOrNil[models.Order](r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

// GetByOrderNo 根据订单号获取订单
func (r *GormOrderRepository) GetByOrderNo(orderNo string) (*models.Order, error) {
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, nil
	}
	return firstOrNil[models.Order](r.db.Preload("Items").Where("order_no = ?", orderNo))
}

// CompareAndSetTracking 仅当位置与审批标记仍为期望值时写入跟踪字段，返回是否命中
func (r *GormOrderRepository) CompareAndSetTracking(id uint, expectLocation models.OrderLocation, expectApproved bool, updates map[string]interface{}) (bool, error) {
	if id == 0 || len(updates) == 0 {
		return false, nil
	}
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND "+models.ColCurrentLocation+" = ? AND "+models.ColApprovedByAdmin+" = ?", id, expectLocation, expectApproved).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListPendingApproval 已到卖家枢纽且待审批的订单，最早到达的排在前面
func (r *GormOrderRepository) ListPendingApproval(filter HubOrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{}).
		Where(models.ColCurrentLocation+" = ? AND "+models.ColApprovedByAdmin+" = ?", models.LocationAtSellerHub, false)
	query = applyHubOrderFilter(query, filter)
	return r.listOrders(query, filter, models.ColArrivedAtSellerHub+" ASC, id ASC")
}

// ListApprovedUndelivered 已审批但尚未签收的订单，最近审批的排在前面
func (r *GormOrderRepository) ListApprovedUndelivered(filter HubOrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{}).
		Where(models.ColApprovedByAdmin+" = ? AND "+models.ColCurrentLocation+" IN ?", true,
			[]models.OrderLocation{models.LocationInTransit, models.LocationAtCustomerHub})
	query = applyHubOrderFilter(query, filter)
	return r.listOrders(query, filter, models.ColApprovedAt+" DESC, id DESC")
}

// ListAtCustomerHub 已到客户枢纽、等待自提或上门交付的订单
func (r *GormOrderRepository) ListAtCustomerHub(filter HubOrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{}).
		Where(models.ColCurrentLocation+" = ?", models.LocationAtCustomerHub)
	query = applyHubOrderFilter(query, filter)
	return r.listOrders(query, filter, models.ColArrivedAtCustomerHub+" ASC, id ASC")
}

// CountGroupedByHub 按枢纽列分组统计指定位置的订单数
func (r *GormOrderRepository) CountGroupedByHub(hubColumn string, locations ...models.OrderLocation) (map[uint]int64, error) {
	switch hubColumn {
	case models.ColSellerHubID, models.ColCustomerHubID:
	default:
		return nil, fmt.Errorf("unsupported hub column: %s", hubColumn)
	}
	rows := make([]HubOrderCount, 0)
	query := r.db.Model(&models.Order{}).
		Select(hubColumn + " AS hub_id, COUNT(*) AS total").
		Where(hubColumn + " IS NOT NULL")
	if len(locations) > 0 {
		query = query.Where(models.ColCurrentLocation+" IN ?", locations)
	}
	if err := query.Group(hubColumn).Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.HubID] = row.Total
	}
	return counts, nil
}

func (r *GormOrderRepository) listOrders(query *gorm.DB, filter HubOrderListFilter, orderBy string) ([]models.Order, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	orders := make([]models.Order, 0)
	query = applyPagination(query.Preload("Items").Order(orderBy), filter.Page, filter.PageSize)
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func applyHubOrderFilter(query *gorm.DB, filter HubOrderListFilter) *gorm.DB {
	if filter.SellerHubID != 0 {
		query = query.Where(models.ColSellerHubID+" = ?", filter.SellerHubID)
	}
	if filter.CustomerHubID != 0 {
		query = query.Where(models.ColCustomerHubID+" = ?", filter.CustomerHubID)
	}
	if filter.DeliveryAgentID != 0 {
		query = query.Where(models.ColDeliveryAgentID+" = ?", filter.DeliveryAgentID)
	}
	if filter.BuyerID != 0 {
		query = query.Where("buyer_id = ?", filter.BuyerID)
	}
	if district := models.NormalizeDistrict(filter.District); district != "" {
		query = query.Where("LOWER(TRIM(shipping_district)) = ?", district)
	}
	return query
}
