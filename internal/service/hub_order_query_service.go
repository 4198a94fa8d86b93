package service

import (
	"context"
	"sort"
	"strings"

	"github.com/hubflow-next/internal/cache"
	"github.com/hubflow-next/internal/logger"
	"github.com/hubflow-next/internal/metrics"
	"github.com/hubflow-next/internal/models"
	"github.com/hubflow-next/internal/repository"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// HubStats 单个枢纽的实时统计
type HubStats struct {
	ID                 uint    `json:"id"`
	Code               string  `json:"code"`
	Name               string  `json:"name"`
	District           string  `json:"district"`
	Role               string  `json:"role"`
	OrdersAtHub        int64   `json:"orders_at_hub"`
	DispatchedToHub    int64   `json:"dispatched_to_hub"`
	CurrentOrders      int     `json:"current_orders"`
	MaxOrders          int     `json:"max_orders"`
	CapacityPercentage float64 `json:"capacity_percentage"`
}

// DistrictHubStats 按地区汇总
type DistrictHubStats struct {
	District            string     `json:"district"`
	Hubs                []HubStats `json:"hubs"`
	TotalOrdersAtHubs   int64      `json:"total_orders_at_hubs"`
	TotalDispatched     int64      `json:"total_dispatched"`
	TotalCurrentOrders  int        `json:"total_current_orders"`
	TotalCapacity       int        `json:"total_capacity"`
	CapacityUtilisation float64    `json:"capacity_utilisation"`
}

// HubCapacityDrift 计数器与实际在库订单的偏差
type HubCapacityDrift struct {
	HubID         uint   `json:"hub_id"`
	HubCode       string `json:"hub_code"`
	CurrentOrders int    `json:"current_orders"`
	DerivedOrders int64  `json:"derived_orders"`
	Drift         int64  `json:"drift"`
}

// HubOrderQueryService 枢纽订单只读视图
type HubOrderQueryService struct {
	orderRepo repository.OrderRepository
	hubRepo   repository.HubRepository
	group     singleflight.Group
}

// NewHubOrderQueryService 创建查询服务
func NewHubOrderQueryService(orderRepo repository.OrderRepository, hubRepo repository.HubRepository) *HubOrderQueryService {
	return &HubOrderQueryService{orderRepo: orderRepo, hubRepo: hubRepo}
}

// ListPendingApproval 待审批订单，最早到达在前
func (s *HubOrderQueryService) ListPendingApproval(filter repository.HubOrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListPendingApproval(filter)
}

// ListApprovedUndelivered 已放行未签收订单，最近审批在前
func (s *HubOrderQueryService) ListApprovedUndelivered(filter repository.HubOrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListApprovedUndelivered(filter)
}

// ListReadyForPickup 客户枢纽待自提订单，枢纽负责人只能查看自己负责的枢纽
func (s *HubOrderQueryService) ListReadyForPickup(hubID uint, actor Actor, page, pageSize int) ([]models.Order, int64, error) {
	hub, err := s.hubRepo.GetByID(hubID)
	if err != nil {
		return nil, 0, err
	}
	if hub == nil {
		return nil, 0, ErrHubNotFound
	}
	if !actor.IsAdmin() && !IsManagedBy(hub, actor) {
		return nil, 0, ErrForbidden
	}
	return s.orderRepo.ListAtCustomerHub(repository.HubOrderListFilter{
		Page:          page,
		PageSize:      pageSize,
		CustomerHubID: hub.ID,
	})
}

// ListAssignedDeliveries 配送员名下待上门交付的订单
func (s *HubOrderQueryService) ListAssignedDeliveries(actor Actor, page, pageSize int) ([]models.Order, int64, error) {
	if !actor.IsDeliveryAgent() {
		return nil, 0, ErrForbidden
	}
	return s.orderRepo.ListAtCustomerHub(repository.HubOrderListFilter{
		Page:            page,
		PageSize:        pageSize,
		DeliveryAgentID: actor.ID,
	})
}

// HubsWithStats 营业中枢纽的统计，按地区分组
func (s *HubOrderQueryService) HubsWithStats(ctx context.Context) ([]DistrictHubStats, error) {
	var cached []DistrictHubStats
	if hit, err := cache.GetHubStats(ctx, &cached); err != nil {
		logger.Warnw("hub_stats_cache_read_failed", "error", err)
	} else if hit {
		return cached, nil
	}
	result, err, _ := s.group.Do("hubs-with-stats", func() (interface{}, error) {
		stats, err := s.computeHubStats(ctx)
		if err != nil {
			return nil, err
		}
		if err := cache.SetHubStats(ctx, stats); err != nil {
			logger.Warnw("hub_stats_cache_write_failed", "error", err)
		}
		return stats, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]DistrictHubStats), nil
}

// CapacityDrift 比较计数器与派生计数，仅报告不修正
func (s *HubOrderQueryService) CapacityDrift(ctx context.Context) ([]HubCapacityDrift, error) {
	hubs, atSeller, atCustomer, _, err := s.loadAggregates(ctx)
	if err != nil {
		return nil, err
	}
	drifts := make([]HubCapacityDrift, 0)
	for _, hub := range hubs {
		derived := atSeller[hub.ID] + atCustomer[hub.ID]
		drift := int64(hub.CurrentOrders) - derived
		metrics.HubCapacityDrift.WithLabelValues(hub.Code).Set(float64(drift))
		if drift == 0 {
			continue
		}
		drifts = append(drifts, HubCapacityDrift{
			HubID:         hub.ID,
			HubCode:       hub.Code,
			CurrentOrders: hub.CurrentOrders,
			DerivedOrders: derived,
			Drift:         drift,
		})
	}
	return drifts, nil
}

func (s *HubOrderQueryService) computeHubStats(ctx context.Context) ([]DistrictHubStats, error) {
	hubs, atSeller, atCustomer, inTransit, err := s.loadAggregates(ctx)
	if err != nil {
		return nil, err
	}
	byDistrict := make(map[string]*DistrictHubStats)
	keys := make([]string, 0)
	for i := range hubs {
		hub := &hubs[i]
		key := models.NormalizeDistrict(hub.District)
		group, ok := byDistrict[key]
		if !ok {
			group = &DistrictHubStats{District: strings.TrimSpace(hub.District), Hubs: make([]HubStats, 0)}
			byDistrict[key] = group
			keys = append(keys, key)
		}
		stats := HubStats{
			ID:                 hub.ID,
			Code:               hub.Code,
			Name:               hub.Name,
			District:           hub.District,
			Role:               hub.Role,
			OrdersAtHub:        atSeller[hub.ID] + atCustomer[hub.ID],
			DispatchedToHub:    inTransit[hub.ID],
			CurrentOrders:      hub.CurrentOrders,
			MaxOrders:          hub.MaxOrders,
			CapacityPercentage: hub.CapacityPercentage(),
		}
		group.Hubs = append(group.Hubs, stats)
		group.TotalOrdersAtHubs += stats.OrdersAtHub
		group.TotalDispatched += stats.DispatchedToHub
		group.TotalCurrentOrders += stats.CurrentOrders
		group.TotalCapacity += stats.MaxOrders
	}
	sort.Strings(keys)
	result := make([]DistrictHubStats, 0, len(keys))
	for _, key := range keys {
		group := byDistrict[key]
		if group.TotalCapacity > 0 {
			group.CapacityUtilisation = float64(group.TotalCurrentOrders) * 100 / float64(group.TotalCapacity)
		}
		result = append(result, *group)
	}
	return result, nil
}

func (s *HubOrderQueryService) loadAggregates(ctx context.Context) ([]models.Hub, map[uint]int64, map[uint]int64, map[uint]int64, error) {
	var (
		hubs       []models.Hub
		atSeller   map[uint]int64
		atCustomer map[uint]int64
		inTransit  map[uint]int64
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		hubs, err = s.hubRepo.ListActive()
		return err
	})
	g.Go(func() error {
		var err error
		atSeller, err = s.orderRepo.CountGroupedByHub(models.ColSellerHubID, models.LocationAtSellerHub)
		return err
	})
	g.Go(func() error {
		var err error
		atCustomer, err = s.orderRepo.CountGroupedByHub(models.ColCustomerHubID, models.LocationAtCustomerHub)
		return err
	})
	g.Go(func() error {
		var err error
		inTransit, err = s.orderRepo.CountGroupedByHub(models.ColCustomerHubID, models.LocationInTransit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, nil, err
	}
	return hubs, atSeller, atCustomer, inTransit, nil
}
