package service

import (
	"github.com/hubflow-next/internal/config"
	"github.com/hubflow-next/internal/constants"
	"github.com/hubflow-next/internal/logger"
	"github.com/hubflow-next/internal/models"
	"github.com/hubflow-next/internal/repository"
)

// CustomerHubResolver 根据买家地区选择客户枢纽
type CustomerHubResolver struct {
	fallback     string
	defaultHubID uint
}

// NewCustomerHubResolver 创建路由策略
func NewCustomerHubResolver(cfg config.HubRoutingConfig) *CustomerHubResolver {
	fallback := cfg.Fallback
	switch fallback {
	case constants.HubRoutingFallbackDefaultHub, constants.HubRoutingFallbackLeastLoaded, constants.HubRoutingFallbackNone:
	default:
		fallback = constants.HubRoutingFallbackDefaultHub
	}
	return &CustomerHubResolver{fallback: fallback, defaultHubID: cfg.DefaultHubID}
}

// Resolve 选出客户枢纽：同地区营业中的客户枢纽优先（有余量、负载低、ID 小），否则按兜底策略
func (r *CustomerHubResolver) Resolve(hubRepo repository.HubRepository, district string) (*models.Hub, error) {
	if models.NormalizeDistrict(district) != "" {
		candidates, err := hubRepo.ListCustomerCandidates(district)
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			hub := candidates[0]
			if !hub.IsAvailable() {
				logger.Warnw("customer_hub_over_capacity", "hub_id", hub.ID, "district", district,
					"current_orders", hub.CurrentOrders, "max_orders", hub.MaxOrders)
			}
			return &hub, nil
		}
	}

	switch r.fallback {
	case constants.HubRoutingFallbackDefaultHub:
		if r.defaultHubID == 0 {
			break
		}
		hub, err := hubRepo.GetByID(r.defaultHubID)
		if err != nil {
			return nil, err
		}
		if hub != nil && hub.IsActive() && hub.ServesCustomer() {
			logger.Infow("customer_hub_fallback_default", "district", district, "hub_id", hub.ID)
			return hub, nil
		}
		logger.Warnw("customer_hub_default_unusable", "hub_id", r.defaultHubID)
	case constants.HubRoutingFallbackLeastLoaded:
		candidates, err := hubRepo.ListCustomerCandidates("")
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			hub := candidates[0]
			logger.Infow("customer_hub_fallback_least_loaded", "district", district, "hub_id", hub.ID)
			return &hub, nil
		}
	}
	return nil, ErrCustomerHubUnavailable
}
