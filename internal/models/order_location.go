package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hubflow-next/internal/constants"
)

// OrderLocation 订单在枢纽履约链路中的位置
type OrderLocation string

const (
	LocationAwaitingSellerHub OrderLocation = constants.OrderLocationAwaitingSellerHub
	LocationAtSellerHub       OrderLocation = constants.OrderLocationAtSellerHub
	LocationInTransit         OrderLocation = constants.OrderLocationInTransit
	LocationAtCustomerHub     OrderLocation = constants.OrderLocationAtCustomerHub
	LocationDelivered         OrderLocation = constants.OrderLocationDelivered
	LocationCancelled         OrderLocation = constants.OrderLocationCancelled
)

var (
	// ErrInvalidOrderLocation 未知位置值
	ErrInvalidOrderLocation = errors.New("invalid order location")
	// ErrTrackingInvariant 审批标记与位置不一致
	ErrTrackingInvariant = errors.New("hub tracking invariant violated")
)

// 合法迁移表，状态图固定
var orderLocationTransitions = map[OrderLocation][]OrderLocation{
	LocationAwaitingSellerHub: {LocationAtSellerHub, LocationCancelled},
	LocationAtSellerHub:       {LocationInTransit, LocationCancelled},
	LocationInTransit:         {LocationAtCustomerHub},
	LocationAtCustomerHub:     {LocationDelivered},
}

// ParseOrderLocation 解析位置字符串
func ParseOrderLocation(raw string) (OrderLocation, error) {
	loc := OrderLocation(strings.ToLower(strings.TrimSpace(raw)))
	if err := loc.Validate(); err != nil {
		return "", err
	}
	return loc, nil
}

// Validate 校验位置值
func (l OrderLocation) Validate() error {
	switch l {
	case LocationAwaitingSellerHub, LocationAtSellerHub, LocationInTransit,
		LocationAtCustomerHub, LocationDelivered, LocationCancelled:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidOrderLocation, string(l))
}

func (l OrderLocation) String() string {
	return string(l)
}

// IsTerminal 是否终态
func (l OrderLocation) IsTerminal() bool {
	return l == LocationDelivered || l == LocationCancelled
}

// IsApprovedStage 处于该位置时订单必须已被管理员审批
func (l OrderLocation) IsApprovedStage() bool {
	switch l {
	case LocationInTransit, LocationAtCustomerHub, LocationDelivered:
		return true
	}
	return false
}

// CanTransitionTo 判断是否允许迁移到目标位置
func (l OrderLocation) CanTransitionTo(next OrderLocation) bool {
	for _, candidate := range orderLocationTransitions[l] {
		if candidate == next {
			return true
		}
	}
	return false
}
