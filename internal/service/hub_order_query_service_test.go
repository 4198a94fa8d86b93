package service

import (
	"context"
	"sync"
	"testing"

	"github.com/hubflow-next/internal/constants"
)

func TestHubsWithStatsGroupsByDistrict(t *testing.T) {
	env := setupHubFlowTest(t, hubFlowTestOptions{})
	ctx := context.Background()
	admin := NewActor(1, constants.RoleAdmin)
	seller := env.createHub(t, "EKM-S", "Ernakulam", constants.HubRoleSeller, 0)
	customer := env.createHub(t, "EKM-C", "Ernakulam", constants.HubRoleCustomer, 0)
	env.createHub(t, "KTM-C", "Kottayam", constants.HubRoleCustomer, 0)

	first := env.createOrder(t, admin, 90, "Ernakulam")
	second := env.createOrder(t, admin, 91, "Ernakulam")
	for _, id := range []uint{first.ID, second.ID} {
		if _, err := env.flow.ArriveAtSellerHub(ctx, id, seller.ID, admin); err != nil {
			t.Fatalf("arrive seller hub failed: %v", err)
		}
	}
	if _, err := env.flow.ApproveForDispatch(ctx, first.ID, admin); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	stats, err := env.query.HubsWithStats(ctx)
	if err != nil {
		t.Fatalf("hubs with stats failed: %v", err)
	}
	if len(stats) != 2 || stats[0].District != "Ernakulam" || stats[1].District != "Kottayam" {
		t.Fatalf("unexpected district grouping: %+v", stats)
	}
	ernakulam := stats[0]
	if len(ernakulam.Hubs) != 2 || ernakulam.TotalOrdersAtHubs != 1 || ernakulam.TotalDispatched != 1 || ernakulam.TotalCurrentOrders != 1 {
		t.Fatalf("unexpected district totals: %+v", ernakulam)
	}
	for _, hub := range ernakulam.Hubs {
		switch hub.ID {
		case seller.ID:
			if hub.OrdersAtHub != 1 || hub.CurrentOrders != 1 || hub.CapacityPercentage != 0.2 {
				t.Fatalf("unexpected seller stats: %+v", hub)
			}
		case customer.ID:
			if hub.DispatchedToHub != 1 || hub.OrdersAtHub != 0 {
				t.Fatalf("unexpected customer stats: %+v", hub)
			}
		}
	}
}

func TestHubsWithStatsConcurrentCallers(t *testing.T) {
	env := setupHubFlowTest(t, hubFlowTestOptions{})
	env.createHub(t, "WYD", "Wayanad", constants.HubRoleBoth, 0)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stats, err := env.query.HubsWithStats(context.Background())
			if err == nil && len(stats) != 1 {
				t.Errorf("unexpected stats: %+v", stats)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent stats failed: %v", err)
		}
	}
}

func TestListReadyForPickupScopesManagers(t *testing.T) {
	env := setupHubFlowTest(t, hubFlowTestOptions{})
	admin := NewActor(1, constants.RoleAdmin)
	manager := NewActor(15, constants.RoleHubManager)
	hub := env.createHub(t, "PTA", "Pathanamthitta", constants.HubRoleBoth, manager.ID)
	order := env.createOrder(t, admin, 92, "Pathanamthitta")
	advanceToCustomerHub(t, env, order.ID, hub.ID, admin)

	orders, total, err := env.query.ListReadyForPickup(hub.ID, manager, 1, 20)
	if err != nil || total != 1 || orders[0].ID != order.ID {
		t.Fatalf("unexpected ready list: total=%d err=%v", total, err)
	}
	if _, _, err := env.query.ListReadyForPickup(hub.ID, NewActor(16, constants.RoleHubManager), 1, 20); err != ErrForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, _, err := env.query.ListReadyForPickup(999, admin, 1, 20); err != ErrHubNotFound {
		t.Fatalf("expected hub not found, got %v", err)
	}
}
