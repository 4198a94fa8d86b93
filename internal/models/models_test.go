package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/hubflow-next/internal/constants"
)

func TestOrderLocationTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderLocation
		want     bool
	}{
		{LocationAwaitingSellerHub, LocationAtSellerHub, true},
		{LocationAwaitingSellerHub, LocationInTransit, false},
		{LocationAtSellerHub, LocationInTransit, true},
		{LocationAtSellerHub, LocationCancelled, true},
		{LocationInTransit, LocationCancelled, false},
		{LocationInTransit, LocationAtCustomerHub, true},
		{LocationAtCustomerHub, LocationDelivered, true},
		{LocationDelivered, LocationAtCustomerHub, false},
		{LocationCancelled, LocationAtSellerHub, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: want %v got %v", tc.from, tc.to, tc.want, got)
		}
	}
	if !LocationDelivered.IsTerminal() || LocationAtCustomerHub.IsTerminal() {
		t.Fatalf("unexpected terminal classification")
	}
	if LocationAtSellerHub.IsApprovedStage() || !LocationInTransit.IsApprovedStage() {
		t.Fatalf("unexpected approved stage classification")
	}
}

func TestParseOrderLocation(t *testing.T) {
	loc, err := ParseOrderLocation("  AT_SELLER_HUB ")
	if err != nil || loc != LocationAtSellerHub {
		t.Fatalf("parse want at_seller_hub got %q err=%v", loc, err)
	}
	if _, err := ParseOrderLocation("lost"); !errors.Is(err, ErrInvalidOrderLocation) {
		t.Fatalf("expected ErrInvalidOrderLocation, got %v", err)
	}
}

func TestHubAvailability(t *testing.T) {
	hub := &Hub{Status: constants.HubStatusActive, Role: constants.HubRoleBoth, MaxOrders: 2, CurrentOrders: 1}
	if !hub.IsAvailable() || !hub.ServesSeller() || !hub.ServesCustomer() {
		t.Fatalf("expected active both-role hub with spare capacity to be available")
	}
	if got := hub.CapacityPercentage(); got != 50 {
		t.Fatalf("capacity percentage want 50 got %v", got)
	}
	hub.CurrentOrders = 2
	if hub.IsAvailable() {
		t.Fatalf("full hub should not be available")
	}
	hub.CurrentOrders = 0
	hub.Status = constants.HubStatusMaintenance
	if hub.IsAvailable() {
		t.Fatalf("hub under maintenance should not be available")
	}
	var missing *Hub
	if missing.IsAvailable() || missing.CapacityPercentage() != 0 {
		t.Fatalf("nil hub should be unavailable")
	}
	if NormalizeDistrict(" Ernakulam ") != "ernakulam" {
		t.Fatalf("district normalization mismatch")
	}
}

func TestMoneyArithmeticAndJSON(t *testing.T) {
	price, err := NewMoneyFromString("199.995")
	if err != nil {
		t.Fatalf("parse money failed: %v", err)
	}
	if price.String() != "200.00" {
		t.Fatalf("rounded price want 200.00 got %s", price)
	}
	total := price.MulInt(3).Add(Money{})
	if total.String() != "600.00" {
		t.Fatalf("line total want 600.00 got %s", total)
	}

	raw, err := json.Marshal(struct {
		Total Money `json:"total"`
	}{Total: total})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(raw) != `{"total":"600.00"}` {
		t.Fatalf("unexpected json %s", raw)
	}

	var decoded struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":"12.5","b":0.1}`), &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.A.String() != "12.50" || decoded.B.String() != "0.10" {
		t.Fatalf("unexpected decoded amounts %s %s", decoded.A, decoded.B)
	}
	if err := json.Unmarshal([]byte(`{"a":"abc"}`), &decoded); err == nil {
		t.Fatalf("expected error for invalid amount")
	}
}
