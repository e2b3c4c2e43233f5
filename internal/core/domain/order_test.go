package domain

import (
	"errors"
	"testing"
)

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusActive, OrderStatusShipped, true},
		{OrderStatusActive, OrderStatusCancelled, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusActive, OrderStatusDelivered, false},
		{OrderStatusActive, OrderStatusActive, false},
		{OrderStatusShipped, OrderStatusActive, false},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusActive, false},
		{OrderStatusDelivered, OrderStatusShipped, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusActive, false},
		{OrderStatusCancelled, OrderStatusShipped, false},
	}

	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.allowed {
			t.Errorf("%s -> %s: expected allowed=%v, got %v", c.from, c.to, c.allowed, got)
		}
	}
}

func TestTerminal(t *testing.T) {
	if OrderStatusActive.Terminal() {
		t.Error("ACTIVE must not be terminal")
	}
	if OrderStatusShipped.Terminal() {
		t.Error("SHIPPED must not be terminal")
	}
	if !OrderStatusDelivered.Terminal() {
		t.Error("DELIVERED must be terminal")
	}
	if !OrderStatusCancelled.Terminal() {
		t.Error("CANCELLED must be terminal")
	}
}

func TestMutable(t *testing.T) {
	if !OrderStatusActive.Mutable() {
		t.Error("ACTIVE order items must be mutable")
	}
	for _, s := range []OrderStatus{OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled} {
		if s.Mutable() {
			t.Errorf("%s order items must be immutable", s)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	for _, s := range []string{"ACTIVE", "SHIPPED", "DELIVERED", "CANCELLED"} {
		status, err := ParseOrderStatus(s)
		if err != nil {
			t.Errorf("expected %q to parse, got error: %v", s, err)
		}
		if string(status) != s {
			t.Errorf("expected %q, got %q", s, status)
		}
	}

	// matching is case-sensitive
	for _, s := range []string{"active", "Shipped", "delivered", "", "REFUNDED"} {
		if _, err := ParseOrderStatus(s); !errors.Is(err, ErrValidation) {
			t.Errorf("expected ErrValidation for %q, got %v", s, err)
		}
	}
}
