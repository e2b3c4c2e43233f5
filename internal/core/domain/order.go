package domain

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusActive    OrderStatus = "ACTIVE"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// transitions is the single source of truth for the status state machine.
// Anything not listed here is rejected.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusActive:  {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped: {OrderStatusDelivered},
}

// ParseOrderStatus maps a wire value to an OrderStatus. Matching is
// case-sensitive; unrecognized values never reach the core.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusActive, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return OrderStatus(s), nil
	}
	return "", fmt.Errorf("%w: unknown order status %q", ErrValidation, s)
}

// CanTransitionTo reports whether the status change is in the transition table.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s OrderStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// Mutable reports whether the order's item set may still change.
// Quantities are frozen the moment the order leaves ACTIVE.
func (s OrderStatus) Mutable() bool {
	return s == OrderStatusActive
}

// OrderItem is a line item. It is owned by exactly one Order; ProductID is a
// lookup key only, never an ownership edge.
type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
}

type Order struct {
	ID            int64
	UserID        int64
	Status        OrderStatus
	DeliveryPrice float64
	StartDate     time.Time
	DeliveryDate  *time.Time
	Items         []OrderItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
