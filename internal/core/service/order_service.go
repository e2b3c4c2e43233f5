package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qualstore/store-backend/internal/core/domain"
	"github.com/qualstore/store-backend/internal/port"
)

var ErrDuplicateRequest = errors.New("duplicate request")

// OrderService owns order lifecycle and is the only writer of order status.
// Status transitions are checked against the domain transition table in
// exactly one place: UpdateStatus.
type OrderService struct {
	repo   port.DatabaseRepository
	ledger *StockLedger
	cache  port.CacheRepository
}

func NewOrderService(repo port.DatabaseRepository, ledger *StockLedger, cache port.CacheRepository) *OrderService {
	return &OrderService{repo: repo, ledger: ledger, cache: cache}
}

// CreateOrder creates an ACTIVE order with an empty item set. A non-empty
// requestID is checked against the idempotency cache; replays are rejected
// with ErrDuplicateRequest before any state is written.
func (s *OrderService) CreateOrder(ctx context.Context, userID int64, deliveryPrice float64, requestID string) (*domain.Order, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id must be positive", domain.ErrValidation)
	}
	if deliveryPrice < 0 {
		return nil, fmt.Errorf("%w: delivery price must not be negative", domain.ErrValidation)
	}

	if requestID != "" && s.cache != nil {
		ok, err := s.cache.SetIdempotency(ctx, "order:create:"+requestID)
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return nil, ErrDuplicateRequest
		}
	}

	now := time.Now()
	order := &domain.Order{
		UserID:        userID,
		Status:        domain.OrderStatusActive,
		DeliveryPrice: deliveryPrice,
		StartDate:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	id, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	order.ID = id
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: order %d", domain.ErrNotFound, orderID)
	}
	return order, nil
}

// UpdateStatus applies one transition from the table ACTIVE→SHIPPED,
// ACTIVE→CANCELLED, SHIPPED→DELIVERED. Cancellation releases every item's
// reservation in the same transaction that flips the status, restoring
// inventory to its pre-order state; SHIPPED and DELIVERED retain the
// reservation because the goods have left inventory for good.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, target domain.OrderStatus) (*domain.Order, error) {
	var updated *domain.Order
	err := s.ledger.RunInTx(ctx, func(tx port.StoreTx) error {
		order, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("%w: order %d", domain.ErrNotFound, orderID)
		}
		if !order.Status.CanTransitionTo(target) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, order.Status, target)
		}
		if len(order.Items) == 0 {
			return fmt.Errorf("%w: order %d has no items", domain.ErrInvalidTransition, orderID)
		}

		if target == domain.OrderStatusCancelled {
			for _, item := range order.Items {
				if _, err := s.ledger.Release(ctx, tx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}

		var deliveryDate *time.Time
		if target == domain.OrderStatusDelivered {
			now := time.Now()
			deliveryDate = &now
		}
		if err := tx.UpdateOrderStatus(ctx, orderID, target, deliveryDate); err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		order.Status = target
		order.DeliveryDate = deliveryDate
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteOrder releases every live reservation, then deletes the order and,
// by cascade, its items. A CANCELLED order released its stock already, so
// deleting one must not release again. DELIVERED orders cannot be deleted:
// shipped goods are not silently un-ordered.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID int64) error {
	return s.ledger.RunInTx(ctx, func(tx port.StoreTx) error {
		order, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("%w: order %d", domain.ErrNotFound, orderID)
		}
		if order.Status == domain.OrderStatusDelivered {
			return fmt.Errorf("%w: order %d is delivered", domain.ErrInvalidState, orderID)
		}

		if order.Status != domain.OrderStatusCancelled {
			for _, item := range order.Items {
				if _, err := s.ledger.Release(ctx, tx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}
		if err := tx.DeleteOrder(ctx, orderID); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		return nil
	})
}

// GetOrdersPaginated returns one page of orders plus totals computed from the
// same predicate, so content and counts stay consistent with each other even
// under concurrent writes.
func (s *OrderService) GetOrdersPaginated(ctx context.Context, req port.PageRequest) (*port.OrderPage, error) {
	if req.Number < 0 {
		return nil, fmt.Errorf("%w: page number must not be negative", domain.ErrValidation)
	}
	if req.Size <= 0 {
		return nil, fmt.Errorf("%w: page size must be positive", domain.ErrValidation)
	}
	if req.SortBy == "" {
		req.SortBy = "id"
	}
	if _, ok := port.OrderSortColumns[req.SortBy]; !ok {
		return nil, fmt.Errorf("%w: unknown sort key %q", domain.ErrValidation, req.SortBy)
	}

	orders, total, err := s.repo.ListOrdersPaginated(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	totalPages := total / int64(req.Size)
	if total%int64(req.Size) != 0 {
		totalPages++
	}
	return &port.OrderPage{
		Content:       orders,
		TotalElements: total,
		TotalPages:    totalPages,
		Number:        req.Number,
		Size:          req.Size,
	}, nil
}
