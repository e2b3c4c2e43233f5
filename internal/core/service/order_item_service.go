package service

import (
	"context"
	"fmt"

	"github.com/qualstore/store-backend/internal/core/domain"
	"github.com/qualstore/store-backend/internal/port"
)

// OrderItemService mutates line items. Every quantity change is mediated by
// the StockLedger inside the same transaction, so an item never exists
// without its reservation and a reservation never outlives its item.
type OrderItemService struct {
	ledger *StockLedger
}

func NewOrderItemService(ledger *StockLedger) *OrderItemService {
	return &OrderItemService{ledger: ledger}
}

// AddItem reserves stock and attaches a new line item to the order. On
// insufficient stock no item is created and the ledger error is returned
// untouched.
func (s *OrderItemService) AddItem(ctx context.Context, orderID, productID int64, quantity int) (*domain.OrderItem, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", domain.ErrValidation, quantity)
	}

	var item *domain.OrderItem
	err := s.ledger.RunInTx(ctx, func(tx port.StoreTx) error {
		order, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("%w: order %d", domain.ErrNotFound, orderID)
		}
		if !order.Status.Mutable() {
			return fmt.Errorf("%w: order %d is %s", domain.ErrInvalidState, orderID, order.Status)
		}

		if _, err := s.ledger.Reserve(ctx, tx, productID, quantity); err != nil {
			return err
		}

		item = &domain.OrderItem{OrderID: orderID, ProductID: productID, Quantity: quantity}
		id, err := tx.InsertOrderItem(ctx, item)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
		item.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ModifyQuantity moves an item to a new positive quantity. Setting a quantity
// to zero must go through DeleteItem instead; a zero-quantity item is
// unrepresentable.
func (s *OrderItemService) ModifyQuantity(ctx context.Context, itemID int64, newQuantity int) (*domain.OrderItem, error) {
	if newQuantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d (delete the item instead)",
			domain.ErrValidation, newQuantity)
	}

	var item *domain.OrderItem
	err := s.ledger.RunInTx(ctx, func(tx port.StoreTx) error {
		var err error
		item, err = s.mutableItem(ctx, tx, itemID)
		if err != nil {
			return err
		}

		delta := newQuantity - item.Quantity
		if err := s.ledger.Adjust(ctx, tx, item.ProductID, delta); err != nil {
			return err
		}
		if err := tx.UpdateOrderItemQuantity(ctx, itemID, newQuantity); err != nil {
			return fmt.Errorf("update quantity: %w", err)
		}
		item.Quantity = newQuantity
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem releases the item's reservation and removes it from its order.
func (s *OrderItemService) DeleteItem(ctx context.Context, itemID int64) error {
	return s.ledger.RunInTx(ctx, func(tx port.StoreTx) error {
		item, err := s.mutableItem(ctx, tx, itemID)
		if err != nil {
			return err
		}

		if _, err := s.ledger.Release(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
		if err := tx.DeleteOrderItem(ctx, itemID); err != nil {
			return fmt.Errorf("delete order item: %w", err)
		}
		return nil
	})
}

// mutableItem loads the item and verifies its owning order still accepts item
// mutations.
func (s *OrderItemService) mutableItem(ctx context.Context, tx port.StoreTx, itemID int64) (*domain.OrderItem, error) {
	item, err := tx.GetOrderItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: order item %d", domain.ErrNotFound, itemID)
	}

	order, err := tx.GetOrder(ctx, item.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: order %d", domain.ErrNotFound, item.OrderID)
	}
	if !order.Status.Mutable() {
		return nil, fmt.Errorf("%w: order %d is %s", domain.ErrInvalidState, order.ID, order.Status)
	}
	return item, nil
}
