package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/qualstore/store-backend/internal/core/domain"
	"github.com/qualstore/store-backend/internal/port"
)

func seedMemory(t *testing.T, m *MemoryAdapter, stock int64) int64 {
	t.Helper()
	id, err := m.CreateProduct(context.Background(), &domain.Product{
		Name: "p", Description: "d", Price: 1, UnitsInStock: stock,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return id
}

func TestMemoryWithinTx_RollsBackOnError(t *testing.T) {
	m := NewMemoryAdapter()
	productID := seedMemory(t, m, 10)
	boom := errors.New("boom")

	err := m.WithinTx(context.Background(), func(tx port.StoreTx) error {
		if _, ok, err := tx.DecrementStock(context.Background(), productID, 4); err != nil || !ok {
			t.Fatalf("decrement failed: ok=%v err=%v", ok, err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	p, _ := m.GetProduct(context.Background(), productID)
	if p.UnitsInStock != 10 {
		t.Errorf("expected rollback to stock 10, got %d", p.UnitsInStock)
	}
}

func TestMemoryDecrementStock_Guard(t *testing.T) {
	m := NewMemoryAdapter()
	productID := seedMemory(t, m, 3)

	err := m.WithinTx(context.Background(), func(tx port.StoreTx) error {
		if _, ok, _ := tx.DecrementStock(context.Background(), productID, 5); ok {
			t.Error("expected guard to reject over-decrement")
		}
		if _, ok, _ := tx.DecrementStock(context.Background(), 999, 1); ok {
			t.Error("expected missing product to reject")
		}
		stock, ok, _ := tx.DecrementStock(context.Background(), productID, 3)
		if !ok || stock != 0 {
			t.Errorf("expected decrement to 0, got %d (ok=%v)", stock, ok)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMemoryDeleteOrder_CascadesItems(t *testing.T) {
	m := NewMemoryAdapter()
	productID := seedMemory(t, m, 10)

	now := time.Now()
	orderID, err := m.CreateOrder(context.Background(), &domain.Order{
		UserID: 1, Status: domain.OrderStatusActive, StartDate: now, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	var itemID int64
	err = m.WithinTx(context.Background(), func(tx port.StoreTx) error {
		var err error
		itemID, err = tx.InsertOrderItem(context.Background(), &domain.OrderItem{
			OrderID: orderID, ProductID: productID, Quantity: 2,
		})
		return err
	})
	if err != nil {
		t.Fatalf("insert item: %v", err)
	}

	err = m.WithinTx(context.Background(), func(tx port.StoreTx) error {
		return tx.DeleteOrder(context.Background(), orderID)
	})
	if err != nil {
		t.Fatalf("delete order: %v", err)
	}

	err = m.WithinTx(context.Background(), func(tx port.StoreTx) error {
		item, err := tx.GetOrderItem(context.Background(), itemID)
		if err != nil {
			return err
		}
		if item != nil {
			t.Errorf("expected item to be cascade-deleted, got %+v", item)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMemoryListOrdersPaginated(t *testing.T) {
	m := NewMemoryAdapter()
	now := time.Now()
	for i := 0; i < 5; i++ {
		userID := int64(1)
		if i%2 == 1 {
			userID = 2
		}
		if _, err := m.CreateOrder(context.Background(), &domain.Order{
			UserID: userID, Status: domain.OrderStatusActive,
			DeliveryPrice: float64(5 - i), StartDate: now, CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			t.Fatalf("create order: %v", err)
		}
	}

	orders, total, err := m.ListOrdersPaginated(context.Background(), port.PageRequest{
		Number: 0, Size: 3, SortBy: "deliveryPrice",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 5 {
		t.Errorf("expected total 5, got %d", total)
	}
	if len(orders) != 3 {
		t.Errorf("expected 3 orders, got %d", len(orders))
	}
	for i := 1; i < len(orders); i++ {
		if orders[i-1].DeliveryPrice > orders[i].DeliveryPrice {
			t.Errorf("expected ascending delivery price, got %v then %v",
				orders[i-1].DeliveryPrice, orders[i].DeliveryPrice)
		}
	}

	_, total, err = m.ListOrdersPaginated(context.Background(), port.PageRequest{
		Number: 0, Size: 10, SortBy: "id", UserID: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 orders for user 2, got %d", total)
	}
}

func TestMemoryListOrdersPaginated_RejectsBadPage(t *testing.T) {
	m := NewMemoryAdapter()
	now := time.Now()
	if _, err := m.CreateOrder(context.Background(), &domain.Order{
		UserID: 1, Status: domain.OrderStatusActive, StartDate: now, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("create order: %v", err)
	}

	for _, req := range []port.PageRequest{
		{Number: -1, Size: 3, SortBy: "id"},
		{Number: 0, Size: 0, SortBy: "id"},
		{Number: 0, Size: -2, SortBy: "id"},
	} {
		_, _, err := m.ListOrdersPaginated(context.Background(), req)
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("page=%d size=%d: expected ErrValidation, got %v", req.Number, req.Size, err)
		}
	}
}
