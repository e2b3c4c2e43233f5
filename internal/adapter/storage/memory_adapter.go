package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/qualstore/store-backend/internal/core/domain"
	"github.com/qualstore/store-backend/internal/port"
)

// MemoryAdapter is an in-memory DatabaseRepository. A single mutex serializes
// transactions, which makes every WithinTx trivially serializable; a snapshot
// taken before the closure runs provides rollback. It backs unit tests and
// local runs without MySQL.
type MemoryAdapter struct {
	mu       sync.Mutex
	products map[int64]*domain.Product
	orders   map[int64]*domain.Order
	items    map[int64]*domain.OrderItem

	nextProductID int64
	nextOrderID   int64
	nextItemID    int64
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		products: make(map[int64]*domain.Product),
		orders:   make(map[int64]*domain.Order),
		items:    make(map[int64]*domain.OrderItem),
	}
}

func (m *MemoryAdapter) WithinTx(ctx context.Context, fn func(tx port.StoreTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	products, orders, items := m.snapshot()
	if err := fn(&memoryTx{m: m}); err != nil {
		m.products, m.orders, m.items = products, orders, items
		return err
	}
	return nil
}

func (m *MemoryAdapter) snapshot() (map[int64]*domain.Product, map[int64]*domain.Order, map[int64]*domain.OrderItem) {
	products := make(map[int64]*domain.Product, len(m.products))
	for id, p := range m.products {
		cp := *p
		products[id] = &cp
	}
	orders := make(map[int64]*domain.Order, len(m.orders))
	for id, o := range m.orders {
		cp := *o
		orders[id] = &cp
	}
	items := make(map[int64]*domain.OrderItem, len(m.items))
	for id, it := range m.items {
		cp := *it
		items[id] = &cp
	}
	return products, orders, items
}

func (m *MemoryAdapter) CreateProduct(ctx context.Context, p *domain.Product) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextProductID++
	cp := *p
	cp.ID = m.nextProductID
	m.products[cp.ID] = &cp
	return cp.ID, nil
}

func (m *MemoryAdapter) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getProduct(productID), nil
}

func (m *MemoryAdapter) ListProducts(ctx context.Context) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryAdapter) CreateOrder(ctx context.Context, o *domain.Order) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextOrderID++
	cp := *o
	cp.ID = m.nextOrderID
	cp.Items = nil
	m.orders[cp.ID] = &cp
	return cp.ID, nil
}

func (m *MemoryAdapter) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrder(orderID), nil
}

func (m *MemoryAdapter) ListOrdersPaginated(ctx context.Context, req port.PageRequest) ([]domain.Order, int64, error) {
	if req.Number < 0 || req.Size <= 0 {
		return nil, 0, fmt.Errorf("%w: page number %d, size %d", domain.ErrValidation, req.Number, req.Size)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make([]*domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if req.UserID == 0 || o.UserID == req.UserID {
			matched = append(matched, o)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch req.SortBy {
		case "status":
			if a.Status != b.Status {
				return a.Status < b.Status
			}
		case "startDate":
			if !a.StartDate.Equal(b.StartDate) {
				return a.StartDate.Before(b.StartDate)
			}
		case "deliveryPrice":
			if a.DeliveryPrice != b.DeliveryPrice {
				return a.DeliveryPrice < b.DeliveryPrice
			}
		}
		return a.ID < b.ID
	})

	total := int64(len(matched))
	start := req.Number * req.Size
	if start >= len(matched) {
		return []domain.Order{}, total, nil
	}
	end := start + req.Size
	if end > len(matched) {
		end = len(matched)
	}

	page := make([]domain.Order, 0, end-start)
	for _, o := range matched[start:end] {
		page = append(page, *m.getOrder(o.ID))
	}
	return page, total, nil
}

// lock-free internals, callers hold m.mu

func (m *MemoryAdapter) getProduct(productID int64) *domain.Product {
	p, ok := m.products[productID]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (m *MemoryAdapter) getOrder(orderID int64) *domain.Order {
	o, ok := m.orders[orderID]
	if !ok {
		return nil
	}
	cp := *o
	cp.Items = nil
	for _, it := range m.items {
		if it.OrderID == orderID {
			cp.Items = append(cp.Items, *it)
		}
	}
	sort.Slice(cp.Items, func(i, j int) bool { return cp.Items[i].ID < cp.Items[j].ID })
	return &cp
}

// memoryTx operates on the adapter's maps under the lock held by WithinTx.
type memoryTx struct {
	m *MemoryAdapter
}

func (t *memoryTx) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	return t.m.getProduct(productID), nil
}

func (t *memoryTx) DecrementStock(ctx context.Context, productID, qty int64) (int64, bool, error) {
	p, ok := t.m.products[productID]
	if !ok || p.UnitsInStock < qty {
		return 0, false, nil
	}
	p.UnitsInStock -= qty
	p.Version++
	return p.UnitsInStock, true, nil
}

func (t *memoryTx) IncrementStock(ctx context.Context, productID, qty int64) (int64, bool, error) {
	p, ok := t.m.products[productID]
	if !ok {
		return 0, false, nil
	}
	p.UnitsInStock += qty
	p.Version++
	return p.UnitsInStock, true, nil
}

func (t *memoryTx) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	return t.m.getOrder(orderID), nil
}

func (t *memoryTx) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus, deliveryDate *time.Time) error {
	o, ok := t.m.orders[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	o.Status = status
	if deliveryDate != nil {
		o.DeliveryDate = deliveryDate
	}
	o.UpdatedAt = time.Now()
	return nil
}

func (t *memoryTx) InsertOrderItem(ctx context.Context, item *domain.OrderItem) (int64, error) {
	if _, ok := t.m.orders[item.OrderID]; !ok {
		return 0, domain.ErrNotFound
	}
	t.m.nextItemID++
	cp := *item
	cp.ID = t.m.nextItemID
	t.m.items[cp.ID] = &cp
	return cp.ID, nil
}

func (t *memoryTx) GetOrderItem(ctx context.Context, itemID int64) (*domain.OrderItem, error) {
	it, ok := t.m.items[itemID]
	if !ok {
		return nil, nil
	}
	cp := *it
	return &cp, nil
}

func (t *memoryTx) UpdateOrderItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	it, ok := t.m.items[itemID]
	if !ok {
		return domain.ErrNotFound
	}
	it.Quantity = quantity
	return nil
}

func (t *memoryTx) DeleteOrderItem(ctx context.Context, itemID int64) error {
	if _, ok := t.m.items[itemID]; !ok {
		return domain.ErrNotFound
	}
	delete(t.m.items, itemID)
	return nil
}

func (t *memoryTx) DeleteOrder(ctx context.Context, orderID int64) error {
	if _, ok := t.m.orders[orderID]; !ok {
		return domain.ErrNotFound
	}
	delete(t.m.orders, orderID)
	for id, it := range t.m.items {
		if it.OrderID == orderID {
			delete(t.m.items, id)
		}
	}
	return nil
}
