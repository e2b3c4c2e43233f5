package port

import (
	"context"
	"time"

	"github.com/qualstore/store-backend/internal/core/domain"
)

// OrderSortColumns whitelists the sort keys accepted by paginated order
// listings and maps them to storage column names.
var OrderSortColumns = map[string]string{
	"id":            "id",
	"status":        "status",
	"startDate":     "start_date",
	"deliveryPrice": "delivery_price",
}

type PageRequest struct {
	Number int // zero-based
	Size   int
	SortBy string
	UserID int64 // 0 means all users
}

type OrderPage struct {
	Content       []domain.Order
	TotalElements int64
	TotalPages    int64
	Number        int
	Size          int
}

// StoreTx is a transaction-scoped handle. All mutations issued through one
// StoreTx commit or roll back together. Stock writes issued through it act on
// a single row and are serialized by the store (row lock or version check).
type StoreTx interface {
	GetProduct(ctx context.Context, productID int64) (*domain.Product, error)

	// DecrementStock atomically decrements units_in_stock by qty, guarded by
	// units_in_stock >= qty. Returns the new count and whether the decrement
	// applied; applied == false means the guard failed or the row is absent.
	DecrementStock(ctx context.Context, productID, qty int64) (int64, bool, error)

	// IncrementStock atomically increments units_in_stock by qty. Returns the
	// new count and whether the row exists.
	IncrementStock(ctx context.Context, productID, qty int64) (int64, bool, error)

	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus, deliveryDate *time.Time) error

	InsertOrderItem(ctx context.Context, item *domain.OrderItem) (int64, error)
	GetOrderItem(ctx context.Context, itemID int64) (*domain.OrderItem, error)
	UpdateOrderItemQuantity(ctx context.Context, itemID int64, quantity int) error
	DeleteOrderItem(ctx context.Context, itemID int64) error

	// DeleteOrder removes the order and cascades to its items.
	DeleteOrder(ctx context.Context, orderID int64) error
}

// DatabaseRepository is the persistence collaborator. Implementations must
// make WithinTx atomic: the closure's effects are all-or-nothing, and a
// retryable conflict (deadlock, lock-wait timeout, stale version) surfaces as
// domain.ErrConflict so the caller can retry.
type DatabaseRepository interface {
	WithinTx(ctx context.Context, fn func(tx StoreTx) error) error

	CreateProduct(ctx context.Context, p *domain.Product) (int64, error)
	GetProduct(ctx context.Context, productID int64) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)

	CreateOrder(ctx context.Context, o *domain.Order) (int64, error)
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)

	// ListOrdersPaginated returns one page plus the total count, both computed
	// against the same predicate in one consistent read.
	ListOrdersPaginated(ctx context.Context, req PageRequest) ([]domain.Order, int64, error)
}
