package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/qualstore/store-backend/internal/core/domain"
	"github.com/qualstore/store-backend/internal/port"
)

// MySQL error numbers for retryable conflicts.
const (
	erLockDeadlock    = 1213
	erLockWaitTimeout = 1205
)

// querier is satisfied by both *sql.DB and *sql.Tx, so the same query code
// serves transactional and plain reads.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// WithinTx runs fn in one transaction. InnoDB serializes the conditional
// stock updates on row locks; deadlocks and lock-wait timeouts come back as
// domain.ErrConflict so the service layer can retry the whole closure.
func (m *MySQLAdapter) WithinTx(ctx context.Context, fn func(tx port.StoreTx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&mysqlTx{q: tx}); err != nil {
		return classifyConflict(err)
	}
	if err := tx.Commit(); err != nil {
		return classifyConflict(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func classifyConflict(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && (me.Number == erLockDeadlock || me.Number == erLockWaitTimeout) {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	return err
}

func (m *MySQLAdapter) CreateProduct(ctx context.Context, p *domain.Product) (int64, error) {
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO products (name, description, price, discount_percentage, units_in_stock, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		p.Name, p.Description, p.Price, p.DiscountPercentage, p.UnitsInStock,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert product: %w", err)
	}
	return result.LastInsertId()
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	return getProduct(ctx, m.db, productID)
}

func (m *MySQLAdapter) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name, description, price, discount_percentage, units_in_stock, version, created_at, updated_at
		FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.DiscountPercentage,
			&p.UnitsInStock, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) CreateOrder(ctx context.Context, o *domain.Order) (int64, error) {
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO orders (user_id, status, delivery_price, start_date, delivery_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.UserID, o.Status, o.DeliveryPrice, o.StartDate, o.DeliveryDate,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	return result.LastInsertId()
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	return getOrder(ctx, m.db, orderID, false)
}

func (m *MySQLAdapter) ListOrdersPaginated(ctx context.Context, req port.PageRequest) ([]domain.Order, int64, error) {
	column, ok := port.OrderSortColumns[req.SortBy]
	if !ok {
		return nil, 0, fmt.Errorf("%w: unknown sort key %q", domain.ErrValidation, req.SortBy)
	}
	if req.Number < 0 || req.Size <= 0 {
		return nil, 0, fmt.Errorf("%w: page number %d, size %d", domain.ErrValidation, req.Number, req.Size)
	}

	// One read transaction so the page and the count see the same rows.
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	where := ""
	args := []any{}
	if req.UserID != 0 {
		where = "WHERE user_id = ?"
		args = append(args, req.UserID)
	}

	var total int64
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, status, delivery_price, start_date, delivery_date, created_at, updated_at
		FROM orders %s ORDER BY %s, id LIMIT ? OFFSET ?`, where, column)
	args = append(args, req.Size, req.Number*req.Size)

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.DeliveryPrice,
			&o.StartDate, &o.DeliveryDate, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range orders {
		items, err := listOrderItems(ctx, tx, orders[i].ID, false)
		if err != nil {
			return nil, 0, err
		}
		orders[i].Items = items
	}
	return orders, total, tx.Commit()
}

// mysqlTx implements port.StoreTx over an open transaction.
type mysqlTx struct {
	q querier
}

func (t *mysqlTx) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	return getProduct(ctx, t.q, productID)
}

func (t *mysqlTx) DecrementStock(ctx context.Context, productID, qty int64) (int64, bool, error) {
	result, err := t.q.ExecContext(ctx, `
		UPDATE products
		SET units_in_stock = units_in_stock - ?, version = version + 1, updated_at = NOW()
		WHERE id = ? AND units_in_stock >= ?`,
		qty, productID, qty,
	)
	if err != nil {
		return 0, false, fmt.Errorf("decrement stock: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return 0, false, nil
	}

	var stock int64
	if err := t.q.QueryRowContext(ctx,
		`SELECT units_in_stock FROM products WHERE id = ?`, productID).Scan(&stock); err != nil {
		return 0, false, fmt.Errorf("read stock: %w", err)
	}
	return stock, true, nil
}

func (t *mysqlTx) IncrementStock(ctx context.Context, productID, qty int64) (int64, bool, error) {
	result, err := t.q.ExecContext(ctx, `
		UPDATE products
		SET units_in_stock = units_in_stock + ?, version = version + 1, updated_at = NOW()
		WHERE id = ?`,
		qty, productID,
	)
	if err != nil {
		return 0, false, fmt.Errorf("increment stock: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return 0, false, nil
	}

	var stock int64
	if err := t.q.QueryRowContext(ctx,
		`SELECT units_in_stock FROM products WHERE id = ?`, productID).Scan(&stock); err != nil {
		return 0, false, fmt.Errorf("read stock: %w", err)
	}
	return stock, true, nil
}

// GetOrder takes the order row lock, and with it the whole aggregate:
// every item and status mutation loads the order through here first, so
// concurrent transactions on one order serialize instead of acting on
// stale snapshot reads.
func (t *mysqlTx) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	return getOrder(ctx, t.q, orderID, true)
}

func (t *mysqlTx) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus, deliveryDate *time.Time) error {
	_, err := t.q.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, delivery_date = COALESCE(?, delivery_date), updated_at = NOW()
		WHERE id = ?`,
		status, deliveryDate, orderID,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

func (t *mysqlTx) InsertOrderItem(ctx context.Context, item *domain.OrderItem) (int64, error) {
	result, err := t.q.ExecContext(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity) VALUES (?, ?, ?)`,
		item.OrderID, item.ProductID, item.Quantity,
	)
	if err != nil {
		return 0, fmt.Errorf("insert order item: %w", err)
	}
	return result.LastInsertId()
}

func (t *mysqlTx) GetOrderItem(ctx context.Context, itemID int64) (*domain.OrderItem, error) {
	var it domain.OrderItem
	// locking read: the quantity seen here is the latest committed value,
	// not the transaction's snapshot, so a delta computed from it is safe
	err := t.q.QueryRowContext(ctx, `
		SELECT id, order_id, product_id, quantity FROM order_items WHERE id = ? FOR UPDATE`, itemID,
	).Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order item: %w", err)
	}
	return &it, nil
}

func (t *mysqlTx) UpdateOrderItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	_, err := t.q.ExecContext(ctx,
		`UPDATE order_items SET quantity = ? WHERE id = ?`, quantity, itemID)
	if err != nil {
		return fmt.Errorf("update item quantity: %w", err)
	}
	return nil
}

func (t *mysqlTx) DeleteOrderItem(ctx context.Context, itemID int64) error {
	_, err := t.q.ExecContext(ctx, `DELETE FROM order_items WHERE id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("delete order item: %w", err)
	}
	return nil
}

func (t *mysqlTx) DeleteOrder(ctx context.Context, orderID int64) error {
	// order_items go with it via ON DELETE CASCADE
	_, err := t.q.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, orderID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

// shared query helpers

func getProduct(ctx context.Context, q querier, productID int64) (*domain.Product, error) {
	var p domain.Product
	err := q.QueryRowContext(ctx, `
		SELECT id, name, description, price, discount_percentage, units_in_stock, version, created_at, updated_at
		FROM products WHERE id = ?`, productID,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.DiscountPercentage,
		&p.UnitsInStock, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

// getOrder loads the order and its items. With lock set the rows are read
// FOR UPDATE, which both blocks concurrent writers and returns the latest
// committed values rather than the transaction's snapshot.
func getOrder(ctx context.Context, q querier, orderID int64, lock bool) (*domain.Order, error) {
	suffix := ""
	if lock {
		suffix = " FOR UPDATE"
	}

	var o domain.Order
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, status, delivery_price, start_date, delivery_date, created_at, updated_at
		FROM orders WHERE id = ?`+suffix, orderID,
	).Scan(&o.ID, &o.UserID, &o.Status, &o.DeliveryPrice,
		&o.StartDate, &o.DeliveryDate, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	items, err := listOrderItems(ctx, q, orderID, lock)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func listOrderItems(ctx context.Context, q querier, orderID int64, lock bool) ([]domain.OrderItem, error) {
	suffix := ""
	if lock {
		suffix = " FOR UPDATE"
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity FROM order_items WHERE order_id = ? ORDER BY id`+suffix, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
