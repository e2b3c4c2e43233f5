package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/qualstore/store-backend/internal/core/domain"
	"github.com/qualstore/store-backend/internal/port"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/qualstore?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	ensureSchema(t, db)
	return db
}

func ensureSchema(t *testing.T, db *sql.DB) {
	t.Helper()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL,
			price DOUBLE NOT NULL,
			discount_percentage DOUBLE NOT NULL DEFAULT 0,
			units_in_stock BIGINT NOT NULL,
			version BIGINT NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			status VARCHAR(16) NOT NULL,
			delivery_price DOUBLE NOT NULL DEFAULT 0,
			start_date DATETIME NOT NULL,
			delivery_date DATETIME NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			order_id BIGINT NOT NULL,
			product_id BIGINT NOT NULL,
			quantity INT NOT NULL,
			FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE,
			FOREIGN KEY (product_id) REFERENCES products(id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("schema setup failed: %v", err)
		}
	}
}

func mysqlSeedProduct(t *testing.T, adapter *MySQLAdapter, stock int64) int64 {
	t.Helper()
	now := time.Now()
	id, err := adapter.CreateProduct(context.Background(), &domain.Product{
		Name: "test-product", Description: "test", Price: 9.99,
		UnitsInStock: stock, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return id
}

func TestMySQLDecrementStock(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	adapter := NewMySQLAdapter(db)
	productID := mysqlSeedProduct(t, adapter, 10)

	err := adapter.WithinTx(context.Background(), func(tx port.StoreTx) error {
		stock, ok, err := tx.DecrementStock(context.Background(), productID, 4)
		if err != nil {
			return err
		}
		if !ok || stock != 6 {
			t.Errorf("expected decrement to 6, got %d (ok=%v)", stock, ok)
		}

		// guard rejects over-decrement inside the same tx
		if _, ok, err := tx.DecrementStock(context.Background(), productID, 7); err != nil {
			return err
		} else if ok {
			t.Error("expected guard to reject over-decrement")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, err := adapter.GetProduct(context.Background(), productID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if p.UnitsInStock != 6 {
		t.Errorf("expected committed stock 6, got %d", p.UnitsInStock)
	}
	if p.Version == 0 {
		t.Error("expected version bump on stock write")
	}
}

func TestMySQLWithinTx_RollsBackOnError(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	adapter := NewMySQLAdapter(db)
	productID := mysqlSeedProduct(t, adapter, 10)
	boom := errors.New("boom")

	err := adapter.WithinTx(context.Background(), func(tx port.StoreTx) error {
		if _, ok, err := tx.DecrementStock(context.Background(), productID, 5); err != nil || !ok {
			t.Fatalf("decrement failed: ok=%v err=%v", ok, err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	p, _ := adapter.GetProduct(context.Background(), productID)
	if p.UnitsInStock != 10 {
		t.Errorf("expected rollback to stock 10, got %d", p.UnitsInStock)
	}
}

func TestMySQLOrderLifecycle(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	productID := mysqlSeedProduct(t, adapter, 10)

	now := time.Now().Truncate(time.Second)
	orderID, err := adapter.CreateOrder(ctx, &domain.Order{
		UserID: 7, Status: domain.OrderStatusActive, DeliveryPrice: 4.99,
		StartDate: now, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	err = adapter.WithinTx(ctx, func(tx port.StoreTx) error {
		if _, ok, err := tx.DecrementStock(ctx, productID, 2); err != nil || !ok {
			t.Fatalf("decrement failed: ok=%v err=%v", ok, err)
		}
		_, err := tx.InsertOrderItem(ctx, &domain.OrderItem{OrderID: orderID, ProductID: productID, Quantity: 2})
		return err
	})
	if err != nil {
		t.Fatalf("add item tx: %v", err)
	}

	order, err := adapter.GetOrder(ctx, orderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order == nil || len(order.Items) != 1 {
		t.Fatalf("expected order with one item, got %+v", order)
	}
	if order.DeliveryDate != nil {
		t.Errorf("expected no delivery date yet, got %v", order.DeliveryDate)
	}

	delivered := time.Now().Truncate(time.Second)
	err = adapter.WithinTx(ctx, func(tx port.StoreTx) error {
		return tx.UpdateOrderStatus(ctx, orderID, domain.OrderStatusDelivered, &delivered)
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	order, _ = adapter.GetOrder(ctx, orderID)
	if order.Status != domain.OrderStatusDelivered || order.DeliveryDate == nil {
		t.Errorf("expected delivered order with date, got %+v", order)
	}

	// cascade delete
	itemID := order.Items[0].ID
	err = adapter.WithinTx(ctx, func(tx port.StoreTx) error {
		return tx.DeleteOrder(ctx, orderID)
	})
	if err != nil {
		t.Fatalf("delete order: %v", err)
	}
	err = adapter.WithinTx(ctx, func(tx port.StoreTx) error {
		item, err := tx.GetOrderItem(ctx, itemID)
		if err != nil {
			return err
		}
		if item != nil {
			t.Errorf("expected item cascade-deleted, got %+v", item)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMySQLListOrdersPaginated(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	userID := time.Now().UnixNano() // unique per run, filters out other tests' rows
	now := time.Now().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		if _, err := adapter.CreateOrder(ctx, &domain.Order{
			UserID: userID, Status: domain.OrderStatusActive, DeliveryPrice: float64(i),
			StartDate: now, CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			t.Fatalf("create order: %v", err)
		}
	}

	orders, total, err := adapter.ListOrdersPaginated(ctx, port.PageRequest{
		Number: 1, Size: 2, SortBy: "id", UserID: userID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 5 {
		t.Errorf("expected total 5, got %d", total)
	}
	if len(orders) != 2 {
		t.Errorf("expected 2 orders on page 1, got %d", len(orders))
	}
}
