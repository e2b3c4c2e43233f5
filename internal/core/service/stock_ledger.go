package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/qualstore/store-backend/internal/core/domain"
	"github.com/qualstore/store-backend/internal/port"
)

// maxTxAttempts bounds retries of a conflicting transaction before the
// failure surfaces as domain.ErrContention.
const maxTxAttempts = 3

// StockLedger is the single writer of product stock. Every increment and
// decrement in the system goes through Reserve, Release or Adjust, always
// inside a transaction obtained from RunInTx so that stock movement and the
// item mutation that caused it commit or roll back together.
type StockLedger struct {
	repo port.DatabaseRepository
}

func NewStockLedger(repo port.DatabaseRepository) *StockLedger {
	return &StockLedger{repo: repo}
}

// RunInTx executes fn in one repository transaction, retrying on retryable
// conflicts up to maxTxAttempts before returning domain.ErrContention.
func (l *StockLedger) RunInTx(ctx context.Context, fn func(tx port.StoreTx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = l.repo.WithinTx(ctx, fn)
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("%w: gave up after %d attempts: %v", domain.ErrContention, maxTxAttempts, err)
}

// Reserve decrements the product's available stock by qty and returns the new
// count. The decrement is conditional on qty units being available, so two
// concurrent reservations that together exceed stock cannot both succeed.
func (l *StockLedger) Reserve(ctx context.Context, tx port.StoreTx, productID int64, qty int) (int64, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("%w: reserve quantity must be positive, got %d", domain.ErrValidation, qty)
	}

	remaining, applied, err := tx.DecrementStock(ctx, productID, int64(qty))
	if err != nil {
		return 0, fmt.Errorf("decrement stock: %w", err)
	}
	if applied {
		return remaining, nil
	}

	// Guard failed: distinguish a missing product from short stock.
	product, err := tx.GetProduct(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("load product %d: %w", productID, err)
	}
	if product == nil {
		return 0, fmt.Errorf("%w: product %d", domain.ErrNotFound, productID)
	}
	return 0, fmt.Errorf("%w: product %d has %d units, requested %d",
		domain.ErrInsufficientStock, productID, product.UnitsInStock, qty)
}

// Release returns qty units to the product's available stock. It never fails
// for a valid product id; releasing more than was reserved is a caller bug
// the ledger cannot detect, so callers must release each reservation exactly
// once.
func (l *StockLedger) Release(ctx context.Context, tx port.StoreTx, productID int64, qty int) (int64, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("%w: release quantity must be positive, got %d", domain.ErrValidation, qty)
	}

	stock, found, err := tx.IncrementStock(ctx, productID, int64(qty))
	if err != nil {
		return 0, fmt.Errorf("increment stock: %w", err)
	}
	if !found {
		return 0, fmt.Errorf("%w: product %d", domain.ErrNotFound, productID)
	}
	return stock, nil
}

// Adjust moves a committed reservation by delta in one serializable step, so
// there is no window where stock is double-counted between a release and a
// re-reserve. A zero delta is a no-op.
func (l *StockLedger) Adjust(ctx context.Context, tx port.StoreTx, productID int64, delta int) error {
	switch {
	case delta > 0:
		_, err := l.Reserve(ctx, tx, productID, delta)
		return err
	case delta < 0:
		_, err := l.Release(ctx, tx, productID, -delta)
		return err
	}
	return nil
}
