package port

import "context"

type CacheRepository interface {
	// GetStock returns a cached stock snapshot; ok is false on a miss.
	GetStock(ctx context.Context, productID int64) (stock int64, ok bool, err error)

	// SetStock caches a stock snapshot with a short TTL. Snapshots may lag
	// the ledger by up to the TTL; the store stays authoritative.
	SetStock(ctx context.Context, productID, stock int64) error

	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)
}
