package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qualstore/store-backend/internal/core/domain"
	"github.com/qualstore/store-backend/internal/port"
)

// ProductService is the catalog. Stock is written here exactly once, at
// creation; afterwards only the StockLedger moves it.
type ProductService struct {
	repo   port.DatabaseRepository
	cache  port.CacheRepository
	logger *zap.Logger
}

func NewProductService(repo port.DatabaseRepository, cache port.CacheRepository, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{repo: repo, cache: cache, logger: logger}
}

func (s *ProductService) CreateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("%w: product name is required", domain.ErrValidation)
	}
	if p.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", domain.ErrValidation)
	}
	if p.UnitsInStock < 0 {
		return nil, fmt.Errorf("%w: units in stock must not be negative", domain.ErrValidation)
	}

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	id, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	p.ID = id

	if s.cache != nil {
		if err := s.cache.SetStock(ctx, p.ID, p.UnitsInStock); err != nil {
			s.logger.Warn("failed to seed stock cache", zap.Int64("product_id", p.ID), zap.Error(err))
		}
	}
	return p, nil
}

func (s *ProductService) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: product %d", domain.ErrNotFound, productID)
	}
	return p, nil
}

func (s *ProductService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

// GetStock returns a stock snapshot, served from cache when possible. The
// snapshot may lag the ledger by the cache TTL; reservations never consult it.
func (s *ProductService) GetStock(ctx context.Context, productID int64) (int64, error) {
	if s.cache != nil {
		stock, ok, err := s.cache.GetStock(ctx, productID)
		if err != nil {
			s.logger.Warn("stock cache read failed", zap.Int64("product_id", productID), zap.Error(err))
		} else if ok {
			return stock, nil
		}
	}

	p, err := s.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		if err := s.cache.SetStock(ctx, productID, p.UnitsInStock); err != nil {
			s.logger.Warn("stock cache write failed", zap.Int64("product_id", productID), zap.Error(err))
		}
	}
	return p.UnitsInStock, nil
}
