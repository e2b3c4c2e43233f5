package service

import (
	"context"
	"errors"
	"testing"

	"github.com/qualstore/store-backend/internal/adapter/storage"
	"github.com/qualstore/store-backend/internal/core/domain"
)

func TestCreateProduct_Validation(t *testing.T) {
	repo := storage.NewMemoryAdapter()
	svc := NewProductService(repo, nil, nil)

	cases := []domain.Product{
		{Name: "", Price: 1},
		{Name: "   ", Price: 1},
		{Name: "ok", Price: -1},
		{Name: "ok", Price: 1, UnitsInStock: -5},
	}
	for _, p := range cases {
		if _, err := svc.CreateProduct(context.Background(), &p); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("%+v: expected ErrValidation, got %v", p, err)
		}
	}
}

func TestCreateProduct_SeedsCache(t *testing.T) {
	repo := storage.NewMemoryAdapter()
	cache := newFakeCache()
	svc := NewProductService(repo, cache, nil)

	p, err := svc.CreateProduct(context.Background(), &domain.Product{Name: "keyboard", Price: 59.90, UnitsInStock: 25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == 0 {
		t.Error("expected a non-zero product id")
	}
	if stock, ok, _ := cache.GetStock(context.Background(), p.ID); !ok || stock != 25 {
		t.Errorf("expected cached stock 25, got %d (hit=%v)", stock, ok)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	repo := storage.NewMemoryAdapter()
	svc := NewProductService(repo, nil, nil)

	if _, err := svc.GetProduct(context.Background(), 999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetStock_CacheMissFallsBackToStore(t *testing.T) {
	repo := storage.NewMemoryAdapter()
	cache := newFakeCache()
	svc := NewProductService(repo, cache, nil)
	productID := seedProduct(t, repo, 7)

	stock, err := svc.GetStock(context.Background(), productID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stock != 7 {
		t.Errorf("expected stock 7, got %d", stock)
	}
	// miss populates the cache
	if cached, ok, _ := cache.GetStock(context.Background(), productID); !ok || cached != 7 {
		t.Errorf("expected cache to hold 7, got %d (hit=%v)", cached, ok)
	}
}

func TestGetStock_ServesSnapshotFromCache(t *testing.T) {
	repo := storage.NewMemoryAdapter()
	cache := newFakeCache()
	svc := NewProductService(repo, cache, nil)
	productID := seedProduct(t, repo, 7)

	cache.SetStock(context.Background(), productID, 5)

	stock, err := svc.GetStock(context.Background(), productID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// snapshot wins over the store until it expires
	if stock != 5 {
		t.Errorf("expected cached snapshot 5, got %d", stock)
	}
}
