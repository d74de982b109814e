package postgres

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/bakery-pos/internal/domain"
)

func TestProductRepository_Integration_CreateAssignsIDsFrom1001(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewProductRepository(store)

	first, err := repo.Create(domain.Product{
		Name:     "Croissant",
		Category: "Pastries",
		Price:    decimal.RequireFromString("2.75"),
		Stock:    15,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID != 1001 {
		t.Fatalf("expected first id 1001, got %d", first.ID)
	}

	second, err := repo.Create(domain.Product{
		Name:     "Apple Pie",
		Category: "Pastries",
		Price:    decimal.RequireFromString("12.99"),
		Stock:    8,
	})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.ID != 1002 {
		t.Fatalf("expected second id 1002, got %d", second.ID)
	}
}

func TestProductRepository_Integration_AdjustStockGuardsZero(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewProductRepository(store)

	product, err := repo.Create(domain.Product{
		Name:     "Sourdough",
		Category: "Bread",
		Price:    decimal.RequireFromString("5.99"),
		Stock:    6,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := repo.AdjustStock(product.ID, -4)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if updated.Stock != 2 {
		t.Fatalf("expected stock 2, got %d", updated.Stock)
	}

	_, err = repo.AdjustStock(product.ID, -3)
	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Available != 2 || stockErr.Requested != 3 {
		t.Fatalf("unexpected error details: %+v", stockErr)
	}

	current, err := repo.Get(product.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.Stock != 2 {
		t.Fatalf("rejected decrement must not change stock, got %d", current.Stock)
	}
}

func TestProductRepository_Integration_QueriesAndRemove(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewProductRepository(store)

	seed := []domain.Product{
		{Name: "Whole Wheat Bread", Category: "Bread", Price: decimal.RequireFromString("4.50"), Stock: 12},
		{Name: "Sourdough", Category: "Bread", Price: decimal.RequireFromString("5.99"), Stock: 6},
		{Name: "Coffee", Category: "Drinks", Price: decimal.RequireFromString("2.99"), Stock: 3},
	}
	ids := make([]int64, 0, len(seed))
	for _, p := range seed {
		created, err := repo.Create(p)
		if err != nil {
			t.Fatalf("create %s: %v", p.Name, err)
		}
		ids = append(ids, created.ID)
	}

	bread, err := repo.ListByCategory("Bread")
	if err != nil {
		t.Fatalf("by category: %v", err)
	}
	if len(bread) != 2 {
		t.Fatalf("expected 2 bread products, got %d", len(bread))
	}

	low, err := repo.LowStock(domain.DefaultLowStockThreshold)
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(low) != 1 || low[0].Name != "Coffee" {
		t.Fatalf("expected only Coffee below threshold, got %+v", low)
	}

	if err := repo.Remove(ids[2]); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := repo.Get(ids[2]); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if err := repo.Remove(ids[2]); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound on double remove, got %v", err)
	}
}
