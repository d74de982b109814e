package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/bakery-pos/internal/domain"
)

func TestProductValidateInvariants(t *testing.T) {
	cases := []struct {
		name    string
		mut     func(p *domain.Product)
		wantErr bool
	}{
		{name: "valid", mut: func(p *domain.Product) {}},
		{name: "no name", mut: func(p *domain.Product) { p.Name = "" }, wantErr: true},
		{name: "no category", mut: func(p *domain.Product) { p.Category = "" }, wantErr: true},
		{name: "negative price", mut: func(p *domain.Product) { p.Price = decimal.RequireFromString("-0.01") }, wantErr: true},
		{name: "negative stock", mut: func(p *domain.Product) { p.Stock = -1 }, wantErr: true},
		{name: "zero price is fine", mut: func(p *domain.Product) { p.Price = decimal.Zero }},
		{name: "zero stock is fine", mut: func(p *domain.Product) { p.Stock = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			product := domain.Product{
				ID:       1001,
				Name:     "Croissant",
				Category: "Pastries",
				Price:    decimal.RequireFromString("2.75"),
				Stock:    15,
			}
			tc.mut(&product)

			errs := product.ValidateInvariants()
			if tc.wantErr && len(errs) == 0 {
				t.Fatal("expected validation errors, got none")
			}
			if !tc.wantErr && len(errs) != 0 {
				t.Fatalf("expected no validation errors, got %v", errs)
			}
		})
	}
}

func TestProductIsLowStock(t *testing.T) {
	product := domain.Product{Stock: 5}

	if !product.IsLowStock(domain.DefaultLowStockThreshold) {
		t.Fatal("stock equal to threshold must count as low")
	}
	product.Stock = 6
	if product.IsLowStock(domain.DefaultLowStockThreshold) {
		t.Fatal("stock above threshold must not count as low")
	}
}
