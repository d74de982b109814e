package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold — порог остатка, ниже (включительно) которого товар
// попадает в отчёт low stock, если админ не задал свой.
const DefaultLowStockThreshold = 5

// Product — карточка товара в каталоге точки продаж.
// ID назначается хранилищем при создании и далее не меняется.
type Product struct {
	ID        int64
	Name      string
	Category  string
	Price     decimal.Decimal
	Stock     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateInvariants проверяет базовые инварианты товара и возвращает список замечаний.
func (p *Product) ValidateInvariants() []error {
	var errs []error

	if p.Name == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.Category == "" {
		errs = append(errs, ErrProductCategoryRequired)
	}
	if p.Price.IsNegative() {
		errs = append(errs, ErrPriceNegative)
	}
	if p.Stock < 0 {
		errs = append(errs, ErrStockNegative)
	}

	return errs
}

// IsLowStock сообщает, не опустился ли остаток до порога threshold.
func (p *Product) IsLowStock(threshold int) bool {
	return p.Stock <= threshold
}
