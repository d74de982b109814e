package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProductNotFound возвращается, если товар не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrLineNotFound возвращается при удалении отсутствующей позиции корзины.
	ErrLineNotFound = errors.New("order line not found")
	// ErrEmptyCart — попытка оформить заказ без единой позиции.
	ErrEmptyCart = errors.New("cart has no lines")
	// ErrInvalidQuantity — неположительное количество в addItem/restock.
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	// ErrPriceNegative — отрицательная цена товара.
	ErrPriceNegative = errors.New("price must be non-negative")
	// ErrStockNegative — операция сделала бы остаток отрицательным.
	ErrStockNegative = errors.New("stock must be non-negative")
	// ErrOrderNotOpen — мутация заказа, который уже закоммичен или отменён.
	ErrOrderNotOpen = errors.New("order is not open")
	// ErrInsufficientStock — базовая ошибка нехватки остатка; детали несёт InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")
	// Ошибка отсутствующего имени товара.
	ErrProductNameRequired = errors.New("product name is required")
	// Ошибка отсутствующей категории товара.
	ErrProductCategoryRequired = errors.New("product category is required")
	// ErrLedgerDuplicate — заказ уже записан в ledger.
	ErrLedgerDuplicate = errors.New("order already recorded in sales ledger")
	// ErrLedgerNotCommitted — в ledger попал заказ не в статусе committed.
	ErrLedgerNotCommitted = errors.New("only committed orders can be recorded")
	// ErrOutboxRecordNotFound возвращается при обновлении несуществующей outbox-записи.
	ErrOutboxRecordNotFound = errors.New("outbox record not found")
	// Ошибка несоответствия subtotal сумме позиций.
	errSubtotalMismatch = errors.New("subtotal does not match sum of line totals")
	// Ошибка несоответствия total формуле subtotal + tax - discount.
	errTotalMismatch = errors.New("total does not match subtotal + tax - discount")
)

// InsufficientStockError описывает, какой именно товар и на сколько единиц
// не прошёл валидацию остатков при checkout.
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q (id=%d): requested %d, available %d",
		e.Name, e.ProductID, e.Requested, e.Available)
}

// Unwrap позволяет проверять ошибку через errors.Is(err, ErrInsufficientStock).
func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// Shortfall возвращает недостающее количество единиц.
func (e *InsufficientStockError) Shortfall() int {
	return e.Requested - e.Available
}

// IsInsufficientStock сообщает, вызвана ли ошибка нехваткой остатка.
func IsInsufficientStock(err error) bool {
	return errors.Is(err, ErrInsufficientStock)
}

// IsNotFound сообщает, относится ли ошибка к классу recoverable not-found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrLineNotFound)
}
