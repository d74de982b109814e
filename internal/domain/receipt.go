package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptLine — строка чека.
type ReceiptLine struct {
	ProductID int64
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// Receipt — read-only отражение закоммиченного заказа, которое касса
// отдаёт покупателю. Дальнейшие мутации заказа на чек не влияют.
type Receipt struct {
	OrderID        int64
	CustomerName   string
	Lines          []ReceiptLine
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
	CommittedAt    time.Time
}

// NewReceipt снимает чек с заказа.
func NewReceipt(order *Order) Receipt {
	lines := make([]ReceiptLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, ReceiptLine{
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal,
		})
	}

	return Receipt{
		OrderID:        order.ID,
		CustomerName:   order.CustomerName,
		Lines:          lines,
		Subtotal:       order.Subtotal,
		TaxAmount:      order.TaxAmount,
		DiscountAmount: order.DiscountAmount,
		Total:          order.Total,
		CommittedAt:    order.CommittedAt,
	}
}
