package domain

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа на кассе.
type OrderStatus string

const (
	// OrderStatusOpen — корзина собирается, заказ можно менять.
	OrderStatusOpen OrderStatus = "open"
	// OrderStatusCommitted — заказ оформлен, остатки списаны; запись неизменяема.
	OrderStatusCommitted OrderStatus = "committed"
	// OrderStatusCancelled — корзина брошена до оформления.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// DefaultTaxRate — ставка налога по умолчанию (5%).
var DefaultTaxRate = decimal.RequireFromString("0.05")

// DefaultCustomerName подставляется, пока покупатель не представился.
const DefaultCustomerName = "Guest"

// OrderLine — одна позиция заказа. Товар идентифицируется стабильным ProductID,
// а не живой ссылкой в каталог: Name и UnitPrice — снапшоты на момент последнего
// пересчёта, LineTotal — кэшируемая проекция UnitPrice*Quantity.
type OrderLine struct {
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	LineTotal decimal.Decimal
}

// Order агрегирует корзину и, после commit, становится неизменяемым фактом продажи.
// Поля Subtotal/TaxAmount/DiscountAmount/Total всегда производные от Lines и
// последних применённых ставки налога и скидки; напрямую они не выставляются.
type Order struct {
	ID             int64
	CustomerName   string
	Lines          []OrderLine
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
	TaxRate        decimal.Decimal
	Status         OrderStatus
	CreatedAt      time.Time
	CommittedAt    time.Time
}

// AddItem добавляет товар в корзину. Повторное добавление того же товара
// сливается в одну позицию с суммированным количеством — дубликатов строк
// по одному ProductID не бывает. После мутации суммы пересчитываются с
// последними применёнными ставкой и скидкой.
func (o *Order) AddItem(product Product, quantity int) error {
	if o.Status != OrderStatusOpen {
		return ErrOrderNotOpen
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	merged := false
	for i := range o.Lines {
		if o.Lines[i].ProductID == product.ID {
			o.Lines[i].Quantity += quantity
			o.Lines[i].Name = product.Name
			o.Lines[i].UnitPrice = product.Price
			o.Lines[i].LineTotal = product.Price.Mul(decimal.NewFromInt(int64(o.Lines[i].Quantity)))
			merged = true
			break
		}
	}
	if !merged {
		o.Lines = append(o.Lines, OrderLine{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  quantity,
			LineTotal: product.Price.Mul(decimal.NewFromInt(int64(quantity))),
		})
	}

	o.Recalculate(o.TaxRate, o.DiscountAmount)
	return nil
}

// RemoveItem убирает позицию по ProductID и возвращает, существовала ли она.
// Удаление отсутствующей позиции — не ошибка, просто found=false.
func (o *Order) RemoveItem(productID int64) (bool, error) {
	if o.Status != OrderStatusOpen {
		return false, ErrOrderNotOpen
	}

	for i := range o.Lines {
		if o.Lines[i].ProductID == productID {
			o.Lines = append(o.Lines[:i], o.Lines[i+1:]...)
			o.Recalculate(o.TaxRate, o.DiscountAmount)
			return true, nil
		}
	}
	return false, nil
}

// Recalculate пересчитывает производные суммы:
//
//	Subtotal = Σ LineTotal
//	TaxAmount = Subtotal * taxRate
//	Total = Subtotal + TaxAmount - discount
//
// Скидка — плоская сумма и намеренно не ограничивается Subtotal: отрицательный
// Total допустим и не считается ошибкой.
func (o *Order) Recalculate(taxRate, discount decimal.Decimal) {
	subtotal := decimal.Zero
	for i := range o.Lines {
		o.Lines[i].LineTotal = o.Lines[i].UnitPrice.Mul(decimal.NewFromInt(int64(o.Lines[i].Quantity)))
		subtotal = subtotal.Add(o.Lines[i].LineTotal)
	}

	o.TaxRate = taxRate
	o.DiscountAmount = discount
	o.Subtotal = subtotal
	o.TaxAmount = subtotal.Mul(taxRate)
	o.Total = subtotal.Add(o.TaxAmount).Sub(discount)
}

// Cancel переводит открытую корзину в статус cancelled.
func (o *Order) Cancel() error {
	if o.Status != OrderStatusOpen {
		return ErrOrderNotOpen
	}
	o.Status = OrderStatusCancelled
	return nil
}

// Line возвращает позицию по ProductID.
func (o *Order) Line(productID int64) (OrderLine, bool) {
	for _, line := range o.Lines {
		if line.ProductID == productID {
			return line, true
		}
	}
	return OrderLine{}, false
}

// ValidateInvariants проверяет согласованность производных сумм заказа.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	subtotal := decimal.Zero
	for _, line := range o.Lines {
		if line.Quantity <= 0 {
			errs = append(errs, ErrInvalidQuantity)
		}
		if line.UnitPrice.IsNegative() {
			errs = append(errs, ErrPriceNegative)
		}
		subtotal = subtotal.Add(line.LineTotal)
	}

	if !o.Subtotal.Equal(subtotal) {
		errs = append(errs, errSubtotalMismatch)
	}
	expectedTotal := o.Subtotal.Add(o.TaxAmount).Sub(o.DiscountAmount)
	if !o.Total.Equal(expectedTotal) {
		errs = append(errs, errTotalMismatch)
	}

	return errs
}

// Clone возвращает глубокую копию заказа: позиции копируются, чтобы читатели
// ledger не могли мутировать историю.
func (o *Order) Clone() Order {
	clone := *o
	clone.Lines = make([]OrderLine, len(o.Lines))
	copy(clone.Lines, o.Lines)
	return clone
}

// OrderFactory выдаёт заказы с монотонными идентификаторами. Счётчик — явное
// состояние фабрики, а не глобальная переменная, поэтому тесты могут задать
// свой seed и получать детерминированные ID.
type OrderFactory struct {
	mu      sync.Mutex
	nextID  int64
	taxRate decimal.Decimal
	now     func() time.Time
}

// DefaultOrderSeq — стартовый идентификатор заказов.
const DefaultOrderSeq = 5001

// NewOrderFactory создаёт фабрику заказов с заданным seed последовательности
// и ставкой налога, применяемой к новым корзинам.
func NewOrderFactory(seed int64, taxRate decimal.Decimal) *OrderFactory {
	if seed <= 0 {
		seed = DefaultOrderSeq
	}
	return &OrderFactory{
		nextID:  seed,
		taxRate: taxRate,
		now:     time.Now,
	}
}

// New открывает пустую корзину для покупателя. Пустое имя заменяется на Guest.
func (f *OrderFactory) New(customerName string) *Order {
	if customerName == "" {
		customerName = DefaultCustomerName
	}

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.mu.Unlock()

	order := &Order{
		ID:           id,
		CustomerName: customerName,
		Status:       OrderStatusOpen,
		CreatedAt:    f.now().UTC(),
	}
	order.Recalculate(f.taxRate, decimal.Zero)
	return order
}

// TaxRate возвращает ставку налога, с которой фабрика открывает корзины.
func (f *OrderFactory) TaxRate() decimal.Decimal {
	return f.taxRate
}
