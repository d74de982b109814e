package domain_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/bakery-pos/internal/domain"
)

// helper для создания товара с заданной ценой.
func makeProduct(id int64, name, price string, stock int) domain.Product {
	return domain.Product{
		ID:       id,
		Name:     name,
		Category: "Pastries",
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
	}
}

func newCart(t *testing.T) *domain.Order {
	t.Helper()
	factory := domain.NewOrderFactory(domain.DefaultOrderSeq, domain.DefaultTaxRate)
	return factory.New("")
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	return decimal.RequireFromString(s)
}

func TestOrderFactory_SeededIDs(t *testing.T) {
	factory := domain.NewOrderFactory(5001, domain.DefaultTaxRate)

	first := factory.New("Alice")
	second := factory.New("")

	if first.ID != 5001 || second.ID != 5002 {
		t.Fatalf("expected sequential ids 5001, 5002, got %d, %d", first.ID, second.ID)
	}
	if first.Status != domain.OrderStatusOpen {
		t.Fatalf("expected new order to be open, got %s", first.Status)
	}
	if second.CustomerName != domain.DefaultCustomerName {
		t.Fatalf("expected default customer name, got %q", second.CustomerName)
	}
}

func TestOrderAddItem_MergesSameProduct(t *testing.T) {
	cart := newCart(t)
	croissant := makeProduct(1001, "Croissant", "2.75", 15)

	if err := cart.AddItem(croissant, 2); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if err := cart.AddItem(croissant, 3); err != nil {
		t.Fatalf("add item again: %v", err)
	}

	if len(cart.Lines) != 1 {
		t.Fatalf("expected one merged line, got %d", len(cart.Lines))
	}
	if cart.Lines[0].Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %d", cart.Lines[0].Quantity)
	}
	if !cart.Lines[0].LineTotal.Equal(mustDecimal(t, "13.75")) {
		t.Fatalf("expected line total 13.75, got %s", cart.Lines[0].LineTotal)
	}
}

func TestOrderAddItem_InvalidQuantity(t *testing.T) {
	cart := newCart(t)
	product := makeProduct(1001, "Croissant", "2.75", 15)

	for _, qty := range []int{0, -1} {
		if err := cart.AddItem(product, qty); !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Fatalf("qty=%d: expected ErrInvalidQuantity, got %v", qty, err)
		}
	}
	if len(cart.Lines) != 0 {
		t.Fatalf("rejected add must not mutate cart, got %d lines", len(cart.Lines))
	}
}

func TestOrderTotals_ExampleScenario(t *testing.T) {
	// Сценарий из приёмки: 2 x 2.75 при налоге 5% без скидки.
	cart := newCart(t)
	croissant := makeProduct(1001, "Croissant", "2.75", 15)

	if err := cart.AddItem(croissant, 2); err != nil {
		t.Fatalf("add item: %v", err)
	}

	if !cart.Subtotal.Equal(mustDecimal(t, "5.50")) {
		t.Fatalf("expected subtotal 5.50, got %s", cart.Subtotal)
	}
	if !cart.TaxAmount.Equal(mustDecimal(t, "0.275")) {
		t.Fatalf("expected tax 0.275, got %s", cart.TaxAmount)
	}
	if !cart.Total.Equal(mustDecimal(t, "5.775")) {
		t.Fatalf("expected total 5.775, got %s", cart.Total)
	}
	if errs := cart.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no invariant violations, got %v", errs)
	}
}

func TestOrderTotals_InvariantUnderMutation(t *testing.T) {
	cart := newCart(t)
	bread := makeProduct(1005, "Whole Wheat Bread", "4.50", 12)
	cookie := makeProduct(1007, "Chocolate Chip Cookie", "1.99", 30)

	steps := []struct {
		name string
		mut  func() error
	}{
		{"add bread", func() error { return cart.AddItem(bread, 2) }},
		{"add cookie", func() error { return cart.AddItem(cookie, 4) }},
		{"merge cookie", func() error { return cart.AddItem(cookie, 1) }},
		{"remove bread", func() error {
			_, err := cart.RemoveItem(bread.ID)
			return err
		}},
	}

	for _, step := range steps {
		if err := step.mut(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		// После каждой мутации производные суммы обязаны сходиться.
		if errs := cart.ValidateInvariants(); len(errs) != 0 {
			t.Fatalf("%s: invariants broken: %v", step.name, errs)
		}
	}
}

func TestOrderRemoveItem_NotFoundIsNotFatal(t *testing.T) {
	cart := newCart(t)

	found, err := cart.RemoveItem(9999)
	if err != nil {
		t.Fatalf("remove from empty cart: %v", err)
	}
	if found {
		t.Fatal("expected found=false for missing line")
	}
}

func TestOrderRecalculate_DiscountMayExceedSubtotal(t *testing.T) {
	cart := newCart(t)
	cookie := makeProduct(1007, "Chocolate Chip Cookie", "1.99", 30)
	if err := cart.AddItem(cookie, 1); err != nil {
		t.Fatalf("add item: %v", err)
	}

	// Плоская скидка больше subtotal легальна и даёт отрицательный total.
	cart.Recalculate(domain.DefaultTaxRate, mustDecimal(t, "10.00"))

	if !cart.Total.IsNegative() {
		t.Fatalf("expected negative total, got %s", cart.Total)
	}
	if errs := cart.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("negative total must not violate invariants: %v", errs)
	}
}

func TestOrderMutation_RejectedWhenNotOpen(t *testing.T) {
	cart := newCart(t)
	product := makeProduct(1001, "Croissant", "2.75", 15)
	if err := cart.AddItem(product, 1); err != nil {
		t.Fatalf("add item: %v", err)
	}

	cart.Status = domain.OrderStatusCommitted

	if err := cart.AddItem(product, 1); !errors.Is(err, domain.ErrOrderNotOpen) {
		t.Fatalf("expected ErrOrderNotOpen on add, got %v", err)
	}
	if _, err := cart.RemoveItem(product.ID); !errors.Is(err, domain.ErrOrderNotOpen) {
		t.Fatalf("expected ErrOrderNotOpen on remove, got %v", err)
	}
	if err := cart.Cancel(); !errors.Is(err, domain.ErrOrderNotOpen) {
		t.Fatalf("expected ErrOrderNotOpen on cancel, got %v", err)
	}
}

func TestOrderClone_DetachesLines(t *testing.T) {
	cart := newCart(t)
	product := makeProduct(1001, "Croissant", "2.75", 15)
	if err := cart.AddItem(product, 2); err != nil {
		t.Fatalf("add item: %v", err)
	}

	clone := cart.Clone()
	clone.Lines[0].Quantity = 99

	if cart.Lines[0].Quantity != 2 {
		t.Fatalf("clone mutation leaked into original: %d", cart.Lines[0].Quantity)
	}
}
