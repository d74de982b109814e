package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/bakery-pos/internal/domain"
	"github.com/vladislavdragonenkov/bakery-pos/internal/storage/memory"
)

func committedOrder(id int64, total string) domain.Order {
	return domain.Order{
		ID:           id,
		CustomerName: "Guest",
		Status:       domain.OrderStatusCommitted,
		Lines: []domain.OrderLine{
			{ProductID: 1001, Name: "Croissant", UnitPrice: decimal.RequireFromString("2.75"), Quantity: 1, LineTotal: decimal.RequireFromString("2.75")},
		},
		Total:       decimal.RequireFromString(total),
		CommittedAt: time.Now().UTC(),
	}
}

func TestLedgerRepository_RecordRejectsOpenOrder(t *testing.T) {
	ledger := memory.NewLedgerRepository()

	open := committedOrder(5001, "2.75")
	open.Status = domain.OrderStatusOpen

	if err := ledger.Record(open); !errors.Is(err, domain.ErrLedgerNotCommitted) {
		t.Fatalf("expected ErrLedgerNotCommitted, got %v", err)
	}
}

func TestLedgerRepository_RecordRejectsDuplicate(t *testing.T) {
	ledger := memory.NewLedgerRepository()

	if err := ledger.Record(committedOrder(5001, "2.75")); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := ledger.Record(committedOrder(5001, "2.75")); !errors.Is(err, domain.ErrLedgerDuplicate) {
		t.Fatalf("expected ErrLedgerDuplicate, got %v", err)
	}
}

func TestLedgerRepository_ListPreservesAppendOrder(t *testing.T) {
	ledger := memory.NewLedgerRepository()

	for _, id := range []int64{5003, 5001, 5002} {
		if err := ledger.Record(committedOrder(id, "2.75")); err != nil {
			t.Fatalf("record %d: %v", id, err)
		}
	}

	entries, err := ledger.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := []int64{entries[0].ID, entries[1].ID, entries[2].ID}
	want := []int64{5003, 5001, 5002}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected append order %v, got %v", want, got)
		}
	}
}

func TestLedgerRepository_ListReturnsCopies(t *testing.T) {
	ledger := memory.NewLedgerRepository()
	if err := ledger.Record(committedOrder(5001, "2.75")); err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, err := ledger.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	entries[0].Lines[0].Quantity = 99

	fresh, err := ledger.List()
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	if fresh[0].Lines[0].Quantity != 1 {
		t.Fatalf("ledger history was mutated through a returned copy: %d", fresh[0].Lines[0].Quantity)
	}
}
