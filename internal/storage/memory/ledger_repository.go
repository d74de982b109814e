package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/bakery-pos/internal/domain"
)

// ledgerRepositoryInMemory — append-only журнал продаж для локальной
// разработки и тестов. Записи хранятся копиями: читатели не могут
// задним числом переписать историю.
type ledgerRepositoryInMemory struct {
	mu      sync.RWMutex
	entries []domain.Order
	seen    map[int64]struct{}
}

// NewLedgerRepository создаёт in-memory реализацию LedgerRepository.
func NewLedgerRepository() domain.LedgerRepository {
	return &ledgerRepositoryInMemory{
		seen: make(map[int64]struct{}),
	}
}

// Record дописывает закоммиченный заказ в конец журнала.
func (r *ledgerRepositoryInMemory) Record(order domain.Order) error {
	if order.Status != domain.OrderStatusCommitted {
		return domain.ErrLedgerNotCommitted
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.seen[order.ID]; exists {
		return domain.ErrLedgerDuplicate
	}

	r.entries = append(r.entries, order.Clone())
	r.seen[order.ID] = struct{}{}
	return nil
}

// List возвращает копии всех записей в порядке добавления.
func (r *ledgerRepositoryInMemory) List() ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.entries))
	for i := range r.entries {
		result = append(result, r.entries[i].Clone())
	}
	return result, nil
}

var _ domain.LedgerRepository = (*ledgerRepositoryInMemory)(nil)
