package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductRepository описывает требования к хранилищу каталога.
// Хранилище владеет товарами и последовательностью их идентификаторов.
type ProductRepository interface {
	// Create сохраняет новый товар, назначая ему свежий уникальный ID.
	Create(product Product) (Product, error)
	// Get возвращает товар по ID или ErrProductNotFound.
	Get(id int64) (Product, error)
	// List возвращает все товары в порядке добавления.
	List() ([]Product, error)
	// ListByCategory возвращает товары категории (точное, регистрозависимое
	// сравнение); пустой срез — валидный результат для неизвестной категории.
	ListByCategory(category string) ([]Product, error)
	// LowStock возвращает товары с остатком <= threshold.
	LowStock(threshold int) ([]Product, error)
	// AdjustStock меняет остаток на delta. Декремент ниже нуля отклоняется
	// через InsufficientStockError без какой-либо мутации.
	AdjustStock(id int64, delta int) (Product, error)
	// UpdatePrice выставляет новую цену (отрицательная отклоняется).
	UpdatePrice(id int64, price decimal.Decimal) (Product, error)
	// Remove удаляет товар или возвращает ErrProductNotFound. Открытые корзины
	// при этом не проверяются: позиция с удалённым товаром всплывёт на
	// checkout как ErrProductNotFound.
	Remove(id int64) error
}

// LedgerRepository — append-only журнал закоммиченных продаж,
// единственный источник данных для отчётов.
type LedgerRepository interface {
	// Record дописывает закоммиченный заказ. Повторная запись того же ID —
	// ErrLedgerDuplicate, незакоммиченный заказ — ErrLedgerNotCommitted.
	Record(order Order) error
	// List возвращает копии всех записей в порядке добавления.
	List() ([]Order, error)
}

// OutboxMessage хранит данные события для последующей публикации в брокер.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OutboxRepository сохраняет события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}
