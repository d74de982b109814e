package kafka

import "time"

// Типы событий, публикуемых кассой и каталогом.
const (
	EventTypeSaleCommitted      = "sale.committed"
	EventTypeProductAdded       = "product.added"
	EventTypeProductRemoved     = "product.removed"
	EventTypeInventoryRestocked = "inventory.restocked"
	EventTypePriceUpdated       = "price.updated"
)

// Topics для Kafka
const (
	TopicSaleEvents      = "pos.sale.events"
	TopicInventoryEvents = "pos.inventory.events"
	TopicDeadLetterQueue = "pos.dlq"
)

// SaleEvent — событие закоммиченной продажи.
type SaleEvent struct {
	EventType string         `json:"event_type"`
	OrderID   int64          `json:"order_id"`
	Customer  string         `json:"customer"`
	Total     string         `json:"total"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewSaleEvent создаёт событие продажи с текущим timestamp.
func NewSaleEvent(eventType string, orderID int64, customer, total string, metadata map[string]any) *SaleEvent {
	return &SaleEvent{
		EventType: eventType,
		OrderID:   orderID,
		Customer:  customer,
		Total:     total,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
}

// InventoryEvent — событие изменения каталога или остатков.
type InventoryEvent struct {
	EventType string         `json:"event_type"`
	ProductID int64          `json:"product_id"`
	Name      string         `json:"name"`
	Stock     int            `json:"stock"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewInventoryEvent создаёт событие каталога с текущим timestamp.
func NewInventoryEvent(eventType string, productID int64, name string, stock int, metadata map[string]any) *InventoryEvent {
	return &InventoryEvent{
		EventType: eventType,
		ProductID: productID,
		Name:      name,
		Stock:     stock,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
}
