package checkout

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/bakery-pos/internal/domain"
	"github.com/vladislavdragonenkov/bakery-pos/internal/metrics"
)

const (
	rejectReasonNotOpen           = "not_open"
	rejectReasonEmptyCart         = "empty_cart"
	rejectReasonProductMissing    = "product_missing"
	rejectReasonInsufficientStock = "insufficient_stock"
	rejectReasonStorage           = "storage_error"
)

// Engine проводит переход корзины в закоммиченную продажу. Commit атомарен:
// валидация остатков полностью отделена от списания, поэтому отказ на любой
// позиции не оставляет частично списанных остатков, а заказ и каталог
// остаются ровно в том состоянии, в каком были до вызова.
type Engine struct {
	// Единая критическая секция на validate+mutate: остатки не могут
	// измениться между проверкой и списанием, даже если кассовых точек
	// когда-нибудь станет больше одной.
	mu sync.Mutex

	products domain.ProductRepository
	ledger   domain.LedgerRepository
	outbox   domain.OutboxRepository // опционален: nil отключает события
	logger   *log.Entry
	metrics  *metrics.CheckoutMetrics
	now      func() time.Time
}

// NewEngine создаёт рабочий движок оформления.
func NewEngine(products domain.ProductRepository, ledger domain.LedgerRepository, outbox domain.OutboxRepository, logger *log.Entry) *Engine {
	engine := newEngine(products, ledger, outbox, logger)
	engine.metrics = metrics.NewCheckoutMetrics()
	return engine
}

// NewEngineWithoutMetrics создаёт движок без метрик (для тестов).
func NewEngineWithoutMetrics(products domain.ProductRepository, ledger domain.LedgerRepository, outbox domain.OutboxRepository, logger *log.Entry) *Engine {
	return newEngine(products, ledger, outbox, logger)
}

func newEngine(products domain.ProductRepository, ledger domain.LedgerRepository, outbox domain.OutboxRepository, logger *log.Entry) *Engine {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	return &Engine{
		products: products,
		ledger:   ledger,
		outbox:   outbox,
		logger:   logger,
		now:      time.Now,
	}
}

// resolvedLine — позиция, заново сверенная с каталогом на момент оформления.
type resolvedLine struct {
	line    domain.OrderLine
	product domain.Product
}

// AttemptCheckout пытается перевести открытый заказ в committed:
//
//  1. пустая корзина и незакрытый статус отклоняются без изменений;
//  2. каждая позиция заново резолвится в каталоге (удалённый товар — явный
//     ErrProductNotFound, а не висячая ссылка) и суммы пересчитываются с
//     переданными ставкой и скидкой;
//  3. остатки валидируются по всем позициям целиком; любой дефицит — отказ
//     InsufficientStockError без единого списания;
//  4. только после полной валидации остатки списываются построчно;
//  5. заказ коммитится, попадает в ledger, событие встаёт в outbox.
//
// До шага 4 ни заказ, ни каталог не мутируются, поэтому отказ всегда
// оставляет корзину открытой и пригодной для повторной попытки.
func (e *Engine) AttemptCheckout(order *domain.Order, taxRate, discount decimal.Decimal) (domain.Receipt, error) {
	start := e.now()
	if e.metrics != nil {
		e.metrics.RecordAttempt()
		defer func() {
			e.metrics.RecordDuration(time.Since(start))
		}()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if order.Status != domain.OrderStatusOpen {
		e.reject(order, rejectReasonNotOpen, domain.ErrOrderNotOpen)
		return domain.Receipt{}, domain.ErrOrderNotOpen
	}
	if len(order.Lines) == 0 {
		e.reject(order, rejectReasonEmptyCart, domain.ErrEmptyCart)
		return domain.Receipt{}, domain.ErrEmptyCart
	}

	resolved, err := e.resolveLines(order)
	if err != nil {
		e.reject(order, rejectReasonProductMissing, err)
		return domain.Receipt{}, err
	}

	// Фаза валидации: ни одной мутации, пока не проверены все позиции.
	for _, rl := range resolved {
		if rl.product.Stock < rl.line.Quantity {
			stockErr := &domain.InsufficientStockError{
				ProductID: rl.product.ID,
				Name:      rl.product.Name,
				Requested: rl.line.Quantity,
				Available: rl.product.Stock,
			}
			e.reject(order, rejectReasonInsufficientStock, stockErr)
			return domain.Receipt{}, stockErr
		}
	}

	// Фаза списания: валидация гарантировала достаточность, ошибки здесь
	// возможны только от хранилища — тогда уже применённые списания
	// компенсируются обратно.
	applied := make([]resolvedLine, 0, len(resolved))
	for _, rl := range resolved {
		if _, err := e.products.AdjustStock(rl.product.ID, -rl.line.Quantity); err != nil {
			e.compensate(applied)
			e.reject(order, rejectReasonStorage, err)
			return domain.Receipt{}, fmt.Errorf("decrement stock for product %d: %w", rl.product.ID, err)
		}
		applied = append(applied, rl)
	}

	// Свежие снапшоты цен и финальные суммы собираются на копии заказа:
	// пока ledger не принял запись, сам заказ не мутируется, и отказ
	// хранилища оставляет корзину нетронутой.
	committed := order.Clone()
	for i := range resolved {
		committed.Lines[i] = resolved[i].line
	}
	committed.Recalculate(taxRate, discount)
	committed.Status = domain.OrderStatusCommitted
	committed.CommittedAt = e.now().UTC()

	if err := e.ledger.Record(committed); err != nil {
		// Ledger не принял запись: откатываем списания, корзина не тронута.
		e.compensate(applied)
		e.reject(order, rejectReasonStorage, err)
		return domain.Receipt{}, fmt.Errorf("record order %d in ledger: %w", order.ID, err)
	}
	*order = committed

	if e.metrics != nil {
		total, _ := order.Total.Float64()
		e.metrics.RecordCommitted(total)
	}
	e.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"customer": order.CustomerName,
		"lines":    len(order.Lines),
		"total":    order.Total.String(),
	}).Info("order committed")

	e.emitSaleCommitted(order)

	return domain.NewReceipt(order), nil
}

// resolveLines сверяет каждую позицию с текущим каталогом и возвращает копии
// строк со свежими снапшотами имени и цены. Сам заказ не трогается.
func (e *Engine) resolveLines(order *domain.Order) ([]resolvedLine, error) {
	resolved := make([]resolvedLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		product, err := e.products.Get(line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("resolve product %d for order %d: %w", line.ProductID, order.ID, err)
		}

		fresh := line
		fresh.Name = product.Name
		fresh.UnitPrice = product.Price
		fresh.LineTotal = product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		resolved = append(resolved, resolvedLine{line: fresh, product: product})
	}
	return resolved, nil
}

// compensate возвращает на склад уже списанные позиции после сбоя хранилища.
func (e *Engine) compensate(applied []resolvedLine) {
	for _, rl := range applied {
		if _, err := e.products.AdjustStock(rl.product.ID, rl.line.Quantity); err != nil {
			e.logger.WithError(err).WithField("product_id", rl.product.ID).Error("failed to compensate stock decrement")
		}
	}
}

func (e *Engine) reject(order *domain.Order, reason string, cause error) {
	if e.metrics != nil {
		e.metrics.RecordRejected(reason)
	}
	e.logger.WithError(cause).WithFields(log.Fields{
		"order_id": order.ID,
		"reason":   reason,
	}).Warn("checkout rejected")
}

// emitSaleCommitted ставит событие продажи в outbox; сбой здесь не отменяет
// уже закоммиченный заказ и только логируется.
func (e *Engine) emitSaleCommitted(order *domain.Order) {
	if e.outbox == nil {
		return
	}

	type soldLine struct {
		ProductID int64  `json:"product_id"`
		Name      string `json:"name"`
		Quantity  int    `json:"quantity"`
	}
	lines := make([]soldLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, soldLine{ProductID: line.ProductID, Name: line.Name, Quantity: line.Quantity})
	}

	payload, err := json.Marshal(map[string]any{
		"order_id":     order.ID,
		"customer":     order.CustomerName,
		"total":        order.Total.String(),
		"lines":        lines,
		"committed_at": order.CommittedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		e.logger.WithError(err).WithField("order_id", order.ID).Error("marshal sale event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "sale",
		AggregateID:   fmt.Sprintf("%d", order.ID),
		EventType:     "sale.committed",
		Payload:       payload,
	}
	if _, err := e.outbox.Enqueue(msg); err != nil {
		e.logger.WithError(err).WithField("order_id", order.ID).Error("enqueue sale event failed")
		return
	}
	if e.metrics != nil {
		e.metrics.RecordOutboxEvent()
	}
}
