package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics содержит метрики кассового конвейера.
type CheckoutMetrics struct {
	// Счётчики операций
	checkoutAttempts  prometheus.Counter
	checkoutCommitted prometheus.Counter
	checkoutRejected  *prometheus.CounterVec

	// Гистограмма времени оформления
	checkoutDuration prometheus.Histogram

	// Счётчики журнала продаж и outbox
	ledgerRecords prometheus.Counter
	outboxEvents  prometheus.Counter

	// Сумма продаж в денежном выражении
	salesTotal prometheus.Counter
}

// NewCheckoutMetrics создаёт метрики на DefaultRegisterer.
func NewCheckoutMetrics() *CheckoutMetrics {
	return newCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		checkoutAttempts: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_checkout_attempts_total",
			Help: "Total number of checkout attempts",
		}),
		checkoutCommitted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_checkout_committed_total",
			Help: "Total number of successfully committed checkouts",
		}),
		checkoutRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "pos_checkout_rejected_total",
			Help: "Total number of rejected checkouts grouped by reason",
		}, []string{"reason"}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "pos_checkout_duration_seconds",
			Help:    "Duration of checkout attempts in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		ledgerRecords: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_ledger_records_total",
			Help: "Total number of orders appended to the sales ledger",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_outbox_events_total",
			Help: "Total number of events enqueued to the transactional outbox",
		}),
		salesTotal: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_sales_amount_total",
			Help: "Cumulative committed sales amount",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordAttempt увеличивает счётчик попыток оформления.
func (m *CheckoutMetrics) RecordAttempt() {
	m.checkoutAttempts.Inc()
}

// RecordCommitted фиксирует успешный commit и сумму продажи.
func (m *CheckoutMetrics) RecordCommitted(total float64) {
	m.checkoutCommitted.Inc()
	m.ledgerRecords.Inc()
	if total > 0 {
		m.salesTotal.Add(total)
	}
}

// RecordRejected увеличивает счётчик отказов с причиной.
func (m *CheckoutMetrics) RecordRejected(reason string) {
	m.checkoutRejected.WithLabelValues(reason).Inc()
}

// RecordDuration записывает время попытки оформления.
func (m *CheckoutMetrics) RecordDuration(duration time.Duration) {
	m.checkoutDuration.Observe(duration.Seconds())
}

// RecordOutboxEvent увеличивает счётчик поставленных в outbox событий.
func (m *CheckoutMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
