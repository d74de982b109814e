package reporting

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/bakery-pos/internal/domain"
)

// Summary — сводка продаж по журналу.
type Summary struct {
	OrderCount        int
	TotalSales        decimal.Decimal
	AverageOrderValue decimal.Decimal
}

// ItemSales — суммарное число проданных штук одного товара.
type ItemSales struct {
	Name     string
	Quantity int
}

// averagePrecision — знаков после запятой при делении суммы на число заказов.
const averagePrecision = 4

// Service строит отчёты по журналу продаж. Единственный источник данных —
// append-only ledger, поэтому отчёты всегда согласованы с тем, что реально
// закоммичено.
type Service struct {
	ledger domain.LedgerRepository
	logger *log.Entry
}

// NewService создаёт сервис отчётов поверх журнала продаж.
func NewService(ledger domain.LedgerRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "reporting")
	}
	return &Service{ledger: ledger, logger: logger}
}

// DailyTotals возвращает число заказов, суммарную выручку и средний чек.
// Пустой журнал — нулевая сводка, без ошибки.
func (s *Service) DailyTotals() (Summary, error) {
	entries, err := s.ledger.List()
	if err != nil {
		return Summary{}, fmt.Errorf("list ledger: %w", err)
	}

	summary := Summary{
		TotalSales:        decimal.Zero,
		AverageOrderValue: decimal.Zero,
	}
	if len(entries) == 0 {
		return summary, nil
	}

	for _, order := range entries {
		summary.TotalSales = summary.TotalSales.Add(order.Total)
	}
	summary.OrderCount = len(entries)
	summary.AverageOrderValue = summary.TotalSales.
		DivRound(decimal.NewFromInt(int64(summary.OrderCount)), averagePrecision)
	return summary, nil
}

// MostSoldItems агрегирует проданные штуки по имени товара и возвращает их
// по убыванию количества. При равенстве количеств сохраняется порядок первого
// появления товара в журнале.
func (s *Service) MostSoldItems() ([]ItemSales, error) {
	entries, err := s.ledger.List()
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}

	index := make(map[string]int)
	items := make([]ItemSales, 0)
	for _, order := range entries {
		for _, line := range order.Lines {
			pos, seen := index[line.Name]
			if !seen {
				index[line.Name] = len(items)
				items = append(items, ItemSales{Name: line.Name})
				pos = len(items) - 1
			}
			items[pos].Quantity += line.Quantity
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Quantity > items[j].Quantity
	})
	return items, nil
}
