package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/bakery-pos/internal/domain"
)

// Service управляет каталогом товаров: добавление, снятие с продажи,
// пополнение остатков и смена цен. Все админские изменения каталога
// публикуются событиями через outbox.
type Service struct {
	products domain.ProductRepository
	outbox   domain.OutboxRepository // опционален
	logger   *log.Entry
}

// NewService создаёт сервис каталога поверх репозитория товаров.
func NewService(products domain.ProductRepository, outbox domain.OutboxRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "catalog")
	}
	return &Service{
		products: products,
		outbox:   outbox,
		logger:   logger,
	}
}

// AddProduct валидирует и сохраняет новый товар.
func (s *Service) AddProduct(name, category string, price decimal.Decimal, stock int) (domain.Product, error) {
	product, err := s.products.Create(domain.Product{
		Name:     name,
		Category: category,
		Price:    price,
		Stock:    stock,
	})
	if err != nil {
		return domain.Product{}, fmt.Errorf("create product %q: %w", name, err)
	}

	s.logger.WithFields(log.Fields{
		"product_id": product.ID,
		"name":       product.Name,
		"category":   product.Category,
	}).Info("product added")
	s.emit(product, "product.added")
	return product, nil
}

// RemoveProduct снимает товар с продажи. Открытые корзины не трогаются:
// их позиции всплывут на checkout как not-found.
func (s *Service) RemoveProduct(id int64) error {
	product, err := s.products.Get(id)
	if err != nil {
		return err
	}
	if err := s.products.Remove(id); err != nil {
		return err
	}

	s.logger.WithFields(log.Fields{
		"product_id": id,
		"name":       product.Name,
	}).Info("product removed")
	s.emit(product, "product.removed")
	return nil
}

// Restock увеличивает остаток товара на quantity штук.
func (s *Service) Restock(id int64, quantity int) (domain.Product, error) {
	if quantity <= 0 {
		return domain.Product{}, domain.ErrInvalidQuantity
	}

	product, err := s.products.AdjustStock(id, quantity)
	if err != nil {
		return domain.Product{}, fmt.Errorf("restock product %d: %w", id, err)
	}

	s.logger.WithFields(log.Fields{
		"product_id": product.ID,
		"added":      quantity,
		"stock":      product.Stock,
	}).Info("inventory restocked")
	s.emit(product, "inventory.restocked")
	return product, nil
}

// UpdatePrice выставляет товару новую цену.
func (s *Service) UpdatePrice(id int64, price decimal.Decimal) (domain.Product, error) {
	product, err := s.products.UpdatePrice(id, price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("update price for product %d: %w", id, err)
	}

	s.logger.WithFields(log.Fields{
		"product_id": product.ID,
		"price":      product.Price.String(),
	}).Info("price updated")
	s.emit(product, "price.updated")
	return product, nil
}

// Product возвращает товар по ID.
func (s *Service) Product(id int64) (domain.Product, error) {
	return s.products.Get(id)
}

// Products возвращает весь каталог в порядке добавления.
func (s *Service) Products() ([]domain.Product, error) {
	return s.products.List()
}

// ProductsByCategory возвращает товары одной категории.
func (s *Service) ProductsByCategory(category string) ([]domain.Product, error) {
	return s.products.ListByCategory(category)
}

// LowStock возвращает товары с остатком <= threshold.
func (s *Service) LowStock(threshold int) ([]domain.Product, error) {
	return s.products.LowStock(threshold)
}

// seedProduct — строка стартового ассортимента.
type seedProduct struct {
	name     string
	category string
	price    string
	stock    int
}

var defaultAssortment = []seedProduct{
	{"Chocolate Cake", "Cakes", "25.99", 10},
	{"Vanilla Cupcake", "Cakes", "3.50", 24},
	{"Croissant", "Pastries", "2.75", 15},
	{"Apple Pie", "Pastries", "12.99", 8},
	{"Whole Wheat Bread", "Bread", "4.50", 12},
	{"Sourdough", "Bread", "5.99", 6},
	{"Chocolate Chip Cookie", "Cookies", "1.99", 30},
	{"Coffee", "Drinks", "2.99", 20},
	{"Hot Chocolate", "Drinks", "3.49", 15},
}

// Seed наполняет пустой каталог стартовым ассортиментом пекарни.
// Непустой каталог не трогается, чтобы рестарт поверх postgres не
// дублировал товары.
func (s *Service) Seed() error {
	existing, err := s.products.List()
	if err != nil {
		return fmt.Errorf("check catalog before seed: %w", err)
	}
	if len(existing) > 0 {
		s.logger.WithField("products", len(existing)).Debug("catalog already populated, seed skipped")
		return nil
	}

	for _, item := range defaultAssortment {
		if _, err := s.products.Create(domain.Product{
			Name:     item.name,
			Category: item.category,
			Price:    decimal.RequireFromString(item.price),
			Stock:    item.stock,
		}); err != nil {
			return fmt.Errorf("seed product %q: %w", item.name, err)
		}
	}

	s.logger.WithField("products", len(defaultAssortment)).Info("catalog seeded with default assortment")
	return nil
}

// emit ставит событие изменения каталога в outbox; сбой только логируется.
func (s *Service) emit(product domain.Product, eventType string) {
	if s.outbox == nil {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"product_id": product.ID,
		"name":       product.Name,
		"category":   product.Category,
		"price":      product.Price.String(),
		"stock":      product.Stock,
	})
	if err != nil {
		s.logger.WithError(err).WithField("product_id", product.ID).Error("marshal catalog event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "product",
		AggregateID:   fmt.Sprintf("%d", product.ID),
		EventType:     eventType,
		Payload:       payload,
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithField("product_id", product.ID).Error("enqueue catalog event failed")
	}
}
