package memory

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/bakery-pos/internal/domain"
)

// DefaultProductSeq — стартовый идентификатор товаров.
const DefaultProductSeq = 1001

// productRepositoryInMemory — in-memory реализация ProductRepository.
// Порядок добавления сохраняется отдельным срезом, чтобы List был стабильным.
type productRepositoryInMemory struct {
	mu     sync.RWMutex
	items  map[int64]domain.Product
	order  []int64
	nextID int64
}

// NewProductRepository возвращает in-memory каталог с последовательностью ID от 1001.
func NewProductRepository() domain.ProductRepository {
	return NewProductRepositoryWithSeq(DefaultProductSeq)
}

// NewProductRepositoryWithSeq позволяет тестам задать seed последовательности.
func NewProductRepositoryWithSeq(seed int64) domain.ProductRepository {
	if seed <= 0 {
		seed = DefaultProductSeq
	}
	return &productRepositoryInMemory{
		items:  make(map[int64]domain.Product),
		nextID: seed,
	}
}

// Create назначает товару свежий ID и сохраняет его.
func (r *productRepositoryInMemory) Create(product domain.Product) (domain.Product, error) {
	if errs := (&domain.Product{
		Name:     product.Name,
		Category: product.Category,
		Price:    product.Price,
		Stock:    product.Stock,
	}).ValidateInvariants(); len(errs) != 0 {
		return domain.Product{}, errs[0]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	product.ID = r.nextID
	r.nextID++

	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	r.items[product.ID] = product
	r.order = append(r.order, product.ID)
	return product, nil
}

// Get возвращает товар или ErrProductNotFound.
func (r *productRepositoryInMemory) Get(id int64) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// List возвращает все товары в порядке добавления.
func (r *productRepositoryInMemory) List() ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.order))
	for _, id := range r.order {
		if product, ok := r.items[id]; ok {
			result = append(result, product)
		}
	}
	return result, nil
}

// ListByCategory фильтрует по точному, регистрозависимому совпадению категории.
func (r *productRepositoryInMemory) ListByCategory(category string) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0)
	for _, id := range r.order {
		product, ok := r.items[id]
		if !ok || product.Category != category {
			continue
		}
		result = append(result, product)
	}
	return result, nil
}

// LowStock возвращает товары с остатком <= threshold.
func (r *productRepositoryInMemory) LowStock(threshold int) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0)
	for _, id := range r.order {
		product, ok := r.items[id]
		if !ok || !product.IsLowStock(threshold) {
			continue
		}
		result = append(result, product)
	}
	return result, nil
}

// AdjustStock меняет остаток на delta, отклоняя уход ниже нуля.
func (r *productRepositoryInMemory) AdjustStock(id int64, delta int) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if product.Stock+delta < 0 {
		return domain.Product{}, &domain.InsufficientStockError{
			ProductID: product.ID,
			Name:      product.Name,
			Requested: -delta,
			Available: product.Stock,
		}
	}

	product.Stock += delta
	product.UpdatedAt = time.Now().UTC()
	r.items[id] = product
	return product, nil
}

// UpdatePrice выставляет новую неотрицательную цену.
func (r *productRepositoryInMemory) UpdatePrice(id int64, price decimal.Decimal) (domain.Product, error) {
	if price.IsNegative() {
		return domain.Product{}, domain.ErrPriceNegative
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}

	product.Price = price
	product.UpdatedAt = time.Now().UTC()
	r.items[id] = product
	return product, nil
}

// Remove удаляет товар из каталога.
func (r *productRepositoryInMemory) Remove(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.items, id)
	for i, orderedID := range r.order {
		if orderedID == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
