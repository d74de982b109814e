package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/bakery-pos/internal/domain"
	"github.com/vladislavdragonenkov/bakery-pos/internal/service/catalog"
	"github.com/vladislavdragonenkov/bakery-pos/internal/service/checkout"
	"github.com/vladislavdragonenkov/bakery-pos/internal/service/reporting"
)

// Handler обслуживает HTTP API кассы. Касса однотерминальная: одна открытая
// корзина на весь сервис, после commit или отмены на её месте открывается
// свежая.
type Handler struct {
	catalog *catalog.Service
	engine  *checkout.Engine
	reports *reporting.Service
	factory *domain.OrderFactory
	logger  *log.Entry

	mu   sync.Mutex
	cart *domain.Order
}

// NewHandler создаёт handler с открытой пустой корзиной.
func NewHandler(
	catalogSvc *catalog.Service,
	engine *checkout.Engine,
	reports *reporting.Service,
	factory *domain.OrderFactory,
	logger *log.Entry,
) *Handler {
	if logger == nil {
		logger = log.New().WithField("component", "httpapi")
	}
	return &Handler{
		catalog: catalogSvc,
		engine:  engine,
		reports: reports,
		factory: factory,
		logger:  logger,
		cart:    factory.New(""),
	}
}

// --- каталог ---

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []domain.Product
		err      error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		products, err = h.catalog.ProductsByCategory(category)
	} else {
		products, err = h.catalog.Products()
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, mapProducts(products))
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_price", "price must be a decimal string")
		return
	}

	product, err := h.catalog.AddProduct(req.Name, req.Category, price, req.Stock)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapProduct(product))
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.catalog.RemoveProduct(id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RestockProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req restockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	product, err := h.catalog.Restock(id, req.Quantity)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProduct(product))
}

func (h *Handler) UpdateProductPrice(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req updatePriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_price", "price must be a decimal string")
		return
	}

	product, err := h.catalog.UpdatePrice(id, price)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProduct(product))
}

func (h *Handler) LowStockProducts(w http.ResponseWriter, r *http.Request) {
	threshold := domain.DefaultLowStockThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid_threshold", "threshold must be a non-negative integer")
			return
		}
		threshold = parsed
	}

	products, err := h.catalog.LowStock(threshold)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, mapProducts(products))
}

// --- корзина ---

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	resp := mapCart(h.cart)
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	product, err := h.catalog.Product(req.ProductID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.mu.Lock()
	err = h.cart.AddItem(product, req.Quantity)
	resp := mapCart(h.cart)
	h.mu.Unlock()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "productID")
	if !ok {
		return
	}

	h.mu.Lock()
	found, err := h.cart.RemoveItem(id)
	resp := mapCart(h.cart)
	h.mu.Unlock()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "line_not_found", "cart has no such product")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) SetCartCustomer(w http.ResponseWriter, r *http.Request) {
	var req setCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	name := req.Name
	if name == "" {
		name = domain.DefaultCustomerName
	}

	h.mu.Lock()
	h.cart.CustomerName = name
	resp := mapCart(h.cart)
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CancelCart(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	orderID := h.cart.ID
	err := h.cart.Cancel()
	if err == nil {
		h.cart = h.factory.New("")
	}
	h.mu.Unlock()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.logger.WithField("order_id", orderID).Info("cart cancelled")
	w.WriteHeader(http.StatusNoContent)
}

// --- оформление ---

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	discount := decimal.Zero
	if r.Body != nil && r.ContentLength != 0 {
		var req checkoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
			return
		}
		if req.Discount != "" {
			parsed, err := decimal.NewFromString(req.Discount)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_discount", "discount must be a decimal string")
				return
			}
			discount = parsed
		}
	}

	// h.mu держится на весь commit: конкурентный AddCartItem не может
	// дописать строку между валидацией остатков и записью в ledger.
	h.mu.Lock()
	receipt, err := h.engine.AttemptCheckout(h.cart, h.factory.TaxRate(), discount)
	if err == nil {
		// Заказ закоммичен: на кассе открывается свежая корзина.
		h.cart = h.factory.New("")
	}
	h.mu.Unlock()

	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapReceipt(receipt))
}

// --- отчёты ---

func (h *Handler) DailyReport(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reports.DailyTotals()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, dailyReportResponse{
		OrderCount:        summary.OrderCount,
		TotalSales:        summary.TotalSales.String(),
		AverageOrderValue: summary.AverageOrderValue.String(),
	})
}

func (h *Handler) MostSoldReport(w http.ResponseWriter, r *http.Request) {
	items, err := h.reports.MostSoldItems()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}

	resp := make([]itemSalesResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, itemSalesResponse{Name: item.Name, Quantity: item.Quantity})
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- helpers ---

// writeDomainError переводит доменные ошибки в HTTP-статусы: not-found — 404,
// конфликты состояния и остатков — 409, ошибки валидации — 400.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsInsufficientStock(err):
		writeError(w, http.StatusConflict, "insufficient_stock", err.Error())
	case errors.Is(err, domain.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, domain.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "empty_cart", err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, domain.ErrPriceNegative),
		errors.Is(err, domain.ErrStockNegative),
		errors.Is(err, domain.ErrProductNameRequired),
		errors.Is(err, domain.ErrProductCategoryRequired):
		writeError(w, http.StatusBadRequest, "invalid_product", err.Error())
	case errors.Is(err, domain.ErrOrderNotOpen):
		writeError(w, http.StatusConflict, "order_not_open", err.Error())
	default:
		h.logger.WithError(err).Error("unhandled error in http handler")
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func mapProduct(product domain.Product) productResponse {
	return productResponse{
		ID:       product.ID,
		Name:     product.Name,
		Category: product.Category,
		Price:    product.Price.String(),
		Stock:    product.Stock,
	}
}

func mapProducts(products []domain.Product) []productResponse {
	out := make([]productResponse, 0, len(products))
	for _, product := range products {
		out = append(out, mapProduct(product))
	}
	return out
}

func mapCart(order *domain.Order) cartResponse {
	lines := make([]cartLineResponse, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, cartLineResponse{
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice.String(),
			Quantity:  line.Quantity,
			LineTotal: line.LineTotal.String(),
		})
	}
	return cartResponse{
		OrderID:  order.ID,
		Customer: order.CustomerName,
		Status:   string(order.Status),
		Lines:    lines,
		Subtotal: order.Subtotal.String(),
		Tax:      order.TaxAmount.String(),
		Discount: order.DiscountAmount.String(),
		Total:    order.Total.String(),
	}
}

func mapReceipt(receipt domain.Receipt) receiptResponse {
	lines := make([]cartLineResponse, 0, len(receipt.Lines))
	for _, line := range receipt.Lines {
		lines = append(lines, cartLineResponse{
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice.String(),
			Quantity:  line.Quantity,
			LineTotal: line.LineTotal.String(),
		})
	}
	return receiptResponse{
		OrderID:     receipt.OrderID,
		Customer:    receipt.CustomerName,
		Lines:       lines,
		Subtotal:    receipt.Subtotal.String(),
		Tax:         receipt.TaxAmount.String(),
		Discount:    receipt.DiscountAmount.String(),
		Total:       receipt.Total.String(),
		CommittedAt: receipt.CommittedAt.Format(time.RFC3339Nano),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: code, Message: msg})
}
