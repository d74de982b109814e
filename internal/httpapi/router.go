package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter собирает маршруты кассы: каталог, корзина, оформление, отчёты.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", handler.ListProducts)
		r.Post("/", handler.CreateProduct)
		r.Get("/low-stock", handler.LowStockProducts)
		r.Delete("/{id}", handler.DeleteProduct)
		r.Post("/{id}/restock", handler.RestockProduct)
		r.Put("/{id}/price", handler.UpdateProductPrice)
	})

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", handler.GetCart)
		r.Delete("/", handler.CancelCart)
		r.Post("/items", handler.AddCartItem)
		r.Delete("/items/{productID}", handler.RemoveCartItem)
		r.Put("/customer", handler.SetCartCustomer)
	})

	r.Post("/checkout", handler.Checkout)

	r.Route("/reports", func(r chi.Router) {
		r.Get("/daily", handler.DailyReport)
		r.Get("/most-sold", handler.MostSoldReport)
	})

	return r
}
