package wire

import (
	"prepaid-shop/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireProduct(r chi.Router, productHandler *adaptor.ProductHandler) {
	// GET /products?q= - catalog, optionally filtered by name (public)
	r.Get("/products", productHandler.ListProducts)
}
