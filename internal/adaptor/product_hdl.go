package adaptor

import (
	"net/http"

	"prepaid-shop/internal/usecase"
	"prepaid-shop/pkg/utils"

	"go.uber.org/zap"
)

type ProductHandler struct {
	service usecase.ProductService
	log     *zap.Logger
}

func NewProductHandler(service usecase.ProductService, log *zap.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		log:     log.With(zap.String("handler", "product")),
	}
}

// ListProducts handles GET /products?q=
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, h.log, err, "list products")
		return
	}

	utils.ResponseSuccess(w, products)
}
