package wire

import (
	"prepaid-shop/internal/adaptor"
	"prepaid-shop/pkg/middleware"

	"github.com/go-chi/chi/v5"
)

func wirePurchase(r chi.Router, purchaseHandler *adaptor.PurchaseHandler, limiter *middleware.RateLimiter) {
	// POST /purchase - debit the balance for a cart, rate limited per phone
	r.With(limiter.Handler).Post("/purchase", purchaseHandler.Purchase)
}
