package wire

import (
	"prepaid-shop/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireBalance(r chi.Router, balanceHandler *adaptor.BalanceHandler) {
	// GET /balance?phone= - current balance (public)
	r.Get("/balance", balanceHandler.GetBalance)
}
