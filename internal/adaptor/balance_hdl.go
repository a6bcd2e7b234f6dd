package adaptor

import (
	"net/http"

	"prepaid-shop/internal/usecase"
	"prepaid-shop/pkg/utils"

	"go.uber.org/zap"
)

type BalanceHandler struct {
	service usecase.BalanceService
	log     *zap.Logger
}

func NewBalanceHandler(service usecase.BalanceService, log *zap.Logger) *BalanceHandler {
	return &BalanceHandler{
		service: service,
		log:     log.With(zap.String("handler", "balance")),
	}
}

// GetBalance handles GET /balance?phone=
func (h *BalanceHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if utils.NormalizePhone(phone) == "" {
		utils.ResponseBadRequest(w, "phone is required", nil)
		return
	}

	balance, err := h.service.Get(r.Context(), phone)
	if err != nil {
		handleServiceError(w, h.log, err, "get balance")
		return
	}

	utils.ResponseSuccess(w, balance)
}
