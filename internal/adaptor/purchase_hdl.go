package adaptor

import (
	"encoding/json"
	"net/http"
	"strings"

	"prepaid-shop/internal/dto/request"
	"prepaid-shop/internal/usecase"
	"prepaid-shop/pkg/utils"

	"go.uber.org/zap"
)

// IdempotencyKeyHeader may carry the key instead of the body field
const IdempotencyKeyHeader = "Idempotency-Key"

type PurchaseHandler struct {
	service usecase.PurchaseService
	log     *zap.Logger
}

func NewPurchaseHandler(service usecase.PurchaseService, log *zap.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		service: service,
		log:     log.With(zap.String("handler", "purchase")),
	}
}

// Purchase handles POST /purchase
func (h *PurchaseHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req request.PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	}

	if len(req.Items) == 0 {
		utils.ResponseBadRequest(w, "no items selected", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	receipt, err := h.service.Purchase(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "purchase")
		return
	}

	utils.ResponseSuccess(w, receipt)
}
