package adaptor

import (
	"encoding/json"
	"net/http"

	"prepaid-shop/internal/dto/request"
	"prepaid-shop/internal/usecase"
	"prepaid-shop/pkg/utils"

	"go.uber.org/zap"
)

type ChargeHandler struct {
	service usecase.ChargeService
	log     *zap.Logger
}

func NewChargeHandler(service usecase.ChargeService, log *zap.Logger) *ChargeHandler {
	return &ChargeHandler{
		service: service,
		log:     log.With(zap.String("handler", "charge")),
	}
}

// CreateChargeRequest handles POST /charge-requests (public)
func (h *ChargeHandler) CreateChargeRequest(w http.ResponseWriter, r *http.Request) {
	var req request.CreateChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	created, err := h.service.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create charge request")
		return
	}

	utils.ResponseCreated(w, created)
}

// ListChargeRequests handles GET /charge-requests?status= (admin)
func (h *ChargeHandler) ListChargeRequests(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		handleServiceError(w, h.log, err, "list charge requests")
		return
	}

	utils.ResponseSuccess(w, list)
}

// ApproveChargeRequest handles PUT /charge-requests (admin)
func (h *ChargeHandler) ApproveChargeRequest(w http.ResponseWriter, r *http.Request) {
	var req request.ApproveChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if _, ok := utils.ParseID(string(req.ID)); !ok {
		utils.ResponseBadRequest(w, "invalid id", nil)
		return
	}

	result, err := h.service.Approve(r.Context(), string(req.ID))
	if err != nil {
		handleServiceError(w, h.log, err, "approve charge request")
		return
	}

	utils.ResponseSuccess(w, result)
}
