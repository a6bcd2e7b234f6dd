package adaptor

import (
	"errors"
	"net/http"

	"prepaid-shop/internal/usecase"
	"prepaid-shop/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Charge   *ChargeHandler
	Purchase *PurchaseHandler
	Balance  *BalanceHandler
	Product  *ProductHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Charge:   NewChargeHandler(service.Charge, log),
		Purchase: NewPurchaseHandler(service.Purchase, log),
		Balance:  NewBalanceHandler(service.Balance, log),
		Product:  NewProductHandler(service.Product, log),
	}
}

// handleServiceError maps the usecase error taxonomy onto HTTP statuses.
// Unclassified errors never leak their message.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	switch {
	case errors.Is(err, usecase.ErrInvalidArgument):
		log.Warn(operation+" failed - invalid argument",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, usecase.ErrNotFound):
		log.Warn(operation+" failed - not found",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, usecase.ErrInsufficientBalance):
		log.Info(operation+" failed - insufficient balance",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponsePaymentRequired(w, "Insufficient balance", "insufficient_balance")

	case errors.Is(err, usecase.ErrTransient):
		log.Warn(operation+" failed - store unavailable",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseServiceUnavailable(w, "Service temporarily unavailable, please retry", 1)

	default:
		log.Error(operation+" failed",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
