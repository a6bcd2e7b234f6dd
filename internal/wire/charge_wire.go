package wire

import (
	"net/http"

	"prepaid-shop/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireCharge(r chi.Router, chargeHandler *adaptor.ChargeHandler, admin func(http.Handler) http.Handler) {
	r.Route("/charge-requests", func(r chi.Router) {
		// POST /charge-requests - ask for a top-up (public)
		r.Post("/", chargeHandler.CreateChargeRequest)

		// admin only
		r.Group(func(r chi.Router) {
			r.Use(admin)

			// GET /charge-requests?status=pending|approved|all
			r.Get("/", chargeHandler.ListChargeRequests)

			// PUT /charge-requests - approve, body {id}
			r.Put("/", chargeHandler.ApproveChargeRequest)
		})
	})
}
