package response

import (
	"time"

	"prepaid-shop/internal/data/entity"
)

type ChargeCreatedResponse struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id"`
}

type ApprovalResponse struct {
	Success bool   `json:"success"`
	Balance *int64 `json:"balance,omitempty"`
	Already bool   `json:"already,omitempty"`
}

type ChargeRequestResponse struct {
	ID          int64      `json:"id"`
	Phone       string     `json:"phone"`
	Amount      int64      `json:"amount"`
	Approved    bool       `json:"approved"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
}

type ChargeRequestListResponse struct {
	Items []ChargeRequestResponse `json:"items"`
}

func ChargeRequestToResponse(req *entity.ChargeRequest) ChargeRequestResponse {
	return ChargeRequestResponse{
		ID:          req.ID,
		Phone:       req.Phone,
		Amount:      req.Amount,
		Approved:    req.Approved,
		Status:      string(req.Status()),
		RequestedAt: req.RequestedAt,
		ApprovedAt:  req.ApprovedAt,
	}
}
