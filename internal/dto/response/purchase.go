package response

import (
	"time"

	"prepaid-shop/internal/data/entity"
)

// ReceiptTimeLayout is how purchased_at is rendered, in the shop's local zone
const ReceiptTimeLayout = "2006-01-02 15:04:05"

type PurchaseItemResponse struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name,omitempty"`
	Qty       int    `json:"qty"`
	Price     int64  `json:"price"`
	Total     int64  `json:"total"`
}

type PurchaseResponse struct {
	PurchaseID   string                 `json:"purchase_id"`
	Items        []PurchaseItemResponse `json:"items"`
	TotalPrice   int64                  `json:"total_price"`
	PurchasedAt  string                 `json:"purchased_at"`
	BalanceAfter int64                  `json:"balance_after"`
	Replayed     bool                   `json:"replayed,omitempty"`
}

func PurchaseToResponse(purchase *entity.Purchase, loc *time.Location) PurchaseResponse {
	items := make([]PurchaseItemResponse, len(purchase.Items))
	for i, item := range purchase.Items {
		items[i] = PurchaseItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Qty:       item.Qty,
			Price:     item.Price,
			Total:     item.Total,
		}
	}

	if loc == nil {
		loc = time.Local
	}

	return PurchaseResponse{
		PurchaseID:   purchase.ID.String(),
		Items:        items,
		TotalPrice:   purchase.TotalPrice,
		PurchasedAt:  purchase.CreatedAt.In(loc).Format(ReceiptTimeLayout),
		BalanceAfter: purchase.BalanceAfter,
	}
}
