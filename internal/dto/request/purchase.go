package request

type PurchaseItem struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Qty       int   `json:"qty" validate:"gt=0,lte=2147483647"` // purchase_items.qty is INT
	Price     int64 `json:"price" validate:"gte=0"`
	// Total is optional; when sent it must equal price * qty
	Total int64 `json:"total" validate:"gte=0"`
}

type PurchaseRequest struct {
	Phone          string         `json:"phone" validate:"required,phone"`
	Items          []PurchaseItem `json:"items" validate:"dive"`
	IdempotencyKey string         `json:"idempotency_key,omitempty" validate:"omitempty,max=128"`
}
