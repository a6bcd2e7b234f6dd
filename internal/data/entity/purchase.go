package entity

import (
	"time"

	"github.com/google/uuid"
)

type Purchase struct {
	ID             uuid.UUID      `db:"id"`
	Phone          string         `db:"phone"`
	IdempotencyKey *string        `db:"idempotency_key"`
	TotalPrice     int64          `db:"total_price"`
	BalanceAfter   int64          `db:"balance_after"`
	CreatedAt      time.Time      `db:"created_at"`
	Items          []PurchaseItem `db:"-"`
}

type PurchaseItem struct {
	PurchaseID uuid.UUID `db:"purchase_id"`
	Position   int       `db:"position"`
	ProductID  int64     `db:"product_id"`
	Name       string    `db:"name"`
	Qty        int       `db:"qty"`
	Price      int64     `db:"price"`
	Total      int64     `db:"total"`
}
