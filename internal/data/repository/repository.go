package repository

import (
	"context"

	"prepaid-shop/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	User          UserRepository
	ChargeRequest ChargeRequestRepository
	Product       ProductRepository
	Purchase      PurchaseRepository

	db  database.PgxIface
	log *zap.Logger
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		User:          NewUserRepository(db, log),
		ChargeRequest: NewChargeRequestRepository(db, log),
		Product:       NewProductRepository(db, log),
		Purchase:      NewPurchaseRepository(db, log),
		db:            db,
		log:           log,
	}
}

// WithinTx runs fn with repositories bound to a single transaction. A
// Repository assembled by hand (no database) runs fn directly against itself.
func (r *Repository) WithinTx(ctx context.Context, fn func(tx *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}

	return database.WithTx(ctx, r.db, func(tx database.PgxIface) error {
		return fn(NewRepository(tx, r.log))
	})
}
