package repository

import (
	"context"
	"errors"
	"fmt"

	"prepaid-shop/internal/data/entity"
	"prepaid-shop/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PurchaseRepository interface {
	// Create stores the purchase and its items
	Create(ctx context.Context, purchase *entity.Purchase) error
	FindByIdempotencyKey(ctx context.Context, phone, key string) (*entity.Purchase, error)
}

type purchaseRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPurchaseRepository(db database.PgxIface, log *zap.Logger) PurchaseRepository {
	return &purchaseRepository{
		db:  db,
		log: log.With(zap.String("repository", "purchase")),
	}
}

func (r *purchaseRepository) Create(ctx context.Context, purchase *entity.Purchase) error {
	query := `
		INSERT INTO purchases (id, phone, idempotency_key, total_price, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		purchase.ID,
		purchase.Phone,
		purchase.IdempotencyKey,
		purchase.TotalPrice,
		purchase.BalanceAfter,
		purchase.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create purchase",
			zap.Error(err),
			zap.String("purchase_id", purchase.ID.String()),
			zap.String("phone", purchase.Phone),
		)
		return fmt.Errorf("create purchase %s: %w", purchase.ID.String(), err)
	}

	itemQuery := `
		INSERT INTO purchase_items (purchase_id, position, product_id, name, qty, price, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for i := range purchase.Items {
		item := &purchase.Items[i]
		item.PurchaseID = purchase.ID
		item.Position = i

		_, err := r.db.Exec(ctx, itemQuery,
			item.PurchaseID,
			item.Position,
			item.ProductID,
			item.Name,
			item.Qty,
			item.Price,
			item.Total,
		)
		if err != nil {
			r.log.Error("Failed to create purchase item",
				zap.Error(err),
				zap.String("purchase_id", purchase.ID.String()),
				zap.Int64("product_id", item.ProductID),
			)
			return fmt.Errorf("create purchase item %d of %s: %w", i, purchase.ID.String(), err)
		}
	}

	return nil
}

func (r *purchaseRepository) FindByIdempotencyKey(ctx context.Context, phone, key string) (*entity.Purchase, error) {
	query := `
		SELECT id, phone, idempotency_key, total_price, balance_after, created_at
		FROM purchases
		WHERE phone = $1 AND idempotency_key = $2
	`

	var purchase entity.Purchase
	err := r.db.QueryRow(ctx, query, phone, key).Scan(
		&purchase.ID,
		&purchase.Phone,
		&purchase.IdempotencyKey,
		&purchase.TotalPrice,
		&purchase.BalanceAfter,
		&purchase.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find purchase by idempotency key",
			zap.Error(err),
			zap.String("phone", phone),
		)
		return nil, fmt.Errorf("find purchase by idempotency key: %w", err)
	}

	itemQuery := `
		SELECT purchase_id, position, product_id, name, qty, price, total
		FROM purchase_items
		WHERE purchase_id = $1
		ORDER BY position
	`

	rows, err := r.db.Query(ctx, itemQuery, purchase.ID)
	if err != nil {
		return nil, fmt.Errorf("find items of purchase %s: %w", purchase.ID.String(), err)
	}
	defer rows.Close()

	for rows.Next() {
		var item entity.PurchaseItem
		err := rows.Scan(
			&item.PurchaseID,
			&item.Position,
			&item.ProductID,
			&item.Name,
			&item.Qty,
			&item.Price,
			&item.Total,
		)
		if err != nil {
			r.log.Error("Failed to scan purchase item row", zap.Error(err))
			return nil, fmt.Errorf("scan purchase item row: %w", err)
		}
		purchase.Items = append(purchase.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase item rows: %w", err)
	}

	return &purchase, nil
}
