package repository

import (
	"context"
	"fmt"

	"prepaid-shop/internal/data/entity"
	"prepaid-shop/pkg/database"

	"go.uber.org/zap"
)

type ProductRepository interface {
	FindAll(ctx context.Context) ([]*entity.Product, error)
	// FindByIDs returns the products found, keyed by id; missing ids are absent
	FindByIDs(ctx context.Context, ids []int64) (map[int64]*entity.Product, error)
}

type productRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewProductRepository(db database.PgxIface, log *zap.Logger) ProductRepository {
	return &productRepository{
		db:  db,
		log: log.With(zap.String("repository", "product")),
	}
}

func (r *productRepository) FindAll(ctx context.Context) ([]*entity.Product, error) {
	query := `SELECT id, name, price FROM products ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.Error("Failed to list products", zap.Error(err))
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []*entity.Product
	for rows.Next() {
		var p entity.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price); err != nil {
			r.log.Error("Failed to scan product row", zap.Error(err))
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}

func (r *productRepository) FindByIDs(ctx context.Context, ids []int64) (map[int64]*entity.Product, error) {
	products := make(map[int64]*entity.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	query := `SELECT id, name, price FROM products WHERE id = ANY($1)`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		r.log.Error("Failed to find products by IDs",
			zap.Error(err),
			zap.Int64s("product_ids", ids),
		)
		return nil, fmt.Errorf("find products by IDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p entity.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price); err != nil {
			r.log.Error("Failed to scan product row", zap.Error(err))
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products[p.ID] = &p
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}
