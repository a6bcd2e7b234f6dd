package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prepaid-shop/internal/data/entity"
	"prepaid-shop/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ChargeRequestRepository interface {
	Create(ctx context.Context, req *entity.ChargeRequest) error
	// FindByIDForUpdate locks the row until the surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id int64) (*entity.ChargeRequest, error)
	// FindAll lists requests newest first; ChargeStatusAll disables the filter
	FindAll(ctx context.Context, status entity.ChargeRequestStatus) ([]*entity.ChargeRequest, error)

	// MarkApproved flips a pending request to approved. It reports false when
	// the request was already approved (or does not exist), in which case
	// nothing was written.
	MarkApproved(ctx context.Context, id int64, at time.Time) (bool, error)
}

type chargeRequestRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewChargeRequestRepository(db database.PgxIface, log *zap.Logger) ChargeRequestRepository {
	return &chargeRequestRepository{
		db:  db,
		log: log.With(zap.String("repository", "charge_request")),
	}
}

const selectChargeRequest = `
		SELECT id, phone, amount, approved, requested_at, approved_at
		FROM charge_requests
`

func (r *chargeRequestRepository) Create(ctx context.Context, req *entity.ChargeRequest) error {
	query := `
		INSERT INTO charge_requests (phone, amount, approved, requested_at)
		VALUES ($1, $2, FALSE, $3)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query, req.Phone, req.Amount, req.RequestedAt).Scan(&req.ID)
	if err != nil {
		r.log.Error("Failed to create charge request",
			zap.Error(err),
			zap.String("phone", req.Phone),
			zap.Int64("amount", req.Amount),
		)
		return fmt.Errorf("create charge request for %s: %w", req.Phone, err)
	}

	return nil
}

func (r *chargeRequestRepository) FindByIDForUpdate(ctx context.Context, id int64) (*entity.ChargeRequest, error) {
	query := selectChargeRequest + " WHERE id = $1 FOR UPDATE"

	var req entity.ChargeRequest
	err := r.db.QueryRow(ctx, query, id).Scan(
		&req.ID,
		&req.Phone,
		&req.Amount,
		&req.Approved,
		&req.RequestedAt,
		&req.ApprovedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find charge request by ID",
			zap.Error(err),
			zap.Int64("charge_request_id", id),
		)
		return nil, fmt.Errorf("find charge request by ID %d: %w", id, err)
	}

	return &req, nil
}

func (r *chargeRequestRepository) FindAll(ctx context.Context, status entity.ChargeRequestStatus) ([]*entity.ChargeRequest, error) {
	query := selectChargeRequest
	args := []any{}

	switch status {
	case entity.ChargeStatusPending:
		query += " WHERE approved = $1"
		args = append(args, false)
	case entity.ChargeStatusApproved:
		query += " WHERE approved = $1"
		args = append(args, true)
	}
	query += " ORDER BY requested_at DESC, id DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list charge requests",
			zap.Error(err),
			zap.String("status", string(status)),
		)
		return nil, fmt.Errorf("list charge requests %s: %w", status, err)
	}
	defer rows.Close()

	var requests []*entity.ChargeRequest
	for rows.Next() {
		var req entity.ChargeRequest
		err := rows.Scan(
			&req.ID,
			&req.Phone,
			&req.Amount,
			&req.Approved,
			&req.RequestedAt,
			&req.ApprovedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan charge request row", zap.Error(err))
			return nil, fmt.Errorf("scan charge request row: %w", err)
		}
		requests = append(requests, &req)
	}

	if err := rows.Err(); err != nil {
		r.log.Error("Rows iteration error", zap.Error(err))
		return nil, fmt.Errorf("iterate charge request rows: %w", err)
	}

	return requests, nil
}

func (r *chargeRequestRepository) MarkApproved(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `
		UPDATE charge_requests
		SET approved = TRUE, approved_at = $2
		WHERE id = $1 AND approved = FALSE
	`

	result, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		r.log.Error("Failed to approve charge request",
			zap.Error(err),
			zap.Int64("charge_request_id", id),
		)
		return false, fmt.Errorf("approve charge request %d: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}
