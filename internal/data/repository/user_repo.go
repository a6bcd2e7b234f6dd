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

type UserRepository interface {
	FindByPhone(ctx context.Context, phone string) (*entity.User, error)
	// FindByPhoneForUpdate locks the row until the surrounding transaction ends
	FindByPhoneForUpdate(ctx context.Context, phone string) (*entity.User, error)
	CreateIfMissing(ctx context.Context, phone string) error
	// UpdateBalance stores balance; a nil lastChargeDate keeps the current value
	UpdateBalance(ctx context.Context, phone string, balance int64, lastChargeDate *time.Time) error
}

type userRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewUserRepository(db database.PgxIface, log *zap.Logger) UserRepository {
	return &userRepository{
		db:  db,
		log: log.With(zap.String("repository", "user")),
	}
}

const selectUser = `
		SELECT phone, balance, last_charge_date, created_at, updated_at
		FROM users
		WHERE phone = $1
`

func (ur *userRepository) FindByPhone(ctx context.Context, phone string) (*entity.User, error) {
	return ur.findOne(ctx, selectUser, phone)
}

func (ur *userRepository) FindByPhoneForUpdate(ctx context.Context, phone string) (*entity.User, error) {
	return ur.findOne(ctx, selectUser+" FOR UPDATE", phone)
}

func (ur *userRepository) findOne(ctx context.Context, query, phone string) (*entity.User, error) {
	var user entity.User
	err := ur.db.QueryRow(ctx, query, phone).Scan(
		&user.Phone,
		&user.Balance,
		&user.LastChargeDate,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		ur.log.Error("Failed to find user by phone",
			zap.Error(err),
			zap.String("phone", phone),
		)
		return nil, fmt.Errorf("find user by phone %s: %w", phone, err)
	}

	return &user, nil
}

// CreateIfMissing inserts a zero-balance user unless one already exists
func (ur *userRepository) CreateIfMissing(ctx context.Context, phone string) error {
	query := `
		INSERT INTO users (phone, balance, created_at, updated_at)
		VALUES ($1, 0, NOW(), NOW())
		ON CONFLICT (phone) DO NOTHING
	`

	result, err := ur.db.Exec(ctx, query, phone)
	if err != nil {
		ur.log.Error("Failed to create user",
			zap.Error(err),
			zap.String("phone", phone),
		)
		return fmt.Errorf("create user %s: %w", phone, err)
	}

	if result.RowsAffected() > 0 {
		ur.log.Info("User created", zap.String("phone", phone))
	}

	return nil
}

func (ur *userRepository) UpdateBalance(ctx context.Context, phone string, balance int64, lastChargeDate *time.Time) error {
	query := `
		UPDATE users
		SET balance = $2,
		    last_charge_date = COALESCE($3, last_charge_date),
		    updated_at = NOW()
		WHERE phone = $1
	`

	result, err := ur.db.Exec(ctx, query, phone, balance, lastChargeDate)
	if err != nil {
		ur.log.Error("Failed to update balance",
			zap.Error(err),
			zap.String("phone", phone),
			zap.Int64("balance", balance),
		)
		return fmt.Errorf("update balance of %s: %w", phone, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found", phone)
	}

	return nil
}
