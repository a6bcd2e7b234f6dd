package usecase

import (
	"context"
	"fmt"
	"time"

	"prepaid-shop/internal/data/repository"
	"prepaid-shop/internal/dto/response"
	"prepaid-shop/pkg/cache"
	"prepaid-shop/pkg/utils"

	"go.uber.org/zap"
)

type BalanceService interface {
	Get(ctx context.Context, phone string) (*response.BalanceResponse, error)
}

type balanceService struct {
	repo    *repository.Repository
	cache   cache.BalanceCache
	timeout time.Duration
	log     *zap.Logger
}

func NewBalanceService(repo *repository.Repository, balanceCache cache.BalanceCache, config *utils.Config, log *zap.Logger) BalanceService {
	if balanceCache == nil {
		balanceCache = cache.NopBalanceCache{}
	}

	return &balanceService{
		repo:    repo,
		cache:   balanceCache,
		timeout: config.Database.QueryTimeout,
		log:     log.With(zap.String("service", "balance")),
	}
}

func (s *balanceService) Get(ctx context.Context, rawPhone string) (*response.BalanceResponse, error) {
	phone := utils.NormalizePhone(rawPhone)
	if phone == "" {
		return nil, fmt.Errorf("%w: phone is required", ErrInvalidArgument)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	// cache errors degrade to a store read
	snapshot, err := s.cache.Get(ctx, phone)
	if err != nil {
		s.log.Warn("Failed to read cached balance", zap.Error(err), zap.String("phone", phone))
	}
	if snapshot != nil {
		return &response.BalanceResponse{
			Phone:          snapshot.Phone,
			Balance:        snapshot.Balance,
			LastChargeDate: snapshot.LastChargeDate,
		}, nil
	}

	user, err := s.repo.User.FindByPhone(ctx, phone)
	if err != nil {
		return nil, classifyStoreError("get balance", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s not found", ErrNotFound, phone)
	}

	// a balance change that committed after our read has already written
	// through, and Fill leaves it in place
	_, err = s.cache.Fill(ctx, cache.BalanceSnapshot{
		Phone:          user.Phone,
		Balance:        user.Balance,
		LastChargeDate: user.LastChargeDate,
	})
	if err != nil {
		s.log.Warn("Failed to cache balance", zap.Error(err), zap.String("phone", phone))
	}

	return &response.BalanceResponse{
		Phone:          user.Phone,
		Balance:        user.Balance,
		LastChargeDate: user.LastChargeDate,
	}, nil
}
