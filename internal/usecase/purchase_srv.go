package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"prepaid-shop/internal/data/entity"
	"prepaid-shop/internal/data/repository"
	"prepaid-shop/internal/dto/request"
	"prepaid-shop/internal/dto/response"
	"prepaid-shop/pkg/cache"
	"prepaid-shop/pkg/events"
	"prepaid-shop/pkg/metrics"
	"prepaid-shop/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PurchaseService interface {
	// Purchase debits the cart total from the user's balance and returns a
	// receipt. A repeated idempotency key returns the first receipt unchanged.
	Purchase(ctx context.Context, req *request.PurchaseRequest) (*response.PurchaseResponse, error)
}

type purchaseService struct {
	repo         *repository.Repository
	changes      *balanceChanges
	now          func() time.Time
	timeout      time.Duration
	verifyPrices bool
	loc          *time.Location
	log          *zap.Logger
}

func NewPurchaseService(repo *repository.Repository, deps Dependencies, config *utils.Config, log *zap.Logger) PurchaseService {
	deps = deps.withDefaults()
	log = log.With(zap.String("service", "purchase"))

	return &purchaseService{
		repo:         repo,
		changes:      newBalanceChanges(deps, log),
		now:          deps.Now,
		timeout:      config.Database.QueryTimeout,
		verifyPrices: config.Purchase.VerifyPrices,
		loc:          config.App.Location(),
		log:          log,
	}
}

func (s *purchaseService) Purchase(ctx context.Context, req *request.PurchaseRequest) (*response.PurchaseResponse, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: no items selected", ErrInvalidArgument)
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Purchase validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("%w: validation failed: %s", ErrInvalidArgument, utils.FormatValidationErrors(errs))
	}

	phone := utils.NormalizePhone(req.Phone)
	key := strings.TrimSpace(req.IdempotencyKey)

	items, total, err := buildLineItems(req.Items)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	// a retry replays the stored receipt even if catalog prices moved since
	if key != "" {
		existing, err := s.repo.Purchase.FindByIdempotencyKey(ctx, phone, key)
		if err != nil {
			metrics.RecordWorkflow("purchase", metrics.ResultError)
			return nil, classifyStoreError("purchase", err)
		}
		if existing != nil {
			return s.replay(existing), nil
		}
	}

	if s.verifyPrices {
		if err := s.resolvePrices(ctx, items); err != nil {
			metrics.RecordWorkflow("purchase", metrics.ResultError)
			return nil, err
		}
	}

	now := s.now()
	purchase := &entity.Purchase{
		ID:         uuid.New(),
		Phone:      phone,
		TotalPrice: total,
		CreatedAt:  now,
		Items:      items,
	}
	if key != "" {
		purchase.IdempotencyKey = &key
	}

	var (
		replayed   *entity.Purchase
		lastCharge *time.Time
	)

	err = s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		if key != "" {
			existing, err := tx.Purchase.FindByIdempotencyKey(ctx, phone, key)
			if err != nil {
				return err
			}
			if existing != nil {
				replayed = existing
				return nil
			}
		}

		// row lock serializes every balance mutation of this user
		user, err := tx.User.FindByPhoneForUpdate(ctx, phone)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("%w: user %s not found", ErrNotFound, phone)
		}

		if total > user.Balance {
			return fmt.Errorf("%w: total %d exceeds balance %d", ErrInsufficientBalance, total, user.Balance)
		}

		lastCharge = user.LastChargeDate
		purchase.BalanceAfter = user.Balance - total
		if err := tx.User.UpdateBalance(ctx, phone, purchase.BalanceAfter, nil); err != nil {
			return err
		}

		return tx.Purchase.Create(ctx, purchase)
	})

	// a concurrent request with the same key committed first
	if err != nil && key != "" && isUniqueViolation(err) {
		existing, findErr := s.repo.Purchase.FindByIdempotencyKey(ctx, phone, key)
		if findErr == nil && existing != nil {
			replayed, err = existing, nil
		}
	}

	if err != nil {
		metrics.RecordWorkflow("purchase", metrics.ResultError)
		if errors.Is(err, ErrInsufficientBalance) || errors.Is(err, ErrNotFound) {
			s.log.Warn("Purchase rejected", zap.Error(err), zap.String("phone", phone))
		} else {
			s.log.Error("Failed to process purchase",
				zap.Error(err),
				zap.String("phone", phone),
				zap.Int64("total", total),
			)
		}
		return nil, classifyStoreError("purchase", err)
	}

	if replayed != nil {
		return s.replay(replayed), nil
	}

	s.changes.applied(ctx, cache.BalanceSnapshot{
		Phone:          phone,
		Balance:        purchase.BalanceAfter,
		LastChargeDate: lastCharge,
	}, events.ReasonPurchase, now)
	metrics.RecordWorkflow("purchase", metrics.ResultSuccess)
	metrics.AddDebited(total)

	s.log.Info("Purchase completed",
		zap.String("purchase_id", purchase.ID.String()),
		zap.String("phone", phone),
		zap.Int("item_count", len(items)),
		zap.Int64("total", total),
		zap.Int64("balance_after", purchase.BalanceAfter),
	)

	resp := response.PurchaseToResponse(purchase, s.loc)
	return &resp, nil
}

func (s *purchaseService) replay(existing *entity.Purchase) *response.PurchaseResponse {
	s.log.Info("Purchase replayed",
		zap.String("purchase_id", existing.ID.String()),
		zap.String("phone", existing.Phone),
	)
	metrics.RecordWorkflow("purchase", metrics.ResultReplay)

	resp := response.PurchaseToResponse(existing, s.loc)
	resp.Replayed = true
	return &resp
}

// buildLineItems checks every line and sums price * qty
func buildLineItems(lines []request.PurchaseItem) ([]entity.PurchaseItem, int64, error) {
	items := make([]entity.PurchaseItem, len(lines))
	var total int64

	for i, line := range lines {
		if line.ProductID <= 0 {
			return nil, 0, fmt.Errorf("%w: item %d: invalid product id", ErrInvalidArgument, i)
		}
		if line.Qty <= 0 {
			return nil, 0, fmt.Errorf("%w: item %d: quantity must be at least 1", ErrInvalidArgument, i)
		}
		if line.Price < 0 {
			return nil, 0, fmt.Errorf("%w: item %d: price must not be negative", ErrInvalidArgument, i)
		}

		qty := int64(line.Qty)
		if line.Price > 0 && qty > math.MaxInt64/line.Price {
			return nil, 0, fmt.Errorf("%w: item %d: total too large", ErrInvalidArgument, i)
		}
		lineTotal := line.Price * qty

		if line.Total != 0 && line.Total != lineTotal {
			return nil, 0, fmt.Errorf("%w: item %d: total %d does not match price x qty %d", ErrInvalidArgument, i, line.Total, lineTotal)
		}
		if total > math.MaxInt64-lineTotal {
			return nil, 0, fmt.Errorf("%w: order total too large", ErrInvalidArgument)
		}
		total += lineTotal

		items[i] = entity.PurchaseItem{
			Position:  i,
			ProductID: line.ProductID,
			Qty:       line.Qty,
			Price:     line.Price,
			Total:     lineTotal,
		}
	}

	return items, total, nil
}

// resolvePrices rejects lines whose price differs from the catalog and fills
// in product names for the receipt.
func (s *purchaseService) resolvePrices(ctx context.Context, items []entity.PurchaseItem) error {
	ids := make([]int64, 0, len(items))
	seen := make(map[int64]bool, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}

	products, err := s.repo.Product.FindByIDs(ctx, ids)
	if err != nil {
		return classifyStoreError("resolve product prices", err)
	}

	for i := range items {
		product, ok := products[items[i].ProductID]
		if !ok {
			return fmt.Errorf("%w: product %d not found", ErrNotFound, items[i].ProductID)
		}
		if product.Price != items[i].Price {
			s.log.Warn("Purchase price mismatch",
				zap.Int64("product_id", product.ID),
				zap.Int64("catalog_price", product.Price),
				zap.Int64("client_price", items[i].Price),
			)
			return fmt.Errorf("%w: price mismatch for product %d", ErrInvalidArgument, product.ID)
		}
		items[i].Name = product.Name
	}

	return nil
}
