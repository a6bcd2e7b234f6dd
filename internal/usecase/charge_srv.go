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
	"prepaid-shop/pkg/notify"
	"prepaid-shop/pkg/utils"

	"go.uber.org/zap"
)

type ChargeService interface {
	// Create records a pending charge request, creating the user on first use
	Create(ctx context.Context, req *request.CreateChargeRequest) (*response.ChargeCreatedResponse, error)
	List(ctx context.Context, status string) (*response.ChargeRequestListResponse, error)

	// Approve credits the request's amount to its user exactly once.
	// Approving an approved request succeeds with Already set.
	Approve(ctx context.Context, rawID string) (*response.ApprovalResponse, error)
}

type chargeService struct {
	repo      *repository.Repository
	changes   *balanceChanges
	notifier  notify.Notifier
	now       func() time.Time
	timeout   time.Duration
	publicURL string
	log       *zap.Logger
}

func NewChargeService(repo *repository.Repository, deps Dependencies, config *utils.Config, log *zap.Logger) ChargeService {
	deps = deps.withDefaults()
	log = log.With(zap.String("service", "charge"))

	return &chargeService{
		repo:      repo,
		changes:   newBalanceChanges(deps, log),
		notifier:  deps.Notifier,
		now:       deps.Now,
		timeout:   config.Database.QueryTimeout,
		publicURL: strings.TrimRight(config.App.PublicURL, "/"),
		log:       log,
	}
}

func (s *chargeService) Create(ctx context.Context, req *request.CreateChargeRequest) (*response.ChargeCreatedResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create charge request validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("%w: validation failed: %s", ErrInvalidArgument, utils.FormatValidationErrors(errs))
	}

	phone := utils.NormalizePhone(req.Phone)

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	charge := &entity.ChargeRequest{
		Phone:       phone,
		Amount:      req.Amount,
		RequestedAt: s.now(),
	}

	err := s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		if err := tx.User.CreateIfMissing(ctx, phone); err != nil {
			return err
		}
		return tx.ChargeRequest.Create(ctx, charge)
	})
	if err != nil {
		metrics.RecordWorkflow("charge_request", metrics.ResultError)
		return nil, classifyStoreError("create charge request", err)
	}

	s.log.Info("Charge request created",
		zap.Int64("charge_request_id", charge.ID),
		zap.String("phone", phone),
		zap.Int64("amount", charge.Amount),
	)
	metrics.RecordWorkflow("charge_request", metrics.ResultSuccess)

	go s.notifyAdmins(context.WithoutCancel(ctx), charge)

	return &response.ChargeCreatedResponse{Success: true, ID: charge.ID}, nil
}

// notifyAdmins is fire-and-forget; errors never reach the caller
func (s *chargeService) notifyAdmins(ctx context.Context, charge *entity.ChargeRequest) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	title := "New charge request"
	body := fmt.Sprintf("%s requested %d ks (request #%d)", charge.Phone, charge.Amount, charge.ID)
	link := s.publicURL + "/admin/charge-requests"

	if err := s.notifier.Notify(ctx, title, body, link); err != nil {
		s.log.Warn("Failed to notify admins",
			zap.Error(err),
			zap.Int64("charge_request_id", charge.ID),
		)
	}
}

func (s *chargeService) List(ctx context.Context, status string) (*response.ChargeRequestListResponse, error) {
	filter, err := parseChargeStatus(status)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	requests, err := s.repo.ChargeRequest.FindAll(ctx, filter)
	if err != nil {
		return nil, classifyStoreError("list charge requests", err)
	}

	items := make([]response.ChargeRequestResponse, len(requests))
	for i, req := range requests {
		items[i] = response.ChargeRequestToResponse(req)
	}

	s.log.Debug("Charge requests listed",
		zap.String("status", string(filter)),
		zap.Int("count", len(items)),
	)

	return &response.ChargeRequestListResponse{Items: items}, nil
}

func parseChargeStatus(status string) (entity.ChargeRequestStatus, error) {
	switch entity.ChargeRequestStatus(strings.ToLower(strings.TrimSpace(status))) {
	case "", entity.ChargeStatusAll:
		return entity.ChargeStatusAll, nil
	case entity.ChargeStatusPending:
		return entity.ChargeStatusPending, nil
	case entity.ChargeStatusApproved:
		return entity.ChargeStatusApproved, nil
	default:
		return "", fmt.Errorf("%w: invalid status %q", ErrInvalidArgument, status)
	}
}

func (s *chargeService) Approve(ctx context.Context, rawID string) (*response.ApprovalResponse, error) {
	id, ok := utils.ParseID(rawID)
	if !ok {
		s.log.Warn("Approve with invalid id", zap.String("id", rawID))
		return nil, fmt.Errorf("%w: invalid id", ErrInvalidArgument)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now()

	var (
		charge     *entity.ChargeRequest
		newBalance int64
		already    bool
	)

	// The request row lock plus the approved = false condition make the
	// flag flip and the credit one unit; a failed credit rolls back the flag.
	err := s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		found, err := tx.ChargeRequest.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if found == nil {
			return fmt.Errorf("%w: charge request %d not found", ErrNotFound, id)
		}
		charge = found

		if charge.Approved {
			already = true
			return nil
		}

		applied, err := tx.ChargeRequest.MarkApproved(ctx, id, now)
		if err != nil {
			return err
		}
		if !applied {
			already = true
			return nil
		}

		user, err := tx.User.FindByPhoneForUpdate(ctx, charge.Phone)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("%w: user %s not found", ErrNotFound, charge.Phone)
		}

		if user.Balance > math.MaxInt64-charge.Amount {
			return fmt.Errorf("%w: balance of %s would overflow", ErrInvalidArgument, charge.Phone)
		}
		newBalance = user.Balance + charge.Amount

		return tx.User.UpdateBalance(ctx, charge.Phone, newBalance, &now)
	})
	if err != nil {
		metrics.RecordWorkflow("approve", metrics.ResultError)
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInvalidArgument) {
			s.log.Error("Failed to approve charge request",
				zap.Error(err),
				zap.Int64("charge_request_id", id),
			)
		}
		return nil, classifyStoreError(fmt.Sprintf("approve charge request %d", id), err)
	}

	if already {
		s.log.Info("Charge request already approved",
			zap.Int64("charge_request_id", id),
			zap.String("phone", charge.Phone),
		)
		metrics.RecordWorkflow("approve", metrics.ResultAlready)
		return &response.ApprovalResponse{Success: true, Already: true}, nil
	}

	s.changes.applied(ctx, cache.BalanceSnapshot{
		Phone:          charge.Phone,
		Balance:        newBalance,
		LastChargeDate: &now,
	}, events.ReasonCharge, now)
	metrics.RecordWorkflow("approve", metrics.ResultSuccess)
	metrics.AddCredited(charge.Amount)

	s.log.Info("Charge request approved",
		zap.Int64("charge_request_id", id),
		zap.String("phone", charge.Phone),
		zap.Int64("amount", charge.Amount),
		zap.Int64("balance", newBalance),
	)

	return &response.ApprovalResponse{Success: true, Balance: &newBalance}, nil
}
