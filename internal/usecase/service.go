package usecase

import (
	"context"
	"time"

	"prepaid-shop/internal/data/repository"
	"prepaid-shop/pkg/cache"
	"prepaid-shop/pkg/events"
	"prepaid-shop/pkg/notify"
	"prepaid-shop/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Charge   ChargeService
	Purchase PurchaseService
	Balance  BalanceService
	Product  ProductService
}

// Dependencies are the collaborators outside the database. Nil fields fall
// back to no-op implementations.
type Dependencies struct {
	Cache    cache.BalanceCache
	Events   events.Publisher
	Notifier notify.Notifier
	Now      func() time.Time
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Cache == nil {
		d.Cache = cache.NopBalanceCache{}
	}
	if d.Events == nil {
		d.Events = events.NopPublisher{}
	}
	if d.Notifier == nil {
		d.Notifier = notify.NopNotifier{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

func NewService(repo *repository.Repository, deps Dependencies, config *utils.Config, log *zap.Logger) *Service {
	deps = deps.withDefaults()

	return &Service{
		Charge:   NewChargeService(repo, deps, config, log),
		Purchase: NewPurchaseService(repo, deps, config, log),
		Balance:  NewBalanceService(repo, deps.Cache, config, log),
		Product:  NewProductService(repo.Product, config, log),
	}
}

// withTimeout bounds a workflow's database round-trips
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// balanceChanges runs the post-commit side effects of a balance mutation.
// Failures are logged; the mutation has already committed.
type balanceChanges struct {
	cache  cache.BalanceCache
	events events.Publisher
	log    *zap.Logger
}

func newBalanceChanges(deps Dependencies, log *zap.Logger) *balanceChanges {
	return &balanceChanges{
		cache:  deps.Cache,
		events: deps.Events,
		log:    log,
	}
}

func (b *balanceChanges) applied(ctx context.Context, snapshot cache.BalanceSnapshot, reason string, at time.Time) {
	// the request context may be nearly spent; side effects get their own budget
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	// write through so a concurrent read cannot refill the old balance
	if err := b.cache.Set(ctx, snapshot); err != nil {
		b.log.Warn("Failed to write cached balance",
			zap.Error(err),
			zap.String("phone", snapshot.Phone),
		)
		if err := b.cache.Invalidate(ctx, snapshot.Phone); err != nil {
			b.log.Warn("Failed to invalidate cached balance",
				zap.Error(err),
				zap.String("phone", snapshot.Phone),
			)
		}
	}

	event := events.BalanceChanged(snapshot.Phone, snapshot.Balance, reason, at)
	if err := b.events.Publish(ctx, event); err != nil {
		b.log.Warn("Failed to publish balance change",
			zap.Error(err),
			zap.String("phone", snapshot.Phone),
			zap.String("reason", reason),
		)
	}
}
