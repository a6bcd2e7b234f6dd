package usecase

import (
	"context"
	"fmt"
	"math"
	"testing"

	"prepaid-shop/internal/data/entity"
	"prepaid-shop/internal/dto/request"
	"prepaid-shop/pkg/events"

	"github.com/google/uuid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPurchaseFixture(balance int64) *fixture {
	f := newFixture(testConfig())
	f.store.addUser("0912345678", balance)
	f.store.addProduct(1, "Coffee beans", 2000)
	f.store.addProduct(2, "Tea", 500)
	return f
}

func TestPurchase_DebitsBalance(t *testing.T) {
	f := newPurchaseFixture(5000)

	receipt, err := f.service.Purchase.Purchase(context.Background(), &request.PurchaseRequest{
		Phone: "0912345678",
		Items: []request.PurchaseItem{{ProductID: 1, Qty: 2, Price: 2000}},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(4000), receipt.TotalPrice)
	assert.Equal(t, int64(1000), receipt.BalanceAfter)
	assert.Equal(t, int64(1000), f.store.balance("0912345678"))
	assert.Equal(t, "2026-03-14 09:30:00", receipt.PurchasedAt)
	assert.False(t, receipt.Replayed)
	assert.NotEmpty(t, receipt.PurchaseID)

	require.Len(t, receipt.Items, 1)
	assert.Equal(t, "Coffee beans", receipt.Items[0].Name)
	assert.Equal(t, int64(4000), receipt.Items[0].Total)

	published := f.publisher.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.ReasonPurchase, published[0].Reason)
	assert.Equal(t, int64(1000), published[0].Balance)
	cached, ok := f.cache.cached("0912345678")
	require.True(t, ok)
	assert.Equal(t, int64(1000), cached.Balance)
}

func TestPurchase_InsufficientBalanceLeavesBalance(t *testing.T) {
	f := newPurchaseFixture(1000)

	_, err := f.service.Purchase.Purchase(context.Background(), &request.PurchaseRequest{
		Phone: "0912345678",
		Items: []request.PurchaseItem{{ProductID: 1, Qty: 1, Price: 2000}},
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(1000), f.store.balance("0912345678"))
	assert.Zero(t, f.store.purchaseCount())
	assert.Empty(t, f.publisher.published())
}

func TestPurchase_ExactBalanceIsAllowed(t *testing.T) {
	f := newPurchaseFixture(2500)

	receipt, err := f.service.Purchase.Purchase(context.Background(), &request.PurchaseRequest{
		Phone: "0912345678",
		Items: []request.PurchaseItem{
			{ProductID: 1, Qty: 1, Price: 2000, Total: 2000},
			{ProductID: 2, Qty: 1, Price: 500},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), receipt.BalanceAfter)
	assert.Equal(t, int64(0), f.store.balance("0912345678"))
}

func TestPurchase_NormalizesPhone(t *testing.T) {
	f := newPurchaseFixture(5000)

	_, err := f.service.Purchase.Purchase(context.Background(), &request.PurchaseRequest{
		Phone: "09-1234 5678",
		Items: []request.PurchaseItem{{ProductID: 2, Qty: 2, Price: 500}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4000), f.store.balance("0912345678"))
}

func TestPurchase_UnknownUser(t *testing.T) {
	f := newPurchaseFixture(0)

	_, err := f.service.Purchase.Purchase(context.Background(), &request.PurchaseRequest{
		Phone: "0000",
		Items: []request.PurchaseItem{{ProductID: 2, Qty: 1, Price: 500}},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPurchase_RejectsBadInput(t *testing.T) {
	f := newPurchaseFixture(5000)

	tests := []struct {
		name  string
		items []request.PurchaseItem
	}{
		{"no items", nil},
		{"zero qty", []request.PurchaseItem{{ProductID: 1, Qty: 0, Price: 2000}}},
		{"qty beyond column range", []request.PurchaseItem{{ProductID: 2, Qty: math.MaxInt32 + 1, Price: 0}}},
		{"negative price", []request.PurchaseItem{{ProductID: 1, Qty: 1, Price: -1}}},
		{"total mismatch", []request.PurchaseItem{{ProductID: 1, Qty: 2, Price: 2000, Total: 2000}}},
		{"catalog price mismatch", []request.PurchaseItem{{ProductID: 1, Qty: 1, Price: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Purchase.Purchase(context.Background(), &request.PurchaseRequest{
				Phone: "0912345678",
				Items: tt.items,
			})
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	assert.Equal(t, int64(5000), f.store.balance("0912345678"))
}

func TestPurchase_UnknownProduct(t *testing.T) {
	f := newPurchaseFixture(5000)

	_, err := f.service.Purchase.Purchase(context.Background(), &request.PurchaseRequest{
		Phone: "0912345678",
		Items: []request.PurchaseItem{{ProductID: 99, Qty: 1, Price: 10}},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPurchase_TrustsClientPriceWhenVerificationDisabled(t *testing.T) {
	config := testConfig()
	config.Purchase.VerifyPrices = false
	f := newFixture(config)
	f.store.addUser("0912345678", 100)

	receipt, err := f.service.Purchase.Purchase(context.Background(), &request.PurchaseRequest{
		Phone: "0912345678",
		Items: []request.PurchaseItem{{ProductID: 99, Qty: 3, Price: 10}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(70), receipt.BalanceAfter)
}

func TestPurchase_ReplaysIdempotencyKey(t *testing.T) {
	f := newPurchaseFixture(5000)
	req := &request.PurchaseRequest{
		Phone:          "0912345678",
		Items:          []request.PurchaseItem{{ProductID: 1, Qty: 1, Price: 2000}},
		IdempotencyKey: "cart-7",
	}

	first, err := f.service.Purchase.Purchase(context.Background(), req)
	require.NoError(t, err)

	second, err := f.service.Purchase.Purchase(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.PurchaseID, second.PurchaseID)
	assert.Equal(t, first.BalanceAfter, second.BalanceAfter)
	assert.Equal(t, int64(3000), f.store.balance("0912345678"))
	assert.Equal(t, 1, f.store.purchaseCount())
	assert.Len(t, f.publisher.published(), 1)
}

func TestPurchase_ReplaysAfterCatalogPriceChange(t *testing.T) {
	f := newPurchaseFixture(5000)
	req := &request.PurchaseRequest{
		Phone:          "0912345678",
		Items:          []request.PurchaseItem{{ProductID: 1, Qty: 1, Price: 2000}},
		IdempotencyKey: "cart-9",
	}

	first, err := f.service.Purchase.Purchase(context.Background(), req)
	require.NoError(t, err)

	f.store.addProduct(1, "Coffee beans", 2500)

	retry, err := f.service.Purchase.Purchase(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, retry.Replayed)
	assert.Equal(t, first.PurchaseID, retry.PurchaseID)
	assert.Equal(t, int64(3000), f.store.balance("0912345678"))
}

func TestPurchase_ConcurrentSameKeyReplaysWinner(t *testing.T) {
	f := newPurchaseFixture(5000)
	key := "cart-11"
	winner := &entity.Purchase{
		ID:             uuid.New(),
		Phone:          "0912345678",
		IdempotencyKey: &key,
		TotalPrice:     4000,
		BalanceAfter:   1000,
		CreatedAt:      fixedNow,
		Items: []entity.PurchaseItem{
			{ProductID: 1, Name: "Coffee beans", Qty: 2, Price: 2000, Total: 4000},
		},
	}
	f.store.racingPurchase = winner

	receipt, err := f.service.Purchase.Purchase(context.Background(), &request.PurchaseRequest{
		Phone:          "0912345678",
		Items:          []request.PurchaseItem{{ProductID: 1, Qty: 2, Price: 2000}},
		IdempotencyKey: key,
	})
	require.NoError(t, err)

	assert.True(t, receipt.Replayed)
	assert.Equal(t, winner.ID.String(), receipt.PurchaseID)
	assert.Equal(t, int64(1000), receipt.BalanceAfter)
	assert.Equal(t, 1, f.store.purchaseCount())
	// the losing transaction rolls back in Postgres, so it publishes nothing
	assert.Empty(t, f.publisher.published())
	assert.Empty(t, f.cache.written)
}

func TestPurchase_StoreFailureIsTransient(t *testing.T) {
	f := newPurchaseFixture(5000)
	f.store.createPurchErr = fmt.Errorf("insert purchase: %w", context.DeadlineExceeded)

	_, err := f.service.Purchase.Purchase(context.Background(), &request.PurchaseRequest{
		Phone: "0912345678",
		Items: []request.PurchaseItem{{ProductID: 2, Qty: 1, Price: 500}},
	})
	assert.ErrorIs(t, err, ErrTransient)
	assert.Empty(t, f.publisher.published())
}

func TestBuildLineItems_Overflow(t *testing.T) {
	_, _, err := buildLineItems([]request.PurchaseItem{
		{ProductID: 1, Qty: 2, Price: 1 << 62},
	})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, _, err = buildLineItems([]request.PurchaseItem{
		{ProductID: 1, Qty: 1, Price: 1 << 62},
		{ProductID: 2, Qty: 1, Price: 1 << 62},
	})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
