package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"prepaid-shop/internal/data/entity"
	"prepaid-shop/internal/data/repository"
	"prepaid-shop/pkg/cache"
	"prepaid-shop/pkg/events"
	"prepaid-shop/pkg/utils"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// memStore is an in-memory stand-in for Postgres. MarkApproved and
// CreateIfMissing are atomic like their SQL counterparts.
type memStore struct {
	mu        sync.Mutex
	users     map[string]*entity.User
	charges   map[int64]*entity.ChargeRequest
	products  map[int64]*entity.Product
	purchases map[string]*entity.Purchase
	nextID    int64

	// injected failures
	findUserErr     error
	updateBalErr    error
	createPurchErr  error
	findProductsErr error

	// afterFindUser runs once, right after the next FindByPhone has read
	afterFindUser func()
	// racingPurchase is committed by "another request" when the next
	// purchase insert runs, which then fails on the idempotency key
	racingPurchase *entity.Purchase
}

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[string]*entity.User),
		charges:   make(map[int64]*entity.ChargeRequest),
		products:  make(map[int64]*entity.Product),
		purchases: make(map[string]*entity.Purchase),
	}
}

func (s *memStore) repository() *repository.Repository {
	return &repository.Repository{
		User:          memUsers{s},
		ChargeRequest: memCharges{s},
		Product:       memProducts{s},
		Purchase:      memPurchases{s},
	}
}

func (s *memStore) addUser(phone string, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[phone] = &entity.User{Phone: phone, Balance: balance}
}

func (s *memStore) addCharge(phone string, amount int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.charges[s.nextID] = &entity.ChargeRequest{
		ID:          s.nextID,
		Phone:       phone,
		Amount:      amount,
		RequestedAt: time.Now(),
	}
	return s.nextID
}

func (s *memStore) addProduct(id int64, name string, price int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[id] = &entity.Product{ID: id, Name: name, Price: price}
}

func (s *memStore) balance(phone string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[phone].Balance
}

func (s *memStore) purchaseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.purchases)
}

type memUsers struct{ s *memStore }

func (m memUsers) FindByPhone(ctx context.Context, phone string) (*entity.User, error) {
	m.s.mu.Lock()
	if err := m.s.findUserErr; err != nil {
		m.s.mu.Unlock()
		return nil, err
	}
	var found *entity.User
	if u, ok := m.s.users[phone]; ok {
		cp := *u
		found = &cp
	}
	hook := m.s.afterFindUser
	m.s.afterFindUser = nil
	m.s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return found, nil
}

func (m memUsers) FindByPhoneForUpdate(ctx context.Context, phone string) (*entity.User, error) {
	return m.FindByPhone(ctx, phone)
}

func (m memUsers) CreateIfMissing(ctx context.Context, phone string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.users[phone]; !ok {
		m.s.users[phone] = &entity.User{Phone: phone}
	}
	return nil
}

func (m memUsers) UpdateBalance(ctx context.Context, phone string, balance int64, lastChargeDate *time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.updateBalErr != nil {
		return m.s.updateBalErr
	}
	u, ok := m.s.users[phone]
	if !ok {
		return errors.New("user " + phone + " not found")
	}
	u.Balance = balance
	if lastChargeDate != nil {
		at := *lastChargeDate
		u.LastChargeDate = &at
	}
	return nil
}

type memCharges struct{ s *memStore }

func (m memCharges) Create(ctx context.Context, req *entity.ChargeRequest) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.nextID++
	req.ID = m.s.nextID
	cp := *req
	m.s.charges[req.ID] = &cp
	return nil
}

func (m memCharges) FindByIDForUpdate(ctx context.Context, id int64) (*entity.ChargeRequest, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.charges[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m memCharges) FindAll(ctx context.Context, status entity.ChargeRequestStatus) ([]*entity.ChargeRequest, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*entity.ChargeRequest
	for id := m.s.nextID; id > 0; id-- {
		c, ok := m.s.charges[id]
		if !ok {
			continue
		}
		if status != entity.ChargeStatusAll && c.Status() != status {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m memCharges) MarkApproved(ctx context.Context, id int64, at time.Time) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.charges[id]
	if !ok || c.Approved {
		return false, nil
	}
	c.Approved = true
	c.ApprovedAt = &at
	return true, nil
}

type memProducts struct{ s *memStore }

func (m memProducts) FindAll(ctx context.Context) ([]*entity.Product, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.findProductsErr != nil {
		return nil, m.s.findProductsErr
	}
	var out []*entity.Product
	for id := int64(1); id <= 100; id++ {
		if p, ok := m.s.products[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m memProducts) FindByIDs(ctx context.Context, ids []int64) (map[int64]*entity.Product, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.findProductsErr != nil {
		return nil, m.s.findProductsErr
	}
	out := make(map[int64]*entity.Product)
	for _, id := range ids {
		if p, ok := m.s.products[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

type memPurchases struct{ s *memStore }

func purchaseKey(phone, key string) string { return phone + "|" + key }

func (m memPurchases) Create(ctx context.Context, purchase *entity.Purchase) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.createPurchErr != nil {
		return m.s.createPurchErr
	}
	if winner := m.s.racingPurchase; winner != nil {
		m.s.racingPurchase = nil
		m.s.purchases[purchaseKey(winner.Phone, *winner.IdempotencyKey)] = winner
		return fmt.Errorf("insert purchase: %w", &pgconn.PgError{
			Code:           "23505",
			ConstraintName: "purchases_phone_idempotency_key_key",
		})
	}
	k := purchase.ID.String()
	if purchase.IdempotencyKey != nil {
		k = purchaseKey(purchase.Phone, *purchase.IdempotencyKey)
	}
	cp := *purchase
	m.s.purchases[k] = &cp
	return nil
}

func (m memPurchases) FindByIdempotencyKey(ctx context.Context, phone, key string) (*entity.Purchase, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p, ok := m.s.purchases[purchaseKey(phone, key)]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) published() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

// mapCache is a BalanceCache over a map
type mapCache struct {
	mu          sync.Mutex
	entries     map[string]cache.BalanceSnapshot
	written     []string
	invalidated []string
	gets        int
	setErr      error
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]cache.BalanceSnapshot)}
}

func (c *mapCache) Get(ctx context.Context, phone string) (*cache.BalanceSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	s, ok := c.entries[phone]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (c *mapCache) Set(ctx context.Context, snapshot cache.BalanceSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[snapshot.Phone] = snapshot
	c.written = append(c.written, snapshot.Phone)
	return nil
}

func (c *mapCache) Fill(ctx context.Context, snapshot cache.BalanceSnapshot) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[snapshot.Phone]; ok {
		return false, nil
	}
	c.entries[snapshot.Phone] = snapshot
	return true, nil
}

func (c *mapCache) cached(phone string) (cache.BalanceSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[phone]
	return s, ok
}

func (c *mapCache) Invalidate(ctx context.Context, phone string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, phone)
	c.invalidated = append(c.invalidated, phone)
	return nil
}

type notification struct {
	title, body, link string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, title, body, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{title, body, link})
	return n.err
}

func (n *recordingNotifier) notifications() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.sent...)
}

func testConfig() *utils.Config {
	return &utils.Config{
		App: utils.AppConfig{
			PublicURL: "https://shop.example/",
			Timezone:  "UTC",
		},
		Database: utils.DatabaseConfig{QueryTimeout: time.Second},
		Purchase: utils.PurchaseConfig{VerifyPrices: true},
	}
}

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type fixture struct {
	store     *memStore
	cache     *mapCache
	publisher *recordingPublisher
	notifier  *recordingNotifier
	service   *Service
}

func newFixture(config *utils.Config) *fixture {
	f := &fixture{
		store:     newMemStore(),
		cache:     newMapCache(),
		publisher: &recordingPublisher{},
		notifier:  &recordingNotifier{},
	}
	deps := Dependencies{
		Cache:    f.cache,
		Events:   f.publisher,
		Notifier: f.notifier,
		Now:      func() time.Time { return fixedNow },
	}
	f.service = NewService(f.store.repository(), deps, config, zap.NewNop())
	return f
}
