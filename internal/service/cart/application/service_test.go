// internal/service/cart/application/service_test.go
package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"storefront/internal/rpc"
	"storefront/internal/service/cart/domain"
)

// memCache is an in-memory CartCache with the same atomicity guarantees
// as the Redis implementation: quantities only move via increments.
type memCache struct {
	mu      sync.Mutex
	headers map[string]*domain.CartHeader
	items   map[string]map[string]int
	active  map[string]bool
}

func newMemCache() *memCache {
	return &memCache{
		headers: make(map[string]*domain.CartHeader),
		items:   make(map[string]map[string]int),
		active:  make(map[string]bool),
	}
}

func (m *memCache) SaveHeader(_ context.Context, header *domain.CartHeader) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *header
	m.headers[header.CartID] = &cp
	return nil
}

func (m *memCache) GetHeader(_ context.Context, cartID string) (*domain.CartHeader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.headers[cartID]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	cp := *h
	return &cp, nil
}

func (m *memCache) IncrementItem(_ context.Context, cartID, productID string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items[cartID] == nil {
		m.items[cartID] = make(map[string]int)
	}
	m.items[cartID][productID] += int(delta)
	return int64(m.items[cartID][productID]), nil
}

func (m *memCache) DecrementItem(_ context.Context, cartID, productID string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items[cartID] == nil {
		return 0, nil
	}
	m.items[cartID][productID] -= int(delta)
	if m.items[cartID][productID] <= 0 {
		delete(m.items[cartID], productID)
		return 0, nil
	}
	return int64(m.items[cartID][productID]), nil
}

func (m *memCache) Items(_ context.Context, cartID string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.items[cartID]))
	for k, v := range m.items[cartID] {
		out[k] = v
	}
	return out, nil
}

func (m *memCache) DeleteItems(_ context.Context, cartID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, cartID)
	return nil
}

func (m *memCache) AddActive(_ context.Context, cartID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[cartID] = true
	return nil
}

func (m *memCache) RemoveActive(_ context.Context, cartID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, cartID)
	return nil
}

func (m *memCache) ActiveCartIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeCoupons struct {
	coupon   *rpc.CheckCouponResponse
	used     bool
	disabled []string
}

func (f *fakeCoupons) CheckCoupon(context.Context, string) (*rpc.CheckCouponResponse, error) {
	if f.coupon == nil {
		return &rpc.CheckCouponResponse{Exists: false}, nil
	}
	return f.coupon, nil
}

func (f *fakeCoupons) CheckUserCoupon(context.Context, string, string) (*rpc.CheckUserCouponResponse, error) {
	return &rpc.CheckUserCouponResponse{Used: f.used}, nil
}

func (f *fakeCoupons) DisableUserCoupon(_ context.Context, userID, code string) error {
	f.disabled = append(f.disabled, userID+"/"+code)
	return nil
}

type fakeUsers struct{ exists bool }

func (f *fakeUsers) Exists(context.Context, string) (bool, error) { return f.exists, nil }

type fakeStock struct{ unavailable map[string]bool }

func (f *fakeStock) IsAvailable(_ context.Context, productID string, _ int) (bool, error) {
	return !f.unavailable[productID], nil
}

type call struct {
	productID string
	qty       int
	refID     string
}

// fakeInventory records coordinator calls; failAfter makes every Reserve
// beyond the first N fail, which keeps compensation tests deterministic
// regardless of map iteration order.
type fakeInventory struct {
	mu        sync.Mutex
	failAfter int
	reserved  []call
	confirmed []call
	released  []call
}

func (f *fakeInventory) Reserve(_ context.Context, productID string, qty int, refID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAfter > 0 && len(f.reserved) >= f.failAfter {
		return errors.New("injected reserve failure")
	}
	f.reserved = append(f.reserved, call{productID, qty, refID})
	return nil
}

func (f *fakeInventory) ConfirmDeduction(_ context.Context, productID string, qty int, refID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, call{productID, qty, refID})
	return nil
}

func (f *fakeInventory) Release(_ context.Context, productID string, qty int, refID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, call{productID, qty, refID})
	return nil
}

func newTestService(cache domain.CartCache, coupons *fakeCoupons, users *fakeUsers, stock *fakeStock, inv *fakeInventory) *CartService {
	if coupons == nil {
		coupons = &fakeCoupons{}
	}
	if users == nil {
		users = &fakeUsers{exists: true}
	}
	if stock == nil {
		stock = &fakeStock{}
	}
	if inv == nil {
		inv = &fakeInventory{}
	}
	return NewCartService(cache, coupons, users, stock, inv)
}

func mustCreateCart(t *testing.T, svc *CartService) *domain.CartHeader {
	t.Helper()
	header, err := svc.CreateCart(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CreateCart: %v", err)
	}
	return header
}

func TestAddItem_ConcurrentIncrementsAreLossless(t *testing.T) {
	cache := newMemCache()
	svc := newTestService(cache, nil, nil, nil, nil)
	header := mustCreateCart(t, svc)

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AddItem(context.Background(), header.CartID, "p1", 1); err != nil {
				t.Errorf("AddItem: %v", err)
			}
		}()
	}
	wg.Wait()

	items, err := cache.Items(context.Background(), header.CartID)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if items["p1"] != workers {
		t.Fatalf("expected quantity %d, got %d", workers, items["p1"])
	}
}

func TestRemoveItem_DropsLineAtZero(t *testing.T) {
	cache := newMemCache()
	svc := newTestService(cache, nil, nil, nil, nil)
	header := mustCreateCart(t, svc)

	if _, err := svc.AddItem(context.Background(), header.CartID, "p1", 3); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	qty, err := svc.RemoveItem(context.Background(), header.CartID, "p1", 3)
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if qty != 0 {
		t.Fatalf("expected 0, got %d", qty)
	}
	items, _ := cache.Items(context.Background(), header.CartID)
	if _, ok := items["p1"]; ok {
		t.Fatal("expected item line to be removed at zero quantity")
	}
}

func TestApplyCoupon_UnknownCoupon(t *testing.T) {
	cache := newMemCache()
	svc := newTestService(cache, &fakeCoupons{}, nil, nil, nil)
	header := mustCreateCart(t, svc)

	err := svc.ApplyCoupon(context.Background(), header.CartID, "user-1", "NOPE")
	if !errors.Is(err, domain.ErrCouponNotFound) {
		t.Fatalf("expected ErrCouponNotFound, got %v", err)
	}
}

func TestApplyCoupon_AlreadyUsed(t *testing.T) {
	cache := newMemCache()
	coupons := &fakeCoupons{coupon: &rpc.CheckCouponResponse{Exists: true, Discount: 5}, used: true}
	svc := newTestService(cache, coupons, nil, nil, nil)
	header := mustCreateCart(t, svc)

	err := svc.ApplyCoupon(context.Background(), header.CartID, "user-1", "SAVE5")
	if !errors.Is(err, domain.ErrCouponAlreadyUsed) {
		t.Fatalf("expected ErrCouponAlreadyUsed, got %v", err)
	}
}

func TestApplyCoupon_BelowMinimumOrderAmount(t *testing.T) {
	cache := newMemCache()
	coupons := &fakeCoupons{coupon: &rpc.CheckCouponResponse{Exists: true, Discount: 5, MinOrderAmount: 100}}
	svc := newTestService(cache, coupons, nil, nil, nil)
	header := mustCreateCart(t, svc)
	if err := svc.UpdateTotal(context.Background(), header.CartID, 40); err != nil {
		t.Fatalf("UpdateTotal: %v", err)
	}

	err := svc.ApplyCoupon(context.Background(), header.CartID, "user-1", "SAVE5")
	if !errors.Is(err, domain.ErrCouponThreshold) {
		t.Fatalf("expected ErrCouponThreshold, got %v", err)
	}
}

func TestApplyCoupon_RecordsDiscountOnHeader(t *testing.T) {
	cache := newMemCache()
	coupons := &fakeCoupons{coupon: &rpc.CheckCouponResponse{Exists: true, Discount: 7.5}}
	svc := newTestService(cache, coupons, nil, nil, nil)
	header := mustCreateCart(t, svc)

	if err := svc.ApplyCoupon(context.Background(), header.CartID, "user-1", "SAVE7"); err != nil {
		t.Fatalf("ApplyCoupon: %v", err)
	}
	got, err := cache.GetHeader(context.Background(), header.CartID)
	if err != nil {
		t.Fatalf("GetHeader: %v", err)
	}
	if got.CouponCode != "SAVE7" || got.Discount != 7.5 {
		t.Fatalf("expected coupon applied, got %+v", got)
	}
}

func TestCheckout_ConfirmsEveryReservation(t *testing.T) {
	cache := newMemCache()
	coupons := &fakeCoupons{coupon: &rpc.CheckCouponResponse{Exists: true, Discount: 5}}
	inv := &fakeInventory{}
	svc := newTestService(cache, coupons, nil, nil, inv)
	header := mustCreateCart(t, svc)

	svc.AddItem(context.Background(), header.CartID, "p1", 2)
	svc.AddItem(context.Background(), header.CartID, "p2", 1)
	if err := svc.ApplyCoupon(context.Background(), header.CartID, "user-1", "SAVE5"); err != nil {
		t.Fatalf("ApplyCoupon: %v", err)
	}

	refID, err := svc.Checkout(context.Background(), header.CartID, "user-1")
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if refID == "" {
		t.Fatal("expected a non-empty checkout reference")
	}
	if len(inv.reserved) != 2 || len(inv.confirmed) != 2 {
		t.Fatalf("expected 2 reservations and 2 confirmations, got %d/%d", len(inv.reserved), len(inv.confirmed))
	}
	for _, c := range inv.confirmed {
		if c.refID != refID {
			t.Fatalf("confirmation carries reference %q, want %q", c.refID, refID)
		}
	}
	if len(coupons.disabled) != 1 {
		t.Fatalf("expected the coupon to be disabled once, got %v", coupons.disabled)
	}
	got, _ := cache.GetHeader(context.Background(), header.CartID)
	if got.IsActive {
		t.Fatal("expected cart to be inactive after checkout")
	}
	items, _ := cache.Items(context.Background(), header.CartID)
	if len(items) != 0 {
		t.Fatalf("expected item counters cleared after checkout, got %v", items)
	}
}

func TestCheckout_ReserveFailureReleasesEarlierReservations(t *testing.T) {
	cache := newMemCache()
	inv := &fakeInventory{failAfter: 1}
	svc := newTestService(cache, nil, nil, nil, inv)
	header := mustCreateCart(t, svc)

	svc.AddItem(context.Background(), header.CartID, "p1", 2)
	svc.AddItem(context.Background(), header.CartID, "p2", 1)

	if _, err := svc.Checkout(context.Background(), header.CartID, "user-1"); err == nil {
		t.Fatal("expected checkout to fail")
	}
	if len(inv.released) != len(inv.reserved) {
		t.Fatalf("expected %d releases to match reservations, got %d", len(inv.reserved), len(inv.released))
	}
	if len(inv.confirmed) != 0 {
		t.Fatalf("expected no confirmations, got %d", len(inv.confirmed))
	}
	got, _ := cache.GetHeader(context.Background(), header.CartID)
	if !got.IsActive {
		t.Fatal("failed checkout must leave the cart active")
	}
}

func TestCheckout_StockPrecheckBlocksReservation(t *testing.T) {
	cache := newMemCache()
	inv := &fakeInventory{}
	stock := &fakeStock{unavailable: map[string]bool{"p1": true}}
	svc := newTestService(cache, nil, nil, stock, inv)
	header := mustCreateCart(t, svc)
	svc.AddItem(context.Background(), header.CartID, "p1", 2)

	_, err := svc.Checkout(context.Background(), header.CartID, "user-1")
	if !errors.Is(err, domain.ErrItemNotEnoughStock) {
		t.Fatalf("expected ErrItemNotEnoughStock, got %v", err)
	}
	if len(inv.reserved) != 0 {
		t.Fatalf("expected no reservation after failed precheck, got %d", len(inv.reserved))
	}
}

func TestCheckout_UnknownUser(t *testing.T) {
	cache := newMemCache()
	svc := newTestService(cache, nil, &fakeUsers{exists: false}, nil, nil)
	header := mustCreateCart(t, svc)
	svc.AddItem(context.Background(), header.CartID, "p1", 1)

	_, err := svc.Checkout(context.Background(), header.CartID, "user-1")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	cache := newMemCache()
	svc := newTestService(cache, nil, nil, nil, nil)
	header := mustCreateCart(t, svc)

	_, err := svc.Checkout(context.Background(), header.CartID, "user-1")
	if !errors.Is(err, domain.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestCheckout_InactiveCartRejected(t *testing.T) {
	cache := newMemCache()
	svc := newTestService(cache, nil, nil, nil, nil)
	header := mustCreateCart(t, svc)
	svc.AddItem(context.Background(), header.CartID, "p1", 1)
	if _, err := svc.Checkout(context.Background(), header.CartID, "user-1"); err != nil {
		t.Fatalf("first checkout: %v", err)
	}

	_, err := svc.Checkout(context.Background(), header.CartID, "user-1")
	if !errors.Is(err, domain.ErrCartInactive) {
		t.Fatalf("expected ErrCartInactive, got %v", err)
	}
}
