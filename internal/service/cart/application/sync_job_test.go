// internal/service/cart/application/sync_job_test.go
package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/internal/service/cart/domain"
)

type storedCart struct {
	header domain.CartHeader
	items  map[string]int
}

type memStore struct {
	mu      sync.Mutex
	upserts int
	carts   map[string]storedCart
	failFor map[string]bool
}

func newMemStore() *memStore {
	return &memStore{carts: make(map[string]storedCart), failFor: make(map[string]bool)}
}

func (m *memStore) Upsert(_ context.Context, header *domain.CartHeader, items map[string]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[header.CartID] {
		return errors.New("injected store failure")
	}
	m.upserts++
	cp := make(map[string]int, len(items))
	for k, v := range items {
		cp[k] = v
	}
	m.carts[header.CartID] = storedCart{header: *header, items: cp}
	return nil
}

func (m *memStore) upsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}

func seedCart(t *testing.T, cache *memCache, cartID string, items map[string]int) {
	t.Helper()
	ctx := context.Background()
	if err := cache.SaveHeader(ctx, &domain.CartHeader{CartID: cartID, OwnerID: "u-" + cartID, IsActive: true}); err != nil {
		t.Fatalf("SaveHeader: %v", err)
	}
	if err := cache.AddActive(ctx, cartID); err != nil {
		t.Fatalf("AddActive: %v", err)
	}
	for p, q := range items {
		if _, err := cache.IncrementItem(ctx, cartID, p, int64(q)); err != nil {
			t.Fatalf("IncrementItem: %v", err)
		}
	}
}

func TestSyncJob_SweepsAllActiveCarts(t *testing.T) {
	cache := newMemCache()
	store := newMemStore()
	seedCart(t, cache, "c1", map[string]int{"p1": 2})
	seedCart(t, cache, "c2", map[string]int{"p2": 1, "p3": 4})

	job := NewSyncJob(cache, store, time.Hour)
	report := job.RunOnce(context.Background())

	if report.Synced != 2 || report.Failed != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if got := store.carts["c2"].items["p3"]; got != 4 {
		t.Fatalf("expected durable quantity 4, got %d", got)
	}
}

func TestSyncJob_SecondSweepWithoutChangesWritesNothing(t *testing.T) {
	cache := newMemCache()
	store := newMemStore()
	seedCart(t, cache, "c1", map[string]int{"p1": 2})
	seedCart(t, cache, "c2", map[string]int{"p2": 1})

	job := NewSyncJob(cache, store, time.Hour)
	job.RunOnce(context.Background())
	writesAfterFirst := store.upsertCount()

	report := job.RunOnce(context.Background())
	if store.upsertCount() != writesAfterFirst {
		t.Fatalf("second sweep wrote %d extra times", store.upsertCount()-writesAfterFirst)
	}
	if report.Skipped != 2 || report.Synced != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestSyncJob_ResyncsOnlyChangedCarts(t *testing.T) {
	cache := newMemCache()
	store := newMemStore()
	seedCart(t, cache, "c1", map[string]int{"p1": 2})
	seedCart(t, cache, "c2", map[string]int{"p2": 1})

	job := NewSyncJob(cache, store, time.Hour)
	job.RunOnce(context.Background())

	if _, err := cache.IncrementItem(context.Background(), "c1", "p1", 3); err != nil {
		t.Fatalf("IncrementItem: %v", err)
	}
	report := job.RunOnce(context.Background())

	if report.Synced != 1 || report.Skipped != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if got := store.carts["c1"].items["p1"]; got != 5 {
		t.Fatalf("expected durable quantity 5, got %d", got)
	}
}

func TestSyncJob_PerCartFailureDoesNotAbortSweep(t *testing.T) {
	cache := newMemCache()
	store := newMemStore()
	seedCart(t, cache, "bad", map[string]int{"p1": 1})
	seedCart(t, cache, "good", map[string]int{"p2": 2})
	store.failFor["bad"] = true

	job := NewSyncJob(cache, store, time.Hour)
	report := job.RunOnce(context.Background())

	if report.Failed != 1 || report.Synced != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if _, ok := store.carts["good"]; !ok {
		t.Fatal("healthy cart must still be synced")
	}

	// 故障恢复后下一轮要重试失败的购物车。
	store.failFor["bad"] = false
	report = job.RunOnce(context.Background())
	if report.Synced != 1 {
		t.Fatalf("expected failed cart to be retried, report %+v", report)
	}
	if _, ok := store.carts["bad"]; !ok {
		t.Fatal("previously failed cart must be synced after recovery")
	}
}

func TestSyncJob_DanglingActiveIDIsPruned(t *testing.T) {
	cache := newMemCache()
	store := newMemStore()
	seedCart(t, cache, "c1", map[string]int{"p1": 1})
	// header 已过期, 索引里残留 ID。
	if err := cache.AddActive(context.Background(), "ghost"); err != nil {
		t.Fatalf("AddActive: %v", err)
	}

	job := NewSyncJob(cache, store, time.Hour)
	report := job.RunOnce(context.Background())

	if report.Failed != 0 {
		t.Fatalf("dangling id must not count as failure, report %+v", report)
	}
	ids, _ := cache.ActiveCartIDs(context.Background())
	for _, id := range ids {
		if id == "ghost" {
			t.Fatal("expected dangling id to be pruned from the active set")
		}
	}
	if _, ok := store.carts["ghost"]; ok {
		t.Fatal("dangling id must not reach durable storage")
	}
}
