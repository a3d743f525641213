package accounting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xelth-com/pantrysync/internal/remote"
)

// countingStore counts calls that reach the wrapped store.
type countingStore struct {
	*remote.MemoryStore
	gets int
}

func (c *countingStore) Get(ctx context.Context, uid, collection string) ([]remote.Snapshot, error) {
	c.gets++
	return c.MemoryStore.Get(ctx, uid, collection)
}

func TestCache_TTL(t *testing.T) {
	c := NewCache(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Put("users/u/shoppingItems", 42)
	if got := c.GetCachedOrNull("users/u/shoppingItems"); got != 42 {
		t.Fatalf("expected cached value, got %v", got)
	}

	now = now.Add(time.Minute)
	if got := c.GetCachedOrNull("users/u/shoppingItems"); got != nil {
		t.Fatalf("expired entry must return nil, got %v", got)
	}
	if c.Len() != 0 {
		t.Fatal("expired entry must be evicted on lookup")
	}
}

func TestCache_SweepAndPrefix(t *testing.T) {
	c := NewCache(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("users/a/x", 1)
	c.Put("users/a/y", 2)
	c.Put("users/b/x", 3)
	c.InvalidatePrefix("users/a/")
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry after prefix invalidation, got %d", c.Len())
	}

	now = now.Add(2 * time.Minute)
	if n := c.Sweep(); n != 1 || c.Len() != 0 {
		t.Fatalf("sweep removed %d, remaining %d", n, c.Len())
	}
}

func TestCache_ZeroTTLDisables(t *testing.T) {
	c := NewCache(0)
	c.Put("k", 1)
	if c.GetCachedOrNull("k") != nil {
		t.Fatal("zero ttl must not cache")
	}
}

func TestTracker_CountsReadsAndWrites(t *testing.T) {
	ctx := context.Background()
	inner := remote.NewMemoryStore()
	tr := NewTracker(inner, Options{}, nil)

	err := tr.Batch("u").
		Set(remote.CollectionShoppingItems, "a", remote.Document{"name": "A"}).
		Set(remote.CollectionShoppingItems, "b", remote.Document{"name": "B"}).
		Delete(remote.CollectionShoppingItems, "old").
		Commit(ctx)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := tr.Get(ctx, "u", remote.CollectionShoppingItems); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := tr.Get(ctx, "u", remote.CollectionMeta); err != nil {
		t.Fatalf("get: %v", err)
	}

	st := tr.Stats()
	if st.Writes != 2 || st.Deletes != 1 {
		t.Fatalf("expected 2 writes 1 delete, got %#v", st)
	}
	// two documents plus one empty collection read
	if st.Reads != 3 {
		t.Fatalf("expected 3 billed reads, got %d", st.Reads)
	}
	if len(tr.Calls()) != 4 {
		t.Fatalf("expected 4 logged calls, got %d", len(tr.Calls()))
	}
}

func TestTracker_CacheAvoidsSecondRead(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryStore: remote.NewMemoryStore()}
	tr := NewTracker(inner, Options{CacheTTL: time.Minute}, nil)

	tr.Set(ctx, "u", remote.CollectionAllProducts, "a", remote.Document{"name": "A"})
	tr.Get(ctx, "u", remote.CollectionAllProducts)
	docs, _ := tr.Get(ctx, "u", remote.CollectionAllProducts)

	if inner.gets != 1 {
		t.Fatalf("expected one real read, got %d", inner.gets)
	}
	if len(docs) != 1 || tr.Stats().CacheHits != 1 {
		t.Fatalf("expected cached answer, stats %#v", tr.Stats())
	}

	// a write invalidates the collection
	tr.Set(ctx, "u", remote.CollectionAllProducts, "b", remote.Document{"name": "B"})
	docs, _ = tr.Get(ctx, "u", remote.CollectionAllProducts)
	if inner.gets != 2 || len(docs) != 2 {
		t.Fatalf("expected fresh read after write, gets=%d docs=%d", inner.gets, len(docs))
	}
}

func TestTracker_SimulateNeverReachesInner(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryStore: remote.NewMemoryStore()}
	tr := NewTracker(inner, Options{Simulate: true}, nil)

	if err := tr.Set(ctx, "u", remote.CollectionShoppingItems, "a", remote.Document{"name": "A"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	docs, err := tr.Get(ctx, "u", remote.CollectionShoppingItems)
	if err != nil || len(docs) != 1 {
		t.Fatalf("simulated read should see simulated write: %v %v", docs, err)
	}
	if inner.gets != 0 || inner.Count("u", remote.CollectionShoppingItems) != 0 {
		t.Fatal("simulate mode must not touch the real store")
	}
	if st := tr.Stats(); st.Simulated != 2 || !st.Simulating {
		t.Fatalf("expected 2 simulated calls, got %#v", st)
	}
}

func TestTracker_FailedCommitNotCounted(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(remote.NewMemoryStore(), Options{}, nil)

	err := tr.Set(ctx, "u", remote.CollectionShoppingItems, "a", remote.Document{"name": nil})
	if !errors.Is(err, remote.ErrInvalidDocument) {
		t.Fatalf("expected invalid document, got %v", err)
	}
	if tr.Stats().Writes != 0 {
		t.Fatal("rejected writes must not be billed")
	}
}

func TestTracker_TrackCallNeverPanics(t *testing.T) {
	tr := NewTracker(nil, Options{Simulate: true}, nil)
	tr.TrackCall("bogus", "", nil)
	tr.TrackCall(KindListener, "snapshot listener", map[string]interface{}{"count": "many"})
	if st := tr.Stats(); st.Listeners != 1 || st.Calls != 2 {
		t.Fatalf("unexpected stats %#v", st)
	}

	tr.Reset()
	if st := tr.Stats(); st.Calls != 0 || len(tr.Calls()) != 0 {
		t.Fatal("reset should clear counters and call log")
	}
}

func TestTracker_CallLogIsBounded(t *testing.T) {
	tr := NewTracker(nil, Options{Simulate: true, MaxCallLog: 3}, nil)
	for i := 0; i < 10; i++ {
		tr.TrackCall(KindRead, "r", nil)
	}
	if len(tr.Calls()) != 3 {
		t.Fatalf("expected 3 retained calls, got %d", len(tr.Calls()))
	}
}

func TestStartSweeper(t *testing.T) {
	tr := NewTracker(nil, Options{Simulate: true, CacheTTL: time.Minute}, nil)
	c, err := StartSweeper(tr, "@every 1h")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	c.Stop()

	if _, err := StartSweeper(tr, "every other tuesday"); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestTracker_SimulatedReadsDoNotOutliveSimulateMode(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryStore: remote.NewMemoryStore()}
	tr := NewTracker(inner, Options{CacheTTL: time.Minute, Simulate: true}, nil)

	tr.Set(ctx, "u", remote.CollectionShoppingItems, "fake", remote.Document{"name": "Fake"})
	if docs, _ := tr.Get(ctx, "u", remote.CollectionShoppingItems); len(docs) != 1 {
		t.Fatalf("simulated read should see the simulated write, got %d", len(docs))
	}
	if tr.GetCachedOrNull(simPrefix+remote.CollectionPath("u", remote.CollectionShoppingItems)) == nil {
		t.Fatal("simulated read should be cached under the simulated key")
	}

	tr.SetSimulate(false)
	docs, err := tr.Get(ctx, "u", remote.CollectionShoppingItems)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(docs) != 0 || inner.gets != 1 {
		t.Fatalf("real read served simulated docs: %d docs, %d real reads", len(docs), inner.gets)
	}
	if tr.GetCachedOrNull(simPrefix+remote.CollectionPath("u", remote.CollectionShoppingItems)) != nil {
		t.Fatal("leaving simulate mode should drop simulated cache entries")
	}
}

func TestTracker_MetaIsNeverCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryStore: remote.NewMemoryStore()}
	tr := NewTracker(inner, Options{CacheTTL: time.Minute}, nil)

	tr.Get(ctx, "u", remote.CollectionMeta)
	// another device writes straight to the store
	inner.Set(ctx, "u", remote.CollectionMeta, "trip", remote.Document{"state": "DONE"})
	docs, _ := tr.Get(ctx, "u", remote.CollectionMeta)

	if inner.gets != 2 || len(docs) != 1 {
		t.Fatalf("meta read should go to the store every time, gets=%d docs=%d", inner.gets, len(docs))
	}
}
