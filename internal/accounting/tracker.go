// Package accounting counts, caches and optionally simulates every call to
// the remote document store so billed operation volume stays observable.
package accounting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xelth-com/pantrysync/internal/remote"
)

// Kind is a billed operation class.
type Kind string

const (
	KindRead     Kind = "read"
	KindWrite    Kind = "write"
	KindDelete   Kind = "delete"
	KindListener Kind = "listener"
)

// Call is one tracked remote operation.
type Call struct {
	Kind        Kind                   `json:"kind"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Count       int                    `json:"count"`
	At          time.Time              `json:"at"`
}

// Stats is a snapshot of the counters.
type Stats struct {
	Reads      int       `json:"reads"`
	Writes     int       `json:"writes"`
	Deletes    int       `json:"deletes"`
	Listeners  int       `json:"listeners"`
	Calls      int       `json:"calls"`
	CacheHits  int       `json:"cacheHits"`
	Simulated  int       `json:"simulated"`
	Simulating bool      `json:"simulating"`
	Since      time.Time `json:"since"`
}

// Options configure a Tracker.
type Options struct {
	CacheTTL   time.Duration
	Simulate   bool
	MaxCallLog int
}

// Tracker wraps a remote.Store. In simulate mode calls are answered by an
// in-memory shadow store and never reach the wrapped one.
type Tracker struct {
	inner  remote.Store
	shadow *remote.MemoryStore
	cache  *Cache
	log    *zap.Logger

	mu         sync.Mutex
	simulate   bool
	stats      Stats
	calls      []Call
	maxCallLog int
}

var _ remote.Store = (*Tracker)(nil)

// NewTracker wraps inner. inner may be nil only in simulate mode.
func NewTracker(inner remote.Store, opts Options, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxCallLog <= 0 {
		opts.MaxCallLog = 200
	}
	return &Tracker{
		inner:      inner,
		shadow:     remote.NewMemoryStore(),
		cache:      NewCache(opts.CacheTTL),
		log:        logger.Named("accounting"),
		simulate:   opts.Simulate,
		maxCallLog: opts.MaxCallLog,
		stats:      Stats{Since: time.Now().UTC()},
	}
}

// TrackCall counts one operation. It never panics.
func (t *Tracker) TrackCall(kind Kind, description string, metadata map[string]interface{}) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("trackCall recovered", zap.Any("panic", r))
		}
	}()

	count := 1
	if n, ok := metadata["count"].(int); ok && n > 0 {
		count = n
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch kind {
	case KindRead:
		t.stats.Reads += count
	case KindWrite:
		t.stats.Writes += count
	case KindDelete:
		t.stats.Deletes += count
	case KindListener:
		t.stats.Listeners += count
	default:
		t.log.Warn("unknown call kind", zap.String("kind", string(kind)))
	}
	t.stats.Calls++
	if t.simulate {
		t.stats.Simulated++
	}

	t.calls = append(t.calls, Call{
		Kind:        kind,
		Description: description,
		Metadata:    metadata,
		Count:       count,
		At:          time.Now().UTC(),
	})
	if len(t.calls) > t.maxCallLog {
		t.calls = t.calls[len(t.calls)-t.maxCallLog:]
	}

	t.log.Debug("remote call",
		zap.String("kind", string(kind)),
		zap.String("description", description),
		zap.Int("count", count),
		zap.Bool("simulated", t.simulate))
}

// GetCachedOrNull exposes the TTL cache lookup.
func (t *Tracker) GetCachedOrNull(key string) interface{} {
	return t.cache.GetCachedOrNull(key)
}

// SetSimulate toggles simulate mode. Leaving it drops every cached
// simulated read.
func (t *Tracker) SetSimulate(on bool) {
	t.mu.Lock()
	changed := t.simulate != on
	t.simulate = on
	t.mu.Unlock()
	if !changed {
		return
	}
	t.log.Info("simulate mode changed", zap.Bool("simulate", on))
	if !on {
		t.cache.InvalidatePrefix(simPrefix)
	}
}

// Simulating reports whether simulate mode is on.
func (t *Tracker) Simulating() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.simulate
}

// Stats returns a copy of the counters.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.stats
	st.Simulating = t.simulate
	return st
}

// Calls returns the most recent tracked calls, oldest first.
func (t *Tracker) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Call(nil), t.calls...)
}

// Reset zeroes counters, clears the call log and the cache.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.stats = Stats{Since: time.Now().UTC()}
	t.calls = nil
	t.mu.Unlock()
	t.cache.Clear()
}

// Sweep evicts expired cache entries.
func (t *Tracker) Sweep() int {
	n := t.cache.Sweep()
	if n > 0 {
		t.log.Debug("cache sweep", zap.Int("evicted", n))
	}
	return n
}

// simPrefix marks cache keys filled from the shadow store.
const simPrefix = "sim:"

// route picks the store a call goes to and reports whether it is the shadow.
func (t *Tracker) route() (remote.Store, bool) {
	if t.Simulating() || t.inner == nil {
		return t.shadow, true
	}
	return t.inner, false
}

func cacheKey(simulated bool, uid, collection string) string {
	key := remote.CollectionPath(uid, collection)
	if simulated {
		return simPrefix + key
	}
	return key
}

// cacheable excludes the meta collection; trip markers coordinate two
// devices and must always be read fresh.
func cacheable(collection string) bool {
	return collection != remote.CollectionMeta
}

func (t *Tracker) Get(ctx context.Context, uid, collection string) ([]remote.Snapshot, error) {
	store, simulated := t.route()
	key := cacheKey(simulated, uid, collection)
	if cacheable(collection) {
		if cached, ok := t.cache.GetCachedOrNull(key).([]remote.Snapshot); ok {
			t.mu.Lock()
			t.stats.CacheHits++
			t.mu.Unlock()
			return cloneSnapshots(cached), nil
		}
	}

	docs, err := store.Get(ctx, uid, collection)
	// an empty collection still bills one read
	t.TrackCall(KindRead, fmt.Sprintf("get %s", key), map[string]interface{}{
		"path":  key,
		"count": max(len(docs), 1),
	})
	if err != nil {
		return nil, err
	}
	if cacheable(collection) {
		t.cache.Put(key, cloneSnapshots(docs))
	}
	return docs, nil
}

func (t *Tracker) Set(ctx context.Context, uid, collection, id string, data remote.Document) error {
	return t.Batch(uid).Set(collection, id, data).Commit(ctx)
}

func (t *Tracker) Delete(ctx context.Context, uid, collection, id string) error {
	return t.Batch(uid).Delete(collection, id).Commit(ctx)
}

func (t *Tracker) Batch(uid string) remote.Batch {
	store, simulated := t.route()
	return &trackedBatch{tracker: t, uid: uid, simulated: simulated, inner: store.Batch(uid)}
}

type trackedBatch struct {
	tracker   *Tracker
	uid       string
	simulated bool
	inner     remote.Batch
}

func (b *trackedBatch) Set(collection, id string, data remote.Document) remote.Batch {
	b.inner.Set(collection, id, data)
	return b
}

func (b *trackedBatch) Delete(collection, id string) remote.Batch {
	b.inner.Delete(collection, id)
	return b
}

func (b *trackedBatch) Ops() []remote.Op {
	return b.inner.Ops()
}

// Commit forwards to the wrapped batch, then counts the operations and
// invalidates every touched collection.
func (b *trackedBatch) Commit(ctx context.Context) error {
	ops := b.inner.Ops()
	err := b.inner.Commit(ctx)

	var sets, deletes int
	touched := make(map[string]struct{})
	for _, op := range ops {
		touched[cacheKey(b.simulated, b.uid, op.Collection)] = struct{}{}
		if op.Kind == remote.OpSet {
			sets++
		} else {
			deletes++
		}
	}
	if err != nil {
		b.tracker.log.Warn("batch commit failed", zap.Int("ops", len(ops)), zap.Error(err))
		return err
	}

	if sets > 0 {
		b.tracker.TrackCall(KindWrite, fmt.Sprintf("batch set (%d)", sets), map[string]interface{}{"count": sets, "uid": b.uid})
	}
	if deletes > 0 {
		b.tracker.TrackCall(KindDelete, fmt.Sprintf("batch delete (%d)", deletes), map[string]interface{}{"count": deletes, "uid": b.uid})
	}
	for key := range touched {
		b.tracker.cache.Invalidate(key)
	}
	return nil
}

func cloneSnapshots(in []remote.Snapshot) []remote.Snapshot {
	out := make([]remote.Snapshot, len(in))
	for i, s := range in {
		out[i] = remote.Snapshot{ID: s.ID, Data: s.Data.Clone()}
	}
	return out
}
