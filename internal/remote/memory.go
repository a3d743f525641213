package remote

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// MemoryStore is an in-process document store used by tests and the trip
// simulator.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]Document
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string]Document)}
}

func (m *MemoryStore) Get(ctx context.Context, uid, collection string) ([]Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	coll := m.docs[CollectionPath(uid, collection)]
	ids := make([]string, 0, len(coll))
	for id := range coll {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, Snapshot{ID: id, Data: coll[id].Clone()})
	}
	return out, nil
}

func (m *MemoryStore) Set(ctx context.Context, uid, collection, id string, data Document) error {
	return m.Batch(uid).Set(collection, id, data).Commit(ctx)
}

func (m *MemoryStore) Delete(ctx context.Context, uid, collection, id string) error {
	return m.Batch(uid).Delete(collection, id).Commit(ctx)
}

func (m *MemoryStore) Batch(uid string) Batch {
	return &memoryBatch{store: m, uid: uid}
}

// Count returns the number of documents in a collection.
func (m *MemoryStore) Count(uid, collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs[CollectionPath(uid, collection)])
}

type memoryBatch struct {
	opList
	store *MemoryStore
	uid   string
}

func (b *memoryBatch) Set(collection, id string, data Document) Batch {
	b.add(Op{Kind: OpSet, Collection: collection, ID: id, Data: data})
	return b
}

func (b *memoryBatch) Delete(collection, id string) Batch {
	b.add(Op{Kind: OpDelete, Collection: collection, ID: id})
	return b
}

// Commit validates every operation first, then applies them all under one lock.
func (b *memoryBatch) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.uid == "" {
		return errors.New("commit without user id")
	}
	if err := ValidateOps(b.ops); err != nil {
		return err
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	for _, op := range b.ops {
		path := CollectionPath(b.uid, op.Collection)
		switch op.Kind {
		case OpSet:
			coll := b.store.docs[path]
			if coll == nil {
				coll = make(map[string]Document)
				b.store.docs[path] = coll
			}
			coll[op.ID] = op.Data.Clone()
		case OpDelete:
			delete(b.store.docs[path], op.ID)
		}
	}
	return nil
}
