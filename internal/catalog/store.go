// Package catalog holds the single source of truth for products and the
// filtered shopping and pantry views derived from it.
package catalog

import (
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xelth-com/pantrysync/internal/models"
)

// TopicChanged is published once per mutation batch with the affected ids.
const TopicChanged = "catalog:changed"

// Store is the canonical in-memory product collection. Every mutation goes
// through a Tx so that one batch produces exactly one change event.
type Store struct {
	mu    sync.RWMutex
	byID  map[string]*models.Product
	order []string

	bus EventBus.Bus
	log *zap.Logger
}

// NewStore creates an empty store. A nil bus gets a private one.
func NewStore(logger *zap.Logger, bus EventBus.Bus) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bus == nil {
		bus = EventBus.New()
	}
	return &Store{
		byID: make(map[string]*models.Product),
		bus:  bus,
		log:  logger.Named("catalog"),
	}
}

// Subscribe registers fn for change events. fn runs synchronously after the
// batch lock is released.
func (s *Store) Subscribe(fn func(ids []string)) error {
	return s.bus.Subscribe(TopicChanged, fn)
}

// Unsubscribe removes a handler registered with Subscribe.
func (s *Store) Unsubscribe(fn func(ids []string)) error {
	return s.bus.Unsubscribe(TopicChanged, fn)
}

// Batch runs fn with exclusive access to the store. Tx methods must not be
// retained after fn returns, and fn must not call Store methods.
func (s *Store) Batch(fn func(tx *Tx)) {
	s.mu.Lock()
	tx := &Tx{s: s, touched: make(map[string]struct{})}
	fn(tx)
	ids := tx.touchedIDs()
	s.mu.Unlock()

	if len(ids) > 0 {
		s.bus.Publish(TopicChanged, ids)
	}
}

// Add creates a product unless one with the same normalized name exists, in
// which case the existing product is returned with created=false.
func (s *Store) Add(name, category string) (p models.Product, created bool) {
	s.Batch(func(tx *Tx) { p, created = tx.Add(name, category) })
	return p, created
}

// AddToShopping is the add-to-shopping-list path: it reuses an existing
// product by name and only ever flips its inShopping flag.
func (s *Store) AddToShopping(name, category string) (p models.Product) {
	s.Batch(func(tx *Tx) { p = tx.AddToShopping(name, category) })
	return p
}

// SetFlag mutates one boolean flag. Unknown ids and flags are logged and ignored.
func (s *Store) SetFlag(id, flag string, value bool) (ok bool) {
	s.Batch(func(tx *Tx) { ok = tx.SetFlag(id, flag, value) })
	return ok
}

// SetCategory changes the category of a product.
func (s *Store) SetCategory(id, category string) (ok bool) {
	s.Batch(func(tx *Tx) { ok = tx.SetCategory(id, category) })
	return ok
}

// Rename changes a product name, refusing names already used by another product.
func (s *Store) Rename(id, name string) (ok bool) {
	s.Batch(func(tx *Tx) { ok = tx.Rename(id, name) })
	return ok
}

// Remove deletes a product entirely.
func (s *Store) Remove(id string) (ok bool) {
	s.Batch(func(tx *Tx) { ok = tx.Remove(id) })
	return ok
}

// Upsert overwrites the full field set of the product with p.ID or creates it.
func (s *Store) Upsert(p models.Product) {
	s.Batch(func(tx *Tx) { tx.Upsert(p) })
}

// ClearCompleted moves bought items off the list and back into stock.
func (s *Store) ClearCompleted() (ids []string) {
	s.Batch(func(tx *Tx) { ids = tx.ClearCompleted() })
	return ids
}

// Replace swaps the whole collection, used by storage load and import.
func (s *Store) Replace(products []models.Product) {
	s.Batch(func(tx *Tx) { tx.Replace(products) })
}

// Get returns a copy of one product.
func (s *Store) Get(id string) (models.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[id]
	if !ok {
		return models.Product{}, false
	}
	return *p, true
}

// FindByNormalizedName does a case-insensitive, trimmed exact match.
func (s *Store) FindByNormalizedName(name string) (models.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p := s.findByName(models.NormalizeName(name)); p != nil {
		return *p, true
	}
	return models.Product{}, false
}

// All returns a snapshot copy in insertion order.
func (s *Store) All() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Product, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

// Len returns the number of products.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *Store) findByName(normalized string) *models.Product {
	if normalized == "" {
		return nil
	}
	for _, id := range s.order {
		if p := s.byID[id]; p.NormalizedName() == normalized {
			return p
		}
	}
	return nil
}

func newID() string {
	return uuid.New().String()
}
