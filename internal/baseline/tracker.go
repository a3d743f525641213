// Package baseline snapshots sync-relevant product fields when a shopping
// trip starts and diffs the catalog against that snapshot when it ends.
package baseline

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xelth-com/pantrysync/internal/models"
)

// Fields are the tracked product fields.
type Fields struct {
	InShopping bool   `json:"inShopping"`
	InStock    bool   `json:"inStock"`
	InPantry   bool   `json:"inPantry"`
	Category   string `json:"category"`
	Completed  bool   `json:"completed"`
}

// FieldsOf extracts the tracked fields of p.
func FieldsOf(p models.Product) Fields {
	return Fields{
		InShopping: p.InShopping,
		InStock:    p.InStock,
		InPantry:   p.InPantry,
		Category:   p.Category,
		Completed:  p.Completed,
	}
}

// Changed returns the names of the fields that differ.
func (f Fields) Changed(other Fields) []string {
	var out []string
	if f.InShopping != other.InShopping {
		out = append(out, models.FlagInShopping)
	}
	if f.InStock != other.InStock {
		out = append(out, models.FlagInStock)
	}
	if f.InPantry != other.InPantry {
		out = append(out, models.FlagInPantry)
	}
	if f.Category != other.Category {
		out = append(out, "category")
	}
	if f.Completed != other.Completed {
		out = append(out, models.FlagCompleted)
	}
	return out
}

// Snapshot is an immutable copy of tracked fields keyed by product id.
type Snapshot struct {
	TripID     string            `json:"tripId"`
	CapturedAt time.Time         `json:"capturedAt"`
	Entries    map[string]Fields `json:"entries"`
}

// Diff is the change record between a snapshot and the current catalog.
type Diff struct {
	ChangedProducts []models.Product    `json:"changedProducts"`
	NewProducts     []models.Product    `json:"newProducts"`
	ChangedFields   map[string][]string `json:"changedFields,omitempty"`
}

// Empty reports whether there is nothing to sync.
func (d Diff) Empty() bool {
	return len(d.ChangedProducts) == 0 && len(d.NewProducts) == 0
}

// Persister saves the single baseline slot across restarts.
type Persister interface {
	SaveBaseline(s *Snapshot) error
	LoadBaseline() (*Snapshot, error)
	ClearBaseline() error
}

// Tracker holds one baseline slot per device session.
type Tracker struct {
	mu      sync.RWMutex
	current *Snapshot

	persist Persister
	log     *zap.Logger
}

// NewTracker creates a tracker. When persist is non-nil a previously saved
// baseline is restored.
func NewTracker(persist Persister, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{persist: persist, log: logger.Named("baseline")}
	if persist != nil {
		snap, err := persist.LoadBaseline()
		if err != nil {
			t.log.Debug("no stored baseline", zap.Error(err))
		} else if snap != nil {
			t.current = snap
			t.log.Info("restored baseline", zap.String("trip", snap.TripID), zap.Int("entries", len(snap.Entries)))
		}
	}
	return t
}

// Capture replaces the slot with a snapshot of products.
func (t *Tracker) Capture(products []models.Product, tripID string) Snapshot {
	snap := &Snapshot{
		TripID:     tripID,
		CapturedAt: time.Now().UTC(),
		Entries:    make(map[string]Fields, len(products)),
	}
	for _, p := range products {
		snap.Entries[p.ID] = FieldsOf(p)
	}

	t.mu.Lock()
	if t.current != nil {
		t.log.Info("discarding previous baseline", zap.String("trip", t.current.TripID))
	}
	t.current = snap
	t.mu.Unlock()

	if t.persist != nil {
		if err := t.persist.SaveBaseline(snap); err != nil {
			t.log.Error("persist baseline", zap.Error(err))
		}
	}
	t.log.Info("baseline captured", zap.String("trip", tripID), zap.Int("entries", len(snap.Entries)))
	return snap.copy()
}

// Diff compares current against the baseline. Without a baseline it returns
// an empty diff.
func (t *Tracker) Diff(current []models.Product) Diff {
	t.mu.RLock()
	snap := t.current
	t.mu.RUnlock()

	if snap == nil {
		t.log.Warn("diff requested without a baseline, nothing to sync")
		return Diff{ChangedProducts: []models.Product{}, NewProducts: []models.Product{}}
	}
	return Compute(snap, current)
}

// Compute diffs current against snap.
func Compute(snap *Snapshot, current []models.Product) Diff {
	d := Diff{
		ChangedProducts: []models.Product{},
		NewProducts:     []models.Product{},
		ChangedFields:   make(map[string][]string),
	}
	for _, p := range current {
		before, ok := snap.Entries[p.ID]
		if !ok {
			d.NewProducts = append(d.NewProducts, p)
			continue
		}
		if fields := before.Changed(FieldsOf(p)); len(fields) > 0 {
			d.ChangedProducts = append(d.ChangedProducts, p)
			d.ChangedFields[p.ID] = fields
		}
	}
	return d
}

// Has reports whether a baseline is held.
func (t *Tracker) Has() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current != nil
}

// Snapshot returns a copy of the held baseline.
func (t *Tracker) Snapshot() (Snapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.current == nil {
		return Snapshot{}, false
	}
	return t.current.copy(), true
}

// Discard drops the baseline after integration.
func (t *Tracker) Discard() {
	t.mu.Lock()
	t.current = nil
	t.mu.Unlock()

	if t.persist != nil {
		if err := t.persist.ClearBaseline(); err != nil {
			t.log.Error("clear persisted baseline", zap.Error(err))
		}
	}
}

func (s *Snapshot) copy() Snapshot {
	out := *s
	out.Entries = make(map[string]Fields, len(s.Entries))
	for k, v := range s.Entries {
		out.Entries[k] = v
	}
	return out
}
