package baseline

import (
	"testing"

	"github.com/xelth-com/pantrysync/internal/models"
)

type memPersister struct {
	snap  *Snapshot
	saves int
}

func (m *memPersister) SaveBaseline(s *Snapshot) error {
	m.snap = s
	m.saves++
	return nil
}

func (m *memPersister) LoadBaseline() (*Snapshot, error) { return m.snap, nil }

func (m *memPersister) ClearBaseline() error {
	m.snap = nil
	return nil
}

func TestTracker_DiffWithoutBaseline(t *testing.T) {
	tr := NewTracker(nil, nil)
	d := tr.Diff([]models.Product{{ID: "x", InShopping: true}})
	if d.ChangedProducts == nil || d.NewProducts == nil {
		t.Fatal("empty diff should carry empty, non-nil slices")
	}
	if !d.Empty() {
		t.Fatalf("expected empty diff, got %#v", d)
	}
}

func TestTracker_DiffReportsChangedOnly(t *testing.T) {
	tr := NewTracker(nil, nil)
	x := models.Product{ID: "x", Name: "X", InShopping: true, InStock: false}
	y := models.Product{ID: "y", Name: "Y", InPantry: true}
	tr.Capture([]models.Product{x, y}, "trip-1")

	x.InStock = true
	d := tr.Diff([]models.Product{x, y})

	if len(d.ChangedProducts) != 1 || d.ChangedProducts[0].ID != "x" {
		t.Fatalf("expected only x changed, got %#v", d.ChangedProducts)
	}
	if len(d.NewProducts) != 0 {
		t.Fatalf("expected no new products, got %#v", d.NewProducts)
	}
	if f := d.ChangedFields["x"]; len(f) != 1 || f[0] != models.FlagInStock {
		t.Fatalf("expected inStock change recorded, got %v", f)
	}
}

func TestTracker_DiffShoppingFlagScenario(t *testing.T) {
	tr := NewTracker(nil, nil)
	x := models.Product{ID: "x", Name: "X"}
	tr.Capture([]models.Product{x}, "")

	x.InShopping = true
	d := tr.Diff([]models.Product{x})
	if len(d.ChangedProducts) != 1 || d.ChangedProducts[0].ID != "x" || len(d.NewProducts) != 0 {
		t.Fatalf("unexpected diff %#v", d)
	}
}

func TestTracker_NewProductsAndRemovals(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.Capture([]models.Product{{ID: "a"}, {ID: "gone"}}, "")

	d := tr.Diff([]models.Product{{ID: "a"}, {ID: "b", Name: "New"}})
	if len(d.NewProducts) != 1 || d.NewProducts[0].ID != "b" {
		t.Fatalf("expected b as new, got %#v", d.NewProducts)
	}
	if len(d.ChangedProducts) != 0 {
		t.Fatalf("removed products are not reported, got %#v", d.ChangedProducts)
	}
}

func TestTracker_TracksCategoryAndCompleted(t *testing.T) {
	tr := NewTracker(nil, nil)
	p := models.Product{ID: "p", Category: "cat_fruit", InShopping: true}
	tr.Capture([]models.Product{p}, "")

	p.Category = "cat_other"
	p.Completed = true
	// untracked fields never count
	p.Name = "renamed"
	p.InSeason = true

	d := tr.Diff([]models.Product{p})
	if got := d.ChangedFields["p"]; len(got) != 2 {
		t.Fatalf("expected category and completed, got %v", got)
	}
}

func TestTracker_CaptureOverwritesAndPersists(t *testing.T) {
	pers := &memPersister{}
	tr := NewTracker(pers, nil)

	tr.Capture([]models.Product{{ID: "a"}}, "trip-1")
	tr.Capture([]models.Product{{ID: "b"}}, "trip-2")

	snap, ok := tr.Snapshot()
	if !ok || snap.TripID != "trip-2" {
		t.Fatalf("expected trip-2 baseline, got %#v", snap)
	}
	if _, held := snap.Entries["a"]; held {
		t.Fatal("previous baseline must be discarded")
	}
	if pers.saves != 2 {
		t.Fatalf("expected 2 persisted captures, got %d", pers.saves)
	}

	restored := NewTracker(pers, nil)
	if !restored.Has() {
		t.Fatal("baseline should be restored from the persister")
	}

	restored.Discard()
	if restored.Has() || pers.snap != nil {
		t.Fatal("discard must clear memory and persisted slot")
	}
}

func TestTracker_SnapshotIsCopy(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.Capture([]models.Product{{ID: "a"}}, "")

	snap, _ := tr.Snapshot()
	snap.Entries["a"] = Fields{InShopping: true}

	d := tr.Diff([]models.Product{{ID: "a"}})
	if !d.Empty() {
		t.Fatal("mutating a returned snapshot must not change the baseline")
	}
}
