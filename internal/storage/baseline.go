package storage

import (
	"github.com/pkg/errors"

	"github.com/xelth-com/pantrysync/internal/baseline"
	"github.com/xelth-com/pantrysync/internal/models"
)

// SaveBaseline implements baseline.Persister
func (a *Adapter) SaveBaseline(s *baseline.Snapshot) error {
	return a.PutJSON(KeyShoppingBaseline, s)
}

// LoadBaseline implements baseline.Persister
func (a *Adapter) LoadBaseline() (*baseline.Snapshot, error) {
	var snap baseline.Snapshot
	if err := a.GetJSON(KeyShoppingBaseline, &snap); err != nil {
		return nil, err
	}
	if snap.Entries == nil {
		return nil, errors.New("stored baseline has no entries")
	}
	return &snap, nil
}

// ClearBaseline implements baseline.Persister
func (a *Adapter) ClearBaseline() error {
	return errors.Wrap(a.kv.Delete(KeyShoppingBaseline), "delete baseline")
}

// SaveTripState persists the trip cycle position.
func (a *Adapter) SaveTripState(st models.TripState) error {
	return a.PutJSON(KeyTripState, st)
}

// LoadTripState returns the persisted trip state.
func (a *Adapter) LoadTripState() (models.TripState, error) {
	var st models.TripState
	err := a.GetJSON(KeyTripState, &st)
	return st, err
}
