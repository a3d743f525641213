// Package sync runs the shopping trip cycle between two devices sharing one
// account on the remote document store.
package sync

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/xelth-com/pantrysync/internal/baseline"
	"github.com/xelth-com/pantrysync/internal/catalog"
	"github.com/xelth-com/pantrysync/internal/models"
	"github.com/xelth-com/pantrysync/internal/remote"
)

// MetaTripDoc is the document id of the trip marker in the meta collection.
const MetaTripDoc = "trip"

// StatePersister keeps the trip state across restarts.
type StatePersister interface {
	SaveTripState(models.TripState) error
	LoadTripState() (models.TripState, error)
}

// Deps are the collaborators of an Engine. Remote may be nil, in which case
// every transition fails with ErrRemoteUnavailable.
type Deps struct {
	Store    *catalog.Store
	Baseline *baseline.Tracker
	Remote   remote.Store
	States   StatePersister
	DeviceID string
	// Node seeds trip id generation; 0..1023.
	Node     int64
	Strategy ConflictResolutionStrategy
}

// Engine orchestrates the trip transitions. At most one runs at a time.
type Engine struct {
	store    *catalog.Store
	views    *catalog.Views
	baseline *baseline.Tracker
	remote   remote.Store
	states   StatePersister
	resolver *ConflictResolver
	ids      *snowflake.Node
	deviceID string
	log      *zap.Logger

	mu             sync.Mutex
	syncInProgress bool
	state          models.TripState
}

// NewEngine creates an engine and restores the persisted trip state.
func NewEngine(deps Deps, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Store == nil || deps.Baseline == nil {
		return nil, errors.New("sync engine needs a product store and a baseline tracker")
	}
	node, err := snowflake.NewNode(deps.Node)
	if err != nil {
		return nil, errors.Wrap(err, "trip id generator")
	}

	e := &Engine{
		store:    deps.Store,
		views:    catalog.NewViews(deps.Store),
		baseline: deps.Baseline,
		remote:   deps.Remote,
		states:   deps.States,
		resolver: NewConflictResolver(deps.Strategy),
		ids:      node,
		deviceID: deps.DeviceID,
		log:      logger.Named("sync"),
		state:    models.TripState{State: string(StateIdle), UpdatedAt: time.Now().UTC()},
	}
	if e.states != nil {
		if st, err := e.states.LoadTripState(); err == nil && st.State != "" {
			e.state = st
			e.log.Info("restored trip state", zap.String("state", st.State), zap.String("trip", st.TripID))
		}
	}
	return e, nil
}

// Status reports the current trip state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		State:       State(e.state.State),
		TripID:      e.state.TripID,
		Syncing:     e.syncInProgress,
		HasBaseline: e.baseline.Has(),
		LastError:   e.state.LastError,
		UpdatedAt:   e.state.UpdatedAt,
		DeviceID:    e.deviceID,
	}
}

// transition is the body of one guarded operation. It returns the state to
// move to on success.
type transition func(ctx context.Context, uid string, res *Result) (State, error)

// run is the single guarded entry for every transition.
func (e *Engine) run(ctx context.Context, uid string, op Operation, fn transition) (Result, error) {
	e.mu.Lock()
	if e.syncInProgress {
		e.mu.Unlock()
		e.log.Warn("⏳ sync already in progress, ignoring request", zap.String("operation", string(op)))
		return Result{Operation: op}, ErrSyncInProgress
	}
	if uid == "" {
		e.mu.Unlock()
		return Result{Operation: op}, errors.Wrap(ErrNotAuthenticated, string(op))
	}
	if e.remote == nil {
		e.mu.Unlock()
		return Result{Operation: op}, errors.Wrap(ErrRemoteUnavailable, string(op))
	}
	from := State(e.state.State)
	if !canStart(op, from) {
		e.mu.Unlock()
		return Result{Operation: op}, errors.Wrapf(ErrInvalidTransition, "%s from %s", op, from)
	}
	e.syncInProgress = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.syncInProgress = false
		e.mu.Unlock()
	}()

	start := time.Now()
	res := Result{Operation: op, TripID: e.Status().TripID}
	e.log.Info("🔄 trip transition", zap.String("operation", string(op)), zap.String("from", string(from)))

	next, err := fn(ctx, uid, &res)
	res.Duration = time.Since(start)
	if err != nil {
		e.log.Error("trip transition failed", zap.String("operation", string(op)), zap.Error(err))
		e.saveState(from, e.Status().TripID, err.Error())
		return res, errors.Wrap(err, string(op))
	}

	e.saveState(next, res.TripID, "")
	e.log.Info("✅ trip transition done",
		zap.String("operation", string(op)),
		zap.String("state", string(next)),
		zap.Int("pushed", res.Pushed),
		zap.Int("applied", res.Applied),
		zap.Int("created", res.Created),
		zap.Duration("took", res.Duration))
	return res, nil
}

func (e *Engine) saveState(s State, tripID, lastError string) {
	e.mu.Lock()
	e.state = models.TripState{
		State:     string(s),
		TripID:    tripID,
		UpdatedAt: time.Now().UTC(),
		LastError: lastError,
	}
	st := e.state
	e.mu.Unlock()

	if e.states != nil {
		if err := e.states.SaveTripState(st); err != nil {
			e.log.Error("persist trip state", zap.Error(err))
		}
	}
}

func (e *Engine) newTripID() string {
	return e.ids.Generate().String()
}

func (e *Engine) tripMarker(tripID string, s State) remote.Document {
	return remote.Document{
		"tripId":    tripID,
		"state":     string(s),
		"updatedAt": models.Now(),
		"device":    e.deviceID,
	}
}

func (e *Engine) readMarker(ctx context.Context, uid string) (TripMarker, bool, error) {
	docs, err := e.remote.Get(ctx, uid, remote.CollectionMeta)
	if err != nil {
		return TripMarker{}, false, errors.Wrap(err, "read trip marker")
	}
	m, ok := MarkerFrom(docs)
	return m, ok, nil
}

// PrepareTrip uploads the local shopping view as the trip manifest. Stale
// documents left from an earlier trip are deleted in the same commit.
func (e *Engine) PrepareTrip(ctx context.Context, uid string) (Result, error) {
	return e.run(ctx, uid, OpPrepareTrip, func(ctx context.Context, uid string, res *Result) (State, error) {
		existing, err := e.remote.Get(ctx, uid, remote.CollectionShoppingItems)
		if err != nil {
			return "", errors.Wrap(err, "read shopping items")
		}

		items := e.views.ShoppingItems()
		keep := make(map[string]struct{}, len(items))
		batch := e.remote.Batch(uid)
		for _, p := range items {
			doc, err := BuildPayload(p)
			if err != nil {
				return "", err
			}
			batch.Set(remote.CollectionShoppingItems, p.ID, doc)
			keep[p.ID] = struct{}{}
			res.Pushed++
		}
		for _, s := range existing {
			if _, ok := keep[s.ID]; ok {
				continue
			}
			batch.Delete(remote.CollectionShoppingItems, s.ID)
			res.Deleted++
		}

		res.TripID = e.newTripID()
		batch.Set(remote.CollectionMeta, MetaTripDoc, e.tripMarker(res.TripID, StatePrepared))
		if err := batch.Commit(ctx); err != nil {
			return "", errors.Wrap(err, "commit trip manifest")
		}
		return StatePrepared, nil
	})
}

// DownloadList pulls the trip manifest into the local store and captures
// the baseline the trip will be diffed against.
func (e *Engine) DownloadList(ctx context.Context, uid string) (Result, error) {
	return e.run(ctx, uid, OpDownloadList, func(ctx context.Context, uid string, res *Result) (State, error) {
		docs, err := e.remote.Get(ctx, uid, remote.CollectionShoppingItems)
		if err != nil {
			return "", errors.Wrap(err, "read shopping items")
		}
		incoming := e.decode(docs, res)
		marker, found, err := e.readMarker(ctx, uid)
		if err != nil {
			return "", err
		}

		// an orphan matched by name takes the remote id so the trip pushes
		// back to the manifest document instead of creating a second one
		e.store.Batch(func(tx *catalog.Tx) {
			for _, p := range incoming {
				if _, ok := tx.Get(p.ID); ok {
					tx.Upsert(p)
					res.Applied++
					continue
				}
				if local, ok := tx.FindByNormalizedName(p.Name); ok && tx.Rekey(local.ID, p.ID) {
					e.log.Warn("orphaned shopping item matched by name",
						zap.String("remoteId", p.ID),
						zap.String("localId", local.ID),
						zap.String("name", p.Name))
					tx.Upsert(p)
					res.Applied++
					continue
				}
				tx.Upsert(p)
				res.Created++
			}
		})

		if found && marker.State == StatePrepared && marker.TripID != "" {
			res.TripID = marker.TripID
		} else {
			res.TripID = e.newTripID()
		}
		e.baseline.Capture(e.store.All(), res.TripID)
		return StateInProgress, nil
	})
}

// ShoppingDone pushes what changed during the trip in one commit, then
// clears bought items locally.
func (e *Engine) ShoppingDone(ctx context.Context, uid string) (Result, error) {
	return e.run(ctx, uid, OpShoppingDone, func(ctx context.Context, uid string, res *Result) (State, error) {
		if !e.baseline.Has() {
			return "", ErrNoBaseline
		}
		if snap, ok := e.baseline.Snapshot(); ok && snap.TripID != "" {
			res.TripID = snap.TripID
		}

		diff := e.baseline.Diff(e.store.All())
		batch := e.remote.Batch(uid)
		if diff.Empty() {
			e.log.Info("nothing changed during the trip")
		} else {
			for _, p := range diff.ChangedProducts {
				doc, err := BuildPayload(p)
				if err != nil {
					return "", err
				}
				e.log.Debug("changed product", zap.String("id", p.ID), zap.Strings("fields", diff.ChangedFields[p.ID]))
				batch.Set(remote.CollectionShoppingItems, p.ID, doc)
				res.Pushed++
			}
			for _, p := range diff.NewProducts {
				doc, err := BuildPayload(p)
				if err != nil {
					return "", err
				}
				batch.Set(remote.CollectionShoppingItems, p.ID, doc)
				batch.Set(remote.CollectionAllProducts, p.ID, doc)
				res.Pushed++
				res.Created++
			}
		}
		// the marker goes up even for an empty trip, refresh waits for it
		batch.Set(remote.CollectionMeta, MetaTripDoc, e.tripMarker(res.TripID, StateDone))
		if err := batch.Commit(ctx); err != nil {
			return "", errors.Wrap(err, "commit trip changes")
		}

		res.Cleared = len(e.store.ClearCompleted())
		e.baseline.Discard()
		return StateDone, nil
	})
}

// Refresh reads back what the shopping device pushed, applies it by last
// write wins and clears the completion markers on the server. It refuses to
// run until the trip marker says DONE for this device's trip. The server
// commit runs before the local apply so a failure leaves the store as is.
func (e *Engine) Refresh(ctx context.Context, uid string) (Result, error) {
	return e.run(ctx, uid, OpRefresh, func(ctx context.Context, uid string, res *Result) (State, error) {
		marker, found, err := e.readMarker(ctx, uid)
		if err != nil {
			return "", err
		}
		if !found || marker.State != StateDone || (res.TripID != "" && marker.TripID != res.TripID) {
			e.log.Info("trip not finished yet",
				zap.String("trip", res.TripID),
				zap.String("markerTrip", marker.TripID),
				zap.String("markerState", string(marker.State)))
			return "", ErrTripNotDone
		}

		docs, err := e.remote.Get(ctx, uid, remote.CollectionShoppingItems)
		if err != nil {
			return "", errors.Wrap(err, "read shopping items")
		}
		incoming, stale := e.dedupe(e.decode(docs, res))

		var apply []models.Product
		batch := e.remote.Batch(uid)
		cleanup := 0
		for _, id := range stale {
			batch.Delete(remote.CollectionShoppingItems, id)
			res.Deleted++
		}
		for _, c := range incoming {
			p := c.doc
			if p.Completed {
				bought := p
				clearBought(&bought)
				doc, err := BuildPayload(bought)
				if err != nil {
					return "", err
				}
				batch.Set(remote.CollectionShoppingItems, p.ID, doc)
				cleanup++
			}

			if c.found {
				resolution := e.resolver.Resolve(c.local, p)
				if !resolution.RemoteWins() {
					e.log.Info("keeping local product", zap.String("id", c.local.ID), zap.String("reason", resolution.Reason))
					res.Conflicts++
					continue
				}
				p.ID = c.local.ID
			}
			if p.Completed {
				clearBought(&p)
				res.Cleared++
			}
			apply = append(apply, p)
		}

		if cleanup > 0 || len(stale) > 0 {
			if err := batch.Commit(ctx); err != nil {
				return "", errors.Wrap(err, "clear completion markers")
			}
		}

		e.store.Batch(func(tx *catalog.Tx) {
			for _, p := range apply {
				if _, ok := tx.Get(p.ID); ok {
					res.Applied++
				} else {
					res.Created++
				}
				tx.Upsert(p)
			}
		})
		res.TripID = ""
		return StateIdle, nil
	})
}

type refreshDoc struct {
	doc   models.Product
	local models.Product
	found bool
}

// dedupe resolves every document to its local product and keeps the newest
// document per product. The ids of the dropped ones are returned as stale.
func (e *Engine) dedupe(docs []models.Product) ([]refreshDoc, []string) {
	var (
		out   []refreshDoc
		stale []string
	)
	byLocal := make(map[string]int, len(docs))
	for _, p := range docs {
		c := refreshDoc{doc: p}
		c.local, c.found = e.store.Get(p.ID)
		if !c.found {
			c.local, c.found = e.store.FindByNormalizedName(p.Name)
			if c.found {
				e.log.Warn("orphaned shopping item matched by name",
					zap.String("remoteId", p.ID),
					zap.String("localId", c.local.ID))
			}
		}
		key := p.ID
		if c.found {
			key = c.local.ID
		}

		i, dup := byLocal[key]
		if !dup {
			byLocal[key] = len(out)
			out = append(out, c)
			continue
		}
		if newerDoc(p, out[i].doc) {
			stale = append(stale, out[i].doc.ID)
			out[i] = c
		} else {
			stale = append(stale, p.ID)
		}
		e.log.Warn("duplicate shopping documents for one product", zap.String("product", key))
	}
	return out, stale
}

// newerDoc orders two documents of one product; a tie goes to the bought one.
func newerDoc(a, b models.Product) bool {
	ta, tb := a.ModifiedAt(), b.ModifiedAt()
	if ta.Equal(tb) {
		return a.Completed && !b.Completed
	}
	return ta.After(tb)
}

// MarkBought checks an item off during the trip. Local only.
func (e *Engine) MarkBought(id string) bool {
	return e.store.SetFlag(id, models.FlagCompleted, true)
}

// MarkOutOfStock records that an item on the list was not available. Local only.
func (e *Engine) MarkOutOfStock(id string) bool {
	return e.store.SetFlag(id, models.FlagInStock, false)
}

func (e *Engine) decode(docs []remote.Snapshot, res *Result) []models.Product {
	out := make([]models.Product, 0, len(docs))
	for _, s := range docs {
		p, err := DocumentToProduct(s)
		if err != nil {
			e.log.Warn("skipping malformed remote document", zap.String("id", s.ID), zap.Error(err))
			res.Skipped++
			continue
		}
		out = append(out, p)
	}
	return out
}

// clearBought applies the bought-item policy to a copy.
func clearBought(p *models.Product) {
	p.InShopping = false
	p.Completed = false
	p.InStock = true
}
