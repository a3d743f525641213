package sync

import (
	"time"

	"github.com/pkg/errors"
)

// State is the position of this device in the shopping trip cycle.
type State string

const (
	StateIdle       State = "IDLE"
	StatePrepared   State = "PREPARED"
	StateInProgress State = "IN_PROGRESS"
	StateDone       State = "DONE"
)

// Operation names one guarded transition.
type Operation string

const (
	OpPrepareTrip  Operation = "prepare_trip"
	OpDownloadList Operation = "download_list"
	OpShoppingDone Operation = "shopping_done"
	OpRefresh      Operation = "refresh"
)

// allowedFrom lists the states each transition may start from.
var allowedFrom = map[Operation][]State{
	OpPrepareTrip:  {StateIdle, StatePrepared, StateDone},
	OpDownloadList: {StateIdle, StatePrepared, StateDone},
	OpShoppingDone: {StateInProgress},
	OpRefresh:      {StatePrepared, StateDone},
}

func canStart(op Operation, from State) bool {
	for _, s := range allowedFrom[op] {
		if s == from {
			return true
		}
	}
	return false
}

var (
	ErrSyncInProgress    = errors.New("sync already in progress")
	ErrNotAuthenticated  = errors.New("please sign in")
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	ErrNoBaseline        = errors.New("no baseline captured, download the shopping list first")
	ErrInvalidTransition = errors.New("invalid trip transition")
	ErrInvalidPayload    = errors.New("invalid sync payload")
	ErrTripNotDone       = errors.New("the shopping device has not finished this trip yet")
)

// ConflictResolutionStrategy defines how a remote document is weighed
// against the local product.
type ConflictResolutionStrategy string

const (
	ConflictLastWriteWins ConflictResolutionStrategy = "last_write_wins"
	ConflictServerWins    ConflictResolutionStrategy = "server_wins"
	ConflictClientWins    ConflictResolutionStrategy = "client_wins"
)

// Result summarizes one transition.
type Result struct {
	Operation Operation     `json:"operation"`
	TripID    string        `json:"tripId,omitempty"`
	Pushed    int           `json:"pushed"`
	Deleted   int           `json:"deleted"`
	Applied   int           `json:"applied"`
	Created   int           `json:"created"`
	Cleared   int           `json:"cleared"`
	Conflicts int           `json:"conflicts"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
}

// Status is what the UI shows about the trip cycle.
type Status struct {
	State       State     `json:"state"`
	TripID      string    `json:"tripId,omitempty"`
	Syncing     bool      `json:"syncing"`
	HasBaseline bool      `json:"hasBaseline"`
	LastError   string    `json:"lastError,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
	DeviceID    string    `json:"deviceId"`
}
