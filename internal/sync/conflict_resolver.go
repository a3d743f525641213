package sync

import (
	"fmt"

	"github.com/xelth-com/pantrysync/internal/models"
)

// Winner names the side a resolution picked.
type Winner string

const (
	WinnerLocal  Winner = "local"
	WinnerRemote Winner = "remote"
)

// ConflictResolution is the outcome for one product.
type ConflictResolution struct {
	Strategy ConflictResolutionStrategy `json:"strategy"`
	Winner   Winner                     `json:"winner"`
	Reason   string                     `json:"reason"`
}

// RemoteWins reports whether the remote document should be applied.
func (r ConflictResolution) RemoteWins() bool { return r.Winner == WinnerRemote }

// ConflictResolver decides between a local product and its remote document.
type ConflictResolver struct {
	strategy ConflictResolutionStrategy
}

// NewConflictResolver creates a resolver. Empty strategy means last write wins.
func NewConflictResolver(strategy ConflictResolutionStrategy) *ConflictResolver {
	if strategy == "" {
		strategy = ConflictLastWriteWins
	}
	return &ConflictResolver{strategy: strategy}
}

// Resolve compares local against remote for the same product.
func (cr *ConflictResolver) Resolve(local, remote models.Product) ConflictResolution {
	switch cr.strategy {
	case ConflictServerWins:
		return ConflictResolution{Strategy: cr.strategy, Winner: WinnerRemote, Reason: "server wins"}
	case ConflictClientWins:
		return ConflictResolution{Strategy: cr.strategy, Winner: WinnerLocal, Reason: "client wins"}
	}

	lt, rt := local.ModifiedAt(), remote.ModifiedAt()
	// ties go to the remote copy, it was written by the other device's trip
	if !rt.Before(lt) {
		return ConflictResolution{
			Strategy: ConflictLastWriteWins,
			Winner:   WinnerRemote,
			Reason:   fmt.Sprintf("remote timestamp (%s) is not older than local (%s)", remote.Timestamp, local.Timestamp),
		}
	}
	return ConflictResolution{
		Strategy: ConflictLastWriteWins,
		Winner:   WinnerLocal,
		Reason:   fmt.Sprintf("local timestamp (%s) is more recent than remote (%s)", local.Timestamp, remote.Timestamp),
	}
}
