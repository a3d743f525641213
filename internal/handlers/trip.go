package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/xelth-com/pantrysync/internal/middleware"
	tripsync "github.com/xelth-com/pantrysync/internal/sync"
	"github.com/xelth-com/pantrysync/internal/websocket"
)

func (r *Router) tripStatus(w http.ResponseWriter, req *http.Request) {
	if r.engine == nil {
		respondError(w, http.StatusServiceUnavailable, "sync engine not configured")
		return
	}
	respondJSON(w, http.StatusOK, r.engine.Status())
}

// tripAction runs one trip transition for the authenticated account.
func (r *Router) tripAction(op tripsync.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if r.engine == nil {
			respondError(w, http.StatusServiceUnavailable, "sync engine not configured")
			return
		}
		uid := middleware.UIDFromContext(req.Context())

		res, err := r.runTrip(req.Context(), op, uid)
		if err != nil {
			r.respondOpError(w, string(op), err)
			return
		}

		st := r.engine.Status()
		if r.hub != nil {
			r.hub.Broadcast(websocket.TripStateChanged{
				Type:      websocket.TypeTripState,
				State:     string(st.State),
				Operation: string(op),
				TripID:    st.TripID,
			})
		}
		r.log.Info("trip action", zap.String("operation", string(op)), zap.String("state", string(st.State)))
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"result": res,
			"status": st,
		})
	}
}

func (r *Router) runTrip(ctx context.Context, op tripsync.Operation, uid string) (tripsync.Result, error) {
	switch op {
	case tripsync.OpPrepareTrip:
		return r.engine.PrepareTrip(ctx, uid)
	case tripsync.OpDownloadList:
		return r.engine.DownloadList(ctx, uid)
	case tripsync.OpShoppingDone:
		return r.engine.ShoppingDone(ctx, uid)
	default:
		return r.engine.Refresh(ctx, uid)
	}
}
