package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/xelth-com/pantrysync/internal/interchange"
	"github.com/xelth-com/pantrysync/internal/remote"
	tripsync "github.com/xelth-com/pantrysync/internal/sync"
)

// statusFor maps core errors to HTTP status codes.
func statusFor(err error) int {
	var verr *interchange.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, tripsync.ErrInvalidPayload),
		errors.Is(err, remote.ErrInvalidDocument):
		return http.StatusBadRequest
	case errors.Is(err, tripsync.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, tripsync.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, tripsync.ErrInvalidTransition),
		errors.Is(err, tripsync.ErrNoBaseline),
		errors.Is(err, tripsync.ErrTripNotDone):
		return http.StatusPreconditionFailed
	case errors.Is(err, tripsync.ErrRemoteUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// respondOpError reports a failed operation by name with the error text.
func (r *Router) respondOpError(w http.ResponseWriter, operation string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		r.log.Error("operation failed", zap.String("operation", operation), zap.Error(err))
	} else {
		r.log.Warn("operation rejected", zap.String("operation", operation), zap.Error(err))
	}
	respondJSON(w, status, map[string]string{
		"error":     err.Error(),
		"operation": operation,
	})
}
