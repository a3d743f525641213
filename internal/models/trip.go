package models

import "time"

// TripState is the persisted position of this device in the shopping trip cycle.
type TripState struct {
	State     string    `json:"state"`
	TripID    string    `json:"tripId,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
	LastError string    `json:"lastError,omitempty"`
}
