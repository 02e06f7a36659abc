package model

import (
	"time"

	"github.com/google/uuid"
)

// Ticket binds one vehicle to one spot for one stay. It is created in the
// booked state (no history, no parked timestamp) and driven through park and
// exit by the ticket manager.
type Ticket struct {
	ID        uuid.UUID       `json:"id"`
	Vehicle   Vehicle         `json:"vehicle"`
	Spot      *Spot           `json:"spot"`
	History   *ParkingHistory `json:"history,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	ParkedAt  *time.Time      `json:"parked_at,omitempty"`
	ExitedAt  *time.Time      `json:"exited_at,omitempty"`
}

// ParkingHistory is the append-only record of one stay. It is a pure value:
// the ticket manager populates it at park time and closes it exactly once at
// exit. It never touches the spot itself.
type ParkingHistory struct {
	ID       uuid.UUID  `json:"id"`
	Plate    string     `json:"plate"`
	SpotName string     `json:"spot_name"`
	SpotType SpotType   `json:"spot_type"`
	Level    string     `json:"level"`
	Row      string     `json:"row"`
	FromTime time.Time  `json:"from_time"`
	ToTime   *time.Time `json:"to_time,omitempty"`
	Fee      *float64   `json:"fee,omitempty"`
}

// Open reports whether the stay is still in progress.
func (h *ParkingHistory) Open() bool {
	return h.ToTime == nil
}
