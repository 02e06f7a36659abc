package model

import (
	"time"

	"github.com/google/uuid"
)

type LotEventType string

const (
	LotEventTicketCreated LotEventType = "ticket_created"
	LotEventVehicleParked LotEventType = "vehicle_parked"
	LotEventVehicleExited LotEventType = "vehicle_exited"
)

// LotEvent is the payload pushed to websocket subscribers on every ticket
// transition.
type LotEvent struct {
	ID         uuid.UUID    `json:"id"`
	Type       LotEventType `json:"type"`
	Plate      string       `json:"plate"`
	SpotName   string       `json:"spot_name"`
	SpotType   SpotType     `json:"spot_type"`
	GateID     string       `json:"gate_id,omitempty"`
	Fee        *float64     `json:"fee,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}
