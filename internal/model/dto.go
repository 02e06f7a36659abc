package model

import (
	"time"

	"github.com/google/uuid"
)

type TicketDTO struct {
	ID        uuid.UUID  `json:"id"`
	Plate     string     `json:"plate"`
	SpotName  string     `json:"spot_name"`
	SpotType  SpotType   `json:"spot_type"`
	Level     string     `json:"level"`
	Row       string     `json:"row"`
	GateID    string     `json:"gate_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ParkedAt  *time.Time `json:"parked_at,omitempty"`
}

type ReceiptDTO struct {
	TicketID        uuid.UUID `json:"ticket_id"`
	Plate           string    `json:"plate"`
	SpotName        string    `json:"spot_name"`
	SpotType        SpotType  `json:"spot_type"`
	GateID          string    `json:"gate_id,omitempty"`
	FromTime        time.Time `json:"from_time"`
	ToTime          time.Time `json:"to_time"`
	DurationSeconds int64     `json:"duration_seconds"`
	Fee             float64   `json:"fee"`
}

type TypeOccupancy struct {
	Type      SpotType `json:"type"`
	Total     int      `json:"total"`
	Available int      `json:"available"`
	Occupied  int      `json:"occupied"`
}

type LotStatus struct {
	Name      string          `json:"name"`
	Location  string          `json:"location,omitempty"`
	Levels    int             `json:"levels"`
	Rows      int             `json:"rows"`
	Spots     int             `json:"spots"`
	Available int             `json:"available"`
	Occupied  int             `json:"occupied"`
	ByType    []TypeOccupancy `json:"by_type"`
}
