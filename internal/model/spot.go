package model

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

type SpotType string

const (
	SpotTypeCycle           SpotType = "cycle"
	SpotTypeMotorCycle      SpotType = "motor_cycle"
	SpotTypeCompactVehicle  SpotType = "compact_vehicle"
	SpotTypeRegularVehicle  SpotType = "regular_vehicle"
	SpotTypeHandicappedSpot SpotType = "handicapped_spot"
	SpotTypeElectricVehicle SpotType = "electric_vehicle"
)

func AllSpotTypes() []SpotType {
	return []SpotType{
		SpotTypeCycle,
		SpotTypeMotorCycle,
		SpotTypeCompactVehicle,
		SpotTypeRegularVehicle,
		SpotTypeHandicappedSpot,
		SpotTypeElectricVehicle,
	}
}

func ParseSpotType(raw string) (SpotType, error) {
	t := SpotType(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range AllSpotTypes() {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown spot type %q", raw)
}

type SpotState string

const (
	SpotStateAvailable SpotState = "AVAILABLE"
	SpotStateBooked    SpotState = "BOOKED"
	SpotStateOccupied  SpotState = "OCCUPIED"
)

var (
	ErrSpotUnavailable = errors.New("spot unavailable")
	ErrInvalidState    = errors.New("invalid spot state transition")
)

// Spot is a single parking space. All occupancy transitions go through the
// mutex-guarded methods below, so a booking race between two gates resolves
// to exactly one winner.
type Spot struct {
	Name  string   `json:"name"`
	Type  SpotType `json:"type"`
	Level string   `json:"level"`
	Row   string   `json:"row"`

	mu       sync.Mutex
	state    SpotState
	occupant *Vehicle
}

func NewSpot(name string, spotType SpotType, level, row string) *Spot {
	return &Spot{
		Name:  name,
		Type:  spotType,
		Level: level,
		Row:   row,
		state: SpotStateAvailable,
	}
}

// Book reserves an available spot for a ticket that is about to be issued.
// Compare-and-swap: only one caller can move AVAILABLE -> BOOKED.
func (s *Spot) Book() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SpotStateAvailable {
		return ErrSpotUnavailable
	}
	s.state = SpotStateBooked
	return nil
}

// Park moves a booked spot to occupied and records the occupant.
func (s *Spot) Park(v Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SpotStateBooked {
		return ErrInvalidState
	}
	s.state = SpotStateOccupied
	s.occupant = &v
	return nil
}

// Release frees the spot unconditionally, clearing both the occupant and the
// booking. The ticket manager is the only caller.
func (s *Spot) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SpotStateAvailable
	s.occupant = nil
}

func (s *Spot) IsAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == SpotStateAvailable && s.occupant == nil
}

func (s *Spot) State() SpotState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Spot) Occupant() *Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.occupant == nil {
		return nil
	}
	occupant := *s.occupant
	return &occupant
}
