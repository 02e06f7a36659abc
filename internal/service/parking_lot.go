package service

import (
	"fmt"

	"parking-service/internal/model"
	"parking-service/internal/repository"
)

type GateDirection string

const (
	GateDirectionEntry GateDirection = "entry"
	GateDirectionExit  GateDirection = "exit"
)

type Gate struct {
	ID        string        `json:"id"`
	Direction GateDirection `json:"direction"`
}

type ParkingLotParams struct {
	Name          string
	Location      string
	SpotLocations []model.SpotLocation
	Fees          FeeStructure
	Gates         []Gate
	Index         *repository.AvailableSpotsIndex
}

// ParkingLot aggregates the topology, the fee table, the gates, and the
// available-spots index. Construction walks every spot location once and is
// the only place fee/topology consistency is enforced: a spot type without a
// fee policy aborts startup before any gate accepts traffic.
type ParkingLot struct {
	name     string
	location string
	fees     FeeStructure
	index    *repository.AvailableSpotsIndex

	spotsByName map[string]*model.Spot
	gates       map[string]Gate
	allSpots    []*model.Spot
	levels      int
	rows        int
}

func NewParkingLot(params ParkingLotParams) (*ParkingLot, error) {
	lot := &ParkingLot{
		name:        params.Name,
		location:    params.Location,
		fees:        params.Fees,
		index:       params.Index,
		spotsByName: make(map[string]*model.Spot),
		gates:       make(map[string]Gate, len(params.Gates)),
	}

	seenLevels := make(map[string]struct{})
	seenRows := make(map[string]struct{})

	for _, location := range params.SpotLocations {
		spot := location.Spot
		if spot == nil || spot.Name == "" {
			return nil, fmt.Errorf("%w: topology contains an unnamed spot", ErrInvalidInput)
		}
		if _, dup := lot.spotsByName[spot.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate spot %q", ErrInvalidInput, spot.Name)
		}
		if _, ok := params.Fees.PolicyFor(spot.Type); !ok {
			return nil, fmt.Errorf("%w: spot type %q", ErrMissingFeePolicy, spot.Type)
		}

		spot.Level = location.Level
		spot.Row = location.Row
		lot.spotsByName[spot.Name] = spot
		lot.allSpots = append(lot.allSpots, spot)
		lot.index.Add(spot)

		seenLevels[location.Level] = struct{}{}
		seenRows[location.Level+"/"+location.Row] = struct{}{}
	}

	lot.levels = len(seenLevels)
	lot.rows = len(seenRows)

	for _, gate := range params.Gates {
		if gate.Direction != GateDirectionEntry && gate.Direction != GateDirectionExit {
			return nil, fmt.Errorf("%w: gate %q has direction %q", ErrInvalidInput, gate.ID, gate.Direction)
		}
		lot.gates[gate.ID] = gate
	}

	return lot, nil
}

func (l *ParkingLot) Name() string { return l.name }

func (l *ParkingLot) Location() string { return l.location }

func (l *ParkingLot) Levels() int { return l.levels }

func (l *ParkingLot) Rows() int { return l.rows }

func (l *ParkingLot) Spots() int { return len(l.allSpots) }

func (l *ParkingLot) Fees() FeeStructure {
	return l.fees
}

func (l *ParkingLot) Gate(id string) (Gate, bool) {
	gate, ok := l.gates[id]
	return gate, ok
}

func (l *ParkingLot) SpotByName(name string) (*model.Spot, bool) {
	spot, ok := l.spotsByName[name]
	return spot, ok
}

// Allocate picks a candidate spot: the explicitly requested one when a name
// is given, otherwise any available spot of the requested type. The caller
// still has to win the spot's Book CAS, so a stale pick just fails there.
func (l *ParkingLot) Allocate(spotType model.SpotType, spotName string) (*model.Spot, error) {
	if spotName != "" {
		spot, ok := l.spotsByName[spotName]
		if !ok {
			return nil, fmt.Errorf("%w: spot %q", ErrNotFound, spotName)
		}
		return spot, nil
	}
	spot := l.index.PickAvailable(spotType)
	if spot == nil {
		return nil, ErrSpotUnavailable
	}
	return spot, nil
}

// Status snapshots per-type occupancy plus the derived topology counts.
func (l *ParkingLot) Status() model.LotStatus {
	status := model.LotStatus{
		Name:     l.name,
		Location: l.location,
		Levels:   l.levels,
		Rows:     l.rows,
		Spots:    len(l.allSpots),
	}

	totals := make(map[model.SpotType]*model.TypeOccupancy)
	for _, spotType := range model.AllSpotTypes() {
		totals[spotType] = &model.TypeOccupancy{Type: spotType}
	}

	for _, spot := range l.allSpots {
		entry := totals[spot.Type]
		entry.Total++
		if spot.IsAvailable() {
			entry.Available++
			status.Available++
		} else {
			entry.Occupied++
			status.Occupied++
		}
	}

	for _, spotType := range model.AllSpotTypes() {
		if totals[spotType].Total == 0 {
			continue
		}
		status.ByType = append(status.ByType, *totals[spotType])
	}
	return status
}
