package service

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"parking-service/internal/model"
)

// TicketService is the contract the HTTP layer drives. The plain manager and
// the telemetry decorator both implement it.
type TicketService interface {
	CreateTicket(ctx context.Context, vehicle model.Vehicle, spot *model.Spot) (*model.Ticket, error)
	Park(ctx context.Context, ticketID uuid.UUID) (*model.Ticket, error)
	Exit(ctx context.Context, ticketID uuid.UUID) (*model.Ticket, float64, error)
	FindActive(plate string) (*model.Ticket, error)
	ActiveCount() int
}

// TicketManager orchestrates the ticket lifecycle. It is the sole mutator of
// spot state and the sole caller of the observers; gates never touch spots or
// the stores directly.
type TicketManager struct {
	mu      sync.Mutex
	byPlate map[string]*model.Ticket
	byID    map[uuid.UUID]*model.Ticket
	fees    FeeStructure
	clock   Clock
	spots   AvailabilityObserver
	history HistoryObserver
	events  EventObserver
}

func NewTicketManager(
	fees FeeStructure,
	clock Clock,
	spots AvailabilityObserver,
	history HistoryObserver,
	events EventObserver,
) *TicketManager {
	return &TicketManager{
		byPlate: make(map[string]*model.Ticket),
		byID:    make(map[uuid.UUID]*model.Ticket),
		fees:    fees,
		clock:   clock,
		spots:   spots,
		history: history,
		events:  events,
	}
}

// CreateTicket books the spot and issues a ticket in the booked state.
// Booking is provisional: the availability and history observers are not
// notified until Park. All preconditions are checked before any mutation, so
// a failure leaves both the spot and the registry untouched.
func (m *TicketManager) CreateTicket(ctx context.Context, vehicle model.Vehicle, spot *model.Spot) (*model.Ticket, error) {
	vehicle.Plate = model.NormalizePlate(vehicle.Plate)
	if strings.TrimSpace(vehicle.Plate) == "" || spot == nil {
		return nil, ErrInvalidInput
	}
	if vehicle.Type != spot.Type {
		return nil, ErrTypeMismatch
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, live := m.byPlate[vehicle.Plate]; live {
		return nil, ErrVehicleAlreadyParked
	}

	if err := spot.Book(); err != nil {
		return nil, err
	}

	ticket := &model.Ticket{
		ID:        uuid.New(),
		Vehicle:   vehicle,
		Spot:      spot,
		CreatedAt: m.clock.Now(),
	}
	m.byPlate[vehicle.Plate] = ticket
	m.byID[ticket.ID] = ticket

	m.publish(model.LotEvent{
		Type:     model.LotEventTicketCreated,
		Plate:    vehicle.Plate,
		SpotName: spot.Name,
		SpotType: spot.Type,
	})

	return snapshotTicket(ticket), nil
}

// Park transitions the booked spot to occupied, stamps the ticket, opens the
// history record, and notifies availability before history. The ordering
// matters: the spot must be gone from the available index before its history
// record becomes visible, so a concurrent scan never sees a spot both free
// and mid-stay.
func (m *TicketManager) Park(ctx context.Context, ticketID uuid.UUID) (*model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ticket, ok := m.byID[ticketID]
	if !ok {
		return nil, ErrNotFound
	}
	if ticket.ParkedAt != nil {
		return nil, ErrInvalidState
	}

	if err := ticket.Spot.Park(ticket.Vehicle); err != nil {
		return nil, err
	}

	now := m.clock.Now()
	ticket.ParkedAt = &now
	ticket.History = &model.ParkingHistory{
		ID:       uuid.New(),
		Plate:    ticket.Vehicle.Plate,
		SpotName: ticket.Spot.Name,
		SpotType: ticket.Spot.Type,
		Level:    ticket.Spot.Level,
		Row:      ticket.Spot.Row,
		FromTime: now,
	}

	m.spots.NotifyPark(ticket.Spot)
	m.history.Notify(ticket.History)
	m.publish(model.LotEvent{
		Type:     model.LotEventVehicleParked,
		Plate:    ticket.Vehicle.Plate,
		SpotName: ticket.Spot.Name,
		SpotType: ticket.Spot.Type,
	})

	return snapshotTicket(ticket), nil
}

// Exit closes the stay: stamps the ticket, prices the interval, closes the
// history record through the history observer so the write serializes with
// store readers, releases the spot, and re-adds it to the available index.
func (m *TicketManager) Exit(ctx context.Context, ticketID uuid.UUID) (*model.Ticket, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ticket, ok := m.byID[ticketID]
	if !ok {
		return nil, 0, ErrNotFound
	}
	if ticket.ParkedAt == nil || ticket.ExitedAt != nil {
		return nil, 0, ErrInvalidState
	}

	policy, ok := m.fees.PolicyFor(ticket.Spot.Type)
	if !ok {
		return nil, 0, ErrMissingFeePolicy
	}

	now := m.clock.Now()
	ticket.ExitedAt = &now
	fee := policy.Amount(*ticket.ParkedAt, now)
	m.history.NotifyClose(ticket.History, now, fee)

	ticket.Spot.Release()
	delete(m.byPlate, ticket.Vehicle.Plate)
	delete(m.byID, ticket.ID)

	m.spots.NotifyExit(ticket.Spot)
	m.publish(model.LotEvent{
		Type:     model.LotEventVehicleExited,
		Plate:    ticket.Vehicle.Plate,
		SpotName: ticket.Spot.Name,
		SpotType: ticket.Spot.Type,
		Fee:      &fee,
	})

	return snapshotTicket(ticket), fee, nil
}

// FindActive returns a snapshot of the active ticket for a plate, if any.
func (m *TicketManager) FindActive(plate string) (*model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.byPlate[model.NormalizePlate(plate)]
	if !ok {
		return nil, ErrNotFound
	}
	return snapshotTicket(ticket), nil
}

func (m *TicketManager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// snapshotTicket copies a registered ticket so callers never hold a pointer
// the manager keeps mutating. Must be called with m.mu held. The spot pointer
// is shared on purpose: spots guard their own state.
func snapshotTicket(ticket *model.Ticket) *model.Ticket {
	clone := *ticket
	if ticket.History != nil {
		record := *ticket.History
		clone.History = &record
	}
	return &clone
}

func (m *TicketManager) publish(event model.LotEvent) {
	if m.events == nil {
		return
	}
	event.ID = uuid.New()
	event.OccurredAt = m.clock.Now()
	m.events.Notify(event)
}
