package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-service/internal/model"
	"parking-service/internal/repository"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type capturedEvents struct {
	mu     sync.Mutex
	events []model.LotEvent
}

func (e *capturedEvents) Notify(event model.LotEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *capturedEvents) types() []model.LotEventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	types := make([]model.LotEventType, 0, len(e.events))
	for _, event := range e.events {
		types = append(types, event.Type)
	}
	return types
}

type fixture struct {
	manager *TicketManager
	index   *repository.AvailableSpotsIndex
	history *repository.HistoryStore
	clock   *manualClock
	events  *capturedEvents
}

func newFixture(fees FeeStructure) *fixture {
	index := repository.NewAvailableSpotsIndex()
	history := repository.NewHistoryStore()
	clock := newManualClock()
	events := &capturedEvents{}

	manager := NewTicketManager(
		fees,
		clock,
		NewIndexAvailabilityObserver(index),
		NewStoreHistoryObserver(history),
		events,
	)
	return &fixture{
		manager: manager,
		index:   index,
		history: history,
		clock:   clock,
		events:  events,
	}
}

func regularFees() FeeStructure {
	return FeeStructure{model.SpotTypeRegularVehicle: {BaseFee: 2.0, PerMinute: 0.5}}
}

func TestTicketLifecycle(t *testing.T) {
	f := newFixture(regularFees())
	spot := model.NewSpot("A1", model.SpotTypeRegularVehicle, "L1", "A")
	f.index.Add(spot)

	vehicle := model.Vehicle{Plate: "ka-01", Type: model.SpotTypeRegularVehicle}

	ticket, err := f.manager.CreateTicket(context.Background(), vehicle, spot)
	require.NoError(t, err)
	assert.Equal(t, "KA01", ticket.Vehicle.Plate)
	assert.Equal(t, model.SpotStateBooked, spot.State())
	assert.Nil(t, ticket.History)
	assert.Nil(t, ticket.ParkedAt)
	// Booking is provisional: the spot stays indexed and no history exists.
	assert.True(t, f.index.Contains(spot))
	assert.Equal(t, 0, f.history.Len())

	ticket, err = f.manager.Park(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SpotStateOccupied, spot.State())
	require.NotNil(t, ticket.ParkedAt)
	require.NotNil(t, ticket.History)
	assert.False(t, f.index.Contains(spot))
	require.Equal(t, 1, f.history.Len())
	assert.True(t, ticket.History.Open())

	f.clock.Advance(120 * time.Second)

	exited, fee, err := f.manager.Exit(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, fee)
	assert.True(t, spot.IsAvailable())
	assert.True(t, f.index.Contains(spot))
	require.NotNil(t, exited.History.ToTime)
	assert.False(t, exited.History.ToTime.Before(exited.History.FromTime))
	require.NotNil(t, exited.History.Fee)
	assert.Equal(t, 3.0, *exited.History.Fee)
	assert.Equal(t, 0, f.manager.ActiveCount())

	assert.Equal(t, []model.LotEventType{
		model.LotEventTicketCreated,
		model.LotEventVehicleParked,
		model.LotEventVehicleExited,
	}, f.events.types())
}

func TestCreateTicketTypeMismatch(t *testing.T) {
	f := newFixture(regularFees())
	spot := model.NewSpot("A1", model.SpotTypeRegularVehicle, "L1", "A")

	_, err := f.manager.CreateTicket(context.Background(),
		model.Vehicle{Plate: "KA01", Type: model.SpotTypeCycle}, spot)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	// No partial mutation: the spot is still bookable.
	assert.True(t, spot.IsAvailable())
	assert.Equal(t, 0, f.manager.ActiveCount())
}

func TestCreateTicketSpotTakenConflict(t *testing.T) {
	f := newFixture(regularFees())
	spot := model.NewSpot("A1", model.SpotTypeRegularVehicle, "L1", "A")

	_, err := f.manager.CreateTicket(context.Background(),
		model.Vehicle{Plate: "KA01", Type: model.SpotTypeRegularVehicle}, spot)
	require.NoError(t, err)

	_, err = f.manager.CreateTicket(context.Background(),
		model.Vehicle{Plate: "KA02", Type: model.SpotTypeRegularVehicle}, spot)
	assert.ErrorIs(t, err, ErrSpotUnavailable)
	assert.Equal(t, 1, f.manager.ActiveCount())
}

func TestCreateTicketPlateAlreadyActive(t *testing.T) {
	f := newFixture(regularFees())
	first := model.NewSpot("A1", model.SpotTypeRegularVehicle, "L1", "A")
	second := model.NewSpot("A2", model.SpotTypeRegularVehicle, "L1", "A")

	_, err := f.manager.CreateTicket(context.Background(),
		model.Vehicle{Plate: "KA 01", Type: model.SpotTypeRegularVehicle}, first)
	require.NoError(t, err)

	_, err = f.manager.CreateTicket(context.Background(),
		model.Vehicle{Plate: "ka-01", Type: model.SpotTypeRegularVehicle}, second)
	assert.ErrorIs(t, err, ErrVehicleAlreadyParked)
	assert.True(t, second.IsAvailable())
}

func TestParkUnknownTicket(t *testing.T) {
	f := newFixture(regularFees())
	_, err := f.manager.Park(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParkTwice(t *testing.T) {
	f := newFixture(regularFees())
	spot := model.NewSpot("A1", model.SpotTypeRegularVehicle, "L1", "A")

	ticket, err := f.manager.CreateTicket(context.Background(),
		model.Vehicle{Plate: "KA01", Type: model.SpotTypeRegularVehicle}, spot)
	require.NoError(t, err)

	_, err = f.manager.Park(context.Background(), ticket.ID)
	require.NoError(t, err)

	_, err = f.manager.Park(context.Background(), ticket.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestExitBeforePark(t *testing.T) {
	f := newFixture(regularFees())
	spot := model.NewSpot("A1", model.SpotTypeRegularVehicle, "L1", "A")

	ticket, err := f.manager.CreateTicket(context.Background(),
		model.Vehicle{Plate: "KA01", Type: model.SpotTypeRegularVehicle}, spot)
	require.NoError(t, err)

	_, _, err = f.manager.Exit(context.Background(), ticket.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestExitTwice(t *testing.T) {
	f := newFixture(regularFees())
	spot := model.NewSpot("A1", model.SpotTypeRegularVehicle, "L1", "A")

	ticket, err := f.manager.CreateTicket(context.Background(),
		model.Vehicle{Plate: "KA01", Type: model.SpotTypeRegularVehicle}, spot)
	require.NoError(t, err)
	_, err = f.manager.Park(context.Background(), ticket.ID)
	require.NoError(t, err)
	_, _, err = f.manager.Exit(context.Background(), ticket.ID)
	require.NoError(t, err)

	_, _, err = f.manager.Exit(context.Background(), ticket.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindActive(t *testing.T) {
	f := newFixture(regularFees())
	spot := model.NewSpot("A1", model.SpotTypeRegularVehicle, "L1", "A")

	created, err := f.manager.CreateTicket(context.Background(),
		model.Vehicle{Plate: "KA01", Type: model.SpotTypeRegularVehicle}, spot)
	require.NoError(t, err)

	found, err := f.manager.FindActive("ka-01")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = f.manager.FindActive("ZZ99")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindActiveReturnsSnapshot(t *testing.T) {
	f := newFixture(regularFees())
	spot := model.NewSpot("A1", model.SpotTypeRegularVehicle, "L1", "A")

	created, err := f.manager.CreateTicket(context.Background(),
		model.Vehicle{Plate: "KA01", Type: model.SpotTypeRegularVehicle}, spot)
	require.NoError(t, err)

	before, err := f.manager.FindActive("KA01")
	require.NoError(t, err)
	require.Nil(t, before.ParkedAt)

	_, err = f.manager.Park(context.Background(), created.ID)
	require.NoError(t, err)

	// The earlier snapshot is detached from the manager's state.
	assert.Nil(t, before.ParkedAt)
	assert.Nil(t, before.History)

	after, err := f.manager.FindActive("KA01")
	require.NoError(t, err)
	assert.NotNil(t, after.ParkedAt)
	require.NotNil(t, after.History)
	assert.True(t, after.History.Open())
}

func TestHistoryListDetachedFromExit(t *testing.T) {
	f := newFixture(regularFees())
	spot := model.NewSpot("A1", model.SpotTypeRegularVehicle, "L1", "A")

	ticket, err := f.manager.CreateTicket(context.Background(),
		model.Vehicle{Plate: "KA01", Type: model.SpotTypeRegularVehicle}, spot)
	require.NoError(t, err)
	_, err = f.manager.Park(context.Background(), ticket.ID)
	require.NoError(t, err)

	open := f.history.List(repository.HistoryFilter{})
	require.Len(t, open, 1)
	require.True(t, open[0].Open())

	f.clock.Advance(120 * time.Second)
	_, fee, err := f.manager.Exit(context.Background(), ticket.ID)
	require.NoError(t, err)

	// Records handed out before the exit keep their open state.
	assert.True(t, open[0].Open())
	assert.Nil(t, open[0].Fee)

	closed := f.history.List(repository.HistoryFilter{})
	require.Len(t, closed, 1)
	require.False(t, closed[0].Open())
	require.NotNil(t, closed[0].Fee)
	assert.Equal(t, fee, *closed[0].Fee)
}

func TestConcurrentHistoryReadsDuringExit(t *testing.T) {
	f := newFixture(regularFees())

	const stays = 8
	tickets := make([]*model.Ticket, 0, stays)
	for i := 0; i < stays; i++ {
		spot := model.NewSpot(fmt.Sprintf("A%d", i), model.SpotTypeRegularVehicle, "L1", "A")
		f.index.Add(spot)
		ticket, err := f.manager.CreateTicket(context.Background(),
			model.Vehicle{Plate: fmt.Sprintf("KA%02d", i), Type: model.SpotTypeRegularVehicle}, spot)
		require.NoError(t, err)
		_, err = f.manager.Park(context.Background(), ticket.ID)
		require.NoError(t, err)
		tickets = append(tickets, ticket)
	}

	done := make(chan struct{})
	var readers sync.WaitGroup
	for i := 0; i < 4; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				for _, record := range f.history.List(repository.HistoryFilter{}) {
					if !record.Open() {
						if record.Fee == nil || record.ToTime == nil {
							t.Error("closed record missing end time or fee")
							return
						}
					}
				}
			}
		}()
	}

	var exits sync.WaitGroup
	for _, ticket := range tickets {
		exits.Add(1)
		go func(id uuid.UUID) {
			defer exits.Done()
			_, _, err := f.manager.Exit(context.Background(), id)
			assert.NoError(t, err)
		}(ticket.ID)
	}
	exits.Wait()
	close(done)
	readers.Wait()

	for _, record := range f.history.List(repository.HistoryFilter{}) {
		assert.False(t, record.Open())
	}
}

func TestConcurrentCreateTicketSingleWinner(t *testing.T) {
	f := newFixture(regularFees())
	spot := model.NewSpot("A1", model.SpotTypeRegularVehicle, "L1", "A")
	f.index.Add(spot)

	const callers = 16
	results := make(chan error, callers)
	var wg sync.WaitGroup

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			vehicle := model.Vehicle{
				Plate: "KA" + uuid.NewString()[:8],
				Type:  model.SpotTypeRegularVehicle,
			}
			_, err := f.manager.CreateTicket(context.Background(), vehicle, spot)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	successes, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case assert.ErrorIs(t, err, ErrSpotUnavailable):
			conflicts++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, conflicts)
}
