package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"parking-service/internal/model"
	"parking-service/internal/service"
)

// InstrumentedTicketManager decorates a ticket service with spans and
// metrics. It delegates every call unchanged; failures in the underlying
// manager surface as recorded span errors.
type InstrumentedTicketManager struct {
	inner    service.TicketService
	provider *Provider

	entryOperations   metric.Int64Counter
	exitOperations    metric.Int64Counter
	occupancyGauge    metric.Int64UpDownCounter
	operationDuration metric.Float64Histogram
	collectedFees     metric.Float64Histogram
}

func NewInstrumentedTicketManager(inner service.TicketService, provider *Provider) (*InstrumentedTicketManager, error) {
	meter := provider.Meter()

	entryOperations, err := meter.Int64Counter("parking_entries_total",
		metric.WithDescription("Total number of entry (create+park) operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	exitOperations, err := meter.Int64Counter("parking_exits_total",
		metric.WithDescription("Total number of exit operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64UpDownCounter("parking_lot_occupancy",
		metric.WithDescription("Current number of occupied spots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("ticket_operation_duration_seconds",
		metric.WithDescription("Duration of ticket lifecycle operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	collectedFees, err := meter.Float64Histogram("parking_fees_collected",
		metric.WithDescription("Fees charged at exit"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	return &InstrumentedTicketManager{
		inner:             inner,
		provider:          provider,
		entryOperations:   entryOperations,
		exitOperations:    exitOperations,
		occupancyGauge:    occupancyGauge,
		operationDuration: operationDuration,
		collectedFees:     collectedFees,
	}, nil
}

func (im *InstrumentedTicketManager) CreateTicket(ctx context.Context, vehicle model.Vehicle, spot *model.Spot) (*model.Ticket, error) {
	ctx, span := im.provider.Tracer().Start(ctx, "ticket_manager.create_ticket",
		trace.WithAttributes(
			attribute.String("vehicle.plate", vehicle.Plate),
			attribute.String("spot.name", spot.Name),
			attribute.String("spot.type", string(spot.Type)),
		))
	defer span.End()

	start := time.Now()
	ticket, err := im.inner.CreateTicket(ctx, vehicle, spot)
	im.record(ctx, span, "create_ticket", start, err)
	return ticket, err
}

func (im *InstrumentedTicketManager) Park(ctx context.Context, ticketID uuid.UUID) (*model.Ticket, error) {
	ctx, span := im.provider.Tracer().Start(ctx, "ticket_manager.park",
		trace.WithAttributes(attribute.String("ticket.id", ticketID.String())))
	defer span.End()

	start := time.Now()
	ticket, err := im.inner.Park(ctx, ticketID)
	im.record(ctx, span, "park", start, err)

	if err == nil {
		span.SetAttributes(attribute.String("spot.name", ticket.Spot.Name))
		im.entryOperations.Add(ctx, 1, metric.WithAttributes(
			attribute.String("spot_type", string(ticket.Spot.Type)),
		))
		im.occupancyGauge.Add(ctx, 1)
	}
	return ticket, err
}

func (im *InstrumentedTicketManager) Exit(ctx context.Context, ticketID uuid.UUID) (*model.Ticket, float64, error) {
	ctx, span := im.provider.Tracer().Start(ctx, "ticket_manager.exit",
		trace.WithAttributes(attribute.String("ticket.id", ticketID.String())))
	defer span.End()

	start := time.Now()
	ticket, fee, err := im.inner.Exit(ctx, ticketID)
	im.record(ctx, span, "exit", start, err)

	if err == nil {
		span.SetAttributes(
			attribute.String("spot.name", ticket.Spot.Name),
			attribute.Float64("fee", fee),
		)
		im.exitOperations.Add(ctx, 1, metric.WithAttributes(
			attribute.String("spot_type", string(ticket.Spot.Type)),
		))
		im.occupancyGauge.Add(ctx, -1)
		im.collectedFees.Record(ctx, fee, metric.WithAttributes(
			attribute.String("spot_type", string(ticket.Spot.Type)),
		))
	}
	return ticket, fee, err
}

func (im *InstrumentedTicketManager) FindActive(plate string) (*model.Ticket, error) {
	return im.inner.FindActive(plate)
}

func (im *InstrumentedTicketManager) ActiveCount() int {
	return im.inner.ActiveCount()
}

func (im *InstrumentedTicketManager) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	im.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}
