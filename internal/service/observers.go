package service

import (
	"time"

	"parking-service/internal/model"
	"parking-service/internal/repository"
)

// The observers are the only writers of the availability index and the
// history store. They carry no business logic; their job is to keep the
// ticket manager decoupled from the storage representation.

type AvailabilityObserver interface {
	NotifyPark(spot *model.Spot)
	NotifyExit(spot *model.Spot)
}

type HistoryObserver interface {
	Notify(record *model.ParkingHistory)
	NotifyClose(record *model.ParkingHistory, to time.Time, fee float64)
}

type EventObserver interface {
	Notify(event model.LotEvent)
}

type IndexAvailabilityObserver struct {
	index *repository.AvailableSpotsIndex
}

func NewIndexAvailabilityObserver(index *repository.AvailableSpotsIndex) *IndexAvailabilityObserver {
	return &IndexAvailabilityObserver{index: index}
}

func (o *IndexAvailabilityObserver) NotifyPark(spot *model.Spot) {
	o.index.Remove(spot)
}

func (o *IndexAvailabilityObserver) NotifyExit(spot *model.Spot) {
	o.index.Add(spot)
}

type StoreHistoryObserver struct {
	store *repository.HistoryStore
}

func NewStoreHistoryObserver(store *repository.HistoryStore) *StoreHistoryObserver {
	return &StoreHistoryObserver{store: store}
}

func (o *StoreHistoryObserver) Notify(record *model.ParkingHistory) {
	o.store.Append(record)
}

func (o *StoreHistoryObserver) NotifyClose(record *model.ParkingHistory, to time.Time, fee float64) {
	o.store.Close(record, to, fee)
}

// EventSink is satisfied by the websocket hub.
type EventSink interface {
	Publish(event model.LotEvent)
}

type SinkEventObserver struct {
	sink EventSink
}

func NewSinkEventObserver(sink EventSink) *SinkEventObserver {
	return &SinkEventObserver{sink: sink}
}

func (o *SinkEventObserver) Notify(event model.LotEvent) {
	o.sink.Publish(event)
}
