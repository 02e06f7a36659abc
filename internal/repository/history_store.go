package repository

import (
	"sync"
	"time"

	"parking-service/internal/model"
)

type HistoryFilter struct {
	Plate    string
	SpotType model.SpotType
	OpenOnly bool
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// HistoryStore accumulates one record per completed-or-in-progress stay.
// Records are appended once and never deleted; closing a stay goes through
// Close so readers and the in-place mutation serialize on the store's lock.
type HistoryStore struct {
	mu      sync.RWMutex
	records []*model.ParkingHistory
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

func (s *HistoryStore) Append(record *model.ParkingHistory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
}

// Close stamps the record's end time and fee under the store's lock, so a
// concurrent List never observes a half-written close.
func (s *HistoryStore) Close(record *model.ParkingHistory, to time.Time, fee float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.ToTime = &to
	record.Fee = &fee
}

// List returns value copies of matching records, newest first. Callers get a
// snapshot: a stay closing after List returns does not touch their copies.
func (s *HistoryStore) List(filter HistoryFilter) []model.ParkingHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plate := model.NormalizePlate(filter.Plate)

	var matched []model.ParkingHistory
	for idx := len(s.records) - 1; idx >= 0; idx-- {
		record := s.records[idx]
		if plate != "" && record.Plate != plate {
			continue
		}
		if filter.SpotType != "" && record.SpotType != filter.SpotType {
			continue
		}
		if filter.OpenOnly && !record.Open() {
			continue
		}
		if filter.From != nil && record.FromTime.Before(*filter.From) {
			continue
		}
		if filter.To != nil && record.FromTime.After(*filter.To) {
			continue
		}
		matched = append(matched, *record)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched
}

func (s *HistoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
