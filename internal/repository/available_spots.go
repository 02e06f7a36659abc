package repository

import (
	"sort"
	"sync"

	"parking-service/internal/model"
)

// AvailableSpotsIndex is the live inventory of free spots partitioned by
// spot type. Membership trails the spot's own state during the short booked
// window: removal happens on the park notification, and allocation always
// re-validates against the spot's compare-and-swap Book.
type AvailableSpotsIndex struct {
	mu    sync.RWMutex
	spots map[model.SpotType]map[string]*model.Spot
}

func NewAvailableSpotsIndex() *AvailableSpotsIndex {
	return &AvailableSpotsIndex{
		spots: make(map[model.SpotType]map[string]*model.Spot),
	}
}

func (i *AvailableSpotsIndex) Add(spot *model.Spot) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.spots[spot.Type] == nil {
		i.spots[spot.Type] = make(map[string]*model.Spot)
	}
	i.spots[spot.Type][spot.Name] = spot
}

func (i *AvailableSpotsIndex) Remove(spot *model.Spot) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.spots[spot.Type], spot.Name)
}

// PickAvailable returns any indexed spot of the given type that is actually
// still available, or nil. The caller must still win the spot's Book CAS.
func (i *AvailableSpotsIndex) PickAvailable(spotType model.SpotType) *model.Spot {
	i.mu.RLock()
	defer i.mu.RUnlock()
	for _, spot := range i.spots[spotType] {
		if spot.IsAvailable() {
			return spot
		}
	}
	return nil
}

func (i *AvailableSpotsIndex) CountByType() map[model.SpotType]int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	counts := make(map[model.SpotType]int, len(i.spots))
	for spotType, members := range i.spots {
		counts[spotType] = len(members)
	}
	return counts
}

// SpotsByType returns a sorted copy of the members for one type.
func (i *AvailableSpotsIndex) SpotsByType(spotType model.SpotType) []*model.Spot {
	i.mu.RLock()
	defer i.mu.RUnlock()
	members := make([]*model.Spot, 0, len(i.spots[spotType]))
	for _, spot := range i.spots[spotType] {
		members = append(members, spot)
	}
	sort.Slice(members, func(a, b int) bool {
		return members[a].Name < members[b].Name
	})
	return members
}

func (i *AvailableSpotsIndex) Contains(spot *model.Spot) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.spots[spot.Type][spot.Name]
	return ok
}
