package model

type Row struct {
	Name  string
	Spots []*Spot
}

func (r Row) SpotCount() int {
	return len(r.Spots)
}

type Level struct {
	Name string
	Rows []Row
}

func (l Level) RowCount() int {
	return len(l.Rows)
}

func (l Level) SpotCount() int {
	total := 0
	for _, row := range l.Rows {
		total += row.SpotCount()
	}
	return total
}

// SpotLocation is a denormalized locator used while the lot is being built;
// after construction the spot itself carries its level and row names.
type SpotLocation struct {
	Level string
	Row   string
	Spot  *Spot
}

// FlattenLevels expands a levels/rows/spots topology into the flat locator
// form the parking lot constructor walks.
func FlattenLevels(levels []Level) []SpotLocation {
	var locations []SpotLocation
	for _, level := range levels {
		for _, row := range level.Rows {
			for _, spot := range row.Spots {
				locations = append(locations, SpotLocation{
					Level: level.Name,
					Row:   row.Name,
					Spot:  spot,
				})
			}
		}
	}
	return locations
}
