package world

import (
	"fmt"
	"sort"
)

// VictimID identifies a victim reported by the environment.
type VictimID int

// NoVictim marks a cell without a victim.
const NoVictim VictimID = -1

// Cell is what an explorer knows about one visited position.
type Cell struct {
	Difficulty float64  `json:"difficulty"` // Observed cost relative to the baseline step, >= 1.0
	Victim     VictimID `json:"victim"`     // NoVictim when empty
	Walls      WallInfo `json:"walls"`      // Passability as seen from this cell
}

// HasVictim reports whether the cell holds a victim marker.
func (c Cell) HasVictim() bool {
	return c.Victim != NoVictim
}

// Map is the incrementally built grid map of one or more explorers.
// Cells are appended or overwritten, never deleted.
type Map struct {
	Cells map[Position]Cell `json:"-"`
}

// NewMap creates an empty map.
func NewMap() *Map {
	return &Map{Cells: make(map[Position]Cell)}
}

// Get returns the cell at pos and whether it has been recorded.
func (m *Map) Get(pos Position) (Cell, bool) {
	c, ok := m.Cells[pos]
	return c, ok
}

// Put records the cell at pos, overwriting any stale entry.
func (m *Map) Put(pos Position, cell Cell) {
	m.Cells[pos] = cell
}

// Len returns the number of recorded cells.
func (m *Map) Len() int {
	return len(m.Cells)
}

// Each visits every cell in row-major order (by Y, then X).
func (m *Map) Each(fn func(Position, Cell)) {
	keys := make([]Position, 0, len(m.Cells))
	for p := range m.Cells {
		keys = append(keys, p)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Y != keys[j].Y {
			return keys[i].Y < keys[j].Y
		}
		return keys[i].X < keys[j].X
	})
	for _, p := range keys {
		fn(p, m.Cells[p])
	}
}

// Bounds returns the smallest rectangle containing every recorded cell.
// ok is false for an empty map.
func (m *Map) Bounds() (min, max Position, ok bool) {
	for p := range m.Cells {
		if !ok {
			min, max, ok = p, p, true
			continue
		}
		if p.X < min.X {
			min.X = p.X
		}
		if p.Y < min.Y {
			min.Y = p.Y
		}
		if p.X > max.X {
			max.X = p.X
		}
		if p.Y > max.Y {
			max.Y = p.Y
		}
	}
	return min, max, ok
}

// CellSource is anything that can enumerate recorded cells.
type CellSource interface {
	Each(fn func(Position, Cell))
}

// Merge copies the cells of other that m has not recorded yet.
// Cells already present keep their first-seen value.
func (m *Map) Merge(other CellSource) {
	if other == nil {
		return
	}
	other.Each(func(p Position, c Cell) {
		if _, ok := m.Cells[p]; !ok {
			m.Cells[p] = c
		}
	})
}

// VictimCount returns the number of cells with a victim marker.
func (m *Map) VictimCount() int {
	n := 0
	for _, c := range m.Cells {
		if c.HasVictim() {
			n++
		}
	}
	return n
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(cells=%d, victims=%d)", m.Len(), m.VictimCount())
}
