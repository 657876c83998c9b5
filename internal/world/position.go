// Package world provides the 8-connected grid geometry, the incremental cell
// map an explorer builds, and the simulated environment explorers run in.
// Positions are relative to the explorer's origin; y grows southward.
package world

import "fmt"

// Position is a grid cell relative to the origin (0, 0) where an explorer
// starts and must end.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Origin is the explorer's start and end cell.
var Origin = Position{}

// Add returns the position displaced by (dx, dy).
func (p Position) Add(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Sub returns the displacement that leads from other to p.
func (p Position) Sub(other Position) (dx, dy int) {
	return p.X - other.X, p.Y - other.Y
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Direction is one of the eight compass directions.
type Direction uint8

const (
	North Direction = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
)

// NumDirections is the number of neighbors of a cell.
const NumDirections = 8

// directionDeltas holds the unit displacement of each direction.
var directionDeltas = [NumDirections][2]int{
	{0, -1},
	{1, -1},
	{1, 0},
	{1, 1},
	{0, 1},
	{-1, 1},
	{-1, 0},
	{-1, -1},
}

var directionNames = [NumDirections]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// Delta returns the unit displacement of the direction.
func (d Direction) Delta() (dx, dy int) {
	v := directionDeltas[d%NumDirections]
	return v[0], v[1]
}

func (d Direction) String() string {
	if d >= NumDirections {
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
	return directionNames[d]
}

// DirectionOf returns the direction of a unit displacement. ok is false for
// (0, 0) and for displacements longer than one step.
func DirectionOf(dx, dy int) (Direction, bool) {
	for i, v := range directionDeltas {
		if v[0] == dx && v[1] == dy {
			return Direction(i), true
		}
	}
	return 0, false
}

// Neighbor returns the adjacent position in direction d.
func (p Position) Neighbor(d Direction) Position {
	dx, dy := d.Delta()
	return p.Add(dx, dy)
}

// WallStatus describes passability toward one neighbor.
type WallStatus uint8

const (
	Clear    WallStatus = iota // Neighbor can be entered
	Blocked                    // Wall or obstacle
	Boundary                   // Neighbor lies outside the environment
)

func (s WallStatus) String() string {
	switch s {
	case Clear:
		return "clear"
	case Blocked:
		return "blocked"
	case Boundary:
		return "boundary"
	default:
		return fmt.Sprintf("WallStatus(%d)", uint8(s))
	}
}

// WallInfo holds the status of each of the eight neighbors, indexed by
// Direction, as observed from one cell.
type WallInfo [NumDirections]WallStatus

// AllBlocked is the wall configuration assumed for a cell never visited.
func AllBlocked() WallInfo {
	var w WallInfo
	for i := range w {
		w[i] = Blocked
	}
	return w
}

// ClearCount returns how many neighbors are passable.
func (w WallInfo) ClearCount() int {
	n := 0
	for _, s := range w {
		if s == Clear {
			n++
		}
	}
	return n
}
