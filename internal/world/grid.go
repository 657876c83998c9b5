package world

import (
	"fmt"
	"strings"
)

// Terrain classifies a grid cell.
type Terrain uint8

const (
	TerrainOpen     Terrain = iota // Baseline ground
	TerrainRubble                  // Slows movement
	TerrainDebris                  // Slows movement heavily
	TerrainFlooded                 // Slowest passable ground
	TerrainObstacle                // Impassable
)

// TerrainName returns a human-readable name for a terrain type.
func TerrainName(t Terrain) string {
	switch t {
	case TerrainOpen:
		return "Open"
	case TerrainRubble:
		return "Rubble"
	case TerrainDebris:
		return "Debris"
	case TerrainFlooded:
		return "Flooded"
	case TerrainObstacle:
		return "Obstacle"
	default:
		return "Unknown"
	}
}

// Victim is a point of interest placed on the grid.
type Victim struct {
	ID     VictimID  `json:"id"`
	Vitals []float64 `json:"vitals"`
}

// Tile is one absolute grid cell of the environment.
type Tile struct {
	Terrain    Terrain `json:"terrain"`
	Difficulty float64 `json:"difficulty"` // Cost multiplier for entering the tile, >= 1.0
	Victim     *Victim `json:"victim,omitempty"`
}

// Passable reports whether the tile can be entered.
func (t *Tile) Passable() bool {
	return t.Terrain != TerrainObstacle
}

// Grid is the simulated environment: a rectangle of tiles and the base cell
// every explorer starts from. Explorer positions are relative to Base.
type Grid struct {
	Width  int
	Height int
	Base   Position // Absolute coordinates of the explorers' origin

	tiles   []Tile
	victims []*Victim
}

// NewGrid creates an open grid with every tile at difficulty 1.
func NewGrid(width, height int, base Position) *Grid {
	g := &Grid{
		Width:  width,
		Height: height,
		Base:   base,
		tiles:  make([]Tile, width*height),
	}
	for i := range g.tiles {
		g.tiles[i] = Tile{Terrain: TerrainOpen, Difficulty: 1.0}
	}
	return g
}

// InBounds reports whether the absolute position lies on the grid.
func (g *Grid) InBounds(abs Position) bool {
	return abs.X >= 0 && abs.Y >= 0 && abs.X < g.Width && abs.Y < g.Height
}

// Tile returns the tile at an absolute position, or nil outside the grid.
func (g *Grid) Tile(abs Position) *Tile {
	if !g.InBounds(abs) {
		return nil
	}
	return &g.tiles[abs.Y*g.Width+abs.X]
}

// Absolute converts an origin-relative position to grid coordinates.
func (g *Grid) Absolute(rel Position) Position {
	return g.Base.Add(rel.X, rel.Y)
}

// SetObstacle makes the tile at abs impassable.
func (g *Grid) SetObstacle(abs Position) {
	if t := g.Tile(abs); t != nil {
		t.Terrain = TerrainObstacle
		t.Victim = nil
	}
}

// SetDifficulty sets the movement cost multiplier of a passable tile.
func (g *Grid) SetDifficulty(abs Position, difficulty float64) {
	t := g.Tile(abs)
	if t == nil || !t.Passable() {
		return
	}
	if difficulty < 1.0 {
		difficulty = 1.0
	}
	t.Difficulty = difficulty
	t.Terrain = terrainForDifficulty(difficulty)
}

// PlaceVictim puts a victim on a passable tile and returns its identifier.
// ok is false if the tile is off-grid, impassable, or already occupied.
func (g *Grid) PlaceVictim(abs Position, vitals []float64) (VictimID, bool) {
	t := g.Tile(abs)
	if t == nil || !t.Passable() || t.Victim != nil {
		return NoVictim, false
	}
	v := &Victim{ID: VictimID(len(g.victims)), Vitals: vitals}
	g.victims = append(g.victims, v)
	t.Victim = v
	return v.ID, true
}

// Victims returns every victim placed on the grid.
func (g *Grid) Victims() []*Victim {
	return g.victims
}

// MaxDifficulty returns the highest difficulty of any passable tile.
func (g *Grid) MaxDifficulty() float64 {
	max := 1.0
	for i := range g.tiles {
		if t := &g.tiles[i]; t.Passable() && t.Difficulty > max {
			max = t.Difficulty
		}
	}
	return max
}

// TerrainCounts returns a summary of the terrain distribution.
func (g *Grid) TerrainCounts() map[Terrain]int {
	counts := make(map[Terrain]int)
	for i := range g.tiles {
		counts[g.tiles[i].Terrain]++
	}
	return counts
}

// WallsAt returns the wall configuration around an absolute position.
func (g *Grid) WallsAt(abs Position) WallInfo {
	var w WallInfo
	for d := Direction(0); d < NumDirections; d++ {
		t := g.Tile(abs.Neighbor(d))
		switch {
		case t == nil:
			w[d] = Boundary
		case !t.Passable():
			w[d] = Blocked
		default:
			w[d] = Clear
		}
	}
	return w
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d, base=%s, victims=%d)", g.Width, g.Height, g.Base, len(g.victims))
}

// ParseGrid builds a grid from ASCII rows, top row first:
//
//	.  open tile        #  obstacle
//	B  base (open)      V  open tile with a victim
//	1-9 open tile with that difficulty
//
// Victims get identifiers in reading order and vitals {id} so tests can
// recognise them. Missing base defaults to the top-left tile.
func ParseGrid(rows ...string) (*Grid, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("parse grid: no rows")
	}
	width := len(rows[0])
	for i, r := range rows {
		if len(r) != width {
			return nil, fmt.Errorf("parse grid: row %d has width %d, want %d", i, len(r), width)
		}
	}

	g := NewGrid(width, len(rows), Position{})
	for y, r := range rows {
		for x, ch := range r {
			abs := Position{X: x, Y: y}
			switch {
			case ch == '.':
			case ch == '#':
				g.SetObstacle(abs)
			case ch == 'B':
				g.Base = abs
			case ch == 'V':
				id := VictimID(len(g.victims))
				g.PlaceVictim(abs, []float64{float64(id)})
			case ch >= '1' && ch <= '9':
				g.SetDifficulty(abs, float64(ch-'0'))
			default:
				return nil, fmt.Errorf("parse grid: unknown tile %q at %s", ch, abs)
			}
		}
	}
	return g, nil
}

// Render draws the grid in ParseGrid notation. The drawing is lossy:
// difficulties are truncated to whole digits, so anything below 2 draws as
// '.', and the base draws as 'B' even if it holds a victim. Grids built by
// ParseGrid alone round-trip exactly.
func (g *Grid) Render() string {
	var b strings.Builder
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			abs := Position{X: x, Y: y}
			t := g.Tile(abs)
			switch {
			case abs == g.Base:
				b.WriteByte('B')
			case !t.Passable():
				b.WriteByte('#')
			case t.Victim != nil:
				b.WriteByte('V')
			case t.Difficulty >= 2:
				d := int(t.Difficulty)
				if d > 9 {
					d = 9
				}
				b.WriteByte(byte('0' + d))
			default:
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func terrainForDifficulty(d float64) Terrain {
	switch {
	case d <= 1.0:
		return TerrainOpen
	case d < 2.5:
		return TerrainRubble
	case d < 3.5:
		return TerrainDebris
	default:
		return TerrainFlooded
	}
}
