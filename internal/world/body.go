package world

import (
	"errors"
	"fmt"
)

// MoveResult is the environment's answer to a movement request.
type MoveResult uint8

const (
	MoveSuccess      MoveResult = iota
	MoveBlocked                 // Wall, obstacle, or invalid displacement
	MoveBoundary                // Target lies outside the environment
	MoveTimeExceeded            // Not enough budget left for the step
)

func (r MoveResult) String() string {
	switch r {
	case MoveSuccess:
		return "success"
	case MoveBlocked:
		return "blocked"
	case MoveBoundary:
		return "boundary"
	case MoveTimeExceeded:
		return "time exceeded"
	default:
		return fmt.Sprintf("MoveResult(%d)", uint8(r))
	}
}

// ErrTimeExceeded is returned by sensing actions the budget cannot cover.
var ErrTimeExceeded = errors.New("time exceeded")

// Costs are the baseline budget prices of the environment's actions.
type Costs struct {
	Line float64 `yaml:"line"` // Orthogonal step on difficulty-1 ground
	Diag float64 `yaml:"diag"` // Diagonal step on difficulty-1 ground
	Read float64 `yaml:"read"` // Reading a victim's vital signs
}

// DefaultCosts returns the baseline action prices.
func DefaultCosts() Costs {
	return Costs{Line: 1.0, Diag: 1.5, Read: 2.0}
}

// Body is one explorer's physical presence on a Grid. It tracks the
// explorer's position relative to the base and its depleting budget.
type Body struct {
	grid      *Grid
	costs     Costs
	pos       Position // relative to grid.Base
	remaining float64
	spent     float64
}

// NewBody places a body on the grid's base with the given budget.
func NewBody(g *Grid, costs Costs, budget float64) *Body {
	return &Body{grid: g, costs: costs, remaining: budget}
}

// Move attempts a single step of (dx, dy).
func (b *Body) Move(dx, dy int) MoveResult {
	if _, ok := DirectionOf(dx, dy); !ok {
		return MoveBlocked
	}
	target := b.grid.Absolute(b.pos.Add(dx, dy))
	t := b.grid.Tile(target)
	if t == nil {
		return MoveBoundary
	}
	if !t.Passable() {
		return MoveBlocked
	}

	base := b.costs.Line
	if dx != 0 && dy != 0 {
		base = b.costs.Diag
	}
	cost := base * t.Difficulty
	if cost > b.remaining {
		return MoveTimeExceeded
	}

	b.charge(cost)
	b.pos = b.pos.Add(dx, dy)
	return MoveSuccess
}

// Walls returns the wall configuration around the current position.
func (b *Body) Walls() WallInfo {
	return b.grid.WallsAt(b.grid.Absolute(b.pos))
}

// VictimHere returns the victim at the current position, if any.
func (b *Body) VictimHere() (VictimID, bool) {
	t := b.grid.Tile(b.grid.Absolute(b.pos))
	if t == nil || t.Victim == nil {
		return NoVictim, false
	}
	return t.Victim.ID, true
}

// ReadVitals reads the vital signs of the victim at the current position.
func (b *Body) ReadVitals() ([]float64, error) {
	if b.costs.Read > b.remaining {
		return nil, ErrTimeExceeded
	}
	b.charge(b.costs.Read)

	t := b.grid.Tile(b.grid.Absolute(b.pos))
	if t == nil || t.Victim == nil {
		return nil, nil
	}
	vitals := make([]float64, len(t.Victim.Vitals))
	copy(vitals, t.Victim.Vitals)
	return vitals, nil
}

// Remaining returns the budget left.
func (b *Body) Remaining() float64 {
	return b.remaining
}

// Spent returns the budget consumed so far.
func (b *Body) Spent() float64 {
	return b.spent
}

// Position returns the body's position relative to the base.
func (b *Body) Position() Position {
	return b.pos
}

// SetRemaining overrides the budget left.
func (b *Body) SetRemaining(v float64) {
	b.remaining = v
}

func (b *Body) charge(cost float64) {
	b.remaining -= cost
	b.spent += cost
}
