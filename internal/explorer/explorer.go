// Package explorer is the decision core of a budget-bounded grid explorer.
// Each tick the explorer either takes one depth-first exploration step,
// retreats one step toward its origin, or hands its map and victim table
// to a consumer once it is back home.
package explorer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/talgya/rescue-explorer/internal/world"
)

// Recoverable failure kinds. None of them stops the explorer.
var (
	ErrMoveRejected       = errors.New("move rejected")
	ErrSensingTimeout     = errors.New("sensing timeout")
	ErrBudgetInsufficient = errors.New("budget insufficient")
)

// Environment is the physical or simulated world the explorer acts in.
type Environment interface {
	Move(dx, dy int) world.MoveResult
	Walls() world.WallInfo
	VictimHere() (world.VictimID, bool)
	ReadVitals() ([]float64, error)
	Remaining() float64
}

// CellStore is the incremental map the explorer writes visited cells into.
type CellStore interface {
	Put(pos world.Position, cell world.Cell)
	Get(pos world.Position) (world.Cell, bool)
	Each(fn func(world.Position, world.Cell))
	Len() int
}

// Consumer receives an explorer's findings once it is back at the origin.
type Consumer interface {
	Handoff(r Report) error
}

// ConsumerFunc adapts a function to the Consumer interface.
type ConsumerFunc func(r Report) error

// Handoff calls f(r).
func (f ConsumerFunc) Handoff(r Report) error {
	return f(r)
}

// VictimRecord is where a victim was found and the vital signs read there.
type VictimRecord struct {
	Pos    world.Position `json:"pos"`
	Vitals []float64      `json:"vitals"`
}

// VictimTable maps victim identifiers to their records.
type VictimTable map[world.VictimID]VictimRecord

// Report is what an explorer hands off at the end of its run.
type Report struct {
	Agent   string
	Index   int
	Map     CellStore
	Victims VictimTable
	Stats   Stats
}

// State is the deliberation phase.
type State uint8

const (
	Exploring State = iota
	Returning
	Done
)

func (s State) String() string {
	switch s {
	case Exploring:
		return "exploring"
	case Returning:
		return "returning"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Stats counts what happened during a run.
type Stats struct {
	Ticks           int `json:"ticks"`
	MovesAttempted  int `json:"moves_attempted"`
	MovesRejected   int `json:"moves_rejected"`
	Retreats        int `json:"retreats"`
	SensingTimeouts int `json:"sensing_timeouts"`
	BudgetSkips     int `json:"budget_skips"`
}

// Config holds the construction parameters of an explorer.
type Config struct {
	Name string
	// Index selects the direction preference.
	Index int
	Costs CostModel

	// Margin factors; zero selects the defaults.
	ReturnFactor float64
	SafetyFactor float64

	// Map receives visited cells; nil starts a fresh world.Map.
	Map CellStore
	// Consumer receives the report at the end of the run; may be nil.
	Consumer Consumer
	Logger   *slog.Logger
}

// Explorer owns the whole per-agent exploration state. It is not safe for
// concurrent use; a scheduler calls Deliberate once per tick.
type Explorer struct {
	name     string
	index    int
	env      Environment
	cells    CellStore
	consumer Consumer
	pref     Preference
	costs    CostModel
	guard    BudgetGuard
	log      *slog.Logger

	pos      world.Position
	state    State
	frontier Frontier
	retrace  RetraceStack
	visited  map[world.Position]struct{}
	order    []world.Position
	victims  VictimTable

	delivered bool
	stats     Stats
}

// New creates an explorer standing on the origin of env and seeds its map,
// visited set, and frontier with the origin cell.
func New(env Environment, cfg Config) *Explorer {
	if cfg.ReturnFactor == 0 {
		cfg.ReturnFactor = DefaultReturnFactor
	}
	if cfg.SafetyFactor == 0 {
		cfg.SafetyFactor = DefaultSafetyFactor
	}
	if cfg.Map == nil {
		cfg.Map = world.NewMap()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Explorer{
		name:     cfg.Name,
		index:    cfg.Index,
		env:      env,
		cells:    cfg.Map,
		consumer: cfg.Consumer,
		pref:     PreferenceFor(cfg.Index),
		costs:    cfg.Costs,
		guard: BudgetGuard{
			Costs:        cfg.Costs,
			ReturnFactor: cfg.ReturnFactor,
			SafetyFactor: cfg.SafetyFactor,
		},
		log:     logger.With("explorer", cfg.Name),
		visited: make(map[world.Position]struct{}),
		victims: make(VictimTable),
	}

	e.cells.Put(world.Origin, world.Cell{
		Difficulty: 1.0,
		Victim:     world.NoVictim,
		Walls:      env.Walls(),
	})
	e.markVisited(world.Origin)
	e.pushFrontier(world.Origin)
	return e
}

// Deliberate advances the explorer by one tick and returns its state.
// At most one physical move is attempted per call.
func (e *Explorer) Deliberate() State {
	if e.state == Done {
		return Done
	}
	e.stats.Ticks++

	switch {
	case !e.frontier.Empty() && e.guard.CanContinue(e.env.Remaining(), e.frontier.Len()):
		e.state = Exploring
		e.exploreStep()

	case !e.frontier.Empty():
		if e.state != Returning {
			e.log.Info("budget low, returning to origin",
				"remaining", e.env.Remaining(),
				"depth", e.frontier.Len(),
				"pos", e.pos,
			)
		}
		e.state = Returning
		if e.pos != world.Origin {
			target := world.Origin
			if second := e.frontier.Second(); second != nil {
				target = second.Pos
			}
			e.comeBack(&target)
			if e.pos == target {
				e.frontier.Pop()
			}
		} else {
			// Home with unexplored levels left: none of them can be afforded.
			e.frontier.Clear()
		}
	}

	if e.frontier.Empty() && e.pos == world.Origin {
		e.handoff()
	}
	return e.state
}

// exploreStep takes one depth-first step, or unwinds one exhausted level.
func (e *Explorer) exploreStep() {
	next, ok := e.selectNextCandidate()
	if !ok {
		e.frontier.Pop()
		if top := e.frontier.Peek(); top != nil {
			target := top.Pos
			e.comeBack(&target)
		}
		return
	}

	dx, dy := next.Sub(e.pos)
	if err := e.tryMove(next); err != nil {
		e.log.Debug("candidate dropped", "target", next, "error", err)
		return
	}
	e.retrace.Push(dx, dy)
	e.markVisited(next)
	e.pushFrontier(next)
}

// selectNextCandidate consumes neighbors of the top frontier node until one
// is unvisited and affordable.
func (e *Explorer) selectNextCandidate() (world.Position, bool) {
	top := e.frontier.Peek()
	if top == nil {
		return world.Position{}, false
	}
	for {
		next, ok := top.Next()
		if !ok {
			return world.Position{}, false
		}
		if e.Visited(next) {
			continue
		}
		dx, dy := next.Sub(e.pos)
		if !e.guard.CanAfford(e.env.Remaining(), e.frontier.Len(), dx, dy) {
			e.stats.BudgetSkips++
			e.log.Debug("candidate skipped", "target", next, "error", ErrBudgetInsufficient)
			continue
		}
		return next, true
	}
}

// freeNeighbors lists the passable neighbors of pos in preference order.
// Walls of the current position come from the environment, walls of other
// positions from the map; a position never mapped is taken as enclosed.
func (e *Explorer) freeNeighbors(pos world.Position) []world.Position {
	var walls world.WallInfo
	if pos == e.pos {
		walls = e.env.Walls()
	} else if c, ok := e.cells.Get(pos); ok {
		walls = c.Walls
	} else {
		walls = world.AllBlocked()
	}

	var out []world.Position
	for _, d := range e.pref {
		if walls[d] == world.Clear {
			out = append(out, pos.Neighbor(d))
		}
	}
	return out
}

// pushFrontier pushes pos with its unvisited free neighbors.
func (e *Explorer) pushFrontier(pos world.Position) {
	var pending []world.Position
	for _, n := range e.freeNeighbors(pos) {
		if !e.Visited(n) {
			pending = append(pending, n)
		}
	}
	e.frontier.Push(&FrontierNode{Pos: pos, Neighbors: pending})
}

func (e *Explorer) markVisited(pos world.Position) {
	e.visited[pos] = struct{}{}
	e.order = append(e.order, pos)
}

// handoff delivers the report at most once and marks the run done.
func (e *Explorer) handoff() {
	e.state = Done
	if e.delivered {
		return
	}
	e.delivered = true

	e.log.Info("back at origin, handing off",
		"cells", e.cells.Len(),
		"victims", len(e.victims),
		"remaining", e.env.Remaining(),
		"ticks", e.stats.Ticks,
	)
	if e.consumer == nil {
		return
	}
	if err := e.consumer.Handoff(e.report()); err != nil {
		e.log.Error("handoff failed", "error", err)
	}
}

func (e *Explorer) report() Report {
	return Report{
		Agent:   e.name,
		Index:   e.index,
		Map:     e.cells,
		Victims: e.victims,
		Stats:   e.stats,
	}
}

// Name returns the explorer's identity.
func (e *Explorer) Name() string { return e.name }

// Index returns the explorer's preference index.
func (e *Explorer) Index() int { return e.index }

// Position returns the current position relative to the origin.
func (e *Explorer) Position() world.Position { return e.pos }

// State returns the current deliberation phase.
func (e *Explorer) State() State { return e.state }

// Depth returns the number of frontier nodes.
func (e *Explorer) Depth() int { return e.frontier.Len() }

// Path returns the frontier positions from the origin to the top.
func (e *Explorer) Path() []world.Position { return e.frontier.Positions() }

// Visited reports whether pos has been physically visited.
func (e *Explorer) Visited(pos world.Position) bool {
	_, ok := e.visited[pos]
	return ok
}

// VisitedCount returns the number of visited positions.
func (e *Explorer) VisitedCount() int { return len(e.visited) }

// VisitOrder returns the visited positions in the order they were entered.
func (e *Explorer) VisitOrder() []world.Position {
	out := make([]world.Position, len(e.order))
	copy(out, e.order)
	return out
}

// Victims returns the victim table.
func (e *Explorer) Victims() VictimTable { return e.victims }

// Map returns the explorer's cell store.
func (e *Explorer) Map() CellStore { return e.cells }

// Remaining returns the environment's remaining budget.
func (e *Explorer) Remaining() float64 { return e.env.Remaining() }

// Stats returns the run counters.
func (e *Explorer) Stats() Stats { return e.stats }

// RetraceLen returns the number of recorded forward displacements.
func (e *Explorer) RetraceLen() int { return e.retrace.Len() }
