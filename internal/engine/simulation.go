// Simulation ties the grid, the explorers, and the rescuer together and
// advances every explorer each tick.
package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/talgya/rescue-explorer/internal/explorer"
	"github.com/talgya/rescue-explorer/internal/world"
)

// AgentSpec describes one explorer to launch.
type AgentSpec struct {
	Name   string
	Index  int
	Budget float64
}

// Options holds the parameters shared by every explorer.
type Options struct {
	Costs        world.Costs
	ReturnFactor float64
	SafetyFactor float64
	Logger       *slog.Logger
}

// Member is one explorer with the body it moves.
type Member struct {
	Explorer *explorer.Explorer
	Body     *world.Body
	Budget   float64

	lastState explorer.State
}

// Event is a notable occurrence during the run.
type Event struct {
	Tick        uint64 `json:"tick" db:"tick"`
	Agent       string `json:"agent" db:"agent"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"` // "state", "handoff"
}

// Simulation holds the complete run state.
type Simulation struct {
	Grid     *world.Grid
	Members  []*Member
	Rescuer  *Rescuer
	Events   []Event
	LastTick uint64 // Most recent tick processed

	snapshot     atomic.Pointer[Snapshot]
	lastReceived int
	mappedCells  int
	victimView   []VictimEntry
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	return s.LastTick
}

// NewSimulation places one body per spec on the grid's base and builds
// its explorer. Every explorer hands off to rescuer.
func NewSimulation(g *world.Grid, specs []AgentSpec, opts Options, rescuer *Rescuer) *Simulation {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sim := &Simulation{Grid: g, Rescuer: rescuer}
	for _, spec := range specs {
		body := world.NewBody(g, opts.Costs, spec.Budget)
		exp := explorer.New(body, explorer.Config{
			Name:  spec.Name,
			Index: spec.Index,
			Costs: explorer.CostModel{
				Line: opts.Costs.Line,
				Diag: opts.Costs.Diag,
			},
			ReturnFactor: opts.ReturnFactor,
			SafetyFactor: opts.SafetyFactor,
			Consumer:     rescuer,
			Logger:       logger,
		})
		sim.Members = append(sim.Members, &Member{
			Explorer:  exp,
			Body:      body,
			Budget:    spec.Budget,
			lastState: exp.State(),
		})
	}
	sim.publish()
	return sim
}

// TickAll advances every explorer that is not done by one tick.
func (s *Simulation) TickAll(tick uint64) {
	s.LastTick = tick
	for _, m := range s.Members {
		if m.lastState == explorer.Done {
			continue
		}
		state := m.Explorer.Deliberate()
		if state != m.lastState {
			s.record(tick, m.Explorer.Name(), "state",
				fmt.Sprintf("%s: %s -> %s at %s, budget %.2f",
					m.Explorer.Name(), m.lastState, state, m.Explorer.Position(), m.Body.Remaining()))
			m.lastState = state
		}
	}
	s.publish()
}

// Done reports whether every explorer has handed off.
func (s *Simulation) Done() bool {
	for _, m := range s.Members {
		if m.lastState != explorer.Done {
			return false
		}
	}
	return true
}

// LogProgress writes one progress line per explorer.
func (s *Simulation) LogProgress(tick uint64) {
	for _, m := range s.Members {
		e := m.Explorer
		slog.Info("explorer progress",
			"tick", tick,
			"explorer", e.Name(),
			"state", e.State(),
			"pos", e.Position(),
			"depth", e.Depth(),
			"visited", e.VisitedCount(),
			"victims", len(e.Victims()),
			"remaining", fmt.Sprintf("%.2f", m.Body.Remaining()),
		)
	}
}

// AgentSummary is the end-of-run outcome of one explorer.
type AgentSummary struct {
	Name      string         `json:"name"`
	State     string         `json:"state"`
	Pos       world.Position `json:"pos"`
	Visited   int            `json:"visited"`
	Victims   int            `json:"victims"`
	Budget    float64        `json:"budget"`
	Remaining float64        `json:"remaining"`
	Stats     explorer.Stats `json:"stats"`
}

// Summary returns the outcome of every explorer.
func (s *Simulation) Summary() []AgentSummary {
	out := make([]AgentSummary, 0, len(s.Members))
	for _, m := range s.Members {
		e := m.Explorer
		out = append(out, AgentSummary{
			Name:      e.Name(),
			State:     e.State().String(),
			Pos:       e.Position(),
			Visited:   e.VisitedCount(),
			Victims:   len(e.Victims()),
			Budget:    m.Budget,
			Remaining: m.Body.Remaining(),
			Stats:     e.Stats(),
		})
	}
	return out
}

func (s *Simulation) record(tick uint64, agent, category, desc string) {
	s.Events = append(s.Events, Event{
		Tick:        tick,
		Agent:       agent,
		Description: desc,
		Category:    category,
	})
}

// maxSnapshotEvents bounds the event tail carried by a snapshot.
const maxSnapshotEvents = 500

// VictimEntry is one victim in the merged rescuer view.
type VictimEntry struct {
	ID     world.VictimID `json:"id"`
	Pos    world.Position `json:"pos"`
	Vitals []float64      `json:"vitals"`
}

// Snapshot is an immutable view of the run, safe to read from any goroutine.
type Snapshot struct {
	Tick        uint64         `json:"tick"`
	Done        bool           `json:"done"`
	Reports     int            `json:"reports"`
	MappedCells int            `json:"mapped_cells"`
	Explorers   []AgentSummary `json:"explorers"`
	Victims     []VictimEntry  `json:"victims"`
	Events      []Event        `json:"events"`
}

// Snapshot returns the view published after the latest tick.
func (s *Simulation) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// publish builds a fresh snapshot. The merged rescuer view is only
// rebuilt when a new report has arrived.
func (s *Simulation) publish() {
	if s.Rescuer != nil && s.Rescuer.Received() != s.lastReceived {
		s.lastReceived = s.Rescuer.Received()
		m, victims := s.Rescuer.Unified()
		s.mappedCells = m.Len()
		s.victimView = s.victimView[:0]
		for id, v := range victims {
			s.victimView = append(s.victimView, VictimEntry{ID: id, Pos: v.Pos, Vitals: v.Vitals})
		}
		sort.Slice(s.victimView, func(i, j int) bool {
			return s.victimView[i].ID < s.victimView[j].ID
		})
	}

	start := 0
	if len(s.Events) > maxSnapshotEvents {
		start = len(s.Events) - maxSnapshotEvents
	}
	events := make([]Event, len(s.Events)-start)
	copy(events, s.Events[start:])
	victims := make([]VictimEntry, len(s.victimView))
	copy(victims, s.victimView)

	s.snapshot.Store(&Snapshot{
		Tick:        s.LastTick,
		Done:        s.Done(),
		Reports:     s.lastReceived,
		MappedCells: s.mappedCells,
		Explorers:   s.Summary(),
		Victims:     victims,
		Events:      events,
	})
}
