package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/rescue-explorer/internal/config"
	"github.com/talgya/rescue-explorer/internal/explorer"
	"github.com/talgya/rescue-explorer/internal/world"
)

func TestEngineStopsAtMaxTicks(t *testing.T) {
	eng := NewEngine()
	eng.MaxTicks = 250
	eng.ReportEvery = 100

	ticks, reports := 0, 0
	eng.OnTick = func(uint64) { ticks++ }
	eng.OnReport = func(uint64) { reports++ }
	eng.Run()

	assert.Equal(t, 250, ticks)
	assert.Equal(t, 2, reports)
	assert.Equal(t, uint64(250), eng.Tick)
	assert.False(t, eng.Running())
}

func TestEngineStopFromTick(t *testing.T) {
	eng := NewEngine()
	eng.MaxTicks = 1000
	eng.OnTick = func(tick uint64) {
		if tick == 7 {
			eng.Stop()
		}
	}
	eng.Run()
	assert.Equal(t, uint64(7), eng.Tick)
}

func TestEngineDefaultReportCadence(t *testing.T) {
	eng := &Engine{Speed: 1, MaxTicks: DefaultReportEvery}
	reports := 0
	eng.OnReport = func(uint64) { reports++ }
	eng.Run()
	assert.Equal(t, 1, reports)
}

type memorySink struct {
	saved []string
	err   error
}

func (m *memorySink) SaveReport(r explorer.Report) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, r.Agent)
	return nil
}

func report(agent string, cells map[world.Position]world.Cell, victims explorer.VictimTable) explorer.Report {
	m := world.NewMap()
	for p, c := range cells {
		m.Put(p, c)
	}
	return explorer.Report{Agent: agent, Map: m, Victims: victims}
}

func TestRescuerRejectsDuplicates(t *testing.T) {
	sink := &memorySink{}
	r := NewRescuer(sink)

	require.NoError(t, r.Handoff(report("EXPL_1", nil, nil)))
	assert.Error(t, r.Handoff(report("EXPL_1", nil, nil)))
	assert.Equal(t, 1, r.Received())
	assert.Equal(t, []string{"EXPL_1"}, sink.saved)
}

func TestRescuerSinkError(t *testing.T) {
	boom := errors.New("disk full")
	r := NewRescuer(&memorySink{err: boom})

	err := r.Handoff(report("EXPL_1", nil, nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	// The report is still kept in memory.
	assert.Equal(t, 1, r.Received())
}

func TestRescuerUnified(t *testing.T) {
	r := NewRescuer(nil)
	a := report("EXPL_1",
		map[world.Position]world.Cell{
			world.Origin: {Difficulty: 1, Victim: world.NoVictim},
			{X: 1, Y: 0}: {Difficulty: 2, Victim: 4},
		},
		explorer.VictimTable{4: {Pos: world.Position{X: 1}, Vitals: []float64{1}}},
	)
	b := report("EXPL_2",
		map[world.Position]world.Cell{
			world.Origin: {Difficulty: 1, Victim: world.NoVictim},
			{X: 1, Y: 0}: {Difficulty: 9, Victim: 4},
			{X: 0, Y: 1}: {Difficulty: 1, Victim: 5},
		},
		explorer.VictimTable{
			4: {Pos: world.Position{X: 1}, Vitals: []float64{2}},
			5: {Pos: world.Position{Y: 1}, Vitals: []float64{3}},
		},
	)
	require.NoError(t, r.Handoff(a))
	require.NoError(t, r.Handoff(b))

	m, victims := r.Unified()
	assert.Equal(t, 3, m.Len())
	c, _ := m.Get(world.Position{X: 1})
	assert.Equal(t, 2.0, c.Difficulty)
	require.Len(t, victims, 2)
	assert.Equal(t, []float64{1}, victims[4].Vitals)

	reports := r.Reports()
	require.Len(t, reports, 2)
	assert.Equal(t, "EXPL_1", reports[0].Agent)
	assert.Equal(t, "EXPL_2", reports[1].Agent)
}

func TestSimulationRunsEveryExplorerHome(t *testing.T) {
	grid := world.Generate(world.SmallTestConfig())

	specs := []AgentSpec{
		{Name: "EXPL_1", Index: 0, Budget: 60},
		{Name: "EXPL_2", Index: 1, Budget: 60},
		{Name: "EXPL_3", Index: 2, Budget: 60},
	}
	sink := &memorySink{}
	rescuer := NewRescuer(sink)
	sim := NewSimulation(grid, specs, Options{
		Costs:        world.DefaultCosts(),
		ReturnFactor: explorer.DefaultReturnFactor,
		SafetyFactor: explorer.DefaultSafetyFactor,
	}, rescuer)
	require.Len(t, sim.Members, 3)
	assert.False(t, sim.Done())

	eng := NewEngine()
	eng.MaxTicks = 10000
	eng.OnTick = func(tick uint64) {
		sim.TickAll(tick)
		if sim.Done() {
			eng.Stop()
		}
	}
	eng.OnReport = sim.LogProgress
	eng.Run()

	require.True(t, sim.Done())
	assert.Equal(t, 3, rescuer.Received())
	assert.ElementsMatch(t, []string{"EXPL_1", "EXPL_2", "EXPL_3"}, sink.saved)
	assert.Equal(t, eng.Tick, sim.CurrentTick())

	unified, _ := rescuer.Unified()
	for _, s := range sim.Summary() {
		assert.Equal(t, "done", s.State)
		assert.Equal(t, world.Origin, s.Pos)
		assert.GreaterOrEqual(t, s.Remaining, 0.0)
		assert.LessOrEqual(t, s.Visited, unified.Len())
	}

	// Each explorer logs at least its transition to done.
	done := 0
	for _, ev := range sim.Events {
		if ev.Category == "state" {
			done++
		}
	}
	assert.GreaterOrEqual(t, done, 3)
}

func TestSimulationSkipsFinishedExplorers(t *testing.T) {
	grid, err := world.ParseGrid("B")
	require.NoError(t, err)
	sim := NewSimulation(grid, []AgentSpec{{Name: "EXPL_1", Budget: 10}}, Options{Costs: world.DefaultCosts()}, NewRescuer(nil))

	sim.TickAll(1)
	require.True(t, sim.Done())
	ticks := sim.Members[0].Explorer.Stats().Ticks

	sim.TickAll(2)
	assert.Equal(t, ticks, sim.Members[0].Explorer.Stats().Ticks)
	assert.Equal(t, 1, sim.Rescuer.Received())
}

func TestSimulationSnapshot(t *testing.T) {
	grid, err := world.ParseGrid(
		"V.",
		"B.",
	)
	require.NoError(t, err)
	sim := NewSimulation(grid, []AgentSpec{{Name: "EXPL_1", Budget: 50}}, Options{Costs: world.DefaultCosts()}, NewRescuer(nil))

	first := sim.Snapshot()
	require.NotNil(t, first)
	assert.Zero(t, first.Tick)
	assert.False(t, first.Done)
	assert.Zero(t, first.Reports)
	assert.Empty(t, first.Victims)
	require.Len(t, first.Explorers, 1)
	assert.Equal(t, "exploring", first.Explorers[0].State)

	for tick := uint64(1); tick <= 100 && !sim.Done(); tick++ {
		sim.TickAll(tick)
	}
	require.True(t, sim.Done())

	last := sim.Snapshot()
	assert.NotSame(t, first, last)
	assert.True(t, last.Done)
	assert.Equal(t, sim.CurrentTick(), last.Tick)
	assert.Equal(t, 1, last.Reports)
	assert.Equal(t, 4, last.MappedCells)
	require.Len(t, last.Victims, 1)
	assert.Equal(t, world.Position{X: 0, Y: -1}, last.Victims[0].Pos)
	assert.Equal(t, len(sim.Events), len(last.Events))

	// Published snapshots are not touched by later ticks.
	assert.Equal(t, "exploring", first.Explorers[0].State)
}

func TestDefaultConfigBringsEveryExplorerHome(t *testing.T) {
	for _, seed := range []int64{1, 42, 777} {
		cfg := config.Default()
		cfg.Seed = seed
		require.NoError(t, cfg.Validate())

		grid := world.Generate(cfg.GenConfig())
		require.LessOrEqual(t, grid.MaxDifficulty(), cfg.Grid.MaxDifficulty)

		specs := make([]AgentSpec, 0, len(cfg.Explorers))
		for _, e := range cfg.Explorers {
			specs = append(specs, AgentSpec{Name: e.Name, Index: e.Index, Budget: e.Budget})
		}
		sink := &memorySink{}
		sim := NewSimulation(grid, specs, Options{
			Costs:        cfg.Costs,
			ReturnFactor: cfg.Margins.Return,
			SafetyFactor: cfg.Margins.Safety,
		}, NewRescuer(sink))

		for tick := uint64(1); tick <= cfg.MaxTicks && !sim.Done(); tick++ {
			sim.TickAll(tick)
		}

		require.True(t, sim.Done(), "seed %d", seed)
		assert.Len(t, sink.saved, len(specs), "seed %d", seed)
		for _, s := range sim.Summary() {
			assert.Equal(t, "done", s.State, "seed %d %s", seed, s.Name)
			assert.Equal(t, world.Origin, s.Pos, "seed %d %s", seed, s.Name)
			assert.GreaterOrEqual(t, s.Remaining, 0.0, "seed %d %s", seed, s.Name)
			assert.Greater(t, s.Visited, 1, "seed %d %s", seed, s.Name)
		}
	}
}
