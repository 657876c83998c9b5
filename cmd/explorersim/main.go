// Command explorersim runs budget-bounded explorers over a generated grid
// and stores what they bring back.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/talgya/rescue-explorer/internal/api"
	"github.com/talgya/rescue-explorer/internal/config"
	"github.com/talgya/rescue-explorer/internal/engine"
	"github.com/talgya/rescue-explorer/internal/persistence"
	"github.com/talgya/rescue-explorer/internal/world"
)

func main() {
	var cfgPath, dbPath string
	var seed int64
	var port int
	var verbose bool
	flag.StringVar(&cfgPath, "config", "", "YAML config file (defaults when empty)")
	flag.StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	flag.Int64Var(&seed, "seed", 0, "grid seed (overrides config when non-zero)")
	flag.IntVar(&port, "port", -1, "HTTP API port, 0 disables (overrides config)")
	flag.BoolVar(&verbose, "v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// ── Configuration ────────────────────────────────────────────────
	cfg := config.Default()
	if cfgPath != "" {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}
	if seed != 0 {
		cfg.Seed = seed
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if port >= 0 {
		cfg.APIPort = port
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// ── Grid ─────────────────────────────────────────────────────────
	slog.Info("generating grid...", "seed", cfg.Seed)
	grid := world.Generate(cfg.GenConfig())
	for t, c := range grid.TerrainCounts() {
		slog.Info("terrain", "type", world.TerrainName(t), "count", c)
	}
	slog.Info("grid ready", "grid", grid.String(), "max_difficulty", grid.MaxDifficulty())

	// ── Database ─────────────────────────────────────────────────────
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	runID, err := db.BeginRun(cfg.Seed, grid)
	if err != nil {
		slog.Error("failed to register run", "error", err)
		os.Exit(1)
	}
	slog.Info("database opened", "path", cfg.DBPath, "run", runID)

	// ── Simulation ───────────────────────────────────────────────────
	specs := make([]engine.AgentSpec, 0, len(cfg.Explorers))
	for _, e := range cfg.Explorers {
		specs = append(specs, engine.AgentSpec{Name: e.Name, Index: e.Index, Budget: e.Budget})
	}
	rescuer := engine.NewRescuer(db.Run(runID))
	sim := engine.NewSimulation(grid, specs, engine.Options{
		Costs:        cfg.Costs,
		ReturnFactor: cfg.Margins.Return,
		SafetyFactor: cfg.Margins.Safety,
		Logger:       logger,
	}, rescuer)

	eng := engine.NewEngine()
	eng.Interval = cfg.TickInterval
	eng.MaxTicks = cfg.MaxTicks
	eng.ReportEvery = cfg.ReportEvery
	eng.OnTick = func(tick uint64) {
		sim.TickAll(tick)
		if sim.Done() {
			eng.Stop()
		}
	}
	eng.OnReport = sim.LogProgress

	// ── HTTP API ─────────────────────────────────────────────────────
	if cfg.APIPort > 0 {
		srv := &api.Server{Sim: sim, Port: cfg.APIPort, RunID: runID}
		srv.Start()
	}

	quit := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
		close(quit)
	}()

	fmt.Printf("\n%d explorers leaving base %s on a %dx%d grid with %d victims.\n",
		len(specs), grid.Base, grid.Width, grid.Height, len(grid.Victims()))

	eng.Run()

	// ── Results ──────────────────────────────────────────────────────
	if err := db.SaveEvents(runID, sim.Events); err != nil {
		slog.Error("saving events failed", "error", err)
	}
	if err := db.SaveMeta(runID, "last_tick", strconv.FormatUint(sim.CurrentTick(), 10)); err != nil {
		slog.Error("saving meta failed", "error", err)
	}

	for _, s := range sim.Summary() {
		slog.Info("explorer finished",
			"explorer", s.Name,
			"state", s.State,
			"pos", s.Pos,
			"visited", humanize.Comma(int64(s.Visited)),
			"victims", s.Victims,
			"budget_left", humanize.FormatFloat("#,###.##", s.Remaining),
			"moves", s.Stats.MovesAttempted,
			"rejected", s.Stats.MovesRejected,
		)
	}

	unified, victims := rescuer.Unified()
	fmt.Printf("Run %s finished after %s ticks: %d/%d explorers home, %s cells mapped, %d of %d victims found.\n",
		runID, humanize.Comma(int64(sim.CurrentTick())), rescuer.Received(), len(specs),
		humanize.Comma(int64(unified.Len())), len(victims), len(grid.Victims()))

	if !sim.Done() {
		slog.Warn("not every explorer made it home", "home", rescuer.Received(), "explorers", len(specs))
	}

	// Keep the results browsable until interrupted.
	if cfg.APIPort > 0 {
		slog.Info("run finished, API still serving", "port", cfg.APIPort)
		<-quit
	}
}
