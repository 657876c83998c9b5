// Package engine provides the tick loop that schedules explorers and the
// simulation that owns them.
package engine

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// DefaultReportEvery is how many ticks pass between progress reports.
const DefaultReportEvery = 100

// Engine drives the simulation forward one tick at a time.
type Engine struct {
	Tick        uint64        // Current tick counter (monotonic)
	Speed       float64       // Multiplier: 1.0 = real-time, 0 = paused
	Interval    time.Duration // Base tick interval; 0 runs as fast as possible
	MaxTicks    uint64        // Hard stop; 0 = unlimited
	ReportEvery uint64        // Ticks between OnReport calls; 0 = DefaultReportEvery

	// Callbacks populated during setup.
	OnTick   func(tick uint64) // Every tick
	OnReport func(tick uint64) // Every ReportEvery ticks

	running atomic.Bool
}

// NewEngine creates an engine that ticks as fast as possible.
func NewEngine() *Engine {
	return &Engine{
		Speed:       1.0,
		ReportEvery: DefaultReportEvery,
	}
}

// Run starts the tick loop. Blocks until Stop is called or MaxTicks is hit.
func (e *Engine) Run() {
	e.running.Store(true)
	slog.Info("tick engine started", "tick", e.Tick, "interval", e.Interval, "speed", e.Speed)

	for e.running.Load() {
		if e.MaxTicks > 0 && e.Tick >= e.MaxTicks {
			slog.Warn("tick limit reached", "max_ticks", e.MaxTicks)
			break
		}
		if e.Speed <= 0 {
			// Paused; poll until the speed changes.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		e.step()

		if e.Interval <= 0 {
			continue
		}
		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / e.Speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	e.running.Store(false)
	slog.Info("tick engine stopped", "tick", e.Tick)
}

// Stop halts the tick loop after the current tick. Safe to call from any
// goroutine, including from within OnTick.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Running reports whether the loop is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// step advances the simulation by one tick.
func (e *Engine) step() {
	e.Tick++

	if e.OnTick != nil {
		e.OnTick(e.Tick)
	}

	every := e.ReportEvery
	if every == 0 {
		every = DefaultReportEvery
	}
	if e.Tick%every == 0 && e.OnReport != nil {
		e.OnReport(e.Tick)
	}
}
