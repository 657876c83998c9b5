// Package config loads the explorer simulation settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/rescue-explorer/internal/explorer"
	"github.com/talgya/rescue-explorer/internal/world"
)

// GridConfig describes the generated environment.
type GridConfig struct {
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	BaseX         int     `yaml:"base_x"`
	BaseY         int     `yaml:"base_y"`
	ObstacleLevel float64 `yaml:"obstacle_level"`
	MaxDifficulty float64 `yaml:"max_difficulty"`
	Victims       int     `yaml:"victims"`
}

// Margins are the return-trip inflation factors.
type Margins struct {
	Return float64 `yaml:"return"`
	Safety float64 `yaml:"safety"`
}

// ExplorerConfig describes one explorer.
type ExplorerConfig struct {
	Name   string  `yaml:"name"`
	Index  int     `yaml:"index"`
	Budget float64 `yaml:"budget"`
}

// Config is the full simulation configuration.
type Config struct {
	Seed         int64            `yaml:"seed"`
	DBPath       string           `yaml:"db_path"`
	TickInterval time.Duration    `yaml:"tick_interval"`
	MaxTicks     uint64           `yaml:"max_ticks"`
	ReportEvery  uint64           `yaml:"report_every"`
	APIPort      int              `yaml:"api_port"` // 0 disables the HTTP API
	Grid         GridConfig       `yaml:"grid"`
	Costs        world.Costs      `yaml:"costs"`
	Margins      Margins          `yaml:"margins"`
	Explorers    []ExplorerConfig `yaml:"explorers"`
}

// Default returns the built-in configuration: three explorers, one per
// preset direction preference, on a generated 90x90 grid.
func Default() Config {
	gen := world.DefaultGenConfig()
	return Config{
		Seed:        42,
		DBPath:      "data/explorer.db",
		MaxTicks:    100000,
		ReportEvery: 500,
		Grid: GridConfig{
			Width:         gen.Width,
			Height:        gen.Height,
			BaseX:         gen.Base.X,
			BaseY:         gen.Base.Y,
			ObstacleLevel: gen.ObstacleLevel,
			MaxDifficulty: gen.MaxDifficulty,
			Victims:       gen.Victims,
		},
		Costs: world.DefaultCosts(),
		Margins: Margins{
			Return: explorer.DefaultReturnFactor,
			Safety: explorer.DefaultSafetyFactor,
		},
		Explorers: []ExplorerConfig{
			{Name: "EXPL_1", Index: 0, Budget: 1000},
			{Name: "EXPL_2", Index: 1, Budget: 1000},
			{Name: "EXPL_3", Index: 2, Budget: 1000},
		},
	}
}

// Load reads a YAML file over the defaults. Fields absent from the file
// keep their default values; a present explorers list replaces the default one.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Validate checks the configuration for values the simulation cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Grid.Width <= 0 || c.Grid.Height <= 0 {
		errs = append(errs, fmt.Errorf("grid size %dx%d must be positive", c.Grid.Width, c.Grid.Height))
	}
	if c.Grid.BaseX < 0 || c.Grid.BaseY < 0 || c.Grid.BaseX >= c.Grid.Width || c.Grid.BaseY >= c.Grid.Height {
		errs = append(errs, fmt.Errorf("base (%d,%d) outside the grid", c.Grid.BaseX, c.Grid.BaseY))
	}
	if c.Grid.MaxDifficulty < 1 {
		errs = append(errs, fmt.Errorf("max_difficulty %.2f below 1", c.Grid.MaxDifficulty))
	}
	if c.Grid.Victims < 0 {
		errs = append(errs, fmt.Errorf("victims %d is negative", c.Grid.Victims))
	}
	if c.Costs.Line <= 0 || c.Costs.Diag <= 0 || c.Costs.Read < 0 {
		errs = append(errs, fmt.Errorf("costs line=%.2f diag=%.2f read=%.2f must be positive", c.Costs.Line, c.Costs.Diag, c.Costs.Read))
	}
	if c.Margins.Return <= 1 || c.Margins.Safety <= 1 {
		errs = append(errs, fmt.Errorf("margins return=%.3f safety=%.3f must exceed 1", c.Margins.Return, c.Margins.Safety))
	}
	guard := explorer.BudgetGuard{
		Costs:        explorer.CostModel{Line: c.Costs.Line, Diag: c.Costs.Diag},
		ReturnFactor: c.Margins.Return,
		SafetyFactor: c.Margins.Safety,
	}
	if c.Grid.MaxDifficulty >= 1 && !guard.Covers(c.Grid.MaxDifficulty, c.Costs.Read) {
		errs = append(errs, fmt.Errorf(
			"max_difficulty %.2f with read cost %.2f is not covered by margins return=%.3f safety=%.3f: explorers could be stranded",
			c.Grid.MaxDifficulty, c.Costs.Read, c.Margins.Return, c.Margins.Safety))
	}
	if c.APIPort < 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("api_port %d out of range", c.APIPort))
	}
	if len(c.Explorers) == 0 {
		errs = append(errs, errors.New("no explorers configured"))
	}
	names := make(map[string]bool)
	for i, e := range c.Explorers {
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("explorer %d has no name", i))
		} else if names[e.Name] {
			errs = append(errs, fmt.Errorf("explorer name %q repeated", e.Name))
		}
		names[e.Name] = true
		if e.Budget <= 0 {
			errs = append(errs, fmt.Errorf("explorer %q budget %.2f must be positive", e.Name, e.Budget))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// GenConfig converts the grid settings for world generation.
func (c Config) GenConfig() world.GenConfig {
	return world.GenConfig{
		Width:         c.Grid.Width,
		Height:        c.Grid.Height,
		Base:          world.Position{X: c.Grid.BaseX, Y: c.Grid.BaseY},
		Seed:          c.Seed,
		ObstacleLevel: c.Grid.ObstacleLevel,
		MaxDifficulty: c.Grid.MaxDifficulty,
		Victims:       c.Grid.Victims,
	}
}
