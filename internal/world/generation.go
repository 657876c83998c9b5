// Grid generation using layered simplex noise.
// One layer carves obstacles, a second one sets terrain difficulty, and
// victims are scattered over the remaining open ground.
package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds grid generation parameters.
type GenConfig struct {
	Width         int      // Tiles per row
	Height        int      // Rows
	Base          Position // Absolute base cell; always left open
	Seed          int64    // Random seed (0 = random)
	ObstacleLevel float64  // Noise threshold above which a tile is an obstacle (0.0–1.0)
	MaxDifficulty float64  // Upper bound of the terrain difficulty; see explorer.BudgetGuard.Covers
	Victims       int      // Number of victims to place
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:         90,
		Height:        90,
		Base:          Position{X: 45, Y: 45},
		Seed:          0,
		ObstacleLevel: 0.68,
		MaxDifficulty: 1.1,
		Victims:       60,
	}
}

// SmallTestConfig returns a tiny grid for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Width:         12,
		Height:        12,
		Base:          Position{X: 6, Y: 6},
		Seed:          42,
		ObstacleLevel: 0.72,
		MaxDifficulty: 1.1,
		Victims:       6,
	}
}

// Generate creates a complete grid with obstacles, difficulty, and victims.
func Generate(cfg GenConfig) *Grid {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	// Independent layers so obstacles and slow ground do not correlate.
	wallNoise := opensimplex.NewNormalized(seed)
	costNoise := opensimplex.NewNormalized(seed + 1)

	g := NewGrid(cfg.Width, cfg.Height, cfg.Base)
	maxDiff := math.Max(1.0, cfg.MaxDifficulty)

	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			abs := Position{X: x, Y: y}
			fx, fy := float64(x), float64(y)

			wall := octaveNoise(wallNoise, fx, fy, 3, 0.12, 0.5)
			if wall > cfg.ObstacleLevel && !nearBase(abs, cfg.Base) {
				g.SetObstacle(abs)
				continue
			}

			cost := octaveNoise(costNoise, fx, fy, 2, 0.07, 0.5)
			// Quantize to steps of 0.05 so observed difficulties stay readable.
			d := 1.0 + math.Round(cost*(maxDiff-1.0)*20)/20
			g.SetDifficulty(abs, d)
		}
	}

	placeVictims(g, cfg.Victims, seed)
	return g
}

// nearBase keeps the base and its ring open so explorers never start boxed in.
func nearBase(abs, base Position) bool {
	return abs == base || (abs.X-base.X)*(abs.X-base.X)+(abs.Y-base.Y)*(abs.Y-base.Y) <= 2
}

// placeVictims scatters n victims over open tiles other than the base.
func placeVictims(g *Grid, n int, seed int64) {
	rng := rand.New(rand.NewSource(seed + 400))

	var open []Position
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			abs := Position{X: x, Y: y}
			if abs != g.Base && g.Tile(abs).Passable() {
				open = append(open, abs)
			}
		}
	}

	rng.Shuffle(len(open), func(i, j int) {
		open[i], open[j] = open[j], open[i]
	})
	if n > len(open) {
		n = len(open)
	}

	for _, abs := range open[:n] {
		g.PlaceVictim(abs, randomVitals(rng))
	}
}

// randomVitals returns systolic pressure, diastolic pressure, pressure
// quality, pulse, and respiration.
func randomVitals(rng *rand.Rand) []float64 {
	return []float64{
		round1(70 + rng.Float64()*90),
		round1(40 + rng.Float64()*60),
		round1(-10 + rng.Float64()*20),
		round1(30 + rng.Float64()*170),
		round1(5 + rng.Float64()*30),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
