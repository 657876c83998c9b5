package explorer

import "math"

// Margin factors applied to the estimated return trip.
const (
	DefaultReturnFactor = 1.05
	DefaultSafetyFactor = 1.575
)

// CostModel prices a planned displacement on baseline ground.
type CostModel struct {
	Line float64 // Orthogonal step
	Diag float64 // Diagonal step
}

// MinStepCost returns the minimum expected cost of a step of (dx, dy).
func (c CostModel) MinStepCost(dx, dy int) float64 {
	if dx != 0 && dy != 0 {
		return c.Diag
	}
	return c.Line
}

// ObservedDifficulty derives terrain difficulty from the budget a step
// actually consumed. A step is never easier than the baseline.
func (c CostModel) ObservedDifficulty(elapsed float64, dx, dy int) float64 {
	base := math.Max(c.MinStepCost(dx, dy), 1e-9)
	return math.Max(1.0, elapsed/base)
}

// BudgetGuard decides whether the remaining budget still covers a
// conservative trip back to the origin. The return estimate prices every
// frontier level as a straight step and inflates it by both factors.
type BudgetGuard struct {
	Costs        CostModel
	ReturnFactor float64
	SafetyFactor float64
}

// retraceLevels is the number of frontier levels to unwind for a depth.
func retraceLevels(depth int) int {
	if depth < 1 {
		return 1
	}
	return depth
}

// ReturnCost estimates the cost of retracing the given number of levels.
func (g BudgetGuard) ReturnCost(levels int) float64 {
	return float64(levels) * g.Costs.Line * g.ReturnFactor
}

// ContinueThreshold is the least remaining budget that allows exploring
// on at the given frontier depth.
func (g BudgetGuard) ContinueThreshold(depth int) float64 {
	return g.ReturnCost(retraceLevels(depth)) * g.SafetyFactor
}

// CanContinue reports whether exploration may go on at the given depth.
func (g BudgetGuard) CanContinue(remaining float64, depth int) bool {
	return remaining >= g.ContinueThreshold(depth)
}

// StepThreshold is the least remaining budget that covers a step of
// (dx, dy) plus the return trip from one level deeper.
func (g BudgetGuard) StepThreshold(depth, dx, dy int) float64 {
	forward := g.Costs.MinStepCost(dx, dy)
	back := g.ReturnCost(retraceLevels(depth) + 1)
	return (forward + back) * g.SafetyFactor
}

// CanAfford reports whether a candidate step of (dx, dy) is safe.
func (g BudgetGuard) CanAfford(remaining float64, depth, dx, dy int) bool {
	return remaining >= g.StepThreshold(depth, dx, dy)
}

// Covers reports whether the margins guarantee a return to the origin on
// terrain no harder than maxDifficulty when every victim reading costs
// readCost. Every retreat step must cost at most one priced level, and the
// slack left after the shallowest forward step and a reading must still
// pay for the way back.
func (g BudgetGuard) Covers(maxDifficulty, readCost float64) bool {
	level := g.ReturnCost(1) * g.SafetyFactor
	worst := math.Max(g.Costs.Line, g.Costs.Diag) * maxDifficulty
	if level < worst {
		return false
	}
	over := g.SafetyFactor - maxDifficulty
	slack := math.Min(g.Costs.Line*over, g.Costs.Diag*over)
	return 2*level-worst+slack-readCost >= 0
}
