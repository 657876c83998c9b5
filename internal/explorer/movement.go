package explorer

import (
	"fmt"

	"github.com/talgya/rescue-explorer/internal/world"
)

// tryMove steps onto dest. On rejection nothing changes. On success the
// position moves, the victim there (if any) is sensed, and the cell is
// written to the map with the observed difficulty.
func (e *Explorer) tryMove(dest world.Position) error {
	dx, dy := dest.Sub(e.pos)

	before := e.env.Remaining()
	result := e.env.Move(dx, dy)
	after := e.env.Remaining()
	e.stats.MovesAttempted++

	if result != world.MoveSuccess {
		e.stats.MovesRejected++
		return fmt.Errorf("%w: %s toward %s", ErrMoveRejected, result, dest)
	}

	e.pos = dest
	difficulty := e.costs.ObservedDifficulty(before-after, dx, dy)

	marker := world.NoVictim
	if id, ok := e.env.VictimHere(); ok {
		marker = id
		if err := e.senseVictim(id); err != nil {
			e.stats.SensingTimeouts++
			e.log.Debug("victim not recorded", "victim", id, "pos", dest, "error", err)
		}
	}

	e.cells.Put(dest, world.Cell{
		Difficulty: difficulty,
		Victim:     marker,
		Walls:      e.env.Walls(),
	})
	return nil
}

// senseVictim reads the vital signs of victim id and records it once.
func (e *Explorer) senseVictim(id world.VictimID) error {
	vitals, err := e.env.ReadVitals()
	if err != nil {
		return fmt.Errorf("%w: victim %d: %v", ErrSensingTimeout, id, err)
	}
	if _, seen := e.victims[id]; seen {
		return nil
	}
	e.victims[id] = VictimRecord{Pos: e.pos, Vitals: vitals}
	e.log.Debug("victim found", "victim", id, "pos", e.pos)
	return nil
}

// comeBack takes one retreat step. With a target it steps straight toward
// it; without one it reverses the last recorded forward move. The record
// is dropped even if the reversal is rejected.
func (e *Explorer) comeBack(target *world.Position) bool {
	var dx, dy int
	if target == nil {
		var ok bool
		dx, dy, ok = e.retrace.Pop()
		if !ok {
			return false
		}
		dx, dy = -dx, -dy
	} else {
		dx, dy = target.Sub(e.pos)
	}

	e.stats.Retreats++
	if result := e.env.Move(dx, dy); result != world.MoveSuccess {
		e.log.Debug("retreat rejected", "dx", dx, "dy", dy, "result", result)
		return false
	}
	if target != nil {
		e.pos = *target
	} else {
		e.pos = e.pos.Add(dx, dy)
	}
	return true
}

// StepBack reverses the last recorded forward move, one step per call.
// It reports whether the explorer moved.
func (e *Explorer) StepBack() bool {
	return e.comeBack(nil)
}
