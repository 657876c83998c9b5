package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/rescue-explorer/internal/explorer"
	"github.com/talgya/rescue-explorer/internal/world"
)

// ReportSink stores delivered reports.
type ReportSink interface {
	SaveReport(r explorer.Report) error
}

// Rescuer collects the explorers' reports, one per explorer, and merges
// them into a single picture of the grid.
type Rescuer struct {
	Sink ReportSink // Optional

	reports map[string]explorer.Report
	order   []string
}

// NewRescuer creates a rescuer forwarding reports to sink (may be nil).
func NewRescuer(sink ReportSink) *Rescuer {
	return &Rescuer{
		Sink:    sink,
		reports: make(map[string]explorer.Report),
	}
}

// Handoff accepts an explorer's report.
func (r *Rescuer) Handoff(rep explorer.Report) error {
	if _, dup := r.reports[rep.Agent]; dup {
		return fmt.Errorf("duplicate report from %s", rep.Agent)
	}
	r.reports[rep.Agent] = rep
	r.order = append(r.order, rep.Agent)

	slog.Info("report received",
		"explorer", rep.Agent,
		"cells", rep.Map.Len(),
		"victims", len(rep.Victims),
	)

	if r.Sink != nil {
		if err := r.Sink.SaveReport(rep); err != nil {
			return fmt.Errorf("save report %s: %w", rep.Agent, err)
		}
	}
	return nil
}

// Received returns the number of reports delivered.
func (r *Rescuer) Received() int {
	return len(r.order)
}

// Reports returns the delivered reports in arrival order.
func (r *Rescuer) Reports() []explorer.Report {
	out := make([]explorer.Report, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.reports[name])
	}
	return out
}

// Unified merges every report into one map and one victim table. The first
// explorer to report a cell or a victim wins.
func (r *Rescuer) Unified() (*world.Map, explorer.VictimTable) {
	m := world.NewMap()
	victims := make(explorer.VictimTable)
	for _, rep := range r.Reports() {
		m.Merge(rep.Map)
		for id, v := range rep.Victims {
			if _, ok := victims[id]; !ok {
				victims[id] = v
			}
		}
	}
	return m, victims
}
