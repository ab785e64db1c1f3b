package tam

import (
	"github.com/AdamKhaddaj/ScribbleRendering/internal/stroke"
)

// Status describes how the growth loop of a cell ended.
type Status int

const (
	// Converged means the cell reached its target tone.
	Converged Status = iota
	// NoCandidate means no proposed stroke would have added ink.
	NoCandidate
	// IterationCap means the growth loop ran out of iterations.
	IterationCap
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case NoCandidate:
		return "no-candidate"
	case IterationCap:
		return "iteration-cap"
	default:
		return "unknown"
	}
}

// CellReport records the outcome of one (tone, mip) cell.
type CellReport struct {
	Tone       int
	Mip        int
	Target     float64
	Achieved   float64 // mean alpha when the cell was finalised
	Iterations int
	Status     Status
	Strokes    []stroke.Stroke // strokes accepted at this cell, in commit order
}

// Degraded reports whether the cell stopped below its target.
func (r CellReport) Degraded() bool {
	return r.Status != Converged
}

// Result is a finished hierarchy plus per-cell diagnostics.
type Result struct {
	Config    Config
	Hierarchy *Hierarchy
	Reports   []CellReport // tone-major, mip-minor build order
}

// Degraded lists cells that were accepted under-toned.
func (r *Result) Degraded() []CellReport {
	var out []CellReport
	for _, rep := range r.Reports {
		if rep.Degraded() {
			out = append(out, rep)
		}
	}
	return out
}

// Report returns the diagnostics of (tone, mip).
func (r *Result) Report(tone, mip int) (CellReport, bool) {
	for _, rep := range r.Reports {
		if rep.Tone == tone && rep.Mip == mip {
			return rep, true
		}
	}
	return CellReport{}, false
}
