package simulation

import (
	"github.com/meenmo/lmm/errs"
	"github.com/meenmo/lmm/timegrid"
)

// Path is one simulated scenario. Rates are stored row-major by simulation
// time index: rates[j*n + i] = L_i(t_j).
type Path struct {
	n         int
	tenor     timegrid.Discretization
	rates     []float64
	numeraire []float64
	valid     bool
}

// Valid is false when the path produced a non-finite state and was dropped.
func (p *Path) Valid() bool { return p.valid }

// Forward returns L_i(t_j).
func (p *Path) Forward(timeIndex, i int) float64 { return p.rates[timeIndex*p.n+i] }

// Forwards returns L(t_j) for every rate. The slice aliases the path storage
// and must not be modified.
func (p *Path) Forwards(timeIndex int) []float64 {
	return p.rates[timeIndex*p.n : (timeIndex+1)*p.n]
}

// Numeraire returns N(t_j).
func (p *Path) Numeraire(timeIndex int) float64 { return p.numeraire[timeIndex] }

// LIBOR is the simple rate over [T_start, T_end] seen at t_j:
// (Π (1 + δ_k L_k(t_j)) - 1) / (T_end - T_start).
func (p *Path) LIBOR(timeIndex, startIndex, endIndex int) (float64, error) {
	if startIndex < 0 || endIndex > p.n || startIndex >= endIndex {
		return 0, errs.Configf("simulation.LIBOR", "periods [%d,%d) outside %d forwards", startIndex, endIndex, p.n)
	}
	growth := 1.0
	for k := startIndex; k < endIndex; k++ {
		growth *= 1 + p.tenor.Step(k)*p.Forward(timeIndex, k)
	}
	return (growth - 1) / (p.tenor.Time(endIndex) - p.tenor.Time(startIndex)), nil
}

// Result holds all simulated paths of a run.
type Result struct {
	Simulation timegrid.Discretization
	Tenor      timegrid.Discretization
	Measure    Measure
	StateSpace StateSpace
	Seed       uint64
	// Dropped is the number of paths excluded for non-finite states.
	Dropped int

	paths []Path
}

// NumberOfPaths includes dropped paths.
func (r *Result) NumberOfPaths() int { return len(r.paths) }

// Path returns path p.
func (r *Result) Path(p int) *Path { return &r.paths[p] }

// NumberOfForwards is n.
func (r *Result) NumberOfForwards() int { return r.Tenor.NumberOfSteps() }

// TimeIndex maps a time onto the simulation grid.
func (r *Result) TimeIndex(t float64) (int, error) {
	j := r.Simulation.Index(t)
	if j < 0 {
		return 0, errs.Configf("simulation.TimeIndex", "time %v is not on the simulation grid", t)
	}
	return j, nil
}

// InitialNumeraire is N(0): 1 under Spot, P(0;T_n) under Terminal. It is the
// same on every path.
func (r *Result) InitialNumeraire() float64 {
	for i := range r.paths {
		if r.paths[i].valid {
			return r.paths[i].numeraire[0]
		}
	}
	return 0
}
