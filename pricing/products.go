package pricing

import (
	"math"

	"github.com/meenmo/lmm/errs"
	"github.com/meenmo/lmm/simulation"
)

// Product is a claim valued on simulated paths.
type Product interface {
	// Validate checks the product against the simulated grids once, before
	// any payoff is evaluated.
	Validate(r *simulation.Result) error
	// Payoff returns the numeraire-relative payoff X/N(T_pay) on one path.
	Payoff(p *simulation.Path, r *simulation.Result) float64
}

// fixing returns the simulation index of tenor date T_i.
func fixing(r *simulation.Result, i int) int {
	return r.Simulation.Index(r.Tenor.Time(i))
}

func checkPeriod(op string, r *simulation.Result, i int) error {
	if i < 0 || i >= r.NumberOfForwards() {
		return errs.Configf(op, "period %d outside [0,%d)", i, r.NumberOfForwards())
	}
	return nil
}

// Caplet pays Notional·δ_i·max(L_i(T_i) - Strike, 0) at T_{i+1}, or the
// floorlet payoff when Floorlet is set.
type Caplet struct {
	Index    int
	Strike   float64
	Notional float64
	Floorlet bool
}

func (c Caplet) Validate(r *simulation.Result) error {
	return checkPeriod("pricing.Caplet", r, c.Index)
}

func (c Caplet) Payoff(p *simulation.Path, r *simulation.Result) float64 {
	libor := p.Forward(fixing(r, c.Index), c.Index)
	intrinsic := libor - c.Strike
	if c.Floorlet {
		intrinsic = -intrinsic
	}
	if intrinsic <= 0 {
		return 0
	}
	return notional(c.Notional) * r.Tenor.Step(c.Index) * intrinsic / p.Numeraire(fixing(r, c.Index+1))
}

// DigitalCaplet pays Notional·δ_i at T_{i+1} when L_i(T_i) > Strike.
type DigitalCaplet struct {
	Index    int
	Strike   float64
	Notional float64
}

func (c DigitalCaplet) Validate(r *simulation.Result) error {
	return checkPeriod("pricing.DigitalCaplet", r, c.Index)
}

func (c DigitalCaplet) Payoff(p *simulation.Path, r *simulation.Result) float64 {
	if p.Forward(fixing(r, c.Index), c.Index) <= c.Strike {
		return 0
	}
	return notional(c.Notional) * r.Tenor.Step(c.Index) / p.Numeraire(fixing(r, c.Index+1))
}

// Swaption is the right at T_Start to enter a payer swap over periods
// Start..End-1 with fixed rate Strike. The payoff at exercise is
// max(Σ δ_p (L_p(T_Start) - K) P(T_Start; T_{p+1}), 0).
type Swaption struct {
	Start    int
	End      int
	Strike   float64
	Notional float64
}

func (s Swaption) Validate(r *simulation.Result) error {
	if s.Start < 0 || s.End > r.NumberOfForwards() || s.Start >= s.End {
		return errs.Configf("pricing.Swaption", "periods [%d,%d) outside %d forwards", s.Start, s.End, r.NumberOfForwards())
	}
	return nil
}

func (s Swaption) Payoff(p *simulation.Path, r *simulation.Result) float64 {
	j := fixing(r, s.Start)
	bond := 1.0
	value := 0.0
	for k := s.Start; k < s.End; k++ {
		delta := r.Tenor.Step(k)
		libor := p.Forward(j, k)
		bond /= 1 + delta*libor
		value += delta * (libor - s.Strike) * bond
	}
	if value <= 0 {
		return 0
	}
	return notional(s.Notional) * value / p.Numeraire(j)
}

// ExchangeOption pays max(L_First(T_First) - L_Second(T_Second), 0) at
// T_{Second+1}.
type ExchangeOption struct {
	First    int
	Second   int
	Notional float64
}

func (e ExchangeOption) Validate(r *simulation.Result) error {
	if err := checkPeriod("pricing.ExchangeOption", r, e.First); err != nil {
		return err
	}
	if err := checkPeriod("pricing.ExchangeOption", r, e.Second); err != nil {
		return err
	}
	if e.First > e.Second {
		return errs.Configf("pricing.ExchangeOption", "first period %d after second %d", e.First, e.Second)
	}
	return nil
}

func (e ExchangeOption) Payoff(p *simulation.Path, r *simulation.Result) float64 {
	first := p.Forward(fixing(r, e.First), e.First)
	second := p.Forward(fixing(r, e.Second), e.Second)
	return notional(e.Notional) * math.Max(first-second, 0) / p.Numeraire(fixing(r, e.Second+1))
}

// Floater pays Notional·δ_i·L_i(T_i) at T_{i+1}, or at T_i when InArrears.
type Floater struct {
	Index     int
	Notional  float64
	InArrears bool
}

func (f Floater) Validate(r *simulation.Result) error {
	return checkPeriod("pricing.Floater", r, f.Index)
}

func (f Floater) Payoff(p *simulation.Path, r *simulation.Result) float64 {
	j := fixing(r, f.Index)
	pay := fixing(r, f.Index+1)
	if f.InArrears {
		pay = j
	}
	return notional(f.Notional) * r.Tenor.Step(f.Index) * p.Forward(j, f.Index) / p.Numeraire(pay)
}

// notional treats an unset notional as 1.
func notional(n float64) float64 {
	if n == 0 {
		return 1
	}
	return n
}
