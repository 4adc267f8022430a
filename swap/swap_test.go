package swap

import (
	"errors"
	"math"
	"testing"

	"github.com/meenmo/lmm/errs"
)

var zeroBonds = []float64{0.9986509108, 0.9949129829, 0.9897033769, 0.9835370208, 0.9765298116, 0.9689909565}

func TestParSwapValueIsZero_Uniform(t *testing.T) {
	t.Parallel()

	s, err := NewUniform(0.5, zeroBonds, true)
	if err != nil {
		t.Fatalf("NewUniform: %v", err)
	}
	rate := s.ParRate()
	if v := s.ValueAt(rate); math.Abs(v) > 1e-15 {
		t.Fatalf("value at par rate %.6f: got %.3e", rate, v)
	}

	rates := make([]float64, len(zeroBonds)-1)
	for i := range rates {
		rates[i] = rate
	}
	v, err := s.Value(rates)
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if math.Abs(v) > 1e-15 {
		t.Fatalf("value with per-period rates: got %.3e", v)
	}
}

func TestParSwapValueIsZero_NonUniform(t *testing.T) {
	t.Parallel()

	s, err := New([]float64{0.5, 1, 1.5, 2, 3, 3.5}, zeroBonds, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rate := s.ParRate()
	if v := s.ValueAt(rate); math.Abs(v) > 1e-15 {
		t.Fatalf("value at par rate %.6f: got %.3e", rate, v)
	}

	uniform, _ := NewUniform(0.5, zeroBonds, true)
	if rate >= uniform.ParRate() {
		t.Fatalf("a longer 2y-3y period should lower the par rate: %v vs %v", rate, uniform.ParRate())
	}
}

func TestNew_FromForwards(t *testing.T) {
	t.Parallel()

	s, err := NewUniform(0.5, []float64{0.04, 0.04, 0.04, 0.04}, false)
	if err != nil {
		t.Fatalf("NewUniform: %v", err)
	}
	if got := s.ParRate(); math.Abs(got-0.04) > 1e-14 {
		t.Fatalf("flat forwards should give a flat par rate: got %.15f", got)
	}
}

func TestSwap_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := New([]float64{0.5}, []float64{0.99}, true); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	s, _ := NewUniform(0.5, zeroBonds, true)
	if _, err := s.Value([]float64{0.01}); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestBootstrapCouponBonds(t *testing.T) {
	t.Parallel()

	const yf = 0.5
	coupons := []float64{0.021, 0.019, 0.018, 0.022}

	// price coupon bonds off a known curve, then recover it
	var prices []float64
	for i := range coupons {
		c := coupons[i] * yf
		p := zeroBonds[i]
		for k := 0; k <= i; k++ {
			p += c * zeroBonds[k]
		}
		prices = append(prices, p)
	}

	got, err := BootstrapCouponBonds(yf, prices, coupons)
	if err != nil {
		t.Fatalf("BootstrapCouponBonds: %v", err)
	}
	for i := range coupons {
		if math.Abs(got[i]-zeroBonds[i]) > 1e-13 {
			t.Fatalf("bond %d: got %.15f want %.15f", i, got[i], zeroBonds[i])
		}
	}

	if _, err := BootstrapCouponBonds(yf, prices, coupons[:2]); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestParRateBootstrap(t *testing.T) {
	t.Parallel()

	const yf = 0.5
	b, err := NewParRateBootstrap(0.98, 0.975, yf)
	if err != nil {
		t.Fatalf("NewParRateBootstrap: %v", err)
	}
	semiAnnual := []float64{0.0086, 0.0077, 0.0073, 0.0084}
	for _, r := range semiAnnual {
		b.Next(r)
	}
	annual := []float64{0.0075, 0.0085, 0.0095, 0.0092}
	for _, r := range annual {
		if err := b.NextTwo(r); err != nil {
			t.Fatalf("NextTwo(%v): %v", r, err)
		}
	}

	bonds := b.Bonds()
	if len(bonds) != 2+len(semiAnnual)+2*len(annual) {
		t.Fatalf("expected %d bonds, got %d", 2+len(semiAnnual)+2*len(annual), len(bonds))
	}

	// every quote must be reproduced by the swap ending at its maturity
	check := func(end int, want float64) {
		s, err := NewUniform(yf, bonds[:end+1], true)
		if err != nil {
			t.Fatalf("NewUniform: %v", err)
		}
		if got := s.ParRate(); math.Abs(got-want) > 1e-10 {
			t.Fatalf("par rate ending at bond %d: got %.12f want %.12f", end, got, want)
		}
	}
	for i, r := range semiAnnual {
		check(2+i, r)
	}
	for i, r := range annual {
		end := 2 + len(semiAnnual) + 2*i + 1
		check(end, r)
		mid := math.Sqrt(bonds[end-2] * bonds[end])
		if math.Abs(bonds[end-1]-mid) > 1e-15 {
			t.Fatalf("bond %d should be the log-linear midpoint", end-1)
		}
	}
}
