package elo

import (
	"math"
	"testing"
)

const eps = 1e-9

func TestExpectedEvenMatch(t *testing.T) {
	if e := Expected(1500, 1500); math.Abs(e-0.5) > eps {
		t.Fatalf("Expected(1500,1500) = %v", e)
	}
	if e := Expected(1600, 1200); e <= 0.9 || e >= 1 {
		t.Fatalf("400 point favourite expected score = %v", e)
	}
}

func TestWinIsZeroSum(t *testing.T) {
	c := NewCalculator(32)
	for _, r := range [][2]float64{{1200, 1200}, {1500, 1100}, {900, 1700}, {1234.5, 1233.25}} {
		d1, d2 := c.Apply(r[0], r[1], OutcomeWin)
		if math.Abs(d1+d2) > eps {
			t.Fatalf("win deltas not zero-sum for %v: %v + %v", r, d1, d2)
		}
		if d1 <= 0 || d2 >= 0 {
			t.Fatalf("winner must gain and loser must drop: %v %v", d1, d2)
		}
	}
}

func TestTieSymmetry(t *testing.T) {
	c := NewCalculator(24)
	d1, d2 := c.Apply(1300, 1300, OutcomeTie)
	if 1300+d1 != 1300+d2 {
		t.Fatalf("equal ratings diverged after tie: %v %v", d1, d2)
	}
	d1, d2 = c.Apply(1400, 1200, OutcomeTie)
	if d1 >= 0 || d2 <= 0 || math.Abs(d1+d2) > eps {
		t.Fatalf("tie should move favourite down and underdog up: %v %v", d1, d2)
	}
}

func TestUpsetMovesMoreThanExpectedWin(t *testing.T) {
	c := NewCalculator(24)
	const hi, lo = 1500.0, 1200.0
	// team1 is the favourite and team2 wins: express as team2 beating team1.
	upsetWinner, upsetLoser := c.Apply(lo, hi, OutcomeWin)
	favWinner, _ := c.Apply(hi, lo, OutcomeWin)
	if upsetWinner <= favWinner {
		t.Fatalf("underdog gain %v should exceed favourite gain %v", upsetWinner, favWinner)
	}
	if math.Abs(upsetLoser) <= favWinner {
		t.Fatalf("favourite loss %v should exceed what it would gain by winning %v", upsetLoser, favWinner)
	}
}

func TestNewCalculatorDefaultsK(t *testing.T) {
	if NewCalculator(0).K != DefaultKFactor {
		t.Fatalf("zero K should fall back to default")
	}
}
