package elo

import "math"

const (
	DefaultKFactor       = 24
	DefaultInitialRating = 1200
)

// Calculator applies the paired-comparison Elo update with a fixed K-factor.
type Calculator struct {
	K float64
}

func NewCalculator(k float64) Calculator {
	if k <= 0 {
		k = DefaultKFactor
	}
	return Calculator{K: k}
}

// Expected is the expected score of a side rated r1 against a side rated r2.
func Expected(r1, r2 float64) float64 {
	return 1 / (1 + math.Pow(10, (r2-r1)/400))
}

// Scores returns the actual scores of team1 and team2 for an outcome.
func Scores(o Outcome) (s1, s2 float64) {
	if o == OutcomeTie {
		return 0.5, 0.5
	}
	return 1, 0
}

// Apply returns the rating deltas for team1 (rated r1) and team2 (rated r2).
// A win always means team1 won.
func (c Calculator) Apply(r1, r2 float64, o Outcome) (d1, d2 float64) {
	e1 := Expected(r1, r2)
	e2 := 1 - e1
	s1, s2 := Scores(o)
	return c.K * (s1 - e1), c.K * (s2 - e2)
}
