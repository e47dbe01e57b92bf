package svm

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
)

const (
	plattMaxIter = 100
	plattMinStep = 1e-10
	// plattSigma keeps the Hessian strictly positive definite.
	plattSigma = 1e-12
	plattEps   = 1e-5
)

// Platt maps a decision value f to P(y = +1 | f) = 1 / (1 + exp(A*f + B)).
type Platt struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// Probability evaluates the sigmoid without overflowing for large |A*f + B|.
func (p Platt) Probability(f float64) float64 {
	return errors.Sigmoid(-(p.A*f + p.B))
}

// PlattError reports that the Newton iteration for the sigmoid did not finish.
type PlattError struct {
	Reason     string
	Iterations int
}

func (e *PlattError) Error() string {
	return fmt.Sprintf("platt scaling: %s after %d iterations", e.Reason, e.Iterations)
}

// FitPlatt fits the sigmoid to decision values by Newton's method with a
// backtracking line search (Lin, Lin and Weng's variant of Platt's method).
// Targets are smoothed by the class priors to avoid overfitting.
func FitPlatt(decisionValues []float64, labels []bool) (Platt, error) {
	l := len(decisionValues)
	if l == 0 {
		return Platt{}, errors.ErrEmptyData
	}
	if len(labels) != l {
		return Platt{}, errors.NewDimensionError("FitPlatt", l, len(labels), 0)
	}

	var prior1, prior0 float64
	for _, positive := range labels {
		if positive {
			prior1++
		} else {
			prior0++
		}
	}
	hiTarget := (prior1 + 1) / (prior1 + 2)
	loTarget := 1 / (prior0 + 2)
	t := make([]float64, l)
	for i, positive := range labels {
		if positive {
			t[i] = hiTarget
		} else {
			t[i] = loTarget
		}
	}

	objective := func(a, b float64) float64 {
		var f float64
		for i, dv := range decisionValues {
			fApB := dv*a + b
			// t*fApB + log(1+exp(-fApB)) == (t-1)*fApB + log(1+exp(fApB))
			f += t[i]*fApB + errors.Log1pExp(-fApB)
		}
		return f
	}

	a, b := 0.0, math.Log((prior0+1)/(prior1+1))
	fval := objective(a, b)

	iter := 0
	for ; iter < plattMaxIter; iter++ {
		h11, h22, h21 := plattSigma, plattSigma, 0.0
		g1, g2 := 0.0, 0.0
		for i, dv := range decisionValues {
			p := errors.Sigmoid(-(dv*a + b))
			q := 1 - p
			d2 := p * q
			h11 += dv * dv * d2
			h22 += d2
			h21 += dv * d2
			d1 := t[i] - p
			g1 += dv * d1
			g2 += d1
		}
		if math.Abs(g1) < plattEps && math.Abs(g2) < plattEps {
			return Platt{A: a, B: b}, nil
		}

		det := h11*h22 - h21*h21
		dA := -(h22*g1 - h21*g2) / det
		dB := -(-h21*g1 + h11*g2) / det
		gd := g1*dA + g2*dB

		step := 1.0
		for step >= plattMinStep {
			newA, newB := a+step*dA, b+step*dB
			newf := objective(newA, newB)
			if newf < fval+1e-4*step*gd {
				a, b, fval = newA, newB, newf
				break
			}
			step /= 2
		}
		if step < plattMinStep {
			return Platt{A: a, B: b}, errors.NewModelError("FitPlatt", "line search failed",
				&PlattError{Reason: "line search failed", Iterations: iter})
		}
	}
	return Platt{A: a, B: b}, errors.NewModelError("FitPlatt", "newton iteration did not converge",
		&PlattError{Reason: "maximum iterations reached", Iterations: iter})
}
