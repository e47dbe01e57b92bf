package svm

import (
	"math"

	"github.com/YuminosukeSato/scigo-svm/kernel"
	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
)

// Problem is the dual quadratic program
//
//	min  1/2 a'Qa + Linear'a
//	s.t. Sign'a = const, 0 <= a_k <= Upper[k]
//
// where Q[k][m] = Sign[k]*Sign[m]*K(Index[k], Index[m]). Regression problems
// hold two entries per sample: entry i pushes predictions up and entry i+n
// pushes them down. A Problem is not modified by the solver.
type Problem[F kernel.Float] struct {
	Alpha  []F
	Linear []F
	Sign   []int8
	Upper  []F
	// Index maps entry k to the training sample it stands for.
	Index []int
	// Samples is the number of distinct training samples.
	Samples int
	// Nu selects the nu-constrained working-set rule that preserves the
	// alpha sum of each sign separately.
	Nu bool
}

// Len is the number of dual variables.
func (p *Problem[F]) Len() int { return len(p.Alpha) }

// Regression reports whether the index space is doubled.
func (p *Problem[F]) Regression() bool { return len(p.Alpha) == 2*p.Samples }

// SharedBound returns n copies of c.
func SharedBound[F kernel.Float](n int, c F) []F {
	upper := make([]F, n)
	for i := range upper {
		upper[i] = c
	}
	return upper
}

// NewClassificationProblem builds the C-SVC dual: alpha = 0, Linear = -1,
// Sign from the class labels (true is +1) and per-sample bounds.
func NewClassificationProblem[F kernel.Float](signs []bool, upper []F) (*Problem[F], error) {
	n := len(signs)
	if n == 0 {
		return nil, errors.ErrEmptyData
	}
	if len(upper) != n {
		return nil, errors.NewDimensionError("NewClassificationProblem", n, len(upper), 0)
	}
	for _, c := range upper {
		if err := checkPenalty(float64(c)); err != nil {
			return nil, err
		}
	}

	p := &Problem[F]{
		Alpha:   make([]F, n),
		Linear:  make([]F, n),
		Sign:    make([]int8, n),
		Upper:   append([]F(nil), upper...),
		Index:   make([]int, n),
		Samples: n,
	}
	for i, positive := range signs {
		p.Linear[i] = -1
		p.Sign[i] = -1
		if positive {
			p.Sign[i] = 1
		}
		p.Index[i] = i
	}
	return p, nil
}

// NewEpsilonProblem builds the doubled epsilon-SVR dual with alpha = 0,
// Linear[i] = epsilon - y_i (sign +1) and Linear[i+n] = epsilon + y_i (sign -1).
func NewEpsilonProblem[F kernel.Float](targets []F, c, epsilon F) (*Problem[F], error) {
	if err := checkPenalty(float64(c)); err != nil {
		return nil, err
	}
	if eps := float64(epsilon); eps < 0 || math.IsNaN(eps) || math.IsInf(eps, 0) {
		return nil, errors.NewValidationError("epsilon", "must be a finite, non-negative number", eps)
	}
	p, err := newDoubledProblem(targets, c)
	if err != nil {
		return nil, err
	}
	n := p.Samples
	for i, y := range targets {
		p.Linear[i] = epsilon - y
		p.Linear[i+n] = epsilon + y
	}
	return p, nil
}

// NewNuProblem builds the doubled nu-SVR dual. The budget C*nu*n/2 is
// handed out to each half in order, min(C, remaining) per entry, so that
// the sum of alpha equals C*nu*n before the first iteration.
func NewNuProblem[F kernel.Float](targets []F, c, nu F) (*Problem[F], error) {
	if err := checkPenalty(float64(c)); err != nil {
		return nil, err
	}
	if v := float64(nu); !(v > 0 && v <= 1) {
		return nil, errors.NewValidationError("nu", "must be in (0, 1]", v)
	}
	p, err := newDoubledProblem(targets, c)
	if err != nil {
		return nil, err
	}
	p.Nu = true

	n := p.Samples
	sum := c * nu * F(n) / 2
	for i, y := range targets {
		a := sum
		if c < a {
			a = c
		}
		p.Alpha[i] = a
		p.Alpha[i+n] = a
		sum -= a

		p.Linear[i] = -y
		p.Linear[i+n] = y
	}
	return p, nil
}

func newDoubledProblem[F kernel.Float](targets []F, c F) (*Problem[F], error) {
	n := len(targets)
	if n == 0 {
		return nil, errors.ErrEmptyData
	}
	l := 2 * n
	p := &Problem[F]{
		Alpha:   make([]F, l),
		Linear:  make([]F, l),
		Sign:    make([]int8, l),
		Upper:   SharedBound(l, c),
		Index:   make([]int, l),
		Samples: n,
	}
	for i := 0; i < n; i++ {
		p.Sign[i], p.Sign[i+n] = 1, -1
		p.Index[i], p.Index[i+n] = i, i
	}
	return p, nil
}

func checkPenalty(c float64) error {
	if !(c > 0) || math.IsInf(c, 0) {
		return errors.NewValidationError("C", "must be a finite, positive number", c)
	}
	return nil
}
