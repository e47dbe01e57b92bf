package svm

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/scigo-svm/kernel"
	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
)

// zeroThreshold is the magnitude below which a dual coefficient is not a support vector.
const zeroThreshold = 1e-12

// Solution is the raw solver output in problem entry order.
type Solution[F kernel.Float] struct {
	Alpha []F
	Rho   F
	// R is the second offset of the nu formulation; zero otherwise.
	R          F
	Objective  float64
	Iterations int
	Status     Status
	// Violation is the maximal KKT violation when the solve stopped.
	Violation float64
}

// Model is a fitted decision function
//
//	f(x) = sum_k DualCoef[k] * K(SupportVectors[k], x) - Rho
//
// It is immutable after construction.
type Model[F kernel.Float] struct {
	kernel         kernel.Function[F]
	supportVectors [][]F
	dualCoef       []F
	supportIndices []int
	atBound        int
	rho            F
	epsilon        F
	iterations     int
	objective      float64
	status         Status
	violation      float64
	cacheStats     kernel.CacheStats
}

// Extract collapses a solution into its support vectors. Regression pairs
// become alpha_i - alpha_{i+n}; classification entries become y_i*alpha_i.
// x may be nil when fn is nil (precomputed kernel); the model then
// evaluates kernel rows against the training samples.
func Extract[F kernel.Float](prob *Problem[F], sol *Solution[F], x [][]F, fn kernel.Function[F]) *Model[F] {
	m := &Model[F]{
		kernel:     fn,
		rho:        sol.Rho,
		iterations: sol.Iterations,
		objective:  sol.Objective,
		status:     sol.Status,
		violation:  sol.Violation,
	}
	if prob.Nu {
		m.epsilon = -sol.R
	}

	n := prob.Samples
	for i := 0; i < n; i++ {
		var coef F
		bound := false
		if prob.Regression() {
			up, down := sol.Alpha[i], sol.Alpha[i+n]
			coef = up - down
			bound = up >= prob.Upper[i] || down >= prob.Upper[i+n]
		} else {
			coef = F(prob.Sign[i]) * sol.Alpha[i]
			bound = sol.Alpha[i] >= prob.Upper[i]
		}
		if math.Abs(float64(coef)) <= zeroThreshold {
			continue
		}
		m.dualCoef = append(m.dualCoef, coef)
		m.supportIndices = append(m.supportIndices, prob.Index[i])
		if x != nil {
			m.supportVectors = append(m.supportVectors, append([]F(nil), x[prob.Index[i]]...))
		}
		if bound {
			m.atBound++
		}
	}
	return m
}

// RestoreModel rebuilds a model from exported parts. fn may be nil for a
// precomputed kernel, in which case supportVectors is ignored.
func RestoreModel[F kernel.Float](fn kernel.Function[F], supportVectors [][]F, dualCoef []F, supportIndices []int, rho F) (*Model[F], error) {
	if len(supportIndices) != len(dualCoef) {
		return nil, errors.NewDimensionError("RestoreModel", len(dualCoef), len(supportIndices), 0)
	}
	if fn != nil {
		if len(supportVectors) != len(dualCoef) {
			return nil, errors.NewDimensionError("RestoreModel", len(dualCoef), len(supportVectors), 0)
		}
		if err := kernel.CheckFinite(supportVectors); err != nil {
			return nil, err
		}
	}
	m := &Model[F]{
		kernel:         fn,
		dualCoef:       append([]F(nil), dualCoef...),
		supportIndices: append([]int(nil), supportIndices...),
		rho:            rho,
		status:         StatusConverged,
	}
	if fn != nil {
		m.supportVectors = make([][]F, len(supportVectors))
		for k, sv := range supportVectors {
			m.supportVectors[k] = append([]F(nil), sv...)
		}
	}
	return m, nil
}

// DecisionValue evaluates f(x). For a precomputed kernel x is the row of
// kernel values between the query and every training sample.
func (m *Model[F]) DecisionValue(x []F) F {
	var sum float64
	if m.kernel == nil {
		for k, idx := range m.supportIndices {
			sum += float64(m.dualCoef[k]) * float64(x[idx])
		}
	} else {
		for k, sv := range m.supportVectors {
			sum += float64(m.dualCoef[k]) * float64(m.kernel.Eval(sv, x))
		}
	}
	return F(sum - float64(m.rho))
}

// DecisionValues evaluates f on every row.
func (m *Model[F]) DecisionValues(rows [][]F) []F {
	out := make([]F, len(rows))
	for i, r := range rows {
		out[i] = m.DecisionValue(r)
	}
	return out
}

// Kernel returns the kernel function, nil for a precomputed kernel.
func (m *Model[F]) Kernel() kernel.Function[F] { return m.kernel }

func (m *Model[F]) Rho() F { return m.rho }

// SupportVectors returns the stored support vectors. Callers must not modify them.
func (m *Model[F]) SupportVectors() [][]F { return m.supportVectors }

func (m *Model[F]) DualCoef() []F { return append([]F(nil), m.dualCoef...) }

// SupportIndices returns the training sample index of every support vector.
func (m *Model[F]) SupportIndices() []int { return append([]int(nil), m.supportIndices...) }

func (m *Model[F]) NSupport() int { return len(m.dualCoef) }

// NBoundSupport counts support vectors whose coefficient sits at its bound.
func (m *Model[F]) NBoundSupport() int { return m.atBound }

func (m *Model[F]) Iterations() int { return m.iterations }

func (m *Model[F]) Objective() float64 { return m.objective }

func (m *Model[F]) Converged() bool { return m.status == StatusConverged }

func (m *Model[F]) Status() Status { return m.status }

// Epsilon is the tube width found by nu-SVR (-r), or the configured epsilon
// for epsilon-SVR. Zero for classification.
func (m *Model[F]) Epsilon() F { return m.epsilon }

// CacheStats reports kernel cache traffic of the training run.
func (m *Model[F]) CacheStats() kernel.CacheStats { return m.cacheStats }

func (m *Model[F]) String() string {
	name := kernel.NamePrecomputed
	if m.kernel != nil {
		name = m.kernel.Spec().Name
	}
	return fmt.Sprintf("svm.Model{kernel: %s, n_support: %d, n_bound: %d, rho: %.6g, status: %s, iterations: %d}",
		name, m.NSupport(), m.atBound, float64(m.rho), m.status, m.iterations)
}
