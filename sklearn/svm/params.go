package svm

import (
	"math"

	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
	"github.com/YuminosukeSato/scigo-svm/pkg/log"
)

// Default solver settings.
const (
	DefaultTolerance   = 1e-3
	DefaultCacheSizeMB = 100.0
	minIterationCap    = 10000000
	// tau replaces a non-positive curvature in working-set selection and the pair update.
	tau = 1e-12
)

// Status is the terminal state of a solve.
type Status int

const (
	// StatusConverged means the maximal KKT violation fell below the tolerance
	// on the full (unshrunk) index set.
	StatusConverged Status = iota
	// StatusIterationLimit means MaxIterations updates were made first. The
	// solution is still usable.
	StatusIterationLimit
)

func (s Status) String() string {
	switch s {
	case StatusConverged:
		return log.StatusConverged
	case StatusIterationLimit:
		return log.StatusIterationLimit
	default:
		return "unknown"
	}
}

// SolverParams configures one SMO run. It is read once at solver
// construction and never mutated by the solver.
type SolverParams struct {
	// Tolerance on the maximal violating pair (Gmax + Gmax2). Zero means DefaultTolerance.
	Tolerance float64
	// MaxIterations caps pair updates. Zero means max(1e7, 100*l).
	MaxIterations int
	// Shrinking enables temporary removal of bound-pinned variables.
	Shrinking bool
	// CacheSizeMB bounds the kernel column cache for streamed sources.
	// Zero means DefaultCacheSizeMB.
	CacheSizeMB float64
	// Logger receives debug progress lines. Nil disables solver logging.
	Logger log.Logger
}

// DefaultSolverParams returns the settings used by the estimators.
func DefaultSolverParams() SolverParams {
	return SolverParams{
		Tolerance:   DefaultTolerance,
		Shrinking:   true,
		CacheSizeMB: DefaultCacheSizeMB,
	}
}

// Validate reports contradictory or out-of-range settings.
func (p SolverParams) Validate() error {
	if p.Tolerance < 0 || math.IsNaN(p.Tolerance) || math.IsInf(p.Tolerance, 0) {
		return errors.NewValidationError("tol", "must be a finite, non-negative number", p.Tolerance)
	}
	if p.MaxIterations < 0 {
		return errors.NewValidationError("max_iter", "must be >= 0 (0 selects the default cap)", p.MaxIterations)
	}
	if p.CacheSizeMB < 0 || math.IsNaN(p.CacheSizeMB) || math.IsInf(p.CacheSizeMB, 0) {
		return errors.NewValidationError("cache_size", "must be a finite number >= 0", p.CacheSizeMB)
	}
	return nil
}

func (p SolverParams) tolerance() float64 {
	if p.Tolerance == 0 {
		return DefaultTolerance
	}
	return p.Tolerance
}

func (p SolverParams) cacheSize() float64 {
	if p.CacheSizeMB == 0 {
		return DefaultCacheSizeMB
	}
	return p.CacheSizeMB
}

// iterationCap resolves MaxIterations for a problem with l variables.
func (p SolverParams) iterationCap(l int) int {
	if p.MaxIterations > 0 {
		return p.MaxIterations
	}
	if l > math.MaxInt32/100 {
		return math.MaxInt32
	}
	if 100*l > minIterationCap {
		return 100 * l
	}
	return minIterationCap
}
