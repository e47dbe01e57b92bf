package svm

import (
	"github.com/YuminosukeSato/scigo-svm/kernel"
	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
)

// TrainingSet bundles the training rows with the kernel used on them.
type TrainingSet[F kernel.Float] struct {
	X      [][]F
	Kernel kernel.Function[F]
	// Gram is a precomputed kernel matrix. When set, X and Kernel may be nil.
	Gram *kernel.Gram[F]
	// Dense precomputes the Gram matrix from X instead of streaming columns
	// through the cache.
	Dense bool
	// NJobs bounds kernel evaluation workers; <= 0 uses every CPU.
	NJobs int
}

// Len is the number of training samples.
func (t TrainingSet[F]) Len() int {
	if t.Gram != nil {
		return t.Gram.Len()
	}
	return len(t.X)
}

func (t TrainingSet[F]) source() (kernel.Source[F], error) {
	if t.Gram != nil {
		if t.X != nil && len(t.X) != t.Gram.Len() {
			return nil, errors.NewDimensionError("TrainingSet", t.Gram.Len(), len(t.X), 0)
		}
		return t.Gram, nil
	}
	if t.Kernel == nil {
		return nil, errors.NewValidationError("kernel", "a kernel function or a precomputed Gram matrix is required", nil)
	}
	if t.Dense {
		return kernel.NewGram(t.X, t.Kernel, t.NJobs)
	}
	return kernel.NewLazy(t.X, t.Kernel, t.NJobs)
}

type fitConfig[F kernel.Float] struct {
	monitor Monitor[F]
}

// FitOption customises a single training call.
type FitOption[F kernel.Float] func(*fitConfig[F])

// WithMonitor reports every pair update to m.
func WithMonitor[F kernel.Float](m Monitor[F]) FitOption[F] {
	return func(c *fitConfig[F]) { c.monitor = m }
}

// FitClassification trains a C-SVC. signs[i] is true for the positive
// class; upper holds each sample's penalty (see SharedBound).
//
// Reaching the iteration cap returns the model together with a
// *errors.ConvergenceWarning.
func FitClassification[F kernel.Float](data TrainingSet[F], signs []bool, upper []F, params SolverParams, opts ...FitOption[F]) (*Model[F], error) {
	if len(signs) != data.Len() {
		return nil, errors.NewDimensionError("FitClassification", data.Len(), len(signs), 0)
	}
	prob, err := NewClassificationProblem(signs, upper)
	if err != nil {
		return nil, err
	}
	return solve(data, prob, params, opts)
}

// FitEpsilon trains an epsilon-SVR.
func FitEpsilon[F kernel.Float](data TrainingSet[F], targets []F, c, epsilon F, params SolverParams, opts ...FitOption[F]) (*Model[F], error) {
	if len(targets) != data.Len() {
		return nil, errors.NewDimensionError("FitEpsilon", data.Len(), len(targets), 0)
	}
	prob, err := NewEpsilonProblem(targets, c, epsilon)
	if err != nil {
		return nil, err
	}
	model, err := solve(data, prob, params, opts)
	if model != nil {
		model.epsilon = epsilon
	}
	return model, err
}

// FitNu trains a nu-SVR. The fitted tube width is available from Model.Epsilon.
func FitNu[F kernel.Float](data TrainingSet[F], targets []F, c, nu F, params SolverParams, opts ...FitOption[F]) (*Model[F], error) {
	if len(targets) != data.Len() {
		return nil, errors.NewDimensionError("FitNu", data.Len(), len(targets), 0)
	}
	prob, err := NewNuProblem(targets, c, nu)
	if err != nil {
		return nil, err
	}
	return solve(data, prob, params, opts)
}

func solve[F kernel.Float](data TrainingSet[F], prob *Problem[F], params SolverParams, opts []FitOption[F]) (*Model[F], error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	var cfg fitConfig[F]
	for _, opt := range opts {
		opt(&cfg)
	}

	src, err := data.source()
	if err != nil {
		return nil, err
	}
	q, err := kernel.NewProvider(src, prob.Index, prob.Sign, params.cacheSize())
	if err != nil {
		return nil, err
	}
	solver, err := NewSolver(prob, q, params, cfg.monitor)
	if err != nil {
		return nil, err
	}

	sol := solver.Solve()
	model := Extract(prob, sol, data.X, data.Kernel)
	if data.Gram != nil {
		// support vectors of a precomputed kernel are addressed by index only
		model.kernel = nil
		model.supportVectors = nil
	}
	model.cacheStats = q.Stats()

	if sol.Status == StatusIterationLimit {
		return model, &errors.ConvergenceWarning{
			Algorithm:  "SMO",
			Iterations: sol.Iterations,
			Violation:  sol.Violation,
			Tolerance:  params.tolerance(),
		}
	}
	return model, nil
}
