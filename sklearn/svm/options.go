package svm

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/scigo-svm/kernel"
	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
	"github.com/YuminosukeSato/scigo-svm/pkg/log"
)

// GammaScale selects gamma = 1 / (n_features * Var(X)) at Fit time.
const GammaScale = 0.0

type formulation int

const (
	formulationNone formulation = iota
	formulationEpsilon
	formulationNu
)

func (f formulation) String() string {
	switch f {
	case formulationEpsilon:
		return "epsilon_svr"
	case formulationNu:
		return "nu_svr"
	default:
		return "c_svc"
	}
}

// config collects option values. It is validated once per Fit into params.
type config struct {
	formulations int
	formulation  formulation
	c            float64
	epsilon      float64
	nu           float64

	kernelName string
	gamma      float64
	coef0      float64
	degree     int

	tol         float64
	maxIter     int
	shrinking   bool
	cacheSizeMB float64
	nJobs       int

	logger   log.Logger
	observer Observer

	classWeight map[float64]float64
	probability bool
}

func defaultConfig() config {
	return config{
		c:           1.0,
		kernelName:  kernel.NameGaussian,
		gamma:       GammaScale,
		degree:      3,
		tol:         DefaultTolerance,
		shrinking:   true,
		cacheSizeMB: DefaultCacheSizeMB,
	}
}

// Option configures an SVR or SVC.
type Option func(*config)

// WithEpsilonSVR selects the epsilon-insensitive formulation with penalty c
// and tube half-width epsilon. SVR only.
func WithEpsilonSVR(c, epsilon float64) Option {
	return func(cfg *config) {
		cfg.formulations++
		cfg.formulation = formulationEpsilon
		cfg.c = c
		cfg.epsilon = epsilon
	}
}

// WithNuSVR selects the nu formulation; nu in (0, 1] bounds the fraction of
// support vectors from below. SVR only.
func WithNuSVR(c, nu float64) Option {
	return func(cfg *config) {
		cfg.formulations++
		cfg.formulation = formulationNu
		cfg.c = c
		cfg.nu = nu
	}
}

// WithC sets the penalty of an SVC.
func WithC(c float64) Option {
	return func(cfg *config) { cfg.c = c }
}

// WithKernel selects "linear", "poly", "rbf", "sigmoid" or "precomputed".
func WithKernel(name string) Option {
	return func(cfg *config) { cfg.kernelName = name }
}

// WithGamma sets the kernel coefficient. GammaScale derives it from the data.
func WithGamma(gamma float64) Option {
	return func(cfg *config) { cfg.gamma = gamma }
}

func WithCoef0(coef0 float64) Option {
	return func(cfg *config) { cfg.coef0 = coef0 }
}

func WithDegree(degree int) Option {
	return func(cfg *config) { cfg.degree = degree }
}

// WithTol sets the stopping tolerance on the maximal KKT violation.
func WithTol(tol float64) Option {
	return func(cfg *config) { cfg.tol = tol }
}

// WithMaxIter caps solver iterations; 0 selects max(1e7, 100*l).
func WithMaxIter(maxIter int) Option {
	return func(cfg *config) { cfg.maxIter = maxIter }
}

func WithShrinking(shrinking bool) Option {
	return func(cfg *config) { cfg.shrinking = shrinking }
}

// WithCacheSize sets the kernel cache budget in megabytes.
func WithCacheSize(mb float64) Option {
	return func(cfg *config) { cfg.cacheSizeMB = mb }
}

// WithPrecomputedKernel makes Fit take an n x n kernel matrix and Predict
// take m x n kernel rows against the training samples.
func WithPrecomputedKernel() Option {
	return WithKernel(kernel.NamePrecomputed)
}

// WithNJobs bounds the goroutines used for kernel evaluation and prediction.
func WithNJobs(nJobs int) Option {
	return func(cfg *config) { cfg.nJobs = nJobs }
}

func WithLogger(logger log.Logger) Option {
	return func(cfg *config) { cfg.logger = logger }
}

// WithObserver reports every completed Fit to o.
func WithObserver(o Observer) Option {
	return func(cfg *config) { cfg.observer = o }
}

// WithClassWeight multiplies C by weights[label] for samples of that label. SVC only.
func WithClassWeight(weights map[float64]float64) Option {
	return func(cfg *config) {
		cfg.classWeight = make(map[float64]float64, len(weights))
		for k, v := range weights {
			cfg.classWeight[k] = v
		}
	}
}

// WithProbability fits a Platt sigmoid after training so that PredictProba works. SVC only.
func WithProbability(enabled bool) Option {
	return func(cfg *config) { cfg.probability = enabled }
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (c *config) validateCommon() error {
	if c.c <= 0 || !finite(c.c) {
		return errors.NewValidationError("C", "must be a finite positive number", c.c)
	}
	if c.gamma < 0 || !finite(c.gamma) {
		return errors.NewValidationError("gamma", "must be positive, or 0 for scale", c.gamma)
	}
	if c.kernelName == kernel.NamePolynomial && c.degree < 1 {
		return errors.NewValidationError("degree", "must be >= 1", c.degree)
	}
	spec := kernel.Spec{Name: c.kernelName, Gamma: 1, Coef0: c.coef0, Degree: c.degree}
	if err := spec.Validate(); err != nil {
		return err
	}
	return c.solverParams(nil).Validate()
}

func (c *config) validateSVR() error {
	if c.formulations != 1 {
		return errors.NewValidationError("formulation",
			"exactly one of WithEpsilonSVR or WithNuSVR is required", c.formulations)
	}
	if c.classWeight != nil || c.probability {
		return errors.NewValidationError("formulation", "class weights and probability apply to SVC only", nil)
	}
	switch c.formulation {
	case formulationEpsilon:
		if c.epsilon < 0 || !finite(c.epsilon) {
			return errors.NewValidationError("epsilon", "must be a finite non-negative number", c.epsilon)
		}
	case formulationNu:
		if c.nu <= 0 || c.nu > 1 || math.IsNaN(c.nu) {
			return errors.NewValidationError("nu", "must be in (0, 1]", c.nu)
		}
	}
	return c.validateCommon()
}

func (c *config) validateSVC() error {
	if c.formulations != 0 {
		return errors.NewValidationError("formulation", "epsilon and nu formulations apply to SVR only", c.formulation.String())
	}
	for label, w := range c.classWeight {
		if w <= 0 || !finite(w) {
			return errors.NewValidationError("class_weight", "weights must be finite and positive", label)
		}
	}
	return c.validateCommon()
}

func (c *config) solverParams(logger log.Logger) SolverParams {
	return SolverParams{
		Tolerance:     c.tol,
		MaxIterations: c.maxIter,
		Shrinking:     c.shrinking,
		CacheSizeMB:   c.cacheSizeMB,
		Logger:        logger,
	}
}

func (c *config) params() map[string]interface{} {
	p := map[string]interface{}{
		"C":           c.c,
		"kernel":      c.kernelName,
		"gamma":       c.gamma,
		"coef0":       c.coef0,
		"degree":      c.degree,
		"tol":         c.tol,
		"max_iter":    c.maxIter,
		"shrinking":   c.shrinking,
		"cache_size":  c.cacheSizeMB,
		"n_jobs":      c.nJobs,
		"formulation": c.formulation.String(),
	}
	switch c.formulation {
	case formulationEpsilon:
		p["epsilon"] = c.epsilon
	case formulationNu:
		p["nu"] = c.nu
	default:
		p["probability"] = c.probability
		if c.classWeight != nil {
			p["class_weight"] = fmt.Sprint(c.classWeight)
		}
	}
	return p
}
