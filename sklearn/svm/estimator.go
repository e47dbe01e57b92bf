package svm

import (
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/scigo-svm/core/model"
	"github.com/YuminosukeSato/scigo-svm/core/parallel"
	"github.com/YuminosukeSato/scigo-svm/kernel"
	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
	"github.com/YuminosukeSato/scigo-svm/pkg/log"
)

// modelVersion is written into exported weights.
const modelVersion = "1.0.0"

// predictThreshold is the row count below which prediction stays on one goroutine.
const predictThreshold = 256

// estimator holds what SVR and SVC share: configuration, fitted state and
// the trained decision function.
type estimator struct {
	name   string
	id     string
	cfg    config
	state  *model.StateManager
	logger log.Logger

	model   *Model[float64]
	spec    kernel.Spec
	warning *errors.ConvergenceWarning
}

func newEstimator(name string, opts []Option) estimator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	id := uuid.NewString()
	logger := cfg.logger
	if logger == nil {
		logger = log.GetLoggerWithName(name)
	}
	return estimator{
		name:   name,
		id:     id,
		cfg:    cfg,
		state:  model.NewStateManager(name),
		logger: logger.With(log.ModelNameKey, name, log.EstimatorIDKey, id),
	}
}

func (e *estimator) precomputed() bool { return e.cfg.kernelName == kernel.NamePrecomputed }

// matrixRows copies X into row slices and rejects non-finite values.
func matrixRows(op string, X mat.Matrix) ([][]float64, error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errors.ErrEmptyData
	}
	if err := errors.CheckMatrix(op, X, r, c); err != nil {
		return nil, err
	}
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = make([]float64, c)
		mat.Row(rows[i], i, X)
	}
	return rows, nil
}

// targetVector reads an n x 1 target matrix.
func targetVector(op string, y mat.Matrix, n int) ([]float64, error) {
	r, c := y.Dims()
	if r != n {
		return nil, errors.NewDimensionError(op, n, r, 0)
	}
	if c != 1 {
		return nil, errors.NewDimensionError(op, 1, c, 1)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = y.At(i, 0)
	}
	if err := errors.CheckNumericalStability(op, out, 0); err != nil {
		return nil, err
	}
	return out, nil
}

// scaleGamma is 1 / (n_features * Var(X)) over every entry of X, or 1 for
// constant input.
func scaleGamma(rows [][]float64) float64 {
	flat := make([]float64, 0, len(rows)*len(rows[0]))
	for _, r := range rows {
		flat = append(flat, r...)
	}
	_, variance := stat.PopMeanVariance(flat, nil)
	if variance == 0 {
		return 1
	}
	return 1 / (float64(len(rows[0])) * variance)
}

// trainingSet resolves the kernel and data source for X.
func (e *estimator) trainingSet(op string, X mat.Matrix) (TrainingSet[float64], error) {
	rows, err := matrixRows(op, X)
	if err != nil {
		return TrainingSet[float64]{}, err
	}
	n := len(rows)

	if e.precomputed() {
		if len(rows[0]) != n {
			return TrainingSet[float64]{}, errors.NewDimensionError(op, n, len(rows[0]), 1)
		}
		data := make([]float64, 0, n*n)
		for _, r := range rows {
			data = append(data, r...)
		}
		gram, err := kernel.NewGramFromMatrix(data, n)
		if err != nil {
			return TrainingSet[float64]{}, err
		}
		e.spec = kernel.Spec{Name: kernel.NamePrecomputed}
		return TrainingSet[float64]{Gram: gram, NJobs: e.cfg.nJobs}, nil
	}

	gamma := e.cfg.gamma
	if gamma == GammaScale {
		gamma = scaleGamma(rows)
	}
	e.spec = kernel.Spec{Name: e.cfg.kernelName, Gamma: gamma, Coef0: e.cfg.coef0, Degree: e.cfg.degree}
	if e.spec.Name == kernel.NameLinear {
		e.spec = kernel.Spec{Name: kernel.NameLinear}
	}
	fn, err := kernel.FromSpec[float64](e.spec)
	if err != nil {
		return TrainingSet[float64]{}, err
	}
	// the whole Gram matrix is cheaper than the cache when it fits in the budget
	dense := float64(n)*float64(n)*8 <= e.cfg.cacheSizeMB*1024*1024
	return TrainingSet[float64]{X: rows, Kernel: fn, Dense: dense, NJobs: e.cfg.nJobs}, nil
}

// finishFit records the trained model, handles a convergence warning and
// notifies the observer.
// quality holds extra key/value pairs (training scores) for the completion log line.
func (e *estimator) finishFit(m *Model[float64], fitErr error, nFeatures, nSamples int, start time.Time, quality ...any) error {
	e.warning = nil
	if fitErr != nil {
		cw, ok := errors.AsConvergenceWarning(fitErr)
		if !ok || m == nil {
			e.logger.Error("fit failed", fitErr)
			return fitErr
		}
		e.warning = cw
		errors.Warn(cw)
		e.logger.Warn("solver stopped at the iteration limit",
			log.IterationKey, cw.Iterations,
			log.SVMViolationKey, cw.Violation,
		)
	}

	e.model = m
	e.state.SetFitted(nFeatures, nSamples)

	stats := m.CacheStats()
	fields := []any{
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.SVMNSupportKey, m.NSupport(),
		log.SVMRhoKey, m.Rho(),
		log.SVMStatusKey, m.Status().String(),
		log.SVMObjectiveKey, m.Objective(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	}
	e.logger.Info("fit completed", append(fields, quality...)...)
	if e.cfg.observer != nil {
		e.cfg.observer.ObserveFit(FitReport{
			Model:       e.name,
			EstimatorID: e.id,
			Status:      m.Status(),
			Iterations:  m.Iterations(),
			NSupport:    m.NSupport(),
			Duration:    time.Since(start),
			CacheHits:   stats.Hits,
			CacheMisses: stats.Misses,
		})
	}
	return nil
}

// decisionValues evaluates the fitted decision function on every row of X.
func (e *estimator) decisionValues(method string, X mat.Matrix) ([]float64, error) {
	if err := e.state.RequireFitted(method); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := e.state.CheckFeatures(method, c); err != nil {
		return nil, err
	}
	if r == 0 {
		return nil, errors.ErrEmptyData
	}
	if err := errors.CheckMatrix(e.name+"."+method, X, r, c); err != nil {
		return nil, err
	}

	return e.evaluate(e.model, X), nil
}

// evaluate computes m's decision value for every row of X. Fit uses it on
// the training rows before the model is installed.
func (e *estimator) evaluate(m *Model[float64], X mat.Matrix) []float64 {
	r, c := X.Dims()
	out := make([]float64, r)
	parallel.ParallelizeWithThreshold(r, predictThreshold, e.cfg.nJobs, func(start, end int) {
		row := make([]float64, c)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			out[i] = m.DecisionValue(row)
		}
	})
	return out
}

// Model returns the trained decision function, nil before Fit.
func (e *estimator) Model() *Model[float64] { return e.model }

// Converged reports whether the last Fit reached the tolerance.
func (e *estimator) Converged() bool { return e.model != nil && e.model.Converged() }

// ConvergenceWarning returns the warning raised by the last Fit, if any.
func (e *estimator) ConvergenceWarning() *errors.ConvergenceWarning { return e.warning }

// ID is the estimator ID attached to log lines and fit reports.
func (e *estimator) ID() string { return e.id }

// IsFitted reports whether Fit or ImportWeights has succeeded.
func (e *estimator) IsFitted() bool { return e.state.IsFitted() }

// GetParams returns the hyperparameters.
func (e *estimator) GetParams() map[string]interface{} { return e.cfg.params() }

// exportWeights fills the parts of ModelWeights common to both estimators.
func (e *estimator) exportWeights() (*model.ModelWeights, error) {
	if err := e.state.RequireFitted("ExportWeights"); err != nil {
		return nil, err
	}
	nFeatures, nSamples := e.state.GetDimensions()
	w := &model.ModelWeights{
		ModelType:       e.name,
		Version:         modelVersion,
		Kernel:          e.spec,
		SupportIndices:  e.model.SupportIndices(),
		DualCoef:        e.model.DualCoef(),
		Intercept:       -e.model.Rho(),
		Hyperparameters: e.cfg.params(),
		Metadata: map[string]interface{}{
			"n_features":   nFeatures,
			"n_samples":    nSamples,
			"n_support":    e.model.NSupport(),
			"iterations":   e.model.Iterations(),
			"status":       e.model.Status().String(),
			"estimator_id": e.id,
		},
		IsFitted: true,
	}
	for _, sv := range e.model.SupportVectors() {
		w.SupportVectors = append(w.SupportVectors, append([]float64(nil), sv...))
	}
	w.Checksum = w.ComputeChecksum()
	return w, nil
}

// importWeights restores the decision function and fitted dimensions.
func (e *estimator) importWeights(w *model.ModelWeights) error {
	if w == nil {
		return errors.NewValueError(e.name+".ImportWeights", "weights cannot be nil")
	}
	if w.ModelType != e.name {
		return errors.NewValueError(e.name+".ImportWeights", "model type mismatch: got "+w.ModelType)
	}
	if err := w.Validate(); err != nil {
		return err
	}

	var fn kernel.Function[float64]
	nFeatures := 0
	if w.Kernel.Name != kernel.NamePrecomputed {
		var err error
		if fn, err = kernel.FromSpec[float64](w.Kernel); err != nil {
			return err
		}
		if len(w.SupportVectors) > 0 {
			nFeatures = len(w.SupportVectors[0])
		}
	}
	if v, ok := metadataInt(w.Metadata, "n_features"); ok {
		nFeatures = v
	}
	nSamples, _ := metadataInt(w.Metadata, "n_samples")

	m, err := RestoreModel(fn, w.SupportVectors, w.DualCoef, w.SupportIndices, -w.Intercept)
	if err != nil {
		return err
	}
	e.model = m
	e.spec = w.Kernel
	e.warning = nil
	e.state.SetFitted(nFeatures, nSamples)
	return nil
}

// metadataInt reads an integer that may have been decoded from JSON as float64.
func metadataInt(meta map[string]interface{}, key string) (int, bool) {
	switch v := meta[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
