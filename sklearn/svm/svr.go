package svm

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-svm/core/model"
	"github.com/YuminosukeSato/scigo-svm/metrics"
	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
	"github.com/YuminosukeSato/scigo-svm/pkg/log"
)

var (
	_ model.Regressor       = (*SVR)(nil)
	_ model.ParameterGetter = (*SVR)(nil)
	_ model.WeightPorter    = (*SVR)(nil)
)

// SVR is a support vector regressor using either the epsilon-insensitive or
// the nu formulation.
//
// 使用例:
//
//	reg := svm.NewSVR(svm.WithEpsilonSVR(10, 0.1), svm.WithKernel("linear"))
//	if err := reg.Fit(X, y); err != nil {
//		return err
//	}
//	pred, err := reg.Predict(Xtest)
type SVR struct {
	estimator
}

// NewSVR creates an SVR. Options are validated by Fit: exactly one of
// WithEpsilonSVR or WithNuSVR must be given.
func NewSVR(opts ...Option) *SVR {
	return &SVR{estimator: newEstimator("SVR", opts)}
}

// Fit trains the regressor on X (n_samples x n_features) and y (n_samples x 1).
// With a precomputed kernel X is the n x n kernel matrix.
//
// Reaching the iteration limit is not an error: the model is kept, a
// ConvergenceWarning is emitted through errors.Warn and stored.
func (s *SVR) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "SVR.Fit")

	if err := s.cfg.validateSVR(); err != nil {
		return err
	}
	start := time.Now()
	s.state.Reset()

	data, err := s.trainingSet("SVR.Fit", X)
	if err != nil {
		return err
	}
	targets, err := targetVector("SVR.Fit", y, data.Len())
	if err != nil {
		return err
	}
	_, nFeatures := X.Dims()

	params := s.cfg.solverParams(s.logger)
	var m *Model[float64]
	var fitErr error
	switch s.cfg.formulation {
	case formulationNu:
		m, fitErr = FitNu(data, targets, s.cfg.c, s.cfg.nu, params)
	default:
		m, fitErr = FitEpsilon(data, targets, s.cfg.c, s.cfg.epsilon, params)
	}
	if m == nil {
		return s.finishFit(m, fitErr, nFeatures, len(targets), start)
	}
	quality, err := regressionSummary(targets, s.evaluate(m, X), m.Epsilon())
	if err != nil {
		return errors.Wrap(err, "SVR.Fit")
	}
	return s.finishFit(m, fitErr, nFeatures, len(targets), start, quality...)
}

// regressionSummary scores the training predictions for the fit log line.
func regressionSummary(targets, pred []float64, epsilon float64) ([]any, error) {
	n := len(targets)
	yTrue, yPred := mat.NewVecDense(n, targets), mat.NewVecDense(n, pred)
	rmse, err := metrics.RMSE(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	mae, err := metrics.MAE(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	epsLoss, err := metrics.EpsilonInsensitiveLoss(yTrue, yPred, math.Abs(epsilon))
	if err != nil {
		return nil, err
	}
	r2, err := metrics.R2Score(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	return []any{
		log.RMSEKey, rmse,
		log.MAEKey, mae,
		log.EpsilonLossKey, epsLoss,
		log.R2ScoreKey, r2,
	}, nil
}

// Predict returns the regression estimate for every row (n_samples x 1).
func (s *SVR) Predict(X mat.Matrix) (mat.Matrix, error) {
	values, err := s.decisionValues("Predict", X)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(len(values), 1, values), nil
}

// Score returns the coefficient of determination R² of the prediction.
func (s *SVR) Score(X, y mat.Matrix) (float64, error) {
	pred, err := s.Predict(X)
	if err != nil {
		return 0, err
	}
	r, _ := pred.Dims()
	yTrue, err := targetVector("SVR.Score", y, r)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(mat.NewVecDense(r, yTrue), mat.NewVecDense(r, mat.Col(nil, 0, pred)))
}

// Epsilon is the fitted tube half-width: the configured epsilon, or the
// width found by nu-SVR.
func (s *SVR) Epsilon() (float64, error) {
	if err := s.state.RequireFitted("Epsilon"); err != nil {
		return 0, err
	}
	return s.model.Epsilon(), nil
}

// ExportWeights returns the fitted decision function in portable form.
func (s *SVR) ExportWeights() (*model.ModelWeights, error) {
	return s.exportWeights()
}

// ImportWeights restores a model exported by ExportWeights.
func (s *SVR) ImportWeights(weights *model.ModelWeights) error {
	return s.importWeights(weights)
}

func (s *SVR) String() string {
	if !s.state.IsFitted() {
		return fmt.Sprintf("SVR(formulation=%s, C=%g, kernel=%s)", s.cfg.formulation, s.cfg.c, s.cfg.kernelName)
	}
	return fmt.Sprintf("SVR(formulation=%s, C=%g, kernel=%s, n_support=%d, converged=%t)",
		s.cfg.formulation, s.cfg.c, s.spec.Name, s.model.NSupport(), s.model.Converged())
}
