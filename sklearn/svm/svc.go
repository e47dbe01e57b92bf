package svm

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-svm/core/model"
	"github.com/YuminosukeSato/scigo-svm/metrics"
	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
	"github.com/YuminosukeSato/scigo-svm/pkg/log"
)

var (
	_ model.Classifier      = (*SVC)(nil)
	_ model.ParameterGetter = (*SVC)(nil)
	_ model.WeightPorter    = (*SVC)(nil)
)

// SVC is a binary C-support vector classifier. The two labels may be any
// values; the larger one is the positive class.
type SVC struct {
	estimator

	classes []float64
	platt   *Platt
}

// NewSVC creates an SVC.
func NewSVC(opts ...Option) *SVC {
	return &SVC{estimator: newEstimator("SVC", opts)}
}

// Fit trains the classifier on X and the label column y.
func (s *SVC) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "SVC.Fit")

	if err := s.cfg.validateSVC(); err != nil {
		return err
	}
	start := time.Now()
	s.state.Reset()
	s.platt = nil

	data, err := s.trainingSet("SVC.Fit", X)
	if err != nil {
		return err
	}
	labels, err := targetVector("SVC.Fit", y, data.Len())
	if err != nil {
		return err
	}
	classes, err := binaryClasses(labels)
	if err != nil {
		return err
	}
	_, nFeatures := X.Dims()

	signs := make([]bool, len(labels))
	upper := make([]float64, len(labels))
	for i, label := range labels {
		signs[i] = label == classes[1]
		upper[i] = s.cfg.c
		if w, ok := s.cfg.classWeight[label]; ok {
			upper[i] *= w
		}
	}

	m, fitErr := FitClassification(data, signs, upper, s.cfg.solverParams(s.logger))
	if m == nil {
		s.logger.Error("fit failed", fitErr)
		return fitErr
	}

	decision := s.evaluate(m, X)
	var platt *Platt
	if s.cfg.probability {
		p, err := FitPlatt(decision, signs)
		if err != nil {
			s.logger.Error("probability calibration failed", err)
			return errors.Wrap(err, "SVC.Fit")
		}
		platt = &p
	}
	quality, err := classificationSummary(signs, decision, platt)
	if err != nil {
		return errors.Wrap(err, "SVC.Fit")
	}

	if err := s.finishFit(m, fitErr, nFeatures, len(labels), start, quality...); err != nil {
		return err
	}
	s.classes = classes
	s.platt = platt
	return nil
}

// binaryClasses returns the two distinct labels in ascending order.
func binaryClasses(labels []float64) ([]float64, error) {
	seen := make(map[float64]struct{}, 2)
	for _, l := range labels {
		seen[l] = struct{}{}
		if len(seen) > 2 {
			return nil, errors.NewValueError("SVC.Fit", "only binary classification is supported, got more than 2 classes")
		}
	}
	if len(seen) < 2 {
		return nil, errors.NewValueError("SVC.Fit", "training labels must contain 2 classes")
	}
	classes := make([]float64, 0, 2)
	for l := range seen {
		classes = append(classes, l)
	}
	sort.Float64s(classes)
	return classes, nil
}

// classificationSummary scores the training decision values for the fit
// log line: accuracy, ROC AUC and, with a fitted sigmoid, the log loss of
// the calibrated probabilities.
func classificationSummary(signs []bool, decision []float64, platt *Platt) ([]any, error) {
	n := len(signs)
	truth := make([]float64, n)
	predicted := make([]float64, n)
	for i, positive := range signs {
		if positive {
			truth[i] = 1
		}
		if decision[i] > 0 {
			predicted[i] = 1
		}
	}
	yTrue := mat.NewVecDense(n, truth)

	acc, err := metrics.Accuracy(yTrue, mat.NewVecDense(n, predicted))
	if err != nil {
		return nil, err
	}
	auc, err := metrics.AUC(yTrue, mat.NewVecDense(n, decision))
	if err != nil {
		return nil, err
	}
	fields := []any{log.AccuracyKey, acc, log.AUCKey, auc}
	if platt == nil {
		return fields, nil
	}

	prob := make([]float64, n)
	for i, f := range decision {
		prob[i] = platt.Probability(f)
	}
	loss, err := metrics.BinaryLogLoss(yTrue, mat.NewVecDense(n, prob))
	if err != nil {
		return nil, err
	}
	return append(fields, log.LogLossKey, loss), nil
}

// DecisionFunction returns f(x) for every row (n_samples x 1). Positive
// values favour Classes()[1].
func (s *SVC) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	values, err := s.decisionValues("DecisionFunction", X)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(len(values), 1, values), nil
}

// Predict returns the predicted label for every row (n_samples x 1).
func (s *SVC) Predict(X mat.Matrix) (mat.Matrix, error) {
	values, err := s.decisionValues("Predict", X)
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if v > 0 {
			values[i] = s.classes[1]
		} else {
			values[i] = s.classes[0]
		}
	}
	return mat.NewDense(len(values), 1, values), nil
}

// PredictProba returns Platt-calibrated probabilities (n_samples x 2) in
// the order of Classes(). It requires WithProbability(true).
func (s *SVC) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("PredictProba"); err != nil {
		return nil, err
	}
	if s.platt == nil {
		return nil, errors.NewValueError("SVC.PredictProba", "probability estimates require WithProbability(true)")
	}
	values, err := s.decisionValues("PredictProba", X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(values), 2, nil)
	for i, v := range values {
		p := s.platt.Probability(v)
		out.Set(i, 0, 1-p)
		out.Set(i, 1, p)
	}
	return out, nil
}

// Score returns the mean accuracy on the given data.
func (s *SVC) Score(X, y mat.Matrix) (float64, error) {
	pred, err := s.Predict(X)
	if err != nil {
		return 0, err
	}
	r, _ := pred.Dims()
	yTrue, err := targetVector("SVC.Score", y, r)
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(mat.NewVecDense(r, yTrue), mat.NewVecDense(r, mat.Col(nil, 0, pred)))
}

// Classes returns the labels seen during Fit, negative class first.
func (s *SVC) Classes() []float64 {
	return append([]float64(nil), s.classes...)
}

// Platt returns the fitted sigmoid, nil unless WithProbability(true) was used.
func (s *SVC) Platt() *Platt {
	if s.platt == nil {
		return nil
	}
	p := *s.platt
	return &p
}

// ExportWeights returns the fitted decision function, labels and sigmoid.
func (s *SVC) ExportWeights() (*model.ModelWeights, error) {
	w, err := s.exportWeights()
	if err != nil {
		return nil, err
	}
	w.Classes = s.Classes()
	if s.platt != nil {
		w.ProbA, w.ProbB = s.platt.A, s.platt.B
		w.Metadata["probability"] = true
	}
	return w, nil
}

// ImportWeights restores a classifier exported by ExportWeights.
func (s *SVC) ImportWeights(weights *model.ModelWeights) error {
	if weights != nil && len(weights.Classes) != 2 {
		return errors.NewDimensionError("SVC.ImportWeights", 2, len(weights.Classes), 0)
	}
	if err := s.importWeights(weights); err != nil {
		return err
	}
	s.classes = append([]float64(nil), weights.Classes...)
	s.platt = nil
	if enabled, _ := weights.Metadata["probability"].(bool); enabled {
		s.platt = &Platt{A: weights.ProbA, B: weights.ProbB}
	}
	return nil
}

func (s *SVC) String() string {
	if !s.state.IsFitted() {
		return fmt.Sprintf("SVC(C=%g, kernel=%s)", s.cfg.c, s.cfg.kernelName)
	}
	return fmt.Sprintf("SVC(C=%g, kernel=%s, classes=%v, n_support=%d, converged=%t)",
		s.cfg.c, s.spec.Name, s.classes, s.model.NSupport(), s.model.Converged())
}
