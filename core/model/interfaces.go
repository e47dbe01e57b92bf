// Package model provides the estimator interfaces, fitted-state bookkeeping
// and weight export shared by the estimators.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う (n_samples x 1)
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer is the interface for models that can compute a score.
type Scorer interface {
	// Score returns R² for regressors and mean accuracy for classifiers.
	Score(X, y mat.Matrix) (float64, error)
}

// Regressor combines interfaces for regression models.
type Regressor interface {
	Fitter
	Predictor
	Scorer
}

// Classifier combines interfaces for binary classification models.
type Classifier interface {
	Fitter
	Predictor
	Scorer

	// DecisionFunction returns signed distances to the separating surface.
	DecisionFunction(X mat.Matrix) (mat.Matrix, error)

	// PredictProba returns probability estimates (n_samples x n_classes).
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the sorted labels seen during fitting.
	Classes() []float64
}

// ParameterGetter is the interface for models that expose their hyperparameters.
type ParameterGetter interface {
	GetParams() map[string]interface{}
}

// WeightPorter is implemented by models whose fitted state can be exported
// and restored without retraining.
type WeightPorter interface {
	ExportWeights() (*ModelWeights, error)
	ImportWeights(weights *ModelWeights) error
}
