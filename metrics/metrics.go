// Package metrics scores SVM predictions against ground truth.
//
// Regression scores (MSE, RMSE, MAE, R², epsilon-insensitive loss) back
// SVR.Score and the training summary logged by SVR.Fit; classification
// scores (accuracy, ROC AUC, log loss) back SVC.Score and the calibration
// summary logged by SVC.Fit.
package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
)

// pair validates a (truth, prediction) pair and returns both as slices.
func pair(op string, yTrue, yPred *mat.VecDense) ([]float64, []float64, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return nil, nil, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != yTrue.Len() {
		return nil, nil, errors.NewDimensionError(op, yTrue.Len(), yPred.Len(), 0)
	}
	return mat.Col(nil, 0, yTrue), mat.Col(nil, 0, yPred), nil
}
