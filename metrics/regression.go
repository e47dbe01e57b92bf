package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
)

// MSE は平均二乗誤差
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	t, p, err := pair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	d := floats.Distance(t, p, 2)
	return d * d / float64(len(t)), nil
}

// RMSE は平方根平均二乗誤差
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	t, p, err := pair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return floats.Distance(t, p, 1) / float64(len(t)), nil
}

// EpsilonInsensitiveLoss は平均 max(0, |y - f| - epsilon)。
// チューブ内の残差は0として数える (SVRの主問題の損失)。
func EpsilonInsensitiveLoss(yTrue, yPred *mat.VecDense, epsilon float64) (float64, error) {
	if epsilon < 0 || math.IsNaN(epsilon) {
		return 0, errors.NewValidationError("epsilon", "must be non-negative", epsilon)
	}
	t, p, err := pair("EpsilonInsensitiveLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var loss float64
	for i := range t {
		loss += math.Max(0, math.Abs(t[i]-p[i])-epsilon)
	}
	return loss / float64(len(t)), nil
}

// R2Score は決定係数 1 - RSS/TSS。
//
// y_trueが定数 (TSS = 0) の場合R²は定義されない。予測が完全一致なら1、
// そうでなければ0を返し、UndefinedMetricWarningをerrors.Warnで通知する。
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	t, p, err := pair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	mean := stat.Mean(t, nil)
	var tss float64
	for _, v := range t {
		tss += (v - mean) * (v - mean)
	}
	rss := floats.Distance(t, p, 2)
	rss *= rss

	if tss == 0 {
		score := 0.0
		if rss == 0 {
			score = 1
		}
		errors.Warn(errors.NewUndefinedMetricWarning("r2_score", "constant y_true", score))
		return score, nil
	}
	return 1 - rss/tss, nil
}
