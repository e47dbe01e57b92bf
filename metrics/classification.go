package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
)

// logLossEps はlog(0)を避けるためのクリッピング幅
const logLossEps = 1e-15

func requireBinary(op string, labels []float64) error {
	for _, v := range labels {
		if v != 0 && v != 1 {
			return errors.NewValueError(op, "labels must be 0 or 1")
		}
	}
	return nil
}

// Accuracy は正解率 (ラベルは任意の値でよい)
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	t, p, err := pair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := range t {
		if t[i] == p[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(t)), nil
}

// AUC はROC曲線下面積。yTrueは0/1、yScoreは決定関数値または正例の確率。
// 同順位は平均順位で扱う (Mann-Whitney U)。片方のクラスしかない場合は0.5。
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	t, s, err := pair("AUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	if err := requireBinary("AUC", t); err != nil {
		return 0, err
	}

	order := make([]int, len(s))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return s[order[a]] < s[order[b]] })

	var rankSum, nPos float64
	for lo := 0; lo < len(order); {
		hi := lo + 1
		for hi < len(order) && s[order[hi]] == s[order[lo]] {
			hi++
		}
		rank := float64(lo+hi+1) / 2
		for _, idx := range order[lo:hi] {
			if t[idx] == 1 {
				rankSum += rank
				nPos++
			}
		}
		lo = hi
	}
	nNeg := float64(len(t)) - nPos
	if nPos == 0 || nNeg == 0 {
		return 0.5, nil
	}
	return (rankSum - nPos*(nPos+1)/2) / (nPos * nNeg), nil
}

// BinaryLogLoss は二値交差エントロピー。yProbは正例の確率。
func BinaryLogLoss(yTrue, yProb *mat.VecDense) (float64, error) {
	t, p, err := pair("BinaryLogLoss", yTrue, yProb)
	if err != nil {
		return 0, err
	}
	if err := requireBinary("BinaryLogLoss", t); err != nil {
		return 0, err
	}
	var loss float64
	for i, y := range t {
		q := math.Min(math.Max(p[i], logLossEps), 1-logLossEps)
		if y == 1 {
			loss -= math.Log(q)
		} else {
			loss -= math.Log1p(-q)
		}
	}
	return loss / float64(len(t)), nil
}
