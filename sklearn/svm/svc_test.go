package svm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
	"github.com/YuminosukeSato/scigo-svm/pkg/log"
)

// blobs returns two overlapping clusters labelled neg and pos.
func blobs(neg, pos float64) (*mat.Dense, *mat.Dense) {
	points := [][2]float64{
		{0, 0}, {0.5, 0.3}, {-0.4, 0.8}, {1, -0.5}, {0.2, 1.2}, {-1, -0.3}, {1.8, 1.9}, {0.6, -1},
		{3, 3}, {2.5, 3.6}, {3.4, 2.2}, {4, 3.5}, {2.2, 2.8}, {3.8, 4.1}, {0.9, 0.7}, {2.7, 1.9},
	}
	X := mat.NewDense(len(points), 2, nil)
	y := mat.NewDense(len(points), 1, nil)
	for i, p := range points {
		X.Set(i, 0, p[0])
		X.Set(i, 1, p[1])
		if i < 8 {
			y.Set(i, 0, neg)
		} else {
			y.Set(i, 0, pos)
		}
	}
	return X, y
}

func TestSVCFitPredict(t *testing.T) {
	X, y := blobs(-1, 1)
	clf := NewSVC(WithC(1), WithKernel("linear"))
	require.NoError(t, clf.Fit(X, y))

	assert.Equal(t, []float64{-1, 1}, clf.Classes())
	score, err := clf.Score(X, y)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0.85)

	pred, err := clf.Predict(mat.NewDense(2, 2, []float64{-1, -1, 5, 5}))
	require.NoError(t, err)
	assert.Equal(t, -1.0, pred.At(0, 0))
	assert.Equal(t, 1.0, pred.At(1, 0))

	dec, err := clf.DecisionFunction(mat.NewDense(2, 2, []float64{-1, -1, 5, 5}))
	require.NoError(t, err)
	assert.Less(t, dec.At(0, 0), 0.0)
	assert.Greater(t, dec.At(1, 0), 0.0)
}

func TestSVCArbitraryLabels(t *testing.T) {
	X, y := blobs(7, 3)
	clf := NewSVC(WithKernel("rbf"), WithGamma(0.5), WithC(10))
	require.NoError(t, clf.Fit(X, y))

	// the larger label is the positive class
	assert.Equal(t, []float64{3, 7}, clf.Classes())
	pred, err := clf.Predict(mat.NewDense(2, 2, []float64{0.1, 0.2, 3.2, 3.1}))
	require.NoError(t, err)
	assert.Equal(t, 7.0, pred.At(0, 0))
	assert.Equal(t, 3.0, pred.At(1, 0))
}

func TestSVCLabelErrors(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{0, 1, 2})

	err := NewSVC().Fit(X, mat.NewDense(3, 1, []float64{1, 1, 1}))
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))

	err = NewSVC().Fit(X, mat.NewDense(3, 1, []float64{0, 1, 2}))
	assert.True(t, errors.As(err, &ve))

	err = NewSVC(WithEpsilonSVR(1, 0.1)).Fit(X, mat.NewDense(3, 1, []float64{0, 1, 1}))
	var cfg *errors.ValidationError
	assert.True(t, errors.As(err, &cfg))

	err = NewSVC(WithClassWeight(map[float64]float64{1: -2})).Fit(X, mat.NewDense(3, 1, []float64{0, 1, 1}))
	assert.True(t, errors.As(err, &cfg))
}

func TestSVCClassWeightShiftsBoundary(t *testing.T) {
	X, y := blobs(0, 1)
	probe := mat.NewDense(1, 2, []float64{1.5, 1.5})

	plain := NewSVC(WithKernel("linear"), WithC(0.1))
	require.NoError(t, plain.Fit(X, y))
	weighted := NewSVC(WithKernel("linear"), WithC(0.1), WithClassWeight(map[float64]float64{1: 10}))
	require.NoError(t, weighted.Fit(X, y))

	a, err := plain.DecisionFunction(probe)
	require.NoError(t, err)
	b, err := weighted.DecisionFunction(probe)
	require.NoError(t, err)
	assert.Greater(t, b.At(0, 0), a.At(0, 0))
	assert.Contains(t, weighted.GetParams(), "class_weight")
}

func TestSVCProbability(t *testing.T) {
	X, y := blobs(0, 1)
	tl := log.NewTestLogger(log.LevelInfo)
	clf := NewSVC(WithKernel("linear"), WithProbability(true), WithLogger(tl))
	require.NoError(t, clf.Fit(X, y))
	require.NotNil(t, clf.Platt())

	entry := fitCompletedEntry(t, tl)
	assert.GreaterOrEqual(t, entry[log.AccuracyKey], 0.8)
	assert.Greater(t, entry[log.AUCKey], 0.8)
	require.Contains(t, entry, log.LogLossKey)
	assert.Greater(t, entry[log.LogLossKey], 0.0)
	assert.Less(t, entry[log.LogLossKey], math.Log(2))

	proba, err := clf.PredictProba(X)
	require.NoError(t, err)
	dec, err := clf.DecisionFunction(X)
	require.NoError(t, err)

	r, c := proba.Dims()
	assert.Equal(t, 16, r)
	assert.Equal(t, 2, c)
	for i := 0; i < r; i++ {
		assert.InDelta(t, 1, proba.At(i, 0)+proba.At(i, 1), 1e-12)
		assert.Greater(t, proba.At(i, 1), 0.0)
		assert.Less(t, proba.At(i, 1), 1.0)
		for j := 0; j < r; j++ {
			if dec.At(i, 0) < dec.At(j, 0) {
				assert.LessOrEqual(t, proba.At(i, 1), proba.At(j, 1))
			}
		}
	}

	tl.Clear()
	noProba := NewSVC(WithKernel("linear"), WithLogger(tl))
	require.NoError(t, noProba.Fit(X, y))
	entry = fitCompletedEntry(t, tl)
	assert.Contains(t, entry, log.AUCKey)
	assert.NotContains(t, entry, log.LogLossKey)
	_, err = noProba.PredictProba(X)
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
}

func TestSVCWeightsRoundTrip(t *testing.T) {
	X, y := blobs(2, 5)
	clf := NewSVC(WithGamma(0.3), WithC(3), WithProbability(true))
	require.NoError(t, clf.Fit(X, y))

	w, err := clf.ExportWeights()
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 5}, w.Classes)

	restored := NewSVC()
	require.NoError(t, restored.ImportWeights(w))
	assert.Equal(t, clf.Classes(), restored.Classes())

	want, err := clf.PredictProba(X)
	require.NoError(t, err)
	got, err := restored.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))

	bad := w.Clone()
	bad.Classes = []float64{1}
	assert.Error(t, NewSVC().ImportWeights(bad))
}

func TestSVCNotFitted(t *testing.T) {
	clf := NewSVC()
	_, err := clf.DecisionFunction(mat.NewDense(1, 1, []float64{0}))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
	_, err = clf.ExportWeights()
	assert.True(t, errors.As(err, &nf))
	assert.Equal(t, "SVC(C=1, kernel=rbf)", clf.String())
}
