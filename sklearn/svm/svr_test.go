package svm

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-svm/core/model"
	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
	"github.com/YuminosukeSato/scigo-svm/pkg/log"
)

// regressionData samples f on n evenly spaced points of [lo, hi].
func regressionData(n int, lo, hi float64, f func(float64) float64) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		v := lo + (hi-lo)*float64(i)/float64(n-1)
		X.Set(i, 0, v)
		y.Set(i, 0, f(v))
	}
	return X, y
}

// fitCompletedEntry returns the decoded "fit completed" log line.
func fitCompletedEntry(t *testing.T, tl *log.TestLogger) map[string]interface{} {
	t.Helper()
	entries, err := tl.GetLogEntries()
	require.NoError(t, err)
	for _, e := range entries {
		if e["message"] == "fit completed" {
			return e
		}
	}
	require.Fail(t, "no fit completed entry", tl.Output())
	return nil
}

func TestSVRLinear(t *testing.T) {
	X, y := regressionData(50, 0, 5, func(v float64) float64 { return 2*v + 1 })

	reg := NewSVR(WithEpsilonSVR(10, 0.01), WithKernel("linear"))
	require.NoError(t, reg.Fit(X, y))

	assert.True(t, reg.IsFitted())
	assert.True(t, reg.Converged())
	assert.Nil(t, reg.ConvergenceWarning())

	score, err := reg.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.999)

	pred, err := reg.Predict(mat.NewDense(2, 1, []float64{1, 4}))
	require.NoError(t, err)
	assert.InDelta(t, 3, pred.At(0, 0), 0.05)
	assert.InDelta(t, 9, pred.At(1, 0), 0.05)

	eps, err := reg.Epsilon()
	require.NoError(t, err)
	assert.Equal(t, 0.01, eps)
}

func TestSVRRBFScaleGamma(t *testing.T) {
	X, y := regressionData(80, 0, 2*math.Pi, math.Sin)

	reg := NewSVR(WithEpsilonSVR(10, 0.05))
	require.NoError(t, reg.Fit(X, y))

	score, err := reg.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.95)

	assert.Equal(t, GammaScale, reg.GetParams()["gamma"])
	w, err := reg.ExportWeights()
	require.NoError(t, err)
	assert.Equal(t, "rbf", w.Kernel.Name)
	assert.InDelta(t, scaleGamma(matRows(X)), w.Kernel.Gamma, 1e-12)
}

func matRows(X *mat.Dense) [][]float64 {
	r, _ := X.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = mat.Row(nil, i, X)
	}
	return rows
}

func TestSVRNu(t *testing.T) {
	X, y := regressionData(60, 0, 3, func(v float64) float64 { return v * v })

	reg := NewSVR(WithNuSVR(10, 0.5), WithKernel("poly"), WithDegree(2), WithGamma(1), WithCoef0(1))
	require.NoError(t, reg.Fit(X, y))

	score, err := reg.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.99)

	eps, err := reg.Epsilon()
	require.NoError(t, err)
	assert.False(t, math.IsNaN(eps))
	assert.Equal(t, "nu_svr", reg.GetParams()["formulation"])
	assert.Equal(t, 0.5, reg.GetParams()["nu"])
}

func TestSVRConfigurationErrors(t *testing.T) {
	X, y := regressionData(5, 0, 1, math.Exp)

	tests := []struct {
		name  string
		opts  []Option
		param string
	}{
		{"no formulation", nil, "formulation"},
		{"both formulations", []Option{WithEpsilonSVR(1, 0.1), WithNuSVR(1, 0.5)}, "formulation"},
		{"bad C", []Option{WithEpsilonSVR(0, 0.1)}, "C"},
		{"bad epsilon", []Option{WithEpsilonSVR(1, -1)}, "epsilon"},
		{"bad nu", []Option{WithNuSVR(1, 2)}, "nu"},
		{"bad kernel", []Option{WithEpsilonSVR(1, 0.1), WithKernel("cubic")}, "kernel"},
		{"bad tol", []Option{WithEpsilonSVR(1, 0.1), WithTol(-1)}, "tol"},
		{"NaN cache size", []Option{WithEpsilonSVR(1, 0.1), WithCacheSize(math.NaN())}, "cache_size"},
		{"infinite cache size", []Option{WithEpsilonSVR(1, 0.1), WithCacheSize(math.Inf(1))}, "cache_size"},
		{"class weight on SVR", []Option{WithEpsilonSVR(1, 0.1), WithClassWeight(map[float64]float64{1: 2})}, "formulation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSVR(tt.opts...).Fit(X, y)
			var ve *errors.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.param, ve.ParamName)
		})
	}
}

func TestSVRInputErrors(t *testing.T) {
	X, y := regressionData(5, 0, 1, math.Exp)
	reg := NewSVR(WithEpsilonSVR(1, 0.1), WithKernel("linear"))

	_, err := reg.Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	err = reg.Fit(X, mat.NewDense(4, 1, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	bad := mat.DenseCopyOf(X)
	bad.Set(2, 0, math.NaN())
	err = reg.Fit(bad, y)
	var ne *errors.NumericalInstabilityError
	assert.True(t, errors.As(err, &ne))

	require.NoError(t, reg.Fit(X, y))
	_, err = reg.Predict(mat.NewDense(2, 3, nil))
	assert.True(t, errors.As(err, &de))
}

func TestSVRIterationLimitWarning(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	tl := log.NewTestLogger(log.LevelInfo)
	X, y := regressionData(40, 0, 4, math.Sin)
	reg := NewSVR(WithEpsilonSVR(10, 0.001), WithGamma(2), WithMaxIter(2), WithLogger(tl))

	require.NoError(t, reg.Fit(X, y))
	assert.True(t, reg.IsFitted())
	assert.False(t, reg.Converged())

	cw := reg.ConvergenceWarning()
	require.NotNil(t, cw)
	assert.Equal(t, 2, cw.Iterations)
	require.Len(t, warnings, 1)
	assert.True(t, errors.Is(warnings[0], errors.ErrNotConverged))

	assert.True(t, tl.ContainsMessage("solver stopped at the iteration limit"))
	assert.True(t, tl.ContainsField(log.SVMStatusKey, log.StatusIterationLimit))

	_, err := reg.Predict(X)
	assert.NoError(t, err)
}

func TestSVRLoggingAndObserver(t *testing.T) {
	tl := log.NewTestLogger(log.LevelInfo)
	var reports []FitReport
	X, y := regressionData(20, 0, 1, func(v float64) float64 { return -v })

	reg := NewSVR(WithEpsilonSVR(5, 0.01), WithKernel("linear"), WithLogger(tl),
		WithObserver(ObserverFunc(func(r FitReport) { reports = append(reports, r) })))
	require.NoError(t, reg.Fit(X, y))

	assert.True(t, tl.ContainsMessage("fit completed"))
	assert.True(t, tl.ContainsField(log.EstimatorIDKey, reg.ID()))
	assert.True(t, tl.ContainsField(log.SVMStatusKey, log.StatusConverged))
	assert.True(t, tl.ContainsField(log.ModelNameKey, "SVR"))

	entry := fitCompletedEntry(t, tl)
	for _, key := range []string{log.RMSEKey, log.MAEKey, log.EpsilonLossKey, log.R2ScoreKey} {
		assert.Contains(t, entry, key)
	}
	assert.Less(t, entry[log.RMSEKey], 0.03)
	assert.Less(t, entry[log.EpsilonLossKey], 1e-2)
	assert.Greater(t, entry[log.R2ScoreKey], 0.99)

	require.Len(t, reports, 1)
	assert.Equal(t, "SVR", reports[0].Model)
	assert.Equal(t, reg.ID(), reports[0].EstimatorID)
	assert.Equal(t, StatusConverged, reports[0].Status)
	assert.Equal(t, reg.Model().NSupport(), reports[0].NSupport)
}

func TestSVRFitRecoversPanic(t *testing.T) {
	X, y := regressionData(10, 0, 1, math.Sqrt)
	reg := NewSVR(WithEpsilonSVR(1, 0.1), WithKernel("linear"),
		WithObserver(ObserverFunc(func(FitReport) { panic("observer failed") })))

	err := reg.Fit(X, y)
	var pe *errors.PanicError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "SVR.Fit", pe.Operation)
}

func TestSVRPrecomputedKernel(t *testing.T) {
	X, y := regressionData(30, -1, 1, func(v float64) float64 { return 0.5 * v })

	var gram mat.Dense
	gram.Mul(X, X.T())

	reg := NewSVR(WithEpsilonSVR(10, 0.01), WithPrecomputedKernel())
	require.NoError(t, reg.Fit(&gram, y))

	test := mat.NewDense(2, 1, []float64{-0.5, 0.8})
	var rows mat.Dense
	rows.Mul(test, X.T())
	pred, err := reg.Predict(&rows)
	require.NoError(t, err)
	assert.InDelta(t, -0.25, pred.At(0, 0), 0.02)
	assert.InDelta(t, 0.4, pred.At(1, 0), 0.02)

	err = reg.Fit(X, y)
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de), "a precomputed kernel must be square")
}

func TestSVRWeightsRoundTrip(t *testing.T) {
	X, y := regressionData(40, 0, 3, math.Cos)
	reg := NewSVR(WithEpsilonSVR(3, 0.02), WithGamma(0.8))
	require.NoError(t, reg.Fit(X, y))
	want, err := reg.Predict(X)
	require.NoError(t, err)

	w, err := reg.ExportWeights()
	require.NoError(t, err)
	assert.Equal(t, "SVR", w.ModelType)
	assert.NotEmpty(t, w.Checksum)

	t.Run("json", func(t *testing.T) {
		data, err := w.ToJSON()
		require.NoError(t, err)
		var decoded model.ModelWeights
		require.NoError(t, decoded.FromJSON(data))

		restored := NewSVR(WithEpsilonSVR(1, 0.1))
		require.NoError(t, restored.ImportWeights(&decoded))
		got, err := restored.Predict(X)
		require.NoError(t, err)
		assert.InDeltaSlice(t, mat.Col(nil, 0, want), mat.Col(nil, 0, got), 1e-12)
	})

	t.Run("gob", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, model.SaveWeightsToWriter(w, &buf))
		decoded, err := model.LoadWeightsFromReader(&buf)
		require.NoError(t, err)

		restored := NewSVR()
		require.NoError(t, restored.ImportWeights(decoded))
		got, err := restored.Predict(X)
		require.NoError(t, err)
		assert.Equal(t, mat.Col(nil, 0, want), mat.Col(nil, 0, got))
	})

	t.Run("tampered", func(t *testing.T) {
		bad := w.Clone()
		bad.DualCoef[0] += 1
		assert.Error(t, NewSVR().ImportWeights(bad))
	})

	t.Run("wrong type", func(t *testing.T) {
		other := w.Clone()
		other.ModelType = "SVC"
		assert.Error(t, NewSVR().ImportWeights(other))
	})
}

func TestSVRString(t *testing.T) {
	reg := NewSVR(WithEpsilonSVR(2, 0.1))
	assert.Equal(t, "SVR(formulation=epsilon_svr, C=2, kernel=rbf)", reg.String())

	X, y := regressionData(10, 0, 1, math.Exp)
	require.NoError(t, reg.Fit(X, y))
	assert.Contains(t, reg.String(), "n_support=")
}

func TestSVRConstantTarget(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	X, _ := regressionData(10, 0, 1, math.Sqrt)
	y := mat.NewDense(10, 1, nil)
	for i := 0; i < 10; i++ {
		y.Set(i, 0, 3)
	}

	// every target sits inside the tube: no support vectors, rho from the bound midpoint
	reg := NewSVR(WithEpsilonSVR(1, 0.5), WithKernel("linear"))
	require.NoError(t, reg.Fit(X, y))
	assert.Zero(t, reg.Model().NSupport())
	assert.Equal(t, -3.0, reg.Model().Rho())

	score, err := reg.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)

	// one from the training summary, one from Score
	require.Len(t, warnings, 2)
	for _, w := range warnings {
		var uw *errors.UndefinedMetricWarning
		require.True(t, errors.As(w, &uw), "got %v", w)
		assert.Equal(t, "r2_score", uw.Metric)
	}
}
