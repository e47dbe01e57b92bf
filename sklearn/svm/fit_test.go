package svm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scigo-svm/kernel"
	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
)

func meanSquaredError[F kernel.Float](m *Model[F], x [][]F, y []F) float64 {
	var sum float64
	for i, row := range x {
		d := float64(m.DecisionValue(row) - y[i])
		sum += d * d
	}
	return sum / float64(len(x))
}

func TestFitEpsilonRecoversLine(t *testing.T) {
	x := line[float64](100, 0, 10)
	y := mapTargets(x, func(v float64) float64 { return 2 * v })

	m, err := FitEpsilon(TrainingSet[float64]{X: x, Kernel: kernel.Linear[float64]{}}, y, 10, 0, DefaultSolverParams())
	require.NoError(t, err)

	assert.True(t, m.Converged())
	assert.Less(t, meanSquaredError(m, x, y), 1e-2)
	assert.Equal(t, m.NSupport(), len(m.SupportVectors()))
	assert.Equal(t, m.NSupport(), len(m.SupportIndices()))
}

func TestFitEpsilonIdentityWithinCap(t *testing.T) {
	x := line[float64](100, 0, 10)
	y := mapTargets(x, func(v float64) float64 { return v })

	params := DefaultSolverParams()
	params.MaxIterations = 1000
	m, err := FitEpsilon(TrainingSet[float64]{X: x, Kernel: kernel.Linear[float64]{}}, y, 2, 0.01, params)
	require.NoError(t, err)

	assert.True(t, m.Converged())
	assert.LessOrEqual(t, m.Iterations(), 1000)
	assert.Less(t, meanSquaredError(m, x, y), 1e-2)
	assert.Equal(t, 0.01, m.Epsilon())
}

func TestFitFloat32MatchesFloat64(t *testing.T) {
	x64 := line[float64](20, 0, 1)
	y64 := mapTargets(x64, func(v float64) float64 { return 2 * v })
	x32 := line[float32](20, 0, 1)
	y32 := mapTargets(x32, func(v float64) float64 { return 2 * v })

	params := DefaultSolverParams()
	params.Tolerance = 1e-6

	m64, err := FitEpsilon(TrainingSet[float64]{X: x64, Kernel: kernel.Linear[float64]{}}, y64, 10, 0, params)
	require.NoError(t, err)
	m32, err := FitEpsilon(TrainingSet[float32]{X: x32, Kernel: kernel.Linear[float32]{}}, y32, 10, 0, params)
	require.NoError(t, err)

	for i := range x64 {
		assert.InDelta(t, m64.DecisionValue(x64[i]), float64(m32.DecisionValue(x32[i])), 1e-3)
	}
}

func TestFitDenseAndStreamedAgree(t *testing.T) {
	x := line[float64](50, -3, 3)
	y := mapTargets(x, math.Tanh)
	fn := kernel.Gaussian[float64]{Gamma: 0.7}

	params := DefaultSolverParams()
	lazy, err := FitEpsilon(TrainingSet[float64]{X: x, Kernel: fn}, y, 4, 0.02, params)
	require.NoError(t, err)
	dense, err := FitEpsilon(TrainingSet[float64]{X: x, Kernel: fn, Dense: true}, y, 4, 0.02, params)
	require.NoError(t, err)

	// a two-column cache forces evictions on every iteration
	params.CacheSizeMB = 1e-9
	tiny, err := FitEpsilon(TrainingSet[float64]{X: x, Kernel: fn}, y, 4, 0.02, params)
	require.NoError(t, err)

	assert.Equal(t, dense.DualCoef(), lazy.DualCoef())
	assert.Equal(t, dense.Rho(), lazy.Rho())
	assert.Equal(t, dense.DualCoef(), tiny.DualCoef())
	assert.Equal(t, 2, tiny.CacheStats().Slots)
	assert.Positive(t, tiny.CacheStats().Evictions)
}

func TestFitPrecomputedKernel(t *testing.T) {
	x := line[float64](30, 0, 3)
	y := mapTargets(x, func(v float64) float64 { return 1 - v })
	fn := kernel.Linear[float64]{}

	gram, err := kernel.NewGram(x, fn, 1)
	require.NoError(t, err)

	fromX, err := FitEpsilon(TrainingSet[float64]{X: x, Kernel: fn}, y, 5, 0.01, DefaultSolverParams())
	require.NoError(t, err)
	fromGram, err := FitEpsilon(TrainingSet[float64]{Gram: gram}, y, 5, 0.01, DefaultSolverParams())
	require.NoError(t, err)

	assert.Nil(t, fromGram.Kernel())
	assert.Empty(t, fromGram.SupportVectors())
	assert.Equal(t, fromX.SupportIndices(), fromGram.SupportIndices())

	for i := range x {
		assert.InDelta(t, fromX.DecisionValue(x[i]), fromGram.DecisionValue(gram.View(i)), 1e-9)
	}
}

func TestFitIterationLimitReturnsWarning(t *testing.T) {
	x := line[float64](40, 0, 4)
	y := mapTargets(x, math.Sin)

	params := DefaultSolverParams()
	params.MaxIterations = 3
	m, err := FitEpsilon(TrainingSet[float64]{X: x, Kernel: kernel.Gaussian[float64]{Gamma: 2}}, y, 10, 0.001, params)

	require.NotNil(t, m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotConverged))

	cw, ok := errors.AsConvergenceWarning(err)
	require.True(t, ok)
	assert.Equal(t, 3, cw.Iterations)
	assert.Greater(t, cw.Violation, cw.Tolerance)

	assert.False(t, m.Converged())
	assert.Equal(t, StatusIterationLimit, m.Status())
	assert.Equal(t, 3, m.Iterations())
	assert.False(t, math.IsNaN(m.DecisionValue([]float64{1})))
}

func TestFitNuReportsTubeWidth(t *testing.T) {
	x := line[float64](40, 0, 4)
	y := mapTargets(x, func(v float64) float64 { return math.Sin(v) })

	m, err := FitNu(TrainingSet[float64]{X: x, Kernel: kernel.Gaussian[float64]{Gamma: 1}}, y, 1, 0.5, DefaultSolverParams())
	require.NoError(t, err)

	assert.True(t, m.Converged())
	// nu bounds the fraction of support vectors from below
	assert.GreaterOrEqual(t, float64(m.NSupport()), 0.5*float64(len(x))-1)
	assert.False(t, math.IsNaN(float64(m.Epsilon())))
}

func TestFitClassificationSeparable(t *testing.T) {
	x := [][]float64{{-2}, {-1}, {-0.5}, {0.5}, {1}, {2}}
	signs := []bool{false, false, false, true, true, true}

	m, err := FitClassification(TrainingSet[float64]{X: x, Kernel: kernel.Linear[float64]{}}, signs, SharedBound(6, 1.0), DefaultSolverParams())
	require.NoError(t, err)
	for i, row := range x {
		assert.Equal(t, signs[i], m.DecisionValue(row) > 0)
	}
}

func TestFitInputErrors(t *testing.T) {
	x := line[float64](5, 0, 1)
	data := TrainingSet[float64]{X: x, Kernel: kernel.Linear[float64]{}}

	_, err := FitEpsilon(data, []float64{1, 2}, 1, 0.1, DefaultSolverParams())
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	_, err = FitEpsilon(TrainingSet[float64]{X: x}, make([]float64, 5), 1, 0.1, DefaultSolverParams())
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	bad := DefaultSolverParams()
	bad.Tolerance = -1
	_, err = FitEpsilon(data, make([]float64, 5), 1, 0.1, bad)
	assert.True(t, errors.As(err, &ve))
}

func TestRestoreModel(t *testing.T) {
	x := line[float64](20, 0, 2)
	y := mapTargets(x, func(v float64) float64 { return 3*v - 1 })
	fn := kernel.Linear[float64]{}

	m, err := FitEpsilon(TrainingSet[float64]{X: x, Kernel: fn}, y, 10, 0.01, DefaultSolverParams())
	require.NoError(t, err)

	restored, err := RestoreModel[float64](fn, m.SupportVectors(), m.DualCoef(), m.SupportIndices(), m.Rho())
	require.NoError(t, err)
	for _, row := range x {
		assert.Equal(t, m.DecisionValue(row), restored.DecisionValue(row))
	}

	_, err = RestoreModel[float64](fn, m.SupportVectors(), m.DualCoef()[:1], m.SupportIndices(), m.Rho())
	assert.Error(t, err)
}
