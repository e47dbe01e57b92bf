package kernel

import (
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
)

func TestFunctions(t *testing.T) {
	x := []float64{1, 2}
	y := []float64{3, -1}

	assert.InDelta(t, 1.0, Linear[float64]{}.Eval(x, y), 1e-12)
	assert.InDelta(t, math.Pow(0.5*1+1, 3), Polynomial[float64]{Gamma: 0.5, Coef0: 1, Degree: 3}.Eval(x, y), 1e-12)
	assert.InDelta(t, math.Exp(-0.1*13), Gaussian[float64]{Gamma: 0.1}.Eval(x, y), 1e-12)
	assert.InDelta(t, math.Tanh(0.2*1-0.5), Sigmoid[float64]{Gamma: 0.2, Coef0: -0.5}.Eval(x, y), 1e-12)

	assert.InDelta(t, 1.0, float64(Gaussian[float32]{Gamma: 3}.Eval([]float32{1, 1}, []float32{1, 1})), 1e-7)
}

func TestSpecRoundTrip(t *testing.T) {
	fns := []Function[float64]{
		Linear[float64]{},
		Polynomial[float64]{Gamma: 1, Coef0: 2, Degree: 2},
		Gaussian[float64]{Gamma: 0.3},
		Sigmoid[float64]{Gamma: 0.1, Coef0: 1},
	}
	x, y := []float64{0.5, -1}, []float64{2, 0.25}
	for _, fn := range fns {
		rebuilt, err := FromSpec[float64](fn.Spec())
		require.NoError(t, err)
		assert.Equal(t, fn.Eval(x, y), rebuilt.Eval(x, y), fn.Spec().Name)
	}
}

func TestSpecValidate(t *testing.T) {
	var valErr *errors.ValidationError
	assert.True(t, errors.As(Spec{Name: "laplace"}.Validate(), &valErr))
	assert.True(t, errors.As(Spec{Name: NameGaussian}.Validate(), &valErr))
	assert.True(t, errors.As(Spec{Name: NamePolynomial, Gamma: 1}.Validate(), &valErr))
	assert.NoError(t, Spec{Name: NamePrecomputed}.Validate())

	_, err := FromSpec[float64](Spec{Name: NamePrecomputed})
	assert.Error(t, err)
}

func TestGramMatchesLazy(t *testing.T) {
	x := [][]float64{{0, 1}, {1, 0}, {2, 2}, {-1, 3}, {0.5, 0.5}}
	fn := Gaussian[float64]{Gamma: 0.5}

	g, err := NewGram(x, fn, 3)
	require.NoError(t, err)
	lz, err := NewLazy(x, fn, 1)
	require.NoError(t, err)

	col := make([]float64, len(x))
	for i := range x {
		lz.Column(i, col)
		assert.Equal(t, col, g.View(i))
		assert.Equal(t, g.Diagonal(i), lz.Diagonal(i))
		for j := range x {
			assert.Equal(t, g.At(i, j), g.At(j, i))
		}
	}
}

// countingKernel records how often each (row, column) pair is evaluated.
type countingKernel struct {
	mu    sync.Mutex
	calls map[[2]float64]int
}

func (k *countingKernel) Eval(x, y []float64) float64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.calls[[2]float64{x[0], y[0]}]++
	return x[0]*100 + y[0]
}

func (k *countingKernel) Spec() Spec { return Spec{Name: "counting"} }

func TestGramEvaluatesUpperTriangleOnce(t *testing.T) {
	for _, n := range []int{1, 2, 5, 6, 11} {
		for _, jobs := range []int{1, 2, 3, 8} {
			t.Run(fmt.Sprintf("n=%d/jobs=%d", n, jobs), func(t *testing.T) {
				x := make([][]float64, n)
				for i := range x {
					x[i] = []float64{float64(i)}
				}
				fn := &countingKernel{calls: map[[2]float64]int{}}

				g, err := NewGram[float64](x, fn, jobs)
				require.NoError(t, err)

				assert.Len(t, fn.calls, n*(n+1)/2)
				for i := 0; i < n; i++ {
					for j := 0; j < n; j++ {
						lo, hi := min(i, j), max(i, j)
						assert.Equal(t, float64(lo*100+hi), g.At(i, j))
						if i <= j {
							assert.Equal(t, 1, fn.calls[[2]float64{float64(i), float64(j)}])
						}
					}
				}
			})
		}
	}
}

func TestSourceValidation(t *testing.T) {
	_, err := NewGram([][]float64{}, Linear[float64]{}, 1)
	assert.ErrorIs(t, err, errors.ErrEmptyData)

	_, err = NewLazy([][]float64{{1, 2}, {1}}, Linear[float64]{}, 1)
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))

	err = CheckFinite([][]float64{{1, 2}, {math.NaN(), 0}})
	var numErr *errors.NumericalInstabilityError
	require.True(t, errors.As(err, &numErr))
	assert.Equal(t, 1, numErr.Iteration)

	_, err = NewGramFromMatrix([]float64{1, 0, 0}, 2)
	assert.True(t, errors.As(err, &dimErr))
}

// countingSource records how often each column is computed.
type countingSource struct {
	*Lazy[float64]
	computed map[int]int
}

func (c *countingSource) Column(i int, dst []float64) {
	c.computed[i]++
	c.Lazy.Column(i, dst)
}

func TestCacheLRU(t *testing.T) {
	x := [][]float64{{0}, {1}, {2}, {3}}
	lz, err := NewLazy(x, Linear[float64]{}, 1)
	require.NoError(t, err)
	src := &countingSource{Lazy: lz, computed: map[int]int{}}

	c := newCacheWithSlots[float64](src, 2)
	assert.Equal(t, []float64{0, 2, 4, 6}, c.Get(2))
	c.Get(1)
	c.Get(2) // hit, 1 becomes least recent
	c.Get(3) // evicts 1

	assert.True(t, c.Contains(2))
	assert.True(t, c.Contains(3))
	assert.False(t, c.Contains(1))

	c.Get(1)
	assert.Equal(t, 2, src.computed[1])
	assert.Equal(t, 1, src.computed[2])

	st := c.Stats()
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(4), st.Misses)
	assert.Equal(t, int64(2), st.Evictions)
	assert.Equal(t, 2, st.Slots)
}

func TestCacheMinimumSlots(t *testing.T) {
	x := make([][]float64, 50)
	for i := range x {
		x[i] = []float64{float64(i)}
	}
	lz, err := NewLazy(x, Linear[float64]{}, 1)
	require.NoError(t, err)

	c := NewCache[float64](lz, 0)
	assert.Equal(t, 2, c.Stats().Slots)

	c = NewCache[float64](lz, 100)
	assert.Equal(t, 50, c.Stats().Slots)

	// budgets that do not convert to an int fall back to a full cache
	for _, mb := range []float64{math.NaN(), math.Inf(1)} {
		assert.Equal(t, 50, NewCache[float64](lz, mb).Stats().Slots)
	}
}

func TestProviderSignsAndSwap(t *testing.T) {
	x := [][]float64{{1}, {2}}
	g, err := NewGram(x, Linear[float64]{}, 1)
	require.NoError(t, err)

	// doubled regression layout: entries 0,1 positive, 2,3 negative
	p, err := NewProvider[float64](g, []int{0, 1, 0, 1}, []int8{1, 1, -1, -1}, 1)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 4, 1, 4}, p.Diagonal())
	assert.Equal(t, []float64{2, 4, -2, -4}, p.Column(1, 4))

	qi := p.Column(0, 4)
	qj := p.Column(3, 4)
	assert.Equal(t, []float64{1, 2, -1, -2}, qi, "first column survives the second fetch")
	assert.Equal(t, []float64{-2, -4, 2, 4}, qj)

	p.Swap(0, 3)
	assert.Equal(t, []float64{4, 4, 1, 1}, p.Diagonal())
	assert.Equal(t, []float64{4, -4, 2, -2}, p.Column(0, 4))
	assert.Equal(t, []float64{4, -4}, p.Column(0, 2))
}

func TestProviderCachedMatchesDense(t *testing.T) {
	x := [][]float64{{0, 1}, {1, 1}, {2, 0}, {3, 3}, {1, -1}}
	fn := Polynomial[float64]{Gamma: 1, Coef0: 1, Degree: 2}
	g, err := NewGram(x, fn, 2)
	require.NoError(t, err)
	lz, err := NewLazy(x, fn, 2)
	require.NoError(t, err)

	index := []int{0, 1, 2, 3, 4}
	sign := []int8{1, -1, 1, -1, 1}
	dense, err := NewProvider[float64](g, index, sign, 1)
	require.NoError(t, err)
	lazy, err := NewProvider[float64](lz, index, sign, 0)
	require.NoError(t, err)

	for _, i := range []int{0, 3, 1, 4, 0, 2} {
		assert.Equal(t, dense.Column(i, 5), lazy.Column(i, 5))
	}
	assert.Equal(t, int64(6), lazy.Stats().Hits+lazy.Stats().Misses)
	assert.Positive(t, lazy.Stats().Evictions)
	assert.Equal(t, CacheStats{}, dense.Stats())
}

func TestProviderRejectsBadIndex(t *testing.T) {
	g, err := NewGram([][]float64{{1}}, Linear[float64]{}, 1)
	require.NoError(t, err)
	_, err = NewProvider[float64](g, []int{0, 1}, []int8{1, 1}, 1)
	assert.Error(t, err)
	_, err = NewProvider[float64](g, []int{0}, []int8{1, 1}, 1)
	assert.Error(t, err)
}
