package kernel

import (
	"math"

	"github.com/YuminosukeSato/scigo-svm/core/parallel"
	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
)

// columnParallelThreshold is the sample count above which a lazily computed
// column is split across workers.
const columnParallelThreshold = 4096

// Source yields kernel values between training samples.
type Source[F Float] interface {
	// Len is the number of samples.
	Len() int
	// Column writes K(i, k) into dst[k] for every k in [0, Len()).
	Column(i int, dst []F)
	// Diagonal returns K(i, i).
	Diagonal(i int) F
}

// Gram is a dense, fully materialised kernel matrix.
type Gram[F Float] struct {
	n    int
	data []F
}

// NewGram evaluates fn over every pair of rows of x using nJobs workers
// (<= 0 means all CPUs). The matrix is symmetric so only the upper triangle
// is evaluated. Row i of the triangle has n-i entries, so rows are handed
// out in pairs (p, n-1-p) of n+1 entries each to keep the workers even.
func NewGram[F Float](x [][]F, fn Function[F], nJobs int) (*Gram[F], error) {
	n := len(x)
	if n == 0 {
		return nil, errors.ErrEmptyData
	}
	if err := checkRows(x); err != nil {
		return nil, err
	}
	g := &Gram[F]{n: n, data: make([]F, n*n)}
	upper := func(i int) {
		for j := i; j < n; j++ {
			g.data[i*n+j] = fn.Eval(x[i], x[j])
		}
	}
	parallel.Parallelize((n+1)/2, nJobs, func(start, end int) {
		for p := start; p < end; p++ {
			upper(p)
			if q := n - 1 - p; q != p {
				upper(q)
			}
		}
	})
	// mirror after all workers are done so no row is read while being written
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			g.data[i*n+j] = g.data[j*n+i]
		}
	}
	return g, nil
}

// NewGramFromMatrix wraps an n x n row-major kernel matrix supplied by the caller.
func NewGramFromMatrix[F Float](data []F, n int) (*Gram[F], error) {
	if n == 0 {
		return nil, errors.ErrEmptyData
	}
	if len(data) != n*n {
		return nil, errors.NewDimensionError("kernel.NewGramFromMatrix", n*n, len(data), 0)
	}
	for i := 0; i < n; i++ {
		if err := checkRow("precomputed_kernel", data[i*n:(i+1)*n], i); err != nil {
			return nil, err
		}
	}
	return &Gram[F]{n: n, data: data}, nil
}

func (g *Gram[F]) Len() int { return g.n }

func (g *Gram[F]) Column(i int, dst []F) { copy(dst, g.View(i)) }

func (g *Gram[F]) Diagonal(i int) F { return g.data[i*g.n+i] }

// View returns row i without copying. Callers must not modify it.
func (g *Gram[F]) View(i int) []F { return g.data[i*g.n : (i+1)*g.n] }

// At returns K(i, j).
func (g *Gram[F]) At(i, j int) F { return g.data[i*g.n+j] }

// Lazy evaluates kernel columns on demand from the training rows.
type Lazy[F Float] struct {
	x     [][]F
	fn    Function[F]
	nJobs int
}

// NewLazy returns a Source computing columns from x on request. Pair it with
// a Cache to bound memory.
func NewLazy[F Float](x [][]F, fn Function[F], nJobs int) (*Lazy[F], error) {
	if len(x) == 0 {
		return nil, errors.ErrEmptyData
	}
	if err := checkRows(x); err != nil {
		return nil, err
	}
	return &Lazy[F]{x: x, fn: fn, nJobs: nJobs}, nil
}

func (l *Lazy[F]) Len() int { return len(l.x) }

func (l *Lazy[F]) Column(i int, dst []F) {
	xi := l.x[i]
	parallel.ParallelizeWithThreshold(len(l.x), columnParallelThreshold, l.nJobs, func(start, end int) {
		for k := start; k < end; k++ {
			dst[k] = l.fn.Eval(xi, l.x[k])
		}
	})
}

func (l *Lazy[F]) Diagonal(i int) F { return l.fn.Eval(l.x[i], l.x[i]) }

// CheckFinite reports the first row of x holding NaN or Inf.
func CheckFinite[F Float](x [][]F) error {
	for i, row := range x {
		if err := checkRow("input_check", row, i); err != nil {
			return err
		}
	}
	return nil
}

func checkRows[F Float](x [][]F) error {
	d := len(x[0])
	for i, row := range x {
		if len(row) != d {
			return errors.NewDimensionError("kernel.Source", d, len(row), 1)
		}
		if err := checkRow("input_check", row, i); err != nil {
			return err
		}
	}
	return nil
}

func checkRow[F Float](op string, row []F, index int) error {
	for _, v := range row {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			vals := make([]float64, len(row))
			for k := range row {
				vals[k] = float64(row[k])
			}
			return errors.NewNumericalInstabilityError(op, vals, index)
		}
	}
	return nil
}
