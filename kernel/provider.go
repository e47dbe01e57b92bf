package kernel

import (
	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
)

// Provider serves the signed kernel columns Q[i][k] = s_i * s_k * K(index[i], index[k])
// of a training problem whose entries may repeat samples (regression doubles
// every sample with opposite signs).
//
// Entries are addressed by their current position. The solver reorders
// positions with Swap while shrinking; the underlying cache is keyed by
// sample and is unaffected.
type Provider[F Float] struct {
	src   Source[F]
	gram  *Gram[F]
	cache *Cache[F]

	index []int
	sign  []int8
	diag  []F

	buf  [2][]F
	turn int
}

// NewProvider builds a provider over src. index[k] names the sample behind
// entry k and sign[k] is +1 or -1. A dense Gram is read directly; any other
// Source is fronted by a Cache of cacheSizeMB.
func NewProvider[F Float](src Source[F], index []int, sign []int8, cacheSizeMB float64) (*Provider[F], error) {
	if len(index) != len(sign) {
		return nil, errors.NewDimensionError("kernel.NewProvider", len(index), len(sign), 0)
	}
	n := src.Len()
	for _, ix := range index {
		if ix < 0 || ix >= n {
			return nil, errors.NewValueError("kernel.NewProvider", "entry refers to a sample outside the kernel source")
		}
	}
	l := len(index)
	p := &Provider[F]{
		src:   src,
		index: append([]int(nil), index...),
		sign:  append([]int8(nil), sign...),
		diag:  make([]F, l),
		buf:   [2][]F{make([]F, l), make([]F, l)},
	}
	if g, ok := src.(*Gram[F]); ok {
		p.gram = g
	} else {
		p.cache = NewCache(src, cacheSizeMB)
	}
	for k := 0; k < l; k++ {
		p.diag[k] = src.Diagonal(p.index[k])
	}
	return p, nil
}

// Len is the number of entries.
func (p *Provider[F]) Len() int { return len(p.index) }

// Column returns Q[i][k] for k in [0, length). The returned slice is one of
// two alternating scratch buffers, so the two most recent columns remain
// valid at the same time.
func (p *Provider[F]) Column(i, length int) []F {
	var raw []F
	if p.gram != nil {
		raw = p.gram.View(p.index[i])
	} else {
		raw = p.cache.Get(p.index[i])
	}

	out := p.buf[p.turn][:length]
	p.turn ^= 1

	si := p.sign[i]
	for k := 0; k < length; k++ {
		v := raw[p.index[k]]
		if si != p.sign[k] {
			v = -v
		}
		out[k] = v
	}
	return out
}

// Diagonal returns Q[k][k] for every entry in current position order.
func (p *Provider[F]) Diagonal() []F { return p.diag }

// Swap exchanges the entries at positions i and j.
func (p *Provider[F]) Swap(i, j int) {
	p.index[i], p.index[j] = p.index[j], p.index[i]
	p.sign[i], p.sign[j] = p.sign[j], p.sign[i]
	p.diag[i], p.diag[j] = p.diag[j], p.diag[i]
}

// Stats reports cache traffic; a dense Gram reports zero values.
func (p *Provider[F]) Stats() CacheStats {
	if p.cache == nil {
		return CacheStats{}
	}
	return p.cache.Stats()
}
