// Package kernel provides kernel functions, Gram sources, an LRU column cache
// and the column provider consumed by the SMO solver.
//
// Everything is generic over Float so that the solver can run in float32 or
// float64. Kernel values are always evaluated through float64 math and
// converted back.
package kernel

import (
	"math"
)

// Float is the numeric kind a model is trained in.
type Float interface {
	~float32 | ~float64
}

// Function evaluates K(x, y) for two feature vectors of equal length.
type Function[F Float] interface {
	Eval(x, y []F) F
	// Spec describes the function so that it can be persisted and rebuilt.
	Spec() Spec
}

func dot[F Float](x, y []F) float64 {
	var s float64
	for i := range x {
		s += float64(x[i]) * float64(y[i])
	}
	return s
}

// Linear is K(x, y) = <x, y>.
type Linear[F Float] struct{}

func (Linear[F]) Eval(x, y []F) F { return F(dot(x, y)) }

func (Linear[F]) Spec() Spec { return Spec{Name: NameLinear} }

// Polynomial is K(x, y) = (Gamma*<x, y> + Coef0)^Degree.
type Polynomial[F Float] struct {
	Gamma  F
	Coef0  F
	Degree int
}

func (k Polynomial[F]) Eval(x, y []F) F {
	return F(powi(float64(k.Gamma)*dot(x, y)+float64(k.Coef0), k.Degree))
}

func (k Polynomial[F]) Spec() Spec {
	return Spec{Name: NamePolynomial, Gamma: float64(k.Gamma), Coef0: float64(k.Coef0), Degree: k.Degree}
}

// Gaussian is K(x, y) = exp(-Gamma*||x - y||^2).
type Gaussian[F Float] struct {
	Gamma F
}

func (k Gaussian[F]) Eval(x, y []F) F {
	var d float64
	for i := range x {
		diff := float64(x[i]) - float64(y[i])
		d += diff * diff
	}
	return F(math.Exp(-float64(k.Gamma) * d))
}

func (k Gaussian[F]) Spec() Spec { return Spec{Name: NameGaussian, Gamma: float64(k.Gamma)} }

// Sigmoid is K(x, y) = tanh(Gamma*<x, y> + Coef0).
type Sigmoid[F Float] struct {
	Gamma F
	Coef0 F
}

func (k Sigmoid[F]) Eval(x, y []F) F {
	return F(math.Tanh(float64(k.Gamma)*dot(x, y) + float64(k.Coef0)))
}

func (k Sigmoid[F]) Spec() Spec {
	return Spec{Name: NameSigmoid, Gamma: float64(k.Gamma), Coef0: float64(k.Coef0)}
}

// powi is exponentiation by squaring.
func powi(base float64, times int) float64 {
	result := 1.0
	for t := times; t > 0; t /= 2 {
		if t%2 == 1 {
			result *= base
		}
		base *= base
	}
	return result
}
