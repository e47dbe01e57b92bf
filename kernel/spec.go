package kernel

import (
	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
)

// Kernel names accepted by FromSpec and by the estimators' WithKernel option.
const (
	NameLinear      = "linear"
	NamePolynomial  = "poly"
	NameGaussian    = "rbf"
	NameSigmoid     = "sigmoid"
	NamePrecomputed = "precomputed"
)

// Spec is the serialisable description of a kernel function.
type Spec struct {
	Name   string  `json:"name"`
	Gamma  float64 `json:"gamma,omitempty"`
	Coef0  float64 `json:"coef0,omitempty"`
	Degree int     `json:"degree,omitempty"`
}

// Validate checks the parameters required by Name.
func (s Spec) Validate() error {
	switch s.Name {
	case NameLinear, NamePrecomputed:
		return nil
	case NamePolynomial:
		if s.Degree < 1 {
			return errors.NewValidationError("degree", "must be >= 1", s.Degree)
		}
		if s.Gamma <= 0 {
			return errors.NewValidationError("gamma", "must be positive", s.Gamma)
		}
		return nil
	case NameGaussian, NameSigmoid:
		if s.Gamma <= 0 {
			return errors.NewValidationError("gamma", "must be positive", s.Gamma)
		}
		return nil
	default:
		return errors.NewValidationError("kernel", "must be one of linear, poly, rbf, sigmoid, precomputed", s.Name)
	}
}

// FromSpec builds the kernel function described by s.
// A precomputed spec has no function and is rejected.
func FromSpec[F Float](s Spec) (Function[F], error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	switch s.Name {
	case NameLinear:
		return Linear[F]{}, nil
	case NamePolynomial:
		return Polynomial[F]{Gamma: F(s.Gamma), Coef0: F(s.Coef0), Degree: s.Degree}, nil
	case NameGaussian:
		return Gaussian[F]{Gamma: F(s.Gamma)}, nil
	case NameSigmoid:
		return Sigmoid[F]{Gamma: F(s.Gamma), Coef0: F(s.Coef0)}, nil
	default:
		return nil, errors.NewValueError("kernel.FromSpec", "a precomputed kernel has no function form")
	}
}
