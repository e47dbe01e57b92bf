// Package preprocessing scales features before kernel training. Kernel
// values of RBF and polynomial kernels depend on feature magnitudes, so
// features on different scales should be brought to a common range first.
package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/scigo-svm/core/model"
	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
)

// constantScale is the spread below which a feature is treated as constant.
const constantScale = 1e-8

// StandardScaler はデータを平均0、標準偏差1に変換する
type StandardScaler struct {
	state *model.StateManager

	// Mean は各特徴量の平均値
	Mean []float64
	// Scale は各特徴量の標準偏差（定数列は1）
	Scale []float64

	WithMean bool
	WithStd  bool
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	XScaled, err := scaler.FitTransform(X)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		state:    model.NewStateManager("StandardScaler"),
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// Fit は訓練データから平均と標準偏差を計算する
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.ErrEmptyData
	}
	if err := errors.CheckMatrix("StandardScaler.Fit", X, r, c); err != nil {
		return err
	}

	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		mean, variance := stat.PopMeanVariance(col, nil)
		s.Scale[j] = 1
		if s.WithMean {
			s.Mean[j] = mean
		}
		if std := math.Sqrt(variance); s.WithStd && std >= constantScale {
			s.Scale[j] = std
		}
	}
	s.state.SetFitted(c, r)
	return nil
}

// Transform は学習済みの統計量でデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	_, c := X.Dims()
	if err := s.state.CheckFeatures("Transform", c); err != nil {
		return nil, err
	}
	return apply(X, func(j int, v float64) float64 { return (v - s.Mean[j]) / s.Scale[j] }), nil
}

// FitTransform はFitとTransformを続けて行う
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform は標準化を元に戻す
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	_, c := X.Dims()
	if err := s.state.CheckFeatures("InverseTransform", c); err != nil {
		return nil, err
	}
	return apply(X, func(j int, v float64) float64 { return v*s.Scale[j] + s.Mean[j] }), nil
}

func (s *StandardScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{"with_mean": s.WithMean, "with_std": s.WithStd}
}

func (s *StandardScaler) String() string {
	if !s.state.IsFitted() {
		return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
	}
	f, _ := s.state.GetDimensions()
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, n_features=%d)", s.WithMean, s.WithStd, f)
}

// MinMaxScaler は各特徴量を指定範囲に線形変換する。
// デフォルト範囲は[-1, 1]（libsvmのsvm-scaleと同じ）。
type MinMaxScaler struct {
	state *model.StateManager

	FeatureRange [2]float64
	DataMin      []float64
	DataMax      []float64
	// scale and offset map x to x*scale + offset
	scale  []float64
	offset []float64
}

// NewMinMaxScaler は範囲[lo, hi]のMinMaxScalerを作成する
func NewMinMaxScaler(featureRange [2]float64) *MinMaxScaler {
	return &MinMaxScaler{state: model.NewStateManager("MinMaxScaler"), FeatureRange: featureRange}
}

// NewMinMaxScalerDefault は範囲[-1, 1]のMinMaxScalerを作成する
func NewMinMaxScalerDefault() *MinMaxScaler {
	return NewMinMaxScaler([2]float64{-1, 1})
}

// Fit は各特徴量の最小値と最大値を記録する
func (m *MinMaxScaler) Fit(X mat.Matrix) error {
	lo, hi := m.FeatureRange[0], m.FeatureRange[1]
	if !(lo < hi) {
		return errors.NewValidationError("feature_range", "minimum must be smaller than maximum", m.FeatureRange)
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.ErrEmptyData
	}
	if err := errors.CheckMatrix("MinMaxScaler.Fit", X, r, c); err != nil {
		return err
	}

	m.DataMin = make([]float64, c)
	m.DataMax = make([]float64, c)
	m.scale = make([]float64, c)
	m.offset = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		m.DataMin[j], m.DataMax[j] = floats.Min(col), floats.Max(col)
		span := m.DataMax[j] - m.DataMin[j]
		if span < constantScale {
			span = 1
		}
		m.scale[j] = (hi - lo) / span
		m.offset[j] = lo - m.DataMin[j]*m.scale[j]
	}
	m.state.SetFitted(c, r)
	return nil
}

// Transform は学習済みの範囲でデータを変換する。範囲外の値はクリップしない。
func (m *MinMaxScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	_, c := X.Dims()
	if err := m.state.CheckFeatures("Transform", c); err != nil {
		return nil, err
	}
	return apply(X, func(j int, v float64) float64 { return v*m.scale[j] + m.offset[j] }), nil
}

func (m *MinMaxScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

func (m *MinMaxScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	_, c := X.Dims()
	if err := m.state.CheckFeatures("InverseTransform", c); err != nil {
		return nil, err
	}
	return apply(X, func(j int, v float64) float64 { return (v - m.offset[j]) / m.scale[j] }), nil
}

func (m *MinMaxScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{"feature_range": m.FeatureRange}
}

func (m *MinMaxScaler) String() string {
	return fmt.Sprintf("MinMaxScaler(feature_range=[%g, %g])", m.FeatureRange[0], m.FeatureRange[1])
}

func apply(X mat.Matrix, f func(j int, v float64) float64) *mat.Dense {
	r, c := X.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, _ float64) float64 { return f(j, X.At(i, j)) }, out)
	return out
}
