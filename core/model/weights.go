package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/YuminosukeSato/scigo-svm/kernel"
	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
)

// ModelWeights is the portable form of a fitted kernel model.
//
// The decision function it describes is
//
//	f(x) = sum_k DualCoef[k] * K(SupportVectors[k], x) + Intercept
//
// With a precomputed kernel SupportVectors is empty and SupportIndices
// address the columns of the kernel row passed at prediction time.
type ModelWeights struct {
	// ModelType はモデルの種類（SVR, SVC）
	ModelType string `json:"model_type"`

	// Version はモデルのバージョン（互換性チェック用）
	Version string `json:"version"`

	Kernel kernel.Spec `json:"kernel"`

	SupportVectors [][]float64 `json:"support_vectors,omitempty"`
	SupportIndices []int       `json:"support_indices"`
	DualCoef       []float64   `json:"dual_coef"`

	// Intercept は切片 (-rho)
	Intercept float64 `json:"intercept"`

	// Classes は分類器のラベル（負例, 正例の順）
	Classes []float64 `json:"classes,omitempty"`

	// ProbA, ProbB are the Platt sigmoid parameters when probability estimates are enabled.
	ProbA float64 `json:"prob_a,omitempty"`
	ProbB float64 `json:"prob_b,omitempty"`

	// Hyperparameters はモデルのハイパーパラメータ
	Hyperparameters map[string]interface{} `json:"hyperparameters"`

	// Metadata は追加のメタデータ（学習時の統計等）
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	IsFitted bool   `json:"is_fitted"`
	Checksum string `json:"checksum,omitempty"`
}

// ToJSON はModelWeightsをJSON形式にシリアライズ
func (mw *ModelWeights) ToJSON() ([]byte, error) {
	return json.MarshalIndent(mw, "", "  ")
}

// FromJSON はJSON形式からModelWeightsをデシリアライズ
func (mw *ModelWeights) FromJSON(data []byte) error {
	return json.Unmarshal(data, mw)
}

// ComputeChecksum hashes the parts that define the decision function.
func (mw *ModelWeights) ComputeChecksum() string {
	data, _ := json.Marshal(struct {
		K  kernel.Spec
		SV [][]float64
		SI []int
		C  []float64
		B  float64
	}{mw.Kernel, mw.SupportVectors, mw.SupportIndices, mw.DualCoef, mw.Intercept})
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Validate はModelWeightsの妥当性を検証
func (mw *ModelWeights) Validate() error {
	if mw.ModelType == "" {
		return errors.NewValidationError("model_type", "is required", mw.ModelType)
	}
	if mw.Version == "" {
		return errors.NewValidationError("version", "is required", mw.Version)
	}
	if !mw.IsFitted {
		return errors.NewValueError("ModelWeights.Validate", "weights of an unfitted model cannot be imported")
	}
	if err := mw.Kernel.Validate(); err != nil {
		return err
	}
	if len(mw.SupportIndices) != len(mw.DualCoef) {
		return errors.NewDimensionError("ModelWeights.Validate", len(mw.DualCoef), len(mw.SupportIndices), 0)
	}
	if mw.Kernel.Name != kernel.NamePrecomputed && len(mw.SupportVectors) != len(mw.DualCoef) {
		return errors.NewDimensionError("ModelWeights.Validate", len(mw.DualCoef), len(mw.SupportVectors), 0)
	}
	if mw.Checksum != "" && mw.Checksum != mw.ComputeChecksum() {
		return errors.NewValueError("ModelWeights.Validate", "checksum mismatch: weights may be corrupted")
	}
	return nil
}

// Clone はModelWeightsのディープコピーを作成
func (mw *ModelWeights) Clone() *ModelWeights {
	clone := *mw
	clone.SupportVectors = make([][]float64, len(mw.SupportVectors))
	for i, sv := range mw.SupportVectors {
		clone.SupportVectors[i] = append([]float64(nil), sv...)
	}
	clone.SupportIndices = append([]int(nil), mw.SupportIndices...)
	clone.DualCoef = append([]float64(nil), mw.DualCoef...)
	clone.Classes = append([]float64(nil), mw.Classes...)
	clone.Hyperparameters = make(map[string]interface{}, len(mw.Hyperparameters))
	for k, v := range mw.Hyperparameters {
		clone.Hyperparameters[k] = v
	}
	clone.Metadata = make(map[string]interface{}, len(mw.Metadata))
	for k, v := range mw.Metadata {
		clone.Metadata[k] = v
	}
	return &clone
}
