package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
)

// SaveWeights はModelWeightsをgob形式でファイルに保存する
//
// 使用例:
//
//	w, err := svr.ExportWeights()
//	...
//	err = model.SaveWeights(w, "svr.gob")
func SaveWeights(weights *ModelWeights, filename string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "failed to close file")
		}
	}()
	return SaveWeightsToWriter(weights, file)
}

// LoadWeights はファイルからModelWeightsを読み込み、検証する
func LoadWeights(filename string) (*ModelWeights, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer file.Close()
	return LoadWeightsFromReader(file)
}

// SaveWeightsToWriter はModelWeightsをio.Writerに保存する
func SaveWeightsToWriter(weights *ModelWeights, w io.Writer) error {
	if weights == nil {
		return errors.NewValueError("SaveWeights", "weights cannot be nil")
	}
	if err := gob.NewEncoder(w).Encode(weights); err != nil {
		return errors.Wrap(err, "failed to encode weights")
	}
	return nil
}

// LoadWeightsFromReader はio.ReaderからModelWeightsを読み込む
func LoadWeightsFromReader(r io.Reader) (*ModelWeights, error) {
	var weights ModelWeights
	if err := gob.NewDecoder(r).Decode(&weights); err != nil {
		return nil, errors.Wrap(err, "failed to decode weights")
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &weights, nil
}
