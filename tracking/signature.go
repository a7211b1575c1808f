package tracking

import (
	"encoding/json"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/winetrack/dataset"
	"github.com/YuminosukeSato/winetrack/pkg/errors"
)

// ColSpec describes one column of a model's input or output schema.
type ColSpec struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type"`
}

// Signature records the schema a model expects at serving time: the names and
// types of its input columns and of the prediction it produces. It is logged
// next to the model artifact and passed to the registry on registration so
// that future inference requests can be validated.
type Signature struct {
	Inputs  []ColSpec `json:"inputs"`
	Outputs []ColSpec `json:"outputs"`
}

// InferSignature derives a Signature from the training features and the
// model's own predictions on them. Every numeric table column becomes a
// "double" input; the prediction vector becomes a single "double" output.
func InferSignature(features *dataset.Table, preds *mat.VecDense) (*Signature, error) {
	if features == nil || features.NumRows() == 0 {
		return nil, errors.NewValueError("InferSignature", "empty feature table")
	}
	if preds == nil || preds.Len() == 0 {
		return nil, errors.NewValueError("InferSignature", "empty predictions")
	}
	if preds.Len() != features.NumRows() {
		return nil, errors.NewDimensionError("InferSignature", features.NumRows(), preds.Len(), 0)
	}

	cols := features.Columns()
	inputs := make([]ColSpec, len(cols))
	for i, col := range cols {
		inputs[i] = ColSpec{Name: col, Type: "double"}
	}

	return &Signature{
		Inputs:  inputs,
		Outputs: []ColSpec{{Type: "double"}},
	}, nil
}

// JSON renders the signature as indented JSON for artifact storage.
func (s *Signature) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal signature")
	}
	return data, nil
}
