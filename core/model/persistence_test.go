package model

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestSKLearnModelRoundTrip(t *testing.T) {
	envelope, err := NewElasticNetEnvelope(&SKLearnElasticNetParams{
		Coefficients: []float64{0.1, -0.2, 0.3},
		Intercept:    5.6,
		NFeatures:    3,
		Alpha:        0.5,
		L1Ratio:      0.5,
		NIter:        12,
	})
	if err != nil {
		t.Fatalf("NewElasticNetEnvelope() error = %v", err)
	}

	var buf bytes.Buffer
	if err := SaveSKLearnModel(envelope, &buf); err != nil {
		t.Fatalf("SaveSKLearnModel() error = %v", err)
	}

	loaded, err := LoadSKLearnModelFromReader(&buf)
	if err != nil {
		t.Fatalf("LoadSKLearnModelFromReader() error = %v", err)
	}
	if loaded.ModelSpec.Name != "ElasticNet" {
		t.Errorf("model name = %q, want ElasticNet", loaded.ModelSpec.Name)
	}

	params, err := LoadElasticNetParams(loaded)
	if err != nil {
		t.Fatalf("LoadElasticNetParams() error = %v", err)
	}
	if params.Intercept != 5.6 || params.NIter != 12 {
		t.Errorf("params = %+v, round trip lost values", params)
	}
}

func TestLoadElasticNetParamsRejectsOtherModels(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{})
	m := &SKLearnModel{
		ModelSpec: SKLearnModelSpec{Name: "LinearRegression", FormatVersion: "1.0"},
		Params:    raw,
	}
	if _, err := LoadElasticNetParams(m); err == nil {
		t.Error("LoadElasticNetParams() expected error for foreign model type")
	}
}

func TestLoadElasticNetParamsRejectsInconsistentShape(t *testing.T) {
	raw, _ := json.Marshal(&SKLearnElasticNetParams{
		Coefficients: []float64{1, 2},
		NFeatures:    3,
	})
	m := &SKLearnModel{
		ModelSpec: SKLearnModelSpec{Name: "ElasticNet", FormatVersion: "1.0"},
		Params:    raw,
	}
	if _, err := LoadElasticNetParams(m); err == nil {
		t.Error("LoadElasticNetParams() expected error for coefficient/n_features mismatch")
	}
}

func TestBaseEstimatorState(t *testing.T) {
	var e BaseEstimator
	if e.IsFitted() {
		t.Error("new estimator must not be fitted")
	}
	e.SetFitted()
	if !e.IsFitted() {
		t.Error("SetFitted() did not mark estimator as fitted")
	}
	e.Reset()
	if e.IsFitted() {
		t.Error("Reset() did not clear fitted state")
	}
}
