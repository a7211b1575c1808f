package model

import (
	"encoding/json"
	"io"

	"github.com/YuminosukeSato/winetrack/pkg/errors"
)

// SKLearnModelSpec はエクスポートされるモデルの種別とフォーマットバージョンを表す
type SKLearnModelSpec struct {
	Name          string `json:"name"`
	FormatVersion string `json:"format_version"`
}

// SKLearnModel はscikit-learn互換のJSONモデルエンベロープ
//
// モデル本体のパラメータはモデル種別ごとの構造体としてParamsに格納される。
// トラッキングストアへのモデルアーティファクト書き込みにもこの形式を使用する。
type SKLearnModel struct {
	ModelSpec SKLearnModelSpec `json:"model_spec"`
	Params    json.RawMessage  `json:"params"`
}

// SKLearnElasticNetParams はElasticNetモデルのシリアライズ形式
type SKLearnElasticNetParams struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	NFeatures    int       `json:"n_features"`
	Alpha        float64   `json:"alpha"`
	L1Ratio      float64   `json:"l1_ratio"`
	NIter        int       `json:"n_iter"`
}

// NewElasticNetEnvelope はElasticNetパラメータからモデルエンベロープを作成する
func NewElasticNetEnvelope(params *SKLearnElasticNetParams) (*SKLearnModel, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal ElasticNet params")
	}
	return &SKLearnModel{
		ModelSpec: SKLearnModelSpec{
			Name:          "ElasticNet",
			FormatVersion: "1.0",
		},
		Params: raw,
	}, nil
}

// SaveSKLearnModel はモデルエンベロープをWriterにJSON形式で書き込む
func SaveSKLearnModel(m *SKLearnModel, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(m); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadSKLearnModelFromReader はReaderからモデルエンベロープを読み込む
func LoadSKLearnModelFromReader(r io.Reader) (*SKLearnModel, error) {
	var m SKLearnModel
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, errors.Wrap(err, "failed to decode model")
	}
	if m.ModelSpec.Name == "" {
		return nil, errors.New("model_spec.name is empty")
	}
	return &m, nil
}

// LoadElasticNetParams はエンベロープからElasticNetのパラメータを取り出す
func LoadElasticNetParams(m *SKLearnModel) (*SKLearnElasticNetParams, error) {
	if m.ModelSpec.Name != "ElasticNet" {
		return nil, errors.Newf("unexpected model name: %s", m.ModelSpec.Name)
	}
	var params SKLearnElasticNetParams
	if err := json.Unmarshal(m.Params, &params); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal ElasticNet params")
	}
	if len(params.Coefficients) != params.NFeatures {
		return nil, errors.Newf("coefficient count %d does not match n_features %d",
			len(params.Coefficients), params.NFeatures)
	}
	return &params, nil
}
