// Package linear は正則化付き線形回帰モデルを提供する
package linear

import (
	"io"
	"math"
	"math/rand"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/winetrack/core"
	"github.com/YuminosukeSato/winetrack/core/model"
	"github.com/YuminosukeSato/winetrack/core/parallel"
	"github.com/YuminosukeSato/winetrack/pkg/errors"
)

var _ core.Model = (*ElasticNet)(nil)

// デフォルトのハイパーパラメータ（scikit-learnのElasticNetに準拠）
const (
	defaultMaxIter     = 1000
	defaultTol         = 1e-4
	defaultRandomState = 42

	// SelectionCyclic は座標を順番に更新する
	SelectionCyclic = "cyclic"
	// SelectionRandom はスイープごとにシャッフルした順で座標を更新する
	SelectionRandom = "random"
)

// ElasticNet はL1/L2混合正則化付き線形回帰モデル
//
// 目的関数:
//
//	(1/2n) * ||y - Xw - b||² + alpha*l1Ratio*||w||₁ + (alpha*(1-l1Ratio)/2)*||w||²
//
// alphaは正則化全体の強さ、l1RatioはL1（スパース化）とL2（縮小）の混合比を制御する。
// l1Ratio=0は純粋なRidge回帰、l1Ratio=1は純粋なLasso回帰に一致する。
// 学習は座標降下法で行い、固定されたオプションに対して決定的である。
type ElasticNet struct {
	model.BaseEstimator

	// Alpha は正則化の強さ（非負）
	Alpha float64
	// L1Ratio はL1ペナルティの比率（[0, 1]）
	L1Ratio float64

	// Weights は学習された係数
	Weights *mat.VecDense
	// Intercept は学習された切片
	Intercept float64
	// NFeatures は特徴量の数
	NFeatures int
	// NIter は収束までに要したスイープ数
	NIter int

	maxIter      int
	tol          float64
	fitIntercept bool
	selection    string
	randomState  int64
}

// NewElasticNet は新しいElasticNetモデルを作成する
//
// パラメータ:
//   - alpha: 正則化の強さ（非負）
//   - l1Ratio: L1ペナルティの比率（[0, 1]）
//
// 使用例:
//
//	enet := linear.NewElasticNet(0.5, 0.5)
//	err := enet.Fit(X, y)
func NewElasticNet(alpha, l1Ratio float64, opts ...Option) *ElasticNet {
	enet := &ElasticNet{
		Alpha:        alpha,
		L1Ratio:      l1Ratio,
		maxIter:      defaultMaxIter,
		tol:          defaultTol,
		fitIntercept: true,
		selection:    SelectionCyclic,
		randomState:  defaultRandomState,
	}
	for _, opt := range opts {
		opt(enet)
	}
	return enet
}

// Fit は座標降下法でモデルを訓練データに適合させる
//
// 収束判定は1スイープでの係数の最大変化量がtolを下回ったかどうかで行う。
// maxIterスイープ以内に収束しなかった場合はConvergenceWarningを発行して
// その時点の係数を採用する。
func (e *ElasticNet) Fit(X, y mat.Matrix) error {
	// 入力の検証
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewModelError("ElasticNet.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError("ElasticNet.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("ElasticNet.Fit", "y must be a column vector")
	}
	if e.Alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", e.Alpha)
	}
	if e.L1Ratio < 0 || e.L1Ratio > 1 {
		return errors.NewValidationError("l1_ratio", "must be in [0, 1]", e.L1Ratio)
	}
	if e.selection != SelectionCyclic && e.selection != SelectionRandom {
		return errors.NewValidationError("selection", "must be cyclic or random", e.selection)
	}

	e.NFeatures = c
	n := float64(r)

	// 切片を求めるために特徴量と目的変数を中心化する
	xMean := make([]float64, c)
	var yMean float64
	if e.fitIntercept {
		for j := 0; j < c; j++ {
			var sum float64
			for i := 0; i < r; i++ {
				sum += X.At(i, j)
			}
			xMean[j] = sum / n
		}
		for i := 0; i < r; i++ {
			yMean += y.At(i, 0)
		}
		yMean /= n
	}

	xc := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			xc.Set(i, j, X.At(i, j)-xMean[j])
		}
	}

	// 残差ベクトル（初期係数0なので中心化済みのyと一致する）
	resid := make([]float64, r)
	for i := 0; i < r; i++ {
		resid[i] = y.At(i, 0) - yMean
	}

	// 各特徴量の二乗和を前計算する
	colSqSum := make([]float64, c)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			v := xc.At(i, j)
			colSqSum[j] += v * v
		}
	}

	weights := make([]float64, c)
	l1Penalty := e.Alpha * e.L1Ratio
	l2Penalty := e.Alpha * (1 - e.L1Ratio)

	var rng *rand.Rand
	if e.selection == SelectionRandom {
		rng = rand.New(rand.NewSource(e.randomState))
	}

	order := make([]int, c)
	for j := range order {
		order[j] = j
	}

	converged := false
	iter := 0
	for iter = 1; iter <= e.maxIter; iter++ {
		if rng != nil {
			rng.Shuffle(c, func(a, b int) {
				order[a], order[b] = order[b], order[a]
			})
		}

		var maxChange float64
		for _, j := range order {
			if colSqSum[j] == 0 {
				// 分散のない特徴量の係数は正則化により常に0
				weights[j] = 0
				continue
			}

			wOld := weights[j]

			// rho = (1/n) * Σ x_ij * (残差 + 自分自身の寄与)
			var rho float64
			for i := 0; i < r; i++ {
				rho += xc.At(i, j) * (resid[i] + xc.At(i, j)*wOld)
			}
			rho /= n

			wNew := softThreshold(rho, l1Penalty) / (colSqSum[j]/n + l2Penalty)
			if wNew != wOld {
				delta := wNew - wOld
				for i := 0; i < r; i++ {
					resid[i] -= xc.At(i, j) * delta
				}
				weights[j] = wNew
			}

			if change := math.Abs(wNew - wOld); change > maxChange {
				maxChange = change
			}
		}

		if maxChange < e.tol {
			converged = true
			break
		}
	}

	if converged {
		e.NIter = iter
	} else {
		e.NIter = e.maxIter
		errors.Warn(errors.NewConvergenceWarning("ElasticNet", e.maxIter, ""))
	}

	e.Weights = mat.NewVecDense(c, weights)
	if e.fitIntercept {
		e.Intercept = yMean
		for j := 0; j < c; j++ {
			e.Intercept -= xMean[j] * weights[j]
		}
	} else {
		e.Intercept = 0
	}

	e.SetFitted()
	return nil
}

// softThreshold はL1ペナルティの軟判定しきい値作用素
func softThreshold(z, gamma float64) float64 {
	switch {
	case z > gamma:
		return z - gamma
	case z < -gamma:
		return z + gamma
	default:
		return 0
	}
}

// Predict は入力データに対する予測を行う
func (e *ElasticNet) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("ElasticNet", "Predict")
	}

	r, c := X.Dims()
	if c != e.NFeatures {
		return nil, errors.NewDimensionError("ElasticNet.Predict", e.NFeatures, c, 1)
	}

	// 並列処理の閾値（この値以下の行数では逐次処理を使用）
	const parallelThreshold = 1000

	predictions := mat.NewDense(r, 1, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			pred := e.Intercept
			for j := 0; j < c; j++ {
				pred += X.At(i, j) * e.Weights.AtVec(j)
			}
			predictions.Set(i, 0, pred)
		}
	})

	return predictions, nil
}

// PredictVec は予測結果を列ベクトルとして返す
func (e *ElasticNet) PredictVec(X mat.Matrix) (*mat.VecDense, error) {
	pred, err := e.Predict(X)
	if err != nil {
		return nil, err
	}
	r, _ := pred.Dims()
	vec := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		vec.SetVec(i, pred.At(i, 0))
	}
	return vec, nil
}

// GetWeights は学習された係数を返す
func (e *ElasticNet) GetWeights() []float64 {
	if e.Weights == nil {
		return nil
	}
	weights := make([]float64, e.Weights.Len())
	for i := 0; i < e.Weights.Len(); i++ {
		weights[i] = e.Weights.AtVec(i)
	}
	return weights
}

// GetIntercept は学習された切片を返す
func (e *ElasticNet) GetIntercept() float64 {
	if !e.IsFitted() {
		return 0
	}
	return e.Intercept
}

// Score はモデルの決定係数（R²）を計算する
func (e *ElasticNet) Score(X, y mat.Matrix) (float64, error) {
	if !e.IsFitted() {
		return 0, errors.NewNotFittedError("ElasticNet", "Score")
	}

	yPred, err := e.Predict(X)
	if err != nil {
		return 0, err
	}

	r, _ := y.Dims()

	var yMean float64
	for i := 0; i < r; i++ {
		yMean += y.At(i, 0)
	}
	yMean /= float64(r)

	var tss, rss float64
	for i := 0; i < r; i++ {
		yTrue := y.At(i, 0)
		yPredVal := yPred.At(i, 0)

		tss += (yTrue - yMean) * (yTrue - yMean)
		rss += (yTrue - yPredVal) * (yTrue - yPredVal)
	}

	if tss == 0 {
		return 0, errors.Newf("total sum of squares is zero")
	}

	return 1 - rss/tss, nil
}

// ExportToSKLearn はモデルをscikit-learn互換のJSON形式でエクスポートする
func (e *ElasticNet) ExportToSKLearn(filename string) error {
	if !e.IsFitted() {
		return errors.NewNotFittedError("ElasticNet", "ExportToSKLearn")
	}

	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer file.Close()

	return e.ExportToSKLearnWriter(file)
}

// ExportToSKLearnWriter はモデルをWriterにscikit-learn互換形式でエクスポートする
func (e *ElasticNet) ExportToSKLearnWriter(w io.Writer) error {
	if !e.IsFitted() {
		return errors.NewNotFittedError("ElasticNet", "ExportToSKLearnWriter")
	}

	envelope, err := model.NewElasticNetEnvelope(&model.SKLearnElasticNetParams{
		Coefficients: e.GetWeights(),
		Intercept:    e.Intercept,
		NFeatures:    e.NFeatures,
		Alpha:        e.Alpha,
		L1Ratio:      e.L1Ratio,
		NIter:        e.NIter,
	})
	if err != nil {
		return err
	}
	return model.SaveSKLearnModel(envelope, w)
}

// LoadFromSKLearnReader はReaderからscikit-learn互換形式のモデルを読み込む
func (e *ElasticNet) LoadFromSKLearnReader(r io.Reader) error {
	envelope, err := model.LoadSKLearnModelFromReader(r)
	if err != nil {
		return errors.Wrap(err, "failed to load sklearn model")
	}

	params, err := model.LoadElasticNetParams(envelope)
	if err != nil {
		return errors.Wrap(err, "failed to load ElasticNet params")
	}

	e.Alpha = params.Alpha
	e.L1Ratio = params.L1Ratio
	e.NFeatures = params.NFeatures
	e.Intercept = params.Intercept
	e.NIter = params.NIter
	e.Weights = mat.NewVecDense(len(params.Coefficients), append([]float64(nil), params.Coefficients...))

	e.SetFitted()
	return nil
}
