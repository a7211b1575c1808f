// Package dataset は数値テーブルの取得・分割・特徴量/目的変数の分離を提供する
package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/winetrack/pkg/errors"
)

// Table はカラム名付きの不変な数値テーブル
//
// 一度ロードした後は変更されない。分割や分離は常に新しいTableを返す。
type Table struct {
	columns []string
	data    *mat.Dense
}

// New は検証済みのTableを作成する
func New(columns []string, data *mat.Dense) (*Table, error) {
	r, c := data.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewModelError("dataset.New", "empty data", errors.ErrEmptyData)
	}
	if len(columns) != c {
		return nil, errors.NewDimensionError("dataset.New", len(columns), c, 1)
	}
	return &Table{columns: append([]string(nil), columns...), data: data}, nil
}

// Load はセミコロン区切りのCSV（ヘッダー行付き、全セル数値）からTableを読み込む
func Load(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "dataset.Load: failed to parse CSV")
	}
	if len(records) < 2 {
		return nil, errors.NewModelError("dataset.Load", "no data rows", errors.ErrEmptyData)
	}

	header := records[0]
	columns := make([]string, len(header))
	for i, h := range header {
		// ヘッダーの引用符と余分な空白を除去する
		columns[i] = strings.TrimSpace(strings.Trim(h, `"`))
	}

	rows := records[1:]
	data := mat.NewDense(len(rows), len(columns), nil)
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, errors.NewDimensionError("dataset.Load", len(columns), len(row), 1)
		}
		for j, cell := range row {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "dataset.Load: row %d column %q is not numeric", i+1, columns[j])
			}
			data.Set(i, j, v)
		}
	}

	return New(columns, data)
}

// Columns はカラム名のコピーを返す
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// NumRows は行数を返す
func (t *Table) NumRows() int {
	r, _ := t.data.Dims()
	return r
}

// NumColumns はカラム数を返す
func (t *Table) NumColumns() int {
	_, c := t.data.Dims()
	return c
}

// Matrix はテーブルの中身を行列として返す
func (t *Table) Matrix() mat.Matrix {
	return t.data
}

// Split はテーブルを訓練/テストの2つの互いに素な部分集合に分割する
//
// シャッフルはseedで決定的に行われる。テスト行数は ceil(testSize * 行数)。
// 訓練とテストの行集合は互いに素で、合併は元のテーブル全体と一致する。
func (t *Table) Split(testSize float64, seed int64) (train, test *Table, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, errors.NewValidationError("testSize", "must be in (0, 1)", testSize)
	}

	n := t.NumRows()
	indices := rand.New(rand.NewSource(seed)).Perm(n)

	nTest := int(math.Ceil(float64(n) * testSize))
	if nTest >= n {
		return nil, nil, errors.NewValueError("Table.Split", "test subset would consume every row")
	}

	test, err = t.selectRows(indices[:nTest])
	if err != nil {
		return nil, nil, err
	}
	train, err = t.selectRows(indices[nTest:])
	if err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

// SeparateTarget は目的変数カラムを取り出し、残りを特徴量テーブルとして返す
//
// 特徴量カラムと目的変数カラムの合併は元のカラム集合と完全に一致する。
func (t *Table) SeparateTarget(name string) (features *Table, target *mat.VecDense, err error) {
	targetIdx := -1
	for i, col := range t.columns {
		if col == name {
			targetIdx = i
			break
		}
	}
	if targetIdx < 0 {
		return nil, nil, errors.Wrapf(errors.ErrMissingColumn, "Table.SeparateTarget: %q", name)
	}
	if t.NumColumns() < 2 {
		return nil, nil, errors.NewValueError("Table.SeparateTarget", "table has no feature columns")
	}

	n := t.NumRows()
	featureCols := make([]string, 0, len(t.columns)-1)
	for i, col := range t.columns {
		if i != targetIdx {
			featureCols = append(featureCols, col)
		}
	}

	featureData := mat.NewDense(n, len(featureCols), nil)
	target = mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		k := 0
		for j := 0; j < len(t.columns); j++ {
			if j == targetIdx {
				target.SetVec(i, t.data.At(i, j))
				continue
			}
			featureData.Set(i, k, t.data.At(i, j))
			k++
		}
	}

	features, err = New(featureCols, featureData)
	if err != nil {
		return nil, nil, err
	}
	return features, target, nil
}

// selectRows は指定した行インデックスからなる新しいTableを作成する
func (t *Table) selectRows(indices []int) (*Table, error) {
	if len(indices) == 0 {
		return nil, errors.NewModelError("Table.selectRows", "empty subset", errors.ErrEmptyData)
	}
	_, c := t.data.Dims()
	sub := mat.NewDense(len(indices), c, nil)
	for i, idx := range indices {
		sub.SetRow(i, t.data.RawRowView(idx))
	}
	return New(t.columns, sub)
}
