package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/forestcal/core/model"
	fcErrors "github.com/ezoic/forestcal/pkg/errors"
)

// MissingLabel marks a missing categorical cell in encoder input.
// It is never learned as a category and always encodes to zeros.
const MissingLabel = ""

// OneHotEncoder はscikit-learn互換のOne-Hotエンコーダー
// カテゴリカルな文字列データを0/1のバイナリベクトルに変換する。
// 学習時に未出現のカテゴリは全て0としてエンコードされ、エラーにはならない
// (handle_unknown="ignore" 相当)。
type OneHotEncoder struct {
	model.BaseEstimator

	// Categories は各特徴量のカテゴリ一覧（ソート済み）
	Categories [][]string

	// CategoryToIdx は各特徴量のカテゴリ→インデックスマップ
	CategoryToIdx []map[string]int

	// NFeatures は入力特徴量数
	NFeatures int

	// NOutputs は出力特徴量数（全カテゴリの合計数）
	NOutputs int
}

// NewOneHotEncoder は新しいOneHotEncoderを作成する
//
// 使用例:
//
//	encoder := preprocessing.NewOneHotEncoder()
//	err := encoder.Fit(rows)
//	encoded, err := encoder.Transform(rows)
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{}
}

// Fit は訓練データからカテゴリ情報を学習する
//
// パラメータ:
//   - data: 訓練データ (n_samples × n_features の文字列スライス)
//
// 戻り値:
//   - error: 空データや行ごとの列数不一致の場合
func (e *OneHotEncoder) Fit(data [][]string) (err error) {
	defer fcErrors.Recover(&err, "OneHotEncoder.Fit")
	if len(data) == 0 || len(data[0]) == 0 {
		return fcErrors.NewModelError("OneHotEncoder.Fit", "empty data", fcErrors.ErrEmptyData)
	}

	nFeatures := len(data[0])
	for _, row := range data {
		if len(row) != nFeatures {
			return fcErrors.NewDimensionError("OneHotEncoder.Fit", nFeatures, len(row), 1)
		}
	}

	e.NFeatures = nFeatures
	e.Categories = make([][]string, nFeatures)
	e.CategoryToIdx = make([]map[string]int, nFeatures)
	e.NOutputs = 0

	for j := 0; j < nFeatures; j++ {
		seen := make(map[string]struct{})
		for _, row := range data {
			if row[j] != MissingLabel {
				seen[row[j]] = struct{}{}
			}
		}

		categories := make([]string, 0, len(seen))
		for category := range seen {
			categories = append(categories, category)
		}
		sort.Strings(categories)

		idx := make(map[string]int, len(categories))
		for k, category := range categories {
			idx[category] = k
		}
		e.Categories[j] = categories
		e.CategoryToIdx[j] = idx
		e.NOutputs += len(categories)
	}

	e.SetFitted()
	return nil
}

// Transform は学習済みのカテゴリ情報を使ってデータをone-hot encodingする
//
// 未知カテゴリと欠損値は全て0の行になる。
func (e *OneHotEncoder) Transform(data [][]string) (_ mat.Matrix, err error) {
	defer fcErrors.Recover(&err, "OneHotEncoder.Transform")
	if !e.IsFitted() {
		return nil, fcErrors.NewNotFittedError("OneHotEncoder", "Transform")
	}

	if len(data) == 0 {
		return nil, fcErrors.NewValueError("OneHotEncoder.Transform", "no rows to transform")
	}
	if e.NOutputs == 0 {
		return nil, fcErrors.NewValueError("OneHotEncoder.Transform", "no categories were seen during fit")
	}

	result := mat.NewDense(len(data), e.NOutputs, nil)
	for i, row := range data {
		if len(row) != e.NFeatures {
			return nil, fcErrors.NewDimensionError("OneHotEncoder.Transform", e.NFeatures, len(row), 1)
		}
		offset := 0
		for j, category := range row {
			if k, ok := e.CategoryToIdx[j][category]; ok {
				result.Set(i, offset+k, 1.0)
			}
			offset += len(e.Categories[j])
		}
	}

	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (e *OneHotEncoder) FitTransform(data [][]string) (_ mat.Matrix, err error) {
	defer fcErrors.Recover(&err, "OneHotEncoder.FitTransform")
	if err := e.Fit(data); err != nil {
		return nil, err
	}
	return e.Transform(data)
}

// GetFeatureNamesOut は変換後の特徴量の名前を返す
//
// パラメータ:
//   - inputFeatures: 入力特徴量の名前（nilの場合は"x0", "x1", ...を使用）
//
// 例:
//   - 入力特徴量名が["Gender", "Exercise"]の場合
//   - 出力: ["Gender_Female", "Gender_Male", "Exercise_Cycling", ...]
func (e *OneHotEncoder) GetFeatureNamesOut(inputFeatures []string) []string {
	if !e.IsFitted() {
		return nil
	}

	out := make([]string, 0, e.NOutputs)
	for i, categories := range e.Categories {
		name := fmt.Sprintf("x%d", i)
		if i < len(inputFeatures) {
			name = inputFeatures[i]
		}
		for _, category := range categories {
			out = append(out, name+"_"+category)
		}
	}
	return out
}
