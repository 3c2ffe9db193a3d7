package tree

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/forestcal/core/model"
	fcErrors "github.com/ezoic/forestcal/pkg/errors"
)

// Max-features modes understood by WithMaxFeatures.
const (
	MaxFeaturesAll  = "all"
	MaxFeaturesSqrt = "sqrt"
	MaxFeaturesLog2 = "log2"
)

// impurities at or below this are treated as pure
const pureEpsilon = 1e-12

// TreeNode represents a node in the decision tree
type TreeNode struct {
	IsLeaf    bool      // Whether this is a leaf node
	Feature   int       // Feature index for split (internal nodes)
	Threshold float64   // Threshold value for split (internal nodes)
	Left      *TreeNode // Left child (values <= threshold)
	Right     *TreeNode // Right child (values > threshold)
	Value     float64   // Mean target of the samples reaching this node
	Impurity  float64   // Node variance
	NSamples  int       // Number of samples at this node
	Depth     int       // Depth of this node in the tree
}

// DecisionTreeRegressor is a CART regression tree split on variance reduction.
type DecisionTreeRegressor struct {
	state *model.StateManager // State management

	// Hyperparameters
	maxDepth        int    // Maximum depth of tree (0 = unlimited)
	minSamplesSplit int    // Minimum samples to split a node
	minSamplesLeaf  int    // Minimum samples in a leaf
	maxFeatures     string // Features tried per split: "all", "sqrt", "log2"
	randomState     int64  // Random seed (-1 = time based)

	// Tree structure
	tree_      *TreeNode // Root of the tree
	nFeatures_ int       // Number of features
	nodeCount_ int

	// Feature importance
	featureImportances_ []float64 // Feature importance scores
}

// DecisionTreeRegressorOption is a functional option
type DecisionTreeRegressorOption func(*DecisionTreeRegressor)

// NewDecisionTreeRegressor creates a new regression tree.
func NewDecisionTreeRegressor(opts ...DecisionTreeRegressorOption) *DecisionTreeRegressor {
	dt := &DecisionTreeRegressor{
		state:           model.NewStateManager(),
		maxDepth:        0, // Unlimited
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     MaxFeaturesAll,
		randomState:     -1,
	}

	for _, opt := range opts {
		opt(dt)
	}

	return dt
}

// WithMaxDepth sets the maximum tree depth
func WithMaxDepth(depth int) DecisionTreeRegressorOption {
	return func(dt *DecisionTreeRegressor) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets minimum samples to split
func WithMinSamplesSplit(n int) DecisionTreeRegressorOption {
	return func(dt *DecisionTreeRegressor) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets minimum samples in leaf
func WithMinSamplesLeaf(n int) DecisionTreeRegressorOption {
	return func(dt *DecisionTreeRegressor) {
		dt.minSamplesLeaf = n
	}
}

// WithMaxFeatures sets how many features are tried at each split.
func WithMaxFeatures(mode string) DecisionTreeRegressorOption {
	return func(dt *DecisionTreeRegressor) {
		dt.maxFeatures = mode
	}
}

// WithRandomState sets the random seed
func WithRandomState(seed int64) DecisionTreeRegressorOption {
	return func(dt *DecisionTreeRegressor) {
		dt.randomState = seed
	}
}

// ResolveMaxFeatures returns the number of features tried per split for a
// mode and input width. Always at least 1.
func ResolveMaxFeatures(mode string, nFeatures int) (int, error) {
	var k int
	switch mode {
	case "", MaxFeaturesAll:
		k = nFeatures
	case MaxFeaturesSqrt:
		k = int(math.Sqrt(float64(nFeatures)))
	case MaxFeaturesLog2:
		k = int(math.Log2(float64(nFeatures)))
	default:
		return 0, fcErrors.NewValidationError("max_features", `must be "all", "sqrt" or "log2"`, mode)
	}
	return max(1, min(k, nFeatures)), nil
}

// Fit trains the tree on X (n×p) and the column vector y.
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) (err error) {
	defer fcErrors.Recover(&err, "DecisionTreeRegressor.Fit")

	nSamples, _ := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 {
		return fcErrors.ErrEmptyData
	}
	if nSamples != yRows {
		return fcErrors.NewDimensionError("DecisionTreeRegressor.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return fcErrors.NewDimensionError("DecisionTreeRegressor.Fit", 1, yCols, 1)
	}

	target := mat.Col(nil, 0, y)
	samples := make([]int, nSamples)
	for i := range samples {
		samples[i] = i
	}
	return dt.FitColumns(ColumnMajor(X), target, samples)
}

// ColumnMajor copies X into one slice per feature. FitColumns reads this
// layout so that a forest converts its input once for all trees.
func ColumnMajor(X mat.Matrix) [][]float64 {
	_, p := X.Dims()
	cols := make([][]float64, p)
	for j := range cols {
		cols[j] = mat.Col(nil, j, X)
	}
	return cols
}

// FitColumns trains on the rows listed in samples. Rows may repeat, which is
// how bootstrap draws are expressed. cols and y are only read.
func (dt *DecisionTreeRegressor) FitColumns(cols [][]float64, y []float64, samples []int) (err error) {
	defer fcErrors.Recover(&err, "DecisionTreeRegressor.FitColumns")

	if len(cols) == 0 || len(samples) == 0 {
		return fcErrors.ErrEmptyData
	}
	for j, c := range cols {
		if len(c) != len(y) {
			return fcErrors.NewDimensionError("DecisionTreeRegressor.FitColumns", len(y), len(cols[j]), 0)
		}
	}
	if dt.minSamplesSplit < 2 {
		return fcErrors.NewValidationError("min_samples_split", "must be >= 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return fcErrors.NewValidationError("min_samples_leaf", "must be >= 1", dt.minSamplesLeaf)
	}
	if dt.maxDepth < 0 {
		return fcErrors.NewValidationError("max_depth", "must be >= 0", dt.maxDepth)
	}
	k, err := ResolveMaxFeatures(dt.maxFeatures, len(cols))
	if err != nil {
		return err
	}

	seed := dt.randomState
	if seed < 0 {
		seed = time.Now().UnixNano()
	}

	b := &builder{
		dt:          dt,
		cols:        cols,
		y:           y,
		k:           k,
		rng:         rand.New(rand.NewSource(seed)),
		features:    make([]int, len(cols)),
		importances: make([]float64, len(cols)),
	}
	for j := range b.features {
		b.features[j] = j
	}

	idx := make([]int, len(samples))
	copy(idx, samples)

	dt.state.Reset()
	dt.nFeatures_ = len(cols)
	dt.nodeCount_ = 0
	dt.tree_ = b.buildTree(idx, 0)
	dt.featureImportances_ = normalize(b.importances)

	dt.state.SetDimensions(len(cols), len(samples))
	dt.state.SetFitted()
	return nil
}

// builder holds the per-fit scratch state.
type builder struct {
	dt          *DecisionTreeRegressor
	cols        [][]float64
	y           []float64
	k           int
	rng         *rand.Rand
	features    []int
	importances []float64
}

// buildTree recursively builds the tree over the sample indices idx.
// idx is reordered in place.
func (b *builder) buildTree(idx []int, depth int) *TreeNode {
	dt := b.dt
	dt.nodeCount_++

	n := len(idx)
	mean, impurity := meanVariance(b.y, idx)

	node := &TreeNode{
		Value:    mean,
		Impurity: impurity,
		NSamples: n,
		Depth:    depth,
	}

	if dt.shouldStop(n, impurity, depth) {
		node.IsLeaf = true
		return node
	}

	feature, threshold, ok := b.findBestSplit(idx)
	if !ok {
		node.IsLeaf = true
		return node
	}

	// partition idx: left part <= threshold
	col := b.cols[feature]
	i, j := 0, n-1
	for i <= j {
		if col[idx[i]] <= threshold {
			i++
		} else {
			idx[i], idx[j] = idx[j], idx[i]
			j--
		}
	}
	left, right := idx[:i], idx[i:]

	node.Feature = feature
	node.Threshold = threshold
	node.Left = b.buildTree(left, depth+1)
	node.Right = b.buildTree(right, depth+1)

	// weighted impurity decrease
	b.importances[feature] += float64(n)*impurity -
		float64(len(left))*node.Left.Impurity -
		float64(len(right))*node.Right.Impurity

	return node
}

// shouldStop checks stopping criteria
func (dt *DecisionTreeRegressor) shouldStop(nSamples int, impurity float64, depth int) bool {
	if dt.maxDepth > 0 && depth >= dt.maxDepth {
		return true
	}
	if nSamples < dt.minSamplesSplit || nSamples < 2*dt.minSamplesLeaf {
		return true
	}
	return impurity <= pureEpsilon
}

// findBestSplit draws features in random order and evaluates them until k
// non-constant features have been seen. Each feature is scanned in sorted
// order with running sums, maximising sumL²/nL + sumR²/nR, which is
// equivalent to minimising the weighted child variance.
func (b *builder) findBestSplit(idx []int) (int, float64, bool) {
	n := len(idx)
	minLeaf := b.dt.minSamplesLeaf

	var total float64
	for _, s := range idx {
		total += b.y[s]
	}
	parentProxy := total * total / float64(n)

	bestFeature := -1
	bestThreshold := 0.0
	bestProxy := parentProxy

	order := make([]int, n)
	visited := 0
	nf := len(b.features)
	for f := 0; f < nf && visited < b.k; f++ {
		r := f + b.rng.Intn(nf-f)
		b.features[f], b.features[r] = b.features[r], b.features[f]
		feature := b.features[f]
		col := b.cols[feature]

		copy(order, idx)
		sort.Slice(order, func(a, c int) bool { return col[order[a]] < col[order[c]] })
		if col[order[0]] == col[order[n-1]] {
			continue // constant here, does not count
		}
		visited++

		var sumLeft float64
		for i := 0; i < n-1; i++ {
			sumLeft += b.y[order[i]]
			nLeft := i + 1
			v, next := col[order[i]], col[order[i+1]]
			if v == next || nLeft < minLeaf || n-nLeft < minLeaf {
				continue
			}
			sumRight := total - sumLeft
			proxy := sumLeft*sumLeft/float64(nLeft) + sumRight*sumRight/float64(n-nLeft)
			if proxy > bestProxy+1e-12*math.Abs(bestProxy) {
				bestProxy = proxy
				bestFeature = feature
				bestThreshold = v + (next-v)/2
				if bestThreshold == next {
					bestThreshold = v
				}
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func meanVariance(y []float64, idx []int) (mean, variance float64) {
	n := float64(len(idx))
	for _, s := range idx {
		mean += y[s]
	}
	mean /= n
	for _, s := range idx {
		d := y[s] - mean
		variance += d * d
	}
	return mean, variance / n
}

// normalize scales imp to sum 1. An all-zero vector stays zero.
func normalize(imp []float64) []float64 {
	sum := 0.0
	for _, v := range imp {
		sum += v
	}
	if sum > 0 {
		for i := range imp {
			imp[i] /= sum
		}
	}
	return imp
}

// Predict returns one prediction per row of X as an n×1 matrix.
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !dt.state.IsFitted() {
		return nil, fcErrors.NewNotFittedError("DecisionTreeRegressor", "Predict")
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != dt.nFeatures_ {
		return nil, fcErrors.NewDimensionError("DecisionTreeRegressor.Predict", dt.nFeatures_, nFeatures, 1)
	}

	predictions := mat.NewDense(nSamples, 1, nil)
	row := make([]float64, nFeatures)
	for i := 0; i < nSamples; i++ {
		mat.Row(row, i, X)
		predictions.Set(i, 0, dt.PredictRow(row))
	}
	return predictions, nil
}

// PredictRow walks the tree for a single feature vector. The tree must be fitted.
func (dt *DecisionTreeRegressor) PredictRow(x []float64) float64 {
	node := dt.tree_
	for !node.IsLeaf {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

// IsFitted reports whether Fit has completed.
func (dt *DecisionTreeRegressor) IsFitted() bool {
	return dt.state.IsFitted()
}

// GetParams returns the model hyperparameters
func (dt *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
		"max_features":      dt.maxFeatures,
		"random_state":      dt.randomState,
	}
}

// FeatureImportances returns the normalised impurity decrease per feature.
func (dt *DecisionTreeRegressor) FeatureImportances() ([]float64, error) {
	if !dt.state.IsFitted() {
		return nil, fcErrors.NewNotFittedError("DecisionTreeRegressor", "FeatureImportances")
	}
	importances := make([]float64, len(dt.featureImportances_))
	copy(importances, dt.featureImportances_)
	return importances, nil
}

// NodeCount returns the number of nodes, leaves included.
func (dt *DecisionTreeRegressor) NodeCount() int {
	return dt.nodeCount_
}

// GetDepth returns the depth of the tree
func (dt *DecisionTreeRegressor) GetDepth() int {
	if dt.tree_ == nil {
		return 0
	}
	return getMaxDepth(dt.tree_)
}

func getMaxDepth(node *TreeNode) int {
	if node.IsLeaf {
		return node.Depth
	}
	return max(getMaxDepth(node.Left), getMaxDepth(node.Right))
}

// GetNLeaves returns the number of leaf nodes
func (dt *DecisionTreeRegressor) GetNLeaves() int {
	if dt.tree_ == nil {
		return 0
	}
	return countLeaves(dt.tree_)
}

func countLeaves(node *TreeNode) int {
	if node.IsLeaf {
		return 1
	}
	return countLeaves(node.Left) + countLeaves(node.Right)
}
