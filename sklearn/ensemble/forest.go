// Package ensemble implements bagged tree ensembles.
package ensemble

import (
	"context"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/forestcal/core/model"
	"github.com/ezoic/forestcal/core/parallel"
	fcErrors "github.com/ezoic/forestcal/pkg/errors"
	"github.com/ezoic/forestcal/pkg/log"
	"github.com/ezoic/forestcal/sklearn/tree"
)

// RandomForestRegressor averages DecisionTreeRegressors grown on bootstrap
// samples with a random feature subset tried at every split.
//
// Hyperparameters are plain fields; set them before Fit. A zero value is
// usable once its fields are set, but NewRandomForestRegressor fills the
// defaults.
type RandomForestRegressor struct {
	NEstimators     int    // number of trees
	MaxDepth        int    // 0 = unlimited
	MinSamplesSplit int    // minimum samples to split a node
	MinSamplesLeaf  int    // minimum samples in a leaf
	MaxFeatures     string // tree.MaxFeaturesSqrt etc.
	Bootstrap       bool   // draw n rows with replacement per tree
	RandomState     int64  // master seed (-1 = time based)
	NJobs           int    // tree-fitting goroutines (<= 0 = GOMAXPROCS)

	state  *model.StateManager
	logger log.Logger

	estimators_         []*tree.DecisionTreeRegressor
	featureImportances_ []float64
}

// Option configures a RandomForestRegressor.
type Option func(*RandomForestRegressor)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option { return func(rf *RandomForestRegressor) { rf.NEstimators = n } }

// WithMaxDepth sets the maximum depth of every tree (0 = unlimited).
func WithMaxDepth(d int) Option { return func(rf *RandomForestRegressor) { rf.MaxDepth = d } }

// WithMinSamplesSplit sets the minimum samples to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(rf *RandomForestRegressor) { rf.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum samples per leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(rf *RandomForestRegressor) { rf.MinSamplesLeaf = n }
}

// WithMaxFeatures sets the per-split feature mode.
func WithMaxFeatures(mode string) Option {
	return func(rf *RandomForestRegressor) { rf.MaxFeatures = mode }
}

// WithBootstrap toggles bootstrap sampling.
func WithBootstrap(b bool) Option { return func(rf *RandomForestRegressor) { rf.Bootstrap = b } }

// WithRandomState sets the master seed.
func WithRandomState(seed int64) Option {
	return func(rf *RandomForestRegressor) { rf.RandomState = seed }
}

// WithNJobs sets the number of tree-fitting goroutines.
func WithNJobs(n int) Option { return func(rf *RandomForestRegressor) { rf.NJobs = n } }

// NewRandomForestRegressor returns a forest with scikit-learn's defaults
// except MaxFeatures, which is sqrt.
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	rf := &RandomForestRegressor{
		NEstimators:     100,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     tree.MaxFeaturesSqrt,
		Bootstrap:       true,
		RandomState:     -1,
		NJobs:           0,
		state:           model.NewStateManager(),
		logger: log.GetLoggerWithName("ensemble").With(
			log.ModelNameKey, "RandomForestRegressor",
		),
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

func (rf *RandomForestRegressor) validate() error {
	if rf.NEstimators < 1 {
		return fcErrors.NewValidationError("n_estimators", "must be >= 1", rf.NEstimators)
	}
	if rf.MaxDepth < 0 {
		return fcErrors.NewValidationError("max_depth", "must be >= 0", rf.MaxDepth)
	}
	if rf.MinSamplesSplit < 2 {
		return fcErrors.NewValidationError("min_samples_split", "must be >= 2", rf.MinSamplesSplit)
	}
	if rf.MinSamplesLeaf < 1 {
		return fcErrors.NewValidationError("min_samples_leaf", "must be >= 1", rf.MinSamplesLeaf)
	}
	_, err := tree.ResolveMaxFeatures(rf.MaxFeatures, 1)
	return err
}

// Fit trains the forest. It is FitContext with a background context.
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) error {
	return rf.FitContext(context.Background(), X, y)
}

// FitContext trains NEstimators trees on up to NJobs goroutines.
// Cancellation is observed between trees. On any error the forest is left
// unfitted.
func (rf *RandomForestRegressor) FitContext(ctx context.Context, X, y mat.Matrix) (err error) {
	defer fcErrors.Recover(&err, "RandomForestRegressor.Fit")

	if rf.state == nil {
		rf.state = model.NewStateManager()
	}
	if rf.logger == nil {
		rf.logger = log.GetLoggerWithName("ensemble").With(log.ModelNameKey, "RandomForestRegressor")
	}
	if err := rf.validate(); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 {
		return fcErrors.ErrEmptyData
	}
	yRows, yCols := y.Dims()
	if yRows != nSamples {
		return fcErrors.NewDimensionError("RandomForestRegressor.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return fcErrors.NewDimensionError("RandomForestRegressor.Fit", 1, yCols, 1)
	}

	rf.state.Reset()
	rf.estimators_ = nil
	rf.featureImportances_ = nil

	start := time.Now()
	rf.logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.TreesKey, rf.NEstimators,
	)

	cols := tree.ColumnMajor(X)
	target := mat.Col(nil, 0, y)

	// seeds are drawn up front so the result does not depend on scheduling
	master := rf.RandomState
	if master < 0 {
		master = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(master))
	seeds := make([]int64, rf.NEstimators)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	trees := make([]*tree.DecisionTreeRegressor, rf.NEstimators)
	err = parallel.ForEach(ctx, rf.NEstimators, rf.NJobs, func(_ context.Context, i int) error {
		t, err := rf.fitTree(cols, target, seeds[i])
		if err != nil {
			return fcErrors.Wrapf(err, "tree %d", i)
		}
		trees[i] = t
		return nil
	})
	if err != nil {
		rf.logger.Warn("Training aborted", log.OperationKey, log.OperationFit, "error", err.Error())
		return err
	}

	rf.estimators_ = trees
	rf.featureImportances_ = averageImportances(trees, nFeatures)
	rf.state.SetDimensions(nFeatures, nSamples)
	rf.state.SetFitted()

	depth, leaves := rf.shape()
	rf.logger.Info("Training completed",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.TreesKey, len(trees),
		"max_depth_seen", depth,
		"mean_leaves", leaves,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// fitTree grows one tree. The bootstrap draw and the split randomness both
// come from seed.
func (rf *RandomForestRegressor) fitTree(cols [][]float64, y []float64, seed int64) (*tree.DecisionTreeRegressor, error) {
	r := rand.New(rand.NewSource(seed))

	n := len(y)
	samples := make([]int, n)
	for i := range samples {
		if rf.Bootstrap {
			samples[i] = r.Intn(n)
		} else {
			samples[i] = i
		}
	}

	t := tree.NewDecisionTreeRegressor(
		tree.WithMaxDepth(rf.MaxDepth),
		tree.WithMinSamplesSplit(rf.MinSamplesSplit),
		tree.WithMinSamplesLeaf(rf.MinSamplesLeaf),
		tree.WithMaxFeatures(rf.MaxFeatures),
		tree.WithRandomState(r.Int63()),
	)
	if err := t.FitColumns(cols, y, samples); err != nil {
		return nil, err
	}
	return t, nil
}

// averageImportances averages the per-tree normalised importances over the
// trees that split at least once, then renormalises.
func averageImportances(trees []*tree.DecisionTreeRegressor, nFeatures int) []float64 {
	out := make([]float64, nFeatures)
	used := 0
	for _, t := range trees {
		if t.NodeCount() <= 1 {
			continue
		}
		imp, err := t.FeatureImportances()
		if err != nil {
			continue
		}
		for j, v := range imp {
			out[j] += v
		}
		used++
	}
	if used == 0 {
		return out
	}
	sum := 0.0
	for j := range out {
		out[j] /= float64(used)
		sum += out[j]
	}
	if sum > 0 {
		for j := range out {
			out[j] /= sum
		}
	}
	return out
}

// Predict returns the mean tree prediction for every row of X as an n×1 matrix.
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer fcErrors.Recover(&err, "RandomForestRegressor.Predict")

	if !rf.IsFitted() {
		return nil, fcErrors.NewNotFittedError("RandomForestRegressor", "Predict")
	}
	nSamples, nFeatures := X.Dims()
	expected, _ := rf.state.GetDimensions()
	if nFeatures != expected {
		return nil, fcErrors.NewDimensionError("RandomForestRegressor.Predict", expected, nFeatures, 1)
	}

	out := make([]float64, nSamples)
	nTrees := float64(len(rf.estimators_))
	parallel.ParallelizeWithThreshold(nSamples, parallel.DefaultThreshold, func(start, end int) {
		row := make([]float64, nFeatures)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			sum := 0.0
			for _, t := range rf.estimators_ {
				sum += t.PredictRow(row)
			}
			out[i] = sum / nTrees
		}
	})

	rf.logger.Debug("Prediction completed",
		log.OperationKey, log.OperationPredict,
		log.PhaseKey, log.PhaseInference,
		log.PredsKey, nSamples,
	)
	return mat.NewDense(nSamples, 1, out), nil
}

// FeatureImportances returns the impurity-based importances. They sum to 1
// unless no tree ever split, in which case they are all zero.
func (rf *RandomForestRegressor) FeatureImportances() ([]float64, error) {
	if !rf.IsFitted() {
		return nil, fcErrors.NewNotFittedError("RandomForestRegressor", "FeatureImportances")
	}
	out := make([]float64, len(rf.featureImportances_))
	copy(out, rf.featureImportances_)
	return out, nil
}

// IsFitted reports whether the forest can predict.
func (rf *RandomForestRegressor) IsFitted() bool {
	return rf.state != nil && rf.state.IsFitted()
}

// shape returns the deepest tree depth and the mean leaf count.
func (rf *RandomForestRegressor) shape() (maxDepth int, meanLeaves float64) {
	if len(rf.estimators_) == 0 {
		return 0, 0
	}
	for _, t := range rf.estimators_ {
		maxDepth = max(maxDepth, t.GetDepth())
		meanLeaves += float64(t.GetNLeaves())
	}
	return maxDepth, meanLeaves / float64(len(rf.estimators_))
}

// Estimators returns the fitted trees.
func (rf *RandomForestRegressor) Estimators() []*tree.DecisionTreeRegressor {
	return rf.estimators_
}

// GetParams returns the hyperparameters under scikit-learn's names.
func (rf *RandomForestRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      rf.NEstimators,
		"max_depth":         rf.MaxDepth,
		"min_samples_split": rf.MinSamplesSplit,
		"min_samples_leaf":  rf.MinSamplesLeaf,
		"max_features":      rf.MaxFeatures,
		"bootstrap":         rf.Bootstrap,
		"random_state":      rf.RandomState,
		"n_jobs":            rf.NJobs,
	}
}
