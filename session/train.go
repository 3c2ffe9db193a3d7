package session

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/forestcal/dataset"
	"github.com/ezoic/forestcal/metrics"
	fcErrors "github.com/ezoic/forestcal/pkg/errors"
	"github.com/ezoic/forestcal/pkg/log"
	"github.com/ezoic/forestcal/preprocessing"
	"github.com/ezoic/forestcal/sklearn/ensemble"
	"github.com/ezoic/forestcal/sklearn/model_selection"
	"github.com/ezoic/forestcal/sklearn/pipeline"
	"github.com/ezoic/forestcal/sklearn/tree"
)

// Split is the train/test partition of the processed features and target.
// YTrain/YTest are on the original scale, YTrainFit/YTestFit on the scale
// the forest was fitted on (log1p when the log transform was applied).
type Split struct {
	XTrain, XTest       *dataset.Table
	YTrain, YTest       []float64
	YTrainFit, YTestFit []float64
	TrainIndex          []int
	TestIndex           []int
}

// FeatureImportance is one row of the importance table.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Result is the complete outcome of one training run. It is never modified
// after Train returns.
type Result struct {
	Pipeline     *pipeline.Pipeline
	Processed    *dataset.Table
	FeatureTypes dataset.FeatureTypes
	Roles        Roles
	Config       Config
	Split        Split

	YPred     []float64 // model predictions for Split.XTest, original scale
	YBaseline []float64 // mean of YTrain for every test row
	Metrics   metrics.Evaluation

	Importances          []FeatureImportance
	ImportancesAvailable bool

	// InputDefaults seeds a prediction form from the processed data.
	InputDefaults dataset.InputDefaults

	LogTargetUsed bool
	Warnings      []string
	Duration      time.Duration
	TrainedAt     time.Time
}

// Train preprocesses data, splits it, fits the preprocessor and forest on
// the training rows and evaluates on the test rows against a mean baseline.
//
// Roles and hyperparameters are checked before any computation and reported
// as ConfigErrors. data is not modified.
func Train(ctx context.Context, data *dataset.Table, roles Roles, cfg Config) (res *Result, err error) {
	defer fcErrors.Recover(&err, "session.Train")

	if data == nil {
		return nil, fcErrors.NewDataError("session.Train", "no dataset loaded", nil)
	}
	if err := roles.Validate(data); err != nil {
		return nil, err
	}
	if err := cfg.Train.Validate(); err != nil {
		return nil, err
	}
	strategy := cfg.Preprocess.Missing
	if strategy == nil {
		strategy = preprocessing.DropRows{}
	}

	logger := log.GetLoggerWithName("session").With(log.ComponentKey, "trainer")
	start := time.Now()

	// preprocessing
	filled, err := preprocessing.HandleMissing(data, roles.Features, roles.Target, strategy)
	if err != nil {
		return nil, err
	}
	target, err := preprocessing.TransformTarget(filled, roles.Target, cfg.Preprocess.Outliers, cfg.Preprocess.LogTarget)
	if err != nil {
		return nil, err
	}
	processed := target.Table
	logger.Info("Preprocessing completed",
		log.PhaseKey, log.PhasePreprocessing,
		log.StrategyKey, strategy.Label(),
		log.SamplesKey, processed.NRows(),
		log.RowsDroppedKey, data.NRows()-processed.NRows(),
	)

	types := dataset.InferFeatureTypes(processed, roles.Features)
	X, err := processed.Select(roles.Features)
	if err != nil {
		return nil, err
	}

	// split
	idx, err := model_selection.TrainTestSplit(processed.NRows(), cfg.Train.TrainSize, cfg.Train.RandomState)
	if err != nil {
		return nil, fcErrors.NewDataError("session.Train",
			fmt.Sprintf("%d rows left after preprocessing", processed.NRows()), err)
	}
	split := Split{
		XTrain:     X.Take(idx.Train),
		XTest:      X.Take(idx.Test),
		YTrain:     take(target.Original, idx.Train),
		YTest:      take(target.Original, idx.Test),
		YTrainFit:  take(target.Fit, idx.Train),
		YTestFit:   take(target.Fit, idx.Test),
		TrainIndex: idx.Train,
		TestIndex:  idx.Test,
	}

	// fit
	forest := ensemble.NewRandomForestRegressor(
		ensemble.WithNEstimators(cfg.Train.NEstimators),
		ensemble.WithMaxDepth(cfg.Train.MaxDepth),
		ensemble.WithMinSamplesSplit(cfg.Train.MinSamplesSplit),
		ensemble.WithMinSamplesLeaf(cfg.Train.MinSamplesLeaf),
		ensemble.WithMaxFeatures(tree.MaxFeaturesSqrt),
		ensemble.WithBootstrap(true),
		ensemble.WithRandomState(cfg.Train.RandomState),
		ensemble.WithNJobs(cfg.Train.NJobs),
	)
	pre := preprocessing.NewColumnTransformer(types.Numeric, types.Categorical, cfg.Preprocess.UseScaling)
	p := pipeline.New(pre, forest)
	if err := p.FitContext(ctx, split.XTrain, split.YTrainFit); err != nil {
		return nil, err
	}

	// evaluate
	yPred, err := p.Predict(split.XTest)
	if err != nil {
		return nil, err
	}
	if target.LogApplied {
		for i, v := range yPred {
			yPred[i] = preprocessing.InverseLog(v)
		}
	}
	base := stat.Mean(split.YTrain, nil)
	yBase := make([]float64, len(split.YTest))
	for i := range yBase {
		yBase[i] = base
	}
	ev, err := metrics.Evaluate(split.YTest, yPred, yBase)
	if err != nil {
		return nil, err
	}

	res = &Result{
		Pipeline:      p,
		Processed:     processed,
		FeatureTypes:  types,
		Roles:         Roles{Target: roles.Target, Features: append([]string(nil), roles.Features...)},
		Config:        cfg,
		Split:         split,
		YPred:         yPred,
		YBaseline:     yBase,
		Metrics:       ev,
		InputDefaults: dataset.ComputeInputDefaults(processed, types),
		LogTargetUsed: target.LogApplied,
		Warnings:      append(append([]string(nil), target.Warnings...), ev.Caveats...),
		TrainedAt:     time.Now(),
	}
	res.Config.Preprocess.Missing = strategy
	res.Importances, res.ImportancesAvailable = FeatureImportances(p)
	res.Duration = time.Since(start)

	logger.Info("Training completed",
		log.PhaseKey, log.PhaseEvaluation,
		log.SamplesKey, len(split.YTrain),
		log.FeaturesKey, len(p.FeatureNamesOut()),
		"r2", ev.Model.R2,
		"r2_baseline", ev.Baseline.R2,
		log.DurationMsKey, res.Duration.Milliseconds(),
	)
	return res, nil
}

func take(values []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}
