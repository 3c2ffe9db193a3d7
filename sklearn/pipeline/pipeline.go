// Package pipeline chains a table preprocessor and a regressor into a single
// fit/predict unit, the way sklearn.pipeline.Pipeline does for
// Pipeline([("preprocessor", ...), ("model", ...)]).
package pipeline

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/forestcal/core/model"
	"github.com/ezoic/forestcal/dataset"
	fcErrors "github.com/ezoic/forestcal/pkg/errors"
	"github.com/ezoic/forestcal/pkg/log"
)

// Step names used by New.
const (
	PreprocessorStep = "preprocessor"
	ModelStep        = "model"
)

// Step represents a single named step in the pipeline.
type Step struct {
	Name      string      // Name of this step (for identification)
	Estimator interface{} // Preprocessor or model.Regressor
}

// Preprocessor turns a Table into a numeric design matrix.
// preprocessing.ColumnTransformer implements it.
type Preprocessor interface {
	Fit(X *dataset.Table) error
	Transform(X *dataset.Table) (*mat.Dense, error)
	FeatureNamesOut() []string
	InputColumns() []string
	InputKind(name string) (dataset.Kind, bool)
	IsFitted() bool
}

// contextFitter is implemented by estimators that can observe cancellation.
type contextFitter interface {
	FitContext(ctx context.Context, X, y mat.Matrix) error
}

// Pipeline fits its preprocessor on the training rows only, then fits the
// estimator on the transformed matrix.
type Pipeline struct {
	// State management using composition
	state  *model.StateManager
	logger log.Logger

	steps        []Step
	preprocessor Preprocessor
	estimator    model.Regressor
}

// New creates a two-step pipeline.
func New(preprocessor Preprocessor, estimator model.Regressor) *Pipeline {
	return &Pipeline{
		state:        model.NewStateManager(),
		logger:       log.GetLoggerWithName("Pipeline"),
		preprocessor: preprocessor,
		estimator:    estimator,
		steps: []Step{
			{Name: PreprocessorStep, Estimator: preprocessor},
			{Name: ModelStep, Estimator: estimator},
		},
	}
}

// Fit trains the pipeline. It is FitContext with a background context.
func (p *Pipeline) Fit(X *dataset.Table, y []float64) error {
	return p.FitContext(context.Background(), X, y)
}

// FitContext fits the preprocessor on X, transforms X, then fits the
// estimator on the result and y.
func (p *Pipeline) FitContext(ctx context.Context, X *dataset.Table, y []float64) (err error) {
	defer fcErrors.Recover(&err, "Pipeline.Fit")

	if p.preprocessor == nil || p.estimator == nil {
		return fcErrors.NewValueError("Pipeline.Fit", "pipeline needs a preprocessor and an estimator")
	}
	if X.NRows() != len(y) {
		return fcErrors.NewDimensionError("Pipeline.Fit", X.NRows(), len(y), 0)
	}
	if len(y) == 0 {
		return fcErrors.ErrEmptyData
	}
	p.state.Reset()

	start := time.Now()
	if err = p.preprocessor.Fit(X); err != nil {
		return fcErrors.Wrap(err, fmt.Sprintf("failed to fit step '%s'", PreprocessorStep))
	}
	Xt, err := p.preprocessor.Transform(X)
	if err != nil {
		return fcErrors.Wrap(err, fmt.Sprintf("failed to transform at step '%s'", PreprocessorStep))
	}
	p.logger.Debug("Preprocessor fitted",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhasePreprocessing,
		log.FeaturesKey, len(p.preprocessor.FeatureNamesOut()),
	)

	yt := mat.NewDense(len(y), 1, append([]float64(nil), y...))
	if cf, ok := p.estimator.(contextFitter); ok {
		err = cf.FitContext(ctx, Xt, yt)
	} else {
		err = p.estimator.Fit(Xt, yt)
	}
	if err != nil {
		return fcErrors.Wrap(err, fmt.Sprintf("failed to fit final step '%s'", ModelStep))
	}

	_, nOut := Xt.Dims()
	p.state.SetDimensions(nOut, len(y))
	p.state.SetFitted()
	p.logger.Info("Pipeline fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, len(y),
		log.FeaturesKey, nOut,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Predict transforms X and returns one prediction per row.
func (p *Pipeline) Predict(X *dataset.Table) (_ []float64, err error) {
	defer fcErrors.Recover(&err, "Pipeline.Predict")

	if !p.IsFitted() {
		return nil, fcErrors.NewNotFittedError("Pipeline", "Predict")
	}
	Xt, err := p.Transform(X)
	if err != nil {
		return nil, err
	}
	pred, err := p.estimator.Predict(Xt)
	if err != nil {
		return nil, fcErrors.Wrap(err, fmt.Sprintf("failed to predict at step '%s'", ModelStep))
	}
	return mat.Col(nil, 0, pred), nil
}

// Transform applies the fitted preprocessor only.
func (p *Pipeline) Transform(X *dataset.Table) (*mat.Dense, error) {
	if !p.IsFitted() {
		return nil, fcErrors.NewNotFittedError("Pipeline", "Transform")
	}
	Xt, err := p.preprocessor.Transform(X)
	if err != nil {
		return nil, fcErrors.Wrap(err, fmt.Sprintf("failed to transform at step '%s'", PreprocessorStep))
	}
	return Xt, nil
}

// IsFitted reports whether both steps are fitted.
func (p *Pipeline) IsFitted() bool {
	return p != nil && p.state.IsFitted() &&
		p.preprocessor != nil && p.preprocessor.IsFitted() &&
		p.estimator != nil && p.estimator.IsFitted()
}

// Preprocessor returns the first step.
func (p *Pipeline) Preprocessor() Preprocessor { return p.preprocessor }

// Estimator returns the final step.
func (p *Pipeline) Estimator() model.Regressor { return p.estimator }

// FeatureNamesOut returns the names of the matrix columns fed to the estimator.
func (p *Pipeline) FeatureNamesOut() []string {
	if p.preprocessor == nil {
		return nil
	}
	return p.preprocessor.FeatureNamesOut()
}

// GetParams returns the parameters of every step under "<step>__<param>".
func (p *Pipeline) GetParams() map[string]interface{} {
	params := make(map[string]interface{})
	for _, step := range p.steps {
		if paramsGetter, ok := step.Estimator.(interface {
			GetParams() map[string]interface{}
		}); ok {
			for key, value := range paramsGetter.GetParams() {
				params[fmt.Sprintf("%s__%s", step.Name, key)] = value
			}
		}
	}

	return params
}

// Steps returns the list of steps.
func (p *Pipeline) Steps() []Step {
	steps := make([]Step, len(p.steps))
	copy(steps, p.steps)
	return steps
}
