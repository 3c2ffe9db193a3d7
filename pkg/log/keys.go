package log

// Field keys.
const (
	LoggerNameKey  = "logger"
	OperationKey   = "operation"
	PhaseKey       = "phase"
	ComponentKey   = "component"
	ModelNameKey   = "model_name"
	SamplesKey     = "samples"
	FeaturesKey    = "features"
	PredsKey       = "predictions"
	DurationMsKey  = "duration_ms"
	SessionKey     = "session_id"
	ColumnKey      = "column"
	TreesKey       = "n_trees"
	StrategyKey    = "strategy"
	RowsDroppedKey = "rows_dropped"
)

// Operation values.
const (
	OperationLoad      = "load"
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationEvaluate  = "evaluate"
)

// Phase values.
const (
	PhasePreprocessing = "preprocessing"
	PhaseTraining      = "training"
	PhaseInference     = "inference"
	PhaseEvaluation    = "evaluation"
)
