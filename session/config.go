package session

import (
	"github.com/ezoic/forestcal/config"
	"github.com/ezoic/forestcal/preprocessing"
)

// PreprocessConfig selects the preprocessing applied before training.
type PreprocessConfig struct {
	Missing    preprocessing.MissingStrategy
	UseScaling bool
	Outliers   preprocessing.OutlierPolicy
	LogTarget  bool
}

// TrainConfig holds the split and forest hyperparameters.
type TrainConfig = config.Training

// Config is everything Train needs besides the data and the roles.
type Config struct {
	Preprocess PreprocessConfig
	Train      TrainConfig
}

// PreprocessConfigFrom resolves the labels of the settings file.
func PreprocessConfigFrom(p config.Preprocessing) (PreprocessConfig, error) {
	strategy, err := preprocessing.ParseMissingStrategy(p.MissingStrategy)
	if err != nil {
		return PreprocessConfig{}, err
	}
	return PreprocessConfig{
		Missing:    strategy,
		UseScaling: p.UseScaling,
		Outliers:   p.Outliers,
		LogTarget:  p.LogTarget,
	}, nil
}

// ConfigFrom builds a Config from settings.
func ConfigFrom(s config.Settings) (Config, error) {
	pre, err := PreprocessConfigFrom(s.Preprocessing)
	if err != nil {
		return Config{}, err
	}
	return Config{Preprocess: pre, Train: s.Training}, nil
}

// Settings is the inverse of PreprocessConfigFrom.
func (p PreprocessConfig) Settings() config.Preprocessing {
	out := config.Preprocessing{
		UseScaling: p.UseScaling,
		Outliers:   p.Outliers,
		LogTarget:  p.LogTarget,
	}
	if p.Missing != nil {
		out.MissingStrategy = p.Missing.Label()
	}
	return out
}
