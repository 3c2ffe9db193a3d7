// Package config holds the application settings. Defaults mirror the
// calorie app; a YAML file may override any subset of them.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ezoic/forestcal/dataset"
	fcErrors "github.com/ezoic/forestcal/pkg/errors"
	"github.com/ezoic/forestcal/preprocessing"
)

// Settings is the root of the YAML document.
type Settings struct {
	Training      Training      `yaml:"training" json:"training"`
	Data          Data          `yaml:"data" json:"data"`
	Preprocessing Preprocessing `yaml:"preprocessing" json:"preprocessing"`
	Server        Server        `yaml:"server" json:"server"`
	Log           Log           `yaml:"log" json:"log"`
}

// Training holds the split and forest hyperparameters.
type Training struct {
	TrainSize       float64 `yaml:"train_size" json:"train_size"`               // 0.5 - 0.9
	RandomState     int64   `yaml:"random_state" json:"random_state"`           // >= 0
	NEstimators     int     `yaml:"n_estimators" json:"n_estimators"`           // >= 1
	MaxDepth        int     `yaml:"max_depth" json:"max_depth"`                 // 0 = unlimited
	MinSamplesSplit int     `yaml:"min_samples_split" json:"min_samples_split"` // >= 2
	MinSamplesLeaf  int     `yaml:"min_samples_leaf" json:"min_samples_leaf"`   // >= 1
	NJobs           int     `yaml:"n_jobs" json:"n_jobs"`                       // <= 0 = all cores
}

// Data controls loading and the column suggestions.
type Data struct {
	Dir            string                    `yaml:"dir" json:"dir"`
	DefaultDataset string                    `yaml:"default_dataset" json:"default_dataset"`
	MaxFileSizeMB  int                       `yaml:"max_file_size_mb" json:"max_file_size_mb"`
	ExcludeColumns []string                  `yaml:"exclude_columns" json:"exclude_columns"`
	TargetKeywords []string                  `yaml:"target_keywords" json:"target_keywords"`
	Priorities     dataset.FeaturePriorities `yaml:"priorities" json:"priorities"`
}

// Preprocessing holds the default preprocessing choices.
type Preprocessing struct {
	MissingStrategy string                      `yaml:"missing_strategy" json:"missing_strategy"`
	UseScaling      bool                        `yaml:"use_scaling" json:"use_scaling"`
	Outliers        preprocessing.OutlierPolicy `yaml:"outliers" json:"outliers"`
	LogTarget       bool                        `yaml:"log_target" json:"log_target"`
}

// Server configures the HTTP adapter.
type Server struct {
	Addr         string        `yaml:"addr" json:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	MaxSessions  int           `yaml:"max_sessions" json:"max_sessions"`
	SessionTTL   time.Duration `yaml:"session_ttl" json:"session_ttl"` // idle sessions are dropped after this; 0 = never
}

// Log configures pkg/log.
type Log struct {
	Level string `yaml:"level" json:"level"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		Training: Training{
			TrainSize:       0.65,
			RandomState:     42,
			NEstimators:     500,
			MaxDepth:        20,
			MinSamplesSplit: 5,
			MinSamplesLeaf:  2,
		},
		Data: Data{
			Dir:            ".",
			DefaultDataset: dataset.DefaultDatasetName,
			MaxFileSizeMB:  200,
			ExcludeColumns: []string{"ID", "Dream Weight"},
			TargetKeywords: []string{"calor", "burn", "target"},
			Priorities: dataset.FeaturePriorities{
				Weight:        []string{"actual", "weight"},
				Demographic:   []string{"Gender", "Age"},
				Exercise:      []string{"Duration", "Exercise Intensity", "Exercise", "Heart Rate", "BMI"},
				Environmental: []string{"Weather Conditions"},
			},
		},
		Preprocessing: Preprocessing{
			MissingStrategy: preprocessing.DropRows{}.Label(),
			Outliers:        preprocessing.OutliersNone,
		},
		Server: Server{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Minute,
			MaxSessions:  64,
			SessionTTL:   2 * time.Hour,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads a YAML file over the defaults and validates the result.
// An empty path returns the defaults.
func Load(path string) (Settings, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fcErrors.Wrapf(err, "read config %s", path)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fcErrors.NewConfigError("config.Parse", err.Error())
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// MaxFileBytes returns the upload limit in bytes.
func (d Data) MaxFileBytes() int64 {
	return int64(d.MaxFileSizeMB) << 20
}

// Validate checks every section.
func (s Settings) Validate() error {
	if err := s.Training.Validate(); err != nil {
		return err
	}
	if s.Data.MaxFileSizeMB < 1 {
		return fcErrors.NewConfigError("config.Validate", fmt.Sprintf("max_file_size_mb must be >= 1, got %d", s.Data.MaxFileSizeMB))
	}
	if _, err := preprocessing.ParseMissingStrategy(s.Preprocessing.MissingStrategy); err != nil {
		return err
	}
	if s.Server.MaxSessions < 1 {
		return fcErrors.NewConfigError("config.Validate", fmt.Sprintf("max_sessions must be >= 1, got %d", s.Server.MaxSessions))
	}
	return nil
}

// Validate enforces the hyperparameter ranges offered to the user.
func (t Training) Validate() error {
	const op = "TrainConfig.Validate"
	switch {
	case t.TrainSize < 0.5 || t.TrainSize > 0.9:
		return fcErrors.NewConfigError(op, fmt.Sprintf("train_size must be in [0.5, 0.9], got %g", t.TrainSize))
	case t.RandomState < 0:
		return fcErrors.NewConfigError(op, fmt.Sprintf("random_state must be >= 0, got %d", t.RandomState))
	case t.NEstimators < 1:
		return fcErrors.NewConfigError(op, fmt.Sprintf("n_estimators must be >= 1, got %d", t.NEstimators))
	case t.MaxDepth < 0:
		return fcErrors.NewConfigError(op, fmt.Sprintf("max_depth must be >= 0, got %d", t.MaxDepth))
	case t.MinSamplesSplit < 2:
		return fcErrors.NewConfigError(op, fmt.Sprintf("min_samples_split must be >= 2, got %d", t.MinSamplesSplit))
	case t.MinSamplesLeaf < 1:
		return fcErrors.NewConfigError(op, fmt.Sprintf("min_samples_leaf must be >= 1, got %d", t.MinSamplesLeaf))
	}
	return nil
}
