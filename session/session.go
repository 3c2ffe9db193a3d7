// Package session is the interface between a user interface and the
// training pipeline. A Session owns one dataset, the column roles and the
// preprocessing/training choices made for it, and the latest successful
// training Result.
//
// Typical use:
//
//	tbl, _ := dataset.LoadFile("exercise_dataset.csv")
//	s, _ := session.New(tbl, config.Default())
//	res, err := s.Train(ctx)
//	if err != nil {
//		return err
//	}
//	iv, _ := res.PredictWithInterval(session.Row{
//		session.Num("Duration", 45),
//		session.Label("Gender", "Female"),
//	})
//
// A Session is not safe for concurrent use; callers serialise access (the
// HTTP server holds a mutex per session). Results are immutable and may be
// shared freely.
package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ezoic/forestcal/config"
	"github.com/ezoic/forestcal/dataset"
	fcErrors "github.com/ezoic/forestcal/pkg/errors"
	"github.com/ezoic/forestcal/pkg/log"
)

// Session holds the state of one user's workflow.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	Roles      Roles
	Preprocess PreprocessConfig
	Training   TrainConfig

	settings config.Data
	data     *dataset.Table
	result   atomic.Pointer[Result]
	logger   log.Logger
}

// New creates a session over data with roles suggested from settings and
// the default preprocessing and training choices.
func New(data *dataset.Table, settings config.Settings) (*Session, error) {
	if data == nil {
		return nil, fcErrors.NewDataError("session.New", "no dataset", nil)
	}
	cfg, err := ConfigFrom(settings)
	if err != nil {
		return nil, err
	}
	id := uuid.New()
	s := &Session{
		ID:         id,
		CreatedAt:  time.Now(),
		Preprocess: cfg.Preprocess,
		Training:   cfg.Train,
		settings:   settings.Data,
		data:       data,
		logger:     log.GetLoggerWithName("session").With(log.SessionKey, id.String()),
	}
	s.Roles = Roles{}.Reconcile(data, settings.Data)
	s.logger.Info("Session created",
		log.OperationKey, log.OperationLoad,
		log.SamplesKey, data.NRows(),
		"columns", data.NCols(),
		"target", s.Roles.Target,
	)
	return s, nil
}

// Dataset returns the loaded dataset.
func (s *Session) Dataset() *dataset.Table { return s.data }

// SetDataset replaces the dataset, reconciles the roles against its
// columns and discards the previous Result, which described other data.
func (s *Session) SetDataset(t *dataset.Table) error {
	if t == nil {
		return fcErrors.NewDataError("Session.SetDataset", "no dataset", nil)
	}
	s.data = t
	s.Roles = s.Roles.Reconcile(t, s.settings)
	s.result.Store(nil)
	s.logger.Info("Dataset replaced", log.OperationKey, log.OperationLoad, log.SamplesKey, t.NRows())
	return nil
}

// SetRoles validates and stores new roles.
func (s *Session) SetRoles(r Roles) error {
	if err := r.Validate(s.data); err != nil {
		return err
	}
	s.Roles = r
	return nil
}

// Summary describes the loaded dataset.
func (s *Session) Summary() dataset.Summary { return dataset.Summarize(s.data) }

// CriticalHints lists important columns that are not selected as features.
func (s *Session) CriticalHints() []string { return s.Roles.CriticalHints(s.data) }

// Config returns the current preprocessing and training choices.
func (s *Session) Config() Config {
	return Config{Preprocess: s.Preprocess, Train: s.Training}
}

// Train runs the full pipeline with the session's current choices. On
// success the new Result replaces the previous one; on failure the previous
// Result is kept.
func (s *Session) Train(ctx context.Context) (*Result, error) {
	res, err := Train(ctx, s.data, s.Roles, s.Config())
	if err != nil {
		s.logger.Warn("Training failed", log.OperationKey, log.OperationFit, "error", err.Error())
		return nil, err
	}
	s.result.Store(res)
	return res, nil
}

// Result returns the latest successful training result, or nil.
func (s *Session) Result() *Result { return s.result.Load() }

// Predict runs one row through the latest result with its interval.
func (s *Session) Predict(row Row) (Interval, error) {
	res := s.Result()
	if res == nil {
		return Interval{}, fcErrors.NewNotFittedError("Session", "Predict")
	}
	return res.PredictWithInterval(row)
}
