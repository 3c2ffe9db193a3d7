package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/ezoic/forestcal/config"
	"github.com/ezoic/forestcal/dataset"
	"github.com/ezoic/forestcal/metrics"
	fcErrors "github.com/ezoic/forestcal/pkg/errors"
	"github.com/ezoic/forestcal/pkg/log"
	"github.com/ezoic/forestcal/session"
	"github.com/ezoic/forestcal/visualize"
)

// UploadField is the multipart form field carrying the CSV file.
const UploadField = "file"

type configView struct {
	Preprocessing config.Preprocessing `json:"preprocessing"`
	Training      config.Training      `json:"training"`
}

type sessionView struct {
	ID            string          `json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	Summary       dataset.Summary `json:"summary"`
	Roles         session.Roles   `json:"roles"`
	CriticalHints []string        `json:"critical_hints,omitempty"`
	Config        configView      `json:"config"`
	Trained       bool            `json:"trained"`
}

type resultView struct {
	TrainedAt            time.Time                   `json:"trained_at"`
	DurationMs           int64                       `json:"duration_ms"`
	Roles                session.Roles               `json:"roles"`
	FeatureTypes         dataset.FeatureTypes        `json:"feature_types"`
	FeatureNamesOut      []string                    `json:"feature_names_out"`
	Config               configView                  `json:"config"`
	TrainRows            int                         `json:"train_rows"`
	TestRows             int                         `json:"test_rows"`
	Metrics              metrics.Evaluation          `json:"metrics"`
	ModelParams          map[string]interface{}      `json:"model_params"`
	Importances          []session.FeatureImportance `json:"importances,omitempty"`
	ImportancesAvailable bool                        `json:"importances_available"`
	InputDefaults        dataset.InputDefaults       `json:"input_defaults"`
	LogTargetUsed        bool                        `json:"log_target_used"`
	Warnings             []string                    `json:"warnings"`
}

type predictRequest struct {
	Values map[string]interface{} `json:"values"`
}

type predictResponse struct {
	Target string `json:"target"`
	session.Interval
}

type errorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

func viewSession(s *session.Session) sessionView {
	return sessionView{
		ID:            s.ID.String(),
		CreatedAt:     s.CreatedAt,
		Summary:       s.Summary(),
		Roles:         s.Roles,
		CriticalHints: s.CriticalHints(),
		Config:        configView{Preprocessing: s.Preprocess.Settings(), Training: s.Training},
		Trained:       s.Result() != nil,
	}
}

func viewResult(res *session.Result) resultView {
	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return resultView{
		TrainedAt:            res.TrainedAt,
		DurationMs:           res.Duration.Milliseconds(),
		Roles:                res.Roles,
		FeatureTypes:         res.FeatureTypes,
		FeatureNamesOut:      res.Pipeline.FeatureNamesOut(),
		Config:               configView{Preprocessing: res.Config.Preprocess.Settings(), Training: res.Config.Train},
		TrainRows:            len(res.Split.YTrain),
		TestRows:             len(res.Split.YTest),
		Metrics:              res.Metrics,
		ModelParams:          res.Pipeline.GetParams(),
		Importances:          res.Importances,
		ImportancesAvailable: res.ImportancesAvailable,
		InputDefaults:        res.InputDefaults,
		LogTargetUsed:        res.LogTargetUsed,
		Warnings:             warnings,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"sessions":  s.registry.Len(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleCreateSession handles POST /api/v1/sessions. The body is the CSV
// itself or a multipart form with a "file" field; an empty body loads the
// default dataset.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	tbl, err := s.readTable(r, true)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sess, err := session.New(tbl, s.settings)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.registry.Add(sess); err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.SetSessions(s.registry.Len())
	s.logger.Info("Session opened", log.SessionKey, sess.ID.String(), log.SamplesKey, tbl.NRows())
	writeJSON(w, http.StatusCreated, viewSession(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	var view sessionView
	s.withSession(w, r, func(sess *session.Session) error {
		view = viewSession(sess)
		return nil
	}, func() { writeJSON(w, http.StatusOK, view) })
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil || !s.registry.Remove(id) {
		s.writeError(w, ErrSessionNotFound)
		return
	}
	s.metrics.SetSessions(s.registry.Len())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReplaceDataset(w http.ResponseWriter, r *http.Request) {
	tbl, err := s.readTable(r, false)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var view sessionView
	s.withSession(w, r, func(sess *session.Session) error {
		if err := sess.SetDataset(tbl); err != nil {
			return err
		}
		view = viewSession(sess)
		return nil
	}, func() { writeJSON(w, http.StatusOK, view) })
}

func (s *Server) handleGetRoles(w http.ResponseWriter, r *http.Request) {
	var roles session.Roles
	s.withSession(w, r, func(sess *session.Session) error {
		roles = sess.Roles
		return nil
	}, func() { writeJSON(w, http.StatusOK, roles) })
}

func (s *Server) handleSetRoles(w http.ResponseWriter, r *http.Request) {
	var roles session.Roles
	if err := decodeJSON(r, &roles); err != nil {
		s.writeError(w, err)
		return
	}
	var view sessionView
	s.withSession(w, r, func(sess *session.Session) error {
		if err := sess.SetRoles(roles); err != nil {
			return err
		}
		view = viewSession(sess)
		return nil
	}, func() { writeJSON(w, http.StatusOK, view) })
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	var view configView
	s.withSession(w, r, func(sess *session.Session) error {
		view = configView{Preprocessing: sess.Preprocess.Settings(), Training: sess.Training}
		return nil
	}, func() { writeJSON(w, http.StatusOK, view) })
}

// handleSetConfig overlays the request body on the current configuration;
// omitted keys keep their values.
func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		s.writeError(w, fcErrors.NewDataError("server.SetConfig", "failed to read body", err))
		return
	}
	var view configView
	s.withSession(w, r, func(sess *session.Session) error {
		view = configView{Preprocessing: sess.Preprocess.Settings(), Training: sess.Training}
		if err := json.Unmarshal(body, &view); err != nil {
			return fcErrors.NewConfigError("server.SetConfig", "invalid JSON: "+err.Error())
		}
		pre, err := session.PreprocessConfigFrom(view.Preprocessing)
		if err != nil {
			return err
		}
		if err := view.Training.Validate(); err != nil {
			return err
		}
		sess.Preprocess = pre
		sess.Training = view.Training
		return nil
	}, func() { writeJSON(w, http.StatusOK, view) })
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	var view resultView
	s.withSession(w, r, func(sess *session.Session) error {
		start := time.Now()
		res, err := sess.Train(r.Context())
		s.metrics.RecordTraining(time.Since(start), err)
		if err != nil {
			return err
		}
		s.logger.Info("Model trained",
			log.SessionKey, sess.ID.String(),
			log.SamplesKey, len(res.Split.YTrain),
			log.DurationMsKey, res.Duration.Milliseconds(),
		)
		view = viewResult(res)
		return nil
	}, func() { writeJSON(w, http.StatusOK, view) })
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	var view resultView
	s.withResult(w, r, func(res *session.Result) error {
		view = viewResult(res)
		return nil
	}, func() { writeJSON(w, http.StatusOK, view) })
}

func (s *Server) handleImportances(w http.ResponseWriter, r *http.Request) {
	var imp []session.FeatureImportance
	s.withResult(w, r, func(res *session.Result) error {
		if !res.ImportancesAvailable {
			return fcErrors.NewValueError("server.Importances", "the model does not expose feature importances")
		}
		imp = res.Importances
		return nil
	}, func() { writeJSON(w, http.StatusOK, imp) })
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	row, err := rowFromValues(req.Values)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var resp predictResponse
	s.withSession(w, r, func(sess *session.Session) error {
		iv, err := sess.Predict(row)
		s.metrics.RecordPrediction(err)
		if err != nil {
			return err
		}
		resp = predictResponse{Target: sess.Result().Roles.Target, Interval: iv}
		return nil
	}, func() { writeJSON(w, http.StatusOK, resp) })
}

// handlePredictionsCSV serves the test-set predictions as a CSV download, or
// with ?encoding=base64 as the base64 text of that file for a data: URL.
func (s *Server) handlePredictionsCSV(w http.ResponseWriter, r *http.Request) {
	encoded := r.URL.Query().Get("encoding") == "base64"
	var out []byte
	s.withResult(w, r, func(res *session.Result) error {
		if encoded {
			b64, err := res.PredictionsCSVBase64()
			out = []byte(b64)
			return err
		}
		var buf bytes.Buffer
		if err := res.WritePredictionsCSV(&buf); err != nil {
			return err
		}
		out = buf.Bytes()
		return nil
	}, func() {
		if encoded {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		} else {
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Disposition", `attachment; filename="predictions.csv"`)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out)
	})
}

// Chart names served under /charts/{chart}.png.
const (
	ChartPredictedVsActual = "predicted-vs-actual"
	ChartResiduals         = "residuals"
	ChartCorrelation       = "correlation"
	ChartImportances       = "importances"
)

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	chart := mux.Vars(r)["chart"]
	var img []byte
	s.withResult(w, r, func(res *session.Result) error {
		var err error
		switch chart {
		case ChartPredictedVsActual:
			img, err = visualize.PredictedVsActual(res.Split.YTest, res.YPred)
		case ChartResiduals:
			img, err = visualize.ResidualHistogram(res.Split.YTest, res.YPred)
		case ChartCorrelation:
			img, err = visualize.CorrelationHeatmap(res.Processed)
		case ChartImportances:
			if !res.ImportancesAvailable {
				return fcErrors.NewValueError("server.Chart", "the model does not expose feature importances")
			}
			names := make([]string, len(res.Importances))
			values := make([]float64, len(res.Importances))
			for i, fi := range res.Importances {
				names[i], values[i] = fi.Feature, fi.Importance
			}
			img, err = visualize.FeatureImportanceBars(names, values)
		default:
			return errUnknownChart
		}
		return err
	}, func() {
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(img)
	})
}

var errUnknownChart = fcErrors.New("unknown chart")

// withSession runs fn under the session lock and calls ok when fn
// succeeded. Errors are written as JSON.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(*session.Session) error, ok func()) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, ErrSessionNotFound)
		return
	}
	if err := s.registry.With(id, fn); err != nil {
		s.writeError(w, err)
		return
	}
	ok()
}

// withResult is withSession for handlers that need a trained model.
func (s *Server) withResult(w http.ResponseWriter, r *http.Request, fn func(*session.Result) error, ok func()) {
	s.withSession(w, r, func(sess *session.Session) error {
		res := sess.Result()
		if res == nil {
			return fcErrors.NewNotFittedError("Session", "Result")
		}
		return fn(res)
	}, ok)
}

// readTable reads the uploaded CSV. An empty body falls back to the default
// dataset when allowDefault is set.
func (s *Server) readTable(r *http.Request, allowDefault bool) (*dataset.Table, error) {
	maxBytes := s.settings.Data.MaxFileBytes()

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		mr, err := r.MultipartReader()
		if err != nil {
			return nil, fcErrors.NewDataError("server.Upload", "invalid multipart body", err)
		}
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return nil, fcErrors.NewDataError("server.Upload", fmt.Sprintf("no %q field in form", UploadField), nil)
			}
			if err != nil {
				return nil, fcErrors.NewDataError("server.Upload", "invalid multipart body", err)
			}
			if part.FormName() == UploadField {
				defer part.Close()
				return dataset.LoadCSVLimit(part, -1, maxBytes)
			}
			part.Close()
		}
	}

	if r.ContentLength == 0 {
		if !allowDefault {
			return nil, fcErrors.NewDataError("server.Upload", "empty body", fcErrors.ErrEmptyData)
		}
		d := s.settings.Data
		tbl, found, err := dataset.LoadDefault(d.Dir, d.DefaultDataset, d.MaxFileBytes())
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fcErrors.NewDataError("server.Upload",
				"no dataset uploaded and "+d.DefaultDataset+" not found", fcErrors.ErrEmptyData)
		}
		return tbl, nil
	}
	return dataset.LoadCSVLimit(r.Body, r.ContentLength, maxBytes)
}

// rowFromValues converts JSON values to a prediction row: numbers become
// numeric cells, strings categorical ones.
func rowFromValues(values map[string]interface{}) (session.Row, error) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	row := make(session.Row, 0, len(names))
	for _, name := range names {
		switch v := values[name].(type) {
		case float64:
			row = append(row, session.Num(name, v))
		case string:
			row = append(row, session.Label(name, v))
		default:
			return nil, fcErrors.NewConfigError("server.Predict",
				fmt.Sprintf("value for %q must be a number or a string", name))
		}
	}
	return row, nil
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fcErrors.NewConfigError("server.decode", "invalid JSON: "+err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the error taxonomy to HTTP status codes.
func statusFor(err error) int {
	var valErr *fcErrors.ValueError
	switch {
	case fcErrors.Is(err, ErrSessionNotFound), fcErrors.Is(err, errUnknownChart):
		return http.StatusNotFound
	case fcErrors.Is(err, ErrTooManySessions):
		return http.StatusServiceUnavailable
	case fcErrors.Is(err, fcErrors.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case fcErrors.IsConfigError(err):
		return http.StatusBadRequest
	case fcErrors.IsDataError(err):
		return http.StatusUnprocessableEntity
	case fcErrors.Is(err, fcErrors.ErrNotFitted), fcErrors.As(err, &valErr):
		return http.StatusConflict
	case fcErrors.Is(err, context.Canceled), fcErrors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	var cfgErr *fcErrors.ConfigError
	if fcErrors.As(err, &cfgErr) {
		resp.Missing = cfgErr.Missing
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "status", status, "error", err.Error())
	} else {
		s.logger.Debug("Request rejected", "status", status, "error", err.Error())
	}
	writeJSON(w, status, resp)
}
