package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) routes() {
	r := mux.NewRouter()
	r.Use(s.metrics.instrument)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)

	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods(http.MethodDelete)

	sess := api.PathPrefix("/sessions/{id}").Subrouter()
	sess.HandleFunc("/dataset", s.handleReplaceDataset).Methods(http.MethodPut)
	sess.HandleFunc("/roles", s.handleGetRoles).Methods(http.MethodGet)
	sess.HandleFunc("/roles", s.handleSetRoles).Methods(http.MethodPut)
	sess.HandleFunc("/config", s.handleGetConfig).Methods(http.MethodGet)
	sess.HandleFunc("/config", s.handleSetConfig).Methods(http.MethodPut)
	sess.HandleFunc("/train", s.handleTrain).Methods(http.MethodPost)
	sess.HandleFunc("/result", s.handleResult).Methods(http.MethodGet)
	sess.HandleFunc("/importances", s.handleImportances).Methods(http.MethodGet)
	sess.HandleFunc("/predict", s.handlePredict).Methods(http.MethodPost)
	sess.HandleFunc("/predictions.csv", s.handlePredictionsCSV).Methods(http.MethodGet)
	sess.HandleFunc("/charts/{chart}.png", s.handleChart).Methods(http.MethodGet)

	s.router = r
}
