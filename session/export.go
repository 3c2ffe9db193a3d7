package session

import (
	"bytes"
	"encoding/base64"
	"io"

	"github.com/ezoic/forestcal/dataset"
)

// Column names appended to the exported test set.
const (
	ActualColumn    = "actual"
	PredictedColumn = "predicted"
)

// PredictionsTable returns the test features with the actual and predicted
// target appended.
func (r *Result) PredictionsTable() (*dataset.Table, error) {
	t, err := r.Split.XTest.WithColumn(dataset.NewNumericColumn(ActualColumn, r.Split.YTest))
	if err != nil {
		return nil, err
	}
	return t.WithColumn(dataset.NewNumericColumn(PredictedColumn, r.YPred))
}

// WritePredictionsCSV writes PredictionsTable as CSV with a header row.
func (r *Result) WritePredictionsCSV(w io.Writer) error {
	t, err := r.PredictionsTable()
	if err != nil {
		return err
	}
	return t.WriteCSV(w)
}

// PredictionsCSVBase64 returns the predictions CSV encoded for a data: URL
// download link.
func (r *Result) PredictionsCSVBase64() (string, error) {
	var buf bytes.Buffer
	if err := r.WritePredictionsCSV(&buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
