package dataset

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	fcErrors "github.com/ezoic/forestcal/pkg/errors"
	"github.com/ezoic/forestcal/pkg/log"
)

// DefaultMaxFileSize is the upload limit (200MB).
const DefaultMaxFileSize int64 = 200 * 1024 * 1024

// DefaultDatasetName is the fallback dataset looked up by LoadDefault when
// no name is configured.
const DefaultDatasetName = "exercise_dataset.csv"

// MissingTokens are the cell values read as missing.
var MissingTokens = []string{"", "NA", "NaN", "null", "<nil>"}

func isMissingToken(s string) bool {
	for _, tok := range MissingTokens {
		if s == tok {
			return true
		}
	}
	return false
}

// LoadCSV reads a CSV dataset of the given byte size with the default limit.
// size < 0 means unknown; the reader is then bounded while reading.
func LoadCSV(r io.Reader, size int64) (*Table, error) {
	return LoadCSVLimit(r, size, DefaultMaxFileSize)
}

// LoadCSVLimit reads a CSV dataset rejecting inputs larger than maxBytes.
// The size check happens before any parsing.
//
// Parameters:
//   - r: CSV text with a header row
//   - size: the input size in bytes if known, or -1
//   - maxBytes: upper bound on the input size
//
// Returns:
//   - *Table: the parsed table; columns whose non-missing cells all parse as
//     numbers are Numeric, everything else is Categorical
//   - error: DataError wrapping ErrFileTooLarge, or a DataError for
//     unreadable/empty CSV
func LoadCSVLimit(r io.Reader, size, maxBytes int64) (*Table, error) {
	if size > maxBytes {
		return nil, tooLarge(size, maxBytes)
	}

	raw, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fcErrors.NewDataError("dataset.LoadCSV", "failed to read input", err)
	}
	if int64(len(raw)) > maxBytes {
		return nil, tooLarge(int64(len(raw)), maxBytes)
	}
	// spreadsheet exports prefix the header with a byte order mark
	raw = bytes.TrimPrefix(raw, utf8BOM)

	df := dataframe.ReadCSV(bytes.NewReader(raw),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(MissingTokens),
	)
	if df.Err != nil {
		return nil, fcErrors.NewDataError("dataset.LoadCSV", "failed to parse CSV", df.Err)
	}

	t, err := FromDataFrame(df)
	if err != nil {
		return nil, err
	}
	if t.NCols() == 0 || t.NRows() == 0 {
		return nil, fcErrors.NewDataError("dataset.LoadCSV", "dataset has no rows", fcErrors.ErrEmptyData)
	}

	log.GetLoggerWithName("dataset").Info("Dataset loaded",
		log.OperationKey, log.OperationLoad,
		log.SamplesKey, t.NRows(),
		log.FeaturesKey, t.NCols(),
	)
	return t, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func tooLarge(size, maxBytes int64) error {
	msg := fmt.Sprintf("%.1fMB exceeds the %dMB limit", float64(size)/(1024*1024), maxBytes/(1024*1024))
	return fcErrors.NewDataError("dataset.LoadCSV", msg, fcErrors.ErrFileTooLarge)
}

// LoadFile reads a CSV file, checking its size before opening the parser.
func LoadFile(path string) (*Table, error) {
	return LoadFileLimit(path, DefaultMaxFileSize)
}

// LoadFileLimit is LoadFile with an explicit size limit.
func LoadFileLimit(path string, maxBytes int64) (*Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fcErrors.NewDataError("dataset.LoadFile", "cannot stat "+path, err)
	}
	if info.Size() > maxBytes {
		return nil, tooLarge(info.Size(), maxBytes)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fcErrors.NewDataError("dataset.LoadFile", "cannot open "+path, err)
	}
	defer f.Close()

	return LoadCSVLimit(f, info.Size(), maxBytes)
}

// LoadDefault loads the dataset called name (DefaultDatasetName when empty)
// from dir with the given size limit. A missing file is not an error: it
// returns (nil, false, nil).
func LoadDefault(dir, name string, maxBytes int64) (*Table, bool, error) {
	if name == "" {
		name = DefaultDatasetName
	}
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fcErrors.NewDataError("dataset.LoadDefault", "cannot stat "+path, err)
	}
	t, err := LoadFileLimit(path, maxBytes)
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// FromDataFrame converts a gota DataFrame. Int and Float series become
// Numeric columns. String series become Numeric when every non-missing cell
// parses as a number, Categorical otherwise. Bool series are Categorical.
func FromDataFrame(df dataframe.DataFrame) (*Table, error) {
	names := df.Names()
	cols := make([]*Column, 0, len(names))
	for _, name := range names {
		s := df.Col(name)
		switch s.Type() {
		case series.Int, series.Float:
			cols = append(cols, NewNumericColumn(name, s.Float()))
		default:
			cols = append(cols, columnFromRecords(name, s.Records(), s.IsNaN()))
		}
	}
	return NewTable(cols...)
}

func columnFromRecords(name string, records []string, nan []bool) *Column {
	missing := make([]bool, len(records))
	numeric := true
	nums := make([]float64, len(records))
	for i, rec := range records {
		rec = strings.TrimSpace(rec)
		if (nan != nil && nan[i]) || isMissingToken(rec) {
			missing[i] = true
			nums[i] = math.NaN()
			continue
		}
		if !numeric {
			continue
		}
		v, err := strconv.ParseFloat(rec, 64)
		if err != nil {
			numeric = false
			continue
		}
		nums[i] = v
	}
	if numeric {
		return &Column{Name: name, Kind: Numeric, Nums: nums}
	}
	labels := make([]string, len(records))
	for i, rec := range records {
		if !missing[i] {
			labels[i] = rec
		}
	}
	return &Column{Name: name, Kind: Categorical, Labels: labels, Missing: missing}
}
