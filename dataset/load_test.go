package dataset

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fcErrors "github.com/ezoic/forestcal/pkg/errors"
)

const sampleCSV = `ID,Exercise,Duration,Actual Weight,Gender,Smoker,Calories Burn
1,Running,30,70.5,Male,true,300
2,Cycling,NA,80,Female,false,250.5
3,,45,,Male,false,410
4,Walking,20,65.2,<nil>,true,null
`

func TestLoadCSVTypes(t *testing.T) {
	tbl, err := LoadCSV(strings.NewReader(sampleCSV), int64(len(sampleCSV)))
	require.NoError(t, err)

	assert.Equal(t, 4, tbl.NRows())
	assert.Equal(t, []string{"ID", "Exercise", "Duration", "Actual Weight", "Gender", "Smoker", "Calories Burn"}, tbl.Names())

	kinds := map[string]Kind{}
	for _, c := range tbl.Columns() {
		kinds[c.Name] = c.Kind
	}
	assert.Equal(t, Numeric, kinds["ID"])
	assert.Equal(t, Categorical, kinds["Exercise"])
	assert.Equal(t, Numeric, kinds["Duration"])
	assert.Equal(t, Numeric, kinds["Actual Weight"])
	assert.Equal(t, Categorical, kinds["Gender"])
	assert.Equal(t, Categorical, kinds["Smoker"], "bool columns are categorical")
	assert.Equal(t, Numeric, kinds["Calories Burn"])

	dur, _ := tbl.Column("Duration")
	assert.True(t, math.IsNaN(dur.Nums[1]))
	assert.Equal(t, 45.0, dur.Nums[2])

	ex, _ := tbl.Column("Exercise")
	assert.True(t, ex.IsMissing(2))
	assert.Equal(t, "Running", ex.Labels[0])

	gender, _ := tbl.Column("Gender")
	assert.True(t, gender.IsMissing(3))

	cal, _ := tbl.Column("Calories Burn")
	assert.True(t, cal.IsMissing(3))

	assert.Equal(t, 5, tbl.TotalMissing())
}

func TestLoadCSVTooLarge(t *testing.T) {
	_, err := LoadCSVLimit(strings.NewReader(sampleCSV), 10_000, 1_000)
	require.Error(t, err)
	assert.ErrorIs(t, err, fcErrors.ErrFileTooLarge)
	assert.True(t, fcErrors.IsDataError(err))

	// size unknown: the limit is enforced while reading
	_, err = LoadCSVLimit(strings.NewReader(sampleCSV), -1, 20)
	assert.ErrorIs(t, err, fcErrors.ErrFileTooLarge)
}

func TestLoadCSVCorrupt(t *testing.T) {
	_, err := LoadCSV(strings.NewReader("a,b\n1,2,3\n\"unterminated"), -1)
	require.Error(t, err)
	assert.True(t, fcErrors.IsDataError(err))

	_, err = LoadCSV(strings.NewReader("a,b\n"), -1)
	require.Error(t, err)
	assert.True(t, fcErrors.IsDataError(err))
}

func TestLoadDefault(t *testing.T) {
	dir := t.TempDir()

	tbl, ok, err := LoadDefault(dir, "", DefaultMaxFileSize)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, tbl)

	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultDatasetName), []byte(sampleCSV), 0o600))
	tbl, ok, err = LoadDefault(dir, "", DefaultMaxFileSize)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, tbl.NRows())

	_, _, err = LoadDefault(dir, DefaultDatasetName, 16)
	assert.ErrorIs(t, err, fcErrors.ErrFileTooLarge)
}

func TestLoadDefaultNamed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultDatasetName), []byte(sampleCSV), 0o600))

	tbl, ok, err := LoadDefault(dir, "workouts_2024.csv", DefaultMaxFileSize)
	require.NoError(t, err)
	assert.False(t, ok, "the configured name replaces the built-in one")
	assert.Nil(t, tbl)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "workouts_2024.csv"),
		[]byte("ID,Duration,Calories\n1,30,250\n2,45,380\n"), 0o600))
	tbl, ok, err = LoadDefault(dir, "workouts_2024.csv", DefaultMaxFileSize)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, tbl.NRows())
}

func TestLoadCSVStripsByteOrderMark(t *testing.T) {
	tbl, err := LoadCSV(strings.NewReader("\ufeffID,Duration,Calories\n1,30,250\n2,45,380\n"), -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Duration", "Calories"}, tbl.Names())
	c, ok := tbl.Column("ID")
	require.True(t, ok)
	assert.Equal(t, Numeric, c.Kind)
}

func TestLoadFileTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	_, err := LoadFileLimit(path, 16)
	assert.ErrorIs(t, err, fcErrors.ErrFileTooLarge)
}

func TestWriteCSVRoundTrip(t *testing.T) {
	tbl, err := LoadCSV(strings.NewReader(sampleCSV), -1)
	require.NoError(t, err)
	sub, err := tbl.Select([]string{"Exercise", "Duration"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, sub.WriteCSV(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "Exercise,Duration\n"))

	back, err := LoadCSV(&buf, -1)
	require.NoError(t, err)
	require.Equal(t, 4, back.NRows())
	dur, _ := back.Column("Duration")
	assert.Equal(t, Numeric, dur.Kind)
	assert.InDelta(t, 30.0, dur.Nums[0], 1e-9)
	assert.True(t, dur.IsMissing(1))
	ex, _ := back.Column("Exercise")
	assert.True(t, ex.IsMissing(2))
}
