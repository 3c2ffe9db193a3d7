package model_selection

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fcErrors "github.com/ezoic/forestcal/pkg/errors"
)

func TestTrainTestSplit_Sizes(t *testing.T) {
	tests := []struct {
		n         int
		trainSize float64
		wantTrain int
	}{
		{100, 0.65, 65},
		{10, 0.7, 7},
		{3, 0.5, 1},
		{1000, 0.9, 900},
		{7, 0.65, 4},
	}
	for _, tt := range tests {
		s, err := TrainTestSplit(tt.n, tt.trainSize, 42)
		require.NoError(t, err)
		if len(s.Train) != tt.wantTrain || len(s.Test) != tt.n-tt.wantTrain {
			t.Errorf("n=%d train=%.2f: got %d/%d", tt.n, tt.trainSize, len(s.Train), len(s.Test))
		}
	}
}

func TestTrainTestSplit_Partition(t *testing.T) {
	s, err := TrainTestSplit(50, 0.65, 1)
	require.NoError(t, err)

	all := append(append([]int{}, s.Train...), s.Test...)
	sort.Ints(all)
	for i, v := range all {
		assert.Equal(t, i, v)
	}
}

func TestTrainTestSplit_Seeded(t *testing.T) {
	a, _ := TrainTestSplit(40, 0.75, 42)
	b, _ := TrainTestSplit(40, 0.75, 42)
	c, _ := TrainTestSplit(40, 0.75, 43)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a.Train, c.Train)
}

func TestTrainTestSplit_Errors(t *testing.T) {
	_, err := TrainTestSplit(1, 0.65, 0)
	var vErr *fcErrors.ValueError
	assert.ErrorAs(t, err, &vErr)

	_, err = TrainTestSplit(10, 1.0, 0)
	var pErr *fcErrors.ValidationError
	assert.ErrorAs(t, err, &pErr)
}
