// Package model_selection provides dataset splitting helpers.
package model_selection

import (
	"math"
	"math/rand"

	fcErrors "github.com/ezoic/forestcal/pkg/errors"
)

// Split holds row indices for the two sides of a train/test split.
type Split struct {
	Train []int
	Test  []int
}

// TrainTestSplit shuffles the row indices [0, n) with a source seeded by
// seed and cuts them into floor(trainSize*n) training rows and the rest for
// testing. The same (n, trainSize, seed) always yields the same split.
func TrainTestSplit(n int, trainSize float64, seed int64) (Split, error) {
	if trainSize <= 0 || trainSize >= 1 || math.IsNaN(trainSize) {
		return Split{}, fcErrors.NewValidationError("train_size", "must be in (0, 1)", trainSize)
	}
	// 1e-9 keeps 0.7*10 at 7 despite binary rounding
	nTrain := int(math.Floor(trainSize*float64(n) + 1e-9))
	nTest := n - nTrain
	if nTrain < 1 || nTest < 1 {
		return Split{}, fcErrors.NewValueError("TrainTestSplit",
			"not enough rows to split: both sides need at least one row")
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return Split{Train: perm[:nTrain], Test: perm[nTrain:]}, nil
}
