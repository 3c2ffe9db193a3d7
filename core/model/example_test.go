package model_test

import (
	"fmt"

	"github.com/ezoic/forestcal/core/model"
)

// ExampleBaseEstimator shows the fitted-state lifecycle of an embedded estimator
func ExampleBaseEstimator() {
	type columnStats struct {
		model.BaseEstimator
		mean float64
	}

	stats := &columnStats{}
	fmt.Printf("Initially fitted: %t\n", stats.IsFitted())

	// 学習後にフラグを立てる
	stats.mean = 42
	stats.SetFitted()
	fmt.Printf("After fit: %t (mean=%.0f)\n", stats.IsFitted(), stats.mean)

	stats.Reset()
	fmt.Printf("After Reset: %t\n", stats.IsFitted())

	// Output: Initially fitted: false
	// After fit: true (mean=42)
	// After Reset: false
}

// ExampleStateManager records the training shape alongside the fitted flag
func ExampleStateManager() {
	state := model.NewStateManager()
	state.SetDimensions(3, 130)
	state.SetFitted()

	nFeatures, nSamples := state.GetDimensions()
	fmt.Println(state.IsFitted(), nFeatures, nSamples)

	// Output: true 3 130
}
