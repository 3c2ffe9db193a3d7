package metrics_test

import (
	"errors"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/forestcal/metrics"
)

// ExampleMSE demonstrates Mean Squared Error calculation
func ExampleMSE() {
	// calories burned vs predicted
	yTrue := mat.NewVecDense(4, []float64{250, 300, 350, 400})
	yPred := mat.NewVecDense(4, []float64{260, 290, 350, 400})

	mse, err := metrics.MSE(yTrue, yPred)
	if err != nil {
		slog.Error("Test failed", "error", err)
		return
	}

	fmt.Printf("MSE: %.3f\n", mse)

	// Output: MSE: 50.000
}

// ExampleRMSE demonstrates Root Mean Squared Error calculation
func ExampleRMSE() {
	yTrue := mat.NewVecDense(3, []float64{200, 350, 500})
	yPred := mat.NewVecDense(3, []float64{210, 340, 520})

	rmse, err := metrics.RMSE(yTrue, yPred)
	if err != nil {
		slog.Error("Test failed", "error", err)
		return
	}

	fmt.Printf("RMSE: %.2f\n", rmse)

	// Output: RMSE: 14.14
}

// ExampleMAE demonstrates Mean Absolute Error calculation
func ExampleMAE() {
	yTrue := mat.NewVecDense(4, []float64{250, 300, 410, 520})
	yPred := mat.NewVecDense(4, []float64{240, 310, 400, 530})

	mae, err := metrics.MAE(yTrue, yPred)
	if err != nil {
		slog.Error("Test failed", "error", err)
		return
	}

	fmt.Printf("MAE: %.2f\n", mae)

	// Output: MAE: 10.00
}

// ExampleR2Score_constantTarget shows the convention for a target without variance
func ExampleR2Score_constantTarget() {
	yTrue := mat.NewVecDense(3, []float64{300, 300, 300})

	perfect, _ := metrics.R2Score(yTrue, mat.NewVecDense(3, []float64{300, 300, 300}))
	off, _ := metrics.R2Score(yTrue, mat.NewVecDense(3, []float64{290, 300, 310}))

	fmt.Printf("%.1f %.1f\n", perfect, off)

	// Output: 1.0 0.0
}

// ExampleMAPE demonstrates Mean Absolute Percentage Error calculation
func ExampleMAPE() {
	yTrue := mat.NewVecDense(4, []float64{100, 200, 400, 500})
	yPred := mat.NewVecDense(4, []float64{110, 180, 400, 500})

	mape, err := metrics.MAPE(yTrue, yPred)
	if err != nil {
		slog.Error("Test failed", "error", err)
		return
	}

	fmt.Printf("MAPE: %.1f%%\n", mape)

	// Output: MAPE: 5.0%
}

// ExampleMAPE_zeroTarget shows that a single zero target makes MAPE undefined
func ExampleMAPE_zeroTarget() {
	yTrue := mat.NewVecDense(3, []float64{0, 200, 400})
	yPred := mat.NewVecDense(3, []float64{10, 190, 400})

	_, err := metrics.MAPE(yTrue, yPred)
	if errors.Is(err, metrics.ErrUndefinedMAPE) {
		fmt.Println("MAPE: n/a")
	}

	// Output: MAPE: n/a
}

// ExampleExplainedVarianceScore demonstrates explained variance score calculation
func ExampleExplainedVarianceScore() {
	yTrue := mat.NewVecDense(4, []float64{100, 200, 300, 400})
	yPred := mat.NewVecDense(4, []float64{110, 190, 310, 390})

	evs, err := metrics.ExplainedVarianceScore(yTrue, yPred)
	if err != nil {
		slog.Error("Test failed", "error", err)
		return
	}

	fmt.Printf("Explained Variance Score: %.3f\n", evs)

	// Output: Explained Variance Score: 0.992
}

// ExampleEvaluate compares a model against the mean baseline
func ExampleEvaluate() {
	yTest := []float64{300, 400, 500}
	yPred := []float64{310, 390, 500}
	yBaseline := []float64{400, 400, 400}

	ev, err := metrics.Evaluate(yTest, yPred, yBaseline)
	if err != nil {
		slog.Error("Test failed", "error", err)
		return
	}

	fmt.Printf("MAE %.2f vs baseline %.2f (delta %.2f)\n", ev.Model.MAE, ev.Baseline.MAE, ev.MAEDelta)
	fmt.Printf("R² %.3f vs baseline %.3f\n", ev.Model.R2, ev.Baseline.R2)
	fmt.Printf("MAPE %.2f%%\n", *ev.Model.MAPE)

	// Output:
	// MAE 6.67 vs baseline 66.67 (delta 60.00)
	// R² 0.990 vs baseline 0.000
	// MAPE 1.94%
}
