package errors_test

import (
	"errors"
	"fmt"
	"testing"

	fcErrors "github.com/ezoic/forestcal/pkg/errors"
)

// TestErrorWrappingCompatibility tests Go 1.13+ error wrapping with our custom types
func TestErrorWrappingCompatibility(t *testing.T) {
	originalErr := fcErrors.NewNotFittedError("TestModel", "Predict")
	wrappedErr := fmt.Errorf("pipeline step failed: %w", originalErr)

	if !errors.Is(wrappedErr, originalErr) {
		t.Errorf("errors.Is failed to identify wrapped error")
	}

	var notFittedErr *fcErrors.NotFittedError
	if !errors.As(wrappedErr, &notFittedErr) {
		t.Fatalf("errors.As failed to extract NotFittedError")
	}
	if notFittedErr.ModelName != "TestModel" {
		t.Errorf("expected ModelName 'TestModel', got '%s'", notFittedErr.ModelName)
	}
}

// TestCombinedErrorTypes tests mixing custom and standard errors
func TestCombinedErrorTypes(t *testing.T) {
	stdErr := fmt.Errorf("standard error")
	customErr := fcErrors.NewModelError("TestOp", "test failure", stdErr)
	wrappedErr := fmt.Errorf("operation context: %w", customErr)

	if !errors.Is(wrappedErr, stdErr) {
		t.Errorf("failed to find standard error in chain")
	}

	var modelErr *fcErrors.ModelError
	if !errors.As(wrappedErr, &modelErr) {
		t.Fatalf("failed to extract ModelError")
	}
	if errors.Unwrap(modelErr) != stdErr {
		t.Errorf("ModelError.Unwrap did not return the cause")
	}
}

func TestDataError(t *testing.T) {
	cause := fmt.Errorf("unexpected EOF")
	err := fcErrors.NewDataError("dataset.LoadCSV", "failed to parse CSV", cause)

	if !fcErrors.IsDataError(err) {
		t.Errorf("IsDataError = false, want true")
	}
	if !errors.Is(err, cause) {
		t.Errorf("cause not reachable through DataError")
	}
	if fcErrors.IsConfigError(err) {
		t.Errorf("DataError reported as ConfigError")
	}

	tooLarge := fcErrors.NewDataError("dataset.LoadFile", "250.0MB exceeds limit", fcErrors.ErrFileTooLarge)
	if !errors.Is(tooLarge, fcErrors.ErrFileTooLarge) {
		t.Errorf("ErrFileTooLarge not reachable")
	}
}

func TestConfigErrorMissing(t *testing.T) {
	err := fcErrors.NewConfigError("Roles.Validate", "target column must be set")
	if got, want := err.Error(), "forestcal: Roles.Validate: target column must be set"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	var cfg *fcErrors.ConfigError
	if !errors.As(err, &cfg) {
		t.Fatalf("errors.As failed to extract ConfigError")
	}
	if len(cfg.Missing) != 0 {
		t.Errorf("Missing = %v, want empty", cfg.Missing)
	}
}

func TestRecover(t *testing.T) {
	run := func() (err error) {
		defer fcErrors.Recover(&err, "Tree.Build")
		var s []int
		_ = s[3]
		return nil
	}

	err := run()
	if err == nil {
		t.Fatal("expected panic to be converted into an error")
	}
	var modelErr *fcErrors.ModelError
	if !errors.As(err, &modelErr) {
		t.Fatalf("expected ModelError, got %T", err)
	}
	if modelErr.Op != "Tree.Build" {
		t.Errorf("Op = %q, want Tree.Build", modelErr.Op)
	}

	noPanic := func() (err error) {
		defer fcErrors.Recover(&err, "noop")
		return nil
	}
	if err := noPanic(); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}
