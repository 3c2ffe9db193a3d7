package model

import "sync"

// StateManager tracks whether an estimator is fitted together with the input
// shape it was fitted on. It is safe for concurrent use, so a fitted model can
// serve predictions from several goroutines.
type StateManager struct {
	mu        sync.RWMutex
	fitted    bool
	nFeatures int
	nSamples  int
}

// NewStateManager returns an unfitted state.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// SetFitted marks the estimator as fitted.
func (s *StateManager) SetFitted() {
	s.mu.Lock()
	s.fitted = true
	s.mu.Unlock()
}

// IsFitted reports whether SetFitted has been called since the last Reset.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// SetDimensions records the training shape.
func (s *StateManager) SetDimensions(nFeatures, nSamples int) {
	s.mu.Lock()
	s.nFeatures = nFeatures
	s.nSamples = nSamples
	s.mu.Unlock()
}

// GetDimensions returns the training shape recorded by SetDimensions.
func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nFeatures, s.nSamples
}

// Reset clears the fitted flag and dimensions.
func (s *StateManager) Reset() {
	s.mu.Lock()
	s.fitted = false
	s.nFeatures = 0
	s.nSamples = 0
	s.mu.Unlock()
}
