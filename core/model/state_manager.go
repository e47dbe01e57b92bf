package model

import (
	"sync"

	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
)

// StateManager tracks whether an estimator is fitted and the input shape it
// was fitted on. It is safe for concurrent use.
type StateManager struct {
	mu        sync.RWMutex
	modelName string
	fitted    bool
	nFeatures int
	nSamples  int
}

// NewStateManager creates a StateManager for the named estimator.
func NewStateManager(modelName string) *StateManager {
	return &StateManager{modelName: modelName}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// SetFitted marks the model as fitted on nSamples rows of nFeatures columns.
func (s *StateManager) SetFitted(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = true
	s.nFeatures = nFeatures
	s.nSamples = nSamples
}

// Reset forgets the fitted state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = false
	s.nFeatures = 0
	s.nSamples = 0
}

// GetDimensions returns the number of features and samples seen during fitting.
func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nFeatures, s.nSamples
}

// RequireFitted returns a NotFittedError naming method if the model is not fitted.
func (s *StateManager) RequireFitted(method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(s.modelName, method)
	}
	return nil
}

// CheckFeatures verifies that an input has the fitted number of columns.
func (s *StateManager) CheckFeatures(method string, nFeatures int) error {
	if err := s.RequireFitted(method); err != nil {
		return err
	}
	expected, _ := s.GetDimensions()
	if expected != nFeatures {
		return errors.NewDimensionError(s.modelName+"."+method, expected, nFeatures, 1)
	}
	return nil
}
