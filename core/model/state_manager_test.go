package model

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
)

func TestStateManager(t *testing.T) {
	sm := NewStateManager("SVR")

	err := sm.RequireFitted("Predict")
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
	assert.Equal(t, "SVR", nf.ModelName)
	assert.Equal(t, "Predict", nf.Method)

	sm.SetFitted(3, 100)
	assert.True(t, sm.IsFitted())
	f, s := sm.GetDimensions()
	assert.Equal(t, 3, f)
	assert.Equal(t, 100, s)
	assert.NoError(t, sm.CheckFeatures("Predict", 3))

	err = sm.CheckFeatures("Predict", 4)
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	sm.Reset()
	assert.False(t, sm.IsFitted())
	assert.Error(t, sm.CheckFeatures("Predict", 3))
}

func TestStateManagerConcurrent(t *testing.T) {
	sm := NewStateManager("SVC")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			sm.SetFitted(n, n)
		}(i)
		go func() {
			defer wg.Done()
			_ = sm.IsFitted()
			_, _ = sm.GetDimensions()
		}()
	}
	wg.Wait()
	assert.True(t, sm.IsFitted())
}
