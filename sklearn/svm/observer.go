package svm

import "time"

// FitReport summarises one estimator Fit call.
type FitReport struct {
	Model       string
	EstimatorID string
	Status      Status
	Iterations  int
	NSupport    int
	Duration    time.Duration
	CacheHits   int64
	CacheMisses int64
}

// Observer receives a report after every successful Fit, including fits
// that stopped at the iteration limit.
type Observer interface {
	ObserveFit(report FitReport)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(report FitReport)

func (f ObserverFunc) ObserveFit(report FitReport) { f(report) }
