package monitoring

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-svm/sklearn/svm"
)

func TestTrainingCollectorObserveFit(t *testing.T) {
	c := NewTrainingCollector("")
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	c.ObserveFit(svm.FitReport{Model: "SVR", Status: svm.StatusConverged, Iterations: 40, NSupport: 7,
		Duration: 20 * time.Millisecond, CacheHits: 3, CacheMisses: 5})
	c.ObserveFit(svm.FitReport{Model: "SVR", Status: svm.StatusIterationLimit, Iterations: 100, NSupport: 9})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.fits.WithLabelValues("SVR", "converged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fits.WithLabelValues("SVR", "iteration_limit")))
	assert.Equal(t, 9.0, testutil.ToFloat64(c.supportVectors.WithLabelValues("SVR")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.cacheRequests.WithLabelValues("SVR", "hit")))

	expected := `
# HELP svm_fits_total Completed fits by estimator and solver status.
# TYPE svm_fits_total counter
svm_fits_total{model="SVR",status="converged"} 1
svm_fits_total{model="SVR",status="iteration_limit"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "svm_fits_total"))
}

func TestTrainingCollectorWithEstimator(t *testing.T) {
	c := NewTrainingCollector("test")

	X := mat.NewDense(6, 1, []float64{0, 1, 2, 3, 4, 5})
	y := mat.NewDense(6, 1, []float64{0, 2, 4, 6, 8, 10})
	reg := svm.NewSVR(svm.WithEpsilonSVR(10, 0.1), svm.WithKernel("linear"), svm.WithObserver(c))
	require.NoError(t, reg.Fit(X, y))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.fits.WithLabelValues("SVR", "converged")))
	assert.Equal(t, float64(reg.Model().NSupport()), testutil.ToFloat64(c.supportVectors.WithLabelValues("SVR")))
	assert.Equal(t, 1, testutil.CollectAndCount(c, "test_svm_solver_iterations"))
}
