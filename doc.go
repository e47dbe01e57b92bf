// Package scigosvm provides kernel support vector machines for Go: a
// sequential minimal optimization (SMO) solver with second order working set
// selection and shrinking, epsilon-SVR, nu-SVR and binary C-SVC, behind a
// scikit-learn-like API.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/scigo-svm/sklearn/svm"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
//	    y := mat.NewDense(4, 1, []float64{2, 4, 6, 8})
//
//	    reg := svm.NewSVR(svm.WithEpsilonSVR(10, 0.01), svm.WithKernel("linear"))
//	    if err := reg.Fit(X, y); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    pred, err := reg.Predict(mat.NewDense(2, 1, []float64{5, 6}))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(mat.Formatted(pred))
//	}
//
// # Packages
//
//   - sklearn/svm: SVR and SVC estimators, and the generic solver underneath
//     (Problem, Solver, Model, FitEpsilon, FitNu, FitClassification, FitPlatt)
//   - kernel: kernel functions, Gram and lazy kernel sources, the LRU column
//     cache and the signed column provider used by the solver
//   - preprocessing: StandardScaler and MinMaxScaler
//   - metrics: regression and classification metrics
//   - core/model: estimator interfaces, fitted-state tracking, weight export
//   - core/parallel: index-range parallelism
//   - pkg/errors: error types, warnings and panic recovery
//   - pkg/log: zerolog-backed structured logging
//   - pkg/monitoring: Prometheus training metrics
//
// # Precision
//
// The low-level API is generic over float32 and float64 kernel values
// (kernel.Float). The solver state is always float64; float32 halves the
// memory of kernel columns.
//
// # Convergence
//
// A fit that reaches the iteration cap is not an error. The model is kept,
// and a *errors.ConvergenceWarning is emitted through errors.Warn and is
// available from the estimator's ConvergenceWarning method.
package scigosvm
