// Package log defines standard attribute keys for logging.
//
// Keys follow a hierarchical naming convention ("model.name",
// "data.samples", "svm.rho") so that log output can be filtered by prefix.
package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of estimator.
	// Examples: "SVR", "SVC"
	ModelNameKey = "model.name"

	// EstimatorIDKey is the UUID assigned to an estimator instance at construction.
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	// Examples: "svm", "kernel", "monitoring"
	ComponentKey = "ml.component"
)

// Data Shape
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
)

// Performance and training progress
const (
	DurationMsKey = "perf.duration_ms"
	R2ScoreKey    = "metrics.r2_score"
	AccuracyKey   = "metrics.accuracy"
	IterationKey  = "training.iteration"
)

// Training scores reported on the "fit completed" line.
const (
	RMSEKey = "metrics.rmse"
	MAEKey  = "metrics.mae"
	// EpsilonLossKey is the mean epsilon-insensitive loss of an SVR fit.
	EpsilonLossKey = "metrics.epsilon_loss"
	AUCKey         = "metrics.auc"
	// LogLossKey is the log loss of the Platt-calibrated probabilities.
	LogLossKey = "metrics.log_loss"
)

// Prediction context
const (
	PredsKey = "preds.count"
)

// Error context
const (
	ErrorCodeKey = "error.code"
	ErrorTypeKey = "error.type"
	// StacktraceKey is populated from cockroachdb/errors safe details.
	StacktraceKey = "error.stacktrace"
)

// Hyperparameters
const (
	HyperParamsKey    = "model.hyperparams"
	RegularizationKey = "hyperparams.regularization"
)

// SVM solver and model attributes.
const (
	// SVMNSupportKey is the number of support vectors of a fitted model.
	SVMNSupportKey = "svm.n_support"
	// SVMRhoKey is the fitted offset rho (the decision function subtracts it).
	SVMRhoKey = "svm.rho"
	// SVMStatusKey is "converged" or "iteration_limit".
	SVMStatusKey = "svm.status"
	// SVMObjectiveKey is the final dual objective value.
	SVMObjectiveKey = "svm.objective"
	// SVMViolationKey is the maximal KKT violation (Gmax + Gmin2).
	SVMViolationKey = "svm.violation"
	// SVMActiveSizeKey is the size of the active set after shrinking.
	SVMActiveSizeKey = "svm.active_size"
	// SVMKernelKey is the kernel name.
	SVMKernelKey = "svm.kernel"
	// SVMCacheHitsKey and SVMCacheMissesKey report kernel cache efficiency.
	SVMCacheHitsKey   = "svm.cache_hits"
	SVMCacheMissesKey = "svm.cache_misses"
)

// Standard attribute values.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"

	StatusConverged      = "converged"
	StatusIterationLimit = "iteration_limit"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorInvalidInput      = "INVALID_INPUT"
	ErrorConvergence       = "CONVERGENCE_FAILURE"
)
