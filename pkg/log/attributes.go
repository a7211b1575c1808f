// Package log defines standard attribute keys for machine learning operations.
//
// Using these keys consistently enables structured analysis and filtering of
// pipeline logs (e.g. all records for one run ID, or all fit operations).

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of machine learning model.
	// Examples: "ElasticNet"
	ModelNameKey = "model.name"

	// OperationKey specifies the machine learning operation being performed.
	// Standard values: "fit", "predict", "score", "evaluate"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package emitted the record.
	// Examples: "experiment", "tracking.filestore", "dataset"
	ComponentKey = "component"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"
)

// Tracking Context
const (
	// RunIDKey identifies the tracking run every write is attributed to.
	RunIDKey = "run.id"

	// TrackingURIKey records the configured tracking endpoint.
	TrackingURIKey = "tracking.uri"

	// RegisteredModelKey records the registry name a model was registered under.
	RegisteredModelKey = "registry.model_name"
)

// Hyperparameters and Metrics
const (
	// AlphaKey records the overall regularization strength.
	AlphaKey = "hyperparams.alpha"

	// L1RatioKey records the L1/L2 penalty mixture.
	L1RatioKey = "hyperparams.l1_ratio"

	// RMSEKey records root-mean-squared error on the held-out test set.
	RMSEKey = "metrics.rmse"

	// MAEKey records mean absolute error on the held-out test set.
	MAEKey = "metrics.mae"

	// R2ScoreKey records the R² coefficient of determination.
	R2ScoreKey = "metrics.r2_score"
)

// Standard attribute value constants for common operations.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"
)
