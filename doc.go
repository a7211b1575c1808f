// Package winetrack trains an ElasticNet regressor on the wine-quality
// dataset and records every training run in an experiment-tracking store.
//
// The repository is organised as a small set of library packages plus one CLI:
//
//   - dataset: fetching and splitting the semicolon-delimited wine CSV
//   - linear: coordinate-descent ElasticNet with a scikit-learn-like API
//   - metrics: regression metrics (RMSE, MAE, R²)
//   - tracking: run-scoped tracking clients (directory, REST, SQLite)
//   - experiment: the end-to-end training workflow
//   - cmd/winetrack: the command-line entry point
//
// # Quick Start
//
// Train with the default hyperparameters and a local file store:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := experiment.Run(context.Background(), cfg, 0.5, 0.5)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.RMSE, result.MAE, result.R2)
//
// The tracking backend is chosen by URI: file://mlruns writes a local
// directory tree, http://host:5000 talks to an mlflow-compatible server, and
// sqlite:///tracking.db keeps runs in a single database file. Whether a
// trained model can be registered under a name is a capability of the chosen
// store, not of the URI.
package winetrack
