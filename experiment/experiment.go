// Package experiment runs the wine-quality training workflow end to end:
// fetch the dataset, split it, fit an ElasticNet model, evaluate it on the
// held-out rows, and record everything in one tracking run. When the tracking
// backend has a model registry the fitted model is registered there as well.
package experiment

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/YuminosukeSato/winetrack/config"
	"github.com/YuminosukeSato/winetrack/dataset"
	"github.com/YuminosukeSato/winetrack/linear"
	"github.com/YuminosukeSato/winetrack/metrics"
	"github.com/YuminosukeSato/winetrack/pkg/errors"
	"github.com/YuminosukeSato/winetrack/pkg/log"
	"github.com/YuminosukeSato/winetrack/tracking"
)

// TargetColumn is the prediction target in the wine-quality schema.
const TargetColumn = "quality"

// PlotArtifactPath is where the predicted-vs-actual scatter plot is stored,
// relative to the run's artifact root.
const PlotArtifactPath = "plots/predicted_vs_actual.png"

// Result summarizes one completed experiment run.
type Result struct {
	RunID        string
	Alpha        float64
	L1Ratio      float64
	RMSE         float64
	MAE          float64
	R2           float64
	ModelVersion *tracking.ModelVersion
}

// Run executes the full training workflow against the configured dataset and
// tracking store. Exactly one tracking run is created; it ends FINISHED on
// success and FAILED when any step after its creation errors. A dataset that
// cannot be fetched or parsed aborts the workflow before any run exists.
func Run(ctx context.Context, cfg *config.Config, alpha, l1Ratio float64) (*Result, error) {
	logger := log.GetLoggerWithName("experiment")

	table, err := dataset.Fetch(ctx, cfg.DatasetURL)
	if err != nil {
		return nil, err
	}
	logger.Info("dataset loaded",
		slog.Int(log.SamplesKey, table.NumRows()),
		slog.Int(log.FeaturesKey, table.NumColumns()-1),
	)

	store, err := tracking.Open(cfg.TrackingURI)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	run, err := tracking.StartRun(ctx, store, cfg.Experiment)
	if err != nil {
		return nil, err
	}
	logger.Info("run started",
		slog.String(log.RunIDKey, run.ID()),
		slog.String(log.TrackingURIKey, cfg.TrackingURI),
	)

	result, err := train(ctx, cfg, logger, table, run, store, alpha, l1Ratio)
	if err != nil {
		run.Fail(ctx)
		return nil, err
	}
	if err := run.End(ctx, tracking.RunStatusFinished); err != nil {
		return nil, err
	}
	return result, nil
}

// train performs every step that belongs to the open run. Splitting it out
// keeps the run-termination bookkeeping in Run in one place.
func train(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	table *dataset.Table,
	run *tracking.Run,
	store tracking.Store,
	alpha, l1Ratio float64,
) (*Result, error) {
	train, test, err := table.Split(cfg.TestSize, cfg.Seed)
	if err != nil {
		return nil, err
	}
	trainX, trainY, err := train.SeparateTarget(TargetColumn)
	if err != nil {
		return nil, err
	}
	testX, testY, err := test.SeparateTarget(TargetColumn)
	if err != nil {
		return nil, err
	}

	model := linear.NewElasticNet(alpha, l1Ratio)
	if err := model.Fit(trainX.Matrix(), trainY); err != nil {
		return nil, err
	}
	logger.Info("model fitted",
		slog.String(log.ModelNameKey, "ElasticNet"),
		slog.String(log.OperationKey, log.OperationFit),
		slog.Float64(log.AlphaKey, alpha),
		slog.Float64(log.L1RatioKey, l1Ratio),
	)

	preds, err := model.PredictVec(testX.Matrix())
	if err != nil {
		return nil, err
	}
	rmse, mae, r2, err := metrics.Evaluate(testY, preds)
	if err != nil {
		return nil, err
	}
	logger.Info("model evaluated",
		slog.Float64(log.RMSEKey, rmse),
		slog.Float64(log.MAEKey, mae),
		slog.Float64(log.R2ScoreKey, r2),
	)

	if err := run.LogParam(ctx, "alpha", fmt.Sprintf("%g", alpha)); err != nil {
		return nil, err
	}
	if err := run.LogParam(ctx, "l1_ratio", fmt.Sprintf("%g", l1Ratio)); err != nil {
		return nil, err
	}
	if err := run.LogMetric(ctx, "rmse", rmse); err != nil {
		return nil, err
	}
	if err := run.LogMetric(ctx, "mae", mae); err != nil {
		return nil, err
	}
	if err := run.LogMetric(ctx, "r2", r2); err != nil {
		return nil, err
	}

	sig, err := tracking.InferSignature(testX, preds)
	if err != nil {
		return nil, err
	}

	var serialized bytes.Buffer
	if err := model.ExportToSKLearnWriter(&serialized); err != nil {
		return nil, err
	}
	if err := run.LogModel(ctx, serialized.Bytes(), sig); err != nil {
		return nil, err
	}

	plotPNG, err := renderPredictionPlot(testY, preds)
	if err != nil {
		return nil, err
	}
	if err := run.LogArtifact(ctx, PlotArtifactPath, plotPNG); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:   run.ID(),
		Alpha:   alpha,
		L1Ratio: l1Ratio,
		RMSE:    rmse,
		MAE:     mae,
		R2:      r2,
	}

	// Registry support is a capability of the store, not of the URI scheme.
	registry, ok := store.(tracking.ModelRegistry)
	if !ok {
		errors.Warn(errors.NewRegistryUnavailableWarning(store.Kind()))
		return result, nil
	}

	source := fmt.Sprintf("runs:/%s/model", run.ID())
	version, err := registry.RegisterModel(ctx, cfg.ModelName, run.ID(), source, sig)
	if err != nil {
		return nil, err
	}
	result.ModelVersion = version
	logger.Info("model registered",
		slog.String(log.RegisteredModelKey, version.Name),
		slog.Int("registry.version", version.Version),
	)
	return result, nil
}
