package tracking

import (
	"bytes"
	"context"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/YuminosukeSato/winetrack/pkg/errors"
)

// Artifact paths of a logged model, relative to the run's artifact root.
const (
	ModelArtifactPath     = "model/model.json.xz"
	SignatureArtifactPath = "model/signature.json"
)

// Run is an explicit handle on one open tracking run.
//
// Every write method attributes its record to this run's ID. After End (or
// Fail) has been called the handle is closed and further writes return
// ErrRunFinished.
type Run struct {
	store    Store
	info     *RunInfo
	finished bool
}

// StartRun opens a new run on the store and returns its handle.
func StartRun(ctx context.Context, store Store, experiment string) (*Run, error) {
	info, err := store.CreateRun(ctx, experiment)
	if err != nil {
		return nil, errors.NewTrackingError("create-run", "", err)
	}
	return &Run{store: store, info: info}, nil
}

// ID returns the run identifier every write is attributed to.
func (r *Run) ID() string {
	return r.info.RunID
}

// Info returns a copy of the run's descriptor.
func (r *Run) Info() RunInfo {
	return *r.info
}

func (r *Run) guard(op string) error {
	if r.finished {
		return errors.NewTrackingError(op, r.info.RunID, errors.ErrRunFinished)
	}
	return nil
}

// LogParam records one named hyperparameter.
func (r *Run) LogParam(ctx context.Context, key, value string) error {
	if err := r.guard("log-param"); err != nil {
		return err
	}
	if err := r.store.LogParam(ctx, r.info.RunID, key, value); err != nil {
		return errors.NewTrackingError("log-param", r.info.RunID, err)
	}
	return nil
}

// LogMetric records one named metric observation at step 0.
func (r *Run) LogMetric(ctx context.Context, key string, value float64) error {
	if err := r.guard("log-metric"); err != nil {
		return err
	}
	metric := Metric{Key: key, Value: value, Timestamp: nowMillis(), Step: 0}
	if err := r.store.LogMetric(ctx, r.info.RunID, metric); err != nil {
		return errors.NewTrackingError("log-metric", r.info.RunID, err)
	}
	return nil
}

// SetTag records one named tag.
func (r *Run) SetTag(ctx context.Context, key, value string) error {
	if err := r.guard("set-tag"); err != nil {
		return err
	}
	if err := r.store.SetTag(ctx, r.info.RunID, key, value); err != nil {
		return errors.NewTrackingError("set-tag", r.info.RunID, err)
	}
	return nil
}

// LogArtifact stores raw bytes under the given run-relative path.
func (r *Run) LogArtifact(ctx context.Context, path string, data []byte) error {
	if err := r.guard("log-artifact"); err != nil {
		return err
	}
	if err := r.store.LogArtifact(ctx, r.info.RunID, path, data); err != nil {
		return errors.NewTrackingError("log-artifact", r.info.RunID, err)
	}
	return nil
}

// LogModel stores a serialized model plus its inferred signature as run
// artifacts. The model bytes are xz-compressed; the signature is stored
// verbatim as JSON so serving-time validators can read it without the model.
func (r *Run) LogModel(ctx context.Context, serialized []byte, sig *Signature) error {
	if err := r.guard("log-model"); err != nil {
		return err
	}
	if sig == nil {
		return errors.NewValueError("Run.LogModel", "signature is required")
	}

	var compressed bytes.Buffer
	w, err := xz.NewWriter(&compressed)
	if err != nil {
		return errors.NewTrackingError("log-model", r.info.RunID, err)
	}
	if _, err := w.Write(serialized); err != nil {
		return errors.NewTrackingError("log-model", r.info.RunID, err)
	}
	if err := w.Close(); err != nil {
		return errors.NewTrackingError("log-model", r.info.RunID, err)
	}

	if err := r.LogArtifact(ctx, ModelArtifactPath, compressed.Bytes()); err != nil {
		return err
	}

	sigJSON, err := sig.JSON()
	if err != nil {
		return errors.NewTrackingError("log-model", r.info.RunID, err)
	}
	return r.LogArtifact(ctx, SignatureArtifactPath, sigJSON)
}

// End commits the run with the given terminal status and closes the handle.
func (r *Run) End(ctx context.Context, status RunStatus) error {
	if err := r.guard("update-run"); err != nil {
		return err
	}
	end := time.Now()
	if err := r.store.UpdateRun(ctx, r.info.RunID, status, end); err != nil {
		return errors.NewTrackingError("update-run", r.info.RunID, err)
	}
	r.info.Status = status
	r.info.EndTime = &end
	r.finished = true
	return nil
}

// Fail marks the run FAILED. It is safe to call after End, in which case it
// does nothing; errors are swallowed because Fail runs on error paths.
func (r *Run) Fail(ctx context.Context) {
	if r.finished {
		return
	}
	_ = r.End(ctx, RunStatusFailed)
}
