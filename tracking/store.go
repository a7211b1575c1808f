// Package tracking provides experiment-tracking clients with explicit run
// handles. A Run scopes every parameter, metric and artifact write to one run
// ID; a Store persists those writes to a concrete backend (local directory,
// mlflow-compatible REST server, or SQLite database). Model-registry support
// is a capability of the store, discovered with a type assertion rather than
// by inspecting the tracking URI scheme.
package tracking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

// RunStatus is the lifecycle state of a tracking run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "RUNNING"
	RunStatusFinished RunStatus = "FINISHED"
	RunStatusFailed   RunStatus = "FAILED"
	RunStatusKilled   RunStatus = "KILLED"
)

// RunInfo describes one tracking run.
type RunInfo struct {
	RunID        string     `json:"run_id"`
	ExperimentID string     `json:"experiment_id"`
	Status       RunStatus  `json:"status"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	ArtifactURI  string     `json:"artifact_uri,omitempty"`
}

// Metric is a single named metric observation.
type Metric struct {
	Key       string  `json:"key"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
	Step      int64   `json:"step"`
}

// ModelVersion is one registered version of a named model.
type ModelVersion struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
	RunID   string `json:"run_id"`
	Source  string `json:"source"`
}

// Store is the write interface every tracking backend implements.
//
// All writes are attributed to a run ID previously returned by CreateRun.
// Implementations are used by a single writer per process; they do not need
// to be safe for concurrent use.
type Store interface {
	// Kind names the backend ("file", "rest", "sqlite") for logs and warnings.
	Kind() string

	CreateRun(ctx context.Context, experiment string) (*RunInfo, error)
	LogParam(ctx context.Context, runID, key, value string) error
	LogMetric(ctx context.Context, runID string, metric Metric) error
	SetTag(ctx context.Context, runID, key, value string) error
	LogArtifact(ctx context.Context, runID, path string, data []byte) error
	UpdateRun(ctx context.Context, runID string, status RunStatus, endTime time.Time) error

	Close() error
}

// ModelRegistry is the optional registry capability of a Store.
//
// Callers discover it with a type assertion:
//
//	if registry, ok := store.(tracking.ModelRegistry); ok {
//	    registry.RegisterModel(ctx, name, runID, source, sig)
//	}
type ModelRegistry interface {
	RegisterModel(ctx context.Context, name, runID, source string, sig *Signature) (*ModelVersion, error)
}

// newRunID returns a 32-character hex run identifier.
func newRunID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// nowMillis returns the wall clock in milliseconds since the epoch.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}
