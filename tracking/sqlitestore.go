package tracking

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/YuminosukeSato/winetrack/pkg/errors"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	experiment_id TEXT NOT NULL,
	status        TEXT NOT NULL,
	start_time    INTEGER NOT NULL,
	end_time      INTEGER,
	artifact_uri  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS params (
	run_id TEXT NOT NULL,
	key    TEXT NOT NULL,
	value  TEXT NOT NULL,
	PRIMARY KEY (run_id, key)
);
CREATE TABLE IF NOT EXISTS metrics (
	run_id    TEXT NOT NULL,
	key       TEXT NOT NULL,
	value     REAL NOT NULL,
	timestamp INTEGER NOT NULL,
	step      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS tags (
	run_id TEXT NOT NULL,
	key    TEXT NOT NULL,
	value  TEXT NOT NULL,
	PRIMARY KEY (run_id, key)
);
CREATE TABLE IF NOT EXISTS registered_models (
	name TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS model_versions (
	name      TEXT NOT NULL,
	version   INTEGER NOT NULL,
	run_id    TEXT NOT NULL,
	source    TEXT NOT NULL,
	signature TEXT,
	PRIMARY KEY (name, version)
);
`

// SQLiteStore persists runs and the model registry in a single SQLite
// database. Artifacts are kept as files in an "artifacts" directory next to
// the database, keyed by run ID.
type SQLiteStore struct {
	db          *sql.DB
	artifactDir string
}

var _ ModelRegistry = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and initializes if needed) a SQLite-backed tracking
// store at the given database path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.NewValueError("NewSQLiteStore", "database path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open tracking database")
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to initialize tracking schema")
	}

	artifactDir := filepath.Join(filepath.Dir(path), "artifacts")
	if err := os.MkdirAll(artifactDir, 0o755); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create artifact directory")
	}
	return &SQLiteStore{db: db, artifactDir: artifactDir}, nil
}

// Kind returns "sqlite".
func (s *SQLiteStore) Kind() string { return "sqlite" }

// CreateRun inserts a new RUNNING row and allocates the run's artifact
// directory.
func (s *SQLiteStore) CreateRun(ctx context.Context, experiment string) (*RunInfo, error) {
	if experiment == "" {
		experiment = "default"
	}

	info := &RunInfo{
		RunID:        newRunID(),
		ExperimentID: experiment,
		Status:       RunStatusRunning,
		StartTime:    time.Now(),
	}
	info.ArtifactURI = filepath.Join(s.artifactDir, info.RunID)
	if err := os.MkdirAll(info.ArtifactURI, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create run artifact directory")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, experiment_id, status, start_time, artifact_uri) VALUES (?, ?, ?, ?, ?)`,
		info.RunID, info.ExperimentID, string(info.Status), info.StartTime.UnixMilli(), info.ArtifactURI)
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert run")
	}
	return info, nil
}

// LogParam upserts one parameter row.
func (s *SQLiteStore) LogParam(ctx context.Context, runID, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO params (run_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (run_id, key) DO UPDATE SET value = excluded.value`,
		runID, key, value)
	return errors.Wrap(err, "failed to insert param")
}

// LogMetric appends one metric observation row.
func (s *SQLiteStore) LogMetric(ctx context.Context, runID string, metric Metric) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metrics (run_id, key, value, timestamp, step) VALUES (?, ?, ?, ?, ?)`,
		runID, metric.Key, metric.Value, metric.Timestamp, metric.Step)
	return errors.Wrap(err, "failed to insert metric")
}

// SetTag upserts one tag row.
func (s *SQLiteStore) SetTag(ctx context.Context, runID, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tags (run_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (run_id, key) DO UPDATE SET value = excluded.value`,
		runID, key, value)
	return errors.Wrap(err, "failed to insert tag")
}

// LogArtifact stores the bytes in the run's artifact directory.
func (s *SQLiteStore) LogArtifact(ctx context.Context, runID, path string, data []byte) error {
	target := filepath.Join(s.artifactDir, runID, filepath.FromSlash(path))
	if !strings.HasPrefix(target, filepath.Join(s.artifactDir, runID)) {
		return errors.NewValueError("SQLiteStore.LogArtifact", "artifact path escapes the run directory")
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Wrap(err, "failed to create artifact directory")
	}
	return errors.Wrap(os.WriteFile(target, data, 0o644), "failed to write artifact")
}

// UpdateRun commits the run's terminal status and end time.
func (s *SQLiteStore) UpdateRun(ctx context.Context, runID string, status RunStatus, endTime time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, end_time = ? WHERE run_id = ?`,
		string(status), endTime.UnixMilli(), runID)
	if err != nil {
		return errors.Wrap(err, "failed to update run")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to update run")
	}
	if n == 0 {
		return errors.Newf("run %s not found", runID)
	}
	return nil
}

// RegisterModel creates the registered model row if needed and inserts the
// next version for it.
func (s *SQLiteStore) RegisterModel(ctx context.Context, name, runID, source string, sig *Signature) (*ModelVersion, error) {
	if name == "" {
		return nil, errors.NewValueError("SQLiteStore.RegisterModel", "model name is empty")
	}

	var sigJSON []byte
	if sig != nil {
		var err error
		sigJSON, err = sig.JSON()
		if err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin registry transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO registered_models (name) VALUES (?) ON CONFLICT (name) DO NOTHING`, name); err != nil {
		return nil, errors.Wrap(err, "failed to create registered model")
	}

	var version int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM model_versions WHERE name = ?`, name).Scan(&version)
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate model version")
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO model_versions (name, version, run_id, source, signature) VALUES (?, ?, ?, ?, ?)`,
		name, version, runID, source, string(sigJSON)); err != nil {
		return nil, errors.Wrap(err, "failed to insert model version")
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit registry transaction")
	}
	return &ModelVersion{Name: name, Version: version, RunID: runID, Source: source}, nil
}

// GetModelVersion reads one registered version back, mainly for inspection
// and tests.
func (s *SQLiteStore) GetModelVersion(ctx context.Context, name string, version int) (*ModelVersion, error) {
	mv := &ModelVersion{Name: name, Version: version}
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, source FROM model_versions WHERE name = ? AND version = ?`,
		name, version).Scan(&mv.RunID, &mv.Source)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read model version")
	}
	return mv, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return errors.Wrap(s.db.Close(), "failed to close tracking database")
}
