package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/YuminosukeSato/winetrack/pkg/errors"
)

// FileStore persists runs as a directory tree, mirroring the mlruns layout:
//
//	<root>/<experiment>/<run_id>/meta.json
//	<root>/<experiment>/<run_id>/params/<key>
//	<root>/<experiment>/<run_id>/metrics/<key>
//	<root>/<experiment>/<run_id>/tags/<key>
//	<root>/<experiment>/<run_id>/artifacts/<path>
//
// A FileStore has no model registry; models logged against it stay
// unregistered.
type FileStore struct {
	root string
}

// NewFileStore opens (and creates if needed) a file-backed tracking root.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, errors.NewValueError("NewFileStore", "root directory is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create tracking root")
	}
	return &FileStore{root: root}, nil
}

// Kind returns "file".
func (s *FileStore) Kind() string { return "file" }

// Root returns the tracking root directory.
func (s *FileStore) Root() string { return s.root }

func (s *FileStore) runDir(runID string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(s.root, "*", runID))
	if err != nil {
		return "", errors.Wrap(err, "failed to locate run directory")
	}
	if len(matches) == 0 {
		return "", errors.Newf("run %s not found under %s", runID, s.root)
	}
	return matches[0], nil
}

// CreateRun allocates a run directory and writes its initial metadata.
func (s *FileStore) CreateRun(ctx context.Context, experiment string) (*RunInfo, error) {
	if experiment == "" {
		experiment = "default"
	}
	experiment = sanitizeComponent(experiment)

	info := &RunInfo{
		RunID:        newRunID(),
		ExperimentID: experiment,
		Status:       RunStatusRunning,
		StartTime:    time.Now(),
	}

	dir := filepath.Join(s.root, experiment, info.RunID)
	for _, sub := range []string{"params", "metrics", "tags", "artifacts"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create run directory")
		}
	}
	info.ArtifactURI = filepath.Join(dir, "artifacts")

	if err := s.writeMeta(dir, info); err != nil {
		return nil, err
	}
	return info, nil
}

func (s *FileStore) writeMeta(dir string, info *RunInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal run metadata")
	}
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write run metadata")
	}
	return nil
}

// LogParam writes the value as the content of params/<key>.
func (s *FileStore) LogParam(ctx context.Context, runID, key, value string) error {
	dir, err := s.runDir(runID)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "params", sanitizeComponent(key))
	return errors.Wrap(os.WriteFile(path, []byte(value), 0o644), "failed to write param")
}

// LogMetric appends "<timestamp> <value> <step>" to metrics/<key>.
func (s *FileStore) LogMetric(ctx context.Context, runID string, metric Metric) error {
	dir, err := s.runDir(runID)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "metrics", sanitizeComponent(metric.Key))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "failed to open metric file")
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "%d %g %d\n", metric.Timestamp, metric.Value, metric.Step)
	return errors.Wrap(err, "failed to append metric")
}

// SetTag writes the value as the content of tags/<key>.
func (s *FileStore) SetTag(ctx context.Context, runID, key, value string) error {
	dir, err := s.runDir(runID)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "tags", sanitizeComponent(key))
	return errors.Wrap(os.WriteFile(path, []byte(value), 0o644), "failed to write tag")
}

// LogArtifact stores the bytes under artifacts/<path>.
func (s *FileStore) LogArtifact(ctx context.Context, runID, path string, data []byte) error {
	dir, err := s.runDir(runID)
	if err != nil {
		return err
	}
	target := filepath.Join(dir, "artifacts", filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Wrap(err, "failed to create artifact directory")
	}
	return errors.Wrap(os.WriteFile(target, data, 0o644), "failed to write artifact")
}

// UpdateRun rewrites the run metadata with its terminal status.
func (s *FileStore) UpdateRun(ctx context.Context, runID string, status RunStatus, endTime time.Time) error {
	dir, err := s.runDir(runID)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return errors.Wrap(err, "failed to read run metadata")
	}
	var info RunInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return errors.Wrap(err, "failed to parse run metadata")
	}

	info.Status = status
	info.EndTime = &endTime
	return s.writeMeta(dir, &info)
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error { return nil }

// sanitizeComponent keeps keys and experiment names safe as path components.
func sanitizeComponent(name string) string {
	replacer := strings.NewReplacer("/", "_", string(filepath.Separator), "_", "..", "_", " ", "_")
	cleaned := replacer.Replace(name)
	if cleaned == "" {
		cleaned = "_"
	}
	return cleaned
}
