package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/YuminosukeSato/winetrack/pkg/errors"
)

const restTimeout = 30 * time.Second

// RESTStore talks to an mlflow-compatible tracking server over HTTP(S) using
// the 2.0 REST API. It supports the model registry.
type RESTStore struct {
	baseURL string
	client  *http.Client
}

var _ ModelRegistry = (*RESTStore)(nil)

// NewRESTStore creates a client for the tracking server at baseURL.
func NewRESTStore(baseURL string) *RESTStore {
	return &RESTStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: restTimeout},
	}
}

// Kind returns "rest".
func (s *RESTStore) Kind() string { return "rest" }

// apiError is the error envelope the tracking server returns.
type apiError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.Message)
}

// call issues one JSON request and decodes the response into out (when
// non-nil). Non-2xx responses are returned as *apiError when the server sent
// an error envelope.
func (s *RESTStore) call(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode request")
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "tracking server unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.ErrorCode != "" {
			return errors.WithStack(&apiErr)
		}
		return errors.Newf("tracking server returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return errors.Wrap(err, "failed to decode response")
		}
	}
	return nil
}

// experimentID resolves the experiment by name, creating it when missing.
func (s *RESTStore) experimentID(ctx context.Context, name string) (string, error) {
	if name == "" {
		name = "default"
	}

	var got struct {
		Experiment struct {
			ExperimentID string `json:"experiment_id"`
		} `json:"experiment"`
	}
	err := s.call(ctx, http.MethodGet,
		"/api/2.0/mlflow/experiments/get-by-name?experiment_name="+name, nil, &got)
	if err == nil {
		return got.Experiment.ExperimentID, nil
	}

	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.ErrorCode != "RESOURCE_DOES_NOT_EXIST" {
		return "", err
	}

	var created struct {
		ExperimentID string `json:"experiment_id"`
	}
	err = s.call(ctx, http.MethodPost, "/api/2.0/mlflow/experiments/create",
		map[string]string{"name": name}, &created)
	if err != nil {
		return "", err
	}
	return created.ExperimentID, nil
}

// CreateRun opens a run on the server.
func (s *RESTStore) CreateRun(ctx context.Context, experiment string) (*RunInfo, error) {
	expID, err := s.experimentID(ctx, experiment)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var created struct {
		Run struct {
			Info struct {
				RunID       string `json:"run_id"`
				ArtifactURI string `json:"artifact_uri"`
			} `json:"info"`
		} `json:"run"`
	}
	err = s.call(ctx, http.MethodPost, "/api/2.0/mlflow/runs/create", map[string]any{
		"experiment_id": expID,
		"start_time":    start.UnixMilli(),
	}, &created)
	if err != nil {
		return nil, err
	}

	return &RunInfo{
		RunID:        created.Run.Info.RunID,
		ExperimentID: expID,
		Status:       RunStatusRunning,
		StartTime:    start,
		ArtifactURI:  created.Run.Info.ArtifactURI,
	}, nil
}

// LogParam records one parameter on the server.
func (s *RESTStore) LogParam(ctx context.Context, runID, key, value string) error {
	return s.call(ctx, http.MethodPost, "/api/2.0/mlflow/runs/log-parameter", map[string]string{
		"run_id": runID,
		"key":    key,
		"value":  value,
	}, nil)
}

// LogMetric records one metric observation on the server.
func (s *RESTStore) LogMetric(ctx context.Context, runID string, metric Metric) error {
	return s.call(ctx, http.MethodPost, "/api/2.0/mlflow/runs/log-metric", map[string]any{
		"run_id":    runID,
		"key":       metric.Key,
		"value":     metric.Value,
		"timestamp": metric.Timestamp,
		"step":      metric.Step,
	}, nil)
}

// SetTag records one tag on the server.
func (s *RESTStore) SetTag(ctx context.Context, runID, key, value string) error {
	return s.call(ctx, http.MethodPost, "/api/2.0/mlflow/runs/set-tag", map[string]string{
		"run_id": runID,
		"key":    key,
		"value":  value,
	}, nil)
}

// LogArtifact uploads the bytes through the proxied artifact API.
func (s *RESTStore) LogArtifact(ctx context.Context, runID, path string, data []byte) error {
	url := fmt.Sprintf("%s/api/2.0/mlflow-artifacts/artifacts/%s/%s", s.baseURL, runID, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "failed to build artifact request")
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "tracking server unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Newf("artifact upload returned %s", resp.Status)
	}
	return nil
}

// UpdateRun commits the run's terminal status.
func (s *RESTStore) UpdateRun(ctx context.Context, runID string, status RunStatus, endTime time.Time) error {
	return s.call(ctx, http.MethodPost, "/api/2.0/mlflow/runs/update", map[string]any{
		"run_id":   runID,
		"status":   string(status),
		"end_time": endTime.UnixMilli(),
	}, nil)
}

// RegisterModel creates the named registered model if needed and adds a new
// version for the run's model artifact. The signature travels as a version
// tag so serving-time validators can fetch it from the registry alone.
func (s *RESTStore) RegisterModel(ctx context.Context, name, runID, source string, sig *Signature) (*ModelVersion, error) {
	err := s.call(ctx, http.MethodPost, "/api/2.0/mlflow/registered-models/create",
		map[string]string{"name": name}, nil)
	if err != nil {
		var apiErr *apiError
		// A pre-existing registered model only means we add another version.
		if !errors.As(err, &apiErr) || apiErr.ErrorCode != "RESOURCE_ALREADY_EXISTS" {
			return nil, err
		}
	}

	tags := []map[string]string{}
	if sig != nil {
		sigJSON, err := sig.JSON()
		if err != nil {
			return nil, err
		}
		tags = append(tags, map[string]string{"key": "signature", "value": string(sigJSON)})
	}

	var created struct {
		ModelVersion struct {
			Version string `json:"version"`
		} `json:"model_version"`
	}
	err = s.call(ctx, http.MethodPost, "/api/2.0/mlflow/model-versions/create", map[string]any{
		"name":   name,
		"run_id": runID,
		"source": source,
		"tags":   tags,
	}, &created)
	if err != nil {
		return nil, err
	}

	version, err := strconv.Atoi(created.ModelVersion.Version)
	if err != nil {
		return nil, errors.Wrapf(err, "unexpected model version %q", created.ModelVersion.Version)
	}
	return &ModelVersion{Name: name, Version: version, RunID: runID, Source: source}, nil
}

// Close is a no-op for the REST store.
func (s *RESTStore) Close() error { return nil }
