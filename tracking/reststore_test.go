package tracking

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeTrackingServer records the mlflow REST calls a RESTStore issues.
type fakeTrackingServer struct {
	mu          sync.Mutex
	experiments map[string]string
	params      map[string]string
	metrics     []Metric
	tags        map[string]string
	artifacts   map[string][]byte
	updated     map[string]string
	registered  map[string]int
}

func newFakeTrackingServer() *fakeTrackingServer {
	return &fakeTrackingServer{
		experiments: map[string]string{},
		params:      map[string]string{},
		tags:        map[string]string{},
		artifacts:   map[string][]byte{},
		updated:     map[string]string{},
		registered:  map[string]int{},
	}
}

func (f *fakeTrackingServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		require.NoError(t, json.NewEncoder(w).Encode(v))
	}
	decode := func(r *http.Request, v any) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(v))
	}

	mux.HandleFunc("/api/2.0/mlflow/experiments/get-by-name", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id, ok := f.experiments[r.URL.Query().Get("experiment_name")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error_code": "RESOURCE_DOES_NOT_EXIST",
				"message":    "experiment not found",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"experiment": map[string]string{"experiment_id": id},
		})
	})

	mux.HandleFunc("/api/2.0/mlflow/experiments/create", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		decode(r, &req)
		f.mu.Lock()
		f.experiments[req.Name] = "1"
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"experiment_id": "1"})
	})

	mux.HandleFunc("/api/2.0/mlflow/runs/create", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ExperimentID string `json:"experiment_id"`
		}
		decode(r, &req)
		require.Equal(t, "1", req.ExperimentID)
		writeJSON(w, http.StatusOK, map[string]any{
			"run": map[string]any{
				"info": map[string]string{
					"run_id":       "abc123",
					"artifact_uri": "mlflow-artifacts:/1/abc123/artifacts",
				},
			},
		})
	})

	mux.HandleFunc("/api/2.0/mlflow/runs/log-parameter", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ RunID, Key, Value string }
		decode(r, &req)
		f.mu.Lock()
		f.params[req.Key] = req.Value
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	mux.HandleFunc("/api/2.0/mlflow/runs/log-metric", func(w http.ResponseWriter, r *http.Request) {
		var req Metric
		decode(r, &req)
		f.mu.Lock()
		f.metrics = append(f.metrics, req)
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	mux.HandleFunc("/api/2.0/mlflow/runs/set-tag", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ RunID, Key, Value string }
		decode(r, &req)
		f.mu.Lock()
		f.tags[req.Key] = req.Value
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	mux.HandleFunc("/api/2.0/mlflow/runs/update", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RunID  string `json:"run_id"`
			Status string `json:"status"`
		}
		decode(r, &req)
		f.mu.Lock()
		f.updated[req.RunID] = req.Status
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	mux.HandleFunc("/api/2.0/mlflow/registered-models/create", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		decode(r, &req)
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, exists := f.registered[req.Name]; exists {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error_code": "RESOURCE_ALREADY_EXISTS",
				"message":    "model already exists",
			})
			return
		}
		f.registered[req.Name] = 0
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	mux.HandleFunc("/api/2.0/mlflow/model-versions/create", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		decode(r, &req)
		f.mu.Lock()
		f.registered[req.Name]++
		version := f.registered[req.Name]
		f.mu.Unlock()
		// The mlflow API renders versions as strings.
		writeJSON(w, http.StatusOK, map[string]any{
			"model_version": map[string]any{
				"version": strconv.Itoa(version),
			},
		})
	})

	mux.HandleFunc("/api/2.0/mlflow-artifacts/artifacts/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		f.mu.Lock()
		f.artifacts[r.URL.Path] = body
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

func TestRESTStoreCreateRunCreatesExperiment(t *testing.T) {
	fake := newFakeTrackingServer()
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	store := NewRESTStore(srv.URL)
	require.Equal(t, "rest", store.Kind())

	info, err := store.CreateRun(context.Background(), "wine-quality")
	require.NoError(t, err)
	require.Equal(t, "abc123", info.RunID)
	require.Equal(t, "1", info.ExperimentID)
	require.Equal(t, RunStatusRunning, info.Status)
	require.Equal(t, "1", fake.experiments["wine-quality"])
}

func TestRESTStoreWrites(t *testing.T) {
	ctx := context.Background()
	fake := newFakeTrackingServer()
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	store := NewRESTStore(srv.URL)
	info, err := store.CreateRun(ctx, "wine-quality")
	require.NoError(t, err)

	require.NoError(t, store.LogParam(ctx, info.RunID, "alpha", "0.5"))
	require.Equal(t, "0.5", fake.params["alpha"])

	require.NoError(t, store.LogMetric(ctx, info.RunID, Metric{Key: "rmse", Value: 0.75, Timestamp: 1234}))
	require.Len(t, fake.metrics, 1)
	require.Equal(t, "rmse", fake.metrics[0].Key)

	require.NoError(t, store.SetTag(ctx, info.RunID, "source", "winetrack"))
	require.Equal(t, "winetrack", fake.tags["source"])

	require.NoError(t, store.LogArtifact(ctx, info.RunID, "model/model.json.xz", []byte("payload")))
	require.Contains(t, fake.artifacts, "/api/2.0/mlflow-artifacts/artifacts/abc123/model/model.json.xz")

	require.NoError(t, store.UpdateRun(ctx, info.RunID, RunStatusFinished, info.StartTime))
	require.Equal(t, "FINISHED", fake.updated[info.RunID])
}

func TestRESTStoreRegisterModel(t *testing.T) {
	ctx := context.Background()
	fake := newFakeTrackingServer()
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	store := NewRESTStore(srv.URL)
	sig := &Signature{
		Inputs:  []ColSpec{{Name: "alcohol", Type: "double"}},
		Outputs: []ColSpec{{Type: "double"}},
	}

	mv, err := store.RegisterModel(ctx, "ElasticnetWineModel", "abc123", "runs:/abc123/model", sig)
	require.NoError(t, err)
	require.Equal(t, 1, mv.Version)

	// Registering against an existing model only adds a version.
	mv, err = store.RegisterModel(ctx, "ElasticnetWineModel", "def456", "runs:/def456/model", sig)
	require.NoError(t, err)
	require.Equal(t, 2, mv.Version)
}

func TestRESTStoreServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := NewRESTStore(srv.URL)
	err := store.LogParam(context.Background(), "abc123", "alpha", "0.5")
	require.Error(t, err)
}
