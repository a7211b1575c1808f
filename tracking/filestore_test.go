package tracking

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileStoreCreateRunLayout(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "mlruns"))
	require.NoError(t, err)

	info, err := store.CreateRun(context.Background(), "wine-quality")
	require.NoError(t, err)
	require.Len(t, info.RunID, 32)
	require.Equal(t, RunStatusRunning, info.Status)

	runDir := filepath.Join(store.Root(), "wine-quality", info.RunID)
	for _, sub := range []string{"params", "metrics", "tags", "artifacts"} {
		require.DirExists(t, filepath.Join(runDir, sub))
	}
	require.FileExists(t, filepath.Join(runDir, "meta.json"))
	require.Equal(t, filepath.Join(runDir, "artifacts"), info.ArtifactURI)
}

func TestFileStoreDefaultExperiment(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "mlruns"))
	require.NoError(t, err)

	info, err := store.CreateRun(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "default", info.ExperimentID)
}

func TestFileStoreWrites(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "mlruns"))
	require.NoError(t, err)

	info, err := store.CreateRun(ctx, "wine-quality")
	require.NoError(t, err)
	runDir := filepath.Join(store.Root(), "wine-quality", info.RunID)

	require.NoError(t, store.LogParam(ctx, info.RunID, "alpha", "0.5"))
	got, err := os.ReadFile(filepath.Join(runDir, "params", "alpha"))
	require.NoError(t, err)
	require.Equal(t, "0.5", string(got))

	require.NoError(t, store.LogMetric(ctx, info.RunID, Metric{Key: "rmse", Value: 0.75, Timestamp: 1234, Step: 0}))
	got, err = os.ReadFile(filepath.Join(runDir, "metrics", "rmse"))
	require.NoError(t, err)
	require.Equal(t, "1234 0.75 0\n", string(got))

	require.NoError(t, store.SetTag(ctx, info.RunID, "source", "winetrack"))
	got, err = os.ReadFile(filepath.Join(runDir, "tags", "source"))
	require.NoError(t, err)
	require.Equal(t, "winetrack", string(got))

	require.NoError(t, store.LogArtifact(ctx, info.RunID, "model/model.json", []byte(`{}`)))
	require.FileExists(t, filepath.Join(runDir, "artifacts", "model", "model.json"))
}

func TestFileStoreUpdateRun(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "mlruns"))
	require.NoError(t, err)

	info, err := store.CreateRun(ctx, "wine-quality")
	require.NoError(t, err)

	end := time.Now()
	require.NoError(t, store.UpdateRun(ctx, info.RunID, RunStatusFinished, end))

	data, err := os.ReadFile(filepath.Join(store.Root(), "wine-quality", info.RunID, "meta.json"))
	require.NoError(t, err)
	var updated RunInfo
	require.NoError(t, json.Unmarshal(data, &updated))
	require.Equal(t, RunStatusFinished, updated.Status)
	require.NotNil(t, updated.EndTime)
}

func TestFileStoreUnknownRun(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "mlruns"))
	require.NoError(t, err)

	err = store.LogParam(context.Background(), "deadbeef", "alpha", "0.5")
	require.Error(t, err)
}

func TestFileStoreHasNoRegistry(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "mlruns"))
	require.NoError(t, err)

	var s Store = store
	_, ok := s.(ModelRegistry)
	require.False(t, ok)
}

func TestSanitizeComponent(t *testing.T) {
	require.Equal(t, "wine_quality", sanitizeComponent("wine/quality"))
	require.Equal(t, "_", sanitizeComponent(""))
	require.Equal(t, "a_b", sanitizeComponent("a b"))
}
