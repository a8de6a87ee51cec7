// SPDX-License-Identifier: MPL-2.0

package mirror

import (
	"context"
	"testing"
	"time"

	"refit/internal/config"
	"refit/internal/engine"
	"refit/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// checkTestcontainersAvailable safely checks if testcontainers can be used.
func checkTestcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

// TestMirror_Integration exercises Push and Pull against a real MinIO
// instance. Requires Docker or Podman.
func TestMirror_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if !checkTestcontainersAvailable() {
		t.Skip("skipping mirror integration tests: testcontainers provider not available")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "minio/minio:latest",
			ExposedPorts: []string{"9000/tcp"},
			Cmd:          []string{"server", "/data"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     "refit-test",
				"MINIO_ROOT_PASSWORD": "refit-test-secret",
			},
			WaitingFor: wait.ForHTTP("/minio/health/live").
				WithPort("9000/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "")
	require.NoError(t, err)

	cfg := config.MirrorConfig{
		Endpoint:  endpoint,
		AccessKey: "refit-test",
		SecretKey: "refit-test-secret",
		Bucket:    "refit-cache",
		Region:    "us-east-1",
	}

	t.Run("PushThenPull", func(t *testing.T) {
		source := store.NewFSStore(t.TempDir())
		seedArtifact(t, source, "prior_pred_rt")
		seedArtifact(t, source, "fit_rt")

		src, err := New(cfg, source, nil)
		require.NoError(t, err)

		pushed, err := src.Push(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, pushed)

		// A fresh cache pulls both artifacts.
		target := store.NewFSStore(t.TempDir())
		dst, err := New(cfg, target, nil)
		require.NoError(t, err)

		pulled, err := dst.Pull(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, pulled)

		art, err := target.Load("prior_pred_rt")
		require.NoError(t, err)
		compiled, err := art.Compiled()
		require.NoError(t, err)
		assert.Equal(t, "stanc 2.35.0", compiled.EngineVersion)
	})

	t.Run("PullSkipsExistingArtifacts", func(t *testing.T) {
		target := store.NewFSStore(t.TempDir())
		seedArtifact(t, target, "prior_pred_rt")

		dst, err := New(cfg, target, nil)
		require.NoError(t, err)

		pulled, err := dst.Pull(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, pulled, "only fit_rt should be pulled")
	})

	t.Run("PushIsIdempotent", func(t *testing.T) {
		source := store.NewFSStore(t.TempDir())
		seedArtifact(t, source, "prior_pred_rt")

		src, err := New(cfg, source, nil)
		require.NoError(t, err)

		for i := 0; i < 2; i++ {
			pushed, err := src.Push(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, pushed)
		}
	})
}

func seedArtifact(t *testing.T, s *store.FSStore, name string) {
	t.Helper()

	compiled := &engine.CompiledArtifact{
		SpecKey:       "0123456789abcdef",
		EngineVersion: "stanc 2.35.0",
		Blob:          []byte("compiled model for " + name),
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
	art, err := store.NewCompiledArtifact(name, compiled)
	require.NoError(t, err)
	require.NoError(t, s.Save(name, art))
}
