// SPDX-License-Identifier: MPL-2.0

package mirror

import (
	"testing"

	"refit/internal/config"
	"refit/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresConfiguredMirror(t *testing.T) {
	cache := store.NewFSStore(t.TempDir())

	_, err := New(config.MirrorConfig{}, cache, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mirror is not configured")

	_, err = New(config.MirrorConfig{Endpoint: "localhost:9000"}, cache, nil)
	require.Error(t, err, "bucket is required too")
}

func TestObjectName_RoundTrip(t *testing.T) {
	name, ok := artifactName(objectName("fit_rt"))
	require.True(t, ok)
	assert.Equal(t, "fit_rt", name)
}

func TestArtifactName_RejectsForeignKeys(t *testing.T) {
	tests := []struct {
		key string
	}{
		{"README.md"},
		{"fit_rt"},
		{"nested/fit_rt.json"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			_, ok := artifactName(tt.key)
			assert.False(t, ok)
		})
	}
}
