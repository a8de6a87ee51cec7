// SPDX-License-Identifier: MPL-2.0

package mirror

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"refit/internal/config"
	"refit/internal/store"

	"github.com/charmbracelet/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const contentType = "application/json"

// Mirror synchronizes a local artifact cache with an S3-compatible bucket.
// The local cache stays authoritative; the mirror only gains artifacts on
// Push and the local cache only gains artifacts on Pull. Neither direction
// deletes anything.
type Mirror struct {
	client *minio.Client
	bucket string
	region string
	cache  *store.FSStore
	logger *log.Logger
}

// New builds a Mirror from the mirror section of the configuration.
func New(cfg config.MirrorConfig, cache *store.FSStore, logger *log.Logger) (*Mirror, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("mirror is not configured: set mirror.endpoint and mirror.bucket")
	}
	if logger == nil {
		logger = log.Default()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("create mirror client: %w", err)
	}

	return &Mirror{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		cache:  cache,
		logger: logger,
	}, nil
}

// EnsureBucket creates the mirror bucket if it does not exist yet.
func (m *Mirror) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check mirror bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
		return fmt.Errorf("create mirror bucket: %w", err)
	}
	m.logger.Info("created mirror bucket", "bucket", m.bucket)
	return nil
}

// Push uploads every cached artifact to the bucket. Objects already in the
// bucket are overwritten; cached artifacts are content-addressed by their
// checksum so overwriting an unchanged entry is harmless. Returns the number
// of artifacts uploaded.
func (m *Mirror) Push(ctx context.Context) (int, error) {
	if err := m.EnsureBucket(ctx); err != nil {
		return 0, err
	}

	names, err := m.cache.List()
	if err != nil {
		return 0, fmt.Errorf("list local cache: %w", err)
	}

	pushed := 0
	for _, name := range names {
		localPath := m.cache.Path(name)
		object := objectName(name)

		if _, err := m.client.FPutObject(ctx, m.bucket, object, localPath,
			minio.PutObjectOptions{ContentType: contentType}); err != nil {
			return pushed, fmt.Errorf("push artifact %q: %w", name, err)
		}
		m.logger.Debug("pushed artifact", "name", name, "object", object)
		pushed++
	}

	return pushed, nil
}

// Pull downloads artifacts from the bucket that are absent from the local
// cache. Local artifacts are never overwritten; a name that exists locally
// is skipped even if the remote copy differs. Each downloaded artifact is
// decoded before it is accepted, so a corrupt remote object cannot poison
// the cache. Returns the number of artifacts downloaded.
func (m *Mirror) Pull(ctx context.Context) (int, error) {
	pulled := 0

	for object := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{}) {
		if object.Err != nil {
			return pulled, fmt.Errorf("list mirror bucket: %w", object.Err)
		}

		name, ok := artifactName(object.Key)
		if !ok {
			continue
		}
		if m.cache.Exists(name) {
			m.logger.Debug("skipping existing artifact", "name", name)
			continue
		}

		if err := m.pullOne(ctx, object.Key, name); err != nil {
			return pulled, err
		}
		pulled++
	}

	return pulled, nil
}

func (m *Mirror) pullOne(ctx context.Context, object, name string) error {
	localPath := m.cache.Path(name)

	if err := m.client.FGetObject(ctx, m.bucket, object, localPath,
		minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("pull artifact %q: %w", name, err)
	}

	// Validate the download through the normal load path. A remote object
	// that fails decoding or checksum verification is removed again.
	if _, err := m.cache.Load(name); err != nil {
		_ = m.cache.Remove(name)
		return fmt.Errorf("pulled artifact %q is invalid: %w", name, err)
	}

	m.logger.Debug("pulled artifact", "name", name, "object", object)
	return nil
}

// objectName maps a cache entry name to its object key in the bucket.
func objectName(name string) string {
	return name + ".json"
}

// artifactName maps an object key back to a cache entry name. Keys that do
// not look like artifact files are reported as not ok.
func artifactName(key string) (string, bool) {
	if filepath.Ext(key) != ".json" || strings.Contains(key, "/") {
		return "", false
	}
	return strings.TrimSuffix(key, ".json"), true
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
