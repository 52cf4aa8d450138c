package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/docshare/drive/internal/config"
	"github.com/docshare/drive/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOClient implements services.ObjectStore against any S3-compatible
// endpoint. Presigned URLs are signed for the public endpoint so clients
// outside the cluster can use them.
type MinIOClient struct {
	client       *minio.Client
	publicClient *minio.Client
	bucket       string
}

func NewMinIOClient(cfg config.MinIOConfig) (*MinIOClient, error) {
	client, err := newClient(cfg.Endpoint, cfg)
	if err != nil {
		return nil, err
	}

	m := &MinIOClient{client: client, publicClient: client, bucket: cfg.Bucket}
	if cfg.PublicEndpoint != "" && cfg.PublicEndpoint != cfg.Endpoint {
		public, err := newClient(cfg.PublicEndpoint, cfg)
		if err != nil {
			return nil, fmt.Errorf("public endpoint: %w", err)
		}
		m.publicClient = public
	}
	return m, nil
}

func newClient(endpoint string, cfg config.MinIOConfig) (*minio.Client, error) {
	secure := cfg.UseSSL
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	// No static keys means running with an instance role.
	creds := credentials.NewIAM("")
	if cfg.AccessKey != "" {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}

	return minio.New(strings.TrimSuffix(endpoint, "/"), &minio.Options{
		Creds:  creds,
		Secure: secure,
		Region: cfg.Region,
	})
}

// DeleteObjects removes keys in one batch. Keys that do not exist are not an
// error, so a purge can be retried after a partial failure.
func (m *MinIOClient) DeleteObjects(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	objects := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		objects <- minio.ObjectInfo{Key: key}
	}
	close(objects)

	var failed []string
	var firstErr error
	for result := range m.client.RemoveObjects(ctx, m.bucket, objects, minio.RemoveObjectsOptions{}) {
		if result.Err == nil {
			continue
		}
		failed = append(failed, result.ObjectName)
		if firstErr == nil {
			firstErr = result.Err
		}
	}
	if firstErr != nil {
		logger.Error("minio_delete_failed", firstErr, map[string]interface{}{
			"bucket":       m.bucket,
			"failed_count": len(failed),
			"requested":    len(keys),
		})
		return fmt.Errorf("deleting %d of %d objects: %w", len(failed), len(keys), firstErr)
	}

	logger.Info("minio_delete_success", map[string]interface{}{
		"bucket": m.bucket,
		"count":  len(keys),
	})
	return nil
}

func (m *MinIOClient) PresignedGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	urlValue, err := m.publicClient.PresignedGetObject(ctx, m.bucket, objectName, expiry, nil)
	if err != nil {
		logger.Error("minio_presign_get_failed", err, map[string]interface{}{
			"object_name": objectName,
			"bucket":      m.bucket,
		})
		return "", err
	}
	return urlValue.String(), nil
}

func (m *MinIOClient) PresignedPutURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	urlValue, err := m.publicClient.PresignedPutObject(ctx, m.bucket, objectName, expiry)
	if err != nil {
		logger.Error("minio_presign_put_failed", err, map[string]interface{}{
			"object_name": objectName,
			"bucket":      m.bucket,
		})
		return "", err
	}
	return urlValue.String(), nil
}

func (m *MinIOClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed creating bucket %s: %w", m.bucket, err)
	}
	logger.Info("minio_bucket_created", map[string]interface{}{"bucket": m.bucket})
	return nil
}
