package grants

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
)

// MinIOAuthority issues presigned PUT URLs against a MinIO server.
type MinIOAuthority struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

// NewMinIOAuthority constructs a MinIOAuthority over an existing client.
func NewMinIOAuthority(client *minio.Client, bucket string, ttl time.Duration) *MinIOAuthority {
	return &MinIOAuthority{client: client, bucket: bucket, ttl: ttl}
}

// Issue presigns a PUT for the storage key.
func (a *MinIOAuthority) Issue(ctx context.Context, storageKey, mimeType string, declaredSize int64) (PresignedUpload, error) {
	u, err := a.client.PresignedPutObject(ctx, a.bucket, storageKey, a.ttl)
	if err != nil {
		return PresignedUpload{}, fmt.Errorf("presign put bucket=%s key=%s: %w", a.bucket, storageKey, err)
	}

	headers := map[string]string{}
	if mimeType != "" {
		headers["Content-Type"] = mimeType
	}
	return PresignedUpload{
		URL:       u.String(),
		Method:    http.MethodPut,
		Headers:   headers,
		ExpiresIn: a.ttl,
	}, nil
}

var _ Authority = (*MinIOAuthority)(nil)
