package grants

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Authority issues genuine presigned PUT URLs. The single-use and expiry
// guarantees come from the signature itself, so no grant table is involved.
type S3Authority struct {
	presign *s3.PresignClient
	bucket  string
	keyFunc func(storageKey string) string
	ttl     time.Duration
}

// NewS3Authority wraps an S3 client in a presigner. keyFunc maps a storage
// key to the object key (typically the store's prefix applier).
func NewS3Authority(client *s3.Client, bucket string, keyFunc func(string) string, ttl time.Duration) *S3Authority {
	if keyFunc == nil {
		keyFunc = func(key string) string { return key }
	}
	return &S3Authority{
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		keyFunc: keyFunc,
		ttl:     ttl,
	}
}

// Issue presigns a PUT for the storage key's object.
func (a *S3Authority) Issue(ctx context.Context, storageKey, mimeType string, declaredSize int64) (PresignedUpload, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.keyFunc(storageKey)),
	}
	if mimeType != "" {
		input.ContentType = aws.String(mimeType)
	}

	out, err := a.presign.PresignPutObject(ctx, input, func(opts *s3.PresignOptions) {
		opts.Expires = a.ttl
	})
	if err != nil {
		return PresignedUpload{}, fmt.Errorf("presign put bucket=%s key=%s: %w", a.bucket, storageKey, err)
	}

	headers := map[string]string{}
	for name, values := range out.SignedHeader {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}
	return PresignedUpload{
		URL:       out.URL,
		Method:    out.Method,
		Headers:   headers,
		ExpiresIn: a.ttl,
	}, nil
}

var _ Authority = (*S3Authority)(nil)
