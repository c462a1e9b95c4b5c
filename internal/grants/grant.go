package grants

import (
	"context"
	"errors"
	"time"
)

// Grant is a single-use, time-scoped authorization to write bytes to one
// storage key.
type Grant struct {
	ID           string    `json:"id"`
	StorageKey   string    `json:"storageKey"`
	MimeType     string    `json:"mimeType"`
	DeclaredSize int64     `json:"declaredSize"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Expired reports whether the grant's TTL has elapsed at the given instant.
func (g Grant) Expired(now time.Time) bool {
	return !now.Before(g.ExpiresAt)
}

// PresignedUpload is the upload plan handed back to a client: where and how
// to put the bytes, and for how long the authorization holds.
type PresignedUpload struct {
	URL       string
	Method    string
	Headers   map[string]string
	ExpiresIn time.Duration
}

// Authority issues upload grants scoped to exactly one storage key.
type Authority interface {
	Issue(ctx context.Context, storageKey, mimeType string, declaredSize int64) (PresignedUpload, error)
}

var (
	// ErrGrantNotFound covers unknown grants and grants already consumed.
	ErrGrantNotFound = errors.New("upload grant is invalid or already used")
	// ErrGrantExpired marks a known grant whose TTL has elapsed.
	ErrGrantExpired = errors.New("upload grant has expired")
	// ErrPayloadTooLarge marks a payload exceeding the declared size.
	ErrPayloadTooLarge = errors.New("payload exceeds the declared size")
)
