package grants

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docudeep-backend/internal/blob"
)

// LocalAuthority mimics presigned uploads for a filesystem-backed dev mode:
// issued grants point at the dev upload endpoint, and Consume writes the
// payload through the blob store once the grant checks out.
type LocalAuthority struct {
	Grants   Store
	Blob     blob.Store
	TTL      time.Duration
	BasePath string
	Now      func() time.Time
}

// NewLocalAuthority constructs a LocalAuthority with the default path layout.
func NewLocalAuthority(store Store, blobStore blob.Store, ttl time.Duration) *LocalAuthority {
	return &LocalAuthority{
		Grants:   store,
		Blob:     blobStore,
		TTL:      ttl,
		BasePath: "/api/v1/dev/storage/upload/",
		Now:      time.Now,
	}
}

// Issue registers a single-use grant and returns an upload plan pointing at
// the dev upload endpoint.
func (a *LocalAuthority) Issue(ctx context.Context, storageKey, mimeType string, declaredSize int64) (PresignedUpload, error) {
	token := uuid.NewString()
	grant := Grant{
		ID:           token,
		StorageKey:   storageKey,
		MimeType:     mimeType,
		DeclaredSize: declaredSize,
		ExpiresAt:    a.Now().Add(a.TTL),
	}
	if err := a.Grants.Put(ctx, grant); err != nil {
		return PresignedUpload{}, fmt.Errorf("register grant: %w", err)
	}

	headers := map[string]string{}
	if mimeType != "" {
		headers["Content-Type"] = mimeType
	}
	return PresignedUpload{
		URL:       a.BasePath + token,
		Method:    "PUT",
		Headers:   headers,
		ExpiresIn: a.TTL,
	}, nil
}

// Consume takes the grant, verifies expiry and declared size, and only then
// persists the payload. The take is atomic, so a second Consume of the same
// token fails with ErrGrantNotFound regardless of payload validity.
func (a *LocalAuthority) Consume(ctx context.Context, token string, payload []byte) error {
	grant, err := a.Grants.Take(ctx, token)
	if err != nil {
		return err
	}
	if grant.Expired(a.Now()) {
		return ErrGrantExpired
	}
	if grant.DeclaredSize > 0 && int64(len(payload)) > grant.DeclaredSize {
		return ErrPayloadTooLarge
	}

	if _, err := a.Blob.SaveWithKey(ctx, grant.StorageKey, grant.MimeType, bytes.NewReader(payload)); err != nil {
		return fmt.Errorf("persist upload: %w", err)
	}
	return nil
}

var _ Authority = (*LocalAuthority)(nil)
