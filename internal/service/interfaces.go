package service

import (
	"context"
	"time"
)

// ImageStore persists decoded images and resolves stored keys to URLs.
type ImageStore interface {
	Save(ctx context.Context, img *DecodedImage) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Revoker remembers logged-out token ids until they expire.
type Revoker interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
