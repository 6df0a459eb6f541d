package core

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrObjectNotFound is returned when a storage key has no object behind it.
	ErrObjectNotFound = errors.New("object not found in storage")
)

type (
	// UploadGrant is a time-limited authorization to PUT an object directly
	// into blob storage, bypassing the API server.
	UploadGrant struct {
		UploadURL string    `json:"upload_url"`
		FilePath  string    `json:"file_path"`
		ExpiresAt time.Time `json:"expires_at"` // UTC
	}

	// ObjectInfo describes an object as reported by the storage backend.
	ObjectInfo struct {
		Key         string
		Size        int64
		ContentType string
	}

	// FileStorage is any blob store files can be pushed to, either directly
	// by clients (via pre-signed URLs) or through the API server.
	FileStorage interface {
		// SignUpload returns a pre-signed, time-limited URL authorizing a
		// direct PUT of `size` bytes at `key`.
		SignUpload(ctx context.Context, key, contentType string, size int64) (UploadGrant, error)
		// Stat reports the object at `key`; ErrObjectNotFound if absent.
		Stat(ctx context.Context, key string) (ObjectInfo, error)
		// Save writes an object through the server. Used for small files only.
		Save(ctx context.Context, key, contentType string, r io.Reader, size int64) error
		// Delete removes the object at `key`. Deleting a missing object is not an error.
		Delete(ctx context.Context, key string) error
	}
)
