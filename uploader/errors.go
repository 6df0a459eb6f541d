package uploader

import (
	"fmt"

	"github.com/pkg/errors"
)

// Terminal upload errors. Each maps to a distinct user-facing message;
// none is retried automatically.
var (
	// ErrFileTooLarge: the size ceiling was enforced before any bytes moved.
	ErrFileTooLarge = errors.New("file exceeds maximum size")
	// ErrGrantExpired: the pre-signed URL's remaining validity was too short
	// to attempt the upload. Request a new upload and try again.
	ErrGrantExpired = errors.New("upload authorization expired, request a new upload and try again")
	// ErrNetwork: the connection dropped; the attempt must restart from step 1.
	ErrNetwork = errors.New("network error, check connection")
	// ErrTimeout: the storage PUT exceeded its fixed ceiling.
	ErrTimeout = errors.New("upload timed out")
	// ErrConfirmFailed: the blob may exist but no metadata record was created.
	ErrConfirmFailed = errors.New("failed to save resource record")
)

// StatusError reports an unexpected HTTP status from the API server or the
// storage service.
type StatusError struct {
	Stage  State
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upload failed with status %d", e.Code)
}
