package object

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

// MemStore is a map-backed FileStorage for tests and local development.
// SignUpload returns URLs under BaseURL; pair it with an HTTP handler that
// accepts the PUTs, or skip the pre-signed path entirely.
type MemStore struct {
	mu      sync.RWMutex
	objects map[string]memObject

	BaseURL string
	TTL     time.Duration
}

type memObject struct {
	data        []byte
	contentType string
}

var _ core.FileStorage = (*MemStore)(nil)

func NewMemStore(baseURL string, ttl time.Duration) *MemStore {
	return &MemStore{
		objects: make(map[string]memObject),
		BaseURL: baseURL,
		TTL:     ttl,
	}
}

func (st *MemStore) SignUpload(ctx context.Context, key, contentType string, size int64) (core.UploadGrant, error) {
	return core.UploadGrant{
		UploadURL: st.BaseURL + "/" + key,
		FilePath:  key,
		ExpiresAt: time.Now().UTC().Add(st.TTL),
	}, nil
}

func (st *MemStore) Stat(ctx context.Context, key string) (core.ObjectInfo, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	obj, ok := st.objects[key]
	if !ok {
		return core.ObjectInfo{}, core.ErrObjectNotFound
	}
	return core.ObjectInfo{Key: key, Size: int64(len(obj.data)), ContentType: obj.contentType}, nil
}

func (st *MemStore) Save(ctx context.Context, key, contentType string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "reading object")
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.objects[key] = memObject{data: data, contentType: contentType}
	return nil
}

func (st *MemStore) Delete(ctx context.Context, key string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.objects, key)
	return nil
}

// Open returns the stored bytes at key; handy for test assertions.
func (st *MemStore) Open(key string) (io.Reader, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	obj, ok := st.objects[key]
	if !ok {
		return nil, false
	}
	return bytes.NewReader(obj.data), true
}
