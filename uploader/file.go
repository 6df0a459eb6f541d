package uploader

import (
	"mime"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// FromFile builds a FileSpec from a file on disk. The caller owns the
// returned close function and must call it once the upload finishes.
func FromFile(path string) (FileSpec, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileSpec{}, nil, errors.Wrap(err, "opening file")
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return FileSpec{}, nil, errors.Wrap(err, "stating file")
	}

	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		ct = "application/octet-stream"
	}

	return FileSpec{
		Name:        filepath.Base(path),
		Size:        fi.Size(),
		ContentType: ct,
		Content:     f,
	}, f.Close, nil
}
