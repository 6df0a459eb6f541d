package resource_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core/resource"
	"github.com/darasahq/darasa/core/user"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
	"github.com/darasahq/darasa/storage/object"
	testutil "github.com/darasahq/darasa/tests"
)

func setup(t *testing.T) (*resource.Service, *object.MemStore) {
	t.Helper()
	db, err := inmemdb.Open()
	require.NoError(t, err)
	store := object.NewMemStore("http://storage.local", 15*time.Minute)
	svc := resource.NewService(inmemdb.NewResourceRepository(db), store, testutil.NopLogger{})
	return svc, store
}

var uploader = user.User{ID: "1c51e51a-4b33-47c6-9eb0-d3df43fd806e", Name: "Teacher"}

const moduleID = "0c2cdd78-9a65-4f05-9da6-a1a243b9be9e"

func Test_resource_requestUpload(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	grant, err := svc.RequestUpload(ctx, resource.NewUploadRequest{
		Filename:    "lecture one.pdf",
		FileSize:    10 << 20,
		ContentType: "application/pdf",
		ModuleID:    moduleID,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, grant.UploadURL)
	assert.True(t, strings.HasPrefix(grant.FilePath, "resources/modules/"+moduleID+"/"), grant.FilePath)
	assert.True(t, strings.HasSuffix(grant.FilePath, "/lecture_one.pdf"), "filename must be sanitized: %s", grant.FilePath)
	assert.True(t, grant.ExpiresAt.After(time.Now()))
}

func Test_resource_requestUploadCeiling(t *testing.T) {
	svc, _ := setup(t)

	_, err := svc.RequestUpload(context.Background(), resource.NewUploadRequest{
		Filename:    "huge.bin",
		FileSize:    resource.MaxFileSize + 1,
		ContentType: "application/octet-stream",
		ModuleID:    moduleID,
	})
	assert.Equal(t, resource.ErrFileTooLarge, errors.Cause(err))

	// exactly at the ceiling is allowed
	_, err = svc.RequestUpload(context.Background(), resource.NewUploadRequest{
		Filename:    "exact.bin",
		FileSize:    resource.MaxFileSize,
		ContentType: "application/octet-stream",
		ModuleID:    moduleID,
	})
	assert.NoError(t, err)
}

func Test_resource_confirmUpload(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()

	grant, err := svc.RequestUpload(ctx, resource.NewUploadRequest{
		Filename:    "lecture.pdf",
		FileSize:    9,
		ContentType: "application/pdf",
		ModuleID:    moduleID,
	})
	require.NoError(t, err)

	// no blob yet: no record may be created
	_, err = svc.ConfirmUpload(ctx, resource.ConfirmUpload{
		FilePath:    grant.FilePath,
		Title:       "Lecture",
		ContentType: "application/pdf",
		ModuleID:    moduleID,
	}, uploader)
	assert.Equal(t, resource.ErrBlobMissing, errors.Cause(err))

	all, err := svc.Query(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, all, "a record must never exist ahead of its blob")

	// simulate the client's direct PUT
	require.NoError(t, store.Save(ctx, grant.FilePath, "application/pdf", strings.NewReader("123456789"), 9))

	res, err := svc.ConfirmUpload(ctx, resource.ConfirmUpload{
		FilePath:    grant.FilePath,
		Title:       "Lecture",
		ContentType: "application/pdf",
		ModuleID:    moduleID,
	}, uploader)
	require.NoError(t, err)

	assert.Equal(t, grant.FilePath, res.FilePath)
	assert.Equal(t, int64(9), res.FileSize, "recorded size comes from storage, not the client")
	assert.Equal(t, uploader.ID, res.CreatedBy)
}

func Test_resource_createDirect(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()

	nd := resource.NewDirectResource{
		Filename:    "notes.txt",
		Title:       "Notes",
		ContentType: "text/plain",
		ModuleID:    moduleID,
	}
	res, err := svc.CreateDirect(ctx, nd, strings.NewReader("hello"), 5, uploader)
	require.NoError(t, err)

	assert.Equal(t, int64(5), res.FileSize)
	r, ok := store.Open(res.FilePath)
	require.True(t, ok, "the blob must be in storage")
	data, _ := io.ReadAll(r)
	assert.Equal(t, "hello", string(data))

	// over the direct limit: refused before storage is touched
	_, err = svc.CreateDirect(ctx, nd, strings.NewReader(""), resource.DirectSizeLimit+1, uploader)
	assert.Equal(t, resource.ErrFileTooLarge, errors.Cause(err))
}

func Test_resource_delete(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()

	res, err := svc.CreateDirect(ctx, resource.NewDirectResource{
		Filename:    "notes.txt",
		Title:       "Notes",
		ContentType: "text/plain",
		CohortID:    "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d",
	}, strings.NewReader("hello"), 5, uploader)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, res.ID))

	_, err = svc.GetByID(ctx, res.ID)
	assert.Equal(t, resource.ErrNotFound, errors.Cause(err))
	_, ok := store.Open(res.FilePath)
	assert.False(t, ok, "the blob must be gone")

	assert.Equal(t, resource.ErrNotFound, errors.Cause(svc.Delete(ctx, res.ID)))
}

func Test_resource_queryFilters(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	mkRes := func(title, ct, modID, cohID string) resource.Resource {
		res, err := svc.CreateDirect(ctx, resource.NewDirectResource{
			Filename:    title + ".bin",
			Title:       title,
			ContentType: ct,
			ModuleID:    modID,
			CohortID:    cohID,
		}, strings.NewReader("x"), 1, uploader)
		require.NoError(t, err)
		return res
	}

	pdf := mkRes("Syllabus", "application/pdf", moduleID, "")
	vid := mkRes("Recording", "video/mp4", "", "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d")

	got, err := svc.Query(ctx, &resource.QueryFilter{ContentType: "application/pdf"}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pdf.ID, got[0].ID)

	got, err = svc.Query(ctx, &resource.QueryFilter{Search: "record"}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, vid.ID, got[0].ID)

	got, err = svc.Query(ctx, &resource.QueryFilter{ModuleID: moduleID}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pdf.ID, got[0].ID)
}
