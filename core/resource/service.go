package resource

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("resource not found")
	// ErrFileTooLarge maps to HTTP 413 at the API layer.
	ErrFileTooLarge = errors.New("file exceeds maximum size")
	// ErrBlobMissing means a confirm call referenced a path with no object
	// behind it; no metadata record is created in that case.
	ErrBlobMissing = errors.New("no uploaded file found at this path")
)

type (
	Repository interface {
		CreateResource(ctx context.Context, res Resource) (Resource, error)
		QueryResources(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Resource, error)
		GetResource(ctx context.Context, id string) (Resource, error)
		UpdateResource(ctx context.Context, res Resource) (Resource, error)
		DeleteResource(ctx context.Context, id string) error
	}

	Service struct {
		repo    Repository
		storage core.FileStorage
		logger  core.Logger
	}
)

func NewService(repo Repository, storage core.FileStorage, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		storage: storage,
		logger:  logger,
	}
}

// RequestUpload authorizes a direct-to-storage upload without seeing the
// bytes. The returned grant carries an exclusive file path; no metadata
// record exists until the upload is confirmed.
func (svc *Service) RequestUpload(ctx context.Context, ur NewUploadRequest) (core.UploadGrant, error) {
	if ur.FileSize > MaxFileSize {
		return core.UploadGrant{}, ErrFileTooLarge
	}

	grant, err := svc.storage.SignUpload(ctx, svc.newFilePath(ur.ModuleID, ur.CohortID, ur.Filename), ur.ContentType, ur.FileSize)
	if err != nil {
		return core.UploadGrant{}, errors.Wrap(err, "signing upload")
	}
	return grant, nil
}

// ConfirmUpload creates the durable metadata record for a blob uploaded via
// a pre-signed URL. The blob's existence is verified first; a record is
// never created ahead of its file. The recorded size comes from storage,
// not from the client.
func (svc *Service) ConfirmUpload(ctx context.Context, cu ConfirmUpload, createdBy user.User) (Resource, error) {
	info, err := svc.storage.Stat(ctx, cu.FilePath)
	if err != nil {
		if errors.Cause(err) == core.ErrObjectNotFound {
			return Resource{}, ErrBlobMissing
		}
		return Resource{}, errors.Wrap(err, "verifying uploaded blob")
	}

	now := time.Now().UTC()
	res, err := svc.repo.CreateResource(ctx, Resource{
		Title:       cu.Title,
		ContentType: cu.ContentType,
		FilePath:    cu.FilePath,
		FileSize:    info.Size,
		ModuleID:    cu.ModuleID,
		CohortID:    cu.CohortID,
		Position:    cu.Position,
		CreatedBy:   createdBy.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		// the blob is now an orphan; accepted, cleaned up out of band
		return Resource{}, errors.Wrap(err, "creating resource record")
	}
	return res, nil
}

// CreateDirect is the small-file path: the bytes are routed through the API
// server in a single call. Files above DirectSizeLimit must use the
// pre-signed protocol instead.
func (svc *Service) CreateDirect(ctx context.Context, nd NewDirectResource, r io.Reader, size int64, createdBy user.User) (Resource, error) {
	if size > DirectSizeLimit {
		return Resource{}, ErrFileTooLarge
	}

	key := svc.newFilePath(nd.ModuleID, nd.CohortID, nd.Filename)
	if err := svc.storage.Save(ctx, key, nd.ContentType, io.LimitReader(r, DirectSizeLimit), size); err != nil {
		return Resource{}, errors.Wrap(err, "saving file")
	}

	now := time.Now().UTC()
	res, err := svc.repo.CreateResource(ctx, Resource{
		Title:       nd.Title,
		ContentType: nd.ContentType,
		FilePath:    key,
		FileSize:    size,
		ModuleID:    nd.ModuleID,
		CohortID:    nd.CohortID,
		Position:    nd.Position,
		CreatedBy:   createdBy.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		// unlike the pre-signed path the server wrote this blob itself,
		// so it cleans up after a failed insert
		if delErr := svc.storage.Delete(ctx, key); delErr != nil {
			svc.logger.Error(fmt.Sprintf("deleting blob after failed insert: %v", delErr), delErr)
		}
		return Resource{}, errors.Wrap(err, "creating resource record")
	}
	return res, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Resource, error) {
	return svc.repo.QueryResources(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Resource, error) {
	return svc.repo.GetResource(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, ur UpdateResource) (Resource, error) {
	orig, err := svc.repo.GetResource(ctx, id)
	if err != nil {
		return Resource{}, err
	}
	orig.Title = ur.Title
	orig.Position = *ur.Position
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateResource(ctx, orig)
}

// Delete removes the metadata record, then best-effort deletes the blob.
// A blob deletion failure leaves an orphan, never a dangling record.
func (svc *Service) Delete(ctx context.Context, id string) error {
	res, err := svc.repo.GetResource(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteResource(ctx, id); err != nil {
		return err
	}
	if err = svc.storage.Delete(ctx, res.FilePath); err != nil {
		svc.logger.Error(fmt.Sprintf("deleting blob %s: %v", res.FilePath, err), err)
	}
	return nil
}

// newFilePath generates an exclusive storage key. The uuid segment makes
// collisions between concurrent uploads impossible without locking.
func (svc *Service) newFilePath(moduleID, cohortID, filename string) string {
	scope := "cohorts/" + cohortID
	if moduleID != "" {
		scope = "modules/" + moduleID
	}
	return fmt.Sprintf("resources/%s/%s/%s", scope, uuid.New().String(), cleanFilename(filename))
}
