package resource

import (
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

const (
	// MaxFileSize is the absolute ceiling for any upload. Requests above it
	// are rejected before a single byte moves.
	MaxFileSize = 100 << 20 // 100 MiB

	// DirectSizeLimit is the threshold between the small-file path (bytes
	// routed through the API server in one call) and the pre-signed
	// direct-to-storage protocol.
	DirectSizeLimit = 4 << 20 // 4 MiB
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Resource is the durable metadata record of a stored file. It is only ever
// created after the referenced blob is known to exist in storage.
type Resource struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	ContentType string    `json:"content_type"`
	FilePath    string    `json:"file_path"`
	FileSize    int64     `json:"file_size"`
	ModuleID    string    `json:"module_id,omitempty"`
	CohortID    string    `json:"cohort_id,omitempty"`
	Position    int       `json:"position"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// NewUploadRequest asks for a pre-signed URL to upload a large file directly
// to blob storage. Exactly one of ModuleID/CohortID scopes the resource.
type NewUploadRequest struct {
	Filename    string `json:"filename" validate:"required"`
	FileSize    int64  `json:"file_size" validate:"required,gt=0"`
	ContentType string `json:"content_type" validate:"required"`
	ModuleID    string `json:"module_id" validate:"omitempty,uuid4"`
	CohortID    string `json:"cohort_id" validate:"omitempty,uuid4"`
}

func (ur *NewUploadRequest) Validate(validate *validator.Validate) error {
	ur.Filename = core.CleanString(ur.Filename)
	ur.ContentType = core.CleanString(ur.ContentType, true /* lower */)
	if err := validate.Struct(ur); err != nil {
		return err
	}
	return validateScope(ur.ModuleID, ur.CohortID)
}

// ConfirmUpload registers the metadata of a blob previously uploaded via a
// pre-signed URL. FilePath must be the exact path issued with the grant.
type ConfirmUpload struct {
	FilePath    string `json:"file_path" validate:"required"`
	Title       string `json:"title" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
	ModuleID    string `json:"module_id" validate:"omitempty,uuid4"`
	CohortID    string `json:"cohort_id" validate:"omitempty,uuid4"`
	Position    int    `json:"position" validate:"gte=0"`
}

func (cu *ConfirmUpload) Validate(validate *validator.Validate) error {
	cu.FilePath = core.CleanString(cu.FilePath)
	cu.Title = core.CleanString(cu.Title)
	cu.ContentType = core.CleanString(cu.ContentType, true /* lower */)
	if err := validate.Struct(cu); err != nil {
		return err
	}
	return validateScope(cu.ModuleID, cu.CohortID)
}

// NewDirectResource is the small-file path: bytes arrive with the request.
type NewDirectResource struct {
	Filename    string `json:"filename" validate:"required"`
	Title       string `json:"title" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
	ModuleID    string `json:"module_id" validate:"omitempty,uuid4"`
	CohortID    string `json:"cohort_id" validate:"omitempty,uuid4"`
	Position    int    `json:"position" validate:"gte=0"`
}

func (nd *NewDirectResource) Validate(validate *validator.Validate) error {
	nd.Filename = core.CleanString(nd.Filename)
	nd.Title = core.CleanString(nd.Title)
	nd.ContentType = core.CleanString(nd.ContentType, true /* lower */)
	if err := validate.Struct(nd); err != nil {
		return err
	}
	return validateScope(nd.ModuleID, nd.CohortID)
}

// UpdateResource modifies descriptive metadata only; the blob is immutable.
type UpdateResource struct {
	Title    string `json:"title"`
	Position *int   `json:"position"`
}

func (ur *UpdateResource) Validate(validate *validator.Validate, orig Resource) error {
	if title := core.CleanString(ur.Title); title != "" {
		ur.Title = title
	} else {
		ur.Title = orig.Title
	}
	if ur.Position == nil {
		ur.Position = &orig.Position
	} else if *ur.Position < 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "position", Error: "must not be negative"})
	}
	return validate.Struct(ur)
}

type QueryFilter struct {
	Search      string `query:"search"`
	ContentType string `query:"content_type"`
	ModuleID    string `query:"module_id"`
	CohortID    string `query:"cohort_id"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.ContentType = core.CleanString(qf.ContentType, true /* lower */)
}

func validateScope(moduleID, cohortID string) error {
	if (moduleID == "") == (cohortID == "") {
		msg := "exactly one of module_id or cohort_id is required"
		return core.NewValidationError(nil,
			core.FieldError{Field: "module_id", Error: msg},
			core.FieldError{Field: "cohort_id", Error: msg},
		)
	}
	return nil
}

// cleanFilename reduces a client-supplied filename to a safe storage segment.
func cleanFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." {
		name = "file"
	}
	return name
}
