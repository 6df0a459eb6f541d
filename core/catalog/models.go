package catalog

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

type Cohort struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	StartsAt    time.Time `json:"starts_at"` // UTC
	EndsAt      time.Time `json:"ends_at"`   // UTC
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Module is a unit of learning content, ordered within its cohort.
type Module struct {
	ID        string    `json:"id"`
	CohortID  string    `json:"cohort_id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary,omitempty"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NewCohort struct {
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
}

func (nc *NewCohort) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

type UpdateCohort struct {
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

func (uc *UpdateCohort) Validate(validate *validator.Validate, orig Cohort) error {
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}
	if uc.Description == nil {
		uc.Description = &orig.Description
	}
	if uc.StartsAt == nil {
		uc.StartsAt = &orig.StartsAt
	}
	if uc.EndsAt == nil {
		uc.EndsAt = &orig.EndsAt
	}
	if !uc.EndsAt.After(*uc.StartsAt) {
		return core.NewValidationError(nil, core.FieldError{Field: "ends_at", Error: "must be after starts_at"})
	}
	return validate.Struct(uc)
}

type NewModule struct {
	CohortID string `json:"cohort_id" validate:"required,uuid4"`
	Title    string `json:"title" validate:"required"`
	Summary  string `json:"summary"`
}

func (nm *NewModule) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.Summary = core.CleanString(nm.Summary)
	return validate.Struct(nm)
}

type UpdateModule struct {
	Title   string  `json:"title"`
	Summary *string `json:"summary"`
}

func (um *UpdateModule) Validate(validate *validator.Validate, orig Module) error {
	if title := core.CleanString(um.Title); title != "" {
		um.Title = title
	} else {
		um.Title = orig.Title
	}
	if um.Summary == nil {
		um.Summary = &orig.Summary
	}
	return validate.Struct(um)
}

type CohortQueryFilter struct {
	Search string `query:"search"`
	// Active filters cohorts whose date range covers "now".
	Active *bool `query:"active"`
}

func (qf *CohortQueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
