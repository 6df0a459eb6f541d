package session

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

// Session statuses
const (
	StatusScheduled = "scheduled"
	StatusCancelled = "cancelled"
)

// RSVP statuses
const (
	RSVPGoing     = "going"
	RSVPDeclined  = "declined"
	RSVPTentative = "tentative"
)

var rsvpStatuses = map[string]bool{
	RSVPGoing:     true,
	RSVPDeclined:  true,
	RSVPTentative: true,
}

// Session is a calendar entry for a cohort.
type Session struct {
	ID        string    `json:"id"`
	CohortID  string    `json:"cohort_id"`
	Title     string    `json:"title"`
	Location  string    `json:"location,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Status    string    `json:"status"`
	StartsAt  time.Time `json:"starts_at"` // UTC
	EndsAt    time.Time `json:"ends_at"`   // UTC
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RSVPs []RSVP `json:"rsvps,omitempty"`
}

// Open reports whether the session can still collect responses.
func (s *Session) Open(now time.Time) bool {
	return s.Status == StatusScheduled && now.Before(s.EndsAt)
}

type RSVP struct {
	SessionID   string    `json:"session_id"`
	UserID      string    `json:"user_id"`
	Status      string    `json:"status"`
	RespondedAt time.Time `json:"responded_at"` // UTC
}

type NewSession struct {
	CohortID string    `json:"cohort_id" validate:"required,uuid4"`
	Title    string    `json:"title" validate:"required"`
	Location string    `json:"location"`
	Notes    string    `json:"notes"`
	StartsAt time.Time `json:"starts_at" validate:"required"`
	EndsAt   time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
}

func (ns *NewSession) Validate(validate *validator.Validate) error {
	ns.Title = core.CleanString(ns.Title)
	ns.Location = core.CleanString(ns.Location)
	ns.Notes = core.CleanString(ns.Notes)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	if ns.StartsAt.Before(time.Now()) {
		return core.NewValidationError(nil, core.FieldError{Field: "starts_at", Error: "must be in the future"})
	}
	return nil
}

type UpdateSession struct {
	Title    string     `json:"title"`
	Location *string    `json:"location"`
	Notes    *string    `json:"notes"`
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
}

func (us *UpdateSession) Validate(validate *validator.Validate, orig Session) error {
	if title := core.CleanString(us.Title); title != "" {
		us.Title = title
	} else {
		us.Title = orig.Title
	}
	if us.Location == nil {
		us.Location = &orig.Location
	}
	if us.Notes == nil {
		us.Notes = &orig.Notes
	}
	if us.StartsAt == nil {
		us.StartsAt = &orig.StartsAt
	}
	if us.EndsAt == nil {
		us.EndsAt = &orig.EndsAt
	}
	if !us.EndsAt.After(*us.StartsAt) {
		return core.NewValidationError(nil, core.FieldError{Field: "ends_at", Error: "must be after starts_at"})
	}
	return validate.Struct(us)
}

// Respond is a user's RSVP to a session.
type Respond struct {
	Status string `json:"status" validate:"required"`
}

func (r *Respond) Validate(validate *validator.Validate) error {
	r.Status = core.CleanString(r.Status, true /* lower */)
	if err := validate.Struct(r); err != nil {
		return err
	}
	if !rsvpStatuses[r.Status] {
		return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "must be one of going, declined, tentative"})
	}
	return nil
}

type QueryFilter struct {
	CohortID string    `query:"cohort_id"`
	Status   string    `query:"status"`
	From     time.Time `query:"from"`
	To       time.Time `query:"to"`
}

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
