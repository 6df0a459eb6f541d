package invoice

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

// Statuses
const (
	StatusDraft = "draft"
	StatusSent  = "sent"
	StatusPaid  = "paid"
	StatusVoid  = "void"
)

type Invoice struct {
	ID          string    `json:"id"`
	Number      string    `json:"number"`
	UserID      string    `json:"user_id"`
	CohortID    string    `json:"cohort_id,omitempty"`
	Description string    `json:"description"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	IssuedAt    time.Time `json:"issued_at"` // UTC
	DueAt       time.Time `json:"due_at"`    // UTC
	PaidAt      time.Time `json:"paid_at,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Amount renders the amount for humans, e.g. "USD 120.00".
func (inv *Invoice) Amount() string {
	return fmt.Sprintf("%s %d.%02d", inv.Currency, inv.AmountCents/100, inv.AmountCents%100)
}

type NewInvoice struct {
	UserID      string    `json:"user_id" validate:"required,uuid4"`
	CohortID    string    `json:"cohort_id" validate:"omitempty,uuid4"`
	Description string    `json:"description" validate:"required"`
	AmountCents int64     `json:"amount_cents" validate:"required,gt=0"`
	Currency    string    `json:"currency" validate:"required,len=3,alpha"`
	DueAt       time.Time `json:"due_at" validate:"required"`
}

func (ni *NewInvoice) Validate(validate *validator.Validate) error {
	ni.Description = core.CleanString(ni.Description)
	ni.Currency = core.CleanString(ni.Currency)
	if err := validate.Struct(ni); err != nil {
		return err
	}
	if !ni.DueAt.After(time.Now()) {
		return core.NewValidationError(nil, core.FieldError{Field: "due_at", Error: "must be in the future"})
	}
	return nil
}

// UpdateInvoice modifies a draft; issued invoices are immutable.
type UpdateInvoice struct {
	Description string     `json:"description"`
	AmountCents *int64     `json:"amount_cents"`
	DueAt       *time.Time `json:"due_at"`
}

func (ui *UpdateInvoice) Validate(validate *validator.Validate, orig Invoice) error {
	if desc := core.CleanString(ui.Description); desc != "" {
		ui.Description = desc
	} else {
		ui.Description = orig.Description
	}
	if ui.AmountCents == nil {
		ui.AmountCents = &orig.AmountCents
	} else if *ui.AmountCents <= 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "amount_cents", Error: "must be positive"})
	}
	if ui.DueAt == nil {
		ui.DueAt = &orig.DueAt
	}
	return validate.Struct(ui)
}

type QueryFilter struct {
	Status     string    `query:"status"`
	UserID     string    `query:"user_id"`
	CohortID   string    `query:"cohort_id"`
	IssuedFrom time.Time `query:"issued_from"`
	IssuedTo   time.Time `query:"issued_to"`
}

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
