package invite

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

// Statuses
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRevoked  = "revoked"
	StatusExpired  = "expired"
)

type Invite struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	CohortID  string    `json:"cohort_id,omitempty"`
	Status    string    `json:"status"`
	Token     string    `json:"-"`
	InvitedBy string    `json:"invited_by"`
	ExpiresAt time.Time `json:"expires_at"` // UTC
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Pending reports whether the invite can still be accepted.
func (inv *Invite) Pending(now time.Time) bool {
	return inv.Status == StatusPending && now.Before(inv.ExpiresAt)
}

// NewInvite contains information needed to create a new Invite.
type NewInvite struct {
	Email    string   `json:"email" validate:"required,email"`
	Name     string   `json:"name" validate:"required"`
	Roles    []string `json:"roles" validate:"required,allroles"`
	CohortID string   `json:"cohort_id"`
}

func (ni *NewInvite) Validate(validate *validator.Validate, svc *Service) error {
	ni.Email = core.CleanString(ni.Email, true /* lower */)
	ni.Name = core.CleanString(ni.Name)

	if err := validate.Struct(ni); err != nil {
		return err
	}
	return svc.CheckEmailAvailable(ni.Email)
}

// AcceptInvite is the payload consumed by the public accept endpoint.
type AcceptInvite struct {
	Token           string `json:"token" validate:"required"`
	Username        string `json:"username" validate:"omitempty,min=6,alphanum_"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (ai *AcceptInvite) Validate(validate *validator.Validate) error {
	ai.Username = core.CleanString(ai.Username, true /* lower */)
	return validate.Struct(ai)
}

type QueryFilter struct {
	Search   string `query:"search"`
	Status   string `query:"status"`
	CohortID string `query:"cohort_id"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
