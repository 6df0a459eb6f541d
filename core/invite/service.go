package invite

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

var (
	// errors
	ErrNotFound     = errors.New("invite not found")
	ErrEmailInvited = errors.New("a pending invite already exists for this email")
	ErrNotPending   = errors.New("invite is no longer pending")
	ErrTokenInvalid = errors.New("invalid or expired invite token")
)

type (
	Repository interface {
		CreateInvite(ctx context.Context, inv Invite) (Invite, error)
		QueryInvites(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Invite, error)
		GetInvite(ctx context.Context, id string) (Invite, error)
		GetInviteByToken(ctx context.Context, token string) (Invite, error)
		// PendingInviteExists reports whether a pending invite exists for email.
		PendingInviteExists(ctx context.Context, email string) (bool, error)
		UpdateInvite(ctx context.Context, inv Invite) (Invite, error)
	}

	Service struct {
		repo    Repository
		usrSvc  *user.Service
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(repo Repository, usrSvc *user.Service, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		usrSvc:  usrSvc,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

// CheckEmailAvailable fails when the email already belongs to a user or a pending invite.
func (svc *Service) CheckEmailAvailable(email string) error {
	ctx := context.Background()

	if _, err := svc.usrSvc.GetByEmail(ctx, email); err == nil {
		return core.NewValidationError(user.ErrEmailExists, core.FieldError{Field: "email", Error: user.ErrEmailExists.Error()})
	} else if errors.Cause(err) != user.ErrNotFound {
		return err
	}

	exists, err := svc.repo.PendingInviteExists(ctx, email)
	if err != nil {
		return errors.Wrap(err, "checking pending invites")
	}
	if exists {
		return core.NewValidationError(ErrEmailInvited, core.FieldError{Field: "email", Error: ErrEmailInvited.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ni NewInvite, invitedBy user.User) (Invite, error) {
	token, err := newToken()
	if err != nil {
		return Invite{}, errors.Wrap(err, "generating invite token")
	}

	now := time.Now().UTC()
	inv := Invite{
		Email:     ni.Email,
		Name:      ni.Name,
		Roles:     ni.Roles,
		CohortID:  ni.CohortID,
		Status:    StatusPending,
		Token:     token,
		InvitedBy: invitedBy.ID,
		ExpiresAt: now.Add(svc.conf.InviteExpirationDelta),
		CreatedAt: now,
		UpdatedAt: now,
	}
	inv, err = svc.repo.CreateInvite(ctx, inv)
	if err != nil {
		return Invite{}, errors.Wrap(err, "creating invite")
	}

	svc.sendInviteEmail(inv)
	return inv, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Invite, error) {
	return svc.repo.QueryInvites(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Invite, error) {
	return svc.repo.GetInvite(ctx, id)
}

// Accept consumes a pending invite's token and creates the invited user.
func (svc *Service) Accept(ctx context.Context, ai AcceptInvite) (user.User, error) {
	inv, err := svc.repo.GetInviteByToken(ctx, ai.Token)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return user.User{}, core.NewValidationError(ErrTokenInvalid)
		}
		return user.User{}, err
	}
	if !inv.Pending(time.Now().UTC()) {
		return user.User{}, core.NewValidationError(ErrTokenInvalid)
	}

	nu := user.NewUser{
		Name:            inv.Name,
		Username:        ai.Username,
		Email:           inv.Email,
		Password:        ai.Password,
		PasswordConfirm: ai.PasswordConfirm,
		Roles:           inv.Roles,
	}
	if err = svc.usrSvc.CheckUniqueness(nu.Username, nu.Email); err != nil {
		return user.User{}, err
	}
	usr, err := svc.usrSvc.Create(ctx, nu)
	if err != nil {
		return user.User{}, errors.Wrap(err, "creating invited user")
	}

	inv.Status = StatusAccepted
	inv.UpdatedAt = time.Now().UTC()
	if _, err = svc.repo.UpdateInvite(ctx, inv); err != nil {
		// the user exists but the invite row is stale; this must not
		// go unnoticed, a second accept would attempt a duplicate user.
		return usr, errors.Wrap(err, "marking invite accepted")
	}
	return usr, nil
}

func (svc *Service) Revoke(ctx context.Context, id string) (Invite, error) {
	inv, err := svc.repo.GetInvite(ctx, id)
	if err != nil {
		return Invite{}, err
	}
	if inv.Status != StatusPending {
		return Invite{}, core.NewValidationError(ErrNotPending)
	}
	inv.Status = StatusRevoked
	inv.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateInvite(ctx, inv)
}

// Resend refreshes the token and expiry of a pending invite and re-emails it.
func (svc *Service) Resend(ctx context.Context, id string) (Invite, error) {
	inv, err := svc.repo.GetInvite(ctx, id)
	if err != nil {
		return Invite{}, err
	}
	if inv.Status != StatusPending {
		return Invite{}, core.NewValidationError(ErrNotPending)
	}

	token, err := newToken()
	if err != nil {
		return Invite{}, errors.Wrap(err, "generating invite token")
	}
	now := time.Now().UTC()
	inv.Token = token
	inv.ExpiresAt = now.Add(svc.conf.InviteExpirationDelta)
	inv.UpdatedAt = now

	inv, err = svc.repo.UpdateInvite(ctx, inv)
	if err != nil {
		return Invite{}, err
	}
	svc.sendInviteEmail(inv)
	return inv, nil
}

func (svc *Service) sendInviteEmail(inv Invite) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: inv.Name, Address: inv.Email}},
		Subject:      "You are invited",
		TemplateName: "invite",
		TemplateData: struct {
			Name      string
			AcceptURL string
			ExpiresAt string
		}{
			Name:      inv.Name,
			AcceptURL: fmt.Sprintf("%s/invites/accept/%s", svc.conf.FrontendBaseURL, inv.Token),
			ExpiresAt: inv.ExpiresAt.Format("Jan 2, 2006"),
		},
	})
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
