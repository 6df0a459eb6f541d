package invoice

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

var (
	// errors
	ErrNotFound          = errors.New("invoice not found")
	ErrInvalidTransition = errors.New("invalid invoice status transition")
	ErrNotDraft          = errors.New("only draft invoices can be modified")
)

type (
	Repository interface {
		// NextSequence returns a monotonically increasing number scoped to `year`.
		NextSequence(ctx context.Context, year int) (int, error)
		CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
		QueryInvoices(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Invoice, error)
		GetInvoice(ctx context.Context, id string) (Invoice, error)
		UpdateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
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

func (svc *Service) Create(ctx context.Context, ni NewInvoice) (Invoice, error) {
	if _, err := svc.usrSvc.GetByID(ctx, ni.UserID); err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return Invoice{}, core.NewValidationError(err, core.FieldError{Field: "user_id", Error: err.Error()})
		}
		return Invoice{}, err
	}

	now := time.Now().UTC()
	seq, err := svc.repo.NextSequence(ctx, now.Year())
	if err != nil {
		return Invoice{}, errors.Wrap(err, "allocating invoice number")
	}

	return svc.repo.CreateInvoice(ctx, Invoice{
		Number:      fmt.Sprintf("INV-%d-%04d", now.Year(), seq),
		UserID:      ni.UserID,
		CohortID:    ni.CohortID,
		Description: ni.Description,
		AmountCents: ni.AmountCents,
		Currency:    ni.Currency,
		Status:      StatusDraft,
		DueAt:       ni.DueAt.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Invoice, error) {
	return svc.repo.QueryInvoices(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Invoice, error) {
	return svc.repo.GetInvoice(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, ui UpdateInvoice) (Invoice, error) {
	orig, err := svc.repo.GetInvoice(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if orig.Status != StatusDraft {
		return Invoice{}, core.NewValidationError(ErrNotDraft)
	}
	orig.Description = ui.Description
	orig.AmountCents = *ui.AmountCents
	orig.DueAt = ui.DueAt.UTC()
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateInvoice(ctx, orig)
}

// Send issues a draft invoice and emails it to the recipient.
func (svc *Service) Send(ctx context.Context, id string) (Invoice, error) {
	inv, err := svc.transition(ctx, id, StatusDraft, StatusSent)
	if err != nil {
		return Invoice{}, err
	}

	usr, err := svc.usrSvc.GetByID(ctx, inv.UserID)
	if err != nil {
		return inv, errors.Wrap(err, "loading invoice recipient")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Invoice " + inv.Number,
		TemplateName: "invoice",
		TemplateData: struct {
			Name        string
			Number      string
			Amount      string
			Description string
			DueAt       string
			InvoiceURL  string
		}{
			Name:        usr.Name,
			Number:      inv.Number,
			Amount:      inv.Amount(),
			Description: inv.Description,
			DueAt:       inv.DueAt.Format("Jan 2, 2006"),
			InvoiceURL:  fmt.Sprintf("%s/invoices/%s", svc.conf.FrontendBaseURL, inv.ID),
		},
	})
	return inv, nil
}

// MarkPaid settles a sent invoice.
func (svc *Service) MarkPaid(ctx context.Context, id string) (Invoice, error) {
	return svc.transition(ctx, id, StatusSent, StatusPaid)
}

// Void cancels a draft or sent invoice; paid invoices cannot be voided.
func (svc *Service) Void(ctx context.Context, id string) (Invoice, error) {
	inv, err := svc.repo.GetInvoice(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Status != StatusDraft && inv.Status != StatusSent {
		return Invoice{}, core.NewValidationError(ErrInvalidTransition)
	}
	inv.Status = StatusVoid
	inv.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateInvoice(ctx, inv)
}

func (svc *Service) transition(ctx context.Context, id, from, to string) (Invoice, error) {
	inv, err := svc.repo.GetInvoice(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Status != from {
		return Invoice{}, core.NewValidationError(ErrInvalidTransition)
	}

	now := time.Now().UTC()
	inv.Status = to
	inv.UpdatedAt = now
	switch to {
	case StatusSent:
		inv.IssuedAt = now
	case StatusPaid:
		inv.PaidAt = now
	}
	return svc.repo.UpdateInvoice(ctx, inv)
}
