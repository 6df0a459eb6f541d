package session

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

var (
	// errors
	ErrNotFound  = errors.New("session not found")
	ErrNotOpen   = errors.New("session is cancelled or already over")
	ErrCancelled = errors.New("session is already cancelled")
)

type (
	Repository interface {
		CreateSession(ctx context.Context, s Session) (Session, error)
		QuerySessions(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Session, error)
		GetSession(ctx context.Context, id string) (Session, error)
		UpdateSession(ctx context.Context, s Session) (Session, error)
		// UpsertRSVP records or replaces a user's response.
		UpsertRSVP(ctx context.Context, r RSVP) (RSVP, error)
		ListRSVPs(ctx context.Context, sessionID string) ([]RSVP, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ns NewSession, createdBy user.User) (Session, error) {
	now := time.Now().UTC()
	return svc.repo.CreateSession(ctx, Session{
		CohortID:  ns.CohortID,
		Title:     ns.Title,
		Location:  ns.Location,
		Notes:     ns.Notes,
		Status:    StatusScheduled,
		StartsAt:  ns.StartsAt.UTC(),
		EndsAt:    ns.EndsAt.UTC(),
		CreatedBy: createdBy.ID,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Session, error) {
	return svc.repo.QuerySessions(ctx, filter, ordering)
}

// GetByID loads a session along with its RSVPs.
func (svc *Service) GetByID(ctx context.Context, id string) (Session, error) {
	s, err := svc.repo.GetSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	rsvps, err := svc.repo.ListRSVPs(ctx, id)
	if err != nil {
		return Session{}, errors.Wrap(err, "listing rsvps")
	}
	s.RSVPs = rsvps
	return s, nil
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateSession) (Session, error) {
	orig, err := svc.repo.GetSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if orig.Status == StatusCancelled {
		return Session{}, core.NewValidationError(ErrCancelled)
	}
	orig.Title = us.Title
	orig.Location = *us.Location
	orig.Notes = *us.Notes
	orig.StartsAt = us.StartsAt.UTC()
	orig.EndsAt = us.EndsAt.UTC()
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSession(ctx, orig)
}

func (svc *Service) Cancel(ctx context.Context, id string) (Session, error) {
	s, err := svc.repo.GetSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if s.Status == StatusCancelled {
		return Session{}, core.NewValidationError(ErrCancelled)
	}
	s.Status = StatusCancelled
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSession(ctx, s)
}

// Respond records a user's RSVP; responses are rejected once the session is
// cancelled or over. A repeat response replaces the previous one.
func (svc *Service) Respond(ctx context.Context, sessionID string, usr user.User, r Respond) (RSVP, error) {
	s, err := svc.repo.GetSession(ctx, sessionID)
	if err != nil {
		return RSVP{}, err
	}
	if !s.Open(time.Now().UTC()) {
		return RSVP{}, core.NewValidationError(ErrNotOpen)
	}
	return svc.repo.UpsertRSVP(ctx, RSVP{
		SessionID:   sessionID,
		UserID:      usr.ID,
		Status:      r.Status,
		RespondedAt: time.Now().UTC(),
	})
}

func (svc *Service) ListResponses(ctx context.Context, sessionID string) ([]RSVP, error) {
	if _, err := svc.repo.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return svc.repo.ListRSVPs(ctx, sessionID)
}
