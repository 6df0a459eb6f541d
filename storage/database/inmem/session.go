package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/session"
)

type sessionRepository struct {
	db *sessionTable
}

var _ session.Repository = (*sessionRepository)(nil)

func NewSessionRepository(db *DB) *sessionRepository {
	return &sessionRepository{db: db.session}
}

func (repo *sessionRepository) query() []session.Session {
	sessions := make([]session.Session, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		sessions = append(sessions, *s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].StartsAt.Equal(sessions[j].StartsAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].StartsAt.Before(sessions[j].StartsAt)
	})
	return sessions
}

func (repo *sessionRepository) CreateSession(ctx context.Context, s session.Session) (session.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s.ID = uuid.New().String()
	repo.db.table[s.ID] = &s
	return s, nil
}

func (repo *sessionRepository) QuerySessions(ctx context.Context, filter *session.QueryFilter, ordering []core.DBOrdering) ([]session.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sessions := repo.query()
	if filter == nil {
		return sessions, nil
	}

	matched := make([]session.Session, 0, len(sessions))
	for _, s := range sessions {
		if filter.CohortID != "" && s.CohortID != filter.CohortID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && s.StartsAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && s.StartsAt.After(filter.To) {
			continue
		}
		matched = append(matched, s)
	}
	return matched, nil
}

func (repo *sessionRepository) GetSession(ctx context.Context, id string) (session.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.table[id]; ok {
		return *s, nil
	}
	return session.Session{}, session.ErrNotFound
}

func (repo *sessionRepository) UpdateSession(ctx context.Context, s session.Session) (session.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[s.ID]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	orig.Title = s.Title
	orig.Location = s.Location
	orig.Notes = s.Notes
	orig.Status = s.Status
	orig.StartsAt = s.StartsAt
	orig.EndsAt = s.EndsAt
	orig.UpdatedAt = s.UpdatedAt
	return *orig, nil
}

func (repo *sessionRepository) UpsertRSVP(ctx context.Context, r session.RSVP) (session.RSVP, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.db.rsvps[r.SessionID] == nil {
		repo.db.rsvps[r.SessionID] = make(map[string]*session.RSVP)
	}
	repo.db.rsvps[r.SessionID][r.UserID] = &r
	return r, nil
}

func (repo *sessionRepository) ListRSVPs(ctx context.Context, sessionID string) ([]session.RSVP, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rsvps := make([]session.RSVP, 0, len(repo.db.rsvps[sessionID]))
	for _, r := range repo.db.rsvps[sessionID] {
		rsvps = append(rsvps, *r)
	}
	sort.Slice(rsvps, func(i, j int) bool {
		if rsvps[i].RespondedAt.Equal(rsvps[j].RespondedAt) {
			return rsvps[i].UserID < rsvps[j].UserID
		}
		return rsvps[i].RespondedAt.Before(rsvps[j].RespondedAt)
	})
	return rsvps, nil
}
