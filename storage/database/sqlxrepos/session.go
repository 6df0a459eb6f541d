package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/session"
)

type sessionRow struct {
	ID        string      `db:"id"`
	CohortID  string      `db:"cohort_id"`
	Title     string      `db:"title"`
	Location  null.String `db:"location"`
	Notes     null.String `db:"notes"`
	Status    string      `db:"status"`
	StartsAt  time.Time   `db:"starts_at"`
	EndsAt    time.Time   `db:"ends_at"`
	CreatedBy null.String `db:"created_by"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (row *sessionRow) domain() session.Session {
	return session.Session{
		ID:        row.ID,
		CohortID:  row.CohortID,
		Title:     row.Title,
		Location:  row.Location.String,
		Notes:     row.Notes.String,
		Status:    row.Status,
		StartsAt:  row.StartsAt,
		EndsAt:    row.EndsAt,
		CreatedBy: row.CreatedBy.String,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

type rsvpRow struct {
	SessionID   string    `db:"session_id"`
	UserID      string    `db:"user_id"`
	Status      string    `db:"status"`
	RespondedAt time.Time `db:"responded_at"`
}

func (row *rsvpRow) domain() session.RSVP {
	return session.RSVP{
		SessionID:   row.SessionID,
		UserID:      row.UserID,
		Status:      row.Status,
		RespondedAt: row.RespondedAt,
	}
}

type sessionRepository struct {
	db *sqlx.DB
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *sqlx.DB) *sessionRepository {
	return &sessionRepository{db: db}
}

func (repo sessionRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return session.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo sessionRepository) CreateSession(ctx context.Context, s session.Session) (session.Session, error) {
	s.ID = uuid.New().String()
	q := `INSERT INTO session (id, cohort_id, title, location, notes, status, starts_at, ends_at, created_by, created_at, updated_at)
	      VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := repo.db.ExecContext(ctx, q,
		s.ID,
		s.CohortID,
		s.Title,
		null.NewString(s.Location, s.Location != ""),
		null.NewString(s.Notes, s.Notes != ""),
		s.Status,
		s.StartsAt.UTC(),
		s.EndsAt.UTC(),
		null.NewString(s.CreatedBy, s.CreatedBy != ""),
		s.CreatedAt.UTC(),
		s.UpdatedAt.UTC(),
	)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "inserting session")
	}
	return s, nil
}

func (repo sessionRepository) QuerySessions(ctx context.Context, filter *session.QueryFilter, ordering []core.DBOrdering) ([]session.Session, error) {
	q := `SELECT * FROM session`
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.CohortID != "" {
			args = append(args, filter.CohortID)
			conds = append(conds, fmt.Sprintf("cohort_id = $%d", len(args)))
		}
		if filter.Status != "" {
			args = append(args, filter.Status)
			conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
		}
		if !filter.From.IsZero() {
			args = append(args, filter.From.UTC())
			conds = append(conds, fmt.Sprintf("starts_at >= $%d", len(args)))
		}
		if !filter.To.IsZero() {
			args = append(args, filter.To.UTC())
			conds = append(conds, fmt.Sprintf("starts_at <= $%d", len(args)))
		}
	}

	q += whereClause(conds) + orderClause(ordering)

	var rows []sessionRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	sessions := make([]session.Session, 0, len(rows))
	for i := range rows {
		sessions = append(sessions, rows[i].domain())
	}
	return sessions, nil
}

func (repo sessionRepository) GetSession(ctx context.Context, id string) (session.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return session.Session{}, session.ErrNotFound
	}
	var row sessionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM session WHERE id = $1`, id); err != nil {
		return session.Session{}, repo.trapNoRowsErr(err, "finding session")
	}
	return row.domain(), nil
}

func (repo sessionRepository) UpdateSession(ctx context.Context, s session.Session) (session.Session, error) {
	q := `UPDATE session SET title = $1, location = $2, notes = $3, status = $4, starts_at = $5, ends_at = $6, updated_at = $7
	      WHERE id = $8`
	res, err := repo.db.ExecContext(ctx, q,
		s.Title,
		null.NewString(s.Location, s.Location != ""),
		null.NewString(s.Notes, s.Notes != ""),
		s.Status,
		s.StartsAt.UTC(),
		s.EndsAt.UTC(),
		s.UpdatedAt.UTC(),
		s.ID,
	)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "updating session")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return session.Session{}, session.ErrNotFound
	}
	return repo.GetSession(ctx, s.ID)
}

func (repo sessionRepository) UpsertRSVP(ctx context.Context, r session.RSVP) (session.RSVP, error) {
	q := `INSERT INTO session_rsvp (session_id, user_id, status, responded_at)
	      VALUES ($1, $2, $3, $4)
	      ON CONFLICT (session_id, user_id) DO UPDATE SET status = $3, responded_at = $4`
	_, err := repo.db.ExecContext(ctx, q, r.SessionID, r.UserID, r.Status, r.RespondedAt.UTC())
	if err != nil {
		return session.RSVP{}, errors.Wrap(err, "upserting rsvp")
	}
	return r, nil
}

func (repo sessionRepository) ListRSVPs(ctx context.Context, sessionID string) ([]session.RSVP, error) {
	var rows []rsvpRow
	q := `SELECT * FROM session_rsvp WHERE session_id = $1 ORDER BY responded_at ASC`
	if err := repo.db.SelectContext(ctx, &rows, q, sessionID); err != nil {
		return nil, errors.Wrap(err, "listing rsvps")
	}
	rsvps := make([]session.RSVP, 0, len(rows))
	for i := range rows {
		rsvps = append(rsvps, rows[i].domain())
	}
	return rsvps, nil
}
