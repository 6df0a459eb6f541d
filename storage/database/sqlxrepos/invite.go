package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/invite"
)

type inviteRow struct {
	ID        string         `db:"id"`
	Email     string         `db:"email"`
	Name      string         `db:"name"`
	Roles     pq.StringArray `db:"roles"`
	CohortID  null.String    `db:"cohort_id"`
	Status    string         `db:"status"`
	Token     string         `db:"token"`
	InvitedBy null.String    `db:"invited_by"`
	ExpiresAt time.Time      `db:"expires_at"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (row *inviteRow) domain() invite.Invite {
	return invite.Invite{
		ID:        row.ID,
		Email:     row.Email,
		Name:      row.Name,
		Roles:     row.Roles,
		CohortID:  row.CohortID.String,
		Status:    row.Status,
		Token:     row.Token,
		InvitedBy: row.InvitedBy.String,
		ExpiresAt: row.ExpiresAt,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

type inviteRepository struct {
	db *sqlx.DB
}

var _ invite.Repository = (*inviteRepository)(nil) // interface compliance check

func NewInviteRepository(db *sqlx.DB) *inviteRepository {
	return &inviteRepository{db: db}
}

func (repo inviteRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return invite.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo inviteRepository) CreateInvite(ctx context.Context, inv invite.Invite) (invite.Invite, error) {
	inv.ID = uuid.New().String()
	q := `INSERT INTO invite (id, email, name, roles, cohort_id, status, token, invited_by, expires_at, created_at, updated_at)
	      VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := repo.db.ExecContext(ctx, q,
		inv.ID,
		inv.Email,
		inv.Name,
		pq.Array(inv.Roles),
		null.NewString(inv.CohortID, inv.CohortID != ""),
		inv.Status,
		inv.Token,
		null.NewString(inv.InvitedBy, inv.InvitedBy != ""),
		inv.ExpiresAt.UTC(),
		inv.CreatedAt.UTC(),
		inv.UpdatedAt.UTC(),
	)
	if err != nil {
		return invite.Invite{}, errors.Wrap(err, "inserting invite")
	}
	return inv, nil
}

func (repo inviteRepository) QueryInvites(ctx context.Context, filter *invite.QueryFilter, ordering []core.DBOrdering) ([]invite.Invite, error) {
	q := `SELECT * FROM invite`
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Search != "" {
			args = append(args, "%"+filter.Search+"%")
			n := len(args)
			conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", n, n))
		}
		if filter.Status != "" {
			args = append(args, filter.Status)
			conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
		}
		if filter.CohortID != "" {
			args = append(args, filter.CohortID)
			conds = append(conds, fmt.Sprintf("cohort_id = $%d", len(args)))
		}
	}

	q += whereClause(conds) + orderClause(ordering)

	var rows []inviteRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying invites")
	}
	invs := make([]invite.Invite, 0, len(rows))
	for i := range rows {
		invs = append(invs, rows[i].domain())
	}
	return invs, nil
}

func (repo inviteRepository) GetInvite(ctx context.Context, id string) (invite.Invite, error) {
	if _, err := uuid.Parse(id); err != nil {
		return invite.Invite{}, invite.ErrNotFound
	}
	var row inviteRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM invite WHERE id = $1`, id); err != nil {
		return invite.Invite{}, repo.trapNoRowsErr(err, "finding invite")
	}
	return row.domain(), nil
}

func (repo inviteRepository) GetInviteByToken(ctx context.Context, token string) (invite.Invite, error) {
	var row inviteRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM invite WHERE token = $1`, token); err != nil {
		return invite.Invite{}, repo.trapNoRowsErr(err, "finding invite by token")
	}
	return row.domain(), nil
}

func (repo inviteRepository) PendingInviteExists(ctx context.Context, email string) (bool, error) {
	q := `SELECT EXISTS (SELECT 1 FROM invite WHERE email = $1 AND status = $2 AND expires_at > now())`
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, q, email, invite.StatusPending); err != nil {
		return false, errors.Wrap(err, "checking pending invites")
	}
	return exists, nil
}

func (repo inviteRepository) UpdateInvite(ctx context.Context, inv invite.Invite) (invite.Invite, error) {
	q := `UPDATE invite SET status = $1, token = $2, expires_at = $3, updated_at = $4 WHERE id = $5`
	res, err := repo.db.ExecContext(ctx, q, inv.Status, inv.Token, inv.ExpiresAt.UTC(), inv.UpdatedAt.UTC(), inv.ID)
	if err != nil {
		return invite.Invite{}, errors.Wrap(err, "updating invite")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return invite.Invite{}, invite.ErrNotFound
	}
	return repo.GetInvite(ctx, inv.ID)
}
