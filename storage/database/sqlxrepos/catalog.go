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
	"github.com/darasahq/darasa/core/catalog"
)

type cohortRow struct {
	ID          string      `db:"id"`
	Name        string      `db:"name"`
	Description null.String `db:"description"`
	StartsAt    time.Time   `db:"starts_at"`
	EndsAt      time.Time   `db:"ends_at"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (row *cohortRow) domain() catalog.Cohort {
	return catalog.Cohort{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description.String,
		StartsAt:    row.StartsAt,
		EndsAt:      row.EndsAt,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

type moduleRow struct {
	ID        string      `db:"id"`
	CohortID  string      `db:"cohort_id"`
	Title     string      `db:"title"`
	Summary   null.String `db:"summary"`
	Position  int         `db:"position"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (row *moduleRow) domain() catalog.Module {
	return catalog.Module{
		ID:        row.ID,
		CohortID:  row.CohortID,
		Title:     row.Title,
		Summary:   row.Summary.String,
		Position:  row.Position,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

type catalogRepository struct {
	db *sqlx.DB
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *sqlx.DB) *catalogRepository {
	return &catalogRepository{db: db}
}

// Cohorts

func (repo catalogRepository) CreateCohort(ctx context.Context, c catalog.Cohort) (catalog.Cohort, error) {
	c.ID = uuid.New().String()
	q := `INSERT INTO cohort (id, name, description, starts_at, ends_at, created_at, updated_at)
	      VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.db.ExecContext(ctx, q,
		c.ID,
		c.Name,
		null.NewString(c.Description, c.Description != ""),
		c.StartsAt.UTC(),
		c.EndsAt.UTC(),
		c.CreatedAt.UTC(),
		c.UpdatedAt.UTC(),
	)
	if err != nil {
		return catalog.Cohort{}, errors.Wrap(err, "inserting cohort")
	}
	return c, nil
}

func (repo catalogRepository) QueryCohorts(ctx context.Context, filter *catalog.CohortQueryFilter, ordering []core.DBOrdering) ([]catalog.Cohort, error) {
	q := `SELECT * FROM cohort`
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Search != "" {
			args = append(args, "%"+filter.Search+"%")
			n := len(args)
			conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", n, n))
		}
		if filter.Active != nil {
			if *filter.Active {
				conds = append(conds, "starts_at <= now() AND ends_at >= now()")
			} else {
				conds = append(conds, "(starts_at > now() OR ends_at < now())")
			}
		}
	}

	q += whereClause(conds) + orderClause(ordering)

	var rows []cohortRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying cohorts")
	}
	cohorts := make([]catalog.Cohort, 0, len(rows))
	for i := range rows {
		cohorts = append(cohorts, rows[i].domain())
	}
	return cohorts, nil
}

func (repo catalogRepository) GetCohort(ctx context.Context, id string) (catalog.Cohort, error) {
	if _, err := uuid.Parse(id); err != nil {
		return catalog.Cohort{}, catalog.ErrCohortNotFound
	}
	var row cohortRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM cohort WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return catalog.Cohort{}, catalog.ErrCohortNotFound
		}
		return catalog.Cohort{}, errors.Wrap(err, "finding cohort")
	}
	return row.domain(), nil
}

func (repo catalogRepository) UpdateCohort(ctx context.Context, c catalog.Cohort) (catalog.Cohort, error) {
	q := `UPDATE cohort SET name = $1, description = $2, starts_at = $3, ends_at = $4, updated_at = $5 WHERE id = $6`
	res, err := repo.db.ExecContext(ctx, q,
		c.Name,
		null.NewString(c.Description, c.Description != ""),
		c.StartsAt.UTC(),
		c.EndsAt.UTC(),
		c.UpdatedAt.UTC(),
		c.ID,
	)
	if err != nil {
		return catalog.Cohort{}, errors.Wrap(err, "updating cohort")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return catalog.Cohort{}, catalog.ErrCohortNotFound
	}
	return repo.GetCohort(ctx, c.ID)
}

func (repo catalogRepository) DeleteCohort(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM cohort WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting cohort")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return catalog.ErrCohortNotFound
	}
	return nil
}

func (repo catalogRepository) CountModules(ctx context.Context, cohortID string) (int, error) {
	var cnt int
	if err := repo.db.GetContext(ctx, &cnt, `SELECT COUNT(*) FROM module WHERE cohort_id = $1`, cohortID); err != nil {
		return 0, errors.Wrap(err, "counting modules")
	}
	return cnt, nil
}

// Modules

func (repo catalogRepository) CreateModule(ctx context.Context, m catalog.Module) (catalog.Module, error) {
	m.ID = uuid.New().String()
	// the new module lands at the end of the cohort's ordering
	q := `INSERT INTO module (id, cohort_id, title, summary, position, created_at, updated_at)
	      VALUES ($1, $2, $3, $4,
	              (SELECT COALESCE(MAX(position) + 1, 0) FROM module WHERE cohort_id = $2),
	              $5, $6)
	      RETURNING position`
	err := repo.db.QueryRowxContext(ctx, q,
		m.ID,
		m.CohortID,
		m.Title,
		null.NewString(m.Summary, m.Summary != ""),
		m.CreatedAt.UTC(),
		m.UpdatedAt.UTC(),
	).Scan(&m.Position)
	if err != nil {
		return catalog.Module{}, errors.Wrap(err, "inserting module")
	}
	return m, nil
}

func (repo catalogRepository) QueryModules(ctx context.Context, cohortID string) ([]catalog.Module, error) {
	var rows []moduleRow
	q := `SELECT * FROM module WHERE cohort_id = $1 ORDER BY position ASC`
	if err := repo.db.SelectContext(ctx, &rows, q, cohortID); err != nil {
		return nil, errors.Wrap(err, "querying modules")
	}
	mods := make([]catalog.Module, 0, len(rows))
	for i := range rows {
		mods = append(mods, rows[i].domain())
	}
	return mods, nil
}

func (repo catalogRepository) GetModule(ctx context.Context, id string) (catalog.Module, error) {
	if _, err := uuid.Parse(id); err != nil {
		return catalog.Module{}, catalog.ErrModuleNotFound
	}
	var row moduleRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM module WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return catalog.Module{}, catalog.ErrModuleNotFound
		}
		return catalog.Module{}, errors.Wrap(err, "finding module")
	}
	return row.domain(), nil
}

func (repo catalogRepository) UpdateModule(ctx context.Context, m catalog.Module) (catalog.Module, error) {
	q := `UPDATE module SET title = $1, summary = $2, position = $3, updated_at = $4 WHERE id = $5`
	res, err := repo.db.ExecContext(ctx, q,
		m.Title,
		null.NewString(m.Summary, m.Summary != ""),
		m.Position,
		m.UpdatedAt.UTC(),
		m.ID,
	)
	if err != nil {
		return catalog.Module{}, errors.Wrap(err, "updating module")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return catalog.Module{}, catalog.ErrModuleNotFound
	}
	return repo.GetModule(ctx, m.ID)
}

func (repo catalogRepository) DeleteModule(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM module WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting module")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return catalog.ErrModuleNotFound
	}
	return nil
}

// ReorderModules assigns contiguous positions following ids; modules missing
// from ids keep their relative order after the listed ones.
func (repo catalogRepository) ReorderModules(ctx context.Context, cohortID string, ids []string) ([]catalog.Module, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var rows []moduleRow
	q := `SELECT * FROM module WHERE cohort_id = $1 ORDER BY position ASC FOR UPDATE`
	if err = tx.SelectContext(ctx, &rows, q, cohortID); err != nil {
		return nil, errors.Wrap(err, "locking modules")
	}

	listed := make(map[string]int, len(ids))
	for i, id := range ids {
		listed[id] = i
	}

	ordered := make([]moduleRow, 0, len(rows))
	var rest []moduleRow
	for _, row := range rows {
		if _, ok := listed[row.ID]; ok {
			ordered = append(ordered, row)
		} else {
			rest = append(rest, row)
		}
	}
	// listed modules first, in the order given
	for i := range ordered {
		for j := i + 1; j < len(ordered); j++ {
			if listed[ordered[j].ID] < listed[ordered[i].ID] {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}
	ordered = append(ordered, rest...)

	now := time.Now().UTC()
	mods := make([]catalog.Module, 0, len(ordered))
	for pos := range ordered {
		row := ordered[pos]
		if _, err = tx.ExecContext(ctx,
			`UPDATE module SET position = $1, updated_at = $2 WHERE id = $3`, pos, now, row.ID); err != nil {
			return nil, errors.Wrap(err, "repositioning module")
		}
		row.Position = pos
		row.UpdatedAt = now
		mods = append(mods, row.domain())
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing reorder")
	}
	return mods, nil
}
