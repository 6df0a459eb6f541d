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
	"github.com/darasahq/darasa/core/resource"
)

type resourceRow struct {
	ID          string      `db:"id"`
	Title       string      `db:"title"`
	ContentType string      `db:"content_type"`
	FilePath    string      `db:"file_path"`
	FileSize    int64       `db:"file_size"`
	ModuleID    null.String `db:"module_id"`
	CohortID    null.String `db:"cohort_id"`
	Position    int         `db:"position"`
	CreatedBy   null.String `db:"created_by"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (row *resourceRow) domain() resource.Resource {
	return resource.Resource{
		ID:          row.ID,
		Title:       row.Title,
		ContentType: row.ContentType,
		FilePath:    row.FilePath,
		FileSize:    row.FileSize,
		ModuleID:    row.ModuleID.String,
		CohortID:    row.CohortID.String,
		Position:    row.Position,
		CreatedBy:   row.CreatedBy.String,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

type resourceRepository struct {
	db *sqlx.DB
}

var _ resource.Repository = (*resourceRepository)(nil) // interface compliance check

func NewResourceRepository(db *sqlx.DB) *resourceRepository {
	return &resourceRepository{db: db}
}

func (repo resourceRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return resource.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo resourceRepository) CreateResource(ctx context.Context, res resource.Resource) (resource.Resource, error) {
	res.ID = uuid.New().String()
	q := `INSERT INTO resource (id, title, content_type, file_path, file_size, module_id, cohort_id, position, created_by, created_at, updated_at)
	      VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := repo.db.ExecContext(ctx, q,
		res.ID,
		res.Title,
		res.ContentType,
		res.FilePath,
		res.FileSize,
		null.NewString(res.ModuleID, res.ModuleID != ""),
		null.NewString(res.CohortID, res.CohortID != ""),
		res.Position,
		null.NewString(res.CreatedBy, res.CreatedBy != ""),
		res.CreatedAt.UTC(),
		res.UpdatedAt.UTC(),
	)
	if err != nil {
		return resource.Resource{}, errors.Wrap(err, "inserting resource")
	}
	return res, nil
}

func (repo resourceRepository) QueryResources(ctx context.Context, filter *resource.QueryFilter, ordering []core.DBOrdering) ([]resource.Resource, error) {
	q := `SELECT * FROM resource`
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Search != "" {
			args = append(args, "%"+filter.Search+"%")
			n := len(args)
			conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR file_path ILIKE $%d)", n, n))
		}
		if filter.ContentType != "" {
			args = append(args, filter.ContentType)
			conds = append(conds, fmt.Sprintf("content_type = $%d", len(args)))
		}
		if filter.ModuleID != "" {
			args = append(args, filter.ModuleID)
			conds = append(conds, fmt.Sprintf("module_id = $%d", len(args)))
		}
		if filter.CohortID != "" {
			args = append(args, filter.CohortID)
			conds = append(conds, fmt.Sprintf("cohort_id = $%d", len(args)))
		}
	}

	q += whereClause(conds) + orderClause(ordering)

	var rows []resourceRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying resources")
	}
	ress := make([]resource.Resource, 0, len(rows))
	for i := range rows {
		ress = append(ress, rows[i].domain())
	}
	return ress, nil
}

func (repo resourceRepository) GetResource(ctx context.Context, id string) (resource.Resource, error) {
	if _, err := uuid.Parse(id); err != nil {
		return resource.Resource{}, resource.ErrNotFound
	}
	var row resourceRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM resource WHERE id = $1`, id); err != nil {
		return resource.Resource{}, repo.trapNoRowsErr(err, "finding resource")
	}
	return row.domain(), nil
}

func (repo resourceRepository) UpdateResource(ctx context.Context, res resource.Resource) (resource.Resource, error) {
	q := `UPDATE resource SET title = $1, position = $2, updated_at = $3 WHERE id = $4`
	r, err := repo.db.ExecContext(ctx, q, res.Title, res.Position, res.UpdatedAt.UTC(), res.ID)
	if err != nil {
		return resource.Resource{}, errors.Wrap(err, "updating resource")
	}
	if cnt, err := r.RowsAffected(); err == nil && cnt == 0 {
		return resource.Resource{}, resource.ErrNotFound
	}
	return repo.GetResource(ctx, res.ID)
}

func (repo resourceRepository) DeleteResource(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM resource WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting resource")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return resource.ErrNotFound
	}
	return nil
}
