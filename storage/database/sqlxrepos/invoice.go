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
	"github.com/darasahq/darasa/core/invoice"
)

type invoiceRow struct {
	ID          string      `db:"id"`
	Number      string      `db:"number"`
	UserID      string      `db:"user_id"`
	CohortID    null.String `db:"cohort_id"`
	Description string      `db:"description"`
	AmountCents int64       `db:"amount_cents"`
	Currency    string      `db:"currency"`
	Status      string      `db:"status"`
	IssuedAt    null.Time   `db:"issued_at"`
	DueAt       time.Time   `db:"due_at"`
	PaidAt      null.Time   `db:"paid_at"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (row *invoiceRow) domain() invoice.Invoice {
	return invoice.Invoice{
		ID:          row.ID,
		Number:      row.Number,
		UserID:      row.UserID,
		CohortID:    row.CohortID.String,
		Description: row.Description,
		AmountCents: row.AmountCents,
		Currency:    row.Currency,
		Status:      row.Status,
		IssuedAt:    row.IssuedAt.Time,
		DueAt:       row.DueAt,
		PaidAt:      row.PaidAt.Time,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

type invoiceRepository struct {
	db *sqlx.DB
}

var _ invoice.Repository = (*invoiceRepository)(nil) // interface compliance check

func NewInvoiceRepository(db *sqlx.DB) *invoiceRepository {
	return &invoiceRepository{db: db}
}

func (repo invoiceRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return invoice.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// NextSequence hands out numbers scoped per year; the upsert keeps it atomic
// under concurrent invoice creation.
func (repo invoiceRepository) NextSequence(ctx context.Context, year int) (int, error) {
	q := `INSERT INTO invoice_counter (year, seq) VALUES ($1, 1)
	      ON CONFLICT (year) DO UPDATE SET seq = invoice_counter.seq + 1
	      RETURNING seq`
	var seq int
	if err := repo.db.QueryRowxContext(ctx, q, year).Scan(&seq); err != nil {
		return 0, errors.Wrap(err, "allocating invoice sequence")
	}
	return seq, nil
}

func (repo invoiceRepository) CreateInvoice(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error) {
	inv.ID = uuid.New().String()
	q := `INSERT INTO invoice (id, number, user_id, cohort_id, description, amount_cents, currency, status, issued_at, due_at, paid_at, created_at, updated_at)
	      VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := repo.db.ExecContext(ctx, q,
		inv.ID,
		inv.Number,
		inv.UserID,
		null.NewString(inv.CohortID, inv.CohortID != ""),
		inv.Description,
		inv.AmountCents,
		inv.Currency,
		inv.Status,
		null.NewTime(inv.IssuedAt.UTC(), !inv.IssuedAt.IsZero()),
		inv.DueAt.UTC(),
		null.NewTime(inv.PaidAt.UTC(), !inv.PaidAt.IsZero()),
		inv.CreatedAt.UTC(),
		inv.UpdatedAt.UTC(),
	)
	if err != nil {
		return invoice.Invoice{}, errors.Wrap(err, "inserting invoice")
	}
	return inv, nil
}

func (repo invoiceRepository) QueryInvoices(ctx context.Context, filter *invoice.QueryFilter, ordering []core.DBOrdering) ([]invoice.Invoice, error) {
	q := `SELECT * FROM invoice`
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Status != "" {
			args = append(args, filter.Status)
			conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
		}
		if filter.UserID != "" {
			args = append(args, filter.UserID)
			conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
		}
		if filter.CohortID != "" {
			args = append(args, filter.CohortID)
			conds = append(conds, fmt.Sprintf("cohort_id = $%d", len(args)))
		}
		if !filter.IssuedFrom.IsZero() {
			args = append(args, filter.IssuedFrom.UTC())
			conds = append(conds, fmt.Sprintf("issued_at >= $%d", len(args)))
		}
		if !filter.IssuedTo.IsZero() {
			args = append(args, filter.IssuedTo.UTC())
			conds = append(conds, fmt.Sprintf("issued_at <= $%d", len(args)))
		}
	}

	q += whereClause(conds) + orderClause(ordering)

	var rows []invoiceRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying invoices")
	}
	invs := make([]invoice.Invoice, 0, len(rows))
	for i := range rows {
		invs = append(invs, rows[i].domain())
	}
	return invs, nil
}

func (repo invoiceRepository) GetInvoice(ctx context.Context, id string) (invoice.Invoice, error) {
	if _, err := uuid.Parse(id); err != nil {
		return invoice.Invoice{}, invoice.ErrNotFound
	}
	var row invoiceRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM invoice WHERE id = $1`, id); err != nil {
		return invoice.Invoice{}, repo.trapNoRowsErr(err, "finding invoice")
	}
	return row.domain(), nil
}

func (repo invoiceRepository) UpdateInvoice(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error) {
	q := `UPDATE invoice SET description = $1, amount_cents = $2, status = $3, issued_at = $4, due_at = $5, paid_at = $6, updated_at = $7
	      WHERE id = $8`
	res, err := repo.db.ExecContext(ctx, q,
		inv.Description,
		inv.AmountCents,
		inv.Status,
		null.NewTime(inv.IssuedAt.UTC(), !inv.IssuedAt.IsZero()),
		inv.DueAt.UTC(),
		null.NewTime(inv.PaidAt.UTC(), !inv.PaidAt.IsZero()),
		inv.UpdatedAt.UTC(),
		inv.ID,
	)
	if err != nil {
		return invoice.Invoice{}, errors.Wrap(err, "updating invoice")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return invoice.Invoice{}, invoice.ErrNotFound
	}
	return repo.GetInvoice(ctx, inv.ID)
}
