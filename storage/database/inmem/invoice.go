package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/invoice"
)

type invoiceRepository struct {
	db *invoiceTable
}

var _ invoice.Repository = (*invoiceRepository)(nil)

func NewInvoiceRepository(db *DB) *invoiceRepository {
	return &invoiceRepository{db: db.invoice}
}

func (repo *invoiceRepository) query() []invoice.Invoice {
	invs := make([]invoice.Invoice, 0, len(repo.db.table))
	for _, inv := range repo.db.table {
		invs = append(invs, *inv)
	}
	sort.Slice(invs, func(i, j int) bool {
		if invs[i].CreatedAt.Equal(invs[j].CreatedAt) {
			return invs[i].Number < invs[j].Number
		}
		return invs[i].CreatedAt.Before(invs[j].CreatedAt)
	})
	return invs
}

func (repo *invoiceRepository) NextSequence(ctx context.Context, year int) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.counters[year]++
	return repo.db.counters[year], nil
}

func (repo *invoiceRepository) CreateInvoice(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	inv.ID = uuid.New().String()
	repo.db.table[inv.ID] = &inv
	return inv, nil
}

func (repo *invoiceRepository) QueryInvoices(ctx context.Context, filter *invoice.QueryFilter, ordering []core.DBOrdering) ([]invoice.Invoice, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	invs := repo.query()
	if filter == nil {
		return invs, nil
	}

	matched := make([]invoice.Invoice, 0, len(invs))
	for _, inv := range invs {
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		if filter.UserID != "" && inv.UserID != filter.UserID {
			continue
		}
		if filter.CohortID != "" && inv.CohortID != filter.CohortID {
			continue
		}
		if !filter.IssuedFrom.IsZero() && inv.IssuedAt.Before(filter.IssuedFrom) {
			continue
		}
		if !filter.IssuedTo.IsZero() && inv.IssuedAt.After(filter.IssuedTo) {
			continue
		}
		matched = append(matched, inv)
	}
	return matched, nil
}

func (repo *invoiceRepository) GetInvoice(ctx context.Context, id string) (invoice.Invoice, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if inv, ok := repo.db.table[id]; ok {
		return *inv, nil
	}
	return invoice.Invoice{}, invoice.ErrNotFound
}

func (repo *invoiceRepository) UpdateInvoice(ctx context.Context, inv invoice.Invoice) (invoice.Invoice, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[inv.ID]
	if !ok {
		return invoice.Invoice{}, invoice.ErrNotFound
	}
	orig.Description = inv.Description
	orig.AmountCents = inv.AmountCents
	orig.Status = inv.Status
	orig.IssuedAt = inv.IssuedAt
	orig.DueAt = inv.DueAt
	orig.PaidAt = inv.PaidAt
	orig.UpdatedAt = inv.UpdatedAt
	return *orig, nil
}
