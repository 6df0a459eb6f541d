package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/catalog"
)

type catalogRepository struct {
	db *catalogTable
}

var _ catalog.Repository = (*catalogRepository)(nil)

func NewCatalogRepository(db *DB) *catalogRepository {
	return &catalogRepository{db: db.catalog}
}

// Cohorts

func (repo *catalogRepository) CreateCohort(ctx context.Context, c catalog.Cohort) (catalog.Cohort, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = uuid.New().String()
	repo.db.cohorts[c.ID] = &c
	return c, nil
}

func (repo *catalogRepository) QueryCohorts(ctx context.Context, filter *catalog.CohortQueryFilter, ordering []core.DBOrdering) ([]catalog.Cohort, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	cohorts := make([]catalog.Cohort, 0, len(repo.db.cohorts))
	now := time.Now().UTC()
	for _, c := range repo.db.cohorts {
		if filter != nil {
			if filter.Search != "" && !(containsFold(c.Name, filter.Search) || containsFold(c.Description, filter.Search)) {
				continue
			}
			if filter.Active != nil {
				active := !c.StartsAt.After(now) && !c.EndsAt.Before(now)
				if active != *filter.Active {
					continue
				}
			}
		}
		cohorts = append(cohorts, *c)
	}
	sort.Slice(cohorts, func(i, j int) bool {
		if cohorts[i].CreatedAt.Equal(cohorts[j].CreatedAt) {
			return cohorts[i].ID < cohorts[j].ID
		}
		return cohorts[i].CreatedAt.Before(cohorts[j].CreatedAt)
	})
	return cohorts, nil
}

func (repo *catalogRepository) GetCohort(ctx context.Context, id string) (catalog.Cohort, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.cohorts[id]; ok {
		return *c, nil
	}
	return catalog.Cohort{}, catalog.ErrCohortNotFound
}

func (repo *catalogRepository) UpdateCohort(ctx context.Context, c catalog.Cohort) (catalog.Cohort, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.cohorts[c.ID]
	if !ok {
		return catalog.Cohort{}, catalog.ErrCohortNotFound
	}
	orig.Name = c.Name
	orig.Description = c.Description
	orig.StartsAt = c.StartsAt
	orig.EndsAt = c.EndsAt
	orig.UpdatedAt = c.UpdatedAt
	return *orig, nil
}

func (repo *catalogRepository) DeleteCohort(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.cohorts[id]; !ok {
		return catalog.ErrCohortNotFound
	}
	delete(repo.db.cohorts, id)
	return nil
}

func (repo *catalogRepository) CountModules(ctx context.Context, cohortID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var cnt int
	for _, m := range repo.db.modules {
		if m.CohortID == cohortID {
			cnt++
		}
	}
	return cnt, nil
}

// Modules

func (repo *catalogRepository) cohortModules(cohortID string) []catalog.Module {
	mods := make([]catalog.Module, 0)
	for _, m := range repo.db.modules {
		if m.CohortID == cohortID {
			mods = append(mods, *m)
		}
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].Position < mods[j].Position })
	return mods
}

func (repo *catalogRepository) CreateModule(ctx context.Context, m catalog.Module) (catalog.Module, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	m.ID = uuid.New().String()
	m.Position = 0
	for _, other := range repo.db.modules {
		if other.CohortID == m.CohortID && other.Position >= m.Position {
			m.Position = other.Position + 1
		}
	}
	repo.db.modules[m.ID] = &m
	return m, nil
}

func (repo *catalogRepository) QueryModules(ctx context.Context, cohortID string) ([]catalog.Module, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.cohortModules(cohortID), nil
}

func (repo *catalogRepository) GetModule(ctx context.Context, id string) (catalog.Module, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.modules[id]; ok {
		return *m, nil
	}
	return catalog.Module{}, catalog.ErrModuleNotFound
}

func (repo *catalogRepository) UpdateModule(ctx context.Context, m catalog.Module) (catalog.Module, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.modules[m.ID]
	if !ok {
		return catalog.Module{}, catalog.ErrModuleNotFound
	}
	orig.Title = m.Title
	orig.Summary = m.Summary
	orig.Position = m.Position
	orig.UpdatedAt = m.UpdatedAt
	return *orig, nil
}

func (repo *catalogRepository) DeleteModule(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.modules[id]; !ok {
		return catalog.ErrModuleNotFound
	}
	delete(repo.db.modules, id)
	return nil
}

func (repo *catalogRepository) ReorderModules(ctx context.Context, cohortID string, ids []string) ([]catalog.Module, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	listed := make(map[string]int, len(ids))
	for i, id := range ids {
		listed[id] = i
	}

	current := repo.cohortModules(cohortID)
	ordered := make([]catalog.Module, 0, len(current))
	var rest []catalog.Module
	for _, m := range current {
		if _, ok := listed[m.ID]; ok {
			ordered = append(ordered, m)
		} else {
			rest = append(rest, m)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return listed[ordered[i].ID] < listed[ordered[j].ID] })
	ordered = append(ordered, rest...)

	now := time.Now().UTC()
	for pos := range ordered {
		m := repo.db.modules[ordered[pos].ID]
		m.Position = pos
		m.UpdatedAt = now
		ordered[pos] = *m
	}
	return ordered, nil
}
