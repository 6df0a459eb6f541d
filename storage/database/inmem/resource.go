package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/resource"
)

type resourceRepository struct {
	db *resourceTable
}

var _ resource.Repository = (*resourceRepository)(nil)

func NewResourceRepository(db *DB) *resourceRepository {
	return &resourceRepository{db: db.resource}
}

func (repo *resourceRepository) query() []resource.Resource {
	ress := make([]resource.Resource, 0, len(repo.db.table))
	for _, res := range repo.db.table {
		ress = append(ress, *res)
	}
	sort.Slice(ress, func(i, j int) bool {
		if ress[i].CreatedAt.Equal(ress[j].CreatedAt) {
			return ress[i].ID < ress[j].ID
		}
		return ress[i].CreatedAt.Before(ress[j].CreatedAt)
	})
	return ress
}

func (repo *resourceRepository) CreateResource(ctx context.Context, res resource.Resource) (resource.Resource, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	res.ID = uuid.New().String()
	repo.db.table[res.ID] = &res
	return res, nil
}

func (repo *resourceRepository) QueryResources(ctx context.Context, filter *resource.QueryFilter, ordering []core.DBOrdering) ([]resource.Resource, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ress := repo.query()
	if filter == nil {
		return ress, nil
	}

	matched := make([]resource.Resource, 0, len(ress))
	for _, res := range ress {
		if filter.Search != "" && !(containsFold(res.Title, filter.Search) || containsFold(res.FilePath, filter.Search)) {
			continue
		}
		if filter.ContentType != "" && res.ContentType != filter.ContentType {
			continue
		}
		if filter.ModuleID != "" && res.ModuleID != filter.ModuleID {
			continue
		}
		if filter.CohortID != "" && res.CohortID != filter.CohortID {
			continue
		}
		matched = append(matched, res)
	}
	return matched, nil
}

func (repo *resourceRepository) GetResource(ctx context.Context, id string) (resource.Resource, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if res, ok := repo.db.table[id]; ok {
		return *res, nil
	}
	return resource.Resource{}, resource.ErrNotFound
}

func (repo *resourceRepository) UpdateResource(ctx context.Context, res resource.Resource) (resource.Resource, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[res.ID]
	if !ok {
		return resource.Resource{}, resource.ErrNotFound
	}
	orig.Title = res.Title
	orig.Position = res.Position
	orig.UpdatedAt = res.UpdatedAt
	return *orig, nil
}

func (repo *resourceRepository) DeleteResource(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return resource.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
