package catalog

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

var (
	// errors
	ErrCohortNotFound = errors.New("cohort not found")
	ErrModuleNotFound = errors.New("module not found")
	ErrCohortNotEmpty = errors.New("cohort still has modules")
)

type (
	Repository interface {
		CreateCohort(ctx context.Context, c Cohort) (Cohort, error)
		QueryCohorts(ctx context.Context, filter *CohortQueryFilter, ordering []core.DBOrdering) ([]Cohort, error)
		GetCohort(ctx context.Context, id string) (Cohort, error)
		UpdateCohort(ctx context.Context, c Cohort) (Cohort, error)
		DeleteCohort(ctx context.Context, id string) error
		CountModules(ctx context.Context, cohortID string) (int, error)

		// CreateModule appends the module at the end of its cohort's ordering.
		CreateModule(ctx context.Context, m Module) (Module, error)
		QueryModules(ctx context.Context, cohortID string) ([]Module, error)
		GetModule(ctx context.Context, id string) (Module, error)
		UpdateModule(ctx context.Context, m Module) (Module, error)
		DeleteModule(ctx context.Context, id string) error
		// ReorderModules assigns contiguous positions (0..n-1) following the
		// order of ids. Modules of the cohort missing from ids keep their
		// relative order after the listed ones.
		ReorderModules(ctx context.Context, cohortID string, ids []string) ([]Module, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Cohorts

func (svc *Service) CreateCohort(ctx context.Context, nc NewCohort) (Cohort, error) {
	now := time.Now().UTC()
	return svc.repo.CreateCohort(ctx, Cohort{
		Name:        nc.Name,
		Description: nc.Description,
		StartsAt:    nc.StartsAt.UTC(),
		EndsAt:      nc.EndsAt.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) QueryCohorts(ctx context.Context, filter *CohortQueryFilter, ordering []core.DBOrdering) ([]Cohort, error) {
	return svc.repo.QueryCohorts(ctx, filter, ordering)
}

func (svc *Service) GetCohort(ctx context.Context, id string) (Cohort, error) {
	return svc.repo.GetCohort(ctx, id)
}

func (svc *Service) UpdateCohort(ctx context.Context, id string, uc UpdateCohort) (Cohort, error) {
	c := Cohort{
		ID:          id,
		Name:        uc.Name,
		Description: *uc.Description,
		StartsAt:    uc.StartsAt.UTC(),
		EndsAt:      uc.EndsAt.UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	return svc.repo.UpdateCohort(ctx, c)
}

// DeleteCohort removes an empty cohort; a cohort with modules cannot be deleted.
func (svc *Service) DeleteCohort(ctx context.Context, id string) error {
	cnt, err := svc.repo.CountModules(ctx, id)
	if err != nil {
		return errors.Wrap(err, "counting cohort modules")
	}
	if cnt > 0 {
		return core.NewValidationError(ErrCohortNotEmpty)
	}
	return svc.repo.DeleteCohort(ctx, id)
}

// Modules

func (svc *Service) CreateModule(ctx context.Context, nm NewModule) (Module, error) {
	if _, err := svc.repo.GetCohort(ctx, nm.CohortID); err != nil {
		return Module{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateModule(ctx, Module{
		CohortID:  nm.CohortID,
		Title:     nm.Title,
		Summary:   nm.Summary,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) QueryModules(ctx context.Context, cohortID string) ([]Module, error) {
	return svc.repo.QueryModules(ctx, cohortID)
}

func (svc *Service) GetModule(ctx context.Context, id string) (Module, error) {
	return svc.repo.GetModule(ctx, id)
}

func (svc *Service) UpdateModule(ctx context.Context, id string, um UpdateModule) (Module, error) {
	orig, err := svc.repo.GetModule(ctx, id)
	if err != nil {
		return Module{}, err
	}
	orig.Title = um.Title
	orig.Summary = *um.Summary
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateModule(ctx, orig)
}

func (svc *Service) DeleteModule(ctx context.Context, id string) error {
	return svc.repo.DeleteModule(ctx, id)
}

func (svc *Service) ReorderModules(ctx context.Context, cohortID string, ids []string) ([]Module, error) {
	if _, err := svc.repo.GetCohort(ctx, cohortID); err != nil {
		return nil, err
	}
	return svc.repo.ReorderModules(ctx, cohortID, ids)
}
