package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/catalog"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
)

func setup(t *testing.T) *catalog.Service {
	t.Helper()
	db, err := inmemdb.Open()
	require.NoError(t, err)
	return catalog.NewService(inmemdb.NewCatalogRepository(db))
}

func createCohort(t *testing.T, svc *catalog.Service, name string) catalog.Cohort {
	t.Helper()
	now := time.Now()
	c, err := svc.CreateCohort(context.Background(), catalog.NewCohort{
		Name:     name,
		StartsAt: now,
		EndsAt:   now.Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return c
}

func createModule(t *testing.T, svc *catalog.Service, cohortID, title string) catalog.Module {
	t.Helper()
	m, err := svc.CreateModule(context.Background(), catalog.NewModule{CohortID: cohortID, Title: title})
	require.NoError(t, err)
	return m
}

func Test_catalog_modulePositionsAppend(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	c := createCohort(t, svc, "Cohort A")

	m1 := createModule(t, svc, c.ID, "Intro")
	m2 := createModule(t, svc, c.ID, "Basics")
	m3 := createModule(t, svc, c.ID, "Advanced")

	assert.Equal(t, 0, m1.Position)
	assert.Equal(t, 1, m2.Position)
	assert.Equal(t, 2, m3.Position)

	mods, err := svc.QueryModules(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, mods, 3)
	assert.Equal(t, []string{m1.ID, m2.ID, m3.ID}, []string{mods[0].ID, mods[1].ID, mods[2].ID})
}

func Test_catalog_reorderModules(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	c := createCohort(t, svc, "Cohort A")

	m1 := createModule(t, svc, c.ID, "Intro")
	m2 := createModule(t, svc, c.ID, "Basics")
	m3 := createModule(t, svc, c.ID, "Advanced")
	m4 := createModule(t, svc, c.ID, "Wrap-up")

	// partial list: listed modules first, the rest keep their relative order
	mods, err := svc.ReorderModules(ctx, c.ID, []string{m3.ID, m1.ID})
	require.NoError(t, err)
	require.Len(t, mods, 4)

	wantOrder := []string{m3.ID, m1.ID, m2.ID, m4.ID}
	for i, m := range mods {
		assert.Equal(t, wantOrder[i], m.ID)
		assert.Equal(t, i, m.Position, "positions must be contiguous from 0")
	}

	_, err = svc.ReorderModules(ctx, "066967cb-4a4f-46b9-9d24-4457c5464b50", nil)
	assert.Equal(t, catalog.ErrCohortNotFound, errors.Cause(err))
}

func Test_catalog_deleteCohort(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	c := createCohort(t, svc, "Cohort A")
	m := createModule(t, svc, c.ID, "Intro")

	// non-empty cohorts cannot be deleted
	err := svc.DeleteCohort(ctx, c.ID)
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))

	require.NoError(t, svc.DeleteModule(ctx, m.ID))
	require.NoError(t, svc.DeleteCohort(ctx, c.ID))

	_, err = svc.GetCohort(ctx, c.ID)
	assert.Equal(t, catalog.ErrCohortNotFound, errors.Cause(err))
}

func Test_catalog_updateCohort(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	c := createCohort(t, svc, "Cohort A")

	desc := "evening classes"
	up := catalog.UpdateCohort{Name: "Cohort A+", Description: &desc}
	require.NoError(t, up.Validate(validator.New(), c))

	got, err := svc.UpdateCohort(ctx, c.ID, up)
	require.NoError(t, err)
	assert.Equal(t, "Cohort A+", got.Name)
	assert.Equal(t, desc, got.Description)
	assert.Equal(t, c.StartsAt, got.StartsAt, "unset fields keep their original value")
}

func Test_catalog_moduleNeedsExistingCohort(t *testing.T) {
	svc := setup(t)
	_, err := svc.CreateModule(context.Background(), catalog.NewModule{
		CohortID: "73f0c98e-f922-44f3-a97e-3e93c4b24d8b",
		Title:    "Orphan",
	})
	assert.Equal(t, catalog.ErrCohortNotFound, errors.Cause(err))
}
