package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/catalog"
	"github.com/darasahq/darasa/core/user"
)

type catalogApi struct {
	svc      *catalog.Service
	usrSvc   *user.Service
	conf     *core.Config
	validate *validator.Validate
}

func registerCatalogAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *catalog.Service,
	usrSvc *user.Service,
	conf *core.Config,
	validate *validator.Validate,
) {
	api := catalogApi{
		svc:      svc,
		usrSvc:   usrSvc,
		conf:     conf,
		validate: validate,
	}

	cg := g.Group("/cohorts", jwt)
	cg.GET("", api.queryCohorts)
	cg.GET("/:id", api.retrieveCohort)
	cg.GET("/:id/modules", api.queryModules)

	// mutations are staff-only
	cg.POST("", api.createCohort, adminMiddleware())
	cg.PUT("/:id", api.updateCohort, adminMiddleware())
	cg.DELETE("/:id", api.destroyCohort, adminMiddleware())
	cg.POST("/:id/modules/reorder", api.reorderModules, teacherOrAdminMiddleware())

	mg := g.Group("/modules", jwt)
	mg.GET("/:id", api.retrieveModule)
	mg.POST("", api.createModule, teacherOrAdminMiddleware())
	mg.PUT("/:id", api.updateModule, teacherOrAdminMiddleware())
	mg.DELETE("/:id", api.destroyModule, teacherOrAdminMiddleware())
}

// Cohort handlers

func (api *catalogApi) createCohort(ctx echo.Context) error {
	var data catalog.NewCohort
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCohort")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.CreateCohort(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating cohort")
	}
	return ctx.JSON(http.StatusCreated, c)
}

var cohortSortFields = []string{"name", "starts_at", "ends_at", "created_at", "updated_at"}

func (api *catalogApi) queryCohorts(ctx echo.Context) error {
	filter := new(catalog.CohortQueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to CohortQueryFilter")
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, cohortSortFields...)

	cohorts, err := api.svc.QueryCohorts(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying cohorts")
	}
	if cohorts == nil {
		cohorts = []catalog.Cohort{}
	}
	return ctx.JSON(http.StatusOK, cohorts)
}

func (api *catalogApi) retrieveCohort(ctx echo.Context) error {
	c, err := api.svc.GetCohort(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == catalog.ErrCohortNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding cohort")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *catalogApi) updateCohort(ctx echo.Context) error {
	orig, err := api.svc.GetCohort(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == catalog.ErrCohortNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding cohort")
	}

	var data catalog.UpdateCohort
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCohort")
	}
	if err := data.Validate(api.validate, orig); err != nil {
		return err
	}

	c, err := api.svc.UpdateCohort(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating cohort")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *catalogApi) destroyCohort(ctx echo.Context) error {
	if err := api.svc.DeleteCohort(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == catalog.ErrCohortNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting cohort")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Module handlers

func (api *catalogApi) createModule(ctx echo.Context) error {
	var data catalog.NewModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.svc.CreateModule(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == catalog.ErrCohortNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "cohort_id", Error: catalog.ErrCohortNotFound.Error()})
		}
		return errors.Wrap(err, "creating module")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *catalogApi) queryModules(ctx echo.Context) error {
	mods, err := api.svc.QueryModules(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying modules")
	}
	if mods == nil {
		mods = []catalog.Module{}
	}
	return ctx.JSON(http.StatusOK, mods)
}

func (api *catalogApi) retrieveModule(ctx echo.Context) error {
	m, err := api.svc.GetModule(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == catalog.ErrModuleNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding module")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *catalogApi) updateModule(ctx echo.Context) error {
	orig, err := api.svc.GetModule(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == catalog.ErrModuleNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding module")
	}

	var data catalog.UpdateModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateModule")
	}
	if err := data.Validate(api.validate, orig); err != nil {
		return err
	}

	m, err := api.svc.UpdateModule(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating module")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *catalogApi) destroyModule(ctx echo.Context) error {
	if err := api.svc.DeleteModule(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == catalog.ErrModuleNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting module")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type ReorderModulesRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,uuid4"`
}

func (api *catalogApi) reorderModules(ctx echo.Context) error {
	var data ReorderModulesRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReorderModulesRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	mods, err := api.svc.ReorderModules(ctx.Request().Context(), ctx.Param("id"), data.IDs)
	if err != nil {
		if errors.Cause(err) == catalog.ErrCohortNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "reordering modules")
	}
	return ctx.JSON(http.StatusOK, mods)
}
