package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/resource"
	"github.com/darasahq/darasa/core/user"
)

type resourceApi struct {
	svc      *resource.Service
	usrSvc   *user.Service
	conf     *core.Config
	validate *validator.Validate
}

func registerResourceAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *resource.Service,
	usrSvc *user.Service,
	conf *core.Config,
	validate *validator.Validate,
) {
	api := resourceApi{
		svc:      svc,
		usrSvc:   usrSvc,
		conf:     conf,
		validate: validate,
	}

	rg := g.Group("/resources", jwt)
	rg.GET("", api.query)
	rg.GET("/:id", api.retrieve)

	// uploads are staff-only
	rg.POST("/upload-url", api.requestUpload, teacherOrAdminMiddleware())
	rg.POST("/confirm-upload", api.confirmUpload, teacherOrAdminMiddleware())
	rg.POST("", api.createDirect, teacherOrAdminMiddleware())
	rg.PUT("/:id", api.update, teacherOrAdminMiddleware())
	rg.DELETE("/:id", api.destroy, teacherOrAdminMiddleware())
}

// Handlers

// requestUpload issues a pre-signed grant for a direct-to-storage upload.
// Oversized declarations are rejected here, before any byte moves.
func (api *resourceApi) requestUpload(ctx echo.Context) error {
	var data resource.NewUploadRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUploadRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grant, err := api.svc.RequestUpload(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == resource.ErrFileTooLarge {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, resource.ErrFileTooLarge.Error())
		}
		return errors.Wrap(err, "requesting upload")
	}
	return ctx.JSON(http.StatusOK, grant)
}

// confirmUpload turns a completed direct upload into a durable record. The
// blob must already exist in storage; a record is never created before it.
func (api *resourceApi) confirmUpload(ctx echo.Context) error {
	var data resource.ConfirmUpload
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ConfirmUpload")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.ConfirmUpload(ctx.Request().Context(), data, ctxUsr)
	if err != nil {
		if errors.Cause(err) == resource.ErrBlobMissing {
			return core.NewValidationError(nil, core.FieldError{Field: "file_path", Error: resource.ErrBlobMissing.Error()})
		}
		return errors.Wrap(err, "confirming upload")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"resource": res})
}

// createDirect is the small-file path: multipart bytes arrive with the request.
func (api *resourceApi) createDirect(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "file is required"})
	}

	position, _ := strconv.Atoi(ctx.FormValue("position"))
	data := resource.NewDirectResource{
		Filename:    fh.Filename,
		Title:       ctx.FormValue("title"),
		ContentType: ctx.FormValue("content_type"),
		ModuleID:    ctx.FormValue("module_id"),
		CohortID:    ctx.FormValue("cohort_id"),
		Position:    position,
	}
	if data.ContentType == "" {
		data.ContentType = fh.Header.Get("Content-Type")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.CreateDirect(ctx.Request().Context(), data, f, fh.Size, ctxUsr)
	if err != nil {
		if errors.Cause(err) == resource.ErrFileTooLarge {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, resource.ErrFileTooLarge.Error())
		}
		return errors.Wrap(err, "creating resource")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"resource": res})
}

var resourceSortFields = []string{"title", "content_type", "file_size", "position", "created_at", "updated_at"}

func (api *resourceApi) query(ctx echo.Context) error {
	filter := new(resource.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, resourceSortFields...)

	resources, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying resources")
	}
	if resources == nil {
		resources = []resource.Resource{}
	}
	return ctx.JSON(http.StatusOK, resources)
}

func (api *resourceApi) retrieve(ctx echo.Context) error {
	res, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == resource.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding resource")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *resourceApi) update(ctx echo.Context) error {
	orig, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == resource.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding resource")
	}

	var data resource.UpdateResource
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateResource")
	}
	if err := data.Validate(api.validate, orig); err != nil {
		return err
	}

	res, err := api.svc.Update(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating resource")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *resourceApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == resource.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting resource")
	}
	return ctx.NoContent(http.StatusNoContent)
}
