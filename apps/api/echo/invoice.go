package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/invoice"
	"github.com/darasahq/darasa/core/user"
)

type invoiceApi struct {
	svc      *invoice.Service
	usrSvc   *user.Service
	conf     *core.Config
	validate *validator.Validate
}

func registerInvoiceAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *invoice.Service,
	usrSvc *user.Service,
	conf *core.Config,
	validate *validator.Validate,
) {
	api := invoiceApi{
		svc:      svc,
		usrSvc:   usrSvc,
		conf:     conf,
		validate: validate,
	}

	ig := g.Group("/invoices", jwt, adminMiddleware())
	ig.POST("", api.create)
	ig.GET("", api.query)
	ig.GET("/:id", api.retrieve)
	ig.PUT("/:id", api.update)
	ig.POST("/:id/send", api.send)
	ig.POST("/:id/pay", api.markPaid)
	ig.POST("/:id/void", api.void)
}

// Handlers

func (api *invoiceApi) create(ctx echo.Context) error {
	var data invoice.NewInvoice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInvoice")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	inv, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating invoice")
	}
	return ctx.JSON(http.StatusCreated, inv)
}

var invoiceSortFields = []string{"number", "status", "amount_cents", "issued_at", "due_at", "paid_at", "created_at"}

func (api *invoiceApi) query(ctx echo.Context) error {
	filter := new(invoice.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, invoiceSortFields...)

	invs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying invoices")
	}
	if invs == nil {
		invs = []invoice.Invoice{}
	}
	return ctx.JSON(http.StatusOK, invs)
}

func (api *invoiceApi) retrieve(ctx echo.Context) error {
	inv, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == invoice.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding invoice")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *invoiceApi) update(ctx echo.Context) error {
	orig, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == invoice.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding invoice")
	}

	var data invoice.UpdateInvoice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateInvoice")
	}
	if err := data.Validate(api.validate, orig); err != nil {
		return err
	}

	inv, err := api.svc.Update(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating invoice")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *invoiceApi) send(ctx echo.Context) error {
	inv, err := api.svc.Send(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == invoice.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "sending invoice")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *invoiceApi) markPaid(ctx echo.Context) error {
	inv, err := api.svc.MarkPaid(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == invoice.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "marking invoice paid")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *invoiceApi) void(ctx echo.Context) error {
	inv, err := api.svc.Void(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == invoice.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "voiding invoice")
	}
	return ctx.JSON(http.StatusOK, inv)
}
