package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/invite"
	"github.com/darasahq/darasa/core/user"
)

type inviteApi struct {
	svc      *invite.Service
	usrSvc   *user.Service
	conf     *core.Config
	validate *validator.Validate
}

func registerInviteAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *invite.Service,
	usrSvc *user.Service,
	conf *core.Config,
	validate *validator.Validate,
) {
	api := inviteApi{
		svc:      svc,
		usrSvc:   usrSvc,
		conf:     conf,
		validate: validate,
	}

	ig := g.Group("/invites")

	// un-authed endpoint; the token is the credential
	ig.POST("/accept", api.accept)

	// authed endpoints
	ag := ig.Group("", jwt, adminMiddleware())
	ag.POST("", api.create)
	ag.GET("", api.query)
	ag.GET("/:id", api.retrieve)
	ag.POST("/:id/revoke", api.revoke)
	ag.POST("/:id/resend", api.resend)
}

// Handlers

func (api *inviteApi) create(ctx echo.Context) error {
	var data invite.NewInvite
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInvite")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	// inviter cannot grant a role > their own max role
	if user.MaxRolePriority(data.Roles) > user.MaxRolePriority(ctxUsr.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	inv, err := api.svc.Create(ctx.Request().Context(), data, ctxUsr)
	if err != nil {
		return errors.Wrap(err, "creating invite")
	}
	return ctx.JSON(http.StatusCreated, inv)
}

var inviteSortFields = []string{"email", "name", "status", "expires_at", "created_at"}

func (api *inviteApi) query(ctx echo.Context) error {
	filter := new(invite.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, inviteSortFields...)

	invs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying invites")
	}
	if invs == nil {
		invs = []invite.Invite{}
	}
	return ctx.JSON(http.StatusOK, invs)
}

func (api *inviteApi) retrieve(ctx echo.Context) error {
	inv, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == invite.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding invite")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *inviteApi) revoke(ctx echo.Context) error {
	inv, err := api.svc.Revoke(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == invite.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "revoking invite")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *inviteApi) resend(ctx echo.Context) error {
	inv, err := api.svc.Resend(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == invite.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "resending invite")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *inviteApi) accept(ctx echo.Context) error {
	var data invite.AcceptInvite
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AcceptInvite")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Accept(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "accepting invite")
	}
	return ctx.JSON(http.StatusCreated, usr)
}
