package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mutamba/coopvida/core"
	"github.com/mutamba/coopvida/core/cooperado"
)

type cooperadoApi struct {
	opts *Options
}

func registerCooperadoAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := cooperadoApi{opts: opts}

	// back-office endpoints
	cg := g.Group("/cooperados", jwt, adminMiddleware())
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)

	// member portal
	pg := g.Group("/portal")
	pg.POST("/login", api.login)

	ag := pg.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/me", api.me)
	ag.PUT("/senha", api.changePassword)
}

func (api *cooperadoApi) query(ctx echo.Context) error {
	filter := new(cooperado.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []cooperado.Cooperado{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	coops, err := api.opts.CooperadoSvc.Filter(ctx.Request().Context(), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying cooperados")
	}
	if coops == nil {
		coops = []cooperado.Cooperado{}
	}
	return ctx.JSON(http.StatusOK, coops)
}

func (api *cooperadoApi) retrieve(ctx echo.Context) error {
	coop, err := api.opts.CooperadoSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, coop)
}

func (api *cooperadoApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	claims, err := authenticate(data.Email, data.Senha, api.opts.CooperadoSvc, ctx)
	if err != nil {
		return err
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *cooperadoApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.opts.CooperadoSvc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *cooperadoApi) me(ctx echo.Context) error {
	coop, err := getContextCooperado(ctx, api.opts.CooperadoSvc)
	if err != nil {
		return errors.Wrap(err, "getting context cooperado")
	}
	return ctx.JSON(http.StatusOK, coop)
}

func (api *cooperadoApi) changePassword(ctx echo.Context) error {
	coop, err := getContextCooperado(ctx, api.opts.CooperadoSvc)
	if err != nil {
		return errors.Wrap(err, "getting context cooperado")
	}

	var data cooperado.ChangeSenha
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangeSenha")
	}
	data.NomeCompleto = coop.NomeCompleto
	data.Email = coop.Email
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	if _, err := api.opts.CooperadoSvc.ChangePassword(ctx.Request().Context(), coop.ID, data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been changed."})
}

type (
	LoginRequest struct {
		Email string `json:"email" validate:"required,email"`
		Senha string `json:"senha" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}
