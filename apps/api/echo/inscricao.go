package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mutamba/coopvida/core/inscricao"
)

type inscricaoApi struct {
	opts *Options
}

func registerInscricaoAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := inscricaoApi{opts: opts}

	ig := g.Group("/inscricoes")

	// un-authed endpoint: the public sign-up form posts here
	ig.POST("", api.submit)

	// back-office endpoints
	ag := ig.Group("", jwt, adminMiddleware())
	ag.GET("", api.query)
	ag.GET("/:id", api.retrieve)
	ag.POST("/:id/aprovar", api.approve)
	ag.POST("/:id/rejeitar", api.reject)
}

func (api *inscricaoApi) submit(ctx echo.Context) error {
	var data inscricao.NewInscricao
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInscricao")
	}
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	insc, err := api.opts.InscricaoSvc.Submit(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting inscricao")
	}
	return ctx.JSON(http.StatusCreated, insc)
}

func (api *inscricaoApi) query(ctx echo.Context) error {
	filter := new(inscricao.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []inscricao.InscricaoPublica{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	inscs, err := api.opts.InscricaoSvc.Filter(ctx.Request().Context(), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying inscricoes")
	}
	if inscs == nil {
		inscs = []inscricao.InscricaoPublica{}
	}
	return ctx.JSON(http.StatusOK, inscs)
}

func (api *inscricaoApi) retrieve(ctx echo.Context) error {
	insc, err := api.opts.InscricaoSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, insc)
}

// approvalResponse leaves the temporary password out of the API payload;
// it only travels in the welcome email.
type approvalResponse struct {
	Inscricao string      `json:"inscricao_id"`
	Cooperado interface{} `json:"cooperado"`
	Pagamento interface{} `json:"pagamento,omitempty"`
}

func (api *inscricaoApi) approve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	admin := inscricao.Identity{Nome: claims.Nome, Email: claims.Email}

	res, err := api.opts.InscricaoSvc.Approve(ctx.Request().Context(), ctx.Param("id"), admin)
	if err != nil {
		return err
	}
	resp := approvalResponse{
		Inscricao: ctx.Param("id"),
		Cooperado: res.Cooperado,
	}
	if res.Pagamento.ID != "" {
		resp.Pagamento = res.Pagamento
	}
	return ctx.JSON(http.StatusOK, resp)
}

type rejectRequest struct {
	Motivo string `json:"motivo"`
}

func (api *inscricaoApi) reject(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	admin := inscricao.Identity{Nome: claims.Nome, Email: claims.Email}

	var data rejectRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to rejectRequest")
	}

	insc, err := api.opts.InscricaoSvc.Reject(ctx.Request().Context(), ctx.Param("id"), admin, data.Motivo)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, insc)
}
