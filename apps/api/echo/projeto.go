package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mutamba/coopvida/core/projeto"
)

type projetoApi struct {
	opts *Options
}

func registerProjetoAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := projetoApi{opts: opts}

	pg := g.Group("/projetos")

	// project catalogue is public
	pg.GET("", api.queryProjetos)
	pg.GET("/:id", api.retrieveProjeto)

	// back-office project management
	ag := pg.Group("", jwt, adminMiddleware())
	ag.POST("", api.createProjeto)
	ag.PUT("/:id", api.updateProjeto)

	// member enrollments
	ig := g.Group("/projetos/:id/inscricoes", jwt)
	ig.POST("", api.enroll)

	eg := g.Group("/inscricoes-projeto", jwt)
	eg.DELETE("/:id", api.cancel)

	// back-office enrollment review
	rg := g.Group("/inscricoes-projeto", jwt, adminMiddleware())
	rg.GET("", api.queryInscricoes)
	rg.GET("/:id", api.retrieveInscricao)
	rg.POST("/:id/aprovar", api.approve)
	rg.POST("/:id/rejeitar", api.reject)
}

func (api *projetoApi) queryProjetos(ctx echo.Context) error {
	projs, err := api.opts.ProjetoSvc.QueryProjetos(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying projetos")
	}
	if projs == nil {
		projs = []projeto.Projeto{}
	}
	return ctx.JSON(http.StatusOK, projs)
}

func (api *projetoApi) retrieveProjeto(ctx echo.Context) error {
	proj, err := api.opts.ProjetoSvc.GetProjeto(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, proj)
}

func (api *projetoApi) createProjeto(ctx echo.Context) error {
	var data projeto.NewProjeto
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProjeto")
	}
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	proj, err := api.opts.ProjetoSvc.CreateProjeto(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating projeto")
	}
	return ctx.JSON(http.StatusCreated, proj)
}

func (api *projetoApi) updateProjeto(ctx echo.Context) error {
	var data projeto.UpdateProjeto
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProjeto")
	}
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	proj, err := api.opts.ProjetoSvc.UpdateProjeto(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, proj)
}

func (api *projetoApi) enroll(ctx echo.Context) error {
	coop, err := getContextCooperado(ctx, api.opts.CooperadoSvc)
	if err != nil {
		return errors.Wrap(err, "getting context cooperado")
	}

	var data projeto.NewInscricaoProjeto
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInscricaoProjeto")
	}
	data.ProjetoID = ctx.Param("id")
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	insc, err := api.opts.ProjetoSvc.Enroll(ctx.Request().Context(), coop.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, insc)
}

func (api *projetoApi) cancel(ctx echo.Context) error {
	coop, err := getContextCooperado(ctx, api.opts.CooperadoSvc)
	if err != nil {
		return errors.Wrap(err, "getting context cooperado")
	}
	if err := api.opts.ProjetoSvc.Cancel(ctx.Request().Context(), ctx.Param("id"), coop.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *projetoApi) queryInscricoes(ctx echo.Context) error {
	filter := new(projeto.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []projeto.InscricaoProjeto{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	inscs, err := api.opts.ProjetoSvc.Filter(ctx.Request().Context(), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying inscricoes de projeto")
	}
	if inscs == nil {
		inscs = []projeto.InscricaoProjeto{}
	}
	return ctx.JSON(http.StatusOK, inscs)
}

func (api *projetoApi) retrieveInscricao(ctx echo.Context) error {
	insc, err := api.opts.ProjetoSvc.GetInscricao(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, insc)
}

func (api *projetoApi) approve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	insc, err := api.opts.ProjetoSvc.Approve(ctx.Request().Context(), ctx.Param("id"), claims.Email)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, insc)
}

func (api *projetoApi) reject(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data struct {
		Motivo string `json:"motivo"`
	}
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding rejection payload")
	}

	insc, err := api.opts.ProjetoSvc.Reject(ctx.Request().Context(), ctx.Param("id"), claims.Email, data.Motivo)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, insc)
}
