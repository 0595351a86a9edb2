package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mutamba/coopvida/core/billing"
)

type billingApi struct {
	opts *Options
}

func registerBillingAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := billingApi{opts: opts}

	// plans are public reference data (the sign-up form lists them)
	g.GET("/planos", api.queryPlanos)

	// back-office plan management
	pg := g.Group("/planos", jwt, adminMiddleware())
	pg.POST("", api.createPlano)
	pg.GET("/:id", api.retrievePlano)
	pg.PUT("/:id", api.updatePlano)

	// back-office ledger
	bg := g.Group("/pagamentos", jwt, adminMiddleware())
	bg.GET("", api.queryPagamentos)
	bg.GET("/:id", api.retrievePagamento)
	bg.POST("/:id/confirmar", api.confirmPagamento)
	bg.POST("/:id/cancelar", api.cancelPagamento)

	// billing sweeps, normally run by the scheduler; exposed for ops
	cg := g.Group("/billing", jwt, adminMiddleware())
	cg.POST("/ciclo", api.runCycle)
	cg.POST("/suspender", api.suspendOverdue)
	cg.POST("/reativar", api.reactivatePaid)

	// member portal: own payment history
	g.GET("/portal/pagamentos", api.myPagamentos, jwt)
}

func (api *billingApi) queryPlanos(ctx echo.Context) error {
	planos, err := api.opts.BillingSvc.QueryPlanos(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying planos")
	}
	if planos == nil {
		planos = []billing.AssinaturaPlano{}
	}
	return ctx.JSON(http.StatusOK, planos)
}

func (api *billingApi) createPlano(ctx echo.Context) error {
	var data billing.NewPlano
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPlano")
	}
	if err := api.opts.Validate.Struct(&data); err != nil {
		return err
	}

	plano, err := api.opts.BillingSvc.CreatePlano(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating plano")
	}
	return ctx.JSON(http.StatusCreated, plano)
}

func (api *billingApi) retrievePlano(ctx echo.Context) error {
	plano, err := api.opts.BillingSvc.GetPlano(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, plano)
}

func (api *billingApi) updatePlano(ctx echo.Context) error {
	var data billing.UpdatePlano
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePlano")
	}
	if err := api.opts.Validate.Struct(&data); err != nil {
		return err
	}

	plano, err := api.opts.BillingSvc.UpdatePlano(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, plano)
}

func (api *billingApi) queryPagamentos(ctx echo.Context) error {
	filter := new(billing.PagamentoFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []billing.Pagamento{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	pags, err := api.opts.BillingSvc.FilterPagamentos(ctx.Request().Context(), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying pagamentos")
	}
	if pags == nil {
		pags = []billing.Pagamento{}
	}
	return ctx.JSON(http.StatusOK, pags)
}

func (api *billingApi) retrievePagamento(ctx echo.Context) error {
	pag, err := api.opts.BillingSvc.GetPagamento(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, pag)
}

type confirmPagamentoRequest struct {
	MetodoPagamento string `json:"metodo_pagamento"`
}

func (api *billingApi) confirmPagamento(ctx echo.Context) error {
	var data confirmPagamentoRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to confirmPagamentoRequest")
	}

	pag, err := api.opts.BillingSvc.ConfirmPagamento(ctx.Request().Context(), ctx.Param("id"), data.MetodoPagamento)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, pag)
}

func (api *billingApi) cancelPagamento(ctx echo.Context) error {
	pag, err := api.opts.BillingSvc.CancelPagamento(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, pag)
}

func (api *billingApi) runCycle(ctx echo.Context) error {
	res, err := api.opts.BillingSvc.RunCycle(ctx.Request().Context(), time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "running billing cycle")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *billingApi) suspendOverdue(ctx echo.Context) error {
	n, err := api.opts.BillingSvc.SuspendOverdue(ctx.Request().Context(), time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "suspending overdue cooperados")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"suspensos": n})
}

func (api *billingApi) reactivatePaid(ctx echo.Context) error {
	n, err := api.opts.BillingSvc.ReactivatePaid(ctx.Request().Context(), time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "reactivating cooperados")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"reativados": n})
}

func (api *billingApi) myPagamentos(ctx echo.Context) error {
	coop, err := getContextCooperado(ctx, api.opts.CooperadoSvc)
	if err != nil {
		return errors.Wrap(err, "getting context cooperado")
	}

	filter := billing.PagamentoFilter{CooperadoID: coop.ID}
	pags, err := api.opts.BillingSvc.FilterPagamentos(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying own pagamentos")
	}
	if pags == nil {
		pags = []billing.Pagamento{}
	}
	return ctx.JSON(http.StatusOK, pags)
}
