package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/mutamba/coopvida/core"
	"github.com/mutamba/coopvida/core/billing"
)

type planoRepository struct {
	db *planoTable
}

var _ billing.PlanoRepository = (*planoRepository)(nil) // interface compliance check

func NewPlanoRepository(db *DB) billing.PlanoRepository {
	return &planoRepository{db: db.plano}
}

func (repo *planoRepository) CreatePlano(_ context.Context, plano billing.AssinaturaPlano) (billing.AssinaturaPlano, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	plano.ID = uuid.NewString()
	repo.db.table[plano.ID] = &plano
	return plano, nil
}

func (repo *planoRepository) GetPlano(_ context.Context, id string) (billing.AssinaturaPlano, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.table[id]; ok {
		return *p, nil
	}
	return billing.AssinaturaPlano{}, billing.ErrPlanoNotFound
}

func (repo *planoRepository) QueryAllPlanos(_ context.Context) ([]billing.AssinaturaPlano, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	planos := make([]billing.AssinaturaPlano, 0, len(repo.db.table))
	for _, p := range repo.db.table {
		planos = append(planos, *p)
	}
	sort.Slice(planos, func(i, j int) bool { return planos[i].CreatedAt.Before(planos[j].CreatedAt) })
	return planos, nil
}

func (repo *planoRepository) UpdatePlano(_ context.Context, plano billing.AssinaturaPlano) (billing.AssinaturaPlano, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[plano.ID]; !ok {
		return billing.AssinaturaPlano{}, billing.ErrPlanoNotFound
	}
	repo.db.table[plano.ID] = &plano
	return plano, nil
}

type pagamentoRepository struct {
	db *pagamentoTable
}

var _ billing.PagamentoRepository = (*pagamentoRepository)(nil) // interface compliance check

func NewPagamentoRepository(db *DB) billing.PagamentoRepository {
	return &pagamentoRepository{db: db.pagamento}
}

func (repo *pagamentoRepository) CreatePagamento(_ context.Context, pag billing.Pagamento) (billing.Pagamento, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, p := range repo.db.table {
		if p.Referencia == pag.Referencia {
			return billing.Pagamento{}, core.NewConflictError(billing.ErrPagamentoExists, "referencia")
		}
		if pag.Tipo == billing.TipoMensalidade && p.Tipo == billing.TipoMensalidade &&
			p.CooperadoID == pag.CooperadoID && p.MesReferencia == pag.MesReferencia {
			return billing.Pagamento{}, core.NewConflictError(billing.ErrPagamentoExists, "mensalidade_periodo")
		}
	}
	pag.ID = uuid.NewString()
	repo.db.table[pag.ID] = &pag
	return pag, nil
}

func (repo *pagamentoRepository) GetPagamento(_ context.Context, id string) (billing.Pagamento, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.table[id]; ok {
		return *p, nil
	}
	return billing.Pagamento{}, billing.ErrPagamentoNotFound
}

func (repo *pagamentoRepository) GetMensalidade(_ context.Context, cooperadoID, mesReferencia string) (billing.Pagamento, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, p := range repo.db.table {
		if p.Tipo == billing.TipoMensalidade && p.CooperadoID == cooperadoID && p.MesReferencia == mesReferencia {
			return *p, nil
		}
	}
	return billing.Pagamento{}, billing.ErrPagamentoNotFound
}

func (repo *pagamentoRepository) FilterPagamentos(_ context.Context, filter billing.PagamentoFilter, _ ...core.DBOrdering) ([]billing.Pagamento, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	pags := make([]billing.Pagamento, 0)
	for _, p := range repo.db.table {
		if filter.CooperadoID != "" && p.CooperadoID != filter.CooperadoID {
			continue
		}
		if filter.Tipo != "" && p.Tipo != filter.Tipo {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.MesReferencia != "" && p.MesReferencia != filter.MesReferencia {
			continue
		}
		if !filter.VencidoAte.IsZero() && !p.DataVencimento.Before(filter.VencidoAte) {
			continue
		}
		if !filter.PagoDesde.IsZero() && p.DataPagamento.Before(filter.PagoDesde) {
			continue
		}
		pags = append(pags, *p)
	}
	sort.Slice(pags, func(i, j int) bool { return pags[i].DataVencimento.Before(pags[j].DataVencimento) })
	return pags, nil
}

func (repo *pagamentoRepository) UpdatePagamento(_ context.Context, pag billing.Pagamento) (billing.Pagamento, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[pag.ID]; !ok {
		return billing.Pagamento{}, billing.ErrPagamentoNotFound
	}
	repo.db.table[pag.ID] = &pag
	return pag, nil
}
