package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/mutamba/coopvida/core"
	"github.com/mutamba/coopvida/core/projeto"
)

type projetoRepository struct {
	db *projetoTable
}

var _ projeto.ProjetoRepository = (*projetoRepository)(nil) // interface compliance check

func NewProjetoRepository(db *DB) projeto.ProjetoRepository {
	return &projetoRepository{db: db.projeto}
}

func (repo *projetoRepository) CreateProjeto(_ context.Context, proj projeto.Projeto) (projeto.Projeto, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	proj.ID = uuid.NewString()
	repo.db.table[proj.ID] = &proj
	return proj, nil
}

func (repo *projetoRepository) GetProjeto(_ context.Context, id string) (projeto.Projeto, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.table[id]; ok {
		return *p, nil
	}
	return projeto.Projeto{}, projeto.ErrProjetoNotFound
}

func (repo *projetoRepository) QueryAllProjetos(_ context.Context) ([]projeto.Projeto, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	projs := make([]projeto.Projeto, 0, len(repo.db.table))
	for _, p := range repo.db.table {
		projs = append(projs, *p)
	}
	sort.Slice(projs, func(i, j int) bool { return projs[i].CreatedAt.Before(projs[j].CreatedAt) })
	return projs, nil
}

func (repo *projetoRepository) UpdateProjeto(_ context.Context, proj projeto.Projeto) (projeto.Projeto, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[proj.ID]; !ok {
		return projeto.Projeto{}, projeto.ErrProjetoNotFound
	}
	repo.db.table[proj.ID] = &proj
	return proj, nil
}

type inscricaoProjetoRepository struct {
	db *inscricaoProjetoTable
}

var _ projeto.Repository = (*inscricaoProjetoRepository)(nil) // interface compliance check

func NewInscricaoProjetoRepository(db *DB) projeto.Repository {
	return &inscricaoProjetoRepository{db: db.inscricaoProjeto}
}

func (repo *inscricaoProjetoRepository) CreateInscricaoProjeto(_ context.Context, insc projeto.InscricaoProjeto) (projeto.InscricaoProjeto, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, i := range repo.db.table {
		if i.CooperadoID == insc.CooperadoID && i.ProjetoID == insc.ProjetoID {
			return projeto.InscricaoProjeto{}, core.NewConflictError(projeto.ErrJaInscrito, "cooperado_projeto")
		}
	}
	insc.ID = uuid.NewString()
	repo.db.table[insc.ID] = &insc
	return insc, nil
}

func (repo *inscricaoProjetoRepository) GetInscricaoProjeto(_ context.Context, id string) (projeto.InscricaoProjeto, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if i, ok := repo.db.table[id]; ok {
		return *i, nil
	}
	return projeto.InscricaoProjeto{}, projeto.ErrNotFound
}

func (repo *inscricaoProjetoRepository) GetInscricaoByPar(_ context.Context, cooperadoID, projetoID string) (projeto.InscricaoProjeto, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, i := range repo.db.table {
		if i.CooperadoID == cooperadoID && i.ProjetoID == projetoID {
			return *i, nil
		}
	}
	return projeto.InscricaoProjeto{}, projeto.ErrNotFound
}

func (repo *inscricaoProjetoRepository) FilterInscricoesProjeto(_ context.Context, filter projeto.QueryFilter, _ ...core.DBOrdering) ([]projeto.InscricaoProjeto, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	inscs := make([]projeto.InscricaoProjeto, 0)
	for _, i := range repo.db.table {
		if filter.ProjetoID != "" && i.ProjetoID != filter.ProjetoID {
			continue
		}
		if filter.CooperadoID != "" && i.CooperadoID != filter.CooperadoID {
			continue
		}
		if filter.Status != "" && i.Status != filter.Status {
			continue
		}
		inscs = append(inscs, *i)
	}
	sort.Slice(inscs, func(a, b int) bool { return inscs[a].CreatedAt.Before(inscs[b].CreatedAt) })
	return inscs, nil
}

func (repo *inscricaoProjetoRepository) UpdateInscricaoProjeto(_ context.Context, insc projeto.InscricaoProjeto) (projeto.InscricaoProjeto, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[insc.ID]; !ok {
		return projeto.InscricaoProjeto{}, projeto.ErrNotFound
	}
	repo.db.table[insc.ID] = &insc
	return insc, nil
}

func (repo *inscricaoProjetoRepository) DeleteInscricaoProjeto(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return projeto.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
