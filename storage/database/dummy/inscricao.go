package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mutamba/coopvida/core"
	"github.com/mutamba/coopvida/core/inscricao"
)

type inscricaoRepository struct {
	db *inscricaoTable
}

var _ inscricao.Repository = (*inscricaoRepository)(nil) // interface compliance check

func NewInscricaoRepository(db *DB) inscricao.Repository {
	return &inscricaoRepository{db: db.inscricao}
}

func (repo *inscricaoRepository) CreateInscricao(_ context.Context, insc inscricao.InscricaoPublica) (inscricao.InscricaoPublica, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	insc.ID = uuid.NewString()
	repo.db.table[insc.ID] = &insc
	return insc, nil
}

func (repo *inscricaoRepository) GetInscricao(_ context.Context, id string) (inscricao.InscricaoPublica, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if insc, ok := repo.db.table[id]; ok {
		return *insc, nil
	}
	return inscricao.InscricaoPublica{}, inscricao.ErrNotFound
}

func (repo *inscricaoRepository) FilterInscricoes(_ context.Context, filter inscricao.QueryFilter, _ ...core.DBOrdering) ([]inscricao.InscricaoPublica, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	inscs := make([]inscricao.InscricaoPublica, 0)
	for _, i := range repo.db.table {
		if filter.Status != "" && i.Status != filter.Status {
			continue
		}
		if !filter.CreatedFrom.IsZero() && i.CreatedAt.Before(filter.CreatedFrom) {
			continue
		}
		if !filter.CreatedTo.IsZero() && i.CreatedAt.After(filter.CreatedTo) {
			continue
		}
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(i.NomeCompleto), search) &&
				!strings.Contains(strings.ToLower(i.Email), search) {
				continue
			}
		}
		inscs = append(inscs, *i)
	}
	sort.Slice(inscs, func(a, b int) bool { return inscs[a].CreatedAt.Before(inscs[b].CreatedAt) })
	return inscs, nil
}

func (repo *inscricaoRepository) UpdateInscricao(_ context.Context, insc inscricao.InscricaoPublica) (inscricao.InscricaoPublica, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[insc.ID]; !ok {
		return inscricao.InscricaoPublica{}, inscricao.ErrNotFound
	}
	repo.db.table[insc.ID] = &insc
	return insc, nil
}
