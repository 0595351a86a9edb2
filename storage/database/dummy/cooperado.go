package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mutamba/coopvida/core"
	"github.com/mutamba/coopvida/core/cooperado"
)

type cooperadoRepository struct {
	db *cooperadoTable
}

var _ cooperado.Repository = (*cooperadoRepository)(nil) // interface compliance check

func NewCooperadoRepository(db *DB) cooperado.Repository {
	return &cooperadoRepository{db: db.cooperado}
}

func (repo *cooperadoRepository) query() []cooperado.Cooperado {
	coops := make([]cooperado.Cooperado, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		coops = append(coops, *c)
	}
	sort.Slice(coops, func(i, j int) bool { return coops[i].CreatedAt.Before(coops[j].CreatedAt) })
	return coops
}

func (repo *cooperadoRepository) CreateCooperado(_ context.Context, coop cooperado.Cooperado) (cooperado.Cooperado, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, c := range repo.db.table {
		if c.Email == coop.Email {
			return cooperado.Cooperado{}, core.NewConflictError(cooperado.ErrEmailExists, "email")
		}
		if c.NumeroAssociado == coop.NumeroAssociado {
			return cooperado.Cooperado{}, core.NewConflictError(cooperado.ErrNumeroExists, "numero_associado")
		}
	}
	coop.ID = uuid.NewString()
	repo.db.table[coop.ID] = &coop
	return coop, nil
}

func (repo *cooperadoRepository) GetCooperado(_ context.Context, filter cooperado.GetFilter) (cooperado.Cooperado, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if c, ok := repo.db.table[filter.ID]; ok {
			return *c, nil
		}
		return cooperado.Cooperado{}, cooperado.ErrNotFound
	}
	for _, c := range repo.db.table {
		if filter.NumeroAssociado != "" && c.NumeroAssociado == filter.NumeroAssociado {
			return *c, nil
		}
		if filter.Email != "" && c.Email == filter.Email {
			return *c, nil
		}
	}
	return cooperado.Cooperado{}, cooperado.ErrNotFound
}

func (repo *cooperadoRepository) FilterCooperados(_ context.Context, filter cooperado.QueryFilter, _ ...core.DBOrdering) ([]cooperado.Cooperado, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	coops := make([]cooperado.Cooperado, 0)
	for _, c := range repo.query() {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.ComPlano != nil && *filter.ComPlano != c.HasPlano() {
			continue
		}
		if !filter.CreatedFrom.IsZero() && c.CreatedAt.Before(filter.CreatedFrom) {
			continue
		}
		if !filter.CreatedTo.IsZero() && c.CreatedAt.After(filter.CreatedTo) {
			continue
		}
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(c.NomeCompleto), search) &&
				!strings.Contains(strings.ToLower(c.Email), search) &&
				!strings.Contains(strings.ToLower(c.NumeroAssociado), search) {
				continue
			}
		}
		coops = append(coops, c)
	}
	return coops, nil
}

func (repo *cooperadoRepository) UpdateCooperado(_ context.Context, coop cooperado.Cooperado) (cooperado.Cooperado, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[coop.ID]; !ok {
		return cooperado.Cooperado{}, cooperado.ErrNotFound
	}
	repo.db.table[coop.ID] = &coop
	return coop, nil
}

func (repo *cooperadoRepository) DeleteCooperado(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return cooperado.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
