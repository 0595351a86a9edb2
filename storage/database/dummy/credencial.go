package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/mutamba/coopvida/core"
	"github.com/mutamba/coopvida/core/cooperado"
)

type credencialRepository struct {
	db *credencialTable
}

var _ cooperado.CredencialRepository = (*credencialRepository)(nil) // interface compliance check

func NewCredencialRepository(db *DB) cooperado.CredencialRepository {
	return &credencialRepository{db: db.credencial}
}

func (repo *credencialRepository) CreateCredencial(_ context.Context, cred cooperado.Credencial) (cooperado.Credencial, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, c := range repo.db.table {
		if c.Email == cred.Email {
			return cooperado.Credencial{}, core.NewConflictError(cooperado.ErrCredencialExists, "email")
		}
		if c.CooperadoID == cred.CooperadoID {
			return cooperado.Credencial{}, core.NewConflictError(cooperado.ErrCredencialExists, "cooperado_id")
		}
	}
	cred.ID = uuid.NewString()
	repo.db.table[cred.ID] = &cred
	return cred, nil
}

func (repo *credencialRepository) GetCredencialByCooperado(_ context.Context, cooperadoID string) (cooperado.Credencial, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.db.table {
		if c.CooperadoID == cooperadoID {
			return *c, nil
		}
	}
	return cooperado.Credencial{}, cooperado.ErrCredencialNotFound
}

func (repo *credencialRepository) GetCredencialByEmail(_ context.Context, email string) (cooperado.Credencial, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.db.table {
		if c.Email == email {
			return *c, nil
		}
	}
	return cooperado.Credencial{}, cooperado.ErrCredencialNotFound
}

func (repo *credencialRepository) UpdateCredencial(_ context.Context, cred cooperado.Credencial) (cooperado.Credencial, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[cred.ID]; !ok {
		return cooperado.Credencial{}, cooperado.ErrCredencialNotFound
	}
	repo.db.table[cred.ID] = &cred
	return cred, nil
}

func (repo *credencialRepository) UpdateCredencialByEmail(_ context.Context, email string, cred cooperado.Credencial) (cooperado.Credencial, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, c := range repo.db.table {
		if c.Email == email {
			updated := *c
			updated.CooperadoID = cred.CooperadoID
			updated.SenhaHash = cred.SenhaHash
			updated.Status = cred.Status
			updated.UpdatedAt = cred.UpdatedAt
			repo.db.table[id] = &updated
			return updated, nil
		}
	}
	return cooperado.Credencial{}, cooperado.ErrCredencialNotFound
}
