package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mutamba/coopvida/core"
	"github.com/mutamba/coopvida/core/cooperado"
)

type credencialRow struct {
	ID                 string    `db:"id"`
	CooperadoID        string    `db:"cooperado_id"`
	Email              string    `db:"email"`
	SenhaHash          []byte    `db:"senha_hash"`
	Status             string    `db:"status"`
	SenhaAlterada      bool      `db:"senha_alterada"`
	DataAlteracaoSenha null.Time `db:"data_alteracao_senha"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func newCredencialRow(cred cooperado.Credencial) credencialRow {
	return credencialRow{
		ID:                 cred.ID,
		CooperadoID:        cred.CooperadoID,
		Email:              cred.Email,
		SenhaHash:          cred.SenhaHash,
		Status:             cred.Status,
		SenhaAlterada:      cred.SenhaAlterada,
		DataAlteracaoSenha: null.NewTime(cred.DataAlteracaoSenha, !cred.DataAlteracaoSenha.IsZero()),
		CreatedAt:          cred.CreatedAt,
		UpdatedAt:          cred.UpdatedAt,
	}
}

func (row credencialRow) credencial() cooperado.Credencial {
	return cooperado.Credencial{
		ID:                 row.ID,
		CooperadoID:        row.CooperadoID,
		Email:              row.Email,
		SenhaHash:          row.SenhaHash,
		Status:             row.Status,
		SenhaAlterada:      row.SenhaAlterada,
		DataAlteracaoSenha: row.DataAlteracaoSenha.Time,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}

const credencialCols = `id, cooperado_id, email, senha_hash, status, senha_alterada,
	data_alteracao_senha, created_at, updated_at`

type credencialRepository struct {
	db core.DBExecutor
}

var _ cooperado.CredencialRepository = (*credencialRepository)(nil) // interface compliance check

func NewCredencialRepository(db core.DBExecutor) cooperado.CredencialRepository {
	return &credencialRepository{db: db}
}

func (repo *credencialRepository) CreateCredencial(ctx context.Context, cred cooperado.Credencial) (cooperado.Credencial, error) {
	cred.ID = uuid.NewString()
	query := `
		INSERT INTO credencial (` + credencialCols + `)
		VALUES (:id, :cooperado_id, :email, :senha_hash, :status, :senha_alterada,
			:data_alteracao_senha, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, newCredencialRow(cred)); err != nil {
		return cooperado.Credencial{}, conflictErr(err, cooperado.ErrCredencialExists)
	}
	return cred, nil
}

func (repo *credencialRepository) GetCredencialByCooperado(ctx context.Context, cooperadoID string) (cooperado.Credencial, error) {
	return repo.get(ctx, "cooperado_id = $1", cooperadoID)
}

func (repo *credencialRepository) GetCredencialByEmail(ctx context.Context, email string) (cooperado.Credencial, error) {
	return repo.get(ctx, "LOWER(email) = LOWER($1)", email)
}

func (repo *credencialRepository) get(ctx context.Context, cond string, arg interface{}) (cooperado.Credencial, error) {
	var row credencialRow
	query := `SELECT ` + credencialCols + ` FROM credencial WHERE ` + cond
	if err := repo.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cooperado.Credencial{}, cooperado.ErrCredencialNotFound
		}
		return cooperado.Credencial{}, err
	}
	return row.credencial(), nil
}

func (repo *credencialRepository) UpdateCredencial(ctx context.Context, cred cooperado.Credencial) (cooperado.Credencial, error) {
	query := `
		UPDATE credencial SET
			email = :email, senha_hash = :senha_hash, status = :status,
			senha_alterada = :senha_alterada, data_alteracao_senha = :data_alteracao_senha,
			updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, newCredencialRow(cred))
	if err != nil {
		return cooperado.Credencial{}, conflictErr(err, cooperado.ErrCredencialExists)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return cooperado.Credencial{}, cooperado.ErrCredencialNotFound
	}
	return cred, nil
}

// UpdateCredencialByEmail re-links an orphaned credential row to a new member;
// only ownership and password fields are rewritten.
func (repo *credencialRepository) UpdateCredencialByEmail(ctx context.Context, email string, cred cooperado.Credencial) (cooperado.Credencial, error) {
	query := `
		UPDATE credencial SET
			cooperado_id = $2, senha_hash = $3, status = $4, updated_at = $5
		WHERE LOWER(email) = LOWER($1)`
	res, err := repo.db.ExecContext(ctx, query, email, cred.CooperadoID, cred.SenhaHash, cred.Status, cred.UpdatedAt)
	if err != nil {
		return cooperado.Credencial{}, conflictErr(err, cooperado.ErrCredencialExists)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return cooperado.Credencial{}, cooperado.ErrCredencialNotFound
	}
	return repo.GetCredencialByEmail(ctx, email)
}
