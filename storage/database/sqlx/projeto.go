package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mutamba/coopvida/core"
	"github.com/mutamba/coopvida/core/projeto"
)

type projetoRow struct {
	ID          string    `db:"id"`
	Nome        string    `db:"nome"`
	Descricao   string    `db:"descricao"`
	Localizacao string    `db:"localizacao"`
	Status      string    `db:"status"`
	DataEntrega null.Time `db:"data_entrega"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func newProjetoRow(proj projeto.Projeto) projetoRow {
	return projetoRow{
		ID:          proj.ID,
		Nome:        proj.Nome,
		Descricao:   proj.Descricao,
		Localizacao: proj.Localizacao,
		Status:      proj.Status,
		DataEntrega: null.NewTime(proj.DataEntrega, !proj.DataEntrega.IsZero()),
		CreatedAt:   proj.CreatedAt,
		UpdatedAt:   proj.UpdatedAt,
	}
}

func (row projetoRow) projeto() projeto.Projeto {
	return projeto.Projeto{
		ID:          row.ID,
		Nome:        row.Nome,
		Descricao:   row.Descricao,
		Localizacao: row.Localizacao,
		Status:      row.Status,
		DataEntrega: row.DataEntrega.Time,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

const projetoCols = `id, nome, descricao, localizacao, status, data_entrega, created_at, updated_at`

type projetoRepository struct {
	db core.DBExecutor
}

var _ projeto.ProjetoRepository = (*projetoRepository)(nil) // interface compliance check

func NewProjetoRepository(db core.DBExecutor) projeto.ProjetoRepository {
	return &projetoRepository{db: db}
}

func (repo *projetoRepository) CreateProjeto(ctx context.Context, proj projeto.Projeto) (projeto.Projeto, error) {
	proj.ID = uuid.NewString()
	query := `
		INSERT INTO projeto (` + projetoCols + `)
		VALUES (:id, :nome, :descricao, :localizacao, :status, :data_entrega, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, newProjetoRow(proj)); err != nil {
		return projeto.Projeto{}, err
	}
	return proj, nil
}

func (repo *projetoRepository) GetProjeto(ctx context.Context, id string) (projeto.Projeto, error) {
	var row projetoRow
	query := `SELECT ` + projetoCols + ` FROM projeto WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return projeto.Projeto{}, projeto.ErrProjetoNotFound
		}
		return projeto.Projeto{}, err
	}
	return row.projeto(), nil
}

func (repo *projetoRepository) QueryAllProjetos(ctx context.Context) ([]projeto.Projeto, error) {
	var rows []projetoRow
	query := `SELECT ` + projetoCols + ` FROM projeto ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	projs := make([]projeto.Projeto, len(rows))
	for i, row := range rows {
		projs[i] = row.projeto()
	}
	return projs, nil
}

func (repo *projetoRepository) UpdateProjeto(ctx context.Context, proj projeto.Projeto) (projeto.Projeto, error) {
	query := `
		UPDATE projeto SET
			nome = :nome, descricao = :descricao, localizacao = :localizacao,
			status = :status, data_entrega = :data_entrega, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, newProjetoRow(proj))
	if err != nil {
		return projeto.Projeto{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return projeto.Projeto{}, projeto.ErrProjetoNotFound
	}
	return proj, nil
}

type inscricaoProjetoRow struct {
	ID                 string    `db:"id"`
	ProjetoID          string    `db:"projeto_id"`
	CooperadoID        string    `db:"cooperado_id"`
	Status             string    `db:"status"`
	ValorInteresse     float64   `db:"valor_interesse"`
	FormaPagamento     string    `db:"forma_pagamento"`
	PrazoInteresse     string    `db:"prazo_interesse"`
	Observacoes        string    `db:"observacoes"`
	DocumentosAnexados []byte    `db:"documentos_anexados"`
	Prioridade         string    `db:"prioridade"`
	AprovadoPor        string    `db:"aprovado_por"`
	DataAprovacao      null.Time `db:"data_aprovacao"`
	MotivoRejeicao     string    `db:"motivo_rejeicao"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func newInscricaoProjetoRow(insc projeto.InscricaoProjeto) inscricaoProjetoRow {
	return inscricaoProjetoRow{
		ID:                 insc.ID,
		ProjetoID:          insc.ProjetoID,
		CooperadoID:        insc.CooperadoID,
		Status:             insc.Status,
		ValorInteresse:     insc.ValorInteresse,
		FormaPagamento:     insc.FormaPagamento,
		PrazoInteresse:     insc.PrazoInteresse,
		Observacoes:        insc.Observacoes,
		DocumentosAnexados: marshalDocs(insc.DocumentosAnexados),
		Prioridade:         insc.Prioridade,
		AprovadoPor:        insc.AprovadoPor,
		DataAprovacao:      null.NewTime(insc.DataAprovacao, !insc.DataAprovacao.IsZero()),
		MotivoRejeicao:     insc.MotivoRejeicao,
		CreatedAt:          insc.CreatedAt,
		UpdatedAt:          insc.UpdatedAt,
	}
}

func (row inscricaoProjetoRow) inscricao() (projeto.InscricaoProjeto, error) {
	docs, err := unmarshalDocs(row.DocumentosAnexados)
	if err != nil {
		return projeto.InscricaoProjeto{}, err
	}
	return projeto.InscricaoProjeto{
		ID:                 row.ID,
		ProjetoID:          row.ProjetoID,
		CooperadoID:        row.CooperadoID,
		Status:             row.Status,
		ValorInteresse:     row.ValorInteresse,
		FormaPagamento:     row.FormaPagamento,
		PrazoInteresse:     row.PrazoInteresse,
		Observacoes:        row.Observacoes,
		DocumentosAnexados: docs,
		Prioridade:         row.Prioridade,
		AprovadoPor:        row.AprovadoPor,
		DataAprovacao:      row.DataAprovacao.Time,
		MotivoRejeicao:     row.MotivoRejeicao,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}, nil
}

const inscricaoProjetoCols = `id, projeto_id, cooperado_id, status, valor_interesse, forma_pagamento,
	prazo_interesse, observacoes, documentos_anexados, prioridade, aprovado_por, data_aprovacao,
	motivo_rejeicao, created_at, updated_at`

type inscricaoProjetoRepository struct {
	db core.DBExecutor
}

var _ projeto.Repository = (*inscricaoProjetoRepository)(nil) // interface compliance check

func NewInscricaoProjetoRepository(db core.DBExecutor) projeto.Repository {
	return &inscricaoProjetoRepository{db: db}
}

func (repo *inscricaoProjetoRepository) CreateInscricaoProjeto(ctx context.Context, insc projeto.InscricaoProjeto) (projeto.InscricaoProjeto, error) {
	insc.ID = uuid.NewString()
	query := `
		INSERT INTO inscricao_projeto (` + inscricaoProjetoCols + `)
		VALUES (:id, :projeto_id, :cooperado_id, :status, :valor_interesse, :forma_pagamento,
			:prazo_interesse, :observacoes, :documentos_anexados, :prioridade, :aprovado_por, :data_aprovacao,
			:motivo_rejeicao, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, newInscricaoProjetoRow(insc)); err != nil {
		return projeto.InscricaoProjeto{}, conflictErr(err, projeto.ErrJaInscrito)
	}
	return insc, nil
}

func (repo *inscricaoProjetoRepository) GetInscricaoProjeto(ctx context.Context, id string) (projeto.InscricaoProjeto, error) {
	return repo.get(ctx, `id = $1`, id)
}

func (repo *inscricaoProjetoRepository) GetInscricaoByPar(ctx context.Context, cooperadoID, projetoID string) (projeto.InscricaoProjeto, error) {
	return repo.get(ctx, `cooperado_id = $1 AND projeto_id = $2`, cooperadoID, projetoID)
}

func (repo *inscricaoProjetoRepository) get(ctx context.Context, cond string, args ...interface{}) (projeto.InscricaoProjeto, error) {
	var row inscricaoProjetoRow
	query := `SELECT ` + inscricaoProjetoCols + ` FROM inscricao_projeto WHERE ` + cond
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return projeto.InscricaoProjeto{}, projeto.ErrNotFound
		}
		return projeto.InscricaoProjeto{}, err
	}
	return row.inscricao()
}

func (repo *inscricaoProjetoRepository) FilterInscricoesProjeto(ctx context.Context, filter projeto.QueryFilter, ordering ...core.DBOrdering) ([]projeto.InscricaoProjeto, error) {
	var w where
	if filter.ProjetoID != "" {
		w.add("projeto_id = $%d", filter.ProjetoID)
	}
	if filter.CooperadoID != "" {
		w.add("cooperado_id = $%d", filter.CooperadoID)
	}
	if filter.Status != "" {
		w.add("status = $%d", filter.Status)
	}

	var rows []inscricaoProjetoRow
	query := `SELECT ` + inscricaoProjetoCols + ` FROM inscricao_projeto` + w.clause() + orderBy("created_at", ordering)
	if err := repo.db.SelectContext(ctx, &rows, query, w.args...); err != nil {
		return nil, err
	}
	inscs := make([]projeto.InscricaoProjeto, len(rows))
	for i, row := range rows {
		insc, err := row.inscricao()
		if err != nil {
			return nil, err
		}
		inscs[i] = insc
	}
	return inscs, nil
}

func (repo *inscricaoProjetoRepository) UpdateInscricaoProjeto(ctx context.Context, insc projeto.InscricaoProjeto) (projeto.InscricaoProjeto, error) {
	query := `
		UPDATE inscricao_projeto SET
			status = :status, valor_interesse = :valor_interesse, forma_pagamento = :forma_pagamento,
			prazo_interesse = :prazo_interesse, observacoes = :observacoes, documentos_anexados = :documentos_anexados,
			prioridade = :prioridade, aprovado_por = :aprovado_por, data_aprovacao = :data_aprovacao,
			motivo_rejeicao = :motivo_rejeicao, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, newInscricaoProjetoRow(insc))
	if err != nil {
		return projeto.InscricaoProjeto{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return projeto.InscricaoProjeto{}, projeto.ErrNotFound
	}
	return insc, nil
}

func (repo *inscricaoProjetoRepository) DeleteInscricaoProjeto(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM inscricao_projeto WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return projeto.ErrNotFound
	}
	return nil
}
