package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mutamba/coopvida/core"
	"github.com/mutamba/coopvida/core/inscricao"
)

type inscricaoRow struct {
	ID                 string      `db:"id"`
	NomeCompleto       string      `db:"nome_completo"`
	Email              string      `db:"email"`
	Telefone           string      `db:"telefone"`
	BI                 string      `db:"bi"`
	DataNascimento     null.Time   `db:"data_nascimento"`
	EstadoCivil        string      `db:"estado_civil"`
	Nacionalidade      string      `db:"nacionalidade"`
	Profissao          string      `db:"profissao"`
	Endereco           string      `db:"endereco"`
	Municipio          string      `db:"municipio"`
	Provincia          string      `db:"provincia"`
	AssinaturaPlanoID  null.String `db:"assinatura_plano_id"`
	Documentos         []byte      `db:"documentos"`
	Status             string      `db:"status"`
	ProcessadoPorNome  string      `db:"processado_por_nome"`
	ProcessadoPorEmail string      `db:"processado_por_email"`
	DataProcessamento  null.Time   `db:"data_processamento"`
	Observacoes        string      `db:"observacoes"`
	CreatedAt          time.Time   `db:"created_at"`
}

func newInscricaoRow(insc inscricao.InscricaoPublica) inscricaoRow {
	return inscricaoRow{
		ID:                 insc.ID,
		NomeCompleto:       insc.NomeCompleto,
		Email:              insc.Email,
		Telefone:           insc.Telefone,
		BI:                 insc.BI,
		DataNascimento:     null.NewTime(insc.DataNascimento, !insc.DataNascimento.IsZero()),
		EstadoCivil:        insc.EstadoCivil,
		Nacionalidade:      insc.Nacionalidade,
		Profissao:          insc.Profissao,
		Endereco:           insc.Endereco,
		Municipio:          insc.Municipio,
		Provincia:          insc.Provincia,
		AssinaturaPlanoID:  null.NewString(insc.AssinaturaPlanoID, insc.AssinaturaPlanoID != ""),
		Documentos:         marshalDocs(insc.Documentos),
		Status:             insc.Status,
		ProcessadoPorNome:  insc.ProcessadoPor.Nome,
		ProcessadoPorEmail: insc.ProcessadoPor.Email,
		DataProcessamento:  null.NewTime(insc.DataProcessamento, !insc.DataProcessamento.IsZero()),
		Observacoes:        insc.Observacoes,
		CreatedAt:          insc.CreatedAt,
	}
}

func (row inscricaoRow) inscricao() (inscricao.InscricaoPublica, error) {
	docs, err := unmarshalDocs(row.Documentos)
	if err != nil {
		return inscricao.InscricaoPublica{}, err
	}
	return inscricao.InscricaoPublica{
		ID:                row.ID,
		NomeCompleto:      row.NomeCompleto,
		Email:             row.Email,
		Telefone:          row.Telefone,
		BI:                row.BI,
		DataNascimento:    row.DataNascimento.Time,
		EstadoCivil:       row.EstadoCivil,
		Nacionalidade:     row.Nacionalidade,
		Profissao:         row.Profissao,
		Endereco:          row.Endereco,
		Municipio:         row.Municipio,
		Provincia:         row.Provincia,
		AssinaturaPlanoID: row.AssinaturaPlanoID.String,
		Documentos:        docs,
		Status:            row.Status,
		ProcessadoPor: inscricao.Identity{
			Nome:  row.ProcessadoPorNome,
			Email: row.ProcessadoPorEmail,
		},
		DataProcessamento: row.DataProcessamento.Time,
		Observacoes:       row.Observacoes,
		CreatedAt:         row.CreatedAt,
	}, nil
}

const inscricaoCols = `id, nome_completo, email, telefone, bi, data_nascimento, estado_civil,
	nacionalidade, profissao, endereco, municipio, provincia, assinatura_plano_id, documentos,
	status, processado_por_nome, processado_por_email, data_processamento, observacoes, created_at`

type inscricaoRepository struct {
	db core.DBExecutor
}

var _ inscricao.Repository = (*inscricaoRepository)(nil) // interface compliance check

func NewInscricaoRepository(db core.DBExecutor) inscricao.Repository {
	return &inscricaoRepository{db: db}
}

func (repo *inscricaoRepository) CreateInscricao(ctx context.Context, insc inscricao.InscricaoPublica) (inscricao.InscricaoPublica, error) {
	insc.ID = uuid.NewString()
	query := `
		INSERT INTO inscricao_publica (` + inscricaoCols + `)
		VALUES (:id, :nome_completo, :email, :telefone, :bi, :data_nascimento, :estado_civil,
			:nacionalidade, :profissao, :endereco, :municipio, :provincia, :assinatura_plano_id, :documentos,
			:status, :processado_por_nome, :processado_por_email, :data_processamento, :observacoes, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, newInscricaoRow(insc)); err != nil {
		return inscricao.InscricaoPublica{}, err
	}
	return insc, nil
}

func (repo *inscricaoRepository) GetInscricao(ctx context.Context, id string) (inscricao.InscricaoPublica, error) {
	var row inscricaoRow
	query := `SELECT ` + inscricaoCols + ` FROM inscricao_publica WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return inscricao.InscricaoPublica{}, inscricao.ErrNotFound
		}
		return inscricao.InscricaoPublica{}, err
	}
	return row.inscricao()
}

func (repo *inscricaoRepository) FilterInscricoes(ctx context.Context, filter inscricao.QueryFilter, ordering ...core.DBOrdering) ([]inscricao.InscricaoPublica, error) {
	var w where
	if filter.Status != "" {
		w.add("status = $%d", filter.Status)
	}
	if !filter.CreatedFrom.IsZero() {
		w.add("created_at >= $%d", filter.CreatedFrom)
	}
	if !filter.CreatedTo.IsZero() {
		w.add("created_at <= $%d", filter.CreatedTo)
	}
	if filter.Search != "" {
		w.args = append(w.args, filter.Search)
		w.conds = append(w.conds, fmt.Sprintf(
			"(nome_completo ILIKE '%%' || $%[1]d || '%%' OR email ILIKE '%%' || $%[1]d || '%%')",
			len(w.args)))
	}

	var rows []inscricaoRow
	query := `SELECT ` + inscricaoCols + ` FROM inscricao_publica` + w.clause() + orderBy("created_at", ordering)
	if err := repo.db.SelectContext(ctx, &rows, query, w.args...); err != nil {
		return nil, err
	}
	inscs := make([]inscricao.InscricaoPublica, len(rows))
	for i, row := range rows {
		insc, err := row.inscricao()
		if err != nil {
			return nil, err
		}
		inscs[i] = insc
	}
	return inscs, nil
}

func (repo *inscricaoRepository) UpdateInscricao(ctx context.Context, insc inscricao.InscricaoPublica) (inscricao.InscricaoPublica, error) {
	query := `
		UPDATE inscricao_publica SET
			status = :status, processado_por_nome = :processado_por_nome,
			processado_por_email = :processado_por_email, data_processamento = :data_processamento,
			observacoes = :observacoes
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, newInscricaoRow(insc))
	if err != nil {
		return inscricao.InscricaoPublica{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return inscricao.InscricaoPublica{}, inscricao.ErrNotFound
	}
	return insc, nil
}
