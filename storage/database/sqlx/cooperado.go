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
	"github.com/mutamba/coopvida/core/cooperado"
)

type cooperadoRow struct {
	ID                string      `db:"id"`
	NumeroAssociado   string      `db:"numero_associado"`
	NomeCompleto      string      `db:"nome_completo"`
	Email             string      `db:"email"`
	Telefone          string      `db:"telefone"`
	BI                string      `db:"bi"`
	DataNascimento    null.Time   `db:"data_nascimento"`
	EstadoCivil       string      `db:"estado_civil"`
	Nacionalidade     string      `db:"nacionalidade"`
	Profissao         string      `db:"profissao"`
	Endereco          string      `db:"endereco"`
	Municipio         string      `db:"municipio"`
	Provincia         string      `db:"provincia"`
	AssinaturaPlanoID null.String `db:"assinatura_plano_id"`
	TaxaInscricaoPaga bool        `db:"taxa_inscricao_paga"`
	StatusPagamento   string      `db:"status_pagamento"`
	Status            string      `db:"status"`
	MotivoSuspensao   string      `db:"motivo_suspensao"`
	CreatedAt         time.Time   `db:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at"`
}

func newCooperadoRow(coop cooperado.Cooperado) cooperadoRow {
	return cooperadoRow{
		ID:                coop.ID,
		NumeroAssociado:   coop.NumeroAssociado,
		NomeCompleto:      coop.NomeCompleto,
		Email:             coop.Email,
		Telefone:          coop.Telefone,
		BI:                coop.BI,
		DataNascimento:    null.NewTime(coop.DataNascimento, !coop.DataNascimento.IsZero()),
		EstadoCivil:       coop.EstadoCivil,
		Nacionalidade:     coop.Nacionalidade,
		Profissao:         coop.Profissao,
		Endereco:          coop.Endereco,
		Municipio:         coop.Municipio,
		Provincia:         coop.Provincia,
		AssinaturaPlanoID: null.NewString(coop.AssinaturaPlanoID, coop.AssinaturaPlanoID != ""),
		TaxaInscricaoPaga: coop.TaxaInscricaoPaga,
		StatusPagamento:   coop.StatusPagamento,
		Status:            coop.Status,
		MotivoSuspensao:   coop.MotivoSuspensao,
		CreatedAt:         coop.CreatedAt,
		UpdatedAt:         coop.UpdatedAt,
	}
}

func (row cooperadoRow) cooperado() cooperado.Cooperado {
	return cooperado.Cooperado{
		ID:                row.ID,
		NumeroAssociado:   row.NumeroAssociado,
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
		TaxaInscricaoPaga: row.TaxaInscricaoPaga,
		StatusPagamento:   row.StatusPagamento,
		Status:            row.Status,
		MotivoSuspensao:   row.MotivoSuspensao,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

const cooperadoCols = `id, numero_associado, nome_completo, email, telefone, bi, data_nascimento,
	estado_civil, nacionalidade, profissao, endereco, municipio, provincia, assinatura_plano_id,
	taxa_inscricao_paga, status_pagamento, status, motivo_suspensao, created_at, updated_at`

type cooperadoRepository struct {
	db core.DBExecutor
}

var _ cooperado.Repository = (*cooperadoRepository)(nil) // interface compliance check

func NewCooperadoRepository(db core.DBExecutor) cooperado.Repository {
	return &cooperadoRepository{db: db}
}

func (repo *cooperadoRepository) CreateCooperado(ctx context.Context, coop cooperado.Cooperado) (cooperado.Cooperado, error) {
	coop.ID = uuid.NewString()
	query := `
		INSERT INTO cooperado (` + cooperadoCols + `)
		VALUES (:id, :numero_associado, :nome_completo, :email, :telefone, :bi, :data_nascimento,
			:estado_civil, :nacionalidade, :profissao, :endereco, :municipio, :provincia, :assinatura_plano_id,
			:taxa_inscricao_paga, :status_pagamento, :status, :motivo_suspensao, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, newCooperadoRow(coop)); err != nil {
		return cooperado.Cooperado{}, conflictErr(err, conflictSentinel(err))
	}
	return coop, nil
}

// conflictSentinel picks the duplicate-key sentinel matching the violated
// cooperado constraint.
func conflictSentinel(err error) error {
	if key, ok := uniqueKey(err); ok && key == "numero_associado" {
		return cooperado.ErrNumeroExists
	}
	return cooperado.ErrEmailExists
}

func (repo *cooperadoRepository) GetCooperado(ctx context.Context, filter cooperado.GetFilter) (cooperado.Cooperado, error) {
	var w where
	switch {
	case filter.ID != "":
		w.add("id = $%d", filter.ID)
	case filter.NumeroAssociado != "":
		w.add("numero_associado = $%d", filter.NumeroAssociado)
	case filter.Email != "":
		w.add("LOWER(email) = LOWER($%d)", filter.Email)
	default:
		return cooperado.Cooperado{}, cooperado.ErrNotFound
	}

	var row cooperadoRow
	query := `SELECT ` + cooperadoCols + ` FROM cooperado` + w.clause()
	if err := repo.db.GetContext(ctx, &row, query, w.args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cooperado.Cooperado{}, cooperado.ErrNotFound
		}
		return cooperado.Cooperado{}, err
	}
	return row.cooperado(), nil
}

func (repo *cooperadoRepository) FilterCooperados(ctx context.Context, filter cooperado.QueryFilter, ordering ...core.DBOrdering) ([]cooperado.Cooperado, error) {
	var w where
	if filter.Status != "" {
		w.add("status = $%d", filter.Status)
	}
	if filter.ComPlano != nil {
		if *filter.ComPlano {
			w.conds = append(w.conds, "assinatura_plano_id IS NOT NULL")
		} else {
			w.conds = append(w.conds, "assinatura_plano_id IS NULL")
		}
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
			"(nome_completo ILIKE '%%' || $%[1]d || '%%' OR email ILIKE '%%' || $%[1]d || '%%' OR numero_associado ILIKE '%%' || $%[1]d || '%%')",
			len(w.args)))
	}

	var rows []cooperadoRow
	query := `SELECT ` + cooperadoCols + ` FROM cooperado` + w.clause() + orderBy("created_at", ordering)
	if err := repo.db.SelectContext(ctx, &rows, query, w.args...); err != nil {
		return nil, err
	}
	coops := make([]cooperado.Cooperado, len(rows))
	for i, row := range rows {
		coops[i] = row.cooperado()
	}
	return coops, nil
}

func (repo *cooperadoRepository) UpdateCooperado(ctx context.Context, coop cooperado.Cooperado) (cooperado.Cooperado, error) {
	query := `
		UPDATE cooperado SET
			nome_completo = :nome_completo, email = :email, telefone = :telefone, bi = :bi,
			data_nascimento = :data_nascimento, estado_civil = :estado_civil, nacionalidade = :nacionalidade,
			profissao = :profissao, endereco = :endereco, municipio = :municipio, provincia = :provincia,
			assinatura_plano_id = :assinatura_plano_id, taxa_inscricao_paga = :taxa_inscricao_paga,
			status_pagamento = :status_pagamento, status = :status, motivo_suspensao = :motivo_suspensao,
			updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, newCooperadoRow(coop))
	if err != nil {
		return cooperado.Cooperado{}, conflictErr(err, cooperado.ErrEmailExists)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return cooperado.Cooperado{}, cooperado.ErrNotFound
	}
	return coop, nil
}

func (repo *cooperadoRepository) DeleteCooperado(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM cooperado WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return cooperado.ErrNotFound
	}
	return nil
}
