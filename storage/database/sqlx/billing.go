package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mutamba/coopvida/core"
	"github.com/mutamba/coopvida/core/billing"
)

type planoRow struct {
	ID                string         `db:"id"`
	Nome              string         `db:"nome"`
	ValorMensal       float64        `db:"valor_mensal"`
	TaxaInscricao     float64        `db:"taxa_inscricao"`
	DiaVencimentoFixo int            `db:"dia_vencimento_fixo"`
	Beneficios        pq.StringArray `db:"beneficios"`
	Status            string         `db:"status"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func newPlanoRow(plano billing.AssinaturaPlano) planoRow {
	return planoRow{
		ID:                plano.ID,
		Nome:              plano.Nome,
		ValorMensal:       plano.ValorMensal,
		TaxaInscricao:     plano.TaxaInscricao,
		DiaVencimentoFixo: plano.DiaVencimentoFixo,
		Beneficios:        plano.Beneficios,
		Status:            plano.Status,
		CreatedAt:         plano.CreatedAt,
		UpdatedAt:         plano.UpdatedAt,
	}
}

func (row planoRow) plano() billing.AssinaturaPlano {
	return billing.AssinaturaPlano{
		ID:                row.ID,
		Nome:              row.Nome,
		ValorMensal:       row.ValorMensal,
		TaxaInscricao:     row.TaxaInscricao,
		DiaVencimentoFixo: row.DiaVencimentoFixo,
		Beneficios:        row.Beneficios,
		Status:            row.Status,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

const planoCols = `id, nome, valor_mensal, taxa_inscricao, dia_vencimento_fixo, beneficios,
	status, created_at, updated_at`

type planoRepository struct {
	db core.DBExecutor
}

var _ billing.PlanoRepository = (*planoRepository)(nil) // interface compliance check

func NewPlanoRepository(db core.DBExecutor) billing.PlanoRepository {
	return &planoRepository{db: db}
}

func (repo *planoRepository) CreatePlano(ctx context.Context, plano billing.AssinaturaPlano) (billing.AssinaturaPlano, error) {
	plano.ID = uuid.NewString()
	query := `
		INSERT INTO assinatura_plano (` + planoCols + `)
		VALUES (:id, :nome, :valor_mensal, :taxa_inscricao, :dia_vencimento_fixo, :beneficios,
			:status, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, newPlanoRow(plano)); err != nil {
		return billing.AssinaturaPlano{}, err
	}
	return plano, nil
}

func (repo *planoRepository) GetPlano(ctx context.Context, id string) (billing.AssinaturaPlano, error) {
	var row planoRow
	query := `SELECT ` + planoCols + ` FROM assinatura_plano WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return billing.AssinaturaPlano{}, billing.ErrPlanoNotFound
		}
		return billing.AssinaturaPlano{}, err
	}
	return row.plano(), nil
}

func (repo *planoRepository) QueryAllPlanos(ctx context.Context) ([]billing.AssinaturaPlano, error) {
	var rows []planoRow
	query := `SELECT ` + planoCols + ` FROM assinatura_plano ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	planos := make([]billing.AssinaturaPlano, len(rows))
	for i, row := range rows {
		planos[i] = row.plano()
	}
	return planos, nil
}

func (repo *planoRepository) UpdatePlano(ctx context.Context, plano billing.AssinaturaPlano) (billing.AssinaturaPlano, error) {
	query := `
		UPDATE assinatura_plano SET
			nome = :nome, valor_mensal = :valor_mensal, taxa_inscricao = :taxa_inscricao,
			dia_vencimento_fixo = :dia_vencimento_fixo, beneficios = :beneficios,
			status = :status, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, newPlanoRow(plano))
	if err != nil {
		return billing.AssinaturaPlano{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return billing.AssinaturaPlano{}, billing.ErrPlanoNotFound
	}
	return plano, nil
}

type pagamentoRow struct {
	ID                string      `db:"id"`
	CooperadoID       string      `db:"cooperado_id"`
	AssinaturaPlanoID null.String `db:"assinatura_plano_id"`
	Valor             float64     `db:"valor"`
	DataVencimento    time.Time   `db:"data_vencimento"`
	DataPagamento     null.Time   `db:"data_pagamento"`
	Tipo              string      `db:"tipo"`
	Status            string      `db:"status"`
	MetodoPagamento   string      `db:"metodo_pagamento"`
	Referencia        string      `db:"referencia"`
	MesReferencia     string      `db:"mes_referencia"`
	Observacoes       string      `db:"observacoes"`
	CreatedAt         time.Time   `db:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at"`
}

func newPagamentoRow(pag billing.Pagamento) pagamentoRow {
	return pagamentoRow{
		ID:                pag.ID,
		CooperadoID:       pag.CooperadoID,
		AssinaturaPlanoID: null.NewString(pag.AssinaturaPlanoID, pag.AssinaturaPlanoID != ""),
		Valor:             pag.Valor,
		DataVencimento:    pag.DataVencimento,
		DataPagamento:     null.NewTime(pag.DataPagamento, !pag.DataPagamento.IsZero()),
		Tipo:              pag.Tipo,
		Status:            pag.Status,
		MetodoPagamento:   pag.MetodoPagamento,
		Referencia:        pag.Referencia,
		MesReferencia:     pag.MesReferencia,
		Observacoes:       pag.Observacoes,
		CreatedAt:         pag.CreatedAt,
		UpdatedAt:         pag.UpdatedAt,
	}
}

func (row pagamentoRow) pagamento() billing.Pagamento {
	return billing.Pagamento{
		ID:                row.ID,
		CooperadoID:       row.CooperadoID,
		AssinaturaPlanoID: row.AssinaturaPlanoID.String,
		Valor:             row.Valor,
		DataVencimento:    row.DataVencimento,
		DataPagamento:     row.DataPagamento.Time,
		Tipo:              row.Tipo,
		Status:            row.Status,
		MetodoPagamento:   row.MetodoPagamento,
		Referencia:        row.Referencia,
		MesReferencia:     row.MesReferencia,
		Observacoes:       row.Observacoes,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

const pagamentoCols = `id, cooperado_id, assinatura_plano_id, valor, data_vencimento, data_pagamento,
	tipo, status, metodo_pagamento, referencia, mes_referencia, observacoes, created_at, updated_at`

type pagamentoRepository struct {
	db core.DBExecutor
}

var _ billing.PagamentoRepository = (*pagamentoRepository)(nil) // interface compliance check

func NewPagamentoRepository(db core.DBExecutor) billing.PagamentoRepository {
	return &pagamentoRepository{db: db}
}

func (repo *pagamentoRepository) CreatePagamento(ctx context.Context, pag billing.Pagamento) (billing.Pagamento, error) {
	pag.ID = uuid.NewString()
	query := `
		INSERT INTO pagamento (` + pagamentoCols + `)
		VALUES (:id, :cooperado_id, :assinatura_plano_id, :valor, :data_vencimento, :data_pagamento,
			:tipo, :status, :metodo_pagamento, :referencia, :mes_referencia, :observacoes, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, newPagamentoRow(pag)); err != nil {
		return billing.Pagamento{}, conflictErr(err, billing.ErrPagamentoExists)
	}
	return pag, nil
}

func (repo *pagamentoRepository) GetPagamento(ctx context.Context, id string) (billing.Pagamento, error) {
	var row pagamentoRow
	query := `SELECT ` + pagamentoCols + ` FROM pagamento WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return billing.Pagamento{}, billing.ErrPagamentoNotFound
		}
		return billing.Pagamento{}, err
	}
	return row.pagamento(), nil
}

func (repo *pagamentoRepository) GetMensalidade(ctx context.Context, cooperadoID, mesReferencia string) (billing.Pagamento, error) {
	var row pagamentoRow
	query := `SELECT ` + pagamentoCols + ` FROM pagamento
		WHERE tipo = $1 AND cooperado_id = $2 AND mes_referencia = $3`
	if err := repo.db.GetContext(ctx, &row, query, billing.TipoMensalidade, cooperadoID, mesReferencia); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return billing.Pagamento{}, billing.ErrPagamentoNotFound
		}
		return billing.Pagamento{}, err
	}
	return row.pagamento(), nil
}

func (repo *pagamentoRepository) FilterPagamentos(ctx context.Context, filter billing.PagamentoFilter, ordering ...core.DBOrdering) ([]billing.Pagamento, error) {
	var w where
	if filter.CooperadoID != "" {
		w.add("cooperado_id = $%d", filter.CooperadoID)
	}
	if filter.Tipo != "" {
		w.add("tipo = $%d", filter.Tipo)
	}
	if filter.Status != "" {
		w.add("status = $%d", filter.Status)
	}
	if filter.MesReferencia != "" {
		w.add("mes_referencia = $%d", filter.MesReferencia)
	}
	if !filter.VencidoAte.IsZero() {
		w.add("data_vencimento < $%d", filter.VencidoAte)
	}
	if !filter.PagoDesde.IsZero() {
		w.add("data_pagamento >= $%d", filter.PagoDesde)
	}

	var rows []pagamentoRow
	query := `SELECT ` + pagamentoCols + ` FROM pagamento` + w.clause() + orderBy("data_vencimento", ordering)
	if err := repo.db.SelectContext(ctx, &rows, query, w.args...); err != nil {
		return nil, err
	}
	pags := make([]billing.Pagamento, len(rows))
	for i, row := range rows {
		pags[i] = row.pagamento()
	}
	return pags, nil
}

func (repo *pagamentoRepository) UpdatePagamento(ctx context.Context, pag billing.Pagamento) (billing.Pagamento, error) {
	query := `
		UPDATE pagamento SET
			valor = :valor, data_vencimento = :data_vencimento, data_pagamento = :data_pagamento,
			status = :status, metodo_pagamento = :metodo_pagamento, observacoes = :observacoes,
			updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, newPagamentoRow(pag))
	if err != nil {
		return billing.Pagamento{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return billing.Pagamento{}, billing.ErrPagamentoNotFound
	}
	return pag, nil
}
