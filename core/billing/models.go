package billing

import (
	"fmt"
	"time"
)

// Pagamento tipos
const (
	TipoTaxaInscricao    = "taxa_inscricao"
	TipoMensalidade      = "mensalidade"
	TipoPagamentoProjeto = "pagamento_projeto"
	TipoOutro            = "outro"
)

// Pagamento statuses
const (
	StatusPendente  = "pendente"
	StatusPago      = "pago"
	StatusAtrasado  = "atrasado"
	StatusCancelado = "cancelado"
)

// Plano statuses
const (
	PlanoAtivo   = "ativo"
	PlanoInativo = "inativo"
)

// AssinaturaPlano is admin-edited reference data; the workflows only read it.
type AssinaturaPlano struct {
	ID                string    `json:"id"`
	Nome              string    `json:"nome"`
	ValorMensal       float64   `json:"valor_mensal"`
	TaxaInscricao     float64   `json:"taxa_inscricao"`
	DiaVencimentoFixo int       `json:"dia_vencimento_fixo"`
	Beneficios        []string  `json:"beneficios"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"` // UTC
	UpdatedAt         time.Time `json:"updated_at"` // UTC
}

func (p *AssinaturaPlano) IsAtivo() bool { return p.Status == PlanoAtivo }

// Pagamento is one row in the billing ledger.
// Referencia is globally unique; mensalidades additionally hold the
// "YYYY-MM" billing period in MesReferencia, unique per cooperado.
type Pagamento struct {
	ID                string    `json:"id"`
	CooperadoID       string    `json:"cooperado_id"`
	AssinaturaPlanoID string    `json:"assinatura_plano_id,omitempty"`
	Valor             float64   `json:"valor"`
	DataVencimento    time.Time `json:"data_vencimento"`
	DataPagamento     time.Time `json:"data_pagamento,omitempty"`
	Tipo              string    `json:"tipo"`
	Status            string    `json:"status"`
	MetodoPagamento   string    `json:"metodo_pagamento,omitempty"`
	Referencia        string    `json:"referencia"`
	MesReferencia     string    `json:"mes_referencia,omitempty"`
	Observacoes       string    `json:"observacoes,omitempty"`
	CreatedAt         time.Time `json:"created_at"` // UTC
	UpdatedAt         time.Time `json:"updated_at"` // UTC
}

// IsOverdue reports whether the payment is still pendente past its due date.
// Pago and cancelado rows never become overdue.
func (p *Pagamento) IsOverdue(now time.Time) bool {
	return p.Status == StatusPendente && p.DataVencimento.Before(now)
}

func (p *Pagamento) IsPago() bool { return p.Status == StatusPago }

// TaxaReferencia builds the unique reference for an enrollment-fee payment.
func TaxaReferencia(numeroAssociado string, now time.Time) string {
	return fmt.Sprintf("TAXA-%s-%d", numeroAssociado, now.Unix())
}

// MensalidadeReferencia builds the deterministic reference for a monthly-fee
// payment; uniqueness follows from the (cooperado, period) invariant.
func MensalidadeReferencia(cooperadoID, period string) string {
	return fmt.Sprintf("MEN-%s-%s", cooperadoID, period)
}

// NewPlano contains information needed to create an AssinaturaPlano.
type NewPlano struct {
	Nome              string   `json:"nome" validate:"required"`
	ValorMensal       float64  `json:"valor_mensal" validate:"required,gt=0"`
	TaxaInscricao     float64  `json:"taxa_inscricao" validate:"omitempty,gte=0"`
	DiaVencimentoFixo int      `json:"dia_vencimento_fixo" validate:"omitempty,min=1,max=28"`
	Beneficios        []string `json:"beneficios"`
}

// UpdatePlano defines what may be modified on an existing AssinaturaPlano.
type UpdatePlano struct {
	Nome              string   `json:"nome"`
	ValorMensal       *float64 `json:"valor_mensal" validate:"omitempty,gt=0"`
	TaxaInscricao     *float64 `json:"taxa_inscricao" validate:"omitempty,gte=0"`
	DiaVencimentoFixo *int     `json:"dia_vencimento_fixo" validate:"omitempty,min=1,max=28"`
	Beneficios        []string `json:"beneficios"`
	Status            string   `json:"status" validate:"omitempty,oneof=ativo inativo"`
}

// PagamentoFilter applies AND on set fields.
type PagamentoFilter struct {
	CooperadoID   string    `query:"cooperado_id"`
	Tipo          string    `query:"tipo"`
	Status        string    `query:"status"`
	MesReferencia string    `query:"mes_referencia"`
	VencidoAte    time.Time `query:"vencido_ate"` // data_vencimento strictly before
	PagoDesde     time.Time `query:"pago_desde"`  // data_pagamento at or after
}

func (pf *PagamentoFilter) IsEmpty() bool {
	return pf.CooperadoID == "" && pf.Tipo == "" && pf.Status == "" &&
		pf.MesReferencia == "" && pf.VencidoAte.IsZero() && pf.PagoDesde.IsZero()
}

// CycleResult aggregates one billing-cycle run.
type CycleResult struct {
	MensalidadesCriadas int `json:"mensalidades_criadas"`
	MarcadosAtrasados   int `json:"marcados_atrasados"`
}
