package projeto

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Projeto statuses; entregue is terminal.
const (
	ProjetoPlaneamento = "planeamento"
	ProjetoConstrucao  = "construcao"
	ProjetoEntregue    = "entregue"
)

// InscricaoProjeto statuses
const (
	StatusPendente  = "pendente"
	StatusAprovado  = "aprovado"
	StatusRejeitado = "rejeitado"
)

// Prioridades
const (
	PrioridadeBaixa  = "baixa"
	PrioridadeNormal = "normal"
	PrioridadeAlta   = "alta"
)

// Projeto is a construction project members can express interest in.
type Projeto struct {
	ID          string    `json:"id"`
	Nome        string    `json:"nome"`
	Descricao   string    `json:"descricao,omitempty"`
	Localizacao string    `json:"localizacao,omitempty"`
	Status      string    `json:"status"`
	DataEntrega time.Time `json:"data_entrega,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// AcceptsInscricoes reports whether the project is still open for enrollment.
func (p *Projeto) AcceptsInscricoes(now time.Time) bool {
	if p.Status == ProjetoEntregue {
		return false
	}
	if !p.DataEntrega.IsZero() && p.DataEntrega.Before(now) {
		return false
	}
	return true
}

// InscricaoProjeto records a member's interest in a project;
// at most one per (cooperado, projeto) pair.
type InscricaoProjeto struct {
	ID                 string            `json:"id"`
	ProjetoID          string            `json:"projeto_id"`
	CooperadoID        string            `json:"cooperado_id"`
	Status             string            `json:"status"`
	ValorInteresse     float64           `json:"valor_interesse,omitempty"`
	FormaPagamento     string            `json:"forma_pagamento,omitempty"`
	PrazoInteresse     string            `json:"prazo_interesse,omitempty"`
	Observacoes        string            `json:"observacoes,omitempty"`
	DocumentosAnexados map[string]string `json:"documentos_anexados,omitempty"` // doc-type -> URL, opaque
	Prioridade         string            `json:"prioridade,omitempty"`
	AprovadoPor        string            `json:"aprovado_por,omitempty"`
	DataAprovacao      time.Time         `json:"data_aprovacao,omitempty"`
	MotivoRejeicao     string            `json:"motivo_rejeicao,omitempty"`
	CreatedAt          time.Time         `json:"created_at"` // UTC
	UpdatedAt          time.Time         `json:"updated_at"` // UTC
}

func (i *InscricaoProjeto) IsPendente() bool { return i.Status == StatusPendente }

// NewProjeto is the admin payload for registering a project.
type NewProjeto struct {
	Nome        string    `json:"nome" validate:"required"`
	Descricao   string    `json:"descricao"`
	Localizacao string    `json:"localizacao"`
	Status      string    `json:"status" validate:"omitempty,oneof=planeamento construcao entregue"`
	DataEntrega time.Time `json:"data_entrega"`
}

func (np *NewProjeto) Validate(validate *validator.Validate) error {
	return validate.Struct(np)
}

// UpdateProjeto defines what may be modified on an existing Projeto.
type UpdateProjeto struct {
	Nome        string     `json:"nome"`
	Descricao   *string    `json:"descricao"`
	Localizacao *string    `json:"localizacao"`
	Status      string     `json:"status" validate:"omitempty,oneof=planeamento construcao entregue"`
	DataEntrega *time.Time `json:"data_entrega"`
}

func (up *UpdateProjeto) Validate(validate *validator.Validate) error {
	return validate.Struct(up)
}

// NewInscricaoProjeto is the member-facing enrollment payload.
type NewInscricaoProjeto struct {
	ProjetoID          string            `json:"projeto_id" validate:"required"`
	ValorInteresse     float64           `json:"valor_interesse" validate:"omitempty,gt=0"`
	FormaPagamento     string            `json:"forma_pagamento"`
	PrazoInteresse     string            `json:"prazo_interesse"`
	Observacoes        string            `json:"observacoes"`
	DocumentosAnexados map[string]string `json:"documentos_anexados"`
	Prioridade         string            `json:"prioridade" validate:"omitempty,oneof=baixa normal alta"`
}

func (ni *NewInscricaoProjeto) Validate(validate *validator.Validate) error {
	return validate.Struct(ni)
}

// QueryFilter applies AND on set fields.
type QueryFilter struct {
	ProjetoID   string `query:"projeto_id"`
	CooperadoID string `query:"cooperado_id"`
	Status      string `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.ProjetoID == "" && qf.CooperadoID == "" && qf.Status == ""
}
