package cooperado

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Cooperado lifecycle statuses
const (
	StatusAtivo    = "ativo"
	StatusSuspenso = "suspenso"
	StatusInativo  = "inativo"
)

// Cooperado payment statuses
const (
	PagamentoPendente = "pendente"
	PagamentoPago     = "pago"
)

// Credencial statuses
const (
	CredencialAtiva   = "ativo"
	CredencialInativa = "inativo"
)

// Defaults applied when an approved enrollment left optional fields blank.
const (
	DefaultProfissao     = "Não informado"
	DefaultEstadoCivil   = "solteiro"
	DefaultNacionalidade = "Angolana"
)

// Cooperado is an approved cooperative member.
// NumeroAssociado is assigned exactly once, at creation from an approved
// enrollment, and is immutable thereafter.
type Cooperado struct {
	ID              string    `json:"id"`
	NumeroAssociado string    `json:"numero_associado"`
	NomeCompleto    string    `json:"nome_completo"`
	Email           string    `json:"email"`
	Telefone        string    `json:"telefone"`
	BI              string    `json:"bi"`
	DataNascimento  time.Time `json:"data_nascimento"`
	EstadoCivil     string    `json:"estado_civil"`
	Nacionalidade   string    `json:"nacionalidade"`
	Profissao       string    `json:"profissao"`
	Endereco        string    `json:"endereco"`
	Municipio       string    `json:"municipio"`
	Provincia       string    `json:"provincia"`

	AssinaturaPlanoID string `json:"assinatura_plano_id,omitempty"`

	TaxaInscricaoPaga bool   `json:"taxa_inscricao_paga"`
	StatusPagamento   string `json:"status_pagamento"`
	Status            string `json:"status"`
	MotivoSuspensao   string `json:"motivo_suspensao,omitempty"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (c *Cooperado) IsAtivo() bool    { return c.Status == StatusAtivo }
func (c *Cooperado) IsSuspenso() bool { return c.Status == StatusSuspenso }
func (c *Cooperado) HasPlano() bool   { return c.AssinaturaPlanoID != "" }

// Credencial holds a member's portal login; exactly one per Cooperado,
// linked by CooperadoID (Email is only an alternate lookup key and may
// collide with historical rows).
type Credencial struct {
	ID                 string    `json:"id"`
	CooperadoID        string    `json:"cooperado_id"`
	Email              string    `json:"email"`
	SenhaHash          []byte    `json:"-"`
	Status             string    `json:"status"`
	SenhaAlterada      bool      `json:"senha_alterada"`
	DataAlteracaoSenha time.Time `json:"data_alteracao_senha,omitempty"`
	CreatedAt          time.Time `json:"created_at"` // UTC
	UpdatedAt          time.Time `json:"updated_at"` // UTC
}

func (c *Credencial) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	c.SenhaHash = hash
	return nil
}

func (c *Credencial) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(c.SenhaHash, []byte(pwd))
}

func (c *Credencial) IsAtiva() bool { return c.Status == CredencialAtiva }

// GetFilter looks a Cooperado up by exactly one of its unique keys.
type GetFilter struct {
	ID              string
	NumeroAssociado string
	Email           string
}

// QueryFilter applies AND on set fields.
// Search does a case-insensitive match on NomeCompleto, Email or NumeroAssociado.
type QueryFilter struct {
	Search      string    `query:"search"`
	Status      string    `query:"status"`
	ComPlano    *bool     `query:"com_plano"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Status == "" && qf.ComPlano == nil &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}
