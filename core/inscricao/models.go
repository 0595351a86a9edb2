package inscricao

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// InscricaoPublica statuses; aprovada and rejeitada are terminal.
const (
	StatusPendente  = "pendente"
	StatusAprovada  = "aprovada"
	StatusRejeitada = "rejeitada"
)

// Identity is the admin identity snapshot recorded on processing.
type Identity struct {
	Nome  string `json:"nome"`
	Email string `json:"email"`
}

// InscricaoPublica is a raw public sign-up submission. It is mutated exactly
// once, by the approval workflow's terminal transition.
type InscricaoPublica struct {
	ID             string    `json:"id"`
	NomeCompleto   string    `json:"nome_completo"`
	Email          string    `json:"email"`
	Telefone       string    `json:"telefone"`
	BI             string    `json:"bi"`
	DataNascimento time.Time `json:"data_nascimento"`
	EstadoCivil    string    `json:"estado_civil"`
	Nacionalidade  string    `json:"nacionalidade"`
	Profissao      string    `json:"profissao"`
	Endereco       string    `json:"endereco"`
	Municipio      string    `json:"municipio"`
	Provincia      string    `json:"provincia"`

	AssinaturaPlanoID string            `json:"assinatura_plano_id,omitempty"`
	Documentos        map[string]string `json:"documentos,omitempty"` // doc-type -> uploaded URL, opaque

	Status            string    `json:"status"`
	ProcessadoPor     Identity  `json:"processado_por,omitempty"`
	DataProcessamento time.Time `json:"data_processamento,omitempty"`
	Observacoes       string    `json:"observacoes,omitempty"`

	CreatedAt time.Time `json:"created_at"` // UTC
}

func (i *InscricaoPublica) IsPendente() bool { return i.Status == StatusPendente }

// NewInscricao is the public sign-up payload.
type NewInscricao struct {
	NomeCompleto   string    `json:"nome_completo" validate:"required"`
	Email          string    `json:"email" validate:"required,email"`
	Telefone       string    `json:"telefone" validate:"required"`
	BI             string    `json:"bi" validate:"required"`
	DataNascimento time.Time `json:"data_nascimento"`
	EstadoCivil    string    `json:"estado_civil" validate:"omitempty,oneof=solteiro casado divorciado viuvo"`
	Nacionalidade  string    `json:"nacionalidade"`
	Profissao      string    `json:"profissao"`
	Endereco       string    `json:"endereco"`
	Municipio      string    `json:"municipio"`
	Provincia      string    `json:"provincia"`

	AssinaturaPlanoID string            `json:"assinatura_plano_id"`
	Documentos        map[string]string `json:"documentos"`
}

func (ni *NewInscricao) Validate(validate *validator.Validate) error {
	return validate.Struct(ni)
}

// QueryFilter applies AND on set fields.
type QueryFilter struct {
	Status      string    `query:"status"`
	Search      string    `query:"search"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Status == "" && qf.Search == "" && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}
