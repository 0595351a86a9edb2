package projeto

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/mutamba/coopvida/core"
)

var (
	// errors
	ErrNotFound            = errors.New("inscricao de projeto not found")
	ErrProjetoNotFound     = errors.New("projeto not found")
	ErrJaInscrito          = errors.New("cooperado is already enrolled in this projeto")
	ErrProjetoIndisponivel = errors.New("projeto is not open for enrollment")
	ErrNotPendente         = errors.New("inscricao de projeto is no longer pendente")
	ErrNotOwner            = errors.New("only the owning cooperado may cancel")

	NowFunc = time.Now // mockable
)

type (
	ProjetoRepository interface {
		CreateProjeto(ctx context.Context, proj Projeto) (Projeto, error)
		GetProjeto(ctx context.Context, id string) (Projeto, error)
		QueryAllProjetos(ctx context.Context) ([]Projeto, error)
		UpdateProjeto(ctx context.Context, proj Projeto) (Projeto, error)
	}

	Repository interface {
		CreateInscricaoProjeto(ctx context.Context, insc InscricaoProjeto) (InscricaoProjeto, error)
		GetInscricaoProjeto(ctx context.Context, id string) (InscricaoProjeto, error)
		// GetInscricaoByPar looks up the single enrollment for a (cooperado, projeto) pair.
		GetInscricaoByPar(ctx context.Context, cooperadoID, projetoID string) (InscricaoProjeto, error)
		FilterInscricoesProjeto(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]InscricaoProjeto, error)
		UpdateInscricaoProjeto(ctx context.Context, insc InscricaoProjeto) (InscricaoProjeto, error)
		DeleteInscricaoProjeto(ctx context.Context, id string) error
	}

	Service struct {
		projRepo ProjetoRepository
		repo     Repository
		logger   core.Logger
	}
)

func NewService(projRepo ProjetoRepository, repo Repository, logger core.Logger) *Service {
	return &Service{projRepo: projRepo, repo: repo, logger: logger}
}

func (svc *Service) CreateProjeto(ctx context.Context, np NewProjeto) (Projeto, error) {
	status := np.Status
	if status == "" {
		status = ProjetoPlaneamento
	}
	now := NowFunc().UTC()
	proj := Projeto{
		Nome:        core.CleanString(np.Nome),
		Descricao:   core.CleanString(np.Descricao),
		Localizacao: core.CleanString(np.Localizacao),
		Status:      status,
		DataEntrega: np.DataEntrega,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.projRepo.CreateProjeto(ctx, proj)
}

func (svc *Service) UpdateProjeto(ctx context.Context, id string, up UpdateProjeto) (Projeto, error) {
	proj, err := svc.projRepo.GetProjeto(ctx, id)
	if err != nil {
		return Projeto{}, err
	}
	if up.Nome != "" {
		proj.Nome = core.CleanString(up.Nome)
	}
	if up.Descricao != nil {
		proj.Descricao = core.CleanString(*up.Descricao)
	}
	if up.Localizacao != nil {
		proj.Localizacao = core.CleanString(*up.Localizacao)
	}
	if up.Status != "" {
		proj.Status = up.Status
	}
	if up.DataEntrega != nil {
		proj.DataEntrega = *up.DataEntrega
	}
	proj.UpdatedAt = NowFunc().UTC()
	return svc.projRepo.UpdateProjeto(ctx, proj)
}

func (svc *Service) GetProjeto(ctx context.Context, id string) (Projeto, error) {
	return svc.projRepo.GetProjeto(ctx, id)
}

func (svc *Service) QueryProjetos(ctx context.Context) ([]Projeto, error) {
	return svc.projRepo.QueryAllProjetos(ctx)
}

func (svc *Service) GetInscricao(ctx context.Context, id string) (InscricaoProjeto, error) {
	return svc.repo.GetInscricaoProjeto(ctx, id)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]InscricaoProjeto, error) {
	return svc.repo.FilterInscricoesProjeto(ctx, filter, ordering...)
}

// Enroll registers a member's interest in a project. At most one enrollment
// per (cooperado, projeto) pair; the project must still be open.
func (svc *Service) Enroll(ctx context.Context, cooperadoID string, ni NewInscricaoProjeto) (InscricaoProjeto, error) {
	if _, err := svc.repo.GetInscricaoByPar(ctx, cooperadoID, ni.ProjetoID); err == nil {
		return InscricaoProjeto{}, ErrJaInscrito
	} else if errors.Cause(err) != ErrNotFound {
		return InscricaoProjeto{}, errors.Wrap(err, "checking existing inscricao")
	}

	proj, err := svc.projRepo.GetProjeto(ctx, ni.ProjetoID)
	if err != nil {
		return InscricaoProjeto{}, err
	}
	now := NowFunc().UTC()
	if !proj.AcceptsInscricoes(now) {
		return InscricaoProjeto{}, ErrProjetoIndisponivel
	}

	prioridade := ni.Prioridade
	if prioridade == "" {
		prioridade = PrioridadeNormal
	}
	insc := InscricaoProjeto{
		ProjetoID:          proj.ID,
		CooperadoID:        cooperadoID,
		Status:             StatusPendente,
		ValorInteresse:     ni.ValorInteresse,
		FormaPagamento:     core.CleanString(ni.FormaPagamento),
		PrazoInteresse:     core.CleanString(ni.PrazoInteresse),
		Observacoes:        core.CleanString(ni.Observacoes),
		DocumentosAnexados: ni.DocumentosAnexados,
		Prioridade:         prioridade,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	insc, err = svc.repo.CreateInscricaoProjeto(ctx, insc)
	if err != nil && core.IsDuplicateKey(err) {
		// the unique (cooperado, projeto) constraint is the boundary under concurrency
		return InscricaoProjeto{}, ErrJaInscrito
	}
	return insc, err
}

// Approve transitions a pendente enrollment; admin-only.
func (svc *Service) Approve(ctx context.Context, id, adminID string) (InscricaoProjeto, error) {
	insc, err := svc.repo.GetInscricaoProjeto(ctx, id)
	if err != nil {
		return InscricaoProjeto{}, err
	}
	if !insc.IsPendente() {
		return InscricaoProjeto{}, ErrNotPendente
	}
	now := NowFunc().UTC()
	insc.Status = StatusAprovado
	insc.AprovadoPor = adminID
	insc.DataAprovacao = now
	insc.UpdatedAt = now
	return svc.repo.UpdateInscricaoProjeto(ctx, insc)
}

// Reject transitions a pendente enrollment; requires a non-empty reason.
func (svc *Service) Reject(ctx context.Context, id, adminID, motivo string) (InscricaoProjeto, error) {
	motivo = core.CleanString(motivo)
	if motivo == "" {
		return InscricaoProjeto{}, core.NewValidationError(
			errors.New("rejection requires a reason"),
			core.FieldError{Field: "motivo_rejeicao", Error: "this field is required"},
		)
	}
	insc, err := svc.repo.GetInscricaoProjeto(ctx, id)
	if err != nil {
		return InscricaoProjeto{}, err
	}
	if !insc.IsPendente() {
		return InscricaoProjeto{}, ErrNotPendente
	}
	now := NowFunc().UTC()
	insc.Status = StatusRejeitado
	insc.AprovadoPor = adminID
	insc.MotivoRejeicao = motivo
	insc.UpdatedAt = now
	return svc.repo.UpdateInscricaoProjeto(ctx, insc)
}

// Cancel deletes a member's own pendente enrollment.
func (svc *Service) Cancel(ctx context.Context, id, cooperadoID string) error {
	insc, err := svc.repo.GetInscricaoProjeto(ctx, id)
	if err != nil {
		return err
	}
	if insc.CooperadoID != cooperadoID {
		return ErrNotOwner
	}
	if !insc.IsPendente() {
		return ErrNotPendente
	}
	return svc.repo.DeleteInscricaoProjeto(ctx, insc.ID)
}
