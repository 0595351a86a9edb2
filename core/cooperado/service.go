package cooperado

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/mutamba/coopvida/core"
)

var (
	// errors
	ErrNotFound           = errors.New("cooperado not found")
	ErrEmailExists        = errors.New("a cooperado with this email already exists")
	ErrNumeroExists       = errors.New("a cooperado with this membership number already exists")
	ErrCredencialNotFound = errors.New("credencial not found")
	ErrCredencialExists   = errors.New("a credencial with this email already exists")
	ErrCredencialInativa  = errors.New("credencial deactivated")
)

type (
	Repository interface {
		CreateCooperado(ctx context.Context, coop Cooperado) (Cooperado, error)
		GetCooperado(ctx context.Context, filter GetFilter) (Cooperado, error)
		// FilterCooperados applies AND operation on available QueryFilter fields.
		FilterCooperados(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Cooperado, error)
		UpdateCooperado(ctx context.Context, coop Cooperado) (Cooperado, error)
		// DeleteCooperado exists solely for the approval workflow's
		// compensating rollback; members are never deleted in normal operation.
		DeleteCooperado(ctx context.Context, id string) error
	}

	CredencialRepository interface {
		CreateCredencial(ctx context.Context, cred Credencial) (Credencial, error)
		GetCredencialByCooperado(ctx context.Context, cooperadoID string) (Credencial, error)
		GetCredencialByEmail(ctx context.Context, email string) (Credencial, error)
		UpdateCredencial(ctx context.Context, cred Credencial) (Credencial, error)
		// UpdateCredencialByEmail rewrites CooperadoID, SenhaHash and Status on
		// the row keyed by email; legacy rows may predate their Cooperado.
		UpdateCredencialByEmail(ctx context.Context, email string, cred Credencial) (Credencial, error)
	}

	Service struct {
		repo     Repository
		credRepo CredencialRepository
		logger   core.Logger
	}
)

func NewService(repo Repository, credRepo CredencialRepository, logger core.Logger) *Service {
	return &Service{repo: repo, credRepo: credRepo, logger: logger}
}

func (svc *Service) GetByID(ctx context.Context, id string) (Cooperado, error) {
	return svc.repo.GetCooperado(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByNumero(ctx context.Context, numero string) (Cooperado, error) {
	return svc.repo.GetCooperado(ctx, GetFilter{NumeroAssociado: numero})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Cooperado, error) {
	return svc.repo.GetCooperado(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Cooperado, error) {
	return svc.repo.FilterCooperados(ctx, filter, ordering...)
}

func (svc *Service) GetCredencial(ctx context.Context, cooperadoID string) (Credencial, error) {
	return svc.credRepo.GetCredencialByCooperado(ctx, cooperadoID)
}

// Authenticate checks a member's portal login by credencial email.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (Cooperado, Credencial, error) {
	cred, err := svc.credRepo.GetCredencialByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return Cooperado{}, Credencial{}, err
	}
	if err = cred.CheckPassword(pwd); err != nil {
		return Cooperado{}, Credencial{}, ErrCredencialNotFound
	}
	if !cred.IsAtiva() {
		return Cooperado{}, Credencial{}, ErrCredencialInativa
	}
	coop, err := svc.repo.GetCooperado(ctx, GetFilter{ID: cred.CooperadoID})
	if err != nil {
		return Cooperado{}, Credencial{}, errors.Wrap(err, "finding credencial's cooperado")
	}
	return coop, cred, nil
}

// ChangePassword handles the first-login (and any later) password change;
// it flips SenhaAlterada and stamps DataAlteracaoSenha.
func (svc *Service) ChangePassword(ctx context.Context, cooperadoID string, cs ChangeSenha) (Credencial, error) {
	cred, err := svc.credRepo.GetCredencialByCooperado(ctx, cooperadoID)
	if err != nil {
		return Credencial{}, err
	}
	if err = cred.CheckPassword(cs.SenhaAtual); err != nil {
		return Credencial{}, core.NewValidationError(nil, core.FieldError{Field: "senha_atual", Error: "incorrect password"})
	}
	if err = cred.SetPassword(cs.NovaSenha); err != nil {
		return Credencial{}, err
	}
	now := time.Now().UTC()
	cred.SenhaAlterada = true
	cred.DataAlteracaoSenha = now
	cred.UpdatedAt = now
	return svc.credRepo.UpdateCredencial(ctx, cred)
}

// ResetPassword overwrites a member's credencial password (admin CLI path);
// the member will be asked to change it on next login.
func (svc *Service) ResetPassword(ctx context.Context, cooperadoID, pwd string) (Credencial, error) {
	cred, err := svc.credRepo.GetCredencialByCooperado(ctx, cooperadoID)
	if err != nil {
		return Credencial{}, err
	}
	if err = cred.SetPassword(pwd); err != nil {
		return Credencial{}, err
	}
	cred.SenhaAlterada = false
	cred.UpdatedAt = time.Now().UTC()
	return svc.credRepo.UpdateCredencial(ctx, cred)
}
