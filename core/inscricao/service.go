package inscricao

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/mutamba/coopvida/core"
	"github.com/mutamba/coopvida/core/billing"
	"github.com/mutamba/coopvida/core/cooperado"
)

var (
	// errors
	ErrNotFound    = errors.New("inscricao not found")
	ErrNotPendente = errors.New("inscricao is no longer pendente")

	numeroMaxAttempts = 5

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateInscricao(ctx context.Context, insc InscricaoPublica) (InscricaoPublica, error)
		GetInscricao(ctx context.Context, id string) (InscricaoPublica, error)
		// FilterInscricoes applies AND operation on available QueryFilter fields.
		FilterInscricoes(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]InscricaoPublica, error)
		UpdateInscricao(ctx context.Context, insc InscricaoPublica) (InscricaoPublica, error)
	}

	// ApprovalResult carries everything the approval produced. SenhaTemporaria
	// only ever lives in memory, on its way into the welcome email.
	ApprovalResult struct {
		Cooperado       cooperado.Cooperado
		Credencial      cooperado.Credencial
		SenhaTemporaria string
		Pagamento       billing.Pagamento
	}

	Service struct {
		repo     Repository
		coopRepo cooperado.Repository
		credRepo cooperado.CredencialRepository
		planRepo billing.PlanoRepository
		payRepo  billing.PagamentoRepository
		mailSvc  core.EmailService
		logger   core.Logger
		conf     *core.Config
	}
)

func NewService(
	repo Repository,
	coopRepo cooperado.Repository,
	credRepo cooperado.CredencialRepository,
	planRepo billing.PlanoRepository,
	payRepo billing.PagamentoRepository,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		repo:     repo,
		coopRepo: coopRepo,
		credRepo: credRepo,
		planRepo: planRepo,
		payRepo:  payRepo,
		mailSvc:  mailSvc,
		logger:   logger,
		conf:     conf,
	}
}

// Submit records a public sign-up as pendente.
func (svc *Service) Submit(ctx context.Context, ni NewInscricao) (InscricaoPublica, error) {
	nacionalidade := core.CleanString(ni.Nacionalidade)
	if nacionalidade == "" {
		nacionalidade = cooperado.DefaultNacionalidade
	}
	insc := InscricaoPublica{
		NomeCompleto:      core.CleanString(ni.NomeCompleto),
		Email:             core.CleanString(ni.Email, true /* lower */),
		Telefone:          core.CleanString(ni.Telefone),
		BI:                core.CleanString(ni.BI),
		DataNascimento:    ni.DataNascimento,
		EstadoCivil:       ni.EstadoCivil,
		Nacionalidade:     nacionalidade,
		Profissao:         core.CleanString(ni.Profissao),
		Endereco:          core.CleanString(ni.Endereco),
		Municipio:         core.CleanString(ni.Municipio),
		Provincia:         core.CleanString(ni.Provincia),
		AssinaturaPlanoID: ni.AssinaturaPlanoID,
		Documentos:        ni.Documentos,
		Status:            StatusPendente,
		CreatedAt:         NowFunc().UTC(),
	}
	return svc.repo.CreateInscricao(ctx, insc)
}

func (svc *Service) GetByID(ctx context.Context, id string) (InscricaoPublica, error) {
	return svc.repo.GetInscricao(ctx, id)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]InscricaoPublica, error) {
	return svc.repo.FilterInscricoes(ctx, filter, ordering...)
}

// Approve turns a pendente submission into a member account, credentials and
// a pending enrollment-fee payment, then marks the submission aprovada.
//
// Member and credencial creation failures abort the approval (with a
// compensating member delete on credencial failure); payment creation and the
// welcome email are non-fatal side effects reconciled out-of-band.
func (svc *Service) Approve(ctx context.Context, id string, admin Identity) (ApprovalResult, error) {
	insc, err := svc.repo.GetInscricao(ctx, id)
	if err != nil {
		return ApprovalResult{}, err
	}
	if !insc.IsPendente() {
		return ApprovalResult{}, ErrNotPendente
	}

	numero, err := svc.generateNumeroAssociado(ctx)
	if err != nil {
		return ApprovalResult{}, errors.Wrap(err, "generating numero associado")
	}

	now := NowFunc().UTC()
	coop := newCooperado(insc, numero, now)
	coop, err = svc.coopRepo.CreateCooperado(ctx, coop)
	if err != nil {
		// enrollment stays pendente; surface the raw storage error
		return ApprovalResult{}, err
	}

	senha, err := cooperado.GenerateTempPassword()
	if err != nil {
		return ApprovalResult{}, svc.compensate(ctx, coop, errors.Wrap(err, "generating temporary password"))
	}

	cred := cooperado.Credencial{
		CooperadoID: coop.ID,
		Email:       coop.Email,
		Status:      cooperado.CredencialAtiva,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = cred.SetPassword(senha); err != nil {
		return ApprovalResult{}, svc.compensate(ctx, coop, err)
	}
	created, err := svc.credRepo.CreateCredencial(ctx, cred)
	if err != nil {
		if !core.IsDuplicateKey(err) {
			return ApprovalResult{}, svc.compensate(ctx, coop, err)
		}
		// a legacy credencial may exist for this email; rewire it to the new member
		created, err = svc.credRepo.UpdateCredencialByEmail(ctx, coop.Email, cred)
		if err != nil {
			return ApprovalResult{}, svc.compensate(ctx, coop, errors.Wrap(err, "rewiring legacy credencial"))
		}
	}
	cred = created

	valor, planoNome := svc.resolveTaxaInscricao(ctx, insc)
	pag := billing.Pagamento{
		CooperadoID:       coop.ID,
		AssinaturaPlanoID: insc.AssinaturaPlanoID,
		Valor:             valor,
		DataVencimento:    now.AddDate(0, 0, svc.conf.Billing.EnrollmentFeeDueDays),
		Tipo:              billing.TipoTaxaInscricao,
		Status:            billing.StatusPendente,
		Referencia:        billing.TaxaReferencia(numero, now),
		Observacoes:       fmt.Sprintf("Taxa de inscrição - %s (gerada automaticamente na aprovação)", coop.NomeCompleto),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	pag, err = svc.payRepo.CreatePagamento(ctx, pag)
	if err != nil {
		// non-fatal: an admin can recreate the fee record later
		svc.logger.Error(fmt.Sprintf("creating taxa de inscrição for cooperado %s", numero), err)
		pag = billing.Pagamento{}
	}

	insc.Status = StatusAprovada
	insc.ProcessadoPor = admin
	insc.DataProcessamento = now
	if _, err = svc.repo.UpdateInscricao(ctx, insc); err != nil {
		return ApprovalResult{}, errors.Wrap(err, "marking inscricao aprovada")
	}

	svc.sendWelcomeEmail(coop, senha, planoNome, now)

	return ApprovalResult{
		Cooperado:       coop,
		Credencial:      cred,
		SenhaTemporaria: senha,
		Pagamento:       pag,
	}, nil
}

// Reject is the other terminal transition; it requires a reason and has no
// side effects beyond the inscricao row.
func (svc *Service) Reject(ctx context.Context, id string, admin Identity, motivo string) (InscricaoPublica, error) {
	motivo = core.CleanString(motivo)
	if motivo == "" {
		return InscricaoPublica{}, core.NewValidationError(
			errors.New("rejection requires a reason"),
			core.FieldError{Field: "motivo", Error: "this field is required"},
		)
	}

	insc, err := svc.repo.GetInscricao(ctx, id)
	if err != nil {
		return InscricaoPublica{}, err
	}
	if !insc.IsPendente() {
		return InscricaoPublica{}, ErrNotPendente
	}

	insc.Status = StatusRejeitada
	insc.ProcessadoPor = admin
	insc.DataProcessamento = NowFunc().UTC()
	insc.Observacoes = motivo
	return svc.repo.UpdateInscricao(ctx, insc)
}

func newCooperado(insc InscricaoPublica, numero string, now time.Time) cooperado.Cooperado {
	profissao := insc.Profissao
	if profissao == "" {
		profissao = cooperado.DefaultProfissao
	}
	estadoCivil := insc.EstadoCivil
	if estadoCivil == "" {
		estadoCivil = cooperado.DefaultEstadoCivil
	}
	nacionalidade := insc.Nacionalidade
	if nacionalidade == "" {
		nacionalidade = cooperado.DefaultNacionalidade
	}
	return cooperado.Cooperado{
		NumeroAssociado:   numero,
		NomeCompleto:      insc.NomeCompleto,
		Email:             insc.Email,
		Telefone:          insc.Telefone,
		BI:                insc.BI,
		DataNascimento:    insc.DataNascimento,
		EstadoCivil:       estadoCivil,
		Nacionalidade:     nacionalidade,
		Profissao:         profissao,
		Endereco:          insc.Endereco,
		Municipio:         insc.Municipio,
		Provincia:         insc.Provincia,
		AssinaturaPlanoID: insc.AssinaturaPlanoID,
		TaxaInscricaoPaga: false,
		StatusPagamento:   cooperado.PagamentoPendente,
		Status:            cooperado.StatusAtivo,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// generateNumeroAssociado builds a short unique member number from a
// time-derived suffix, regenerating on the (near-impossible) collision.
func (svc *Service) generateNumeroAssociado(ctx context.Context) (string, error) {
	for attempt := 0; attempt < numeroMaxAttempts; attempt++ {
		now := NowFunc().UTC()
		numero := fmt.Sprintf("CV-%s%04d", now.Format("0601"), (now.UnixNano()/int64(time.Millisecond))%10000)
		if _, err := svc.coopRepo.GetCooperado(ctx, cooperado.GetFilter{NumeroAssociado: numero}); err != nil {
			if errors.Cause(err) == cooperado.ErrNotFound {
				return numero, nil
			}
			return "", err
		}
		time.Sleep(time.Millisecond) // force a new suffix
	}
	return "", errors.New("could not generate a unique numero associado")
}

// resolveTaxaInscricao resolves the enrollment fee from the selected plan,
// falling back to the configured default; lookup failure is logged, not fatal.
func (svc *Service) resolveTaxaInscricao(ctx context.Context, insc InscricaoPublica) (float64, string) {
	if insc.AssinaturaPlanoID == "" {
		return svc.conf.Billing.DefaultEnrollmentFee, ""
	}
	plano, err := svc.planRepo.GetPlano(ctx, insc.AssinaturaPlanoID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("resolving taxa de inscrição from plano %s", insc.AssinaturaPlanoID), err)
		return svc.conf.Billing.DefaultEnrollmentFee, ""
	}
	return plano.TaxaInscricao, plano.Nome
}

type welcomeEmailData struct {
	NomeCooperado   string
	NumeroAssociado string
	SenhaTemporaria string
	NomePlano       string
	DataAprovacao   string
	PortalURL       string
}

// sendWelcomeEmail is fire-and-forget; the underlying service sends
// asynchronously and failures only surface in its own logs.
func (svc *Service) sendWelcomeEmail(coop cooperado.Cooperado, senha, planoNome string, now time.Time) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: coop.NomeCompleto, Address: coop.Email}},
		Subject:      "Bem-vindo à cooperativa",
		TemplateName: "welcome",
		TemplateData: welcomeEmailData{
			NomeCooperado:   coop.NomeCompleto,
			NumeroAssociado: coop.NumeroAssociado,
			SenhaTemporaria: senha,
			NomePlano:       planoNome,
			DataAprovacao:   now.Format("02/01/2006"),
			PortalURL:       svc.conf.FrontendBaseURL,
		},
	})
}

// compensate rolls back the just-created member when a later fatal step fails.
func (svc *Service) compensate(ctx context.Context, coop cooperado.Cooperado, cause error) error {
	if err := svc.coopRepo.DeleteCooperado(ctx, coop.ID); err != nil {
		svc.logger.Error(fmt.Sprintf("rolling back cooperado %s", coop.NumeroAssociado), err)
	}
	return cause
}
