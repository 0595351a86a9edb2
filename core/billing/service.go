package billing

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/mutamba/coopvida/core"
	"github.com/mutamba/coopvida/core/cooperado"
)

var (
	// errors
	ErrPlanoNotFound     = errors.New("assinatura plano not found")
	ErrPagamentoNotFound = errors.New("pagamento not found")
	ErrPagamentoExists   = errors.New("pagamento already exists")
	ErrNotPayable        = errors.New("only pendente or atrasado pagamentos can be confirmed")
	ErrNotCancelable     = errors.New("only pendente pagamentos can be cancelled")
)

type (
	PlanoRepository interface {
		CreatePlano(ctx context.Context, plano AssinaturaPlano) (AssinaturaPlano, error)
		GetPlano(ctx context.Context, id string) (AssinaturaPlano, error)
		QueryAllPlanos(ctx context.Context) ([]AssinaturaPlano, error)
		UpdatePlano(ctx context.Context, plano AssinaturaPlano) (AssinaturaPlano, error)
	}

	PagamentoRepository interface {
		CreatePagamento(ctx context.Context, pag Pagamento) (Pagamento, error)
		GetPagamento(ctx context.Context, id string) (Pagamento, error)
		// GetMensalidade looks up the single mensalidade for a (cooperado, "YYYY-MM") pair.
		GetMensalidade(ctx context.Context, cooperadoID, mesReferencia string) (Pagamento, error)
		FilterPagamentos(ctx context.Context, filter PagamentoFilter, ordering ...core.DBOrdering) ([]Pagamento, error)
		UpdatePagamento(ctx context.Context, pag Pagamento) (Pagamento, error)
	}

	Service struct {
		planRepo PlanoRepository
		payRepo  PagamentoRepository
		coopRepo cooperado.Repository
		mailSvc  core.EmailService
		logger   core.Logger
		conf     core.BillingConfig
	}
)

func NewService(
	planRepo PlanoRepository,
	payRepo PagamentoRepository,
	coopRepo cooperado.Repository,
	mailSvc core.EmailService,
	logger core.Logger,
	conf core.BillingConfig,
) *Service {
	return &Service{
		planRepo: planRepo,
		payRepo:  payRepo,
		coopRepo: coopRepo,
		mailSvc:  mailSvc,
		logger:   logger,
		conf:     conf,
	}
}

// Plan catalog

func (svc *Service) CreatePlano(ctx context.Context, np NewPlano) (AssinaturaPlano, error) {
	now := time.Now().UTC()
	dia := np.DiaVencimentoFixo
	if dia == 0 {
		dia = svc.conf.DefaultDueDay
	}
	plano := AssinaturaPlano{
		Nome:              core.CleanString(np.Nome),
		ValorMensal:       np.ValorMensal,
		TaxaInscricao:     np.TaxaInscricao,
		DiaVencimentoFixo: dia,
		Beneficios:        np.Beneficios,
		Status:            PlanoAtivo,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	return svc.planRepo.CreatePlano(ctx, plano)
}

func (svc *Service) GetPlano(ctx context.Context, id string) (AssinaturaPlano, error) {
	return svc.planRepo.GetPlano(ctx, id)
}

func (svc *Service) QueryPlanos(ctx context.Context) ([]AssinaturaPlano, error) {
	return svc.planRepo.QueryAllPlanos(ctx)
}

func (svc *Service) UpdatePlano(ctx context.Context, id string, up UpdatePlano) (AssinaturaPlano, error) {
	plano, err := svc.planRepo.GetPlano(ctx, id)
	if err != nil {
		return AssinaturaPlano{}, err
	}
	if nome := core.CleanString(up.Nome); nome != "" {
		plano.Nome = nome
	}
	if up.ValorMensal != nil {
		plano.ValorMensal = *up.ValorMensal
	}
	if up.TaxaInscricao != nil {
		plano.TaxaInscricao = *up.TaxaInscricao
	}
	if up.DiaVencimentoFixo != nil {
		plano.DiaVencimentoFixo = *up.DiaVencimentoFixo
	}
	if up.Beneficios != nil {
		plano.Beneficios = up.Beneficios
	}
	if up.Status != "" {
		plano.Status = up.Status
	}
	plano.UpdatedAt = time.Now().UTC()
	return svc.planRepo.UpdatePlano(ctx, plano)
}

// Billing cycle

// DueDateFor computes the due date of the current billing period: if now's
// day-of-month has already passed the plan's fixed due day, the relevant
// period is next month, otherwise this month.
func (svc *Service) DueDateFor(plano AssinaturaPlano, now time.Time) time.Time {
	dia := plano.DiaVencimentoFixo
	if dia == 0 {
		dia = svc.conf.DefaultDueDay
	}
	year, month, _ := now.Date()
	if now.Day() > dia {
		month++
	}
	return time.Date(year, month, dia, 0, 0, 0, 0, time.UTC)
}

// PeriodKey returns the "YYYY-MM" billing-period key of a due date.
func PeriodKey(dueDate time.Time) string {
	return dueDate.Format("2006-01")
}

// RunCycle is the daily sweep: it marks every pendente mensalidade past its
// due date atrasado, then ensures every ativo member with a plan has a
// mensalidade for the current billing period. Idempotent; safe to re-run.
func (svc *Service) RunCycle(ctx context.Context, now time.Time) (CycleResult, error) {
	var res CycleResult

	// overdue correction pass
	overdue, err := svc.payRepo.FilterPagamentos(ctx, PagamentoFilter{
		Tipo:       TipoMensalidade,
		Status:     StatusPendente,
		VencidoAte: now,
	})
	if err != nil {
		return res, errors.Wrap(err, "querying overdue mensalidades")
	}
	for _, pag := range overdue {
		pag.Status = StatusAtrasado
		pag.UpdatedAt = now.UTC()
		if _, err := svc.payRepo.UpdatePagamento(ctx, pag); err != nil {
			svc.logger.Error(fmt.Sprintf("marking pagamento %s atrasado", pag.Referencia), err)
			continue
		}
		res.MarcadosAtrasados++

		coop, err := svc.coopRepo.GetCooperado(ctx, cooperado.GetFilter{ID: pag.CooperadoID})
		if err != nil {
			svc.logger.Error(fmt.Sprintf("loading cooperado for pagamento %s", pag.Referencia), err)
			continue
		}
		svc.sendOverdueNotice(coop, pag, now)
	}

	// generation pass
	comPlano := true
	coops, err := svc.coopRepo.FilterCooperados(ctx, cooperado.QueryFilter{
		Status:   cooperado.StatusAtivo,
		ComPlano: &comPlano,
	})
	if err != nil {
		return res, errors.Wrap(err, "querying ativo cooperados")
	}
	for _, coop := range coops {
		plano, err := svc.planRepo.GetPlano(ctx, coop.AssinaturaPlanoID)
		if err != nil {
			svc.logger.Error(fmt.Sprintf("loading plano for cooperado %s", coop.NumeroAssociado), err)
			continue
		}
		dueDate := svc.DueDateFor(plano, now)
		period := PeriodKey(dueDate)

		if _, err := svc.payRepo.GetMensalidade(ctx, coop.ID, period); err == nil {
			continue // already billed for this period
		} else if errors.Cause(err) != ErrPagamentoNotFound {
			svc.logger.Error(fmt.Sprintf("looking up mensalidade %s for cooperado %s", period, coop.NumeroAssociado), err)
			continue
		}

		pag := Pagamento{
			CooperadoID:       coop.ID,
			AssinaturaPlanoID: plano.ID,
			Valor:             plano.ValorMensal,
			DataVencimento:    dueDate,
			Tipo:              TipoMensalidade,
			Status:            StatusPendente,
			Referencia:        MensalidadeReferencia(coop.ID, period),
			MesReferencia:     period,
			Observacoes:       fmt.Sprintf("Mensalidade %s - plano %s (gerada automaticamente)", period, plano.Nome),
			CreatedAt:         now.UTC(),
			UpdatedAt:         now.UTC(),
		}
		if _, err := svc.payRepo.CreatePagamento(ctx, pag); err != nil {
			if core.IsDuplicateKey(err) {
				continue // concurrent run won the race; the constraint is the correctness boundary
			}
			svc.logger.Error(fmt.Sprintf("creating mensalidade %s for cooperado %s", period, coop.NumeroAssociado), err)
			continue
		}
		res.MensalidadesCriadas++
	}

	if res.MarcadosAtrasados > svc.conf.OverdueWarningThreshold {
		svc.logger.Warn(fmt.Sprintf(
			"billing cycle: %d mensalidades atrasadas (threshold %d)",
			res.MarcadosAtrasados, svc.conf.OverdueWarningThreshold,
		))
	}
	return res, nil
}

type overdueEmailData struct {
	NomeCooperado  string
	MesReferencia  string
	Valor          string
	DataVencimento string
	DiasAtraso     int
}

// sendOverdueNotice is fire-and-forget, like the welcome email; delivery
// failures only surface in the email service's own logs.
func (svc *Service) sendOverdueNotice(coop cooperado.Cooperado, pag Pagamento, now time.Time) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: coop.NomeCompleto, Address: coop.Email}},
		Subject:      "Mensalidade em atraso",
		TemplateName: "overdue",
		TemplateData: overdueEmailData{
			NomeCooperado:  coop.NomeCompleto,
			MesReferencia:  pag.MesReferencia,
			Valor:          fmt.Sprintf("%.2f", pag.Valor),
			DataVencimento: pag.DataVencimento.Format("02/01/2006"),
			DiasAtraso:     int(now.Sub(pag.DataVencimento).Hours() / 24),
		},
	})
}

// SuspendOverdue suspends every ativo member holding an atrasado mensalidade
// whose due date is at least SuspensionDays in the past. Explicit operation;
// never run implicitly by RunCycle.
func (svc *Service) SuspendOverdue(ctx context.Context, now time.Time) (int, error) {
	atrasados, err := svc.payRepo.FilterPagamentos(ctx, PagamentoFilter{
		Tipo:   TipoMensalidade,
		Status: StatusAtrasado,
	})
	if err != nil {
		return 0, errors.Wrap(err, "querying atrasado mensalidades")
	}

	cutoff := time.Duration(svc.conf.SuspensionDays) * 24 * time.Hour
	var suspended int
	for _, pag := range atrasados {
		overdueFor := now.Sub(pag.DataVencimento)
		if overdueFor < cutoff {
			continue
		}
		coop, err := svc.coopRepo.GetCooperado(ctx, cooperado.GetFilter{ID: pag.CooperadoID})
		if err != nil {
			svc.logger.Error(fmt.Sprintf("loading cooperado for pagamento %s", pag.Referencia), err)
			continue
		}
		if !coop.IsAtivo() {
			continue // already suspended (or inativo); idempotent
		}
		coop.Status = cooperado.StatusSuspenso
		coop.MotivoSuspensao = fmt.Sprintf(
			"Mensalidade %s vencida há %d dias", pag.MesReferencia, int(overdueFor.Hours()/24),
		)
		coop.UpdatedAt = now.UTC()
		if _, err := svc.coopRepo.UpdateCooperado(ctx, coop); err != nil {
			svc.logger.Error(fmt.Sprintf("suspending cooperado %s", coop.NumeroAssociado), err)
			continue
		}
		suspended++
	}
	return suspended, nil
}

// ReactivatePaid reactivates every suspenso member with a mensalidade marked
// pago within the last ReactivationDays, clearing the suspension reason.
func (svc *Service) ReactivatePaid(ctx context.Context, now time.Time) (int, error) {
	coops, err := svc.coopRepo.FilterCooperados(ctx, cooperado.QueryFilter{Status: cooperado.StatusSuspenso})
	if err != nil {
		return 0, errors.Wrap(err, "querying suspenso cooperados")
	}

	since := now.Add(-time.Duration(svc.conf.ReactivationDays) * 24 * time.Hour)
	var reactivated int
	for _, coop := range coops {
		pagos, err := svc.payRepo.FilterPagamentos(ctx, PagamentoFilter{
			CooperadoID: coop.ID,
			Tipo:        TipoMensalidade,
			Status:      StatusPago,
			PagoDesde:   since,
		})
		if err != nil {
			svc.logger.Error(fmt.Sprintf("querying pago mensalidades for cooperado %s", coop.NumeroAssociado), err)
			continue
		}
		if len(pagos) == 0 {
			continue
		}
		coop.Status = cooperado.StatusAtivo
		coop.MotivoSuspensao = ""
		coop.UpdatedAt = now.UTC()
		if _, err := svc.coopRepo.UpdateCooperado(ctx, coop); err != nil {
			svc.logger.Error(fmt.Sprintf("reactivating cooperado %s", coop.NumeroAssociado), err)
			continue
		}
		reactivated++
	}
	return reactivated, nil
}

// Payment confirmation

func (svc *Service) GetPagamento(ctx context.Context, id string) (Pagamento, error) {
	return svc.payRepo.GetPagamento(ctx, id)
}

func (svc *Service) FilterPagamentos(ctx context.Context, filter PagamentoFilter, ordering ...core.DBOrdering) ([]Pagamento, error) {
	return svc.payRepo.FilterPagamentos(ctx, filter, ordering...)
}

// ConfirmPagamento marks a pendente or atrasado payment pago. Confirming an
// enrollment fee also flips the member's fee-paid flags.
func (svc *Service) ConfirmPagamento(ctx context.Context, id, metodo string) (Pagamento, error) {
	pag, err := svc.payRepo.GetPagamento(ctx, id)
	if err != nil {
		return Pagamento{}, err
	}
	if pag.Status != StatusPendente && pag.Status != StatusAtrasado {
		return Pagamento{}, ErrNotPayable
	}
	now := time.Now().UTC()
	pag.Status = StatusPago
	pag.DataPagamento = now
	pag.MetodoPagamento = core.CleanString(metodo)
	pag.UpdatedAt = now
	pag, err = svc.payRepo.UpdatePagamento(ctx, pag)
	if err != nil {
		return Pagamento{}, err
	}

	if pag.Tipo == TipoTaxaInscricao {
		coop, err := svc.coopRepo.GetCooperado(ctx, cooperado.GetFilter{ID: pag.CooperadoID})
		if err != nil {
			svc.logger.Error(fmt.Sprintf("loading cooperado for pagamento %s", pag.Referencia), err)
			return pag, nil // the payment is confirmed; flags reconciled out-of-band
		}
		coop.TaxaInscricaoPaga = true
		coop.StatusPagamento = cooperado.PagamentoPago
		coop.UpdatedAt = now
		if _, err := svc.coopRepo.UpdateCooperado(ctx, coop); err != nil {
			svc.logger.Error(fmt.Sprintf("updating fee flags for cooperado %s", coop.NumeroAssociado), err)
		}
	}
	return pag, nil
}

// CancelPagamento cancels a pendente payment.
func (svc *Service) CancelPagamento(ctx context.Context, id string) (Pagamento, error) {
	pag, err := svc.payRepo.GetPagamento(ctx, id)
	if err != nil {
		return Pagamento{}, err
	}
	if pag.Status != StatusPendente {
		return Pagamento{}, ErrNotCancelable
	}
	pag.Status = StatusCancelado
	pag.UpdatedAt = time.Now().UTC()
	return svc.payRepo.UpdatePagamento(ctx, pag)
}
