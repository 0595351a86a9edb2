package billing_test

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/mutamba/coopvida/core"
	"github.com/mutamba/coopvida/core/billing"
	"github.com/mutamba/coopvida/core/cooperado"
	emailsvc "github.com/mutamba/coopvida/services/email"
	logsvc "github.com/mutamba/coopvida/services/logger"
	dummydb "github.com/mutamba/coopvida/storage/database/dummy"
)

var testBillingConf = core.BillingConfig{
	DefaultEnrollmentFee:    50000,
	DefaultDueDay:           15,
	EnrollmentFeeDueDays:    30,
	OverdueWarningThreshold: 50,
	SuspensionDays:          30,
	ReactivationDays:        7,
}

type testEnv struct {
	svc      *billing.Service
	planRepo billing.PlanoRepository
	payRepo  billing.PagamentoRepository
	coopRepo cooperado.Repository
}

func setup(t *testing.T) testEnv {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	env := testEnv{
		planRepo: dummydb.NewPlanoRepository(db),
		payRepo:  dummydb.NewPagamentoRepository(db),
		coopRepo: dummydb.NewCooperadoRepository(db),
	}
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	conf := &core.Config{
		AppName:         "CoopVida",
		FrontendBaseURL: "http://localhost:3000",
		WorkDir:         core.Getwd(),
		Billing:         testBillingConf,
	}
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	env.svc = billing.NewService(env.planRepo, env.payRepo, env.coopRepo, mailSvc, logger, testBillingConf)
	return env
}

func createPlano(t *testing.T, repo billing.PlanoRepository, nome string, valorMensal float64, dia int) billing.AssinaturaPlano {
	now := time.Now().UTC()
	plano, err := repo.CreatePlano(context.Background(), billing.AssinaturaPlano{
		Nome:              nome,
		ValorMensal:       valorMensal,
		TaxaInscricao:     25000,
		DiaVencimentoFixo: dia,
		Status:            billing.PlanoAtivo,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		t.Fatalf("createPlano() failed: %v", err)
	}
	return plano
}

func createCooperado(t *testing.T, repo cooperado.Repository, numero, email, status, planoID string) cooperado.Cooperado {
	now := time.Now().UTC()
	coop, err := repo.CreateCooperado(context.Background(), cooperado.Cooperado{
		NumeroAssociado:   numero,
		NomeCompleto:      "Cooperado " + numero,
		Email:             email,
		AssinaturaPlanoID: planoID,
		Status:            status,
		StatusPagamento:   cooperado.PagamentoPendente,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		t.Fatalf("createCooperado() failed: %v", err)
	}
	return coop
}

func createPagamento(t *testing.T, repo billing.PagamentoRepository, pag billing.Pagamento) billing.Pagamento {
	pag, err := repo.CreatePagamento(context.Background(), pag)
	if err != nil {
		t.Fatalf("createPagamento() failed: %v", err)
	}
	return pag
}

func TestService_DueDateFor(t *testing.T) {
	env := setup(t)

	tests := []struct {
		name string
		dia  int
		now  time.Time
		want time.Time
	}{
		{
			name: "due day still ahead this month", dia: 15,
			now:  time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
			want: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "due day is today", dia: 10,
			now:  time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC),
			want: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "due day already passed", dia: 5,
			now:  time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
			want: time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "unset due day falls back to the default", dia: 0,
			now:  time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
			want: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "december rolls over to january", dia: 5,
			now:  time.Date(2025, 12, 20, 12, 0, 0, 0, time.UTC),
			want: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plano := billing.AssinaturaPlano{DiaVencimentoFixo: tt.dia}
			if got := env.svc.DueDateFor(plano, tt.now); !got.Equal(tt.want) {
				t.Errorf("DueDateFor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPeriodKey(t *testing.T) {
	due := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	if got := billing.PeriodKey(due); got != "2025-03" {
		t.Errorf("PeriodKey() = %s, want 2025-03", got)
	}
}

func TestService_RunCycle(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	emailsvc.SentMessages = nil

	plano := createPlano(t, env.planRepo, "Plano Casa", 15000, 15)
	ativo := createCooperado(t, env.coopRepo, "CV-25010001", "a@test.ao", cooperado.StatusAtivo, plano.ID)
	createCooperado(t, env.coopRepo, "CV-25010002", "b@test.ao", cooperado.StatusAtivo, "")       // no plan
	suspenso := createCooperado(t, env.coopRepo, "CV-25010003", "c@test.ao", cooperado.StatusSuspenso, plano.ID)

	// a february mensalidade that went unpaid
	old := createPagamento(t, env.payRepo, billing.Pagamento{
		CooperadoID:    suspenso.ID,
		Valor:          15000,
		DataVencimento: time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC),
		Tipo:           billing.TipoMensalidade,
		Status:         billing.StatusPendente,
		Referencia:     billing.MensalidadeReferencia(suspenso.ID, "2025-02"),
		MesReferencia:  "2025-02",
	})

	res, err := env.svc.RunCycle(ctx, now)
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if res.MensalidadesCriadas != 1 {
		t.Errorf("RunCycle() criadas = %d, want 1", res.MensalidadesCriadas)
	}
	if res.MarcadosAtrasados != 1 {
		t.Errorf("RunCycle() atrasados = %d, want 1", res.MarcadosAtrasados)
	}

	pag, err := env.payRepo.GetMensalidade(ctx, ativo.ID, "2025-03")
	if err != nil {
		t.Fatalf("GetMensalidade() error = %v", err)
	}
	if pag.Valor != plano.ValorMensal {
		t.Errorf("mensalidade valor = %v, want %v", pag.Valor, plano.ValorMensal)
	}
	if want := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC); !pag.DataVencimento.Equal(want) {
		t.Errorf("mensalidade vencimento = %v, want %v", pag.DataVencimento, want)
	}
	if pag.Status != billing.StatusPendente {
		t.Errorf("mensalidade status = %s, want %s", pag.Status, billing.StatusPendente)
	}
	if want := billing.MensalidadeReferencia(ativo.ID, "2025-03"); pag.Referencia != want {
		t.Errorf("mensalidade referencia = %s, want %s", pag.Referencia, want)
	}

	refreshed, err := env.payRepo.GetPagamento(ctx, old.ID)
	if err != nil {
		t.Fatalf("GetPagamento() error = %v", err)
	}
	if refreshed.Status != billing.StatusAtrasado {
		t.Errorf("overdue mensalidade status = %s, want %s", refreshed.Status, billing.StatusAtrasado)
	}

	// the member behind the overdue mensalidade gets a notice
	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("sent %d emails, want 1", len(emailsvc.SentMessages))
	}
	msg := emailsvc.SentMessages[0]
	if msg.TemplateName != "overdue" {
		t.Errorf("email template = %s, want overdue", msg.TemplateName)
	}
	if msg.To[0].Address != suspenso.Email {
		t.Errorf("email to = %s, want %s", msg.To[0].Address, suspenso.Email)
	}
	if !strings.Contains(msg.TextContent, "2025-02") {
		t.Errorf("email body does not mention the overdue period:\n%s", msg.TextContent)
	}

	// a second run must be a no-op
	res, err = env.svc.RunCycle(ctx, now)
	if err != nil {
		t.Fatalf("RunCycle() rerun error = %v", err)
	}
	if res.MensalidadesCriadas != 0 || res.MarcadosAtrasados != 0 {
		t.Errorf("RunCycle() rerun = %+v, want a no-op", res)
	}
}

func TestService_SuspendOverdue(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)

	plano := createPlano(t, env.planRepo, "Plano Casa", 15000, 15)
	longOverdue := createCooperado(t, env.coopRepo, "CV-25010001", "a@test.ao", cooperado.StatusAtivo, plano.ID)
	recent := createCooperado(t, env.coopRepo, "CV-25010002", "b@test.ao", cooperado.StatusAtivo, plano.ID)

	createPagamento(t, env.payRepo, billing.Pagamento{
		CooperadoID:    longOverdue.ID,
		DataVencimento: now.AddDate(0, 0, -31),
		Tipo:           billing.TipoMensalidade,
		Status:         billing.StatusAtrasado,
		Referencia:     billing.MensalidadeReferencia(longOverdue.ID, "2025-02"),
		MesReferencia:  "2025-02",
	})
	createPagamento(t, env.payRepo, billing.Pagamento{
		CooperadoID:    recent.ID,
		DataVencimento: now.AddDate(0, 0, -10),
		Tipo:           billing.TipoMensalidade,
		Status:         billing.StatusAtrasado,
		Referencia:     billing.MensalidadeReferencia(recent.ID, "2025-03"),
		MesReferencia:  "2025-03",
	})

	n, err := env.svc.SuspendOverdue(ctx, now)
	if err != nil {
		t.Fatalf("SuspendOverdue() error = %v", err)
	}
	if n != 1 {
		t.Errorf("SuspendOverdue() = %d, want 1", n)
	}

	coop, err := env.coopRepo.GetCooperado(ctx, cooperado.GetFilter{ID: longOverdue.ID})
	if err != nil {
		t.Fatalf("GetCooperado() error = %v", err)
	}
	if !coop.IsSuspenso() {
		t.Errorf("cooperado status = %s, want %s", coop.Status, cooperado.StatusSuspenso)
	}
	if !strings.Contains(coop.MotivoSuspensao, "2025-02") {
		t.Errorf("motivo = %q, want it to mention the overdue period", coop.MotivoSuspensao)
	}

	coop, _ = env.coopRepo.GetCooperado(ctx, cooperado.GetFilter{ID: recent.ID})
	if !coop.IsAtivo() {
		t.Errorf("recently-overdue cooperado was suspended; status = %s", coop.Status)
	}

	// a second run must not suspend anyone again
	if n, _ = env.svc.SuspendOverdue(ctx, now); n != 0 {
		t.Errorf("SuspendOverdue() rerun = %d, want 0", n)
	}
}

func TestService_ReactivatePaid(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	now := time.Date(2025, 4, 5, 9, 0, 0, 0, time.UTC)

	plano := createPlano(t, env.planRepo, "Plano Casa", 15000, 15)

	paid := createCooperado(t, env.coopRepo, "CV-25010001", "a@test.ao", cooperado.StatusSuspenso, plano.ID)
	stale := createCooperado(t, env.coopRepo, "CV-25010002", "b@test.ao", cooperado.StatusSuspenso, plano.ID)

	createPagamento(t, env.payRepo, billing.Pagamento{
		CooperadoID:    paid.ID,
		DataVencimento: now.AddDate(0, -1, 0),
		DataPagamento:  now.AddDate(0, 0, -2),
		Tipo:           billing.TipoMensalidade,
		Status:         billing.StatusPago,
		Referencia:     billing.MensalidadeReferencia(paid.ID, "2025-03"),
		MesReferencia:  "2025-03",
	})
	createPagamento(t, env.payRepo, billing.Pagamento{
		CooperadoID:    stale.ID,
		DataVencimento: now.AddDate(0, -1, 0),
		DataPagamento:  now.AddDate(0, 0, -10),
		Tipo:           billing.TipoMensalidade,
		Status:         billing.StatusPago,
		Referencia:     billing.MensalidadeReferencia(stale.ID, "2025-03"),
		MesReferencia:  "2025-03",
	})

	n, err := env.svc.ReactivatePaid(ctx, now)
	if err != nil {
		t.Fatalf("ReactivatePaid() error = %v", err)
	}
	if n != 1 {
		t.Errorf("ReactivatePaid() = %d, want 1", n)
	}

	coop, _ := env.coopRepo.GetCooperado(ctx, cooperado.GetFilter{ID: paid.ID})
	if !coop.IsAtivo() {
		t.Errorf("paid-up cooperado status = %s, want %s", coop.Status, cooperado.StatusAtivo)
	}
	if coop.MotivoSuspensao != "" {
		t.Errorf("motivo = %q, want it cleared", coop.MotivoSuspensao)
	}

	coop, _ = env.coopRepo.GetCooperado(ctx, cooperado.GetFilter{ID: stale.ID})
	if !coop.IsSuspenso() {
		t.Errorf("stale-payment cooperado was reactivated; status = %s", coop.Status)
	}
}

func TestService_ConfirmPagamento(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	coop := createCooperado(t, env.coopRepo, "CV-25010001", "a@test.ao", cooperado.StatusAtivo, "")
	taxa := createPagamento(t, env.payRepo, billing.Pagamento{
		CooperadoID:    coop.ID,
		Valor:          50000,
		DataVencimento: time.Now().UTC().AddDate(0, 0, 30),
		Tipo:           billing.TipoTaxaInscricao,
		Status:         billing.StatusPendente,
		Referencia:     "TAXA-CV-25010001-1",
	})

	pag, err := env.svc.ConfirmPagamento(ctx, taxa.ID, " multicaixa ")
	if err != nil {
		t.Fatalf("ConfirmPagamento() error = %v", err)
	}
	if !pag.IsPago() {
		t.Errorf("pagamento status = %s, want %s", pag.Status, billing.StatusPago)
	}
	if pag.DataPagamento.IsZero() {
		t.Error("ConfirmPagamento() did not stamp DataPagamento")
	}
	if pag.MetodoPagamento != "multicaixa" {
		t.Errorf("metodo = %q, want multicaixa", pag.MetodoPagamento)
	}

	// confirming the enrollment fee flips the member's fee flags
	coop, _ = env.coopRepo.GetCooperado(ctx, cooperado.GetFilter{ID: coop.ID})
	if !coop.TaxaInscricaoPaga {
		t.Error("ConfirmPagamento() did not flip TaxaInscricaoPaga")
	}
	if coop.StatusPagamento != cooperado.PagamentoPago {
		t.Errorf("status pagamento = %s, want %s", coop.StatusPagamento, cooperado.PagamentoPago)
	}

	// a pago pagamento cannot be confirmed again
	if _, err = env.svc.ConfirmPagamento(ctx, taxa.ID, "multicaixa"); errors.Cause(err) != billing.ErrNotPayable {
		t.Errorf("ConfirmPagamento() error = %v, want %v", err, billing.ErrNotPayable)
	}

	// an atrasado mensalidade is still payable
	atrasado := createPagamento(t, env.payRepo, billing.Pagamento{
		CooperadoID:    coop.ID,
		Valor:          15000,
		DataVencimento: time.Now().UTC().AddDate(0, -1, 0),
		Tipo:           billing.TipoMensalidade,
		Status:         billing.StatusAtrasado,
		Referencia:     billing.MensalidadeReferencia(coop.ID, "2025-02"),
		MesReferencia:  "2025-02",
	})
	if _, err = env.svc.ConfirmPagamento(ctx, atrasado.ID, "transferencia"); err != nil {
		t.Errorf("ConfirmPagamento() atrasado error = %v", err)
	}
}

func TestService_CancelPagamento(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	coop := createCooperado(t, env.coopRepo, "CV-25010001", "a@test.ao", cooperado.StatusAtivo, "")
	pendente := createPagamento(t, env.payRepo, billing.Pagamento{
		CooperadoID:    coop.ID,
		Valor:          50000,
		DataVencimento: time.Now().UTC().AddDate(0, 0, 30),
		Tipo:           billing.TipoTaxaInscricao,
		Status:         billing.StatusPendente,
		Referencia:     "TAXA-CV-25010001-1",
	})

	pag, err := env.svc.CancelPagamento(ctx, pendente.ID)
	if err != nil {
		t.Fatalf("CancelPagamento() error = %v", err)
	}
	if pag.Status != billing.StatusCancelado {
		t.Errorf("pagamento status = %s, want %s", pag.Status, billing.StatusCancelado)
	}

	// only pendente pagamentos can be cancelled
	if _, err = env.svc.CancelPagamento(ctx, pendente.ID); errors.Cause(err) != billing.ErrNotCancelable {
		t.Errorf("CancelPagamento() error = %v, want %v", err, billing.ErrNotCancelable)
	}
}

func TestService_CreatePlano(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	plano, err := env.svc.CreatePlano(ctx, billing.NewPlano{Nome: "  Plano Terreno  ", ValorMensal: 10000})
	if err != nil {
		t.Fatalf("CreatePlano() error = %v", err)
	}
	if plano.Nome != "Plano Terreno" {
		t.Errorf("nome = %q, want it trimmed", plano.Nome)
	}
	if plano.DiaVencimentoFixo != testBillingConf.DefaultDueDay {
		t.Errorf("dia vencimento = %d, want default %d", plano.DiaVencimentoFixo, testBillingConf.DefaultDueDay)
	}
	if plano.Status != billing.PlanoAtivo {
		t.Errorf("status = %s, want %s", plano.Status, billing.PlanoAtivo)
	}
}
