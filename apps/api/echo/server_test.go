package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/mutamba/coopvida/core"
	"github.com/mutamba/coopvida/core/billing"
	"github.com/mutamba/coopvida/core/cooperado"
	"github.com/mutamba/coopvida/core/inscricao"
	"github.com/mutamba/coopvida/core/projeto"
	emailsvc "github.com/mutamba/coopvida/services/email"
	logsvc "github.com/mutamba/coopvida/services/logger"
	dummydb "github.com/mutamba/coopvida/storage/database/dummy"
)

type testDeps struct {
	conf     *core.Config
	coopRepo cooperado.Repository
	credRepo cooperado.CredencialRepository
	planRepo billing.PlanoRepository
	payRepo  billing.PagamentoRepository
	projSvc  *projeto.Service
}

func newTestServer(t *testing.T) (Server, *testDeps) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("newTestServer() failed: %v", err)
	}

	conf := &core.Config{
		TestMode:        true,
		AppName:         "CoopVida",
		SecretKey:       "secret",
		FrontendBaseURL: "http://localhost:3000",
		WorkDir:         core.Getwd(),
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Billing: core.BillingConfig{
			DefaultEnrollmentFee: 50000,
			DefaultDueDay:        15,
			EnrollmentFeeDueDays: 30,
			SuspensionDays:       30,
			ReactivationDays:     7,
		},
	}

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	cooperado.InitValidators(validate, translator)

	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	deps := &testDeps{
		conf:     conf,
		coopRepo: dummydb.NewCooperadoRepository(db),
		credRepo: dummydb.NewCredencialRepository(db),
		planRepo: dummydb.NewPlanoRepository(db),
		payRepo:  dummydb.NewPagamentoRepository(db),
	}
	projRepo := dummydb.NewProjetoRepository(db)
	inscProjRepo := dummydb.NewInscricaoProjetoRepository(db)
	deps.projSvc = projeto.NewService(projRepo, inscProjRepo, logger)

	coopSvc := cooperado.NewService(deps.coopRepo, deps.credRepo, logger)
	billSvc := billing.NewService(deps.planRepo, deps.payRepo, deps.coopRepo, mailSvc, logger, conf.Billing)
	inscSvc := inscricao.NewService(
		dummydb.NewInscricaoRepository(db), deps.coopRepo, deps.credRepo,
		deps.planRepo, deps.payRepo, mailSvc, logger, conf,
	)

	app := NewServer(&Options{
		DisableReqLogs: true,
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		InscricaoSvc:   inscSvc,
		CooperadoSvc:   coopSvc,
		BillingSvc:     billSvc,
		ProjetoSvc:     deps.projSvc,
	})
	return app, deps
}

func newRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func memberToken(t *testing.T, coop cooperado.Cooperado) string {
	token, err := GenerateToken(GetCooperadoClaims(coop))
	if err != nil {
		t.Fatalf("memberToken() failed: %v", err)
	}
	return token
}

func adminToken(t *testing.T) string {
	token, err := GenerateToken(GetAdminClaims("Admin", "admin@coopvida.ao"))
	if err != nil {
		t.Fatalf("adminToken() failed: %v", err)
	}
	return token
}

func createMember(t *testing.T, deps *testDeps, numero, email, pwd string) cooperado.Cooperado {
	now := time.Now().UTC()
	coop, err := deps.coopRepo.CreateCooperado(context.Background(), cooperado.Cooperado{
		NumeroAssociado: numero,
		NomeCompleto:    "Cooperado " + numero,
		Email:           email,
		Status:          cooperado.StatusAtivo,
		StatusPagamento: cooperado.PagamentoPendente,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("createMember() failed: %v", err)
	}
	cred := cooperado.Credencial{
		CooperadoID: coop.ID,
		Email:       email,
		Status:      cooperado.CredencialAtiva,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := cred.SetPassword(pwd); err != nil {
		t.Fatalf("createMember() failed: %v", err)
	}
	if _, err := deps.credRepo.CreateCredencial(context.Background(), cred); err != nil {
		t.Fatalf("createMember() failed: %v", err)
	}
	return coop
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func Test_home(t *testing.T) {
	app, _ := newTestServer(t)

	req, rec := newRequest(http.MethodGet, "/", "")
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("code = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "Welcome to CoopVida API!") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func Test_inscricaoApi_submit(t *testing.T) {
	app, _ := newTestServer(t)

	// missing required fields
	req, rec := newRequest(http.MethodPost, "/v1/inscricoes", "", []byte(`{}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	for _, fld := range []string{"nome_completo", "email", "telefone", "bi"} {
		if !strings.Contains(rec.Body.String(), fld) {
			t.Errorf("body = %s, want a %q field error", rec.Body.String(), fld)
		}
	}

	// ok
	payload := []byte(`{
		"nome_completo": "Maria Fernanda",
		"email": "maria@test.ao",
		"telefone": "+244 923 000 000",
		"bi": "001234567LA041"
	}`)
	req, rec = newRequest(http.MethodPost, "/v1/inscricoes", "", payload)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %d, want %d; body = %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var insc inscricao.InscricaoPublica
	if err := json.Unmarshal(rec.Body.Bytes(), &insc); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if insc.Status != inscricao.StatusPendente {
		t.Errorf("status = %s, want %s", insc.Status, inscricao.StatusPendente)
	}

	// the back-office listing requires auth
	req, rec = newRequest(http.MethodGet, "/v1/inscricoes", "")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func Test_inscricaoApi_approve(t *testing.T) {
	app, _ := newTestServer(t)
	token := adminToken(t)

	payload := []byte(`{
		"nome_completo": "Maria Fernanda",
		"email": "maria@test.ao",
		"telefone": "+244 923 000 000",
		"bi": "001234567LA041"
	}`)
	req, rec := newRequest(http.MethodPost, "/v1/inscricoes", "", payload)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit code = %d; body = %s", rec.Code, rec.Body.String())
	}
	var insc inscricao.InscricaoPublica
	_ = json.Unmarshal(rec.Body.Bytes(), &insc)

	req, rec = newRequest(http.MethodPost, "/v1/inscricoes/"+insc.ID+"/aprovar", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve code = %d; body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Inscricao string              `json:"inscricao_id"`
		Cooperado cooperado.Cooperado `json:"cooperado"`
		Pagamento billing.Pagamento   `json:"pagamento"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if !strings.HasPrefix(resp.Cooperado.NumeroAssociado, "CV-") {
		t.Errorf("numero associado = %q", resp.Cooperado.NumeroAssociado)
	}
	if resp.Pagamento.Tipo != billing.TipoTaxaInscricao {
		t.Errorf("pagamento tipo = %s, want %s", resp.Pagamento.Tipo, billing.TipoTaxaInscricao)
	}
	// the temporary password never leaves through the API
	if strings.Contains(rec.Body.String(), "senha") {
		t.Errorf("approval response leaks credentials: %s", rec.Body.String())
	}

	// aprovada is terminal
	req, rec = newRequest(http.MethodPost, "/v1/inscricoes/"+insc.ID+"/aprovar", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("re-approve code = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	// unknown inscricao
	req, rec = newRequest(http.MethodPost, "/v1/inscricoes/lol/aprovar", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown code = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func Test_portalApi_login(t *testing.T) {
	app, deps := newTestServer(t)
	coop := createMember(t, deps, "CV-25010001", "maria@test.ao", "S3CRETPWD")

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{name: "missing fields", body: `{}`, wantCode: http.StatusBadRequest},
		{name: "wrong password", body: `{"email": "maria@test.ao", "senha": "nope"}`, wantCode: http.StatusBadRequest},
		{name: "unknown email", body: `{"email": "lol@test.ao", "senha": "S3CRETPWD"}`, wantCode: http.StatusBadRequest},
		{name: "ok", body: `{"email": "maria@test.ao", "senha": "S3CRETPWD"}`, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/portal/login", "", []byte(tt.body))
			app.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d; body = %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			var resp LoginResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshalling response: %v", err)
			}
			if resp.Token == "" {
				t.Fatal("login returned an empty token")
			}

			// the token works on /portal/me
			req, rec = newRequest(http.MethodGet, "/v1/portal/me", resp.Token)
			app.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("me code = %d; body = %s", rec.Code, rec.Body.String())
			}
			var me cooperado.Cooperado
			_ = json.Unmarshal(rec.Body.Bytes(), &me)
			if me.ID != coop.ID {
				t.Errorf("me = %s, want %s", me.ID, coop.ID)
			}
		})
	}
}

func Test_portalApi_changePassword(t *testing.T) {
	app, deps := newTestServer(t)
	coop := createMember(t, deps, "CV-25010001", "maria@test.ao", "S3CRETPWD")
	token := memberToken(t, coop)

	// weak password is rejected by the policy
	body := []byte(`{"senha_atual": "S3CRETPWD", "nova_senha": "12345678", "nova_senha_confirm": "12345678"}`)
	req, rec := newRequest(http.MethodPut, "/v1/portal/senha", token, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want %d; body = %s", rec.Code, http.StatusBadRequest, rec.Body.String())
	}

	body = []byte(`{"senha_atual": "S3CRETPWD", "nova_senha": "NEWPWD456!", "nova_senha_confirm": "NEWPWD456!"}`)
	req, rec = newRequest(http.MethodPut, "/v1/portal/senha", token, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d; body = %s", rec.Code, rec.Body.String())
	}

	// old password no longer logs in
	req, rec = newRequest(http.MethodPost, "/v1/portal/login", "", []byte(`{"email": "maria@test.ao", "senha": "S3CRETPWD"}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("old-password login code = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	req, rec = newRequest(http.MethodPost, "/v1/portal/login", "", []byte(`{"email": "maria@test.ao", "senha": "NEWPWD456!"}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("new-password login code = %d; body = %s", rec.Code, rec.Body.String())
	}
}

func Test_adminMiddleware(t *testing.T) {
	app, deps := newTestServer(t)
	coop := createMember(t, deps, "CV-25010001", "maria@test.ao", "S3CRETPWD")

	tests := []struct {
		name     string
		token    string
		wantCode int
	}{
		{name: "no token", wantCode: http.StatusUnauthorized},
		{name: "member token", token: memberToken(t, coop), wantCode: http.StatusForbidden},
		{name: "admin token", token: adminToken(t), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, "/v1/cooperados", tt.token)
			app.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d; body = %s", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}

func Test_billingApi(t *testing.T) {
	app, deps := newTestServer(t)
	token := adminToken(t)

	// the plan catalogue is public
	req, rec := newRequest(http.MethodGet, "/v1/planos", "")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("planos code = %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("planos body = %s, want []", rec.Body.String())
	}

	// plan management is back-office only
	planoBody := []byte(`{"nome": "Plano Casa", "valor_mensal": 15000, "taxa_inscricao": 25000}`)
	req, rec = newRequest(http.MethodPost, "/v1/planos", "", planoBody)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthed create code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	req, rec = newRequest(http.MethodPost, "/v1/planos", token, planoBody)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create plano code = %d; body = %s", rec.Code, rec.Body.String())
	}
	var plano billing.AssinaturaPlano
	_ = json.Unmarshal(rec.Body.Bytes(), &plano)
	if plano.DiaVencimentoFixo != deps.conf.Billing.DefaultDueDay {
		t.Errorf("dia vencimento = %d, want default %d", plano.DiaVencimentoFixo, deps.conf.Billing.DefaultDueDay)
	}

	// the new plan shows up in the public catalogue
	req, rec = newRequest(http.MethodGet, "/v1/planos", "")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("planos code = %d", rec.Code)
	}
	wantData := marchallObj(t, []billing.AssinaturaPlano{plano})
	if ok, err := jsonBytesEqual(t, rec.Body.Bytes(), wantData); err != nil || !ok {
		t.Errorf("planos body = %s, want %s (err %v)", rec.Body.String(), wantData, err)
	}

	// confirm a member's enrollment fee
	coop := createMember(t, deps, "CV-25010001", "maria@test.ao", "S3CRETPWD")
	taxa, err := deps.payRepo.CreatePagamento(context.Background(), billing.Pagamento{
		CooperadoID:    coop.ID,
		Valor:          25000,
		DataVencimento: time.Now().UTC().AddDate(0, 0, 30),
		Tipo:           billing.TipoTaxaInscricao,
		Status:         billing.StatusPendente,
		Referencia:     "TAXA-CV-25010001-1",
	})
	if err != nil {
		t.Fatalf("CreatePagamento() failed: %v", err)
	}

	req, rec = newRequest(http.MethodPost, fmt.Sprintf("/v1/pagamentos/%s/confirmar", taxa.ID), token,
		[]byte(`{"metodo_pagamento": "multicaixa"}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm code = %d; body = %s", rec.Code, rec.Body.String())
	}

	// confirming again is a 400
	req, rec = newRequest(http.MethodPost, fmt.Sprintf("/v1/pagamentos/%s/confirmar", taxa.ID), token, []byte(`{}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("re-confirm code = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	// the member sees the payment in their own history
	req, rec = newRequest(http.MethodGet, "/v1/portal/pagamentos", memberToken(t, coop))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("portal pagamentos code = %d; body = %s", rec.Code, rec.Body.String())
	}
	var pags []billing.Pagamento
	_ = json.Unmarshal(rec.Body.Bytes(), &pags)
	if len(pags) != 1 || pags[0].ID != taxa.ID {
		t.Errorf("portal pagamentos = %+v, want the confirmed taxa", pags)
	}
}

func Test_projetoApi(t *testing.T) {
	app, deps := newTestServer(t)
	coop := createMember(t, deps, "CV-25010001", "maria@test.ao", "S3CRETPWD")
	mToken := memberToken(t, coop)
	aToken := adminToken(t)

	// only admins may register projects
	projBody := []byte(`{"nome": "Condomínio Vida Nova", "status": "construcao", "localizacao": "Viana, Luanda"}`)
	req, rec := newRequest(http.MethodPost, "/v1/projetos", mToken, projBody)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("member create code = %d, want %d", rec.Code, http.StatusForbidden)
	}

	req, rec = newRequest(http.MethodPost, "/v1/projetos", aToken, projBody)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create projeto code = %d; body = %s", rec.Code, rec.Body.String())
	}
	var proj projeto.Projeto
	_ = json.Unmarshal(rec.Body.Bytes(), &proj)

	// the catalogue is public
	req, rec = newRequest(http.MethodGet, "/v1/projetos", "")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("query projetos code = %d", rec.Code)
	}

	// a member enrolls
	req, rec = newRequest(http.MethodPost, "/v1/projetos/"+proj.ID+"/inscricoes", mToken,
		[]byte(`{"valor_interesse": 5000000, "forma_pagamento": "prestações"}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("enroll code = %d; body = %s", rec.Code, rec.Body.String())
	}
	var insc projeto.InscricaoProjeto
	_ = json.Unmarshal(rec.Body.Bytes(), &insc)
	if insc.CooperadoID != coop.ID {
		t.Errorf("inscricao cooperado = %s, want %s", insc.CooperadoID, coop.ID)
	}

	// enrolling twice is a conflict
	req, rec = newRequest(http.MethodPost, "/v1/projetos/"+proj.ID+"/inscricoes", mToken, []byte(`{}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("re-enroll code = %d, want %d", rec.Code, http.StatusConflict)
	}

	// admin approves the enrollment
	req, rec = newRequest(http.MethodPost, "/v1/inscricoes-projeto/"+insc.ID+"/aprovar", aToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve code = %d; body = %s", rec.Code, rec.Body.String())
	}

	// approved enrollments cannot be cancelled by the member
	req, rec = newRequest(http.MethodDelete, "/v1/inscricoes-projeto/"+insc.ID, mToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("cancel approved code = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
