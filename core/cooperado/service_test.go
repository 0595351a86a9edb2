package cooperado_test

import (
	"bytes"
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/mutamba/coopvida/core"
	"github.com/mutamba/coopvida/core/cooperado"
	logsvc "github.com/mutamba/coopvida/services/logger"
	dummydb "github.com/mutamba/coopvida/storage/database/dummy"
)

func setup(t *testing.T) (*cooperado.Service, cooperado.Repository, cooperado.CredencialRepository) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	coopRepo := dummydb.NewCooperadoRepository(db)
	credRepo := dummydb.NewCredencialRepository(db)
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	return cooperado.NewService(coopRepo, credRepo, logger), coopRepo, credRepo
}

func createCooperado(t *testing.T, repo cooperado.Repository, nome, numero, email string) cooperado.Cooperado {
	now := time.Now().UTC()
	coop := cooperado.Cooperado{
		NumeroAssociado: numero,
		NomeCompleto:    nome,
		Email:           email,
		Status:          cooperado.StatusAtivo,
		StatusPagamento: cooperado.PagamentoPendente,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	coop, err := repo.CreateCooperado(context.Background(), coop)
	if err != nil {
		t.Fatalf("createCooperado() failed: %v", err)
	}
	return coop
}

func createCredencial(t *testing.T, repo cooperado.CredencialRepository, coopID, email, pwd string, ativa bool) cooperado.Credencial {
	now := time.Now().UTC()
	status := cooperado.CredencialAtiva
	if !ativa {
		status = cooperado.CredencialInativa
	}
	cred := cooperado.Credencial{
		CooperadoID: coopID,
		Email:       email,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := cred.SetPassword(pwd); err != nil {
		t.Fatalf("createCredencial() failed: %v", err)
	}
	cred, err := repo.CreateCredencial(context.Background(), cred)
	if err != nil {
		t.Fatalf("createCredencial() failed: %v", err)
	}
	return cred
}

func TestService_Authenticate(t *testing.T) {
	svc, coopRepo, credRepo := setup(t)
	ctx := context.Background()

	coop := createCooperado(t, coopRepo, "Maria Fernanda", "CV-25010001", "maria@test.ao")
	createCredencial(t, credRepo, coop.ID, coop.Email, "S3CRETPWD", true)

	inativo := createCooperado(t, coopRepo, "José Manuel", "CV-25010002", "jose@test.ao")
	createCredencial(t, credRepo, inativo.ID, inativo.Email, "S3CRETPWD", false)

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{name: "unknown email", email: "lol@test.ao", pwd: "S3CRETPWD", wantErr: cooperado.ErrCredencialNotFound},
		{name: "wrong password", email: "maria@test.ao", pwd: "nope", wantErr: cooperado.ErrCredencialNotFound},
		{name: "deactivated credencial", email: "jose@test.ao", pwd: "S3CRETPWD", wantErr: cooperado.ErrCredencialInativa},
		{name: "ok", email: "maria@test.ao", pwd: "S3CRETPWD"},
		{name: "ok (mixed-case email)", email: " Maria@Test.AO ", pwd: "S3CRETPWD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := svc.Authenticate(ctx, tt.email, tt.pwd)
			if errors.Cause(err) != tt.wantErr {
				t.Fatalf("Authenticate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && got.ID != coop.ID {
				t.Errorf("Authenticate() cooperado = %s, want %s", got.ID, coop.ID)
			}
		})
	}
}

func TestService_ChangePassword(t *testing.T) {
	svc, coopRepo, credRepo := setup(t)
	ctx := context.Background()

	coop := createCooperado(t, coopRepo, "Maria Fernanda", "CV-25010001", "maria@test.ao")
	createCredencial(t, credRepo, coop.ID, coop.Email, "OLDPWD123", true)

	// wrong current password
	_, err := svc.ChangePassword(ctx, coop.ID, cooperado.ChangeSenha{
		SenhaAtual: "nope", NovaSenha: "NEWPWD456", NovaSenhaConfirm: "NEWPWD456",
	})
	if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
		t.Fatalf("ChangePassword() error = %v, want *core.ValidationError", err)
	}

	// unknown cooperado
	_, err = svc.ChangePassword(ctx, "lol", cooperado.ChangeSenha{
		SenhaAtual: "OLDPWD123", NovaSenha: "NEWPWD456", NovaSenhaConfirm: "NEWPWD456",
	})
	if errors.Cause(err) != cooperado.ErrCredencialNotFound {
		t.Fatalf("ChangePassword() error = %v, want %v", err, cooperado.ErrCredencialNotFound)
	}

	// ok
	cred, err := svc.ChangePassword(ctx, coop.ID, cooperado.ChangeSenha{
		SenhaAtual: "OLDPWD123", NovaSenha: "NEWPWD456", NovaSenhaConfirm: "NEWPWD456",
	})
	if err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if err := cred.CheckPassword("NEWPWD456"); err != nil {
		t.Error("ChangePassword() did not set the new password")
	}
	if !cred.SenhaAlterada {
		t.Error("ChangePassword() did not flip SenhaAlterada")
	}
	if cred.DataAlteracaoSenha.IsZero() {
		t.Error("ChangePassword() did not stamp DataAlteracaoSenha")
	}
}

func TestService_ResetPassword(t *testing.T) {
	svc, coopRepo, credRepo := setup(t)
	ctx := context.Background()

	coop := createCooperado(t, coopRepo, "Maria Fernanda", "CV-25010001", "maria@test.ao")
	orig := createCredencial(t, credRepo, coop.ID, coop.Email, "OLDPWD123", true)

	if _, err := svc.ResetPassword(ctx, "lol", "NEWPWD456"); errors.Cause(err) != cooperado.ErrCredencialNotFound {
		t.Fatalf("ResetPassword() error = %v, want %v", err, cooperado.ErrCredencialNotFound)
	}

	cred, err := svc.ResetPassword(ctx, coop.ID, "NEWPWD456")
	if err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}
	if bytes.Equal(cred.SenhaHash, orig.SenhaHash) {
		t.Error("ResetPassword() did not change the password hash")
	}
	if err := cred.CheckPassword("NEWPWD456"); err != nil {
		t.Error("ResetPassword() did not set the new password")
	}
	if cred.SenhaAlterada {
		t.Error("ResetPassword() must leave SenhaAlterada false so the member changes it on next login")
	}
}
