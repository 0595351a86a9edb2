package dummydb

import (
	"sync"

	"github.com/mutamba/coopvida/core/billing"
	"github.com/mutamba/coopvida/core/cooperado"
	"github.com/mutamba/coopvida/core/inscricao"
	"github.com/mutamba/coopvida/core/projeto"
)

// DB is the in-memory storage provider; interchangeable with the sqlx one.
type (
	DB struct {
		cooperado        *cooperadoTable
		credencial       *credencialTable
		inscricao        *inscricaoTable
		plano            *planoTable
		pagamento        *pagamentoTable
		projeto          *projetoTable
		inscricaoProjeto *inscricaoProjetoTable
	}

	cooperadoTable struct {
		sync.RWMutex
		table map[string]*cooperado.Cooperado
	}

	credencialTable struct {
		sync.RWMutex
		table map[string]*cooperado.Credencial
	}

	inscricaoTable struct {
		sync.RWMutex
		table map[string]*inscricao.InscricaoPublica
	}

	planoTable struct {
		sync.RWMutex
		table map[string]*billing.AssinaturaPlano
	}

	pagamentoTable struct {
		sync.RWMutex
		table map[string]*billing.Pagamento
	}

	projetoTable struct {
		sync.RWMutex
		table map[string]*projeto.Projeto
	}

	inscricaoProjetoTable struct {
		sync.RWMutex
		table map[string]*projeto.InscricaoProjeto
	}
)

func Open() (*DB, error) {
	db := &DB{
		cooperado:        &cooperadoTable{table: make(map[string]*cooperado.Cooperado)},
		credencial:       &credencialTable{table: make(map[string]*cooperado.Credencial)},
		inscricao:        &inscricaoTable{table: make(map[string]*inscricao.InscricaoPublica)},
		plano:            &planoTable{table: make(map[string]*billing.AssinaturaPlano)},
		pagamento:        &pagamentoTable{table: make(map[string]*billing.Pagamento)},
		projeto:          &projetoTable{table: make(map[string]*projeto.Projeto)},
		inscricaoProjeto: &inscricaoProjetoTable{table: make(map[string]*projeto.InscricaoProjeto)},
	}
	return db, nil
}
