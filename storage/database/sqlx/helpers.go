package sqlxrepos

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/mutamba/coopvida/core"
)

// both the pooled handle and a transaction can back the repositories
var (
	_ core.DBExecutor = (*sqlx.DB)(nil)
	_ core.DBExecutor = (*sqlx.Tx)(nil)
)

const pqUniqueViolation = "23505"

// uniqueKey maps a Postgres unique-constraint violation to the logical
// key name the services dispatch on.
func uniqueKey(err error) (string, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return "", false
	}
	switch pqErr.Constraint {
	case "cooperado_email_key", "credencial_email_key":
		return "email", true
	case "cooperado_numero_associado_key":
		return "numero_associado", true
	case "credencial_cooperado_id_key":
		return "cooperado_id", true
	case "pagamento_referencia_key":
		return "referencia", true
	case "pagamento_mensalidade_periodo_key":
		return "mensalidade_periodo", true
	case "inscricao_projeto_cooperado_projeto_key":
		return "cooperado_projeto", true
	}
	return "", false
}

func conflictErr(err error, sentinel error) error {
	if key, ok := uniqueKey(err); ok {
		return core.NewConflictError(sentinel, key)
	}
	return err
}

// where builds an AND-ed WHERE clause from the collected conditions.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *where) clause() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func orderBy(dflt string, ordering []core.DBOrdering) string {
	if len(ordering) == 0 {
		return " ORDER BY " + dflt
	}
	ords := make([]string, len(ordering))
	for i, ord := range ordering {
		ords[i] = ord.String()
	}
	return " ORDER BY " + strings.Join(ords, ", ")
}

func marshalDocs(docs map[string]string) []byte {
	if docs == nil {
		docs = map[string]string{}
	}
	b, _ := json.Marshal(docs)
	return b
}

func unmarshalDocs(b []byte) (map[string]string, error) {
	docs := make(map[string]string)
	if len(b) == 0 {
		return docs, nil
	}
	if err := json.Unmarshal(b, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding documentos")
	}
	return docs, nil
}
