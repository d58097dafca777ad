package store

import (
	"fmt"
	"strings"
)

// casQuery builds "UPDATE t SET ... WHERE id = $1 AND <observed values>" statements.
// A conditional write lands only if every observed column still matches.
type casQuery struct {
	table string
	sets  []string
	where []string
	args  []any
}

func newCASQuery(table, id string) *casQuery {
	q := &casQuery{table: table}
	q.where = append(q.where, "id = "+q.arg(id))
	return q
}

func (q *casQuery) arg(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

func (q *casQuery) setRaw(col string, v any) {
	q.sets = append(q.sets, col+" = "+q.arg(v))
}

func (q *casQuery) sql() string {
	return "UPDATE " + q.table + " SET " + strings.Join(q.sets, ", ") + " WHERE " + strings.Join(q.where, " AND ")
}

func setCol[T any](q *casQuery, col string, o Opt[T]) {
	if !o.Valid {
		return
	}
	if optIsNull(o) {
		q.sets = append(q.sets, col+" = NULL")
		return
	}
	q.sets = append(q.sets, col+" = "+q.arg(optParam(o)))
}

func whereCol[T any](q *casQuery, col string, o Opt[T]) {
	if !o.Valid {
		return
	}
	if optIsNull(o) {
		q.where = append(q.where, col+" IS NULL")
		return
	}
	q.where = append(q.where, col+" = "+q.arg(optParam(o)))
}
