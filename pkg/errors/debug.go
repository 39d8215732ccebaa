package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump flattens an error for structured logs. The DB fields come from
// Postgres errors (pgx or lib/pq) or from SQLite constraint messages.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	DBDriver     string `json:"db_driver,omitempty"`
	DBCode       string `json:"db_code,omitempty"`
	DBConstraint string `json:"db_constraint,omitempty"`
	DBTable      string `json:"db_table,omitempty"`
	DBColumn     string `json:"db_column,omitempty"`
	DBDetail     string `json:"db_detail,omitempty"`
	DBMessage    string `json:"db_message,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	d.fillDB(err)
	return d
}

// Fields renders the dump as logger fields. Empty DB details are left out.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_code":  d.Code,
		"error_chain": d.Chain,
	}
	if d.DBDriver == "" {
		return fields
	}
	fields["db_driver"] = d.DBDriver
	for key, val := range map[string]string{
		"db_code":       d.DBCode,
		"db_constraint": d.DBConstraint,
		"db_table":      d.DBTable,
		"db_column":     d.DBColumn,
		"db_detail":     d.DBDetail,
		"db_message":    d.DBMessage,
	} {
		if val != "" {
			fields[key] = val
		}
	}
	return fields
}

func (d *ErrorDump) fillDB(err error) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.DBDriver = "postgres"
		d.DBCode = pgxErr.Code
		d.DBConstraint = pgxErr.ConstraintName
		d.DBTable = pgxErr.TableName
		d.DBColumn = pgxErr.ColumnName
		d.DBDetail = pgxErr.Detail
		d.DBMessage = pgxErr.Message
		return
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.DBDriver = "postgres"
		d.DBCode = string(pqErr.Code)
		d.DBConstraint = pqErr.Constraint
		d.DBTable = pqErr.Table
		d.DBColumn = pqErr.Column
		d.DBDetail = pqErr.Detail
		d.DBMessage = pqErr.Message
		return
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		if d.fillSQLite(e.Error()) {
			return
		}
	}
}

// fillSQLite parses messages such as
// "UNIQUE constraint failed: cart_items.user_id, cart_items.product_id".
func (d *ErrorDump) fillSQLite(msg string) bool {
	head, target, found := strings.Cut(msg, " constraint failed")
	if !found {
		return false
	}
	words := strings.Fields(head)
	start := len(words)
	for start > 0 && words[start-1] == strings.ToUpper(words[start-1]) {
		start--
	}
	if start == len(words) {
		return false
	}
	kind := strings.Join(words[start:], "")
	target = strings.TrimSpace(strings.TrimPrefix(target, ":"))

	d.DBDriver = "sqlite"
	d.DBCode = "SQLITE_CONSTRAINT_" + kind
	d.DBMessage = msg
	d.DBConstraint = target
	if kind == "CHECK" || target == "" {
		return true
	}

	var columns []string
	for _, ref := range strings.Split(target, ",") {
		table, column, ok := strings.Cut(strings.TrimSpace(ref), ".")
		if !ok {
			continue
		}
		if d.DBTable == "" {
			d.DBTable = table
		}
		columns = append(columns, column)
	}
	d.DBColumn = strings.Join(columns, ",")
	return true
}
