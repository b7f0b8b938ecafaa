package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLSTATE classes the settlement store cares about.
const (
	sqlStateUniqueViolation      = "23505"
	sqlStateCheckViolation       = "23514"
	sqlStateForeignKeyViolation  = "23503"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// PostgresDetails normalizes the error fields of the pgx and lib/pq drivers.
type PostgresDetails struct {
	Code       string `json:"pg_code,omitempty"`
	Constraint string `json:"pg_constraint,omitempty"`
	Table      string `json:"pg_table,omitempty"`
	Column     string `json:"pg_column,omitempty"`
	Detail     string `json:"pg_detail,omitempty"`
	Message    string `json:"pg_message,omitempty"`
}

// Postgres extracts the server error behind err, whichever driver raised it.
func Postgres(err error) (PostgresDetails, bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return PostgresDetails{
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return PostgresDetails{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}, true
	}
	return PostgresDetails{}, false
}

// FromPostgres maps constraint and concurrency failures onto codes. Anything
// else, including non-database errors, becomes CodeDependency.
func FromPostgres(err error, message string) *Error {
	pg, ok := Postgres(err)
	if !ok {
		return Wrap(CodeDependency, err, message)
	}
	var code Code
	switch pg.Code {
	case sqlStateUniqueViolation, sqlStateSerializationFailure, sqlStateDeadlockDetected:
		code = CodeConflict
	case sqlStateCheckViolation, sqlStateForeignKeyViolation:
		code = CodeValidation
	default:
		code = CodeDependency
	}
	return Wrap(code, err, message).WithDetails(map[string]any{"constraint": pg.Constraint})
}

// ErrorDump is the log-only view of an error chain.
type ErrorDump struct {
	TopMessage string           `json:"top_message"`
	Code       Code             `json:"code,omitempty"`
	Chain      []string         `json:"chain,omitempty"`
	PG         *PostgresDetails `json:"postgres,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error()}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	if pg, ok := Postgres(err); ok {
		d.PG = &pg
	}
	return d
}
