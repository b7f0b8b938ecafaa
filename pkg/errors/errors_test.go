package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected", retryable: true, detailsOK: true},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "month must be between 1 and 12")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "month must be between 1 and 12" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "month"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("invoice batch rejected")
	wrapped := Wrap(CodeDependency, cause, "commit settlement")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("settle: %w", New(CodeStateConflict, "fee schedule missing"))
	if got := CodeOf(wrapped); got != CodeStateConflict {
		t.Fatalf("expected state conflict, got %s", got)
	}
	if got := CodeOf(stdErrors.New("plain")); got != CodeInternal {
		t.Fatalf("expected internal for untyped errors, got %s", got)
	}
}

func TestDumpIncludesChain(t *testing.T) {
	cause := stdErrors.New("connection reset")
	err := fmt.Errorf("upsert invoices: %w", Wrap(CodeDependency, cause, "commit failed"))

	dump := Dump(err)
	if dump.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", dump.Code)
	}
	if len(dump.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d: %v", len(dump.Chain), dump.Chain)
	}
	if dump.PG != nil {
		t.Fatalf("expected no postgres details for plain errors, got %+v", dump.PG)
	}
}

func TestPostgresFromEitherDriver(t *testing.T) {
	pgxErr := &pgconn.PgError{Code: "23505", ConstraintName: "invoices_pkey", TableName: "invoices"}
	pg, ok := Postgres(fmt.Errorf("upsert invoices: %w", pgxErr))
	if !ok || pg.Code != "23505" || pg.Constraint != "invoices_pkey" || pg.Table != "invoices" {
		t.Fatalf("unexpected pgx details %+v %v", pg, ok)
	}

	pqErr := &pq.Error{Code: "23514", Constraint: "fee_schedules_card_percentage_check"}
	pg, ok = Postgres(pqErr)
	if !ok || pg.Code != "23514" || pg.Constraint != "fee_schedules_card_percentage_check" {
		t.Fatalf("unexpected pq details %+v %v", pg, ok)
	}

	if _, ok := Postgres(stdErrors.New("dial tcp")); ok {
		t.Fatal("plain errors carry no postgres details")
	}
}

func TestFromPostgresClassifies(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{&pgconn.PgError{Code: "23505"}, CodeConflict},
		{&pgconn.PgError{Code: "40001"}, CodeConflict},
		{&pq.Error{Code: "23514"}, CodeValidation},
		{&pgconn.PgError{Code: "53300"}, CodeDependency},
		{stdErrors.New("connection refused"), CodeDependency},
	}
	for _, tc := range cases {
		got := FromPostgres(tc.err, "save tenant")
		if got.Code() != tc.want {
			t.Fatalf("%v: expected %s got %s", tc.err, tc.want, got.Code())
		}
		if !stdErrors.Is(got, tc.err) {
			t.Fatalf("%v: cause not preserved", tc.err)
		}
	}
}

func TestDumpCarriesPostgresDetails(t *testing.T) {
	dump := Dump(Wrap(CodeDependency, &pgconn.PgError{Code: "23503", TableName: "sale_records"}, "save sale"))
	if dump.PG == nil || dump.PG.Code != "23503" || dump.PG.Table != "sale_records" {
		t.Fatalf("unexpected dump %+v", dump)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(New(CodeDependency, "db down")) {
		t.Fatal("dependency errors are retryable")
	}
	if IsRetryable(New(CodeValidation, "bad month")) {
		t.Fatal("validation errors are not retryable")
	}
	if IsRetryable(nil) {
		t.Fatal("nil is not retryable")
	}
}
