package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/coursehub-backend/pkg/errors"
)

type rateBody struct {
	Rate  *decimal.Decimal `json:"rate" validate:"required,nonnegative"`
	Month int              `json:"month" validate:"required,min=1,max=12"`
}

func decode(t *testing.T, payload string) (rateBody, error) {
	t.Helper()
	var body rateBody
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	err := DecodeJSONBody(httptest.NewRecorder(), req, &body)
	return body, err
}

func TestDecodeJSONBodyAcceptsZeroDecimal(t *testing.T) {
	body, err := decode(t, `{"rate":"0","month":3}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !body.Rate.IsZero() || body.Month != 3 {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestMustRegisterPanicsOnBadTag(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for an empty tag")
		}
	}()
	mustRegister(newValidator(), "", nonNegative)
}

func TestDecodeJSONBodyRejects(t *testing.T) {
	cases := map[string]string{
		"negative decimal": `{"rate":"-0.01","month":3}`,
		"missing rate":     `{"month":3}`,
		"month range":      `{"rate":"1","month":13}`,
		"unknown field":    `{"rate":"1","month":3,"extra":true}`,
		"empty body":       ``,
		"trailing object":  `{"rate":"1","month":3}{"rate":"1","month":3}`,
	}
	for name, payload := range cases {
		if _, err := decode(t, payload); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestDecodeJSONBodyNamesFieldsByJSONTag(t *testing.T) {
	_, err := decode(t, `{"rate":"-1","month":3}`)
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %v", err)
	}
	if details["rate"] != "must not be negative" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestDecodeJSONBodyRejectsOversizedBody(t *testing.T) {
	payload := `{"rate":"1","month":3,"pad":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	_, err := decode(t, payload)
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=50&bad=x&big=900", nil)

	if v, err := QueryInt(req, "limit", 20, 1, 200); err != nil || v != 50 {
		t.Fatalf("expected 50, got %d %v", v, err)
	}
	if v, err := QueryInt(req, "missing", 20, 1, 200); err != nil || v != 20 {
		t.Fatalf("expected fallback 20, got %d %v", v, err)
	}
	if _, err := QueryInt(req, "bad", 20, 1, 200); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := QueryInt(req, "big", 20, 1, 200); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected range error, got %v", err)
	}
}

func TestPathParams(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("month", "02")
	rctx.URLParams.Add("tenantId", " tenant-a ")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	if v, err := PathInt(req, "month", 1, 12); err != nil || v != 2 {
		t.Fatalf("expected month 2, got %d %v", v, err)
	}
	if _, err := PathInt(req, "year", 1, 9999); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected missing year to fail, got %v", err)
	}
	if v, err := PathString(req, "tenantId"); err != nil || v != "tenant-a" {
		t.Fatalf("expected tenant-a, got %q %v", v, err)
	}
}
