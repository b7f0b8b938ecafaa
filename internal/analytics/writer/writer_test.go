package writer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/coursehub-backend/internal/analytics/types"
)

func TestNewWriterValidation(t *testing.T) {
	if _, err := New(nil, Config{}); err == nil {
		t.Fatal("expected error when client missing")
	}
	if _, err := newWriter(&fakeInserter{}, Config{SettlementEventsTable: " ", InvoiceFactsTable: "facts"}); err == nil {
		t.Fatal("expected error when events table missing")
	}
	if _, err := newWriter(&fakeInserter{}, Config{SettlementEventsTable: "events", InvoiceFactsTable: " "}); err == nil {
		t.Fatal("expected error when facts table missing")
	}
}

func TestTableSpecs(t *testing.T) {
	specs := TableSpecs(Config{SettlementEventsTable: "events", InvoiceFactsTable: "facts"})
	if len(specs) != 2 {
		t.Fatalf("expected two tables, got %d", len(specs))
	}
	if specs[0].Name != "events" || specs[0].PartitionField != "occurred_at" {
		t.Fatalf("unexpected events spec %+v", specs[0])
	}
	if _, ok := specs[1].Row.(types.InvoiceFactRow); !ok || specs[1].ClusterFields[0] != "tenant_id" {
		t.Fatalf("unexpected facts spec %+v", specs[1])
	}
}

func TestEncodeJSON(t *testing.T) {
	nj, err := EncodeJSON(map[string]any{"foo": "bar"})
	if err != nil || !nj.Valid {
		t.Fatalf("expected valid json, got %+v %v", nj, err)
	}

	nj, err = EncodeJSON(nil)
	if err != nil || nj.Valid {
		t.Fatalf("expected nil json to be invalid, got %+v %v", nj, err)
	}

	raw := json.RawMessage(`{"foo":"baz"}`)
	nj, err = EncodeJSON(raw)
	if err != nil || nj.JSONVal != string(raw) {
		t.Fatalf("expected raw json passed through, got %+v %v", nj, err)
	}
}

func TestWriterRetriesOnTransientError(t *testing.T) {
	writer, fake := newTestWriter(t)
	fake.responses = []error{
		&googleapi.Error{Code: http.StatusServiceUnavailable},
		nil,
	}

	if err := writer.InsertSettlementEvent(context.Background(), types.SettlementEventRow{EventID: "1"}); err != nil {
		t.Fatalf("unexpected error writing row: %v", err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected two insert attempts, got %d", len(fake.calls))
	}
	if fake.calls[1].table != "settlement_events" {
		t.Fatalf("expected events table on retry, got %s", fake.calls[1].table)
	}
}

func TestWriterDoesNotRetryPermanentError(t *testing.T) {
	writer, fake := newTestWriter(t)
	fake.responses = []error{&googleapi.Error{Code: http.StatusBadRequest}}

	err := writer.InsertSettlementEvent(context.Background(), types.SettlementEventRow{EventID: "1"})
	if err == nil {
		t.Fatal("expected permanent error")
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected wrapped api error, got %v", err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(fake.calls))
	}
}

func TestWriterGivesUpAfterMaxAttempts(t *testing.T) {
	writer, fake := newTestWriter(t)
	fake.responses = []error{
		&googleapi.Error{Code: http.StatusServiceUnavailable},
		&googleapi.Error{Code: http.StatusServiceUnavailable},
		&googleapi.Error{Code: http.StatusServiceUnavailable},
	}

	if err := writer.InsertSettlementEvent(context.Background(), types.SettlementEventRow{EventID: "1"}); err == nil {
		t.Fatal("expected error after retries")
	}
	if len(fake.calls) != 3 {
		t.Fatalf("expected three attempts, got %d", len(fake.calls))
	}
}

func TestInsertInvoiceFactsSendsOneBatch(t *testing.T) {
	writer, fake := newTestWriter(t)

	rows := []types.InvoiceFactRow{{TenantID: "a"}, {TenantID: "b"}}
	if err := writer.InsertInvoiceFacts(context.Background(), rows); err != nil {
		t.Fatalf("insert facts: %v", err)
	}
	if len(fake.calls) != 1 || fake.calls[0].rowCount != 2 || fake.calls[0].table != "invoice_facts" {
		t.Fatalf("unexpected calls %+v", fake.calls)
	}

	if err := writer.InsertInvoiceFacts(context.Background(), nil); err != nil {
		t.Fatalf("empty facts: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Fatal("empty facts should not call BigQuery")
	}
}

func TestRowsCarryInsertIDs(t *testing.T) {
	writer, fake := newTestWriter(t)

	if err := writer.InsertSettlementEvent(context.Background(), types.SettlementEventRow{EventID: "evt-1"}); err != nil {
		t.Fatalf("insert event: %v", err)
	}
	rows := []types.InvoiceFactRow{{EventID: "evt-2", TenantID: "a"}, {EventID: "evt-2", TenantID: "b"}}
	if err := writer.InsertInvoiceFacts(context.Background(), rows); err != nil {
		t.Fatalf("insert facts: %v", err)
	}

	want := [][]string{{"evt-1"}, {"evt-2:a", "evt-2:b"}}
	for i, call := range fake.calls {
		if len(call.insertIDs) != len(want[i]) {
			t.Fatalf("call %d: insert ids %v", i, call.insertIDs)
		}
		for j, id := range call.insertIDs {
			if id != want[i][j] {
				t.Fatalf("call %d row %d: insert id %q, want %q", i, j, id, want[i][j])
			}
		}
	}
}

func TestDefaultRetryPolicyAllowsThreeAttempts(t *testing.T) {
	b := RetryPolicy{}.backoff()
	for i := 0; i < 2; i++ {
		if _, stop := b.Next(); stop {
			t.Fatalf("stopped after %d retries", i)
		}
	}
	if _, stop := b.Next(); !stop {
		t.Fatal("expected third retry to stop")
	}
}

type insertCall struct {
	table     string
	rowCount  int
	insertIDs []string
}

type fakeInserter struct {
	responses []error
	calls     []insertCall
	index     int
}

func (f *fakeInserter) InsertRows(_ context.Context, table string, rows []any) error {
	call := insertCall{table: table, rowCount: len(rows)}
	for _, row := range rows {
		if saver, ok := row.(*cbigquery.StructSaver); ok {
			call.insertIDs = append(call.insertIDs, saver.InsertID)
		}
	}
	f.calls = append(f.calls, call)
	var err error
	if f.index < len(f.responses) {
		err = f.responses[f.index]
	}
	f.index++
	return err
}

func newTestWriter(t *testing.T) (*BigQueryWriter, *fakeInserter) {
	t.Helper()
	fake := &fakeInserter{}
	writer, err := newWriter(fake, Config{
		SettlementEventsTable: "settlement_events",
		InvoiceFactsTable:     "invoice_facts",
		RetryPolicy: RetryPolicy{
			InitialBackoff: time.Millisecond,
			MaximumBackoff: 2 * time.Millisecond,
		},
	})
	if err != nil {
		t.Fatalf("construct writer: %v", err)
	}
	return writer, fake
}
