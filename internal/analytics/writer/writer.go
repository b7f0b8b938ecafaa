package writer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/sethvargo/go-retry"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/coursehub-backend/internal/analytics/types"
	pkgbigquery "github.com/angelmondragon/coursehub-backend/pkg/bigquery"
)

type Config struct {
	SettlementEventsTable string
	InvoiceFactsTable     string
	RetryPolicy           RetryPolicy
}

// RetryPolicy bounds retries of transient BigQuery failures. Zero values
// fall back to three attempts between 250ms and 2s apart.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

func (p RetryPolicy) backoff() retry.Backoff {
	attempts, initial, ceiling := p.MaxAttempts, p.InitialBackoff, p.MaximumBackoff
	if attempts <= 0 {
		attempts = 3
	}
	if initial <= 0 {
		initial = 250 * time.Millisecond
	}
	if ceiling <= 0 {
		ceiling = 2 * time.Second
	}
	b := retry.WithCappedDuration(max(ceiling, initial), retry.NewExponential(initial))
	return retry.WithMaxRetries(uint64(attempts-1), b)
}

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// BigQueryWriter streams analytics rows. Every row carries an insert id
// derived from its event, so BigQuery drops most duplicates from a retried
// stream on its side too.
type BigQueryWriter struct {
	client       tableInserter
	eventsTable  string
	factsTable   string
	eventsSchema cbigquery.Schema
	factsSchema  cbigquery.Schema
	retry        RetryPolicy
}

// TableSpecs describes the tables the writer streams into, for provisioning.
func TableSpecs(cfg Config) []pkgbigquery.TableSpec {
	return []pkgbigquery.TableSpec{
		{
			Name:           cfg.SettlementEventsTable,
			Row:            types.SettlementEventRow{},
			PartitionField: "occurred_at",
			ClusterFields:  []string{"event_type"},
		},
		{
			Name:           cfg.InvoiceFactsTable,
			Row:            types.InvoiceFactRow{},
			PartitionField: "committed_at",
			ClusterFields:  []string{"tenant_id", "period_id"},
		},
	}
}

func New(client *pkgbigquery.Client, cfg Config) (*BigQueryWriter, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	return newWriter(client, cfg)
}

func newWriter(client tableInserter, cfg Config) (*BigQueryWriter, error) {
	w := &BigQueryWriter{
		client:      client,
		eventsTable: strings.TrimSpace(cfg.SettlementEventsTable),
		factsTable:  strings.TrimSpace(cfg.InvoiceFactsTable),
		retry:       cfg.RetryPolicy,
	}
	switch {
	case w.eventsTable == "":
		return nil, errors.New("settlement events table is required")
	case w.factsTable == "":
		return nil, errors.New("invoice facts table is required")
	}

	var err error
	if w.eventsSchema, err = cbigquery.InferSchema(types.SettlementEventRow{}); err != nil {
		return nil, fmt.Errorf("settlement events schema: %w", err)
	}
	if w.factsSchema, err = cbigquery.InferSchema(types.InvoiceFactRow{}); err != nil {
		return nil, fmt.Errorf("invoice facts schema: %w", err)
	}
	return w, nil
}

func (w *BigQueryWriter) InsertSettlementEvent(ctx context.Context, row types.SettlementEventRow) error {
	return w.insert(ctx, w.eventsTable, []any{&cbigquery.StructSaver{
		Schema:   w.eventsSchema,
		InsertID: row.EventID,
		Struct:   &row,
	}})
}

// InsertInvoiceFacts writes the invoice rows of one run in a single request.
func (w *BigQueryWriter) InsertInvoiceFacts(ctx context.Context, rows []types.InvoiceFactRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := make([]any, len(rows))
	for i := range rows {
		batch[i] = &cbigquery.StructSaver{
			Schema:   w.factsSchema,
			InsertID: rows[i].EventID + ":" + rows[i].TenantID,
			Struct:   &rows[i],
		}
	}
	return w.insert(ctx, w.factsTable, batch)
}

func (w *BigQueryWriter) insert(ctx context.Context, table string, rows []any) error {
	err := retry.Do(ctx, w.retry.backoff(), func(ctx context.Context) error {
		err := w.client.InsertRows(ctx, table, rows)
		if err != nil && transient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("insert %s rows: %w", table, err)
	}
	return nil
}

// transient is true only when every wrapped failure is worth retrying.
func transient(err error) bool {
	var rowErrs cbigquery.PutMultiError
	if errors.As(err, &rowErrs) {
		if len(rowErrs) == 0 {
			return false
		}
		for _, rowErr := range rowErrs {
			if !transient(rowErr.Errors) {
				return false
			}
		}
		return true
	}

	var multi cbigquery.MultiError
	if errors.As(err, &multi) {
		if len(multi) == 0 {
			return false
		}
		for _, inner := range multi {
			if !transient(inner) {
				return false
			}
		}
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusRequestTimeout, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		switch st.Code() {
		case codes.Aborted, codes.DeadlineExceeded, codes.Internal, codes.ResourceExhausted, codes.Unavailable:
			return true
		}
	}
	return false
}

// EncodeJSON converts a payload into a BigQuery JSON column value. Empty
// payloads become NULL.
func EncodeJSON(payload any) (cbigquery.NullJSON, error) {
	var raw []byte
	switch v := payload.(type) {
	case nil:
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return cbigquery.NullJSON{}, fmt.Errorf("marshal json: %w", err)
		}
		raw = encoded
	}
	if len(raw) == 0 {
		return cbigquery.NullJSON{}, nil
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(raw)}, nil
}
