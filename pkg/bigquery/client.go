package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/angelmondragon/coursehub-backend/pkg/config"
	"github.com/angelmondragon/coursehub-backend/pkg/logger"
)

const metadataTimeout = 10 * time.Second

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery table name is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// TableSpec describes a table the settlement sink streams into. Row is a
// struct value whose bigquery tags define the schema.
type TableSpec struct {
	Name           string
	Row            any
	PartitionField string
	ClusterFields  []string
}

// Client wraps a dataset-scoped BigQuery client.
type Client struct {
	client       *bigquery.Client
	dataset      *bigquery.Dataset
	createTables bool
	logg         *logger.Logger
}

// NewClient opens a client and checks the dataset is reachable. Tables are
// checked separately through EnsureTables.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errDatasetRequired
	}

	bqClient, err := bigquery.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	client := &Client{
		client:       bqClient,
		dataset:      bqClient.Dataset(datasetID),
		createTables: cfg.CreateTables,
		logg:         logg,
	}

	metaCtx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()
	if _, err := client.dataset.Metadata(metaCtx); err != nil {
		_ = bqClient.Close()
		if isNotFound(err) {
			return nil, fmt.Errorf("dataset %q does not exist", datasetID)
		}
		return nil, fmt.Errorf("checking dataset %q: %w", datasetID, err)
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project": projectID,
			"dataset": datasetID,
		}), "bigquery client initialized")
	}
	return client, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

// EnsureTables verifies every table exists. Missing tables are created from
// their spec when table creation is enabled, otherwise they are an error.
func (c *Client) EnsureTables(ctx context.Context, specs ...TableSpec) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return errTableNameRequired
		}
		table := c.dataset.Table(name)
		_, err := table.Metadata(ctx)
		if err == nil {
			continue
		}
		if !isNotFound(err) {
			return fmt.Errorf("checking table %q: %w", name, err)
		}
		if !c.createTables {
			return fmt.Errorf("table %q does not exist", name)
		}

		md, err := tableMetadata(spec)
		if err != nil {
			return err
		}
		if err := table.Create(ctx, md); err != nil {
			return fmt.Errorf("creating table %q: %w", name, err)
		}
		if c.logg != nil {
			c.logg.Info(c.logg.WithField(ctx, "table", name), "bigquery table created")
		}
	}
	return nil
}

func tableMetadata(spec TableSpec) (*bigquery.TableMetadata, error) {
	schema, err := bigquery.InferSchema(spec.Row)
	if err != nil {
		return nil, fmt.Errorf("infer schema for %q: %w", spec.Name, err)
	}
	md := &bigquery.TableMetadata{Schema: schema}
	if spec.PartitionField != "" {
		md.TimePartitioning = &bigquery.TimePartitioning{
			Type:  bigquery.MonthPartitioningType,
			Field: spec.PartitionField,
		}
	}
	if len(spec.ClusterFields) > 0 {
		md.Clustering = &bigquery.Clustering{Fields: spec.ClusterFields}
	}
	return md, nil
}

// InsertRows streams rows into table.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	name := strings.TrimSpace(table)
	if name == "" {
		return errTableNameRequired
	}
	if len(rows) == 0 {
		return nil
	}
	return c.dataset.Table(name).Inserter().Put(ctx, rows)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
