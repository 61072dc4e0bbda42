// Package bigquery is the BigQuery document store backend.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finansmanager/internal/store"
)

// Repository implements store.Repository on a BigQuery dataset. It holds a
// shared client to avoid creating a new connection for each operation.
type Repository struct {
	client       *bigquery.Client
	projectID    string
	datasetID    string
	pollInterval time.Duration
	log          zerolog.Logger
}

var (
	_ store.Repository     = (*Repository)(nil)
	_ store.LegacyImporter = (*Repository)(nil)
)

// NewRepository creates a repository over projectID.datasetID. Watches poll
// every pollInterval.
func NewRepository(ctx context.Context, projectID, datasetID string, pollInterval time.Duration, log zerolog.Logger) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return &Repository{
		client:       client,
		projectID:    projectID,
		datasetID:    datasetID,
		pollInterval: pollInterval,
		log:          log,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// table returns the fully qualified, backquoted table name for queries.
func (r *Repository) table(name string) string {
	return tableRef(r.projectID, r.datasetID, name)
}

func tableRef(projectID, datasetID, name string) string {
	return fmt.Sprintf("`%s.%s.%s`", projectID, datasetID, name)
}

// exec runs a statement and waits for it to finish.
func (r *Repository) exec(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}
