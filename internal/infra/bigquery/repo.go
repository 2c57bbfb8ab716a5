package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/finbrief/statement-ingest/internal/logger"
)

const (
	documentsTable    = "documents"
	parsingRunsTable  = "parsing_runs"
	transactionsTable = "transactions"

	dateFormat = "2006-01-02"

	maxErrorMessageLen = 2000
)

// LedgerRepository is the persistence contract the ingestion pipeline
// depends on. It enables mocking of BigQuery in pipeline tests.
type LedgerRepository interface {
	InsertDocument(ctx context.Context, row *DocumentRow) error
	StartParsingRun(ctx context.Context, documentID, parserType string) (string, error)
	MarkParsingRunSucceeded(ctx context.Context, parsingRunID string, rowCount int) error
	MarkParsingRunFailed(ctx context.Context, parsingRunID string, parseErr error)
	InsertTransactions(ctx context.Context, rows []*TransactionRow) error
	QueryTransactionsByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*TransactionRow, error)
	ListDocuments(ctx context.Context) ([]*DocumentRow, error)
}

// Repository implements LedgerRepository against BigQuery with a shared
// client. Call Close when the process shuts down.
type Repository struct {
	client  *bigquery.Client
	project string
	dataset string
}

// NewRepository creates a Repository for the given project and dataset.
func NewRepository(ctx context.Context, project, dataset string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: bigquery client: %w", err)
	}
	return &Repository{client: client, project: project, dataset: dataset}, nil
}

// Close closes the underlying BigQuery client.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *Repository) table(name string) *bigquery.Table {
	return r.client.DatasetInProject(r.project, r.dataset).Table(name)
}

// InsertDocument inserts a single document row.
func (r *Repository) InsertDocument(ctx context.Context, row *DocumentRow) error {
	if err := r.table(documentsTable).Inserter().Put(ctx, row); err != nil {
		return fmt.Errorf("InsertDocument: inserting row: %w", err)
	}
	return nil
}

// StartParsingRun inserts a parsing run with status=RUNNING and returns the
// generated parsing_run_id.
func (r *Repository) StartParsingRun(ctx context.Context, documentID, parserType string) (string, error) {
	parsingRunID := uuid.NewString()

	q := r.client.Query(fmt.Sprintf(`
		INSERT %s.%s (
			parsing_run_id,
			document_id,
			started_ts,
			parser_type,
			parser_version,
			status
		)
		VALUES (
			@parsing_run_id,
			@document_id,
			@started_ts,
			@parser_type,
			@parser_version,
			@status
		)
	`, r.dataset, parsingRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "parsing_run_id", Value: parsingRunID},
		{Name: "document_id", Value: documentID},
		{Name: "started_ts", Value: time.Now()},
		{Name: "parser_type", Value: parserType},
		{Name: "parser_version", Value: "v1"},
		{Name: "status", Value: RunStatusRunning},
	}

	if err := r.runAndWait(ctx, q); err != nil {
		return "", fmt.Errorf("StartParsingRun: %w", err)
	}
	return parsingRunID, nil
}

// MarkParsingRunSucceeded sets status=SUCCESS, finished_ts and row_count.
func (r *Repository) MarkParsingRunSucceeded(ctx context.Context, parsingRunID string, rowCount int) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    row_count = @row_count,
		    error_message = ""
		WHERE parsing_run_id = @parsing_run_id
	`, r.dataset, parsingRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusSuccess},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "row_count", Value: rowCount},
		{Name: "parsing_run_id", Value: parsingRunID},
	}

	if err := r.runAndWait(ctx, q); err != nil {
		return fmt.Errorf("MarkParsingRunSucceeded: %w", err)
	}
	return nil
}

// MarkParsingRunFailed sets status=FAILED, finished_ts and error_message.
// Failures here are logged rather than returned; the caller is already on
// an error path.
func (r *Repository) MarkParsingRunFailed(ctx context.Context, parsingRunID string, parseErr error) {
	log := logger.FromContext(ctx)

	errMsg := ""
	if parseErr != nil {
		errMsg = parseErr.Error()
		if len(errMsg) > maxErrorMessageLen {
			errMsg = errMsg[:maxErrorMessageLen]
		}
	}

	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE parsing_run_id = @parsing_run_id
	`, r.dataset, parsingRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "parsing_run_id", Value: parsingRunID},
	}

	if err := r.runAndWait(ctx, q); err != nil {
		log.Error().
			Err(err).
			Str("parsing_run_id", parsingRunID).
			Msg("MarkParsingRunFailed: update query")
	}
}

// InsertTransactions inserts a batch of transaction rows.
func (r *Repository) InsertTransactions(ctx context.Context, rows []*TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}
	if err := r.table(transactionsTable).Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return nil
}

// QueryTransactionsByDateRange returns transactions within the date range,
// restricted to successful parsing runs so superseded or failed runs never
// leak into results.
func (r *Repository) QueryTransactionsByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*TransactionRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT
			t.transaction_id,
			t.document_id,
			t.parsing_run_id,
			t.transaction_date,
			t.amount,
			t.currency,
			t.direction,
			t.description,
			t.category,
			t.statement_line_no,
			t.created_ts
		FROM %s.%s t
		INNER JOIN %s.%s pr
		  ON t.parsing_run_id = pr.parsing_run_id
		WHERE t.transaction_date >= @start_date
		  AND t.transaction_date <= @end_date
		  AND pr.status = @status
		ORDER BY t.transaction_date, t.created_ts
	`, r.dataset, transactionsTable, r.dataset, parsingRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: startDate.Format(dateFormat)},
		{Name: "end_date", Value: endDate.Format(dateFormat)},
		{Name: "status", Value: RunStatusSuccess},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionsByDateRange: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryTransactionsByDateRange: iter next: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}

// ListDocuments returns all documents, newest first.
func (r *Repository) ListDocuments(ctx context.Context) ([]*DocumentRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT
			document_id,
			gcs_uri,
			document_type,
			upload_ts,
			processed_ts,
			original_filename,
			file_mime_type,
			checksum_sha256
		FROM %s.%s
		ORDER BY upload_ts DESC
	`, r.dataset, documentsTable))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListDocuments: query read: %w", err)
	}

	var rows []*DocumentRow
	for {
		var row DocumentRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListDocuments: iter next: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}

func (r *Repository) runAndWait(ctx context.Context, q *bigquery.Query) error {
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
