package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/finbrief/statement-ingest/internal/ledger"
)

// Parser types recorded on parsing runs.
const (
	ParserLocalTabular  = "LOCAL_TABULAR"
	ParserGeminiExtract = "GEMINI_EXTRACT"
)

// Parsing run statuses.
const (
	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

// DocumentRow mirrors the ledger.documents table: one row per uploaded
// statement file.
type DocumentRow struct {
	DocumentID string `bigquery:"document_id"` // REQUIRED
	GCSURI     string `bigquery:"gcs_uri"`     // REQUIRED

	DocumentType string `bigquery:"document_type"` // REQUIRED, e.g. BANK_STATEMENT

	UploadTS    time.Time              `bigquery:"upload_ts"` // REQUIRED
	ProcessedTS bigquery.NullTimestamp `bigquery:"processed_ts"`

	OriginalFilename string `bigquery:"original_filename"`
	FileMimeType     string `bigquery:"file_mime_type"`

	ChecksumSHA256 string `bigquery:"checksum_sha256"`
}

// ParsingRunRow mirrors the ledger.parsing_runs table: one row per attempt
// to parse a document, recording which parser produced the result.
type ParsingRunRow struct {
	ParsingRunID string `bigquery:"parsing_run_id"` // REQUIRED
	DocumentID   string `bigquery:"document_id"`    // REQUIRED

	StartedTS  time.Time              `bigquery:"started_ts"` // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"`

	ParserType    string `bigquery:"parser_type"` // LOCAL_TABULAR or GEMINI_EXTRACT
	ParserVersion string `bigquery:"parser_version"`

	Status       string `bigquery:"status"`
	ErrorMessage string `bigquery:"error_message"`

	RowCount bigquery.NullInt64 `bigquery:"row_count"`
}

// TransactionRow mirrors the ledger.transactions table. Amount is a
// non-negative NUMERIC magnitude; direction carries the sign.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	DocumentID   string `bigquery:"document_id"`
	ParsingRunID string `bigquery:"parsing_run_id"`

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	Amount   *big.Rat `bigquery:"amount"`   // REQUIRED NUMERIC
	Currency string   `bigquery:"currency"` // REQUIRED

	Direction   string              `bigquery:"direction"` // credit or debit
	Description string              `bigquery:"description"`
	Category    bigquery.NullString `bigquery:"category"`

	StatementLineNo bigquery.NullInt64 `bigquery:"statement_line_no"`

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// TransactionRowsFromLedger converts normalized transactions into insertable
// rows, stamping them with their document and parsing run.
func TransactionRowsFromLedger(documentID, parsingRunID string, txs []ledger.NormalizedTransaction) ([]*TransactionRow, error) {
	now := time.Now().UTC()
	rows := make([]*TransactionRow, 0, len(txs))
	for i, tx := range txs {
		date, err := civil.ParseDate(tx.Date)
		if err != nil {
			return nil, fmt.Errorf("TransactionRowsFromLedger: row %d: parse date %q: %w", i+1, tx.Date, err)
		}

		row := &TransactionRow{
			TransactionID:   uuid.NewString(),
			DocumentID:      documentID,
			ParsingRunID:    parsingRunID,
			TransactionDate: date,
			Amount:          tx.Amount.Rat(),
			Currency:        tx.Currency,
			Direction:       string(tx.Type),
			Description:     tx.Description,
			StatementLineNo: bigquery.NullInt64{Int64: int64(i + 1), Valid: true},
			CreatedTS:       now,
		}
		if tx.Category != nil {
			row.Category = bigquery.NullString{StringVal: *tx.Category, Valid: true}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
