package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/finbrief/statement-ingest/internal/extract"
	"github.com/finbrief/statement-ingest/internal/gcs"
	infraBQ "github.com/finbrief/statement-ingest/internal/infra/bigquery"
	"github.com/finbrief/statement-ingest/internal/ledger"
	"github.com/finbrief/statement-ingest/internal/tabular"
)

// ErrUnsupportedFile is returned for files outside the supported set
// (csv, txt, xlsx, xls, pdf). No parse is attempted.
var ErrUnsupportedFile = errors.New("unsupported file type")

const defaultExtractTimeout = 10 * time.Minute

// ParseResult is the outcome of parsing one statement file.
type ParseResult struct {
	// ParserType records which strategy produced the rows.
	ParserType string

	// CSVText is the canonical date,description,amount CSV.
	CSVText string

	// Transactions are the normalized rows built from CSVText.
	Transactions []ledger.NormalizedTransaction
}

// Service orchestrates statement ingestion: local tabular parsing with
// remote extraction fallback, normalization, and persistence.
type Service struct {
	storage         gcs.Storage
	repo            infraBQ.LedgerRepository
	session         *extract.Session
	log             zerolog.Logger
	extractTimeout  time.Duration
	defaultCurrency string
}

// Params collects Service dependencies.
type Params struct {
	Storage gcs.Storage
	Repo    infraBQ.LedgerRepository
	Session *extract.Session
	Log     zerolog.Logger

	// ExtractTimeout caps one remote extraction session; 0 means the
	// default of 10 minutes.
	ExtractTimeout time.Duration

	// DefaultCurrency is applied when the source has no currency column.
	DefaultCurrency string
}

// NewService creates a Service.
func NewService(p Params) *Service {
	if p.ExtractTimeout <= 0 {
		p.ExtractTimeout = defaultExtractTimeout
	}
	if p.DefaultCurrency == "" {
		p.DefaultCurrency = ledger.DefaultCurrency
	}
	return &Service{
		storage:         p.Storage,
		repo:            p.Repo,
		session:         p.Session,
		log:             p.Log,
		extractTimeout:  p.ExtractTimeout,
		defaultCurrency: p.DefaultCurrency,
	}
}

// ParseFile parses one statement file into normalized transactions without
// persisting anything. Tabular files are tried locally first; remote
// extraction is the fallback. PDFs go straight to remote extraction. The
// sink receives progress events; pass nil when not streaming.
func (s *Service) ParseFile(ctx context.Context, fileName string, data []byte, sink extract.Sink) (*ParseResult, error) {
	if sink == nil {
		sink = extract.Discard
	}

	fileType, ok := tabular.DetectFileType(fileName)
	if !ok {
		return nil, fmt.Errorf("ParseFile: %w: %s", ErrUnsupportedFile, fileName)
	}

	csvText, parserType, err := s.extractCSV(ctx, fileType, fileName, data, sink)
	if err != nil {
		return nil, err
	}

	txs, err := ledger.BuildFromCSV(csvText, s.defaultCurrency)
	if err != nil {
		return nil, fmt.Errorf("ParseFile: build ledger: %w", err)
	}

	return &ParseResult{
		ParserType:   parserType,
		CSVText:      csvText,
		Transactions: txs,
	}, nil
}

// extractCSV produces canonical CSV via the cheapest strategy that works.
func (s *Service) extractCSV(ctx context.Context, fileType tabular.FileType, fileName string, data []byte, sink extract.Sink) (string, string, error) {
	switch fileType {
	case tabular.FilePDF:
		csvText, _, err := s.runRemoteDocument(ctx, data, sink)
		if err != nil {
			return "", "", fmt.Errorf("extractCSV: %w", err)
		}
		return csvText, infraBQ.ParserGeminiExtract, nil

	case tabular.FileXLSX, tabular.FileXLS:
		matrix, err := s.readSpreadsheet(fileType, data)
		if err != nil {
			return "", "", fmt.Errorf("extractCSV: read spreadsheet: %w", err)
		}
		if csvText, ok := s.tryLocal(matrix, fileName, sink); ok {
			return csvText, infraBQ.ParserLocalTabular, nil
		}
		// Remote fallback works on text, so the sheet is flattened to CSV.
		content := tabular.MatrixCSV(matrix)
		csvText, _, err := s.runRemoteText(ctx, fileName, content, sink)
		if err != nil {
			return "", "", fmt.Errorf("extractCSV: %w", err)
		}
		return csvText, infraBQ.ParserGeminiExtract, nil

	case tabular.FileCSV:
		if matrix, err := tabular.ReadCSV(bytes.NewReader(data)); err == nil {
			if csvText, ok := s.tryLocal(matrix, fileName, sink); ok {
				return csvText, infraBQ.ParserLocalTabular, nil
			}
		}
		csvText, _, err := s.runRemoteText(ctx, fileName, string(data), sink)
		if err != nil {
			return "", "", fmt.Errorf("extractCSV: %w", err)
		}
		return csvText, infraBQ.ParserGeminiExtract, nil

	default:
		return "", "", fmt.Errorf("extractCSV: %w: %s", ErrUnsupportedFile, fileName)
	}
}

// tryLocal attempts the local tabular parse and, on success, publishes the
// terminal complete event on behalf of the whole session.
func (s *Service) tryLocal(matrix [][]string, fileName string, sink extract.Sink) (string, bool) {
	res := tabular.ParseLocal(matrix)
	if !res.OK {
		s.log.Debug().
			Str("file", fileName).
			Str("reason", res.Reason).
			Msg("local parse unavailable, falling back to remote extraction")
		return "", false
	}

	s.log.Info().
		Str("file", fileName).
		Int("rows", res.RowCount).
		Msg("parsed statement locally")

	sink.Publish(extract.Event{
		Type:     extract.EventComplete,
		Message:  fmt.Sprintf("Extracted %d transactions", res.RowCount),
		CSVText:  res.CSVText,
		RowCount: res.RowCount,
	})
	return res.CSVText, true
}

func (s *Service) readSpreadsheet(fileType tabular.FileType, data []byte) ([][]string, error) {
	if fileType == tabular.FileXLSX {
		return tabular.ReadXLSX(bytes.NewReader(data))
	}
	return tabular.ReadXLS(data)
}

func (s *Service) runRemoteText(ctx context.Context, fileName, content string, sink extract.Sink) (string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.extractTimeout)
	defer cancel()
	return s.session.Run(ctx, fileName, content, sink)
}

func (s *Service) runRemoteDocument(ctx context.Context, data []byte, sink extract.Sink) (string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.extractTimeout)
	defer cancel()
	return s.session.RunDocument(ctx, "application/pdf", data, sink)
}

// RecordUpload stores the raw file in object storage and records a
// document row for it. Returns the document ID and storage URI.
func (s *Service) RecordUpload(ctx context.Context, fileName, mimeType string, data []byte) (string, string, error) {
	documentID := uuid.NewString()
	objectName := fmt.Sprintf("statements/%s/%s", documentID, fileName)

	uri, err := s.storage.UploadBytes(ctx, objectName, data)
	if err != nil {
		return "", "", fmt.Errorf("RecordUpload: upload: %w", err)
	}

	checksum := sha256.Sum256(data)
	row := &infraBQ.DocumentRow{
		DocumentID:       documentID,
		GCSURI:           uri,
		DocumentType:     "BANK_STATEMENT",
		UploadTS:         time.Now().UTC(),
		OriginalFilename: fileName,
		FileMimeType:     mimeType,
		ChecksumSHA256:   hex.EncodeToString(checksum[:]),
	}
	if err := s.repo.InsertDocument(ctx, row); err != nil {
		return "", "", fmt.Errorf("RecordUpload: insert document: %w", err)
	}

	return documentID, uri, nil
}

// ProcessStatement runs the full persisted pipeline for an uploaded
// document: fetch from storage, parse, and insert the transactions under a
// parsing run. Returns the number of transactions inserted.
func (s *Service) ProcessStatement(ctx context.Context, documentID, gcsURI, fileName string) (int, error) {
	data, err := s.storage.Fetch(ctx, gcsURI)
	if err != nil {
		return 0, fmt.Errorf("ProcessStatement: fetch %s: %w", gcsURI, err)
	}

	result, err := s.ParseFile(ctx, fileName, data, extract.Discard)
	if err != nil {
		return 0, fmt.Errorf("ProcessStatement: %w", err)
	}

	runID, err := s.repo.StartParsingRun(ctx, documentID, result.ParserType)
	if err != nil {
		return 0, fmt.Errorf("ProcessStatement: start parsing run: %w", err)
	}

	rows, err := infraBQ.TransactionRowsFromLedger(documentID, runID, result.Transactions)
	if err != nil {
		s.repo.MarkParsingRunFailed(ctx, runID, err)
		return 0, fmt.Errorf("ProcessStatement: %w", err)
	}
	if err := s.repo.InsertTransactions(ctx, rows); err != nil {
		s.repo.MarkParsingRunFailed(ctx, runID, err)
		return 0, fmt.Errorf("ProcessStatement: insert transactions: %w", err)
	}

	if err := s.repo.MarkParsingRunSucceeded(ctx, runID, len(rows)); err != nil {
		return 0, fmt.Errorf("ProcessStatement: mark run succeeded: %w", err)
	}

	s.log.Info().
		Str("document_id", documentID).
		Str("parsing_run_id", runID).
		Str("parser_type", result.ParserType).
		Int("rows", len(rows)).
		Msg("statement ingested")

	return len(rows), nil
}
