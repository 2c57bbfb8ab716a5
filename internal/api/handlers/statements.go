package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/finbrief/statement-ingest/internal/api/middleware"
	"github.com/finbrief/statement-ingest/internal/extract"
	infraBQ "github.com/finbrief/statement-ingest/internal/infra/bigquery"
	"github.com/finbrief/statement-ingest/internal/ingest"
	"github.com/finbrief/statement-ingest/internal/jobs"
	"github.com/finbrief/statement-ingest/internal/ledger"
	"github.com/finbrief/statement-ingest/internal/tabular"
)

// maxUploadBytes bounds statement upload size.
const maxUploadBytes = 25 << 20

// StatementService is the slice of the ingest service the handlers need.
type StatementService interface {
	ParseFile(ctx context.Context, fileName string, data []byte, sink extract.Sink) (*ingest.ParseResult, error)
	RecordUpload(ctx context.Context, fileName, mimeType string, data []byte) (string, string, error)
}

// StatementsHandler handles statement upload and parse endpoints.
type StatementsHandler struct {
	svc       StatementService
	repo      infraBQ.LedgerRepository
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewStatementsHandler creates a statements handler.
func NewStatementsHandler(svc StatementService, repo infraBQ.LedgerRepository, publisher jobs.Publisher, log zerolog.Logger) *StatementsHandler {
	return &StatementsHandler{
		svc:       svc,
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

// transactionView is the JSON shape of one normalized transaction.
type transactionView struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      string  `json:"amount"`
	Currency    string  `json:"currency"`
	Type        string  `json:"type"`
	Category    *string `json:"category"`
}

func viewsFromLedger(txs []ledger.NormalizedTransaction) []transactionView {
	views := make([]transactionView, 0, len(txs))
	for _, tx := range txs {
		views = append(views, transactionView{
			Date:        tx.Date,
			Description: tx.Description,
			Amount:      tx.Amount.StringFixed(2),
			Currency:    tx.Currency,
			Type:        string(tx.Type),
			Category:    tx.Category,
		})
	}
	return views
}

// Parse handles POST /api/statements/parse. The statement file is parsed
// synchronously without persistence; with ?stream=true progress events are
// streamed as server-sent events.
func (h *StatementsHandler) Parse(w http.ResponseWriter, r *http.Request) {
	fileName, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("stream") == "true" {
		h.parseStreaming(w, r, fileName, data)
		return
	}

	result, err := h.svc.ParseFile(r.Context(), fileName, data, nil)
	if err != nil {
		h.writeParseError(w, fileName, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"parser_type":  result.ParserType,
		"csv_text":     result.CSVText,
		"row_count":    len(result.Transactions),
		"transactions": viewsFromLedger(result.Transactions),
	})
}

// parseStreaming runs the parse with an SSE sink. Terminal events are the
// sink's responsibility except for failures that occur before any session
// starts.
func (h *StatementsHandler) parseStreaming(w http.ResponseWriter, r *http.Request, fileName string, data []byte) {
	sink, ok := newSSESink(w)
	if !ok {
		middleware.WriteError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	_, err := h.svc.ParseFile(r.Context(), fileName, data, sink)
	if err != nil {
		h.log.Error().Err(err).Str("file", fileName).Msg("Streaming parse failed")
		if errors.Is(err, ingest.ErrUnsupportedFile) {
			sink.Publish(extract.Event{
				Type:    extract.EventError,
				Message: "Unsupported file type.",
			})
		}
	}
}

// Upload handles POST /api/statements: store the file, record a document,
// and enqueue asynchronous parsing.
func (h *StatementsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	fileName, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	if _, supported := tabular.DetectFileType(fileName); !supported {
		middleware.WriteError(w, http.StatusUnsupportedMediaType, "Unsupported file type")
		return
	}

	ctx := r.Context()
	mimeType := r.Header.Get("Content-Type")

	documentID, uri, err := h.svc.RecordUpload(ctx, fileName, mimeType, data)
	if err != nil {
		h.log.Error().Err(err).Str("file", fileName).Msg("Failed to record upload")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store statement")
		return
	}

	job := &jobs.ParseStatementJob{
		DocumentID: documentID,
		GCSURI:     uri,
		FileName:   fileName,
	}
	if err := h.publisher.PublishParseStatement(ctx, job); err != nil {
		h.log.Error().Err(err).Str("document_id", documentID).Msg("Failed to enqueue parse job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue parsing")
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Str("document_id", documentID).
		Str("gcs_uri", uri).
		Msg("Statement upload accepted")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"document_id": documentID,
		"gcs_uri":     uri,
		"job_id":      job.JobID,
		"status":      string(job.Status),
	})
}

// ListDocuments handles GET /api/documents.
func (h *StatementsHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.repo.ListDocuments(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list documents")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}

// readUpload extracts the multipart "file" part, bounded by maxUploadBytes.
func (h *StatementsHandler) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart request")
		return "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "A file field is required")
		return "", nil, false
	}
	defer file.Close()

	data, err := readAll(file)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return "", nil, false
	}

	return header.Filename, data, true
}

func (h *StatementsHandler) writeParseError(w http.ResponseWriter, fileName string, err error) {
	switch {
	case errors.Is(err, ingest.ErrUnsupportedFile):
		middleware.WriteError(w, http.StatusUnsupportedMediaType, "Unsupported file type")
	case errors.Is(err, extract.ErrNoTransactions):
		middleware.WriteError(w, http.StatusUnprocessableEntity, "Could not extract transactions from this file")
	default:
		h.log.Error().Err(err).Str("file", fileName).Msg("Parse failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to parse statement")
	}
}

func readAll(f multipart.File) ([]byte, error) {
	return io.ReadAll(f)
}
