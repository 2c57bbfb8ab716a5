package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/finbrief/statement-ingest/internal/api/middleware"
	infraBQ "github.com/finbrief/statement-ingest/internal/infra/bigquery"
)

// TransactionsHandler handles ledger query endpoints.
type TransactionsHandler struct {
	repo infraBQ.LedgerRepository
	log  zerolog.Logger
}

// NewTransactionsHandler creates a transactions handler.
func NewTransactionsHandler(repo infraBQ.LedgerRepository, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{repo: repo, log: log}
}

// ledgerRowView is the JSON shape of one persisted transaction.
type ledgerRowView struct {
	TransactionID string  `json:"transaction_id"`
	DocumentID    string  `json:"document_id"`
	ParsingRunID  string  `json:"parsing_run_id"`
	Date          string  `json:"date"`
	Amount        string  `json:"amount"`
	Currency      string  `json:"currency"`
	Direction     string  `json:"direction"`
	Description   string  `json:"description"`
	Category      *string `json:"category"`
}

// List handles GET /api/transactions?start_date=&end_date=. The range
// defaults to the trailing year.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	startDate := time.Now().AddDate(-1, 0, 0)
	endDate := time.Now()

	if s := query.Get("start_date"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
			return
		}
		startDate = parsed
	}
	if s := query.Get("end_date"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
			return
		}
		endDate = parsed
	}

	rows, err := h.repo.QueryTransactionsByDateRange(ctx, startDate, endDate)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query transactions")
		return
	}

	views := make([]ledgerRowView, 0, len(rows))
	for _, row := range rows {
		view := ledgerRowView{
			TransactionID: row.TransactionID,
			DocumentID:    row.DocumentID,
			ParsingRunID:  row.ParsingRunID,
			Date:          row.TransactionDate.String(),
			Currency:      row.Currency,
			Direction:     row.Direction,
			Description:   row.Description,
		}
		if row.Amount != nil {
			view.Amount = row.Amount.FloatString(2)
		}
		if row.Category.Valid {
			category := row.Category.StringVal
			view.Category = &category
		}
		views = append(views, view)
	}

	middleware.WriteJSON(w, http.StatusOK, views)
}
