package extract

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// ErrNoTransactions is returned when a session completes without yielding
// any transaction rows.
var ErrNoTransactions = errors.New("no transactions extracted")

// Session runs remote extraction over a statement, chunking large inputs
// and reporting progress through a Sink. A Session is stateless and safe
// for concurrent use.
type Session struct {
	extractor Extractor
	log       zerolog.Logger
}

// NewSession creates a Session backed by the given extractor.
func NewSession(extractor Extractor, log zerolog.Logger) *Session {
	return &Session{extractor: extractor, log: log}
}

// Run extracts transactions from statement text. Small inputs go out as a
// single request; larger ones are split into chunks processed in bounded
// concurrent batches. The sink receives zero or more progress events and
// then exactly one complete or error event. On success the returned CSV
// always starts with the canonical header.
func (s *Session) Run(ctx context.Context, fileName, content string, sink Sink) (string, int, error) {
	if sink == nil {
		sink = Discard
	}

	lines := nonEmptyLines(content)
	if len(lines) <= singleRequestMaxLines {
		return s.runSingle(ctx, fileName, content, sink)
	}
	return s.runChunked(ctx, fileName, lines, sink)
}

// RunDocument extracts transactions from a binary document (PDF). There is
// no chunked path for binaries; the document goes out whole.
func (s *Session) RunDocument(ctx context.Context, mimeType string, data []byte, sink Sink) (string, int, error) {
	if sink == nil {
		sink = Discard
	}
	sink.Publish(Event{
		Type:    EventProgress,
		Stage:   "analyzing",
		Message: "Analyzing document...",
		Percent: 20,
	})

	raw, err := s.extractor.ExtractDocumentCSV(ctx, mimeType, data)
	if err != nil {
		sink.Publish(Event{Type: EventError, Message: "Extraction failed."})
		return "", 0, fmt.Errorf("Session.RunDocument: extract document: %w", err)
	}

	return s.finish(raw, sink)
}

func (s *Session) runSingle(ctx context.Context, fileName, content string, sink Sink) (string, int, error) {
	sink.Publish(Event{
		Type:    EventProgress,
		Stage:   "analyzing",
		Message: "Analyzing transactions...",
		Percent: 20,
	})

	raw, err := s.extractor.ExtractCSV(ctx, textLabel(fileName), content)
	if err != nil {
		sink.Publish(Event{Type: EventError, Message: "Extraction failed."})
		return "", 0, fmt.Errorf("Session.Run: extract: %w", err)
	}

	return s.finish(raw, sink)
}

func (s *Session) runChunked(ctx context.Context, fileName string, lines []string, sink Sink) (string, int, error) {
	chunks := buildChunks(lines)
	total := len(chunks)

	sink.Publish(Event{
		Type:        EventProgress,
		Stage:       "chunking",
		Message:     fmt.Sprintf("Splitting %d rows into %d chunks...", len(lines), total),
		Percent:     5,
		TotalChunks: total,
	})

	// Results are written into submission-order slots so the assembled
	// output is deterministic regardless of completion order.
	results := make([][]string, total)
	completed := 0
	found := 0

	for start := 0; start < total; start += batchSize {
		end := start + batchSize
		if end > total {
			end = total
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				rows, err := s.extractChunk(ctx, fileName, idx+1, total, chunks[idx])
				if err != nil {
					// A failed chunk contributes zero rows; the session
					// carries on with whatever the other chunks yield.
					s.log.Warn().Err(err).
						Int("chunk", idx+1).
						Int("total_chunks", total).
						Msg("chunk extraction failed")
					return
				}
				results[idx] = rows
			}(i)
		}
		wg.Wait()

		completed = end
		for i := start; i < end; i++ {
			found += len(results[i])
		}
		sink.Publish(Event{
			Type:              EventProgress,
			Stage:             "extracting",
			Message:           fmt.Sprintf("Processed %d of %d chunks...", completed, total),
			Percent:           chunkPercent(completed, total),
			CompletedChunks:   completed,
			TotalChunks:       total,
			TransactionsFound: found,
		})
	}

	assembled := []string{canonicalHeader}
	for _, rows := range results {
		assembled = append(assembled, rows...)
	}
	if len(assembled) <= 1 {
		sink.Publish(Event{Type: EventError, Message: "Could not extract transactions."})
		return "", 0, fmt.Errorf("Session.Run: %w", ErrNoTransactions)
	}

	csvText := strings.Join(assembled, "\n")
	rowCount := len(assembled) - 1
	sink.Publish(Event{
		Type:     EventComplete,
		Message:  fmt.Sprintf("Extracted %d transactions", rowCount),
		CSVText:  csvText,
		RowCount: rowCount,
	})
	return csvText, rowCount, nil
}

// extractChunk runs one chunk request and returns its data rows with any
// header lines removed, so chunks concatenate cleanly.
func (s *Session) extractChunk(ctx context.Context, fileName string, chunkNum, totalChunks int, content string) ([]string, error) {
	raw, err := s.extractor.ExtractCSV(ctx, chunkLabel(fileName, chunkNum, totalChunks), content)
	if err != nil {
		return nil, err
	}

	var rows []string
	for _, line := range strings.Split(CleanFences(raw), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(trimmed), "date,") {
			continue
		}
		rows = append(rows, trimmed)
	}
	return rows, nil
}

// finish validates a whole-input response and publishes the terminal event.
func (s *Session) finish(raw string, sink Sink) (string, int, error) {
	csvText, err := ParseExtractorOutput(raw)
	if err != nil {
		sink.Publish(Event{Type: EventError, Message: "Could not extract transactions."})
		return "", 0, fmt.Errorf("Session: %w", ErrNoTransactions)
	}

	rowCount := CountDataRows(csvText)
	if rowCount == 0 {
		sink.Publish(Event{Type: EventError, Message: "Could not extract transactions."})
		return "", 0, fmt.Errorf("Session: %w", ErrNoTransactions)
	}

	sink.Publish(Event{
		Type:     EventComplete,
		Message:  fmt.Sprintf("Extracted %d transactions", rowCount),
		CSVText:  csvText,
		RowCount: rowCount,
	})
	return csvText, rowCount, nil
}

// chunkPercent maps chunk completion onto the 10..90 band of the progress
// scale, leaving room below for setup and above for assembly.
func chunkPercent(completed, total int) int {
	return int(math.Round(10 + float64(completed)/float64(total)*80))
}
