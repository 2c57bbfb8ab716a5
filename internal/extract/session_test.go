package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeExtractor scripts responses per request and records every label it
// was called with.
type fakeExtractor struct {
	mu      sync.Mutex
	labels  []string
	respond func(label, content string) (string, error)
}

func (f *fakeExtractor) ExtractCSV(_ context.Context, label, content string) (string, error) {
	f.mu.Lock()
	f.labels = append(f.labels, label)
	f.mu.Unlock()
	return f.respond(label, content)
}

func (f *fakeExtractor) ExtractDocumentCSV(_ context.Context, mimeType string, _ []byte) (string, error) {
	f.mu.Lock()
	f.labels = append(f.labels, mimeType)
	f.mu.Unlock()
	return f.respond(mimeType, "")
}

// eventRecorder captures the published event stream.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) Publish(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// terminalEvents returns the complete/error events in the stream.
func (r *eventRecorder) terminalEvents() []Event {
	var out []Event
	for _, e := range r.events {
		if e.Type == EventComplete || e.Type == EventError {
			out = append(out, e)
		}
	}
	return out
}

func assertSingleTerminal(t *testing.T, rec *eventRecorder, want EventType) Event {
	t.Helper()
	terms := rec.terminalEvents()
	if len(terms) != 1 {
		t.Fatalf("got %d terminal events, want exactly 1: %+v", len(terms), terms)
	}
	if terms[0].Type != want {
		t.Fatalf("terminal event type = %q, want %q", terms[0].Type, want)
	}
	if rec.events[len(rec.events)-1].Type != want {
		t.Fatalf("terminal event is not last in stream")
	}
	return terms[0]
}

func TestSessionRun_SingleRequest(t *testing.T) {
	ext := &fakeExtractor{
		respond: func(_, _ string) (string, error) {
			return "```csv\n2025-01-15,Coffee,-4.50\n2025-01-16,Salary,3000.00\n```", nil
		},
	}
	rec := &eventRecorder{}
	sess := NewSession(ext, zerolog.Nop())

	csvText, rowCount, err := sess.Run(context.Background(), "jan.csv", "line one\nline two", rec)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rowCount != 2 {
		t.Errorf("rowCount = %d, want 2", rowCount)
	}
	if !strings.HasPrefix(csvText, "date,description,amount\n") {
		t.Errorf("csv missing canonical header: %q", csvText)
	}

	if len(ext.labels) != 1 || ext.labels[0] != "Bank statement: jan.csv" {
		t.Errorf("labels = %v, want single plain-text label", ext.labels)
	}
	if rec.events[0].Type != EventProgress || rec.events[0].Stage != "analyzing" {
		t.Errorf("first event = %+v, want analyzing progress", rec.events[0])
	}

	term := assertSingleTerminal(t, rec, EventComplete)
	if term.CSVText != csvText || term.RowCount != rowCount {
		t.Errorf("complete event payload %+v does not match return values", term)
	}
}

func TestSessionRun_SingleRequestExtractorError(t *testing.T) {
	ext := &fakeExtractor{
		respond: func(_, _ string) (string, error) {
			return "", errors.New("quota exceeded")
		},
	}
	rec := &eventRecorder{}
	sess := NewSession(ext, zerolog.Nop())

	if _, _, err := sess.Run(context.Background(), "jan.csv", "line", rec); err == nil {
		t.Fatal("Run() expected error")
	}
	assertSingleTerminal(t, rec, EventError)
}

func TestSessionRun_ChunkedAssemblyOrder(t *testing.T) {
	content := strings.Join(statementLines(500), "\n") // 485 data lines, 3 chunks

	ext := &fakeExtractor{
		respond: func(label, _ string) (string, error) {
			var chunkNum, total int
			if _, err := fmt.Sscanf(label, "Bank statement: big.csv (chunk %d/%d)", &chunkNum, &total); err != nil {
				return "", fmt.Errorf("unexpected label %q", label)
			}
			// Finish later chunks first to prove slot assembly, not
			// completion order, decides the output.
			time.Sleep(time.Duration(total-chunkNum) * 10 * time.Millisecond)
			return fmt.Sprintf("date,description,amount\n2025-01-0%d,Chunk %d,1.00", chunkNum, chunkNum), nil
		},
	}
	rec := &eventRecorder{}
	sess := NewSession(ext, zerolog.Nop())

	csvText, rowCount, err := sess.Run(context.Background(), "big.csv", content, rec)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rowCount != 3 {
		t.Errorf("rowCount = %d, want 3", rowCount)
	}

	want := strings.Join([]string{
		"date,description,amount",
		"2025-01-01,Chunk 1,1.00",
		"2025-01-02,Chunk 2,1.00",
		"2025-01-03,Chunk 3,1.00",
	}, "\n")
	if csvText != want {
		t.Errorf("assembled csv:\n%s\nwant:\n%s", csvText, want)
	}

	if rec.events[0].Stage != "chunking" || rec.events[0].TotalChunks != 3 {
		t.Errorf("first event = %+v, want chunking with 3 total chunks", rec.events[0])
	}
	term := assertSingleTerminal(t, rec, EventComplete)
	if term.RowCount != 3 {
		t.Errorf("complete event rowCount = %d, want 3", term.RowCount)
	}

	// Repeated per-chunk headers must not survive assembly.
	if strings.Count(strings.ToLower(csvText), "date,description,amount") != 1 {
		t.Errorf("duplicate headers in assembled csv: %q", csvText)
	}
}

func TestSessionRun_ChunkedProgressPercent(t *testing.T) {
	content := strings.Join(statementLines(1015), "\n") // 1000 data lines, 5 chunks

	ext := &fakeExtractor{
		respond: func(_, _ string) (string, error) {
			return "2025-01-01,Row,1.00", nil
		},
	}
	rec := &eventRecorder{}
	sess := NewSession(ext, zerolog.Nop())

	if _, _, err := sess.Run(context.Background(), "big.csv", content, rec); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var percents []int
	for _, e := range rec.events {
		if e.Type == EventProgress && e.Stage == "extracting" {
			percents = append(percents, e.Percent)
		}
	}
	// Batches of 3 over 5 chunks complete at 3 then 5.
	want := []int{58, 90}
	if len(percents) != len(want) {
		t.Fatalf("extracting progress events = %v, want %v", percents, want)
	}
	for i := range want {
		if percents[i] != want[i] {
			t.Errorf("percent %d = %d, want %d", i, percents[i], want[i])
		}
	}
}

func TestSessionRun_FailedChunkTolerated(t *testing.T) {
	content := strings.Join(statementLines(500), "\n")

	ext := &fakeExtractor{
		respond: func(label, _ string) (string, error) {
			if strings.Contains(label, "chunk 2/") {
				return "", errors.New("transient failure")
			}
			var chunkNum, total int
			fmt.Sscanf(label, "Bank statement: big.csv (chunk %d/%d)", &chunkNum, &total)
			return fmt.Sprintf("2025-01-0%d,Chunk %d,1.00", chunkNum, chunkNum), nil
		},
	}
	rec := &eventRecorder{}
	sess := NewSession(ext, zerolog.Nop())

	csvText, rowCount, err := sess.Run(context.Background(), "big.csv", content, rec)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rowCount != 2 {
		t.Errorf("rowCount = %d, want 2", rowCount)
	}
	if strings.Contains(csvText, "Chunk 2") {
		t.Errorf("failed chunk leaked into output: %q", csvText)
	}
	assertSingleTerminal(t, rec, EventComplete)
}

func TestSessionRun_AllChunksFail(t *testing.T) {
	content := strings.Join(statementLines(500), "\n")

	ext := &fakeExtractor{
		respond: func(_, _ string) (string, error) {
			return "", errors.New("down")
		},
	}
	rec := &eventRecorder{}
	sess := NewSession(ext, zerolog.Nop())

	_, _, err := sess.Run(context.Background(), "big.csv", content, rec)
	if !errors.Is(err, ErrNoTransactions) {
		t.Fatalf("Run() error = %v, want ErrNoTransactions", err)
	}
	assertSingleTerminal(t, rec, EventError)
}

func TestSessionRunDocument(t *testing.T) {
	ext := &fakeExtractor{
		respond: func(_, _ string) (string, error) {
			return "date,description,amount\n2025-01-15,Coffee,-4.50", nil
		},
	}
	rec := &eventRecorder{}
	sess := NewSession(ext, zerolog.Nop())

	_, rowCount, err := sess.RunDocument(context.Background(), "application/pdf", []byte("%PDF-1.4"), rec)
	if err != nil {
		t.Fatalf("RunDocument() error = %v", err)
	}
	if rowCount != 1 {
		t.Errorf("rowCount = %d, want 1", rowCount)
	}
	if len(ext.labels) != 1 || ext.labels[0] != "application/pdf" {
		t.Errorf("labels = %v, want document mime type", ext.labels)
	}
	assertSingleTerminal(t, rec, EventComplete)
}
