package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/finbrief/statement-ingest/internal/extract"
)

// sseSink streams extraction progress events as server-sent events. Each
// event is one JSON object framed as "data: {...}\n\n".
type sseSink struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

// newSSESink prepares the response for streaming. It returns false when
// the underlying writer cannot flush incrementally.
func newSSESink(w http.ResponseWriter) (*sseSink, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	return &sseSink{w: w, flusher: flusher}, true
}

// Publish implements extract.Sink.
func (s *sseSink) Publish(e extract.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "data: %s\n\n", payload)
	s.flusher.Flush()
}
