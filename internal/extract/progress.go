package extract

// EventType discriminates progress protocol events.
type EventType string

const (
	EventProgress EventType = "progress"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is one record of the extraction progress protocol. A session emits
// zero or more progress events followed by exactly one complete or error
// event.
type Event struct {
	Type    EventType `json:"type"`
	Stage   string    `json:"stage,omitempty"`
	Message string    `json:"message,omitempty"`
	Percent int       `json:"percent,omitempty"`

	CompletedChunks   int `json:"completedChunks,omitempty"`
	TotalChunks       int `json:"totalChunks,omitempty"`
	TransactionsFound int `json:"transactionsFound,omitempty"`

	CSVText  string `json:"csvText,omitempty"`
	RowCount int    `json:"rowCount,omitempty"`
}

// Sink receives progress events during an extraction session.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Publish implements Sink.
func (f SinkFunc) Publish(e Event) { f(e) }

// Discard drops all events; used when the caller did not request streaming.
var Discard Sink = SinkFunc(func(Event) {})
