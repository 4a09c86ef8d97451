package store

import "time"

// Message is a single inbound message persisted by the store.
// ReceivedAt is assigned by the store on insert and only drives ordering.
type Message struct {
	MessageID  string    `json:"message_id"`
	Sender     string    `json:"from"`
	Recipient  string    `json:"to"`
	Timestamp  string    `json:"ts"`
	Text       *string   `json:"text"`
	ReceivedAt time.Time `json:"-"`
}

// InsertResult is the outcome of a successful Insert.
type InsertResult int

const (
	// Inserted means a new row was created.
	Inserted InsertResult = iota + 1
	// Duplicate means a row with the same message id already existed and
	// was left untouched.
	Duplicate
)

// Stored reports whether the insert created a new row.
func (r InsertResult) Stored() bool {
	return r == Inserted
}

func (r InsertResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case Duplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Filter selects a page of messages. Empty Sender or Recipient impose no
// constraint; both are exact matches.
type Filter struct {
	Limit     int
	Offset    int
	Sender    string
	Recipient string
}

// Page is one page of messages, newest first. Total counts every row that
// matches the filter, ignoring Limit and Offset.
type Page struct {
	Total int
	Items []Message
}
