package domain

import (
	"strings"
	"time"
)

// Gmail system labels the sync engine cares about.
const (
	LabelInbox  = "INBOX"
	LabelSent   = "SENT"
	LabelUnread = "UNREAD"
)

// ThreadMessage is one message of a conversation, reduced to the typed shape
// the reconciler works with. The gateway is the only place that ever sees the
// raw provider payload.
type ThreadMessage struct {
	ID string

	// Headers keyed by lowercased header name (from, subject, date, ...).
	Headers map[string]string

	Labels []string

	// InternalDate is the provider-assigned receive time (ms-epoch on the
	// wire), monotonically increasing per message within a mailbox.
	InternalDate time.Time

	Snippet string
}

// Header returns a header value by name, case-insensitively.
func (m *ThreadMessage) Header(name string) string {
	return m.Headers[strings.ToLower(name)]
}

// HasLabel reports whether the message carries the given label.
func (m *ThreadMessage) HasLabel(label string) bool {
	for _, l := range m.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Thread is a conversation as returned by the gateway. Messages are in the
// provider's order, chronologically oldest first.
type Thread struct {
	ID       string
	Messages []ThreadMessage
}

// ThreadBody is a fully decoded message used by the thread-detail surface and
// as drafting context. Not fetched during sync.
type ThreadBody struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Date    string `json:"date"`
	Subject string `json:"subject"`
	Snippet string `json:"snippet"`
	Body    string `json:"body"`
}

// ThreadDetail is the full-format view of a thread.
type ThreadDetail struct {
	ThreadID string       `json:"thread_id"`
	WebURL   string       `json:"web_url"`
	Messages []ThreadBody `json:"messages"`
}
