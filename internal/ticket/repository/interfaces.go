package repository

import (
	"time"

	ticketdomain "ticketdesk-backend/internal/ticket/domain"
)

// TicketQuery filters ticket listings.
type TicketQuery struct {
	AwaitingOnly bool
	UnreadOnly   bool
	Status       ticketdomain.TicketStatus
	Category     ticketdomain.TicketCategory
	Limit        int
	Offset       int
}

// TabCounts backs the UI tab badges.
type TabCounts struct {
	All       int64 `json:"all"`
	Awaiting  int64 `json:"awaiting"`
	Unread    int64 `json:"unread"`
	Overdue   int64 `json:"overdue"`
	Escalated int64 `json:"escalated"`
}

// TicketRepository defines keyed access to tickets.
type TicketRepository interface {
	// Get returns a ticket by thread ID, nil when absent.
	Get(threadID string) (*ticketdomain.Ticket, error)
	// Upsert inserts or updates the ticket keyed by thread ID.
	Upsert(ticket *ticketdomain.Ticket) error
	// List returns tickets matching the query, newest message first.
	List(q TicketQuery) ([]*ticketdomain.Ticket, int64, error)
	// Counts returns the tab badge counters.
	Counts(now time.Time) (*TabCounts, error)
	// FindDueReminders returns actionable tickets past the reminder cooldown.
	FindDueReminders(now time.Time, cooldown time.Duration, limit int) ([]*ticketdomain.Ticket, error)
	// FindOverdue returns unescalated tickets whose due date has passed.
	FindOverdue(now time.Time) ([]*ticketdomain.Ticket, error)
	// DeleteAll removes every ticket (administrative clear).
	DeleteAll() error
}

// SyncStateRepository persists watermarks, last write wins.
type SyncStateRepository interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// BlacklistRepository manages the excluded-sender set.
type BlacklistRepository interface {
	IsBlacklisted(email string) (bool, error)
	List() ([]*ticketdomain.BlacklistedSender, error)
	Add(email string) (*ticketdomain.BlacklistedSender, error)
	Remove(email string) error
}
