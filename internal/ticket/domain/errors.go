package domain

import "errors"

var (
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrInvalidStatus   = errors.New("invalid ticket status")
	ErrInvalidPriority = errors.New("invalid ticket priority")
	ErrEmptyReply      = errors.New("reply body is empty")
	ErrNoRecipient     = errors.New("ticket has no sender address to reply to")
)

// ValidStatus reports whether s is one of the lifecycle states.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResponded, StatusNoReplyNeeded:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}
