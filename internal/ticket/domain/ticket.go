package domain

import "time"

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	StatusPending       TicketStatus = "PENDING"
	StatusInProgress    TicketStatus = "IN_PROGRESS"
	StatusResponded     TicketStatus = "RESPONDED"
	StatusNoReplyNeeded TicketStatus = "NO_REPLY_NEEDED"
)

// Priority drives the due-date offset.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// DueOffset returns how long after the last inbound message a ticket of this
// priority is due. Unknown priorities fall back to medium.
func (p Priority) DueOffset() time.Duration {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 3 * 24 * time.Hour
	default:
		return 2 * 24 * time.Hour
	}
}

// TicketCategory is the coarse routing category of a ticket.
type TicketCategory string

const (
	CategoryMaintenance TicketCategory = "MAINTENANCE"
	CategoryRentArrears TicketCategory = "RENT_ARREARS"
	CategoryLeasing     TicketCategory = "LEASING"
	CategoryCompliance  TicketCategory = "COMPLIANCE"
	CategorySales       TicketCategory = "SALES"
	CategoryGeneral     TicketCategory = "GENERAL"
)

// Ticket is one row per mailbox thread. The thread ID is the primary key, so
// sync can only ever upsert, never duplicate.
type Ticket struct {
	ThreadID      string `json:"thread_id" gorm:"primaryKey"`
	LastMessageID string `json:"last_message_id"`

	Subject string `json:"subject"`
	Snippet string `json:"snippet" gorm:"type:text"`

	FromName  string `json:"from_name"`
	FromEmail string `json:"from_email" gorm:"index"`

	LastMessageAt *time.Time `json:"last_message_at" gorm:"index"`
	LastFromMe    bool       `json:"last_from_me" gorm:"default:false"`

	IsUnread     bool `json:"is_unread" gorm:"default:false;index"`
	IsNotReplied bool `json:"is_not_replied" gorm:"default:false;index"`

	Priority Priority   `json:"priority" gorm:"default:medium"`
	DueAt    *time.Time `json:"due_at" gorm:"index"`

	Status   TicketStatus   `json:"status" gorm:"default:PENDING;index"`
	Category TicketCategory `json:"category" gorm:"default:GENERAL;index"`

	EscalationLevel int        `json:"escalation_level" gorm:"default:0"`
	EscalatedAt     *time.Time `json:"escalated_at"`

	// AI triage metadata, populated on demand. AISourceHash invalidates the
	// cache when subject/snippet/body change.
	AICategory     string     `json:"ai_category,omitempty" gorm:"index"`
	AIUrgency      int        `json:"ai_urgency,omitempty"`
	AIConfidence   int        `json:"ai_confidence,omitempty"`
	AIReasons      string     `json:"ai_reasons,omitempty" gorm:"type:text"`
	AISummary      string     `json:"ai_summary,omitempty" gorm:"type:text"`
	AISourceHash   string     `json:"-" gorm:"index"`
	AILastScoredAt *time.Time `json:"ai_last_scored_at,omitempty"`

	AIDraftSubject   string     `json:"ai_draft_subject,omitempty"`
	AIDraftBody      string     `json:"ai_draft_body,omitempty" gorm:"type:text"`
	AIDraftUpdatedAt *time.Time `json:"ai_draft_updated_at,omitempty"`

	ReminderCount  int        `json:"reminder_count" gorm:"default:0"`
	LastRemindedAt *time.Time `json:"last_reminded_at"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`
}

// RecomputeDueAt derives the due timestamp from the last message time and the
// priority offset. Must be called whenever either input changes.
func (t *Ticket) RecomputeDueAt() {
	if t.LastMessageAt == nil {
		t.DueAt = nil
		return
	}
	due := t.LastMessageAt.Add(t.Priority.DueOffset())
	t.DueAt = &due
}
