package repository

import (
	"time"

	"gorm.io/gorm"

	ticketdomain "ticketdesk-backend/internal/ticket/domain"
)

// ticketRepository implements TicketRepository using GORM
type ticketRepository struct {
	db *gorm.DB
}

// NewTicketRepository creates a new GORM-backed TicketRepository.
func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Get(threadID string) (*ticketdomain.Ticket, error) {
	var ticket ticketdomain.Ticket
	err := r.db.Where("thread_id = ?", threadID).First(&ticket).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) Upsert(ticket *ticketdomain.Ticket) error {
	now := time.Now().UTC()
	ticket.UpdatedAt = now

	var existing ticketdomain.Ticket
	err := r.db.Where("thread_id = ?", ticket.ThreadID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		if ticket.CreatedAt.IsZero() {
			ticket.CreatedAt = now
		}
		return r.db.Create(ticket).Error
	} else if err != nil {
		return err
	}

	ticket.CreatedAt = existing.CreatedAt
	return r.db.Save(ticket).Error
}

func (r *ticketRepository) List(q TicketQuery) ([]*ticketdomain.Ticket, int64, error) {
	var tickets []*ticketdomain.Ticket
	var total int64

	query := r.db.Model(&ticketdomain.Ticket{})
	if q.AwaitingOnly {
		query = query.Where("is_not_replied = ?", true)
	}
	if q.UnreadOnly {
		query = query.Where("is_unread = ?", true)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.Category != "" {
		query = query.Where("category = ?", q.Category)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	err := query.Order("last_message_at DESC NULLS LAST").
		Limit(limit).Offset(q.Offset).Find(&tickets).Error
	return tickets, total, err
}

func (r *ticketRepository) Counts(now time.Time) (*TabCounts, error) {
	counts := &TabCounts{}
	model := func() *gorm.DB { return r.db.Model(&ticketdomain.Ticket{}) }

	if err := model().Count(&counts.All).Error; err != nil {
		return nil, err
	}
	if err := model().Where("is_not_replied = ?", true).Count(&counts.Awaiting).Error; err != nil {
		return nil, err
	}
	if err := model().Where("is_unread = ?", true).Count(&counts.Unread).Error; err != nil {
		return nil, err
	}
	if err := model().Where("due_at IS NOT NULL AND due_at < ? AND is_not_replied = ?", now, true).Count(&counts.Overdue).Error; err != nil {
		return nil, err
	}
	if err := model().Where("escalation_level > 0").Count(&counts.Escalated).Error; err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *ticketRepository) FindDueReminders(now time.Time, cooldown time.Duration, limit int) ([]*ticketdomain.Ticket, error) {
	cutoff := now.Add(-cooldown)
	var tickets []*ticketdomain.Ticket
	err := r.db.
		Where("status IN ?", []ticketdomain.TicketStatus{ticketdomain.StatusPending, ticketdomain.StatusInProgress}).
		Where("is_not_replied = ? OR is_unread = ?", true, true).
		Where("last_reminded_at IS NULL OR last_reminded_at < ?", cutoff).
		Order("last_message_at ASC NULLS LAST").
		Limit(limit).
		Find(&tickets).Error
	return tickets, err
}

func (r *ticketRepository) FindOverdue(now time.Time) ([]*ticketdomain.Ticket, error) {
	var tickets []*ticketdomain.Ticket
	err := r.db.
		Where("due_at IS NOT NULL AND due_at < ?", now).
		Where("escalation_level = 0").
		Where("is_not_replied = ?", true).
		Find(&tickets).Error
	return tickets, err
}

func (r *ticketRepository) DeleteAll() error {
	return r.db.Where("1 = 1").Delete(&ticketdomain.Ticket{}).Error
}
