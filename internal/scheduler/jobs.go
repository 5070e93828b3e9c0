package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	mailboxdomain "ticketdesk-backend/internal/mailbox/domain"
	mailboxusecase "ticketdesk-backend/internal/mailbox/usecase"
	syncusecase "ticketdesk-backend/internal/sync/usecase"
	ticketdomain "ticketdesk-backend/internal/ticket/domain"
	"ticketdesk-backend/internal/ticket/repository"
	"ticketdesk-backend/pkg/config"
)

const (
	reminderBatchLimit = 50
	jobTimeout         = 5 * time.Minute
)

// NewPollJob returns the periodic incremental sync job.
func NewPollJob(orchestrator *syncusecase.Orchestrator, cfg *config.Config) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		summary, err := orchestrator.SyncInboxThreads(ctx, syncusecase.SyncOptions{
			Incremental:     true,
			IncludeArchived: cfg.SyncIncludeArchived,
			AwaitingOnly:    true,
		})
		if err != nil {
			log.Printf("[Poll] sync failed: %v", err)
			return
		}
		if !summary.OK {
			log.Printf("[Poll] sync not run: %s", summary.Error)
			return
		}
		log.Printf("[Poll] mode=%s seen=%d upserted=%d skipped=%d hit_limit=%v",
			summary.Mode, summary.ThreadsSeen, summary.Upserted, summary.Skipped, summary.HitLimit)
	}
}

// NewReminderJob returns the digest job: it mails a summary of tickets still
// awaiting a reply, at most once per cooldown per ticket.
func NewReminderJob(
	tickets repository.TicketRepository,
	provider mailboxdomain.MailProvider,
	session *mailboxusecase.SessionSource,
	cfg *config.Config,
) func() {
	return func() {
		if cfg.ReminderToEmail == "" {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		now := time.Now().UTC()
		due, err := tickets.FindDueReminders(now, cfg.ReminderCooldown, reminderBatchLimit)
		if err != nil {
			log.Printf("[Reminders] query failed: %v", err)
			return
		}
		if len(due) == 0 {
			return
		}

		creds, err := session.Credentials()
		if err != nil {
			if !errors.Is(err, mailboxdomain.ErrMailboxNotConnected) {
				log.Printf("[Reminders] credentials unavailable: %v", err)
			}
			return
		}

		subject := fmt.Sprintf("Reminder: %d ticket(s) awaiting reply", len(due))
		body := buildDigest(due)
		if err := provider.SendMessage(ctx, creds, "", cfg.ReminderToEmail, subject, body); err != nil {
			log.Printf("[Reminders] digest send failed: %v", err)
			return
		}

		for _, t := range due {
			t.ReminderCount++
			t.LastRemindedAt = &now
			if err := tickets.Upsert(t); err != nil {
				log.Printf("[Reminders] could not record reminder for %s: %v", t.ThreadID, err)
			}
		}
		log.Printf("[Reminders] digest sent for %d ticket(s)", len(due))
	}
}

func buildDigest(due []*ticketdomain.Ticket) string {
	var b strings.Builder
	b.WriteString("The following conversations are still awaiting a reply:\n\n")
	for _, t := range due {
		b.WriteString("- ")
		b.WriteString(t.Subject)
		if t.FromEmail != "" {
			b.WriteString(" (from ")
			b.WriteString(t.FromEmail)
			b.WriteString(")")
		}
		if t.DueAt != nil {
			b.WriteString(" due ")
			b.WriteString(t.DueAt.Format("2006-01-02 15:04"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// NewEscalationJob returns the SLA job: overdue awaiting tickets are raised
// one escalation level, once.
func NewEscalationJob(tickets repository.TicketRepository) func() {
	return func() {
		now := time.Now().UTC()
		overdue, err := tickets.FindOverdue(now)
		if err != nil {
			log.Printf("[Escalation] query failed: %v", err)
			return
		}

		for _, t := range overdue {
			t.EscalationLevel = 1
			t.EscalatedAt = &now
			if err := tickets.Upsert(t); err != nil {
				log.Printf("[Escalation] could not escalate %s: %v", t.ThreadID, err)
				continue
			}
			log.Printf("[Escalation] ticket %s overdue since %s, escalated", t.ThreadID, t.DueAt.Format(time.RFC3339))
		}
	}
}
